// Crossfade - Content-Similarity Music Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/crossfade

// Package catalog holds the track catalog and its embedding table.
//
// A *Catalog is immutable once New returns. Requests read it without locks;
// a reload builds a fresh *Catalog and swaps it into a Store atomically, so
// in-flight requests keep the snapshot they started with.
package catalog

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// Startup errors. A catalog failing any of these checks must not serve.
var (
	ErrArtifactMissing   = errors.New("catalog artifact missing")
	ErrRowMismatch       = errors.New("embedding rows do not match track rows")
	ErrDuplicateID       = errors.New("duplicate track id")
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
	ErrEmpty             = errors.New("catalog is empty")
)

// Item is one catalog row. Empty strings mean the attribute is unknown.
type Item struct {
	ID        string
	Title     string
	Artist    string
	Genre     string
	Plays     int64
	Embedding []float32
}

// Catalog is an ordered, read-only set of items with an id index.
type Catalog struct {
	items    []Item
	index    map[string]int
	dim      int
	genres   bool
	artists  bool
	source   string
	loadedAt time.Time
}

// New validates items and builds a catalog. The index is a bijection from
// item id onto [0, len(items)), and every embedding has the same length.
// Items are taken by reference; callers must not mutate them afterwards.
func New(items []Item, source string) (*Catalog, error) {
	if len(items) == 0 {
		return nil, ErrEmpty
	}

	c := &Catalog{
		items:    items,
		index:    make(map[string]int, len(items)),
		dim:      len(items[0].Embedding),
		source:   source,
		loadedAt: time.Now(),
	}
	if c.dim == 0 {
		return nil, fmt.Errorf("%w: row 0 has no embedding", ErrDimensionMismatch)
	}

	for i := range items {
		it := &items[i]
		if it.ID == "" {
			return nil, fmt.Errorf("row %d: empty track id", i)
		}
		if prev, ok := c.index[it.ID]; ok {
			return nil, fmt.Errorf("%w: %q at rows %d and %d", ErrDuplicateID, it.ID, prev, i)
		}
		if len(it.Embedding) != c.dim {
			return nil, fmt.Errorf("%w: row %d has %d values, want %d", ErrDimensionMismatch, i, len(it.Embedding), c.dim)
		}
		if it.Plays < 0 {
			it.Plays = 0
		}
		c.index[it.ID] = i
		c.genres = c.genres || it.Genre != ""
		c.artists = c.artists || it.Artist != ""
	}
	return c, nil
}

// Len returns the number of items.
func (c *Catalog) Len() int { return len(c.items) }

// Dim returns the embedding dimension.
func (c *Catalog) Dim() int { return c.dim }

// Item returns the item at row i. The returned value must be treated as read-only.
func (c *Catalog) Item(i int) *Item { return &c.items[i] }

// Embedding returns the embedding at row i.
func (c *Catalog) Embedding(i int) []float32 { return c.items[i].Embedding }

// Lookup returns the row for id.
func (c *Catalog) Lookup(id string) (int, bool) {
	i, ok := c.index[id]
	return i, ok
}

// Resolve maps ids to rows in input order, silently dropping unknown ids.
// Duplicate ids produce duplicate rows.
func (c *Catalog) Resolve(ids []string) []int {
	rows := make([]int, 0, len(ids))
	for _, id := range ids {
		if i, ok := c.Lookup(id); ok {
			rows = append(rows, i)
		}
	}
	return rows
}

// HasGenres reports whether any item carries a genre.
func (c *Catalog) HasGenres() bool { return c.genres }

// HasArtists reports whether any item carries an artist.
func (c *Catalog) HasArtists() bool { return c.artists }

// Source describes where the catalog was loaded from.
func (c *Catalog) Source() string { return c.source }

// LoadedAt is when the catalog was built.
func (c *Catalog) LoadedAt() time.Time { return c.loadedAt }

// EmbeddingBytes is the in-memory size of the embedding table.
func (c *Catalog) EmbeddingBytes() int64 {
	return int64(len(c.items)) * int64(c.dim) * 4
}

// Cosine returns the cosine similarity of rows i and j. Zero vectors compare as 0.
func (c *Catalog) Cosine(i, j int) float64 {
	return CosineF32(c.items[i].Embedding, c.items[j].Embedding)
}

// CosineF32 is cosine similarity over float32 vectors of equal length.
func CosineF32(a, b []float32) float64 {
	var dot, na, nb float64
	for k := range a {
		x, y := float64(a[k]), float64(b[k])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
