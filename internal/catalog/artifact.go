// Crossfade - Content-Similarity Music Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/crossfade

package catalog

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/goccy/go-json"
)

// ArtifactVersion is the artifact layout this package reads and writes.
const ArtifactVersion = 1

// Artifact is the on-disk form produced by the training pipeline. Track
// metadata and embeddings are stored as parallel arrays; row i of one
// describes row i of the other.
type Artifact struct {
	Version    int             `json:"version"`
	Dimension  int             `json:"dimension"`
	Tracks     []ArtifactTrack `json:"tracks"`
	Embeddings [][]float32     `json:"embeddings"`
}

// ArtifactTrack is one metadata row of an Artifact.
type ArtifactTrack struct {
	ID     string `json:"id"`
	Title  string `json:"title,omitempty"`
	Artist string `json:"artist,omitempty"`
	Genre  string `json:"genre,omitempty"`
	Plays  int64  `json:"plays,omitempty"`
}

// Build checks the artifact's row counts and turns it into a Catalog.
func (a *Artifact) Build(source string) (*Catalog, error) {
	if a.Version != 0 && a.Version != ArtifactVersion {
		return nil, fmt.Errorf("unsupported artifact version %d", a.Version)
	}
	if len(a.Tracks) != len(a.Embeddings) {
		return nil, fmt.Errorf("%w: %d tracks, %d embeddings", ErrRowMismatch, len(a.Tracks), len(a.Embeddings))
	}
	items := make([]Item, len(a.Tracks))
	for i, t := range a.Tracks {
		if a.Dimension > 0 && len(a.Embeddings[i]) != a.Dimension {
			return nil, fmt.Errorf("%w: row %d has %d values, artifact declares %d",
				ErrDimensionMismatch, i, len(a.Embeddings[i]), a.Dimension)
		}
		items[i] = Item{
			ID:        t.ID,
			Title:     t.Title,
			Artist:    t.Artist,
			Genre:     t.Genre,
			Plays:     t.Plays,
			Embedding: a.Embeddings[i],
		}
	}
	return New(items, source)
}

// ToArtifact is the inverse of Build.
func ToArtifact(c *Catalog) *Artifact {
	a := &Artifact{
		Version:    ArtifactVersion,
		Dimension:  c.Dim(),
		Tracks:     make([]ArtifactTrack, c.Len()),
		Embeddings: make([][]float32, c.Len()),
	}
	for i := range c.items {
		it := &c.items[i]
		a.Tracks[i] = ArtifactTrack{ID: it.ID, Title: it.Title, Artist: it.Artist, Genre: it.Genre, Plays: it.Plays}
		a.Embeddings[i] = it.Embedding
	}
	return a
}

// FileLoader loads a catalog from a JSON artifact file.
type FileLoader struct {
	Path string
}

// Load reads and validates the artifact at l.Path.
func (l FileLoader) Load(ctx context.Context) (*Catalog, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(l.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrArtifactMissing, l.Path)
	}
	if err != nil {
		return nil, fmt.Errorf("read artifact: %w", err)
	}

	var a Artifact
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("decode artifact %s: %w", l.Path, err)
	}
	c, err := a.Build("file:" + l.Path)
	if err != nil {
		return nil, fmt.Errorf("artifact %s: %w", l.Path, err)
	}
	return c, nil
}

func (l FileLoader) String() string { return "file:" + l.Path }

// WriteArtifact writes c to path atomically (temp file then rename), so a
// watcher never observes a half-written artifact.
func WriteArtifact(path string, c *Catalog) error {
	data, err := json.Marshal(ToArtifact(c))
	if err != nil {
		return fmt.Errorf("encode artifact: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".catalog-*.json")
	if err != nil {
		return fmt.Errorf("create temp artifact: %w", err)
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck // no-op after a successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close() //nolint:errcheck,gosec // already failing
		return fmt.Errorf("write temp artifact: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp artifact: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename artifact: %w", err)
	}
	return nil
}
