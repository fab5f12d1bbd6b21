// Crossfade - Content-Similarity Music Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/crossfade

package recommend

import (
	"fmt"
	"math"
	"testing"

	"github.com/tomtom215/crossfade/internal/catalog"
)

const floatTolerance = 1e-9

func approxEqual(a, b float64) bool {
	return math.Abs(a-b) < floatTolerance
}

// newTestCatalog returns five tracks in three dimensions:
//
//	row 0 t1 Rock/A  [1 0 0]
//	row 1 t2 Rock/B  [0.9 0.1 0]
//	row 2 t3 Jazz/C  [0 1 0]
//	row 3 t4 Pop/A   [0.7 0.7 0]
//	row 4 t5 Jazz/D  [0 0 1]
func newTestCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	cat, err := catalog.New([]catalog.Item{
		{ID: "t1", Title: "One", Artist: "A", Genre: "Rock", Plays: 10, Embedding: []float32{1, 0, 0}},
		{ID: "t2", Title: "Two", Artist: "B", Genre: "Rock", Plays: 50, Embedding: []float32{0.9, 0.1, 0}},
		{ID: "t3", Title: "Three", Artist: "C", Genre: "Jazz", Plays: 30, Embedding: []float32{0, 1, 0}},
		{ID: "t4", Title: "Four", Artist: "A", Genre: "Pop", Plays: 20, Embedding: []float32{0.7, 0.7, 0}},
		{ID: "t5", Title: "Five", Artist: "D", Genre: "Jazz", Plays: 40, Embedding: []float32{0, 0, 1}},
	}, "test")
	if err != nil {
		t.Fatalf("catalog.New() error = %v", err)
	}
	return cat
}

// newLargeCatalog returns n tracks where row i has i plays and alternates
// between Rock and Jazz.
func newLargeCatalog(t *testing.T, n int) *catalog.Catalog {
	t.Helper()
	items := make([]catalog.Item, n)
	for i := range items {
		genre := "Rock"
		if i%2 == 1 {
			genre = "Jazz"
		}
		items[i] = catalog.Item{
			ID:        fmt.Sprintf("track-%03d", i),
			Title:     fmt.Sprintf("Track %d", i),
			Artist:    fmt.Sprintf("Artist %d", i%7),
			Genre:     genre,
			Plays:     int64(i),
			Embedding: []float32{float32(i%5) + 1, float32(i%3) + 1},
		}
	}
	cat, err := catalog.New(items, "large")
	if err != nil {
		t.Fatalf("catalog.New() error = %v", err)
	}
	return cat
}
