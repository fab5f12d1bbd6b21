// Crossfade - Content-Similarity Music Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/crossfade

package recommend

import (
	"testing"
)

func TestColdStart_ReturnsLimit(t *testing.T) {
	cat := newLargeCatalog(t, 60)

	rows := ColdStart(cat, nil, nil, 10, 42)
	if len(rows) != 10 {
		t.Fatalf("len = %d, want 10", len(rows))
	}

	seen := make(map[int]bool)
	for _, r := range rows {
		if seen[r] {
			t.Errorf("row %d returned twice", r)
		}
		seen[r] = true
		// The pool is the 20 most played tracks, rows 40..59.
		if r < 40 {
			t.Errorf("row %d is outside the popularity pool", r)
		}
	}
}

func TestColdStart_FewerTracksThanLimit(t *testing.T) {
	cat := newTestCatalog(t)

	rows := ColdStart(cat, nil, nil, 10, 42)
	if len(rows) != cat.Len() {
		t.Errorf("len = %d, want %d", len(rows), cat.Len())
	}
}

func TestColdStart_Deterministic(t *testing.T) {
	cat := newLargeCatalog(t, 60)

	a := ColdStart(cat, nil, nil, 10, 7)
	b := ColdStart(cat, nil, nil, 10, 7)
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("same seed gave different samples: %v vs %v", a, b)
		}
	}
}

func TestColdStart_Filters(t *testing.T) {
	cat := newTestCatalog(t)

	tests := []struct {
		name    string
		genres  []string
		artists []string
		want    map[int]bool
	}{
		{"genre", []string{"Jazz"}, nil, map[int]bool{2: true, 4: true}},
		{"genre then artist", []string{"Rock", "Pop"}, []string{"A"}, map[int]bool{0: true, 3: true}},
		{"no match falls back to all", []string{"Polka"}, nil, map[int]bool{0: true, 1: true, 2: true, 3: true, 4: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows := ColdStart(cat, tt.genres, tt.artists, 10, 42)
			if len(rows) != len(tt.want) {
				t.Fatalf("len = %d, want %d (%v)", len(rows), len(tt.want), rows)
			}
			for _, r := range rows {
				if !tt.want[r] {
					t.Errorf("unexpected row %d", r)
				}
			}
		})
	}
}
