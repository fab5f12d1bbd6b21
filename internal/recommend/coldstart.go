// Crossfade - Content-Similarity Music Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/crossfade

package recommend

import (
	"cmp"
	"math/rand/v2"
	"slices"

	"github.com/tomtom215/crossfade/internal/catalog"
)

// ColdStart picks limit tracks without personalization: filter by the
// preferred genres and then artists, fall back to the whole catalog if
// nothing matches, keep the 2*limit most played, and draw a seeded sample
// of limit from those. The returned rows are in sample order.
func ColdStart(cat *catalog.Catalog, genres, artists []string, limit int, seed int64) []int {
	rows := make([]int, cat.Len())
	for i := range rows {
		rows[i] = i
	}

	filtered := rows
	if len(genres) > 0 && cat.HasGenres() {
		filtered = filterRows(cat, filtered, genres, func(it *catalog.Item) string { return it.Genre })
	}
	if len(artists) > 0 && cat.HasArtists() {
		filtered = filterRows(cat, filtered, artists, func(it *catalog.Item) string { return it.Artist })
	}
	if len(filtered) == 0 {
		filtered = rows
	}

	popular := slices.Clone(filtered)
	slices.SortStableFunc(popular, func(a, b int) int {
		return cmp.Compare(cat.Item(b).Plays, cat.Item(a).Plays)
	})
	if top := 2 * limit; len(popular) > top {
		popular = popular[:top]
	}

	n := min(limit, len(popular))
	rng := rand.New(rand.NewPCG(uint64(seed), 0)) //nolint:gosec // reproducible sampling, not security
	out := make([]int, n)
	for i, j := range rng.Perm(len(popular))[:n] {
		out[i] = popular[j]
	}
	return out
}

func filterRows(cat *catalog.Catalog, rows []int, allowed []string, attr func(*catalog.Item) string) []int {
	set := make(map[string]struct{}, len(allowed))
	for _, a := range allowed {
		set[a] = struct{}{}
	}
	out := make([]int, 0, len(rows))
	for _, r := range rows {
		if _, ok := set[attr(cat.Item(r))]; ok {
			out = append(out, r)
		}
	}
	return out
}
