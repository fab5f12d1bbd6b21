// Crossfade - Content-Similarity Music Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/crossfade

package recommend

import (
	"cmp"
	"math"
	"slices"

	"github.com/tomtom215/crossfade/internal/catalog"
)

// Preference bonus shape: bonus = base + slope * ratio, where ratio is the
// share of history mentions held by the preferred value.
const (
	bonusBase        = 1.1
	genreBonusSlope  = 0.4
	artistBonusSlope = 0.3

	// excludedScore marks history rows so they are never recommended again.
	excludedScore = -1.0
)

// Scores is the Scorer's output for one request.
type Scores struct {
	// Values holds one adjusted score per catalog row.
	Values []float64

	// GenreBonus and ArtistBonus record the multiplier applied per
	// preferred value that earned one.
	GenreBonus  map[string]float64
	ArtistBonus map[string]float64
}

// Score computes the cosine similarity of taste against every catalog row,
// applies the dynamic genre and artist bonuses, and pins history rows to -1.
//
// A preferred genre (artist) earns a bonus only if it also appears in the
// listener's resolved history; the multiplier grows with its share of the
// history's non-empty genre (artist) mentions. Bonuses stack multiplicatively.
func Score(cat *catalog.Catalog, taste []float64, history []int, genres, artists []string) Scores {
	n := cat.Len()
	s := Scores{
		Values:      make([]float64, n),
		GenreBonus:  map[string]float64{},
		ArtistBonus: map[string]float64{},
	}

	tasteNorm := l2(taste)
	if tasteNorm > 0 {
		for i := 0; i < n; i++ {
			s.Values[i] = cosine(taste, tasteNorm, cat.Embedding(i))
		}
	}

	if len(genres) > 0 && cat.HasGenres() {
		s.GenreBonus = bonuses(genres, history, func(row int) string { return cat.Item(row).Genre }, genreBonusSlope)
		applyBonuses(cat, s.Values, s.GenreBonus, func(it *catalog.Item) string { return it.Genre })
	}
	if len(artists) > 0 && cat.HasArtists() {
		s.ArtistBonus = bonuses(artists, history, func(row int) string { return cat.Item(row).Artist }, artistBonusSlope)
		applyBonuses(cat, s.Values, s.ArtistBonus, func(it *catalog.Item) string { return it.Artist })
	}

	for _, row := range history {
		s.Values[row] = excludedScore
	}
	return s
}

// bonuses returns the multiplier for each preferred value present in history.
func bonuses(preferred []string, history []int, attr func(int) string, slope float64) map[string]float64 {
	counts := make(map[string]int)
	total := 0
	for _, row := range history {
		if v := attr(row); v != "" {
			counts[v]++
			total++
		}
	}

	out := make(map[string]float64)
	if total == 0 {
		return out
	}
	for _, p := range preferred {
		if c := counts[p]; c > 0 {
			out[p] = bonusBase + slope*float64(c)/float64(total)
		}
	}
	return out
}

func applyBonuses(cat *catalog.Catalog, values []float64, bonus map[string]float64, attr func(*catalog.Item) string) {
	if len(bonus) == 0 {
		return
	}
	for i := range values {
		if b, ok := bonus[attr(cat.Item(i))]; ok {
			values[i] *= b
		}
	}
}

func cosine(q []float64, qNorm float64, v []float32) float64 {
	var dot, vv float64
	for d, x := range v {
		y := float64(x)
		dot += q[d] * y
		vv += y * y
	}
	if vv == 0 {
		return 0
	}
	return dot / (qNorm * math.Sqrt(vv))
}

// TopCandidates returns the k highest-scoring rows not in exclude, sorted
// by descending score with ties broken by ascending row.
func TopCandidates(scores []float64, k int, exclude []int) []ScoredItem {
	skip := make(map[int]struct{}, len(exclude))
	for _, row := range exclude {
		skip[row] = struct{}{}
	}

	items := make([]ScoredItem, 0, len(scores))
	for i, v := range scores {
		if _, ok := skip[i]; ok {
			continue
		}
		items = append(items, ScoredItem{Index: i, Score: v})
	}
	slices.SortFunc(items, func(a, b ScoredItem) int {
		if c := cmp.Compare(b.Score, a.Score); c != 0 {
			return c
		}
		return cmp.Compare(a.Index, b.Index)
	})
	if k >= 0 && len(items) > k {
		items = items[:k]
	}
	return items
}
