// Crossfade - Content-Similarity Music Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/crossfade

package recommend

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/tomtom215/crossfade/internal/catalog"
)

// Recency weighting constants.
const (
	// recencyScaleDays is the e-folding time of the recency decay: a play
	// this many days old weighs exp(-1).
	recencyScaleDays = 30.0

	// undatedWeight applies to history rows with no matching dated entry.
	undatedWeight = 0.5
)

// WeightingMode records which weighting steps shaped a profile.
type WeightingMode int

const (
	WeightingUniform WeightingMode = iota
	WeightingRecency
	WeightingFrequency
	WeightingRecencyFrequency
)

func (m WeightingMode) String() string {
	switch m {
	case WeightingUniform:
		return "uniform"
	case WeightingRecency:
		return "recency"
	case WeightingFrequency:
		return "frequency"
	case WeightingRecencyFrequency:
		return "recency+frequency"
	default:
		return "unknown"
	}
}

// Profile is a listener's taste vector and how it was derived.
type Profile struct {
	// Vector is the L2-normalized taste vector (left as-is when its norm is 0).
	Vector []float64

	// Weights are the per-history-row weights, summing to 1.
	Weights []float64

	// Mode is the weighting that was applied.
	Mode WeightingMode

	// Degraded is set when a play date failed to parse and recency
	// weighting was abandoned in favor of uniform weights.
	Degraded bool

	// DateErr is the parse failure behind Degraded.
	DateErr error
}

// BuildProfile turns resolved history rows into a taste vector.
//
// dated supplies optional play dates matched by track id (first match wins).
// freq, when non-nil, maps a row to its play count; missing rows count once.
// now anchors recency decay.
func BuildProfile(cat *catalog.Catalog, rows []int, dated []HistoryEntry, freq map[int]int, now time.Time) (Profile, error) {
	if len(rows) == 0 {
		return Profile{}, &EmptyHistoryError{}
	}

	p := Profile{Weights: make([]float64, len(rows))}
	for i := range p.Weights {
		p.Weights[i] = 1
	}

	recency := false
	if len(dated) > 0 {
		w, err := recencyWeights(cat, rows, dated, now)
		if err != nil {
			p.Degraded = true
			p.DateErr = err
		} else {
			copy(p.Weights, w)
			recency = true
		}
	}

	if freq != nil {
		for i, row := range rows {
			count, ok := freq[row]
			if !ok {
				count = 1
			}
			p.Weights[i] *= math.Log1p(float64(count))
		}
	}

	switch {
	case recency && freq != nil:
		p.Mode = WeightingRecencyFrequency
	case recency:
		p.Mode = WeightingRecency
	case freq != nil:
		p.Mode = WeightingFrequency
	default:
		p.Mode = WeightingUniform
	}

	normalizeWeights(p.Weights)

	p.Vector = make([]float64, cat.Dim())
	for i, row := range rows {
		w := p.Weights[i]
		for d, v := range cat.Embedding(row) {
			p.Vector[d] += w * float64(v)
		}
	}
	if norm := l2(p.Vector); norm > 0 {
		for d := range p.Vector {
			p.Vector[d] /= norm
		}
	}
	return p, nil
}

// recencyWeights returns exp(-days/30) per row, or an error if any matched
// entry's timestamp does not parse.
func recencyWeights(cat *catalog.Catalog, rows []int, dated []HistoryEntry, now time.Time) ([]float64, error) {
	first := make(map[string]string, len(dated))
	for _, h := range dated {
		if _, seen := first[h.ID]; !seen {
			first[h.ID] = h.PlayedAt
		}
	}

	weights := make([]float64, len(rows))
	for i, row := range rows {
		raw, ok := first[cat.Item(row).ID]
		if !ok {
			weights[i] = undatedWeight
			continue
		}
		playedAt, err := ParsePlayedAt(raw)
		if err != nil {
			return nil, fmt.Errorf("track %s: %w", cat.Item(row).ID, err)
		}
		weights[i] = math.Exp(-float64(daysSince(now, playedAt)) / recencyScaleDays)
	}
	return weights, nil
}

// daysSince counts whole days from t to now, rounding toward negative
// infinity so a future timestamp yields a negative count.
func daysSince(now, t time.Time) int {
	return int(math.Floor(now.Sub(t).Hours() / 24))
}

var playedAtLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02",
}

// ParsePlayedAt accepts ISO 8601 timestamps with an optional trailing Z or
// offset. Timestamps without a zone are read as UTC.
func ParsePlayedAt(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range playedAtLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid playedAt %q", s)
}

// normalizeWeights scales w to sum to 1, falling back to uniform weights
// when the sum is not a positive finite number.
func normalizeWeights(w []float64) {
	var sum float64
	for _, v := range w {
		sum += v
	}
	if sum > 0 && !math.IsInf(sum, 0) && !math.IsNaN(sum) {
		for i := range w {
			w[i] /= sum
		}
		return
	}
	u := 1 / float64(len(w))
	for i := range w {
		w[i] = u
	}
}

func l2(v []float64) float64 {
	var s float64
	for _, x := range v {
		s += x * x
	}
	return math.Sqrt(s)
}
