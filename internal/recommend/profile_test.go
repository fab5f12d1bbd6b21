// Crossfade - Content-Similarity Music Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/crossfade

package recommend

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/tomtom215/crossfade/internal/catalog"
)

var testNow = time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC)

func sum(v []float64) float64 {
	var s float64
	for _, x := range v {
		s += x
	}
	return s
}

func TestBuildProfile_EmptyHistory(t *testing.T) {
	cat := newTestCatalog(t)

	_, err := BuildProfile(cat, nil, nil, nil, testNow)
	if !errors.Is(err, ErrEmptyHistory) {
		t.Fatalf("BuildProfile() error = %v, want ErrEmptyHistory", err)
	}
}

func TestBuildProfile_Uniform(t *testing.T) {
	cat := newTestCatalog(t)

	p, err := BuildProfile(cat, []int{0, 2}, nil, nil, testNow)
	if err != nil {
		t.Fatalf("BuildProfile() error = %v", err)
	}
	if p.Mode != WeightingUniform {
		t.Errorf("Mode = %v, want uniform", p.Mode)
	}
	if p.Degraded {
		t.Error("Degraded = true, want false")
	}
	for i, w := range p.Weights {
		if !approxEqual(w, 0.5) {
			t.Errorf("Weights[%d] = %f, want 0.5", i, w)
		}
	}

	want := []float64{1 / math.Sqrt2, 1 / math.Sqrt2, 0}
	for d := range want {
		if !approxEqual(p.Vector[d], want[d]) {
			t.Errorf("Vector[%d] = %f, want %f", d, p.Vector[d], want[d])
		}
	}
	if !approxEqual(l2(p.Vector), 1) {
		t.Errorf("|Vector| = %f, want 1", l2(p.Vector))
	}
}

func TestBuildProfile_ZeroNorm(t *testing.T) {
	cat, err := catalog.New([]catalog.Item{
		{ID: "up", Embedding: []float32{1, 0}},
		{ID: "down", Embedding: []float32{-1, 0}},
		{ID: "silent", Embedding: []float32{0, 0}},
		{ID: "side", Embedding: []float32{0, 1}},
	}, "test")
	if err != nil {
		t.Fatalf("catalog.New() error = %v", err)
	}

	tests := []struct {
		name string
		rows []int
	}{
		{"opposite embeddings cancel", []int{0, 1}},
		{"all-zero embedding", []int{2}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := BuildProfile(cat, tt.rows, nil, nil, testNow)
			if err != nil {
				t.Fatalf("BuildProfile() error = %v", err)
			}
			for d, v := range p.Vector {
				if v != 0 || math.IsNaN(v) {
					t.Errorf("Vector[%d] = %f, want 0", d, v)
				}
			}

			s := Score(cat, p.Vector, tt.rows, nil, nil)
			excluded := map[int]bool{}
			for _, row := range tt.rows {
				excluded[row] = true
			}
			for i, v := range s.Values {
				if math.IsNaN(v) {
					t.Fatalf("Values[%d] is NaN", i)
				}
				if !excluded[i] && v != 0 {
					t.Errorf("Values[%d] = %f, want 0", i, v)
				}
			}
		})
	}
}

func TestRecencyWeights(t *testing.T) {
	cat := newTestCatalog(t)

	tests := []struct {
		name  string
		dated []HistoryEntry
		want  []float64
	}{
		{
			name: "today and thirty days ago",
			dated: []HistoryEntry{
				{ID: "t1", PlayedAt: "2026-01-31T00:00:00Z"},
				{ID: "t3", PlayedAt: "2026-01-01T00:00:00Z"},
			},
			want: []float64{1, math.Exp(-1)},
		},
		{
			name:  "undated row gets neutral weight",
			dated: []HistoryEntry{{ID: "t1", PlayedAt: "2026-01-31"}},
			want:  []float64{1, 0.5},
		},
		{
			name: "first dated entry wins",
			dated: []HistoryEntry{
				{ID: "t1", PlayedAt: "2026-01-01"},
				{ID: "t1", PlayedAt: "2026-01-31"},
				{ID: "t3", PlayedAt: "2026-01-01"},
			},
			want: []float64{math.Exp(-1), math.Exp(-1)},
		},
		{
			name:  "partial days are floored",
			dated: []HistoryEntry{{ID: "t1", PlayedAt: "2026-01-30T01:00:00Z"}, {ID: "t3", PlayedAt: "2026-01-29T12:00:00Z"}},
			want:  []float64{1, math.Exp(-1.0 / 30)},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := recencyWeights(cat, []int{0, 2}, tt.dated, testNow)
			if err != nil {
				t.Fatalf("recencyWeights() error = %v", err)
			}
			for i := range tt.want {
				if !approxEqual(got[i], tt.want[i]) {
					t.Errorf("weight[%d] = %f, want %f", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestBuildProfile_Recency(t *testing.T) {
	cat := newTestCatalog(t)
	dated := []HistoryEntry{
		{ID: "t1", PlayedAt: "2026-01-31T00:00:00Z"},
		{ID: "t3", PlayedAt: "2026-01-01T00:00:00Z"},
	}

	p, err := BuildProfile(cat, []int{0, 2}, dated, nil, testNow)
	if err != nil {
		t.Fatalf("BuildProfile() error = %v", err)
	}
	if p.Mode != WeightingRecency {
		t.Errorf("Mode = %v, want recency", p.Mode)
	}
	if !approxEqual(sum(p.Weights), 1) {
		t.Errorf("sum(Weights) = %f, want 1", sum(p.Weights))
	}
	wantFirst := 1 / (1 + math.Exp(-1))
	if !approxEqual(p.Weights[0], wantFirst) {
		t.Errorf("Weights[0] = %f, want %f", p.Weights[0], wantFirst)
	}
	if p.Vector[0] <= p.Vector[1] {
		t.Errorf("recent track should dominate: vector = %v", p.Vector)
	}
}

func TestBuildProfile_BadDateDegradesToUniform(t *testing.T) {
	cat := newTestCatalog(t)
	dated := []HistoryEntry{
		{ID: "t1", PlayedAt: "2026-01-31"},
		{ID: "t3", PlayedAt: "last tuesday"},
	}

	p, err := BuildProfile(cat, []int{0, 2}, dated, nil, testNow)
	if err != nil {
		t.Fatalf("BuildProfile() error = %v", err)
	}
	if !p.Degraded {
		t.Fatal("Degraded = false, want true")
	}
	if p.DateErr == nil {
		t.Error("DateErr = nil, want parse error")
	}
	if p.Mode != WeightingUniform {
		t.Errorf("Mode = %v, want uniform", p.Mode)
	}
	for i, w := range p.Weights {
		if !approxEqual(w, 0.5) {
			t.Errorf("Weights[%d] = %f, want 0.5", i, w)
		}
	}
}

func TestBuildProfile_Frequency(t *testing.T) {
	cat := newTestCatalog(t)
	rows := []int{0, 0, 0, 2}
	freq := map[int]int{0: 3, 2: 1}

	p, err := BuildProfile(cat, rows, nil, freq, testNow)
	if err != nil {
		t.Fatalf("BuildProfile() error = %v", err)
	}
	if p.Mode != WeightingFrequency {
		t.Errorf("Mode = %v, want frequency", p.Mode)
	}
	if !approxEqual(sum(p.Weights), 1) {
		t.Errorf("sum(Weights) = %f, want 1", sum(p.Weights))
	}
	ratio := p.Weights[0] / p.Weights[3]
	if !approxEqual(ratio, math.Log1p(3)/math.Log1p(1)) {
		t.Errorf("weight ratio = %f, want log1p(3)/log1p(1)", ratio)
	}
}

func TestBuildProfile_RecencyAndFrequency(t *testing.T) {
	cat := newTestCatalog(t)
	dated := []HistoryEntry{{ID: "t1", PlayedAt: "2026-01-31"}}

	p, err := BuildProfile(cat, []int{0, 2}, dated, map[int]int{0: 1, 2: 1}, testNow)
	if err != nil {
		t.Fatalf("BuildProfile() error = %v", err)
	}
	if p.Mode != WeightingRecencyFrequency {
		t.Errorf("Mode = %v, want recency+frequency", p.Mode)
	}
	if !approxEqual(p.Weights[0], 2.0/3) {
		t.Errorf("Weights[0] = %f, want 2/3", p.Weights[0])
	}
}

func TestNormalizeWeights_FallsBackToUniform(t *testing.T) {
	w := []float64{0, 0, 0, 0}
	normalizeWeights(w)
	for i, v := range w {
		if v != 0.25 {
			t.Errorf("w[%d] = %f, want 0.25", i, v)
		}
	}
}

func TestDaysSince(t *testing.T) {
	tests := []struct {
		name string
		ago  time.Duration
		want int
	}{
		{"same instant", 0, 0},
		{"23 hours", 23 * time.Hour, 0},
		{"36 hours", 36 * time.Hour, 1},
		{"30 days", 30 * 24 * time.Hour, 30},
		{"future play", -25 * time.Hour, -2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := daysSince(testNow, testNow.Add(-tt.ago)); got != tt.want {
				t.Errorf("daysSince() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestParsePlayedAt(t *testing.T) {
	tests := []struct {
		in      string
		want    time.Time
		wantErr bool
	}{
		{"2026-01-15T10:30:00Z", time.Date(2026, 1, 15, 10, 30, 0, 0, time.UTC), false},
		{"2026-01-15T10:30:00.123Z", time.Date(2026, 1, 15, 10, 30, 0, 123000000, time.UTC), false},
		{"2026-01-15T12:30:00+02:00", time.Date(2026, 1, 15, 10, 30, 0, 0, time.UTC), false},
		{"2026-01-15T10:30:00", time.Date(2026, 1, 15, 10, 30, 0, 0, time.UTC), false},
		{"2026-01-15 10:30:00", time.Date(2026, 1, 15, 10, 30, 0, 0, time.UTC), false},
		{"2026-01-15T10:30", time.Date(2026, 1, 15, 10, 30, 0, 0, time.UTC), false},
		{" 2026-01-15 ", time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC), false},
		{"", time.Time{}, true},
		{"15/01/2026", time.Time{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParsePlayedAt(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParsePlayedAt(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if !tt.wantErr && !got.Equal(tt.want) {
				t.Errorf("ParsePlayedAt(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestWeightingMode_String(t *testing.T) {
	if got := WeightingRecencyFrequency.String(); got != "recency+frequency" {
		t.Errorf("String() = %q", got)
	}
	if got := WeightingMode(42).String(); got != "unknown" {
		t.Errorf("String() = %q, want unknown", got)
	}
}
