// Crossfade - Content-Similarity Music Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/crossfade

package recommend

import (
	"context"

	"github.com/tomtom215/crossfade/internal/catalog"
)

// Method identifiers reported in every response.
const (
	MethodPersonalized = "ml_db_embeddings"
	MethodColdStart    = "cold_start"
)

// HistoryEntry is one dated play. PlayedAt is kept raw so a malformed
// timestamp degrades the profile instead of rejecting the request.
type HistoryEntry struct {
	ID       string `json:"id" validate:"required,max=256"`
	PlayedAt string `json:"playedAt" validate:"max=64"`
}

// Request is a recommendation query.
type Request struct {
	// History lists played track ids, oldest first. Repeats count as frequency.
	History []string `json:"history" validate:"max=10000,dive,max=256"`

	// HistoryWithDates optionally carries play timestamps for recency weighting.
	HistoryWithDates []HistoryEntry `json:"historyWithDates" validate:"max=10000,dive"`

	// Genres are the listener's stated genre preferences.
	Genres []string `json:"genres" validate:"max=100,dive,max=128"`

	// Artists are the listener's stated artist preferences.
	Artists []string `json:"artists" validate:"max=100,dive,max=256"`

	// Limit is the number of results wanted. 0 means the default; any other
	// value is clamped to [1, MaxLimit].
	Limit int `json:"limit"`

	// UseDiversity enables MMR re-ranking. nil means true.
	UseDiversity *bool `json:"useDiversity"`
}

// Recommendation is one returned track. Similarity is nil for cold-start results.
type Recommendation struct {
	ID         string   `json:"id"`
	Artist     string   `json:"artist"`
	Title      string   `json:"title"`
	Genre      string   `json:"genre"`
	Plays      int64    `json:"plays"`
	Similarity *float64 `json:"similarity,omitempty"`
}

// Response is the result of Engine.Recommend.
type Response struct {
	Recommendations []Recommendation `json:"recommendations"`
	Count           int              `json:"count"`
	Method          string           `json:"method"`
	Cached          bool             `json:"cached"`
}

// CachedList is what the result cache stores for one fingerprint.
type CachedList struct {
	Method          string           `json:"method"`
	Recommendations []Recommendation `json:"recommendations"`
}

// ScoredItem is a catalog row with its adjusted score. It lives for one request.
type ScoredItem struct {
	Index int
	Score float64
}

// Reranker reorders a candidate list sorted by descending score.
type Reranker interface {
	// Name returns the reranker identifier.
	Name() string

	// Rerank returns up to k items (all when k <= 0), reordered.
	Rerank(ctx context.Context, cat *catalog.Catalog, items []ScoredItem, k int) []ScoredItem
}

// CatalogSource yields the catalog snapshot a request should use.
type CatalogSource interface {
	Current() *catalog.Catalog
}

// HealthStatus is reported by the health endpoint.
type HealthStatus struct {
	Status        string `json:"status"`
	CatalogLoaded bool   `json:"catalog_loaded"`
	CatalogSize   int    `json:"catalog_size"`
	CacheSize     int    `json:"cache_size"`
}

// ModelStats describes the serving catalog and cache.
type ModelStats struct {
	CacheSize    int          `json:"cache_size"`
	CacheHitRate float64      `json:"cache_hit_rate"`
	Model        ModelSummary `json:"model_stats"`
}

// ModelSummary is the catalog part of ModelStats.
type ModelSummary struct {
	TracksCount  int     `json:"tracks_count"`
	EmbeddingDim int     `json:"embedding_dim"`
	ModelSizeMB  float64 `json:"model_size_mb"`
	Source       string  `json:"source,omitempty"`
}

// Metrics is a snapshot of engine counters.
type Metrics struct {
	Requests         int64 `json:"requests"`
	CacheHits        int64 `json:"cache_hits"`
	Personalized     int64 `json:"personalized"`
	ColdStarts       int64 `json:"cold_starts"`
	DegradedProfiles int64 `json:"degraded_profiles"`
	Errors           int64 `json:"errors"`
}
