// Crossfade - Content-Similarity Music Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/crossfade

// Package recommend turns a listener's play history into track recommendations.
//
// The pipeline for one request is: result-cache lookup, history resolution,
// taste profile (BuildProfile), scoring with preference bonuses (Score),
// candidate selection (TopCandidates), optional diversity re-ranking, and
// cache store. Requests whose history resolves to nothing take the
// popularity fallback (ColdStart) instead.
package recommend

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/tomtom215/crossfade/internal/cache"
	"github.com/tomtom215/crossfade/internal/catalog"
	"github.com/tomtom215/crossfade/internal/logging"
	"github.com/tomtom215/crossfade/internal/metrics"
)

// Engine serves recommendations against the current catalog snapshot.
// It is safe for concurrent use.
type Engine struct {
	config   *Config
	logger   zerolog.Logger
	catalogs CatalogSource
	results  cache.Backend[CachedList]
	clock    cache.Clock

	rerankers []Reranker
	rrMu      sync.RWMutex

	requestCount  atomic.Int64
	cacheHits     atomic.Int64
	personalized  atomic.Int64
	coldStarts    atomic.Int64
	degradedCount atomic.Int64
	errorCount    atomic.Int64
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock overrides the clock used for recency weighting.
func WithClock(c cache.Clock) Option {
	return func(e *Engine) { e.clock = c }
}

// NewEngine creates an engine. results may be nil to disable caching.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewEngine(cfg *Config, catalogs CatalogSource, results cache.Backend[CachedList], logger zerolog.Logger, opts ...Option) (*Engine, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if catalogs == nil {
		return nil, errors.New("catalog source is required")
	}

	e := &Engine{
		config:   cfg.Clone(),
		logger:   logger.With().Str("component", "recommend").Logger(),
		catalogs: catalogs,
		results:  results,
		clock:    cache.SystemClock{},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// RegisterReranker adds a reranker to the diversity step. Rerankers run in
// registration order on requests that ask for diversity.
func (e *Engine) RegisterReranker(rr Reranker) {
	e.rrMu.Lock()
	defer e.rrMu.Unlock()

	e.rerankers = append(e.rerankers, rr)
	e.logger.Info().Str("reranker", rr.Name()).Msg("registered reranker")
}

// Recommend answers one request.
func (e *Engine) Recommend(ctx context.Context, req *Request) (*Response, error) {
	start := e.clock.Now()
	e.requestCount.Add(1)

	cat := e.catalogs.Current()
	if cat == nil {
		e.errorCount.Add(1)
		return nil, ErrCatalogNotLoaded
	}

	limit := e.config.ClampLimit(req.Limit)
	key := cache.Fingerprint(req.History, req.Genres, req.Artists, limit)
	logger := e.requestLogger(ctx, req, limit)

	if resp := e.tryGetCachedResponse(ctx, key, logger); resp != nil {
		return resp, nil
	}

	rows := cat.Resolve(req.History)
	if dropped := len(req.History) - len(rows); dropped > 0 {
		metrics.HistoryUnresolved.Add(float64(dropped))
		logger.Debug().Int("unresolved", dropped).Msg("dropped unknown history ids")
	}

	var (
		recs   []Recommendation
		method string
	)
	if len(rows) == 0 {
		recs = e.coldStart(cat, req, limit)
		method = MethodColdStart
		e.coldStarts.Add(1)
	} else {
		var err error
		recs, err = e.personalize(ctx, cat, req, rows, limit, key, logger)
		if err != nil {
			e.errorCount.Add(1)
			metrics.RecommendErrors.Inc()
			return nil, fmt.Errorf("personalize: %w", err)
		}
		method = MethodPersonalized
		e.personalized.Add(1)
	}

	if e.shouldCache(method, recs) {
		e.results.Store(ctx, key, CachedList{Method: method, Recommendations: recs})
	}

	elapsed := e.clock.Now().Sub(start)
	metrics.RecordRecommendation(method, false, elapsed)
	logger.Debug().
		Str("method", method).
		Int("returned", len(recs)).
		Dur("latency", elapsed).
		Msg("recommendation complete")

	return newResponse(recs, method, false), nil
}

func (e *Engine) requestLogger(ctx context.Context, req *Request, limit int) zerolog.Logger {
	lc := e.logger.With().
		Int("history", len(req.History)).
		Int("dated", len(req.HistoryWithDates)).
		Int("genres", len(req.Genres)).
		Int("artists", len(req.Artists)).
		Int("limit", limit)
	if id := logging.RequestIDFromContext(ctx); id != "" {
		lc = lc.Str("request_id", id)
	}
	return lc.Logger()
}

//nolint:gocritic // logger passed by value is acceptable for zerolog
func (e *Engine) tryGetCachedResponse(ctx context.Context, key string, logger zerolog.Logger) *Response {
	if e.results == nil {
		return nil
	}
	hit, ok := e.results.Lookup(ctx, key)
	if !ok || len(hit.Recommendations) == 0 {
		return nil
	}

	e.cacheHits.Add(1)
	metrics.RecordRecommendation(hit.Method, true, 0)
	logger.Debug().Str("method", hit.Method).Msg("cache hit")
	return newResponse(hit.Recommendations, hit.Method, true)
}

func (e *Engine) shouldCache(method string, recs []Recommendation) bool {
	if e.results == nil || len(recs) == 0 {
		return false
	}
	return method == MethodPersonalized || e.config.ColdStart.CacheResults
}

//nolint:gocritic // logger passed by value is acceptable for zerolog
func (e *Engine) personalize(ctx context.Context, cat *catalog.Catalog, req *Request, rows []int, limit int, key string, logger zerolog.Logger) ([]Recommendation, error) {
	freq := make(map[int]int, len(rows))
	for _, r := range rows {
		freq[r]++
	}

	profile, err := BuildProfile(cat, rows, req.HistoryWithDates, freq, e.clock.Now())
	if err != nil {
		return nil, err
	}
	if profile.Degraded {
		e.degradedCount.Add(1)
		metrics.ProfileDegraded.Inc()
		logger.Warn().Err(profile.DateErr).Msg("play dates unusable, using uniform recency weights")
	}

	scores := Score(cat, profile.Vector, rows, req.Genres, req.Artists)
	if len(scores.GenreBonus) > 0 || len(scores.ArtistBonus) > 0 {
		logger.Debug().
			Interface("genre_bonus", scores.GenreBonus).
			Interface("artist_bonus", scores.ArtistBonus).
			Msg("preference bonuses applied")
	}

	candidates := TopCandidates(scores.Values, e.config.PoolSize(limit), rows)
	if req.UseDiversity == nil || *req.UseDiversity {
		candidates = e.applyRerankers(ctx, cat, candidates)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(candidates) > limit {
		candidates = candidates[:limit]
	}

	recs := make([]Recommendation, len(candidates))
	for i, c := range candidates {
		recs[i] = toRecommendation(cat.Item(c.Index))
		sim := c.Score
		recs[i].Similarity = &sim
	}

	if st := e.config.ShuffleTail; st.Enabled {
		ShuffleTail(recs, st.KeepTop, st.Seed, key)
	}
	return recs, nil
}

func (e *Engine) applyRerankers(ctx context.Context, cat *catalog.Catalog, items []ScoredItem) []ScoredItem {
	e.rrMu.RLock()
	rerankers := e.rerankers
	e.rrMu.RUnlock()

	for _, rr := range rerankers {
		items = rr.Rerank(ctx, cat, items, 0)
	}
	return items
}

func (e *Engine) coldStart(cat *catalog.Catalog, req *Request, limit int) []Recommendation {
	rows := ColdStart(cat, req.Genres, req.Artists, limit, e.config.ColdStart.Seed)
	recs := make([]Recommendation, len(rows))
	for i, r := range rows {
		recs[i] = toRecommendation(cat.Item(r))
	}
	return recs
}

func toRecommendation(it *catalog.Item) Recommendation {
	return Recommendation{
		ID:     it.ID,
		Artist: orUnknown(it.Artist),
		Title:  orUnknown(it.Title),
		Genre:  orUnknown(it.Genre),
		Plays:  it.Plays,
	}
}

func orUnknown(s string) string {
	if s == "" {
		return "Unknown"
	}
	return s
}

func newResponse(recs []Recommendation, method string, cached bool) *Response {
	if recs == nil {
		recs = []Recommendation{}
	}
	return &Response{
		Recommendations: recs,
		Count:           len(recs),
		Method:          method,
		Cached:          cached,
	}
}

// Health reports catalog and cache state.
func (e *Engine) Health(ctx context.Context) HealthStatus {
	h := HealthStatus{Status: "degraded"}
	if cat := e.catalogs.Current(); cat != nil {
		h.Status = "ok"
		h.CatalogLoaded = true
		h.CatalogSize = cat.Len()
	}
	if e.results != nil {
		h.CacheSize = e.results.Len(ctx)
	}
	return h
}

// ModelStats describes the serving catalog and the cache.
func (e *Engine) ModelStats(ctx context.Context) ModelStats {
	var s ModelStats
	if e.results != nil {
		s.CacheSize = e.results.Len(ctx)
		s.CacheHitRate = e.results.Stats().HitRate()
	}
	if cat := e.catalogs.Current(); cat != nil {
		s.Model = ModelSummary{
			TracksCount:  cat.Len(),
			EmbeddingDim: cat.Dim(),
			ModelSizeMB:  float64(cat.EmbeddingBytes()) / (1024 * 1024),
			Source:       cat.Source(),
		}
	}
	return s
}

// GetMetrics returns a snapshot of the engine counters.
func (e *Engine) GetMetrics() Metrics {
	return Metrics{
		Requests:         e.requestCount.Load(),
		CacheHits:        e.cacheHits.Load(),
		Personalized:     e.personalized.Load(),
		ColdStarts:       e.coldStarts.Load(),
		DegradedProfiles: e.degradedCount.Load(),
		Errors:           e.errorCount.Load(),
	}
}

// GetConfig returns a copy of the engine configuration.
func (e *Engine) GetConfig() *Config {
	return e.config.Clone()
}

// PurgeCache drops expired result-cache entries. Returns the number removed.
func (e *Engine) PurgeCache(ctx context.Context) int {
	if e.results == nil {
		return 0
	}
	return e.results.Purge(ctx)
}
