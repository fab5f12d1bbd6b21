// Crossfade - Content-Similarity Music Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/crossfade

package main

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/crossfade/internal/cache"
	"github.com/tomtom215/crossfade/internal/catalog"
	"github.com/tomtom215/crossfade/internal/config"
	"github.com/tomtom215/crossfade/internal/logging"
	"github.com/tomtom215/crossfade/internal/recommend"
	"github.com/tomtom215/crossfade/internal/recommend/reranking"
)

// ResultCache is the configured result-cache backend and its closer.
type ResultCache struct {
	Backend cache.Backend[recommend.CachedList]
	closer  func() error
}

// Close releases the backend connection, if any. Safe to call twice.
func (r *ResultCache) Close() {
	if r.closer == nil {
		return
	}
	if err := r.closer(); err != nil {
		logging.Error().Err(err).Msg("error closing result cache")
	}
	r.closer = nil
}

// InvalidateOnSwap clears the cache whenever a reload replaces the serving
// catalog, so no list built against the old catalog is served. The first
// load leaves the cache alone.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func (r *ResultCache) InvalidateOnSwap(logger zerolog.Logger) catalog.StoreOption {
	return catalog.WithSwapHook(func(prev, next *catalog.Catalog) {
		if prev == nil {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		n := r.Backend.Clear(ctx)
		logger.Info().
			Int("cleared", n).
			Str("source", next.Source()).
			Msg("result cache cleared after catalog swap")
	})
}

// initRecommend creates the engine over catalogs and results, and registers
// MMR when diversity is enabled.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func initRecommend(cfg *config.Config, catalogs recommend.CatalogSource, results *ResultCache, logger zerolog.Logger) (*recommend.Engine, error) {
	engineCfg := buildEngineConfig(cfg)
	engine, err := recommend.NewEngine(engineCfg, catalogs, results.Backend, logger)
	if err != nil {
		return nil, err
	}

	if engineCfg.Diversity.Lambda > 0 {
		engine.RegisterReranker(reranking.NewMMR(engineCfg.Diversity.Lambda))
	}

	logger.Info().
		Str("cache_backend", results.Backend.Name()).
		Float64("diversity_lambda", engineCfg.Diversity.Lambda).
		Int("max_limit", engineCfg.Limits.MaxLimit).
		Bool("shuffle_tail", engineCfg.ShuffleTail.Enabled).
		Msg("recommendation engine initialized")

	return engine, nil
}

// initResultCache returns the configured backend. An unreachable Redis is
// logged but not fatal: its circuit breaker turns lookups into misses until
// it recovers.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func initResultCache(cfg *config.Config, logger zerolog.Logger) *ResultCache {
	cacheCfg := buildCacheConfig(cfg)

	if cfg.Cache.Backend != cache.BackendRedis {
		return &ResultCache{Backend: cache.NewMemory[recommend.CachedList](cacheCfg, cache.SystemClock{})}
	}

	rc := cfg.Cache.Redis
	r := cache.NewRedis[recommend.CachedList](cacheCfg, cache.RedisConfig{
		Addr:           rc.Addr,
		Password:       rc.Password,
		DB:             rc.DB,
		Prefix:         rc.Prefix,
		DialTimeout:    rc.DialTimeout,
		BreakerTimeout: rc.BreakerTimeout,
	}, cache.SystemClock{}, logger)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := r.Ping(ctx); err != nil {
		logger.Warn().Err(err).Str("addr", rc.Addr).Msg("redis unreachable at startup, results will not be cached until it recovers")
	}
	return &ResultCache{Backend: r, closer: r.Close}
}

// buildEngineConfig maps the flat recommend section onto the engine config.
func buildEngineConfig(cfg *config.Config) *recommend.Config {
	rc := cfg.Recommend
	return &recommend.Config{
		Limits: recommend.LimitsConfig{
			DefaultLimit: rc.DefaultLimit,
			MaxLimit:     rc.MaxLimit,
		},
		Diversity: recommend.DiversityConfig{
			Lambda:         rc.DiversityLambda,
			PoolMultiplier: rc.PoolMultiplier,
			MaxPool:        rc.MaxPool,
		},
		ColdStart: recommend.ColdStartConfig{
			Seed:         rc.ColdStartSeed,
			CacheResults: rc.CacheColdStart,
		},
		ShuffleTail: recommend.ShuffleTailConfig{
			Enabled: rc.ShuffleTail.Enabled,
			KeepTop: rc.ShuffleTail.KeepTop,
			Seed:    rc.ShuffleTail.Seed,
		},
	}
}

func buildCacheConfig(cfg *config.Config) cache.Config {
	return cache.Config{
		TTL:        cfg.Cache.TTL,
		MaxEntries: cfg.Cache.MaxEntries,
		EvictBatch: cfg.Cache.EvictBatch,
	}
}
