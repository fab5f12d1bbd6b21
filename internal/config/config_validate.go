// Crossfade - Content-Similarity Music Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/crossfade

package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/tomtom215/crossfade/internal/logging"
)

const (
	minRateLimitRequests = 1
	maxRateLimitRequests = 100000
	minRateLimitWindow   = time.Second
	maxRateLimitWindow   = time.Hour
)

var validCatalogFormats = map[string]bool{
	"json":   true,
	"badger": true,
}

var validCacheBackends = map[string]bool{
	"memory": true,
	"redis":  true,
}

// Validate checks the configuration and reports every problem found.
func (c *Config) Validate() error {
	return errors.Join(
		c.validateServer(),
		c.validateCatalog(),
		c.validateRecommend(),
		c.validateCache(),
		c.validateLogging(),
	)
}

func (c *Config) validateServer() error {
	var errs []error
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("HTTP_PORT must be between 1 and 65535, got %d", c.Server.Port))
	}
	if c.Server.Environment != "development" && c.Server.Environment != "production" {
		errs = append(errs, fmt.Errorf("ENVIRONMENT must be development or production, got %q", c.Server.Environment))
	}
	if c.IsProduction() {
		for _, origin := range c.Server.CORSOrigins {
			if origin == "*" {
				errs = append(errs, errors.New("CORS_ORIGINS must not contain * in production"))
				break
			}
		}
	}
	if !c.Server.RateLimitDisabled {
		if c.Server.RateLimitReqs < minRateLimitRequests || c.Server.RateLimitReqs > maxRateLimitRequests {
			errs = append(errs, fmt.Errorf("RATE_LIMIT_REQUESTS must be between %d and %d", minRateLimitRequests, maxRateLimitRequests))
		}
		if c.Server.RateLimitWindow < minRateLimitWindow || c.Server.RateLimitWindow > maxRateLimitWindow {
			errs = append(errs, fmt.Errorf("RATE_LIMIT_WINDOW must be between %v and %v", minRateLimitWindow, maxRateLimitWindow))
		}
	}
	return errors.Join(errs...)
}

func (c *Config) validateCatalog() error {
	var errs []error
	if !validCatalogFormats[c.Catalog.Format] {
		errs = append(errs, fmt.Errorf("CATALOG_FORMAT must be json or badger, got %q", c.Catalog.Format))
	}
	if c.Catalog.Format == "json" && c.Catalog.Path == "" {
		errs = append(errs, errors.New("CATALOG_PATH is required for the json format"))
	}
	if c.Catalog.Format == "badger" && c.Catalog.BadgerDir == "" {
		errs = append(errs, errors.New("CATALOG_BADGER_DIR is required for the badger format"))
	}
	if c.Catalog.ReloadMinInterval < 0 {
		errs = append(errs, errors.New("CATALOG_RELOAD_MIN_INTERVAL must not be negative"))
	}
	return errors.Join(errs...)
}

func (c *Config) validateRecommend() error {
	r := c.Recommend
	var errs []error
	if r.MaxLimit < 1 {
		errs = append(errs, fmt.Errorf("RECOMMEND_MAX_LIMIT must be positive, got %d", r.MaxLimit))
	}
	if r.DefaultLimit < 1 || r.DefaultLimit > r.MaxLimit {
		errs = append(errs, fmt.Errorf("RECOMMEND_DEFAULT_LIMIT must be between 1 and %d, got %d", r.MaxLimit, r.DefaultLimit))
	}
	if r.DiversityLambda < 0 || r.DiversityLambda > 1 {
		errs = append(errs, fmt.Errorf("RECOMMEND_DIVERSITY_LAMBDA must be between 0 and 1, got %g", r.DiversityLambda))
	}
	if r.PoolMultiplier < 1 {
		errs = append(errs, fmt.Errorf("RECOMMEND_POOL_MULTIPLIER must be at least 1, got %d", r.PoolMultiplier))
	}
	if r.MaxPool < r.MaxLimit {
		errs = append(errs, fmt.Errorf("RECOMMEND_MAX_POOL must be at least RECOMMEND_MAX_LIMIT (%d), got %d", r.MaxLimit, r.MaxPool))
	}
	if r.ShuffleTail.KeepTop < 0 {
		errs = append(errs, fmt.Errorf("RECOMMEND_SHUFFLE_KEEP_TOP must not be negative, got %d", r.ShuffleTail.KeepTop))
	}
	return errors.Join(errs...)
}

func (c *Config) validateCache() error {
	var errs []error
	if !validCacheBackends[c.Cache.Backend] {
		errs = append(errs, fmt.Errorf("CACHE_BACKEND must be memory or redis, got %q", c.Cache.Backend))
	}
	if c.Cache.TTL <= 0 {
		errs = append(errs, fmt.Errorf("CACHE_TTL must be positive, got %v", c.Cache.TTL))
	}
	if c.Cache.MaxEntries < 1 {
		errs = append(errs, fmt.Errorf("CACHE_MAX_ENTRIES must be positive, got %d", c.Cache.MaxEntries))
	}
	if c.Cache.EvictBatch < 1 {
		errs = append(errs, fmt.Errorf("CACHE_EVICT_BATCH must be positive, got %d", c.Cache.EvictBatch))
	}
	if c.Cache.Backend == "redis" && c.Cache.Redis.Addr == "" {
		errs = append(errs, errors.New("REDIS_ADDR is required for the redis cache backend"))
	}
	return errors.Join(errs...)
}

func (c *Config) validateLogging() error {
	var errs []error
	if !logging.ValidLevel(c.Logging.Level) {
		errs = append(errs, fmt.Errorf("LOG_LEVEL %q is not a valid level", c.Logging.Level))
	}
	if c.Logging.Format != "json" && c.Logging.Format != "console" {
		errs = append(errs, fmt.Errorf("LOG_FORMAT must be json or console, got %q", c.Logging.Format))
	}
	return errors.Join(errs...)
}
