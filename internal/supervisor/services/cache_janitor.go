// Crossfade - Content-Similarity Music Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/crossfade

package services

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// CachePurger drops expired entries from the result cache and reports how many.
type CachePurger interface {
	PurgeCache(ctx context.Context) int
}

// CacheJanitorService purges expired result-cache entries on an interval so
// idle keys do not sit in memory until the next eviction batch.
type CacheJanitorService struct {
	purger   CachePurger
	interval time.Duration
	logger   zerolog.Logger
	name     string
}

// NewCacheJanitorService creates the janitor. A non-positive interval defaults to one minute.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewCacheJanitorService(purger CachePurger, interval time.Duration, logger zerolog.Logger) *CacheJanitorService {
	if interval <= 0 {
		interval = time.Minute
	}
	return &CacheJanitorService{
		purger:   purger,
		interval: interval,
		logger:   logger.With().Str("service", "cache-janitor").Logger(),
		name:     "cache-janitor",
	}
}

// Serve implements suture.Service.
func (s *CacheJanitorService) Serve(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Debug().Dur("interval", s.interval).Msg("cache janitor running")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if n := s.purger.PurgeCache(ctx); n > 0 {
				s.logger.Debug().Int("purged", n).Msg("expired results purged")
			}
		}
	}
}

// String identifies the service in supervisor logs.
func (s *CacheJanitorService) String() string {
	return s.name
}
