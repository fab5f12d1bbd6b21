// Crossfade - Content-Similarity Music Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/crossfade

// Package cache memoizes recommendation lists by request fingerprint.
//
// Two backends implement Backend: Memory (process-local, the default) and
// Redis (shared across replicas). Both expire entries lazily on lookup after
// the TTL and, once the entry count exceeds MaxEntries, evict the EvictBatch
// oldest entries by creation time in one pass.
package cache

import (
	"context"
	"fmt"
	"time"
)

// Backend stores values of type V under fingerprint keys.
type Backend[V any] interface {
	// Lookup returns the value for key if it is younger than the TTL.
	// A stale entry is removed as a side effect and reported as a miss.
	Lookup(ctx context.Context, key string) (V, bool)

	// Store inserts or overwrites key, stamped with the current time,
	// then applies the capacity policy.
	Store(ctx context.Context, key string, value V)

	// Purge removes every expired entry and returns how many were removed.
	Purge(ctx context.Context) int

	// Clear removes every entry, fresh or not, and returns how many were removed.
	Clear(ctx context.Context) int

	// Len returns the current number of entries.
	Len(ctx context.Context) int

	// Stats returns a snapshot of the hit/miss/eviction counters.
	Stats() Stats

	// Name identifies the backend in logs and metrics.
	Name() string
}

// Backend names.
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// Config is shared by every backend.
type Config struct {
	// TTL is how long an entry stays fresh.
	// Default: 5m
	TTL time.Duration

	// MaxEntries is the occupancy above which a bulk eviction runs.
	// Default: 1000
	MaxEntries int

	// EvictBatch is how many of the oldest entries one eviction removes.
	// Default: 100
	EvictBatch int
}

// DefaultConfig returns the defaults listed on Config.
func DefaultConfig() Config {
	return Config{
		TTL:        5 * time.Minute,
		MaxEntries: 1000,
		EvictBatch: 100,
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.TTL <= 0 {
		return fmt.Errorf("cache ttl must be positive, got %s", c.TTL)
	}
	if c.MaxEntries < 1 {
		return fmt.Errorf("cache max_entries must be >= 1, got %d", c.MaxEntries)
	}
	if c.EvictBatch < 1 {
		return fmt.Errorf("cache evict_batch must be >= 1, got %d", c.EvictBatch)
	}
	return nil
}

// Stats is a snapshot of cache counters.
type Stats struct {
	Hits        int64
	Misses      int64
	Expirations int64
	Evictions   int64
}

// HitRate returns hits / (hits + misses), or 0 before the first lookup.
func (s Stats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}
