// Crossfade - Content-Similarity Music Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/crossfade

package cache

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/tomtom215/crossfade/internal/metrics"
)

// Entry is one cached value and when it was stored.
type Entry[V any] struct {
	Value     V
	CreatedAt time.Time
}

// Memory is a mutex-guarded, process-local Backend.
type Memory[V any] struct {
	mu      sync.Mutex
	entries map[string]Entry[V]
	cfg     Config
	clock   Clock
	stats   Stats
}

// NewMemory returns an empty in-memory cache. A nil clock means SystemClock.
func NewMemory[V any](cfg Config, clock Clock) *Memory[V] {
	if clock == nil {
		clock = SystemClock{}
	}
	return &Memory[V]{
		entries: make(map[string]Entry[V]),
		cfg:     cfg,
		clock:   clock,
	}
}

// Name implements Backend.
func (m *Memory[V]) Name() string { return BackendMemory }

// Lookup implements Backend.
func (m *Memory[V]) Lookup(_ context.Context, key string) (V, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var zero V
	e, ok := m.entries[key]
	if !ok {
		m.miss()
		return zero, false
	}
	if m.clock.Now().Sub(e.CreatedAt) >= m.cfg.TTL {
		delete(m.entries, key)
		m.stats.Expirations++
		metrics.ResultCacheEvictions.WithLabelValues(BackendMemory, "expired").Inc()
		metrics.ResultCacheEntries.WithLabelValues(BackendMemory).Set(float64(len(m.entries)))
		m.miss()
		return zero, false
	}
	m.stats.Hits++
	metrics.ResultCacheHits.WithLabelValues(BackendMemory).Inc()
	return e.Value, true
}

func (m *Memory[V]) miss() {
	m.stats.Misses++
	metrics.ResultCacheMisses.WithLabelValues(BackendMemory).Inc()
}

// Store implements Backend.
func (m *Memory[V]) Store(_ context.Context, key string, value V) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries[key] = Entry[V]{Value: value, CreatedAt: m.clock.Now()}
	if len(m.entries) > m.cfg.MaxEntries {
		m.evictOldest()
	}
	metrics.ResultCacheEntries.WithLabelValues(BackendMemory).Set(float64(len(m.entries)))
}

// evictOldest removes the EvictBatch oldest entries. It always leaves at
// least one entry, so the value just stored survives. Must hold mu.
func (m *Memory[V]) evictOldest() {
	type aged struct {
		key string
		at  time.Time
	}
	all := make([]aged, 0, len(m.entries))
	for k, e := range m.entries {
		all = append(all, aged{key: k, at: e.CreatedAt})
	}
	slices.SortFunc(all, func(a, b aged) int {
		if c := a.at.Compare(b.at); c != 0 {
			return c
		}
		return strings.Compare(a.key, b.key)
	})

	n := min(m.cfg.EvictBatch, len(all)-1)
	for _, a := range all[:n] {
		delete(m.entries, a.key)
	}
	m.stats.Evictions += int64(n)
	metrics.ResultCacheEvictions.WithLabelValues(BackendMemory, "capacity").Add(float64(n))
}

// Purge implements Backend.
func (m *Memory[V]) Purge(_ context.Context) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.clock.Now()
	removed := 0
	for k, e := range m.entries {
		if now.Sub(e.CreatedAt) >= m.cfg.TTL {
			delete(m.entries, k)
			removed++
		}
	}
	m.stats.Expirations += int64(removed)
	metrics.ResultCacheEvictions.WithLabelValues(BackendMemory, "expired").Add(float64(removed))
	metrics.ResultCacheEntries.WithLabelValues(BackendMemory).Set(float64(len(m.entries)))
	return removed
}

// Clear implements Backend.
func (m *Memory[V]) Clear(_ context.Context) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := len(m.entries)
	clear(m.entries)
	m.stats.Evictions += int64(n)
	metrics.ResultCacheEvictions.WithLabelValues(BackendMemory, "cleared").Add(float64(n))
	metrics.ResultCacheEntries.WithLabelValues(BackendMemory).Set(0)
	return n
}

// Len implements Backend.
func (m *Memory[V]) Len(_ context.Context) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// Stats implements Backend.
func (m *Memory[V]) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stats
}

var _ Backend[[]string] = (*Memory[[]string])(nil)
