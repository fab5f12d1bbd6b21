// Crossfade - Content-Similarity Music Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/crossfade

package cache

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var epoch = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestMemory(cfg Config) (*Memory[[]string], *ManualClock) {
	clock := NewManualClock(epoch)
	return NewMemory[[]string](cfg, clock), clock
}

func TestMemory_StoreThenLookup(t *testing.T) {
	m, _ := newTestMemory(DefaultConfig())
	ctx := context.Background()

	want := []string{"t9", "t3", "t7"}
	m.Store(ctx, "k", want)

	got, ok := m.Lookup(ctx, "k")
	require.True(t, ok)
	assert.Equal(t, want, got)

	_, ok = m.Lookup(ctx, "absent")
	assert.False(t, ok)

	s := m.Stats()
	assert.Equal(t, int64(1), s.Hits)
	assert.Equal(t, int64(1), s.Misses)
	assert.InDelta(t, 0.5, s.HitRate(), 1e-9)
}

func TestMemory_StoreOverwrites(t *testing.T) {
	m, clock := newTestMemory(DefaultConfig())
	ctx := context.Background()

	m.Store(ctx, "k", []string{"old"})
	clock.Advance(4 * time.Minute)
	m.Store(ctx, "k", []string{"new"})
	clock.Advance(4 * time.Minute)

	// The overwrite restamped the entry, so it is still fresh.
	got, ok := m.Lookup(ctx, "k")
	require.True(t, ok)
	assert.Equal(t, []string{"new"}, got)
	assert.Equal(t, 1, m.Len(ctx))
}

func TestMemory_TTL(t *testing.T) {
	tests := []struct {
		name    string
		elapsed time.Duration
		wantHit bool
	}{
		{"fresh", 0, true},
		{"just under ttl", 299 * time.Second, true},
		{"exactly ttl", 300 * time.Second, false},
		{"past ttl", 10 * time.Minute, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, clock := newTestMemory(DefaultConfig())
			ctx := context.Background()

			m.Store(ctx, "k", []string{"a"})
			clock.Advance(tt.elapsed)

			_, ok := m.Lookup(ctx, "k")
			assert.Equal(t, tt.wantHit, ok)
			if !tt.wantHit {
				assert.Equal(t, 0, m.Len(ctx), "stale entry must be removed by the lookup")
				assert.Equal(t, int64(1), m.Stats().Expirations)
			}
		})
	}
}

func TestMemory_EvictsOldestBatch(t *testing.T) {
	m, clock := newTestMemory(Config{TTL: time.Hour, MaxEntries: 5, EvictBatch: 2})
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		m.Store(ctx, fmt.Sprintf("k%d", i), []string{"v"})
		clock.Advance(time.Second)
	}
	require.Equal(t, 5, m.Len(ctx), "no eviction at exactly max entries")

	m.Store(ctx, "k5", []string{"v"})

	assert.Equal(t, 4, m.Len(ctx))
	for _, gone := range []string{"k0", "k1"} {
		_, ok := m.Lookup(ctx, gone)
		assert.False(t, ok, "%s should have been evicted", gone)
	}
	for _, kept := range []string{"k2", "k3", "k4", "k5"} {
		_, ok := m.Lookup(ctx, kept)
		assert.True(t, ok, "%s should survive eviction", kept)
	}
	assert.Equal(t, int64(2), m.Stats().Evictions)
}

func TestMemory_EvictionNeverDropsNewest(t *testing.T) {
	m, clock := newTestMemory(Config{TTL: time.Hour, MaxEntries: 1, EvictBatch: 100})
	ctx := context.Background()

	m.Store(ctx, "a", []string{"1"})
	clock.Advance(time.Second)
	m.Store(ctx, "b", []string{"2"})

	assert.Equal(t, 1, m.Len(ctx))
	_, ok := m.Lookup(ctx, "b")
	assert.True(t, ok)
}

func TestMemory_Purge(t *testing.T) {
	m, clock := newTestMemory(DefaultConfig())
	ctx := context.Background()

	m.Store(ctx, "old", []string{"1"})
	clock.Advance(4 * time.Minute)
	m.Store(ctx, "new", []string{"2"})
	clock.Advance(2 * time.Minute)

	assert.Equal(t, 1, m.Purge(ctx))
	assert.Equal(t, 1, m.Len(ctx))
	_, ok := m.Lookup(ctx, "new")
	assert.True(t, ok)
}

func TestMemory_Clear(t *testing.T) {
	m, clock := newTestMemory(DefaultConfig())
	ctx := context.Background()

	m.Store(ctx, "a", []string{"1"})
	clock.Advance(time.Minute)
	m.Store(ctx, "b", []string{"2"})

	assert.Equal(t, 2, m.Clear(ctx))
	assert.Equal(t, 0, m.Len(ctx))
	_, ok := m.Lookup(ctx, "b")
	assert.False(t, ok)
	assert.Equal(t, int64(2), m.Stats().Evictions)

	m.Store(ctx, "c", []string{"3"})
	_, ok = m.Lookup(ctx, "c")
	assert.True(t, ok, "cache stays usable after Clear")
}

func TestMemory_Concurrent(t *testing.T) {
	m, _ := newTestMemory(Config{TTL: time.Minute, MaxEntries: 50, EvictBatch: 10})
	ctx := context.Background()

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				key := fmt.Sprintf("k%d", (g*31+i)%120)
				if _, ok := m.Lookup(ctx, key); !ok {
					m.Store(ctx, key, []string{key})
				}
			}
		}(g)
	}
	wg.Wait()

	assert.LessOrEqual(t, m.Len(ctx), 50)
}

func TestConfig_Validate(t *testing.T) {
	require.NoError(t, DefaultConfig().Validate())

	bad := []Config{
		{TTL: 0, MaxEntries: 1, EvictBatch: 1},
		{TTL: time.Second, MaxEntries: 0, EvictBatch: 1},
		{TTL: time.Second, MaxEntries: 1, EvictBatch: 0},
	}
	for i, c := range bad {
		assert.Error(t, c.Validate(), "case %d", i)
	}
}

func TestFingerprint(t *testing.T) {
	base := Fingerprint([]string{"b", "a"}, []string{"Rock", "Jazz"}, []string{"X"}, 25)

	assert.Len(t, base, 64)
	assert.Equal(t, base, Fingerprint([]string{"a", "b"}, []string{"Jazz", "Rock"}, []string{"X"}, 25),
		"fingerprint must not depend on input order")
	assert.NotEqual(t, base, Fingerprint([]string{"a", "b"}, []string{"Jazz", "Rock"}, []string{"X"}, 10))
	assert.NotEqual(t, base, Fingerprint([]string{"a"}, []string{"Jazz", "Rock"}, []string{"X"}, 25))
	assert.NotEqual(t,
		Fingerprint([]string{"Rock"}, nil, nil, 25),
		Fingerprint(nil, []string{"Rock"}, nil, 25),
		"a value must not collide across fields")
}

func TestFingerprint_DoesNotMutateInput(t *testing.T) {
	in := []string{"z", "a"}
	_ = Fingerprint(in, nil, nil, 1)
	assert.Equal(t, []string{"z", "a"}, in)
}
