// Crossfade - Content-Similarity Music Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/crossfade

package cache

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/crossfade/internal/metrics"
)

// RedisConfig locates the shared cache.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int

	// Prefix namespaces every key this backend writes.
	// Default: crossfade:
	Prefix string

	// DialTimeout bounds connection setup.
	// Default: 2s
	DialTimeout time.Duration

	// MaxRetries is passed to go-redis; 0 keeps its default of 3, -1 disables retries.
	MaxRetries int

	// BreakerTimeout is how long the breaker stays open before probing.
	// Default: 30s
	BreakerTimeout time.Duration
}

// Redis is a Backend shared by every replica. Values live under
// <prefix>entry:<key> with a native TTL, and a sorted set <prefix>index
// orders keys by creation time for oldest-first eviction. Every call runs
// through a circuit breaker; when Redis is unreachable lookups miss and
// stores are dropped instead of failing the request.
type Redis[V any] struct {
	client *redis.Client
	cfg    Config
	prefix string
	clock  Clock
	cb     *gobreaker.CircuitBreaker[any]
	logger zerolog.Logger

	mu    sync.Mutex
	stats Stats
}

type redisEntry[V any] struct {
	Value     V         `json:"value"`
	CreatedAt time.Time `json:"created_at"`
}

// NewRedis connects lazily; use Ping to check reachability at startup.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func NewRedis[V any](cfg Config, rc RedisConfig, clock Clock, logger zerolog.Logger) *Redis[V] {
	if clock == nil {
		clock = SystemClock{}
	}
	if rc.Prefix == "" {
		rc.Prefix = "crossfade:"
	}
	if rc.DialTimeout <= 0 {
		rc.DialTimeout = 2 * time.Second
	}
	if rc.BreakerTimeout <= 0 {
		rc.BreakerTimeout = 30 * time.Second
	}
	logger = logger.With().Str("component", "result_cache").Str("backend", BackendRedis).Logger()

	return &Redis[V]{
		client: redis.NewClient(&redis.Options{
			Addr:        rc.Addr,
			Password:    rc.Password,
			DB:          rc.DB,
			DialTimeout: rc.DialTimeout,
			MaxRetries:  rc.MaxRetries,
		}),
		cfg:    cfg,
		prefix: rc.Prefix,
		clock:  clock,
		cb:     newBreaker("redis-result-cache", rc.BreakerTimeout, logger),
		logger: logger,
	}
}

// Name implements Backend.
func (r *Redis[V]) Name() string { return BackendRedis }

// Ping checks connectivity outside the breaker.
func (r *Redis[V]) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Close closes the client.
func (r *Redis[V]) Close() error {
	return r.client.Close()
}

// BreakerState reports the breaker state (closed, half-open, open).
func (r *Redis[V]) BreakerState() string {
	return r.cb.State().String()
}

func (r *Redis[V]) entryKey(key string) string { return r.prefix + "entry:" + key }
func (r *Redis[V]) indexKey() string           { return r.prefix + "index" }

// execute runs fn through the breaker and records the outcome.
func (r *Redis[V]) execute(fn func() (any, error)) (any, error) {
	v, err := r.cb.Execute(fn)
	switch {
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		metrics.CircuitBreakerRequests.WithLabelValues(r.cb.Name(), "rejected").Inc()
	case err != nil:
		metrics.CircuitBreakerRequests.WithLabelValues(r.cb.Name(), "failure").Inc()
	default:
		metrics.CircuitBreakerRequests.WithLabelValues(r.cb.Name(), "success").Inc()
	}
	return v, err
}

// Lookup implements Backend.
func (r *Redis[V]) Lookup(ctx context.Context, key string) (V, bool) {
	var zero V

	v, err := r.execute(func() (any, error) {
		b, err := r.client.Get(ctx, r.entryKey(key)).Bytes()
		if errors.Is(err, redis.Nil) {
			return []byte(nil), nil
		}
		return b, err
	})
	if err != nil {
		r.logger.Debug().Err(err).Msg("lookup failed, treating as miss")
		r.miss()
		return zero, false
	}
	raw, _ := v.([]byte)
	if raw == nil {
		r.miss()
		return zero, false
	}

	var e redisEntry[V]
	if err := json.Unmarshal(raw, &e); err != nil {
		r.logger.Warn().Err(err).Str("key", key).Msg("undecodable cache entry dropped")
		r.remove(ctx, key)
		r.miss()
		return zero, false
	}
	if r.clock.Now().Sub(e.CreatedAt) >= r.cfg.TTL {
		r.remove(ctx, key)
		r.mu.Lock()
		r.stats.Expirations++
		r.mu.Unlock()
		metrics.ResultCacheEvictions.WithLabelValues(BackendRedis, "expired").Inc()
		r.miss()
		return zero, false
	}

	r.mu.Lock()
	r.stats.Hits++
	r.mu.Unlock()
	metrics.ResultCacheHits.WithLabelValues(BackendRedis).Inc()
	return e.Value, true
}

func (r *Redis[V]) miss() {
	r.mu.Lock()
	r.stats.Misses++
	r.mu.Unlock()
	metrics.ResultCacheMisses.WithLabelValues(BackendRedis).Inc()
}

func (r *Redis[V]) remove(ctx context.Context, keys ...string) {
	if len(keys) == 0 {
		return
	}
	full := make([]string, len(keys))
	members := make([]any, len(keys))
	for i, k := range keys {
		full[i] = r.entryKey(k)
		members[i] = k
	}
	_, err := r.execute(func() (any, error) {
		_, err := r.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
			p.Del(ctx, full...)
			p.ZRem(ctx, r.indexKey(), members...)
			return nil
		})
		return nil, err
	})
	if err != nil {
		r.logger.Debug().Err(err).Int("keys", len(keys)).Msg("cache delete failed")
	}
}

// Store implements Backend.
func (r *Redis[V]) Store(ctx context.Context, key string, value V) {
	now := r.clock.Now()
	data, err := json.Marshal(redisEntry[V]{Value: value, CreatedAt: now})
	if err != nil {
		r.logger.Warn().Err(err).Msg("cache entry not encodable")
		return
	}

	v, err := r.execute(func() (any, error) {
		var card *redis.IntCmd
		_, err := r.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
			p.Set(ctx, r.entryKey(key), data, r.cfg.TTL)
			p.ZAdd(ctx, r.indexKey(), redis.Z{Score: float64(now.UnixMicro()), Member: key})
			card = p.ZCard(ctx, r.indexKey())
			return nil
		})
		if err != nil {
			return int64(0), err
		}
		return card.Val(), nil
	})
	if err != nil {
		r.logger.Debug().Err(err).Msg("cache store dropped")
		return
	}

	size, _ := v.(int64)
	metrics.ResultCacheEntries.WithLabelValues(BackendRedis).Set(float64(size))
	if size > int64(r.cfg.MaxEntries) {
		r.evictOldest(ctx, size)
	}
}

func (r *Redis[V]) evictOldest(ctx context.Context, size int64) {
	n := min(int64(r.cfg.EvictBatch), size-1)
	v, err := r.execute(func() (any, error) {
		return r.client.ZRange(ctx, r.indexKey(), 0, n-1).Result()
	})
	if err != nil {
		r.logger.Debug().Err(err).Msg("cache eviction scan failed")
		return
	}
	oldest, _ := v.([]string)
	r.remove(ctx, oldest...)

	r.mu.Lock()
	r.stats.Evictions += int64(len(oldest))
	r.mu.Unlock()
	metrics.ResultCacheEvictions.WithLabelValues(BackendRedis, "capacity").Add(float64(len(oldest)))
}

// Purge implements Backend. Redis expires the values itself; this trims
// index members whose values are already gone.
func (r *Redis[V]) Purge(ctx context.Context) int {
	cutoff := r.clock.Now().Add(-r.cfg.TTL).UnixMicro()
	v, err := r.execute(func() (any, error) {
		return r.client.ZRemRangeByScore(ctx, r.indexKey(), "-inf", strconv.FormatInt(cutoff, 10)).Result()
	})
	if err != nil {
		return 0
	}
	n, _ := v.(int64)
	r.mu.Lock()
	r.stats.Expirations += n
	r.mu.Unlock()
	return int(n)
}

// Clear implements Backend. It removes every key listed in the index; it
// returns 0 when Redis is unreachable.
func (r *Redis[V]) Clear(ctx context.Context) int {
	v, err := r.execute(func() (any, error) {
		return r.client.ZRange(ctx, r.indexKey(), 0, -1).Result()
	})
	if err != nil {
		r.logger.Warn().Err(err).Msg("cache clear failed")
		return 0
	}
	keys, _ := v.([]string)
	r.remove(ctx, keys...)

	r.mu.Lock()
	r.stats.Evictions += int64(len(keys))
	r.mu.Unlock()
	metrics.ResultCacheEvictions.WithLabelValues(BackendRedis, "cleared").Add(float64(len(keys)))
	metrics.ResultCacheEntries.WithLabelValues(BackendRedis).Set(0)
	return len(keys)
}

// Len implements Backend. It returns 0 when Redis is unreachable.
func (r *Redis[V]) Len(ctx context.Context) int {
	v, err := r.execute(func() (any, error) {
		return r.client.ZCard(ctx, r.indexKey()).Result()
	})
	if err != nil {
		return 0
	}
	n, _ := v.(int64)
	return int(n)
}

// Stats implements Backend.
func (r *Redis[V]) Stats() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stats
}

var _ Backend[[]string] = (*Redis[[]string])(nil)
