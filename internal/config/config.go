// Crossfade - Content-Similarity Music Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/crossfade

// Package config loads service configuration.
//
// Values are layered with koanf: built-in defaults, then an optional YAML
// file, then environment variables. See LoadWithKoanf.
package config

import (
	"net"
	"strconv"
	"time"
)

// Config holds all service configuration.
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Catalog   CatalogConfig   `koanf:"catalog"`
	Recommend RecommendConfig `koanf:"recommend"`
	Cache     CacheConfig     `koanf:"cache"`
	Logging   LoggingConfig   `koanf:"logging"`
}

// ServerConfig holds HTTP listener settings.
type ServerConfig struct {
	Port            int           `koanf:"port"`
	Host            string        `koanf:"host"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	RequestTimeout  time.Duration `koanf:"request_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	Environment     string        `koanf:"environment"` // "development" or "production"

	CORSOrigins []string `koanf:"cors_origins"`

	// RateLimitReqs requests are allowed per client IP per RateLimitWindow.
	RateLimitReqs     int           `koanf:"rate_limit_reqs"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`
}

// CatalogConfig describes where the track catalog comes from.
type CatalogConfig struct {
	// Path is the JSON catalog artifact.
	// Default: /data/catalog.json
	Path string `koanf:"path"`

	// Format selects the primary source: "json" reads Path, "badger" reads
	// BadgerDir directly.
	// Default: json
	Format string `koanf:"format"`

	// BadgerDir holds the catalog snapshot. With format json every successful
	// load is written here and read back when the artifact is missing at boot.
	// Empty disables snapshots.
	BadgerDir string `koanf:"badger_dir"`

	// Watch reloads the catalog when the artifact changes on disk.
	// Default: true
	Watch bool `koanf:"watch"`

	// ReloadMinInterval throttles reloads triggered by the watcher.
	// Default: 10s
	ReloadMinInterval time.Duration `koanf:"reload_min_interval"`
}

// RecommendConfig tunes the recommendation pipeline.
type RecommendConfig struct {
	// DefaultLimit applies when a request sends limit 0.
	// Default: 25
	DefaultLimit int `koanf:"default_limit"`

	// MaxLimit clamps larger limits.
	// Default: 50
	MaxLimit int `koanf:"max_limit"`

	// DiversityLambda weights diversity in MMR (0 disables, 1 is pure diversity).
	// Default: 0.2
	DiversityLambda float64 `koanf:"diversity_lambda"`

	// PoolMultiplier oversamples candidates for MMR.
	// Default: 2
	PoolMultiplier int `koanf:"pool_multiplier"`

	// MaxPool caps the MMR candidate pool.
	// Default: 200
	MaxPool int `koanf:"max_pool"`

	// ColdStartSeed seeds the popularity sample.
	// Default: 42
	ColdStartSeed int64 `koanf:"cold_start_seed"`

	// CacheColdStart stores cold-start results in the result cache.
	// Default: false
	CacheColdStart bool `koanf:"cache_cold_start"`

	ShuffleTail ShuffleTailConfig `koanf:"shuffle_tail"`
}

// ShuffleTailConfig controls the optional reshuffle of personalized results.
type ShuffleTailConfig struct {
	Enabled bool  `koanf:"enabled"`
	KeepTop int   `koanf:"keep_top"`
	Seed    int64 `koanf:"seed"`
}

// CacheConfig configures the result cache.
type CacheConfig struct {
	// Backend is "memory" or "redis".
	// Default: memory
	Backend string `koanf:"backend"`

	TTL        time.Duration `koanf:"ttl"`
	MaxEntries int           `koanf:"max_entries"`
	EvictBatch int           `koanf:"evict_batch"`

	// JanitorInterval is how often expired entries are purged. 0 disables.
	// Default: 1m
	JanitorInterval time.Duration `koanf:"janitor_interval"`

	Redis RedisConfig `koanf:"redis"`
}

// RedisConfig configures the shared cache backend.
type RedisConfig struct {
	Addr           string        `koanf:"addr"`
	Password       string        `koanf:"password"`
	DB             int           `koanf:"db"`
	Prefix         string        `koanf:"prefix"`
	DialTimeout    time.Duration `koanf:"dial_timeout"`
	BreakerTimeout time.Duration `koanf:"breaker_timeout"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: trace, debug, info, warn, error.
	// Default: info
	Level string `koanf:"level"`

	// Format is json or console.
	// Default: json
	Format string `koanf:"format"`

	// Caller includes caller file and line number in logs.
	// Default: false
	Caller bool `koanf:"caller"`
}

// IsProduction reports whether the service runs in production mode.
func (c *Config) IsProduction() bool {
	return c.Server.Environment == "production"
}

// Addr returns the HTTP listen address.
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Server.Host, strconv.Itoa(c.Server.Port))
}
