// Crossfade - Content-Similarity Music Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/crossfade

package recommend

import (
	"errors"
	"fmt"
)

// Config contains all configuration for the recommendation engine.
type Config struct {
	// Limits bounds the size of a response.
	Limits LimitsConfig `json:"limits"`

	// Diversity configures MMR re-ranking.
	Diversity DiversityConfig `json:"diversity"`

	// ColdStart configures the popularity fallback.
	ColdStart ColdStartConfig `json:"cold_start"`

	// ShuffleTail configures the optional post-shuffle of personalized results.
	ShuffleTail ShuffleTailConfig `json:"shuffle_tail"`
}

// LimitsConfig bounds response and candidate sizes.
type LimitsConfig struct {
	// DefaultLimit is used when a request does not name a limit.
	// Default: 25.
	DefaultLimit int `json:"default_limit"`

	// MaxLimit is the largest limit a request may ask for. Larger values are clamped.
	// Default: 50.
	MaxLimit int `json:"max_limit"`
}

// DiversityConfig contains parameters for diversity re-ranking.
type DiversityConfig struct {
	// Lambda weights diversity against relevance in MMR.
	// 0 disables re-ranking, 1 is pure diversity.
	// Default: 0.2.
	Lambda float64 `json:"lambda"`

	// PoolMultiplier oversamples the candidate pool handed to MMR
	// (pool = limit * PoolMultiplier).
	// Default: 2.
	PoolMultiplier int `json:"pool_multiplier"`

	// MaxPool caps the pool. MMR cost grows with the square of the pool.
	// Default: 200.
	MaxPool int `json:"max_pool"`
}

// ColdStartConfig configures the popularity fallback.
type ColdStartConfig struct {
	// Seed makes the popularity sample reproducible.
	// Default: 42.
	Seed int64 `json:"seed"`

	// CacheResults stores cold-start lists in the result cache too.
	// Default: false.
	CacheResults bool `json:"cache_results"`
}

// ShuffleTailConfig configures the optional shuffle of everything after the
// top few personalized results. Off by default; when on, the order is a
// pure function of Seed and the request fingerprint.
type ShuffleTailConfig struct {
	// Enabled turns the shuffle on.
	// Default: false.
	Enabled bool `json:"enabled"`

	// KeepTop is how many leading results keep their position.
	// Default: 3.
	KeepTop int `json:"keep_top"`

	// Seed is mixed with the request fingerprint.
	// Default: 42.
	Seed int64 `json:"seed"`
}

// DefaultConfig returns the default engine configuration.
func DefaultConfig() *Config {
	return &Config{
		Limits: LimitsConfig{
			DefaultLimit: 25,
			MaxLimit:     50,
		},
		Diversity: DiversityConfig{
			Lambda:         0.2,
			PoolMultiplier: 2,
			MaxPool:        200,
		},
		ColdStart: ColdStartConfig{
			Seed: 42,
		},
		ShuffleTail: ShuffleTailConfig{
			KeepTop: 3,
			Seed:    42,
		},
	}
}

// Validate checks the configuration for errors. All problems are reported.
func (c *Config) Validate() error {
	var errs []error
	if c.Limits.MaxLimit < 1 {
		errs = append(errs, fmt.Errorf("limits.max_limit must be positive, got %d", c.Limits.MaxLimit))
	}
	if c.Limits.DefaultLimit < 1 || c.Limits.DefaultLimit > c.Limits.MaxLimit {
		errs = append(errs, fmt.Errorf("limits.default_limit must be in [1, %d], got %d", c.Limits.MaxLimit, c.Limits.DefaultLimit))
	}
	if c.Diversity.Lambda < 0 || c.Diversity.Lambda > 1 {
		errs = append(errs, fmt.Errorf("diversity.lambda must be in [0, 1], got %f", c.Diversity.Lambda))
	}
	if c.Diversity.PoolMultiplier < 1 {
		errs = append(errs, fmt.Errorf("diversity.pool_multiplier must be >= 1, got %d", c.Diversity.PoolMultiplier))
	}
	if c.Diversity.MaxPool < c.Limits.MaxLimit {
		errs = append(errs, fmt.Errorf("diversity.max_pool must be >= limits.max_limit (%d), got %d", c.Limits.MaxLimit, c.Diversity.MaxPool))
	}
	if c.ShuffleTail.KeepTop < 0 {
		errs = append(errs, fmt.Errorf("shuffle_tail.keep_top must be non-negative, got %d", c.ShuffleTail.KeepTop))
	}
	return errors.Join(errs...)
}

// Clone returns a copy. Every nested struct holds only value types.
func (c *Config) Clone() *Config {
	cp := *c
	return &cp
}

// ClampLimit applies the default and the [1, MaxLimit] bounds to a requested limit.
func (c *Config) ClampLimit(limit int) int {
	if limit == 0 {
		limit = c.Limits.DefaultLimit
	}
	return max(1, min(limit, c.Limits.MaxLimit))
}

// PoolSize returns how many candidates to hand the diversifier for limit.
func (c *Config) PoolSize(limit int) int {
	return max(limit, min(limit*c.Diversity.PoolMultiplier, c.Diversity.MaxPool))
}
