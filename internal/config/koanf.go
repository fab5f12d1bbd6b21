// Crossfade - Content-Similarity Music Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/crossfade

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths where config files are searched in order of priority.
// The first file found will be used.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/crossfade/config.yaml",
	"/etc/crossfade/config.yml",
}

// ConfigPathEnvVar is the environment variable that can override the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

// defaultConfig returns a Config struct with all default values.
// These are applied first, then overridden by config file and env vars.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:              8000,
			Host:              "0.0.0.0",
			ReadTimeout:       10 * time.Second,
			WriteTimeout:      30 * time.Second,
			RequestTimeout:    15 * time.Second,
			ShutdownTimeout:   10 * time.Second,
			Environment:       "development",
			CORSOrigins:       []string{"*"},
			RateLimitReqs:     100,
			RateLimitWindow:   time.Minute,
			RateLimitDisabled: false,
		},
		Catalog: CatalogConfig{
			Path:              "/data/catalog.json",
			Format:            "json",
			BadgerDir:         "",
			Watch:             true,
			ReloadMinInterval: 10 * time.Second,
		},
		Recommend: RecommendConfig{
			DefaultLimit:    25,
			MaxLimit:        50,
			DiversityLambda: 0.2,
			PoolMultiplier:  2,
			MaxPool:         200,
			ColdStartSeed:   42,
			CacheColdStart:  false,
			ShuffleTail: ShuffleTailConfig{
				Enabled: false,
				KeepTop: 3,
				Seed:    42,
			},
		},
		Cache: CacheConfig{
			Backend:         "memory",
			TTL:             5 * time.Minute,
			MaxEntries:      1000,
			EvictBatch:      100,
			JanitorInterval: time.Minute,
			Redis: RedisConfig{
				Addr:           "",
				DB:             0,
				Prefix:         "crossfade:",
				DialTimeout:    2 * time.Second,
				BreakerTimeout: 30 * time.Second,
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
	}
}

// LoadWithKoanf loads configuration using Koanf with layered sources.
// Configuration is loaded in the following order (later sources override earlier):
//  1. Defaults: Built-in defaults
//  2. Config File: Optional YAML config file (if exists)
//  3. Environment Variables: Override any setting
func LoadWithKoanf() (*Config, error) {
	k := koanf.New(".")

	// Layer 1: Load defaults from struct
	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// Layer 2: Load config file (optional)
	if configPath := findConfigFile(); configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	// Layer 3: Load environment variables (highest priority)
	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// findConfigFile returns the first config file found, or "" if there is none.
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}

	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// sliceConfigPaths are parsed as comma-separated lists when they arrive as strings.
var sliceConfigPaths = []string{
	"server.cors_origins",
}

// processSliceFields converts comma-separated string values to slices for known slice fields.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		strVal, ok := k.Get(path).(string)
		if !ok || strVal == "" {
			continue
		}

		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if len(trimmed) > 0 {
			if err := k.Set(path, trimmed); err != nil {
				return fmt.Errorf("failed to set %s: %w", path, err)
			}
		}
	}
	return nil
}

// envMappings maps environment variable names (lowercased) to koanf paths.
var envMappings = map[string]string{
	// Server
	"http_port":           "server.port",
	"http_host":           "server.host",
	"http_read_timeout":   "server.read_timeout",
	"http_write_timeout":  "server.write_timeout",
	"request_timeout":     "server.request_timeout",
	"shutdown_timeout":    "server.shutdown_timeout",
	"environment":         "server.environment",
	"cors_origins":        "server.cors_origins",
	"rate_limit_requests": "server.rate_limit_reqs",
	"rate_limit_window":   "server.rate_limit_window",
	"disable_rate_limit":  "server.rate_limit_disabled",

	// Catalog
	"catalog_path":                "catalog.path",
	"catalog_format":              "catalog.format",
	"catalog_badger_dir":          "catalog.badger_dir",
	"catalog_watch":               "catalog.watch",
	"catalog_reload_min_interval": "catalog.reload_min_interval",

	// Recommendation pipeline
	"recommend_default_limit":    "recommend.default_limit",
	"recommend_max_limit":        "recommend.max_limit",
	"recommend_diversity_lambda": "recommend.diversity_lambda",
	"recommend_pool_multiplier":  "recommend.pool_multiplier",
	"recommend_max_pool":         "recommend.max_pool",
	"recommend_cold_start_seed":  "recommend.cold_start_seed",
	"recommend_cache_cold_start": "recommend.cache_cold_start",
	"recommend_shuffle_tail":     "recommend.shuffle_tail.enabled",
	"recommend_shuffle_keep_top": "recommend.shuffle_tail.keep_top",
	"recommend_shuffle_seed":     "recommend.shuffle_tail.seed",

	// Result cache
	"cache_backend":          "cache.backend",
	"cache_ttl":              "cache.ttl",
	"cache_max_entries":      "cache.max_entries",
	"cache_evict_batch":      "cache.evict_batch",
	"cache_janitor_interval": "cache.janitor_interval",
	"redis_addr":             "cache.redis.addr",
	"redis_password":         "cache.redis.password",
	"redis_db":               "cache.redis.db",
	"redis_prefix":           "cache.redis.prefix",
	"redis_dial_timeout":     "cache.redis.dial_timeout",
	"redis_breaker_timeout":  "cache.redis.breaker_timeout",

	// Logging
	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",
}

// envTransformFunc maps an environment variable name to a koanf path.
// Unmapped variables return "" and are skipped.
//
// Examples:
//   - HTTP_PORT -> server.port
//   - CATALOG_PATH -> catalog.path
//   - CACHE_TTL -> cache.ttl
func envTransformFunc(key string) string {
	return envMappings[strings.ToLower(key)]
}
