// Crossfade - Content-Similarity Music Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/crossfade

// Package metrics holds the Prometheus collectors for the service. Every
// collector registers with the default registry through promauto and is
// scraped from /metrics.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crossfade_api_requests_total",
			Help: "Total number of HTTP requests by method, route and status",
		},
		[]string{"method", "endpoint", "status"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "crossfade_api_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "crossfade_api_active_requests",
			Help: "Number of HTTP requests currently being served",
		},
	)

	// Recommendation pipeline
	RecommendRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crossfade_recommend_requests_total",
			Help: "Recommendation responses by method and cache status",
		},
		[]string{"method", "cached"},
	)

	RecommendDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "crossfade_recommend_duration_seconds",
			Help:    "Time spent computing a recommendation list",
			Buckets: []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		},
		[]string{"method"},
	)

	RecommendErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "crossfade_recommend_errors_total",
			Help: "Recommendation requests that failed with an internal error",
		},
	)

	ProfileDegraded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "crossfade_profile_degraded_total",
			Help: "Taste profiles built with uniform weights after a play date failed to parse",
		},
	)

	HistoryUnresolved = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "crossfade_history_unresolved_total",
			Help: "History ids dropped because the catalog does not contain them",
		},
	)

	// Result cache
	ResultCacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crossfade_result_cache_hits_total",
			Help: "Result cache hits by backend",
		},
		[]string{"backend"},
	)

	ResultCacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crossfade_result_cache_misses_total",
			Help: "Result cache misses by backend",
		},
		[]string{"backend"},
	)

	ResultCacheEvictions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crossfade_result_cache_evictions_total",
			Help: "Result cache entries removed, by backend and reason (expired, capacity, cleared)",
		},
		[]string{"backend", "reason"},
	)

	ResultCacheEntries = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "crossfade_result_cache_entries",
			Help: "Current number of cached recommendation lists",
		},
		[]string{"backend"},
	)

	// Catalog
	CatalogTracks = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "crossfade_catalog_tracks",
			Help: "Number of tracks in the serving catalog",
		},
	)

	CatalogEmbeddingDim = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "crossfade_catalog_embedding_dimension",
			Help: "Embedding dimension of the serving catalog",
		},
	)

	CatalogReloads = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crossfade_catalog_reloads_total",
			Help: "Catalog reload attempts by result (success, failure, throttled)",
		},
		[]string{"result"},
	)

	CatalogLastReload = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "crossfade_catalog_last_reload_timestamp_seconds",
			Help: "Unix time of the last successful catalog swap",
		},
	)

	// Circuit breakers
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "crossfade_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crossfade_circuit_breaker_requests_total",
			Help: "Calls through a circuit breaker by result (success, failure, rejected)",
		},
		[]string{"name", "result"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crossfade_circuit_breaker_transitions_total",
			Help: "Circuit breaker state transitions",
		},
		[]string{"name", "from", "to"},
	)
)

// RecordAPIRequest records one served HTTP request.
func RecordAPIRequest(method, endpoint string, status int, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, strconv.Itoa(status)).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// TrackActiveRequest moves the in-flight gauge up or down.
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}

// RecordRecommendation records a served recommendation list.
func RecordRecommendation(method string, cached bool, duration time.Duration) {
	RecommendRequests.WithLabelValues(method, strconv.FormatBool(cached)).Inc()
	if !cached {
		RecommendDuration.WithLabelValues(method).Observe(duration.Seconds())
	}
}

// SetCatalog publishes the shape of a freshly swapped catalog.
func SetCatalog(tracks, dim int) {
	CatalogTracks.Set(float64(tracks))
	CatalogEmbeddingDim.Set(float64(dim))
	CatalogLastReload.Set(float64(time.Now().Unix()))
}
