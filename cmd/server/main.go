// Crossfade - Content-Similarity Music Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/crossfade

// Package main is the entry point for the Crossfade recommendation server.
//
// Crossfade answers "what should this listener hear next" from a catalog of
// track embeddings. A listener's history becomes a weighted profile vector;
// tracks are scored by cosine similarity with genre and artist bonuses,
// diversified with MMR, and cached by request fingerprint. Listeners with no
// usable history get a seeded sample of popular tracks.
//
// # Startup
//
//  1. Configuration: Koanf v2 (defaults, config.yaml, environment)
//  2. Logging: zerolog, bridged to slog for the supervisor
//  3. Catalog: JSON artifact or BadgerDB snapshot, loaded before serving
//  4. Engine: result cache (memory or Redis) and the MMR reranker
//  5. Supervisor tree: HTTP server, catalog reloader, cache janitor
//
// # Signals
//
//   - SIGINT, SIGTERM: graceful shutdown
//   - SIGHUP: reload the catalog
//
// # Example
//
//	export CATALOG_PATH=/data/catalog.json
//	export CACHE_BACKEND=redis REDIS_ADDR=redis:6379
//	./crossfade
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tomtom215/crossfade/internal/api"
	"github.com/tomtom215/crossfade/internal/config"
	"github.com/tomtom215/crossfade/internal/logging"
	"github.com/tomtom215/crossfade/internal/supervisor"
	"github.com/tomtom215/crossfade/internal/supervisor/services"
)

func main() {
	cfg, err := config.LoadWithKoanf()
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		Caller:    cfg.Logging.Caller,
		Timestamp: true,
	})

	logging.Info().
		Str("addr", cfg.Addr()).
		Str("environment", cfg.Server.Environment).
		Str("catalog_format", cfg.Catalog.Format).
		Str("cache_backend", cfg.Cache.Backend).
		Msg("starting crossfade")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	results := initResultCache(cfg, logging.Logger())
	defer results.Close()

	cat, err := initCatalog(ctx, cfg, logging.Logger(), results.InvalidateOnSwap(logging.Logger()))
	if err != nil {
		results.Close()
		logging.Fatal().Err(err).Msg("failed to load catalog")
	}
	defer cat.Close()

	engine, err := initRecommend(cfg, cat.Store, results, logging.Logger())
	if err != nil {
		cat.Close()
		results.Close()
		logging.Fatal().Err(err).Msg("failed to initialize recommendation engine")
	}

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.TreeConfig{
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	})
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to create supervisor tree")
	}

	router := api.NewRouter(
		api.NewHandler(engine, cfg.Server.RequestTimeout),
		api.NewChiMiddleware(buildMiddlewareConfig(cfg)),
	)
	server := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           router.SetupChi(),
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       60 * time.Second,
	}

	tree.AddDataService(cat.Reloader)
	if cfg.Cache.JanitorInterval > 0 {
		tree.AddDataService(services.NewCacheJanitorService(engine, cfg.Cache.JanitorInterval, logging.Logger()))
	}
	tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.ShutdownTimeout, logging.Logger()))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	defer signal.Stop(sigCh)
	go func() {
		for sig := range sigCh {
			if sig == syscall.SIGHUP {
				logging.Info().Msg("received SIGHUP, reloading catalog")
				cat.Reloader.Trigger()
				continue
			}
			logging.Info().Str("signal", sig.String()).Msg("received shutdown signal")
			cancel()
			return
		}
	}()

	logging.Info().Str("addr", server.Addr).Msg("starting supervisor tree")
	errCh := tree.ServeBackground(ctx)

	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("supervisor tree error")
		}
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	for _, svc := range unstopped {
		logging.Warn().Str("service", svc.Name).Msg("service failed to stop within timeout")
	}

	logging.Info().Msg("crossfade stopped")
}

// buildMiddlewareConfig maps server settings onto the Chi middleware config.
func buildMiddlewareConfig(cfg *config.Config) *api.ChiMiddlewareConfig {
	mw := api.DefaultChiMiddlewareConfig()
	mw.CORSAllowedOrigins = cfg.Server.CORSOrigins
	mw.RateLimitRequests = cfg.Server.RateLimitReqs
	mw.RateLimitWindow = cfg.Server.RateLimitWindow
	mw.RateLimitDisabled = cfg.Server.RateLimitDisabled
	return mw
}
