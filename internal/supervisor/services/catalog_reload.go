// Crossfade - Content-Similarity Music Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/crossfade

package services

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/tomtom215/crossfade/internal/catalog"
)

// CatalogReloader loads and publishes a fresh catalog.
type CatalogReloader interface {
	Reload(ctx context.Context) (*catalog.Catalog, error)
}

// CatalogReloadService reloads the catalog when its artifact changes on disk
// or when Trigger is called (SIGHUP). Pending triggers coalesce into one
// reload, and reloads are spaced at least minInterval apart.
type CatalogReloadService struct {
	reloader CatalogReloader
	path     string
	limiter  *rate.Limiter
	trigger  chan struct{}
	logger   zerolog.Logger
	name     string
}

// NewCatalogReloadService creates the service. An empty watchPath disables
// file watching so only Trigger causes reloads.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewCatalogReloadService(reloader CatalogReloader, watchPath string, minInterval time.Duration, logger zerolog.Logger) *CatalogReloadService {
	limit := rate.Inf
	if minInterval > 0 {
		limit = rate.Every(minInterval)
	}
	if watchPath != "" {
		watchPath = filepath.Clean(watchPath)
	}
	return &CatalogReloadService{
		reloader: reloader,
		path:     watchPath,
		limiter:  rate.NewLimiter(limit, 1),
		trigger:  make(chan struct{}, 1),
		logger:   logger.With().Str("service", "catalog-reload").Logger(),
		name:     "catalog-reload",
	}
}

// Trigger requests a reload. It never blocks.
func (s *CatalogReloadService) Trigger() {
	select {
	case s.trigger <- struct{}{}:
	default:
	}
}

// Serve implements suture.Service.
func (s *CatalogReloadService) Serve(ctx context.Context) error {
	// nil channels never fire, which leaves only Trigger when watching is off.
	var (
		events <-chan fsnotify.Event
		errs   <-chan error
	)
	if s.path != "" {
		w, err := fsnotify.NewWatcher()
		if err != nil {
			return fmt.Errorf("create catalog watcher: %w", err)
		}
		defer func() { _ = w.Close() }()

		// Watch the directory so atomic rename-into-place is seen.
		dir := filepath.Dir(s.path)
		if err := w.Add(dir); err != nil {
			return fmt.Errorf("watch %s: %w", dir, err)
		}
		events, errs = w.Events, w.Errors
		s.logger.Info().Str("path", s.path).Msg("watching catalog artifact")
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case evt, ok := <-events:
			if !ok {
				return errors.New("catalog watcher closed")
			}
			if s.relevant(evt) {
				s.logger.Debug().Str("op", evt.Op.String()).Msg("catalog artifact changed")
				s.Trigger()
			}

		case err, ok := <-errs:
			if !ok {
				return errors.New("catalog watcher closed")
			}
			s.logger.Warn().Err(err).Msg("catalog watcher error")

		case <-s.trigger:
			if err := s.limiter.Wait(ctx); err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				s.logger.Warn().Err(err).Msg("reload throttle failed")
				continue
			}
			if _, err := s.reloader.Reload(ctx); err != nil {
				s.logger.Warn().Err(err).Msg("catalog reload failed, keeping previous catalog")
			}
		}
	}
}

func (s *CatalogReloadService) relevant(evt fsnotify.Event) bool {
	return filepath.Clean(evt.Name) == s.path && evt.Has(fsnotify.Write|fsnotify.Create)
}

// String identifies the service in supervisor logs.
func (s *CatalogReloadService) String() string {
	return s.name
}
