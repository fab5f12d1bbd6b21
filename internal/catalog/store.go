// Crossfade - Content-Similarity Music Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/crossfade

package catalog

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/tomtom215/crossfade/internal/metrics"
)

// Loader produces a validated catalog.
type Loader interface {
	Load(ctx context.Context) (*Catalog, error)
	String() string
}

// Store holds the serving catalog behind an atomic pointer. Readers call
// Current once per request and keep that snapshot; Reload never mutates a
// published catalog.
type Store struct {
	current   atomic.Pointer[Catalog]
	loader    Loader
	snapshots *BadgerStore
	group     singleflight.Group
	logger    zerolog.Logger
	onSwap    []func(prev, next *Catalog)
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithSnapshots persists every catalog loaded from the primary loader and
// falls back to the last snapshot when the primary artifact is missing.
func WithSnapshots(b *BadgerStore) StoreOption {
	return func(s *Store) { s.snapshots = b }
}

// WithSwapHook registers fn to run after every successful swap. prev is nil
// for the first catalog.
func WithSwapHook(fn func(prev, next *Catalog)) StoreOption {
	return func(s *Store) { s.onSwap = append(s.onSwap, fn) }
}

// NewStore returns an empty store. Call Reload to publish the first catalog.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func NewStore(loader Loader, logger zerolog.Logger, opts ...StoreOption) *Store {
	s := &Store{
		loader: loader,
		logger: logger.With().Str("component", "catalog").Logger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Current returns the serving catalog, or nil before the first load.
func (s *Store) Current() *Catalog {
	return s.current.Load()
}

// Swap publishes c and returns the catalog it replaced.
func (s *Store) Swap(c *Catalog) *Catalog {
	prev := s.current.Swap(c)
	metrics.SetCatalog(c.Len(), c.Dim())
	for _, fn := range s.onSwap {
		fn(prev, c)
	}
	return prev
}

// Reload loads a fresh catalog and swaps it in. Concurrent calls share one
// load. On failure the previous catalog keeps serving.
func (s *Store) Reload(ctx context.Context) (*Catalog, error) {
	v, err, shared := s.group.Do("reload", func() (interface{}, error) {
		return s.reload(ctx)
	})
	if shared {
		s.logger.Debug().Msg("catalog reload shared with concurrent caller")
	}
	if err != nil {
		return nil, err
	}
	return v.(*Catalog), nil
}

func (s *Store) reload(ctx context.Context) (*Catalog, error) {
	c, err := s.loader.Load(ctx)
	fromSnapshot := false
	if errors.Is(err, ErrArtifactMissing) && s.snapshots != nil && s.Current() == nil {
		s.logger.Warn().Err(err).Str("snapshot", s.snapshots.String()).Msg("artifact missing, trying snapshot")
		c, err = s.snapshots.Load(ctx)
		fromSnapshot = true
	}
	if err != nil {
		metrics.CatalogReloads.WithLabelValues("failure").Inc()
		s.logger.Error().Err(err).Str("loader", s.loader.String()).Msg("catalog load failed")
		return nil, fmt.Errorf("load catalog: %w", err)
	}

	prev := s.Swap(c)
	metrics.CatalogReloads.WithLabelValues("success").Inc()

	ev := s.logger.Info().
		Str("source", c.Source()).
		Int("tracks", c.Len()).
		Int("dim", c.Dim()).
		Time("loaded_at", c.LoadedAt())
	if prev != nil {
		ev = ev.Int("previous_tracks", prev.Len()).Time("previous_loaded_at", prev.LoadedAt())
	}
	ev.Msg("catalog swapped")

	if s.snapshots != nil && !fromSnapshot {
		if err := s.snapshots.Save(ctx, c); err != nil {
			s.logger.Warn().Err(err).Msg("catalog snapshot failed")
		}
	}
	return c, nil
}
