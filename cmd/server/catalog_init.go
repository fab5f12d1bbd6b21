// Crossfade - Content-Similarity Music Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/crossfade

package main

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/tomtom215/crossfade/internal/catalog"
	"github.com/tomtom215/crossfade/internal/config"
	"github.com/tomtom215/crossfade/internal/logging"
	"github.com/tomtom215/crossfade/internal/supervisor/services"
)

// CatalogComponents holds the serving catalog and its reload machinery.
type CatalogComponents struct {
	Store     *catalog.Store
	Reloader  *services.CatalogReloadService
	snapshots *catalog.BadgerStore
}

// Close releases the BadgerDB handle, if any. Safe to call twice.
func (c *CatalogComponents) Close() {
	if c.snapshots == nil {
		return
	}
	if err := c.snapshots.Close(); err != nil {
		logging.Error().Err(err).Msg("error closing badger")
	}
	c.snapshots = nil
}

// initCatalog builds the catalog store for the configured format and
// publishes the first catalog. The server never starts without one.
//
// With the json format the artifact at catalog.path is the source. If
// catalog.badger_dir is also set, every successful load is snapshotted to
// BadgerDB and the snapshot is the fallback when the artifact is missing at
// startup. With the badger format the snapshot is the only source. extra
// options are applied after the format-specific ones.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func initCatalog(ctx context.Context, cfg *config.Config, logger zerolog.Logger, extra ...catalog.StoreOption) (*CatalogComponents, error) {
	comps := &CatalogComponents{}

	var (
		loader    catalog.Loader
		opts      []catalog.StoreOption
		watchPath string
	)

	switch cfg.Catalog.Format {
	case "badger":
		b, err := catalog.OpenBadger(catalog.BadgerConfig{Path: cfg.Catalog.BadgerDir})
		if err != nil {
			return nil, fmt.Errorf("open badger catalog: %w", err)
		}
		comps.snapshots = b
		loader = b
	default:
		loader = catalog.FileLoader{Path: cfg.Catalog.Path}
		if cfg.Catalog.Watch {
			watchPath = cfg.Catalog.Path
		}
		if cfg.Catalog.BadgerDir != "" {
			b, err := catalog.OpenBadger(catalog.BadgerConfig{Path: cfg.Catalog.BadgerDir})
			if err != nil {
				return nil, fmt.Errorf("open catalog snapshots: %w", err)
			}
			comps.snapshots = b
			opts = append(opts, catalog.WithSnapshots(b))
		}
	}

	opts = append(opts, extra...)
	comps.Store = catalog.NewStore(loader, logger, opts...)
	if _, err := comps.Store.Reload(ctx); err != nil {
		comps.Close()
		return nil, err
	}

	comps.Reloader = services.NewCatalogReloadService(comps.Store, watchPath, cfg.Catalog.ReloadMinInterval, logger)
	return comps, nil
}
