// Crossfade - Content-Similarity Music Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/crossfade

/*
Package supervisor runs the long-lived parts of Crossfade under a suture v4
supervisor tree.

The tree has two layers so that a failing background task never takes the
HTTP listener down with it:

	RootSupervisor ("crossfade")
	├── DataSupervisor ("data-layer")
	│   ├── CatalogReloadService   (fsnotify + SIGHUP triggered reloads)
	│   └── CacheJanitorService    (periodic purge of expired results)
	└── APISupervisor ("api-layer")
	    └── HTTPServerService

Crashed services are restarted with suture's backoff. Supervisor events are
logged through sutureslog, which takes a *slog.Logger; cmd/server passes one
backed by the zerolog global logger (logging.NewSlogLogger).

Usage:

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.TreeConfig{})
	if err != nil {
	    return err
	}
	tree.AddDataService(services.NewCacheJanitorService(engine, time.Minute, logger))
	tree.AddAPIService(services.NewHTTPServerService(srv, 10*time.Second, logging.Logger()))
	errCh := tree.ServeBackground(ctx)
*/
package supervisor
