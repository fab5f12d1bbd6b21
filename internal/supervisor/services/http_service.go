// Crossfade - Content-Similarity Music Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/crossfade

package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// HTTPServer is the part of *http.Server the service drives.
type HTTPServer interface {
	ListenAndServe() error
	Shutdown(ctx context.Context) error
}

// HTTPServerService runs the API server under the api-layer supervisor.
// Cancellation drains in-flight recommendations for up to drain before the
// listener is torn down.
type HTTPServerService struct {
	server HTTPServer
	drain  time.Duration
	logger zerolog.Logger
}

// NewHTTPServerService wraps server. A non-positive drain defaults to 10s.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewHTTPServerService(server HTTPServer, drain time.Duration, logger zerolog.Logger) *HTTPServerService {
	if drain <= 0 {
		drain = 10 * time.Second
	}
	return &HTTPServerService{
		server: server,
		drain:  drain,
		logger: logger.With().Str("service", "http-server").Logger(),
	}
}

// Serve implements suture.Service. A listener error ends the run so the
// supervisor can restart it; http.ErrServerClosed after Shutdown does not.
func (h *HTTPServerService) Serve(ctx context.Context) error {
	failed := make(chan error, 1)
	go func() {
		defer close(failed)
		if err := h.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			failed <- err
		}
	}()

	select {
	case err, ok := <-failed:
		if !ok {
			h.logger.Warn().Msg("http server closed without shutdown")
			return nil
		}
		return fmt.Errorf("http server failed: %w", err)

	case <-ctx.Done():
	}

	h.logger.Info().Dur("drain", h.drain).Msg("draining http server")
	drainCtx, cancel := context.WithTimeout(context.Background(), h.drain)
	defer cancel()

	start := time.Now()
	if err := h.server.Shutdown(drainCtx); err != nil {
		return fmt.Errorf("http server shutdown failed: %w", err)
	}
	<-failed
	h.logger.Info().Dur("took", time.Since(start)).Msg("http server stopped")
	return ctx.Err()
}

// String identifies the service in supervisor logs.
func (h *HTTPServerService) String() string {
	return "http-server"
}
