// Crossfade - Content-Similarity Music Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/crossfade

package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/tomtom215/crossfade/internal/logging"
	"github.com/tomtom215/crossfade/internal/recommend"
	"github.com/tomtom215/crossfade/internal/validation"
)

// Recommender is the engine surface the handlers need.
type Recommender interface {
	Recommend(ctx context.Context, req *recommend.Request) (*recommend.Response, error)
	Health(ctx context.Context) recommend.HealthStatus
	ModelStats(ctx context.Context) recommend.ModelStats
}

// Handler serves the recommendation endpoints.
type Handler struct {
	engine  Recommender
	timeout time.Duration
}

// NewHandler creates a handler backed by engine. timeout bounds each
// recommendation; 0 disables it.
func NewHandler(engine Recommender, timeout time.Duration) *Handler {
	return &Handler{engine: engine, timeout: timeout}
}

// Recommend handles POST /recommend.
func (h *Handler) Recommend(w http.ResponseWriter, r *http.Request) {
	var req recommend.Request
	if status, code, err := decodeJSON(w, r, &req); err != nil {
		respondError(w, r, status, code, "invalid request body", err)
		return
	}

	if verr := validation.ValidateStruct(&req); verr != nil {
		apiErr := verr.ToAPIError()
		respondJSON(w, r, http.StatusBadRequest, &ErrorResponse{
			Error:   apiErr.Message,
			Code:    apiErr.Code,
			Details: apiErr.Details,
		})
		return
	}

	ctx := r.Context()
	if h.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.timeout)
		defer cancel()
	}

	resp, err := h.engine.Recommend(ctx, &req)
	switch {
	case err == nil:
		respondJSON(w, r, http.StatusOK, resp)
	case errors.Is(err, recommend.ErrCatalogNotLoaded):
		respondError(w, r, http.StatusServiceUnavailable, ErrCodeNotReady, "catalog not loaded", err)
	case errors.Is(err, context.DeadlineExceeded):
		respondError(w, r, http.StatusGatewayTimeout, ErrCodeTimeout, "recommendation timed out", err)
	default:
		respondError(w, r, http.StatusInternalServerError, ErrCodeRecommendFailed, "failed to generate recommendations", err)
	}
}

// Health handles GET /health. It answers 503 until a catalog is loaded.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	status := h.engine.Health(r.Context())
	code := http.StatusOK
	if !status.CatalogLoaded {
		code = http.StatusServiceUnavailable
		logging.Ctx(r.Context()).Debug().Msg("health probe while catalog not loaded")
	}
	respondJSON(w, r, code, status)
}

// ModelStats handles GET /metrics/model.
func (h *Handler) ModelStats(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, r, http.StatusOK, h.engine.ModelStats(r.Context()))
}

// NotFound answers unknown routes with a JSON 404.
func (h *Handler) NotFound(w http.ResponseWriter, r *http.Request) {
	respondError(w, r, http.StatusNotFound, ErrCodeNotFound, "not found", nil)
}

// MethodNotAllowed answers known routes hit with the wrong method.
func (h *Handler) MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	respondError(w, r, http.StatusMethodNotAllowed, ErrCodeMethod, "method not allowed", nil)
}
