// Crossfade - Content-Similarity Music Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/crossfade

package api

// Error codes returned in the "code" field of error bodies.
const (
	ErrCodeInvalidJSON     = "INVALID_JSON"
	ErrCodeBodyTooLarge    = "BODY_TOO_LARGE"
	ErrCodeRateLimited     = "RATE_LIMITED"
	ErrCodeNotReady        = "CATALOG_NOT_LOADED"
	ErrCodeRecommendFailed = "RECOMMENDATION_ERROR"
	ErrCodeTimeout         = "TIMEOUT"
	ErrCodeNotFound        = "NOT_FOUND"
	ErrCodeMethod          = "METHOD_NOT_ALLOWED"
)

// ErrorResponse is the body of every error reply.
type ErrorResponse struct {
	Error   string                 `json:"error"`
	Code    string                 `json:"code"`
	Details map[string]interface{} `json:"details,omitempty"`
}
