// Crossfade - Content-Similarity Music Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/crossfade

package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/goccy/go-json"

	"github.com/tomtom215/crossfade/internal/logging"
)

// maxBodyBytes bounds request bodies. A maximal history of 10000 ids fits well inside it.
const maxBodyBytes = 4 << 20

// sanitizeLogValue escapes control characters so client input cannot forge log lines.
func sanitizeLogValue(s string) string {
	var result strings.Builder
	result.Grow(len(s))
	for _, r := range s {
		if r < 0x20 || r == 0x7F {
			fmt.Fprintf(&result, "\\x%02x", r)
		} else {
			result.WriteRune(r)
		}
	}
	return result.String()
}

// respondJSON writes v as a JSON body.
func respondJSON(w http.ResponseWriter, r *http.Request, status int, v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Msg("failed to marshal JSON response")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(data); err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Msg("failed to write JSON response")
	}
}

// respondError writes an ErrorResponse. err, when set, is logged but never sent to the client.
func respondError(w http.ResponseWriter, r *http.Request, status int, code, message string, err error) {
	if err != nil {
		evt := logging.Ctx(r.Context()).Warn()
		if status >= http.StatusInternalServerError {
			evt = logging.Ctx(r.Context()).Error()
		}
		evt.Str("code", code).Str("error", sanitizeLogValue(err.Error())).Msg("api error")
	}

	respondJSON(w, r, status, &ErrorResponse{Error: message, Code: code})
}

// decodeJSON reads a size-limited JSON body into v. It reports the status
// and code to answer with on failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) (int, string, error) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return http.StatusRequestEntityTooLarge, ErrCodeBodyTooLarge, err
		}
		return http.StatusBadRequest, ErrCodeInvalidJSON, err
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return http.StatusBadRequest, ErrCodeInvalidJSON, errors.New("request body is empty")
	}
	if err := json.Unmarshal(data, v); err != nil {
		return http.StatusBadRequest, ErrCodeInvalidJSON, err
	}
	return 0, "", nil
}
