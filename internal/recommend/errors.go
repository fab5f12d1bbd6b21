// Crossfade - Content-Similarity Music Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/crossfade

package recommend

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyHistory is matched by EmptyHistoryError via errors.Is.
	ErrEmptyHistory = errors.New("history is empty")

	// ErrCatalogNotLoaded is returned while no catalog has been published.
	ErrCatalogNotLoaded = errors.New("catalog not loaded")
)

// EmptyHistoryError reports a profile request with no resolvable history.
type EmptyHistoryError struct {
	// Requested is how many ids the caller sent before resolution.
	Requested int
}

func (e *EmptyHistoryError) Error() string {
	return fmt.Sprintf("history is empty (%d ids requested, none resolved)", e.Requested)
}

// Is lets errors.Is(err, ErrEmptyHistory) match.
func (e *EmptyHistoryError) Is(target error) bool {
	return target == ErrEmptyHistory
}
