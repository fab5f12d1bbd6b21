// Crossfade - Content-Similarity Music Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/crossfade

package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"slices"

	"github.com/goccy/go-json"
)

type fingerprintKey struct {
	Artists []string `json:"artists"`
	Genres  []string `json:"genres"`
	History []string `json:"history"`
	Limit   int      `json:"limit"`
}

// Fingerprint returns an order-independent key for a recommendation request.
// Each list is sorted before hashing, so clients may send ids, genres and
// artists in any order. limit must already be clamped.
func Fingerprint(history, genres, artists []string, limit int) string {
	key := fingerprintKey{
		Artists: sortedCopy(artists),
		Genres:  sortedCopy(genres),
		History: sortedCopy(history),
		Limit:   limit,
	}
	data, err := json.Marshal(key)
	if err != nil {
		// Unreachable for string slices; keep the key deterministic anyway.
		data = []byte(fmt.Sprintf("%v", key))
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func sortedCopy(in []string) []string {
	out := make([]string, len(in))
	copy(out, in)
	slices.Sort(out)
	return out
}
