// Crossfade - Content-Similarity Music Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/crossfade

package recommend

import (
	"hash/fnv"
	"math/rand/v2"
)

// ShuffleTail shuffles recs[keepTop:] in place with a PCG stream derived
// from seed and key, so the same request always gets the same order.
func ShuffleTail(recs []Recommendation, keepTop int, seed int64, key string) {
	if keepTop < 0 {
		keepTop = 0
	}
	if len(recs)-keepTop < 2 {
		return
	}
	h := fnv.New64a()
	_, _ = h.Write([]byte(key))
	rng := rand.New(rand.NewPCG(uint64(seed), h.Sum64())) //nolint:gosec // reproducible shuffle, not security

	tail := recs[keepTop:]
	rng.Shuffle(len(tail), func(i, j int) { tail[i], tail[j] = tail[j], tail[i] })
}
