// Crossfade - Content-Similarity Music Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/crossfade

// Package reranking implements post-processing algorithms for recommendation diversity.
package reranking

import (
	"context"

	"github.com/tomtom215/crossfade/internal/catalog"
	"github.com/tomtom215/crossfade/internal/recommend"
)

// maxRerankSize limits slice allocations; k is also bounded by len(items).
const maxRerankSize = 10000

// MMR implements Maximal Marginal Relevance reranking over track embeddings.
//
// The list is seeded with the most relevant candidate. Each following pick
// maximizes
//
//	(1-lambda) * score(i) + lambda * (1 - max(cos(i, s)) for s in selected)
//
// so lambda = 0 is pure relevance and lambda = 1 is pure diversity. Ties go
// to the candidate that was ranked earlier.
//
// Reference:
// Carbonell, J., & Goldstein, J. (1998). "The Use of MMR, Diversity-Based
// Reranking for Reordering Documents and Producing Summaries." SIGIR 1998.
type MMR struct {
	lambda float64
}

// NewMMR creates a new MMR reranker. lambda is clamped to [0, 1].
func NewMMR(lambda float64) *MMR {
	if lambda < 0 {
		lambda = 0
	}
	if lambda > 1 {
		lambda = 1
	}
	return &MMR{lambda: lambda}
}

// Name returns the reranker identifier.
func (m *MMR) Name() string {
	return "mmr"
}

// Lambda returns the diversity weight.
func (m *MMR) Lambda() float64 {
	return m.lambda
}

// Rerank reorders items for diversity and returns the first k (all when k <= 0).
// Scores are left untouched so callers still see relevance. If ctx is
// cancelled mid-run the partial ordering is followed by the remaining items
// in input order.
func (m *MMR) Rerank(ctx context.Context, cat *catalog.Catalog, items []recommend.ScoredItem, k int) []recommend.ScoredItem {
	if k <= 0 || k > len(items) {
		k = len(items)
	}
	if k > maxRerankSize {
		k = maxRerankSize
	}
	if len(items) <= 1 || m.lambda == 0 {
		return items[:k]
	}

	selected := make([]recommend.ScoredItem, 0, k)
	selected = append(selected, items[0])

	// maxSim[i] tracks the highest cosine between items[i] and anything selected.
	maxSim := make([]float64, len(items))
	taken := make([]bool, len(items))
	taken[0] = true
	for i := 1; i < len(items); i++ {
		maxSim[i] = cat.Cosine(items[i].Index, items[0].Index)
	}

	for len(selected) < k {
		if ctx.Err() != nil {
			for i := range items {
				if len(selected) == k {
					break
				}
				if !taken[i] {
					selected = append(selected, items[i])
				}
			}
			break
		}

		bestIdx := -1
		bestMMR := 0.0
		for i, item := range items {
			if taken[i] {
				continue
			}
			score := (1-m.lambda)*item.Score + m.lambda*(1-maxSim[i])
			if bestIdx < 0 || score > bestMMR {
				bestIdx = i
				bestMMR = score
			}
		}
		if bestIdx < 0 {
			break
		}

		taken[bestIdx] = true
		picked := items[bestIdx]
		selected = append(selected, picked)
		for i := range items {
			if taken[i] {
				continue
			}
			if sim := cat.Cosine(items[i].Index, picked.Index); sim > maxSim[i] {
				maxSim[i] = sim
			}
		}
	}

	return selected
}

// Ensure MMR implements the interface.
var _ recommend.Reranker = (*MMR)(nil)
