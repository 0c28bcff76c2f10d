// Copyright (c) 2026 Beijing Volcano Engine Technology Co., Ltd.
// SPDX-License-Identifier: Apache-2.0

// Package rerank implements the Reranker: a single order-preserving
// rerank(query, docs[]) -> scores[] operation, with fallback to the
// original vector scores on any failure.
//
// Scores come back parallel to the input order so callers reorder, not
// the reranker.
package rerank

import "context"

// Doc is one candidate passed to Rerank, carrying the query-independent
// score the caller already computed so Rerank can fall back to it.
type Doc struct {
	URI           string
	Text          string
	OriginalScore float64
}

// Scorer is the pluggable cross-encoder/LLM call that assigns a
// relevance score to a (query, doc) pair. The only implementation
// shipped here is LLMScorer; hosted cross-encoders plug in behind the
// same interface.
type Scorer interface {
	Score(ctx context.Context, query string, docs []Doc) ([]float64, error)
}

// Reranker wraps a Scorer with the fallback-on-failure guarantee. It does
// not check the retrieval mode itself: the caller decides when reranking
// is active (rerankActive in pkg/retrieval).
type Reranker struct {
	Scorer Scorer
}

// New creates a Reranker. scorer may be nil, in which case Rerank always
// falls back to original scores (reranking disabled).
func New(scorer Scorer) *Reranker {
	return &Reranker{Scorer: scorer}
}

// Enabled reports whether reranking is configured at all.
func (r *Reranker) Enabled() bool { return r.Scorer != nil }

// Rerank returns one score per doc, in the same order as docs. On any
// Scorer error, or when no Scorer is configured, it returns each doc's
// OriginalScore unchanged — order-preserving, never reordering the slice
// itself; ordering by score is the caller's job.
func (r *Reranker) Rerank(ctx context.Context, query string, docs []Doc) []float64 {
	fallback := func() []float64 {
		scores := make([]float64, len(docs))
		for i, d := range docs {
			scores[i] = d.OriginalScore
		}
		return scores
	}

	if r.Scorer == nil || len(docs) == 0 {
		return fallback()
	}

	scores, err := r.Scorer.Score(ctx, query, docs)
	if err != nil || len(scores) != len(docs) {
		return fallback()
	}
	return scores
}
