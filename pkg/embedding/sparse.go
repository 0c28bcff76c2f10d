// Copyright (c) 2026 Beijing Volcano Engine Technology Co., Ltd.
// SPDX-License-Identifier: Apache-2.0

package embedding

import (
	"context"
	"math"
	"regexp"
	"strings"
)

var termPattern = regexp.MustCompile(`[a-z0-9]+`)

func tokenize(text string) []string {
	return termPattern.FindAllString(strings.ToLower(text), -1)
}

// TermFrequencyEmbedder is a local, dependency-free sparse embedder: term
// frequency weights normalized to unit L2 norm, keyed by the raw token.
// Stands in for a hosted sparse embedding model (SPLADE, BM25-on-the-wire)
// behind the same Embedder interface.
type TermFrequencyEmbedder struct{}

func (TermFrequencyEmbedder) Embed(ctx context.Context, text string) (*Result, error) {
	freq := make(map[string]float64)
	for _, term := range tokenize(text) {
		freq[term]++
	}
	var norm float64
	for _, v := range freq {
		norm += v * v
	}
	if norm > 0 {
		norm = math.Sqrt(norm)
		for k, v := range freq {
			freq[k] = v / norm
		}
	}
	return &Result{Sparse: freq}, nil
}

func (e TermFrequencyEmbedder) EmbedBatch(ctx context.Context, texts []string) ([]*Result, error) {
	out := make([]*Result, len(texts))
	for i, t := range texts {
		r, err := e.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = r
	}
	return out, nil
}

func (TermFrequencyEmbedder) Dimension() int { return 0 }
func (TermFrequencyEmbedder) Close() error   { return nil }

var _ Embedder = TermFrequencyEmbedder{}
