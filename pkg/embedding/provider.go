// Copyright (c) 2026 Beijing Volcano Engine Technology Co., Ltd.
// SPDX-License-Identifier: Apache-2.0

package embedding

import (
	"context"
	"fmt"

	"github.com/openviking/openviking/pkg/llm"
)

// ProviderEmbedder adapts an llm.Provider's Embed call to the Embedder
// interface, producing dense-only Results.
type ProviderEmbedder struct {
	Provider  llm.Provider
	Model     string
	Dims      int
}

// NewProviderEmbedder wraps provider as a dense Embedder.
func NewProviderEmbedder(provider llm.Provider, model string, dims int) *ProviderEmbedder {
	return &ProviderEmbedder{Provider: provider, Model: model, Dims: dims}
}

func (e *ProviderEmbedder) Embed(ctx context.Context, text string) (*Result, error) {
	results, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return results[0], nil
}

func (e *ProviderEmbedder) EmbedBatch(ctx context.Context, texts []string) ([]*Result, error) {
	resp, err := e.Provider.Embed(ctx, &llm.EmbeddingRequest{Model: e.Model, Input: texts})
	if err != nil {
		return nil, fmt.Errorf("embedding: provider embed: %w", err)
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("embedding: expected %d vectors, got %d", len(texts), len(resp.Data))
	}
	out := make([]*Result, len(texts))
	for _, d := range resp.Data {
		out[d.Index] = &Result{Dense: d.Embedding}
	}
	return out, nil
}

func (e *ProviderEmbedder) Dimension() int { return e.Dims }
func (e *ProviderEmbedder) Close() error   { return nil }

var _ Embedder = (*ProviderEmbedder)(nil)

// HybridEmbedder combines an independent dense and sparse Embedder into a
// single Embedder producing both vectors per call, covering the "combine
// dense+sparse at search time" hybrid mode for callers (like
// queue.Processor) that only carry one Embedder field. Sparse may be nil,
// in which case it behaves as dense-only.
type HybridEmbedder struct {
	Dense  Embedder
	Sparse Embedder
}

// NewHybridEmbedder pairs dense and sparse embedders. sparse may be nil.
func NewHybridEmbedder(dense, sparse Embedder) *HybridEmbedder {
	return &HybridEmbedder{Dense: dense, Sparse: sparse}
}

func (e *HybridEmbedder) Embed(ctx context.Context, text string) (*Result, error) {
	dense, err := e.Dense.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	if e.Sparse == nil {
		return dense, nil
	}
	sparse, err := e.Sparse.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	return &Result{Dense: dense.Dense, Sparse: sparse.Sparse}, nil
}

func (e *HybridEmbedder) EmbedBatch(ctx context.Context, texts []string) ([]*Result, error) {
	dense, err := e.Dense.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, err
	}
	if e.Sparse == nil {
		return dense, nil
	}
	sparse, err := e.Sparse.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, err
	}
	out := make([]*Result, len(texts))
	for i := range texts {
		out[i] = &Result{Dense: dense[i].Dense, Sparse: sparse[i].Sparse}
	}
	return out, nil
}

func (e *HybridEmbedder) Dimension() int { return e.Dense.Dimension() }

func (e *HybridEmbedder) Close() error {
	if err := e.Dense.Close(); err != nil {
		return err
	}
	if e.Sparse != nil {
		return e.Sparse.Close()
	}
	return nil
}

var _ Embedder = (*HybridEmbedder)(nil)
