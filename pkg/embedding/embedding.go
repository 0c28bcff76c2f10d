// Copyright (c) 2026 Beijing Volcano Engine Technology Co., Ltd.
// SPDX-License-Identifier: Apache-2.0

// Package embedding is the Embedding Pipeline: batches L1 overview
// text through a dense and/or sparse embedder and returns the resulting
// vectors paired with each item's uri; it does not write to the vector
// index itself.
package embedding

import (
	"context"
	"fmt"
)

// Result is one embed call's output: dense and/or sparse vectors.
type Result struct {
	Dense  []float64
	Sparse map[string]float64
}

func (r *Result) IsDense() bool  { return r.Dense != nil }
func (r *Result) IsSparse() bool { return r.Sparse != nil }
func (r *Result) IsHybrid() bool { return r.Dense != nil && r.Sparse != nil }

// Embedder produces dense and/or sparse vectors for text.
type Embedder interface {
	Embed(ctx context.Context, text string) (*Result, error)
	EmbedBatch(ctx context.Context, texts []string) ([]*Result, error)
	Dimension() int
	Close() error
}

// Item is one unit of work for the pipeline: a uri and the text to embed
// (normally the L1 overview).
type Item struct {
	URI  string
	Text string
}

// Embedded pairs an Item with its embedding result.
type Embedded struct {
	Item
	Result *Result
}

// Pipeline batches Items through an Embedder at most BatchSize at a time,
// per the embedding_batch=16 knob.
type Pipeline struct {
	Embedder  Embedder
	BatchSize int
}

// NewPipeline creates a Pipeline with the default batch size.
func NewPipeline(embedder Embedder) *Pipeline {
	return &Pipeline{Embedder: embedder, BatchSize: 16}
}

// Run embeds every item, preserving order, batching BatchSize at a time.
// Batches run one after another; at the first failing batch Run stops and
// returns the results of the earlier batches together with the error, and
// later batches are not attempted. Run does not retry internally: callers
// already treat embedding failure as a transient queue error and retry the
// whole message.
func (p *Pipeline) Run(ctx context.Context, items []Item) ([]Embedded, error) {
	out := make([]Embedded, 0, len(items))
	batchSize := p.BatchSize
	if batchSize <= 0 {
		batchSize = 16
	}

	for start := 0; start < len(items); start += batchSize {
		end := start + batchSize
		if end > len(items) {
			end = len(items)
		}
		chunk := items[start:end]

		texts := make([]string, len(chunk))
		for i, it := range chunk {
			texts[i] = it.Text
		}

		results, err := p.Embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return out, fmt.Errorf("embedding: batch %d-%d: %w", start, end, err)
		}
		if len(results) != len(chunk) {
			return out, fmt.Errorf("embedding: batch %d-%d: expected %d results, got %d", start, end, len(chunk), len(results))
		}
		for i, it := range chunk {
			out = append(out, Embedded{Item: it, Result: results[i]})
		}
	}
	return out, nil
}
