// Copyright (c) 2026 Beijing Volcano Engine Technology Co., Ltd.
// SPDX-License-Identifier: Apache-2.0

// Package vectorindex is the hybrid dense+sparse vector index behind
// VikingFS: upsert/delete/delete-prefix/update-fields/search/
// search-by-parent over metadata-only records (no file bytes), with cosine
// distance on the dense vector and a configurable sparse contribution.
package vectorindex

import (
	"context"
	"errors"
)

// ErrRecordNotFound is returned by UpdateFields when the target uri has no
// existing record.
var ErrRecordNotFound = errors.New("vectorindex: record not found")

// Record is one vector index entry, metadata and vectors only.
type Record struct {
	ID           string
	URI          string
	ParentURI    string
	ContextType  string
	IsLeaf       bool
	Vector       []float64
	SparseVector map[string]float64
	Abstract     string
	Name         string
	Description  string
	CreatedAt    int64 // unix nanos
	ActiveCount  int64
	UpdatedAt    int64 // unix nanos of last access, drives hotness blending
}

// Filter is a scalar filter applied alongside vector search; nil means no
// filter. Keys match Record field names lower-cased ("parent_uri",
// "context_type", "is_leaf", ...).
type Filter map[string]any

// Fields is a partial set of record fields for update_fields.
type Fields map[string]any

// Index is the external interface the core consumes.
type Index interface {
	Upsert(ctx context.Context, record Record) error
	Delete(ctx context.Context, uri string) error
	DeletePrefix(ctx context.Context, uriPrefix string) (int, error)
	UpdateFields(ctx context.Context, uri string, fields Fields) error

	// Search performs a hybrid kNN search. sparseVector may be nil for
	// dense-only search.
	Search(ctx context.Context, queryVector []float64, sparseVector map[string]float64, filter Filter, topK, offset int) ([]ScoredRecord, error)

	// SearchByParent scopes Search to direct children of parentURI, as
	// used by Phase 2 of the Hierarchical Retriever.
	SearchByParent(ctx context.Context, parentURI string, queryVector []float64, topK int, filter Filter) ([]ScoredRecord, error)

	// CountPrefix reports how many records currently have the given uri
	// prefix; the debug service uses it with an empty prefix to count all
	// records.
	CountPrefix(ctx context.Context, uriPrefix string) (int, error)

	Close() error
}

// ScoredRecord pairs a Record with its search score.
type ScoredRecord struct {
	Record
	Score float64
}

// SparseWeight controls the contribution of the sparse vector to the final
// score: final = (1-w)*cosine(dense) + w*sparse_overlap. w ∈ [0,1].
type SparseWeight float64

const DefaultSparseWeight SparseWeight = 0.3
