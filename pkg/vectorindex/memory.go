// Copyright (c) 2026 Beijing Volcano Engine Technology Co., Ltd.
// SPDX-License-Identifier: Apache-2.0

package vectorindex

import (
	"context"
	"math"
	"sort"
	"strings"
	"sync"
)

// MemoryIndex is the reference in-memory backend: adequate for tests and
// small single-process deployments, with parent_uri scoping and prefix
// delete alongside flat search.
type MemoryIndex struct {
	mu           sync.RWMutex
	records      map[string]Record
	sparseWeight SparseWeight
}

// NewMemoryIndex creates an empty MemoryIndex.
func NewMemoryIndex(sparseWeight SparseWeight) *MemoryIndex {
	return &MemoryIndex{records: make(map[string]Record), sparseWeight: sparseWeight}
}

func (idx *MemoryIndex) Upsert(ctx context.Context, r Record) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.records[r.URI] = r
	return nil
}

func (idx *MemoryIndex) Delete(ctx context.Context, uri string) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	delete(idx.records, uri)
	return nil
}

// DeletePrefix removes every record whose uri has uriPrefix, so deleting
// a uri prefix removes all descendant records.
func (idx *MemoryIndex) DeletePrefix(ctx context.Context, uriPrefix string) (int, error) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	n := 0
	for uri := range idx.records {
		if uri == uriPrefix || strings.HasPrefix(uri, uriPrefix) {
			delete(idx.records, uri)
			n++
		}
	}
	return n, nil
}

func (idx *MemoryIndex) UpdateFields(ctx context.Context, uri string, fields Fields) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	r, ok := idx.records[uri]
	if !ok {
		return ErrRecordNotFound
	}
	for k, v := range fields {
		switch k {
		case "uri":
			r.URI = v.(string)
		case "parent_uri":
			r.ParentURI = v.(string)
		case "abstract":
			r.Abstract = v.(string)
		case "name":
			r.Name = v.(string)
		case "description":
			r.Description = v.(string)
		case "active_count":
			r.ActiveCount = v.(int64)
		case "updated_at":
			r.UpdatedAt = v.(int64)
		}
	}
	delete(idx.records, uri)
	idx.records[r.URI] = r
	return nil
}

func (idx *MemoryIndex) Search(ctx context.Context, queryVector []float64, sparseVector map[string]float64, filter Filter, topK, offset int) ([]ScoredRecord, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	var out []ScoredRecord
	for _, r := range idx.records {
		if !matchesFilter(r, filter) {
			continue
		}
		out = append(out, ScoredRecord{Record: r, Score: idx.score(queryVector, sparseVector, r)})
	}
	return topKAfterOffset(out, topK, offset), nil
}

func (idx *MemoryIndex) SearchByParent(ctx context.Context, parentURI string, queryVector []float64, topK int, filter Filter) ([]ScoredRecord, error) {
	f := Filter{}
	for k, v := range filter {
		f[k] = v
	}
	f["parent_uri"] = parentURI
	return idx.Search(ctx, queryVector, nil, f, topK, 0)
}

func (idx *MemoryIndex) CountPrefix(ctx context.Context, uriPrefix string) (int, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	n := 0
	for uri := range idx.records {
		if uri == uriPrefix || strings.HasPrefix(uri, uriPrefix) {
			n++
		}
	}
	return n, nil
}

func (idx *MemoryIndex) Close() error { return nil }

func (idx *MemoryIndex) score(queryVector []float64, sparseVector map[string]float64, r Record) float64 {
	dense := cosine(queryVector, r.Vector)
	if sparseVector == nil || r.SparseVector == nil {
		return dense
	}
	sparse := sparseOverlap(sparseVector, r.SparseVector)
	w := float64(idx.sparseWeight)
	return (1-w)*dense + w*sparse
}

func cosine(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

func sparseOverlap(a, b map[string]float64) float64 {
	var dot, na, nb float64
	for k, v := range a {
		na += v * v
		if bv, ok := b[k]; ok {
			dot += v * bv
		}
	}
	for _, v := range b {
		nb += v * v
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

func matchesFilter(r Record, filter Filter) bool {
	for k, v := range filter {
		switch k {
		case "parent_uri":
			if r.ParentURI != v.(string) {
				return false
			}
		case "context_type":
			if r.ContextType != v.(string) {
				return false
			}
		case "is_leaf":
			if r.IsLeaf != v.(bool) {
				return false
			}
		case "uri_prefix":
			if !strings.HasPrefix(r.URI, v.(string)) {
				return false
			}
		}
	}
	return true
}

func topKAfterOffset(results []ScoredRecord, topK, offset int) []ScoredRecord {
	sort.Slice(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	if offset > 0 {
		if offset >= len(results) {
			return nil
		}
		results = results[offset:]
	}
	if topK > 0 && len(results) > topK {
		results = results[:topK]
	}
	return results
}

var _ Index = (*MemoryIndex)(nil)
