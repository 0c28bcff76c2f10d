// Copyright (c) 2026 Beijing Volcano Engine Technology Co., Ltd.
// SPDX-License-Identifier: Apache-2.0

package retrieval

import (
	"context"
	"testing"

	"github.com/openviking/openviking/pkg/vectorindex"
)

func seedIndex(t *testing.T, idx *vectorindex.MemoryIndex) {
	t.Helper()
	records := []vectorindex.Record{
		{URI: "viking://resources", ParentURI: "", ContextType: "resource", IsLeaf: false, Vector: []float64{1, 0}},
		{URI: "viking://resources/guide", ParentURI: "viking://resources", ContextType: "resource", IsLeaf: false, Vector: []float64{1, 0}, Abstract: "a guide"},
		{URI: "viking://resources/guide/intro.md", ParentURI: "viking://resources/guide", ContextType: "resource", IsLeaf: true, Vector: []float64{0.9, 0.1}, Abstract: "intro section"},
		{URI: "viking://resources/other", ParentURI: "viking://resources", ContextType: "resource", IsLeaf: false, Vector: []float64{0, 1}, Abstract: "unrelated"},
	}
	for _, r := range records {
		if err := idx.Upsert(context.Background(), r); err != nil {
			t.Fatal(err)
		}
	}
}

func TestRetrieveReturnsLeafUnderMatchingRoot(t *testing.T) {
	idx := vectorindex.NewMemoryIndex(vectorindex.DefaultSparseWeight)
	seedIndex(t, idx)

	hr := NewHierarchicalRetriever(idx, nil, nil, nil, DefaultRetrieverConfig())
	opts := DefaultSearchOptions()
	opts.TargetDirectories = []string{"viking://resources"}

	result, err := hr.Retrieve(context.Background(), TypedQuery{Query: "guide", ContextType: ContextTypeResource}, opts)
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}

	found := false
	for _, m := range result.MatchedContexts {
		if m.URI == "viking://resources/guide/intro.md" {
			found = true
		}
		if m.ContextType != ContextTypeResource {
			t.Errorf("context_type = %v, want resource", m.ContextType)
		}
	}
	if !found {
		t.Errorf("expected leaf intro.md among results, got %+v", result.MatchedContexts)
	}
}

func TestRetrieveEmptyIndexReturnsNoResults(t *testing.T) {
	idx := vectorindex.NewMemoryIndex(vectorindex.DefaultSparseWeight)
	hr := NewHierarchicalRetriever(idx, nil, nil, nil, DefaultRetrieverConfig())

	result, err := hr.Retrieve(context.Background(), TypedQuery{Query: "anything", ContextType: ContextTypeResource}, DefaultSearchOptions())
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if len(result.MatchedContexts) != 0 {
		t.Errorf("expected no results from empty index, got %+v", result.MatchedContexts)
	}
}

func TestRetrieveBlendsHotnessAndBumpsAccessCount(t *testing.T) {
	idx := vectorindex.NewMemoryIndex(vectorindex.DefaultSparseWeight)
	seedIndex(t, idx)

	hr := NewHierarchicalRetriever(idx, nil, nil, nil, DefaultRetrieverConfig())
	hr.Hotness = NewHotnessScorer(DefaultHotnessConfig())

	opts := DefaultSearchOptions()
	opts.TargetDirectories = []string{"viking://resources"}

	if _, err := hr.Retrieve(context.Background(), TypedQuery{Query: "guide", ContextType: ContextTypeResource}, opts); err != nil {
		t.Fatalf("Retrieve: %v", err)
	}

	results, err := idx.Search(context.Background(), nil, nil, vectorindex.Filter{}, 10, 0)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	bumped := false
	for _, r := range results {
		if r.ActiveCount > 0 {
			bumped = true
		}
	}
	if !bumped {
		t.Errorf("expected at least one record's active_count to be bumped after a retrieval with hotness enabled")
	}
}

func TestFrontierHeapOrdersHighestScoreFirst(t *testing.T) {
	h := frontierHeap{
		{URI: "b", Score: 0.2},
		{URI: "a", Score: 0.9},
		{URI: "c", Score: 0.5},
	}
	if !h.Less(1, 0) {
		t.Error("higher score should sort before lower score in a max-heap")
	}
}
