// Copyright (c) 2026 Beijing Volcano Engine Technology Co., Ltd.
// SPDX-License-Identifier: Apache-2.0

package viking

import (
	"context"
	"strings"
	"testing"

	"github.com/openviking/openviking/pkg/agfs"
	"github.com/openviking/openviking/pkg/parser"
	"github.com/openviking/openviking/pkg/queue"
	"github.com/openviking/openviking/pkg/retrieval"
	"github.com/openviking/openviking/pkg/vectorindex"
	"github.com/openviking/openviking/pkg/vikingfs"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	backend := agfs.NewMemoryBackend()
	idx := vectorindex.NewMemoryIndex(vectorindex.DefaultSparseWeight)
	q := queue.NewMemoryBackend()
	fs := vikingfs.New(backend, idx, queue.NewEnqueuer(q))
	hr := retrieval.NewHierarchicalRetriever(idx, nil, nil, fs, retrieval.DefaultRetrieverConfig())
	return New(fs, parser.NewRegistry(), hr, nil)
}

func TestAddResourceSplitsAndMovesIntoResources(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t)

	doc := "# Deploy Guide\n\nShort intro.\n"
	rootURI, err := e.AddResource(ctx, "deploy.md", []byte(doc), "user uploaded a guide")
	if err != nil {
		t.Fatalf("AddResource: %v", err)
	}
	if !strings.HasPrefix(rootURI, "viking://resources/") {
		t.Errorf("rootURI = %q, want viking://resources/ prefix", rootURI)
	}
	if _, err := e.FS.Read(ctx, rootURI); err != nil {
		t.Errorf("expected resource readable at %s: %v", rootURI, err)
	}
}

func TestAddResourceRejectsExtensionlessSource(t *testing.T) {
	e := newTestEngine(t)
	if _, err := e.AddResource(context.Background(), "noext", []byte("data"), ""); err == nil {
		t.Fatalf("expected error for a source with no extension")
	}
}

func TestAddSkillWritesUnderAgentSkills(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t)

	skillURI, err := e.AddSkill(ctx, "deploy", "1. build\n2. ship\n")
	if err != nil {
		t.Fatalf("AddSkill: %v", err)
	}
	want := "viking://agent/skills/deploy/deploy.md"
	if skillURI != want {
		t.Errorf("skillURI = %q, want %q", skillURI, want)
	}
	data, err := e.FS.Read(ctx, skillURI)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(data) != "1. build\n2. ship\n" {
		t.Errorf("unexpected skill content: %q", data)
	}
}

func TestAddSkillRejectsEmptyName(t *testing.T) {
	e := newTestEngine(t)
	if _, err := e.AddSkill(context.Background(), "", "content"); err == nil {
		t.Fatalf("expected error for an empty skill name")
	}
}

func TestFindReturnsResultForIngestedResource(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t)
	if _, err := e.AddResource(ctx, "deploy.md", []byte("# Deploy Guide\n\nShort intro.\n"), ""); err != nil {
		t.Fatalf("AddResource: %v", err)
	}

	result, err := e.Find(ctx, "deploy", retrieval.ContextTypeResource, "")
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if result == nil {
		t.Fatalf("expected a non-nil result")
	}
}

func TestSearchWithoutIntentAnalyzerDefaultsToResourceQuery(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t)
	if _, err := e.AddResource(ctx, "deploy.md", []byte("# Deploy Guide\n\nShort intro.\n"), ""); err != nil {
		t.Fatalf("AddResource: %v", err)
	}

	result, err := e.Search(ctx, "deploy", "", nil)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(result.QueryResults) != 1 {
		t.Fatalf("expected exactly one planned query without an Intent analyzer, got %d", len(result.QueryResults))
	}
	if result.QueryResults[0].Query.ContextType != retrieval.ContextTypeResource {
		t.Errorf("default query ContextType = %v, want resource", result.QueryResults[0].Query.ContextType)
	}
}
