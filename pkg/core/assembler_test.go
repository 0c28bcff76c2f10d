// Copyright (c) 2026 Beijing Volcano Engine Technology Co., Ltd.
// SPDX-License-Identifier: Apache-2.0

package core

import (
	"context"
	"strings"
	"testing"

	"github.com/openviking/openviking/pkg/agfs"
	"github.com/openviking/openviking/pkg/queue"
	"github.com/openviking/openviking/pkg/retrieval"
	"github.com/openviking/openviking/pkg/vectorindex"
	"github.com/openviking/openviking/pkg/vikingfs"
)

func matches() []retrieval.MatchedContext {
	return []retrieval.MatchedContext{
		{URI: "viking://memories/low", ContextType: retrieval.ContextTypeMemory, Abstract: "a minor note", Score: 0.2},
		{URI: "viking://resources/guide", ContextType: retrieval.ContextTypeResource, Abstract: "guide abstract", Overview: "guide overview with more detail", Score: 0.9, IsLeaf: true},
		{URI: "viking://skills/deploy", ContextType: retrieval.ContextTypeSkill, Abstract: "how to deploy", Score: 0.5, MatchReason: "keyword match"},
	}
}

func TestAssembleOrdersByScoreAndGroups(t *testing.T) {
	a := NewAssembler(nil, nil, DefaultAssemblerConfig())
	win, err := a.Assemble(context.Background(), matches())
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}

	memIdx := strings.Index(win.Text, "## Memories")
	resIdx := strings.Index(win.Text, "## Resources")
	skillIdx := strings.Index(win.Text, "## Skills")
	if memIdx < 0 || resIdx < 0 || skillIdx < 0 {
		t.Fatalf("expected all three section headings, got %q", win.Text)
	}
	if memIdx > resIdx || resIdx > skillIdx {
		t.Errorf("expected Memories, then Resources, then Skills; got %q", win.Text)
	}
	if !strings.Contains(win.Text, "guide overview with more detail") {
		t.Errorf("expected the resource's overview body, got %q", win.Text)
	}
	if win.Included != 3 || win.Omitted != 0 {
		t.Errorf("Included=%d Omitted=%d, want 3/0", win.Included, win.Omitted)
	}
}

func TestAssembleRespectsTokenBudget(t *testing.T) {
	a := NewAssembler(nil, nil, AssemblerConfig{MaxTokens: 5})
	win, err := a.Assemble(context.Background(), matches())
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	if win.UsedTokens > win.MaxTokens {
		t.Errorf("UsedTokens=%d exceeds MaxTokens=%d", win.UsedTokens, win.MaxTokens)
	}
	if win.Omitted == 0 {
		t.Errorf("expected a tight budget to omit at least one match")
	}
}

func TestAssembleExpandsTopLeafFromFS(t *testing.T) {
	ctx := context.Background()
	backend := agfs.NewMemoryBackend()
	idx := vectorindex.NewMemoryIndex(vectorindex.DefaultSparseWeight)
	q := queue.NewMemoryBackend()
	fs := vikingfs.New(backend, idx, queue.NewEnqueuer(q))

	if err := backend.Mkdir(ctx, "resources"); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := backend.Write(ctx, "resources/guide", []byte("the full leaf content")); err != nil {
		t.Fatalf("write: %v", err)
	}

	a := NewAssembler(fs, nil, AssemblerConfig{MaxTokens: 128000, ExpandTopLeaves: 1})
	win, err := a.Assemble(ctx, matches())
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	if !strings.Contains(win.Text, "the full leaf content") {
		t.Errorf("expected top-scored leaf's full content to be inlined, got %q", win.Text)
	}
}
