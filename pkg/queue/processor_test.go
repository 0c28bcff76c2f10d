// Copyright (c) 2026 Beijing Volcano Engine Technology Co., Ltd.
// SPDX-License-Identifier: Apache-2.0

package queue

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/openviking/openviking/pkg/agfs"
	"github.com/openviking/openviking/pkg/embedding"
	"github.com/openviking/openviking/pkg/llm"
	"github.com/openviking/openviking/pkg/vectorindex"
	"github.com/openviking/openviking/pkg/vikingfs"
)

// stubLLMProvider is a minimal llm.Provider for tests: it echoes a fixed
// one-sentence summary regardless of the prompt.
type stubLLMProvider struct{}

func (stubLLMProvider) Chat(ctx context.Context, req *llm.ChatRequest) (*llm.ChatResponse, error) {
	return &llm.ChatResponse{
		Choices: []llm.Choice{
			{Message: llm.Message{Role: llm.RoleAssistant, Content: "This document explains the topic."}},
		},
	}, nil
}

func (stubLLMProvider) ChatStream(ctx context.Context, req *llm.ChatRequest) (llm.StreamReader, error) {
	return nil, nil
}

func (stubLLMProvider) Embed(ctx context.Context, req *llm.EmbeddingRequest) (*llm.EmbeddingResponse, error) {
	return &llm.EmbeddingResponse{Data: []llm.Embedding{{Embedding: []float64{0.1, 0.2}, Index: 0}}}, nil
}

func (stubLLMProvider) Close() error { return nil }

var _ llm.Provider = stubLLMProvider{}

func TestMemoryBackendDependencyOrdering(t *testing.T) {
	b := NewMemoryBackend()
	ctx := context.Background()

	if err := b.Enqueue(ctx, "resources", "viking://resources/guide/", 1); err != nil {
		t.Fatalf("enqueue parent: %v", err)
	}
	if err := b.Enqueue(ctx, "resources", "viking://resources/guide/sub/", 2); err != nil {
		t.Fatalf("enqueue child: %v", err)
	}

	msg, err := b.Claim(ctx, "resources")
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if msg.URI != "viking://resources/guide/sub/" {
		t.Fatalf("expected deepest candidate to claim first, got %s", msg.URI)
	}

	if _, err := b.Claim(ctx, "resources"); err != ErrEmpty {
		t.Fatalf("expected parent blocked by outstanding child, got %v", err)
	}

	if err := b.Complete(ctx, msg.ID); err != nil {
		t.Fatalf("complete: %v", err)
	}

	msg2, err := b.Claim(ctx, "resources")
	if err != nil {
		t.Fatalf("claim after child completes: %v", err)
	}
	if msg2.URI != "viking://resources/guide/" {
		t.Fatalf("expected parent now claimable, got %s", msg2.URI)
	}
}

func TestMemoryBackendFailRetriesThenFatal(t *testing.T) {
	b := NewMemoryBackend()
	ctx := context.Background()
	if err := b.Enqueue(ctx, "resources", "viking://resources/doc/", 1); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	for i := 0; i < MaxAttempts; i++ {
		msg, err := b.Claim(ctx, "resources")
		if err != nil {
			t.Fatalf("claim attempt %d: %v", i, err)
		}
		if err := b.Fail(ctx, msg.ID, true, "transient"); err != nil {
			t.Fatalf("fail attempt %d: %v", i, err)
		}
	}

	b.mu.Lock()
	var final *SemanticMsg
	for _, m := range b.messages {
		final = m
	}
	b.mu.Unlock()
	if final.Status != StatusFailed {
		t.Fatalf("expected message failed after %d attempts, got %s", MaxAttempts, final.Status)
	}

	if _, err := b.Claim(ctx, "resources"); err != ErrEmpty {
		t.Fatalf("expected no claimable messages after fatal failure, got %v", err)
	}
}

func TestMemoryBackendReclaimExpired(t *testing.T) {
	b := NewMemoryBackend()
	ctx := context.Background()
	if err := b.Enqueue(ctx, "resources", "viking://resources/doc/", 1); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	msg, err := b.Claim(ctx, "resources")
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	past := time.Now().Add(-time.Hour)
	b.mu.Lock()
	b.messages[msg.ID].ClaimedAt = &past
	b.mu.Unlock()

	n, err := b.ReclaimExpired(ctx, time.Minute)
	if err != nil {
		t.Fatalf("reclaim: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 reclaimed message, got %d", n)
	}

	again, err := b.Claim(ctx, "resources")
	if err != nil {
		t.Fatalf("claim after reclaim: %v", err)
	}
	if again.ID != msg.ID {
		t.Fatalf("expected reclaimed message to be claimable again")
	}
}

func newTestProcessor(t *testing.T) (*Processor, *vikingfs.VikingFS, Backend) {
	t.Helper()
	backend := NewMemoryBackend()
	fs := vikingfs.New(agfs.NewMemoryBackend(), vectorindex.NewMemoryIndex(vectorindex.DefaultSparseWeight), NewEnqueuer(backend))
	p := NewProcessor(backend, fs, stubLLMProvider{}, "test-model", embedding.TermFrequencyEmbedder{})
	return p, fs, backend
}

func TestProcessDirectoryWritesTiersAndUpserts(t *testing.T) {
	ctx := context.Background()
	p, fs, _ := newTestProcessor(t)

	if err := fs.Backend.Mkdir(ctx, "resources/guide"); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := fs.Backend.Write(ctx, "resources/guide/intro.md", []byte("# Intro\n\nSome content about the guide.")); err != nil {
		t.Fatalf("write: %v", err)
	}

	if err := p.processDirectory(ctx, "viking://resources/guide/"); err != nil {
		t.Fatalf("processDirectory: %v", err)
	}

	abstract, err := fs.Backend.Read(ctx, "resources/guide/.abstract.md")
	if err != nil {
		t.Fatalf("read abstract: %v", err)
	}
	if len(abstract) == 0 {
		t.Fatalf("expected non-empty abstract")
	}
	if strings.HasPrefix(string(abstract), "#") {
		t.Fatalf("abstract should not be the bare heading: %q", abstract)
	}

	overview, err := fs.Backend.Read(ctx, "resources/guide/.overview.md")
	if err != nil {
		t.Fatalf("read overview: %v", err)
	}
	if !strings.Contains(string(overview), "intro.md") {
		t.Fatalf("expected overview to list intro.md, got %q", overview)
	}

	results, err := fs.Index.Search(ctx, nil, nil, vectorindex.Filter{}, 10, 0)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	found := false
	for _, r := range results {
		if r.URI == "viking://resources/guide/" {
			found = true
			if r.IsLeaf {
				t.Fatalf("expected directory record to be non-leaf")
			}
		}
	}
	if !found {
		t.Fatalf("expected an upserted record for the directory")
	}
}

func TestProcessOnceClaimsAndCompletes(t *testing.T) {
	ctx := context.Background()
	p, fs, backend := newTestProcessor(t)

	if err := fs.Backend.Mkdir(ctx, "resources/guide"); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := fs.Backend.Write(ctx, "resources/guide/intro.md", []byte("content")); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := backend.Enqueue(ctx, "resources", "viking://resources/guide/", 1); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	processed, err := p.ProcessOnce(ctx, "resources")
	if err != nil {
		t.Fatalf("ProcessOnce: %v", err)
	}
	if !processed {
		t.Fatalf("expected a message to be processed")
	}

	processed, err = p.ProcessOnce(ctx, "resources")
	if err != nil {
		t.Fatalf("ProcessOnce on empty queue: %v", err)
	}
	if processed {
		t.Fatalf("expected no more messages to process")
	}
}

func TestExtractAbstractSkipsHeading(t *testing.T) {
	overview := composeOverview("guide", nil, nil, nil, nil)
	abstract := extractAbstract(overview)
	if strings.HasPrefix(abstract, "#") {
		t.Fatalf("abstract should skip the heading, got %q", abstract)
	}
	if !strings.Contains(abstract, "guide") {
		t.Fatalf("expected role sentence to mention the directory name, got %q", abstract)
	}
}
