// Copyright (c) 2026 Beijing Volcano Engine Technology Co., Ltd.
// SPDX-License-Identifier: Apache-2.0

package ingest

import (
	"context"
	"testing"

	"github.com/openviking/openviking/pkg/agfs"
	"github.com/openviking/openviking/pkg/markdown"
	"github.com/openviking/openviking/pkg/parser"
	"github.com/openviking/openviking/pkg/vectorindex"
	"github.com/openviking/openviking/pkg/vikingfs"
)

type fakeEnqueuer struct{ enqueued []string }

func (f *fakeEnqueuer) Enqueue(ctx context.Context, dirURI string) error {
	f.enqueued = append(f.enqueued, dirURI)
	return nil
}

func newTestBuilder() (*TreeBuilder, *fakeEnqueuer) {
	q := &fakeEnqueuer{}
	fs := vikingfs.New(agfs.NewMemoryBackend(), vectorindex.NewMemoryIndex(vectorindex.DefaultSparseWeight), q)
	return New(fs), q
}

func TestMoveRejectsTempWithoutExactlyOneRoot(t *testing.T) {
	ctx := context.Background()
	tb, _ := newTestBuilder()
	if err := tb.FS.Backend.Mkdir(ctx, "temp/tok"); err != nil {
		t.Fatalf("Mkdir: %v", err)
	}
	if _, err := tb.Move(ctx, "viking://temp/tok/", "viking://resources/"); err == nil {
		t.Fatalf("expected error for empty temp tree")
	}
}

func TestIngestSplitsAndMovesMarkdown(t *testing.T) {
	ctx := context.Background()
	tb, q := newTestBuilder()
	reg := parser.NewRegistry()

	doc := "# Auth Guide\n\nShort intro.\n"
	targetURI, err := tb.Ingest(ctx, reg, ".md", "auth.md", []byte(doc), "tok1", "viking://resources/")
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if targetURI != "viking://resources/Auth_Guide.md" {
		t.Fatalf("unexpected target URI: %s", targetURI)
	}

	if _, err := tb.FS.Backend.Stat(ctx, "resources/Auth_Guide.md"); err != nil {
		t.Fatalf("expected moved file present: %v", err)
	}
	if _, err := tb.FS.Backend.Stat(ctx, "temp/tok1"); err == nil {
		t.Fatalf("expected temp tree removed")
	}
	if len(q.enqueued) == 0 {
		t.Fatalf("expected at least one SemanticMsg enqueued")
	}
}

func TestIngestUniquifiesCollidingTargets(t *testing.T) {
	ctx := context.Background()
	tb, _ := newTestBuilder()
	reg := parser.NewRegistry()
	doc := "# Auth Guide\n\nShort intro.\n"

	first, err := tb.Ingest(ctx, reg, ".md", "auth.md", []byte(doc), "tok1", "viking://resources/")
	if err != nil {
		t.Fatalf("first Ingest: %v", err)
	}
	second, err := tb.Ingest(ctx, reg, ".md", "auth.md", []byte(doc), "tok2", "viking://resources/")
	if err != nil {
		t.Fatalf("second Ingest: %v", err)
	}
	if first == second {
		t.Fatalf("expected disambiguated target URIs, both were %s", first)
	}
}

func TestAttachAssetsWrapsSingleFileRoot(t *testing.T) {
	root := &markdown.Node{Name: "Auth_Guide.md", Content: []byte("# Auth Guide\n")}
	wrapped := attachAssets(root, []parser.Asset{{RelPath: "diagram.png", Data: []byte("binary")}})
	if !wrapped.IsDir() {
		t.Fatalf("expected wrapped root to become a directory")
	}
	if len(wrapped.Children) != 2 {
		t.Fatalf("expected index.md + assets dir, got %d children", len(wrapped.Children))
	}
}
