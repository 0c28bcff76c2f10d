// Copyright (c) 2026 Beijing Volcano Engine Technology Co., Ltd.
// SPDX-License-Identifier: Apache-2.0

package vikingfs

import (
	"context"
	"testing"
	"time"

	"github.com/openviking/openviking/pkg/agfs"
	"github.com/openviking/openviking/pkg/vectorindex"
)

type fakeEnqueuer struct{ enqueued []string }

func (f *fakeEnqueuer) Enqueue(ctx context.Context, dirURI string) error {
	f.enqueued = append(f.enqueued, dirURI)
	return nil
}

func newTestFS() (*VikingFS, *fakeEnqueuer) {
	q := &fakeEnqueuer{}
	return New(agfs.NewMemoryBackend(), vectorindex.NewMemoryIndex(vectorindex.DefaultSparseWeight), q), q
}

func TestWriteEnqueuesAncestorsToScopeRoot(t *testing.T) {
	ctx := context.Background()
	fs, q := newTestFS()
	if err := fs.Write(ctx, "viking://resources/Auth_Guide/OAuth_2_0.md", []byte("hi")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	want := []string{"viking://resources/Auth_Guide/", "viking://resources/"}
	if len(q.enqueued) != len(want) {
		t.Fatalf("expected %v, got %v", want, q.enqueued)
	}
	for i, w := range want {
		if q.enqueued[i] != w {
			t.Fatalf("expected %v, got %v", want, q.enqueued)
		}
	}
}

func TestLinkDedupPreservesEarliest(t *testing.T) {
	ctx := context.Background()
	fs, _ := newTestFS()
	early := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	late := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

	if err := fs.Link(ctx, "viking://resources/a/", []string{"viking://resources/b/"}, "r1", early); err != nil {
		t.Fatalf("Link: %v", err)
	}
	if err := fs.Link(ctx, "viking://resources/a/", []string{"viking://resources/b/"}, "r2", late); err != nil {
		t.Fatalf("Link: %v", err)
	}
	rels, err := fs.Relations(ctx, "viking://resources/a/")
	if err != nil {
		t.Fatalf("Relations: %v", err)
	}
	if len(rels) != 1 {
		t.Fatalf("expected 1 relation, got %d", len(rels))
	}
	if !rels[0].CreatedAt.Equal(early) {
		t.Fatalf("expected earliest created_at preserved, got %v", rels[0].CreatedAt)
	}
}

func TestMvRewritesIndexAndAGFS(t *testing.T) {
	ctx := context.Background()
	fs, _ := newTestFS()
	if err := fs.Write(ctx, "viking://resources/Auth_Guide/a.md", []byte("a")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := fs.Index.Upsert(ctx, vectorindex.Record{
		URI: "viking://resources/Auth_Guide/a.md", ParentURI: "viking://resources/Auth_Guide/",
	}); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	if err := fs.Mv(ctx, "viking://resources/Auth_Guide/", "viking://resources/Authentication/"); err != nil {
		t.Fatalf("Mv: %v", err)
	}

	n, err := fs.Index.CountPrefix(ctx, "viking://resources/Auth_Guide/")
	if err != nil || n != 0 {
		t.Fatalf("expected 0 records under old prefix, got %d err=%v", n, err)
	}
	n, err = fs.Index.CountPrefix(ctx, "viking://resources/Authentication/")
	if err != nil || n != 1 {
		t.Fatalf("expected 1 record under new prefix, got %d err=%v", n, err)
	}

	data, err := fs.Read(ctx, "viking://resources/Authentication/a.md")
	if err != nil || string(data) != "a" {
		t.Fatalf("expected moved content, got %v %v", data, err)
	}
}

func TestRmRemovesIndexAndAGFS(t *testing.T) {
	ctx := context.Background()
	fs, _ := newTestFS()
	_ = fs.Write(ctx, "viking://resources/Auth_Guide/a.md", []byte("a"))
	_ = fs.Index.Upsert(ctx, vectorindex.Record{URI: "viking://resources/Auth_Guide/a.md"})

	if err := fs.Rm(ctx, "viking://resources/Auth_Guide/", true); err != nil {
		t.Fatalf("Rm: %v", err)
	}
	if _, err := fs.Read(ctx, "viking://resources/Auth_Guide/a.md"); err == nil {
		t.Fatalf("expected NotFound after rm")
	}
	n, err := fs.Index.CountPrefix(ctx, "viking://resources/Auth_Guide/")
	if err != nil || n != 0 {
		t.Fatalf("expected 0 index records after rm, got %d err=%v", n, err)
	}
}
