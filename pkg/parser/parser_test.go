// Copyright (c) 2026 Beijing Volcano Engine Technology Co., Ltd.
// SPDX-License-Identifier: Apache-2.0

package parser

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDiscoverSortedAndFiltered(t *testing.T) {
	tmpDir := t.TempDir()
	files := []string{
		"a.md",
		"sub/b.go",
		"sub/deep/c.py",
		".git/HEAD",
		"sub/ignore.tmp",
	}
	for _, f := range files {
		path := filepath.Join(tmpDir, f)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte("content"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	d := NewDiscoverer()
	found, err := d.Discover(context.Background(), tmpDir)
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}

	if len(found) != 3 {
		t.Fatalf("expected 3 files, got %d: %+v", len(found), found)
	}
	for i := 1; i < len(found); i++ {
		if found[i-1].Rel >= found[i].Rel {
			t.Errorf("not sorted: %q >= %q", found[i-1].Rel, found[i].Rel)
		}
	}
}

func TestRegistryDispatchByExtension(t *testing.T) {
	r := NewRegistry()
	ctx := context.Background()

	res, err := r.Parse(ctx, ".md", "guide.md", []byte("# Title\n\nbody\n"))
	if err != nil {
		t.Fatalf("markdown parse: %v", err)
	}
	if res.Title != "Title" {
		t.Errorf("title = %q, want Title", res.Title)
	}

	res, err = r.Parse(ctx, ".go", "main.go", []byte("package main\n"))
	if err != nil {
		t.Fatalf("code parse: %v", err)
	}
	if !strings.Contains(string(res.Markdown), "```go") {
		t.Errorf("expected go fence, got %s", res.Markdown)
	}

	if _, err := r.Parse(ctx, ".pdf", "x.pdf", nil); err == nil {
		t.Error("expected unsupported format error for .pdf")
	}
}

func TestMarkdownParserCorruptInput(t *testing.T) {
	p := &MarkdownParser{}
	_, err := p.Parse(context.Background(), "bad.md", []byte{0xff, 0xfe, 0x00})
	if err == nil {
		t.Error("expected error for invalid utf-8")
	}
}
