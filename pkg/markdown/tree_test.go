// Copyright (c) 2026 Beijing Volcano Engine Technology Co., Ltd.
// SPDX-License-Identifier: Apache-2.0

package markdown

import (
	"strings"
	"testing"
)

func TestBuildSmallDocumentIsSingleFile(t *testing.T) {
	doc := []byte("# Auth Guide\n\nShort intro.\n")
	node, err := Build("Auth Guide", doc)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if node.IsDir() {
		t.Fatalf("expected a single file for a small document, got a directory")
	}
	if node.Name != "Auth_Guide.md" {
		t.Errorf("name = %q, want Auth_Guide.md", node.Name)
	}
}

func TestBuildLargeDocumentSplitsIntoDirectory(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 3; i++ {
		b.WriteString("## Section ")
		b.WriteString(string(rune('A' + i)))
		b.WriteString("\n\n")
		b.WriteString(strings.Repeat("word ", 1500))
		b.WriteString("\n\n")
	}

	node, err := Build("Big Guide", []byte(b.String()))
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if !node.IsDir() {
		t.Fatalf("expected a directory for an oversized document")
	}
	if len(node.Children) != 3 {
		t.Fatalf("expected 3 section files, got %d: %+v", len(node.Children), node.Children)
	}
}

func TestSanitizeNameCollapsesWhitespaceAndStripsSlash(t *testing.T) {
	got := sanitizeName("My   Cool/Title\tHere")
	if got != "My_CoolTitleHere" {
		t.Errorf("got %q", got)
	}
}

func TestNameAllocatorDisambiguates(t *testing.T) {
	a := newNameAllocator()
	names := []string{a.allocate("intro"), a.allocate("intro"), a.allocate("intro")}
	want := []string{"intro", "intro_2", "intro_3"}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("names[%d] = %q, want %q", i, names[i], want[i])
		}
	}
}

func TestCoalesceSmallMergesConsecutiveSections(t *testing.T) {
	children := []*Node{
		{Name: "a.md", Content: []byte("tiny a")},
		{Name: "b.md", Content: []byte("tiny b")},
		{Name: "big.md", Content: []byte(strings.Repeat("word ", 1000))},
	}
	merged := coalesceSmall(children, Small, newNameAllocator())
	if len(merged) != 2 {
		t.Fatalf("expected a+b merged and big kept separate, got %d: %+v", len(merged), merged)
	}
	if merged[0].Name != "a_b.md" {
		t.Errorf("merged name = %q, want a_b.md", merged[0].Name)
	}
}
