// Copyright (c) 2026 Beijing Volcano Engine Technology Co., Ltd.
// SPDX-License-Identifier: Apache-2.0

package uri

import "testing"

func TestParseBasic(t *testing.T) {
	u, err := Parse("viking://resources/Auth_Guide/OAuth_2_0.md")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if u.Scope != ScopeResources {
		t.Fatalf("expected scope resources, got %s", u.Scope)
	}
	if u.IsDir {
		t.Fatalf("expected file URI, got directory")
	}
	if got := u.Name(); got != "OAuth_2_0.md" {
		t.Fatalf("expected name OAuth_2_0.md, got %s", got)
	}
	if got := u.Depth(); got != 2 {
		t.Fatalf("expected depth 2, got %d", got)
	}
}

func TestParseDirectoryTrailingSlash(t *testing.T) {
	u, err := Parse("viking://agent/skills/")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !u.IsDir {
		t.Fatalf("expected directory URI")
	}
	if u.String() != "viking://agent/skills/" {
		t.Fatalf("unexpected round-trip: %s", u.String())
	}
}

func TestParseRejectsUnknownScope(t *testing.T) {
	if _, err := Parse("viking://bogus/x"); err == nil {
		t.Fatalf("expected error for unknown scope")
	}
}

func TestParseRejectsMissingPrefix(t *testing.T) {
	if _, err := Parse("resources/x"); err == nil {
		t.Fatalf("expected error for missing prefix")
	}
}

func TestParent(t *testing.T) {
	u, _ := Parse("viking://resources/Auth_Guide/OAuth_2_0.md")
	p, atRoot := u.Parent()
	if atRoot {
		t.Fatalf("expected non-root parent")
	}
	if p.String() != "viking://resources/Auth_Guide/" {
		t.Fatalf("unexpected parent: %s", p.String())
	}

	root, _ := Parse("viking://resources/")
	_, atRoot = root.Parent()
	if !atRoot {
		t.Fatalf("expected scope root to report atRoot")
	}
}

func TestHasPrefixAndRewrite(t *testing.T) {
	from, _ := Parse("viking://resources/Auth_Guide/")
	to, _ := Parse("viking://resources/Authentication/")
	child, _ := Parse("viking://resources/Auth_Guide/OAuth_2_0.md")

	if !child.HasPrefix(from) {
		t.Fatalf("expected child to have prefix")
	}

	rewritten, ok := RewritePrefix(child, from, to)
	if !ok {
		t.Fatalf("expected rewrite to succeed")
	}
	if rewritten.String() != "viking://resources/Authentication/OAuth_2_0.md" {
		t.Fatalf("unexpected rewrite result: %s", rewritten.String())
	}
}
