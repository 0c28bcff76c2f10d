// Copyright (c) 2026 Beijing Volcano Engine Technology Co., Ltd.
// SPDX-License-Identifier: Apache-2.0

package agfs

import (
	"context"
	"testing"
)

func backends(t *testing.T) map[string]Backend {
	local, err := NewLocalBackend(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocalBackend: %v", err)
	}
	return map[string]Backend{
		"local":  local,
		"memory": NewMemoryBackend(),
	}
}

func TestWriteReadRoundTrip(t *testing.T) {
	ctx := context.Background()
	for name, b := range backends(t) {
		t.Run(name, func(t *testing.T) {
			if err := b.Write(ctx, "resources/Auth_Guide/OAuth_2_0.md", []byte("hello")); err != nil {
				t.Fatalf("Write: %v", err)
			}
			data, err := b.Read(ctx, "resources/Auth_Guide/OAuth_2_0.md")
			if err != nil {
				t.Fatalf("Read: %v", err)
			}
			if string(data) != "hello" {
				t.Fatalf("expected hello, got %s", data)
			}
		})
	}
}

func TestMkdirIdempotent(t *testing.T) {
	ctx := context.Background()
	for name, b := range backends(t) {
		t.Run(name, func(t *testing.T) {
			if err := b.Mkdir(ctx, "agent/skills"); err != nil {
				t.Fatalf("first Mkdir: %v", err)
			}
			if err := b.Mkdir(ctx, "agent/skills"); err != nil {
				t.Fatalf("second Mkdir should be idempotent: %v", err)
			}
		})
	}
}

func TestRmRecursive(t *testing.T) {
	ctx := context.Background()
	for name, b := range backends(t) {
		t.Run(name, func(t *testing.T) {
			_ = b.Write(ctx, "resources/Auth_Guide/a.md", []byte("a"))
			_ = b.Write(ctx, "resources/Auth_Guide/b.md", []byte("b"))
			if err := b.Rm(ctx, "resources/Auth_Guide", true); err != nil {
				t.Fatalf("Rm: %v", err)
			}
			if _, err := b.Stat(ctx, "resources/Auth_Guide/a.md"); err != ErrNotFound {
				t.Fatalf("expected ErrNotFound after recursive rm, got %v", err)
			}
		})
	}
}

func TestMvRenamesSubtree(t *testing.T) {
	ctx := context.Background()
	for name, b := range backends(t) {
		t.Run(name, func(t *testing.T) {
			_ = b.Write(ctx, "resources/Auth_Guide/a.md", []byte("a"))
			if err := b.Mv(ctx, "resources/Auth_Guide", "resources/Authentication"); err != nil {
				t.Fatalf("Mv: %v", err)
			}
			if _, err := b.Stat(ctx, "resources/Auth_Guide/a.md"); err != ErrNotFound {
				t.Fatalf("expected old path gone")
			}
			data, err := b.Read(ctx, "resources/Authentication/a.md")
			if err != nil || string(data) != "a" {
				t.Fatalf("expected moved content, got %v %v", data, err)
			}
		})
	}
}

func TestListDirectory(t *testing.T) {
	ctx := context.Background()
	for name, b := range backends(t) {
		t.Run(name, func(t *testing.T) {
			_ = b.Write(ctx, "resources/Auth_Guide/a.md", []byte("a"))
			_ = b.Write(ctx, "resources/Auth_Guide/b.md", []byte("b"))
			entries, err := b.List(ctx, "resources/Auth_Guide")
			if err != nil {
				t.Fatalf("List: %v", err)
			}
			if len(entries) != 2 {
				t.Fatalf("expected 2 entries, got %d", len(entries))
			}
		})
	}
}
