// Copyright (c) 2026 Beijing Volcano Engine Technology Co., Ltd.
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/openviking/openviking/pkg/vikingfs"
)

// MemoryWriter persists extracted memories as ordinary leaf writes under
// viking://user/{userID}/memories/{category}/, so compression output is
// just more ingestible content rather than a separate storage model:
// VikingFS.Write enqueues the usual SemanticMsg chain and the memory
// becomes retrievable the same way any other resource is.
type MemoryWriter struct {
	fs *vikingfs.VikingFS
}

// NewMemoryWriter wraps fs for memory persistence.
func NewMemoryWriter(fs *vikingfs.VikingFS) *MemoryWriter {
	return &MemoryWriter{fs: fs}
}

// Write writes each memory to its own leaf URI under the user's memories
// tree and returns the URIs written, in the same order as memories.
func (w *MemoryWriter) Write(ctx context.Context, userID string, memories []*ExtractedMemory) ([]string, error) {
	uris := make([]string, 0, len(memories))
	for _, m := range memories {
		category := m.Category
		if category == "" {
			category = "uncategorized"
		}
		u := fmt.Sprintf("viking://user/%s/memories/%s/%s.md", userID, category, uuid.New().String())
		if err := w.fs.Write(ctx, u, []byte(m.Content)); err != nil {
			return uris, fmt.Errorf("session: write memory: %w", err)
		}
		uris = append(uris, u)
	}
	return uris, nil
}
