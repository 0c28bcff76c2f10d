// Copyright (c) 2026 Beijing Volcano Engine Technology Co., Ltd.
// SPDX-License-Identifier: Apache-2.0

package queue

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryBackend is an in-process Backend, used by tests and single-process
// deployments that don't need durability across restarts: a map of
// messages guarded by one mutex, with the dependency check run at Claim.
type MemoryBackend struct {
	mu       sync.Mutex
	messages map[string]*SemanticMsg
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{messages: make(map[string]*SemanticMsg)}
}

func (b *MemoryBackend) Enqueue(ctx context.Context, scope, dirURI string, depth int) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, m := range b.messages {
		if m.Scope == scope && m.URI == dirURI && (m.Status == StatusPending || m.Status == StatusProcessing) {
			return nil
		}
	}
	id, err := uuid.NewV7()
	if err != nil {
		return err
	}
	b.messages[id.String()] = &SemanticMsg{
		ID: id.String(), Scope: scope, URI: dirURI, Depth: depth,
		Status: StatusPending, EnqueuedAt: time.Now(),
	}
	return nil
}

func (b *MemoryBackend) Claim(ctx context.Context, scope string) (*SemanticMsg, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	var candidates []*SemanticMsg
	for _, m := range b.messages {
		if m.Scope == scope && m.Status == StatusPending {
			candidates = append(candidates, m)
		}
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Depth != candidates[j].Depth {
			return candidates[i].Depth > candidates[j].Depth
		}
		return candidates[i].URI < candidates[j].URI
	})

	for _, m := range candidates {
		if b.hasOutstandingDescendant(scope, m.URI) {
			continue
		}
		now := time.Now()
		m.Status = StatusProcessing
		m.Attempts++
		m.ClaimedAt = &now
		return m, nil
	}
	return nil, ErrEmpty
}

// hasOutstandingDescendant reports whether any message strictly under
// dirURI is pending or processing, the dependency-ordering check.
func (b *MemoryBackend) hasOutstandingDescendant(scope, dirURI string) bool {
	for _, m := range b.messages {
		if m.Scope != scope || m.URI == dirURI {
			continue
		}
		if !strings.HasPrefix(m.URI, dirURI) {
			continue
		}
		if m.Status == StatusPending || m.Status == StatusProcessing {
			return true
		}
	}
	return false
}

func (b *MemoryBackend) Complete(ctx context.Context, id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	m, ok := b.messages[id]
	if !ok {
		return ErrNotFound
	}
	m.Status = StatusCompleted
	return nil
}

func (b *MemoryBackend) Fail(ctx context.Context, id string, retryable bool, msg string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	m, ok := b.messages[id]
	if !ok {
		return ErrNotFound
	}
	m.Error = msg
	if retryable && m.Attempts < MaxAttempts {
		m.Status = StatusPending
		m.ClaimedAt = nil
		return nil
	}
	m.Status = StatusFailed
	return nil
}

func (b *MemoryBackend) ReclaimExpired(ctx context.Context, olderThan time.Duration) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	cutoff := time.Now().Add(-olderThan)
	for _, m := range b.messages {
		if m.Status == StatusProcessing && m.ClaimedAt != nil && m.ClaimedAt.Before(cutoff) {
			m.Status = StatusPending
			m.ClaimedAt = nil
			n++
		}
	}
	return n, nil
}

func (b *MemoryBackend) Close() error { return nil }
