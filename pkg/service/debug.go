// Copyright (c) 2026 Beijing Volcano Engine Technology Co., Ltd.
// SPDX-License-Identifier: Apache-2.0

// Package service holds cross-cutting helpers the HTTP and CLI surfaces
// share: backend health checks (DebugService) and subtree export/import
// bundles (PackService). Context and relation CRUD belong to
// pkg/vikingfs, not here.
package service

import (
	"context"
	"time"

	"github.com/openviking/openviking/pkg/agfs"
	"github.com/openviking/openviking/pkg/queue"
	"github.com/openviking/openviking/pkg/vectorindex"
)

// DebugService reports the health of the three backing stores behind
// VikingFS: the AGFS byte store, the vector index, and the semantic
// processing queue.
type DebugService struct {
	queueBackend queue.Backend
	vectorIndex  vectorindex.Index
	agfsBackend  agfs.Backend
}

// NewDebugService creates a debug service with no backing stores wired in
// yet; use the Set* methods once they're constructed.
func NewDebugService() *DebugService {
	return &DebugService{}
}

// SetQueueBackend wires the semantic processing queue.
func (s *DebugService) SetQueueBackend(q queue.Backend) {
	s.queueBackend = q
}

// SetVectorIndex wires the vector index.
func (s *DebugService) SetVectorIndex(idx vectorindex.Index) {
	s.vectorIndex = idx
}

// SetAGFSBackend wires the AGFS byte store.
func (s *DebugService) SetAGFSBackend(b agfs.Backend) {
	s.agfsBackend = b
}

// ComponentStatus reports one backing store's health.
type ComponentStatus struct {
	Name         string         `json:"name"`
	Status       string         `json:"status"` // "healthy", "degraded", "down"
	LatencyMs    int64          `json:"latency_ms,omitempty"`
	ErrorMessage string         `json:"error_message,omitempty"`
	Details      map[string]any `json:"details,omitempty"`
}

// ComponentHealthCheck probes one named component ("queue", "vector_store",
// "storage") with a cheap, non-mutating read against its real backend.
func (s *DebugService) ComponentHealthCheck(ctx context.Context, component string) (*ComponentStatus, error) {
	start := time.Now()
	status := &ComponentStatus{Name: component, Status: "healthy"}

	switch component {
	case "queue":
		if s.queueBackend == nil {
			status.Status = "degraded"
			status.Details = map[string]any{"message": "queue backend not configured"}
		} else if _, err := s.queueBackend.ReclaimExpired(ctx, 365*24*time.Hour); err != nil {
			status.Status = "down"
			status.ErrorMessage = err.Error()
		} else {
			status.Details = map[string]any{"message": "queue backend operational"}
		}
	case "vector_store":
		if s.vectorIndex == nil {
			status.Status = "degraded"
			status.Details = map[string]any{"message": "vector index not configured"}
		} else if count, err := s.vectorIndex.CountPrefix(ctx, ""); err != nil {
			status.Status = "down"
			status.ErrorMessage = err.Error()
		} else {
			status.Details = map[string]any{"total_records": count}
		}
	case "storage":
		if s.agfsBackend == nil {
			status.Status = "degraded"
			status.Details = map[string]any{"message": "AGFS backend not configured"}
		} else if entries, err := s.agfsBackend.List(ctx, ""); err != nil {
			status.Status = "down"
			status.ErrorMessage = err.Error()
		} else {
			status.Details = map[string]any{"root_entries": len(entries)}
		}
	default:
		status.Status = "unknown"
		status.ErrorMessage = "unknown component"
	}

	status.LatencyMs = time.Since(start).Milliseconds()
	return status, nil
}

// OverallStatus checks all three backing stores.
func (s *DebugService) OverallStatus(ctx context.Context) (map[string]*ComponentStatus, error) {
	components := []string{"queue", "vector_store", "storage"}
	result := make(map[string]*ComponentStatus, len(components))

	for _, comp := range components {
		status, err := s.ComponentHealthCheck(ctx, comp)
		if err != nil {
			return nil, err
		}
		result[comp] = status
	}

	return result, nil
}

// GetDetailedStatus adds per-backend counts to OverallStatus's health
// summary, for the CLI/HTTP debug surface.
func (s *DebugService) GetDetailedStatus(ctx context.Context) (map[string]any, error) {
	components, err := s.OverallStatus(ctx)
	if err != nil {
		return nil, err
	}
	status := map[string]any{"components": components}

	if s.vectorIndex != nil {
		if count, err := s.vectorIndex.CountPrefix(ctx, ""); err == nil {
			status["vector_store"] = map[string]any{"total_records": count}
		}
	}
	if s.agfsBackend != nil {
		if entries, err := s.agfsBackend.List(ctx, ""); err == nil {
			status["storage"] = map[string]any{"root_entries": len(entries)}
		}
	}

	return status, nil
}
