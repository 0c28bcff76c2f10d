// Copyright (c) 2026 Beijing Volcano Engine Technology Co., Ltd.
// SPDX-License-Identifier: Apache-2.0

// Package queue implements the Semantic Queue: a durable, per-scope
// FIFO with bottom-up dependency ordering and at-least-once delivery, plus
// the Processor that drains it into `.abstract.md`/`.overview.md` and
// vector index records.
//
// Ordering is enforced at the scheduler, not the storage layer: every
// Backend implements the same dependency check before handing out a
// claim, so swapping backends never changes processing order.
package queue

import (
	"context"
	"errors"
	"time"
)

// Status is a SemanticMsg's place in the delivery state machine:
// pending -> processing -> {completed, failed(retryable) -> pending} | failed(fatal).
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// MaxAttempts is the retry ceiling; the third failed attempt is fatal.
const MaxAttempts = 3

var (
	ErrNotFound = errors.New("queue: message not found")
	ErrEmpty    = errors.New("queue: no eligible message")
)

// SemanticMsg is one unit of ingestion work for directory URI
type SemanticMsg struct {
	ID         string
	Scope      string
	URI        string
	Depth      int
	Status     Status
	Attempts   int
	Error      string
	EnqueuedAt time.Time
	ClaimedAt  *time.Time
}

// Backend is the pluggable durable-queue contract. Dependency ordering
// (a message for D is eligible only once every descendant directory of D
// is completed or has no outstanding message) is enforced inside each
// Backend's Claim; every backend applies the same Go-level check over the
// URIs of its pending and processing messages rather than a
// storage-specific query.
type Backend interface {
	// Enqueue schedules dirURI for scope at depth, or is a no-op if a
	// pending or processing message for dirURI already exists; enqueue
	// order is irrelevant and re-enqueue is idempotent.
	Enqueue(ctx context.Context, scope, dirURI string, depth int) error

	// Claim atomically picks one eligible pending message (deepest first,
	// then lexicographically smallest URI), marks it processing, bumps
	// Attempts, and returns it. Returns ErrEmpty if nothing is eligible.
	Claim(ctx context.Context, scope string) (*SemanticMsg, error)

	// Complete marks id completed.
	Complete(ctx context.Context, id string) error

	// Fail marks id failed(retryable) -> pending if Attempts < MaxAttempts
	// and retryable is true, else failed(fatal) with msg recorded as
	// Error.
	Fail(ctx context.Context, id string, retryable bool, msg string) error

	// ReclaimExpired re-enqueues processing messages whose ClaimedAt is
	// older than olderThan, per the restart recovery: "scans the queue
	// for processing items whose claim has expired and re-enqueues them."
	ReclaimExpired(ctx context.Context, olderThan time.Duration) (int, error)

	Close() error
}
