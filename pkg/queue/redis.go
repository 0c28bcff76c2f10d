// Copyright (c) 2026 Beijing Volcano Engine Technology Co., Ltd.
// SPDX-License-Identifier: Apache-2.0

package queue

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RedisBackend is the alternate durable Backend of the multi-backend
// note, standing in for the "shared/remote store" class TiDB represents
// in that list. Each message is a hash at queue:msg:<id>; per-scope
// status sets (queue:<scope>:<status>) index it for Claim, following the
// client-construction pattern of the sibling corpus's Redis integrations
// (NewClient + redis.Options + Ping on connect).
type RedisBackend struct {
	client *redis.Client
}

func NewRedisBackend(addr, password string, db int) (*RedisBackend, error) {
	client := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("queue: connect redis: %w", err)
	}
	return &RedisBackend{client: client}, nil
}

func msgKey(id string) string      { return "queue:msg:" + id }
func statusSetKey(scope string, s Status) string { return fmt.Sprintf("queue:%s:%s", scope, s) }

func (b *RedisBackend) Enqueue(ctx context.Context, scope, dirURI string, depth int) error {
	for _, s := range []Status{StatusPending, StatusProcessing} {
		ids, err := b.client.SMembers(ctx, statusSetKey(scope, s)).Result()
		if err != nil {
			return fmt.Errorf("queue: smembers: %w", err)
		}
		for _, id := range ids {
			uri, err := b.client.HGet(ctx, msgKey(id), "uri").Result()
			if err == nil && uri == dirURI {
				return nil
			}
		}
	}

	id, err := uuid.NewV7()
	if err != nil {
		return err
	}
	pipe := b.client.TxPipeline()
	pipe.HSet(ctx, msgKey(id.String()), map[string]any{
		"id": id.String(), "scope": scope, "uri": dirURI, "depth": depth,
		"status": string(StatusPending), "attempts": 0, "error": "",
		"enqueued_at": time.Now().Format(time.RFC3339Nano),
	})
	pipe.SAdd(ctx, statusSetKey(scope, StatusPending), id.String())
	_, err = pipe.Exec(ctx)
	return err
}

func (b *RedisBackend) Claim(ctx context.Context, scope string) (*SemanticMsg, error) {
	pendingIDs, err := b.client.SMembers(ctx, statusSetKey(scope, StatusPending)).Result()
	if err != nil {
		return nil, fmt.Errorf("queue: smembers pending: %w", err)
	}
	processingIDs, err := b.client.SMembers(ctx, statusSetKey(scope, StatusProcessing)).Result()
	if err != nil {
		return nil, fmt.Errorf("queue: smembers processing: %w", err)
	}

	var candidates []*SemanticMsg
	var outstandingURIs []string
	for _, id := range append(append([]string{}, pendingIDs...), processingIDs...) {
		m, err := b.getMsg(ctx, id)
		if err != nil {
			continue
		}
		outstandingURIs = append(outstandingURIs, m.URI)
		if m.Status == StatusPending {
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
		if hasOutstandingDescendantOf(m.URI, outstandingURIs) {
			continue
		}
		now := time.Now()
		pipe := b.client.TxPipeline()
		pipe.SRem(ctx, statusSetKey(scope, StatusPending), m.ID)
		pipe.SAdd(ctx, statusSetKey(scope, StatusProcessing), m.ID)
		pipe.HSet(ctx, msgKey(m.ID), map[string]any{
			"status": string(StatusProcessing), "attempts": m.Attempts + 1,
			"claimed_at": now.Format(time.RFC3339Nano),
		})
		if _, err := pipe.Exec(ctx); err != nil {
			return nil, fmt.Errorf("queue: claim: %w", err)
		}
		m.Status = StatusProcessing
		m.Attempts++
		m.ClaimedAt = &now
		return m, nil
	}
	return nil, ErrEmpty
}

func (b *RedisBackend) getMsg(ctx context.Context, id string) (*SemanticMsg, error) {
	vals, err := b.client.HGetAll(ctx, msgKey(id)).Result()
	if err != nil {
		return nil, err
	}
	if len(vals) == 0 {
		return nil, ErrNotFound
	}
	depth, _ := strconv.Atoi(vals["depth"])
	attempts, _ := strconv.Atoi(vals["attempts"])
	m := &SemanticMsg{
		ID: vals["id"], Scope: vals["scope"], URI: vals["uri"], Depth: depth,
		Status: Status(vals["status"]), Attempts: attempts, Error: vals["error"],
	}
	if t, err := time.Parse(time.RFC3339Nano, vals["enqueued_at"]); err == nil {
		m.EnqueuedAt = t
	}
	if c, ok := vals["claimed_at"]; ok && c != "" {
		if t, err := time.Parse(time.RFC3339Nano, c); err == nil {
			m.ClaimedAt = &t
		}
	}
	return m, nil
}

func (b *RedisBackend) Complete(ctx context.Context, id string) error {
	m, err := b.getMsg(ctx, id)
	if err != nil {
		return err
	}
	pipe := b.client.TxPipeline()
	pipe.SRem(ctx, statusSetKey(m.Scope, m.Status), id)
	pipe.SAdd(ctx, statusSetKey(m.Scope, StatusCompleted), id)
	pipe.HSet(ctx, msgKey(id), "status", string(StatusCompleted))
	_, err = pipe.Exec(ctx)
	return err
}

func (b *RedisBackend) Fail(ctx context.Context, id string, retryable bool, msg string) error {
	m, err := b.getMsg(ctx, id)
	if err != nil {
		return err
	}
	newStatus := StatusFailed
	if retryable && m.Attempts < MaxAttempts {
		newStatus = StatusPending
	}
	pipe := b.client.TxPipeline()
	pipe.SRem(ctx, statusSetKey(m.Scope, m.Status), id)
	pipe.SAdd(ctx, statusSetKey(m.Scope, newStatus), id)
	pipe.HSet(ctx, msgKey(id), map[string]any{"status": string(newStatus), "error": msg, "claimed_at": ""})
	_, err = pipe.Exec(ctx)
	return err
}

func (b *RedisBackend) ReclaimExpired(ctx context.Context, olderThan time.Duration) (int, error) {
	cutoff := time.Now().Add(-olderThan)
	keys, err := b.client.Keys(ctx, "queue:msg:*").Result()
	if err != nil {
		return 0, fmt.Errorf("queue: keys: %w", err)
	}
	n := 0
	for _, key := range keys {
		id := strings.TrimPrefix(key, "queue:msg:")
		m, err := b.getMsg(ctx, id)
		if err != nil || m.Status != StatusProcessing || m.ClaimedAt == nil || !m.ClaimedAt.Before(cutoff) {
			continue
		}
		pipe := b.client.TxPipeline()
		pipe.SRem(ctx, statusSetKey(m.Scope, StatusProcessing), id)
		pipe.SAdd(ctx, statusSetKey(m.Scope, StatusPending), id)
		pipe.HSet(ctx, msgKey(id), map[string]any{"status": string(StatusPending), "claimed_at": ""})
		if _, err := pipe.Exec(ctx); err == nil {
			n++
		}
	}
	return n, nil
}

func (b *RedisBackend) Close() error { return b.client.Close() }
