// Copyright (c) 2026 Beijing Volcano Engine Technology Co., Ltd.
// SPDX-License-Identifier: Apache-2.0

package queue

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

// SQLiteBackend is the default durable Backend: a sql.DB over go-sqlite3
// with CREATE-TABLE-IF-NOT-EXISTS schema init and one semantic_messages
// table.
type SQLiteBackend struct {
	db *sql.DB
}

func NewSQLiteBackend(dbPath string) (*SQLiteBackend, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("queue: open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1) // SQLite: serialize writers to avoid SQLITE_BUSY on the queue table
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("queue: ping sqlite: %w", err)
	}
	b := &SQLiteBackend{db: db}
	if err := b.initSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return b, nil
}

func (b *SQLiteBackend) initSchema() error {
	_, err := b.db.Exec(`CREATE TABLE IF NOT EXISTS semantic_messages (
		id TEXT PRIMARY KEY,
		scope TEXT NOT NULL,
		uri TEXT NOT NULL,
		depth INTEGER NOT NULL,
		status TEXT NOT NULL,
		attempts INTEGER DEFAULT 0,
		error TEXT,
		enqueued_at TEXT NOT NULL,
		claimed_at TEXT
	)`)
	if err != nil {
		return fmt.Errorf("queue: init schema: %w", err)
	}
	_, err = b.db.Exec(`CREATE INDEX IF NOT EXISTS idx_semantic_messages_scope_status ON semantic_messages(scope, status)`)
	return err
}

func (b *SQLiteBackend) Enqueue(ctx context.Context, scope, dirURI string, depth int) error {
	var existing int
	err := b.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM semantic_messages
		WHERE scope = ? AND uri = ? AND status IN ('pending', 'processing')`, scope, dirURI).Scan(&existing)
	if err != nil {
		return fmt.Errorf("queue: check existing: %w", err)
	}
	if existing > 0 {
		return nil
	}

	id, err := uuid.NewV7()
	if err != nil {
		return err
	}
	_, err = b.db.ExecContext(ctx, `INSERT INTO semantic_messages
		(id, scope, uri, depth, status, attempts, enqueued_at) VALUES (?, ?, ?, ?, ?, 0, ?)`,
		id.String(), scope, dirURI, depth, StatusPending, time.Now().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("queue: insert: %w", err)
	}
	return nil
}

func (b *SQLiteBackend) Claim(ctx context.Context, scope string) (*SemanticMsg, error) {
	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("queue: begin tx: %w", err)
	}
	defer tx.Rollback()

	rows, err := tx.QueryContext(ctx, `SELECT id, uri, depth FROM semantic_messages
		WHERE scope = ? AND status = ? ORDER BY depth DESC, uri ASC`, scope, StatusPending)
	if err != nil {
		return nil, fmt.Errorf("queue: query candidates: %w", err)
	}
	type candidate struct {
		id, uri string
		depth   int
	}
	var candidates []candidate
	for rows.Next() {
		var c candidate
		if err := rows.Scan(&c.id, &c.uri, &c.depth); err != nil {
			rows.Close()
			return nil, err
		}
		candidates = append(candidates, c)
	}
	rows.Close()

	outstandingRows, err := tx.QueryContext(ctx, `SELECT uri FROM semantic_messages
		WHERE scope = ? AND status IN ('pending', 'processing')`, scope)
	if err != nil {
		return nil, fmt.Errorf("queue: query outstanding: %w", err)
	}
	var outstanding []string
	for outstandingRows.Next() {
		var u string
		if err := outstandingRows.Scan(&u); err != nil {
			outstandingRows.Close()
			return nil, err
		}
		outstanding = append(outstanding, u)
	}
	outstandingRows.Close()

	for _, c := range candidates {
		if hasOutstandingDescendantOf(c.uri, outstanding) {
			continue
		}
		now := time.Now()
		_, err := tx.ExecContext(ctx, `UPDATE semantic_messages
			SET status = ?, attempts = attempts + 1, claimed_at = ? WHERE id = ?`,
			StatusProcessing, now.Format(time.RFC3339Nano), c.id)
		if err != nil {
			return nil, fmt.Errorf("queue: claim update: %w", err)
		}
		if err := tx.Commit(); err != nil {
			return nil, fmt.Errorf("queue: commit claim: %w", err)
		}
		return b.Get(ctx, c.id)
	}
	return nil, ErrEmpty
}

func hasOutstandingDescendantOf(dirURI string, outstanding []string) bool {
	for _, u := range outstanding {
		if u == dirURI {
			continue
		}
		if len(u) > len(dirURI) && u[:len(dirURI)] == dirURI {
			return true
		}
	}
	return false
}

// Get reads one message by id, used internally after Claim commits.
func (b *SQLiteBackend) Get(ctx context.Context, id string) (*SemanticMsg, error) {
	row := b.db.QueryRowContext(ctx, `SELECT id, scope, uri, depth, status, attempts, error, enqueued_at, claimed_at
		FROM semantic_messages WHERE id = ?`, id)
	return scanMsg(row)
}

func scanMsg(row *sql.Row) (*SemanticMsg, error) {
	var m SemanticMsg
	var errStr sql.NullString
	var enqueuedAt string
	var claimedAt sql.NullString
	if err := row.Scan(&m.ID, &m.Scope, &m.URI, &m.Depth, &m.Status, &m.Attempts, &errStr, &enqueuedAt, &claimedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, err
	}
	m.Error = errStr.String
	if t, err := time.Parse(time.RFC3339Nano, enqueuedAt); err == nil {
		m.EnqueuedAt = t
	}
	if claimedAt.Valid {
		if t, err := time.Parse(time.RFC3339Nano, claimedAt.String); err == nil {
			m.ClaimedAt = &t
		}
	}
	return &m, nil
}

func (b *SQLiteBackend) Complete(ctx context.Context, id string) error {
	res, err := b.db.ExecContext(ctx, `UPDATE semantic_messages SET status = ? WHERE id = ?`, StatusCompleted, id)
	if err != nil {
		return fmt.Errorf("queue: complete: %w", err)
	}
	return checkAffected(res)
}

func (b *SQLiteBackend) Fail(ctx context.Context, id string, retryable bool, msg string) error {
	var attempts int
	if err := b.db.QueryRowContext(ctx, `SELECT attempts FROM semantic_messages WHERE id = ?`, id).Scan(&attempts); err != nil {
		if err == sql.ErrNoRows {
			return ErrNotFound
		}
		return err
	}
	status := StatusFailed
	var claimedAt any = nil
	if retryable && attempts < MaxAttempts {
		status = StatusPending
	}
	res, err := b.db.ExecContext(ctx, `UPDATE semantic_messages SET status = ?, error = ?, claimed_at = ? WHERE id = ?`,
		status, msg, claimedAt, id)
	if err != nil {
		return fmt.Errorf("queue: fail: %w", err)
	}
	return checkAffected(res)
}

func checkAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (b *SQLiteBackend) ReclaimExpired(ctx context.Context, olderThan time.Duration) (int, error) {
	cutoff := time.Now().Add(-olderThan).Format(time.RFC3339Nano)
	res, err := b.db.ExecContext(ctx, `UPDATE semantic_messages SET status = ?, claimed_at = NULL
		WHERE status = ? AND claimed_at < ?`, StatusPending, StatusProcessing, cutoff)
	if err != nil {
		return 0, fmt.Errorf("queue: reclaim expired: %w", err)
	}
	n, err := res.RowsAffected()
	return int(n), err
}

func (b *SQLiteBackend) Close() error { return b.db.Close() }
