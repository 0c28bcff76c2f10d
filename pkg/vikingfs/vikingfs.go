// Copyright (c) 2026 Beijing Volcano Engine Technology Co., Ltd.
// SPDX-License-Identifier: Apache-2.0

// Package vikingfs implements the consistency layer: URI resolution
// over AGFS, atomic-per-record cross-store operations against the vector
// index, and relation management. It is the only component permitted to
// mutate AGFS or the index directly: everything else goes through
// these operations.
//
// AGFS owns bytes; VikingFS owns URI semantics and keeps the two stores
// consistent.
package vikingfs

import (
	"context"
	"time"

	"github.com/openviking/openviking/pkg/agfs"
	"github.com/openviking/openviking/pkg/errs"
	"github.com/openviking/openviking/pkg/uri"
	"github.com/openviking/openviking/pkg/vectorindex"
)

const (
	abstractFile = ".abstract.md"
	overviewFile = ".overview.md"
)

// Enqueuer schedules a SemanticMsg for the given directory URI; write
// enqueues one for each ancestor up to the scope root. Implemented by
// pkg/queue; kept as a narrow interface here to avoid an import cycle
// between vikingfs and queue.
type Enqueuer interface {
	Enqueue(ctx context.Context, dirURI string) error
}

// VikingFS binds one AGFS backend, one vector index, and an optional
// enqueuer into the URI-addressed filesystem operations.
type VikingFS struct {
	Backend agfs.Backend
	Index   vectorindex.Index
	Queue   Enqueuer
}

// New creates a VikingFS over the given backend and index. queue may be
// nil, in which case write() skips SemanticMsg scheduling (useful for
// tests that only exercise AGFS/index consistency).
func New(backend agfs.Backend, index vectorindex.Index, queue Enqueuer) *VikingFS {
	return &VikingFS{Backend: backend, Index: index, Queue: queue}
}

// Ls lists the immediate children of a directory URI.
func (v *VikingFS) Ls(ctx context.Context, rawURI string) ([]agfs.Entry, error) {
	u, err := uri.Parse(rawURI)
	if err != nil {
		return nil, errs.New(errs.KindInvalidInput, rawURI, err)
	}
	entries, err := v.Backend.List(ctx, u.Path())
	if err != nil {
		return nil, wrapAGFSErr(err, rawURI)
	}
	return entries, nil
}

// Read returns the L2 (full) content of a leaf URI.
func (v *VikingFS) Read(ctx context.Context, rawURI string) ([]byte, error) {
	u, err := uri.Parse(rawURI)
	if err != nil {
		return nil, errs.New(errs.KindInvalidInput, rawURI, err)
	}
	data, err := v.Backend.Read(ctx, u.Path())
	if err != nil {
		return nil, wrapAGFSErr(err, rawURI)
	}
	return data, nil
}

// Write creates parent directories, writes the leaf's bytes, and enqueues a
// SemanticMsg for every ancestor directory up to the scope root. The
// AGFS write happens before enqueue so a crash between the two steps is
// safe to recover from the AGFS state.
func (v *VikingFS) Write(ctx context.Context, rawURI string, data []byte) error {
	u, err := uri.Parse(rawURI)
	if err != nil {
		return errs.New(errs.KindInvalidInput, rawURI, err)
	}
	if err := v.Backend.Write(ctx, u.Path(), data); err != nil {
		return errs.New(errs.KindFatalBackend, rawURI, err)
	}
	if v.Queue == nil {
		return nil
	}
	anc, atRoot := u.Parent()
	for anc != nil {
		if err := v.Queue.Enqueue(ctx, anc.String()); err != nil {
			return errs.New(errs.KindTransientBackend, anc.String(), err)
		}
		if atRoot {
			break
		}
		anc, atRoot = anc.Parent()
	}
	return nil
}

// Mkdir is idempotent.
func (v *VikingFS) Mkdir(ctx context.Context, rawURI string) error {
	u, err := uri.Parse(rawURI)
	if err != nil {
		return errs.New(errs.KindInvalidInput, rawURI, err)
	}
	if err := v.Backend.Mkdir(ctx, u.Path()); err != nil {
		return errs.New(errs.KindFatalBackend, rawURI, err)
	}
	return nil
}

// Rm removes the index records first and the AGFS entry second. Readers
// treat missing AGFS content on a live index record as NotFound, so a
// reader racing this call sees either the old, fully-present state or
// the new, fully-absent one, never a live index record pointing at
// deleted content.
func (v *VikingFS) Rm(ctx context.Context, rawURI string, recursive bool) error {
	u, err := uri.Parse(rawURI)
	if err != nil {
		return errs.New(errs.KindInvalidInput, rawURI, err)
	}
	if _, err := v.Index.DeletePrefix(ctx, u.String()); err != nil {
		return errs.New(errs.KindTransientBackend, rawURI, err)
	}
	if err := v.Backend.Rm(ctx, u.Path(), recursive); err != nil {
		return wrapAGFSErr(err, rawURI)
	}
	return nil
}

// Mv renames src's subtree: AGFS move, then index uri/parent_uri rewrite
// for every record under src, then relation-file target rewrites.
// Each step is independently resumable: a retry observes
// ErrNotFound from the already-moved step and the AGFS rename's presence
// at dst is proof mv already ran the first leg.
func (v *VikingFS) Mv(ctx context.Context, rawSrc, rawDst string) error {
	src, err := uri.Parse(rawSrc)
	if err != nil {
		return errs.New(errs.KindInvalidInput, rawSrc, err)
	}
	dst, err := uri.Parse(rawDst)
	if err != nil {
		return errs.New(errs.KindInvalidInput, rawDst, err)
	}

	if err := v.Backend.Mv(ctx, src.Path(), dst.Path()); err != nil {
		// A retry after the AGFS leg already ran finds src gone and dst
		// present; go on to the index and relation legs in that case.
		if err != agfs.ErrNotFound {
			return wrapAGFSErr(err, rawSrc)
		}
		if _, statErr := v.Backend.Stat(ctx, dst.Path()); statErr != nil {
			return wrapAGFSErr(err, rawSrc)
		}
	}

	if err := v.rewriteIndexPrefix(ctx, src, dst); err != nil {
		return err
	}

	return v.rewriteRelationsPrefix(ctx, src.String(), dst.String())
}

func (v *VikingFS) rewriteIndexPrefix(ctx context.Context, src, dst *uri.URI) error {
	const batch = 256
	for {
		matches, err := v.Index.Search(ctx, nil, nil, vectorindex.Filter{"uri_prefix": src.String()}, batch, 0)
		if err != nil {
			return errs.New(errs.KindTransientBackend, src.String(), err)
		}
		if len(matches) == 0 {
			return nil
		}
		for _, m := range matches {
			u, err := uri.Parse(m.URI)
			if err != nil {
				continue
			}
			rewritten, ok := uri.RewritePrefix(u, src, dst)
			if !ok {
				continue
			}
			fields := vectorindex.Fields{"uri": rewritten.String()}
			if p, atRoot := rewritten.Parent(); !atRoot {
				fields["parent_uri"] = p.String()
			}
			if err := v.Index.UpdateFields(ctx, m.URI, fields); err != nil {
				return errs.New(errs.KindTransientBackend, m.URI, err)
			}
		}
		if len(matches) < batch {
			return nil
		}
	}
}

func (v *VikingFS) rewriteRelationsPrefix(ctx context.Context, oldPrefix, newPrefix string) error {
	entries, err := v.Backend.List(ctx, "")
	if err != nil {
		return nil // best-effort: no root listing capability, skip relation rewrite
	}
	return v.walkRewriteRelations(ctx, "", entries, oldPrefix, newPrefix)
}

func (v *VikingFS) walkRewriteRelations(ctx context.Context, base string, entries []agfs.Entry, oldPrefix, newPrefix string) error {
	for _, e := range entries {
		if !e.IsDir {
			continue
		}
		rels, err := loadRelations(ctx, v.Backend, e.Path)
		if err == nil && rewriteRelationTargets(rels, oldPrefix, newPrefix) {
			_ = saveRelations(ctx, v.Backend, e.Path, rels)
		}
		children, err := v.Backend.List(ctx, e.Path)
		if err != nil {
			continue
		}
		if err := v.walkRewriteRelations(ctx, e.Path, children, oldPrefix, newPrefix); err != nil {
			return err
		}
	}
	return nil
}

// Abstract returns a directory's L0 abstract, or "" if not yet generated.
func (v *VikingFS) Abstract(ctx context.Context, rawURI string) (string, error) {
	return v.readTierFile(ctx, rawURI, abstractFile)
}

// Overview returns a directory's L1 overview, or "" if not yet generated.
func (v *VikingFS) Overview(ctx context.Context, rawURI string) (string, error) {
	return v.readTierFile(ctx, rawURI, overviewFile)
}

func (v *VikingFS) readTierFile(ctx context.Context, rawURI, name string) (string, error) {
	u, err := uri.Parse(rawURI)
	if err != nil {
		return "", errs.New(errs.KindInvalidInput, rawURI, err)
	}
	data, err := v.Backend.Read(ctx, u.Path()+"/"+name)
	if err != nil {
		if err == agfs.ErrNotFound {
			return "", nil
		}
		return "", wrapAGFSErr(err, rawURI)
	}
	return string(data), nil
}

// Relations returns the ordered relation list for uri, or an empty slice.
func (v *VikingFS) Relations(ctx context.Context, rawURI string) ([]Relation, error) {
	u, err := uri.Parse(rawURI)
	if err != nil {
		return nil, errs.New(errs.KindInvalidInput, rawURI, err)
	}
	rels, err := loadRelations(ctx, v.Backend, u.Path())
	if err != nil {
		return nil, errs.New(errs.KindFatalBackend, rawURI, err)
	}
	if rels == nil {
		rels = []Relation{}
	}
	return rels, nil
}

// Link merges new relations from into to targets into from's
// .relations.json, deduplicating by target_uri and preserving order.
func (v *VikingFS) Link(ctx context.Context, from string, to []string, reason string, now time.Time) error {
	u, err := uri.Parse(from)
	if err != nil {
		return errs.New(errs.KindInvalidInput, from, err)
	}
	existing, err := loadRelations(ctx, v.Backend, u.Path())
	if err != nil {
		return errs.New(errs.KindFatalBackend, from, err)
	}
	additions := make([]Relation, 0, len(to))
	for _, t := range to {
		additions = append(additions, Relation{TargetURI: t, Reason: reason, CreatedAt: now})
	}
	merged := mergeRelations(existing, additions)
	return saveRelations(ctx, v.Backend, u.Path(), merged)
}

func wrapAGFSErr(err error, uri string) error {
	switch err {
	case agfs.ErrNotFound:
		return errs.New(errs.KindNotFound, uri, err)
	case agfs.ErrAlreadyExists:
		return errs.New(errs.KindConflict, uri, err)
	case agfs.ErrIsDirectory, agfs.ErrNotADirectory:
		return errs.New(errs.KindInvalidInput, uri, err)
	default:
		return errs.New(errs.KindFatalBackend, uri, err)
	}
}
