// Copyright (c) 2026 Beijing Volcano Engine Technology Co., Ltd.
// SPDX-License-Identifier: Apache-2.0

package vikingfs

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"time"

	"github.com/openviking/openviking/pkg/agfs"
)

const relationsFile = ".relations.json"

// Relation is one directed edge recorded in a directory's .relations.json.
// Relations do not imply ownership and may form cycles; traversal during
// retrieval bounds itself with a visited set, never this type.
type Relation struct {
	TargetURI string    `json:"target_uri"`
	Reason    string    `json:"reason"`
	CreatedAt time.Time `json:"created_at"`
}

func loadRelations(ctx context.Context, backend agfs.Backend, dirPath string) ([]Relation, error) {
	data, err := backend.Read(ctx, dirPath+"/"+relationsFile)
	if err != nil {
		if err == agfs.ErrNotFound {
			return nil, nil
		}
		return nil, err
	}
	var rels []Relation
	if err := json.Unmarshal(data, &rels); err != nil {
		return nil, err
	}
	return rels, nil
}

func saveRelations(ctx context.Context, backend agfs.Backend, dirPath string, rels []Relation) error {
	sortRelations(rels)
	data, err := json.MarshalIndent(rels, "", "  ")
	if err != nil {
		return err
	}
	return backend.Write(ctx, dirPath+"/"+relationsFile, data)
}

// sortRelations applies the canonical order: created_at ascending,
// target_uri ascending as a tiebreak.
func sortRelations(rels []Relation) {
	sort.SliceStable(rels, func(i, j int) bool {
		if !rels[i].CreatedAt.Equal(rels[j].CreatedAt) {
			return rels[i].CreatedAt.Before(rels[j].CreatedAt)
		}
		return rels[i].TargetURI < rels[j].TargetURI
	})
}

// mergeRelations merges additions into existing, deduplicating by
// target_uri and preserving the earliest created_at on conflict.
func mergeRelations(existing []Relation, additions []Relation) []Relation {
	byTarget := make(map[string]Relation, len(existing))
	order := make([]string, 0, len(existing))
	for _, r := range existing {
		if _, ok := byTarget[r.TargetURI]; !ok {
			order = append(order, r.TargetURI)
		}
		byTarget[r.TargetURI] = r
	}
	for _, r := range additions {
		if prev, ok := byTarget[r.TargetURI]; ok {
			if r.CreatedAt.Before(prev.CreatedAt) {
				prev.CreatedAt = r.CreatedAt
				prev.Reason = r.Reason
				byTarget[r.TargetURI] = prev
			}
			continue
		}
		byTarget[r.TargetURI] = r
		order = append(order, r.TargetURI)
	}
	out := make([]Relation, 0, len(order))
	for _, t := range order {
		out = append(out, byTarget[t])
	}
	return out
}

// rewriteRelationTargets rewrites every relation target that falls under
// oldPrefix to the equivalent path under newPrefix, used by mv's final
// relation-rewrite leg.
func rewriteRelationTargets(rels []Relation, oldPrefix, newPrefix string) bool {
	changed := false
	for i, r := range rels {
		if r.TargetURI == oldPrefix || strings.HasPrefix(r.TargetURI, oldPrefix+"/") {
			rels[i].TargetURI = newPrefix + strings.TrimPrefix(r.TargetURI, oldPrefix)
			changed = true
		}
	}
	return changed
}
