// Copyright (c) 2026 Beijing Volcano Engine Technology Co., Ltd.
// SPDX-License-Identifier: Apache-2.0

package intent

import (
	"context"
	"testing"

	"github.com/openviking/openviking/pkg/retrieval"
)

func TestAnalyzeChitChatReturnsNoQueries(t *testing.T) {
	a := New(nil, "")
	plan, err := a.Analyze(context.Background(), "thanks!", nil, "")
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if len(plan.Queries) != 0 {
		t.Errorf("expected 0 queries for chit-chat, got %d", len(plan.Queries))
	}
}

func TestAnalyzeHeuristicFallbackWithoutProvider(t *testing.T) {
	a := New(nil, "")
	plan, err := a.Analyze(context.Background(), "how do I configure the auth guide", nil, "")
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if len(plan.Queries) != 1 {
		t.Fatalf("expected 1 heuristic query, got %d", len(plan.Queries))
	}
	if plan.Queries[0].ContextType != retrieval.ContextTypeResource {
		t.Errorf("context_type = %v, want resource", plan.Queries[0].ContextType)
	}
}

func TestEnforceStyleMemoryBeginsWithUser(t *testing.T) {
	got := enforceStyle(retrieval.ContextTypeMemory, "likes dark mode")
	if got != "user likes dark mode" {
		t.Errorf("got %q", got)
	}
	got = enforceStyle(retrieval.ContextTypeMemory, "User prefers terse answers")
	if got != "User prefers terse answers" {
		t.Errorf("should leave already-compliant memory query unchanged, got %q", got)
	}
}

func TestEnforceStyleSkillVerbInitial(t *testing.T) {
	got := enforceStyle(retrieval.ContextTypeSkill, "the deployment checklist")
	if got != "perform the deployment checklist" {
		t.Errorf("got %q", got)
	}
	got = enforceStyle(retrieval.ContextTypeSkill, "deploy the service")
	if got != "deploy the service" {
		t.Errorf("should leave verb-initial phrase unchanged, got %q", got)
	}
}
