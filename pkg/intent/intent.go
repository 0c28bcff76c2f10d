// Copyright (c) 2026 Beijing Volcano Engine Technology Co., Ltd.
// SPDX-License-Identifier: Apache-2.0

// Package intent implements the Intent Analyzer: turning a user
// query plus session context into 0-5 typed queries the Hierarchical
// Retriever can run.
//
// A deterministic chit-chat pre-filter runs ahead of the LLM call so
// pure acknowledgements never cost a model round-trip.
package intent

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"unicode"

	"github.com/openviking/openviking/pkg/llm"
	"github.com/openviking/openviking/pkg/retrieval"
)

// MaxQueries is the output bound.
const MaxQueries = 5

// Analyzer turns a query plus recent session context into a QueryPlan.
type Analyzer struct {
	Provider llm.Provider
	Model    string
}

// New creates an Analyzer. provider may be nil, in which case Analyze
// only ever runs the chit-chat pre-filter and otherwise returns a single
// resource query derived from the raw text.
func New(provider llm.Provider, model string) *Analyzer {
	return &Analyzer{Provider: provider, Model: model}
}

// chitChatPattern matches pure acknowledgements and greetings that carry
// no retrieval value.
var chitChatPattern = regexp.MustCompile(`^(hi|hello|hey|thanks|thank you|ok|okay|got it|cool|great|sure|yep|yes|no|bye|goodbye)[.!? ]*$`)

// isChitChat reports whether text is a pure acknowledgement with no
// retrieval value.
func isChitChat(text string) bool {
	normalized := strings.ToLower(strings.TrimSpace(text))
	if normalized == "" {
		return true
	}
	return chitChatPattern.MatchString(normalized)
}

// Analyze runs the Intent Analyzer: the chit-chat pre-filter first, then
// (if the provider is configured) an LLM call that proposes a QueryPlan,
// each TypedQuery then coerced to its per-type style constraint.
func (a *Analyzer) Analyze(ctx context.Context, userQuery string, lastMessages []string, sessionSummary string) (*retrieval.QueryPlan, error) {
	if isChitChat(userQuery) {
		return &retrieval.QueryPlan{SessionContext: sessionSummary, Reasoning: "chit-chat, no retrieval value"}, nil
	}

	if a.Provider == nil {
		return a.heuristicPlan(userQuery), nil
	}

	plan, err := a.llmPlan(ctx, userQuery, lastMessages, sessionSummary)
	if err != nil {
		return a.heuristicPlan(userQuery), nil
	}
	return plan, nil
}

// heuristicPlan is the no-LLM fallback: a single resource-typed query
// built directly from the user's text, used when no provider is
// configured or the LLM call fails.
func (a *Analyzer) heuristicPlan(userQuery string) *retrieval.QueryPlan {
	q := retrieval.TypedQuery{
		Query:       enforceStyle(retrieval.ContextTypeResource, userQuery),
		ContextType: retrieval.ContextTypeResource,
		Intent:      "lookup",
		Priority:    1,
	}
	return &retrieval.QueryPlan{Queries: []retrieval.TypedQuery{q}, Reasoning: "heuristic: no LLM provider configured"}
}

type planQuery struct {
	Query       string `json:"query"`
	ContextType string `json:"context_type"`
	Intent      string `json:"intent"`
	Priority    int    `json:"priority"`
}

type planResponse struct {
	Queries   []planQuery `json:"queries"`
	Reasoning string      `json:"reasoning"`
}

func (a *Analyzer) llmPlan(ctx context.Context, userQuery string, lastMessages []string, sessionSummary string) (*retrieval.QueryPlan, error) {
	const lastN = 5
	if len(lastMessages) > lastN {
		lastMessages = lastMessages[len(lastMessages)-lastN:]
	}

	var b strings.Builder
	b.WriteString("You analyze a user query against session context and propose up to 5 typed retrieval queries.\n")
	b.WriteString("context_type is one of: memory, resource, skill.\n")
	b.WriteString("Style per type: skill queries are verb-initial imperative phrases; resource queries are noun phrases; memory queries begin with \"user\".\n")
	b.WriteString("Respond with JSON only: {\"queries\": [{\"query\":...,\"context_type\":...,\"intent\":...,\"priority\":...}], \"reasoning\": \"...\"}\n\n")
	if sessionSummary != "" {
		fmt.Fprintf(&b, "Session summary: %s\n", sessionSummary)
	}
	for _, m := range lastMessages {
		fmt.Fprintf(&b, "Recent: %s\n", m)
	}
	fmt.Fprintf(&b, "\nUser query: %s\n", userQuery)

	resp, err := a.Provider.Chat(ctx, &llm.ChatRequest{
		Model:       a.Model,
		Messages:    []llm.Message{{Role: llm.RoleUser, Content: b.String()}},
		Temperature: 0,
	})
	if err != nil {
		return nil, fmt.Errorf("intent: llm call: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("intent: empty response")
	}

	var parsed planResponse
	content := extractJSON(resp.Choices[0].Message.Content)
	if err := json.Unmarshal([]byte(content), &parsed); err != nil {
		return nil, fmt.Errorf("intent: parse response: %w", err)
	}

	queries := make([]retrieval.TypedQuery, 0, len(parsed.Queries))
	for _, q := range parsed.Queries {
		if len(queries) >= MaxQueries {
			break
		}
		ct := retrieval.ContextType(q.ContextType)
		switch ct {
		case retrieval.ContextTypeMemory, retrieval.ContextTypeResource, retrieval.ContextTypeSkill:
		default:
			continue
		}
		queries = append(queries, retrieval.TypedQuery{
			Query:       enforceStyle(ct, q.Query),
			ContextType: ct,
			Intent:      q.Intent,
			Priority:    q.Priority,
		})
	}

	sort.SliceStable(queries, func(i, j int) bool { return queries[i].Priority > queries[j].Priority })

	return &retrieval.QueryPlan{Queries: queries, SessionContext: sessionSummary, Reasoning: parsed.Reasoning}, nil
}

// extractJSON strips Markdown code fences an LLM response may wrap its
// JSON in.
func extractJSON(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// enforceStyle coerces query to its context type's style constraint,
// applied post-generation regardless of whether it came from
// the LLM or the heuristic fallback.
func enforceStyle(ct retrieval.ContextType, query string) string {
	query = strings.TrimSpace(query)
	switch ct {
	case retrieval.ContextTypeMemory:
		lower := strings.ToLower(query)
		if strings.HasPrefix(lower, "user") {
			return query
		}
		return "user " + query
	case retrieval.ContextTypeSkill:
		if startsWithVerb(query) {
			return query
		}
		return "perform " + query
	default: // resource: a noun phrase, left as-is
		return query
	}
}

// startsWithVerb is a cheap heuristic: a verb-initial imperative rarely
// starts with an article or pronoun, which is all this needs to
// distinguish for already-LLM-generated phrasing.
func startsWithVerb(s string) bool {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return false
	}
	first := strings.ToLower(fields[0])
	switch first {
	case "a", "an", "the", "this", "that", "these", "those", "my", "our", "user", "users":
		return false
	}
	for _, r := range first {
		if !unicode.IsLetter(r) {
			return false
		}
	}
	return true
}
