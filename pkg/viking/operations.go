// Copyright (c) 2026 Beijing Volcano Engine Technology Co., Ltd.
// SPDX-License-Identifier: Apache-2.0

package viking

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/openviking/openviking/pkg/core"
	"github.com/openviking/openviking/pkg/errs"
	"github.com/openviking/openviking/pkg/retrieval"
	"github.com/openviking/openviking/pkg/uri"
)

// AddResource runs the add_resource(source, reason): parse source, split
// it into a Markdown tree, and move that tree under viking://resources/,
// enqueuing semantic work for every directory created. name is used for
// extension sniffing and as the document's title fallback; reason is
// accepted but not recorded anywhere.
func (e *Engine) AddResource(ctx context.Context, name string, data []byte, reason string) (string, error) {
	ext := filepath.Ext(name)
	if ext == "" {
		return "", errs.New(errs.KindInvalidInput, name, fmt.Errorf("source has no file extension"))
	}

	token := uuid.Must(uuid.NewV7()).String()
	rootURI, err := e.TreeBuilder.Ingest(ctx, e.Parsers, ext, name, data, token, uri.Prefix+string(uri.ScopeResources)+"/")
	if err != nil {
		return "", err
	}
	return rootURI, nil
}

// AddSkill runs the add_skill({name, content}): a direct write under
// viking://agent/skills/{name}/ followed by the normal Write-triggered
// semantic enqueue, bypassing the parser/TreeBuilder pipeline add_resource
// needs for arbitrary source documents.
func (e *Engine) AddSkill(ctx context.Context, name, content string) (string, error) {
	if name == "" {
		return "", errs.New(errs.KindInvalidInput, "", fmt.Errorf("skill name is required"))
	}
	skillURI := fmt.Sprintf("%s%s/skills/%s/%s.md", uri.Prefix, uri.ScopeAgent, name, name)
	if err := e.FS.Write(ctx, skillURI, []byte(content)); err != nil {
		return "", err
	}
	return skillURI, nil
}

// Find runs the find(query, target_uri?): a single typed-query retrieval
// with no intent analysis. It forces RetrieverModeQuick so
// HierarchicalRetriever's internal reranking stays off, per the "find
// never reranks" rule — DefaultSearchOptions defaults to
// RetrieverModeThinking, which would otherwise activate it.
func (e *Engine) Find(ctx context.Context, query string, contextType retrieval.ContextType, targetURI string) (*retrieval.QueryResult, error) {
	opts := retrieval.DefaultSearchOptions()
	opts.Mode = retrieval.RetrieverModeQuick
	if targetURI != "" {
		opts.TargetDirectories = []string{targetURI}
	}
	return e.Retriever.Retrieve(ctx, retrieval.TypedQuery{Query: query, ContextType: contextType}, opts)
}

// Search runs the search(query, session): intent analysis plans one or
// more TypedQuery, each retrieved in RetrieverModeThinking so
// HierarchicalRetriever applies its own configured Reranker internally
//, then merged into a FindResult grouped by context type.
func (e *Engine) Search(ctx context.Context, query, sessionSummary string, lastMessages []string) (*retrieval.FindResult, error) {
	plan, err := e.planQueries(ctx, query, sessionSummary, lastMessages)
	if err != nil {
		return nil, err
	}

	opts := retrieval.DefaultSearchOptions()
	opts.Mode = retrieval.RetrieverModeThinking

	result := &retrieval.FindResult{QueryPlan: plan}
	for _, tq := range plan.Queries {
		qr, err := e.Retriever.Retrieve(ctx, tq, opts)
		if err != nil {
			return nil, err
		}
		result.QueryResults = append(result.QueryResults, *qr)
		appendByType(result, qr.MatchedContexts)
	}
	result.Total = len(result.Memories) + len(result.Resources) + len(result.Skills)
	return result, nil
}

// Assemble packs a FindResult's matched contexts into a single
// token-budgeted prompt string, expanding the highest-scored leaves to
// their full content where the token budget allows. Callers that hand a
// FindResult straight to an LLM use this instead of re-deriving their own
// prompt assembly over MatchedContext.
func (e *Engine) Assemble(ctx context.Context, result *retrieval.FindResult) (*core.Window, error) {
	all := make([]retrieval.MatchedContext, 0, result.Total)
	all = append(all, result.Memories...)
	all = append(all, result.Resources...)
	all = append(all, result.Skills...)
	return e.Assembler.Assemble(ctx, all)
}

func (e *Engine) planQueries(ctx context.Context, query, sessionSummary string, lastMessages []string) (*retrieval.QueryPlan, error) {
	if e.Intent == nil {
		return &retrieval.QueryPlan{
			Queries:        []retrieval.TypedQuery{{Query: query, ContextType: retrieval.ContextTypeResource}},
			SessionContext: sessionSummary,
		}, nil
	}
	return e.Intent.Analyze(ctx, query, lastMessages, sessionSummary)
}

func appendByType(result *retrieval.FindResult, matches []retrieval.MatchedContext) {
	for _, m := range matches {
		switch m.ContextType {
		case retrieval.ContextTypeMemory:
			result.Memories = append(result.Memories, m)
		case retrieval.ContextTypeSkill:
			result.Skills = append(result.Skills, m)
		default:
			result.Resources = append(result.Resources, m)
		}
	}
}

