// Copyright (c) 2026 Beijing Volcano Engine Technology Co., Ltd.
// SPDX-License-Identifier: Apache-2.0

package rerank

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/openviking/openviking/pkg/llm"
)

// LLMScorer implements Scorer by asking a chat-capable llm.Provider to
// emit one relevance score per document, prompted as a single batched
// call carrying every document (each document's text cut to 2000 bytes)
// rather than one call per doc; the number of documents per call is not
// capped.
type LLMScorer struct {
	Provider llm.Provider
	Model    string
}

func NewLLMScorer(provider llm.Provider, model string) *LLMScorer {
	return &LLMScorer{Provider: provider, Model: model}
}

func (s *LLMScorer) Score(ctx context.Context, query string, docs []Doc) ([]float64, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "Query: %s\n\nRate each document's relevance to the query from 0.0 to 1.0. Respond with one number per line, in order, nothing else.\n\n", query)
	for i, d := range docs {
		fmt.Fprintf(&b, "[%d] %s\n", i+1, truncate(d.Text, 2000))
	}

	resp, err := s.Provider.Chat(ctx, &llm.ChatRequest{
		Model:       s.Model,
		Messages:    []llm.Message{{Role: llm.RoleUser, Content: b.String()}},
		Temperature: 0,
	})
	if err != nil {
		return nil, fmt.Errorf("rerank: llm scorer: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("rerank: llm scorer: empty response")
	}

	lines := strings.Split(strings.TrimSpace(resp.Choices[0].Message.Content), "\n")
	if len(lines) != len(docs) {
		return nil, fmt.Errorf("rerank: llm scorer: expected %d scores, got %d", len(docs), len(lines))
	}

	scores := make([]float64, len(docs))
	for i, line := range lines {
		v, err := strconv.ParseFloat(strings.TrimSpace(line), 64)
		if err != nil {
			return nil, fmt.Errorf("rerank: llm scorer: parse score %d: %w", i, err)
		}
		scores[i] = v
	}
	return scores, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

var _ Scorer = (*LLMScorer)(nil)
