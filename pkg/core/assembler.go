// Copyright (c) 2026 Beijing Volcano Engine Technology Co., Ltd.
// SPDX-License-Identifier: Apache-2.0

package core

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/openviking/openviking/pkg/retrieval"
	"github.com/openviking/openviking/pkg/vikingfs"
)

// AssemblerConfig controls how matched context is packed into a window.
type AssemblerConfig struct {
	MaxTokens int

	// ExpandTopLeaves is how many of the highest-scored leaf matches get
	// their full L2 content substituted for the L1 overview, budget
	// permitting. Requires FS to be set; ignored otherwise.
	ExpandTopLeaves int
}

// DefaultAssemblerConfig returns a default configuration.
func DefaultAssemblerConfig() AssemblerConfig {
	return AssemblerConfig{MaxTokens: 128000, ExpandTopLeaves: 2}
}

// Window is the result of an Assemble call: the packed prompt text plus
// budget accounting.
type Window struct {
	Text       string
	UsedTokens int
	MaxTokens  int
	Included   int
	Omitted    int
}

// UsagePercent returns how much of the token budget Text consumed.
func (w *Window) UsagePercent() float64 {
	if w.MaxTokens == 0 {
		return 0
	}
	return float64(w.UsedTokens) / float64(w.MaxTokens) * 100
}

// Assembler packs retrieval matches into a single token-budgeted prompt
// string. L0 abstracts are the floor every match falls back to; L1
// overviews are preferred when present; the highest-scored leaves may be
// expanded to their full L2 file content when FS is set.
type Assembler struct {
	FS           *vikingfs.VikingFS // optional; nil disables L2 expansion
	TokenCounter TokenCounter
	Config       AssemblerConfig
}

// NewAssembler creates an Assembler. A nil tokenCounter defaults to
// SimpleTokenCounter; a zero-value config defaults to DefaultAssemblerConfig.
func NewAssembler(fs *vikingfs.VikingFS, tokenCounter TokenCounter, config AssemblerConfig) *Assembler {
	if tokenCounter == nil {
		tokenCounter = NewSimpleTokenCounter()
	}
	if config.MaxTokens <= 0 {
		config = DefaultAssemblerConfig()
	}
	return &Assembler{FS: fs, TokenCounter: tokenCounter, Config: config}
}

// Assemble packs matches into a Window, grouped under "## Memories",
// "## Resources", "## Skills" headings in that order and ordered by score
// within each group.
func (a *Assembler) Assemble(ctx context.Context, matches []retrieval.MatchedContext) (*Window, error) {
	ordered := make([]retrieval.MatchedContext, len(matches))
	copy(ordered, matches)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Score > ordered[j].Score })

	expandable := a.selectExpansionCandidates(ordered)

	budget := a.Config.MaxTokens
	used := 0
	omitted := 0
	sections := map[retrieval.ContextType][]string{}

	for _, m := range ordered {
		remaining := budget - used
		if remaining <= 0 {
			omitted++
			continue
		}

		body := a.bodyFor(ctx, m, expandable[m.URI])
		body = TruncateText(body, remaining, a.TokenCounter)

		item := formatMatch(m, body)
		tokens := a.TokenCounter.CountTokens(item)
		if used+tokens > budget {
			omitted++
			continue
		}
		sections[m.ContextType] = append(sections[m.ContextType], item)
		used += tokens
	}

	return &Window{
		Text:       renderSections(sections),
		UsedTokens: used,
		MaxTokens:  budget,
		Included:   len(ordered) - omitted,
		Omitted:    omitted,
	}, nil
}

// selectExpansionCandidates picks the highest-scored leaf matches, up to
// ExpandTopLeaves, to receive full L2 content instead of their overview.
func (a *Assembler) selectExpansionCandidates(ordered []retrieval.MatchedContext) map[string]bool {
	expandable := map[string]bool{}
	if a.FS == nil || a.Config.ExpandTopLeaves <= 0 {
		return expandable
	}
	expanded := 0
	for _, m := range ordered {
		if expanded >= a.Config.ExpandTopLeaves {
			break
		}
		if m.IsLeaf {
			expandable[m.URI] = true
			expanded++
		}
	}
	return expandable
}

func (a *Assembler) bodyFor(ctx context.Context, m retrieval.MatchedContext, expand bool) string {
	body := m.Abstract
	if m.Overview != "" {
		body = m.Overview
	}
	if expand {
		if full, err := a.FS.Read(ctx, m.URI); err == nil && len(full) > 0 {
			body = string(full)
		}
	}
	return body
}

func formatMatch(m retrieval.MatchedContext, body string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "### %s\n", m.URI)
	if body != "" {
		fmt.Fprintf(&sb, "%s\n", body)
	}
	if m.MatchReason != "" {
		fmt.Fprintf(&sb, "_matched: %s_\n", m.MatchReason)
	}
	return sb.String()
}

func renderSections(sections map[retrieval.ContextType][]string) string {
	order := []retrieval.ContextType{retrieval.ContextTypeMemory, retrieval.ContextTypeResource, retrieval.ContextTypeSkill}
	headings := map[retrieval.ContextType]string{
		retrieval.ContextTypeMemory:   "## Memories",
		retrieval.ContextTypeResource: "## Resources",
		retrieval.ContextTypeSkill:    "## Skills",
	}

	var sb strings.Builder
	for _, ct := range order {
		items := sections[ct]
		if len(items) == 0 {
			continue
		}
		sb.WriteString(headings[ct])
		sb.WriteString("\n\n")
		for _, item := range items {
			sb.WriteString(item)
		}
		sb.WriteString("\n")
	}
	return sb.String()
}
