// Copyright (c) 2026 Beijing Volcano Engine Technology Co., Ltd.
// SPDX-License-Identifier: Apache-2.0

package queue

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/openviking/openviking/pkg/agfs"
	"github.com/openviking/openviking/pkg/embedding"
	"github.com/openviking/openviking/pkg/errs"
	"github.com/openviking/openviking/pkg/llm"
	"github.com/openviking/openviking/pkg/uri"
	"github.com/openviking/openviking/pkg/vectorindex"
	"github.com/openviking/openviking/pkg/vikingfs"
)

// Reserved per-directory file names that are never treated as L2 content
// to summarize, per the reserved-files list.
const (
	abstractFile = ".abstract.md"
	overviewFile = ".overview.md"
	relationsFile = ".relations.json"
	metaFile      = ".meta.json"
)

func isReserved(name string) bool {
	switch name {
	case abstractFile, overviewFile, relationsFile, metaFile:
		return true
	default:
		return false
	}
}

// L0AbstractTokenLimit and L1OverviewTokenLimit are the output budgets.
const (
	L0AbstractTokenLimit = 120
	L1OverviewTokenLimit = 2000
)

// Processor drains a scope's queue: each claimed message triggers
// per-file VLM summaries, a deterministic L1/L0 composition, and a vector
// index upsert for the directory, then marks the message completed.
type Processor struct {
	Backend  Backend
	FS       *vikingfs.VikingFS
	VLM      llm.Provider
	VLMModel string
	Embedder embedding.Embedder

	// MaxConcurrentLLM bounds concurrent per-file VLM calls within one
	// directory (default 10).
	MaxConcurrentLLM int
}

func NewProcessor(backend Backend, fs *vikingfs.VikingFS, vlm llm.Provider, vlmModel string, embedder embedding.Embedder) *Processor {
	return &Processor{Backend: backend, FS: fs, VLM: vlm, VLMModel: vlmModel, Embedder: embedder, MaxConcurrentLLM: 10}
}

// Run polls scope every pollInterval until ctx is canceled, processing one
// eligible message per tick.
func (p *Processor) Run(ctx context.Context, scope string, pollInterval time.Duration) {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_, _ = p.ProcessOnce(ctx, scope)
		}
	}
}

// ProcessOnce claims and processes at most one message for scope. It
// returns false if nothing was eligible to claim.
func (p *Processor) ProcessOnce(ctx context.Context, scope string) (bool, error) {
	msg, err := p.Backend.Claim(ctx, scope)
	if err == ErrEmpty {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	if procErr := p.processDirectory(ctx, msg.URI); procErr != nil {
		retryable := !errs.Is(procErr, errs.KindInvalidInput)
		_ = p.Backend.Fail(ctx, msg.ID, retryable, procErr.Error())
		return true, procErr
	}
	return true, p.Backend.Complete(ctx, msg.ID)
}

// processDirectory runs the full semantic pipeline for one directory URI.
func (p *Processor) processDirectory(ctx context.Context, dirURI string) error {
	u, err := uri.Parse(dirURI)
	if err != nil {
		return errs.New(errs.KindInvalidInput, dirURI, err)
	}

	entries, err := p.FS.Backend.List(ctx, u.Path())
	if err != nil {
		return errs.New(errs.KindFatalBackend, dirURI, err)
	}

	var files, dirs []agfs.Entry
	for _, e := range entries {
		if e.IsDir {
			dirs = append(dirs, e)
			continue
		}
		if isReserved(e.Name) {
			continue
		}
		files = append(files, e)
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })
	sort.Slice(dirs, func(i, j int) bool { return dirs[i].Name < dirs[j].Name })

	fileSummaries, err := p.summarizeFiles(ctx, files)
	if err != nil {
		return err
	}

	childAbstracts := make(map[string]string, len(dirs))
	for _, d := range dirs {
		abstract, err := p.FS.Abstract(ctx, u.Join(d.Name).String())
		if err != nil {
			return errs.New(errs.KindFatalBackend, dirURI, err)
		}
		childAbstracts[d.Name] = abstract
	}

	overview := composeOverview(u.Name(), files, dirs, fileSummaries, childAbstracts)
	if estimateTokens(overview) > L1OverviewTokenLimit {
		overview = composeOverview(u.Name(), files, dirs, truncateSummaries(fileSummaries), childAbstracts)
	}
	abstract := extractAbstract(overview)

	if err := p.FS.Backend.Write(ctx, u.Path()+"/"+abstractFile, []byte(abstract)); err != nil {
		return errs.New(errs.KindFatalBackend, dirURI, err)
	}
	if err := p.FS.Backend.Write(ctx, u.Path()+"/"+overviewFile, []byte(overview)); err != nil {
		return errs.New(errs.KindFatalBackend, dirURI, err)
	}

	embedText := abstract + "\n\n" + u.Name() + "\n" + overview
	result, err := p.Embedder.Embed(ctx, embedText)
	if err != nil {
		return errs.New(errs.KindTransientBackend, dirURI, err)
	}

	parentURI := ""
	if parent, atRoot := u.Parent(); !atRoot {
		parentURI = parent.String()
	}
	now := time.Now().UnixNano()
	record := vectorindex.Record{
		URI: dirURI, ParentURI: parentURI, IsLeaf: false,
		Vector: result.Dense, SparseVector: result.Sparse,
		Abstract: abstract, Name: u.Name(), Description: overview,
		CreatedAt: now, UpdatedAt: now,
	}
	if err := p.FS.Index.Upsert(ctx, record); err != nil {
		return errs.New(errs.KindTransientBackend, dirURI, err)
	}
	return nil
}

// summarizeFiles generates one VLM summary per immediate L2 file,
// concurrency-bounded by MaxConcurrentLLM via a weighted semaphore.
func (p *Processor) summarizeFiles(ctx context.Context, files []agfs.Entry) (map[string]string, error) {
	summaries := make(map[string]string, len(files))
	if len(files) == 0 || p.VLM == nil {
		return summaries, nil
	}

	limit := int64(p.MaxConcurrentLLM)
	if limit <= 0 {
		limit = 10
	}
	sem := semaphore.NewWeighted(limit)
	var mu sync.Mutex
	errCh := make(chan error, len(files))

	for _, f := range files {
		f := f
		if err := sem.Acquire(ctx, 1); err != nil {
			return nil, errs.New(errs.KindFatalBackend, f.Path, err)
		}
		go func() {
			defer sem.Release(1)
			summary, err := p.summarizeOne(ctx, f)
			if err != nil {
				errCh <- err
				return
			}
			mu.Lock()
			summaries[f.Name] = summary
			mu.Unlock()
			errCh <- nil
		}()
	}
	for range files {
		if err := <-errCh; err != nil {
			return nil, err
		}
	}
	return summaries, nil
}

func (p *Processor) summarizeOne(ctx context.Context, f agfs.Entry) (string, error) {
	data, err := p.FS.Backend.Read(ctx, f.Path)
	if err != nil {
		return "", errs.New(errs.KindFatalBackend, f.Path, err)
	}
	resp, err := p.VLM.Chat(ctx, &llm.ChatRequest{
		Model: p.VLMModel,
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: "Summarize this document in one sentence."},
			{Role: llm.RoleUser, Content: string(data)},
		},
		MaxTokens: 128,
	})
	if err != nil {
		return "", errs.New(errs.KindTransientBackend, f.Path, err)
	}
	if len(resp.Choices) == 0 {
		return "", errs.New(errs.KindTransientBackend, f.Path, fmt.Errorf("empty VLM response"))
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// composeOverview builds the L1 overview with a deterministic template:
// role sentence, per-child entries, key points, access hints.
func composeOverview(name string, files, dirs []agfs.Entry, fileSummaries, childAbstracts map[string]string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", name)
	fmt.Fprintf(&b, "%s holds %d file(s) and %d subdirectory(ies).\n\n", name, len(files), len(dirs))

	b.WriteString("## Contents\n\n")
	for _, d := range dirs {
		purpose := childAbstracts[d.Name]
		if purpose == "" {
			purpose = "(not yet summarized)"
		}
		fmt.Fprintf(&b, "- [dir] %s — %s\n", d.Name, firstSentence(purpose))
	}
	for _, f := range files {
		purpose := fileSummaries[f.Name]
		if purpose == "" {
			purpose = "(not yet summarized)"
		}
		fmt.Fprintf(&b, "- [file] %s — %s\n", f.Name, firstSentence(purpose))
	}

	b.WriteString("\n## Key points\n\n")
	count := 0
	for _, f := range files {
		if s := fileSummaries[f.Name]; s != "" {
			fmt.Fprintf(&b, "- %s\n", firstSentence(s))
			count++
			if count >= 5 {
				break
			}
		}
	}

	b.WriteString("\n## Access\n\n")
	fmt.Fprintf(&b, "Read %s's immediate children directly; recurse into subdirectories for more detail.\n", name)
	return b.String()
}

func truncateSummaries(summaries map[string]string) map[string]string {
	out := make(map[string]string, len(summaries))
	for k, v := range summaries {
		out[k] = firstSentence(v)
	}
	return out
}

// extractAbstract derives L0 from L1: the overview's first
// paragraph (skipping the leading "# Title" heading composeOverview always
// emits), truncated at a sentence boundary to stay within
// L0AbstractTokenLimit tokens.
func extractAbstract(overview string) string {
	paragraphs := strings.Split(strings.TrimLeft(overview, "\n"), "\n\n")
	first := ""
	for _, p := range paragraphs {
		p = strings.TrimSpace(p)
		if p == "" || strings.HasPrefix(p, "#") {
			continue
		}
		first = p
		break
	}

	for estimateTokens(first) > L0AbstractTokenLimit {
		cut := lastSentenceBoundary(first)
		if cut <= 0 || cut >= len(first) {
			first = truncateToTokenBudget(first, L0AbstractTokenLimit)
			break
		}
		first = strings.TrimSpace(first[:cut])
	}
	return first
}

func firstSentence(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexAny(s, ".!?"); i >= 0 {
		return s[:i+1]
	}
	return s
}

func lastSentenceBoundary(s string) int {
	best := -1
	for _, sep := range []string{". ", "! ", "? "} {
		if i := strings.LastIndex(s, sep); i > best {
			best = i + 1
		}
	}
	return best
}

func truncateToTokenBudget(s string, budget int) string {
	maxBytes := budget * 4
	if maxBytes >= len(s) {
		return s
	}
	return s[:maxBytes]
}

// estimateTokens uses the same 4-bytes-per-token convention as
// pkg/markdown and pkg/core's SimpleTokenCounter.
func estimateTokens(s string) int {
	return (len(s) + 3) / 4
}
