// Copyright (c) 2026 Beijing Volcano Engine Technology Co., Ltd.
// SPDX-License-Identifier: Apache-2.0

package retrieval

import (
	"container/heap"
	"context"
	"fmt"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/openviking/openviking/pkg/embedding"
	"github.com/openviking/openviking/pkg/rerank"
	"github.com/openviking/openviking/pkg/vectorindex"
	"github.com/openviking/openviking/pkg/vikingfs"
)

// RetrieverConfig holds the hierarchical-search tunables.
type RetrieverConfig struct {
	MaxConvergenceRounds  int
	MaxRelations          int
	ScorePropagationAlpha float64
	GlobalSearchTopK      int
	ChildTopK             int // 0 means opts.Limit*2, mirroring the seed fan-out ratio
	ScoreThreshold        float64
	ParallelChildren      int // bounded concurrency for Phase 1's per-root seed search
}

// DefaultRetrieverConfig returns the standard tunable defaults.
func DefaultRetrieverConfig() RetrieverConfig {
	return RetrieverConfig{
		MaxConvergenceRounds:  3,
		MaxRelations:          5,
		ScorePropagationAlpha: 0.5,
		GlobalSearchTopK:      3,
		ScoreThreshold:        0.0,
		ParallelChildren:      8,
	}
}

// frontierNode is one entry of the Phase 2 priority queue.
type frontierNode struct {
	URI         string
	IsLeaf      bool
	Score       float64
	Abstract    string
	Depth       int
	AccessCount int64
	UpdatedAt   int64 // unix nanos of last access, per vectorindex.Record.UpdatedAt
}

// blendHotness applies the optional hotness secondary signal to a
// semantic score: final = (1-alpha)*semantic + alpha*hotness. A no-op
// when Hotness is nil.
func (hr *HierarchicalRetriever) blendHotness(semantic float64, accessCount int64, updatedAt int64) float64 {
	if hr.Hotness == nil {
		return semantic
	}
	var lastAccess time.Time
	if updatedAt > 0 {
		lastAccess = time.Unix(0, updatedAt)
	}
	hotness := hr.Hotness.CalculateHotness(int(accessCount), lastAccess)
	return hr.Hotness.HybridScore(semantic, hotness)
}

// frontierHeap is a max-heap on Score, tie-broken by shallower Depth then
// lexicographically smaller URI. Phase 2 must always pop the
// highest-scored node first.
type frontierHeap []frontierNode

func (h frontierHeap) Len() int { return len(h) }
func (h frontierHeap) Less(i, j int) bool {
	if h[i].Score != h[j].Score {
		return h[i].Score > h[j].Score
	}
	if h[i].Depth != h[j].Depth {
		return h[i].Depth < h[j].Depth
	}
	return h[i].URI < h[j].URI
}
func (h frontierHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }
func (h *frontierHeap) Push(x any)   { *h = append(*h, x.(frontierNode)) }
func (h *frontierHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}

// HierarchicalRetriever implements the priority-queue recursive
// directory search: query embedding delegated to pkg/embedding,
// reranking to pkg/rerank, relation attachment to pkg/vikingfs.
type HierarchicalRetriever struct {
	Config   RetrieverConfig
	Index    vectorindex.Index
	Embedder embedding.Embedder
	Reranker *rerank.Reranker
	FS       *vikingfs.VikingFS // optional; nil skips relation attachment
	Hotness  *HotnessScorer     // optional; nil skips hotness blending

	trajectory *TrajectoryLogger
}

// NewHierarchicalRetriever wires a retriever against its collaborators.
// embedder, reranker, fs, and hotness may all be nil to disable the
// corresponding optional behavior.
func NewHierarchicalRetriever(index vectorindex.Index, embedder embedding.Embedder, reranker *rerank.Reranker, fs *vikingfs.VikingFS, config RetrieverConfig) *HierarchicalRetriever {
	return &HierarchicalRetriever{
		Config:     config,
		Index:      index,
		Embedder:   embedder,
		Reranker:   reranker,
		FS:         fs,
		trajectory: NewTrajectoryLogger(),
	}
}

func rootsForType(t ContextType) []string {
	switch t {
	case ContextTypeMemory:
		return []string{"viking://user/memories", "viking://agent/memories"}
	case ContextTypeResource:
		return []string{"viking://resources"}
	case ContextTypeSkill:
		return []string{"viking://agent/skills"}
	default:
		return nil
	}
}

// Retrieve runs seed selection plus directed recursion for one TypedQuery.
func (hr *HierarchicalRetriever) Retrieve(ctx context.Context, query TypedQuery, opts SearchOptions) (*QueryResult, error) {
	roots := opts.TargetDirectories
	if len(roots) == 0 {
		roots = rootsForType(query.ContextType)
	}

	trajectory := hr.trajectory.CreateTrajectory(query.Query)
	trace := &ThinkingTrace{StartTime: time.Now()}
	trace.AddEvent(TraceEventSearchDirectoryStart,
		fmt.Sprintf("starting retrieval for query: %s", query.Query),
		map[string]interface{}{"roots": roots, "context_type": query.ContextType}, query.Query)

	if hr.Index == nil || len(roots) == 0 {
		return &QueryResult{Query: query, SearchedDirectories: roots, ThinkingTrace: trace}, nil
	}

	var queryVec []float64
	var querySparse map[string]float64
	if hr.Embedder != nil {
		res, err := hr.Embedder.Embed(ctx, query.Query)
		if err != nil {
			return nil, fmt.Errorf("retrieval: embed query: %w", err)
		}
		queryVec = res.Dense
		querySparse = res.Sparse
	}

	seeds, err := hr.seedSelection(ctx, roots, queryVec, querySparse, opts, query, trace)
	if err != nil {
		return nil, fmt.Errorf("retrieval: seed selection: %w", err)
	}

	collected, err := hr.recurse(ctx, seeds, queryVec, querySparse, opts, query, trajectory, trace)
	if err != nil {
		return nil, fmt.Errorf("retrieval: recursive search: %w", err)
	}

	matched := hr.toMatchedContexts(collected, query.ContextType)
	matched = hr.attachRelations(ctx, matched)

	trace.AddEvent(TraceEventSearchSummary,
		fmt.Sprintf("retrieval complete, found %d results", len(matched)),
		map[string]interface{}{"total_results": len(matched), "statistics": trace.GetStatistics()}, query.Query)

	return &QueryResult{
		Query:               query,
		MatchedContexts:     matched,
		SearchedDirectories: roots,
		ThinkingTrace:       trace,
	}, nil
}

// seedSelection is Phase 1: a bounded-concurrency global search per root
// (filtered to that root's subtree), merged with the roots themselves,
// then reranked in THINKING mode.
func (hr *HierarchicalRetriever) seedSelection(ctx context.Context, roots []string, queryVec []float64, querySparse map[string]float64, opts SearchOptions, query TypedQuery, trace *ThinkingTrace) ([]frontierNode, error) {
	hits := make([][]vectorindex.ScoredRecord, len(roots))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, hr.Config.ParallelChildren))
	for i, root := range roots {
		i, root := i, root
		g.Go(func() error {
			res, err := hr.Index.Search(gctx, queryVec, querySparse, vectorindex.Filter{"uri_prefix": root}, hr.Config.GlobalSearchTopK, 0)
			if err != nil {
				return fmt.Errorf("search root %s: %w", root, err)
			}
			hits[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(roots))
	var seeds []frontierNode
	for _, root := range roots {
		if seen[root] {
			continue
		}
		seen[root] = true
		seeds = append(seeds, frontierNode{URI: root, IsLeaf: false, Score: 0})
	}
	for _, rs := range hits {
		for _, r := range rs {
			if seen[r.URI] {
				continue
			}
			seen[r.URI] = true
			score := hr.blendHotness(r.Score, r.ActiveCount, r.UpdatedAt)
			seeds = append(seeds, frontierNode{URI: r.URI, IsLeaf: r.IsLeaf, Score: score, Abstract: r.Abstract, AccessCount: r.ActiveCount, UpdatedAt: r.UpdatedAt})
		}
	}

	if hr.rerankActive(opts) && len(seeds) > 0 {
		docs := make([]rerank.Doc, len(seeds))
		for i, s := range seeds {
			docs[i] = rerank.Doc{URI: s.URI, Text: s.Abstract, OriginalScore: s.Score}
		}
		scores := hr.Reranker.Rerank(ctx, query.Query, docs)
		for i := range seeds {
			seeds[i].Score = scores[i]
		}
		trace.AddEvent(TraceEventRerankScores, "reranked seed batch", map[string]interface{}{"count": len(seeds)}, query.Query)
	}

	return seeds, nil
}

// recurse is Phase 2: the max-priority-queue directed recursion with
// score propagation and convergence-based termination.
func (hr *HierarchicalRetriever) recurse(ctx context.Context, seeds []frontierNode, queryVec []float64, querySparse map[string]float64, opts SearchOptions, query TypedQuery, trajectory *Trajectory, trace *ThinkingTrace) ([]MatchedContext, error) {
	q := make(frontierHeap, 0, len(seeds))
	heap.Init(&q)
	for _, s := range seeds {
		heap.Push(&q, s)
	}

	visited := make(map[string]bool)
	var collected []frontierNode
	prevTopK := make(map[string]bool)
	convergenceRounds := 0
	alpha := hr.Config.ScorePropagationAlpha
	childK := hr.Config.ChildTopK
	if childK <= 0 {
		childK = opts.Limit * 2
	}

	for q.Len() > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		node := heap.Pop(&q).(frontierNode)
		if visited[node.URI] {
			continue
		}
		visited[node.URI] = true
		trajectory.AddNode(node.URI, node.Depth, node.Score, nil)

		if node.IsLeaf {
			collected = appendIfAbsent(collected, node)
			continue
		}

		children, err := hr.Index.SearchByParent(ctx, node.URI, queryVec, childK, nil)
		if err != nil {
			continue
		}

		childScores := make([]float64, len(children))
		for i, c := range children {
			childScores[i] = c.Score
		}
		if hr.rerankActive(opts) && len(children) > 0 {
			docs := make([]rerank.Doc, len(children))
			for i, c := range children {
				docs[i] = rerank.Doc{URI: c.URI, Text: c.Abstract, OriginalScore: c.Score}
			}
			childScores = hr.Reranker.Rerank(ctx, query.Query, docs)
			trace.AddEvent(TraceEventRerankScores, fmt.Sprintf("reranked children of %s", node.URI), map[string]interface{}{"count": len(children)}, query.Query)
		}

		for i, c := range children {
			propagated := alpha*childScores[i] + (1-alpha)*node.Score
			final := hr.blendHotness(propagated, c.ActiveCount, c.UpdatedAt)
			passed := final > opts.ScoreThreshold
			if opts.ScoreGTE {
				passed = final >= opts.ScoreThreshold
			}
			if !passed {
				trace.AddEvent(TraceEventCandidateExcluded, fmt.Sprintf("excluded %s", c.URI),
					map[string]interface{}{"uri": c.URI, "score": final}, query.Query)
				continue
			}

			child := frontierNode{URI: c.URI, IsLeaf: c.IsLeaf, Score: final, Abstract: c.Abstract, Depth: node.Depth + 1, AccessCount: c.ActiveCount, UpdatedAt: c.UpdatedAt}
			collected = appendIfAbsent(collected, child)
			trace.AddEvent(TraceEventCandidateSelected, fmt.Sprintf("selected %s", c.URI),
				map[string]interface{}{"uri": c.URI, "score": final}, query.Query)

			if !c.IsLeaf {
				heap.Push(&q, child)
				trajectory.AddEdge(node.URI, c.URI)
				trace.AddEvent(TraceEventDirectoryQueued, fmt.Sprintf("queued %s", c.URI),
					map[string]interface{}{"uri": c.URI, "score": final}, query.Query)
			}
		}

		topK := topKURIs(collected, opts.Limit)
		trace.AddEvent(TraceEventConvergenceCheck, "convergence check", map[string]interface{}{"round": convergenceRounds}, query.Query)
		if mapsEqual(topK, prevTopK) && len(topK) >= opts.Limit {
			convergenceRounds++
			if convergenceRounds >= hr.Config.MaxConvergenceRounds {
				trace.AddEvent(TraceEventSearchConverged, "search converged",
					map[string]interface{}{"rounds": convergenceRounds, "total_found": len(collected)}, query.Query)
				break
			}
		} else {
			convergenceRounds = 0
		}
		prevTopK = topK
	}

	sort.Slice(collected, func(i, j int) bool { return collected[i].Score > collected[j].Score })
	if opts.Limit > 0 && len(collected) > opts.Limit {
		collected = collected[:opts.Limit]
	}
	hr.recordAccess(ctx, collected)
	return toMatchedOnly(collected), nil
}

// recordAccess bumps access_count/updated_at for every returned match.
// Best-effort and skipped entirely when hotness blending isn't
// configured.
func (hr *HierarchicalRetriever) recordAccess(ctx context.Context, nodes []frontierNode) {
	if hr.Hotness == nil || hr.Index == nil {
		return
	}
	now := time.Now().UnixNano()
	for _, n := range nodes {
		_ = hr.Index.UpdateFields(ctx, n.URI, vectorindex.Fields{
			"active_count": n.AccessCount + 1,
			"updated_at":   now,
		})
	}
}

// rerankActive reports whether candidates go through the reranker:
// a reranker must be configured and the call site must be a THINKING-mode
// search — opts.Mode carries that distinction through from the caller.
func (hr *HierarchicalRetriever) rerankActive(opts SearchOptions) bool {
	return hr.Reranker != nil && hr.Reranker.Enabled() && opts.Mode == RetrieverModeThinking
}

func appendIfAbsent(collected []frontierNode, n frontierNode) []frontierNode {
	for _, c := range collected {
		if c.URI == n.URI {
			return collected
		}
	}
	return append(collected, n)
}

func topKURIs(collected []frontierNode, k int) map[string]bool {
	sorted := make([]frontierNode, len(collected))
	copy(sorted, collected)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Score > sorted[j].Score })
	if k > 0 && len(sorted) > k {
		sorted = sorted[:k]
	}
	out := make(map[string]bool, len(sorted))
	for _, s := range sorted {
		out[s.URI] = true
	}
	return out
}

func mapsEqual(a, b map[string]bool) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if !b[k] {
			return false
		}
	}
	return true
}

func toMatchedOnly(nodes []frontierNode) []MatchedContext {
	// placeholder conversion kept separate from toMatchedContexts so the
	// context_type can be filled in by the caller, which knows the query.
	out := make([]MatchedContext, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, MatchedContext{URI: n.URI, IsLeaf: n.IsLeaf, Abstract: n.Abstract, Score: n.Score})
	}
	return out
}

func (hr *HierarchicalRetriever) toMatchedContexts(nodes []MatchedContext, contextType ContextType) []MatchedContext {
	for i := range nodes {
		nodes[i].ContextType = contextType
	}
	return nodes
}

// attachRelations fills each MatchedContext's Relations from .relations.json,
// capped at MaxRelations. Best-effort: a relations-read failure just
// leaves that context's Relations empty.
func (hr *HierarchicalRetriever) attachRelations(ctx context.Context, matched []MatchedContext) []MatchedContext {
	if hr.FS == nil {
		return matched
	}
	max := hr.Config.MaxRelations
	for i := range matched {
		rels, err := hr.FS.Relations(ctx, matched[i].URI)
		if err != nil || len(rels) == 0 {
			continue
		}
		if max > 0 && len(rels) > max {
			rels = rels[:max]
		}
		related := make([]RelatedContext, 0, len(rels))
		for _, r := range rels {
			abstract, _ := hr.FS.Abstract(ctx, r.TargetURI)
			related = append(related, RelatedContext{URI: r.TargetURI, Abstract: abstract})
		}
		matched[i].Relations = related
	}
	return matched
}

// GetTrajectory returns the retrieval trajectory recorded for a query.
func (hr *HierarchicalRetriever) GetTrajectory(query string) (*Trajectory, bool) {
	return hr.trajectory.GetTrajectory(query)
}
