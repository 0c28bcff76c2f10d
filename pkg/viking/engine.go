// Copyright (c) 2026 Beijing Volcano Engine Technology Co., Ltd.
// SPDX-License-Identifier: Apache-2.0

// Package viking wires the independently-testable core packages
// (vikingfs, ingest, intent, retrieval, rerank) into the handful of
// operations the CLI and HTTP surface actually call: add_resource,
// add_skill, find, and search. No package below this one knows about any
// of the others in this file's combination; Engine is where that
// composition happens, and it stays thin.
package viking

import (
	"github.com/openviking/openviking/pkg/core"
	"github.com/openviking/openviking/pkg/ingest"
	"github.com/openviking/openviking/pkg/intent"
	"github.com/openviking/openviking/pkg/parser"
	"github.com/openviking/openviking/pkg/retrieval"
	"github.com/openviking/openviking/pkg/vikingfs"
)

// Engine composes the core packages behind the CLI surface. Reranking
// is not a separate concern here: HierarchicalRetriever already carries its
// own Reranker and applies it internally, gated on SearchOptions.Mode, so
// Engine only needs to pick the right Mode per operation (see Find/Search).
type Engine struct {
	FS          *vikingfs.VikingFS
	Parsers     *parser.Registry
	TreeBuilder *ingest.TreeBuilder
	Intent      *intent.Analyzer // optional; nil disables Search's intent analysis
	Retriever   *retrieval.HierarchicalRetriever
	Assembler   *core.Assembler
}

// New builds an Engine from its component parts. intentAnalyzer may be nil.
func New(fs *vikingfs.VikingFS, parsers *parser.Registry, retriever *retrieval.HierarchicalRetriever, intentAnalyzer *intent.Analyzer) *Engine {
	return &Engine{
		FS:          fs,
		Parsers:     parsers,
		TreeBuilder: ingest.New(fs),
		Intent:      intentAnalyzer,
		Retriever:   retriever,
		Assembler:   core.NewAssembler(fs, nil, core.DefaultAssemblerConfig()),
	}
}
