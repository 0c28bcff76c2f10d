// Copyright (c) 2026 Beijing Volcano Engine Technology Co., Ltd.
// SPDX-License-Identifier: Apache-2.0

package viking

import (
	"context"
	"fmt"

	"github.com/openviking/openviking/pkg/agfs"
	"github.com/openviking/openviking/pkg/config"
	"github.com/openviking/openviking/pkg/embedding"
	"github.com/openviking/openviking/pkg/intent"
	"github.com/openviking/openviking/pkg/llm"
	"github.com/openviking/openviking/pkg/parser"
	"github.com/openviking/openviking/pkg/queue"
	"github.com/openviking/openviking/pkg/rerank"
	"github.com/openviking/openviking/pkg/retrieval"
	"github.com/openviking/openviking/pkg/service"
	"github.com/openviking/openviking/pkg/vectorindex"
	"github.com/openviking/openviking/pkg/vikingfs"
)

// App bundles a fully-wired Engine with the queue Backend and Processor
// that actually drain semantic work, plus anything that needs closing on
// shutdown. This is the one place that turns a Config struct into
// live component instances — every component below it still takes its
// dependencies through its own constructor, with no process-wide
// singletons; App just does the dependency injection once, at the
// process edge, before cobra ever runs a command.
type App struct {
	*Engine
	Queue     queue.Backend
	Processor *queue.Processor
	Debug     *service.DebugService
	closers   []func() error
}

// Close releases every backend resource Bootstrap opened, in reverse
// construction order.
func (a *App) Close() error {
	var firstErr error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Bootstrap constructs an App from cfg: AGFS backend, vector index, queue
// backend, embedding pipeline, VLM/rerank providers, and the Engine tying
// them together via vikingfs/ingest/intent/retrieval, driven by the
// storage.*, embedding.*, vlm.*, rerank.* config sections.
func Bootstrap(ctx context.Context, cfg *config.Config) (*App, error) {
	app := &App{}

	backend, err := newAGFSBackend(cfg.Storage.AGFS)
	if err != nil {
		return nil, fmt.Errorf("viking: agfs backend: %w", err)
	}

	index, closeIndex, err := newVectorIndex(ctx, cfg.Storage.VectorDB)
	if err != nil {
		return nil, fmt.Errorf("viking: vector index: %w", err)
	}
	if closeIndex != nil {
		app.closers = append(app.closers, closeIndex)
	}

	qBackend, err := newQueueBackend(cfg.Storage.Queue)
	if err != nil {
		return nil, fmt.Errorf("viking: queue backend: %w", err)
	}
	app.closers = append(app.closers, qBackend.Close)
	app.Queue = qBackend

	debug := service.NewDebugService()
	debug.SetAGFSBackend(backend)
	debug.SetVectorIndex(index)
	debug.SetQueueBackend(qBackend)
	app.Debug = debug

	enqueuer := queue.NewEnqueuer(qBackend)
	fs := vikingfs.New(backend, index, enqueuer)

	vlmProvider, err := newLLMProvider(cfg.VLM.Provider, cfg.VLM)
	if err != nil {
		return nil, fmt.Errorf("viking: vlm provider: %w", err)
	}

	embedder, err := newEmbedder(cfg.Embedding, vlmProvider)
	if err != nil {
		return nil, fmt.Errorf("viking: embedder: %w", err)
	}

	app.Processor = queue.NewProcessor(qBackend, fs, vlmProvider, cfg.VLM.Model, embedder)

	reranker, err := newReranker(cfg.Rerank)
	if err != nil {
		return nil, fmt.Errorf("viking: reranker: %w", err)
	}

	retrieverCfg := retrieval.DefaultRetrieverConfig()
	retriever := retrieval.NewHierarchicalRetriever(index, embedder, reranker, fs, retrieverCfg)

	var analyzer *intent.Analyzer
	if vlmProvider != nil {
		analyzer = intent.New(vlmProvider, cfg.VLM.Model)
	}

	parsers := parser.NewRegistry()
	app.Engine = New(fs, parsers, retriever, analyzer)

	return app, nil
}

func newAGFSBackend(cfg config.AGFSConfig) (agfs.Backend, error) {
	switch cfg.Backend {
	case "", "local":
		path := cfg.Path
		if path == "" {
			path = "./data/agfs"
		}
		return agfs.NewLocalBackend(path)
	case "memory":
		return agfs.NewMemoryBackend(), nil
	default:
		return nil, fmt.Errorf("unknown agfs backend %q", cfg.Backend)
	}
}

func newVectorIndex(ctx context.Context, cfg config.VectorDBConfig) (vectorindex.Index, func() error, error) {
	weight := vectorindex.SparseWeight(cfg.SparseWeight)
	switch cfg.Backend {
	case "", "memory":
		idx := vectorindex.NewMemoryIndex(weight)
		return idx, idx.Close, nil
	case "qdrant":
		idx, err := vectorindex.NewQdrantIndex(ctx, vectorindex.QdrantConfig{
			Host:         cfg.URL,
			SparseWeight: weight,
		})
		if err != nil {
			return nil, nil, err
		}
		return idx, idx.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown vectordb backend %q", cfg.Backend)
	}
}

func newQueueBackend(cfg config.QueueConfig) (queue.Backend, error) {
	switch cfg.Backend {
	case "memory":
		return queue.NewMemoryBackend(), nil
	case "", "sqlite":
		path := cfg.Path
		if path == "" {
			path = "./data/queue.db"
		}
		return queue.NewSQLiteBackend(path)
	case "redis":
		return queue.NewRedisBackend(cfg.URL, "", 0)
	default:
		return nil, fmt.Errorf("unknown queue backend %q", cfg.Backend)
	}
}

func newLLMProvider(providerType string, vlm config.VLMConfig) (llm.Provider, error) {
	if providerType == "" {
		return nil, nil
	}
	return llm.NewProvider(llm.Config{
		Type:  llm.ProviderType(providerType),
		Model: vlm.Model,
	})
}

func newEmbedder(cfg config.EmbeddingConfig, provider llm.Provider) (embedding.Embedder, error) {
	var dense embedding.Embedder
	if provider != nil && cfg.Dense.Provider != "" {
		dense = embedding.NewProviderEmbedder(provider, cfg.Dense.Model, cfg.Dense.Dimension)
	}

	var sparse embedding.Embedder
	if cfg.Sparse.Provider != "" {
		sparse = embedding.TermFrequencyEmbedder{}
	}

	switch {
	case dense != nil && sparse != nil:
		return embedding.NewHybridEmbedder(dense, sparse), nil
	case dense != nil:
		return dense, nil
	case sparse != nil:
		return sparse, nil
	default:
		// No VLM/embedding provider configured: fall back to the
		// dependency-free sparse embedder so ingestion and retrieval
		// still produce vectors offline (tests, local dev without
		// API keys).
		return embedding.TermFrequencyEmbedder{}, nil
	}
}

func newReranker(cfg config.RerankConfig) (*rerank.Reranker, error) {
	if cfg.Provider == "" {
		return rerank.New(nil), nil
	}
	provider, err := llm.NewProvider(llm.Config{
		Type:    llm.ProviderType(cfg.Provider),
		APIKey:  cfg.APIKey,
		BaseURL: cfg.BaseURL,
		Model:   cfg.Model,
	})
	if err != nil {
		return nil, err
	}
	return rerank.New(rerank.NewLLMScorer(provider, cfg.Model)), nil
}
