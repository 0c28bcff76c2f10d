// Copyright (c) 2026 Beijing Volcano Engine Technology Co., Ltd.
// SPDX-License-Identifier: Apache-2.0

package integration

import (
	"context"
	"testing"
	"time"

	"github.com/openviking/openviking/pkg/agfs"
	"github.com/openviking/openviking/pkg/llm"
	"github.com/openviking/openviking/pkg/queue"
	"github.com/openviking/openviking/pkg/retrieval"
	"github.com/openviking/openviking/pkg/service"
	"github.com/openviking/openviking/pkg/session"
	"github.com/openviking/openviking/pkg/vectorindex"
	"github.com/openviking/openviking/pkg/vikingfs"
)

// MockLLMProvider is a mock LLM provider for testing.
type MockLLMProvider struct {
	responses map[string]*llm.ChatResponse
}

func NewMockLLMProvider() *MockLLMProvider {
	return &MockLLMProvider{
		responses: make(map[string]*llm.ChatResponse),
	}
}

func (m *MockLLMProvider) Chat(ctx context.Context, req *llm.ChatRequest) (*llm.ChatResponse, error) {
	return &llm.ChatResponse{
		Choices: []llm.Choice{
			{
				Message: llm.Message{
					Content: `[{"content": "Test memory", "importance": 0.8, "category": "preference"}]`,
				},
			},
		},
	}, nil
}

func (m *MockLLMProvider) ChatStream(ctx context.Context, req *llm.ChatRequest) (llm.StreamReader, error) {
	return nil, nil
}

func (m *MockLLMProvider) Embed(ctx context.Context, req *llm.EmbeddingRequest) (*llm.EmbeddingResponse, error) {
	return &llm.EmbeddingResponse{
		Data: []llm.Embedding{
			{Embedding: []float64{0.1, 0.2, 0.3}, Index: 0},
		},
	}, nil
}

func (m *MockLLMProvider) Close() error {
	return nil
}

// TestSessionHotnessIntegration tests Session Hotness functionality.
func TestSessionHotnessIntegration(t *testing.T) {
	// Create hotness scorer
	config := retrieval.HotnessConfig{
		Alpha:        0.2,
		HalfLifeDays: 7,
	}
	scorer := retrieval.NewHotnessScorer(config)

	// Test CalculateHotness
	tests := []struct {
		name         string
		accessCount  int
		lastAccess   time.Time
		expectedMin  float64
		expectedMax  float64
	}{
		{
			name:        "high access recent",
			accessCount: 100,
			lastAccess:  time.Now(),
			expectedMin: 0.8,
			expectedMax: 1.0,
		},
		{
			name:        "low access old",
			accessCount: 1,
			lastAccess:  time.Now().Add(-30 * 24 * time.Hour),
			expectedMin: 0.0,
			expectedMax: 0.3,
		},
		{
			name:        "medium access",
			accessCount: 10,
			lastAccess:  time.Now().Add(-7 * 24 * time.Hour),
			expectedMin: 0.3,
			expectedMax: 0.9,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			score := scorer.CalculateHotness(tt.accessCount, tt.lastAccess)
			if score < tt.expectedMin || score > tt.expectedMax {
				t.Errorf("Expected score between %v and %v, got %v", tt.expectedMin, tt.expectedMax, score)
			}
		})
	}

	// Test HybridScore
	t.Run("HybridScore", func(t *testing.T) {
		hotnessScore := scorer.CalculateHotness(50, time.Now())
		hybridScore := scorer.HybridScore(0.8, hotnessScore)
		if hybridScore <= 0 || hybridScore > 1 {
			t.Errorf("Expected hybrid score in (0, 1], got %v", hybridScore)
		}
	})
}

// TestMemoryExtractionIntegration tests Memory Extraction functionality.
func TestMemoryExtractionIntegration(t *testing.T) {
	mockProvider := NewMockLLMProvider()
	config := session.DefaultExtractorConfig("test-session")
	extractor := session.NewLLMExtractor(mockProvider, config)

	messages := []*session.Message{
		{
			Role:      session.RoleUser,
			Content:   "I prefer concise responses",
			CreatedAt: time.Now(),
		},
		{
			Role:      session.RoleAssistant,
			Content:   "I'll keep responses brief",
			CreatedAt: time.Now(),
		},
	}

	ctx := context.Background()

	// Test Extract
	t.Run("Extract", func(t *testing.T) {
		memories, err := extractor.Extract(ctx, messages)
		if err != nil {
			t.Fatalf("Extract failed: %v", err)
		}
		if memories == nil {
			t.Error("Expected memories, got nil")
		}
	})

	// Test ExtractByCategory
	t.Run("ExtractByCategory", func(t *testing.T) {
		memories, err := extractor.ExtractByCategory(ctx, messages, session.CategoryPreference)
		if err != nil {
			t.Fatalf("ExtractByCategory failed: %v", err)
		}
		if memories == nil {
			t.Error("Expected memories, got nil")
		}
	})

	// Test ExtractAllCategories
	t.Run("ExtractAllCategories", func(t *testing.T) {
		results, err := extractor.ExtractAllCategories(ctx, messages)
		if err != nil {
			t.Fatalf("ExtractAllCategories failed: %v", err)
		}
		if results == nil {
			t.Error("Expected results, got nil")
		}
	})
}

// TestMemoryDeduplicationIntegration tests Memory Deduplication.
func TestMemoryDeduplicationIntegration(t *testing.T) {
	mockProvider := NewMockLLMProvider()
	deduper := session.NewMemoryDeduper(mockProvider, 0.8)

	memories := []*session.ExtractedMemory{
		{Content: "User likes Python", Importance: 0.8, Category: "preference"},
		{Content: "User likes Python", Importance: 0.9, Category: "preference"},
		{Content: "User prefers Go", Importance: 0.7, Category: "preference"},
	}

	ctx := context.Background()
	result, err := deduper.Dedup(ctx, memories)
	if err != nil {
		t.Fatalf("Dedup failed: %v", err)
	}

	if len(result) >= len(memories) {
		t.Errorf("Expected fewer memories after dedup, got %d -> %d", len(memories), len(result))
	}
}

// TestSessionCompressionIntegration tests Session Compression.
func TestSessionCompressionIntegration(t *testing.T) {
	mockProvider := NewMockLLMProvider()
	extractor := session.NewLLMExtractor(mockProvider, session.DefaultExtractorConfig("test"))
	deduper := session.NewMemoryDeduper(mockProvider, 0.8)

	config := session.DefaultCompressionConfig()
	config.Threshold = 3
	config.KeepRecent = 2

	compressor := session.NewSessionCompressor(extractor, deduper, nil, config)

	messages := []*session.Message{
		{Role: session.RoleUser, Content: "Hello", CreatedAt: time.Now()},
		{Role: session.RoleUser, Content: "World", CreatedAt: time.Now()},
		{Role: session.RoleUser, Content: "Test", CreatedAt: time.Now()},
		{Role: session.RoleUser, Content: "Data", CreatedAt: time.Now()},
	}

	ctx := context.Background()

	t.Run("ShouldCompress", func(t *testing.T) {
		if !compressor.ShouldCompress(5) {
			t.Error("Expected ShouldCompress to return true for 5 messages")
		}
		if compressor.ShouldCompress(2) {
			t.Error("Expected ShouldCompress to return false for 2 messages")
		}
	})

	t.Run("Compress", func(t *testing.T) {
		result, err := compressor.Compress(ctx, messages)
		if err != nil {
			t.Fatalf("Compress failed: %v", err)
		}
		if result == nil {
			t.Error("Expected compression result, got nil")
		}
	})
}

// newTestFS builds an in-memory VikingFS whose writes enqueue semantic
// messages into an in-memory queue backend.
func newTestFS(t *testing.T) *vikingfs.VikingFS {
	t.Helper()
	backend := agfs.NewMemoryBackend()
	index := vectorindex.NewMemoryIndex(0.5)
	qBackend := queue.NewMemoryBackend()
	return vikingfs.New(backend, index, queue.NewEnqueuer(qBackend))
}

// TestDebugServiceIntegration tests DebugService wired against in-memory
// backends.
func TestDebugServiceIntegration(t *testing.T) {
	backend := agfs.NewMemoryBackend()
	index := vectorindex.NewMemoryIndex(0.5)
	qBackend := queue.NewMemoryBackend()

	debugSvc := service.NewDebugService()
	debugSvc.SetAGFSBackend(backend)
	debugSvc.SetVectorIndex(index)
	debugSvc.SetQueueBackend(qBackend)

	ctx := context.Background()

	t.Run("ComponentHealthCheck", func(t *testing.T) {
		status, err := debugSvc.ComponentHealthCheck(ctx, "queue")
		if err != nil {
			t.Fatalf("ComponentHealthCheck failed: %v", err)
		}
		if status.Name != "queue" {
			t.Errorf("Expected name 'queue', got '%s'", status.Name)
		}
		if status.Status != "healthy" {
			t.Errorf("Expected healthy status, got %q: %s", status.Status, status.ErrorMessage)
		}
	})

	t.Run("OverallStatus", func(t *testing.T) {
		statuses, err := debugSvc.OverallStatus(ctx)
		if err != nil {
			t.Fatalf("OverallStatus failed: %v", err)
		}
		if len(statuses) != 3 {
			t.Errorf("Expected 3 component statuses, got %d", len(statuses))
		}
	})

	t.Run("GetDetailedStatus", func(t *testing.T) {
		details, err := debugSvc.GetDetailedStatus(ctx)
		if err != nil {
			t.Fatalf("GetDetailedStatus failed: %v", err)
		}
		if details["components"] == nil {
			t.Error("Expected components in detailed status")
		}
	})
}

// TestPackServiceIntegration exercises export/import/validate against a
// VikingFS subtree.
func TestPackServiceIntegration(t *testing.T) {
	fs := newTestFS(t)
	packSvc := service.NewPackService(fs)
	ctx := context.Background()

	if err := fs.Write(ctx, "viking://resources/doc/page.md", []byte("# Title\n\nBody")); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	var data []byte
	t.Run("Export", func(t *testing.T) {
		var err error
		data, err = packSvc.Export(ctx, []string{"viking://resources/doc/"})
		if err != nil {
			t.Fatalf("Export failed: %v", err)
		}
		if len(data) == 0 {
			t.Error("Expected data, got empty")
		}
	})

	t.Run("Validate", func(t *testing.T) {
		valid, msg, err := packSvc.Validate(ctx, data)
		if err != nil {
			t.Fatalf("Validate failed: %v", err)
		}
		if !valid {
			t.Errorf("Expected valid, got false: %s", msg)
		}
	})

	t.Run("Import", func(t *testing.T) {
		fs2 := newTestFS(t)
		pack2 := service.NewPackService(fs2)
		if err := pack2.Import(ctx, data); err != nil {
			t.Fatalf("Import failed: %v", err)
		}
		content, err := fs2.Read(ctx, "viking://resources/doc/page.md")
		if err != nil {
			t.Fatalf("Read after import failed: %v", err)
		}
		if string(content) != "# Title\n\nBody" {
			t.Errorf("Expected round-tripped content, got %q", string(content))
		}
	})
}
