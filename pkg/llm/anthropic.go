// Copyright (c) 2026 Beijing Volcano Engine Technology Co., Ltd.
// SPDX-License-Identifier: Apache-2.0

package llm

import (
	"context"
	"errors"
	"io"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/anthropics/anthropic-sdk-go/packages/ssestream"
)

// AnthropicProvider implements Provider for Anthropic Claude, via the
// official SDK rather than a hand-rolled HTTP client.
type AnthropicProvider struct {
	client *anthropic.Client
	model  string
}

// NewAnthropicProvider creates a new Anthropic provider.
func NewAnthropicProvider(apiKey, model string) *AnthropicProvider {
	client := anthropic.NewClient(option.WithAPIKey(apiKey))
	return &AnthropicProvider{client: &client, model: model}
}

func (p *AnthropicProvider) modelOrDefault(model string) string {
	if model != "" {
		return model
	}
	return p.model
}

func toAnthropicMessages(msgs []Message) []anthropic.MessageParam {
	out := make([]anthropic.MessageParam, 0, len(msgs))
	for _, m := range msgs {
		block := anthropic.NewTextBlock(m.Content)
		switch m.Role {
		case RoleAssistant:
			out = append(out, anthropic.NewAssistantMessage(block))
		default:
			out = append(out, anthropic.NewUserMessage(block))
		}
	}
	return out
}

// Chat creates a chat completion.
func (p *AnthropicProvider) Chat(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	maxTokens := int64(req.MaxTokens)
	if maxTokens == 0 {
		maxTokens = 4096
	}

	resp, err := p.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:       anthropic.Model(p.modelOrDefault(req.Model)),
		MaxTokens:   maxTokens,
		Messages:    toAnthropicMessages(req.Messages),
		Temperature: anthropic.Float(req.Temperature),
	})
	if err != nil {
		return nil, err
	}

	var content string
	for _, block := range resp.Content {
		if block.Type == "text" {
			content += block.Text
		}
	}

	return &ChatResponse{
		ID:    resp.ID,
		Model: string(resp.Model),
		Choices: []Choice{{
			Index:        0,
			Message:      Message{Role: RoleAssistant, Content: content},
			FinishReason: string(resp.StopReason),
		}},
		Usage: Usage{
			PromptTokens:     int(resp.Usage.InputTokens),
			CompletionTokens: int(resp.Usage.OutputTokens),
			TotalTokens:      int(resp.Usage.InputTokens + resp.Usage.OutputTokens),
		},
	}, nil
}

// ChatStream creates a streaming chat completion.
func (p *AnthropicProvider) ChatStream(ctx context.Context, req *ChatRequest) (StreamReader, error) {
	maxTokens := int64(req.MaxTokens)
	if maxTokens == 0 {
		maxTokens = 4096
	}

	stream := p.client.Messages.NewStreaming(ctx, anthropic.MessageNewParams{
		Model:       anthropic.Model(p.modelOrDefault(req.Model)),
		MaxTokens:   maxTokens,
		Messages:    toAnthropicMessages(req.Messages),
		Temperature: anthropic.Float(req.Temperature),
	})
	return &anthropicStreamReader{stream: stream}, nil
}

// Embed creates embeddings — not offered by the Anthropic API.
func (p *AnthropicProvider) Embed(ctx context.Context, req *EmbeddingRequest) (*EmbeddingResponse, error) {
	return nil, errors.New("llm: embeddings not supported by the anthropic provider")
}

// Close closes the provider. The SDK client holds no long-lived
// connection to release.
func (p *AnthropicProvider) Close() error { return nil }

type anthropicStreamReader struct {
	stream *ssestream.Stream[anthropic.MessageStreamEventUnion]
}

func (r *anthropicStreamReader) Recv() (*StreamResponse, error) {
	if !r.stream.Next() {
		if err := r.stream.Err(); err != nil {
			return nil, err
		}
		return nil, io.EOF
	}
	event := r.stream.Current()
	if event.Type != "content_block_delta" {
		return &StreamResponse{}, nil
	}
	delta := event.Delta
	return &StreamResponse{
		Choices: []StreamChoice{{Delta: Message{Role: RoleAssistant, Content: delta.Text}}},
	}, nil
}

func (r *anthropicStreamReader) Close() error {
	return r.stream.Close()
}
