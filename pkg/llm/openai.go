// Copyright (c) 2026 Beijing Volcano Engine Technology Co., Ltd.
// SPDX-License-Identifier: Apache-2.0

package llm

import (
	"context"
	"errors"
	"io"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
	"github.com/openai/openai-go/v2/packages/ssestream"
)

// OpenAIProvider implements Provider for OpenAI-compatible APIs via the
// official SDK, which owns marshaling, retries, and SSE parsing.
type OpenAIProvider struct {
	client *openai.Client
	model  string
}

// NewOpenAIProvider creates a new OpenAI provider. An empty baseURL uses
// the SDK default (api.openai.com); any OpenAI-compatible endpoint
// (SiliconFlow, Azure OpenAI, a local vLLM server) can be substituted.
func NewOpenAIProvider(apiKey, baseURL, model string) *OpenAIProvider {
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	client := openai.NewClient(opts...)
	return &OpenAIProvider{client: &client, model: model}
}

func (p *OpenAIProvider) modelOrDefault(model string) string {
	if model != "" {
		return model
	}
	return p.model
}

func toOpenAIMessages(msgs []Message) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(msgs))
	for _, m := range msgs {
		switch m.Role {
		case RoleSystem:
			out = append(out, openai.SystemMessage(m.Content))
		case RoleAssistant:
			out = append(out, openai.AssistantMessage(m.Content))
		default:
			out = append(out, openai.UserMessage(m.Content))
		}
	}
	return out
}

// Chat creates a chat completion.
func (p *OpenAIProvider) Chat(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	resp, err := p.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(p.modelOrDefault(req.Model)),
		Messages:    toOpenAIMessages(req.Messages),
		Temperature: openai.Float(req.Temperature),
	})
	if err != nil {
		return nil, err
	}

	choices := make([]Choice, 0, len(resp.Choices))
	for _, c := range resp.Choices {
		choices = append(choices, Choice{
			Index:        int(c.Index),
			Message:      Message{Role: RoleAssistant, Content: c.Message.Content},
			FinishReason: string(c.FinishReason),
		})
	}

	return &ChatResponse{
		ID:      resp.ID,
		Model:   resp.Model,
		Choices: choices,
		Usage: Usage{
			PromptTokens:     int(resp.Usage.PromptTokens),
			CompletionTokens: int(resp.Usage.CompletionTokens),
			TotalTokens:      int(resp.Usage.TotalTokens),
		},
	}, nil
}

// ChatStream creates a streaming chat completion.
func (p *OpenAIProvider) ChatStream(ctx context.Context, req *ChatRequest) (StreamReader, error) {
	stream := p.client.Chat.Completions.NewStreaming(ctx, openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(p.modelOrDefault(req.Model)),
		Messages:    toOpenAIMessages(req.Messages),
		Temperature: openai.Float(req.Temperature),
	})
	return &openAIStreamReader{stream: stream}, nil
}

// Embed creates embeddings.
func (p *OpenAIProvider) Embed(ctx context.Context, req *EmbeddingRequest) (*EmbeddingResponse, error) {
	var input openai.EmbeddingNewParamsInputUnion
	switch v := req.Input.(type) {
	case string:
		input.OfString = openai.String(v)
	case []string:
		input.OfArrayOfStrings = v
	default:
		return nil, errors.New("llm: embedding input must be a string or []string")
	}

	resp, err := p.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Model: openai.EmbeddingModel(p.modelOrDefault(req.Model)),
		Input: input,
	})
	if err != nil {
		return nil, err
	}

	data := make([]Embedding, 0, len(resp.Data))
	for _, d := range resp.Data {
		data = append(data, Embedding{Object: string(d.Object), Embedding: d.Embedding, Index: int(d.Index)})
	}
	return &EmbeddingResponse{
		Data: data,
		Usage: Usage{
			PromptTokens: int(resp.Usage.PromptTokens),
			TotalTokens:  int(resp.Usage.TotalTokens),
		},
	}, nil
}

// Close closes the provider. The SDK's HTTP client is shared and needs no
// explicit teardown.
func (p *OpenAIProvider) Close() error { return nil }

type openAIStreamReader struct {
	stream *ssestream.Stream[openai.ChatCompletionChunk]
}

func (r *openAIStreamReader) Recv() (*StreamResponse, error) {
	if !r.stream.Next() {
		if err := r.stream.Err(); err != nil {
			return nil, err
		}
		return nil, io.EOF
	}
	chunk := r.stream.Current()
	choices := make([]StreamChoice, 0, len(chunk.Choices))
	for _, c := range chunk.Choices {
		choices = append(choices, StreamChoice{
			Index:        int(c.Index),
			Delta:        Message{Role: RoleAssistant, Content: c.Delta.Content},
			FinishReason: string(c.FinishReason),
		})
	}
	return &StreamResponse{ID: chunk.ID, Model: chunk.Model, Choices: choices}, nil
}

func (r *openAIStreamReader) Close() error {
	return r.stream.Close()
}
