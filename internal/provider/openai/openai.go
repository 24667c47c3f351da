// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 BookLore Contributors

// Package openai implements the llm and embedder capabilities on the
// OpenAI API.
package openai

import (
	"context"

	openaisdk "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/param"
	"github.com/openai/openai-go/shared"

	"github.com/booklore-ai/booklore/internal/provider"
	blerr "github.com/booklore-ai/booklore/pkg/errors"
)

const (
	defaultModel          = "gpt-4.1-mini"
	defaultEmbeddingModel = "text-embedding-3-small"
)

// Compile-time interface checks.
var (
	_ provider.LLM      = (*LLM)(nil)
	_ provider.Embedder = (*Embedder)(nil)
)

// newClient builds an SDK client from the shared config keys. base_url is
// optional and useful for testing against a mock server.
func newClient(cfg provider.Config) (openaisdk.Client, error) {
	apiKey := cfg.String("api_key")
	if apiKey == "" {
		return openaisdk.Client{}, blerr.New(blerr.CodeProviderConfigInvalid,
			"openai: missing api_key in config", blerr.FieldProvider("openai"))
	}

	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL := cfg.String("base_url"); baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return openaisdk.NewClient(opts...), nil
}

// LLM generates text through the Chat Completions API.
type LLM struct {
	client openaisdk.Client
	model  string
}

// NewLLM returns an uninitialised OpenAI text-generation provider.
func NewLLM() *LLM { return &LLM{} }

func (l *LLM) Name() string                    { return "openai" }
func (l *LLM) Capability() provider.Capability { return provider.CapabilityLLM }
func (l *LLM) Shutdown(context.Context) error  { return nil }

func (l *LLM) Initialize(_ context.Context, cfg provider.Config) error {
	client, err := newClient(cfg)
	if err != nil {
		return err
	}
	l.client = client
	l.model = cfg.String("model")
	if l.model == "" {
		l.model = defaultModel
	}
	return nil
}

func (l *LLM) buildParams(req provider.GenerateRequest) openaisdk.ChatCompletionNewParams {
	model := req.Model
	if model == "" {
		model = l.model
	}

	var msgs []openaisdk.ChatCompletionMessageParamUnion
	if req.System != "" {
		msgs = append(msgs, openaisdk.SystemMessage(req.System))
	}
	msgs = append(msgs, openaisdk.UserMessage(req.Prompt))

	params := openaisdk.ChatCompletionNewParams{
		Model:    shared.ChatModel(model),
		Messages: msgs,
	}
	if req.MaxTokens > 0 {
		params.MaxCompletionTokens = param.NewOpt(int64(req.MaxTokens))
	}
	if req.Temperature > 0 {
		params.Temperature = param.NewOpt(float64(req.Temperature))
	}
	return params
}

func (l *LLM) Generate(ctx context.Context, req provider.GenerateRequest) (string, error) {
	resp, err := l.client.Chat.Completions.New(ctx, l.buildParams(req))
	if err != nil {
		return "", blerr.Wrap(err, blerr.CodeProviderUpstreamFailure,
			"openai: chat completion", blerr.FieldProvider("openai"))
	}
	if len(resp.Choices) == 0 {
		return "", blerr.New(blerr.CodeProviderResponseInvalid,
			"openai: response has no choices", blerr.FieldProvider("openai"))
	}
	return resp.Choices[0].Message.Content, nil
}

func (l *LLM) GenerateStream(ctx context.Context, req provider.GenerateRequest) (<-chan provider.GenerateEvent, error) {
	params := l.buildParams(req)
	eventCh := make(chan provider.GenerateEvent, 100)

	go func() {
		defer close(eventCh)
		stream := l.client.Chat.Completions.NewStreaming(ctx, params)

		for stream.Next() {
			chunk := stream.Current()
			for _, choice := range chunk.Choices {
				if choice.Delta.Content != "" {
					eventCh <- provider.GenerateEvent{
						Type: provider.EventTypeTextDelta,
						Text: choice.Delta.Content,
					}
				}
			}
		}
		if err := stream.Err(); err != nil {
			eventCh <- provider.GenerateEvent{Type: provider.EventTypeError, Error: err.Error()}
			return
		}
		eventCh <- provider.GenerateEvent{Type: provider.EventTypeDone}
	}()

	return eventCh, nil
}

// Embedder produces dense vectors through the Embeddings API.
type Embedder struct {
	client openaisdk.Client
	model  string
}

// NewEmbedder returns an uninitialised OpenAI embedding provider.
func NewEmbedder() *Embedder { return &Embedder{} }

func (e *Embedder) Name() string                    { return "openai" }
func (e *Embedder) Capability() provider.Capability { return provider.CapabilityEmbedder }
func (e *Embedder) Shutdown(context.Context) error  { return nil }

func (e *Embedder) Initialize(_ context.Context, cfg provider.Config) error {
	client, err := newClient(cfg)
	if err != nil {
		return err
	}
	e.client = client
	e.model = cfg.String("model")
	if e.model == "" {
		e.model = defaultEmbeddingModel
	}
	return nil
}

func (e *Embedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	resp, err := e.client.Embeddings.New(ctx, openaisdk.EmbeddingNewParams{
		Model: openaisdk.EmbeddingModel(e.model),
		Input: openaisdk.EmbeddingNewParamsInputUnion{OfArrayOfStrings: texts},
	})
	if err != nil {
		return nil, blerr.Wrap(err, blerr.CodeProviderUpstreamFailure,
			"openai: creating embeddings", blerr.FieldProvider("openai"))
	}
	if len(resp.Data) != len(texts) {
		return nil, blerr.Errorf(blerr.CodeProviderResponseInvalid,
			"openai: got %d embeddings for %d texts", len(resp.Data), len(texts))
	}

	out := make([][]float32, len(resp.Data))
	for i, d := range resp.Data {
		vec := make([]float32, len(d.Embedding))
		for j, v := range d.Embedding {
			vec[j] = float32(v)
		}
		out[i] = vec
	}
	return out, nil
}

func (e *Embedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.EmbedDocuments(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}
