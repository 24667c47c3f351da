// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 BookLore Contributors

// Package google implements the llm and embedder capabilities on the
// Google Gemini API.
package google

import (
	"context"

	"google.golang.org/genai"

	"github.com/booklore-ai/booklore/internal/provider"
	blerr "github.com/booklore-ai/booklore/pkg/errors"
)

const (
	defaultModel          = "gemini-2.5-flash"
	defaultEmbeddingModel = "gemini-embedding-001"
)

// Compile-time interface checks.
var (
	_ provider.LLM      = (*LLM)(nil)
	_ provider.Embedder = (*Embedder)(nil)
)

func newClient(ctx context.Context, cfg provider.Config) (*genai.Client, error) {
	apiKey := cfg.String("api_key")
	if apiKey == "" {
		return nil, blerr.New(blerr.CodeProviderConfigInvalid,
			"google: missing api_key in config", blerr.FieldProvider("google"))
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, blerr.Wrap(err, blerr.CodeProviderUpstreamFailure,
			"google: creating client", blerr.FieldProvider("google"))
	}
	return client, nil
}

// LLM generates text through the Gemini API.
type LLM struct {
	client *genai.Client
	model  string
}

// NewLLM returns an uninitialised Google text-generation provider.
func NewLLM() *LLM { return &LLM{} }

func (l *LLM) Name() string                    { return "google" }
func (l *LLM) Capability() provider.Capability { return provider.CapabilityLLM }
func (l *LLM) Shutdown(context.Context) error  { return nil }

func (l *LLM) Initialize(ctx context.Context, cfg provider.Config) error {
	client, err := newClient(ctx, cfg)
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

func (l *LLM) buildRequest(req provider.GenerateRequest) (string, []*genai.Content, *genai.GenerateContentConfig) {
	model := req.Model
	if model == "" {
		model = l.model
	}

	config := &genai.GenerateContentConfig{}
	if req.System != "" {
		config.SystemInstruction = genai.NewContentFromText(req.System, genai.RoleUser)
	}
	if req.Temperature > 0 {
		config.Temperature = genai.Ptr(req.Temperature)
	}
	if req.MaxTokens > 0 {
		config.MaxOutputTokens = int32(req.MaxTokens)
	}

	return model, genai.Text(req.Prompt), config
}

func (l *LLM) Generate(ctx context.Context, req provider.GenerateRequest) (string, error) {
	model, contents, config := l.buildRequest(req)

	resp, err := l.client.Models.GenerateContent(ctx, model, contents, config)
	if err != nil {
		return "", blerr.Wrap(err, blerr.CodeProviderUpstreamFailure,
			"google: generating content", blerr.FieldProvider("google"))
	}
	return resp.Text(), nil
}

func (l *LLM) GenerateStream(ctx context.Context, req provider.GenerateRequest) (<-chan provider.GenerateEvent, error) {
	model, contents, config := l.buildRequest(req)
	eventCh := make(chan provider.GenerateEvent, 100)

	go func() {
		defer close(eventCh)

		for chunk, err := range l.client.Models.GenerateContentStream(ctx, model, contents, config) {
			if err != nil {
				eventCh <- provider.GenerateEvent{Type: provider.EventTypeError, Error: err.Error()}
				return
			}
			if text := chunk.Text(); text != "" {
				eventCh <- provider.GenerateEvent{Type: provider.EventTypeTextDelta, Text: text}
			}
		}
		eventCh <- provider.GenerateEvent{Type: provider.EventTypeDone}
	}()

	return eventCh, nil
}

// Embedder produces dense vectors through the Gemini embedding models.
type Embedder struct {
	client *genai.Client
	model  string
}

// NewEmbedder returns an uninitialised Google embedding provider.
func NewEmbedder() *Embedder { return &Embedder{} }

func (e *Embedder) Name() string                    { return "google" }
func (e *Embedder) Capability() provider.Capability { return provider.CapabilityEmbedder }
func (e *Embedder) Shutdown(context.Context) error  { return nil }

func (e *Embedder) Initialize(ctx context.Context, cfg provider.Config) error {
	client, err := newClient(ctx, cfg)
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

	contents := make([]*genai.Content, len(texts))
	for i, text := range texts {
		contents[i] = genai.NewContentFromText(text, genai.RoleUser)
	}

	resp, err := e.client.Models.EmbedContent(ctx, e.model, contents, nil)
	if err != nil {
		return nil, blerr.Wrap(err, blerr.CodeProviderUpstreamFailure,
			"google: embedding content", blerr.FieldProvider("google"))
	}
	if len(resp.Embeddings) != len(texts) {
		return nil, blerr.Errorf(blerr.CodeProviderResponseInvalid,
			"google: got %d embeddings for %d texts", len(resp.Embeddings), len(texts))
	}

	out := make([][]float32, len(resp.Embeddings))
	for i, emb := range resp.Embeddings {
		out[i] = emb.Values
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
