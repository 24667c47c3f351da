// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 BookLore Contributors

// Package anthropic implements the llm capability on the Anthropic
// Messages API. Anthropic has no embeddings endpoint, so there is no
// embedder here.
package anthropic

import (
	"context"
	"strings"

	anthropicsdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/booklore-ai/booklore/internal/provider"
	blerr "github.com/booklore-ai/booklore/pkg/errors"
)

const (
	defaultModel     = "claude-sonnet-4-5"
	defaultMaxTokens = 4096
)

// Compile-time interface check.
var _ provider.LLM = (*LLM)(nil)

// LLM generates text through the Anthropic Messages API.
type LLM struct {
	client anthropicsdk.Client
	model  string
}

// NewLLM returns an uninitialised Anthropic text-generation provider.
func NewLLM() *LLM { return &LLM{} }

func (l *LLM) Name() string                    { return "anthropic" }
func (l *LLM) Capability() provider.Capability { return provider.CapabilityLLM }
func (l *LLM) Shutdown(context.Context) error  { return nil }

func (l *LLM) Initialize(_ context.Context, cfg provider.Config) error {
	apiKey := cfg.String("api_key")
	if apiKey == "" {
		return blerr.New(blerr.CodeProviderConfigInvalid,
			"anthropic: missing api_key in config", blerr.FieldProvider("anthropic"))
	}

	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL := cfg.String("base_url"); baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}

	l.client = anthropicsdk.NewClient(opts...)
	l.model = cfg.String("model")
	if l.model == "" {
		l.model = defaultModel
	}
	return nil
}

func (l *LLM) buildParams(req provider.GenerateRequest) anthropicsdk.MessageNewParams {
	model := req.Model
	if model == "" {
		model = l.model
	}
	maxTokens := int64(req.MaxTokens)
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}

	params := anthropicsdk.MessageNewParams{
		Model:     anthropicsdk.Model(model),
		MaxTokens: maxTokens,
		Messages: []anthropicsdk.MessageParam{
			anthropicsdk.NewUserMessage(anthropicsdk.NewTextBlock(req.Prompt)),
		},
	}
	if req.System != "" {
		params.System = []anthropicsdk.TextBlockParam{{Text: req.System}}
	}
	if req.Temperature > 0 {
		params.Temperature = anthropicsdk.Float(float64(req.Temperature))
	}
	return params
}

func (l *LLM) Generate(ctx context.Context, req provider.GenerateRequest) (string, error) {
	msg, err := l.client.Messages.New(ctx, l.buildParams(req))
	if err != nil {
		return "", blerr.Wrap(err, blerr.CodeProviderUpstreamFailure,
			"anthropic: creating message", blerr.FieldProvider("anthropic"))
	}

	var sb strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	return sb.String(), nil
}

func (l *LLM) GenerateStream(ctx context.Context, req provider.GenerateRequest) (<-chan provider.GenerateEvent, error) {
	params := l.buildParams(req)
	eventCh := make(chan provider.GenerateEvent, 100)

	go func() {
		defer close(eventCh)
		stream := l.client.Messages.NewStreaming(ctx, params)

		for stream.Next() {
			event := stream.Current()
			if event.Type == "content_block_delta" && event.Delta.Text != "" {
				eventCh <- provider.GenerateEvent{
					Type: provider.EventTypeTextDelta,
					Text: event.Delta.Text,
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
