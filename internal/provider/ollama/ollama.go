// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 BookLore Contributors

// Package ollama implements the llm and embedder capabilities against a
// local Ollama server through its OpenAI-compatible endpoint.
package ollama

import (
	"context"

	"github.com/booklore-ai/booklore/internal/provider"
	"github.com/booklore-ai/booklore/internal/provider/openai"
)

const (
	defaultBaseURL        = "http://localhost:11434/v1"
	defaultModel          = "llama3.2"
	defaultEmbeddingModel = "nomic-embed-text"
)

// Compile-time interface checks.
var (
	_ provider.LLM      = (*LLM)(nil)
	_ provider.Embedder = (*Embedder)(nil)
)

// withDefaults fills in the Ollama endpoint and the placeholder API key the
// OpenAI-compatible API expects but never checks.
func withDefaults(cfg provider.Config, model string) provider.Config {
	out := provider.Config{}
	for k, v := range cfg {
		out[k] = v
	}
	if out.String("base_url") == "" {
		out["base_url"] = defaultBaseURL
	}
	if out.String("api_key") == "" {
		out["api_key"] = "ollama"
	}
	if out.String("model") == "" {
		out["model"] = model
	}
	return out
}

// LLM generates text through a local Ollama server.
type LLM struct {
	openai.LLM
}

// NewLLM returns an uninitialised Ollama text-generation provider.
func NewLLM() *LLM { return &LLM{} }

func (l *LLM) Name() string { return "ollama" }

func (l *LLM) Initialize(ctx context.Context, cfg provider.Config) error {
	return l.LLM.Initialize(ctx, withDefaults(cfg, defaultModel))
}

// Embedder produces dense vectors through a local Ollama server.
type Embedder struct {
	openai.Embedder
}

// NewEmbedder returns an uninitialised Ollama embedding provider.
func NewEmbedder() *Embedder { return &Embedder{} }

func (e *Embedder) Name() string { return "ollama" }

func (e *Embedder) Initialize(ctx context.Context, cfg provider.Config) error {
	return e.Embedder.Initialize(ctx, withDefaults(cfg, defaultEmbeddingModel))
}
