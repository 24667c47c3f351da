// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 BookLore Contributors

// Package builtin holds the static wiring table of every provider compiled
// into the binary. Adding a provider means adding a line here; there is no
// runtime plugin discovery.
package builtin

import (
	"github.com/booklore-ai/booklore/internal/handler"
	"github.com/booklore-ai/booklore/internal/provider"
	"github.com/booklore-ai/booklore/internal/provider/anthropic"
	"github.com/booklore-ai/booklore/internal/provider/google"
	"github.com/booklore-ai/booklore/internal/provider/ollama"
	"github.com/booklore-ai/booklore/internal/provider/openai"
	"github.com/booklore-ai/booklore/internal/store/sqlite"
)

// Descriptors returns the full builtin provider table.
func Descriptors() []provider.Descriptor {
	return []provider.Descriptor{
		{Capability: provider.CapabilityLLM, Name: "openai",
			New: func() provider.Provider { return openai.NewLLM() }},
		{Capability: provider.CapabilityLLM, Name: "anthropic",
			New: func() provider.Provider { return anthropic.NewLLM() }},
		{Capability: provider.CapabilityLLM, Name: "google",
			New: func() provider.Provider { return google.NewLLM() }},
		{Capability: provider.CapabilityLLM, Name: "ollama",
			New: func() provider.Provider { return ollama.NewLLM() }},

		{Capability: provider.CapabilityEmbedder, Name: "openai",
			New: func() provider.Provider { return openai.NewEmbedder() }},
		{Capability: provider.CapabilityEmbedder, Name: "google",
			New: func() provider.Provider { return google.NewEmbedder() }},
		{Capability: provider.CapabilityEmbedder, Name: "ollama",
			New: func() provider.Provider { return ollama.NewEmbedder() }},

		{Capability: provider.CapabilityVectorStore, Name: "sqlite",
			New: provider.NewVectorStoreProvider("sqlite")},
		{Capability: provider.CapabilityVectorStore, Name: "memory",
			New: provider.NewVectorStoreProvider("memory")},

		{Capability: provider.CapabilityDocumentHandler, Name: "text",
			New: func() provider.Provider { return handler.NewTextHandler() }},
		{Capability: provider.CapabilityDocumentHandler, Name: "pdf",
			New: func() provider.Provider { return handler.NewPDFHandler() }},

		{Capability: provider.CapabilityGraphStore, Name: "sqlite",
			New: func() provider.Provider { return sqlite.NewGraphStore() }},
	}
}
