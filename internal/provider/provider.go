// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 BookLore Contributors

package provider

import (
	"context"

	"github.com/booklore-ai/booklore/internal/store"
)

// Capability identifies the contract a provider implements. A provider
// implements exactly one capability; the registry keys instances by
// (capability, name).
type Capability string

const (
	CapabilityLLM             Capability = "llm"
	CapabilityEmbedder        Capability = "embedder"
	CapabilityVectorStore     Capability = "vector_store"
	CapabilityDocumentHandler Capability = "document_handler"
	CapabilityGraphStore      Capability = "graph_store"
)

// Valid reports whether c names a known capability.
func (c Capability) Valid() bool {
	switch c {
	case CapabilityLLM, CapabilityEmbedder, CapabilityVectorStore,
		CapabilityDocumentHandler, CapabilityGraphStore:
		return true
	}
	return false
}

// Config carries provider-specific settings into Initialize. Values come
// from the configuration surface; providers read only the keys they know.
type Config map[string]any

// String returns the string value for key, or "" if absent or not a string.
func (c Config) String(key string) string {
	if v, ok := c[key].(string); ok {
		return v
	}
	return ""
}

// Int returns the int value for key, or 0 if absent. Float64 values are
// truncated because viper and JSON both decode numbers that way.
func (c Config) Int(key string) int {
	switch v := c[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return 0
}

// Bool returns the bool value for key, or false if absent.
func (c Config) Bool(key string) bool {
	if v, ok := c[key].(bool); ok {
		return v
	}
	return false
}

// Provider is the lifecycle contract shared by all capabilities.
// Initialize is called exactly once before the instance is published to
// callers; Shutdown exactly once when the registry retires it. Providers
// must be safe for concurrent use between those two calls.
type Provider interface {
	Name() string
	Capability() Capability
	Initialize(ctx context.Context, cfg Config) error
	Shutdown(ctx context.Context) error
}

// GenerateRequest is a text-generation request.
type GenerateRequest struct {
	Model       string
	Prompt      string
	System      string
	Temperature float32
	MaxTokens   int
}

// EventType defines the type of a streaming generation event.
type EventType string

const (
	EventTypeTextDelta EventType = "text_delta"
	EventTypeDone      EventType = "done"
	EventTypeError     EventType = "error"
)

// GenerateEvent is a streaming generation event. The stream always ends
// with a single EventTypeDone or EventTypeError event, after which the
// channel is closed.
type GenerateEvent struct {
	Type  EventType
	Text  string
	Error string
}

// LLM is the text-generation capability.
type LLM interface {
	Provider
	Generate(ctx context.Context, req GenerateRequest) (string, error)
	GenerateStream(ctx context.Context, req GenerateRequest) (<-chan GenerateEvent, error)
}

// Embedder is the embedding capability.
type Embedder interface {
	Provider
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// Metadata is document-level metadata extracted by a handler.
type Metadata struct {
	Title  string
	Author string
}

// Chapter is a chapter boundary extracted by a handler. Seq is the
// zero-based chapter order within the document; Start is the byte offset
// of the chapter's first character in FullText.
type Chapter struct {
	Title string
	Seq   int
	Start int
}

// Document is the chunk-ready output of a document handler.
type Document struct {
	Metadata Metadata
	Chapters []Chapter
	FullText string
}

// DocumentHandler turns raw file bytes into chunk-ready text.
type DocumentHandler interface {
	Provider
	Process(ctx context.Context, content []byte, fileName string) (*Document, error)
}

// GraphStore mirrors book/chapter structure into a graph-shaped secondary
// store. Mirroring is a non-critical side effect of ingestion.
type GraphStore interface {
	Provider
	AddBook(ctx context.Context, title, author string) error
	AddChapters(ctx context.Context, bookTitle string, chapters []Chapter) error
}

// VectorStore is the persistent vector storage capability.
type VectorStore interface {
	Provider
	store.VectorStore
}
