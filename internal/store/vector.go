// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 BookLore Contributors

package store

import "context"

// Filter is an exact-match predicate over metadata fields. Multiple keys
// are ANDed. Richer predicates are not supported.
type Filter map[string]any

// SearchResult is one nearest-neighbor hit. Distance is ascending
// (0.0 = exact match) regardless of backend.
type SearchResult struct {
	ID       string
	Text     string
	Metadata map[string]any
	Distance float32
}

// GetResult holds parallel slices for a batch fetch.
type GetResult struct {
	IDs        []string
	Texts      []string
	Metadatas  []map[string]any
	Embeddings [][]float32
}

// VectorStore is persistent storage of (text, vector, metadata) rows.
// Add is atomic per call: a chunk is never visible to Search before the
// Add that wrote it returns.
type VectorStore interface {
	// Add stores the given rows and returns their ids. If ids is nil the
	// store generates them. texts, embeddings, metadatas and ids (when
	// given) must be the same length.
	Add(ctx context.Context, texts []string, embeddings [][]float32, metadatas []map[string]any, ids []string) ([]string, error)

	// Search returns up to topK nearest rows ordered by ascending distance,
	// ties broken by insertion order.
	Search(ctx context.Context, query []float32, topK int, filter Filter) ([]SearchResult, error)

	// Delete removes rows by id, by filter, or both. Deleting with neither
	// is a no-op.
	Delete(ctx context.Context, ids []string, filter Filter) error

	// Get fetches rows by id, by filter, or all rows when both are empty.
	Get(ctx context.Context, ids []string, filter Filter) (*GetResult, error)

	// Clear removes every row in the collection.
	Clear(ctx context.Context) error

	Count(ctx context.Context) (int, error)

	Close() error
}

// MatchesFilter reports whether meta satisfies every exact-match clause in
// filter. An empty filter matches everything.
func MatchesFilter(meta map[string]any, filter Filter) bool {
	for k, want := range filter {
		got, ok := meta[k]
		if !ok || got != want {
			return false
		}
	}
	return true
}
