// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 BookLore Contributors

package store

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	blerr "github.com/booklore-ai/booklore/pkg/errors"
)

func init() {
	RegisterBackend("memory", func(_ string, dims int) (VectorStore, error) {
		return NewMemoryStore(dims), nil
	})
}

// Compile-time interface check.
var _ VectorStore = (*MemoryStore)(nil)

type memoryRow struct {
	id        string
	text      string
	metadata  map[string]any
	embedding []float32
}

// MemoryStore is a process-local VectorStore used for tests and ephemeral
// runs. Search is an exact linear scan, so distances are already exact and
// no refinement stage is needed on top of it.
type MemoryStore struct {
	mu   sync.RWMutex
	rows []memoryRow
	dims int // 0 until the first Add fixes it
}

// NewMemoryStore creates an empty in-memory store. dims may be 0 to adopt
// the dimension of the first added embedding.
func NewMemoryStore(dims int) *MemoryStore {
	return &MemoryStore{dims: dims}
}

func (m *MemoryStore) Add(_ context.Context, texts []string, embeddings [][]float32, metadatas []map[string]any, ids []string) ([]string, error) {
	if len(texts) != len(embeddings) {
		return nil, blerr.Errorf(blerr.CodeStoreInvalidInput,
			"texts and embeddings length mismatch: %d != %d", len(texts), len(embeddings))
	}
	if metadatas != nil && len(metadatas) != len(texts) {
		return nil, blerr.Errorf(blerr.CodeStoreInvalidInput,
			"metadatas length mismatch: %d != %d", len(metadatas), len(texts))
	}
	if ids != nil && len(ids) != len(texts) {
		return nil, blerr.Errorf(blerr.CodeStoreInvalidInput,
			"ids length mismatch: %d != %d", len(ids), len(texts))
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	// Validate the whole batch before mutating so Add stays atomic.
	for _, emb := range embeddings {
		if m.dims == 0 {
			m.dims = len(emb)
		}
		if len(emb) != m.dims {
			return nil, blerr.Errorf(blerr.CodeStoreInvalidInput,
				"embedding dimension mismatch: expected %d, got %d", m.dims, len(emb))
		}
	}

	out := make([]string, len(texts))
	for i := range texts {
		id := uuid.NewString()
		if ids != nil {
			id = ids[i]
		}
		out[i] = id

		var meta map[string]any
		if metadatas != nil {
			meta = cloneMeta(metadatas[i])
		} else {
			meta = map[string]any{}
		}

		emb := make([]float32, len(embeddings[i]))
		copy(emb, embeddings[i])

		m.rows = append(m.rows, memoryRow{
			id:        id,
			text:      texts[i],
			metadata:  meta,
			embedding: emb,
		})
	}

	return out, nil
}

func (m *MemoryStore) Search(_ context.Context, query []float32, topK int, filter Filter) ([]SearchResult, error) {
	if topK <= 0 {
		return nil, blerr.Errorf(blerr.CodeStoreInvalidInput, "topK must be positive, got %d", topK)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.dims != 0 && len(query) != m.dims {
		return nil, blerr.Errorf(blerr.CodeStoreInvalidInput,
			"query dimension mismatch: expected %d, got %d", m.dims, len(query))
	}

	var results []SearchResult
	for _, row := range m.rows {
		if !MatchesFilter(row.metadata, filter) {
			continue
		}
		results = append(results, SearchResult{
			ID:       row.id,
			Text:     row.text,
			Metadata: cloneMeta(row.metadata),
			Distance: l2Distance(query, row.embedding),
		})
	}

	// Stable sort keeps insertion order for equal distances.
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Distance < results[j].Distance
	})

	if len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}

func (m *MemoryStore) Delete(_ context.Context, ids []string, filter Filter) error {
	if len(ids) == 0 && len(filter) == 0 {
		return nil
	}

	idSet := make(map[string]bool, len(ids))
	for _, id := range ids {
		idSet[id] = true
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	kept := m.rows[:0]
	for _, row := range m.rows {
		if idSet[row.id] || (len(filter) > 0 && MatchesFilter(row.metadata, filter)) {
			continue
		}
		kept = append(kept, row)
	}
	m.rows = kept
	return nil
}

func (m *MemoryStore) Get(_ context.Context, ids []string, filter Filter) (*GetResult, error) {
	idSet := make(map[string]bool, len(ids))
	for _, id := range ids {
		idSet[id] = true
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	res := &GetResult{}
	for _, row := range m.rows {
		if len(ids) > 0 && !idSet[row.id] {
			continue
		}
		if !MatchesFilter(row.metadata, filter) {
			continue
		}
		emb := make([]float32, len(row.embedding))
		copy(emb, row.embedding)

		res.IDs = append(res.IDs, row.id)
		res.Texts = append(res.Texts, row.text)
		res.Metadatas = append(res.Metadatas, cloneMeta(row.metadata))
		res.Embeddings = append(res.Embeddings, emb)
	}
	return res, nil
}

func (m *MemoryStore) Clear(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows = nil
	return nil
}

func (m *MemoryStore) Count(_ context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.rows), nil
}

func (m *MemoryStore) Close() error { return nil }

func cloneMeta(meta map[string]any) map[string]any {
	out := make(map[string]any, len(meta))
	for k, v := range meta {
		out[k] = v
	}
	return out
}

// l2Distance is squared euclidean distance. Squaring preserves ordering
// and matches the refinement index metric.
func l2Distance(a, b []float32) float32 {
	var sum float32
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}
