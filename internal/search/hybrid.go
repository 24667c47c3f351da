// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 BookLore Contributors

// Package search implements the two-stage similarity search: scalable
// candidate retrieval from the persistent vector store, refined by an
// exact process-local index when one is populated.
package search

import (
	"context"
	"log/slog"

	"github.com/booklore-ai/booklore/internal/index"
	"github.com/booklore-ai/booklore/internal/store"
	blerr "github.com/booklore-ai/booklore/pkg/errors"
)

const defaultTopKMultiplier = 5

// Config controls candidate pool sizing.
type Config struct {
	// TopKMultiplier scales how many candidates stage one fetches from the
	// persistent store: M = min(topK*TopKMultiplier, count).
	TopKMultiplier int
}

// Hybrid combines persistent-store candidate retrieval with an optional
// exact refinement stage. A nil refinement index disables stage two, which
// is the right setting for horizontally scaled deployments where a
// process-local index would diverge between instances.
type Hybrid struct {
	store  store.VectorStore
	refine *index.Flat
	cfg    Config
	logger *slog.Logger
}

// NewHybrid creates a searcher over the given store. refine may be nil.
func NewHybrid(vs store.VectorStore, refine *index.Flat, cfg Config, logger *slog.Logger) *Hybrid {
	if cfg.TopKMultiplier <= 0 {
		cfg.TopKMultiplier = defaultTopKMultiplier
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Hybrid{store: vs, refine: refine, cfg: cfg, logger: logger}
}

// Index returns the refinement index, or nil when refinement is disabled.
func (h *Hybrid) Index() *index.Flat {
	return h.refine
}

// Search returns up to topK results ordered by ascending distance.
//
// With a populated refinement index and no filter, candidates from the
// persistent store are re-ranked by exact distance and hydrated with text
// and metadata by id. With a filter, refinement is bypassed: the index
// mirrors the unfiltered collection, so only the backend's own filtered
// ranking is trustworthy there.
func (h *Hybrid) Search(ctx context.Context, query []float32, topK int, filter store.Filter) ([]store.SearchResult, error) {
	if topK <= 0 {
		return nil, blerr.Errorf(blerr.CodeQueryRequestInvalid, "topK must be positive, got %d", topK)
	}

	count, err := h.store.Count(ctx)
	if err != nil {
		return nil, blerr.Wrap(err, blerr.CodeStoreBackendUnavailable, "counting vector store")
	}
	if count == 0 {
		return nil, nil
	}

	poolSize := topK * h.cfg.TopKMultiplier
	if poolSize > count {
		poolSize = count
	}

	candidates, err := h.store.Search(ctx, query, poolSize, filter)
	if err != nil {
		return nil, blerr.Wrap(err, blerr.CodeStoreBackendUnavailable, "searching vector store")
	}

	if h.refine == nil || h.refine.Len() == 0 || len(filter) > 0 {
		if len(candidates) > topK {
			candidates = candidates[:topK]
		}
		return candidates, nil
	}

	return h.refineResults(ctx, query, topK)
}

// refineResults runs the exact stage and hydrates the winners from the
// persistent store, preserving exact-distance order.
func (h *Hybrid) refineResults(ctx context.Context, query []float32, topK int) ([]store.SearchResult, error) {
	matches, err := h.refine.Search(query, topK)
	if err != nil {
		return nil, err
	}
	if len(matches) == 0 {
		return nil, nil
	}

	ids := make([]string, len(matches))
	for i, m := range matches {
		ids[i] = m.ID
	}

	rows, err := h.store.Get(ctx, ids, nil)
	if err != nil {
		return nil, blerr.Wrap(err, blerr.CodeStoreBackendUnavailable, "hydrating refined results")
	}

	byID := make(map[string]int, len(rows.IDs))
	for i, id := range rows.IDs {
		byID[id] = i
	}

	results := make([]store.SearchResult, 0, len(matches))
	for _, m := range matches {
		i, ok := byID[m.ID]
		if !ok {
			// Index entry no longer in the store (deleted out from under
			// the local mirror); skip rather than fail the query.
			h.logger.Warn("refinement index entry missing from store", "id", m.ID)
			continue
		}
		results = append(results, store.SearchResult{
			ID:       m.ID,
			Text:     rows.Texts[i],
			Metadata: rows.Metadatas[i],
			Distance: m.Distance,
		})
	}
	return results, nil
}

// Rebuild reloads the refinement index from the persistent store so the
// invariant "index size <= store count" holds after restarts or external
// deletes. No-op when refinement is disabled.
func (h *Hybrid) Rebuild(ctx context.Context) error {
	if h.refine == nil {
		return nil
	}

	rows, err := h.store.Get(ctx, nil, nil)
	if err != nil {
		return blerr.Wrap(err, blerr.CodeStoreBackendUnavailable, "loading vectors for refinement index")
	}

	h.refine.Reset()
	if err := h.refine.AddBatch(rows.IDs, rows.Embeddings); err != nil {
		return err
	}

	h.logger.Debug("refinement index rebuilt", "entries", h.refine.Len())
	return nil
}
