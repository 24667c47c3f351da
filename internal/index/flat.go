// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 BookLore Contributors

// Package index provides the process-local exact refinement index used to
// re-rank candidates drawn from the persistent vector store.
package index

import (
	"container/heap"
	"sync"

	blerr "github.com/booklore-ai/booklore/pkg/errors"
)

// Match is one exact nearest-neighbor result.
type Match struct {
	ID       string
	Distance float32
}

// Flat is a brute-force exact index. Entries map their local insertion
// position back to a persistent-store id, so the index can mirror a subset
// (or all) of a collection. Exact search is O(n) per query; the index is
// meant for candidate-pool refinement, not corpus-scale search.
type Flat struct {
	mu      sync.RWMutex
	ids     []string
	vectors [][]float32
	dims    int // 0 until first Add
}

// NewFlat creates an empty index. The dimension is adopted from the first
// inserted vector and immutable afterwards.
func NewFlat() *Flat {
	return &Flat{}
}

// Add appends a vector under the given persistent-store id. The vector is
// copied so later caller mutations cannot corrupt the index.
func (f *Flat) Add(id string, vector []float32) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.dims == 0 {
		f.dims = len(vector)
	}
	if len(vector) != f.dims {
		return blerr.Errorf(blerr.CodeIndexDimensionInvalid,
			"dimension mismatch: expected %d, got %d", f.dims, len(vector))
	}

	v := make([]float32, len(vector))
	copy(v, vector)
	f.ids = append(f.ids, id)
	f.vectors = append(f.vectors, v)
	return nil
}

// AddBatch appends parallel id and vector slices.
func (f *Flat) AddBatch(ids []string, vectors [][]float32) error {
	if len(ids) != len(vectors) {
		return blerr.Errorf(blerr.CodeIndexDimensionInvalid,
			"ids and vectors length mismatch: %d != %d", len(ids), len(vectors))
	}
	for i := range ids {
		if err := f.Add(ids[i], vectors[i]); err != nil {
			return err
		}
	}
	return nil
}

// Search returns the k exact nearest neighbors by squared euclidean
// distance, ascending, ties broken by insertion order.
func (f *Flat) Search(query []float32, k int) ([]Match, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if len(f.ids) == 0 || k <= 0 {
		return nil, nil
	}
	if len(query) != f.dims {
		return nil, blerr.Errorf(blerr.CodeIndexDimensionInvalid,
			"query dimension mismatch: expected %d, got %d", f.dims, len(query))
	}

	// Max-heap of the k best so far; the worst candidate sits on top.
	h := &matchHeap{}
	heap.Init(h)

	for pos, vector := range f.vectors {
		item := matchItem{pos: pos, distance: sqDistance(query, vector)}
		switch {
		case h.Len() < k:
			heap.Push(h, item)
		case item.worseThan((*h)[0]):
			// Not better than the current worst; skip.
		default:
			heap.Pop(h)
			heap.Push(h, item)
		}
	}

	out := make([]Match, h.Len())
	for i := len(out) - 1; i >= 0; i-- {
		item := heap.Pop(h).(matchItem)
		out[i] = Match{ID: f.ids[item.pos], Distance: item.distance}
	}
	return out, nil
}

// Remove drops the entries for the given ids. Unknown ids are ignored and
// the relative insertion order of the surviving entries is preserved.
func (f *Flat) Remove(ids []string) {
	if len(ids) == 0 {
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	drop := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		drop[id] = struct{}{}
	}

	var keptIDs []string
	var keptVectors [][]float32
	for i, id := range f.ids {
		if _, ok := drop[id]; ok {
			continue
		}
		keptIDs = append(keptIDs, id)
		keptVectors = append(keptVectors, f.vectors[i])
	}
	f.ids = keptIDs
	f.vectors = keptVectors
	if len(f.ids) == 0 {
		f.dims = 0
	}
}

// Len returns the number of indexed entries.
func (f *Flat) Len() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.ids)
}

// Reset drops all entries and unpins the dimension.
func (f *Flat) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ids = nil
	f.vectors = nil
	f.dims = 0
}

func sqDistance(a, b []float32) float32 {
	var sum float32
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}

type matchItem struct {
	pos      int
	distance float32
}

// worseThan orders by distance, then by insertion position so equal
// distances keep first-inserted entries.
func (m matchItem) worseThan(other matchItem) bool {
	if m.distance != other.distance {
		return m.distance > other.distance
	}
	return m.pos > other.pos
}

type matchHeap []matchItem

func (h matchHeap) Len() int           { return len(h) }
func (h matchHeap) Less(i, j int) bool { return h[i].worseThan(h[j]) }
func (h matchHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *matchHeap) Push(x any)        { *h = append(*h, x.(matchItem)) }
func (h *matchHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}
