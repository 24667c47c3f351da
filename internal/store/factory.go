// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 BookLore Contributors

package store

import (
	"sync"

	blerr "github.com/booklore-ai/booklore/pkg/errors"
)

// Factory creates a vector store given a data path and the collection's
// embedding dimension. Backends that size lazily may accept dims == 0.
type Factory func(path string, dims int) (VectorStore, error)

var (
	factories   = map[string]Factory{}
	factoriesMu sync.RWMutex
)

// RegisterBackend registers a factory for a named storage backend.
// Backend packages call this from init(). This function is goroutine-safe.
func RegisterBackend(name string, f Factory) {
	factoriesMu.Lock()
	defer factoriesMu.Unlock()
	factories[name] = f
}

// Open creates a vector store for the named backend, defaulting to "sqlite".
func Open(backend, path string, dims int) (VectorStore, error) {
	if backend == "" {
		backend = "sqlite"
	}

	factoriesMu.RLock()
	factory, ok := factories[backend]
	factoriesMu.RUnlock()
	if !ok {
		return nil, blerr.Errorf(blerr.CodeStoreBackendUnsupported, "unsupported vector store backend: %q", backend)
	}

	return factory(path, dims)
}
