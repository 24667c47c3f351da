// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 BookLore Contributors

package provider

import (
	"context"

	"github.com/booklore-ai/booklore/internal/store"
)

// Compile-time interface check.
var _ VectorStore = (*vectorStoreProvider)(nil)

// vectorStoreProvider adapts a named store backend to the provider
// lifecycle. Initialize opens the backend; Shutdown closes it.
type vectorStoreProvider struct {
	store.VectorStore
	backend string
}

// NewVectorStoreProvider returns a constructor for the named store backend.
// Config keys: "path" (data file or directory), "dimensions" (0 = adopt the
// first embedding's dimension, where the backend supports it).
func NewVectorStoreProvider(backend string) func() Provider {
	return func() Provider {
		return &vectorStoreProvider{backend: backend}
	}
}

func (p *vectorStoreProvider) Name() string           { return p.backend }
func (p *vectorStoreProvider) Capability() Capability { return CapabilityVectorStore }

func (p *vectorStoreProvider) Initialize(_ context.Context, cfg Config) error {
	vs, err := store.Open(p.backend, cfg.String("path"), cfg.Int("dimensions"))
	if err != nil {
		return err
	}
	p.VectorStore = vs
	return nil
}

func (p *vectorStoreProvider) Shutdown(_ context.Context) error {
	if p.VectorStore == nil {
		return nil
	}
	return p.VectorStore.Close()
}
