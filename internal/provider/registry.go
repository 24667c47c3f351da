// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 BookLore Contributors

package provider

import (
	"context"
	"log/slog"
	"sort"
	"sync"

	blerr "github.com/booklore-ai/booklore/pkg/errors"
)

// Descriptor binds a (capability, name) key to a constructor. Descriptors
// are registered once at startup from a static table; the registry creates
// at most one active instance per key, on first use.
type Descriptor struct {
	Capability Capability
	Name       string
	New        func() Provider
}

type registryKey struct {
	capability Capability
	name       string
}

// entry serializes initialization per key so concurrent Gets observe a
// single instance. The registry lock is never held across a provider's
// Initialize or Shutdown hook.
type entry struct {
	mu     sync.Mutex
	active Provider
}

// Registry manages provider descriptors and the lifecycle of their active
// instances. It is an explicit object constructed at startup and passed by
// reference into the pipelines; there is no hidden global registry.
type Registry struct {
	mu          sync.RWMutex
	logger      *slog.Logger
	descriptors map[registryKey]Descriptor
	entries     map[registryKey]*entry
	discovered  bool
}

// NewRegistry creates an empty Registry. A nil logger falls back to
// slog.Default().
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		logger:      logger,
		descriptors: make(map[registryKey]Descriptor),
		entries:     make(map[registryKey]*entry),
	}
}

// Register adds a single descriptor. Registering a key that already exists
// is rejected so a bad wiring table fails loudly at startup.
func (r *Registry) Register(desc Descriptor) error {
	if !desc.Capability.Valid() {
		return blerr.Errorf(blerr.CodeRegistryCapabilityInvalid,
			"unknown capability %q for provider %q", desc.Capability, desc.Name)
	}
	if desc.Name == "" || desc.New == nil {
		return blerr.New(blerr.CodeRegistryCapabilityInvalid,
			"descriptor needs a name and a constructor",
			blerr.FieldCapability(string(desc.Capability)))
	}

	key := registryKey{desc.Capability, desc.Name}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.descriptors[key]; exists {
		return blerr.New(blerr.CodeRegistryDescriptorConflict,
			"provider already registered: "+string(desc.Capability)+"/"+desc.Name,
			blerr.FieldCapability(string(desc.Capability)),
			blerr.FieldProvider(desc.Name))
	}

	r.descriptors[key] = desc
	return nil
}

// Discover populates the descriptor table from a static list. It runs at
// most once; re-running is a logged no-op so repeated startup paths cannot
// duplicate or corrupt entries.
func (r *Registry) Discover(descs []Descriptor) error {
	r.mu.Lock()
	if r.discovered {
		r.mu.Unlock()
		r.logger.Debug("provider discovery already ran, skipping")
		return nil
	}
	r.discovered = true
	r.mu.Unlock()

	for _, desc := range descs {
		if err := r.Register(desc); err != nil {
			return err
		}
		r.logger.Debug("discovered provider",
			"capability", string(desc.Capability), "name", desc.Name)
	}
	return nil
}

// Descriptors returns the registered descriptors sorted by capability then
// name, for listing.
func (r *Registry) Descriptors() []Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Descriptor, 0, len(r.descriptors))
	for _, d := range r.descriptors {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Capability != out[j].Capability {
			return out[i].Capability < out[j].Capability
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// Get returns the active instance for (capability, name), initializing it
// on first use. All callers share the returned instance until it is shut
// down.
func (r *Registry) Get(ctx context.Context, capability Capability, name string, cfg Config) (Provider, error) {
	return r.Initialize(ctx, capability, name, cfg)
}

// Initialize constructs the provider and invokes its setup hook. On hook
// failure the half-built instance is discarded and the next call retries
// from scratch. If an active instance already exists it is returned as is.
func (r *Registry) Initialize(ctx context.Context, capability Capability, name string, cfg Config) (Provider, error) {
	key := registryKey{capability, name}

	r.mu.Lock()
	desc, ok := r.descriptors[key]
	if !ok {
		r.mu.Unlock()
		return nil, blerr.New(blerr.CodeRegistryProviderNotFound,
			"provider not found: "+string(capability)+"/"+name,
			blerr.FieldCapability(string(capability)),
			blerr.FieldProvider(name))
	}
	e, ok := r.entries[key]
	if !ok {
		e = &entry{}
		r.entries[key] = e
	}
	r.mu.Unlock()

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.active != nil {
		return e.active, nil
	}

	p := desc.New()
	if err := p.Initialize(ctx, cfg); err != nil {
		r.logger.Error("provider initialization failed",
			"capability", string(capability), "name", name, "error", err)
		return nil, blerr.Wrap(err, blerr.CodeRegistryInitFailure,
			"initializing provider "+string(capability)+"/"+name,
			blerr.FieldCapability(string(capability)),
			blerr.FieldProvider(name))
	}

	r.logger.Info("provider initialized",
		"capability", string(capability), "name", name)
	e.active = p
	return p, nil
}

// Shutdown invokes the provider's teardown hook and removes it from the
// active set. The instance is retired even when the hook fails; the error
// is still reported.
func (r *Registry) Shutdown(ctx context.Context, capability Capability, name string) error {
	key := registryKey{capability, name}

	r.mu.RLock()
	e, ok := r.entries[key]
	r.mu.RUnlock()
	if !ok {
		return nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.active == nil {
		return nil
	}

	err := e.active.Shutdown(ctx)
	e.active = nil

	if err != nil {
		return blerr.Wrap(err, blerr.CodeRegistryShutdownFailure,
			"shutting down provider "+string(capability)+"/"+name,
			blerr.FieldCapability(string(capability)),
			blerr.FieldProvider(name))
	}

	r.logger.Info("provider shut down",
		"capability", string(capability), "name", name)
	return nil
}

// ShutdownAll retires every active provider, collecting errors.
func (r *Registry) ShutdownAll(ctx context.Context) error {
	r.mu.RLock()
	keys := make([]registryKey, 0, len(r.entries))
	for key := range r.entries {
		keys = append(keys, key)
	}
	r.mu.RUnlock()

	var errs []error
	for _, key := range keys {
		if err := r.Shutdown(ctx, key.capability, key.name); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return blerr.Join(errs...)
	}
	return nil
}

// LLM returns the named text-generation provider.
func (r *Registry) LLM(ctx context.Context, name string, cfg Config) (LLM, error) {
	p, err := r.Get(ctx, CapabilityLLM, name, cfg)
	if err != nil {
		return nil, err
	}
	llm, ok := p.(LLM)
	if !ok {
		return nil, mismatch(CapabilityLLM, name)
	}
	return llm, nil
}

// Embedder returns the named embedding provider.
func (r *Registry) Embedder(ctx context.Context, name string, cfg Config) (Embedder, error) {
	p, err := r.Get(ctx, CapabilityEmbedder, name, cfg)
	if err != nil {
		return nil, err
	}
	emb, ok := p.(Embedder)
	if !ok {
		return nil, mismatch(CapabilityEmbedder, name)
	}
	return emb, nil
}

// VectorStore returns the named vector store provider.
func (r *Registry) VectorStore(ctx context.Context, name string, cfg Config) (VectorStore, error) {
	p, err := r.Get(ctx, CapabilityVectorStore, name, cfg)
	if err != nil {
		return nil, err
	}
	vs, ok := p.(VectorStore)
	if !ok {
		return nil, mismatch(CapabilityVectorStore, name)
	}
	return vs, nil
}

// DocumentHandler returns the named document handler.
func (r *Registry) DocumentHandler(ctx context.Context, name string, cfg Config) (DocumentHandler, error) {
	p, err := r.Get(ctx, CapabilityDocumentHandler, name, cfg)
	if err != nil {
		return nil, err
	}
	h, ok := p.(DocumentHandler)
	if !ok {
		return nil, mismatch(CapabilityDocumentHandler, name)
	}
	return h, nil
}

// GraphStore returns the named graph store provider.
func (r *Registry) GraphStore(ctx context.Context, name string, cfg Config) (GraphStore, error) {
	p, err := r.Get(ctx, CapabilityGraphStore, name, cfg)
	if err != nil {
		return nil, err
	}
	g, ok := p.(GraphStore)
	if !ok {
		return nil, mismatch(CapabilityGraphStore, name)
	}
	return g, nil
}

func mismatch(capability Capability, name string) error {
	return blerr.New(blerr.CodeRegistryCapabilityMismatch,
		"provider "+string(capability)+"/"+name+" does not implement its capability contract",
		blerr.FieldCapability(string(capability)),
		blerr.FieldProvider(name))
}
