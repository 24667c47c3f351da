// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 BookLore Contributors

package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"

	"github.com/booklore-ai/booklore/internal/config"
	"github.com/booklore-ai/booklore/internal/embedding"
	"github.com/booklore-ai/booklore/internal/index"
	"github.com/booklore-ai/booklore/internal/pipeline"
	"github.com/booklore-ai/booklore/internal/provider"
	"github.com/booklore-ai/booklore/internal/provider/builtin"
	"github.com/booklore-ai/booklore/internal/search"
	"github.com/booklore-ai/booklore/internal/store"
	"github.com/booklore-ai/booklore/internal/store/sqlite"
	blerr "github.com/booklore-ai/booklore/pkg/errors"
	"github.com/spf13/viper"
)

// App holds all wired subsystems and manages their lifecycle.
type App struct {
	Config    *config.Config
	Registry  *provider.Registry
	Documents store.DocumentStore
	Ingestor  *pipeline.Ingestor
	Querier   *pipeline.Querier

	docCloser io.Closer
}

// wireApp creates all subsystems from the resolved configuration and wires
// them together.
func wireApp(ctx context.Context) (*App, error) {
	cfg, err := config.FromViper(viper.GetViper())
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, blerr.Errorf(blerr.CodeCLISetupFailure, "creating data directory: %w", err)
	}

	logger := slog.Default()

	registry := provider.NewRegistry(logger)
	if err := registry.Discover(builtin.Descriptors()); err != nil {
		return nil, err
	}

	vectors, err := registry.VectorStore(ctx, cfg.Storage.Backend, provider.Config{
		"path":       cfg.VectorDBPath(),
		"dimensions": cfg.Embedding.Dimensions,
	})
	if err != nil {
		return nil, err
	}

	documents, docCloser, err := openDocumentStore(cfg)
	if err != nil {
		shutdown(ctx, registry)
		return nil, err
	}

	embedder, err := registry.Embedder(ctx, cfg.Embedding.Provider,
		cfg.ProviderSettings(cfg.Embedding.Provider, cfg.Embedding.Model))
	if err != nil {
		shutdown(ctx, registry)
		return nil, err
	}
	svc := embedding.NewService(embedder, embedding.Config{
		BatchSize:          cfg.Embedding.BatchSize,
		MaxRetries:         cfg.Embedding.MaxRetries,
		FallbackZeroVector: cfg.Embedding.FallbackZeroVector,
	}, logger)

	var refine *index.Flat
	if cfg.Search.Refine {
		refine = index.NewFlat()
	}
	searcher := search.NewHybrid(vectors, refine, search.Config{
		TopKMultiplier: cfg.Search.TopKMultiplier,
	}, logger)
	if refine != nil {
		if err := searcher.Rebuild(ctx); err != nil {
			logger.Warn("loading refinement index failed, continuing without it", "error", err)
		}
	}

	// The graph mirror is optional; a failure to open it degrades to
	// ingesting without mirroring.
	var graph provider.GraphStore
	if cfg.Graph.Enabled {
		graph, err = registry.GraphStore(ctx, "sqlite", provider.Config{"path": cfg.GraphDBPath()})
		if err != nil {
			logger.Warn("graph store unavailable, ingesting without mirroring", "error", err)
			graph = nil
		}
	}

	ingestor, err := pipeline.NewIngestor(registry, documents, vectors, svc, searcher, graph,
		pipeline.IngestConfig{ChunkSize: cfg.Chunking.Size, ChunkOverlap: cfg.Chunking.Overlap}, logger)
	if err != nil {
		shutdown(ctx, registry)
		return nil, err
	}

	return &App{
		Config:    cfg,
		Registry:  registry,
		Documents: documents,
		Ingestor:  ingestor,
		Querier:   pipeline.NewQuerier(svc, searcher, logger),
		docCloser: docCloser,
	}, nil
}

// Close releases all resources held by the app.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	if err := a.Registry.ShutdownAll(ctx); err != nil {
		errs = append(errs, err)
	}
	if a.docCloser != nil {
		if err := a.docCloser.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// openDocumentStore opens the document catalog matching the configured
// storage backend. The memory backend keeps records only for the life of
// the process.
func openDocumentStore(cfg *config.Config) (store.DocumentStore, io.Closer, error) {
	if cfg.Storage.Backend == "memory" {
		return store.NewMemoryDocumentStore(), nil, nil
	}
	ds, err := sqlite.NewDocumentStore(cfg.DocumentDBPath())
	if err != nil {
		return nil, nil, err
	}
	return ds, ds, nil
}

func shutdown(ctx context.Context, registry *provider.Registry) {
	if err := registry.ShutdownAll(ctx); err != nil {
		slog.Warn("shutdown after wiring failure", "error", err)
	}
}
