// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 BookLore Contributors

package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/booklore-ai/booklore/internal/config"
	blerr "github.com/booklore-ai/booklore/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultValues(t *testing.T) {
	cfg, err := config.Load("")
	require.NoError(t, err)
	assert.Equal(t, "sqlite", cfg.Storage.Backend)
	assert.Equal(t, 1000, cfg.Chunking.Size)
	assert.Equal(t, 200, cfg.Chunking.Overlap)
	assert.Equal(t, "openai", cfg.Embedding.Provider)
	assert.Equal(t, 32, cfg.Embedding.BatchSize)
	assert.Equal(t, 5, cfg.Search.TopK)
	assert.Equal(t, 5, cfg.Search.TopKMultiplier)
	assert.True(t, cfg.Search.Refine)
	assert.True(t, cfg.Graph.Enabled)
	assert.NotEmpty(t, cfg.DataDir)
}

func TestLoad_FromFile(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "booklore.yaml")

	content := `
storage:
  backend: "memory"
chunking:
  size: 500
  overlap: 50
embedding:
  provider: "ollama"
  model: "nomic-embed-text"
providers:
  ollama:
    base_url: "http://localhost:11434/v1"
`
	err := os.WriteFile(cfgPath, []byte(content), 0o644)
	require.NoError(t, err)

	cfg, err := config.Load(cfgPath)
	require.NoError(t, err)
	assert.Equal(t, "memory", cfg.Storage.Backend)
	assert.Equal(t, 500, cfg.Chunking.Size)
	assert.Equal(t, 50, cfg.Chunking.Overlap)
	assert.Equal(t, "ollama", cfg.Embedding.Provider)
	assert.Equal(t, "nomic-embed-text", cfg.Embedding.Model)
	assert.Equal(t, "http://localhost:11434/v1", cfg.Providers["ollama"].BaseURL)
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("BOOKLORE_STORAGE_BACKEND", "memory")
	t.Setenv("BOOKLORE_EMBEDDING_PROVIDER", "google")

	cfg, err := config.Load("")
	require.NoError(t, err)
	assert.Equal(t, "memory", cfg.Storage.Backend)
	assert.Equal(t, "google", cfg.Embedding.Provider)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.True(t, blerr.HasCode(err, blerr.CodeConfigLoadReadFailure))
}

func TestLoad_ValidationCalledAtLoadTime(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "booklore.yaml")

	content := `
storage:
  backend: "postgres"
`
	err := os.WriteFile(cfgPath, []byte(content), 0o644)
	require.NoError(t, err)

	_, err = config.Load(cfgPath)
	require.Error(t, err)
	assert.True(t, blerr.HasCode(err, blerr.CodeConfigValidateInvalidValue))
	assert.Contains(t, err.Error(), "storage.backend")
}

func TestValidate_CollectsAllErrors(t *testing.T) {
	cfg := &config.Config{
		Storage:   config.StorageConfig{Backend: "postgres"},
		Chunking:  config.ChunkingConfig{Size: 100, Overlap: 100},
		LLM:       config.LLMConfig{Provider: "openai"},
		Embedding: config.EmbeddingConfig{Provider: "openai", BatchSize: 0, MaxRetries: 3},
		Search:    config.SearchConfig{TopK: 5, TopKMultiplier: 5},
	}

	errs := cfg.Validate()
	require.Len(t, errs, 3)
}

func TestValidate_OverlapMustBeSmallerThanSize(t *testing.T) {
	cfg := &config.Config{
		Storage:   config.StorageConfig{Backend: "memory"},
		Chunking:  config.ChunkingConfig{Size: 200, Overlap: 200},
		LLM:       config.LLMConfig{Provider: "openai"},
		Embedding: config.EmbeddingConfig{Provider: "openai", BatchSize: 32, MaxRetries: 3},
		Search:    config.SearchConfig{TopK: 5, TopKMultiplier: 5},
	}

	errs := cfg.Validate()
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Error(), "chunking.overlap")
}

func TestProviderSettings(t *testing.T) {
	cfg := &config.Config{
		Providers: map[string]config.ProviderConfig{
			"openai": {APIKey: "sk-test", BaseURL: "https://proxy.example.com/v1"},
		},
	}

	settings := cfg.ProviderSettings("openai", "text-embedding-3-large")
	assert.Equal(t, "sk-test", settings["api_key"])
	assert.Equal(t, "https://proxy.example.com/v1", settings["base_url"])
	assert.Equal(t, "text-embedding-3-large", settings["model"])

	// Unknown provider still carries the model override.
	settings = cfg.ProviderSettings("ollama", "llama3.2")
	assert.NotContains(t, settings, "api_key")
	assert.Equal(t, "llama3.2", settings["model"])
}

func TestDataDirPaths(t *testing.T) {
	cfg := &config.Config{DataDir: "/tmp/booklore"}
	assert.Equal(t, filepath.Join("/tmp/booklore", "vectors.db"), cfg.VectorDBPath())
	assert.Equal(t, filepath.Join("/tmp/booklore", "documents.db"), cfg.DocumentDBPath())
	assert.Equal(t, filepath.Join("/tmp/booklore", "graph.db"), cfg.GraphDBPath())
}
