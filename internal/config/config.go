// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 BookLore Contributors

// Package config loads and validates BookLore configuration with the
// standard precedence: flags > environment > config file > defaults.
package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	blerr "github.com/booklore-ai/booklore/pkg/errors"
	"github.com/spf13/viper"
)

// Config is the top-level BookLore configuration.
type Config struct {
	DataDir   string                    `mapstructure:"data_dir"`
	Verbose   bool                      `mapstructure:"verbose"`
	Providers map[string]ProviderConfig `mapstructure:"providers"`
	LLM       LLMConfig                 `mapstructure:"llm"`
	Embedding EmbeddingConfig           `mapstructure:"embedding"`
	Storage   StorageConfig             `mapstructure:"storage"`
	Chunking  ChunkingConfig            `mapstructure:"chunking"`
	Search    SearchConfig              `mapstructure:"search"`
	Graph     GraphConfig               `mapstructure:"graph"`
}

// ProviderConfig holds credentials and endpoint for one provider.
type ProviderConfig struct {
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url"`
}

// LLMConfig selects the answer-synthesis model.
type LLMConfig struct {
	Provider    string  `mapstructure:"provider"`
	Model       string  `mapstructure:"model"`
	Temperature float64 `mapstructure:"temperature"`
	MaxTokens   int     `mapstructure:"max_tokens"`
}

// EmbeddingConfig selects the embedding model and batching behavior.
type EmbeddingConfig struct {
	Provider           string `mapstructure:"provider"`
	Model              string `mapstructure:"model"`
	BatchSize          int    `mapstructure:"batch_size"`
	MaxRetries         int    `mapstructure:"max_retries"`
	Dimensions         int    `mapstructure:"dimensions"`
	FallbackZeroVector bool   `mapstructure:"fallback_zero_vector"`
}

// StorageConfig selects the vector store backend.
type StorageConfig struct {
	Backend string `mapstructure:"backend"`
}

// ChunkingConfig controls document splitting.
type ChunkingConfig struct {
	Size    int `mapstructure:"size"`
	Overlap int `mapstructure:"overlap"`
}

// SearchConfig controls retrieval.
type SearchConfig struct {
	TopK           int  `mapstructure:"top_k"`
	TopKMultiplier int  `mapstructure:"top_k_multiplier"`
	Refine         bool `mapstructure:"refine"`
}

// GraphConfig controls the book/chapter graph mirror.
type GraphConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// SetDefaults applies the default values to the given Viper instance.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("data_dir", defaultDataDir())
	v.SetDefault("storage.backend", "sqlite")
	v.SetDefault("chunking.size", 1000)
	v.SetDefault("chunking.overlap", 200)
	v.SetDefault("llm.provider", "openai")
	v.SetDefault("llm.max_tokens", 1024)
	v.SetDefault("embedding.provider", "openai")
	v.SetDefault("embedding.batch_size", 32)
	v.SetDefault("embedding.max_retries", 3)
	v.SetDefault("embedding.fallback_zero_vector", true)
	v.SetDefault("search.top_k", 5)
	v.SetDefault("search.top_k_multiplier", 5)
	v.SetDefault("search.refine", true)
	v.SetDefault("graph.enabled", true)
}

// SetupEnv binds environment variables with the BOOKLORE_ prefix, so
// BOOKLORE_EMBEDDING_PROVIDER overrides embedding.provider.
func SetupEnv(v *viper.Viper) {
	v.SetEnvPrefix("BOOKLORE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// Load reads configuration from the given path (or defaults) with
// environment variable overrides.
func Load(path string) (*Config, error) {
	v := viper.New()
	SetDefaults(v)
	SetupEnv(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, blerr.Errorf(blerr.CodeConfigLoadReadFailure, "reading config %s: %w", path, err)
		}
	}

	return FromViper(v)
}

// FromViper unmarshals and validates a configuration from an already
// prepared Viper instance, typically the CLI's global one.
func FromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, blerr.Errorf(blerr.CodeConfigValidateInvalidValue, "unmarshalling config: %w", err)
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, blerr.Errorf(blerr.CodeConfigValidateInvalidValue, "validating config: %w", errors.Join(errs...))
	}

	return &cfg, nil
}

// Validate checks the configuration for logical errors.
// It returns a slice of all validation errors found, collecting all issues
// rather than stopping at the first one.
func (c *Config) Validate() []error {
	var errs []error

	errs = append(errs, c.validateStorage()...)
	errs = append(errs, c.validateChunking()...)
	errs = append(errs, c.validateModels()...)
	errs = append(errs, c.validateSearch()...)

	return errs
}

func (c *Config) validateStorage() []error {
	var errs []error

	validBackends := map[string]bool{"sqlite": true, "memory": true}
	if !validBackends[c.Storage.Backend] {
		errs = append(errs, blerr.Errorf(blerr.CodeConfigValidateInvalidValue,
			"config: storage.backend must be one of [sqlite, memory], got %q",
			c.Storage.Backend,
		))
	}

	return errs
}

func (c *Config) validateChunking() []error {
	var errs []error

	if c.Chunking.Size <= 0 {
		errs = append(errs, blerr.Errorf(blerr.CodeConfigValidateInvalidValue,
			"config: chunking.size must be greater than 0, got %d",
			c.Chunking.Size,
		))
	}
	if c.Chunking.Overlap < 0 {
		errs = append(errs, blerr.Errorf(blerr.CodeConfigValidateInvalidValue,
			"config: chunking.overlap must not be negative, got %d",
			c.Chunking.Overlap,
		))
	} else if c.Chunking.Size > 0 && c.Chunking.Overlap >= c.Chunking.Size {
		errs = append(errs, blerr.Errorf(blerr.CodeConfigValidateInvalidValue,
			"config: chunking.overlap must be smaller than chunking.size, got %d >= %d",
			c.Chunking.Overlap, c.Chunking.Size,
		))
	}

	return errs
}

func (c *Config) validateModels() []error {
	var errs []error

	if c.LLM.Provider == "" {
		errs = append(errs, blerr.Errorf(blerr.CodeConfigValidateInvalidValue,
			"config: llm.provider must not be empty"))
	}
	if c.Embedding.Provider == "" {
		errs = append(errs, blerr.Errorf(blerr.CodeConfigValidateInvalidValue,
			"config: embedding.provider must not be empty"))
	}

	if c.Embedding.BatchSize <= 0 {
		errs = append(errs, blerr.Errorf(blerr.CodeConfigValidateInvalidValue,
			"config: embedding.batch_size must be greater than 0, got %d",
			c.Embedding.BatchSize,
		))
	}
	if c.Embedding.MaxRetries <= 0 {
		errs = append(errs, blerr.Errorf(blerr.CodeConfigValidateInvalidValue,
			"config: embedding.max_retries must be greater than 0, got %d",
			c.Embedding.MaxRetries,
		))
	}
	if c.Embedding.Dimensions < 0 {
		errs = append(errs, blerr.Errorf(blerr.CodeConfigValidateInvalidValue,
			"config: embedding.dimensions must not be negative, got %d",
			c.Embedding.Dimensions,
		))
	}

	return errs
}

func (c *Config) validateSearch() []error {
	var errs []error

	if c.Search.TopK <= 0 {
		errs = append(errs, blerr.Errorf(blerr.CodeConfigValidateInvalidValue,
			"config: search.top_k must be greater than 0, got %d",
			c.Search.TopK,
		))
	}
	if c.Search.TopKMultiplier <= 0 {
		errs = append(errs, blerr.Errorf(blerr.CodeConfigValidateInvalidValue,
			"config: search.top_k_multiplier must be greater than 0, got %d",
			c.Search.TopKMultiplier,
		))
	}

	return errs
}

// ProviderSettings assembles the provider.Config map for a named provider,
// merging its credentials with the model override.
func (c *Config) ProviderSettings(name, model string) map[string]any {
	settings := map[string]any{}
	if pc, ok := c.Providers[name]; ok {
		if pc.APIKey != "" {
			settings["api_key"] = pc.APIKey
		}
		if pc.BaseURL != "" {
			settings["base_url"] = pc.BaseURL
		}
	}
	if model != "" {
		settings["model"] = model
	}
	return settings
}

// VectorDBPath is the on-disk location of the sqlite vector store.
func (c *Config) VectorDBPath() string {
	return filepath.Join(c.DataDir, "vectors.db")
}

// DocumentDBPath is the on-disk location of the document catalog.
func (c *Config) DocumentDBPath() string {
	return filepath.Join(c.DataDir, "documents.db")
}

// GraphDBPath is the on-disk location of the book/chapter graph.
func (c *Config) GraphDBPath() string {
	return filepath.Join(c.DataDir, "graph.db")
}

// defaultDataDir resolves to ~/.booklore, or a relative fallback when the
// home directory cannot be determined.
func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".booklore"
	}
	return filepath.Join(home, ".booklore")
}
