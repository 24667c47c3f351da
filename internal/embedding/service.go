// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 BookLore Contributors

// Package embedding turns text into dense vectors through a pluggable
// embedder provider, with sub-batching, retry, and dimension pinning.
package embedding

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/booklore-ai/booklore/internal/provider"
	blerr "github.com/booklore-ai/booklore/pkg/errors"
)

const (
	defaultBatchSize  = 32
	defaultMaxRetries = 3
	defaultBaseDelay  = 500 * time.Millisecond
)

// Config controls batching and retry behavior.
type Config struct {
	// BatchSize is the maximum number of texts per provider call.
	BatchSize int
	// MaxRetries is the number of attempts per sub-batch before the error
	// propagates and the whole call aborts.
	MaxRetries int
	// BaseDelay is the first backoff delay; it doubles per attempt.
	BaseDelay time.Duration
	// FallbackZeroVector substitutes a logged zero vector when a single
	// query embedding fails and the dimension is already known. It never
	// applies to document batches.
	FallbackZeroVector bool
}

func (c Config) withDefaults() Config {
	if c.BatchSize <= 0 {
		c.BatchSize = defaultBatchSize
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = defaultMaxRetries
	}
	if c.BaseDelay <= 0 {
		c.BaseDelay = defaultBaseDelay
	}
	return c
}

// Service batches and retries embedding calls. The first successful
// response fixes the working dimension for the life of the service; any
// later response with a different length is an error.
type Service struct {
	embedder provider.Embedder
	cfg      Config
	logger   *slog.Logger

	mu   sync.Mutex
	dims int // 0 until first success
}

// NewService creates a Service around the given embedder provider.
func NewService(embedder provider.Embedder, cfg Config, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		embedder: embedder,
		cfg:      cfg.withDefaults(),
		logger:   logger,
	}
}

// Dimension returns the pinned embedding dimension, or 0 before the first
// successful call.
func (s *Service) Dimension() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dims
}

// EmbedDocuments embeds texts in sub-batches, preserving input order. A
// sub-batch that still fails after the retry budget aborts the remaining
// sub-batches; no vector is silently dropped.
func (s *Service) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += s.cfg.BatchSize {
		end := start + s.cfg.BatchSize
		if end > len(texts) {
			end = len(texts)
		}
		batch := texts[start:end]

		vectors, err := s.embedBatch(ctx, batch)
		if err != nil {
			return nil, blerr.Wrapf(err, blerr.CodeEmbedUpstreamFailure,
				"embedding sub-batch %d..%d of %d texts", start, end, len(texts))
		}

		if len(vectors) != len(batch) {
			return nil, blerr.Errorf(blerr.CodeEmbedResponseInvalid,
				"embedder returned %d vectors for %d texts", len(vectors), len(batch))
		}
		for _, v := range vectors {
			if err := s.pinDimension(len(v)); err != nil {
				return nil, err
			}
		}

		out = append(out, vectors...)
	}
	return out, nil
}

// EmbedQuery embeds a single query string with the same retry policy. With
// FallbackZeroVector enabled and the dimension already pinned, a final
// failure degrades to an explicit, logged zero vector instead of an error.
func (s *Service) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	var vector []float32
	err := s.retry(ctx, func() error {
		v, err := s.embedder.EmbedQuery(ctx, text)
		if err != nil {
			return err
		}
		vector = v
		return nil
	})
	if err != nil {
		if s.cfg.FallbackZeroVector {
			if dims := s.Dimension(); dims > 0 {
				s.logger.Warn("query embedding failed, substituting zero vector",
					"error", err, "dimensions", dims)
				return make([]float32, dims), nil
			}
		}
		return nil, blerr.Wrap(err, blerr.CodeEmbedUpstreamFailure, "embedding query")
	}

	if err := s.pinDimension(len(vector)); err != nil {
		return nil, err
	}
	return vector, nil
}

func (s *Service) embedBatch(ctx context.Context, batch []string) ([][]float32, error) {
	var vectors [][]float32
	err := s.retry(ctx, func() error {
		v, err := s.embedder.EmbedDocuments(ctx, batch)
		if err != nil {
			return err
		}
		vectors = v
		return nil
	})
	return vectors, err
}

// retry runs fn up to MaxRetries times with exponential backoff. The sleep
// between attempts is the cancellation checkpoint: an abandoned caller
// stops the retry loop here rather than issuing further provider calls.
func (s *Service) retry(ctx context.Context, fn func() error) error {
	delay := s.cfg.BaseDelay
	var lastErr error

	for attempt := 1; attempt <= s.cfg.MaxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if attempt == s.cfg.MaxRetries {
			break
		}

		s.logger.Warn("embedding attempt failed, backing off",
			"attempt", attempt, "max_retries", s.cfg.MaxRetries,
			"delay", delay, "error", lastErr)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}
	return lastErr
}

func (s *Service) pinDimension(got int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if got == 0 {
		return blerr.New(blerr.CodeEmbedResponseInvalid, "embedder returned an empty vector")
	}
	if s.dims == 0 {
		s.dims = got
		s.logger.Debug("embedding dimension pinned", "dimensions", got)
		return nil
	}
	if got != s.dims {
		return blerr.Errorf(blerr.CodeEmbedResponseInvalid,
			"embedding dimension changed: expected %d, got %d", s.dims, got)
	}
	return nil
}
