// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 BookLore Contributors

package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/booklore-ai/booklore/internal/embedding"
	"github.com/booklore-ai/booklore/internal/provider"
	"github.com/booklore-ai/booklore/internal/search"
	"github.com/booklore-ai/booklore/internal/store"
	blerr "github.com/booklore-ai/booklore/pkg/errors"
)

// askSystemPrompt frames answer generation around the retrieved passages.
const askSystemPrompt = `You are a reading assistant. Answer the question using only the provided passages from the user's library. If the passages do not contain the answer, say so. Cite the book and chapter when you use a passage.`

// noResultsAnswer is returned when retrieval finds nothing to ground on.
const noResultsAnswer = "I could not find anything relevant in your library."

// Querier runs retrieval: embed the question, search, and optionally hand
// the hits to an LLM for answer synthesis. Retrieval failures degrade to
// empty results instead of erroring; a search that finds nothing and a
// search that could not run look the same to the caller.
type Querier struct {
	embedder *embedding.Service
	searcher *search.Hybrid
	logger   *slog.Logger
}

// NewQuerier builds a query pipeline.
func NewQuerier(embedder *embedding.Service, searcher *search.Hybrid, logger *slog.Logger) *Querier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Querier{embedder: embedder, searcher: searcher, logger: logger}
}

// Query returns up to topK chunks relevant to the question. An empty
// question or non-positive topK is an input error; downstream failures
// degrade to an empty result set.
func (q *Querier) Query(ctx context.Context, question string, topK int, filter store.Filter) ([]store.SearchResult, error) {
	if strings.TrimSpace(question) == "" {
		return nil, blerr.New(blerr.CodeQueryRequestInvalid, "question must not be empty")
	}
	if topK <= 0 {
		return nil, blerr.Errorf(blerr.CodeQueryRequestInvalid, "topK must be positive, got %d", topK)
	}

	vector, err := q.embedder.EmbedQuery(ctx, question)
	if err != nil {
		q.logger.Warn("query embedding failed, returning no results", "error", err)
		return nil, nil
	}

	results, err := q.searcher.Search(ctx, vector, topK, filter)
	if err != nil {
		q.logger.Warn("search failed, returning no results", "error", err)
		return nil, nil
	}
	return results, nil
}

// Answer is a synthesized response with the passages that grounded it.
type Answer struct {
	Text    string
	Sources []store.SearchResult
}

// Ask retrieves passages for the question and asks the LLM to answer from
// them. With no relevant passages the LLM is not called at all.
func (q *Querier) Ask(ctx context.Context, llm provider.LLM, req provider.GenerateRequest, question string, topK int, filter store.Filter) (*Answer, error) {
	results, err := q.Query(ctx, question, topK, filter)
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return &Answer{Text: noResultsAnswer}, nil
	}

	req.System = askSystemPrompt
	req.Prompt = buildPrompt(question, results)

	text, err := llm.Generate(ctx, req)
	if err != nil {
		return nil, err
	}
	return &Answer{Text: text, Sources: results}, nil
}

// AskStream is Ask with incremental delivery: each text delta is handed to
// sink as it arrives and the assembled answer is returned at the end. When
// the provider's stream cannot start, the answer is generated in one shot
// and delivered through sink whole.
func (q *Querier) AskStream(ctx context.Context, llm provider.LLM, req provider.GenerateRequest, question string, topK int, filter store.Filter, sink func(string)) (*Answer, error) {
	results, err := q.Query(ctx, question, topK, filter)
	if err != nil {
		return nil, err
	}
	if sink == nil {
		sink = func(string) {}
	}
	if len(results) == 0 {
		sink(noResultsAnswer)
		return &Answer{Text: noResultsAnswer}, nil
	}

	req.System = askSystemPrompt
	req.Prompt = buildPrompt(question, results)

	events, err := llm.GenerateStream(ctx, req)
	if err != nil {
		q.logger.Warn("streaming unavailable, generating in one shot", "error", err)
		text, err := llm.Generate(ctx, req)
		if err != nil {
			return nil, err
		}
		sink(text)
		return &Answer{Text: text, Sources: results}, nil
	}

	var sb strings.Builder
	for ev := range events {
		switch ev.Type {
		case provider.EventTypeTextDelta:
			sb.WriteString(ev.Text)
			sink(ev.Text)
		case provider.EventTypeError:
			return nil, blerr.New(blerr.CodeProviderUpstreamFailure, ev.Error)
		}
	}
	return &Answer{Text: sb.String(), Sources: results}, nil
}

// buildPrompt lays out the retrieved passages with their provenance, then
// the question.
func buildPrompt(question string, results []store.SearchResult) string {
	var sb strings.Builder
	sb.WriteString("Passages:\n\n")
	for i, r := range results {
		fmt.Fprintf(&sb, "[%d] %s\n", i+1, provenance(r.Metadata))
		sb.WriteString(r.Text)
		sb.WriteString("\n\n")
	}
	sb.WriteString("Question: ")
	sb.WriteString(question)
	return sb.String()
}

func provenance(meta map[string]any) string {
	title, _ := meta["title"].(string)
	chapter, _ := meta["chapter"].(string)
	switch {
	case title != "" && chapter != "":
		return fmt.Sprintf("%s, %s", title, chapter)
	case title != "":
		return title
	case chapter != "":
		return chapter
	default:
		return "unknown source"
	}
}
