// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 BookLore Contributors

// Package pipeline wires the providers, the chunker, and the stores into
// the two top-level flows: ingesting documents and answering queries.
package pipeline

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/booklore-ai/booklore/internal/chunker"
	"github.com/booklore-ai/booklore/internal/embedding"
	"github.com/booklore-ai/booklore/internal/handler"
	"github.com/booklore-ai/booklore/internal/provider"
	"github.com/booklore-ai/booklore/internal/search"
	"github.com/booklore-ai/booklore/internal/store"
	blerr "github.com/booklore-ai/booklore/pkg/errors"
)

// Chunk is one embeddable unit produced from a document.
type Chunk struct {
	Text     string
	Metadata map[string]any
}

// IngestConfig controls chunking during ingestion.
type IngestConfig struct {
	ChunkSize    int
	ChunkOverlap int
}

// Ingestor runs the ingestion flow: handler dispatch, chunking, embedding,
// vector storage, refinement index update, and graph mirroring. The graph
// store is optional; everything after a chunk batch lands in the vector
// store is non-fatal.
type Ingestor struct {
	registry  *provider.Registry
	documents store.DocumentStore
	vectors   store.VectorStore
	embedder  *embedding.Service
	searcher  *search.Hybrid
	graph     provider.GraphStore
	split     *chunker.Chunker
	logger    *slog.Logger
}

// NewIngestor builds an ingestion pipeline. graph may be nil to disable
// mirroring; searcher may be nil when no refinement index is kept.
func NewIngestor(
	registry *provider.Registry,
	documents store.DocumentStore,
	vectors store.VectorStore,
	embedder *embedding.Service,
	searcher *search.Hybrid,
	graph provider.GraphStore,
	cfg IngestConfig,
	logger *slog.Logger,
) (*Ingestor, error) {
	split, err := chunker.New(cfg.ChunkSize, cfg.ChunkOverlap)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Ingestor{
		registry:  registry,
		documents: documents,
		vectors:   vectors,
		embedder:  embedder,
		searcher:  searcher,
		graph:     graph,
		split:     split,
		logger:    logger,
	}, nil
}

// DocumentID derives the stable document id for a file name, so
// re-ingesting the same file replaces its previous chunks.
func DocumentID(fileName string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte("booklore://document/"+fileName)).String()
}

// Ingest processes one file end to end and returns its document record.
// The record is created pending, moves to processing while work runs, and
// ends completed or failed; a failed record keeps the cause in Message.
func (in *Ingestor) Ingest(ctx context.Context, content []byte, fileName string) (*store.Document, error) {
	docID := DocumentID(fileName)

	record := &store.Document{ID: docID, FileName: fileName}
	if err := in.documents.CreateDocument(ctx, record); err != nil {
		return nil, blerr.Wrap(err, blerr.CodeIngestDocumentFailure,
			"creating document record", blerr.FieldDocumentID(docID))
	}
	if err := in.documents.UpdateDocumentStatus(ctx, docID, store.DocumentProcessing, ""); err != nil {
		return nil, blerr.Wrap(err, blerr.CodeIngestDocumentFailure,
			"marking document processing", blerr.FieldDocumentID(docID))
	}

	doc, chunks, err := in.process(ctx, content, fileName, docID)
	if err != nil {
		return nil, in.fail(ctx, docID, err)
	}

	if err := in.storeChunks(ctx, docID, chunks); err != nil {
		return nil, in.fail(ctx, docID, err)
	}

	graphNote := in.mirrorGraph(ctx, docID, doc)

	if doc.Metadata.Title != "" || doc.Metadata.Author != "" {
		record.Title = doc.Metadata.Title
		record.Author = doc.Metadata.Author
		record.Status = store.DocumentProcessing
		if err := in.documents.CreateDocument(ctx, record); err != nil {
			in.logger.Warn("recording document metadata failed", "document_id", docID, "error", err)
		}
	}

	if err := in.documents.CompleteDocument(ctx, docID, len(chunks)); err != nil {
		return nil, blerr.Wrap(err, blerr.CodeIngestDocumentFailure,
			"marking document completed", blerr.FieldDocumentID(docID))
	}
	if graphNote != "" {
		if err := in.documents.UpdateDocumentStatus(ctx, docID, store.DocumentCompleted, graphNote); err != nil {
			in.logger.Warn("recording graph mirroring note failed", "document_id", docID, "error", err)
		}
	}

	in.logger.Info("document ingested",
		"document_id", docID, "file", fileName,
		"chunks", len(chunks), "chapters", len(doc.Chapters))

	return in.documents.GetDocument(ctx, docID)
}

// process dispatches to the matching document handler and chunks the
// result.
func (in *Ingestor) process(ctx context.Context, content []byte, fileName, docID string) (*provider.Document, []Chunk, error) {
	handlerName, err := handler.ProviderFor(fileName)
	if err != nil {
		return nil, nil, blerr.Wrap(err, blerr.CodeIngestHandlerNotFound,
			"resolving document handler", blerr.FieldDocumentID(docID))
	}

	h, err := in.registry.DocumentHandler(ctx, handlerName, nil)
	if err != nil {
		return nil, nil, err
	}

	doc, err := h.Process(ctx, content, fileName)
	if err != nil {
		return nil, nil, err
	}

	chunks := in.chunkDocument(doc, docID, fileName)
	if len(chunks) == 0 {
		return nil, nil, blerr.New(blerr.CodeIngestDocumentFailure,
			"document produced no chunks", blerr.FieldDocumentID(docID))
	}
	return doc, chunks, nil
}

// chunkDocument splits each chapter segment separately so a chunk never
// spans a chapter boundary and every chunk can carry its chapter tag.
func (in *Ingestor) chunkDocument(doc *provider.Document, docID, fileName string) []Chunk {
	type segment struct {
		text    string
		chapter *provider.Chapter
	}

	var segments []segment
	if len(doc.Chapters) == 0 {
		segments = []segment{{text: doc.FullText}}
	} else {
		if front := doc.FullText[:doc.Chapters[0].Start]; front != "" {
			segments = append(segments, segment{text: front})
		}
		for i := range doc.Chapters {
			ch := doc.Chapters[i]
			end := len(doc.FullText)
			if i+1 < len(doc.Chapters) {
				end = doc.Chapters[i+1].Start
			}
			segments = append(segments, segment{text: doc.FullText[ch.Start:end], chapter: &doc.Chapters[i]})
		}
	}

	var chunks []Chunk
	index := 0
	for _, seg := range segments {
		normalized := chunker.Normalize(seg.text)
		for _, piece := range in.split.Split(normalized) {
			meta := map[string]any{
				"document_id": docID,
				"file_name":   fileName,
				"chunk_index": index,
			}
			if doc.Metadata.Title != "" {
				meta["title"] = doc.Metadata.Title
			}
			if doc.Metadata.Author != "" {
				meta["author"] = doc.Metadata.Author
			}
			if seg.chapter != nil {
				meta["chapter"] = seg.chapter.Title
				meta["chapter_seq"] = seg.chapter.Seq
			}
			chunks = append(chunks, Chunk{Text: piece.Text, Metadata: meta})
			index++
		}
	}
	return chunks
}

// storeChunks embeds the batch, replaces the document's previous chunks,
// and refreshes the refinement index.
func (in *Ingestor) storeChunks(ctx context.Context, docID string, chunks []Chunk) error {
	texts := make([]string, len(chunks))
	metadatas := make([]map[string]any, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
		metadatas[i] = c.Metadata
	}

	vectors, err := in.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return err
	}

	// The superseded chunks must leave the refinement index too, or their
	// ids keep winning top-k slots and get dropped at hydration. Capture
	// them before the delete makes them unreachable.
	refining := in.searcher != nil && in.searcher.Index() != nil
	var staleIDs []string
	staleLookupFailed := false
	if refining {
		if old, err := in.vectors.Get(ctx, nil, store.Filter{"document_id": docID}); err != nil {
			in.logger.Warn("looking up superseded chunks failed, will rebuild index",
				"document_id", docID, "error", err)
			staleLookupFailed = true
		} else {
			staleIDs = old.IDs
		}
	}

	// Replace, not append: the previous ingest of this file is superseded.
	if err := in.vectors.Delete(ctx, nil, store.Filter{"document_id": docID}); err != nil {
		return err
	}

	ids, err := in.vectors.Add(ctx, texts, vectors, metadatas, nil)
	if err != nil {
		return err
	}

	if refining {
		in.searcher.Index().Remove(staleIDs)
		err := in.searcher.Index().AddBatch(ids, vectors)
		if err != nil || staleLookupFailed {
			// The index is an optimization; a full rebuild restores it.
			if err != nil {
				in.logger.Warn("refinement index update failed, rebuilding",
					"document_id", docID, "error", err)
			}
			if err := in.searcher.Rebuild(ctx); err != nil {
				in.logger.Warn("refinement index rebuild failed", "error", err)
			}
		}
	}
	return nil
}

// DeleteChunks removes every stored chunk belonging to the document and
// refreshes the refinement index.
func (in *Ingestor) DeleteChunks(ctx context.Context, docID string) error {
	if err := in.vectors.Delete(ctx, nil, store.Filter{"document_id": docID}); err != nil {
		return err
	}
	if in.searcher != nil && in.searcher.Index() != nil {
		if err := in.searcher.Rebuild(ctx); err != nil {
			in.logger.Warn("refinement index rebuild failed", "document_id", docID, "error", err)
		}
	}
	return nil
}

// mirrorGraph copies book and chapter structure into the graph store.
// Failures never fail the ingest; the returned note is recorded on the
// completed document so partial mirroring stays visible.
func (in *Ingestor) mirrorGraph(ctx context.Context, docID string, doc *provider.Document) string {
	if in.graph == nil || doc.Metadata.Title == "" {
		return ""
	}

	if err := in.graph.AddBook(ctx, doc.Metadata.Title, doc.Metadata.Author); err != nil {
		err = blerr.Wrap(err, blerr.CodeIngestGraphPartial,
			"mirroring book", blerr.FieldDocumentID(docID))
		in.logger.Warn("graph mirroring failed", "document_id", docID, "error", err)
		return err.Error()
	}
	if len(doc.Chapters) == 0 {
		return ""
	}
	if err := in.graph.AddChapters(ctx, doc.Metadata.Title, doc.Chapters); err != nil {
		err = blerr.Wrap(err, blerr.CodeIngestGraphPartial,
			"mirroring chapters", blerr.FieldDocumentID(docID))
		in.logger.Warn("graph mirroring failed", "document_id", docID, "error", err)
		return err.Error()
	}
	return ""
}

// fail marks the record failed with the cause and passes the error on.
func (in *Ingestor) fail(ctx context.Context, docID string, cause error) error {
	if err := in.documents.UpdateDocumentStatus(ctx, docID, store.DocumentFailed, cause.Error()); err != nil {
		in.logger.Error("marking document failed also failed",
			"document_id", docID, "status_error", err, "cause", cause)
	}
	return cause
}
