// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 BookLore Contributors

package store

import (
	"context"
	"sort"
	"sync"
	"time"

	blerr "github.com/booklore-ai/booklore/pkg/errors"
)

// DocumentStatus is the lifecycle state of an ingested document.
type DocumentStatus string

const (
	DocumentPending    DocumentStatus = "pending"
	DocumentProcessing DocumentStatus = "processing"
	DocumentCompleted  DocumentStatus = "completed"
	DocumentFailed     DocumentStatus = "failed"
)

// Document is the ingestion record for one source file.
type Document struct {
	ID         string
	FileName   string
	Title      string
	Author     string
	Status     DocumentStatus
	Message    string
	ChunkCount int
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// DocumentStore tracks ingestion records. A document is created pending,
// moves to processing when work starts, and ends completed or failed.
type DocumentStore interface {
	CreateDocument(ctx context.Context, doc *Document) error
	UpdateDocumentStatus(ctx context.Context, id string, status DocumentStatus, message string) error
	CompleteDocument(ctx context.Context, id string, chunkCount int) error
	GetDocument(ctx context.Context, id string) (*Document, error)
	ListDocuments(ctx context.Context) ([]*Document, error)
	DeleteDocument(ctx context.Context, id string) error
}

// Compile-time interface check.
var _ DocumentStore = (*MemoryDocumentStore)(nil)

// MemoryDocumentStore is a process-local DocumentStore for tests and
// ephemeral runs.
type MemoryDocumentStore struct {
	mu   sync.RWMutex
	docs map[string]*Document
}

// NewMemoryDocumentStore creates an empty in-memory document store.
func NewMemoryDocumentStore() *MemoryDocumentStore {
	return &MemoryDocumentStore{docs: map[string]*Document{}}
}

func (m *MemoryDocumentStore) CreateDocument(_ context.Context, doc *Document) error {
	if doc.ID == "" {
		return blerr.New(blerr.CodeStoreInvalidInput, "document id must not be empty")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now().UTC()
	stored := *doc
	if stored.Status == "" {
		stored.Status = DocumentPending
	}
	stored.CreatedAt = now
	stored.UpdatedAt = now
	m.docs[doc.ID] = &stored
	return nil
}

func (m *MemoryDocumentStore) UpdateDocumentStatus(_ context.Context, id string, status DocumentStatus, message string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	doc, ok := m.docs[id]
	if !ok {
		return blerr.Errorf(blerr.CodeStoreDocumentNotFound, "document not found: %s", id)
	}
	doc.Status = status
	doc.Message = message
	doc.UpdatedAt = time.Now().UTC()
	return nil
}

func (m *MemoryDocumentStore) CompleteDocument(_ context.Context, id string, chunkCount int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	doc, ok := m.docs[id]
	if !ok {
		return blerr.Errorf(blerr.CodeStoreDocumentNotFound, "document not found: %s", id)
	}
	doc.Status = DocumentCompleted
	doc.Message = ""
	doc.ChunkCount = chunkCount
	doc.UpdatedAt = time.Now().UTC()
	return nil
}

func (m *MemoryDocumentStore) GetDocument(_ context.Context, id string) (*Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	doc, ok := m.docs[id]
	if !ok {
		return nil, blerr.Errorf(blerr.CodeStoreDocumentNotFound, "document not found: %s", id)
	}
	out := *doc
	return &out, nil
}

func (m *MemoryDocumentStore) ListDocuments(_ context.Context) ([]*Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*Document, 0, len(m.docs))
	for _, doc := range m.docs {
		copied := *doc
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (m *MemoryDocumentStore) DeleteDocument(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.docs, id)
	return nil
}
