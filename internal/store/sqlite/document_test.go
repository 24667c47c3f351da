// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 BookLore Contributors

package sqlite_test

import (
	"context"
	"testing"

	"github.com/booklore-ai/booklore/internal/store"
	"github.com/booklore-ai/booklore/internal/store/sqlite"
	blerr "github.com/booklore-ai/booklore/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDocumentStore_Lifecycle(t *testing.T) {
	ctx := context.Background()
	ds, err := sqlite.NewDocumentStore(testDBPath(t, "documents"))
	require.NoError(t, err)
	defer func() { _ = ds.Close() }()

	err = ds.CreateDocument(ctx, &store.Document{
		ID:       "doc-1",
		FileName: "moby-dick.txt",
		Title:    "Moby Dick",
		Author:   "Herman Melville",
	})
	require.NoError(t, err)

	doc, err := ds.GetDocument(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, store.DocumentPending, doc.Status)
	assert.Equal(t, "Moby Dick", doc.Title)
	assert.False(t, doc.CreatedAt.IsZero())

	require.NoError(t, ds.UpdateDocumentStatus(ctx, "doc-1", store.DocumentProcessing, ""))
	doc, err = ds.GetDocument(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, store.DocumentProcessing, doc.Status)

	require.NoError(t, ds.CompleteDocument(ctx, "doc-1", 42))
	doc, err = ds.GetDocument(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, store.DocumentCompleted, doc.Status)
	assert.Equal(t, 42, doc.ChunkCount)
	assert.Empty(t, doc.Message)
}

func TestDocumentStore_FailedKeepsMessage(t *testing.T) {
	ctx := context.Background()
	ds, err := sqlite.NewDocumentStore(testDBPath(t, "documents-failed"))
	require.NoError(t, err)
	defer func() { _ = ds.Close() }()

	require.NoError(t, ds.CreateDocument(ctx, &store.Document{ID: "doc-1", FileName: "f.txt"}))
	require.NoError(t, ds.UpdateDocumentStatus(ctx, "doc-1", store.DocumentFailed, "handler exploded"))

	doc, err := ds.GetDocument(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, store.DocumentFailed, doc.Status)
	assert.Equal(t, "handler exploded", doc.Message)
}

func TestDocumentStore_GetMissing(t *testing.T) {
	ctx := context.Background()
	ds, err := sqlite.NewDocumentStore(testDBPath(t, "documents-missing"))
	require.NoError(t, err)
	defer func() { _ = ds.Close() }()

	_, err = ds.GetDocument(ctx, "nope")
	require.Error(t, err)
	assert.True(t, blerr.HasCode(err, blerr.CodeStoreDocumentNotFound))

	err = ds.UpdateDocumentStatus(ctx, "nope", store.DocumentFailed, "x")
	require.Error(t, err)
	assert.True(t, blerr.HasCode(err, blerr.CodeStoreDocumentNotFound))
}

func TestDocumentStore_ListAndDelete(t *testing.T) {
	ctx := context.Background()
	ds, err := sqlite.NewDocumentStore(testDBPath(t, "documents-list"))
	require.NoError(t, err)
	defer func() { _ = ds.Close() }()

	require.NoError(t, ds.CreateDocument(ctx, &store.Document{ID: "a", FileName: "a.txt"}))
	require.NoError(t, ds.CreateDocument(ctx, &store.Document{ID: "b", FileName: "b.txt"}))

	docs, err := ds.ListDocuments(ctx)
	require.NoError(t, err)
	require.Len(t, docs, 2)

	require.NoError(t, ds.DeleteDocument(ctx, "a"))
	docs, err = ds.ListDocuments(ctx)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "b", docs[0].ID)
}

func TestDocumentStore_CreateUpsertsOnReingest(t *testing.T) {
	ctx := context.Background()
	ds, err := sqlite.NewDocumentStore(testDBPath(t, "documents-reingest"))
	require.NoError(t, err)
	defer func() { _ = ds.Close() }()

	require.NoError(t, ds.CreateDocument(ctx, &store.Document{ID: "doc", FileName: "f.txt"}))
	require.NoError(t, ds.UpdateDocumentStatus(ctx, "doc", store.DocumentFailed, "boom"))

	// Re-ingesting resets the record to pending.
	require.NoError(t, ds.CreateDocument(ctx, &store.Document{ID: "doc", FileName: "f.txt"}))

	doc, err := ds.GetDocument(ctx, "doc")
	require.NoError(t, err)
	assert.Equal(t, store.DocumentPending, doc.Status)
	assert.Empty(t, doc.Message)
}
