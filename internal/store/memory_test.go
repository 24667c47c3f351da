// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 BookLore Contributors

package store_test

import (
	"context"
	"testing"

	"github.com/booklore-ai/booklore/internal/store"
	blerr "github.com/booklore-ai/booklore/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreAddAndSearch(t *testing.T) {
	vs := store.NewMemoryStore(0)
	ctx := context.Background()

	ids, err := vs.Add(ctx,
		[]string{"near", "far"},
		[][]float32{{1, 0}, {9, 0}},
		[]map[string]any{{"document_id": "doc"}, {"document_id": "doc"}},
		nil)
	require.NoError(t, err)
	require.Len(t, ids, 2)
	assert.NotEqual(t, ids[0], ids[1])

	results, err := vs.Search(ctx, []float32{0, 0}, 1, nil)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "near", results[0].Text)
	assert.Equal(t, ids[0], results[0].ID)
	assert.Equal(t, "doc", results[0].Metadata["document_id"])
}

func TestMemoryStoreAddAtomicOnBadBatch(t *testing.T) {
	vs := store.NewMemoryStore(2)
	ctx := context.Background()

	_, err := vs.Add(ctx,
		[]string{"ok", "wrong dims"},
		[][]float32{{1, 0}, {1, 0, 0}},
		nil, nil)
	require.Error(t, err)
	assert.True(t, blerr.HasCode(err, blerr.CodeStoreInvalidInput))

	count, err := vs.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, count, "failed batch must not be partially applied")
}

func TestMemoryStoreAddLengthMismatch(t *testing.T) {
	vs := store.NewMemoryStore(2)
	_, err := vs.Add(context.Background(), []string{"a"}, nil, nil, nil)
	require.Error(t, err)
	assert.True(t, blerr.HasCode(err, blerr.CodeStoreInvalidInput))
}

func TestMemoryStoreSearchFilter(t *testing.T) {
	vs := store.NewMemoryStore(1)
	ctx := context.Background()

	_, err := vs.Add(ctx,
		[]string{"one", "two", "three"},
		[][]float32{{1}, {2}, {3}},
		[]map[string]any{
			{"chapter": "intro"},
			{"chapter": "body"},
			{"chapter": "intro"},
		}, nil)
	require.NoError(t, err)

	results, err := vs.Search(ctx, []float32{0}, 10, store.Filter{"chapter": "intro"})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "one", results[0].Text)
	assert.Equal(t, "three", results[1].Text)
}

func TestMemoryStoreDeleteByIDsAndFilter(t *testing.T) {
	vs := store.NewMemoryStore(1)
	ctx := context.Background()

	ids, err := vs.Add(ctx,
		[]string{"a", "b", "c"},
		[][]float32{{1}, {2}, {3}},
		[]map[string]any{
			{"document_id": "x"},
			{"document_id": "y"},
			{"document_id": "y"},
		}, nil)
	require.NoError(t, err)

	require.NoError(t, vs.Delete(ctx, []string{ids[0]}, nil))
	count, err := vs.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	require.NoError(t, vs.Delete(ctx, nil, store.Filter{"document_id": "y"}))
	count, err = vs.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestMemoryStoreDeleteNoArgsIsNoOp(t *testing.T) {
	vs := store.NewMemoryStore(1)
	ctx := context.Background()

	_, err := vs.Add(ctx, []string{"a"}, [][]float32{{1}}, nil, nil)
	require.NoError(t, err)

	require.NoError(t, vs.Delete(ctx, nil, nil))
	count, err := vs.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestMemoryStoreGet(t *testing.T) {
	vs := store.NewMemoryStore(1)
	ctx := context.Background()

	ids, err := vs.Add(ctx,
		[]string{"a", "b"},
		[][]float32{{1}, {2}},
		[]map[string]any{{"k": "v1"}, {"k": "v2"}},
		[]string{"id-a", "id-b"})
	require.NoError(t, err)
	assert.Equal(t, []string{"id-a", "id-b"}, ids)

	byID, err := vs.Get(ctx, []string{"id-b"}, nil)
	require.NoError(t, err)
	require.Len(t, byID.IDs, 1)
	assert.Equal(t, "b", byID.Texts[0])
	assert.Equal(t, []float32{2}, byID.Embeddings[0])

	byFilter, err := vs.Get(ctx, nil, store.Filter{"k": "v1"})
	require.NoError(t, err)
	require.Len(t, byFilter.IDs, 1)
	assert.Equal(t, "a", byFilter.Texts[0])

	all, err := vs.Get(ctx, nil, nil)
	require.NoError(t, err)
	assert.Len(t, all.IDs, 2)
}

func TestMemoryStoreClear(t *testing.T) {
	vs := store.NewMemoryStore(1)
	ctx := context.Background()

	_, err := vs.Add(ctx, []string{"a"}, [][]float32{{1}}, nil, nil)
	require.NoError(t, err)

	require.NoError(t, vs.Clear(ctx))
	count, err := vs.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestMemoryStoreQueryDimensionMismatch(t *testing.T) {
	vs := store.NewMemoryStore(0)
	ctx := context.Background()

	_, err := vs.Add(ctx, []string{"a"}, [][]float32{{1, 2}}, nil, nil)
	require.NoError(t, err)

	_, err = vs.Search(ctx, []float32{1}, 1, nil)
	require.Error(t, err)
	assert.True(t, blerr.HasCode(err, blerr.CodeStoreInvalidInput))
}

func TestMemoryStoreTieBreakInsertionOrder(t *testing.T) {
	vs := store.NewMemoryStore(2)
	ctx := context.Background()

	_, err := vs.Add(ctx,
		[]string{"first", "second"},
		[][]float32{{1, 0}, {0, 1}},
		nil, []string{"f", "s"})
	require.NoError(t, err)

	results, err := vs.Search(ctx, []float32{0, 0}, 2, nil)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "f", results[0].ID)
	assert.Equal(t, "s", results[1].ID)
}

func TestOpenUnknownBackend(t *testing.T) {
	_, err := store.Open("bogus", "", 0)
	require.Error(t, err)
	assert.True(t, blerr.HasCode(err, blerr.CodeStoreBackendUnsupported))
}

func TestOpenMemoryBackend(t *testing.T) {
	vs, err := store.Open("memory", "", 3)
	require.NoError(t, err)
	require.NotNil(t, vs)
	require.NoError(t, vs.Close())
}
