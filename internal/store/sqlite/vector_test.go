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

func TestVectorStore_AddAndSearch(t *testing.T) {
	ctx := context.Background()
	vs, err := sqlite.NewVectorStore(testDBPath(t, "vectors"), 3)
	require.NoError(t, err)
	defer func() { _ = vs.Close() }()

	ids, err := vs.Add(ctx,
		[]string{"one", "two", "three"},
		[][]float32{{1, 0, 0}, {0, 1, 0}, {0.9, 0.1, 0}},
		[]map[string]any{
			{"source": "test1"},
			{"source": "test2"},
			{"source": "test3"},
		}, nil)
	require.NoError(t, err)
	require.Len(t, ids, 3)

	results, err := vs.Search(ctx, []float32{1, 0, 0}, 2, nil)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, ids[0], results[0].ID)
	assert.Equal(t, "one", results[0].Text)
	assert.Equal(t, "test1", results[0].Metadata["source"])
	assert.Equal(t, float32(0), results[0].Distance)
}

func TestVectorStore_AddGeneratesIDs(t *testing.T) {
	ctx := context.Background()
	vs, err := sqlite.NewVectorStore(testDBPath(t, "vectors-ids"), 2)
	require.NoError(t, err)
	defer func() { _ = vs.Close() }()

	ids, err := vs.Add(ctx, []string{"a", "b"}, [][]float32{{1, 0}, {0, 1}}, nil, nil)
	require.NoError(t, err)
	require.Len(t, ids, 2)
	assert.NotEqual(t, ids[0], ids[1])
}

func TestVectorStore_AddUpsert(t *testing.T) {
	ctx := context.Background()
	vs, err := sqlite.NewVectorStore(testDBPath(t, "vectors-upsert"), 2)
	require.NoError(t, err)
	defer func() { _ = vs.Close() }()

	_, err = vs.Add(ctx, []string{"old"}, [][]float32{{1, 0}}, nil, []string{"v1"})
	require.NoError(t, err)

	_, err = vs.Add(ctx, []string{"new"}, [][]float32{{0, 1}},
		[]map[string]any{{"version": float64(2)}}, []string{"v1"})
	require.NoError(t, err)

	count, err := vs.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	results, err := vs.Search(ctx, []float32{0, 1}, 1, nil)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "new", results[0].Text)
	assert.Equal(t, float64(2), results[0].Metadata["version"])
}

func TestVectorStore_SearchFilter(t *testing.T) {
	ctx := context.Background()
	vs, err := sqlite.NewVectorStore(testDBPath(t, "vectors-filter"), 2)
	require.NoError(t, err)
	defer func() { _ = vs.Close() }()

	_, err = vs.Add(ctx,
		[]string{"near doc-1", "nearer doc-2", "far doc-1"},
		[][]float32{{1, 0}, {0.5, 0}, {5, 0}},
		[]map[string]any{
			{"document_id": "doc-1"},
			{"document_id": "doc-2"},
			{"document_id": "doc-1"},
		}, nil)
	require.NoError(t, err)

	results, err := vs.Search(ctx, []float32{0, 0}, 5, store.Filter{"document_id": "doc-1"})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "near doc-1", results[0].Text)
	assert.Equal(t, "far doc-1", results[1].Text)
}

func TestVectorStore_SearchEmpty(t *testing.T) {
	ctx := context.Background()
	vs, err := sqlite.NewVectorStore(testDBPath(t, "vectors-empty"), 3)
	require.NoError(t, err)
	defer func() { _ = vs.Close() }()

	results, err := vs.Search(ctx, []float32{1, 0, 0}, 5, nil)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestVectorStore_DeleteByIDs(t *testing.T) {
	ctx := context.Background()
	vs, err := sqlite.NewVectorStore(testDBPath(t, "vectors-delete"), 2)
	require.NoError(t, err)
	defer func() { _ = vs.Close() }()

	ids, err := vs.Add(ctx, []string{"a", "b", "c"},
		[][]float32{{1, 0}, {2, 0}, {3, 0}}, nil, nil)
	require.NoError(t, err)

	require.NoError(t, vs.Delete(ctx, []string{ids[0], ids[2]}, nil))

	count, err := vs.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	results, err := vs.Search(ctx, []float32{0, 0}, 10, nil)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, ids[1], results[0].ID)
}

func TestVectorStore_DeleteByFilter(t *testing.T) {
	ctx := context.Background()
	vs, err := sqlite.NewVectorStore(testDBPath(t, "vectors-delete-filter"), 2)
	require.NoError(t, err)
	defer func() { _ = vs.Close() }()

	_, err = vs.Add(ctx, []string{"a", "b", "c"},
		[][]float32{{1, 0}, {2, 0}, {3, 0}},
		[]map[string]any{
			{"document_id": "x"},
			{"document_id": "y"},
			{"document_id": "x"},
		}, nil)
	require.NoError(t, err)

	require.NoError(t, vs.Delete(ctx, nil, store.Filter{"document_id": "x"}))

	count, err := vs.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestVectorStore_DeleteEmpty(t *testing.T) {
	ctx := context.Background()
	vs, err := sqlite.NewVectorStore(testDBPath(t, "vectors-delete-empty"), 2)
	require.NoError(t, err)
	defer func() { _ = vs.Close() }()

	require.NoError(t, vs.Delete(ctx, nil, nil))
	require.NoError(t, vs.Delete(ctx, []string{}, store.Filter{}))
}

func TestVectorStore_Get(t *testing.T) {
	ctx := context.Background()
	vs, err := sqlite.NewVectorStore(testDBPath(t, "vectors-get"), 2)
	require.NoError(t, err)
	defer func() { _ = vs.Close() }()

	_, err = vs.Add(ctx, []string{"a", "b"},
		[][]float32{{1, 0}, {0, 1}},
		[]map[string]any{{"k": "v1"}, {"k": "v2"}},
		[]string{"id-a", "id-b"})
	require.NoError(t, err)

	byID, err := vs.Get(ctx, []string{"id-b"}, nil)
	require.NoError(t, err)
	require.Len(t, byID.IDs, 1)
	assert.Equal(t, "b", byID.Texts[0])
	assert.Equal(t, []float32{0, 1}, byID.Embeddings[0])

	byFilter, err := vs.Get(ctx, nil, store.Filter{"k": "v1"})
	require.NoError(t, err)
	require.Len(t, byFilter.IDs, 1)
	assert.Equal(t, "id-a", byFilter.IDs[0])

	all, err := vs.Get(ctx, nil, nil)
	require.NoError(t, err)
	assert.Len(t, all.IDs, 2)
}

func TestVectorStore_Clear(t *testing.T) {
	ctx := context.Background()
	vs, err := sqlite.NewVectorStore(testDBPath(t, "vectors-clear"), 2)
	require.NoError(t, err)
	defer func() { _ = vs.Close() }()

	_, err = vs.Add(ctx, []string{"a"}, [][]float32{{1, 0}}, nil, nil)
	require.NoError(t, err)

	require.NoError(t, vs.Clear(ctx))

	count, err := vs.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestVectorStore_LazyDimension(t *testing.T) {
	ctx := context.Background()
	path := testDBPath(t, "vectors-lazy")

	vs, err := sqlite.NewVectorStore(path, 0)
	require.NoError(t, err)
	assert.Zero(t, vs.Dimension())

	_, err = vs.Add(ctx, []string{"a"}, [][]float32{{1, 0, 0}}, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, vs.Dimension())
	require.NoError(t, vs.Close())

	// The dimension survives a reopen.
	vs, err = sqlite.NewVectorStore(path, 0)
	require.NoError(t, err)
	defer func() { _ = vs.Close() }()
	assert.Equal(t, 3, vs.Dimension())
}

func TestVectorStore_ReopenDimensionMismatch(t *testing.T) {
	path := testDBPath(t, "vectors-reopen")

	vs, err := sqlite.NewVectorStore(path, 4)
	require.NoError(t, err)
	require.NoError(t, vs.Close())

	// A conflicting configured dimension is rejected at open, not at the
	// first insert.
	_, err = sqlite.NewVectorStore(path, 8)
	require.Error(t, err)
	assert.True(t, blerr.HasCode(err, blerr.CodeStoreInvalidInput))

	// The matching dimension reopens cleanly.
	vs, err = sqlite.NewVectorStore(path, 4)
	require.NoError(t, err)
	defer func() { _ = vs.Close() }()
	assert.Equal(t, 4, vs.Dimension())
}

func TestVectorStore_DimensionMismatch(t *testing.T) {
	ctx := context.Background()
	vs, err := sqlite.NewVectorStore(testDBPath(t, "vectors-dims"), 2)
	require.NoError(t, err)
	defer func() { _ = vs.Close() }()

	_, err = vs.Add(ctx, []string{"a"}, [][]float32{{1, 0, 0}}, nil, nil)
	require.Error(t, err)

	_, err = vs.Search(ctx, []float32{1}, 1, nil)
	require.Error(t, err)
}
