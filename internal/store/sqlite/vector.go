// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 BookLore Contributors

// Package sqlite persists chunks, documents, and the book graph in a
// single SQLite database, with vector search through sqlite-vec.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"sync"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/booklore-ai/booklore/internal/store"
	blerr "github.com/booklore-ai/booklore/pkg/errors"
)

func init() {
	sqlite_vec.Auto()
	store.RegisterBackend("sqlite", func(path string, dims int) (store.VectorStore, error) {
		return NewVectorStore(path, dims)
	})
}

// Compile-time interface check.
var _ store.VectorStore = (*VectorStore)(nil)

// VectorStore implements store.VectorStore backed by SQLite with sqlite-vec.
// Embeddings live in a vec0 virtual table; text and metadata live in a
// companion chunks table joined by id. The rowid of the chunks table
// preserves insertion order for distance ties.
type VectorStore struct {
	db *sql.DB

	mu   sync.Mutex
	dims int // 0 until the schema is created from the first Add
}

// NewVectorStore opens (or creates) a SQLite database at dbPath. dims may
// be 0, in which case the vector table is created lazily with the
// dimension of the first added embedding.
func NewVectorStore(dbPath string, dims int) (*VectorStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, blerr.Wrap(err, blerr.CodeStoreDatabaseFailure, "opening sqlite db")
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, blerr.Wrap(err, blerr.CodeStoreDatabaseFailure, "pinging sqlite db")
	}

	v := &VectorStore{db: db}
	existing, err := v.existingDimension()
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	switch {
	case existing > 0 && dims > 0 && existing != dims:
		_ = db.Close()
		return nil, blerr.Errorf(blerr.CodeStoreInvalidInput,
			"embedding dimension mismatch: store has %d, configured %d", existing, dims)
	case existing > 0:
		v.dims = existing
	case dims > 0:
		if err := v.ensureSchema(dims); err != nil {
			_ = db.Close()
			return nil, err
		}
	}

	return v, nil
}

// ensureSchema creates the vec0 and chunks tables for the given dimension.
// Callers must not hold v.mu.
func (v *VectorStore) ensureSchema(dims int) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.dims != 0 {
		if dims != v.dims {
			return blerr.Errorf(blerr.CodeStoreInvalidInput,
				"embedding dimension mismatch: expected %d, got %d", v.dims, dims)
		}
		return nil
	}

	vecDDL := fmt.Sprintf(
		`CREATE VIRTUAL TABLE IF NOT EXISTS vectors USING vec0(id TEXT PRIMARY KEY, embedding float[%d])`,
		dims,
	)
	if _, err := v.db.Exec(vecDDL); err != nil {
		return blerr.Wrap(err, blerr.CodeStoreDatabaseFailure, "creating vectors virtual table")
	}

	const chunkDDL = `
CREATE TABLE IF NOT EXISTS chunks (
	id       TEXT PRIMARY KEY,
	text     TEXT NOT NULL,
	metadata TEXT NOT NULL DEFAULT '{}'
)`
	if _, err := v.db.Exec(chunkDDL); err != nil {
		return blerr.Wrap(err, blerr.CodeStoreDatabaseFailure, "creating chunks table")
	}

	const dimsDDL = `CREATE TABLE IF NOT EXISTS vector_config (dimensions INTEGER NOT NULL)`
	if _, err := v.db.Exec(dimsDDL); err != nil {
		return blerr.Wrap(err, blerr.CodeStoreDatabaseFailure, "creating vector_config table")
	}
	const recordDims = `INSERT INTO vector_config(dimensions)
SELECT ? WHERE NOT EXISTS (SELECT 1 FROM vector_config)`
	if _, err := v.db.Exec(recordDims, dims); err != nil {
		return blerr.Wrap(err, blerr.CodeStoreDatabaseFailure, "recording vector dimensions")
	}

	v.dims = dims
	return nil
}

// existingDimension reads the dimension recorded by a previous run, or 0
// when the database is fresh.
func (v *VectorStore) existingDimension() (int, error) {
	var dims int
	err := v.db.QueryRow(`SELECT dimensions FROM vector_config LIMIT 1`).Scan(&dims)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		if strings.Contains(err.Error(), "no such table") {
			return 0, nil
		}
		return 0, blerr.Wrap(err, blerr.CodeStoreDatabaseFailure, "reading vector dimensions")
	}
	return dims, nil
}

// Dimension returns the collection's embedding dimension, or 0 before any
// rows exist.
func (v *VectorStore) Dimension() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.dims
}

func (v *VectorStore) Add(ctx context.Context, texts []string, embeddings [][]float32, metadatas []map[string]any, ids []string) ([]string, error) {
	if len(texts) != len(embeddings) {
		return nil, blerr.Errorf(blerr.CodeStoreInvalidInput,
			"texts and embeddings length mismatch: %d != %d", len(texts), len(embeddings))
	}
	if metadatas != nil && len(metadatas) != len(texts) {
		return nil, blerr.Errorf(blerr.CodeStoreInvalidInput,
			"metadatas length mismatch: %d != %d", len(metadatas), len(texts))
	}
	if ids != nil && len(ids) != len(texts) {
		return nil, blerr.Errorf(blerr.CodeStoreInvalidInput,
			"ids length mismatch: %d != %d", len(ids), len(texts))
	}
	if len(texts) == 0 {
		return nil, nil
	}
	if len(embeddings[0]) == 0 {
		return nil, blerr.New(blerr.CodeStoreInvalidInput, "embedding must not be empty")
	}

	if err := v.ensureSchema(len(embeddings[0])); err != nil {
		return nil, err
	}
	dims := v.Dimension()
	for _, emb := range embeddings {
		if len(emb) != dims {
			return nil, blerr.Errorf(blerr.CodeStoreInvalidInput,
				"embedding dimension mismatch: expected %d, got %d", dims, len(emb))
		}
	}

	tx, err := v.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, blerr.Wrap(err, blerr.CodeStoreDatabaseFailure, "beginning transaction")
	}
	defer func() { _ = tx.Rollback() }()

	out := make([]string, len(texts))
	for i := range texts {
		id := uuid.NewString()
		if ids != nil {
			id = ids[i]
		}
		out[i] = id

		blob, err := sqlite_vec.SerializeFloat32(embeddings[i])
		if err != nil {
			return nil, blerr.Wrap(err, blerr.CodeStoreDatabaseFailure, "serializing embedding")
		}

		metaJSON := []byte("{}")
		if metadatas != nil && len(metadatas[i]) > 0 {
			metaJSON, err = json.Marshal(metadatas[i])
			if err != nil {
				return nil, blerr.Wrap(err, blerr.CodeStoreInvalidInput, "marshalling metadata")
			}
		}

		// vec0 does not support ON CONFLICT; delete first for upsert.
		if _, err := tx.ExecContext(ctx, `DELETE FROM vectors WHERE id = ?`, id); err != nil {
			return nil, blerr.Wrapf(err, blerr.CodeStoreDatabaseFailure, "deleting existing vector %s", id)
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO vectors(id, embedding) VALUES (?, ?)`, id, blob); err != nil {
			return nil, blerr.Wrapf(err, blerr.CodeStoreDatabaseFailure, "inserting vector %s", id)
		}

		const chunkQ = `INSERT INTO chunks(id, text, metadata) VALUES (?, ?, ?)
ON CONFLICT(id) DO UPDATE SET text = excluded.text, metadata = excluded.metadata`
		if _, err := tx.ExecContext(ctx, chunkQ, id, texts[i], string(metaJSON)); err != nil {
			return nil, blerr.Wrapf(err, blerr.CodeStoreDatabaseFailure, "upserting chunk %s", id)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, blerr.Wrap(err, blerr.CodeStoreDatabaseFailure, "committing chunk batch")
	}
	return out, nil
}

func (v *VectorStore) Search(ctx context.Context, query []float32, topK int, filter store.Filter) ([]store.SearchResult, error) {
	if topK <= 0 {
		return nil, blerr.Errorf(blerr.CodeStoreInvalidInput, "topK must be positive, got %d", topK)
	}

	dims := v.Dimension()
	if dims == 0 {
		return nil, nil
	}
	if len(query) != dims {
		return nil, blerr.Errorf(blerr.CodeStoreInvalidInput,
			"query dimension mismatch: expected %d, got %d", dims, len(query))
	}

	blob, err := sqlite_vec.SerializeFloat32(query)
	if err != nil {
		return nil, blerr.Wrap(err, blerr.CodeStoreDatabaseFailure, "serializing query vector")
	}

	// The KNN clause caps candidates before metadata filtering can run, so
	// filtered searches scan the whole collection and trim afterwards.
	k := topK
	if len(filter) > 0 {
		count, err := v.Count(ctx)
		if err != nil {
			return nil, err
		}
		if count == 0 {
			return nil, nil
		}
		k = count
	}

	const q = `SELECT s.id, s.distance, c.text, COALESCE(c.metadata, '{}'), c.rowid
FROM (SELECT id, distance FROM vectors WHERE embedding MATCH ? AND k = ?) s
JOIN chunks c ON c.id = s.id
ORDER BY s.distance, c.rowid`

	rows, err := v.db.QueryContext(ctx, q, blob, k)
	if err != nil {
		return nil, blerr.Wrap(err, blerr.CodeStoreDatabaseFailure, "searching vectors")
	}
	defer func() { _ = rows.Close() }()

	var results []store.SearchResult
	for rows.Next() {
		var (
			r       store.SearchResult
			metaStr string
			rowid   int64
		)
		if err := rows.Scan(&r.ID, &r.Distance, &r.Text, &metaStr, &rowid); err != nil {
			return nil, blerr.Wrap(err, blerr.CodeStoreDatabaseFailure, "scanning search result")
		}

		meta, err := decodeMetadata(metaStr)
		if err != nil {
			return nil, err
		}
		r.Metadata = meta

		if !store.MatchesFilter(r.Metadata, filter) {
			continue
		}
		results = append(results, r)
		if len(results) == topK {
			break
		}
	}
	if err := rows.Err(); err != nil {
		return nil, blerr.Wrap(err, blerr.CodeStoreDatabaseFailure, "iterating search results")
	}

	return results, nil
}

func (v *VectorStore) Delete(ctx context.Context, ids []string, filter store.Filter) error {
	if len(ids) == 0 && len(filter) == 0 {
		return nil
	}
	if v.Dimension() == 0 {
		return nil
	}

	targets := append([]string(nil), ids...)
	if len(filter) > 0 {
		matched, err := v.Get(ctx, nil, filter)
		if err != nil {
			return err
		}
		targets = append(targets, matched.IDs...)
	}
	if len(targets) == 0 {
		return nil
	}

	tx, err := v.db.BeginTx(ctx, nil)
	if err != nil {
		return blerr.Wrap(err, blerr.CodeStoreDatabaseFailure, "beginning transaction")
	}
	defer func() { _ = tx.Rollback() }()

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(targets)), ",")
	args := make([]any, len(targets))
	for i, id := range targets {
		args[i] = id
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM vectors WHERE id IN (`+placeholders+`)`, args...); err != nil {
		return blerr.Wrap(err, blerr.CodeStoreDatabaseFailure, "deleting vectors")
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM chunks WHERE id IN (`+placeholders+`)`, args...); err != nil {
		return blerr.Wrap(err, blerr.CodeStoreDatabaseFailure, "deleting chunks")
	}

	if err := tx.Commit(); err != nil {
		return blerr.Wrap(err, blerr.CodeStoreDatabaseFailure, "committing chunk delete")
	}
	return nil
}

func (v *VectorStore) Get(ctx context.Context, ids []string, filter store.Filter) (*store.GetResult, error) {
	res := &store.GetResult{}
	if v.Dimension() == 0 {
		return res, nil
	}

	q := `SELECT c.id, c.text, COALESCE(c.metadata, '{}'), v.embedding
FROM chunks c
JOIN vectors v ON v.id = c.id`
	var args []any
	if len(ids) > 0 {
		placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
		q += ` WHERE c.id IN (` + placeholders + `)`
		for _, id := range ids {
			args = append(args, id)
		}
	}
	q += ` ORDER BY c.rowid`

	rows, err := v.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, blerr.Wrap(err, blerr.CodeStoreDatabaseFailure, "fetching chunks")
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var (
			id, text, metaStr string
			blob              []byte
		)
		if err := rows.Scan(&id, &text, &metaStr, &blob); err != nil {
			return nil, blerr.Wrap(err, blerr.CodeStoreDatabaseFailure, "scanning chunk")
		}

		meta, err := decodeMetadata(metaStr)
		if err != nil {
			return nil, err
		}
		if !store.MatchesFilter(meta, filter) {
			continue
		}

		res.IDs = append(res.IDs, id)
		res.Texts = append(res.Texts, text)
		res.Metadatas = append(res.Metadatas, meta)
		res.Embeddings = append(res.Embeddings, deserializeFloat32(blob))
	}
	if err := rows.Err(); err != nil {
		return nil, blerr.Wrap(err, blerr.CodeStoreDatabaseFailure, "iterating chunks")
	}

	return res, nil
}

func (v *VectorStore) Clear(ctx context.Context) error {
	if v.Dimension() == 0 {
		return nil
	}

	tx, err := v.db.BeginTx(ctx, nil)
	if err != nil {
		return blerr.Wrap(err, blerr.CodeStoreDatabaseFailure, "beginning transaction")
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM vectors`); err != nil {
		return blerr.Wrap(err, blerr.CodeStoreDatabaseFailure, "clearing vectors")
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM chunks`); err != nil {
		return blerr.Wrap(err, blerr.CodeStoreDatabaseFailure, "clearing chunks")
	}

	if err := tx.Commit(); err != nil {
		return blerr.Wrap(err, blerr.CodeStoreDatabaseFailure, "committing clear")
	}
	return nil
}

func (v *VectorStore) Count(ctx context.Context) (int, error) {
	if v.Dimension() == 0 {
		return 0, nil
	}

	var count int
	err := v.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM chunks`).Scan(&count)
	if err != nil {
		return 0, blerr.Wrap(err, blerr.CodeStoreDatabaseFailure, "counting chunks")
	}
	return count, nil
}

// Close closes the underlying database connection.
func (v *VectorStore) Close() error {
	return v.db.Close()
}

func decodeMetadata(metaStr string) (map[string]any, error) {
	meta := map[string]any{}
	if metaStr != "" && metaStr != "{}" {
		if err := json.Unmarshal([]byte(metaStr), &meta); err != nil {
			return nil, blerr.Wrap(err, blerr.CodeStoreDatabaseFailure, "unmarshalling chunk metadata")
		}
	}
	return meta, nil
}

// deserializeFloat32 decodes the little-endian blob layout produced by
// sqlite_vec.SerializeFloat32.
func deserializeFloat32(blob []byte) []float32 {
	out := make([]float32, len(blob)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(blob[i*4:]))
	}
	return out
}
