// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 BookLore Contributors

package sqlite

import (
	"context"
	"database/sql"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/booklore-ai/booklore/internal/store"
	blerr "github.com/booklore-ai/booklore/pkg/errors"
)

// Compile-time interface check.
var _ store.DocumentStore = (*DocumentStore)(nil)

// DocumentStore implements store.DocumentStore backed by SQLite.
type DocumentStore struct {
	db *sql.DB
}

// NewDocumentStore opens (or creates) a SQLite database at dbPath and
// initialises the documents table.
func NewDocumentStore(dbPath string) (*DocumentStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, blerr.Wrap(err, blerr.CodeStoreDatabaseFailure, "opening sqlite db")
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, blerr.Wrap(err, blerr.CodeStoreDatabaseFailure, "pinging sqlite db")
	}

	if err := migrateDocuments(db); err != nil {
		_ = db.Close()
		return nil, blerr.Wrap(err, blerr.CodeStoreDatabaseFailure, "migrating documents table")
	}

	return &DocumentStore{db: db}, nil
}

func migrateDocuments(db *sql.DB) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS documents (
	id          TEXT PRIMARY KEY,
	file_name   TEXT NOT NULL,
	title       TEXT NOT NULL DEFAULT '',
	author      TEXT NOT NULL DEFAULT '',
	status      TEXT NOT NULL,
	message     TEXT NOT NULL DEFAULT '',
	chunk_count INTEGER NOT NULL DEFAULT 0,
	created     TEXT NOT NULL,
	updated     TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_documents_status ON documents(status);
`
	_, err := db.Exec(ddl)
	return err
}

func (d *DocumentStore) CreateDocument(ctx context.Context, doc *store.Document) error {
	if doc.ID == "" {
		return blerr.New(blerr.CodeStoreInvalidInput, "document id must not be empty")
	}

	status := doc.Status
	if status == "" {
		status = store.DocumentPending
	}
	now := formatTime(time.Now().UTC())

	const q = `INSERT INTO documents (id, file_name, title, author, status, message, chunk_count, created, updated)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
	file_name = excluded.file_name,
	title = excluded.title,
	author = excluded.author,
	status = excluded.status,
	message = excluded.message,
	chunk_count = excluded.chunk_count,
	updated = excluded.updated`

	_, err := d.db.ExecContext(ctx, q,
		doc.ID, doc.FileName, doc.Title, doc.Author,
		string(status), doc.Message, doc.ChunkCount, now, now)
	if err != nil {
		return blerr.Wrapf(err, blerr.CodeStoreDatabaseFailure, "upserting document %s", doc.ID)
	}
	return nil
}

func (d *DocumentStore) UpdateDocumentStatus(ctx context.Context, id string, status store.DocumentStatus, message string) error {
	const q = `UPDATE documents SET status = ?, message = ?, updated = ? WHERE id = ?`

	res, err := d.db.ExecContext(ctx, q, string(status), message, formatTime(time.Now().UTC()), id)
	if err != nil {
		return blerr.Wrapf(err, blerr.CodeStoreDatabaseFailure, "updating document %s", id)
	}
	return requireRow(res, id)
}

func (d *DocumentStore) CompleteDocument(ctx context.Context, id string, chunkCount int) error {
	const q = `UPDATE documents SET status = ?, message = '', chunk_count = ?, updated = ? WHERE id = ?`

	res, err := d.db.ExecContext(ctx, q, string(store.DocumentCompleted), chunkCount, formatTime(time.Now().UTC()), id)
	if err != nil {
		return blerr.Wrapf(err, blerr.CodeStoreDatabaseFailure, "completing document %s", id)
	}
	return requireRow(res, id)
}

func (d *DocumentStore) GetDocument(ctx context.Context, id string) (*store.Document, error) {
	const q = `SELECT id, file_name, title, author, status, message, chunk_count, created, updated
FROM documents WHERE id = ?`

	doc, err := scanDocument(d.db.QueryRowContext(ctx, q, id))
	if err == sql.ErrNoRows {
		return nil, blerr.Errorf(blerr.CodeStoreDocumentNotFound, "document not found: %s", id)
	}
	if err != nil {
		return nil, blerr.Wrapf(err, blerr.CodeStoreDatabaseFailure, "fetching document %s", id)
	}
	return doc, nil
}

func (d *DocumentStore) ListDocuments(ctx context.Context) ([]*store.Document, error) {
	const q = `SELECT id, file_name, title, author, status, message, chunk_count, created, updated
FROM documents ORDER BY created, id`

	rows, err := d.db.QueryContext(ctx, q)
	if err != nil {
		return nil, blerr.Wrap(err, blerr.CodeStoreDatabaseFailure, "listing documents")
	}
	defer func() { _ = rows.Close() }()

	var docs []*store.Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, blerr.Wrap(err, blerr.CodeStoreDatabaseFailure, "scanning document")
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, blerr.Wrap(err, blerr.CodeStoreDatabaseFailure, "iterating documents")
	}
	return docs, nil
}

func (d *DocumentStore) DeleteDocument(ctx context.Context, id string) error {
	if _, err := d.db.ExecContext(ctx, `DELETE FROM documents WHERE id = ?`, id); err != nil {
		return blerr.Wrapf(err, blerr.CodeStoreDatabaseFailure, "deleting document %s", id)
	}
	return nil
}

// Close closes the underlying database connection.
func (d *DocumentStore) Close() error {
	return d.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (*store.Document, error) {
	var (
		doc              store.Document
		status           string
		created, updated string
	)
	err := row.Scan(&doc.ID, &doc.FileName, &doc.Title, &doc.Author,
		&status, &doc.Message, &doc.ChunkCount, &created, &updated)
	if err != nil {
		return nil, err
	}
	doc.Status = store.DocumentStatus(status)
	doc.CreatedAt = parseTime(created)
	doc.UpdatedAt = parseTime(updated)
	return &doc, nil
}

func requireRow(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return blerr.Wrap(err, blerr.CodeStoreDatabaseFailure, "reading rows affected")
	}
	if n == 0 {
		return blerr.Errorf(blerr.CodeStoreDocumentNotFound, "document not found: %s", id)
	}
	return nil
}

func formatTime(t time.Time) string {
	return t.Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
