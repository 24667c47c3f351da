// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 BookLore Contributors

package sqlite

import (
	"context"
	"database/sql"

	_ "github.com/mattn/go-sqlite3"

	"github.com/booklore-ai/booklore/internal/provider"
	blerr "github.com/booklore-ai/booklore/pkg/errors"
)

// Compile-time interface check.
var _ provider.GraphStore = (*GraphStore)(nil)

// GraphStore mirrors book and chapter structure into relational tables.
// It fills the graph_store capability for deployments without a dedicated
// graph database; mirroring failures never fail ingestion.
type GraphStore struct {
	db *sql.DB
}

// NewGraphStore returns an uninitialised graph store provider. The
// database is opened in Initialize from the "path" config key.
func NewGraphStore() *GraphStore {
	return &GraphStore{}
}

func (g *GraphStore) Name() string { return "sqlite" }

func (g *GraphStore) Capability() provider.Capability { return provider.CapabilityGraphStore }

func (g *GraphStore) Initialize(_ context.Context, cfg provider.Config) error {
	path := cfg.String("path")
	if path == "" {
		return blerr.New(blerr.CodeProviderConfigInvalid, "graph store requires a path")
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return blerr.Wrap(err, blerr.CodeStoreDatabaseFailure, "opening sqlite db")
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return blerr.Wrap(err, blerr.CodeStoreDatabaseFailure, "pinging sqlite db")
	}
	if err := migrateGraph(db); err != nil {
		_ = db.Close()
		return blerr.Wrap(err, blerr.CodeStoreDatabaseFailure, "migrating graph tables")
	}

	g.db = db
	return nil
}

func (g *GraphStore) Shutdown(context.Context) error {
	if g.db == nil {
		return nil
	}
	return g.db.Close()
}

func migrateGraph(db *sql.DB) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS books (
	title  TEXT PRIMARY KEY,
	author TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS chapters (
	book_title TEXT NOT NULL REFERENCES books(title) ON DELETE CASCADE,
	seq        INTEGER NOT NULL,
	title      TEXT NOT NULL,
	UNIQUE(book_title, seq)
);
`
	_, err := db.Exec(ddl)
	return err
}

// AddBook upserts a book node.
func (g *GraphStore) AddBook(ctx context.Context, title, author string) error {
	if title == "" {
		return blerr.New(blerr.CodeStoreInvalidInput, "book title must not be empty")
	}

	const q = `INSERT INTO books (title, author) VALUES (?, ?)
ON CONFLICT(title) DO UPDATE SET author = excluded.author`

	if _, err := g.db.ExecContext(ctx, q, title, author); err != nil {
		return blerr.Wrapf(err, blerr.CodeStoreDatabaseFailure, "upserting book %q", title)
	}
	return nil
}

// AddChapters upserts chapter nodes under an existing book.
func (g *GraphStore) AddChapters(ctx context.Context, bookTitle string, chapters []provider.Chapter) error {
	if len(chapters) == 0 {
		return nil
	}

	tx, err := g.db.BeginTx(ctx, nil)
	if err != nil {
		return blerr.Wrap(err, blerr.CodeStoreDatabaseFailure, "beginning transaction")
	}
	defer func() { _ = tx.Rollback() }()

	const q = `INSERT INTO chapters (book_title, seq, title) VALUES (?, ?, ?)
ON CONFLICT(book_title, seq) DO UPDATE SET title = excluded.title`

	for _, ch := range chapters {
		if _, err := tx.ExecContext(ctx, q, bookTitle, ch.Seq, ch.Title); err != nil {
			return blerr.Wrapf(err, blerr.CodeStoreDatabaseFailure, "upserting chapter %d of %q", ch.Seq, bookTitle)
		}
	}

	if err := tx.Commit(); err != nil {
		return blerr.Wrap(err, blerr.CodeStoreDatabaseFailure, "committing chapter batch")
	}
	return nil
}

// Books returns the titles of all mirrored books in insertion order.
func (g *GraphStore) Books(ctx context.Context) ([]string, error) {
	rows, err := g.db.QueryContext(ctx, `SELECT title FROM books ORDER BY rowid`)
	if err != nil {
		return nil, blerr.Wrap(err, blerr.CodeStoreDatabaseFailure, "listing books")
	}
	defer func() { _ = rows.Close() }()

	var titles []string
	for rows.Next() {
		var title string
		if err := rows.Scan(&title); err != nil {
			return nil, blerr.Wrap(err, blerr.CodeStoreDatabaseFailure, "scanning book")
		}
		titles = append(titles, title)
	}
	if err := rows.Err(); err != nil {
		return nil, blerr.Wrap(err, blerr.CodeStoreDatabaseFailure, "iterating books")
	}
	return titles, nil
}

// Chapters returns the mirrored chapters of a book ordered by seq.
func (g *GraphStore) Chapters(ctx context.Context, bookTitle string) ([]provider.Chapter, error) {
	const q = `SELECT seq, title FROM chapters WHERE book_title = ? ORDER BY seq`

	rows, err := g.db.QueryContext(ctx, q, bookTitle)
	if err != nil {
		return nil, blerr.Wrap(err, blerr.CodeStoreDatabaseFailure, "listing chapters")
	}
	defer func() { _ = rows.Close() }()

	var chapters []provider.Chapter
	for rows.Next() {
		var ch provider.Chapter
		if err := rows.Scan(&ch.Seq, &ch.Title); err != nil {
			return nil, blerr.Wrap(err, blerr.CodeStoreDatabaseFailure, "scanning chapter")
		}
		chapters = append(chapters, ch)
	}
	if err := rows.Err(); err != nil {
		return nil, blerr.Wrap(err, blerr.CodeStoreDatabaseFailure, "iterating chapters")
	}
	return chapters, nil
}
