// Package sqlite is the relational persistence layer backing one
// datastore's revisions and committed attachments (spec.md §6). It is
// an external collaborator of the core per spec.md §1: the revs-diff
// engine sees it only through revsdiff.KnownLookup, and revision trees
// are rebuilt from it by LoadTree.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/ncruces/go-sqlite3/driver" // registers the "sqlite3" database/sql driver
	_ "github.com/ncruces/go-sqlite3/embed"  // statically links the sqlite3 library, no cgo required

	"github.com/quillsync/docstore/internal/docerr"
)

// Store is a pooled connection to one datastore's SQLite file.
type Store struct {
	db *sql.DB
}

// Open opens (creating if absent) the SQLite file at path and applies
// the schema. WAL mode and a busy timeout are set so the foreground and
// replication threads (spec.md §5) can both hold the database open.
func Open(ctx context.Context, path string) (*Store, error) {
	dsn := "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)"
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, docerr.New(docerr.KindIO, "sqlite.Open", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, docerr.New(docerr.KindIO, "sqlite.Open", fmt.Errorf("applying schema: %w", err))
	}
	return &Store{db: db}, nil
}

// Close closes the underlying connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// withTx runs fn against a single checked-out connection inside a
// transaction opened with BEGIN IMMEDIATE — the teacher's own idiom
// (internal/storage's Transaction doc comment) for acquiring the write
// lock early and avoiding lock-upgrade deadlocks under concurrent
// writers. fn receives the raw *sql.Conn rather than a *sql.Tx because
// BEGIN IMMEDIATE has no equivalent in database/sql's portable
// TxOptions; driving BEGIN/COMMIT/ROLLBACK by hand on one connection
// keeps that SQLite-specific locking mode available.
func (s *Store) withTx(ctx context.Context, fn func(conn *sql.Conn) error) error {
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return docerr.New(docerr.KindIO, "sqlite.withTx", err)
	}
	defer conn.Close()

	if _, err := conn.ExecContext(ctx, "BEGIN IMMEDIATE"); err != nil {
		return docerr.New(docerr.KindIO, "sqlite.withTx", err)
	}

	if err := fn(conn); err != nil {
		_, _ = conn.ExecContext(ctx, "ROLLBACK")
		return err
	}
	if _, err := conn.ExecContext(ctx, "COMMIT"); err != nil {
		return docerr.New(docerr.KindIO, "sqlite.withTx", fmt.Errorf("commit: %w", err))
	}
	return nil
}
