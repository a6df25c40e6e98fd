package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/quillsync/docstore/internal/docbody"
	"github.com/quillsync/docstore/internal/docerr"
	"github.com/quillsync/docstore/internal/revid"
	"github.com/quillsync/docstore/internal/revtree"
)

// isUniqueConstraintError reports whether err is a UNIQUE constraint
// violation, the same substring check the teacher uses in
// internal/storage/sqlite/issues.go to tell an expected duplicate from
// a genuine driver failure.
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") || strings.Contains(msg, "constraint failed: UNIQUE")
}

// internalIDForDoc returns the clustering id shared by every revision
// of docID, or 0 if the document has no stored revision yet; the caller
// then uses the new row's own sequence as the id.
func (s *Store) internalIDForDoc(ctx context.Context, conn *sql.Conn, docID string) (int64, error) {
	var internalID int64
	err := conn.QueryRowContext(ctx, `SELECT internal_id FROM revisions WHERE doc_id = ? LIMIT 1`, docID).Scan(&internalID)
	switch {
	case err == sql.ErrNoRows:
		return 0, nil // signals "assign to the new row's own sequence"
	case err != nil:
		return 0, docerr.New(docerr.KindIO, "sqlite.internalIDForDoc", err)
	default:
		return internalID, nil
	}
}

// InsertRevision persists a single revision and returns it with its
// assigned sequence and resolved internal_id populated. If a revision
// with the same (doc_id, rev_id) already exists, its stored body is
// compared against the one being inserted: identical bodies make this
// an idempotent no-op returning the existing row (replication may
// safely re-offer already-known revisions); differing bodies are a
// KindConflict, grounded in the teacher's content-hash collision check
// (internal/storage/sqlite/collision.go).
func (s *Store) InsertRevision(ctx context.Context, conn *sql.Conn, rev revtree.Revision) (revtree.Revision, error) {
	const op = "sqlite.InsertRevision"

	if existing, ok, err := s.lookupRevision(ctx, conn, rev.DocID, rev.RevID.String()); err != nil {
		return revtree.Revision{}, err
	} else if ok {
		if existing.Body.Equal(rev.Body) && existing.IsDeleted == rev.IsDeleted {
			return existing, nil
		}
		return revtree.Revision{}, docerr.New(docerr.KindConflict, op,
			fmt.Errorf("rev_id %s already exists for document %s with different content", rev.RevID, rev.DocID))
	}

	internalID, err := s.internalIDForDoc(ctx, conn, rev.DocID)
	if err != nil {
		return revtree.Revision{}, err
	}

	res, err := conn.ExecContext(ctx, `
		INSERT INTO revisions (doc_id, rev_id, generation, internal_id, parent_sequence, body, is_local, is_deleted, is_current)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, 0)
	`, rev.DocID, rev.RevID.String(), rev.RevID.Generation, internalID, rev.ParentSequence, rev.Body.Bytes(), boolToInt(rev.IsLocal), boolToInt(rev.IsDeleted))
	if err != nil {
		if isUniqueConstraintError(err) {
			return revtree.Revision{}, docerr.New(docerr.KindConflict, op, err)
		}
		return revtree.Revision{}, docerr.New(docerr.KindIO, op, fmt.Errorf("inserting revision: %w", err))
	}

	seq, err := res.LastInsertId()
	if err != nil {
		return revtree.Revision{}, docerr.New(docerr.KindIO, op, err)
	}

	rev.Sequence = seq
	if internalID == 0 {
		rev.InternalID = seq
		if _, err := conn.ExecContext(ctx, `UPDATE revisions SET internal_id = ? WHERE sequence = ?`, seq, seq); err != nil {
			return revtree.Revision{}, docerr.New(docerr.KindIO, op, fmt.Errorf("resolving internal_id: %w", err))
		}
	} else {
		rev.InternalID = internalID
	}
	return rev, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func scanRevision(scan func(dest ...any) error) (revtree.Revision, error) {
	var (
		seq, parentSeq, internalID int64
		docID, revIDStr            string
		generation                 int
		body                       []byte
		isLocal, isDeleted, isCur  int
	)
	if err := scan(&seq, &docID, &revIDStr, &generation, &internalID, &parentSeq, &body, &isLocal, &isDeleted, &isCur); err != nil {
		return revtree.Revision{}, err
	}
	id, err := revid.Parse(revIDStr)
	if err != nil {
		return revtree.Revision{}, docerr.New(docerr.KindCorruption, "sqlite.scanRevision", err)
	}
	return revtree.Revision{
		DocID:          docID,
		RevID:          id,
		Body:           docbody.New(body),
		Sequence:       seq,
		InternalID:     internalID,
		IsLocal:        isLocal != 0,
		IsDeleted:      isDeleted != 0,
		IsCurrent:      isCur != 0,
		ParentSequence: parentSeq,
	}, nil
}

const revisionColumns = `sequence, doc_id, rev_id, generation, internal_id, parent_sequence, body, is_local, is_deleted, is_current`

// lookupRevision fetches a single revision by (doc_id, rev_id).
func (s *Store) lookupRevision(ctx context.Context, conn *sql.Conn, docID, revIDStr string) (revtree.Revision, bool, error) {
	row := conn.QueryRowContext(ctx, `SELECT `+revisionColumns+` FROM revisions WHERE doc_id = ? AND rev_id = ?`, docID, revIDStr)
	rev, err := scanRevision(row.Scan)
	if err == sql.ErrNoRows {
		return revtree.Revision{}, false, nil
	}
	if err != nil {
		return revtree.Revision{}, false, docerr.New(docerr.KindIO, "sqlite.lookupRevision", err)
	}
	return rev, true, nil
}

// LoadTree reconstructs the in-memory revision tree for docID by
// replaying every stored revision in sequence order — parents always
// have a lower sequence than their children, since sequence is assigned
// at commit time and a revision's parent must already exist (spec.md
// §3 invariant 3), so ascending order always satisfies revtree.Add's
// ordering requirement.
func (s *Store) LoadTree(ctx context.Context, docID string) (*revtree.Tree, error) {
	const op = "sqlite.LoadTree"
	rows, err := s.db.QueryContext(ctx, `SELECT `+revisionColumns+` FROM revisions WHERE doc_id = ? ORDER BY sequence ASC`, docID)
	if err != nil {
		return nil, docerr.New(docerr.KindIO, op, err)
	}
	defer rows.Close()

	tree, err := revtree.New(nil)
	if err != nil {
		return nil, err
	}
	var revs []revtree.Revision
	hasChild := make(map[int64]bool)
	for rows.Next() {
		rev, err := scanRevision(rows.Scan)
		if err != nil {
			return nil, docerr.New(docerr.KindIO, op, err)
		}
		revs = append(revs, rev)
		if rev.ParentSequence != revtree.NoParent {
			hasChild[rev.ParentSequence] = true
		}
	}
	if err := rows.Err(); err != nil {
		return nil, docerr.New(docerr.KindIO, op, err)
	}
	// The stored is_current column is not trusted: each revision's flag
	// is rebuilt from the loaded parent links before it enters the tree.
	for _, rev := range revs {
		rev.IsCurrent = !hasChild[rev.Sequence]
		if tree, err = tree.Add(rev); err != nil {
			return nil, err
		}
	}
	return tree, nil
}

// KnownRevisionIDs implements revsdiff.KnownLookup against this store.
func (s *Store) KnownRevisionIDs(ctx context.Context, docID string) (map[string]struct{}, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT rev_id FROM revisions WHERE doc_id = ?`, docID)
	if err != nil {
		return nil, docerr.New(docerr.KindIO, "sqlite.KnownRevisionIDs", err)
	}
	defer rows.Close()

	out := make(map[string]struct{})
	for rows.Next() {
		var revIDStr string
		if err := rows.Scan(&revIDStr); err != nil {
			return nil, docerr.New(docerr.KindIO, "sqlite.KnownRevisionIDs", err)
		}
		out[revIDStr] = struct{}{}
	}
	return out, rows.Err()
}

// UpdateCurrentFlags persists the is_current bit recomputed from tree
// topology (spec.md §9: topology is authoritative, the flag is derived
// on load/commit rather than trusted as stored state).
func (s *Store) UpdateCurrentFlags(ctx context.Context, conn *sql.Conn, flags map[int64]bool) error {
	for seq, isCurrent := range flags {
		if _, err := conn.ExecContext(ctx, `UPDATE revisions SET is_current = ? WHERE sequence = ?`, boolToInt(isCurrent), seq); err != nil {
			return docerr.New(docerr.KindIO, "sqlite.UpdateCurrentFlags", err)
		}
	}
	return nil
}

// ListConflictedDocuments returns doc_ids with more than one
// non-deleted current (leaf) revision.
func (s *Store) ListConflictedDocuments(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT doc_id FROM revisions
		WHERE is_current = 1 AND is_deleted = 0
		GROUP BY doc_id
		HAVING COUNT(*) > 1
	`)
	if err != nil {
		return nil, docerr.New(docerr.KindIO, "sqlite.ListConflictedDocuments", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var docID string
		if err := rows.Scan(&docID); err != nil {
			return nil, docerr.New(docerr.KindIO, "sqlite.ListConflictedDocuments", err)
		}
		out = append(out, docID)
	}
	return out, rows.Err()
}

// WithTx exposes the transaction helper to the datastore package
// without leaking *sql.Conn plumbing into its public API surface.
func (s *Store) WithTx(ctx context.Context, fn func(conn *sql.Conn) error) error {
	return s.withTx(ctx, fn)
}
