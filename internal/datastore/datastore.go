// Package datastore is the facade spec.md §4.4 describes: the single
// entry point a replicator or CLI talks to, delegating revision-tree
// bookkeeping to revtree, set-difference to revsdiff, and persistence
// to storage/sqlite. Package-level lifecycle (open/delete, one flock
// per datastore) lives in manager.go.
package datastore

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	"github.com/gofrs/flock"

	"github.com/quillsync/docstore/internal/attachment"
	"github.com/quillsync/docstore/internal/docerr"
	"github.com/quillsync/docstore/internal/revid"
	"github.com/quillsync/docstore/internal/revsdiff"
	"github.com/quillsync/docstore/internal/revtree"
	"github.com/quillsync/docstore/internal/storage/sqlite"
)

// Datastore is one opened document store: a SQLite-backed revision log
// plus a content-addressed attachment directory, guarded by a
// process-wide flock so two processes never open it at once.
type Datastore struct {
	name           string
	store          *sqlite.Store
	attachmentsDir string
	lock           *flock.Flock

	treesMu sync.Mutex
	docLock map[string]*sync.Mutex
	trees   map[string]*revtree.Tree
}

func newDatastore(name string, store *sqlite.Store, attachmentsDir string, lock *flock.Flock) *Datastore {
	return &Datastore{
		name:           name,
		store:          store,
		attachmentsDir: attachmentsDir,
		lock:           lock,
		docLock:        make(map[string]*sync.Mutex),
		trees:          make(map[string]*revtree.Tree),
	}
}

// Name returns the datastore's name as given to Manager.Open.
func (d *Datastore) Name() string { return d.name }

func (d *Datastore) lockFor(docID string) *sync.Mutex {
	d.treesMu.Lock()
	defer d.treesMu.Unlock()
	l, ok := d.docLock[docID]
	if !ok {
		l = &sync.Mutex{}
		d.docLock[docID] = l
	}
	return l
}

// treeFor returns the cached revision tree for docID, loading it from
// storage on first use. Callers must hold the per-document lock.
func (d *Datastore) treeFor(ctx context.Context, docID string) (*revtree.Tree, error) {
	d.treesMu.Lock()
	tree, ok := d.trees[docID]
	d.treesMu.Unlock()
	if ok {
		return tree, nil
	}
	tree, err := d.store.LoadTree(ctx, docID)
	if err != nil {
		return nil, err
	}
	d.treesMu.Lock()
	d.trees[docID] = tree
	d.treesMu.Unlock()
	return tree, nil
}

// RevsDiff implements spec.md §4.2: for each document in offered,
// returns the subset of revision IDs this datastore doesn't already
// have. Documents with nothing missing are omitted from the result.
func (d *Datastore) RevsDiff(ctx context.Context, offered map[string][]string) (map[string][]string, error) {
	return revsdiff.Diff(ctx, d.store, offered)
}

// GetDocument returns the current (winning) revision for docID, per
// revtree's generation/suffix winner election.
func (d *Datastore) GetDocument(ctx context.Context, docID string) (revtree.Revision, error) {
	lock := d.lockFor(docID)
	lock.Lock()
	defer lock.Unlock()

	tree, err := d.treeFor(ctx, docID)
	if err != nil {
		return revtree.Revision{}, err
	}
	return tree.CurrentRevision()
}

// GetConflictedDocuments returns every document ID with more than one
// live (non-deleted) leaf revision.
func (d *Datastore) GetConflictedDocuments(ctx context.Context) ([]string, error) {
	return d.store.ListConflictedDocuments(ctx)
}

// StageAttachment copies src into this datastore's staging area ahead
// of a ForceInsert, computing its SHA-1 digest as it goes.
func (d *Datastore) StageAttachment(ctx context.Context, src attachment.Source, encoding attachment.Encoding) (attachment.Prepared, error) {
	return attachment.Prepare(ctx, src, d.attachmentsDir, encoding)
}

// ForceInsert implements spec.md §4.4's force_insert: grafts rev onto
// the tree at the end of parentPath (immediate parent first, root
// ancestor last), materializing any ancestor stubs parentPath names
// that aren't already present, then commits every prepared attachment
// against the new revision. The whole operation is one SQLite
// transaction: either the revision, its stubs, and its attachments all
// land, or none do.
func (d *Datastore) ForceInsert(ctx context.Context, rev NewRevision, parentPath []string, attachments []attachment.Prepared) error {
	const op = "datastore.ForceInsert"

	newRevID, err := revid.Parse(rev.RevID)
	if err != nil {
		return docerr.New(docerr.KindInvalidArgument, op, err)
	}

	lock := d.lockFor(rev.DocID)
	lock.Lock()
	defer lock.Unlock()

	tree, err := d.treeFor(ctx, rev.DocID)
	if err != nil {
		return err
	}

	err = d.store.WithTx(ctx, func(conn *sql.Conn) error {
		parentSeq := revtree.NoParent

		// Walk parentPath from the furthest ancestor down to the
		// immediate parent, inserting any stub revisions the tree
		// doesn't already know about. This order keeps every insert's
		// own parent already present, satisfying revtree.Tree.Add.
		for i := len(parentPath) - 1; i >= 0; i-- {
			ancestorRevIDStr := parentPath[i]
			if existing, ok := tree.Lookup(rev.DocID, ancestorRevIDStr); ok {
				parentSeq = existing.Sequence
				continue
			}
			ancestorRevID, err := revid.Parse(ancestorRevIDStr)
			if err != nil {
				return docerr.New(docerr.KindInvalidArgument, op, fmt.Errorf("parent path entry %q: %w", ancestorRevIDStr, err))
			}
			stub := revtree.Revision{
				DocID:          rev.DocID,
				RevID:          ancestorRevID,
				ParentSequence: parentSeq,
			}
			inserted, err := d.store.InsertRevision(ctx, conn, stub)
			if err != nil {
				return err
			}
			if _, err := tree.Add(inserted); err != nil {
				return err
			}
			parentSeq = inserted.Sequence
		}

		final := revtree.Revision{
			DocID:          rev.DocID,
			RevID:          newRevID,
			Body:           rev.Body,
			IsDeleted:      rev.IsDeleted,
			ParentSequence: parentSeq,
		}
		inserted, err := d.store.InsertRevision(ctx, conn, final)
		if err != nil {
			return err
		}
		if _, err := tree.Add(inserted); err != nil {
			return err
		}

		if err := d.store.UpdateCurrentFlags(ctx, conn, tree.CurrentRevisions()); err != nil {
			return err
		}

		for _, prepared := range attachments {
			if err := d.store.CommitAttachment(ctx, conn, rev.DocID, rev.RevID, prepared, d.attachmentsDir); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		// Any prepared attachment not reached by the loop above, or
		// reached but not committed because the transaction rolled
		// back, still has its temp file on disk. Cleanup is a no-op
		// for ones that did get renamed away by CommitAttachment.
		for _, prepared := range attachments {
			_ = prepared.Cleanup()
		}
		return err
	}
	return nil
}

// close releases the datastore's SQLite connections and its advisory
// lock. It does not touch anything on disk.
func (d *Datastore) close() error {
	storeErr := d.store.Close()
	lockErr := d.lock.Unlock()
	if storeErr != nil {
		return docerr.New(docerr.KindIO, "datastore.Close", storeErr)
	}
	if lockErr != nil {
		return docerr.New(docerr.KindIO, "datastore.Close", lockErr)
	}
	return nil
}
