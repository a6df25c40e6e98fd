// Package revtree implements the per-document revision forest: insertion
// ordered by parent arrival, leaf enumeration, path reconstruction,
// conflict detection, and deterministic winner election (spec.md §4.1).
//
// The tree is represented as an arena of nodes (spec.md §9 Design
// Notes): a dense slice indexed by a tree-local arena index, with
// bySequence/byRevID maps from public identities down to arena indices.
// This keeps path walks cache-friendly and sidesteps the ownership
// cycles a heap-of-pointers representation would need for parent and
// child links on the same node.
//
// A Tree is not safe for concurrent use; callers serialize mutation per
// document (spec.md §5) and take point-in-time snapshots for reads.
package revtree

import (
	"fmt"

	"github.com/quillsync/docstore/internal/docerr"
	"github.com/quillsync/docstore/internal/revid"
)

type node struct {
	rev      Revision
	children []int64 // sequences of direct children
}

// Tree is the in-memory revision forest for a single document.
type Tree struct {
	docID      string
	arena      []node
	bySequence map[int64]int // sequence -> arena index
	byRevID    map[string]int
	roots      []int64 // root sequences, insertion order
}

// New creates a tree, optionally seeded with a single root revision.
func New(root *Revision) (*Tree, error) {
	t := &Tree{
		bySequence: make(map[int64]int),
		byRevID:    make(map[string]int),
	}
	if root == nil {
		return t, nil
	}
	if _, err := t.Add(*root); err != nil {
		return nil, err
	}
	return t, nil
}

// Add inserts rev into the tree and returns the tree itself, so calls
// chain: t, err = t.Add(a); t, err = t.Add(b)
//
// It fails with KindInvalidArgument if rev's parent (when non-root) is
// unknown or rev's rev_id already exists in this tree, and with
// KindCorruption if the parent points at a different document or a
// generation that does not strictly increase from parent to child.
func (t *Tree) Add(rev Revision) (*Tree, error) {
	const op = "revtree.Add"

	if t.docID == "" && len(t.arena) == 0 {
		t.docID = rev.DocID
	} else if rev.DocID != t.docID {
		return nil, docerr.New(docerr.KindCorruption, op,
			fmt.Errorf("revision %s/%s does not belong to tree for document %s", rev.DocID, rev.RevID, t.docID))
	}

	if _, exists := t.bySequence[rev.Sequence]; exists {
		return nil, docerr.New(docerr.KindInvalidArgument, op,
			fmt.Errorf("sequence %d already present in tree", rev.Sequence))
	}
	if _, exists := t.byRevID[rev.RevID.String()]; exists {
		return nil, docerr.New(docerr.KindInvalidArgument, op,
			fmt.Errorf("rev_id %s already present for document %s", rev.RevID, rev.DocID))
	}

	idx := len(t.arena)

	if rev.ParentSequence != NoParent {
		parentIdx, ok := t.bySequence[rev.ParentSequence]
		if !ok {
			return nil, docerr.New(docerr.KindInvalidArgument, op,
				fmt.Errorf("parent sequence %d not present in tree", rev.ParentSequence))
		}
		parent := &t.arena[parentIdx]
		if parent.rev.DocID != rev.DocID {
			return nil, docerr.New(docerr.KindCorruption, op,
				fmt.Errorf("parent sequence %d belongs to document %s, not %s", rev.ParentSequence, parent.rev.DocID, rev.DocID))
		}
		if rev.RevID.Generation <= parent.rev.RevID.Generation {
			return nil, docerr.New(docerr.KindCorruption, op,
				fmt.Errorf("generation must strictly increase: parent %s, child %s", parent.rev.RevID, rev.RevID))
		}
		parent.children = append(parent.children, rev.Sequence)
	} else {
		t.roots = append(t.roots, rev.Sequence)
	}

	t.arena = append(t.arena, node{rev: rev})
	t.bySequence[rev.Sequence] = idx
	t.byRevID[rev.RevID.String()] = idx

	return t, nil
}

// Roots returns the tree's root nodes keyed by sequence. Multiple roots
// are permitted: replication may import a subtree whose true root is
// absent locally.
func (t *Tree) Roots() map[int64]Revision {
	out := make(map[int64]Revision, len(t.roots))
	for _, seq := range t.roots {
		out[seq] = t.arena[t.bySequence[seq]].rev
	}
	return out
}

// isLeaf reports whether the node at arena index idx has no children.
func (t *Tree) isLeaf(idx int) bool {
	return len(t.arena[idx].children) == 0
}

// Leafs returns every leaf revision, in unspecified order.
func (t *Tree) Leafs() []Revision {
	var out []Revision
	for i := range t.arena {
		if t.isLeaf(i) {
			out = append(out, t.arena[i].rev)
		}
	}
	return out
}

// LeafRevisionIDs returns the set of leaf rev_ids.
func (t *Tree) LeafRevisionIDs() map[string]struct{} {
	leafs := t.Leafs()
	out := make(map[string]struct{}, len(leafs))
	for _, r := range leafs {
		out[r.RevID.String()] = struct{}{}
	}
	return out
}

// Root returns the root node at sequence, if any.
func (t *Tree) Root(sequence int64) (Revision, bool) {
	for _, seq := range t.roots {
		if seq == sequence {
			return t.arena[t.bySequence[seq]].rev, true
		}
	}
	return Revision{}, false
}

// BySequence looks up a revision by its store-wide sequence.
func (t *Tree) BySequence(seq int64) (Revision, bool) {
	idx, ok := t.bySequence[seq]
	if !ok {
		return Revision{}, false
	}
	return t.arena[idx].rev, true
}

// Lookup looks up a revision by (doc_id, rev_id). docID must match the
// tree's own document; a mismatch simply misses, it is not an error.
func (t *Tree) Lookup(docID, revIDStr string) (Revision, bool) {
	if docID != t.docID {
		return Revision{}, false
	}
	idx, ok := t.byRevID[revIDStr]
	if !ok {
		return Revision{}, false
	}
	return t.arena[idx].rev, true
}

// Depth returns the distance from seq to its tree root (0 at root), or
// -1 if seq is unknown.
func (t *Tree) Depth(seq int64) int {
	idx, ok := t.bySequence[seq]
	if !ok {
		return -1
	}
	depth := 0
	for t.arena[idx].rev.ParentSequence != NoParent {
		idx = t.bySequence[t.arena[idx].rev.ParentSequence]
		depth++
	}
	return depth
}

// PathForNode walks parent_sequence pointers from seq up to its root,
// returning revisions leaf-first (seq itself first, root last).
func (t *Tree) PathForNode(seq int64) ([]Revision, error) {
	idx, ok := t.bySequence[seq]
	if !ok {
		return nil, docerr.New(docerr.KindInvalidArgument, "revtree.PathForNode",
			fmt.Errorf("sequence %d not present in tree", seq))
	}
	var path []Revision
	for {
		rev := t.arena[idx].rev
		path = append(path, rev)
		if rev.ParentSequence == NoParent {
			break
		}
		idx = t.bySequence[rev.ParentSequence]
	}
	return path, nil
}

// Path is PathForNode but returns only rev_id strings.
func (t *Tree) Path(seq int64) ([]string, error) {
	revs, err := t.PathForNode(seq)
	if err != nil {
		return nil, err
	}
	out := make([]string, len(revs))
	for i, r := range revs {
		out[i] = r.RevID.String()
	}
	return out, nil
}

// HasConflicts reports whether more than one non-deleted leaf exists.
func (t *Tree) HasConflicts() bool {
	count := 0
	for i := range t.arena {
		if t.isLeaf(i) && !t.arena[i].rev.IsDeleted {
			count++
			if count > 1 {
				return true
			}
		}
	}
	return false
}

// CurrentRevision elects the winning leaf (spec.md §4.1): among
// non-deleted leaves, the highest generation, ties broken by greatest
// suffix; if every leaf is deleted, the same rule is applied over
// deleted leaves instead.
func (t *Tree) CurrentRevision() (Revision, error) {
	if len(t.arena) == 0 {
		return Revision{}, docerr.New(docerr.KindInvalidArgument, "revtree.CurrentRevision",
			fmt.Errorf("tree for document %q is empty", t.docID))
	}

	var bestLive, bestDeleted *Revision
	for i := range t.arena {
		if !t.isLeaf(i) {
			continue
		}
		rev := &t.arena[i].rev
		if rev.IsDeleted {
			if bestDeleted == nil || revid.Greater(rev.RevID, bestDeleted.RevID) {
				bestDeleted = rev
			}
			continue
		}
		if bestLive == nil || revid.Greater(rev.RevID, bestLive.RevID) {
			bestLive = rev
		}
	}
	if bestLive != nil {
		return *bestLive, nil
	}
	if bestDeleted != nil {
		return *bestDeleted, nil
	}
	return Revision{}, docerr.New(docerr.KindInvalidArgument, "revtree.CurrentRevision",
		fmt.Errorf("tree for document %q has no leaves", t.docID))
}

// CurrentRevisions recomputes the is_current flag for every stored
// revision according to tree topology: true iff the revision is a leaf.
// The persistence layer calls this after any mutation and persists the
// recomputed flags, since topology (not a stored bit) is authoritative
// (spec.md §9 open question).
func (t *Tree) CurrentRevisions() map[int64]bool {
	out := make(map[int64]bool, len(t.arena))
	for i := range t.arena {
		out[t.arena[i].rev.Sequence] = t.isLeaf(i)
	}
	return out
}

// DocID returns the document this tree belongs to.
func (t *Tree) DocID() string { return t.docID }

// Len returns the number of revisions currently held in the tree.
func (t *Tree) Len() int { return len(t.arena) }
