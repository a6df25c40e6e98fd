package revtree

import (
	"testing"

	"github.com/quillsync/docstore/internal/docbody"
	"github.com/quillsync/docstore/internal/docerr"
	"github.com/quillsync/docstore/internal/revid"
)

func rev(docID, revIDStr string, seq, parent int64, deleted bool) Revision {
	return Revision{
		DocID:          docID,
		RevID:          revid.MustParse(revIDStr),
		Body:           docbody.New(nil),
		Sequence:       seq,
		InternalID:     1,
		IsDeleted:      deleted,
		ParentSequence: parent,
	}
}

// TestLinearTree matches spec.md §8 scenario 1: a single branch of five
// revisions with no conflicts.
func TestLinearTree(t *testing.T) {
	tree, err := New(nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	revs := []Revision{
		rev("doc1", "1-rev", 1, NoParent, false),
		rev("doc1", "2-rev", 2, 1, false),
		rev("doc1", "3-rev", 3, 2, false),
		rev("doc1", "4-rev", 4, 3, false),
		rev("doc1", "5-rev", 5, 4, false),
	}
	for _, r := range revs {
		if tree, err = tree.Add(r); err != nil {
			t.Fatalf("Add(%s): %v", r.RevID, err)
		}
	}

	leafs := tree.Leafs()
	if len(leafs) != 1 || leafs[0].RevID.String() != "5-rev" {
		t.Fatalf("leafs = %v, want single leaf 5-rev", leafs)
	}
	if tree.HasConflicts() {
		t.Fatalf("HasConflicts() = true, want false")
	}
	path, err := tree.Path(5)
	if err != nil {
		t.Fatalf("Path(5): %v", err)
	}
	want := []string{"5-rev", "4-rev", "3-rev", "2-rev", "1-rev"}
	if len(path) != len(want) {
		t.Fatalf("Path(5) = %v, want %v", path, want)
	}
	for i := range want {
		if path[i] != want[i] {
			t.Fatalf("Path(5)[%d] = %s, want %s", i, path[i], want[i])
		}
	}
	if d := tree.Depth(5); d != 4 {
		t.Fatalf("Depth(5) = %d, want 4", d)
	}
}

// TestBranchingCreatesConflict matches spec.md §8 scenario 2.
func TestBranchingCreatesConflict(t *testing.T) {
	tree, _ := New(nil)
	var err error
	base := []Revision{
		rev("doc1", "1-rev", 1, NoParent, false),
		rev("doc1", "2-rev", 2, 1, false),
		rev("doc1", "3-rev", 3, 2, false),
		rev("doc1", "4-rev", 4, 3, false),
		rev("doc1", "5-rev", 5, 4, false),
		rev("doc1", "3-rev2", 6, 2, false),
		rev("doc1", "4-rev2", 7, 6, false),
	}
	for _, r := range base {
		if tree, err = tree.Add(r); err != nil {
			t.Fatalf("Add(%s): %v", r.RevID, err)
		}
	}

	leafs := tree.Leafs()
	if len(leafs) != 2 {
		t.Fatalf("len(leafs) = %d, want 2", len(leafs))
	}
	if !tree.HasConflicts() {
		t.Fatalf("HasConflicts() = false, want true")
	}
	winner, err := tree.CurrentRevision()
	if err != nil {
		t.Fatalf("CurrentRevision: %v", err)
	}
	if winner.RevID.String() != "5-rev" {
		t.Fatalf("CurrentRevision() = %s, want 5-rev (higher generation)", winner.RevID)
	}
}

// TestTreeRootedAboveFirstGeneration matches spec.md §8 scenario 4: the
// tree's single root is a generation-2 revision whose own ancestors are
// absent, and it branches into two leaves.
func TestTreeRootedAboveFirstGeneration(t *testing.T) {
	tree, _ := New(nil)
	var err error
	revs := []Revision{
		rev("doc1", "2-x", 1, NoParent, false),
		rev("doc1", "3-x", 2, 1, false),
		rev("doc1", "3-y", 3, 1, false),
	}
	for _, r := range revs {
		if tree, err = tree.Add(r); err != nil {
			t.Fatalf("Add(%s): %v", r.RevID, err)
		}
	}
	if len(tree.Roots()) != 1 {
		t.Fatalf("len(Roots()) = %d, want 1", len(tree.Roots()))
	}
	if len(tree.Leafs()) != 2 {
		t.Fatalf("len(Leafs()) = %d, want 2", len(tree.Leafs()))
	}
}

func TestAddMissingParentFails(t *testing.T) {
	tree, _ := New(nil)
	_, err := tree.Add(rev("doc1", "2-rev", 2, 99, false))
	if err == nil {
		t.Fatal("Add with missing parent: want error, got nil")
	}
	k, ok := docerr.KindOf(err)
	if !ok || k != docerr.KindInvalidArgument {
		t.Fatalf("Add with missing parent: kind = %v, want invalid_argument", k)
	}
}

func TestAddSameGenerationFails(t *testing.T) {
	tree, err := New(nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	parent := rev("doc1", "5-bbb", 1, NoParent, false)
	if tree, err = tree.Add(parent); err != nil {
		t.Fatalf("Add(parent): %v", err)
	}
	child := rev("doc1", "5-ccc", 2, 1, false)
	if _, err = tree.Add(child); err == nil {
		t.Fatal("Add with non-increasing generation: want error, got nil")
	} else if k, ok := docerr.KindOf(err); !ok || k != docerr.KindCorruption {
		t.Fatalf("Add with non-increasing generation: kind = %v, want corruption", k)
	}
}

func TestAddDuplicateFails(t *testing.T) {
	tree, err := New(nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	r := rev("doc1", "1-rev", 1, NoParent, false)
	if tree, err = tree.Add(r); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if _, err = tree.Add(r); err == nil {
		t.Fatal("Add duplicate: want error, got nil")
	}
}

func TestAllLeavesDeletedStillElectsWinner(t *testing.T) {
	tree, _ := New(nil)
	var err error
	revs := []Revision{
		rev("doc1", "1-rev", 1, NoParent, false),
		rev("doc1", "2-rev", 2, 1, true),
	}
	for _, r := range revs {
		if tree, err = tree.Add(r); err != nil {
			t.Fatalf("Add(%s): %v", r.RevID, err)
		}
	}
	winner, err := tree.CurrentRevision()
	if err != nil {
		t.Fatalf("CurrentRevision on all-deleted tree: %v", err)
	}
	if winner.RevID.String() != "2-rev" {
		t.Fatalf("CurrentRevision() = %s, want 2-rev", winner.RevID)
	}
	if tree.HasConflicts() {
		t.Fatalf("HasConflicts() = true for single deleted leaf, want false")
	}
}

func TestDepthEqualsPathLengthMinusOne(t *testing.T) {
	tree, _ := New(nil)
	var err error
	revs := []Revision{
		rev("doc1", "1-rev", 1, NoParent, false),
		rev("doc1", "2-rev", 2, 1, false),
		rev("doc1", "3-rev", 3, 2, false),
	}
	for _, r := range revs {
		if tree, err = tree.Add(r); err != nil {
			t.Fatalf("Add(%s): %v", r.RevID, err)
		}
	}
	for _, seq := range []int64{1, 2, 3} {
		path, err := tree.PathForNode(seq)
		if err != nil {
			t.Fatalf("PathForNode(%d): %v", seq, err)
		}
		if got, want := tree.Depth(seq), len(path)-1; got != want {
			t.Fatalf("Depth(%d) = %d, want len(path)-1 = %d", seq, got, want)
		}
	}
}
