package revtree

import (
	"github.com/quillsync/docstore/internal/docbody"
	"github.com/quillsync/docstore/internal/revid"
)

// NoParent is the sentinel parent_sequence value meaning "root of its
// tree" — spec.md calls for "negative one".
const NoParent int64 = -1

// Revision is the immutable record of one revision of one document
// (spec.md §3, "DocumentRevision").
type Revision struct {
	DocID          string
	RevID          revid.ID
	Body           docbody.Body
	Sequence       int64
	InternalID     int64
	IsLocal        bool
	IsDeleted      bool
	IsCurrent      bool
	ParentSequence int64
}

// IsRoot reports whether this revision has no parent in its tree.
func (r Revision) IsRoot() bool { return r.ParentSequence == NoParent }
