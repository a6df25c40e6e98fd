package datastore

import (
	"github.com/quillsync/docstore/internal/docbody"
)

// NewRevision is the caller-supplied half of a force_insert: the
// revision to add plus enough of its own content to write a row. The
// ancestor chain is supplied separately as ParentPath.
type NewRevision struct {
	DocID     string
	RevID     string
	Body      docbody.Body
	IsDeleted bool
}
