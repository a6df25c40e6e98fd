// Package docerr defines the error kinds shared across the datastore core.
//
// Most failures of the datastore core are reported as an *Error so that
// callers can branch on Kind with errors.As instead of matching on
// string text. Some paths (config loading, row iteration errors, the
// manager's watcher shutdown) return plain errors.
package docerr

import (
	"errors"
	"fmt"
)

// Kind categorizes a failure the way the replication layer needs to react
// to it: retry, surface to the user, or treat as a local bug.
type Kind int

const (
	// KindInvalidArgument covers name/regex violations, out-of-order
	// revision insertion, and unknown-sequence lookups where the
	// contract requires non-null.
	KindInvalidArgument Kind = iota
	// KindNotFound covers deletion of a non-existent datastore and
	// lookups whose contract permits returning "not found".
	KindNotFound
	// KindIO covers filesystem failures during staging or commit.
	KindIO
	// KindCorruption covers digest mismatches and parent pointers into
	// a different document.
	KindCorruption
	// KindConflict covers inserting a rev_id that already exists with
	// different content.
	KindConflict
	// KindCancelled covers cooperative cancellation.
	KindCancelled
)

func (k Kind) String() string {
	switch k {
	case KindInvalidArgument:
		return "invalid_argument"
	case KindNotFound:
		return "not_found"
	case KindIO:
		return "io"
	case KindCorruption:
		return "corruption"
	case KindConflict:
		return "conflict"
	case KindCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Error is the single wrapped error type returned by this module's public
// operations. It composes with fmt.Errorf("%w", ...) and errors.Is/As.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is an *Error with the same Kind, letting
// callers write errors.Is(err, docerr.New(docerr.KindNotFound, "", nil)).
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return t.Kind == e.Kind
	}
	return false
}

// New constructs an *Error. err may be nil for a standalone sentinel.
func New(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// KindOf returns the Kind of the first *Error in err's chain, and false
// if the chain holds no *Error.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return 0, false
}
