package datastore

import (
	"fmt"
	"regexp"

	"github.com/quillsync/docstore/internal/docerr"
)

// namePattern matches spec.md §6: datastore names must start with a
// letter and contain only letters, digits, and underscores thereafter.
// Grounded on the teacher's own regexp-validated-name idiom
// (internal/syncbranch's branchNamePattern).
var namePattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]*$`)

// ValidateName rejects any datastore name that doesn't match namePattern.
func ValidateName(name string) error {
	if !namePattern.MatchString(name) {
		return docerr.New(docerr.KindInvalidArgument, "datastore.ValidateName",
			fmt.Errorf("invalid datastore name %q: must match %s", name, namePattern.String()))
	}
	return nil
}
