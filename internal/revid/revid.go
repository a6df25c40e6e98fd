// Package revid parses and orders CouchDB-style revision identifiers:
// strings of the form "<generation>-<suffix>" where generation is a
// positive decimal integer and suffix is an opaque byte string (a hex
// digest in practice, but treated as opaque here).
package revid

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/quillsync/docstore/internal/docerr"
)

// ID is a parsed revision identifier. The zero value is not valid; use
// Parse to construct one.
type ID struct {
	Generation int
	Suffix     string
}

// Parse validates and splits a wire-format revision id. Generation must
// be a positive decimal integer; neither half may contain whitespace or
// an embedded separator beyond the single '-' splitting them.
func Parse(s string) (ID, error) {
	idx := strings.IndexByte(s, '-')
	if idx <= 0 || idx == len(s)-1 {
		return ID{}, docerr.New(docerr.KindInvalidArgument, "revid.Parse",
			fmt.Errorf("malformed revision id %q: want \"<generation>-<suffix>\"", s))
	}
	genPart, suffix := s[:idx], s[idx+1:]
	if strings.IndexFunc(s, unicode.IsSpace) >= 0 {
		return ID{}, docerr.New(docerr.KindInvalidArgument, "revid.Parse",
			fmt.Errorf("revision id %q contains whitespace", s))
	}
	if strings.ContainsRune(suffix, '-') {
		return ID{}, docerr.New(docerr.KindInvalidArgument, "revid.Parse",
			fmt.Errorf("revision id %q has a separator inside its suffix", s))
	}
	gen, err := strconv.Atoi(genPart)
	if err != nil || gen < 1 {
		return ID{}, docerr.New(docerr.KindInvalidArgument, "revid.Parse",
			fmt.Errorf("revision id %q has non-positive or non-numeric generation", s))
	}
	if suffix == "" {
		return ID{}, docerr.New(docerr.KindInvalidArgument, "revid.Parse",
			fmt.Errorf("revision id %q has empty suffix", s))
	}
	return ID{Generation: gen, Suffix: suffix}, nil
}

// MustParse is Parse but panics on error; reserved for constants and tests.
func MustParse(s string) ID {
	id, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return id
}

// String renders the canonical wire format.
func (id ID) String() string {
	return strconv.Itoa(id.Generation) + "-" + id.Suffix
}

// Compare orders two ids: numerically by generation, then
// lexicographically by suffix. It returns a negative number, zero, or a
// positive number as id < other, id == other, or id > other.
func Compare(a, b ID) int {
	if a.Generation != b.Generation {
		if a.Generation < b.Generation {
			return -1
		}
		return 1
	}
	return strings.Compare(a.Suffix, b.Suffix)
}

// Less reports whether a sorts strictly before b under Compare.
func Less(a, b ID) bool { return Compare(a, b) < 0 }

// Greater reports whether a sorts strictly after b under Compare.
func Greater(a, b ID) bool { return Compare(a, b) > 0 }
