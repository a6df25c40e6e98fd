// Package docbody wraps a document's opaque byte payload, with an
// optional JSON-object view for callers that expect CouchDB-style JSON
// documents. The payload itself is not schema-constrained.
package docbody

import (
	"bytes"
	"encoding/json"

	"github.com/quillsync/docstore/internal/docerr"
)

// emptyBody is the canonical representation of an empty document body.
var emptyBody = []byte("{}")

// Body is an immutable byte sequence. The zero value behaves as an
// empty JSON object, matching the "empty body is {}" invariant.
type Body struct {
	raw []byte
}

// New wraps raw bytes as a Body. Passing nil or an empty slice yields
// the canonical empty body.
func New(raw []byte) Body {
	if len(raw) == 0 {
		return Body{raw: emptyBody}
	}
	// Defensive copy: Body is meant to be immutable once constructed.
	cp := make([]byte, len(raw))
	copy(cp, raw)
	return Body{raw: cp}
}

// FromJSON marshals an arbitrary JSON-object view into a Body.
func FromJSON(obj map[string]any) (Body, error) {
	if len(obj) == 0 {
		return Body{raw: emptyBody}, nil
	}
	raw, err := json.Marshal(obj)
	if err != nil {
		return Body{}, docerr.New(docerr.KindInvalidArgument, "docbody.FromJSON", err)
	}
	return Body{raw: raw}, nil
}

// Bytes returns the raw payload. Callers must not mutate the returned
// slice.
func (b Body) Bytes() []byte {
	if b.raw == nil {
		return emptyBody
	}
	return b.raw
}

// JSON decodes the body as a JSON object. It fails with
// KindInvalidArgument if the payload is not a JSON object.
func (b Body) JSON() (map[string]any, error) {
	var obj map[string]any
	if err := json.Unmarshal(b.Bytes(), &obj); err != nil {
		return nil, docerr.New(docerr.KindInvalidArgument, "docbody.JSON", err)
	}
	return obj, nil
}

// IsEmpty reports whether the body is the canonical empty document.
func (b Body) IsEmpty() bool {
	return bytes.Equal(b.Bytes(), emptyBody)
}

// Equal reports byte-for-byte equality.
func (b Body) Equal(other Body) bool {
	return bytes.Equal(b.Bytes(), other.Bytes())
}
