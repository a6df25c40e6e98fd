// Package revsdiff implements the revs-diff negotiation used during
// replication: given a candidate set of revisions per document, return
// exactly the (doc_id, rev_id) pairs the local store does not already
// have (spec.md §4.2).
package revsdiff

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// KnownLookup resolves the set of locally known rev_ids for a document.
// Implementations are expected to hit the persistence layer; the engine
// treats this as the only collaborator it needs.
type KnownLookup interface {
	KnownRevisionIDs(ctx context.Context, docID string) (map[string]struct{}, error)
}

// CouchRevsDiffResponse mirrors CouchDB's `_revs_diff` response shape:
// a top-level object keyed by document id, each value an object naming
// the offered rev_ids the target doesn't have (spec.md §6). ToCouch
// converts a Diff result into this shape for the wire.
type CouchRevsDiffResponse map[string]CouchRevsDiffEntry

// CouchRevsDiffEntry is one document's entry in a CouchRevsDiffResponse.
type CouchRevsDiffEntry struct {
	Missing []string `json:"missing"`
}

// ToCouch converts the map[doc_id][]rev_id shape Diff returns into the
// CouchDB-compatible wire shape.
func ToCouch(missing map[string][]string) CouchRevsDiffResponse {
	out := make(CouchRevsDiffResponse, len(missing))
	for docID, revIDs := range missing {
		out[docID] = CouchRevsDiffEntry{Missing: revIDs}
	}
	return out
}

// maxConcurrency bounds how many documents are diffed against the
// store in parallel. The store is a local SQLite file: concurrent reads
// are cheap, but an unbounded fan-out would just contend its connection
// pool for no benefit.
const maxConcurrency = 8

// Diff computes, for each document id in offered, the subset of
// candidate rev_ids not already known locally. A document with no
// missing revisions is omitted from the result, matching the contract
// that "a document absent from the output means all offered revisions
// are locally known". Duplicate rev_ids in the input collapse to a
// single output entry. Offering an empty map yields an empty result.
func Diff(ctx context.Context, lookup KnownLookup, offered map[string][]string) (map[string][]string, error) {
	if len(offered) == 0 {
		return map[string][]string{}, nil
	}

	type docResult struct {
		docID   string
		missing []string
	}

	results := make([]docResult, len(offered))
	docIDs := make([]string, 0, len(offered))
	for docID := range offered {
		docIDs = append(docIDs, docID)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrency)

	for i, docID := range docIDs {
		i, docID := i, docID
		candidates := offered[docID]
		g.Go(func() error {
			known, err := lookup.KnownRevisionIDs(gctx, docID)
			if err != nil {
				return err
			}
			seen := make(map[string]struct{}, len(candidates))
			var missing []string
			for _, revID := range candidates {
				if _, dup := seen[revID]; dup {
					continue
				}
				seen[revID] = struct{}{}
				if _, ok := known[revID]; !ok {
					missing = append(missing, revID)
				}
			}
			results[i] = docResult{docID: docID, missing: missing}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make(map[string][]string, len(offered))
	for _, r := range results {
		if len(r.missing) > 0 {
			out[r.docID] = r.missing
		}
	}
	return out, nil
}
