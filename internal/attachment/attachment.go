// Package attachment stages attachment payloads to a temporary file in
// the datastore's attachments directory while computing a SHA-1
// content digest, so the later commit step is a fast rename rather than
// a slow network-bound copy (spec.md §4.3).
package attachment

import (
	"compress/gzip"
	"context"
	"crypto/sha1" //nolint:gosec // digest algorithm is mandated by the wire protocol, not used for security
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/quillsync/docstore/internal/docerr"
)

// Encoding is the on-disk encoding of an attachment (spec.md §6).
type Encoding string

const (
	// Plain stores bytes verbatim.
	Plain Encoding = "Plain"
	// Gzip stores bytes gzip-compressed; the digest is over the
	// decoded content.
	Gzip Encoding = "Gzip"
)

func (e Encoding) valid() bool {
	return e == Plain || e == Gzip
}

// chunkSize bounds how much of the input is held in memory at once and
// is also the granularity at which cancellation is checked.
const chunkSize = 64 * 1024

// Source is the input side of a staging operation: an attachment's
// name and its readable byte stream. Prepare always closes Body, on
// every exit path.
type Source struct {
	Name string
	Body io.ReadCloser
}

// Prepared is a staged, digest-computed attachment ready for atomic
// commit into the store. It is consumed exactly once (moved/renamed by
// the caller) or discarded via Cleanup on failure.
type Prepared struct {
	SourceName   string
	TempFilePath string
	SHA1         [20]byte
	Encoding     Encoding
}

// Cleanup removes the temp file. It is idempotent and safe to call
// after a successful commit has already moved/renamed the file away.
func (p Prepared) Cleanup() error {
	err := os.Remove(p.TempFilePath)
	if err != nil && !os.IsNotExist(err) {
		return docerr.New(docerr.KindIO, "attachment.Cleanup", err)
	}
	return nil
}

// Prepare streams src's bytes into a uniquely named temp file under
// attachmentsDir, computing the SHA-1 digest over the decoded content
// as it is written. On any I/O failure or cancellation the temp file is
// removed before the error is returned. Unknown encodings are rejected
// before any file is created.
func Prepare(ctx context.Context, src Source, attachmentsDir string, encoding Encoding) (Prepared, error) {
	const op = "attachment.Prepare"
	defer src.Body.Close()

	if !encoding.valid() {
		return Prepared{}, docerr.New(docerr.KindInvalidArgument, op, fmt.Errorf("unrecognized attachment encoding %q", encoding))
	}

	// A UUID's 128 bits (122 of them random, per RFC 4122 version 4)
	// comfortably satisfies the "global uniqueness" requirement for
	// the temp filename, so concurrent stagings into the same
	// directory never collide.
	tempName := "temp" + uuid.New().String()
	tempPath := filepath.Join(attachmentsDir, tempName)

	f, err := os.OpenFile(tempPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return Prepared{}, docerr.New(docerr.KindIO, op, fmt.Errorf("creating temp file: %w", err))
	}

	digest, writeErr := stageInto(ctx, f, src.Body, encoding)
	closeErr := f.Close()

	if writeErr != nil || closeErr != nil {
		_ = os.Remove(tempPath)
		if writeErr != nil {
			if kind, ok := docerr.KindOf(writeErr); ok && kind == docerr.KindCancelled {
				return Prepared{}, writeErr
			}
			return Prepared{}, docerr.New(docerr.KindIO, op, fmt.Errorf("staging attachment: %w", writeErr))
		}
		return Prepared{}, docerr.New(docerr.KindIO, op, fmt.Errorf("closing temp file: %w", closeErr))
	}

	return Prepared{
		SourceName:   src.Name,
		TempFilePath: tempPath,
		SHA1:         digest,
		Encoding:     encoding,
	}, nil
}

// stageInto copies r into w in bounded chunks, optionally gzip-encoding
// on disk while hashing the decoded content, checking ctx between
// chunks so a cancellation never leaves a half-written file mistaken
// for a complete one (the caller always deletes on any returned error).
func stageInto(ctx context.Context, w io.Writer, r io.Reader, encoding Encoding) ([20]byte, error) {
	h := sha1.New() //nolint:gosec // see import comment
	diskWriter := w
	var gz *gzip.Writer
	if encoding == Gzip {
		gz = gzip.NewWriter(w)
		diskWriter = gz
	}

	buf := make([]byte, chunkSize)
	for {
		if err := ctx.Err(); err != nil {
			return [20]byte{}, docerr.New(docerr.KindCancelled, "attachment.stageInto", err)
		}
		n, rerr := r.Read(buf)
		if n > 0 {
			h.Write(buf[:n])
			if _, werr := diskWriter.Write(buf[:n]); werr != nil {
				return [20]byte{}, werr
			}
		}
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			return [20]byte{}, rerr
		}
	}

	if gz != nil {
		if err := gz.Close(); err != nil {
			return [20]byte{}, err
		}
	}

	var out [20]byte
	copy(out[:], h.Sum(nil))
	return out, nil
}
