package sqlite

import (
	"context"
	"database/sql"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"

	"github.com/quillsync/docstore/internal/attachment"
	"github.com/quillsync/docstore/internal/docerr"
)

// CommitAttachment renames a staged attachment into its final,
// digest-named path under attachmentsDir and records it against
// (docID, revID). The rename happens before the metadata row is
// inserted so a crash between the two leaves an orphaned file rather
// than a dangling reference — never a corrupt read. Nothing in this
// package removes such orphaned files.
func (s *Store) CommitAttachment(ctx context.Context, conn *sql.Conn, docID, revIDStr string, prepared attachment.Prepared, attachmentsDir string) error {
	const op = "sqlite.CommitAttachment"

	digestHex := hex.EncodeToString(prepared.SHA1[:])
	finalPath := filepath.Join(attachmentsDir, digestHex)

	if err := os.Rename(prepared.TempFilePath, finalPath); err != nil {
		return docerr.New(docerr.KindIO, op, fmt.Errorf("committing attachment: %w", err))
	}

	_, err := conn.ExecContext(ctx, `
		INSERT INTO attachments (doc_id, rev_id, name, digest, encoding, path)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(doc_id, rev_id, name) DO UPDATE SET digest = excluded.digest, encoding = excluded.encoding, path = excluded.path
	`, docID, revIDStr, prepared.SourceName, digestHex, string(prepared.Encoding), finalPath)
	if err != nil {
		_ = os.Remove(finalPath)
		return docerr.New(docerr.KindIO, op, fmt.Errorf("recording attachment: %w", err))
	}
	return nil
}
