package sqlite

// schema is applied once per fresh database file. It mirrors the
// revision tree described in spec.md §3/§6: one row per stored
// revision, clustered by internal_id, plus a sibling table for
// committed attachment blobs.
const schema = `
CREATE TABLE IF NOT EXISTS revisions (
    sequence        INTEGER PRIMARY KEY,
    doc_id          TEXT NOT NULL,
    rev_id          TEXT NOT NULL,
    generation      INTEGER NOT NULL,
    internal_id     INTEGER NOT NULL,
    parent_sequence INTEGER NOT NULL DEFAULT -1,
    body            BLOB NOT NULL,
    is_local        INTEGER NOT NULL DEFAULT 0,
    is_deleted      INTEGER NOT NULL DEFAULT 0,
    is_current      INTEGER NOT NULL DEFAULT 0,
    UNIQUE(doc_id, rev_id)
);

CREATE INDEX IF NOT EXISTS revisions_doc_id_idx ON revisions(doc_id);
CREATE INDEX IF NOT EXISTS revisions_doc_current_idx ON revisions(doc_id, is_current);

CREATE TABLE IF NOT EXISTS attachments (
    doc_id      TEXT NOT NULL,
    rev_id      TEXT NOT NULL,
    name        TEXT NOT NULL,
    digest      TEXT NOT NULL,
    encoding    TEXT NOT NULL,
    path        TEXT NOT NULL,
    PRIMARY KEY (doc_id, rev_id, name)
);
`
