// Package sqlite implements the SQLite archive for serialized packs.
// SQLite is the query engine; the JSONL files in DataDir are the source of
// truth and are loaded into a fresh database on every Attach.
package sqlite

// Schema DDL for all tables.
const (
	createPacks = `CREATE TABLE packs (
    pack_id TEXT PRIMARY KEY,
    doc_id TEXT NOT NULL,
    process_state TEXT NOT NULL,
    entry_count INTEGER NOT NULL,
    payload TEXT NOT NULL,
    checksum TEXT,
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL
);`

	createPackEntries = `CREATE TABLE pack_entries (
    pack_id TEXT NOT NULL,
    tid TEXT NOT NULL,
    entry_type TEXT NOT NULL,
    component TEXT NOT NULL,
    PRIMARY KEY (pack_id, tid),
    FOREIGN KEY (pack_id) REFERENCES packs(pack_id) ON DELETE CASCADE
);`
)

// Index DDL for common queries.
const (
	idxPacksDocID           = `CREATE INDEX idx_packs_doc_id ON packs(doc_id);`
	idxPacksProcessState    = `CREATE INDEX idx_packs_process_state ON packs(process_state);`
	idxPacksChecksum        = `CREATE INDEX idx_packs_checksum ON packs(checksum);`
	idxPackEntriesType      = `CREATE INDEX idx_pack_entries_type ON pack_entries(entry_type);`
	idxPackEntriesComponent = `CREATE INDEX idx_pack_entries_component ON pack_entries(component);`
)

// schemaDDL lists all CREATE TABLE statements in dependency order.
var schemaDDL = []string{
	createPacks,
	createPackEntries,
}

// indexDDL lists all CREATE INDEX statements.
var indexDDL = []string{
	idxPacksDocID,
	idxPacksProcessState,
	idxPacksChecksum,
	idxPackEntriesType,
	idxPackEntriesComponent,
}
