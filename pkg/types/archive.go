package types

import (
	"encoding/hex"
	"time"

	"github.com/zeebo/blake3"
)

// Archive stores serialized packs. Callers attach to a backend, put and
// fetch pack records, and detach when done.
type Archive interface {
	// Attach connects the Archive to the backend described by config.
	// Creates the DataDir if it does not exist. Returns ErrAlreadyAttached
	// if called while already attached.
	Attach(config Config) error

	// Detach releases backend resources. Idempotent: multiple calls succeed.
	// After Detach, operations return ErrArchiveDetached.
	Detach() error

	// Put creates or replaces a pack record. When rec.PackID is empty a new
	// UUID v7 is generated. The payload checksum is computed on write; a
	// preset Checksum that does not match fails with ErrInvalidData.
	// Returns the ID used.
	Put(rec *PackRecord) (string, error)

	// Get retrieves the record with the given pack ID.
	// Returns ErrNotFound if no record exists.
	Get(id string) (*PackRecord, error)

	// GetByDocID retrieves the most recently updated record for a document.
	// Returns ErrNotFound if no record exists.
	GetByDocID(docID string) (*PackRecord, error)

	// Delete removes the record with the given pack ID.
	// Returns ErrNotFound if no record exists.
	Delete(id string) error

	// Fetch returns records matching the filter, most recently updated
	// first. An empty filter returns every record.
	Fetch(filter Filter) ([]*PackRecord, error)

	// EntryStats returns entry counts of one pack keyed by entry type and
	// by component. Returns ErrNotFound if no record exists.
	EntryStats(id string) (*EntryStats, error)
}

// Filter selects pack records in Archive.Fetch. Supported keys: doc_id,
// process_state, entry_type, component, checksum (string) and limit,
// offset (int).
type Filter map[string]any

// PackRecord is one archived pack: its serialized form plus the columns the
// archive indexes.
type PackRecord struct {
	PackID       string         `json:"pack_id"`
	DocID        string         `json:"doc_id"`
	ProcessState string         `json:"process_state"`
	EntryCount   int            `json:"entry_count"`
	Entries      []EntrySummary `json:"-"`
	Payload      string         `json:"payload"`
	Checksum     string         `json:"checksum,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

// EntrySummary is the archived index row of one entry.
type EntrySummary struct {
	TID       string `json:"tid"`
	EntryType string `json:"entry_type"`
	Component string `json:"component"`
}

// EntryStats counts entries of one pack.
type EntryStats struct {
	ByType      map[string]int `json:"by_type"`
	ByComponent map[string]int `json:"by_component"`
}

// PayloadChecksum returns the hex BLAKE3-256 digest of a serialized pack.
func PayloadChecksum(payload string) string {
	sum := blake3.Sum256([]byte(payload))
	return hex.EncodeToString(sum[:])
}
