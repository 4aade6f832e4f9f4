// JSON record structures for the archive's JSONL files.
package sqlite

// packJSON represents a pack in packs.jsonl.
type packJSON struct {
	PackID       string `json:"pack_id"`
	DocID        string `json:"doc_id"`
	ProcessState string `json:"process_state"`
	EntryCount   int    `json:"entry_count"`
	Payload      string `json:"payload"`
	Checksum     string `json:"checksum,omitempty"`
	CreatedAt    string `json:"created_at"`
	UpdatedAt    string `json:"updated_at"`
}

// packEntryJSON represents one archived entry row in pack_entries.jsonl.
type packEntryJSON struct {
	PackID    string `json:"pack_id"`
	TID       string `json:"tid"`
	EntryType string `json:"entry_type"`
	Component string `json:"component"`
}
