package types

import "fmt"

// Settable BaseMeta attribute names.
const (
	MetaDocID        = "doc_id"
	MetaProcessState = "process_state"
	MetaCacheState   = "cache_state"
)

// BaseMeta is the per-pack metadata. ProcessState and CacheState are
// free-form pipeline markers and are not interpreted by the pack.
type BaseMeta struct {
	DocID        string `json:"doc_id,omitempty"`
	ProcessState string `json:"process_state"`
	CacheState   string `json:"cache_state"`
}

// Set assigns the attribute named key.
// Returns ErrAttributeNotFound for unknown names.
func (m *BaseMeta) Set(key, value string) error {
	switch key {
	case MetaDocID:
		m.DocID = value
	case MetaProcessState:
		m.ProcessState = value
	case MetaCacheState:
		m.CacheState = value
	default:
		return fmt.Errorf("meta has no attribute named %q: %w", key, ErrAttributeNotFound)
	}
	return nil
}

// Get returns the attribute named key.
// Returns ErrAttributeNotFound for unknown names.
func (m BaseMeta) Get(key string) (string, error) {
	switch key {
	case MetaDocID:
		return m.DocID, nil
	case MetaProcessState:
		return m.ProcessState, nil
	case MetaCacheState:
		return m.CacheState, nil
	default:
		return "", fmt.Errorf("meta has no attribute named %q: %w", key, ErrAttributeNotFound)
	}
}
