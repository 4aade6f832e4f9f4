package pack

import (
	"encoding/json"
	"fmt"

	"github.com/mesh-intelligence/annopack/pkg/types"
)

// formatVersion is written into every serialized pack. Deserialize rejects
// other versions.
const formatVersion = 1

// packJSON is the serialized form of a pack. Index caches are not written;
// they are rebuilt on load.
type packJSON struct {
	Version       int                      `json:"version"`
	Scope         string                   `json:"scope"`
	Meta          types.BaseMeta           `json:"meta"`
	InternalMetas map[string]*InternalMeta `json:"internal_metas"`
	Entries       []entryJSON              `json:"entries"`
}

// entryJSON wraps one entry with the registered type name needed to decode it.
type entryJSON struct {
	Type  string          `json:"type"`
	Entry json.RawMessage `json:"entry"`
}

func encodeEntry(e types.Entry) (entryJSON, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return entryJSON{}, fmt.Errorf("encoding entry %s: %w", e.TID(), err)
	}
	return entryJSON{Type: e.EntryType(), Entry: data}, nil
}

func decodeEntry(rec entryJSON) (types.Entry, error) {
	e, err := types.NewEntryOfType(rec.Type)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(rec.Entry, e); err != nil {
		return nil, fmt.Errorf("decoding %s entry: %w", rec.Type, err)
	}
	if e.TID() == "" {
		return nil, fmt.Errorf("%s entry without tid: %w", rec.Type, types.ErrInvalidPayload)
	}
	return e, nil
}

// Serialize encodes the complete pack state: scope, metadata, per-type
// bookkeeping and every entry in insertion order. Entries must be JSON
// encodable and of a registered type.
func (p *Pack) Serialize() (string, error) {
	doc := packJSON{
		Version:       formatVersion,
		Scope:         p.scope,
		Meta:          p.meta,
		InternalMetas: p.metas,
		Entries:       make([]entryJSON, 0, len(p.entries)),
	}
	for _, e := range p.entries {
		rec, err := encodeEntry(e)
		if err != nil {
			return "", err
		}
		doc.Entries = append(doc.Entries, rec)
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("encoding pack: %w", err)
	}
	return string(data), nil
}

// Deserialize reconstructs a pack produced by Serialize. Entries keep their
// tids and components; id counters and provenance records are restored.
// The link and group indexes start unbuilt.
//
// Returns an error wrapping ErrInvalidPayload for malformed input, or the
// entry error when an entry no longer validates.
func Deserialize(data string, opts ...Option) (*Pack, error) {
	var doc packJSON
	if err := json.Unmarshal([]byte(data), &doc); err != nil {
		return nil, fmt.Errorf("%w: %w", types.ErrInvalidPayload, err)
	}
	if doc.Version != formatVersion {
		return nil, fmt.Errorf("%w: format version %d", types.ErrInvalidPayload, doc.Version)
	}
	if doc.Scope == "" {
		return nil, fmt.Errorf("%w: missing scope", types.ErrInvalidPayload)
	}

	entries := make([]types.Entry, 0, len(doc.Entries))
	for _, rec := range doc.Entries {
		e, err := decodeEntry(rec)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", types.ErrInvalidPayload, err)
		}
		entries = append(entries, e)
	}
	return rebuild(doc.Scope, doc.Meta, doc.InternalMetas, entries, opts)
}

// rebuild creates a pack holding entries, replayed in order, and the given
// bookkeeping.
func rebuild(scope string, meta types.BaseMeta, metas map[string]*InternalMeta, entries []types.Entry, opts []Option) (*Pack, error) {
	p := New(append(opts, WithScope(scope))...)
	p.meta = meta
	for _, e := range entries {
		if _, err := p.addEntry(e, "", false); err != nil {
			return nil, err
		}
	}
	for entryType, m := range metas {
		if m == nil {
			continue
		}
		m.normalize()
		p.metas[entryType] = m
	}
	return p, nil
}

// View returns an independent copy of the pack. Every entry is re-created
// from its encoded form and the bookkeeping maps are copied, so mutating
// either pack never affects the other. The copy's indexes are built fresh;
// its link and group indexes start unbuilt. The current session is not
// carried over.
func (p *Pack) View() (*Pack, error) {
	entries := make([]types.Entry, 0, len(p.entries))
	for _, e := range p.entries {
		rec, err := encodeEntry(e)
		if err != nil {
			return nil, err
		}
		clone, err := decodeEntry(rec)
		if err != nil {
			return nil, err
		}
		entries = append(entries, clone)
	}
	metas := make(map[string]*InternalMeta, len(p.metas))
	for entryType, m := range p.metas {
		metas[entryType] = m.clone()
	}
	return rebuild(p.scope, p.meta, metas, entries, []Option{WithLogger(p.logger)})
}
