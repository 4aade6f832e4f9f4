package pack

import (
	"fmt"

	"github.com/mesh-intelligence/annopack/pkg/types"
)

// ToRecord serializes the pack into an archive record. PackID is left empty
// so the archive assigns one; callers replacing an archived pack set it.
func (p *Pack) ToRecord() (*types.PackRecord, error) {
	payload, err := p.Serialize()
	if err != nil {
		return nil, err
	}
	rec := &types.PackRecord{
		DocID:        p.meta.DocID,
		ProcessState: p.meta.ProcessState,
		EntryCount:   len(p.entries),
		Entries:      make([]types.EntrySummary, 0, len(p.entries)),
		Payload:      payload,
		Checksum:     types.PayloadChecksum(payload),
	}
	for _, e := range p.entries {
		rec.Entries = append(rec.Entries, types.EntrySummary{
			TID:       e.TID(),
			EntryType: e.EntryType(),
			Component: e.Component(),
		})
	}
	return rec, nil
}

// FromRecord reconstructs the pack held by an archive record. A record with
// a checksum must match its payload.
func FromRecord(rec *types.PackRecord, opts ...Option) (*Pack, error) {
	if rec == nil || rec.Payload == "" {
		return nil, fmt.Errorf("empty record: %w", types.ErrInvalidData)
	}
	if rec.Checksum != "" && rec.Checksum != types.PayloadChecksum(rec.Payload) {
		return nil, fmt.Errorf("pack %s: checksum mismatch: %w", rec.PackID, types.ErrInvalidData)
	}
	p, err := Deserialize(rec.Payload, opts...)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", rec.PackID, err)
	}
	return p, nil
}
