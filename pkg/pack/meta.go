package pack

import (
	"fmt"
	"math"
	"sort"

	"github.com/mesh-intelligence/annopack/pkg/types"
)

// FieldSet is a set of field names. It shares TIDSet's representation and
// JSON encoding.
type FieldSet = types.TIDSet

// ComponentRecord is the provenance kept for one component within one entry
// type: the entries it created and, per entry, the fields it modified.
type ComponentRecord struct {
	Created  types.TIDSet        `json:"created"`
	Modified map[string]FieldSet `json:"modified"`
}

func newComponentRecord() *ComponentRecord {
	return &ComponentRecord{
		Created:  types.NewTIDSet(),
		Modified: make(map[string]FieldSet),
	}
}

func (r *ComponentRecord) clone() *ComponentRecord {
	out := &ComponentRecord{
		Created:  r.Created.Clone(),
		Modified: make(map[string]FieldSet, len(r.Modified)),
	}
	for tid, fields := range r.Modified {
		out.Modified[tid] = fields.Clone()
	}
	return out
}

// InternalMeta is the bookkeeping kept for one entry type in one pack.
type InternalMeta struct {
	// IDCounter is the last number minted for this type. Minted tids are
	// strictly increasing and never reused.
	IDCounter int64 `json:"id_counter"`

	// FieldsCreated maps a component name to the fields it has populated
	// on entries of this type.
	FieldsCreated map[string]FieldSet `json:"fields_created"`

	// ComponentRecords maps a component name to what it created and
	// modified.
	ComponentRecords map[string]*ComponentRecord `json:"component_records"`
}

func newInternalMeta() *InternalMeta {
	return &InternalMeta{
		FieldsCreated:    make(map[string]FieldSet),
		ComponentRecords: make(map[string]*ComponentRecord),
	}
}

// normalize replaces nil maps left by decoding.
func (m *InternalMeta) normalize() {
	if m.FieldsCreated == nil {
		m.FieldsCreated = make(map[string]FieldSet)
	}
	if m.ComponentRecords == nil {
		m.ComponentRecords = make(map[string]*ComponentRecord)
	}
	for comp, fields := range m.FieldsCreated {
		if fields == nil {
			m.FieldsCreated[comp] = types.NewTIDSet()
		}
	}
	for comp, rec := range m.ComponentRecords {
		if rec == nil {
			m.ComponentRecords[comp] = newComponentRecord()
			continue
		}
		if rec.Created == nil {
			rec.Created = types.NewTIDSet()
		}
		if rec.Modified == nil {
			rec.Modified = make(map[string]FieldSet)
		}
	}
}

func (m *InternalMeta) clone() *InternalMeta {
	out := &InternalMeta{
		IDCounter:        m.IDCounter,
		FieldsCreated:    make(map[string]FieldSet, len(m.FieldsCreated)),
		ComponentRecords: make(map[string]*ComponentRecord, len(m.ComponentRecords)),
	}
	for comp, fields := range m.FieldsCreated {
		out.FieldsCreated[comp] = fields.Clone()
	}
	for comp, rec := range m.ComponentRecords {
		out.ComponentRecords[comp] = rec.clone()
	}
	return out
}

func (m *InternalMeta) record(component string) *ComponentRecord {
	rec, ok := m.ComponentRecords[component]
	if !ok {
		rec = newComponentRecord()
		m.ComponentRecords[component] = rec
	}
	return rec
}

// recordFields adds fields to the component's field set. With broadcast the
// component is ignored and every component already recorded receives the
// fields.
func (m *InternalMeta) recordFields(component string, fields []string, broadcast bool) {
	if broadcast {
		for _, set := range m.FieldsCreated {
			for _, f := range fields {
				set.Add(f)
			}
		}
		return
	}
	set, ok := m.FieldsCreated[component]
	if !ok {
		set = types.NewTIDSet()
		m.FieldsCreated[component] = set
	}
	for _, f := range fields {
		set.Add(f)
	}
}

// RecordOption adjusts RecordFields.
type RecordOption func(*recordOptions)

type recordOptions struct {
	broadcast bool
}

// BroadcastToAllComponents applies the recorded fields to every component
// already known for the entry type instead of the named component.
func BroadcastToAllComponents() RecordOption {
	return func(o *recordOptions) { o.broadcast = true }
}

// internalMeta returns the bookkeeping for entryType, creating it on first use.
func (p *Pack) internalMeta(entryType string) *InternalMeta {
	m, ok := p.metas[entryType]
	if !ok {
		m = newInternalMeta()
		p.metas[entryType] = m
	}
	return m
}

// InternalMeta returns a copy of the bookkeeping for entryType, or nil if
// the pack has never seen that type.
func (p *Pack) InternalMeta(entryType string) *InternalMeta {
	m, ok := p.metas[entryType]
	if !ok {
		return nil
	}
	return m.clone()
}

// nextID computes the tid the next mint for entryType would return without
// consuming it. Numbers whose tid is already taken by a caller-assigned
// entry are skipped.
func (p *Pack) nextID(entryType string) (string, int64, error) {
	n := int64(0)
	if m, ok := p.metas[entryType]; ok {
		n = m.IDCounter
	}
	for {
		if n == math.MaxInt64 {
			return "", 0, fmt.Errorf("type %s: %w", entryType, types.ErrExhaustedIDSpace)
		}
		n++
		tid := p.formatID(entryType, n)
		if !p.has(tid) {
			return tid, n, nil
		}
	}
}

func (p *Pack) formatID(entryType string, n int64) string {
	return fmt.Sprintf("%s/%s.%d", p.scope, entryType, n)
}

// MintID consumes and returns the next tid for entryType:
// the pack scope, the type name and the next counter value.
// Returns ErrExhaustedIDSpace if the counter would overflow.
func (p *Pack) MintID(entryType string) (string, error) {
	tid, n, err := p.nextID(entryType)
	if err != nil {
		return "", err
	}
	p.internalMeta(entryType).IDCounter = n
	return tid, nil
}

// RecordFields records that component populated fields on entries of
// entryType. With BroadcastToAllComponents the fields are recorded for every
// component already known for that type.
func (p *Pack) RecordFields(entryType, component string, fields []string, opts ...RecordOption) {
	var o recordOptions
	for _, opt := range opts {
		opt(&o)
	}
	p.internalMeta(entryType).recordFields(component, fields, o.broadcast)
}

// FieldsCreated returns, per component, the sorted field names recorded for
// entryType.
func (p *Pack) FieldsCreated(entryType string) map[string][]string {
	out := make(map[string][]string)
	m, ok := p.metas[entryType]
	if !ok {
		return out
	}
	for comp, fields := range m.FieldsCreated {
		out[comp] = fields.Sorted()
	}
	return out
}

// RecordFieldUpdate records that the current component modified field on
// the entry tid. Returns ErrInvalidEntry if tid is not in the pack.
func (p *Pack) RecordFieldUpdate(tid, field string) error {
	return p.recordFieldUpdate(tid, field, p.CurrentComponent())
}

func (p *Pack) recordFieldUpdate(tid, field, component string) error {
	entry, ok := p.entry(tid)
	if !ok {
		return fmt.Errorf("record field %q on %s: %w", field, tid, types.ErrInvalidEntry)
	}
	rec := p.internalMeta(entry.EntryType()).record(component)
	fields, ok := rec.Modified[tid]
	if !ok {
		fields = types.NewTIDSet()
		rec.Modified[tid] = fields
	}
	fields.Add(field)
	return nil
}

// Provenance answers who produced an entry and its field values.
type Provenance struct {
	TID       string `json:"tid"`
	EntryType string `json:"entry_type"`
	CreatedBy string `json:"created_by"`

	// ModifiedBy maps a field name to the sorted components that modified it.
	ModifiedBy map[string][]string `json:"modified_by"`
}

// Provenance returns the creation and modification records for tid.
// Returns ErrInvalidEntry if tid is not in the pack.
func (p *Pack) Provenance(tid string) (*Provenance, error) {
	entry, ok := p.entry(tid)
	if !ok {
		return nil, fmt.Errorf("provenance of %s: %w", tid, types.ErrInvalidEntry)
	}
	prov := &Provenance{
		TID:        tid,
		EntryType:  entry.EntryType(),
		ModifiedBy: make(map[string][]string),
	}
	m, ok := p.metas[entry.EntryType()]
	if !ok {
		return prov, nil
	}
	for comp, rec := range m.ComponentRecords {
		if rec.Created.Has(tid) {
			prov.CreatedBy = comp
		}
		for field := range rec.Modified[tid] {
			prov.ModifiedBy[field] = append(prov.ModifiedBy[field], comp)
		}
	}
	for field := range prov.ModifiedBy {
		sort.Strings(prov.ModifiedBy[field])
	}
	return prov, nil
}
