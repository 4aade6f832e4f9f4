package pack

import (
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/mesh-intelligence/annopack/pkg/types"
)

// Pack owns a set of entries for one document and the indexes over them.
type Pack struct {
	scope  string
	meta   types.BaseMeta
	metas  map[string]*InternalMeta
	index  *Index
	logger *slog.Logger

	entries   []types.Entry
	positions map[string]int
	links     []types.LinkEntry
	groups    []types.GroupEntry

	session *Processing
}

// Option configures a new Pack.
type Option func(*Pack)

// WithDocID sets the document identifier. When no scope is given the doc ID
// also becomes the tid prefix.
func WithDocID(docID string) Option {
	return func(p *Pack) { p.meta.DocID = docID }
}

// WithScope sets the tid prefix used by MintID.
func WithScope(scope string) Option {
	return func(p *Pack) { p.scope = scope }
}

// WithLogger sets the logger used for index maintenance messages.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pack) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// New creates an empty pack.
func New(opts ...Option) *Pack {
	p := &Pack{
		metas:     make(map[string]*InternalMeta),
		positions: make(map[string]int),
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.scope == "" {
		p.scope = p.meta.DocID
	}
	if p.scope == "" {
		p.scope = newScope()
	}
	p.index = newIndex(p, p.logger)
	return p
}

// newScope generates a UUID v7 tid prefix.
func newScope() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.New().String()
	}
	return id.String()
}

// Scope returns the tid prefix of the pack.
func (p *Pack) Scope() string { return p.scope }

// Meta returns a copy of the pack metadata.
func (p *Pack) Meta() types.BaseMeta { return p.meta }

// SetMeta assigns one metadata attribute by name.
// Returns ErrAttributeNotFound for unknown names.
func (p *Pack) SetMeta(key, value string) error {
	return p.meta.Set(key, value)
}

// SetMetas assigns several metadata attributes. Either all are applied or,
// on an unknown name, none are.
func (p *Pack) SetMetas(values map[string]string) error {
	next := p.meta
	for k, v := range values {
		if err := next.Set(k, v); err != nil {
			return err
		}
	}
	p.meta = next
	return nil
}

// entry returns the pack's own entry under tid. Existence is decided by the
// entry list, not by the index.
func (p *Pack) entry(tid string) (types.Entry, bool) {
	pos, ok := p.positions[tid]
	if !ok {
		return nil, false
	}
	return p.entries[pos], true
}

func (p *Pack) has(tid string) bool {
	_, ok := p.positions[tid]
	return ok
}

// Index returns the pack's lookup indexes.
func (p *Pack) Index() *Index { return p.index }

// Len returns the number of entries.
func (p *Pack) Len() int { return len(p.entries) }

// Entries returns the entries in the order they were added.
func (p *Pack) Entries() []types.Entry {
	out := make([]types.Entry, len(p.entries))
	copy(out, p.entries)
	return out
}

// Links returns the links in the order they were added.
func (p *Pack) Links() []types.LinkEntry {
	out := make([]types.LinkEntry, len(p.links))
	copy(out, p.links)
	return out
}

// Groups returns the groups in the order they were added.
func (p *Pack) Groups() []types.GroupEntry {
	out := make([]types.GroupEntry, len(p.groups))
	copy(out, p.groups)
	return out
}

// AddEntry adds entry to the pack and returns it. Logical duplicates are
// allowed. A missing tid is minted and a missing component is taken from the
// current processing session.
//
// Returns ErrInvalidEntry when the entry fails its own validation, when a
// link endpoint or group member is not in the pack, or when another object
// is already indexed under the entry's tid. Adding the same object twice
// returns it without change. On error the pack is unchanged.
func (p *Pack) AddEntry(entry types.Entry) (types.Entry, error) {
	return p.addEntry(entry, p.CurrentComponent(), true)
}

// AddOrGetEntry returns an existing entry of the same type that is logically
// equal to entry, leaving the pack untouched. Otherwise it adds entry as
// AddEntry does. The earliest added match wins.
func (p *Pack) AddOrGetEntry(entry types.Entry) (types.Entry, error) {
	return p.addOrGetEntry(entry, p.CurrentComponent())
}

func (p *Pack) addOrGetEntry(entry types.Entry, component string) (types.Entry, error) {
	if entry == nil {
		return nil, fmt.Errorf("nil entry: %w", types.ErrInvalidEntry)
	}
	if existing := p.findEqual(entry); existing != nil {
		return existing, nil
	}
	return p.addEntry(entry, component, true)
}

func (p *Pack) findEqual(entry types.Entry) types.Entry {
	var (
		found types.Entry
		best  = -1
	)
	for tid := range p.index.types[entry.EntryType()] {
		candidate, ok := p.entry(tid)
		if !ok || candidate.EntryType() != entry.EntryType() {
			continue
		}
		if candidate == entry {
			return candidate
		}
		if !entry.Eq(candidate) {
			continue
		}
		if pos := p.positions[tid]; best < 0 || pos < best {
			found, best = candidate, pos
		}
	}
	return found
}

// addEntry validates entry against the pack, then commits it. provenance
// controls whether the creation is recorded in the component records; it is
// off when replaying a serialized pack whose records are restored verbatim.
func (p *Pack) addEntry(entry types.Entry, component string, provenance bool) (types.Entry, error) {
	if entry == nil {
		return nil, fmt.Errorf("nil entry: %w", types.ErrInvalidEntry)
	}
	h := entry.Header()
	if h.ID != "" {
		if existing, ok := p.entry(h.ID); ok {
			if existing == entry {
				return entry, nil
			}
			return nil, fmt.Errorf("tid %s already held by another entry: %w", h.ID, types.ErrInvalidEntry)
		}
	}

	if v, ok := entry.(types.Validator); ok {
		if err := v.Validate(); err != nil {
			return nil, err
		}
	}
	link, isLink := entry.(types.LinkEntry)
	if isLink {
		for _, end := range []string{link.Parent(), link.Child()} {
			if !p.has(end) {
				return nil, fmt.Errorf("link endpoint %s not in pack: %w", end, types.ErrInvalidEntry)
			}
		}
	}
	group, isGroup := entry.(types.GroupEntry)
	if isGroup {
		for _, m := range group.Members() {
			if !p.has(m) {
				return nil, fmt.Errorf("group member %s not in pack: %w", m, types.ErrInvalidEntry)
			}
		}
	}

	entryType := entry.EntryType()
	tid := h.ID
	var minted int64
	if tid == "" {
		var err error
		if tid, minted, err = p.nextID(entryType); err != nil {
			return nil, err
		}
	}

	// Nothing below fails.
	meta := p.internalMeta(entryType)
	if minted > 0 {
		meta.IDCounter = minted
	}
	h.ID = tid
	if h.Owner == "" {
		h.Owner = component
	}
	if n, ok := entry.(types.Normalizer); ok {
		n.Normalize()
	}

	p.positions[tid] = len(p.entries)
	p.entries = append(p.entries, entry)
	p.index.UpdateBasicIndex(entry)
	if isLink {
		p.links = append(p.links, link)
		if p.index.links.built {
			p.index.links.merge(link)
		}
	}
	if isGroup {
		p.groups = append(p.groups, group)
		if p.index.groups.built {
			p.index.groups.merge(group)
		}
	}
	if provenance && h.Owner != "" {
		meta.record(h.Owner).Created.Add(tid)
	}

	p.logger.Debug("entry added", "tid", tid, "type", entryType, "component", h.Owner)
	return entry, nil
}
