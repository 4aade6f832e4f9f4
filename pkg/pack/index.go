package pack

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/mesh-intelligence/annopack/pkg/types"
)

// linkIndex maps link endpoints to link tids. It is empty until built.
type linkIndex struct {
	built    bool
	parents  map[string]types.TIDSet
	children map[string]types.TIDSet
}

func (li *linkIndex) merge(l types.LinkEntry) {
	addTo(li.parents, l.Parent(), l.TID())
	addTo(li.children, l.Child(), l.TID())
}

// groupIndex maps member tids to group tids. It is empty until built.
type groupIndex struct {
	built   bool
	members map[string]types.TIDSet
}

func (gi *groupIndex) merge(g types.GroupEntry) {
	for _, m := range g.Members() {
		addTo(gi.members, m, g.TID())
	}
}

func addTo(m map[string]types.TIDSet, key, tid string) {
	set, ok := m[key]
	if !ok {
		set = types.NewTIDSet()
		m[key] = set
	}
	set.Add(tid)
}

func removeFrom(m map[string]types.TIDSet, key, tid string) {
	set, ok := m[key]
	if !ok {
		return
	}
	delete(set, tid)
	if set.Len() == 0 {
		delete(m, key)
	}
}

// Index is the set of lookup structures derived from a pack. It never
// decides whether an entry exists; the pack's entry list does.
//
// The entry, type and component indexes are kept current on every add. The
// link and group indexes are built by the first query or update call and
// are kept current afterwards by the pack's incremental updates.
type Index struct {
	pack   *Pack
	logger *slog.Logger

	entries    map[string]types.Entry
	types      map[string]types.TIDSet
	components map[string]types.TIDSet

	links  linkIndex
	groups groupIndex
}

func newIndex(p *Pack, logger *slog.Logger) *Index {
	return &Index{
		pack:       p,
		logger:     logger,
		entries:    make(map[string]types.Entry),
		types:      make(map[string]types.TIDSet),
		components: make(map[string]types.TIDSet),
	}
}

// UpdateBasicIndex inserts entries into the entry, type and component
// indexes. A tid already present is overwritten by the later entry and
// leaves the type and component buckets of the earlier one.
func (ix *Index) UpdateBasicIndex(entries ...types.Entry) {
	for _, e := range entries {
		if old, ok := ix.entries[e.TID()]; ok && old != e {
			removeFrom(ix.types, old.EntryType(), e.TID())
			removeFrom(ix.components, old.Component(), e.TID())
		}
		ix.entries[e.TID()] = e
		addTo(ix.types, e.EntryType(), e.TID())
		addTo(ix.components, e.Component(), e.TID())
	}
}

// Entry returns the entry with the given tid.
func (ix *Index) Entry(tid string) (types.Entry, bool) {
	e, ok := ix.entries[tid]
	return e, ok
}

// HasEntry reports whether tid is indexed.
func (ix *Index) HasEntry(tid string) bool {
	_, ok := ix.entries[tid]
	return ok
}

// TIDsOfType returns the tids indexed under entryType.
func (ix *Index) TIDsOfType(entryType string) types.TIDSet {
	return ix.types[entryType].Clone()
}

// TIDsOfComponent returns the tids created by component. Entries added
// without attribution are indexed under the empty name.
func (ix *Index) TIDsOfComponent(component string) types.TIDSet {
	return ix.components[component].Clone()
}

// EntryTypes lists the indexed entry types in lexical order.
func (ix *Index) EntryTypes() []string {
	return sortedKeys(ix.types)
}

// Components lists the indexed component names in lexical order.
func (ix *Index) Components() []string {
	return sortedKeys(ix.components)
}

// LinkIndexBuilt reports whether the link index has been built. Once built
// it stays built.
func (ix *Index) LinkIndexBuilt() bool { return ix.links.built }

// GroupIndexBuilt reports whether the group index has been built. Once
// built it stays built.
func (ix *Index) GroupIndexBuilt() bool { return ix.groups.built }

// LinkIndex returns the tids of links whose parent (asParent) or child is
// tid. The first call scans every link of the pack. An entry without links
// yields an empty set.
func (ix *Index) LinkIndex(tid string, asParent bool) (types.TIDSet, error) {
	if !ix.links.built {
		if err := ix.UpdateLinkIndex(); err != nil {
			return nil, err
		}
	}
	if asParent {
		return ix.links.parents[tid].Clone(), nil
	}
	return ix.links.children[tid].Clone(), nil
}

// UpdateLinkIndex builds or updates the link index. When unbuilt, the index
// is built from all links of the pack and links is ignored. When built,
// links are merged in; merging a link twice has no effect.
//
// A link whose parent or child is not in the entry index fails the call with
// ErrInvalidEntry and leaves the index as it was.
func (ix *Index) UpdateLinkIndex(links ...types.LinkEntry) error {
	if !ix.links.built {
		ix.logger.Debug("building link index", "links", len(ix.pack.links))
		next := linkIndex{
			built:    true,
			parents:  make(map[string]types.TIDSet),
			children: make(map[string]types.TIDSet),
		}
		for _, l := range ix.pack.links {
			if err := ix.checkLink(l); err != nil {
				return err
			}
			next.merge(l)
		}
		ix.links = next
		return nil
	}

	ix.logger.Debug("updating link index", "links", len(links))
	for _, l := range links {
		if err := ix.checkLink(l); err != nil {
			return err
		}
	}
	for _, l := range links {
		ix.links.merge(l)
	}
	return nil
}

func (ix *Index) checkLink(l types.LinkEntry) error {
	for _, end := range []string{l.Parent(), l.Child()} {
		if !ix.pack.has(end) {
			return fmt.Errorf("link %s endpoint %s not in pack: %w", l.TID(), end, types.ErrInvalidEntry)
		}
	}
	return nil
}

// GroupIndex returns the tids of groups that have tid as a member. The first
// call scans every group of the pack.
func (ix *Index) GroupIndex(tid string) (types.TIDSet, error) {
	if !ix.groups.built {
		if err := ix.UpdateGroupIndex(); err != nil {
			return nil, err
		}
	}
	return ix.groups.members[tid].Clone(), nil
}

// UpdateGroupIndex builds or updates the group index with the same two-mode
// contract as UpdateLinkIndex.
func (ix *Index) UpdateGroupIndex(groups ...types.GroupEntry) error {
	if !ix.groups.built {
		ix.logger.Debug("building group index", "groups", len(ix.pack.groups))
		next := groupIndex{
			built:   true,
			members: make(map[string]types.TIDSet),
		}
		for _, g := range ix.pack.groups {
			if err := ix.checkGroup(g); err != nil {
				return err
			}
			next.merge(g)
		}
		ix.groups = next
		return nil
	}

	ix.logger.Debug("updating group index", "groups", len(groups))
	for _, g := range groups {
		if err := ix.checkGroup(g); err != nil {
			return err
		}
	}
	for _, g := range groups {
		ix.groups.merge(g)
	}
	return nil
}

func (ix *Index) checkGroup(g types.GroupEntry) error {
	for _, m := range g.Members() {
		if !ix.pack.has(m) {
			return fmt.Errorf("group %s member %s not in pack: %w", g.TID(), m, types.ErrInvalidEntry)
		}
	}
	return nil
}

// Stats summarizes the index contents.
type Stats struct {
	Entries         int            `json:"entries"`
	Links           int            `json:"links"`
	Groups          int            `json:"groups"`
	ByType          map[string]int `json:"by_type"`
	ByComponent     map[string]int `json:"by_component"`
	LinkIndexBuilt  bool           `json:"link_index_built"`
	GroupIndexBuilt bool           `json:"group_index_built"`
}

// Stats returns entry counts per type and per component.
func (ix *Index) Stats() Stats {
	s := Stats{
		Entries:         len(ix.entries),
		Links:           len(ix.pack.links),
		Groups:          len(ix.pack.groups),
		ByType:          make(map[string]int, len(ix.types)),
		ByComponent:     make(map[string]int, len(ix.components)),
		LinkIndexBuilt:  ix.links.built,
		GroupIndexBuilt: ix.groups.built,
	}
	for t, set := range ix.types {
		s.ByType[t] = set.Len()
	}
	for c, set := range ix.components {
		s.ByComponent[c] = set.Len()
	}
	return s
}

func sortedKeys(m map[string]types.TIDSet) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
