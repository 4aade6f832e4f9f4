package types

import "fmt"

// Group is an unordered collection of member entries. Members are held by
// tid in insertion order with duplicates collapsed.
type Group struct {
	EntryHeader
	MemberTIDs []string `json:"members"`
}

// NewGroup returns a group over the given entries.
func NewGroup(members ...Entry) *Group {
	g := &Group{}
	for _, m := range members {
		g.AddMember(m.TID())
	}
	return g
}

// EntryType returns TypeGroup.
func (g *Group) EntryType() string { return TypeGroup }

// AddMember appends tid unless it is already a member.
func (g *Group) AddMember(tid string) {
	for _, m := range g.MemberTIDs {
		if m == tid {
			return
		}
	}
	g.MemberTIDs = append(g.MemberTIDs, tid)
}

// Members returns a copy of the member tids.
func (g *Group) Members() []string {
	out := make([]string, len(g.MemberTIDs))
	copy(out, g.MemberTIDs)
	return out
}

// Eq reports whether other has the same member set.
func (g *Group) Eq(other Entry) bool {
	o, ok := other.(GroupEntry)
	if !ok {
		return false
	}
	return NewTIDSet(g.MemberTIDs...).Equal(NewTIDSet(o.Members()...))
}

// Validate rejects empty member ids. It does not modify the group.
func (g *Group) Validate() error {
	for _, m := range g.MemberTIDs {
		if m == "" {
			return fmt.Errorf("group member tid is empty: %w", ErrInvalidEntry)
		}
	}
	return nil
}

// Normalize collapses duplicate members left by direct field assignment,
// keeping the first occurrence of each.
func (g *Group) Normalize() {
	g.MemberTIDs = NewTIDSet().appendNew(make([]string, 0, len(g.MemberTIDs)), g.MemberTIDs)
}
