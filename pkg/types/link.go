package types

import "fmt"

// Link is a directed edge from a parent entry to a child entry. Endpoints
// are held by tid; the pack resolves them through its entry index.
type Link struct {
	EntryHeader
	ParentTID string `json:"parent"`
	ChildTID  string `json:"child"`
}

// NewLink returns a link between two entries that have already been added
// to a pack.
func NewLink(parent, child Entry) *Link {
	return &Link{ParentTID: parent.TID(), ChildTID: child.TID()}
}

// EntryType returns TypeLink.
func (l *Link) EntryType() string { return TypeLink }

// Parent returns the parent tid.
func (l *Link) Parent() string { return l.ParentTID }

// Child returns the child tid.
func (l *Link) Child() string { return l.ChildTID }

// Eq reports whether other connects the same parent and child.
func (l *Link) Eq(other Entry) bool {
	o, ok := other.(LinkEntry)
	if !ok {
		return false
	}
	return o.Parent() == l.ParentTID && o.Child() == l.ChildTID
}

// Validate requires both endpoints to be set.
func (l *Link) Validate() error {
	if l.ParentTID == "" || l.ChildTID == "" {
		return fmt.Errorf("link endpoints must be set: %w", ErrInvalidEntry)
	}
	return nil
}
