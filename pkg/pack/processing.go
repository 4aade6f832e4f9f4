package pack

import "github.com/mesh-intelligence/annopack/pkg/types"

// Processing is the attribution token of a component working on a pack.
// Entries added through it are stamped with its component name, whether or
// not it is still the pack's current session. It is a label, not a lock.
type Processing struct {
	pack      *Pack
	component string
}

// EnterProcessing makes component the pack's current owner and returns its
// token. A session already in progress is superseded.
func (p *Pack) EnterProcessing(component string) *Processing {
	s := &Processing{pack: p, component: component}
	p.session = s
	return s
}

// CurrentComponent returns the component of the current session, or the
// empty string when no session is active.
func (p *Pack) CurrentComponent() string {
	if p.session == nil {
		return ""
	}
	return p.session.component
}

// ExitProcessing ends whichever session is current.
func (p *Pack) ExitProcessing() {
	p.session = nil
}

// Component returns the name stamped by this token.
func (s *Processing) Component() string { return s.component }

// Exit ends the session if it is still the pack's current one.
func (s *Processing) Exit() {
	if s.pack.session == s {
		s.pack.session = nil
	}
}

// AddEntry adds entry attributed to this session's component.
func (s *Processing) AddEntry(entry types.Entry) (types.Entry, error) {
	return s.pack.addEntry(entry, s.component, true)
}

// AddOrGetEntry returns a logically equal entry or adds entry attributed to
// this session's component.
func (s *Processing) AddOrGetEntry(entry types.Entry) (types.Entry, error) {
	return s.pack.addOrGetEntry(entry, s.component)
}

// RecordFields records fields populated by this session's component on
// entries of entryType.
func (s *Processing) RecordFields(entryType string, fields []string, opts ...RecordOption) {
	s.pack.RecordFields(entryType, s.component, fields, opts...)
}

// RecordFieldUpdate records that this session's component modified field on
// the entry tid.
func (s *Processing) RecordFieldUpdate(tid, field string) error {
	return s.pack.recordFieldUpdate(tid, field, s.component)
}
