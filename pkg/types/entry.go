package types

// Structural entry type names. User-defined subtypes register their own
// names with RegisterEntryType.
const (
	TypeAnnotation = "Annotation"
	TypeLink       = "Link"
	TypeGroup      = "Group"
)

// Entry is an annotated object held by a pack.
//
// Identity is the tid. Logical equality is Eq and is delegated to each
// variant; the pack only calls Eq with a candidate of the same EntryType.
type Entry interface {
	// TID returns the pack-unique identifier, empty until the entry is added.
	TID() string

	// EntryType returns the registered type name used by the type index.
	EntryType() string

	// Component returns the name of the owner that created the entry.
	Component() string

	// Eq reports whether other is a logical duplicate of this entry.
	Eq(other Entry) bool

	// Header exposes the identity block so the pack can stamp tid and
	// component on add.
	Header() *EntryHeader
}

// Validator is implemented by entries that check their own payload before
// the pack accepts them.
type Validator interface {
	Validate() error
}

// Normalizer is implemented by entries that tidy their payload once the pack
// has accepted them.
type Normalizer interface {
	Normalize()
}

// LinkEntry is an Entry with exactly one parent and one child.
type LinkEntry interface {
	Entry
	Parent() string
	Child() string
}

// GroupEntry is an Entry with a set of member entries.
type GroupEntry interface {
	Entry
	Members() []string
}

// EntryHeader carries the identity and ownership of an entry.
type EntryHeader struct {
	ID    string `json:"tid"`
	Owner string `json:"component,omitempty"`
}

// TID returns the entry identifier.
func (h *EntryHeader) TID() string { return h.ID }

// Component returns the owning component name.
func (h *EntryHeader) Component() string { return h.Owner }

// Header returns the header itself.
func (h *EntryHeader) Header() *EntryHeader { return h }
