package types

import (
	"fmt"
	"sort"
	"sync"
)

// EntryFactory returns a new zero-valued entry of one registered type.
type EntryFactory func() Entry

var registry = struct {
	mu        sync.RWMutex
	factories map[string]EntryFactory
}{
	factories: map[string]EntryFactory{
		TypeAnnotation: func() Entry { return &Annotation{} },
		TypeLink:       func() Entry { return &Link{} },
		TypeGroup:      func() Entry { return &Group{} },
	},
}

// RegisterEntryType makes a user-defined entry type known to serialization
// and view reconstruction. The factory's entries must report name from
// EntryType. Registering a name twice panics.
func RegisterEntryType(name string, factory EntryFactory) {
	registry.mu.Lock()
	defer registry.mu.Unlock()

	if name == "" || factory == nil {
		panic("types: RegisterEntryType requires a name and a factory")
	}
	if _, dup := registry.factories[name]; dup {
		panic("types: entry type registered twice: " + name)
	}
	if got := factory().EntryType(); got != name {
		panic(fmt.Sprintf("types: factory for %q builds entries of type %q", name, got))
	}
	registry.factories[name] = factory
}

// NewEntryOfType returns a zero-valued entry of the named type.
// Returns ErrUnknownEntryType if the name was never registered.
func NewEntryOfType(name string) (Entry, error) {
	registry.mu.RLock()
	factory, ok := registry.factories[name]
	registry.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%q: %w", name, ErrUnknownEntryType)
	}
	return factory(), nil
}

// RegisteredEntryTypes lists all registered type names in lexical order.
func RegisteredEntryTypes() []string {
	registry.mu.RLock()
	defer registry.mu.RUnlock()

	names := make([]string, 0, len(registry.factories))
	for name := range registry.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
