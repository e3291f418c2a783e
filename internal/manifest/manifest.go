package manifest

import (
	"errors"
	"fmt"
)

var (
	// ErrDuplicateKey is returned when two declarations share an identity key.
	ErrDuplicateKey = errors.New("duplicate component key")

	// ErrNilFactory is returned when a declaration carries no factory.
	ErrNilFactory = errors.New("declaration has nil factory")

	// ErrInvalidScope is returned when a declaration carries an unknown scope.
	ErrInvalidScope = errors.New("declaration has invalid scope")
)

// Manifest is the validated, ordered set of component declarations fed to
// the engine. Immutable after New.
type Manifest struct {
	decls []*Declaration
	byKey map[Key]*Declaration
}

// New validates the declarations and freezes them into a Manifest.
// Declaration order is recorded and used for deterministic tie-breaking
// throughout planning and hook execution.
func New(decls ...*Declaration) (*Manifest, error) {
	byKey := make(map[Key]*Declaration, len(decls))

	for i, d := range decls {
		if d.Factory == nil {
			return nil, fmt.Errorf("%w: %s", ErrNilFactory, d.Key)
		}
		if d.Scope < ScopeSingleton || d.Scope > ScopePrototype {
			return nil, fmt.Errorf("%w: %s has scope %d", ErrInvalidScope, d.Key, d.Scope)
		}
		if _, exists := byKey[d.Key]; exists {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateKey, d.Key)
		}
		d.order = i
		byKey[d.Key] = d
	}

	return &Manifest{decls: decls, byKey: byKey}, nil
}

// Declarations returns all declarations in manifest order. The caller must
// not mutate the returned slice.
func (m *Manifest) Declarations() []*Declaration {
	return m.decls
}

// Lookup returns the declaration for an exact key.
func (m *Manifest) Lookup(key Key) (*Declaration, bool) {
	d, ok := m.byKey[key]
	return d, ok
}

// Len returns the number of declarations.
func (m *Manifest) Len() int {
	return len(m.decls)
}
