package bindings

import (
	"fmt"
	"slices"

	"termeval/internal/domain"
)

// LookupError reports an identifier with no binding in scope.
type LookupError struct {
	Name string
}

func (e *LookupError) Error() string {
	return fmt.Sprintf("no identifier named %s in scope", e.Name)
}

// Bindings maps identifiers to term references for the lifetime of a session.
type Bindings struct {
	refs map[string]domain.TermReference
}

func New() *Bindings {
	return &Bindings{refs: make(map[string]domain.TermReference)}
}

// Write binds name to ref, replacing any previous binding.
func (b *Bindings) Write(name string, ref domain.TermReference) {
	b.refs[name] = ref
}

func (b *Bindings) Lookup(name string) (domain.TermReference, error) {
	ref, ok := b.refs[name]
	if !ok {
		return nil, &LookupError{Name: name}
	}
	return ref, nil
}

// Names returns the bound identifiers in sorted order.
func (b *Bindings) Names() []string {
	names := make([]string, 0, len(b.refs))
	for name := range b.refs {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
