// Package registry holds every committed storage definition for a session.
package registry

import (
	"iter"

	"go-expanded-storage/internal/model"
)

// Registry is the table of storage definitions keyed by name. A name is held
// by at most one definition; commits never overwrite.
type Registry struct {
	defs  map[string]*model.StorageDefinition
	order []string
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{defs: make(map[string]*model.StorageDefinition)}
}

// Commit adds def. It fails with a *DuplicateNameError if the name is taken.
func (r *Registry) Commit(def *model.StorageDefinition) error {
	if def == nil || def.Name == "" {
		return ErrInvalidDefinition
	}
	if existing, ok := r.defs[def.Name]; ok {
		return &DuplicateNameError{Name: def.Name, Owner: def.Owner, ExistingOwner: existing.Owner}
	}
	r.defs[def.Name] = def
	r.order = append(r.order, def.Name)
	return nil
}

// Get returns the definition committed under name.
func (r *Registry) Get(name string) (*model.StorageDefinition, bool) {
	def, ok := r.defs[name]
	return def, ok
}

// Has reports whether name is committed.
func (r *Registry) Has(name string) bool {
	_, ok := r.defs[name]
	return ok
}

// Len returns the number of committed definitions.
func (r *Registry) Len() int {
	return len(r.order)
}

// Names returns every committed name in commit order.
func (r *Registry) Names() []string {
	return append([]string(nil), r.order...)
}

// All yields every definition in commit order.
func (r *Registry) All() iter.Seq[*model.StorageDefinition] {
	return func(yield func(*model.StorageDefinition) bool) {
		for _, name := range r.order {
			if !yield(r.defs[name]) {
				return
			}
		}
	}
}

// AllOwnedBy yields the definitions declared by owner in commit order.
func (r *Registry) AllOwnedBy(owner model.SourceID) iter.Seq[*model.StorageDefinition] {
	return func(yield func(*model.StorageDefinition) bool) {
		for _, name := range r.order {
			def := r.defs[name]
			if def.Owner != owner {
				continue
			}
			if !yield(def) {
				return
			}
		}
	}
}

// OwnedNames returns the names declared by owner.
func (r *Registry) OwnedNames(owner model.SourceID) []string {
	var names []string
	for def := range r.AllOwnedBy(owner) {
		names = append(names, def.Name)
	}
	return names
}

// Reset empties the registry ahead of a reload.
func (r *Registry) Reset() {
	clear(r.defs)
	r.order = r.order[:0]
}
