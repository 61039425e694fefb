package tagstore

import (
	"sort"

	"go-expanded-storage/internal/model"
)

// Features is a set of per-feature stores, one Store per feature name.
type Features struct {
	stores map[string]*Store
}

// NewFeatures returns an empty feature table.
func NewFeatures() *Features {
	return &Features{stores: make(map[string]*Store)}
}

// Enable registers param for feature on instances tagged (key, value).
func (f *Features) Enable(feature, key, value string, param Param) {
	store, ok := f.stores[feature]
	if !ok {
		store = NewStore()
		f.stores[feature] = store
	}
	store.Set(key, value, param)
}

// Store returns the store for feature, or nil if nothing was enabled for it.
func (f *Features) Store(feature string) *Store {
	return f.stores[feature]
}

// Resolve returns the parameter of feature for an instance carrying tags.
func (f *Features) Resolve(feature string, tags []model.Tag) (Param, bool) {
	store, ok := f.stores[feature]
	if !ok {
		return Param{}, false
	}
	return store.Resolve(tags)
}

// Enabled reports whether feature resolves to boolean true for tags.
// Non-boolean parameters count as enabled.
func (f *Features) Enabled(feature string, tags []model.Tag) bool {
	param, ok := f.Resolve(feature, tags)
	if !ok {
		return false
	}
	if v, isBool := param.AsBool(); isBool {
		return v
	}
	return true
}

// Names returns the feature names with at least one entry, sorted.
func (f *Features) Names() []string {
	names := make([]string, 0, len(f.stores))
	for name, store := range f.stores {
		if store.Len() > 0 {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// Reset drops every store.
func (f *Features) Reset() {
	clear(f.stores)
}
