package model

import (
	"encoding/json"
	"slices"
	"sort"
)

// FeatureSet is an unordered set of feature names. A nil set is empty.
// It encodes as a sorted JSON/YAML list.
type FeatureSet map[string]struct{}

// NewFeatureSet builds a set from names.
func NewFeatureSet(names ...string) FeatureSet {
	set := make(FeatureSet, len(names))
	for _, name := range names {
		set[name] = struct{}{}
	}
	return set
}

// Has reports whether name is in the set.
func (s FeatureSet) Has(name string) bool {
	_, ok := s[name]
	return ok
}

// Add inserts name. Add on a nil set panics; use NewFeatureSet.
func (s FeatureSet) Add(name string) {
	s[name] = struct{}{}
}

// Remove deletes name if present.
func (s FeatureSet) Remove(name string) {
	delete(s, name)
}

// Sorted returns the names in lexical order.
func (s FeatureSet) Sorted() []string {
	names := make([]string, 0, len(s))
	for name := range s {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Clone returns an independent copy. Cloning nil yields an empty set.
func (s FeatureSet) Clone() FeatureSet {
	out := make(FeatureSet, len(s))
	for name := range s {
		out[name] = struct{}{}
	}
	return out
}

// Equal reports whether both sets hold the same names.
func (s FeatureSet) Equal(other FeatureSet) bool {
	return slices.Equal(s.Sorted(), other.Sorted())
}

// MarshalJSON encodes the set as a sorted array.
func (s FeatureSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Sorted())
}

// UnmarshalJSON decodes an array of names. Duplicates collapse.
func (s *FeatureSet) UnmarshalJSON(data []byte) error {
	var names []string
	if err := json.Unmarshal(data, &names); err != nil {
		return err
	}
	*s = NewFeatureSet(names...)
	return nil
}

// MarshalYAML encodes the set as a sorted sequence.
func (s FeatureSet) MarshalYAML() (any, error) {
	return s.Sorted(), nil
}
