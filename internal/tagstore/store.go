// Package tagstore maps tags carried by object instances to feature
// parameters. An instance never needs to be known to the store: its own
// ordered tag list is the lookup key.
package tagstore

import (
	"sort"

	"go-expanded-storage/internal/model"
)

// Store holds parameters for a single feature keyed by tag.
type Store struct {
	values map[model.Tag]Param
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{values: make(map[model.Tag]Param)}
}

// Set stores param for the (key, value) tag, replacing any earlier value.
func (s *Store) Set(key, value string, param Param) {
	s.values[model.Tag{Key: key, Value: value}] = param
}

// Get returns the parameter registered for exactly (key, value).
func (s *Store) Get(key, value string) (Param, bool) {
	param, ok := s.values[model.Tag{Key: key, Value: value}]
	return param, ok
}

// Delete removes the entry for (key, value) if present.
func (s *Store) Delete(key, value string) {
	delete(s.values, model.Tag{Key: key, Value: value})
}

// Resolve walks tags in order and returns the parameter of the first tag
// with a registered entry.
func (s *Store) Resolve(tags []model.Tag) (Param, bool) {
	for _, tag := range tags {
		if param, ok := s.values[tag]; ok {
			return param, true
		}
	}
	return Param{}, false
}

// Len returns the number of entries.
func (s *Store) Len() int {
	return len(s.values)
}

// Tags returns every registered tag sorted by key then value.
func (s *Store) Tags() []model.Tag {
	tags := make([]model.Tag, 0, len(s.values))
	for tag := range s.values {
		tags = append(tags, tag)
	}
	sort.Slice(tags, func(i, j int) bool {
		if tags[i].Key != tags[j].Key {
			return tags[i].Key < tags[j].Key
		}
		return tags[i].Value < tags[j].Value
	})
	return tags
}

// Reset drops every entry.
func (s *Store) Reset() {
	clear(s.values)
}
