package graph

import (
	"maps"
	"slices"
)

// Reducer merges a node's partial state into the running state.
//
// Reducers must be pure: they return the merged value and never mutate prev
// or delta. A reducer applied to two sequential deltas must give the same
// result as applying it to each in order, and it must leave every field that
// neither delta sets unchanged.
//
// Type parameter S is the state type shared across the workflow.
type Reducer[S any] func(prev, delta S) S

// FieldReporter is implemented by state types that can report which fields a
// value sets. The engine uses it to enforce the write sets declared with
// Writes.
type FieldReporter interface {
	Fields() []string
}

// FieldLookup is implemented by key-addressable state types. The engine uses
// it to check the read sets declared with Reads before a run starts.
type FieldLookup interface {
	Has(field string) bool
}

// State is a loosely typed, key-addressable state record. Prefer a declared
// struct type for workflows; State exists for small graphs, tests, and
// callers assembling state dynamically.
//
// Values are treated as immutable once placed in a State. Merge returns a
// new map and never modifies its arguments.
type State map[string]any

// Has reports whether field is present.
func (s State) Has(field string) bool {
	_, ok := s[field]
	return ok
}

// Fields returns the present field names in sorted order.
func (s State) Fields() []string {
	return slices.Sorted(maps.Keys(s))
}

// Get returns the raw value of field.
func (s State) Get(field string) (any, bool) {
	v, ok := s[field]
	return v, ok
}

// String returns field as a string, or "" when it is absent or not a string.
func (s State) String(field string) string {
	v, _ := s[field].(string)
	return v
}

// Strings returns field as a string slice, or nil when it is absent or not a
// string slice.
func (s State) Strings(field string) []string {
	v, _ := s[field].([]string)
	return v
}

// Clone returns a shallow copy of s.
func (s State) Clone() State {
	if s == nil {
		return State{}
	}
	return maps.Clone(s)
}

// Merge is the shallow-union reducer for State: every key in delta
// overwrites the same key in prev and every other key of prev persists.
func Merge(prev, delta State) State {
	out := make(State, len(prev)+len(delta))
	maps.Copy(out, prev)
	maps.Copy(out, delta)
	return out
}
