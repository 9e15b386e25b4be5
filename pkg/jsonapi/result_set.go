package jsonapi

import (
	"encoding/json"
	"iter"
	"slices"
	"time"
)

// Performance holds the time spent fetching and mapping.
type Performance struct {
	Query   time.Duration `json:"query"   yaml:"query"`
	Mapping time.Duration `json:"mapping" yaml:"mapping"`
}

// ResultSetMeta describes the query that produced a ResultSet.
type ResultSetMeta struct {
	QueryID        string      `json:"queryId"        yaml:"queryId"`
	URL            string      `json:"url"            yaml:"url"`
	Params         []Param     `json:"params"         yaml:"params"`
	Performance    Performance `json:"performance"    yaml:"performance"`
	Count          int         `json:"count"          yaml:"count"`
	Pages          int         `json:"pages"          yaml:"pages"`
	PerPage        int         `json:"perPage"        yaml:"perPage"`
	ExcludedByGate int         `json:"excludedByGate" yaml:"excludedByGate"`
}

// ResultSet is an ordered collection of mapped results.
type ResultSet[T any] struct {
	items []T
	meta  ResultSetMeta
}

// NewResultSet creates a ResultSet holding items.
func NewResultSet[T any](items ...T) *ResultSet[T] {
	return &ResultSet[T]{items: items}
}

// Len returns the number of items.
func (r *ResultSet[T]) Len() int {
	return len(r.items)
}

// Get returns the item at index. The boolean is false when index is out of range.
func (r *ResultSet[T]) Get(index int) (T, bool) {
	if index < 0 || index >= len(r.items) {
		var zero T

		return zero, false
	}

	return r.items[index], true
}

// Push appends items and returns the new length.
func (r *ResultSet[T]) Push(items ...T) int {
	r.items = append(r.items, items...)

	return len(r.items)
}

// Pop removes and returns the last item.
func (r *ResultSet[T]) Pop() (T, bool) {
	var zero T

	if len(r.items) == 0 {
		return zero, false
	}

	last := r.items[len(r.items)-1]
	r.items[len(r.items)-1] = zero
	r.items = r.items[:len(r.items)-1]

	return last, true
}

// All iterates over index and item in order. Every call starts a fresh iteration.
func (r *ResultSet[T]) All() iter.Seq2[int, T] {
	return func(yield func(int, T) bool) {
		for i, item := range r.items {
			if !yield(i, item) {
				return
			}
		}
	}
}

// Items returns a copy of the items.
func (r *ResultSet[T]) Items() []T {
	return slices.Clone(r.items)
}

// ForEach calls fn for every item in order.
func (r *ResultSet[T]) ForEach(fn func(item T, index int)) {
	for i, item := range r.items {
		fn(item, i)
	}
}

// Filter returns the items for which keep returns true.
func (r *ResultSet[T]) Filter(keep func(item T, index int) bool) []T {
	var out []T

	for i, item := range r.items {
		if keep(item, i) {
			out = append(out, item)
		}
	}

	return out
}

// Find returns the first item matching match.
func (r *ResultSet[T]) Find(match func(item T, index int) bool) (T, bool) {
	for i, item := range r.items {
		if match(item, i) {
			return item, true
		}
	}

	var zero T

	return zero, false
}

// SortFunc sorts the items in place with a stable sort.
func (r *ResultSet[T]) SortFunc(cmp func(a, b T) int) *ResultSet[T] {
	slices.SortStableFunc(r.items, cmp)

	return r
}

// Concat returns a new ResultSet with the items of r followed by those of
// other. Durations and gate exclusions are summed, the rest of the metadata
// is taken from r.
func (r *ResultSet[T]) Concat(other *ResultSet[T]) *ResultSet[T] {
	items := make([]T, 0, len(r.items)+len(other.items))
	items = append(items, r.items...)
	items = append(items, other.items...)

	meta := r.meta
	meta.Params = slices.Clone(r.meta.Params)
	meta.Performance.Query += other.meta.Performance.Query
	meta.Performance.Mapping += other.meta.Performance.Mapping
	meta.ExcludedByGate += other.meta.ExcludedByGate

	return &ResultSet[T]{items: items, meta: meta}
}

// SetMeta replaces the metadata.
func (r *ResultSet[T]) SetMeta(meta ResultSetMeta) {
	r.meta = meta
}

// Meta returns the metadata.
func (r *ResultSet[T]) Meta() ResultSetMeta {
	return r.meta
}

// MarshalJSON encodes the items as a JSON array.
func (r *ResultSet[T]) MarshalJSON() ([]byte, error) {
	if r.items == nil {
		return []byte("[]"), nil
	}

	return json.Marshal(r.items)
}

// MapResults applies fn to every item of r in order.
func MapResults[T, U any](r *ResultSet[T], fn func(item T, index int) U) []U {
	out := make([]U, 0, len(r.items))

	for i, item := range r.items {
		out = append(out, fn(item, i))
	}

	return out
}

// Reduce folds the items of r into an accumulator.
func Reduce[T, U any](r *ResultSet[T], initial U, fn func(acc U, item T, index int) U) U {
	acc := initial

	for i, item := range r.items {
		acc = fn(acc, item, i)
	}

	return acc
}
