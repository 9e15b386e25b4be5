package jsonapi

import (
	"sort"
	"sync"
)

// MacroFunc is a reusable sequence of query mutations.
type MacroFunc func(q *Query, args ...any)

// MacroRegistry stores named macros.
type MacroRegistry struct {
	mu     sync.RWMutex
	macros map[string]MacroFunc
}

// NewMacroRegistry creates an empty registry.
func NewMacroRegistry() *MacroRegistry {
	return &MacroRegistry{
		macros: make(map[string]MacroFunc),
	}
}

// Register stores fn under name, replacing any previous macro.
func (r *MacroRegistry) Register(name string, fn MacroFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.macros == nil {
		r.macros = make(map[string]MacroFunc)
	}

	r.macros[name] = fn
}

// Has reports whether name is registered.
func (r *MacroRegistry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.macros[name]

	return ok
}

// Names returns the registered macro names, sorted.
func (r *MacroRegistry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.macros))
	for name := range r.macros {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}

// Execute runs the macro registered under name against q.
func (r *MacroRegistry) Execute(name string, q *Query, args ...any) error {
	if r == nil {
		return &UnknownMacroError{Name: name}
	}

	r.mu.RLock()
	fn, ok := r.macros[name]
	r.mu.RUnlock()

	if !ok {
		return &UnknownMacroError{Name: name}
	}

	fn(q, args...)

	return nil
}
