package jsonapi

import (
	"context"
	"sync"
)

// Selector decides whether a registration applies to rm.
type Selector func(rm *ResponseModel, discriminator string) bool

// Registration binds a discriminator value to a model constructor.
type Registration struct {
	Discriminator string
	New           Constructor
}

// Register is a shorthand for building a Registration.
func Register(discriminator string, ctor Constructor) Registration {
	return Registration{Discriminator: discriminator, New: ctor}
}

// SelectByType matches on the resource "type" member.
func SelectByType(rm *ResponseModel, discriminator string) bool {
	return rm.Type() == discriminator
}

// AutoMapper picks a model constructor for a ResponseModel.
type AutoMapper struct {
	mu            sync.RWMutex
	registrations []Registration
	selector      Selector
}

// NewAutoMapper creates an AutoMapper selecting by resource type.
func NewAutoMapper(regs ...Registration) *AutoMapper {
	return &AutoMapper{
		registrations: append([]Registration(nil), regs...),
		selector:      SelectByType,
	}
}

// Register replaces every registration. Order is the match order.
func (m *AutoMapper) Register(regs ...Registration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.registrations = append([]Registration(nil), regs...)
}

// SetSelector replaces the selection predicate.
func (m *AutoMapper) SetSelector(fn Selector) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if fn == nil {
		fn = SelectByType
	}

	m.selector = fn
}

// Discriminators returns the registered discriminators in match order.
func (m *AutoMapper) Discriminators() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]string, 0, len(m.registrations))
	for _, reg := range m.registrations {
		out = append(out, reg.Discriminator)
	}

	return out
}

// Registrations returns a copy of the registrations in match order.
func (m *AutoMapper) Registrations() []Registration {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return append([]Registration(nil), m.registrations...)
}

// Lookup returns the first constructor whose discriminator matches rm.
func (m *AutoMapper) Lookup(rm *ResponseModel) (Constructor, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, reg := range m.registrations {
		if m.selector(rm, reg.Discriminator) {
			return reg.New, true
		}
	}

	return nil, false
}

// Map builds the matching model, or returns rm unchanged when nothing matches.
func (m *AutoMapper) Map(ctx context.Context, rm *ResponseModel) (any, error) {
	ctor, ok := m.Lookup(rm)
	if !ok {
		return rm, nil
	}

	if rm.resolver == nil {
		rm = NewResponseModel(rm.raw, m)
	}

	return CreateFromResponse(ctx, ctor, rm)
}
