package jsonapi

import (
	"context"
	"fmt"
)

// Mappable is implemented by domain models that populate themselves from a ResponseModel.
type Mappable interface {
	MapFrom(ctx context.Context, rm *ResponseModel) error
}

// Constructor returns a fresh, empty model.
type Constructor func() Mappable

// Endpointer is implemented by models that know their collection endpoint.
type Endpointer interface {
	Endpoint() string
}

// Includer is implemented by models that always need relationships included.
type Includer interface {
	Includes() []string
}

// Gater is implemented by models that exclude some entries before mapping.
type Gater interface {
	Gate(rm *ResponseModel) bool
}

// GateFunc decides whether an entry is kept. Returning false excludes it.
type GateFunc func(rm *ResponseModel) bool

// Resolver maps a ResponseModel to a domain value.
type Resolver interface {
	Map(ctx context.Context, rm *ResponseModel) (any, error)
}

// ResolverFunc adapts a function to the Resolver interface.
type ResolverFunc func(ctx context.Context, rm *ResponseModel) (any, error)

// Map calls f(ctx, rm).
func (f ResolverFunc) Map(ctx context.Context, rm *ResponseModel) (any, error) {
	return f(ctx, rm)
}

// CreateFromResponse builds a model with ctor and lets it map itself from rm.
func CreateFromResponse(ctx context.Context, ctor Constructor, rm *ResponseModel) (Mappable, error) {
	model := ctor()

	err := model.MapFrom(ctx, rm)
	if err != nil {
		return nil, fmt.Errorf("failed to map %s %q: %w", rm.Type(), rm.ID(), err)
	}

	return model, nil
}

// Mapper converts one ResponseModel into a T.
type Mapper[T any] func(ctx context.Context, rm *ResponseModel) (T, error)

// AutoMap returns a Mapper that delegates to r, yielding either a model or
// the unchanged ResponseModel.
func AutoMap(r Resolver) Mapper[any] {
	return func(ctx context.Context, rm *ResponseModel) (any, error) {
		if r == nil {
			return rm, nil
		}

		return r.Map(ctx, rm)
	}
}

// MapInto returns a Mapper that always builds a T with newModel.
func MapInto[T Mappable](newModel func() T) Mapper[T] {
	return func(ctx context.Context, rm *ResponseModel) (T, error) {
		model := newModel()

		err := model.MapFrom(ctx, rm)
		if err != nil {
			var zero T

			return zero, fmt.Errorf("failed to map %s %q: %w", rm.Type(), rm.ID(), err)
		}

		return model, nil
	}
}

// Models returns a Mapper that passes the ResponseModel through unchanged.
func Models() Mapper[*ResponseModel] {
	return func(_ context.Context, rm *ResponseModel) (*ResponseModel, error) {
		return rm, nil
	}
}
