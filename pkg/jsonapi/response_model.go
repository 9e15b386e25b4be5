package jsonapi

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cast"
)

// ResponseModel wraps one raw JSON:API node. It never mutates the wrapped value.
type ResponseModel struct {
	raw      any
	resolver Resolver
}

// NewResponseModel wraps raw. resolver is used for relationship resolution and may be nil.
func NewResponseModel(raw any, resolver Resolver) *ResponseModel {
	return &ResponseModel{raw: raw, resolver: resolver}
}

// Raw returns the wrapped value.
func (rm *ResponseModel) Raw() any {
	return rm.raw
}

// Resolver returns the resolver used for relationships.
func (rm *ResponseModel) Resolver() Resolver {
	return rm.resolver
}

// Lookup resolves path. A JSON null reports (nil, true), an absent path (nil, false).
func (rm *ResponseModel) Lookup(path string) (any, bool) {
	segments, err := ParsePath(path)
	if err != nil {
		return nil, false
	}

	return traverse(rm.raw, segments)
}

// Get resolves path and returns defaultValue when it is absent or null.
func (rm *ResponseModel) Get(path string, defaultValue any) any {
	value, ok := rm.Lookup(path)
	if !ok || value == nil {
		return defaultValue
	}

	return value
}

// String returns the value at path as a string, or "".
func (rm *ResponseModel) String(path string) string {
	return cast.ToString(rm.Get(path, nil))
}

// Int returns the value at path as an int, or 0.
func (rm *ResponseModel) Int(path string) int {
	return cast.ToInt(rm.Get(path, nil))
}

// Float returns the value at path as a float64, or 0.
func (rm *ResponseModel) Float(path string) float64 {
	return cast.ToFloat64(rm.Get(path, nil))
}

// Bool returns the value at path as a bool, or false.
func (rm *ResponseModel) Bool(path string) bool {
	return cast.ToBool(rm.Get(path, nil))
}

// Strings returns the value at path as a string slice.
func (rm *ResponseModel) Strings(path string) []string {
	value, ok := rm.Get(path, nil).([]any)
	if !ok {
		return nil
	}

	out := make([]string, 0, len(value))
	for _, v := range value {
		out = append(out, cast.ToString(v))
	}

	return out
}

// ID returns the resource id.
func (rm *ResponseModel) ID() string {
	return rm.String("id")
}

// Type returns the resource type.
func (rm *ResponseModel) Type() string {
	return rm.String("type")
}

// Join concatenates the non-empty string values of paths with sep.
func (rm *ResponseModel) Join(sep string, paths ...string) string {
	parts := make([]string, 0, len(paths))

	for _, path := range paths {
		if value := rm.String(path); value != "" {
			parts = append(parts, value)
		}
	}

	return strings.Join(parts, sep)
}

// HasOne resolves the relationship at path through the model's resolver.
// It returns nil when nothing is related.
func (rm *ResponseModel) HasOne(ctx context.Context, path string) (any, error) {
	value, _ := rm.Lookup(path)

	return ResolveOne(ctx, rm.resolver, value)
}

// HasOneAs resolves the relationship at path into a model built by ctor.
func (rm *ResponseModel) HasOneAs(ctx context.Context, path string, ctor Constructor) (Mappable, error) {
	value, _ := rm.Lookup(path)

	node := unwrapRelationship(value)
	if !isResourceNode(node) {
		return nil, nil //nolint:nilnil // no related resource is not an error
	}

	return CreateFromResponse(ctx, ctor, NewResponseModel(node, rm.resolver))
}

// HasMany resolves the to-many relationship at path. It returns nil when the
// resolved value is not a list.
func (rm *ResponseModel) HasMany(ctx context.Context, path string) ([]any, error) {
	value, _ := rm.Lookup(path)

	return ResolveMany(ctx, rm.resolver, value)
}

// HasManyAs resolves the to-many relationship at path into models built by ctor.
func (rm *ResponseModel) HasManyAs(ctx context.Context, path string, ctor Constructor) ([]Mappable, error) {
	value, _ := rm.Lookup(path)

	list, ok := unwrapRelationship(value).([]any)
	if !ok {
		return nil, nil
	}

	models := make([]Mappable, 0, len(list))

	for i, item := range list {
		model, err := CreateFromResponse(ctx, ctor, NewResponseModel(item, rm.resolver))
		if err != nil {
			return nil, fmt.Errorf("%s[%d]: %w", path, i, err)
		}

		models = append(models, model)
	}

	return models, nil
}

// ResolveOne wraps value in a ResponseModel and maps it with r. A {"data": ...}
// envelope is unwrapped one level first. Without a resolver the ResponseModel
// itself is returned.
func ResolveOne(ctx context.Context, r Resolver, value any) (any, error) {
	node := unwrapRelationship(value)
	if !isResourceNode(node) {
		return nil, nil
	}

	rm := NewResponseModel(node, r)
	if r == nil {
		return rm, nil
	}

	return r.Map(ctx, rm)
}

// ResolveMany maps every element of a list value with r, preserving order.
func ResolveMany(ctx context.Context, r Resolver, value any) ([]any, error) {
	list, ok := unwrapRelationship(value).([]any)
	if !ok {
		return nil, nil
	}

	out := make([]any, 0, len(list))

	for i, item := range list {
		mapped, err := ResolveOne(ctx, r, item)
		if err != nil {
			return nil, fmt.Errorf("item %d: %w", i, err)
		}

		out = append(out, mapped)
	}

	return out, nil
}

func unwrapRelationship(value any) any {
	if isResponseWithData(value) {
		return value.(map[string]any)["data"]
	}

	return value
}

// isResourceNode reports whether node is an object or a list. Scalars such as
// "", 0 or false mean nothing is related.
func isResourceNode(node any) bool {
	switch node.(type) {
	case map[string]any, []any:
		return true
	default:
		return false
	}
}
