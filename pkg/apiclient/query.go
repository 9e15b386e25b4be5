package apiclient

import (
	"errors"
	"fmt"

	"github.com/fivetwenty-io/jsonapi-client/pkg/jsonapi"
)

// Static errors for err113 compliance.
var (
	ErrModelEndpointRequired = errors.New("model does not declare an endpoint")
)

// Query creates a builder on endpoint sharing the client's macros, event bus,
// AutoMapper and default locale. A nil mapper maps through the AutoMapper and
// asserts the result to T. opts are applied last.
func Query[T any](c *Client, endpoint string, mapper jsonapi.Mapper[T], opts ...jsonapi.Option) *jsonapi.QueryBuilder[T] {
	return jsonapi.NewQueryBuilder(c, endpoint, mapper, append(c.queryOptions(), opts...)...)
}

// Models creates a builder returning raw response models.
func Models(c *Client, endpoint string, opts ...jsonapi.Option) *jsonapi.QueryBuilder[*jsonapi.ResponseModel] {
	return Query(c, endpoint, jsonapi.Models(), opts...)
}

// Auto creates a builder mapping every entry through the AutoMapper. Entries
// without a registration come back as *jsonapi.ResponseModel.
func Auto(c *Client, endpoint string, opts ...jsonapi.Option) *jsonapi.QueryBuilder[any] {
	return Query[any](c, endpoint, nil, opts...)
}

// QueryModel creates a builder for the model built by newModel. The model
// must implement jsonapi.Endpointer; jsonapi.Includer and jsonapi.Gater are
// honored when implemented.
func QueryModel[T jsonapi.Mappable](c *Client, newModel func() T, opts ...jsonapi.Option) (*jsonapi.QueryBuilder[T], error) {
	probe := newModel()

	endpointer, ok := any(probe).(jsonapi.Endpointer)
	if !ok || endpointer.Endpoint() == "" {
		return nil, fmt.Errorf("%w: %T", ErrModelEndpointRequired, probe)
	}

	if gater, ok := any(probe).(jsonapi.Gater); ok {
		opts = append([]jsonapi.Option{jsonapi.WithGate(gater.Gate)}, opts...)
	}

	builder := Query(c, endpointer.Endpoint(), jsonapi.MapInto(newModel), opts...)

	if includer, ok := any(probe).(jsonapi.Includer); ok {
		if includes := includer.Includes(); len(includes) > 0 {
			builder.Include(includes...)
		}
	}

	return builder, nil
}

func (c *Client) queryOptions() []jsonapi.Option {
	return []jsonapi.Option{
		jsonapi.WithMacros(c.macros),
		jsonapi.WithEventBus(c.events),
		jsonapi.WithResolver(c.mapper),
		jsonapi.WithLogger(c.logger),
		jsonapi.WithLocale(c.locale),
	}
}
