// Package jsonapi builds JSON:API queries and maps their responses into
// domain models.
//
// # Overview
//
// A Query accumulates filter groups, sorts, pagination and includes in the
// Drupal JSON:API filter syntax. A QueryBuilder wraps a Query with an
// HTTPClient and a Mapper and executes it. Responses are validated, split into
// ResponseModel values and mapped in input order into a ResultSet.
//
// Building a query
//
//	qb := jsonapi.NewQueryBuilder[any](client, "api/articles", nil,
//	  jsonapi.WithResolver(mapper))
//
//	qb.Where("status", "=", 1).
//	  Group("or", func(g *jsonapi.QueryBuilder[any]) {
//	    g.Where("title", "CONTAINS", "go").
//	      WhereIn("category.id", []string{"a", "b"})
//	  }).
//	  Sort("created", jsonapi.SortDesc).
//	  Include("category").
//	  Paginate(1, 20)
//
//	results, err := qb.Get(ctx)
//
// Validation errors raised by Where or Macro are kept by the builder and
// returned by Err and by every executing method, which then sends nothing.
//
// # Mapping
//
// Models implement Mappable and are registered with an AutoMapper under a
// discriminator, the resource type by default. Entries without a matching
// registration are returned as *ResponseModel. ResponseModel.HasOne and
// HasMany resolve relationship data through the same AutoMapper.
//
// # Errors
//
// Error payloads and malformed documents are reported as
// *InvalidResponseError; use errors.Is(err, ErrInvalidResponse) or
// IsInvalidResponse to branch on them. Transport errors are returned unchanged.
//
// # Events and metrics
//
// An EventBus receives paramAdded, preFetch, postFetch and resultSetReady
// events. Metrics subscribes Prometheus collectors to a bus.
package jsonapi
