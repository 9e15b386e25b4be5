package jsonapi

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cast"
)

// ErrUnexpectedModel is returned when the default mapper produces a value of the wrong type.
var ErrUnexpectedModel = errors.New("mapped value has an unexpected type")

// QueryBuilder executes a Query and maps the results into T.
type QueryBuilder[T any] struct {
	q        *Query
	client   HTTPClient
	mapper   Mapper[T]
	gate     GateFunc
	resolver Resolver
	events   *EventBus
	logger   Logger
}

// NewQueryBuilder creates a builder for endpoint. A nil mapper maps through
// the configured resolver and asserts the result to T.
func NewQueryBuilder[T any](client HTTPClient, endpoint string, mapper Mapper[T], opts ...Option) *QueryBuilder[T] {
	o := applyOptions(opts)

	if mapper == nil {
		mapper = resolverMapper[T](o.resolver)
	}

	return &QueryBuilder[T]{
		q:        newQuery(endpoint, o),
		client:   client,
		mapper:   mapper,
		gate:     o.gate,
		resolver: o.resolver,
		events:   o.events,
		logger:   o.logger,
	}
}

func resolverMapper[T any](r Resolver) Mapper[T] {
	auto := AutoMap(r)

	return func(ctx context.Context, rm *ResponseModel) (T, error) {
		var zero T

		mapped, err := auto(ctx, rm)
		if err != nil {
			return zero, err
		}

		value, ok := mapped.(T)
		if !ok {
			return zero, fmt.Errorf("%w: %T", ErrUnexpectedModel, mapped)
		}

		return value, nil
	}
}

// Query returns the underlying query.
func (b *QueryBuilder[T]) Query() *Query {
	return b.q
}

// Err returns the first validation error recorded by a mutator.
func (b *QueryBuilder[T]) Err() error {
	return b.q.Err()
}

// String returns the full relative URL.
func (b *QueryBuilder[T]) String() string {
	return b.q.String()
}

// Clone returns an independent copy of the builder.
func (b *QueryBuilder[T]) Clone() *QueryBuilder[T] {
	clone := *b
	clone.q = b.q.Clone()

	return &clone
}

// Param registers or overwrites a parameter.
func (b *QueryBuilder[T]) Param(name string, value any) *QueryBuilder[T] {
	b.q.Param(name, value)

	return b
}

// Params registers every entry of params in key order.
func (b *QueryBuilder[T]) Params(params map[string]any) *QueryBuilder[T] {
	b.q.Params(params)

	return b
}

// Where adds a filter condition.
func (b *QueryBuilder[T]) Where(path, operator string, values ...any) *QueryBuilder[T] {
	b.q.Where(path, operator, values...)

	return b
}

// WhereIn adds an IN condition.
func (b *QueryBuilder[T]) WhereIn(path string, values ...any) *QueryBuilder[T] {
	b.q.WhereIn(path, values...)

	return b
}

// WhereNotIn adds a NOT IN condition.
func (b *QueryBuilder[T]) WhereNotIn(path string, values ...any) *QueryBuilder[T] {
	b.q.WhereNotIn(path, values...)

	return b
}

// WhereIsNull adds an IS NULL condition.
func (b *QueryBuilder[T]) WhereIsNull(path string) *QueryBuilder[T] {
	b.q.WhereIsNull(path)

	return b
}

// WhereIsNotNull adds an IS NOT NULL condition.
func (b *QueryBuilder[T]) WhereIsNotNull(path string) *QueryBuilder[T] {
	b.q.WhereIsNotNull(path)

	return b
}

// WhereBetween adds a BETWEEN condition.
func (b *QueryBuilder[T]) WhereBetween(path string, from, to any) *QueryBuilder[T] {
	b.q.WhereBetween(path, from, to)

	return b
}

// WhereNotBetween adds a NOT BETWEEN condition.
func (b *QueryBuilder[T]) WhereNotBetween(path string, from, to any) *QueryBuilder[T] {
	b.q.WhereNotBetween(path, from, to)

	return b
}

// Group opens a conjunction group; fn receives this builder.
func (b *QueryBuilder[T]) Group(conjunction string, fn func(b *QueryBuilder[T])) *QueryBuilder[T] {
	b.q.Group(conjunction, func(*Query) { fn(b) })

	return b
}

// Sort adds a sort directive.
func (b *QueryBuilder[T]) Sort(path, direction string) *QueryBuilder[T] {
	b.q.Sort(path, direction)

	return b
}

// Include requests related resources.
func (b *QueryBuilder[T]) Include(paths ...string) *QueryBuilder[T] {
	b.q.Include(paths...)

	return b
}

// Limit sets the page size.
func (b *QueryBuilder[T]) Limit(n int) *QueryBuilder[T] {
	b.q.Limit(n)

	return b
}

// Paginate sets the page size and offset.
func (b *QueryBuilder[T]) Paginate(page, perPage int) *QueryBuilder[T] {
	b.q.Paginate(page, perPage)

	return b
}

// Macro runs a registered macro.
func (b *QueryBuilder[T]) Macro(name string, args ...any) *QueryBuilder[T] {
	b.q.Macro(name, args...)

	return b
}

// SetLocale prefixes the URL with locale.
func (b *QueryBuilder[T]) SetLocale(locale string) *QueryBuilder[T] {
	b.q.SetLocale(locale)

	return b
}

// Cache lets the transport serve cached responses.
func (b *QueryBuilder[T]) Cache() *QueryBuilder[T] {
	b.q.Cache()

	return b
}

// NoCache bypasses transport caches.
func (b *QueryBuilder[T]) NoCache() *QueryBuilder[T] {
	b.q.NoCache()

	return b
}

// Gate sets the predicate applied to entries before mapping.
func (b *QueryBuilder[T]) Gate(gate GateFunc) *QueryBuilder[T] {
	b.gate = gate

	return b
}

type fetchResult struct {
	id       string
	url      string
	response RawResponse
	duration time.Duration
}

func (b *QueryBuilder[T]) fetch(ctx context.Context, path string) (*fetchResult, error) {
	err := b.q.Err()
	if err != nil {
		return nil, err
	}

	if b.client == nil {
		return nil, ErrNoHTTPClient
	}

	result := &fetchResult{
		id:  uuid.NewString(),
		url: b.q.buildURL(path),
	}

	b.events.Emit(Event{Name: EventPreFetch, QueryID: result.id, Data: map[string]any{"url": result.url}})
	b.logger.Debug("Executing query", map[string]interface{}{
		"query_id": result.id,
		"url":      result.url,
		"cache":    string(b.q.cache),
	})

	start := time.Now()

	response, err := b.client.Get(ctx, result.url, RequestOptions{Cache: b.q.cache})
	if err != nil {
		b.logger.Error("Query failed", map[string]interface{}{
			"query_id": result.id,
			"url":      result.url,
			"error":    err.Error(),
		})

		return nil, err
	}

	result.response = response
	result.duration = time.Since(start)

	b.events.Emit(Event{
		Name:    EventPostFetch,
		QueryID: result.id,
		Data:    map[string]any{"url": result.url, "duration": result.duration},
	})

	return result, nil
}

// Get executes the query and maps every entry.
func (b *QueryBuilder[T]) Get(ctx context.Context) (*ResultSet[T], error) {
	fetched, err := b.fetch(ctx, b.q.endpoint)
	if err != nil {
		return nil, err
	}

	err = validateResponse(fetched.url, fetched.response)
	if err != nil {
		return nil, err
	}

	document, _ := fetched.response.(map[string]any)

	var entries []any

	switch data := document["data"].(type) {
	case []any:
		entries = data
	case map[string]any:
		entries = []any{data}
	}

	start := time.Now()
	results := NewResultSet[T]()
	excluded := 0

	for i, entry := range entries {
		rm := NewResponseModel(entry, b.resolver)

		if b.gate != nil && !b.gate(rm) {
			excluded++

			continue
		}

		mapped, err := b.mapper(ctx, rm)
		if err != nil {
			return nil, fmt.Errorf("failed to map entry %d of %s: %w", i, fetched.url, err)
		}

		results.Push(mapped)
	}

	if excluded > 0 {
		b.logger.Debug("Entries excluded by gate", map[string]interface{}{
			"query_id": fetched.id,
			"excluded": excluded,
		})
	}

	count, ok := responseCount(fetched.response)
	if !ok {
		count = len(entries)
	}

	perPage := len(entries)
	if limit, ok := b.q.params.Get(ParamPageLimit); ok {
		perPage = cast.ToInt(limit)
	}

	results.SetMeta(ResultSetMeta{
		QueryID: fetched.id,
		URL:     fetched.url,
		Params:  b.q.params.Snapshot(),
		Performance: Performance{
			Query:   fetched.duration,
			Mapping: time.Since(start),
		},
		Count:          count,
		Pages:          pageCount(count, perPage),
		PerPage:        perPage,
		ExcludedByGate: excluded,
	})

	b.events.Emit(Event{
		Name:    EventResultSetReady,
		QueryID: fetched.id,
		Data:    map[string]any{"meta": results.Meta(), "items": results.Len()},
	})

	return results, nil
}

func pageCount(count, perPage int) int {
	if count <= 0 {
		return 0
	}

	if perPage <= 0 {
		return 1
	}

	return int(math.Ceil(float64(count) / float64(perPage)))
}

// Find fetches {endpoint}/{id} and maps the single resource.
func (b *QueryBuilder[T]) Find(ctx context.Context, id string) (T, error) {
	var zero T

	fetched, err := b.fetch(ctx, b.q.endpoint+"/"+url.PathEscape(id))
	if err != nil {
		return zero, err
	}

	err = validateResponse(fetched.url, fetched.response)
	if err != nil {
		return zero, err
	}

	document, _ := fetched.response.(map[string]any)

	entry, ok := document["data"].(map[string]any)
	if !ok {
		return zero, &InvalidResponseError{URL: fetched.url, Reason: "expected a single resource object"}
	}

	rm := NewResponseModel(entry, b.resolver)
	if b.gate != nil && !b.gate(rm) {
		return zero, fmt.Errorf("%w: %s", ErrExcludedByGate, id)
	}

	mapped, err := b.mapper(ctx, rm)
	if err != nil {
		return zero, fmt.Errorf("failed to map %s: %w", fetched.url, err)
	}

	return mapped, nil
}

// First returns the first result of Get.
func (b *QueryBuilder[T]) First(ctx context.Context) (T, error) {
	var zero T

	results, err := b.Get(ctx)
	if err != nil {
		return zero, err
	}

	first, ok := results.Get(0)
	if !ok {
		return zero, ErrNoResults
	}

	return first, nil
}

// All fetches every page of batchSize entries sequentially and concatenates them.
func (b *QueryBuilder[T]) All(ctx context.Context, batchSize int) (*ResultSet[T], error) {
	if batchSize <= 0 {
		return nil, ErrInvalidBatchSize
	}

	pager := b.Clone()

	combined, err := pager.Paginate(1, batchSize).Get(ctx)
	if err != nil {
		return nil, err
	}

	pages := combined.Meta().Pages

	for page := 2; page <= pages; page++ {
		next, err := pager.Paginate(page, batchSize).Get(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch page %d: %w", page, err)
		}

		combined = combined.Concat(next)
	}

	return normalizeAll(combined), nil
}

// AllConcurrent fetches the first page, then the remaining pages with at most
// concurrency requests in flight. Results keep page order.
func (b *QueryBuilder[T]) AllConcurrent(ctx context.Context, batchSize, concurrency int) (*ResultSet[T], error) {
	if batchSize <= 0 {
		return nil, ErrInvalidBatchSize
	}

	if concurrency <= 0 {
		concurrency = 1
	}

	first, err := b.Clone().Paginate(1, batchSize).Get(ctx)
	if err != nil {
		return nil, err
	}

	pages := first.Meta().Pages
	if pages <= 1 {
		return normalizeAll(first), nil
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	results := make([]*ResultSet[T], pages+1)
	results[1] = first

	var (
		waitGroup sync.WaitGroup
		errOnce   sync.Once
		firstErr  error
	)

	semaphore := make(chan struct{}, concurrency)

	for page := 2; page <= pages; page++ {
		waitGroup.Add(1)

		go func(page int) {
			defer waitGroup.Done()

			semaphore <- struct{}{}

			defer func() { <-semaphore }()

			fail := func(err error) {
				errOnce.Do(func() {
					firstErr = fmt.Errorf("failed to fetch page %d: %w", page, err)

					cancel()
				})
			}

			if err := ctx.Err(); err != nil {
				fail(err)

				return
			}

			rs, err := b.Clone().Paginate(page, batchSize).Get(ctx)
			if err != nil {
				fail(err)

				return
			}

			results[page] = rs
		}(page)
	}

	waitGroup.Wait()

	if firstErr != nil {
		return nil, firstErr
	}

	combined := first
	for page := 2; page <= pages; page++ {
		if results[page] == nil {
			return nil, fmt.Errorf("%w: page %d was not fetched", ErrNoResults, page)
		}

		combined = combined.Concat(results[page])
	}

	return normalizeAll(combined), nil
}

func normalizeAll[T any](rs *ResultSet[T]) *ResultSet[T] {
	meta := rs.Meta()
	meta.Pages = 1
	meta.PerPage = meta.Count
	rs.SetMeta(meta)

	return rs
}

// GetRaw executes the query and maps the whole response as one ResponseModel.
func (b *QueryBuilder[T]) GetRaw(ctx context.Context) (T, error) {
	var zero T

	fetched, err := b.fetch(ctx, b.q.endpoint)
	if err != nil {
		return zero, err
	}

	if !isRawResponse(fetched.response) {
		return zero, &InvalidResponseError{URL: fetched.url, Reason: "response is not an object or array"}
	}

	return b.mapper(ctx, NewResponseModel(fetched.response, b.resolver))
}
