package jsonapi

import (
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cast"
)

// Filter operators understood by JSON:API servers using the Drupal filter syntax.
const (
	OpEqual          = "="
	OpNotEqual       = "<>"
	OpGreater        = ">"
	OpGreaterOrEqual = ">="
	OpLess           = "<"
	OpLessOrEqual    = "<="
	OpStartsWith     = "STARTS_WITH"
	OpContains       = "CONTAINS"
	OpEndsWith       = "ENDS_WITH"
	OpIn             = "IN"
	OpNotIn          = "NOT IN"
	OpBetween        = "BETWEEN"
	OpNotBetween     = "NOT BETWEEN"
	OpIsNull         = "IS NULL"
	OpIsNotNull      = "IS NOT NULL"
)

// Group conjunctions.
const (
	ConjunctionAnd = "AND"
	ConjunctionOr  = "OR"
)

// Sort directions.
const (
	SortAsc  = "asc"
	SortDesc = "desc"
)

// Well-known parameter names.
const (
	ParamInclude        = "include"
	ParamJSONAPIInclude = "jsonapi_include"
	ParamPageLimit      = "page[limit]"
	ParamPageOffset     = "page[offset]"
)

var knownOperators = map[string]bool{
	OpEqual: true, OpNotEqual: true, OpGreater: true, OpGreaterOrEqual: true,
	OpLess: true, OpLessOrEqual: true, OpStartsWith: true, OpContains: true,
	OpEndsWith: true, OpIn: true, OpNotIn: true, OpBetween: true,
	OpNotBetween: true, OpIsNull: true, OpIsNotNull: true,
}

// Query accumulates JSON:API query parameters for one endpoint.
// It is not safe for concurrent mutation; use Clone to fork it.
type Query struct {
	endpoint  string
	params    *QueryParams
	lastGroup int
	current   string
	locale    string
	cache     CachePolicy
	err       error
	macros    *MacroRegistry
	events    *EventBus
}

// NewQuery creates a query for endpoint.
func NewQuery(endpoint string, opts ...Option) *Query {
	o := applyOptions(opts)

	return newQuery(endpoint, o)
}

func newQuery(endpoint string, o *options) *Query {
	return &Query{
		endpoint: strings.TrimSuffix(endpoint, "/"),
		params:   NewQueryParams(),
		locale:   o.locale,
		cache:    CacheForce,
		macros:   o.macros,
		events:   o.events,
	}
}

// Endpoint returns the endpoint path.
func (q *Query) Endpoint() string {
	return q.endpoint
}

// Err returns the first validation error recorded by a mutator.
func (q *Query) Err() error {
	return q.err
}

// Locale returns the locale prefix, if any.
func (q *Query) Locale() string {
	return q.locale
}

// CachePolicy returns the cache policy passed to the transport.
func (q *Query) CachePolicy() CachePolicy {
	return q.cache
}

// QueryParams returns a copy of the registered parameters.
func (q *Query) QueryParams() *QueryParams {
	return q.params.Clone()
}

// Param registers or overwrites a parameter. Slices become list parameters.
func (q *Query) Param(name string, value any) *Query {
	if values, ok := expandSlice(value); ok {
		q.params.SetList(name, values)
	} else {
		q.params.Set(name, cast.ToString(value))
	}

	q.events.Emit(Event{
		Name: EventParamAdded,
		Data: map[string]any{"name": name, "value": value},
	})

	return q
}

// Params registers every entry of params in key order.
func (q *Query) Params(params map[string]any) *Query {
	keys := make([]string, 0, len(params))
	for key := range params {
		keys = append(keys, key)
	}

	sort.Strings(keys)

	for _, key := range keys {
		q.Param(key, params[key])
	}

	return q
}

// Where adds a filter condition as a new group. A single slice argument is
// expanded into values. Validation errors are kept and returned by Err.
func (q *Query) Where(path, operator string, values ...any) *Query {
	op := strings.ToUpper(strings.TrimSpace(operator))

	if len(values) == 1 {
		if expanded, ok := expandSlice(values[0]); ok {
			values = make([]any, len(expanded))
			for i, v := range expanded {
				values[i] = v
			}
		} else if values[0] == nil {
			values = nil
		}
	}

	err := validateCondition(op, values)
	if err != nil {
		return q.fail(fmt.Errorf("where %q %s: %w", path, operator, err))
	}

	name := q.nextGroup()
	prefix := "filter[" + name + "][condition]"

	q.Param(prefix+"[path]", path)
	q.Param(prefix+"[operator]", op)

	switch {
	case op == OpIsNull || op == OpIsNotNull:
	case op == OpIn || op == OpNotIn || op == OpBetween || op == OpNotBetween:
		q.Param(prefix+"[value]", toStrings(values))
	default:
		// multiple values for a scalar operator are concatenated without a separator
		q.Param(prefix+"[value]", strings.Join(toStrings(values), ""))
	}

	if q.current != "" {
		q.Param(prefix+"[memberOf]", q.current)
	}

	return q
}

// WhereIn adds an IN condition.
func (q *Query) WhereIn(path string, values ...any) *Query {
	return q.Where(path, OpIn, values...)
}

// WhereNotIn adds a NOT IN condition.
func (q *Query) WhereNotIn(path string, values ...any) *Query {
	return q.Where(path, OpNotIn, values...)
}

// WhereIsNull adds an IS NULL condition.
func (q *Query) WhereIsNull(path string) *Query {
	return q.Where(path, OpIsNull)
}

// WhereIsNotNull adds an IS NOT NULL condition.
func (q *Query) WhereIsNotNull(path string) *Query {
	return q.Where(path, OpIsNotNull)
}

// WhereBetween adds a BETWEEN condition.
func (q *Query) WhereBetween(path string, from, to any) *Query {
	return q.Where(path, OpBetween, from, to)
}

// WhereNotBetween adds a NOT BETWEEN condition.
func (q *Query) WhereNotBetween(path string, from, to any) *Query {
	return q.Where(path, OpNotBetween, from, to)
}

// Group opens a conjunction group. Conditions and groups added inside fn
// become members of it.
func (q *Query) Group(conjunction string, fn func(q *Query)) *Query {
	name := q.nextGroup()
	prefix := "filter[" + name + "][group]"

	q.Param(prefix+"[conjunction]", strings.ToUpper(conjunction))

	if q.current != "" {
		q.Param(prefix+"[memberOf]", q.current)
	}

	parent := q.current
	q.current = name

	fn(q)

	q.current = parent

	return q
}

// Sort adds a sort directive. An empty direction sorts ascending.
func (q *Query) Sort(path, direction string) *Query {
	direction = strings.ToLower(direction)
	if direction == "" {
		direction = SortAsc
	}

	name := q.nextGroup()

	q.Param("sort["+name+"][path]", path)
	q.Param("sort["+name+"][direction]", direction)

	return q
}

// Include requests related resources. It does nothing without paths.
func (q *Query) Include(paths ...string) *Query {
	if len(paths) == 0 {
		return q
	}

	q.Param(ParamJSONAPIInclude, 1)
	q.Param(ParamInclude, strings.Join(paths, ","))

	return q
}

// Limit sets the page size.
func (q *Query) Limit(n int) *Query {
	return q.Param(ParamPageLimit, n)
}

// Paginate sets the page size and the zero-based offset of page.
func (q *Query) Paginate(page, perPage int) *Query {
	q.Limit(perPage)

	return q.Param(ParamPageOffset, max(page-1, 0)*perPage)
}

// Macro runs a registered macro against the query.
func (q *Query) Macro(name string, args ...any) *Query {
	err := q.macros.Execute(name, q, args...)
	if err != nil {
		return q.fail(err)
	}

	return q
}

// SetLocale prefixes the URL with locale.
func (q *Query) SetLocale(locale string) *Query {
	q.locale = strings.Trim(locale, "/")

	return q
}

// Cache lets the transport serve cached responses.
func (q *Query) Cache() *Query {
	q.cache = CacheForce

	return q
}

// NoCache bypasses transport caches.
func (q *Query) NoCache() *Query {
	q.cache = CacheNoStore

	return q
}

// Clone returns an independent copy sharing the registries and event bus.
func (q *Query) Clone() *Query {
	clone := *q
	clone.params = q.params.Clone()

	return &clone
}

// String returns the full relative URL.
func (q *Query) String() string {
	return q.buildURL(q.endpoint)
}

func (q *Query) buildURL(path string) string {
	prefix := ""
	if q.locale != "" {
		prefix = q.locale + "/"
	}

	return prefix + path + "/?" + q.params.Encode()
}

func (q *Query) nextGroup() string {
	q.lastGroup++

	return "g" + strconv.Itoa(q.lastGroup)
}

func (q *Query) fail(err error) *Query {
	if q.err == nil {
		q.err = err
	}

	return q
}

func validateCondition(op string, values []any) error {
	if !knownOperators[op] {
		return fmt.Errorf("%w: %q", ErrUnknownOperator, op)
	}

	switch op {
	case OpIsNull, OpIsNotNull:
		if len(values) > 0 {
			return ErrUnexpectedValue
		}
	case OpBetween, OpNotBetween:
		if len(values) == 0 {
			return ErrValueRequired
		}

		if len(values) != 2 {
			return fmt.Errorf("%w, got %d", ErrValueArity, len(values))
		}
	default:
		if len(values) == 0 {
			return ErrValueRequired
		}
	}

	return nil
}

// expandSlice converts any slice or array except []byte into strings.
func expandSlice(value any) ([]string, bool) {
	if value == nil {
		return nil, false
	}

	rv := reflect.ValueOf(value)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}

	if rv.Type().Elem().Kind() == reflect.Uint8 {
		return nil, false
	}

	out := make([]string, rv.Len())
	for i := range out {
		out[i] = cast.ToString(rv.Index(i).Interface())
	}

	return out, true
}

func toStrings(values []any) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = cast.ToString(v)
	}

	return out
}
