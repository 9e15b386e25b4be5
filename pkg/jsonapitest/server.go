// Package jsonapitest provides an in-process JSON:API server for tests.
//
// The server understands the query strings built by jsonapi.Query: page[limit]
// and page[offset] paginate, sort groups order the collection by their first
// path, and filter conditions with the =, <>, CONTAINS, IN, IS NULL and
// IS NOT NULL operators are combined with AND. Group conjunctions are ignored.
package jsonapitest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"slices"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cast"

	"github.com/fivetwenty-io/jsonapi-client/internal/constants"
)

// Resource is one JSON:API resource object.
type Resource = map[string]any

// RecordedRequest is a request the server received.
type RecordedRequest struct {
	Method   string
	Path     string
	RawQuery string
	Header   http.Header
}

// Server is a JSON:API fixture server.
type Server struct {
	*httptest.Server

	mu          sync.Mutex
	collections map[string][]Resource
	locales     []string
	clientID    string
	secret      string
	accessToken string
	expiresIn   int
	requests    []RecordedRequest
	failures    []int
	tokenCalls  int
}

// Option configures a Server.
type Option func(*Server)

// WithClientCredentials requires a bearer token issued by /oauth/token for
// the given client.
func WithClientCredentials(clientID, secret, accessToken string) Option {
	return func(s *Server) {
		s.clientID = clientID
		s.secret = secret
		s.accessToken = accessToken
	}
}

// WithTokenLifetime sets expires_in of issued tokens.
func WithTokenLifetime(seconds int) Option {
	return func(s *Server) {
		s.expiresIn = seconds
	}
}

// WithLocales accepts the given locale prefixes in front of every endpoint.
func WithLocales(locales ...string) Option {
	return func(s *Server) {
		s.locales = locales
	}
}

// New starts a server. Call Close when done.
func New(opts ...Option) *Server {
	s := &Server{
		collections: map[string][]Resource{},
		expiresIn:   3600,
	}

	for _, opt := range opts {
		opt(s)
	}

	router := chi.NewRouter()
	router.Use(middleware.Recoverer)
	router.Use(s.record)
	router.Use(s.injectFailures)
	router.Post(constants.DefaultTokenPath, s.handleToken)
	router.With(s.authenticate).Get("/*", s.handleGet)

	s.Server = httptest.NewServer(router)

	return s
}

// AddResources appends resources to the collection served at endpoint.
func (s *Server) AddResources(endpoint string, resources ...Resource) {
	s.mu.Lock()
	defer s.mu.Unlock()

	endpoint = strings.Trim(endpoint, "/")
	s.collections[endpoint] = append(s.collections[endpoint], resources...)
}

// FailNext answers the next requests with the given statuses, in order.
func (s *Server) FailNext(statuses ...int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.failures = append(s.failures, statuses...)
}

// Requests returns the requests received so far, token requests included.
func (s *Server) Requests() []RecordedRequest {
	s.mu.Lock()
	defer s.mu.Unlock()

	return slices.Clone(s.requests)
}

// TokenCalls returns how many token requests succeeded.
func (s *Server) TokenCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.tokenCalls
}

// NewResource builds a resource object.
func NewResource(resourceType, id string, attributes map[string]any) Resource {
	resource := Resource{"type": resourceType, "id": id}
	if attributes != nil {
		resource["attributes"] = attributes
	}

	return resource
}

func (s *Server) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.requests = append(s.requests, RecordedRequest{
			Method:   r.Method,
			Path:     r.URL.Path,
			RawQuery: r.URL.RawQuery,
			Header:   r.Header.Clone(),
		})
		s.mu.Unlock()

		next.ServeHTTP(w, r)
	})
}

func (s *Server) injectFailures(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()

		status := 0
		if len(s.failures) > 0 {
			status = s.failures[0]
			s.failures = s.failures[1:]
		}

		s.mu.Unlock()

		if status != 0 {
			writeErrors(w, status, http.StatusText(status), "injected failure")

			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.accessToken != "" && r.Header.Get("Authorization") != "Bearer "+s.accessToken {
			writeErrors(w, http.StatusUnauthorized, "Unauthorized", "missing or invalid bearer token")

			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleToken(w http.ResponseWriter, r *http.Request) {
	err := r.ParseForm()
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid_request"})

		return
	}

	clientID, secret, ok := r.BasicAuth()
	if !ok {
		clientID = r.Form.Get("client_id")
		secret = r.Form.Get("client_secret")
	}

	if r.Form.Get("grant_type") != "client_credentials" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error":             "unsupported_grant_type",
			"error_description": "only client_credentials is supported",
		})

		return
	}

	if clientID != s.clientID || secret != s.secret {
		writeJSON(w, http.StatusUnauthorized, map[string]string{
			"error":             "invalid_client",
			"error_description": "Client authentication failed",
		})

		return
	}

	s.mu.Lock()
	s.tokenCalls++
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{
		"access_token": s.accessToken,
		"token_type":   "Bearer",
		"expires_in":   s.expiresIn,
	})
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	path := strings.Trim(chi.URLParam(r, "*"), "/")
	path = s.stripLocale(path)

	s.mu.Lock()
	collection, endpoint, id := s.lookup(path)
	s.mu.Unlock()

	if endpoint == "" {
		writeErrors(w, http.StatusNotFound, "Not Found", fmt.Sprintf("no route for %q", path))

		return
	}

	if id != "" {
		index := slices.IndexFunc(collection, func(resource Resource) bool { return cast.ToString(resource["id"]) == id })
		if index < 0 {
			writeErrors(w, http.StatusNotFound, "Not Found", fmt.Sprintf("no resource %q in %s", id, endpoint))

			return
		}

		writeDocument(w, collection[index], nil)

		return
	}

	query := r.URL.Query()
	entries := filterResources(collection, query)
	sortResources(entries, query)

	total := len(entries)
	offset := min(max(cast.ToInt(query.Get("page[offset]")), 0), total)
	entries = entries[offset:]

	if limit := cast.ToInt(query.Get("page[limit]")); limit > 0 && limit < len(entries) {
		entries = entries[:limit]
	}

	data := make([]any, 0, len(entries))
	for _, entry := range entries {
		data = append(data, entry)
	}

	writeDocument(w, data, map[string]any{"count": strconv.Itoa(total)})
}

func (s *Server) stripLocale(path string) string {
	for _, locale := range s.locales {
		if rest, ok := strings.CutPrefix(path, locale+"/"); ok {
			return rest
		}
	}

	return path
}

func (s *Server) lookup(path string) ([]Resource, string, string) {
	if collection, ok := s.collections[path]; ok {
		return slices.Clone(collection), path, ""
	}

	index := strings.LastIndex(path, "/")
	if index < 0 {
		return nil, "", ""
	}

	endpoint := path[:index]
	if collection, ok := s.collections[endpoint]; ok {
		id, err := url.PathUnescape(path[index+1:])
		if err != nil {
			return nil, "", ""
		}

		return slices.Clone(collection), endpoint, id
	}

	return nil, "", ""
}

type condition struct {
	path     string
	operator string
	values   []string
}

func parseConditions(query url.Values) []condition {
	groups := map[string]*condition{}

	for key, values := range query {
		rest, ok := strings.CutPrefix(key, "filter[")
		if !ok {
			continue
		}

		name, field, ok := strings.Cut(rest, "][condition][")
		if !ok {
			continue
		}

		cond := groups[name]
		if cond == nil {
			cond = &condition{}
			groups[name] = cond
		}

		switch {
		case field == "path]":
			cond.path = values[0]
		case field == "operator]":
			cond.operator = strings.ToUpper(values[0])
		case strings.HasPrefix(field, "value]"):
			cond.values = append(cond.values, values...)
		}
	}

	conditions := make([]condition, 0, len(groups))
	for _, cond := range groups {
		if cond.path != "" {
			conditions = append(conditions, *cond)
		}
	}

	return conditions
}

func filterResources(collection []Resource, query url.Values) []Resource {
	conditions := parseConditions(query)

	return slices.DeleteFunc(collection, func(resource Resource) bool {
		for _, cond := range conditions {
			if !cond.matches(resource) {
				return true
			}
		}

		return false
	})
}

func (c condition) matches(resource Resource) bool {
	value, present := field(resource, c.path)
	text := cast.ToString(value)
	first := ""

	if len(c.values) > 0 {
		first = c.values[0]
	}

	switch c.operator {
	case "=", "":
		return present && text == first
	case "<>":
		return text != first
	case "CONTAINS":
		return present && strings.Contains(text, first)
	case "IN":
		return present && slices.Contains(c.values, text)
	case "IS NULL":
		return value == nil
	case "IS NOT NULL":
		return value != nil
	default:
		return true
	}
}

func sortResources(entries []Resource, query url.Values) {
	keys := make([]string, 0)

	for key := range query {
		if strings.HasPrefix(key, "sort[") && strings.HasSuffix(key, "][path]") {
			keys = append(keys, key)
		}
	}

	if len(keys) == 0 {
		return
	}

	sort.Strings(keys)

	path := query.Get(keys[0])
	descending := strings.EqualFold(query.Get(strings.TrimSuffix(keys[0], "[path]")+"[direction]"), "desc")

	slices.SortStableFunc(entries, func(a, b Resource) int {
		left, _ := field(a, path)
		right, _ := field(b, path)
		result := strings.Compare(cast.ToString(left), cast.ToString(right))

		if descending {
			return -result
		}

		return result
	})
}

// field resolves id, type or a dotted attribute path.
func field(resource Resource, path string) (any, bool) {
	if path == "id" || path == "type" {
		value, ok := resource[path]

		return value, ok
	}

	var current any = resource["attributes"]

	for _, part := range strings.Split(path, ".") {
		node, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}

		current, ok = node[part]
		if !ok {
			return nil, false
		}
	}

	return current, true
}

func writeDocument(w http.ResponseWriter, data any, meta map[string]any) {
	document := map[string]any{
		"jsonapi": map[string]any{"version": "1.0"},
		"data":    data,
	}
	if meta != nil {
		document["meta"] = meta
	}

	writeJSON(w, http.StatusOK, document)
}

func writeErrors(w http.ResponseWriter, status int, title, detail string) {
	w.Header().Set("Content-Type", constants.MediaTypeJSONAPI)
	w.WriteHeader(status)

	_ = json.NewEncoder(w).Encode(map[string]any{
		"jsonapi": map[string]any{"version": "1.0"},
		"errors": []any{map[string]any{
			"title":  title,
			"status": strconv.Itoa(status),
			"detail": detail,
		}},
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", constants.MediaTypeJSONAPI)
	w.WriteHeader(status)

	_ = json.NewEncoder(w).Encode(body)
}
