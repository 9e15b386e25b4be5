package apiclient_test

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/fivetwenty-io/jsonapi-client/internal/auth"
	"github.com/fivetwenty-io/jsonapi-client/pkg/apiclient"
	"github.com/fivetwenty-io/jsonapi-client/pkg/jsonapi"
	"github.com/fivetwenty-io/jsonapi-client/pkg/jsonapitest"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errBlocked = errors.New("blocked")

type tag struct {
	ID   string
	Name string
}

func (tg *tag) MapFrom(_ context.Context, rm *jsonapi.ResponseModel) error {
	tg.ID = rm.ID()
	tg.Name = rm.String("attributes.name")

	return nil
}

func (tg *tag) Endpoint() string {
	return "api/tags"
}

func (tg *tag) Gate(rm *jsonapi.ResponseModel) bool {
	return rm.String("attributes.name") != "hidden"
}

type untagged struct{}

func (*untagged) MapFrom(context.Context, *jsonapi.ResponseModel) error {
	return nil
}

type memoryStore struct {
	mu     sync.Mutex
	tokens map[string]*auth.Token
}

func (s *memoryStore) Token(profile string) *auth.Token {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.tokens[profile]
}

func (s *memoryStore) SaveToken(profile string, token *auth.Token) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.tokens == nil {
		s.tokens = map[string]*auth.Token{}
	}

	s.tokens[profile] = token

	return nil
}

type fakePublisher struct {
	mu       sync.Mutex
	subjects []string
}

func (p *fakePublisher) Publish(subject string, _ []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.subjects = append(p.subjects, subject)

	return nil
}

func newServer(t *testing.T, opts ...jsonapitest.Option) *jsonapitest.Server {
	t.Helper()

	server := jsonapitest.New(opts...)
	t.Cleanup(server.Close)

	server.AddResources("api/tags",
		jsonapitest.NewResource("tag", "1", map[string]any{"name": "go"}),
		jsonapitest.NewResource("tag", "2", map[string]any{"name": "hidden"}),
		jsonapitest.NewResource("tag", "3", map[string]any{"name": "rust"}),
	)

	return server
}

func fastRetries(cfg *jsonapi.Config) *jsonapi.Config {
	cfg.RetryMax = 2
	cfg.RetryWaitMin = time.Millisecond
	cfg.RetryWaitMax = 5 * time.Millisecond

	return cfg
}

func TestNew(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		config  *jsonapi.Config
		wantErr error
		baseURL string
	}{
		{name: "nil config", config: nil, wantErr: jsonapi.ErrConfigRequired},
		{name: "missing base URL", config: &jsonapi.Config{}, wantErr: jsonapi.ErrBaseURLRequired},
		{
			name:    "incomplete credentials",
			config:  &jsonapi.Config{BaseURL: "cms.example.com", ClientID: "id"},
			wantErr: jsonapi.ErrFalsyConfigValue,
		},
		{name: "adds scheme", config: &jsonapi.Config{BaseURL: "cms.example.com/"}, baseURL: "https://cms.example.com"},
		{name: "keeps http", config: &jsonapi.Config{BaseURL: "http://localhost:8080"}, baseURL: "http://localhost:8080"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			client, err := apiclient.New(context.Background(), tt.config)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, client)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.baseURL, client.BaseURL())
			assert.NoError(t, client.Close())
		})
	}
}

func TestClient_QueryModel(t *testing.T) {
	t.Parallel()

	server := newServer(t)

	client, err := apiclient.NewWithEndpoint(t.Context(), server.URL)
	require.NoError(t, err)

	builder, err := apiclient.QueryModel(client, func() *tag { return &tag{} })
	require.NoError(t, err)

	results, err := builder.Sort("name", jsonapi.SortAsc).Get(t.Context())
	require.NoError(t, err)

	names := jsonapi.MapResults(results, func(item *tag, _ int) string { return item.Name })
	assert.Equal(t, []string{"go", "rust"}, names)
	assert.Equal(t, 3, results.Meta().Count)
	assert.Equal(t, 1, results.Meta().ExcludedByGate)

	found, err := builder.Find(t.Context(), "3")
	require.NoError(t, err)
	assert.Equal(t, "rust", found.Name)

	_, err = apiclient.QueryModel(client, func() *untagged { return &untagged{} })
	assert.ErrorIs(t, err, apiclient.ErrModelEndpointRequired)
}

func TestClient_AutoMapping(t *testing.T) {
	t.Parallel()

	server := newServer(t)

	client, err := apiclient.NewWithEndpoint(t.Context(), server.URL)
	require.NoError(t, err)

	client.RegisterModels(jsonapi.Register("tag", func() jsonapi.Mappable { return &tag{} }))
	client.RegisterMacro("named", func(q *jsonapi.Query, args ...any) {
		q.Where("name", "=", args...)
	})

	results, err := apiclient.Auto(client, "api/tags").Macro("named", "go").Get(t.Context())
	require.NoError(t, err)
	require.Equal(t, 1, results.Len())

	first, _ := results.Get(0)
	assert.Equal(t, &tag{ID: "1", Name: "go"}, first)

	models, err := apiclient.Models(client, "api/tags").Limit(1).Get(t.Context())
	require.NoError(t, err)
	require.Equal(t, 1, models.Len())
	assert.Equal(t, 3, models.Meta().Pages)
}

func TestClient_Locale(t *testing.T) {
	t.Parallel()

	server := newServer(t, jsonapitest.WithLocales("de"))

	client, err := apiclient.New(t.Context(), &jsonapi.Config{BaseURL: server.URL, DefaultLocale: "de"})
	require.NoError(t, err)

	results, err := apiclient.Models(client, "api/tags").Get(t.Context())
	require.NoError(t, err)
	assert.Equal(t, 3, results.Len())

	requests := server.Requests()
	require.NotEmpty(t, requests)
	assert.Equal(t, "/de/api/tags/", requests[len(requests)-1].Path)
}

func TestClient_CacheHeaders(t *testing.T) {
	t.Parallel()

	server := newServer(t)

	client, err := apiclient.NewWithEndpoint(t.Context(), server.URL)
	require.NoError(t, err)

	_, err = apiclient.Models(client, "api/tags").Get(t.Context())
	require.NoError(t, err)

	_, err = apiclient.Models(client, "api/tags").NoCache().Get(t.Context())
	require.NoError(t, err)

	requests := server.Requests()
	require.Len(t, requests, 2)
	assert.Equal(t, "max-stale", requests[0].Header.Get("Cache-Control"))
	assert.Equal(t, "no-store", requests[1].Header.Get("Cache-Control"))
	assert.Equal(t, "application/vnd.api+json", requests[0].Header.Get("Accept"))
}

//nolint:funlen // Test functions can be longer for comprehensive testing
func TestClient_Errors(t *testing.T) {
	t.Parallel()

	t.Run("JSON:API error document", func(t *testing.T) {
		t.Parallel()

		server := newServer(t)

		client, err := apiclient.NewWithEndpoint(t.Context(), server.URL)
		require.NoError(t, err)

		_, err = apiclient.Models(client, "api/tags").Find(t.Context(), "404")
		require.ErrorIs(t, err, jsonapi.ErrInvalidResponse)

		invalid := &jsonapi.InvalidResponseError{}
		require.ErrorAs(t, err, &invalid)
		require.NotNil(t, invalid.First)
		assert.Equal(t, "404", invalid.First.Status)
	})

	t.Run("retries server errors", func(t *testing.T) {
		t.Parallel()

		server := newServer(t)
		server.FailNext(http.StatusServiceUnavailable, http.StatusBadGateway)

		client, err := apiclient.New(t.Context(), fastRetries(&jsonapi.Config{BaseURL: server.URL}))
		require.NoError(t, err)

		results, err := apiclient.Models(client, "api/tags").Get(t.Context())
		require.NoError(t, err)
		assert.Equal(t, 3, results.Len())
		assert.Len(t, server.Requests(), 3)
	})

	t.Run("token errors propagate", func(t *testing.T) {
		t.Parallel()

		server := newServer(t, jsonapitest.WithClientCredentials("id", "secret", "token-1"))

		client, err := apiclient.NewWithClientCredentials(t.Context(), server.URL, "id", "wrong")
		require.NoError(t, err)

		_, err = apiclient.Models(client, "api/tags").Get(t.Context())
		require.ErrorIs(t, err, auth.ErrAuthToken)
		assert.NotErrorIs(t, err, jsonapi.ErrInvalidResponse)
	})

	t.Run("interceptor aborts request", func(t *testing.T) {
		t.Parallel()

		server := newServer(t)
		chain := apiclient.NewInterceptorChain()
		chain.AddRequestInterceptor(func(context.Context, *apiclient.Request) error { return errBlocked })

		client, err := apiclient.NewWithEndpoint(t.Context(), server.URL, apiclient.WithInterceptors(chain))
		require.NoError(t, err)

		_, err = apiclient.Models(client, "api/tags").Get(t.Context())
		require.ErrorIs(t, err, errBlocked)
		assert.Empty(t, server.Requests())
	})
}

func TestClient_ClientCredentials(t *testing.T) {
	t.Parallel()

	server := newServer(t, jsonapitest.WithClientCredentials("id", "secret", "token-1"), jsonapitest.WithTokenLifetime(3600))
	store := &memoryStore{}

	client, err := apiclient.NewWithClientCredentials(t.Context(), server.URL, "id", "secret", apiclient.WithTokenStore(store))
	require.NoError(t, err)

	for range 2 {
		results, err := apiclient.Models(client, "api/tags").Get(t.Context())
		require.NoError(t, err)
		assert.Equal(t, 3, results.Len())
	}

	assert.Equal(t, 1, server.TokenCalls())
	assert.Greater(t, client.TokenLifetime(), 59*time.Minute)

	saved := store.Token(server.URL)
	require.NotNil(t, saved)
	assert.Equal(t, "token-1", saved.AccessToken)

	headers, err := client.GetHTTPHeaders(t.Context())
	require.NoError(t, err)
	assert.Equal(t, "Bearer token-1", headers["Authorization"])

	// a second client reuses the persisted token
	second, err := apiclient.NewWithClientCredentials(t.Context(), server.URL, "id", "secret", apiclient.WithTokenStore(store))
	require.NoError(t, err)

	token, err := second.GetToken(t.Context())
	require.NoError(t, err)
	assert.Equal(t, "token-1", token)
	assert.Equal(t, 1, server.TokenCalls())
}

func TestClient_StaticToken(t *testing.T) {
	t.Parallel()

	server := newServer(t, jsonapitest.WithClientCredentials("id", "secret", "token-1"))

	client, err := apiclient.NewWithToken(t.Context(), server.URL, "token-1")
	require.NoError(t, err)

	results, err := apiclient.Models(client, "api/tags").Get(t.Context())
	require.NoError(t, err)
	assert.Equal(t, 3, results.Len())
	assert.Zero(t, server.TokenCalls())
	assert.Zero(t, client.TokenLifetime())

	anonymous, err := apiclient.NewWithEndpoint(t.Context(), server.URL)
	require.NoError(t, err)

	token, err := anonymous.GetToken(t.Context())
	require.NoError(t, err)
	assert.Empty(t, token)

	headers, err := anonymous.GetHTTPHeaders(t.Context())
	require.NoError(t, err)
	assert.Empty(t, headers)
}

func TestClient_MetricsAndEvents(t *testing.T) {
	t.Parallel()

	server := newServer(t)
	registry := prometheus.NewRegistry()
	publisher := &fakePublisher{}

	client, err := apiclient.New(t.Context(), &jsonapi.Config{BaseURL: server.URL, MetricsRegisterer: registry},
		apiclient.WithEventPublisher(publisher))
	require.NoError(t, err)
	require.NotNil(t, client.Metrics())

	_, err = apiclient.Models(client, "api/tags").Get(t.Context())
	require.NoError(t, err)

	count, err := testutil.GatherAndCount(registry)
	require.NoError(t, err)
	assert.Positive(t, count)

	publisher.mu.Lock()
	assert.Equal(t, []string{
		"jsonapi.events.preFetch",
		"jsonapi.events.postFetch",
		"jsonapi.events.resultSetReady",
	}, publisher.subjects)
	publisher.mu.Unlock()

	require.NoError(t, client.Close())

	_, err = apiclient.Models(client, "api/tags").Get(t.Context())
	require.NoError(t, err)

	publisher.mu.Lock()
	assert.Len(t, publisher.subjects, 3)
	publisher.mu.Unlock()
}
