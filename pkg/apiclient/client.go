package apiclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	nethttp "net/http"
	"strings"
	"sync"
	"time"

	"github.com/fivetwenty-io/jsonapi-client/internal/auth"
	"github.com/fivetwenty-io/jsonapi-client/internal/constants"
	"github.com/fivetwenty-io/jsonapi-client/internal/http"
	"github.com/fivetwenty-io/jsonapi-client/pkg/jsonapi"
	"github.com/fivetwenty-io/jsonapi-client/pkg/natsevents"
)

// TokenManager hands out bearer tokens. Implementations may refresh tokens
// when RefreshToken is called after the server rejected one.
type TokenManager interface {
	GetToken(ctx context.Context) (string, error)
	RefreshToken(ctx context.Context) error
	SetToken(token string, expiresAt time.Time)
}

// TokenStore persists tokens between runs, keyed by profile.
type TokenStore interface {
	Token(profile string) *auth.Token
	SaveToken(profile string, token *auth.Token) error
}

// Client executes JSON:API requests and hands out query builders sharing one
// AutoMapper, MacroRegistry and EventBus.
type Client struct {
	transport    *http.Client
	tokenManager TokenManager
	baseURL      string
	locale       string
	logger       jsonapi.Logger
	mapper       *jsonapi.AutoMapper
	macros       *jsonapi.MacroRegistry
	events       *jsonapi.EventBus
	metrics      *jsonapi.Metrics
	interceptors *InterceptorChain

	closeOnce sync.Once
	closers   []func()
}

var _ jsonapi.HTTPClient = (*Client)(nil)

type settings struct {
	tokenManager TokenManager
	tokenStore   TokenStore
	httpClient   *nethttp.Client
	mapper       *jsonapi.AutoMapper
	macros       *jsonapi.MacroRegistry
	events       *jsonapi.EventBus
	interceptors *InterceptorChain
	publisher    natsevents.Publisher
}

// Option customizes New.
type Option func(*settings)

// WithTokenManager replaces the token manager derived from the config.
func WithTokenManager(manager TokenManager) Option {
	return func(s *settings) {
		s.tokenManager = manager
	}
}

// WithTokenStore persists OAuth2 tokens under the base URL so later clients
// reuse them until they expire.
func WithTokenStore(store TokenStore) Option {
	return func(s *settings) {
		s.tokenStore = store
	}
}

// WithHTTPClient replaces the http.Client under the retrying transport.
func WithHTTPClient(client *nethttp.Client) Option {
	return func(s *settings) {
		s.httpClient = client
	}
}

// WithAutoMapper shares an existing AutoMapper.
func WithAutoMapper(mapper *jsonapi.AutoMapper) Option {
	return func(s *settings) {
		s.mapper = mapper
	}
}

// WithMacroRegistry shares an existing MacroRegistry.
func WithMacroRegistry(registry *jsonapi.MacroRegistry) Option {
	return func(s *settings) {
		s.macros = registry
	}
}

// WithEventBus shares an existing EventBus.
func WithEventBus(bus *jsonapi.EventBus) Option {
	return func(s *settings) {
		s.events = bus
	}
}

// WithInterceptors installs request and response interceptors.
func WithInterceptors(chain *InterceptorChain) Option {
	return func(s *settings) {
		s.interceptors = chain
	}
}

// WithEventPublisher forwards query events through publisher instead of
// dialing Config.NATSURL.
func WithEventPublisher(publisher natsevents.Publisher) Option {
	return func(s *settings) {
		s.publisher = publisher
	}
}

// New creates a client from config.
func New(ctx context.Context, config *jsonapi.Config, opts ...Option) (*Client, error) {
	err := config.Validate()
	if err != nil {
		return nil, err
	}

	cfg := *config
	cfg.BaseURL = NormalizeBaseURL(cfg.BaseURL)

	s := &settings{}
	for _, opt := range opts {
		opt(s)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = jsonapi.NopLogger{}
	}

	tokenManager := s.tokenManager
	if tokenManager == nil {
		tokenManager = createTokenManager(&cfg, s, logger)
	}

	client := &Client{
		tokenManager: tokenManager,
		baseURL:      cfg.BaseURL,
		locale:       cfg.DefaultLocale,
		logger:       logger,
		mapper:       s.mapper,
		macros:       s.macros,
		events:       s.events,
		interceptors: s.interceptors,
	}

	client.transport = http.NewClient(cfg.BaseURL, transportTokenManager(tokenManager), createHTTPClientOptions(&cfg, s.httpClient)...)

	if client.mapper == nil {
		client.mapper = jsonapi.NewAutoMapper()
	}

	if client.macros == nil {
		client.macros = jsonapi.NewMacroRegistry()
	}

	if client.events == nil {
		client.events = jsonapi.NewEventBus()
	}

	if client.interceptors == nil {
		client.interceptors = NewInterceptorChain()
	}

	if cfg.MetricsRegisterer != nil {
		client.metrics = jsonapi.NewMetrics(cfg.MetricsRegisterer)
		client.closers = append(client.closers, client.metrics.Attach(client.events))
	}

	err = client.connectEvents(ctx, &cfg, s.publisher)
	if err != nil {
		return nil, err
	}

	return client, nil
}

// NormalizeBaseURL trims a trailing slash and adds https:// when no scheme is present.
func NormalizeBaseURL(baseURL string) string {
	baseURL = strings.TrimSuffix(strings.TrimSpace(baseURL), "/")
	if !strings.HasPrefix(baseURL, "http://") && !strings.HasPrefix(baseURL, "https://") {
		baseURL = "https://" + baseURL
	}

	return baseURL
}

func (c *Client) connectEvents(ctx context.Context, cfg *jsonapi.Config, publisher natsevents.Publisher) error {
	if publisher == nil && cfg.NATSURL != "" {
		err := ctx.Err()
		if err != nil {
			return fmt.Errorf("failed to connect to NATS: %w", err)
		}

		conn, err := natsevents.Connect(cfg.NATSURL)
		if err != nil {
			return err
		}

		c.closers = append(c.closers, func() { _ = conn.Drain() })
		publisher = conn
	}

	if publisher == nil {
		return nil
	}

	forwarder := natsevents.New(publisher, natsevents.WithLogger(c.logger))
	c.closers = append(c.closers, forwarder.Attach(c.events))

	return nil
}

// Close detaches metrics and event forwarding and drains the NATS connection.
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		for i := len(c.closers) - 1; i >= 0; i-- {
			c.closers[i]()
		}
	})

	return nil
}

// BaseURL returns the normalized base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// AutoMapper returns the shared AutoMapper.
func (c *Client) AutoMapper() *jsonapi.AutoMapper {
	return c.mapper
}

// Macros returns the shared MacroRegistry.
func (c *Client) Macros() *jsonapi.MacroRegistry {
	return c.macros
}

// Events returns the shared EventBus.
func (c *Client) Events() *jsonapi.EventBus {
	return c.events
}

// Metrics returns the query metrics, or nil when no registerer was configured.
func (c *Client) Metrics() *jsonapi.Metrics {
	return c.metrics
}

// Interceptors returns the interceptor chain.
func (c *Client) Interceptors() *InterceptorChain {
	return c.interceptors
}

// RegisterModels adds registrations to the AutoMapper, keeping existing ones.
func (c *Client) RegisterModels(regs ...jsonapi.Registration) {
	existing := c.mapper.Registrations()
	c.mapper.Register(append(existing, regs...)...)
}

// RegisterMacro registers a macro.
func (c *Client) RegisterMacro(name string, fn jsonapi.MacroFunc) {
	c.macros.Register(name, fn)
}

// GetToken returns the current access token, or "" for anonymous clients.
func (c *Client) GetToken(ctx context.Context) (string, error) {
	if c.tokenManager == nil {
		return "", nil
	}

	token, err := c.tokenManager.GetToken(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to get token: %w", err)
	}

	return token, nil
}

// TokenLifetime reports how long the current OAuth2 token stays valid, or
// zero when the client holds no expiring token.
func (c *Client) TokenLifetime() time.Duration {
	if c.tokenManager == nil {
		return 0
	}

	return tokenLifetime(c.tokenManager)
}

// GetHTTPHeaders returns the authentication headers of the next request.
func (c *Client) GetHTTPHeaders(ctx context.Context) (map[string]string, error) {
	return auth.NewHeaderProvider(transportTokenManager(c.tokenManager)).GetHTTPHeaders(ctx)
}

// Get fetches path relative to the base URL and decodes the JSON body. A 4xx
// or 5xx response whose body is a JSON:API error document is returned as a
// response so the query layer reports its error objects.
func (c *Client) Get(ctx context.Context, path string, opts jsonapi.RequestOptions) (jsonapi.RawResponse, error) {
	return c.send(ctx, &Request{Method: nethttp.MethodGet, Path: path, Headers: cacheHeaders(opts)}, nil)
}

// Post sends body as JSON to path and decodes the JSON response.
func (c *Client) Post(ctx context.Context, path string, body any, opts jsonapi.RequestOptions) (jsonapi.RawResponse, error) {
	return c.send(ctx, &Request{Method: nethttp.MethodPost, Path: path, Headers: cacheHeaders(opts)}, body)
}

func (c *Client) send(ctx context.Context, req *Request, body any) (jsonapi.RawResponse, error) {
	err := c.interceptors.ExecuteRequestInterceptors(ctx, req)
	if err != nil {
		return nil, err
	}

	resp, err := c.transport.Do(ctx, &http.Request{
		Method:  req.Method,
		Path:    req.Path,
		Body:    body,
		Headers: req.Headers,
	})

	intercepted := &Response{Err: err}
	if resp != nil {
		intercepted.StatusCode = resp.StatusCode
		intercepted.Body = resp.Body
	}

	interceptErr := c.interceptors.ExecuteResponseInterceptors(ctx, req, intercepted)
	if interceptErr != nil {
		return nil, interceptErr
	}

	if err != nil {
		return errorDocument(err)
	}

	return decodeBody(resp.Body)
}

// errorDocument turns an HTTP error carrying JSON:API error objects back into
// a document. Every other error is returned as is.
func errorDocument(err error) (jsonapi.RawResponse, error) {
	httpErr := &jsonapi.HTTPError{}
	if !errors.As(err, &httpErr) || len(httpErr.Errors) == 0 {
		return nil, err
	}

	document, decodeErr := decodeBody(httpErr.Body)
	if decodeErr != nil {
		return nil, err
	}

	return document, nil
}

func decodeBody(body []byte) (jsonapi.RawResponse, error) {
	if len(body) == 0 {
		return nil, nil
	}

	var document any

	err := json.Unmarshal(body, &document)
	if err != nil {
		return nil, fmt.Errorf("failed to decode response body: %w", err)
	}

	return document, nil
}

func cacheHeaders(opts jsonapi.RequestOptions) map[string]string {
	headers := map[string]string{}

	switch opts.Cache {
	case jsonapi.CacheNoStore:
		headers["Cache-Control"] = constants.CacheControlNoStore
	case jsonapi.CacheForce:
		headers["Cache-Control"] = constants.CacheControlMaxStale
	}

	return headers
}

// transportTokenManager keeps a nil TokenManager a nil interface.
func transportTokenManager(manager TokenManager) auth.TokenManager {
	if manager == nil {
		return nil
	}

	return manager
}
