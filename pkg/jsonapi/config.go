package jsonapi

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Config holds the settings used by apiclient.New to wire a client.
type Config struct {
	// Required fields
	// BaseURL: base URL of the JSON:API server (e.g., "https://cms.example.com").
	// apiclient.New trims a trailing slash and adds "https://" if no scheme is present.
	BaseURL string

	// Authentication options (provide one pair, or AccessToken)
	// ClientID: OAuth2 client ID for the client_credentials grant.
	ClientID string
	// ClientSecret: OAuth2 client secret used with ClientID.
	ClientSecret string
	// Username: account username for the OAuth2 password grant.
	Username string
	// Password: account password for the OAuth2 password grant.
	Password string
	// AccessToken: if set, used directly as a Bearer token.
	AccessToken string
	// TokenURL: full OAuth2 token endpoint. Defaults to {BaseURL}/oauth/token.
	TokenURL string

	// Optional configurations
	// HTTPTimeout: timeout of a single HTTP attempt.
	HTTPTimeout time.Duration
	// RetryMax: maximum number of retries for transient failures (>=500, 429,
	// and connection errors). If 0, a sensible default is used by the client.
	RetryMax int
	// RetryWaitMin: minimum backoff between retries.
	RetryWaitMin time.Duration
	// RetryWaitMax: maximum backoff between retries.
	RetryWaitMax time.Duration
	// Debug: enables verbose HTTP request/response logging when a Logger is provided.
	Debug bool
	// Logger: optional structured logger used by every layer.
	Logger Logger
	// UserAgent: overrides the default User-Agent header sent by the client.
	UserAgent string
	// DefaultLocale: locale prefix applied to every new query.
	DefaultLocale string
	// MetricsRegisterer: when set, query metrics are registered with it.
	MetricsRegisterer prometheus.Registerer
	// NATSURL: when set, query events are forwarded to NATS.
	NATSURL string
}

// Validate checks the required values and that credential pairs are complete.
func (c *Config) Validate() error {
	if c == nil {
		return ErrConfigRequired
	}

	if c.BaseURL == "" {
		return ErrBaseURLRequired
	}

	pairs := []struct {
		name, partner string
		value, other  string
	}{
		{"client_id", "client_secret", c.ClientID, c.ClientSecret},
		{"client_secret", "client_id", c.ClientSecret, c.ClientID},
		{"username", "password", c.Username, c.Password},
		{"password", "username", c.Password, c.Username},
	}

	for _, pair := range pairs {
		// public clients send a client id without a secret on the password grant
		if pair.name == "client_id" && c.Username != "" {
			continue
		}

		if pair.value != "" && pair.other == "" {
			return fmt.Errorf("%w: %s is set but %s is empty", ErrFalsyConfigValue, pair.name, pair.partner)
		}
	}

	if c.RetryMax < 0 {
		return fmt.Errorf("%w: retry_max must not be negative", ErrFalsyConfigValue)
	}

	return nil
}

// HasCredentials reports whether any authentication method is configured.
func (c *Config) HasCredentials() bool {
	return c.AccessToken != "" || c.ClientID != "" || c.Username != ""
}
