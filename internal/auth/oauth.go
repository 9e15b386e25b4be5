package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/fivetwenty-io/jsonapi-client/internal/constants"
)

// Static errors for err113 compliance.
var (
	ErrAuthToken          = errors.New("token request failed")
	ErrNoValidCredentials = errors.New("no valid credentials available")
)

// AuthStyle selects how client credentials reach the token endpoint.
type AuthStyle int

const (
	// AuthStyleInParams sends client_id and client_secret as form fields.
	AuthStyleInParams AuthStyle = iota
	// AuthStyleInHeader sends them as HTTP basic auth.
	AuthStyleInHeader
)

// OAuth2Config configures an OAuth2TokenManager.
type OAuth2Config struct {
	TokenURL     string
	ClientID     string
	ClientSecret string
	Username     string
	Password     string
	RefreshToken string
	AccessToken  string
	Scopes       []string
	AuthStyle    AuthStyle
	HTTPClient   *http.Client
}

// TokenError is returned when the token endpoint rejects a grant.
type TokenError struct {
	StatusCode  int    `json:"-"`
	Code        string `json:"error"`
	Description string `json:"error_description"`
}

func (e *TokenError) Error() string {
	switch {
	case e.Code != "" && e.Description != "":
		return e.Code + ": " + e.Description
	case e.Code != "":
		return e.Code
	default:
		return fmt.Sprintf("%s with status %d", ErrAuthToken.Error(), e.StatusCode)
	}
}

// Is makes errors.Is(err, ErrAuthToken) match.
func (e *TokenError) Is(target error) bool {
	return target == ErrAuthToken
}

// OAuth2TokenManager obtains and caches OAuth2 tokens.
//
// Grants are tried in order: refresh_token when one is held, then password
// when a username is configured, then client_credentials.
type OAuth2TokenManager struct {
	config     *OAuth2Config
	store      *TokenStore
	httpClient *http.Client
	mu         sync.Mutex
}

// NewOAuth2TokenManager creates a token manager. A configured AccessToken is
// stored without expiry.
func NewOAuth2TokenManager(config *OAuth2Config) *OAuth2TokenManager {
	if config == nil {
		config = &OAuth2Config{}
	}

	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: constants.ShortHTTPTimeout}
	}

	manager := &OAuth2TokenManager{
		config:     config,
		store:      NewTokenStore(),
		httpClient: httpClient,
	}

	if config.AccessToken != "" {
		manager.store.Set(&Token{
			AccessToken:  config.AccessToken,
			RefreshToken: config.RefreshToken,
			TokenType:    "bearer",
		})
	}

	return manager
}

// NewClientCredentialsTokenManager creates a client_credentials manager whose
// token endpoint is baseURL plus the default token path.
func NewClientCredentialsTokenManager(baseURL, clientID, clientSecret string, scopes ...string) *OAuth2TokenManager {
	return NewOAuth2TokenManager(&OAuth2Config{
		TokenURL:     TokenURL(baseURL),
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Scopes:       scopes,
	})
}

// NewPasswordTokenManager creates a password grant manager.
func NewPasswordTokenManager(baseURL, clientID, clientSecret, username, password string) *OAuth2TokenManager {
	return NewOAuth2TokenManager(&OAuth2Config{
		TokenURL:     TokenURL(baseURL),
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Username:     username,
		Password:     password,
	})
}

// TokenURL returns the default token endpoint for baseURL.
func TokenURL(baseURL string) string {
	return strings.TrimSuffix(baseURL, "/") + constants.DefaultTokenPath
}

// GetToken returns a valid access token, requesting a new one when needed.
func (m *OAuth2TokenManager) GetToken(ctx context.Context) (string, error) {
	token := m.store.Get()
	if token.Valid() {
		return token.AccessToken, nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	// another caller may have fetched while we waited
	token = m.store.Get()
	if token.Valid() {
		return token.AccessToken, nil
	}

	token, err := m.requestToken(ctx, token)
	if err != nil {
		return "", err
	}

	return token.AccessToken, nil
}

// RefreshToken forces a new token regardless of the cached one.
func (m *OAuth2TokenManager) RefreshToken(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	_, err := m.requestToken(ctx, m.store.Get())

	return err
}

// SetToken stores a token obtained elsewhere.
func (m *OAuth2TokenManager) SetToken(token string, expiresAt time.Time) {
	current := m.store.Get()

	next := &Token{
		AccessToken: token,
		TokenType:   "bearer",
		ExpiresAt:   expiresAt,
	}
	if current != nil {
		next.RefreshToken = current.RefreshToken
	}

	m.store.Set(next)
}

// CurrentToken returns the cached token, which may be nil or expired.
func (m *OAuth2TokenManager) CurrentToken() *Token {
	return m.store.Get()
}

// GetHTTPHeaders returns the Authorization header for the current token.
func (m *OAuth2TokenManager) GetHTTPHeaders(ctx context.Context) (map[string]string, error) {
	return bearerHeaders(ctx, m)
}

func (m *OAuth2TokenManager) requestToken(ctx context.Context, current *Token) (*Token, error) {
	if m.config.TokenURL == "" {
		return nil, constants.ErrTokenRequestNoURL
	}

	refreshToken := m.config.RefreshToken
	if current != nil && current.RefreshToken != "" {
		refreshToken = current.RefreshToken
	}

	if refreshToken != "" {
		form := url.Values{}
		form.Set("grant_type", "refresh_token")
		form.Set("refresh_token", refreshToken)

		token, err := m.exchange(ctx, form)
		if err == nil {
			if token.RefreshToken == "" {
				token.RefreshToken = refreshToken
			}

			m.store.Set(token)

			return token, nil
		}

		// a rejected refresh token falls through to the configured credentials
		if !errors.Is(err, ErrAuthToken) || !m.hasCredentials() {
			return nil, err
		}
	}

	form := url.Values{}

	switch {
	case m.config.Username != "" && m.config.Password != "":
		form.Set("grant_type", "password")
		form.Set("username", m.config.Username)
		form.Set("password", m.config.Password)
	case m.config.ClientID != "" && m.config.ClientSecret != "":
		form.Set("grant_type", "client_credentials")
	default:
		return nil, ErrNoValidCredentials
	}

	token, err := m.exchange(ctx, form)
	if err != nil {
		return nil, err
	}

	m.store.Set(token)

	return token, nil
}

func (m *OAuth2TokenManager) hasCredentials() bool {
	return (m.config.ClientID != "" && m.config.ClientSecret != "") ||
		(m.config.Username != "" && m.config.Password != "")
}

func (m *OAuth2TokenManager) exchange(ctx context.Context, form url.Values) (*Token, error) {
	if len(m.config.Scopes) > 0 {
		form.Set("scope", strings.Join(m.config.Scopes, " "))
	}

	return m.doTokenRequest(ctx, form)
}

func (m *OAuth2TokenManager) doTokenRequest(ctx context.Context, form url.Values) (*Token, error) {
	if m.config.AuthStyle == AuthStyleInParams && m.config.ClientID != "" {
		form.Set("client_id", m.config.ClientID)

		if m.config.ClientSecret != "" {
			form.Set("client_secret", m.config.ClientSecret)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.config.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create token request: %w", err)
	}

	req.Header.Set("Content-Type", constants.MediaTypeForm)
	req.Header.Set("Accept", "application/json")

	if m.config.AuthStyle == AuthStyleInHeader && m.config.ClientID != "" {
		req.SetBasicAuth(m.config.ClientID, m.config.ClientSecret)
	}

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute token request: %w", err)
	}

	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read token response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		tokenErr := &TokenError{StatusCode: resp.StatusCode}
		_ = json.Unmarshal(body, tokenErr)

		return nil, tokenErr
	}

	var token Token

	err = json.Unmarshal(body, &token)
	if err != nil {
		return nil, fmt.Errorf("failed to decode token response: %w", err)
	}

	if token.AccessToken == "" {
		return nil, constants.ErrEmptyAccessToken
	}

	if token.ExpiresIn > 0 {
		token.ExpiresAt = time.Now().Add(time.Duration(token.ExpiresIn) * time.Second)
	}

	return &token, nil
}
