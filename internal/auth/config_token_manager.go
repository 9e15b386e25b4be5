package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// Static errors for err113 compliance.
var (
	ErrNoTokenPersister = errors.New("no token persister configured")
)

// TokenPersister stores tokens between process runs.
type TokenPersister interface {
	SaveToken(profile string, token *Token) error
}

// ConfigTokenManager wraps an OAuth2TokenManager and persists every newly
// issued token under a profile name.
type ConfigTokenManager struct {
	oauth2Manager *OAuth2TokenManager
	persister     TokenPersister
	profile       string
	onError       func(error)

	mutex     sync.Mutex
	lastSaved string
}

// NewConfigTokenManager creates a persisting manager. A cached token, when
// given, is loaded first so a still-valid token skips the token endpoint.
// onError receives persistence failures and may be nil.
func NewConfigTokenManager(
	config *OAuth2Config,
	persister TokenPersister,
	profile string,
	cached *Token,
	onError func(error),
) *ConfigTokenManager {
	oauth2Manager := NewOAuth2TokenManager(config)

	lastSaved := ""
	if cached != nil && cached.AccessToken != "" {
		oauth2Manager.store.Set(cached)
		lastSaved = cached.AccessToken
	}

	if onError == nil {
		onError = func(error) {}
	}

	return &ConfigTokenManager{
		oauth2Manager: oauth2Manager,
		persister:     persister,
		profile:       profile,
		onError:       onError,
		lastSaved:     lastSaved,
	}
}

// GetToken returns a valid access token and persists it when it is new.
func (m *ConfigTokenManager) GetToken(ctx context.Context) (string, error) {
	token, err := m.oauth2Manager.GetToken(ctx)
	if err != nil {
		return "", err
	}

	m.persistIfChanged()

	return token, nil
}

// RefreshToken forces a new token and persists it.
func (m *ConfigTokenManager) RefreshToken(ctx context.Context) error {
	err := m.oauth2Manager.RefreshToken(ctx)
	if err != nil {
		return err
	}

	m.persistIfChanged()

	return nil
}

// SetToken stores a token without persisting it.
func (m *ConfigTokenManager) SetToken(token string, expiresAt time.Time) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.oauth2Manager.SetToken(token, expiresAt)
	m.lastSaved = token
}

// GetHTTPHeaders returns the Authorization header for the current token.
func (m *ConfigTokenManager) GetHTTPHeaders(ctx context.Context) (map[string]string, error) {
	return bearerHeaders(ctx, m)
}

// CurrentToken returns the cached token, which may be nil or expired.
func (m *ConfigTokenManager) CurrentToken() *Token {
	return m.oauth2Manager.CurrentToken()
}

// IsTokenExpiringSoon reports whether the token expires within the given duration.
func (m *ConfigTokenManager) IsTokenExpiringSoon(within time.Duration) bool {
	token := m.oauth2Manager.store.Get()
	if token == nil {
		return true
	}

	if token.ExpiresAt.IsZero() {
		return false
	}

	return time.Now().Add(within).After(token.ExpiresAt)
}

func (m *ConfigTokenManager) persistIfChanged() {
	current := m.oauth2Manager.store.Get()
	if current == nil {
		return
	}

	m.mutex.Lock()
	defer m.mutex.Unlock()

	if current.AccessToken == m.lastSaved {
		return
	}

	err := m.persistToken(current)
	if err != nil {
		m.onError(err)

		return
	}

	m.lastSaved = current.AccessToken
}

func (m *ConfigTokenManager) persistToken(token *Token) error {
	if m.persister == nil {
		return ErrNoTokenPersister
	}

	err := m.persister.SaveToken(m.profile, token)
	if err != nil {
		return fmt.Errorf("failed to save token for %q: %w", m.profile, err)
	}

	return nil
}
