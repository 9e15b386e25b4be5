package auth

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/fivetwenty-io/jsonapi-client/internal/constants"
)

// HeaderProvider supplies per-request authentication headers.
type HeaderProvider interface {
	GetHTTPHeaders(ctx context.Context) (map[string]string, error)
}

// NewHeaderProvider turns a TokenManager into a HeaderProvider. A nil manager
// yields no headers.
func NewHeaderProvider(manager TokenManager) HeaderProvider {
	return &tokenHeaderProvider{manager: manager}
}

type tokenHeaderProvider struct {
	manager TokenManager
}

func (p *tokenHeaderProvider) GetHTTPHeaders(ctx context.Context) (map[string]string, error) {
	if p.manager == nil {
		return map[string]string{}, nil
	}

	return bearerHeaders(ctx, p.manager)
}

func bearerHeaders(ctx context.Context, manager TokenManager) (map[string]string, error) {
	token, err := manager.GetToken(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get access token: %w", err)
	}

	return map[string]string{"Authorization": "Bearer " + token}, nil
}

// StaticTokenManager always returns the same token.
type StaticTokenManager struct {
	mu    sync.RWMutex
	token string
}

// NewStaticTokenManager creates a manager for a pre-issued token.
func NewStaticTokenManager(token string) *StaticTokenManager {
	return &StaticTokenManager{token: token}
}

func (m *StaticTokenManager) GetToken(ctx context.Context) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.token, nil
}

func (m *StaticTokenManager) RefreshToken(ctx context.Context) error {
	return constants.ErrStaticTokenCannotRefresh
}

func (m *StaticTokenManager) SetToken(token string, expiresAt time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.token = token
}

// FallbackTokenManager serves a static token until the server rejects it,
// then switches to an OAuth2 manager for good.
type FallbackTokenManager struct {
	mu          sync.Mutex
	staticToken string
	oauth       TokenManager
	usingOAuth  bool
}

// NewFallbackTokenManager creates a manager preferring staticToken.
func NewFallbackTokenManager(staticToken string, oauth TokenManager) *FallbackTokenManager {
	return &FallbackTokenManager{staticToken: staticToken, oauth: oauth}
}

func (m *FallbackTokenManager) GetToken(ctx context.Context) (string, error) {
	m.mu.Lock()
	useOAuth := m.usingOAuth || m.staticToken == ""
	staticToken := m.staticToken
	m.mu.Unlock()

	if !useOAuth {
		return staticToken, nil
	}

	token, err := m.oauth.GetToken(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to get OAuth token: %w", err)
	}

	return token, nil
}

func (m *FallbackTokenManager) RefreshToken(ctx context.Context) error {
	m.mu.Lock()
	switched := !m.usingOAuth
	m.usingOAuth = true
	m.mu.Unlock()

	// the first refresh only abandons the static token
	if switched {
		_, err := m.oauth.GetToken(ctx)
		if err != nil {
			return fmt.Errorf("failed to get OAuth token during refresh: %w", err)
		}

		return nil
	}

	err := m.oauth.RefreshToken(ctx)
	if err != nil {
		return fmt.Errorf("failed to refresh OAuth token: %w", err)
	}

	return nil
}

func (m *FallbackTokenManager) SetToken(token string, expiresAt time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.usingOAuth {
		m.oauth.SetToken(token, expiresAt)

		return
	}

	m.staticToken = token
}
