package auth_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/fivetwenty-io/jsonapi-client/internal/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errDiskFull = errors.New("disk full")

type memoryPersister struct {
	mu     sync.Mutex
	saved  map[string]*auth.Token
	err    error
	writes int
}

func (p *memoryPersister) SaveToken(profile string, token *auth.Token) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.writes++

	if p.err != nil {
		return p.err
	}

	if p.saved == nil {
		p.saved = map[string]*auth.Token{}
	}

	p.saved[profile] = token

	return nil
}

func tokenServer(t *testing.T, accessToken string) *httptest.Server {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		_ = json.NewEncoder(writer).Encode(auth.Token{AccessToken: accessToken, ExpiresIn: 3600})
	}))
	t.Cleanup(server.Close)

	return server
}

func TestConfigTokenManager_PersistsNewTokens(t *testing.T) {
	t.Parallel()

	server := tokenServer(t, "issued-token")
	persister := &memoryPersister{}

	manager := auth.NewConfigTokenManager(&auth.OAuth2Config{
		TokenURL:     server.URL + "/oauth/token",
		ClientID:     "id",
		ClientSecret: "secret",
	}, persister, "default", nil, nil)

	token, err := manager.GetToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "issued-token", token)

	_, err = manager.GetToken(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, persister.writes)
	assert.Equal(t, "issued-token", persister.saved["default"].AccessToken)
	assert.False(t, manager.IsTokenExpiringSoon(time.Minute))
}

func TestConfigTokenManager_UsesCachedToken(t *testing.T) {
	t.Parallel()

	persister := &memoryPersister{}
	cached := &auth.Token{AccessToken: "cached-token", ExpiresAt: time.Now().Add(time.Hour)}

	manager := auth.NewConfigTokenManager(&auth.OAuth2Config{
		TokenURL:     "http://127.0.0.1:1/oauth/token",
		ClientID:     "id",
		ClientSecret: "secret",
	}, persister, "default", cached, nil)

	headers, err := manager.GetHTTPHeaders(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Bearer cached-token", headers["Authorization"])
	assert.Equal(t, 0, persister.writes)
}

func TestConfigTokenManager_ReportsPersistErrors(t *testing.T) {
	t.Parallel()

	server := tokenServer(t, "issued-token")
	persister := &memoryPersister{err: errDiskFull}

	var reported error

	manager := auth.NewConfigTokenManager(&auth.OAuth2Config{
		TokenURL:     server.URL + "/oauth/token",
		ClientID:     "id",
		ClientSecret: "secret",
	}, persister, "staging", nil, func(err error) { reported = err })

	err := manager.RefreshToken(context.Background())
	require.NoError(t, err)
	require.ErrorIs(t, reported, errDiskFull)
	assert.Contains(t, reported.Error(), `"staging"`)
}

func TestConfigTokenManager_NoPersister(t *testing.T) {
	t.Parallel()

	server := tokenServer(t, "issued-token")

	var reported error

	manager := auth.NewConfigTokenManager(&auth.OAuth2Config{
		TokenURL:     server.URL + "/oauth/token",
		ClientID:     "id",
		ClientSecret: "secret",
	}, nil, "default", nil, func(err error) { reported = err })

	_, err := manager.GetToken(context.Background())
	require.NoError(t, err)
	require.ErrorIs(t, reported, auth.ErrNoTokenPersister)
	assert.True(t, manager.IsTokenExpiringSoon(2*time.Hour))
}
