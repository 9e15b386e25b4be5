package auth_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/fivetwenty-io/jsonapi-client/internal/auth"
	"github.com/fivetwenty-io/jsonapi-client/internal/constants"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewHeaderProvider(t *testing.T) {
	t.Parallel()

	t.Run("nil manager yields no headers", func(t *testing.T) {
		t.Parallel()

		headers, err := auth.NewHeaderProvider(nil).GetHTTPHeaders(context.Background())
		require.NoError(t, err)
		assert.Empty(t, headers)
	})

	t.Run("static token", func(t *testing.T) {
		t.Parallel()

		headers, err := auth.NewHeaderProvider(auth.NewStaticTokenManager("abc")).GetHTTPHeaders(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "Bearer abc", headers["Authorization"])
	})

	t.Run("token failure is wrapped", func(t *testing.T) {
		t.Parallel()

		manager := auth.NewOAuth2TokenManager(&auth.OAuth2Config{TokenURL: "http://127.0.0.1/oauth/token"})

		_, err := auth.NewHeaderProvider(manager).GetHTTPHeaders(context.Background())
		require.ErrorIs(t, err, auth.ErrNoValidCredentials)
	})
}

func TestStaticTokenManager(t *testing.T) {
	t.Parallel()

	manager := auth.NewStaticTokenManager("first")

	err := manager.RefreshToken(context.Background())
	require.ErrorIs(t, err, constants.ErrStaticTokenCannotRefresh)

	manager.SetToken("second", time.Time{})

	token, err := manager.GetToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "second", token)
}

func TestFallbackTokenManager(t *testing.T) {
	t.Parallel()

	requests := 0

	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		requests++

		_ = json.NewEncoder(writer).Encode(auth.Token{AccessToken: "oauth-token", ExpiresIn: 3600})
	}))
	defer server.Close()

	oauth := auth.NewPasswordTokenManager(server.URL, "client", "", "editor", "secret")
	manager := auth.NewFallbackTokenManager("static-token", oauth)

	token, err := manager.GetToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "static-token", token)
	assert.Equal(t, 0, requests)

	err = manager.RefreshToken(context.Background())
	require.NoError(t, err)

	token, err = manager.GetToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "oauth-token", token)
	assert.Equal(t, 1, requests)
}
