package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fivetwenty-io/jsonapi-client/internal/auth"
	"github.com/fivetwenty-io/jsonapi-client/internal/constants"
	"github.com/spf13/viper"
)

var _ auth.TokenPersister = (*TokenCache)(nil)

// profile names are base URLs, so dots cannot separate nested keys
const tokenKeyDelimiter = "::"

// TokenCache persists OAuth2 tokens per profile in a YAML file kept apart
// from the settings file. It implements auth.TokenPersister.
type TokenCache struct {
	mu   sync.Mutex
	path string
	v    *viper.Viper
}

// NewTokenCache opens the cache at path. A missing file is an empty cache.
func NewTokenCache(path string) (*TokenCache, error) {
	v := viper.NewWithOptions(viper.KeyDelimiter(tokenKeyDelimiter))
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	err := v.ReadInConfig()
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to read token cache: %w", err)
	}

	return &TokenCache{path: path, v: v}, nil
}

// Token returns the cached token of profile, or nil.
func (c *TokenCache) Token(profile string) *auth.Token {
	c.mu.Lock()
	defer c.mu.Unlock()

	accessToken := c.v.GetString(c.key(profile, "access_token"))
	if accessToken == "" {
		return nil
	}

	return &auth.Token{
		AccessToken:  accessToken,
		RefreshToken: c.v.GetString(c.key(profile, "refresh_token")),
		TokenType:    "bearer",
		ExpiresAt:    c.v.GetTime(c.key(profile, "expires_at")),
	}
}

// SaveToken stores token under profile and writes the file.
func (c *TokenCache) SaveToken(profile string, token *auth.Token) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.v.Set(c.key(profile, "access_token"), token.AccessToken)
	c.v.Set(c.key(profile, "refresh_token"), token.RefreshToken)

	expiresAt := ""
	if !token.ExpiresAt.IsZero() {
		expiresAt = token.ExpiresAt.UTC().Format(time.RFC3339)
	}

	c.v.Set(c.key(profile, "expires_at"), expiresAt)

	err := os.MkdirAll(filepath.Dir(c.path), constants.ConfigDirPerm)
	if err != nil {
		return fmt.Errorf("failed to create token cache directory: %w", err)
	}

	err = c.v.WriteConfigAs(c.path)
	if err != nil {
		return fmt.Errorf("failed to write token cache: %w", err)
	}

	err = os.Chmod(c.path, constants.ConfigFilePerm)
	if err != nil {
		return fmt.Errorf("failed to restrict token cache permissions: %w", err)
	}

	return nil
}

func (c *TokenCache) key(profile, field string) string {
	return "tokens" + tokenKeyDelimiter + profile + tokenKeyDelimiter + field
}
