package apiclient

import (
	nethttp "net/http"
	"time"

	"github.com/fivetwenty-io/jsonapi-client/internal/auth"
	"github.com/fivetwenty-io/jsonapi-client/internal/constants"
	"github.com/fivetwenty-io/jsonapi-client/internal/http"
	"github.com/fivetwenty-io/jsonapi-client/pkg/jsonapi"
)

// createTokenManager picks the token manager matching the configured
// credentials, or nil for anonymous access.
func createTokenManager(config *jsonapi.Config, s *settings, logger jsonapi.Logger) TokenManager {
	if config.AccessToken != "" && config.Username != "" && config.Password != "" {
		return auth.NewFallbackTokenManager(config.AccessToken, oauthTokenManager(config, s, logger))
	}

	if config.AccessToken != "" {
		return auth.NewStaticTokenManager(config.AccessToken)
	}

	if config.ClientID != "" || config.Username != "" {
		return oauthTokenManager(config, s, logger)
	}

	return nil
}

// oauthTokenManager builds an OAuth2 manager, persisting its tokens under the
// base URL when a TokenStore is configured.
func oauthTokenManager(config *jsonapi.Config, s *settings, logger jsonapi.Logger) TokenManager {
	oauthConfig := &auth.OAuth2Config{
		TokenURL:     getTokenURL(config),
		ClientID:     config.ClientID,
		ClientSecret: config.ClientSecret,
		Username:     config.Username,
		Password:     config.Password,
		HTTPClient:   s.httpClient,
	}

	if s.tokenStore == nil {
		return auth.NewOAuth2TokenManager(oauthConfig)
	}

	profile := config.BaseURL

	return auth.NewConfigTokenManager(oauthConfig, s.tokenStore, profile, s.tokenStore.Token(profile), func(err error) {
		logger.Warn("Failed to persist token", map[string]interface{}{
			"profile": profile,
			"error":   err.Error(),
		})
	})
}

// getTokenURL returns the configured token URL or the default one of the base URL.
func getTokenURL(config *jsonapi.Config) string {
	if config.TokenURL != "" {
		return config.TokenURL
	}

	return auth.TokenURL(config.BaseURL)
}

// createHTTPClientOptions builds transport options from config.
func createHTTPClientOptions(config *jsonapi.Config, httpClient *nethttp.Client) []http.Option {
	var httpOpts []http.Option

	if config.Logger != nil {
		httpOpts = append(httpOpts, http.WithLogger(config.Logger))
	}

	if config.Debug {
		httpOpts = append(httpOpts, http.WithDebug(true))
	}

	if config.UserAgent != "" {
		httpOpts = append(httpOpts, http.WithUserAgent(config.UserAgent))
	}

	if httpClient != nil {
		httpOpts = append(httpOpts, http.WithHTTPClient(httpClient))
	}

	if config.HTTPTimeout > 0 {
		httpOpts = append(httpOpts, http.WithTimeout(config.HTTPTimeout))
	}

	if config.RetryMax > 0 {
		retryWaitMin := constants.DefaultRetryWaitMin
		retryWaitMax := constants.DefaultRetryWaitMax

		if config.RetryWaitMin > 0 {
			retryWaitMin = config.RetryWaitMin
		}

		if config.RetryWaitMax > 0 {
			retryWaitMax = max(config.RetryWaitMax, retryWaitMin)
		}

		httpOpts = append(httpOpts, http.WithRetryConfig(config.RetryMax, retryWaitMin, retryWaitMax))
	}

	return httpOpts
}

// tokenLifetime reports how long the current token of manager stays valid,
// or zero when unknown.
func tokenLifetime(manager TokenManager) time.Duration {
	current, ok := manager.(interface{ CurrentToken() *auth.Token })
	if !ok {
		return 0
	}

	token := current.CurrentToken()
	if token == nil || token.ExpiresAt.IsZero() {
		return 0
	}

	return time.Until(token.ExpiresAt)
}
