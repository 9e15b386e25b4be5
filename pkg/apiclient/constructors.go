package apiclient

import (
	"context"

	"github.com/fivetwenty-io/jsonapi-client/pkg/jsonapi"
)

// NewWithEndpoint creates an anonymous client.
func NewWithEndpoint(ctx context.Context, baseURL string, opts ...Option) (*Client, error) {
	return New(ctx, &jsonapi.Config{BaseURL: baseURL}, opts...)
}

// NewWithToken creates a client sending a fixed bearer token.
func NewWithToken(ctx context.Context, baseURL, token string, opts ...Option) (*Client, error) {
	return New(ctx, &jsonapi.Config{BaseURL: baseURL, AccessToken: token}, opts...)
}

// NewWithClientCredentials creates a client using the client_credentials grant
// against {baseURL}/oauth/token.
func NewWithClientCredentials(ctx context.Context, baseURL, clientID, clientSecret string, opts ...Option) (*Client, error) {
	return New(ctx, &jsonapi.Config{
		BaseURL:      baseURL,
		ClientID:     clientID,
		ClientSecret: clientSecret,
	}, opts...)
}

// NewWithPassword creates a client using the password grant with a public
// client id.
func NewWithPassword(ctx context.Context, baseURL, clientID, username, password string, opts ...Option) (*Client, error) {
	return New(ctx, &jsonapi.Config{
		BaseURL:  baseURL,
		ClientID: clientID,
		Username: username,
		Password: password,
	}, opts...)
}
