package commands

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fivetwenty-io/jsonapi-client/internal/config"
	"github.com/fivetwenty-io/jsonapi-client/internal/constants"
	"github.com/fivetwenty-io/jsonapi-client/pkg/apiclient"
	"github.com/fivetwenty-io/jsonapi-client/pkg/logging"
	"golang.org/x/term"
)

const tokenCacheFile = "tokens.yml"

// newClient builds an API client from the loaded configuration.
func (a *app) newClient(ctx context.Context) (*apiclient.Client, error) {
	if a.promptSecret {
		err := a.readSecret()
		if err != nil {
			return nil, err
		}
	}

	cfg, err := a.loader.Config()
	if err != nil {
		return nil, err
	}

	cfg.Logger = logging.NewAdapter(a.logger)

	var opts []apiclient.Option

	if (cfg.ClientID != "" || cfg.Username != "") && !a.noTokenCache {
		cache, err := a.tokenCache()
		if err != nil {
			return nil, err
		}

		opts = append(opts, apiclient.WithTokenStore(cache))
	}

	client, err := apiclient.New(ctx, cfg, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}

	return client, nil
}

func (a *app) tokenCache() (*config.TokenCache, error) {
	dir, err := config.DefaultDir()
	if err != nil {
		return nil, err
	}

	return config.NewTokenCache(filepath.Join(dir, tokenCacheFile))
}

// readSecret reads the password, or the client secret when no username is
// configured, from the terminal.
func (a *app) readSecret() error {
	fd := int(a.in.Fd())
	if !term.IsTerminal(fd) {
		return constants.ErrNotATerminal
	}

	key, label := config.KeyClientSecret, "Client secret: "
	if a.loader.Viper().GetString(config.KeyUsername) != "" {
		key, label = config.KeyPassword, "Password: "
	}

	_, _ = fmt.Fprint(a.errOut, label)

	secret, err := term.ReadPassword(fd)

	_, _ = fmt.Fprintln(a.errOut)

	if err != nil {
		return fmt.Errorf("failed to read secret: %w", err)
	}

	a.loader.Viper().Set(key, string(secret))

	return nil
}
