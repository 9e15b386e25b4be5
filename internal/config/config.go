// Package config loads client settings from flags, environment variables and
// an optional YAML file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/fivetwenty-io/jsonapi-client/internal/constants"
	"github.com/fivetwenty-io/jsonapi-client/pkg/jsonapi"
	"github.com/spf13/cast"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Configuration keys. Environment variables use the JSONAPI_ prefix and upper
// case, e.g. JSONAPI_BASE_URL.
const (
	KeyBaseURL      = "base_url"
	KeyTokenURL     = "token_url"
	KeyClientID     = "client_id"
	KeyClientSecret = "client_secret"
	KeyUsername     = "username"
	KeyPassword     = "password"
	KeyAccessToken  = "access_token"
	KeyLocale       = "locale"
	KeyTimeout      = "timeout"
	KeyRetryMax     = "retry_max"
	KeyRetryWaitMin = "retry_wait_min"
	KeyRetryWaitMax = "retry_wait_max"
	KeyUserAgent    = "user_agent"
	KeyDebug        = "debug"
	KeyOutput       = "output"
	KeyNATSURL      = "nats_url"
)

// Keys lists every known configuration key in display order.
var Keys = []string{
	KeyBaseURL,
	KeyTokenURL,
	KeyClientID,
	KeyClientSecret,
	KeyUsername,
	KeyPassword,
	KeyAccessToken,
	KeyLocale,
	KeyTimeout,
	KeyRetryMax,
	KeyRetryWaitMin,
	KeyRetryWaitMax,
	KeyUserAgent,
	KeyDebug,
	KeyOutput,
	KeyNATSURL,
}

var secretKeys = []string{KeyClientSecret, KeyPassword, KeyAccessToken}

// Loader wraps a viper instance holding the client settings.
type Loader struct {
	v      *viper.Viper
	loaded bool
}

// New creates a loader on v, or on a fresh viper instance when v is nil.
func New(v *viper.Viper) *Loader {
	if v == nil {
		v = viper.New()
	}

	v.SetDefault(KeyTimeout, constants.DefaultHTTPTimeout)
	v.SetDefault(KeyRetryMax, constants.DefaultRetryMax)
	v.SetDefault(KeyRetryWaitMin, constants.DefaultRetryWaitMin)
	v.SetDefault(KeyRetryWaitMax, constants.DefaultRetryWaitMax)
	v.SetDefault(KeyUserAgent, constants.DefaultUserAgent)

	return &Loader{v: v}
}

// Viper returns the underlying viper instance.
func (l *Loader) Viper() *viper.Viper {
	return l.v
}

// BindFlags binds flags whose names match a key with dashes instead of
// underscores, e.g. --base-url.
func (l *Loader) BindFlags(flags *pflag.FlagSet) error {
	for _, key := range Keys {
		flag := flags.Lookup(strings.ReplaceAll(key, "_", "-"))
		if flag == nil {
			continue
		}

		err := l.v.BindPFlag(key, flag)
		if err != nil {
			return fmt.Errorf("failed to bind flag %s: %w", flag.Name, err)
		}
	}

	return nil
}

// Read reads configFile, or config.yml from the default directory when
// configFile is empty. A missing default file is not an error.
func (l *Loader) Read(configFile string) error {
	l.v.SetEnvPrefix(constants.EnvPrefix)
	l.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	l.v.AutomaticEnv()

	if configFile != "" {
		l.v.SetConfigFile(configFile)
	} else {
		dir, err := DefaultDir()
		if err != nil {
			return err
		}

		l.v.AddConfigPath(dir)
		l.v.SetConfigName("config")
		l.v.SetConfigType("yml")
	}

	err := l.v.ReadInConfig()
	if err != nil {
		notFound := viper.ConfigFileNotFoundError{}
		if configFile != "" || !errors.As(err, &notFound) {
			return fmt.Errorf("failed to read config: %w", err)
		}
	}

	l.loaded = true

	return nil
}

// FileUsed returns the config file that was read, if any.
func (l *Loader) FileUsed() string {
	return l.v.ConfigFileUsed()
}

// Lookup returns the value of a known key as a string.
func (l *Loader) Lookup(key string) (string, error) {
	if !l.loaded {
		return "", jsonapi.ErrConfigNotLoaded
	}

	if !slices.Contains(Keys, key) || !l.v.IsSet(key) {
		return "", fmt.Errorf("%w: %s", jsonapi.ErrUnknownConfigKey, key)
	}

	value := cast.ToString(l.v.Get(key))
	if value == "" {
		return "", fmt.Errorf("%w: %s", jsonapi.ErrUnknownConfigKey, key)
	}

	return value, nil
}

// Settings returns every key with a value, masking secrets.
func (l *Loader) Settings() map[string]string {
	settings := make(map[string]string, len(Keys))

	for _, key := range Keys {
		value := cast.ToString(l.v.Get(key))
		if value == "" {
			continue
		}

		if slices.Contains(secretKeys, key) {
			value = constants.MaskedSecret
		}

		settings[key] = value
	}

	return settings
}

// Config builds and validates a client config from the loaded values.
func (l *Loader) Config() (*jsonapi.Config, error) {
	if !l.loaded {
		return nil, jsonapi.ErrConfigNotLoaded
	}

	cfg := &jsonapi.Config{
		BaseURL:       l.v.GetString(KeyBaseURL),
		TokenURL:      l.v.GetString(KeyTokenURL),
		ClientID:      l.v.GetString(KeyClientID),
		ClientSecret:  l.v.GetString(KeyClientSecret),
		Username:      l.v.GetString(KeyUsername),
		Password:      l.v.GetString(KeyPassword),
		AccessToken:   l.v.GetString(KeyAccessToken),
		DefaultLocale: l.v.GetString(KeyLocale),
		HTTPTimeout:   l.v.GetDuration(KeyTimeout),
		RetryMax:      l.v.GetInt(KeyRetryMax),
		RetryWaitMin:  l.v.GetDuration(KeyRetryWaitMin),
		RetryWaitMax:  l.v.GetDuration(KeyRetryWaitMax),
		UserAgent:     l.v.GetString(KeyUserAgent),
		Debug:         l.v.GetBool(KeyDebug),
		NATSURL:       l.v.GetString(KeyNATSURL),
	}

	err := cfg.Validate()
	if err != nil {
		return nil, err
	}

	return cfg, nil
}

// DefaultDir returns ~/.jsonapi.
func DefaultDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}

	return filepath.Join(home, ".jsonapi"), nil
}
