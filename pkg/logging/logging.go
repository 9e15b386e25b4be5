// Package logging builds zap loggers and adapts them to jsonapi.Logger.
package logging

import (
	"fmt"
	"sort"

	"github.com/fivetwenty-io/jsonapi-client/pkg/jsonapi"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewLogger creates a zap logger for the given environment.
// prod uses JSON output, local/dev use colored console output.
// levelOverride (if non-empty) overrides the log level: debug, info, warn, error.
func NewLogger(env string, levelOverride ...string) (*zap.Logger, error) {
	var cfg zap.Config

	switch env {
	case "prod":
		cfg = zap.NewProductionConfig()
	case "local", "dev":
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	default:
		return nil, fmt.Errorf("unknown environment %q for logger", env)
	}

	if len(levelOverride) > 0 && levelOverride[0] != "" {
		var level zapcore.Level

		err := level.UnmarshalText([]byte(levelOverride[0]))
		if err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", levelOverride[0], err)
		}

		cfg.Level = zap.NewAtomicLevelAt(level)
	}

	logger, err := cfg.Build(zap.AddStacktrace(zapcore.ErrorLevel))
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}

	return logger, nil
}

// Adapter satisfies jsonapi.Logger on top of a zap logger.
type Adapter struct {
	logger *zap.Logger
}

var _ jsonapi.Logger = (*Adapter)(nil)

// NewAdapter wraps logger. A nil logger discards everything.
func NewAdapter(logger *zap.Logger) *Adapter {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Adapter{logger: logger.WithOptions(zap.AddCallerSkip(1))}
}

// Zap returns the wrapped logger.
func (a *Adapter) Zap() *zap.Logger {
	return a.logger
}

func (a *Adapter) Debug(msg string, fields map[string]interface{}) {
	a.logger.Debug(msg, toFields(fields)...)
}

func (a *Adapter) Info(msg string, fields map[string]interface{}) {
	a.logger.Info(msg, toFields(fields)...)
}

func (a *Adapter) Warn(msg string, fields map[string]interface{}) {
	a.logger.Warn(msg, toFields(fields)...)
}

func (a *Adapter) Error(msg string, fields map[string]interface{}) {
	a.logger.Error(msg, toFields(fields)...)
}

// toFields sorts keys so output is stable.
func toFields(fields map[string]interface{}) []zap.Field {
	if len(fields) == 0 {
		return nil
	}

	keys := make([]string, 0, len(fields))
	for key := range fields {
		keys = append(keys, key)
	}

	sort.Strings(keys)

	out := make([]zap.Field, 0, len(keys))

	for _, key := range keys {
		value := fields[key]
		if err, ok := value.(error); ok {
			out = append(out, zap.NamedError(key, err))

			continue
		}

		out = append(out, zap.Any(key, value))
	}

	return out
}
