package logging_test

import (
	"errors"
	"testing"

	"github.com/fivetwenty-io/jsonapi-client/pkg/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewLogger(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		env     string
		level   string
		enabled zapcore.Level
		wantErr bool
	}{
		{name: "prod defaults to info", env: "prod", enabled: zapcore.InfoLevel},
		{name: "dev defaults to debug", env: "dev", enabled: zapcore.DebugLevel},
		{name: "level override", env: "prod", level: "warn", enabled: zapcore.WarnLevel},
		{name: "unknown env", env: "staging", wantErr: true},
		{name: "invalid level", env: "dev", level: "loud", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			logger, err := logging.NewLogger(tt.env, tt.level)
			if tt.wantErr {
				require.Error(t, err)

				return
			}

			require.NoError(t, err)
			assert.True(t, logger.Core().Enabled(tt.enabled))
			assert.False(t, logger.Core().Enabled(tt.enabled-1))
		})
	}
}

func TestAdapter(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.DebugLevel)
	adapter := logging.NewAdapter(zap.New(core))

	adapter.Debug("Executing query", map[string]interface{}{"url": "api/a/?", "query_id": "q1"})
	adapter.Info("plain", nil)
	adapter.Warn("Gate excluded entry", map[string]interface{}{"id": "1"})
	adapter.Error("Query failed", map[string]interface{}{"error": errors.New("boom")})

	entries := logs.All()
	require.Len(t, entries, 4)

	assert.Equal(t, zapcore.DebugLevel, entries[0].Level)
	assert.Equal(t, "Executing query", entries[0].Message)
	assert.Equal(t, map[string]interface{}{"query_id": "q1", "url": "api/a/?"}, entries[0].ContextMap())

	assert.Empty(t, entries[1].Context)
	assert.Equal(t, zapcore.WarnLevel, entries[2].Level)
	assert.Equal(t, "boom", entries[3].ContextMap()["error"])
}

func TestAdapter_NilLogger(t *testing.T) {
	t.Parallel()

	adapter := logging.NewAdapter(nil)

	assert.NotPanics(t, func() { adapter.Info("ignored", map[string]interface{}{"k": 1}) })
	assert.NotNil(t, adapter.Zap())
}
