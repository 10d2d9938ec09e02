package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogger(t *testing.T) {
	t.Run("level parsing", func(t *testing.T) {
		assert.Equal(t, zerolog.DebugLevel, NewLogger(Config{Level: "debug"}).GetLevel())
		assert.Equal(t, zerolog.WarnLevel, NewLogger(Config{Level: "warn"}).GetLevel())
	})

	t.Run("bad level falls back to info", func(t *testing.T) {
		assert.Equal(t, zerolog.InfoLevel, NewLogger(Config{Level: "loud"}).GetLevel())
		assert.Equal(t, zerolog.InfoLevel, NewLogger(Config{}).GetLevel())
	})

	t.Run("unwritable log file does not fail", func(t *testing.T) {
		logger := NewLogger(Config{File: filepath.Join(t.TempDir(), "no", "such", "dir", "app.log")})
		logger.Info().Msg("still works")
	})
}

func TestComponentLogger(t *testing.T) {
	var buf bytes.Buffer
	base := zerolog.New(&buf)
	ComponentLogger(base, "optimizer").Info().Msg("hello")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "optimizer", entry["component"])
	assert.Equal(t, "hello", entry["message"])
}

func TestContextRoundTrip(t *testing.T) {
	t.Run("attached logger comes back", func(t *testing.T) {
		var buf bytes.Buffer
		logger := zerolog.New(&buf)

		ctx := WithContext(context.Background(), logger)
		FromContext(ctx).Info().Msg("via context")
		assert.Contains(t, buf.String(), "via context")
	})

	t.Run("bare context yields a usable no-op logger", func(t *testing.T) {
		log := FromContext(context.Background())
		require.NotNil(t, log)
		log.Info().Msg("dropped")
	})
}
