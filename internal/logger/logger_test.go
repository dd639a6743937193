package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestConfigFromEnv(t *testing.T) {
	t.Setenv("LOG_DEV", "1")
	t.Setenv("LOG_LEVEL", "")
	assert.Equal(t, Config{Level: "debug", Dev: true}, ConfigFromEnv())

	t.Setenv("LOG_DEV", "")
	assert.Equal(t, Config{Level: "info"}, ConfigFromEnv())

	t.Setenv("LOG_LEVEL", "warn")
	assert.Equal(t, Config{Level: "warn"}, ConfigFromEnv())
}

func TestNewRespectsLevel(t *testing.T) {
	lg, err := New(Config{Level: "error"})
	require.NoError(t, err)
	assert.False(t, lg.Core().Enabled(zapcore.WarnLevel))
	assert.True(t, lg.Core().Enabled(zapcore.ErrorLevel))

	dev, err := New(Config{Level: "debug", Dev: true})
	require.NoError(t, err)
	assert.True(t, dev.Core().Enabled(zapcore.DebugLevel))
}

func TestLevelFromStringDefaultsToInfo(t *testing.T) {
	assert.Equal(t, zapcore.InfoLevel, levelFromString("chatty"))
	assert.Equal(t, zapcore.WarnLevel, levelFromString("warning"))
}
