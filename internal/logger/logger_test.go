package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_WritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "overseer.log")

	l, err := New(Config{Level: "debug", File: path})
	require.NoError(t, err)

	zl := l.Logger()
	zl.Info().Str("component", "test").Msg("hello")
	require.NoError(t, l.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"component":"test"`)
	assert.Contains(t, string(data), "hello")
}

func TestNew_InvalidLevelFallsBackToInfo(t *testing.T) {
	path := filepath.Join(t.TempDir(), "overseer.log")

	l, err := New(Config{Level: "chatty", File: path})
	require.NoError(t, err)

	zl := l.Logger()
	zl.Debug().Msg("should be filtered")
	zl.Info().Msg("should pass")
	require.NoError(t, l.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "should be filtered")
	assert.Contains(t, string(data), "should pass")
}

func TestNew_NoOutputs(t *testing.T) {
	l, err := New(Config{Level: "info"})
	require.NoError(t, err)
	defer l.Close()

	// Must not panic with no writers configured.
	zl := l.Logger()
	zl.Info().Msg("dropped")
}
