package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConsoleOnly(t *testing.T) {
	l, err := New(Config{Level: "info", Console: true})
	require.NoError(t, err)
	defer l.Close()

	assert.Equal(t, zerolog.InfoLevel, l.GetZerolog().GetLevel())
	assert.Nil(t, l.file)
}

func TestNewUnknownLevelFallsBackToInfo(t *testing.T) {
	l, err := New(Config{Level: "chatty", Console: false})
	require.NoError(t, err)
	defer l.Close()

	assert.Equal(t, zerolog.InfoLevel, l.GetZerolog().GetLevel())
}

func TestNewWritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "haybot.log")

	l, err := New(Config{Level: "debug", File: path})
	require.NoError(t, err)

	l.Info().Str("user_id", "42").Msg("reply delivered")
	require.NoError(t, l.Close())

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(content), "reply delivered")
	assert.Contains(t, string(content), `"user_id":"42"`)
}

func TestNewRedactsFileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "haybot.log")

	l, err := New(Config{Level: "info", File: path, Redaction: true})
	require.NoError(t, err)
	require.NotNil(t, l.redactor)

	l.Error().Str("key", "sk-abc123def456ghi789jkl012").Msg("auth failed")
	require.NoError(t, l.Close())

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(content), "sk-abc123def456ghi789jkl012")
	assert.Contains(t, string(content), "[redacted:openai_key]")
}

func TestLevelFiltering(t *testing.T) {
	path := filepath.Join(t.TempDir(), "haybot.log")

	l, err := New(Config{Level: "warn", File: path})
	require.NoError(t, err)

	l.Debug().Msg("ignored debug")
	l.Info().Msg("ignored info")
	l.Warn().Msg("kept warn")
	require.NoError(t, l.Close())

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(content), "ignored")
	assert.Contains(t, string(content), "kept warn")
}

func TestWithChildLogger(t *testing.T) {
	l, err := New(Config{Level: "info", Console: false})
	require.NoError(t, err)
	defer l.Close()

	child := l.With().Str("module", "ingest").Logger()
	assert.Equal(t, zerolog.InfoLevel, child.GetLevel())
}
