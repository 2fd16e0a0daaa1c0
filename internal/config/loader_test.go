package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// loadFrom writes body as a config file and loads it.
func loadFrom(t *testing.T, body string) *Config {
	t.Helper()

	configPath := filepath.Join(t.TempDir(), "haybot.json")
	require.NoError(t, os.WriteFile(configPath, []byte(body), 0o644))

	cfg, err := NewLoader(configPath).Load()
	require.NoError(t, err)
	return cfg
}

func TestLoadMissingFileYieldsDefaults(t *testing.T) {
	cfg, err := NewLoader(filepath.Join(t.TempDir(), "nonexistent.json")).Load()
	require.NoError(t, err)

	assert.Equal(t, "openai", cfg.Agent.Provider)
	assert.Equal(t, 15, cfg.Memory.TopK)
}

func TestLoadMergesFileOverDefaults(t *testing.T) {
	cfg := loadFrom(t, `{
		"telegram": {"bot_token": "123456789:ABCdef"},
		"openai": {"api_key": "sk-test-key", "chat_model": "gpt-4o"},
		"store": {"driver": "chromem"}
	}`)

	assert.Equal(t, "123456789:ABCdef", cfg.Telegram.BotToken)
	assert.Equal(t, "sk-test-key", cfg.OpenAI.APIKey)
	assert.Equal(t, "gpt-4o", cfg.OpenAI.ChatModel)
	assert.Equal(t, "chromem", cfg.Store.Driver)
	// Untouched fields keep their defaults.
	assert.Equal(t, "text-embedding-3-small", cfg.OpenAI.EmbeddingModel)
}

func TestLoadRejectsMalformedFile(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "invalid.json")
	require.NoError(t, os.WriteFile(configPath, []byte("invalid json"), 0o644))

	_, err := NewLoader(configPath).Load()
	assert.Error(t, err)
}

func TestLoadEnvironmentOverrides(t *testing.T) {
	t.Setenv("HAYBOT_TELEGRAM_BOT_TOKEN", "987654321:EnvToken")
	t.Setenv("HAYBOT_OPENAI_API_KEY", "sk-env-key")

	cfg, err := NewLoader(filepath.Join(t.TempDir(), "nonexistent.json")).Load()
	require.NoError(t, err)

	assert.Equal(t, "987654321:EnvToken", cfg.Telegram.BotToken)
	assert.Equal(t, "sk-env-key", cfg.OpenAI.APIKey)
}

func TestFillPathDefaults(t *testing.T) {
	t.Run("paths derive from data dir", func(t *testing.T) {
		dataDir := t.TempDir()
		cfg := DefaultConfig()
		cfg.DataDir = dataDir

		require.NoError(t, fillPathDefaults(cfg))

		assert.Equal(t, filepath.Join(dataDir, "haybot.log"), cfg.Logging.File)
		assert.Equal(t, filepath.Join(dataDir, "fragments.db"), cfg.Store.Path)
		assert.Equal(t, filepath.Join(dataDir, "uploads"), cfg.Ingest.TempDir)
	})

	t.Run("chromem driver gets a directory store path", func(t *testing.T) {
		dataDir := t.TempDir()
		cfg := DefaultConfig()
		cfg.DataDir = dataDir
		cfg.Store.Driver = "chromem"

		require.NoError(t, fillPathDefaults(cfg))

		assert.Equal(t, filepath.Join(dataDir, "fragments"), cfg.Store.Path)
	})

	t.Run("explicit paths are untouched", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.DataDir = t.TempDir()
		cfg.Logging.File = "/var/log/haybot.log"

		require.NoError(t, fillPathDefaults(cfg))

		assert.Equal(t, "/var/log/haybot.log", cfg.Logging.File)
	})
}

func TestSaveRoundTrips(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "haybot.json")

	cfg := DefaultConfig()
	cfg.Telegram.BotToken = "123456789:SavedToken"
	cfg.OpenAI.APIKey = "sk-saved-key"
	require.NoError(t, NewLoader(configPath).Save(cfg))

	loaded, err := NewLoader(configPath).Load()
	require.NoError(t, err)
	assert.Equal(t, "123456789:SavedToken", loaded.Telegram.BotToken)
	assert.Equal(t, "sk-saved-key", loaded.OpenAI.APIKey)
}

func TestSaveCreatesDirectory(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "subdir", "haybot.json")

	require.NoError(t, NewLoader(configPath).Save(DefaultConfig()))
	assert.FileExists(t, configPath)
}

func TestGetConfigPath(t *testing.T) {
	assert.Equal(t, "/custom/path/haybot.json", NewLoader("/custom/path/haybot.json").GetConfigPath())
	assert.Contains(t, NewLoader("").GetConfigPath(), ".haybot")
}
