package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	cfg := DefaultConfig()
	cfg.Telegram.BotToken = "123456789:ABCdefGHIjklMNOpqrsTUVwxyz"
	cfg.OpenAI.APIKey = "sk-test-key"
	return cfg
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "openai", cfg.Agent.Provider)
	assert.Equal(t, "gpt-4o-mini", cfg.OpenAI.ChatModel)
	assert.Equal(t, "text-embedding-3-small", cfg.OpenAI.EmbeddingModel)
	assert.Equal(t, 1536, cfg.OpenAI.EmbeddingDimension)
	assert.Equal(t, 0.7, cfg.Agent.Temperature)
	assert.Equal(t, 15, cfg.Memory.TopK)
	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, 500, cfg.Ingest.MinChunkSize)
	assert.Equal(t, 1000, cfg.Ingest.MaxChunkSize)
	assert.Equal(t, 50, cfg.Ingest.Overlap)
	assert.Equal(t, 10000, cfg.Summary.MaxChars)
	assert.Equal(t, "0 * * * *", cfg.Cleanup.Schedule)
	assert.False(t, cfg.Metrics.Enabled)
	assert.Equal(t, "127.0.0.1:9090", cfg.Metrics.Addr)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.True(t, cfg.Logging.Redaction)
	assert.NotEmpty(t, cfg.Agent.SystemPrompt)
}

func TestConfigValidate(t *testing.T) {
	t.Run("valid config", func(t *testing.T) {
		cfg := validConfig()
		require.NoError(t, cfg.Validate())
	})

	t.Run("missing bot token", func(t *testing.T) {
		cfg := validConfig()
		cfg.Telegram.BotToken = ""
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "telegram bot token")
	})

	t.Run("missing openai key", func(t *testing.T) {
		cfg := validConfig()
		cfg.OpenAI.APIKey = ""
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "openai api key")
	})

	t.Run("openai key required even for anthropic provider", func(t *testing.T) {
		cfg := validConfig()
		cfg.Agent.Provider = "anthropic"
		cfg.Anthropic.APIKey = "sk-ant-test"
		cfg.OpenAI.APIKey = ""
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "openai api key")
	})

	t.Run("anthropic provider needs key", func(t *testing.T) {
		cfg := validConfig()
		cfg.Agent.Provider = "anthropic"
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "anthropic api key")
	})

	t.Run("anthropic provider with key", func(t *testing.T) {
		cfg := validConfig()
		cfg.Agent.Provider = "anthropic"
		cfg.Anthropic.APIKey = "sk-ant-test"
		require.NoError(t, cfg.Validate())
	})

	t.Run("invalid provider", func(t *testing.T) {
		cfg := validConfig()
		cfg.Agent.Provider = "gemini"
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid agent provider")
	})

	t.Run("temperature out of range", func(t *testing.T) {
		cfg := validConfig()
		cfg.Agent.Temperature = 1.5
		assert.Error(t, cfg.Validate())
	})

	t.Run("invalid store driver", func(t *testing.T) {
		cfg := validConfig()
		cfg.Store.Driver = "postgres"
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid store driver")
	})

	t.Run("top_k must be positive", func(t *testing.T) {
		cfg := validConfig()
		cfg.Memory.TopK = 0
		assert.Error(t, cfg.Validate())
	})

	t.Run("chunk size ordering", func(t *testing.T) {
		cfg := validConfig()
		cfg.Ingest.MinChunkSize = 2000
		cfg.Ingest.MaxChunkSize = 1000
		assert.Error(t, cfg.Validate())
	})

	t.Run("drop dir needs user id", func(t *testing.T) {
		cfg := validConfig()
		cfg.Ingest.DropDir = "/tmp/drop"
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "drop_user_id")

		cfg.Ingest.DropUserID = "42"
		require.NoError(t, cfg.Validate())
	})

	t.Run("zero dimension", func(t *testing.T) {
		cfg := validConfig()
		cfg.OpenAI.EmbeddingDimension = 0
		assert.Error(t, cfg.Validate())
	})

	t.Run("metrics enabled needs addr", func(t *testing.T) {
		cfg := validConfig()
		cfg.Metrics.Enabled = true
		cfg.Metrics.Addr = ""
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "metrics addr")

		cfg.Metrics.Addr = "127.0.0.1:9090"
		require.NoError(t, cfg.Validate())
	})
}

func TestConfigString(t *testing.T) {
	cfg := validConfig()
	s := cfg.String()
	assert.Contains(t, s, "gpt-4o-mini")
	assert.Contains(t, s, "embedding_model")
}
