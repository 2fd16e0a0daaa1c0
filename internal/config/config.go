package config

import (
	"encoding/json"
	"fmt"
)

// Config represents the main bot configuration
type Config struct {
	// Telegram
	Telegram TelegramConfig `json:"telegram" mapstructure:"telegram"`

	// OpenAI credentials and models
	OpenAI OpenAIConfig `json:"openai" mapstructure:"openai"`

	// Anthropic credentials (optional alternate chat provider)
	Anthropic AnthropicConfig `json:"anthropic" mapstructure:"anthropic"`

	// Agent behavior
	Agent AgentConfig `json:"agent" mapstructure:"agent"`

	// Memory retrieval
	Memory MemoryConfig `json:"memory" mapstructure:"memory"`

	// Fragment store
	Store StoreConfig `json:"store" mapstructure:"store"`

	// Document ingestion
	Ingest IngestConfig `json:"ingest" mapstructure:"ingest"`

	// Document summaries
	Summary SummaryConfig `json:"summary" mapstructure:"summary"`

	// Upload staging cleanup
	Cleanup CleanupConfig `json:"cleanup" mapstructure:"cleanup"`

	// Metrics endpoint
	Metrics MetricsConfig `json:"metrics" mapstructure:"metrics"`

	// Logging
	Logging LoggingConfig `json:"logging" mapstructure:"logging"`

	// Data directory
	DataDir string `json:"data_dir" mapstructure:"data_dir"`
}

// TelegramConfig holds Telegram bot configuration
type TelegramConfig struct {
	BotToken string `json:"bot_token" mapstructure:"bot_token"`
	Debug    bool   `json:"debug" mapstructure:"debug"`
}

// OpenAIConfig holds OpenAI credentials and model selection
type OpenAIConfig struct {
	APIKey string `json:"api_key" mapstructure:"api_key"`
	// BaseURL overrides the API endpoint, e.g. for proxy deployments.
	BaseURL            string `json:"base_url" mapstructure:"base_url"`
	ChatModel          string `json:"chat_model" mapstructure:"chat_model"`
	EmbeddingModel     string `json:"embedding_model" mapstructure:"embedding_model"`
	EmbeddingDimension int    `json:"embedding_dimension" mapstructure:"embedding_dimension"`
}

// AnthropicConfig holds Anthropic credentials
type AnthropicConfig struct {
	APIKey  string `json:"api_key" mapstructure:"api_key"`
	BaseURL string `json:"base_url" mapstructure:"base_url"`
	Model   string `json:"model" mapstructure:"model"`
}

// AgentConfig configures the chat agent
type AgentConfig struct {
	Provider     string  `json:"provider" mapstructure:"provider"` // openai, anthropic
	Temperature  float64 `json:"temperature" mapstructure:"temperature"`
	MaxTokens    int     `json:"max_tokens" mapstructure:"max_tokens"`
	MaxRetries   int     `json:"max_retries" mapstructure:"max_retries"`
	SystemPrompt string  `json:"system_prompt" mapstructure:"system_prompt"`
}

// MemoryConfig configures retrieval
type MemoryConfig struct {
	TopK int `json:"top_k" mapstructure:"top_k"`
}

// StoreConfig configures the fragment store backend
type StoreConfig struct {
	Driver string `json:"driver" mapstructure:"driver"` // sqlite, chromem
	Path   string `json:"path" mapstructure:"path"`
}

// IngestConfig configures document ingestion
type IngestConfig struct {
	MinChunkSize int `json:"min_chunk_size" mapstructure:"min_chunk_size"`
	MaxChunkSize int `json:"max_chunk_size" mapstructure:"max_chunk_size"`
	Overlap      int `json:"overlap" mapstructure:"overlap"`
	// DropDir, when set, is watched for files to ingest for DropUserID.
	DropDir    string `json:"drop_dir" mapstructure:"drop_dir"`
	DropUserID string `json:"drop_user_id" mapstructure:"drop_user_id"`
	// TempDir stages downloaded uploads before ingestion.
	TempDir string `json:"temp_dir" mapstructure:"temp_dir"`
}

// SummaryConfig configures document summaries
type SummaryConfig struct {
	MaxChars  int `json:"max_chars" mapstructure:"max_chars"`
	MaxTokens int `json:"max_tokens" mapstructure:"max_tokens"`
}

// CleanupConfig configures the stale-upload sweeper
type CleanupConfig struct {
	Schedule    string `json:"schedule" mapstructure:"schedule"` // cron expression
	MaxAgeHours int    `json:"max_age_hours" mapstructure:"max_age_hours"`
}

// MetricsConfig configures the Prometheus metrics endpoint
type MetricsConfig struct {
	Enabled bool   `json:"enabled" mapstructure:"enabled"`
	Addr    string `json:"addr" mapstructure:"addr"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level     string `json:"level" mapstructure:"level"`
	File      string `json:"file" mapstructure:"file"`
	MaxSize   int    `json:"max_size" mapstructure:"max_size"` // MB
	MaxAge    int    `json:"max_age" mapstructure:"max_age"`   // days
	Compress  bool   `json:"compress" mapstructure:"compress"`
	Redaction bool   `json:"redaction" mapstructure:"redaction"`
}

// DefaultSystemPrompt is the assistant persona used when none is configured.
const DefaultSystemPrompt = "You are a personal assistant chatting over Telegram. You keep the conversation natural and rely on the provided context from earlier messages and uploaded documents when it is present. Use the dog_fact and dog_image_describe tools when the user asks for dog facts, dog pictures, or breed descriptions. Answer briefly and in a friendly tone."

// DefaultConfig returns a config with default values
func DefaultConfig() *Config {
	return &Config{
		OpenAI: OpenAIConfig{
			ChatModel:          "gpt-4o-mini",
			EmbeddingModel:     "text-embedding-3-small",
			EmbeddingDimension: 1536,
		},
		Anthropic: AnthropicConfig{
			Model: "claude-3-5-sonnet-20241022",
		},
		Agent: AgentConfig{
			Provider:     "openai",
			Temperature:  0.7,
			MaxTokens:    4096,
			MaxRetries:   3,
			SystemPrompt: DefaultSystemPrompt,
		},
		Memory: MemoryConfig{
			TopK: 15,
		},
		Store: StoreConfig{
			Driver: "sqlite",
		},
		Ingest: IngestConfig{
			MinChunkSize: 500,
			MaxChunkSize: 1000,
			Overlap:      50,
		},
		Summary: SummaryConfig{
			MaxChars:  10000,
			MaxTokens: 100,
		},
		Cleanup: CleanupConfig{
			Schedule:    "0 * * * *",
			MaxAgeHours: 1,
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Addr:    "127.0.0.1:9090",
		},
		Logging: LoggingConfig{
			Level:     "info",
			MaxSize:   100,
			MaxAge:    7,
			Compress:  true,
			Redaction: true,
		},
		DataDir: "",
	}
}

// String returns a JSON representation of the config
func (c *Config) String() string {
	data, _ := json.MarshalIndent(c, "", "  ")
	return string(data)
}

// Validate checks if the configuration is valid. Missing credentials are
// fatal here so the process refuses to start instead of failing on first use.
func (c *Config) Validate() error {
	if c.Telegram.BotToken == "" {
		return fmt.Errorf("telegram bot token is required")
	}

	// Embeddings always go through OpenAI, so the key is required regardless
	// of the chat provider.
	if c.OpenAI.APIKey == "" {
		return fmt.Errorf("openai api key is required")
	}
	if c.OpenAI.EmbeddingModel == "" {
		return fmt.Errorf("embedding model is required")
	}
	if c.OpenAI.EmbeddingDimension <= 0 {
		return fmt.Errorf("embedding dimension must be positive")
	}

	switch c.Agent.Provider {
	case "openai":
		if c.OpenAI.ChatModel == "" {
			return fmt.Errorf("openai chat model is required")
		}
	case "anthropic":
		if c.Anthropic.APIKey == "" {
			return fmt.Errorf("anthropic api key is required when the anthropic provider is selected")
		}
		if c.Anthropic.Model == "" {
			return fmt.Errorf("anthropic model is required")
		}
	default:
		return fmt.Errorf("invalid agent provider %s (must be: openai, anthropic)", c.Agent.Provider)
	}

	if c.Agent.Temperature < 0 || c.Agent.Temperature > 1 {
		return fmt.Errorf("agent temperature must be between 0 and 1")
	}

	if c.Memory.TopK <= 0 {
		return fmt.Errorf("memory top_k must be positive")
	}

	switch c.Store.Driver {
	case "sqlite", "chromem":
	default:
		return fmt.Errorf("invalid store driver %s (must be: sqlite, chromem)", c.Store.Driver)
	}

	if c.Ingest.MinChunkSize > c.Ingest.MaxChunkSize {
		return fmt.Errorf("ingest min chunk size %d exceeds max %d", c.Ingest.MinChunkSize, c.Ingest.MaxChunkSize)
	}
	if c.Ingest.DropDir != "" && c.Ingest.DropUserID == "" {
		return fmt.Errorf("ingest drop_user_id is required when drop_dir is set")
	}

	if c.Summary.MaxChars <= 0 {
		return fmt.Errorf("summary max_chars must be positive")
	}

	if c.Metrics.Enabled && c.Metrics.Addr == "" {
		return fmt.Errorf("metrics addr is required when metrics are enabled")
	}

	return nil
}
