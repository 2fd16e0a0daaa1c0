package config

import (
	"fmt"
	"regexp"
	"strings"
)

// telegramTokenRe matches the <bot_id>:<token> shape, e.g.
// 123456789:ABCdefGHIjklMNOpqrsTUVwxyz.
var telegramTokenRe = regexp.MustCompile(`^\d+:[A-Za-z0-9_-]+$`)

// maxTokensCeiling bounds the per-reply token budget.
const maxTokensCeiling = 200000

// Validator checks configuration values
type Validator struct{}

// NewValidator creates a new validator
func NewValidator() *Validator {
	return &Validator{}
}

// oneOf reports an error unless value is one of the allowed names.
func oneOf(kind, value string, allowed ...string) error {
	for _, a := range allowed {
		if value == a {
			return nil
		}
	}
	return fmt.Errorf("invalid %s: %s (must be one of: %s)", kind, value, strings.Join(allowed, ", "))
}

// ValidateAPIKey checks key shape for known providers; unknown providers
// only need a non-empty key.
func (v *Validator) ValidateAPIKey(key string, provider string) error {
	if key == "" {
		return fmt.Errorf("%s API key cannot be empty", provider)
	}
	switch provider {
	case "anthropic":
		if !strings.HasPrefix(key, "sk-ant-") {
			return fmt.Errorf("invalid Anthropic API key format (should start with sk-ant-)")
		}
	case "openai":
		if !strings.HasPrefix(key, "sk-") {
			return fmt.Errorf("invalid OpenAI API key format (should start with sk-)")
		}
	}
	return nil
}

// ValidateTelegramToken checks the bot token shape.
func (v *Validator) ValidateTelegramToken(token string) error {
	if token == "" {
		return fmt.Errorf("telegram bot token cannot be empty")
	}
	if !telegramTokenRe.MatchString(token) {
		return fmt.Errorf("invalid Telegram bot token format")
	}
	return nil
}

// ValidateTemperature checks the sampling temperature range.
func (v *Validator) ValidateTemperature(temp float64) error {
	if temp < 0 || temp > 1 {
		return fmt.Errorf("temperature must be between 0 and 1, got %f", temp)
	}
	return nil
}

// ValidateMaxTokens checks the per-reply token budget.
func (v *Validator) ValidateMaxTokens(tokens int) error {
	if tokens <= 0 {
		return fmt.Errorf("max tokens must be positive, got %d", tokens)
	}
	if tokens > maxTokensCeiling {
		return fmt.Errorf("max tokens too large (max %d), got %d", maxTokensCeiling, tokens)
	}
	return nil
}

// ValidateLogLevel checks the log level name.
func (v *Validator) ValidateLogLevel(level string) error {
	return oneOf("log level", level, "debug", "info", "warn", "error")
}

// ValidateStoreDriver checks the fragment store driver name.
func (v *Validator) ValidateStoreDriver(driver string) error {
	return oneOf("store driver", driver, "sqlite", "chromem")
}

// ValidateProvider checks the agent provider name.
func (v *Validator) ValidateProvider(provider string) error {
	return oneOf("provider", provider, "openai", "anthropic")
}

// ValidateConfig runs every check and collects all failures. Credentials
// are only shape-checked when present; required-field checks live in
// Config.Validate.
func (v *Validator) ValidateConfig(cfg *Config) []error {
	var errs []error
	collect := func(err error) {
		if err != nil {
			errs = append(errs, err)
		}
	}

	if cfg.Telegram.BotToken != "" {
		collect(v.ValidateTelegramToken(cfg.Telegram.BotToken))
	}
	if cfg.OpenAI.APIKey != "" {
		collect(v.ValidateAPIKey(cfg.OpenAI.APIKey, "openai"))
	}
	if cfg.Anthropic.APIKey != "" {
		collect(v.ValidateAPIKey(cfg.Anthropic.APIKey, "anthropic"))
	}

	collect(v.ValidateProvider(cfg.Agent.Provider))
	collect(v.ValidateTemperature(cfg.Agent.Temperature))
	if cfg.Agent.MaxTokens != 0 {
		collect(v.ValidateMaxTokens(cfg.Agent.MaxTokens))
	}
	collect(v.ValidateStoreDriver(cfg.Store.Driver))
	collect(v.ValidateLogLevel(cfg.Logging.Level))

	if cfg.Memory.TopK <= 0 {
		collect(fmt.Errorf("memory top_k must be positive, got %d", cfg.Memory.TopK))
	}
	if cfg.Ingest.MinChunkSize > cfg.Ingest.MaxChunkSize {
		collect(fmt.Errorf("ingest min_chunk_size (%d) exceeds max_chunk_size (%d)", cfg.Ingest.MinChunkSize, cfg.Ingest.MaxChunkSize))
	}
	if cfg.Cleanup.MaxAgeHours < 0 {
		collect(fmt.Errorf("cleanup max_age_hours must be >= 0"))
	}

	return errs
}
