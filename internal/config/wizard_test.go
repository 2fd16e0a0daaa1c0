package config

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// runWizard feeds the newline-joined answers to the wizard.
func runWizard(t *testing.T, answers ...string) (*Config, string) {
	t.Helper()

	in := strings.NewReader(strings.Join(answers, "\n") + "\n")
	out := &bytes.Buffer{}
	cfg, err := NewWizardIO(in, out).Run()
	require.NoError(t, err)
	return cfg, out.String()
}

func TestWizardDefaults(t *testing.T) {
	cfg, out := runWizard(t,
		"123456789:ABCdefGHI", // bot token
		"sk-test-key",         // openai key
		"",                    // base url
		"",                    // provider
		"",                    // chat model
		"",                    // log level
	)

	assert.Equal(t, "123456789:ABCdefGHI", cfg.Telegram.BotToken)
	assert.Equal(t, "sk-test-key", cfg.OpenAI.APIKey)
	assert.Equal(t, "openai", cfg.Agent.Provider)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Contains(t, out, "Configuration complete!")
}

func TestWizardAnthropicProvider(t *testing.T) {
	cfg, _ := runWizard(t,
		"123456789:ABCdefGHI",
		"sk-test-key",
		"",
		"anthropic",
		"sk-ant-secret", // anthropic key replaces the chat model question
		"debug",
	)

	assert.Equal(t, "anthropic", cfg.Agent.Provider)
	assert.Equal(t, "sk-ant-secret", cfg.Anthropic.APIKey)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestWizardReasksOnInvalidToken(t *testing.T) {
	cfg, out := runWizard(t,
		"not-a-token",
		"123456789:ABCdefGHI",
		"sk-test-key",
		"",
		"",
		"",
		"",
	)

	assert.Equal(t, "123456789:ABCdefGHI", cfg.Telegram.BotToken)
	assert.Contains(t, out, "Error: invalid Telegram bot token format")
}

func TestWizardUnknownProviderFallsBack(t *testing.T) {
	cfg, out := runWizard(t,
		"123456789:ABCdefGHI",
		"sk-test-key",
		"",
		"gemini",
		"", // chat model question still follows for openai
		"",
	)

	assert.Equal(t, "openai", cfg.Agent.Provider)
	assert.Contains(t, out, "Warning:")
}
