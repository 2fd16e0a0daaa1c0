package config

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// Wizard walks the user through an initial configuration on the
// terminal.
type Wizard struct {
	in        *bufio.Reader
	out       io.Writer
	validator *Validator
}

// NewWizard creates a wizard reading from stdin and writing to stdout.
func NewWizard() *Wizard {
	return NewWizardIO(os.Stdin, os.Stdout)
}

// NewWizardIO creates a wizard on explicit streams.
func NewWizardIO(in io.Reader, out io.Writer) *Wizard {
	return &Wizard{
		in:        bufio.NewReader(in),
		out:       out,
		validator: NewValidator(),
	}
}

// Run asks for the required settings and returns the resulting config.
func (w *Wizard) Run() (*Config, error) {
	fmt.Fprintln(w.out, "=== Haybot Configuration Wizard ===")
	fmt.Fprintln(w.out)

	cfg := DefaultConfig()
	for _, step := range []func(*Config) error{
		w.askTelegram,
		w.askOpenAI,
		w.askProvider,
		w.askLogging,
	} {
		if err := step(cfg); err != nil {
			return nil, err
		}
		fmt.Fprintln(w.out)
	}

	fmt.Fprintln(w.out, "Configuration complete!")
	return cfg, nil
}

func (w *Wizard) askTelegram(cfg *Config) error {
	fmt.Fprintln(w.out, "Telegram:")
	token, err := w.promptRequired("Bot token", "bot token is required", w.validator.ValidateTelegramToken)
	if err != nil {
		return err
	}
	cfg.Telegram.BotToken = token
	return nil
}

// askOpenAI always runs: embeddings go through OpenAI regardless of the
// chat provider.
func (w *Wizard) askOpenAI(cfg *Config) error {
	fmt.Fprintln(w.out, "OpenAI (used for embeddings, and for chat unless Anthropic is chosen):")
	key, err := w.promptRequired("API key", "OpenAI API key is required", func(key string) error {
		return w.validator.ValidateAPIKey(key, "openai")
	})
	if err != nil {
		return err
	}
	cfg.OpenAI.APIKey = key

	baseURL, err := w.prompt("Base URL (press Enter for api.openai.com)")
	if err != nil {
		return err
	}
	if baseURL != "" {
		cfg.OpenAI.BaseURL = baseURL
	}
	return nil
}

func (w *Wizard) askProvider(cfg *Config) error {
	fmt.Fprintln(w.out, "Chat provider options:")
	fmt.Fprintln(w.out, "  openai    - OpenAI chat models (default)")
	fmt.Fprintln(w.out, "  anthropic - Anthropic Claude models")

	provider, err := w.prompt("Provider [openai]")
	if err != nil {
		return err
	}
	if provider != "" {
		if err := w.validator.ValidateProvider(provider); err != nil {
			fmt.Fprintf(w.out, "Warning: %v, using default (openai)\n", err)
			provider = "openai"
		}
		cfg.Agent.Provider = provider
	}

	if cfg.Agent.Provider == "anthropic" {
		key, err := w.promptRequired("Anthropic API key",
			"Anthropic API key is required for the anthropic provider",
			func(key string) error {
				return w.validator.ValidateAPIKey(key, "anthropic")
			})
		if err != nil {
			return err
		}
		cfg.Anthropic.APIKey = key
		return nil
	}

	model, err := w.prompt(fmt.Sprintf("Chat model [%s]", cfg.OpenAI.ChatModel))
	if err != nil {
		return err
	}
	if model != "" {
		cfg.OpenAI.ChatModel = model
	}
	return nil
}

func (w *Wizard) askLogging(cfg *Config) error {
	fmt.Fprintln(w.out, "Logging:")
	level, err := w.prompt("Log level (debug/info/warn/error) [info]")
	if err != nil {
		return err
	}
	if level != "" {
		if err := w.validator.ValidateLogLevel(level); err != nil {
			fmt.Fprintf(w.out, "Warning: %v, using default (info)\n", err)
			return nil
		}
		cfg.Logging.Level = level
	}
	return nil
}

// prompt asks once and returns the trimmed answer, which may be empty.
func (w *Wizard) prompt(label string) (string, error) {
	fmt.Fprintf(w.out, "%s: ", label)
	line, err := w.in.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// promptRequired re-asks until a non-empty answer passes validate.
func (w *Wizard) promptRequired(label, emptyMsg string, validate func(string) error) (string, error) {
	for {
		answer, err := w.prompt(label)
		if err != nil {
			return "", err
		}
		if answer == "" {
			fmt.Fprintf(w.out, "Error: %s\n", emptyMsg)
			continue
		}
		if err := validate(answer); err != nil {
			fmt.Fprintf(w.out, "Error: %v\n", err)
			continue
		}
		return answer, nil
	}
}
