package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// envPrefix scopes environment overrides; HAYBOT_TELEGRAM_BOT_TOKEN
// overrides telegram.bot_token and so on.
const envPrefix = "HAYBOT"

// envOnlyKeys are keys that may arrive via environment without appearing
// in the config file. AutomaticEnv resolves keys on access, but Unmarshal
// walks the config file keys, so these need explicit binding.
var envOnlyKeys = []string{
	"telegram.bot_token",
	"openai.api_key",
	"openai.base_url",
	"openai.chat_model",
	"openai.embedding_model",
	"anthropic.api_key",
	"agent.provider",
	"store.driver",
	"store.path",
	"data_dir",
	"metrics.enabled",
	"metrics.addr",
	"logging.level",
}

// Loader reads and writes the JSON config file.
type Loader struct {
	configPath string
}

// NewLoader creates a new config loader
func NewLoader(configPath string) *Loader {
	return &Loader{
		configPath: configPath,
	}
}

// Load is a convenience function that creates a loader and loads the config
func Load(configPath string) (*Config, error) {
	return NewLoader(configPath).Load()
}

// Load reads the config file, applies environment overrides and fills
// path defaults derived from the data directory.
func (l *Loader) Load() (*Config, error) {
	configPath, err := l.resolvePath()
	if err != nil {
		return nil, err
	}

	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("json")
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, key := range envOnlyKeys {
		_ = v.BindEnv(key)
	}

	// The file is optional; env vars alone can carry a full config.
	if _, err := os.Stat(configPath); err == nil {
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := DefaultConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := fillPathDefaults(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// fillPathDefaults derives unset file locations from the data directory.
func fillPathDefaults(cfg *Config) error {
	if cfg.DataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("failed to get home directory: %w", err)
		}
		cfg.DataDir = filepath.Join(home, ".haybot")
	}

	if cfg.Logging.File == "" {
		cfg.Logging.File = filepath.Join(cfg.DataDir, "haybot.log")
	}
	if cfg.Store.Path == "" {
		switch cfg.Store.Driver {
		case "chromem":
			cfg.Store.Path = filepath.Join(cfg.DataDir, "fragments")
		default:
			cfg.Store.Path = filepath.Join(cfg.DataDir, "fragments.db")
		}
	}
	if cfg.Ingest.TempDir == "" {
		cfg.Ingest.TempDir = filepath.Join(cfg.DataDir, "uploads")
	}
	return nil
}

// Save writes the configuration to the config file, creating the
// directory when needed.
func (l *Loader) Save(cfg *Config) error {
	configPath, err := l.resolvePath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("json")

	// Canonical fields only; derived paths are recomputed on load.
	for key, section := range map[string]interface{}{
		"telegram":  cfg.Telegram,
		"openai":    cfg.OpenAI,
		"anthropic": cfg.Anthropic,
		"agent":     cfg.Agent,
		"memory":    cfg.Memory,
		"store":     cfg.Store,
		"ingest":    cfg.Ingest,
		"summary":   cfg.Summary,
		"cleanup":   cfg.Cleanup,
		"metrics":   cfg.Metrics,
		"logging":   cfg.Logging,
		"data_dir":  cfg.DataDir,
	} {
		v.Set(key, section)
	}

	if err := v.WriteConfig(); err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("failed to write config file: %w", err)
		}
		if err := v.SafeWriteConfig(); err != nil {
			return fmt.Errorf("failed to write config file: %w", err)
		}
	}
	return nil
}

// GetConfigPath returns the config file path
func (l *Loader) GetConfigPath() string {
	path, err := l.resolvePath()
	if err != nil {
		return ""
	}
	return path
}

// resolvePath falls back to $HOME/.haybot/haybot.json when no explicit
// path was given.
func (l *Loader) resolvePath() (string, error) {
	if l.configPath != "" {
		return l.configPath, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".haybot", "haybot.json"), nil
}
