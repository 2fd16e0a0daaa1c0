package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/zerocode/haybot/internal/config"
	"github.com/zerocode/haybot/internal/daemon"
	"github.com/zerocode/haybot/internal/logger"
)

func newStartCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the Haybot daemon",
		Long: `Start the Haybot daemon in the foreground.
The daemon polls Telegram for messages and document uploads and
serves replies until interrupted.`,
		RunE: runStart,
	}
}

func runStart(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	// Refuse to start over an already-running instance
	pf := daemon.NewPIDFile(cfg.DataDir, zerolog.Nop())
	if pf.Alive() {
		return fmt.Errorf("daemon is already running (PID file: %s)", pf.Path())
	}

	log, err := newDaemonLogger(cfg)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer log.Close()

	d, err := daemon.New(cfg, log)
	if err != nil {
		return fmt.Errorf("failed to create daemon: %w", err)
	}
	if err := d.Start(); err != nil {
		return fmt.Errorf("failed to start daemon: %w", err)
	}

	fmt.Fprintln(cmd.OutOrStdout(), "Haybot daemon started. Press Ctrl+C to stop.")

	// Blocks until SIGINT or SIGTERM
	d.Wait()

	if err := d.Stop(); err != nil {
		return fmt.Errorf("failed to stop daemon: %w", err)
	}

	fmt.Fprintln(cmd.OutOrStdout(), "Haybot daemon stopped")
	return nil
}

func newDaemonLogger(cfg *config.Config) (*logger.Logger, error) {
	return logger.New(logger.Config{
		Level:     cfg.Logging.Level,
		File:      cfg.Logging.File,
		Console:   true,
		Pretty:    true,
		Redaction: cfg.Logging.Redaction,
		MaxSize:   cfg.Logging.MaxSize,
		MaxAge:    cfg.Logging.MaxAge,
		Compress:  cfg.Logging.Compress,
	})
}

// resolvePIDFile locates the daemon's PID file from the effective
// config, falling back to the default data directory when no config
// can be loaded.
func resolvePIDFile() *daemon.PIDFile {
	dataDir := ""
	if cfg, err := config.Load(cfgFile); err == nil {
		dataDir = cfg.DataDir
	}
	if dataDir == "" {
		if home, err := os.UserHomeDir(); err == nil {
			dataDir = filepath.Join(home, ".haybot")
		} else {
			dataDir = os.TempDir()
		}
	}
	return daemon.NewPIDFile(dataDir, zerolog.Nop())
}
