package daemon

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/rs/zerolog"
)

// pidFileName is the PID file kept under the data directory while the
// daemon runs.
const pidFileName = "haybot.pid"

// PIDFile pins a running daemon to its data directory. Exactly one
// daemon holds the file at a time; the CLI reads it to find the
// process and check whether it is still alive.
type PIDFile struct {
	path   string
	logger zerolog.Logger
}

// NewPIDFile builds the handle for the PID file under dataDir.
func NewPIDFile(dataDir string, logger zerolog.Logger) *PIDFile {
	return &PIDFile{
		path:   filepath.Join(dataDir, pidFileName),
		logger: logger,
	}
}

// Path returns the PID file location.
func (p *PIDFile) Path() string {
	return p.path
}

// Acquire records the current process in the PID file.
func (p *PIDFile) Acquire() error {
	if err := os.MkdirAll(filepath.Dir(p.path), 0o755); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}

	pid := os.Getpid()
	if err := os.WriteFile(p.path, []byte(strconv.Itoa(pid)), 0o644); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}

	p.logger.Info().Str("pid_file", p.path).Int("pid", pid).Msg("PID file acquired")
	return nil
}

// Release removes the PID file. Releasing an absent file is fine.
func (p *PIDFile) Release() error {
	if err := os.Remove(p.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove pid file: %w", err)
	}
	return nil
}

// Read returns the recorded PID.
func (p *PIDFile) Read() (int, error) {
	data, err := os.ReadFile(p.path)
	if err != nil {
		return 0, err
	}

	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, fmt.Errorf("malformed pid file %s: %w", p.path, err)
	}
	return pid, nil
}

// Alive reports whether the recorded process still exists. On Unix,
// FindProcess always succeeds, so signal 0 checks for existence.
func (p *PIDFile) Alive() bool {
	pid, err := p.Read()
	if err != nil {
		return false
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return process.Signal(syscall.Signal(0)) == nil
}
