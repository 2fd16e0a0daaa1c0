package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStopWhenNotRunning(t *testing.T) {
	configPath, dataDir := writeTestConfig(t)
	// A leftover unreadable PID file should be cleaned up.
	pidPath := filepath.Join(dataDir, "haybot.pid")
	require.NoError(t, os.WriteFile(pidPath, []byte("not-a-pid"), 0o644))

	out, err := execRoot(t, "stop", "--config", configPath)
	require.NoError(t, err)

	assert.Contains(t, out, "Daemon is not running")
	assert.NoFileExists(t, pidPath)
}

func TestStopTimeoutFlag(t *testing.T) {
	flag := subcommand(t, "stop").Flags().Lookup("timeout")
	require.NotNil(t, flag)
	assert.Equal(t, "30", flag.DefValue)
}

func TestStopHelp(t *testing.T) {
	out, err := execRoot(t, "stop", "--help")
	require.NoError(t, err)
	assert.Contains(t, out, "Stop the Haybot daemon")
}
