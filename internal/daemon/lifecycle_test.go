package daemon

import (
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPIDFileAcquireRelease(t *testing.T) {
	dataDir := filepath.Join(t.TempDir(), "data")
	pf := NewPIDFile(dataDir, zerolog.Nop())

	// Acquire creates the data directory and records this process.
	require.NoError(t, pf.Acquire())

	raw, err := os.ReadFile(filepath.Join(dataDir, pidFileName))
	require.NoError(t, err)
	assert.Equal(t, strconv.Itoa(os.Getpid()), string(raw))

	pid, err := pf.Read()
	require.NoError(t, err)
	assert.Equal(t, os.Getpid(), pid)

	// The test process itself is alive.
	assert.True(t, pf.Alive())

	require.NoError(t, pf.Release())
	_, err = os.Stat(filepath.Join(dataDir, pidFileName))
	assert.True(t, os.IsNotExist(err))
}

func TestPIDFileReleaseWithoutAcquire(t *testing.T) {
	pf := NewPIDFile(t.TempDir(), zerolog.Nop())
	assert.NoError(t, pf.Release())
}

func TestPIDFileMissing(t *testing.T) {
	pf := NewPIDFile(t.TempDir(), zerolog.Nop())

	_, err := pf.Read()
	assert.Error(t, err)
	assert.False(t, pf.Alive())
}

func TestPIDFileMalformed(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, pidFileName), []byte("not-a-pid"), 0o644))

	pf := NewPIDFile(dir, zerolog.Nop())
	_, err := pf.Read()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "malformed")
	assert.False(t, pf.Alive())
}
