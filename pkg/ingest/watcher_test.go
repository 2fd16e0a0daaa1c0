package ingest

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDropWatcherReportsSettledFile(t *testing.T) {
	dir := t.TempDir()

	settled := make(chan string, 1)
	dw, err := NewDropWatcher(zerolog.Nop(), func(path string) {
		settled <- path
	})
	require.NoError(t, err)
	defer dw.Stop()

	require.NoError(t, dw.Watch(dir))

	path := filepath.Join(dir, "upload.txt")
	require.NoError(t, os.WriteFile(path, []byte("hello"), 0o644))

	select {
	case got := <-settled:
		assert.Equal(t, path, got)
	case <-time.After(5 * time.Second):
		t.Fatal("file was never reported as settled")
	}
}

func TestDropWatcherIgnoresHiddenFiles(t *testing.T) {
	dir := t.TempDir()

	settled := make(chan string, 1)
	dw, err := NewDropWatcher(zerolog.Nop(), func(path string) {
		settled <- path
	})
	require.NoError(t, err)
	defer dw.Stop()

	require.NoError(t, dw.Watch(dir))

	require.NoError(t, os.WriteFile(filepath.Join(dir, ".hidden"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "partial.part"), []byte("x"), 0o644))

	select {
	case got := <-settled:
		t.Fatalf("unexpected settle for %s", got)
	case <-time.After(1 * time.Second):
	}
}
