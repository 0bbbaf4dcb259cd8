package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBackup_NoConfig(t *testing.T) {
	path, err := Backup(filepath.Join(t.TempDir(), "config.yaml"))

	require.NoError(t, err)
	assert.Empty(t, path)
}

func TestBackup_CopiesAndPrunes(t *testing.T) {
	// Given: an existing config file
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeFile(t, path, "log_level: debug\n")

	// When: backing up more often than MaxBackups
	var last string
	for i := 0; i < MaxBackups+2; i++ {
		b, err := Backup(path)
		require.NoError(t, err)
		last = b
		time.Sleep(2 * time.Millisecond)
	}

	// Then: only the newest MaxBackups survive, newest first
	backups, err := ListBackups(path)
	require.NoError(t, err)
	assert.Len(t, backups, MaxBackups)
	assert.Equal(t, last, backups[0])

	data, err := os.ReadFile(last)
	require.NoError(t, err)
	assert.Equal(t, "log_level: debug\n", string(data))
}

func TestRestore(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	backup := filepath.Join(dir, "old.yaml")
	writeFile(t, path, "log_level: warn\n")
	writeFile(t, backup, "log_level: error\n")

	require.NoError(t, Restore(path, backup))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "log_level: error\n", string(data))

	backups, err := ListBackups(path)
	require.NoError(t, err)
	assert.Len(t, backups, 1)
}

func TestRestore_MissingBackup(t *testing.T) {
	err := Restore(filepath.Join(t.TempDir(), "config.yaml"), "/does/not/exist")

	assert.ErrorContains(t, err, "failed to read backup")
}
