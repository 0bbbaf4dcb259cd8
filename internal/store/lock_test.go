package store

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileLock_LockUnlock(t *testing.T) {
	lock := NewFileLock(filepath.Join(t.TempDir(), "files.lock"))

	require.NoError(t, lock.Lock())
	assert.True(t, lock.IsLocked())
	_, err := os.Stat(lock.Path())
	assert.NoError(t, err)

	require.NoError(t, lock.Unlock())
	assert.False(t, lock.IsLocked())
	// double unlock is a no-op
	assert.NoError(t, lock.Unlock())
}

func TestFileLock_TryLock_AlreadyLocked(t *testing.T) {
	path := filepath.Join(t.TempDir(), "files.lock")
	first := NewFileLock(path)
	require.NoError(t, first.Lock())
	defer func() { _ = first.Unlock() }()

	second := NewFileLock(path)
	acquired, err := second.TryLock()

	require.NoError(t, err)
	assert.False(t, acquired)
	assert.False(t, second.IsLocked())
}

func TestFileLock_CreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "files.lock")
	lock := NewFileLock(path)

	acquired, err := lock.TryLock()

	require.NoError(t, err)
	assert.True(t, acquired)
	assert.NoError(t, lock.Unlock())
}
