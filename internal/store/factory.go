package store

import (
	"fmt"
	"os"
	"path/filepath"
)

// Backend names an Index implementation.
type Backend string

const (
	// BackendSQLite uses SQLite FTS5 (default). Safe for concurrent readers
	// in other processes.
	BackendSQLite Backend = "sqlite"

	// BackendBleve uses Bleve v2. Single process only.
	BackendBleve Backend = "bleve"
)

// ParseBackend validates a backend name. Empty means sqlite.
func ParseBackend(name string) (Backend, error) {
	switch Backend(name) {
	case BackendSQLite, "":
		return BackendSQLite, nil
	case BackendBleve:
		return BackendBleve, nil
	default:
		return "", fmt.Errorf("unknown index backend: %s (valid options: sqlite, bleve)", name)
	}
}

// Open creates an Index for backend under dir, named base plus the
// backend's extension. An empty dir creates an in-memory index.
func Open(dir, base string, config Config, backend string) (Index, error) {
	b, err := ParseBackend(backend)
	if err != nil {
		return nil, err
	}

	var path string
	if dir != "" {
		path = IndexPath(dir, base, b)
	}

	switch b {
	case BackendBleve:
		return NewBleveIndex(path, config)
	default:
		return NewSQLiteIndex(path, config)
	}
}

// IndexPath returns the on-disk location of an index.
func IndexPath(dir, base string, backend Backend) string {
	p := filepath.Join(dir, base)
	if backend == BackendBleve {
		return p + ".bleve"
	}
	return p + ".db"
}

// DetectBackend reports which backend an existing index under dir uses,
// or "" when none exists.
func DetectBackend(dir, base string) Backend {
	if fileExists(IndexPath(dir, base, BackendSQLite)) {
		return BackendSQLite
	}
	if dirExists(IndexPath(dir, base, BackendBleve)) {
		return BackendBleve
	}
	return ""
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
