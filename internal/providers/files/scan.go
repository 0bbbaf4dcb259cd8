package files

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/charlievieth/fastwalk"

	"github.com/indelve/indelve/internal/gitignore"
	"github.com/indelve/indelve/internal/store"
)

// Entry is one discovered filesystem entry.
type Entry struct {
	Path string
	Kind string // store.KindFile or store.KindDir
}

// Scanner discovers entries under a set of roots.
type Scanner struct {
	roots     []string
	excludes  []string
	hidden    bool
	gitignore bool

	mu     sync.RWMutex
	ignore *gitignore.Matcher // .gitignore rules seen by the last Scan
}

// NewScanner validates the exclude patterns and returns a Scanner.
// Patterns use doublestar syntax and match absolute paths. With useGitignore
// set, .gitignore files found during a scan exclude what they name.
func NewScanner(roots, excludes []string, hidden, useGitignore bool) (*Scanner, error) {
	patterns := make([]string, 0, len(excludes))
	for _, p := range excludes {
		if !doublestar.ValidatePattern(p) {
			return nil, fmt.Errorf("invalid exclude pattern: %q", p)
		}
		patterns = append(patterns, filepath.FromSlash(p))
	}
	return &Scanner{roots: roots, excludes: patterns, hidden: hidden, gitignore: useGitignore}, nil
}

// scanReportEvery is the number of entries between found callbacks.
const scanReportEvery = 500

// Scan walks every root and returns the entries found, keyed by path.
// Roots themselves are not included. Unreadable directories are skipped.
// found, if non-nil, receives the running entry count.
func (s *Scanner) Scan(ctx context.Context, found func(n int)) (map[string]string, error) {
	var mu sync.Mutex
	entries := make(map[string]string)

	var matcher *gitignore.Matcher
	if s.gitignore {
		matcher = gitignore.New()
	}

	for _, root := range s.roots {
		if matcher != nil {
			_ = matcher.Load(root)
		}
		if err := s.walk(ctx, root, matcher, &mu, entries, found); err != nil {
			return nil, err
		}
	}

	s.mu.Lock()
	s.ignore = matcher
	s.mu.Unlock()
	return entries, nil
}

func (s *Scanner) walk(ctx context.Context, root string, matcher *gitignore.Matcher, mu *sync.Mutex, entries map[string]string, found func(int)) error {
	conf := fastwalk.Config{Follow: false}

	err := fastwalk.Walk(&conf, root, func(p string, d os.DirEntry, err error) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if err != nil {
			// Permission denied and friends: skip the entry.
			return nil
		}
		if p == root {
			return nil
		}

		isDir := d.IsDir()
		if s.skip(p, d.Name(), isDir) || (matcher != nil && matcher.Match(p, isDir)) {
			if isDir {
				return filepath.SkipDir
			}
			return nil
		}
		// children are visited after this callback returns
		if isDir && matcher != nil {
			_ = matcher.Load(p)
		}

		kind := store.KindFile
		if isDir {
			kind = store.KindDir
		}

		// fastwalk runs the callback from several goroutines.
		mu.Lock()
		entries[p] = kind
		n := len(entries)
		mu.Unlock()
		if found != nil && n%scanReportEvery == 0 {
			found(n)
		}
		return nil
	})
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to walk %s: %w", root, err)
	}
	return nil
}

func (s *Scanner) skip(path, name string, isDir bool) bool {
	if !s.hidden && strings.HasPrefix(name, ".") {
		return true
	}
	return s.Excluded(path, isDir)
}

// Skips reports whether a scan would leave path out, including the
// .gitignore rules collected by the last Scan.
func (s *Scanner) Skips(path string, isDir bool) bool {
	if s.skip(path, filepath.Base(path), isDir) {
		return true
	}
	s.mu.RLock()
	matcher := s.ignore
	s.mu.RUnlock()
	return matcher != nil && matcher.Match(path, isDir)
}

// Excluded reports whether path matches an exclude pattern. A directory also
// matches patterns of the form "dir/**".
func (s *Scanner) Excluded(path string, isDir bool) bool {
	for _, pattern := range s.excludes {
		if ok, _ := doublestar.PathMatch(pattern, path); ok {
			return true
		}
		if isDir {
			trimmed := strings.TrimSuffix(pattern, string(filepath.Separator)+"**")
			if trimmed != pattern {
				if ok, _ := doublestar.PathMatch(trimmed, path); ok {
					return true
				}
			}
		}
	}
	return false
}

// Roots returns the roots being scanned.
func (s *Scanner) Roots() []string {
	return append([]string(nil), s.roots...)
}
