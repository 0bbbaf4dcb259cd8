package gitignore

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
)

// FileName is the per-directory ignore file.
const FileName = ".gitignore"

// rule is one compiled line.
type rule struct {
	base    string // directory holding the .gitignore, OS separators
	glob    string // slash-separated doublestar pattern relative to base
	negate  bool
	dirOnly bool
}

// Matcher holds the rules of every loaded .gitignore. Safe for concurrent use.
type Matcher struct {
	mu    sync.RWMutex
	rules []rule
}

// New creates an empty Matcher.
func New() *Matcher {
	return &Matcher{}
}

// Add compiles one line of a .gitignore located in base. Blank lines and
// comments are ignored.
func (m *Matcher) Add(base, line string) {
	r, ok := compile(base, line)
	if !ok {
		return
	}
	m.mu.Lock()
	m.rules = append(m.rules, r)
	m.mu.Unlock()
}

// Load reads dir/.gitignore if present. A missing file is not an error.
func (m *Matcher) Load(dir string) error {
	f, err := os.Open(filepath.Join(dir, FileName))
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("open %s: %w", FileName, err)
	}
	defer func() { _ = f.Close() }()

	var rules []rule
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		if r, ok := compile(dir, sc.Text()); ok {
			rules = append(rules, r)
		}
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("read %s: %w", filepath.Join(dir, FileName), err)
	}

	m.mu.Lock()
	m.rules = append(m.rules, rules...)
	m.mu.Unlock()
	return nil
}

// Len returns the number of compiled rules.
func (m *Matcher) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.rules)
}

// Match reports whether path is ignored. The last matching rule wins, so a
// later "!pattern" re-includes a path.
func (m *Matcher) Match(path string, isDir bool) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ignored := false
	for _, r := range m.rules {
		if r.dirOnly && !isDir {
			continue
		}
		rel, ok := relative(r.base, path)
		if !ok {
			continue
		}
		if matched, _ := doublestar.Match(r.glob, rel); matched {
			ignored = !r.negate
		}
	}
	return ignored
}

// relative returns path relative to base in slash form, if path is
// strictly below base.
func relative(base, path string) (string, bool) {
	rel, err := filepath.Rel(base, path)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	return filepath.ToSlash(rel), true
}

func compile(base, line string) (rule, bool) {
	// trailing spaces are dropped unless escaped
	escapedSpace := strings.HasSuffix(line, `\ `)
	line = strings.TrimRight(line, " \t\r")
	if escapedSpace {
		line = strings.TrimSuffix(line, `\`) + " "
	}
	if line == "" || strings.HasPrefix(line, "#") {
		return rule{}, false
	}

	r := rule{base: base}
	switch {
	case strings.HasPrefix(line, `\#`), strings.HasPrefix(line, `\!`):
		line = line[1:]
	case strings.HasPrefix(line, "!"):
		r.negate = true
		line = line[1:]
	}

	if strings.HasSuffix(line, "/") {
		r.dirOnly = true
		line = strings.TrimRight(line, "/")
	}
	if line == "" {
		return rule{}, false
	}

	// a slash anywhere but the end anchors the pattern to base
	if strings.Contains(line, "/") {
		r.glob = strings.TrimPrefix(line, "/")
	} else {
		r.glob = "**/" + line
	}
	if !doublestar.ValidatePattern(r.glob) {
		return rule{}, false
	}
	return r, true
}
