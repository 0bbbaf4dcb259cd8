package apps

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/charlievieth/fastwalk"
	"gopkg.in/ini.v1"
)

const desktopSection = "Desktop Entry"

// fieldCodeRe matches an escaped percent or an Exec field code such as %U
// or %f. Both alternatives are matched in one left-to-right pass so the "f"
// of "%%f" is literal text.
var fieldCodeRe = regexp.MustCompile(`%%|\s*%[fFuUdDnNickvm]`)

// Entry is a parsed application desktop entry.
type Entry struct {
	// ID is the desktop file ID: the path relative to its applications
	// directory with separators replaced by "-".
	ID          string
	Name        string
	GenericName string
	Comment     string
	Keywords    []string
	Exec        string
	Path        string
}

// ParseDesktopFile reads one .desktop file. ok is false for entries that
// are not shown: non-applications and NoDisplay or Hidden entries.
func ParseDesktopFile(path string) (entry Entry, ok bool, err error) {
	f, err := ini.LoadSources(ini.LoadOptions{
		IgnoreInlineComment:     true,
		IgnoreContinuation:      true,
		SkipUnrecognizableLines: true,
	}, path)
	if err != nil {
		return Entry{}, false, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	sec, err := f.GetSection(desktopSection)
	if err != nil {
		return Entry{}, false, nil
	}
	if sec.Key("Type").String() != "Application" {
		return Entry{}, false, nil
	}

	entry = Entry{
		Name:        sec.Key("Name").String(),
		GenericName: sec.Key("GenericName").String(),
		Comment:     sec.Key("Comment").String(),
		Keywords:    splitList(sec.Key("Keywords").String()),
		Exec:        CleanExec(sec.Key("Exec").String()),
		Path:        path,
	}
	if entry.Name == "" {
		return Entry{}, false, nil
	}
	if sec.Key("NoDisplay").MustBool(false) || sec.Key("Hidden").MustBool(false) {
		return Entry{}, false, nil
	}
	return entry, true, nil
}

// CleanExec strips field codes from an Exec value and unescapes "%%".
func CleanExec(exec string) string {
	exec = fieldCodeRe.ReplaceAllStringFunc(exec, func(m string) string {
		if m == "%%" {
			return "%"
		}
		return ""
	})
	return strings.TrimSpace(exec)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ";") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// DefaultDirs returns the XDG application directories in priority order:
// $XDG_DATA_HOME (default ~/.local/share) then $XDG_DATA_DIRS (default
// /usr/local/share:/usr/share), each with "applications" appended.
func DefaultDirs() []string {
	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		if home, err := os.UserHomeDir(); err == nil {
			dataHome = filepath.Join(home, ".local", "share")
		}
	}
	dataDirs := os.Getenv("XDG_DATA_DIRS")
	if dataDirs == "" {
		dataDirs = "/usr/local/share:/usr/share"
	}

	var dirs []string
	if dataHome != "" {
		dirs = append(dirs, filepath.Join(dataHome, "applications"))
	}
	for _, d := range filepath.SplitList(dataDirs) {
		if d != "" {
			dirs = append(dirs, filepath.Join(d, "applications"))
		}
	}
	return dirs
}

// LoadEntries parses every .desktop file under dirs. A desktop file ID found
// in an earlier directory shadows the same ID in later ones. Files that fail
// to parse are skipped and reported through skipped, if non-nil.
func LoadEntries(ctx context.Context, dirs []string, skipped func(path string, err error)) ([]Entry, error) {
	seen := make(map[string]struct{})
	var entries []Entry

	for _, dir := range dirs {
		paths, err := desktopFiles(ctx, dir)
		if err != nil {
			return nil, err
		}
		for _, path := range paths {
			rel, err := filepath.Rel(dir, path)
			if err != nil {
				continue
			}
			id := strings.ReplaceAll(filepath.ToSlash(rel), "/", "-")
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}

			entry, ok, err := ParseDesktopFile(path)
			if err != nil {
				if skipped != nil {
					skipped(path, err)
				}
				continue
			}
			if ok {
				entry.ID = id
				entries = append(entries, entry)
			}
		}
	}
	return entries, nil
}

// desktopFiles lists .desktop files under dir, sorted.
func desktopFiles(ctx context.Context, dir string) ([]string, error) {
	var (
		mu    sync.Mutex
		paths []string
	)
	conf := fastwalk.Config{Follow: true}
	err := fastwalk.Walk(&conf, dir, func(p string, d os.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil || d.IsDir() {
			return nil
		}
		if strings.HasSuffix(p, ".desktop") {
			mu.Lock()
			paths = append(paths, p)
			mu.Unlock()
		}
		return nil
	})
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to walk %s: %w", dir, err)
	}
	sort.Strings(paths)
	return paths, nil
}
