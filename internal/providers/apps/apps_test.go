package apps

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/indelve/indelve/internal/config"
	"github.com/indelve/indelve/pkg/provider"
)

const firefoxEntry = `[Desktop Entry]
Type=Application
Name=Firefox
GenericName=Web Browser
Comment=Browse the World Wide Web
Keywords=Internet;WWW;Browser;
Exec=firefox %u

[Desktop Action new-window]
Name=Open a New Window
Exec=firefox --new-window %u
`

const editorEntry = `[Desktop Entry]
Type=Application
Name=Text Editor
Name[de]=Texteditor
Comment=Edit text files
Keywords=notepad;write;
Exec=gedit %U
`

const hiddenEntry = `[Desktop Entry]
Type=Application
Name=Secret Tool
NoDisplay=true
Exec=secret
`

const linkEntry = `[Desktop Entry]
Type=Link
Name=Firefox Homepage
URL=https://example.com
`

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func writeEntry(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func newProvider(t *testing.T, dirs ...string) *Provider {
	t.Helper()
	p, err := New(context.Background(), config.AppsConfig{Dirs: dirs, MaxResults: 20}, quietLogger())
	require.NoError(t, err)
	return p
}

func titles(items []provider.Item) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, it.String(provider.KeyTitle))
	}
	return out
}

func TestParseDesktopFile(t *testing.T) {
	dir := t.TempDir()
	path := writeEntry(t, dir, "firefox.desktop", firefoxEntry)

	entry, ok, err := ParseDesktopFile(path)

	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Firefox", entry.Name)
	assert.Equal(t, "Web Browser", entry.GenericName)
	assert.Equal(t, "Browse the World Wide Web", entry.Comment)
	assert.Equal(t, []string{"Internet", "WWW", "Browser"}, entry.Keywords)
	assert.Equal(t, "firefox", entry.Exec)
	assert.Equal(t, path, entry.Path)
}

func TestParseDesktopFile_SkipsHiddenAndNonApplications(t *testing.T) {
	dir := t.TempDir()

	for name, content := range map[string]string{
		"hidden.desktop": hiddenEntry,
		"link.desktop":   linkEntry,
		"empty.desktop":  "[Other]\nName=x\n",
	} {
		t.Run(name, func(t *testing.T) {
			_, ok, err := ParseDesktopFile(writeEntry(t, dir, name, content))
			require.NoError(t, err)
			assert.False(t, ok)
		})
	}
}

func TestCleanExec(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"firefox %u", "firefox"},
		{"gedit %U", "gedit"},
		{"app --flag %f --other", "app --flag --other"},
		{"printf 100%%", "printf 100%"},
		{"app %%f %U", "app %f"},
		{"app 50%%%f", "app 50%"},
		{"fmt %%%%u", "fmt %%u"},
		{"plain", "plain"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, CleanExec(tt.in), tt.in)
	}
}

func TestLoadEntries_EarlierDirShadowsLater(t *testing.T) {
	// Given the same desktop file ID in a user and a system directory
	user, system := t.TempDir(), t.TempDir()
	writeEntry(t, user, "editor.desktop", "[Desktop Entry]\nType=Application\nName=My Editor\nExec=vim\n")
	writeEntry(t, system, "editor.desktop", editorEntry)
	writeEntry(t, system, "firefox.desktop", firefoxEntry)

	// When loading both
	entries, err := LoadEntries(context.Background(), []string{user, system}, nil)

	// Then the user entry wins and the other system entry is kept
	require.NoError(t, err)
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name)
	}
	assert.ElementsMatch(t, []string{"My Editor", "Firefox"}, names)
}

func TestLoadEntries_HiddenShadowsLowerPriority(t *testing.T) {
	user, system := t.TempDir(), t.TempDir()
	writeEntry(t, user, "firefox.desktop", "[Desktop Entry]\nType=Application\nName=Firefox\nHidden=true\n")
	writeEntry(t, system, "firefox.desktop", firefoxEntry)

	entries, err := LoadEntries(context.Background(), []string{user, system}, nil)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestLoadEntries_SubdirectoryIDs(t *testing.T) {
	dir := t.TempDir()
	writeEntry(t, dir, filepath.Join("kde", "konsole.desktop"), "[Desktop Entry]\nType=Application\nName=Konsole\nExec=konsole\n")

	entries, err := LoadEntries(context.Background(), []string{dir}, nil)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "kde-konsole.desktop", entries[0].ID)
}

func TestNew_UnavailableWithoutDirs(t *testing.T) {
	_, err := New(context.Background(), config.AppsConfig{Dirs: []string{filepath.Join(t.TempDir(), "nope")}}, quietLogger())

	require.Error(t, err)
	assert.True(t, errors.Is(err, provider.ErrUnavailable))
}

func TestDefaultDirs_FollowsXDG(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", "/data/home")
	t.Setenv("XDG_DATA_DIRS", "/opt/share:/usr/share")

	assert.Equal(t, []string{
		filepath.Join("/data/home", "applications"),
		filepath.Join("/opt/share", "applications"),
		filepath.Join("/usr/share", "applications"),
	}, DefaultDirs())
}

func TestSearch_MatchesNameGenericNameAndKeywords(t *testing.T) {
	dir := t.TempDir()
	writeEntry(t, dir, "firefox.desktop", firefoxEntry)
	writeEntry(t, dir, "editor.desktop", editorEntry)
	p := newProvider(t, dir)
	ctx := context.Background()

	tests := []struct {
		query string
		want  string
	}{
		{"firefox", "Firefox"},
		{"browser", "Firefox"},
		{"notepad", "Text Editor"},
		{"EDITOR", "Text Editor"},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			items, err := p.Search(ctx, tt.query)
			require.NoError(t, err)
			require.NotEmpty(t, items)
			assert.Equal(t, tt.want, items[0].String(provider.KeyTitle))
		})
	}
}

func TestSearch_ItemShape(t *testing.T) {
	dir := t.TempDir()
	path := writeEntry(t, dir, "firefox.desktop", firefoxEntry)
	p := newProvider(t, dir)

	items, err := p.Search(context.Background(), "firefox")

	require.NoError(t, err)
	require.Len(t, items, 1)
	item := items[0]
	assert.NoError(t, item.Validate())
	assert.Equal(t, ID, item.String(provider.KeyProvider))
	assert.Equal(t, KindApplication, item.String(provider.KeyKind))
	assert.Equal(t, "Browse the World Wide Web", item.String("comment"))
	assert.Equal(t, "firefox", item.String("exec"))
	assert.Equal(t, path, item.String("path"))
	r, _ := item.Relevance()
	assert.InDelta(t, 1.0, r, 1e-9)
}

func TestSearch_RelevanceInUnitInterval(t *testing.T) {
	dir := t.TempDir()
	writeEntry(t, dir, "firefox.desktop", firefoxEntry)
	writeEntry(t, dir, "editor.desktop", editorEntry)
	p := newProvider(t, dir)

	items, err := p.Search(context.Background(), "e")
	require.NoError(t, err)
	require.Len(t, items, 2)
	for _, it := range items {
		r, ok := it.Relevance()
		require.True(t, ok)
		assert.Greater(t, r, 0.0)
		assert.LessOrEqual(t, r, 1.0)
	}
}

func TestSearch_PathQueryIsNotApplicable(t *testing.T) {
	dir := t.TempDir()
	writeEntry(t, dir, "firefox.desktop", firefoxEntry)
	p := newProvider(t, dir)

	_, err := p.Search(context.Background(), "/usr/bin/firefox")

	require.Error(t, err)
	assert.True(t, errors.Is(err, provider.ErrInvalidInput))
}

func TestSearch_NoMatch(t *testing.T) {
	dir := t.TempDir()
	writeEntry(t, dir, "firefox.desktop", firefoxEntry)
	p := newProvider(t, dir)

	items, err := p.Search(context.Background(), "zzzz")
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestRefresh_PicksUpNewEntries(t *testing.T) {
	// Given a provider that already answered a query
	dir := t.TempDir()
	writeEntry(t, dir, "firefox.desktop", firefoxEntry)
	p := newProvider(t, dir)
	ctx := context.Background()
	items, err := p.Search(ctx, "editor")
	require.NoError(t, err)
	assert.Empty(t, items)

	// When an application is installed and the provider refreshed
	writeEntry(t, dir, "editor.desktop", editorEntry)
	require.NoError(t, p.Refresh(ctx, false))

	// Then the cached empty answer is not served
	items, err = p.Search(ctx, "editor")
	require.NoError(t, err)
	assert.Equal(t, []string{"Text Editor"}, titles(items))
}

func TestSearch_ResultRankedBeforeRefreshIsNotCached(t *testing.T) {
	// Given a search ranked against the old entries
	dir := t.TempDir()
	writeEntry(t, dir, "firefox.desktop", firefoxEntry)
	p := newProvider(t, dir)
	ctx := context.Background()
	stale, generation := p.rank("editor")
	assert.Empty(t, stale)

	// When a refresh lands before the search stores its result
	writeEntry(t, dir, "editor.desktop", editorEntry)
	require.NoError(t, p.Refresh(ctx, false))
	p.remember("editor", stale, generation)

	// Then the stale result is dropped and the next search sees the new entry
	_, cached := p.cache.Get("editor")
	assert.False(t, cached)
	items, err := p.Search(ctx, "editor")
	require.NoError(t, err)
	assert.Equal(t, []string{"Text Editor"}, titles(items))
}

func TestSearch_CachesWhenGenerationUnchanged(t *testing.T) {
	dir := t.TempDir()
	writeEntry(t, dir, "firefox.desktop", firefoxEntry)
	p := newProvider(t, dir)

	_, err := p.Search(context.Background(), "fire")
	require.NoError(t, err)

	_, cached := p.cache.Get("fire")
	assert.True(t, cached)
}
