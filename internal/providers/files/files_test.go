package files

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
	"github.com/indelve/indelve/internal/store"
	"github.com/indelve/indelve/pkg/provider"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// writeTree creates files (and their parent directories) under root.
func writeTree(t *testing.T, root string, paths ...string) {
	t.Helper()
	for _, p := range paths {
		full := filepath.Join(root, filepath.FromSlash(p))
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
		require.NoError(t, os.WriteFile(full, []byte("x"), 0o644))
	}
}

func testConfig(root string) config.FilesConfig {
	cfg := config.NewConfig().Providers.Files
	cfg.Roots = []string{root}
	cfg.IndexDir = ""
	return cfg
}

func newProvider(t *testing.T, cfg config.FilesConfig) *Provider {
	t.Helper()
	p, err := New(cfg, quietLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Close() })
	return p
}

func titles(items []provider.Item) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, it.String(provider.KeyTitle))
	}
	return out
}

func TestNew_UnavailableWithoutRoots(t *testing.T) {
	// Given roots that do not exist
	cfg := testConfig(filepath.Join(t.TempDir(), "missing"))

	// When creating the provider
	_, err := New(cfg, quietLogger())

	// Then it reports itself unavailable
	require.Error(t, err)
	assert.True(t, errors.Is(err, provider.ErrUnavailable))
}

func TestNew_RejectsInvalidExclude(t *testing.T) {
	cfg := testConfig(t.TempDir())
	cfg.Exclude = []string{"[unterminated"}

	_, err := New(cfg, quietLogger())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid exclude pattern")
}

func TestSearch_FindsIndexedFiles(t *testing.T) {
	// Given a tree with a few documents
	root := t.TempDir()
	writeTree(t, root, "docs/tax_report.pdf", "docs/holiday.jpg", "music/song.mp3")
	p := newProvider(t, testConfig(root))
	require.NoError(t, p.Refresh(context.Background(), false))

	// When searching for a term in one name
	items, err := p.Search(context.Background(), "report")

	// Then the file is returned with its metadata
	require.NoError(t, err)
	require.Len(t, items, 1)
	item := items[0]
	assert.Equal(t, "tax_report.pdf", item.String(provider.KeyTitle))
	assert.Equal(t, ID, item.String(provider.KeyProvider))
	assert.Equal(t, store.KindFile, item.String(provider.KeyKind))
	assert.Equal(t, filepath.Join(root, "docs", "tax_report.pdf"), item.String("path"))
	assert.Equal(t, filepath.Join(root, "docs"), item.String("dir"))
	r, ok := item.Relevance()
	require.True(t, ok)
	assert.InDelta(t, 1.0, r, 1e-9)
	assert.NoError(t, item.Validate())
}

func TestSearch_RelevanceNormalisedToBestHit(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, "notes/plan.txt", "notes/plan_plan.txt", "notes/other_plan_draft.md")
	p := newProvider(t, testConfig(root))
	require.NoError(t, p.Refresh(context.Background(), false))

	items, err := p.Search(context.Background(), "plan")
	require.NoError(t, err)
	require.NotEmpty(t, items)

	for _, it := range items {
		r, ok := it.Relevance()
		require.True(t, ok)
		assert.Greater(t, r, 0.0)
		assert.LessOrEqual(t, r, 1.0)
	}
	first, _ := items[0].Relevance()
	assert.InDelta(t, 1.0, first, 1e-9)
}

func TestSearch_MatchesDirectories(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, "projects/indelve/readme.md")
	p := newProvider(t, testConfig(root))
	require.NoError(t, p.Refresh(context.Background(), false))

	items, err := p.Search(context.Background(), "projects")
	require.NoError(t, err)

	var kinds []string
	for _, it := range items {
		if it.String(provider.KeyTitle) == "projects" {
			kinds = append(kinds, it.String(provider.KeyKind))
		}
	}
	assert.Equal(t, []string{store.KindDir}, kinds)
}

func TestSearch_QueryWithoutTermsIsNotApplicable(t *testing.T) {
	// Given a provider
	p := newProvider(t, testConfig(t.TempDir()))

	// When the query has no indexable token
	_, err := p.Search(context.Background(), "+")

	// Then the query is reported as not applicable
	require.Error(t, err)
	assert.True(t, errors.Is(err, provider.ErrInvalidInput))
}

func TestRefresh_SkipsHiddenAndExcluded(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root,
		"app/main_report.go",
		".secret/report.txt",
		"app/node_modules/report/index.js",
		"app/.report_hidden",
	)
	p := newProvider(t, testConfig(root))
	require.NoError(t, p.Refresh(context.Background(), false))

	items, err := p.Search(context.Background(), "report")
	require.NoError(t, err)
	assert.Equal(t, []string{"main_report.go"}, titles(items))
}

func TestRefresh_HiddenIncludedWhenConfigured(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, ".config/settings.json")
	cfg := testConfig(root)
	cfg.Hidden = true
	p := newProvider(t, cfg)
	require.NoError(t, p.Refresh(context.Background(), false))

	items, err := p.Search(context.Background(), "settings")
	require.NoError(t, err)
	assert.Equal(t, []string{"settings.json"}, titles(items))
}

func TestRefresh_IncrementalAddsAndRemoves(t *testing.T) {
	// Given an indexed tree
	root := t.TempDir()
	writeTree(t, root, "a/alpha.txt")
	p := newProvider(t, testConfig(root))
	ctx := context.Background()
	require.NoError(t, p.Refresh(ctx, false))

	items, err := p.Search(ctx, "alpha")
	require.NoError(t, err)
	require.Len(t, items, 1)

	// When a file appears and another vanishes
	writeTree(t, root, "a/beta.txt")
	require.NoError(t, os.Remove(filepath.Join(root, "a", "alpha.txt")))
	require.NoError(t, p.Refresh(ctx, false))

	// Then the index follows, and cached results are not served
	items, err = p.Search(ctx, "alpha")
	require.NoError(t, err)
	assert.Empty(t, items)

	items, err = p.Search(ctx, "beta")
	require.NoError(t, err)
	assert.Equal(t, []string{"beta.txt"}, titles(items))
}

func TestRefresh_ForceRebuilds(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, "x/gamma.txt", "x/delta.txt")
	p := newProvider(t, testConfig(root))
	ctx := context.Background()
	require.NoError(t, p.Refresh(ctx, false))
	before := p.Stats().DocumentCount

	require.NoError(t, p.Refresh(ctx, true))
	assert.Equal(t, before, p.Stats().DocumentCount)
	// root/x plus two files
	assert.Equal(t, 3, p.Stats().DocumentCount)
}

func TestRefresh_PersistentIndexWithLock(t *testing.T) {
	for _, backend := range []string{"sqlite", "bleve"} {
		t.Run(backend, func(t *testing.T) {
			// Given an on-disk index
			root := t.TempDir()
			indexDir := t.TempDir()
			writeTree(t, root, "pics/summer_holiday.png")
			cfg := testConfig(root)
			cfg.IndexDir = indexDir
			cfg.Backend = backend

			p, err := New(cfg, quietLogger())
			require.NoError(t, err)
			require.NoError(t, p.Refresh(context.Background(), false))
			require.NoError(t, p.Close())

			// When reopening without a refresh
			p2 := newProvider(t, cfg)
			items, err := p2.Search(context.Background(), "holi")

			// Then the previous index is used and the lock file exists
			require.NoError(t, err)
			assert.Equal(t, []string{"summer_holiday.png"}, titles(items))
			assert.FileExists(t, filepath.Join(indexDir, lockName))
		})
	}
}

func TestSearch_ReturnsIndependentCopies(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, "report.txt")
	p := newProvider(t, testConfig(root))
	require.NoError(t, p.Refresh(context.Background(), false))

	first, err := p.Search(context.Background(), "report")
	require.NoError(t, err)
	require.Len(t, first, 1)
	first[0][provider.KeyTitle] = "mutated"

	second, err := p.Search(context.Background(), "report")
	require.NoError(t, err)
	assert.Equal(t, "report.txt", second[0].String(provider.KeyTitle))
}

func TestClose_Idempotent(t *testing.T) {
	p, err := New(testConfig(t.TempDir()), quietLogger())
	require.NoError(t, err)

	require.NoError(t, p.Close())
	require.NoError(t, p.Close())

	_, err = p.Search(context.Background(), "anything")
	assert.Error(t, err)
}

func TestScanner_Excluded(t *testing.T) {
	s, err := NewScanner(nil, []string{"**/.git/**", "**/*.tmp"}, false, false)
	require.NoError(t, err)

	sep := string(filepath.Separator)
	assert.True(t, s.Excluded(filepath.FromSlash("/home/u/repo/.git"), true))
	assert.True(t, s.Excluded(filepath.FromSlash("/home/u/repo/.git/HEAD"), false))
	assert.True(t, s.Excluded(filepath.FromSlash("/home/u/a.tmp"), false))
	assert.False(t, s.Excluded(filepath.FromSlash("/home/u/repo/main.go"), false))
	assert.False(t, s.Excluded(sep+"gitlog", true))
}

func TestIgnored_MatchesScanRules(t *testing.T) {
	// Given a provider with the default test excludes
	root := t.TempDir()
	cfg := testConfig(root)
	cfg.Exclude = []string{"**/node_modules/**"}
	p, err := New(cfg, quietLogger())
	require.NoError(t, err)
	defer func() { _ = p.Close() }()

	// Then hidden names and excluded trees are ignored, plain files are not
	assert.True(t, p.Ignored(filepath.Join(root, ".cache"), true))
	assert.True(t, p.Ignored(filepath.Join(root, "web", "node_modules"), true))
	assert.True(t, p.Ignored(filepath.Join(root, "web", "node_modules", "x.js"), false))
	assert.False(t, p.Ignored(filepath.Join(root, "notes.txt"), false))
}

func TestRefresh_HonoursGitignore(t *testing.T) {
	// Given a tree whose .gitignore names a build dir, a pattern and a
	// re-included file
	root := t.TempDir()
	writeTree(t, root,
		"project/main_src.go",
		"project/build/artifact_bin",
		"project/trace_a.log",
		"project/trace_keep.log",
		"project/web/bundle_min.js",
	)
	require.NoError(t, os.WriteFile(filepath.Join(root, "project", ".gitignore"),
		[]byte("build/\n*.log\n!trace_keep.log\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "project", "web", ".gitignore"),
		[]byte("*_min.js\n"), 0o644))

	p := newProvider(t, testConfig(root))

	// When refreshing
	require.NoError(t, p.Refresh(context.Background(), false))

	// Then ignored paths are not indexed, and the watcher filter agrees
	ctx := context.Background()
	for _, q := range []string{"artifact", "trace", "bundle", "main"} {
		items, err := p.Search(ctx, q)
		require.NoError(t, err)
		switch q {
		case "trace":
			assert.Equal(t, []string{"trace_keep.log"}, titles(items))
		case "main":
			assert.Equal(t, []string{"main_src.go"}, titles(items))
		default:
			assert.Empty(t, items, q)
		}
	}
	assert.True(t, p.Ignored(filepath.Join(root, "project", "build"), true))
	assert.True(t, p.Ignored(filepath.Join(root, "project", "web", "new_min.js"), false))
	assert.False(t, p.Ignored(filepath.Join(root, "project", "new.go"), false))
}

func TestRefresh_GitignoreDisabled(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, "trace_a.log")
	require.NoError(t, os.WriteFile(filepath.Join(root, ".gitignore"), []byte("*.log\n"), 0o644))

	cfg := testConfig(root)
	cfg.Gitignore = false
	p := newProvider(t, cfg)
	require.NoError(t, p.Refresh(context.Background(), false))

	items, err := p.Search(context.Background(), "trace")
	require.NoError(t, err)
	assert.Equal(t, []string{"trace_a.log"}, titles(items))
}

func TestRefresh_ReportsProgress(t *testing.T) {
	// Given: a provider over three files in one directory, with a progress hook
	root := t.TempDir()
	writeTree(t, root, "docs/a.txt", "docs/b.txt", "docs/c.txt")
	p := newProvider(t, testConfig(root))

	var events []provider.Progress
	p.SetProgress(func(ev provider.Progress) { events = append(events, ev) })

	// When: rebuilding the index
	require.NoError(t, p.Refresh(context.Background(), true))

	// Then: the scan total is reported, then indexing runs from zero to four
	require.NotEmpty(t, events)
	assert.Contains(t, events, provider.Progress{Provider: ID, Stage: provider.StageScan, Current: 4, Total: 4})
	assert.Contains(t, events, provider.Progress{Provider: ID, Stage: provider.StageIndex, Current: 0, Total: 4})
	assert.Equal(t, provider.Progress{Provider: ID, Stage: provider.StageIndex, Current: 4, Total: 4}, events[len(events)-1])
	for _, ev := range events {
		assert.Equal(t, ID, ev.Provider)
	}

	// When: refreshing incrementally with nothing new and no hook
	events = nil
	p.SetProgress(nil)
	require.NoError(t, p.Refresh(context.Background(), false))

	// Then: nothing is reported
	assert.Empty(t, events)
}
