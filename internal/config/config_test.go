package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate points the user config at a temp dir and clears INDELVE_* vars.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	for _, k := range []string{
		"INDELVE_PROVIDERS", "INDELVE_LOG_LEVEL", "INDELVE_SEARCH_ORDER",
		"INDELVE_SEARCH_PARALLEL", "INDELVE_FILES_BACKEND", "INDELVE_FILES_ROOTS",
	} {
		t.Setenv(k, "")
	}
	return dir
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestNewConfig_Defaults(t *testing.T) {
	cfg := NewConfig()

	assert.Equal(t, 1, cfg.Version)
	assert.Empty(t, cfg.Providers.Enabled)
	assert.Equal(t, "sqlite", cfg.Providers.Files.Backend)
	assert.Equal(t, 50, cfg.Providers.Files.MaxResults)
	assert.True(t, cfg.Providers.Files.Gitignore)
	assert.Contains(t, cfg.Providers.Files.Exclude, "**/.git/**")
	assert.Equal(t, "descending", cfg.Search.Order)
	assert.False(t, cfg.Search.Parallel)
	assert.Equal(t, 200*time.Millisecond, cfg.CalcTimeout())
	assert.Equal(t, 500*time.Millisecond, cfg.WatchDebounce())
	assert.NoError(t, cfg.Validate())
}

func TestLoad_NoFile_UsesDefaults(t *testing.T) {
	isolate(t)

	cfg, err := Load("")

	require.NoError(t, err)
	assert.Equal(t, NewConfig(), cfg)
}

func TestLoad_UserConfigMerges(t *testing.T) {
	// Given: a user config overriding a few values
	dir := isolate(t)
	writeFile(t, filepath.Join(dir, "indelve", "config.yaml"), `
providers:
  enabled: [apps, calc]
  files:
    exclude: ["**/*.tmp"]
    hidden: true
    gitignore: false
search:
  order: ascending
  parallel: true
  limit: 0
`)

	// When: loading
	cfg, err := Load("")

	// Then: set values win, unset values keep defaults, excludes extend
	require.NoError(t, err)
	assert.Equal(t, []string{"apps", "calc"}, cfg.Providers.Enabled)
	assert.True(t, cfg.Providers.Files.Hidden)
	assert.False(t, cfg.Providers.Files.Gitignore)
	assert.Contains(t, cfg.Providers.Files.Exclude, "**/.git/**")
	assert.Contains(t, cfg.Providers.Files.Exclude, "**/*.tmp")
	assert.Equal(t, "ascending", cfg.Search.Order)
	assert.True(t, cfg.Search.Parallel)
	assert.Equal(t, 0, cfg.Search.Limit)
	assert.Equal(t, "sqlite", cfg.Providers.Files.Backend)
}

func TestLoad_ExplicitPath(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "custom.yaml")
	writeFile(t, path, "log_level: debug\n")

	cfg, err := Load(path)

	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoad_ExplicitPathMissing(t *testing.T) {
	isolate(t)

	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))

	assert.ErrorContains(t, err, "config file not found")
}

func TestLoad_MalformedYAML(t *testing.T) {
	dir := isolate(t)
	writeFile(t, filepath.Join(dir, "indelve", "config.yaml"), "search: [unclosed\n")

	_, err := Load("")

	assert.ErrorContains(t, err, "failed to parse config file")
}

func TestLoad_EnvOverrides(t *testing.T) {
	isolate(t)
	t.Setenv("INDELVE_PROVIDERS", "calc, files ,")
	t.Setenv("INDELVE_LOG_LEVEL", "warn")
	t.Setenv("INDELVE_SEARCH_ORDER", "ascending")
	t.Setenv("INDELVE_SEARCH_PARALLEL", "true")
	t.Setenv("INDELVE_FILES_BACKEND", "bleve")
	t.Setenv("INDELVE_FILES_ROOTS", "/srv"+string(os.PathListSeparator)+"/data")

	cfg, err := Load("")

	require.NoError(t, err)
	assert.Equal(t, []string{"calc", "files"}, cfg.Providers.Enabled)
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Equal(t, "ascending", cfg.Search.Order)
	assert.True(t, cfg.Search.Parallel)
	assert.Equal(t, "bleve", cfg.Providers.Files.Backend)
	assert.Equal(t, []string{"/srv", "/data"}, cfg.Providers.Files.Roots)
}

func TestLoad_InvalidEnvFailsValidation(t *testing.T) {
	isolate(t)
	t.Setenv("INDELVE_SEARCH_ORDER", "sideways")

	_, err := Load("")

	assert.ErrorContains(t, err, "search.order")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"bad order", func(c *Config) { c.Search.Order = "random" }, "search.order"},
		{"negative limit", func(c *Config) { c.Search.Limit = -1 }, "search.limit"},
		{"bad backend", func(c *Config) { c.Providers.Files.Backend = "lucene" }, "providers.files.backend"},
		{"zero file results", func(c *Config) { c.Providers.Files.MaxResults = 0 }, "providers.files.max_results"},
		{"zero app results", func(c *Config) { c.Providers.Apps.MaxResults = 0 }, "providers.apps.max_results"},
		{"bad calc timeout", func(c *Config) { c.Providers.Calc.Timeout = "soon" }, "providers.calc.timeout"},
		{"negative debounce", func(c *Config) { c.Watch.Debounce = "-1s" }, "watch.debounce"},
		{"bad transport", func(c *Config) { c.Server.Transport = "sse" }, "server.transport"},
		{"bad log level", func(c *Config) { c.LogLevel = "loud" }, "log_level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewConfig()
			tt.mutate(cfg)
			assert.ErrorContains(t, cfg.Validate(), tt.wantErr)
		})
	}
}

func TestWriteYAML_RoundTrip(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := NewConfig()
	cfg.Search.Order = "ascending"

	require.NoError(t, cfg.WriteYAML(path))
	loaded, err := Load(path)

	require.NoError(t, err)
	assert.Equal(t, "ascending", loaded.Search.Order)
}

func TestLoadFile_IgnoresEnvironment(t *testing.T) {
	isolate(t)
	t.Setenv("INDELVE_LOG_LEVEL", "error")
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeFile(t, path, "search:\n  limit: 7\n")

	cfg, err := LoadFile(path)

	require.NoError(t, err)
	assert.Equal(t, 7, cfg.Search.Limit)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoadFile_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeFile(t, path, "search:\n  order: sideways\n")

	_, err := LoadFile(path)

	assert.ErrorContains(t, err, "search.order")
}

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, SplitList(" a, ,b "))
	assert.Nil(t, SplitList(""))
}

func TestExpandHome(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	assert.Equal(t, home, ExpandHome("~"))
	assert.Equal(t, filepath.Join(home, "docs"), ExpandHome("~/docs"))
	assert.Equal(t, "/abs", ExpandHome("/abs"))
	assert.Equal(t, "~user/x", ExpandHome("~user/x"))
}

func TestGetUserConfigPath_XDG(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/xdg")

	assert.Equal(t, filepath.Join("/xdg", "indelve", "config.yaml"), GetUserConfigPath())
	assert.Equal(t, filepath.Join("/xdg", "indelve"), GetUserConfigDir())
}
