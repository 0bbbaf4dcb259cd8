package config

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the complete indelve configuration.
type Config struct {
	Version   int             `yaml:"version" json:"version"`
	Providers ProvidersConfig `yaml:"providers" json:"providers"`
	Search    SearchConfig    `yaml:"search" json:"search"`
	Watch     WatchConfig     `yaml:"watch" json:"watch"`
	Server    ServerConfig    `yaml:"server" json:"server"`
	LogLevel  string          `yaml:"log_level" json:"log_level"`
}

// ProvidersConfig selects providers and configures the bundled ones.
type ProvidersConfig struct {
	// Enabled lists provider ids to load, in order. Empty loads every
	// registered provider.
	Enabled []string    `yaml:"enabled" json:"enabled"`
	Files   FilesConfig `yaml:"files" json:"files"`
	Apps    AppsConfig  `yaml:"apps" json:"apps"`
	Calc    CalcConfig  `yaml:"calc" json:"calc"`
}

// FilesConfig configures the file-name provider.
type FilesConfig struct {
	Roots   []string `yaml:"roots" json:"roots"`
	Exclude []string `yaml:"exclude" json:"exclude"`
	// Backend is the index backend: "sqlite" or "bleve".
	Backend    string `yaml:"backend" json:"backend"`
	IndexDir   string `yaml:"index_dir" json:"index_dir"`
	MaxResults int    `yaml:"max_results" json:"max_results"`
	// Hidden includes dot files and dot directories.
	Hidden bool `yaml:"hidden" json:"hidden"`
	// Gitignore skips paths named by .gitignore files under the roots.
	Gitignore bool `yaml:"gitignore" json:"gitignore"`
}

// AppsConfig configures the desktop application provider.
type AppsConfig struct {
	// Dirs overrides the XDG application directories.
	Dirs       []string `yaml:"dirs" json:"dirs"`
	MaxResults int      `yaml:"max_results" json:"max_results"`
}

// CalcConfig configures the calculator provider.
type CalcConfig struct {
	Timeout string `yaml:"timeout" json:"timeout"`
}

// SearchConfig configures result merging.
type SearchConfig struct {
	// Order is "ascending" or "descending" relevance.
	Order    string `yaml:"order" json:"order"`
	Parallel bool   `yaml:"parallel" json:"parallel"`
	// Limit caps displayed results. 0 shows all.
	Limit int `yaml:"limit" json:"limit"`
}

// WatchConfig configures `indelve watch`.
type WatchConfig struct {
	Debounce string `yaml:"debounce" json:"debounce"`
}

// ServerConfig configures `indelve serve`.
type ServerConfig struct {
	Transport string `yaml:"transport" json:"transport"`
}

var defaultExcludePatterns = []string{
	"**/.git/**",
	"**/node_modules/**",
	"**/vendor/**",
	"**/__pycache__/**",
	"**/.cache/**",
	"**/.venv/**",
	"**/target/**",
}

// NewConfig creates a Config with defaults.
func NewConfig() *Config {
	return &Config{
		Version: 1,
		Providers: ProvidersConfig{
			Enabled: []string{},
			Files: FilesConfig{
				Roots:      []string{"~"},
				Exclude:    append([]string{}, defaultExcludePatterns...),
				Backend:    "sqlite",
				IndexDir:   filepath.Join("~", ".indelve", "index"),
				MaxResults: 50,
				Gitignore:  true,
			},
			Apps: AppsConfig{
				Dirs:       []string{},
				MaxResults: 20,
			},
			Calc: CalcConfig{Timeout: "200ms"},
		},
		Search: SearchConfig{
			Order: "descending",
			Limit: 20,
		},
		Watch:    WatchConfig{Debounce: "500ms"},
		Server:   ServerConfig{Transport: "stdio"},
		LogLevel: "info",
	}
}

// GetUserConfigPath returns the user configuration file path:
//   - $XDG_CONFIG_HOME/indelve/config.yaml (if XDG_CONFIG_HOME is set)
//   - ~/.config/indelve/config.yaml (default)
func GetUserConfigPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "indelve", "config.yaml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".config", "indelve", "config.yaml")
	}
	return filepath.Join(home, ".config", "indelve", "config.yaml")
}

// GetUserConfigDir returns the directory holding the user configuration.
func GetUserConfigDir() string {
	return filepath.Dir(GetUserConfigPath())
}

// Load builds the configuration in order of increasing precedence:
//  1. Defaults
//  2. The file at path, or the user config file when path is empty
//  3. Environment variables (INDELVE_*)
//
// A missing user config file is fine; a missing explicit path is not.
func Load(path string) (*Config, error) {
	cfg := NewConfig()

	explicit := path != ""
	if !explicit {
		path = GetUserConfigPath()
	}

	if fileExists(path) {
		if err := cfg.loadYAML(path); err != nil {
			return nil, err
		}
	} else if explicit {
		return nil, fmt.Errorf("config file not found: %s", path)
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// LoadFile returns the defaults merged with the file at path, without
// environment overrides. Used to rewrite a user file in place.
func LoadFile(path string) (*Config, error) {
	cfg := NewConfig()
	if err := cfg.loadYAML(path); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// loadYAML merges a YAML file into c.
func (c *Config) loadYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var parsed Config
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	// bools cannot be told apart from "unset" after decoding
	var raw map[string]any
	_ = yaml.Unmarshal(data, &raw)

	c.mergeWith(&parsed, raw)
	return nil
}

// mergeWith copies the values set in other into c. raw is the undecoded
// document, used to detect explicitly set booleans.
func (c *Config) mergeWith(other *Config, raw map[string]any) {
	if other.Version != 0 {
		c.Version = other.Version
	}

	if len(other.Providers.Enabled) > 0 {
		c.Providers.Enabled = other.Providers.Enabled
	}

	f := other.Providers.Files
	if len(f.Roots) > 0 {
		c.Providers.Files.Roots = f.Roots
	}
	// user patterns extend the defaults
	for _, pattern := range f.Exclude {
		if !slices.Contains(c.Providers.Files.Exclude, pattern) {
			c.Providers.Files.Exclude = append(c.Providers.Files.Exclude, pattern)
		}
	}
	if f.Backend != "" {
		c.Providers.Files.Backend = f.Backend
	}
	if f.IndexDir != "" {
		c.Providers.Files.IndexDir = f.IndexDir
	}
	if f.MaxResults != 0 {
		c.Providers.Files.MaxResults = f.MaxResults
	}
	if isSet(raw, "providers", "files", "hidden") {
		c.Providers.Files.Hidden = f.Hidden
	}
	if isSet(raw, "providers", "files", "gitignore") {
		c.Providers.Files.Gitignore = f.Gitignore
	}

	if len(other.Providers.Apps.Dirs) > 0 {
		c.Providers.Apps.Dirs = other.Providers.Apps.Dirs
	}
	if other.Providers.Apps.MaxResults != 0 {
		c.Providers.Apps.MaxResults = other.Providers.Apps.MaxResults
	}

	if other.Providers.Calc.Timeout != "" {
		c.Providers.Calc.Timeout = other.Providers.Calc.Timeout
	}

	if other.Search.Order != "" {
		c.Search.Order = other.Search.Order
	}
	if isSet(raw, "search", "parallel") {
		c.Search.Parallel = other.Search.Parallel
	}
	if isSet(raw, "search", "limit") {
		c.Search.Limit = other.Search.Limit
	}

	if other.Watch.Debounce != "" {
		c.Watch.Debounce = other.Watch.Debounce
	}
	if other.Server.Transport != "" {
		c.Server.Transport = other.Server.Transport
	}
	if other.LogLevel != "" {
		c.LogLevel = other.LogLevel
	}
}

// isSet reports whether the nested key path exists in a decoded document.
func isSet(raw map[string]any, keys ...string) bool {
	node := raw
	for i, k := range keys {
		v, ok := node[k]
		if !ok {
			return false
		}
		if i == len(keys)-1 {
			return true
		}
		next, ok := v.(map[string]any)
		if !ok {
			return false
		}
		node = next
	}
	return false
}

// applyEnvOverrides applies INDELVE_* environment variables.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("INDELVE_PROVIDERS"); v != "" {
		c.Providers.Enabled = SplitList(v)
	}
	if v := os.Getenv("INDELVE_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv("INDELVE_SEARCH_ORDER"); v != "" {
		c.Search.Order = v
	}
	if v := os.Getenv("INDELVE_SEARCH_PARALLEL"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Search.Parallel = b
		}
	}
	if v := os.Getenv("INDELVE_FILES_BACKEND"); v != "" {
		c.Providers.Files.Backend = v
	}
	if v := os.Getenv("INDELVE_FILES_ROOTS"); v != "" {
		c.Providers.Files.Roots = filepath.SplitList(v)
	}
}

// SplitList splits a comma-separated list, dropping blanks.
func SplitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Validate returns an error describing the first invalid setting.
func (c *Config) Validate() error {
	switch strings.ToLower(c.Search.Order) {
	case "ascending", "asc", "descending", "desc":
	default:
		return fmt.Errorf("search.order must be 'ascending' or 'descending', got %s", c.Search.Order)
	}
	if c.Search.Limit < 0 {
		return fmt.Errorf("search.limit must be non-negative, got %d", c.Search.Limit)
	}

	switch c.Providers.Files.Backend {
	case "sqlite", "bleve":
	default:
		return fmt.Errorf("providers.files.backend must be 'sqlite' or 'bleve', got %s", c.Providers.Files.Backend)
	}
	if c.Providers.Files.MaxResults <= 0 {
		return fmt.Errorf("providers.files.max_results must be positive, got %d", c.Providers.Files.MaxResults)
	}
	if c.Providers.Apps.MaxResults <= 0 {
		return fmt.Errorf("providers.apps.max_results must be positive, got %d", c.Providers.Apps.MaxResults)
	}

	if _, err := parsePositiveDuration(c.Providers.Calc.Timeout); err != nil {
		return fmt.Errorf("providers.calc.timeout: %w", err)
	}
	if _, err := parsePositiveDuration(c.Watch.Debounce); err != nil {
		return fmt.Errorf("watch.debounce: %w", err)
	}

	if strings.ToLower(c.Server.Transport) != "stdio" {
		return fmt.Errorf("server.transport must be 'stdio', got %s", c.Server.Transport)
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.LogLevel)] {
		return fmt.Errorf("log_level must be 'debug', 'info', 'warn', or 'error', got %s", c.LogLevel)
	}

	return nil
}

func parsePositiveDuration(s string) (time.Duration, error) {
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q: %w", s, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("duration must be positive, got %s", s)
	}
	return d, nil
}

// CalcTimeout returns the parsed calculator timeout.
func (c *Config) CalcTimeout() time.Duration {
	d, _ := parsePositiveDuration(c.Providers.Calc.Timeout)
	return d
}

// WatchDebounce returns the parsed watch debounce interval.
func (c *Config) WatchDebounce() time.Duration {
	d, _ := parsePositiveDuration(c.Watch.Debounce)
	return d
}

// WriteYAML writes the configuration to path, creating parent directories.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// ExpandHome replaces a leading "~" with the user's home directory.
func ExpandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path[1:], "/"))
}

// ExpandHomeAll applies ExpandHome to every path.
func ExpandHomeAll(paths []string) []string {
	out := make([]string, len(paths))
	for i, p := range paths {
		out[i] = ExpandHome(p)
	}
	return out
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
