// Package cmd provides the CLI commands for indelve.
package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/indelve/indelve/internal/config"
	ierrors "github.com/indelve/indelve/internal/errors"
	"github.com/indelve/indelve/internal/logging"
	"github.com/indelve/indelve/internal/output"
	"github.com/indelve/indelve/internal/profiling"
	"github.com/indelve/indelve/internal/providers"
	"github.com/indelve/indelve/pkg/orchestrator"
	"github.com/indelve/indelve/pkg/provider"
	"github.com/indelve/indelve/pkg/version"
)

const (
	// annotationNoConfig marks commands that run without loading the
	// configuration or setting up logging.
	annotationNoConfig = "indelve/no-config"
	// annotationServer marks commands whose stdio belongs to a protocol.
	annotationServer = "indelve/server"
)

// RegistryFunc builds the provider registry from the loaded configuration.
type RegistryFunc func(cfg *config.Config, logger *slog.Logger) *provider.Registry

// app carries the state shared by every command of one invocation.
type app struct {
	registry RegistryFunc

	configPath string
	providers  []string
	debug      bool
	profile    profiling.Options

	cfg     *config.Config
	logger  *slog.Logger
	session *profiling.Session
	cleanup func()
}

func newApp(registry RegistryFunc) *app {
	return &app{
		registry: registry,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

// NewRootCmd creates the root command with the bundled providers.
func NewRootCmd() *cobra.Command {
	return newApp(providers.Manifest).rootCmd()
}

func (a *app) rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "indelve",
		Short: "Search files, applications and more with one query",
		Long: `indelve sends one query to every enabled search provider and merges
the results into a single list ordered by relevance.

Bundled providers:
  files  file and directory names under the configured roots
  apps   desktop applications from the XDG application directories
  calc   arithmetic expressions

Run 'indelve refresh' once to build the file index, then 'indelve search'.`,
		Version:           version.Version,
		SilenceErrors:     true,
		SilenceUsage:      true,
		PersistentPreRunE: a.setup,
		PersistentPostRunE: func(*cobra.Command, []string) error {
			return a.shutdown()
		},
	}

	cmd.SetVersionTemplate("indelve version {{.Version}}\n")

	flags := cmd.PersistentFlags()
	flags.StringVar(&a.configPath, "config", "", "Path to the configuration file (default: user config)")
	flags.StringSliceVar(&a.providers, "providers", nil, "Providers to load, in order (e.g. files,calc)")
	flags.BoolVar(&a.debug, "debug", false, "Enable debug logging to ~/.indelve/logs/")
	flags.StringVar(&a.profile.CPU, "profile-cpu", "", "Write CPU profile to file")
	flags.StringVar(&a.profile.Mem, "profile-mem", "", "Write memory profile to file")
	flags.StringVar(&a.profile.Trace, "profile-trace", "", "Write execution trace to file")

	cmd.AddCommand(a.newSearchCmd())
	cmd.AddCommand(a.newRefreshCmd())
	cmd.AddCommand(a.newProvidersCmd())
	cmd.AddCommand(a.newWatchCmd())
	cmd.AddCommand(a.newServeCmd())
	cmd.AddCommand(a.newConfigCmd())
	cmd.AddCommand(newLogsCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// setup loads the configuration, starts logging and profiling.
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	if a.profile.Enabled() {
		session, err := profiling.Start(a.profile)
		if err != nil {
			return err
		}
		a.session = session
	}

	if skipsConfig(cmd) {
		return nil
	}

	cfg, err := config.Load(a.configPath)
	if err != nil {
		return ierrors.ConfigError(err.Error(), err).
			WithSuggestion("Check the file shown by 'indelve config path'")
	}
	if cmd.Flags().Changed("providers") {
		cfg.Providers.Enabled = a.providers
	}
	a.cfg = cfg

	level := cfg.LogLevel
	if a.debug {
		level = "debug"
	}
	logCfg := logging.DefaultConfig(level)
	if cmd.Annotations[annotationServer] != "" {
		logCfg = logging.ServerConfig(level)
	}
	cleanup, err := logging.SetupDefault(logCfg)
	if err != nil {
		// logging is best effort for the CLI
		_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "Warning: logging disabled: %v\n", err)
		return nil
	}
	a.logger = slog.Default()
	a.cleanup = cleanup

	a.logger.Debug("command_started",
		slog.String("command", cmd.CommandPath()),
		slog.String("version", version.Version),
		slog.Any("providers", cfg.Providers.Enabled))
	return nil
}

// skipsConfig reports whether cmd or one of its parents is marked
// annotationNoConfig. cobra's help and completion commands are skipped too.
func skipsConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations[annotationNoConfig] != "" {
			return true
		}
		switch c.Name() {
		case "help", "completion", cobra.ShellCompRequestCmd, cobra.ShellCompNoDescRequestCmd:
			return true
		}
	}
	return false
}

// shutdown stops profiling and flushes the log. Safe to call twice.
func (a *app) shutdown() error {
	var err error
	if a.session != nil {
		err = a.session.Stop()
		a.session = nil
	}
	if a.cleanup != nil {
		a.cleanup()
		a.cleanup = nil
	}
	return err
}

// newOrchestrator loads the configured providers. Load warnings are printed
// to warn unless it is nil.
func (a *app) newOrchestrator(ctx context.Context, warn io.Writer, extra ...orchestrator.Option) (*orchestrator.Orchestrator, error) {
	order, ok := orchestrator.ParseOrder(strings.ToLower(a.cfg.Search.Order))
	if !ok {
		return nil, ierrors.ValidationError(fmt.Sprintf("invalid search order %q", a.cfg.Search.Order), nil)
	}

	var ids []string
	if len(a.cfg.Providers.Enabled) > 0 {
		ids = a.cfg.Providers.Enabled
	}

	opts := []orchestrator.Option{
		orchestrator.WithProviders(ids),
		orchestrator.WithLogger(a.logger),
		orchestrator.WithOrder(order),
		orchestrator.WithParallel(a.cfg.Search.Parallel),
	}
	opts = append(opts, extra...)

	o, err := orchestrator.New(ctx, a.registry(a.cfg, a.logger), opts...)
	if err != nil {
		return nil, err
	}

	if warn != nil {
		out := output.New(warn)
		for _, d := range o.Diagnostics() {
			out.Warningf("provider %s skipped: %v", d.Provider, d.Err)
		}
	}
	return o, nil
}

// Execute runs the root command and prints any error to stderr.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a := newApp(providers.Manifest)
	root := a.rootCmd()
	defer func() { _ = a.shutdown() }()

	err := root.ExecuteContext(ctx)
	if err != nil {
		_, _ = fmt.Fprint(root.ErrOrStderr(), ierrors.FormatForCLI(err))
		a.logger.Error("command_failed", slog.Any("error", ierrors.FormatForLog(err)))
	}
	return err
}
