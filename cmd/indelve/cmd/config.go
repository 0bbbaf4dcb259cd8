package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/indelve/indelve/configs"
	"github.com/indelve/indelve/internal/config"
	ierrors "github.com/indelve/indelve/internal/errors"
	"github.com/indelve/indelve/internal/output"
)

var noConfig = map[string]string{annotationNoConfig: "true"}

func (a *app) newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage user configuration",
		Long: `Manage the user configuration file.

Configuration precedence (lowest to highest):
  1. Hardcoded defaults
  2. User config (~/.config/indelve/config.yaml) or --config PATH
  3. Environment variables (INDELVE_*)`,
		Example: `  # Create user config with defaults
  indelve config init

  # Show effective configuration
  indelve config show

  # Print user config file path
  indelve config path`,
	}

	cmd.AddCommand(a.newConfigShowCmd())
	cmd.AddCommand(a.newConfigInitCmd())
	cmd.AddCommand(a.newConfigPathCmd())
	cmd.AddCommand(a.newConfigRestoreCmd())

	return cmd
}

func (a *app) newConfigShowCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if format == "json" {
				return output.New(cmd.OutOrStdout()).JSON(a.cfg)
			}
			if format != "yaml" {
				return ierrors.ValidationError(fmt.Sprintf("unknown format %q (valid: yaml, json)", format), nil)
			}

			data, err := yaml.Marshal(a.cfg)
			if err != nil {
				return ierrors.InternalError("failed to marshal config", err)
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "yaml", "Output format: yaml, json")

	return cmd
}

// targetPath is the file init and restore operate on.
func (a *app) targetPath() string {
	if a.configPath != "" {
		return a.configPath
	}
	return config.GetUserConfigPath()
}

func (a *app) newConfigInitCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create the configuration file",
		Long: `Write the commented default configuration to the user config file, or
to --config.

An existing file is left alone unless --force is given. It is then backed up
and upgraded: your settings are kept and settings added since it was written
get their defaults. A file that no longer loads is replaced by the template.`,
		Args:        cobra.NoArgs,
		Annotations: noConfig,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := output.New(cmd.OutOrStdout())
			path := a.targetPath()

			if !fileExists(path) {
				if err := writeTemplate(path); err != nil {
					return err
				}
				out.Success("Created configuration")
				out.Statusf("", "Location: %s", path)
				return nil
			}

			if !force {
				out.Warning("Configuration already exists")
				out.Statusf("", "Location: %s", path)
				out.Newline()
				out.Status("", "Use --force to upgrade it with new defaults (a backup is kept)")
				return nil
			}

			return runConfigUpgrade(out, path)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Back up and upgrade an existing configuration")

	return cmd
}

func writeTemplate(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return ierrors.IOError("failed to create config directory", err)
	}
	if err := os.WriteFile(path, []byte(configs.UserConfigTemplate), 0o644); err != nil {
		return ierrors.IOError("failed to write config", err)
	}
	return nil
}

// runConfigUpgrade backs up path, then rewrites it with the current defaults
// merged under the user's settings.
func runConfigUpgrade(out *output.Writer, path string) error {
	backup, err := config.Backup(path)
	if err != nil {
		return ierrors.IOError("failed to back up config", err)
	}

	existing, loadErr := config.LoadFile(path)
	if loadErr != nil {
		if err := writeTemplate(path); err != nil {
			return err
		}
		out.Warningf("Existing configuration did not load (%v); replaced with defaults", loadErr)
	} else {
		if err := existing.WriteYAML(path); err != nil {
			return ierrors.IOError("failed to write upgraded config", err)
		}
		out.Success("Configuration upgraded")
	}

	out.Statusf("", "Location: %s", path)
	out.Statusf("", "Backup: %s", backup)
	return nil
}

func (a *app) newConfigPathCmd() *cobra.Command {
	return &cobra.Command{
		Use:         "path",
		Short:       "Print the configuration file path",
		Args:        cobra.NoArgs,
		Annotations: noConfig,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), a.targetPath())
			return err
		},
	}
}

func (a *app) newConfigRestoreCmd() *cobra.Command {
	var list bool

	cmd := &cobra.Command{
		Use:   "restore [backup]",
		Short: "Restore the configuration from a backup",
		Long: `Restore the configuration file from the newest backup, or from the named
one. The current file is backed up first, so a restore can be undone.`,
		Example: `  indelve config restore --list
  indelve config restore
  indelve config restore config.yaml.bak.20260101-120000.000`,
		Args:        cobra.MaximumNArgs(1),
		Annotations: noConfig,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := output.New(cmd.OutOrStdout())
			path := a.targetPath()

			backups, err := config.ListBackups(path)
			if err != nil {
				return ierrors.IOError("failed to list backups", err)
			}

			if list {
				if len(backups) == 0 {
					out.Status("", "No backups.")
				}
				for _, b := range backups {
					out.Status("", b)
				}
				return nil
			}

			var backup string
			switch {
			case len(args) == 1:
				backup = args[0]
				if !filepath.IsAbs(backup) && !fileExists(backup) {
					backup = filepath.Join(filepath.Dir(path), backup)
				}
			case len(backups) > 0:
				backup = backups[0]
			default:
				return ierrors.ValidationError(fmt.Sprintf("no backups of %s", path), nil)
			}

			if err := config.Restore(path, backup); err != nil {
				return ierrors.IOError("failed to restore config", err)
			}
			out.Successf("Restored %s", path)
			out.Statusf("", "From: %s", backup)
			return nil
		},
	}

	cmd.Flags().BoolVar(&list, "list", false, "List backups, newest first")

	return cmd
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
