package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	ierrors "github.com/indelve/indelve/internal/errors"
	"github.com/indelve/indelve/internal/output"
	"github.com/indelve/indelve/pkg/provider"
)

// providerJSON is one entry of `indelve providers --format json`.
type providerJSON struct {
	ID    string `json:"id"`
	Short string `json:"short,omitempty"`
	Long  string `json:"long,omitempty"`
}

func (a *app) newProvidersCmd() *cobra.Command {
	var (
		descriptions bool
		long         bool
		all          bool
		format       string
	)

	cmd := &cobra.Command{
		Use:   "providers",
		Short: "List search providers",
		Long: `List the providers that load with the current configuration, in the
order they are queried. Providers that cannot run here are reported as
warnings on stderr.

With --all, list every declared provider without loading any of them.`,
		Example: `  indelve providers
  indelve providers --descriptions
  indelve providers --all --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			f, err := output.ParseFormat(format)
			if err != nil {
				return ierrors.ValidationError(err.Error(), err)
			}

			var (
				ids   []string
				descs map[string]provider.Description
			)
			if all {
				reg := a.registry(a.cfg, a.logger)
				ids = reg.List()
				descs, err = reg.Descriptions()
			} else {
				o, oerr := a.newOrchestrator(cmd.Context(), cmd.ErrOrStderr())
				if oerr != nil {
					return oerr
				}
				defer func() { _ = o.Close() }()
				ids = o.ListProviders()
				descs, err = o.ProviderDescriptions()
			}
			if err != nil {
				// malformed entries are left out; list the rest
				output.New(cmd.ErrOrStderr()).Warning(err.Error())
			}

			out := output.New(cmd.OutOrStdout())
			if f == output.FormatJSON {
				list := make([]providerJSON, 0, len(ids))
				for _, id := range ids {
					entry := providerJSON{ID: id}
					if descriptions || long {
						entry.Short = descs[id].Short
					}
					if long {
						entry.Long = descs[id].Long
					}
					list = append(list, entry)
				}
				return out.JSON(list)
			}

			if descriptions || long {
				out.ProviderDescriptions(ids, descs, long)
				return nil
			}
			out.ProviderIDs(ids)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&descriptions, "descriptions", "d", false, "Show short descriptions")
	cmd.Flags().BoolVarP(&long, "long", "l", false, "Show short and long descriptions")
	cmd.Flags().BoolVar(&all, "all", false, "List declared providers without loading them")
	cmd.Flags().StringVarP(&format, "format", "f", "text", "Output format: text, json")

	cmd.AddCommand(a.newProvidersDescribeCmd())

	return cmd
}

func (a *app) newProvidersDescribeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "describe <id>",
		Short: "Show the description of one provider",
		Long: `Show the declared description of a provider. No provider is loaded, so
this also works for providers that cannot run here.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := a.registry(a.cfg, a.logger).Description(args[0])
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(w, "%s: %s\n", args[0], d.Short)
			if d.Long != "" {
				_, _ = fmt.Fprintf(w, "\n%s\n", d.Long)
			}
			return nil
		},
	}
}
