package cmd

import (
	"github.com/spf13/cobra"

	"github.com/indelve/indelve/internal/mcp"
)

func (a *app) newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve search over the Model Context Protocol",
		Long: `Start an MCP server exposing the search, list_providers and refresh
tools. The transport is server.transport in the configuration (stdio).

stdout carries the protocol; logs go to ~/.indelve/logs/indelve.log.`,
		Args:        cobra.NoArgs,
		Annotations: map[string]string{annotationServer: "true"},
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			// load warnings are logged by the orchestrator
			o, err := a.newOrchestrator(ctx, nil)
			if err != nil {
				return err
			}
			defer func() { _ = o.Close() }()

			srv, err := mcp.NewServer(o, a.logger)
			if err != nil {
				return err
			}
			return srv.Serve(ctx, a.cfg.Server.Transport)
		},
	}
}
