package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/1broseidon/quietwin/internal/mcp"
)

func newMCPCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Model Context Protocol server",
	}
	serve := &cobra.Command{
		Use:   "serve",
		Short: "Start the MCP server on stdio",
		Long: `Start the MCP server on stdio. Designed to be invoked by MCP clients.
The config file is watched and reloaded on change.

Example:
  claude mcp add quietwin -- quietwin mcp serve`,
		Args: usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := a.setup()
			if err != nil {
				return err
			}
			server := mcp.NewServer(cfg, a.log, mcp.Options{
				ConfigPath: a.res.Path,
				Level:      &a.level,
				Open:       a.open,
			})
			defer server.Close()

			a.log.Info("mcp server starting", zap.String("config", a.res.Path))
			return server.Run(cmd.Context())
		},
	}
	cmd.AddCommand(serve)
	return cmd
}
