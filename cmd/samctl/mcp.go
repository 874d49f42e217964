package main

import (
	"github.com/spf13/cobra"

	"github.com/joshuapare/samkit/internal/logger"
	"github.com/joshuapare/samkit/internal/mcpserver"
)

func init() {
	rootCmd.AddCommand(newMCPCmd())
}

func newMCPCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve the account and evidence tools over MCP on stdio",
		Long: `The mcp command exposes every samctl operation as an MCP tool on
stdin/stdout. Logs go to log.file when it is set and are discarded otherwise,
since stdout carries the protocol.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMCP()
		},
	}
}

func runMCP() error {
	// stdout belongs to the protocol.
	verbose = false
	ws, err := openWorkspace()
	if err != nil {
		return err
	}
	logger.Info("starting MCP server", "image", ws.Image(), "workdir", cfg.Evidence.Workdir)
	return mcpserver.New(ws, version).ServeStdio()
}
