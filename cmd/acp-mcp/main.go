package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/acp-protocol/acp-mcp/pkg/logging"
	"github.com/acp-protocol/acp-mcp/pkg/server"
)

var (
	flagDirectory string
	flagLogLevel  string
)

var rootCmd = &cobra.Command{
	Use:   "acp-mcp",
	Short: "ACP MCP server - codebase context for AI agents over stdio",
	Long: `acp-mcp serves a pre-built code-analysis cache over the Model Context
Protocol. It exposes architecture overviews, file and symbol context,
constraint checks, variable expansion, and token-budgeted context
primers as MCP tools for Claude Desktop and other MCP clients.

The project must be indexed first: the server reads .acp/acp.cache.json
(and the optional vars and attempts files) from the project root and
hot-reloads them when the indexer rewrites them.`,
	Version:       server.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		// stdout carries the protocol; all logging goes to stderr
		logging.SetLogger(logging.NewLogger(logging.Config{
			Severity: logging.ParseSeverity(flagLogLevel),
			Outputs:  []logging.Output{logging.NewConsoleOutput()},
		}))

		root := flagDirectory
		if root == "" {
			wd, err := os.Getwd()
			if err != nil {
				return fmt.Errorf("resolving working directory: %w", err)
			}
			root = wd
		}

		ctx := context.Background()
		logging.GetLogger().Info(ctx, "acp-mcp starting, project root: %s", root)
		return server.RunStdio(ctx, root)
	},
}

func init() {
	rootCmd.Flags().StringVarP(&flagDirectory, "directory", "C", "", "project root directory (defaults to the working directory)")
	rootCmd.Flags().StringVar(&flagLogLevel, "log-level", "info", "log level (debug, info, warn, error)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
