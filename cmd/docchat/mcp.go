package main

import (
	"github.com/spf13/cobra"

	"github.com/docchat/docchat/internal/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the MCP server",
	Long: `Start a Model Context Protocol server on stdio.

Exposes query_documents and get_time_in_timezone to MCP-compatible assistants:
  {
    "mcpServers": {
      "docchat": {
        "command": "/path/to/docchat",
        "args": ["mcp"]
      }
    }
  }`,
	RunE: runMCP,
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}

func runMCP(cmd *cobra.Command, _ []string) error {
	svc, err := buildServices(cmd.Context(), false, false)
	if err != nil {
		return err
	}
	defer svc.close()

	server, err := mcp.NewServer(svc.retriever, svc.executor, appLogger)
	if err != nil {
		return err
	}
	return server.Run(cmd.Context())
}
