package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	mcpserver "github.com/ziadkadry99/podcast-rag/internal/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the MCP server for AI agent integration",
	Long:  `Starts a Model Context Protocol (MCP) server on stdio, exposing transcript search and host answers as tools.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		a, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		var asker mcpserver.Asker
		if responder, err := a.newResponder(0); err != nil {
			a.logger.Warn("ask_hosts disabled", "error", err)
		} else {
			asker = responder
		}

		size, err := a.index.Size(ctx)
		if err != nil {
			return err
		}

		mcpserver.Version = Version
		fmt.Fprintf(os.Stderr, "podrag MCP server started on stdio (index=%s, units=%d)\n", a.index.Name(), size)

		return mcpserver.NewServer(a.retriever, asker).Serve()
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}
