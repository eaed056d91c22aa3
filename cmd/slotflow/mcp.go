package main

import (
	"fmt"

	"github.com/aretw0/lifecycle"
	"github.com/aretw0/slotflow/pkg/adapters/mcp"
	"github.com/spf13/cobra"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Run the Model Context Protocol (MCP) server",
	Long: `Exposes the booking flow as MCP tools so an agent can hold conversations.

Supported transports:
- stdio (default): standard input and output, for local process integration.
- sse: server-sent events over HTTP, for remote agents.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		transport, _ := cmd.Flags().GetString("transport")
		port, _ := cmd.Flags().GetInt("port")

		app, err := loadApp(cmd)
		if err != nil {
			return err
		}
		defer app.Close()

		opts := []mcp.Option{mcp.WithLogger(app.Logger)}
		if app.Outbox != nil {
			opts = append(opts, mcp.WithReplies(app.Outbox.Drain))
		}
		srv := mcp.NewServer(app.Engine, opts...)

		switch transport {
		case "stdio":
			return srv.ServeStdio()
		case "sse":
			sigCtx := lifecycle.NewSignalContext(cmd.Context())
			defer sigCtx.Cancel()
			return srv.ServeSSE(sigCtx, port)
		default:
			return fmt.Errorf("unknown transport %q (supported: stdio, sse)", transport)
		}
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
	mcpCmd.Flags().String("transport", "stdio", "Transport protocol: stdio or sse")
	mcpCmd.Flags().Int("port", 8081, "Port to listen on (sse only)")
}
