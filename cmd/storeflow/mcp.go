package main

import (
	"github.com/aretw0/storeflow/internal/cli"
	"github.com/spf13/cobra"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Run the Model Context Protocol (MCP) server",
	Long: `Exposes the configured flow to AI agents as an MCP server. Agents can validate
and draw the flow and play simulated conversations; replies are returned to the
agent instead of being delivered.

Supported Transports:
- stdio (default): Uses Standard Input/Output. Ideal for local process integration.
- sse: Uses Server-Sent Events over HTTP. Ideal for remote agents or debuggers.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		transport, _ := cmd.Flags().GetString("transport")
		addr, _ := cmd.Flags().GetString("addr")

		sigCtx := cli.NewSignalContext(cmd.Context())
		defer sigCtx.Cancel()

		// Logs go to stderr so they do not corrupt JSON-RPC on stdout.
		return cli.RunMCP(sigCtx, cfg, cli.MCPOptions{
			Transport: transport,
			Addr:      addr,
			BaseURL:   cfg.PublicURL,
		}, cli.NewLogger(cfg.LogLevel))
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
	mcpCmd.Flags().String("transport", "stdio", "Transport protocol to use: 'stdio' or 'sse'")
	mcpCmd.Flags().String("addr", ":8081", "Address to listen on (only for SSE)")
}
