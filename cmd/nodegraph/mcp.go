package main

import (
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/aretw0/nodegraph/internal/cli"
	"github.com/aretw0/nodegraph/pkg/adapters/mcp"
	"github.com/spf13/cobra"
)

// mcpCmd represents the mcp command
var mcpCmd = &cobra.Command{
	Use:   "mcp [graph]",
	Short: "Run the Model Context Protocol (MCP) server",
	Long: `Starts nodegraph as an MCP server so AI agents can evaluate the graph and talk
through its dialogs as tools.

Supported Transports:
- stdio (default): Uses Standard Input/Output. Ideal for local process integration.
- sse: Uses Server-Sent Events over HTTP. Ideal for remote agents or debuggers.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd, args)
		if err != nil {
			return err
		}
		transport, _ := cmd.Flags().GetString("transport")
		addr, _ := cmd.Flags().GetString("addr")

		sigCtx := cli.NewSignalContext(cmd.Context())
		defer sigCtx.Cancel()

		logger := cli.NewLogger(cfg)
		engine, err := cli.NewEngine(sigCtx, cfg, cli.EngineOptions{Logger: logger, Shared: true})
		if err != nil {
			return err
		}
		persistence, err := cli.NewPersistence(sigCtx, cfg, logger, engine.DialogOptions()...)
		if err != nil {
			return err
		}
		defer persistence.Close()

		srv := mcp.NewServer(engine, mcp.WithSessions(persistence.Manager), mcp.WithLogger(logger))

		switch transport {
		case "stdio":
			// Ensure logs don't corrupt JSON-RPC on Stdout
			log.SetOutput(cmd.ErrOrStderr())
			logger.Info("Starting nodegraph MCP server (stdio)")
			return srv.ServeStdio()
		case "sse":
			logger.Info("Starting nodegraph MCP server (SSE)", "addr", addr)
			if err := srv.ServeSSE(sigCtx, addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			logger.Info("MCP server stopped gracefully")
			return nil
		default:
			return fmt.Errorf("unknown transport %q (supported: stdio, sse)", transport)
		}
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)

	mcpCmd.Flags().String("transport", "stdio", "Transport protocol to use: 'stdio' or 'sse'")
	mcpCmd.Flags().String("addr", ":8081", "Address to listen on (only for SSE)")
}
