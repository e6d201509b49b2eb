package main

import (
	"bytes"
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/wetbench/labsim"
	"github.com/wetbench/labsim/pkg/adapters/mcp"
	"github.com/wetbench/labsim/pkg/domain"
	"github.com/wetbench/labsim/pkg/trace"
)

// mcpCmd represents the mcp command
var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Run the Model Context Protocol (MCP) server",
	Long: `Starts the simulator as an MCP Server.
This allows AI agents (like Claude Desktop) to simulate protocols as tools.

Supported Transports:
- stdio (default): Uses Standard Input/Output. Ideal for local process integration.
- sse: Uses Server-Sent Events over HTTP. Ideal for remote agents or debuggers.`,
	Run: func(cmd *cobra.Command, args []string) {
		transport, _ := cmd.Flags().GetString("transport")
		port, _ := cmd.Flags().GetInt("port")
		levelName, _ := cmd.Flags().GetString("log-level")

		level, err := trace.ParseLevel(levelName)
		if err != nil {
			log.Fatalf("Error: %v", err)
		}

		// Logs must not corrupt JSON-RPC on Stdout
		logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		}))
		slog.SetDefault(logger)

		sim := mcp.SimulatorFunc(func(ctx context.Context, contents []byte, fileName string) (domain.RunLog, *domain.BundleContents, error) {
			return labsim.Simulate(ctx, bytes.NewReader(contents), fileName,
				labsim.WithLogLevel(level),
			)
		})

		srv := mcp.NewServer(sim)

		switch transport {
		case "stdio":
			log.SetOutput(os.Stderr)
			slog.Info("Starting labsim MCP Server (Stdio)...")
			if err := srv.ServeStdio(); err != nil {
				slog.Error("MCP Server execution failed", "error", err)
				os.Exit(1)
			}
		case "sse":
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			slog.Info("Starting labsim MCP Server (SSE)...", "port", port)
			if err := srv.ServeSSE(ctx, port); err != nil {
				slog.Error("MCP Server execution failed", "error", err)
				os.Exit(1)
			}
		default:
			log.Fatalf("Unknown transport %q (want stdio or sse)", transport)
		}
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
	mcpCmd.Flags().String("transport", "stdio", "Transport to use (stdio|sse)")
	mcpCmd.Flags().IntP("port", "p", 8090, "Port for the SSE transport")
}
