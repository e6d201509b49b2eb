// Package mcp exposes the simulator to AI tooling over the Model Context
// Protocol: simulate a protocol, render a run log, and browse the builtin
// labware catalog.
package mcp

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/wetbench/labsim"
	"github.com/wetbench/labsim/pkg/domain"
	"github.com/wetbench/labsim/pkg/simulation"
)

// SimulateResponse provides a unified structure across adapters: the raw
// run log plus its rendered text.
type SimulateResponse struct {
	RunLog  domain.RunLog `json:"runLog" jsonschema_description:"The structured run log spans"`
	Text    string        `json:"text" jsonschema_description:"The indented human-readable run log"`
	Bundled bool          `json:"bundled" jsonschema_description:"Whether the run produced bundle contents"`
	Error   string        `json:"error,omitempty" jsonschema_description:"Execution failure, if the run aborted mid-protocol"`
}

// Simulator runs one protocol simulation. It matches the root Simulate
// pipeline but lets tests stub it.
type Simulator interface {
	Simulate(ctx context.Context, contents []byte, fileName string) (domain.RunLog, *domain.BundleContents, error)
}

// SimulatorFunc adapts a function to the Simulator interface.
type SimulatorFunc func(ctx context.Context, contents []byte, fileName string) (domain.RunLog, *domain.BundleContents, error)

func (f SimulatorFunc) Simulate(ctx context.Context, contents []byte, fileName string) (domain.RunLog, *domain.BundleContents, error) {
	return f(ctx, contents, fileName)
}

// Server wraps the simulation pipeline and exposes it as an MCP Server.
type Server struct {
	sim       Simulator
	mcpServer *server.MCPServer
}

// NewServer creates a new MCP Server instance.
func NewServer(sim Simulator) *Server {
	s := &Server{
		sim:       sim,
		mcpServer: server.NewMCPServer("labsim-mcp", strings.TrimSpace(labsim.Version)),
	}
	s.registerTools()
	s.registerResources()
	return s
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE starts the server on the given port using SSE.
func (s *Server) ServeSSE(ctx context.Context, port int) error {
	addr := fmt.Sprintf(":%d", port)
	baseURL := fmt.Sprintf("http://localhost:%d", port)

	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", corsMiddleware(sseServer.SSEHandler()))
	mux.Handle("/message", corsMiddleware(sseServer.MessageHandler()))

	httpServer := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	serverErrors := make(chan error, 1)

	go func() {
		slog.Info("MCP Server listening (SSE)", "address", addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		fmt.Println("\nShutdown signal received, shutting down server...")
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) registerTools() {
	// TOOL: simulate_protocol
	simulateTool := mcp.NewTool("simulate_protocol",
		mcp.WithDescription("Simulate a protocol and return its run log. Content may be JSON instructions, protocol source, or a base64 bundle archive."),
		mcp.WithString("file_name", mcp.Required(), mcp.Description("Name of the protocol file, used for form sniffing and reporting")),
		mcp.WithString("content", mcp.Required(), mcp.Description("The protocol content")),
		mcp.WithString("encoding", mcp.Description("Set to 'base64' when content is a binary bundle archive")),
		mcp.WithOutputSchema[SimulateResponse](),
	)
	s.mcpServer.AddTool(simulateTool, mcp.NewStructuredToolHandler(s.handleSimulate))

	// TOOL: format_run_log
	formatTool := mcp.NewTool("format_run_log",
		mcp.WithDescription("Render a structured run log into its indented human-readable form."),
		mcp.WithString("run_log", mcp.Required(), mcp.Description("JSON array of run log spans")),
	)
	s.mcpServer.AddTool(formatTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		raw, err := request.RequireString("run_log")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		var runlog domain.RunLog
		if err := json.Unmarshal([]byte(raw), &runlog); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("invalid run log: %v", err)), nil
		}

		text, err := labsim.FormatRunLog(runlog)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("format failed: %v", err)), nil
		}
		return mcp.NewToolResultText(text), nil
	})
}

func (s *Server) handleSimulate(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (SimulateResponse, error) {
	fileName, _ := args["file_name"].(string)
	content, _ := args["content"].(string)
	if fileName == "" || content == "" {
		return SimulateResponse{}, fmt.Errorf("file_name and content are required")
	}

	contents := []byte(content)
	if enc, _ := args["encoding"].(string); enc == "base64" {
		decoded, err := base64.StdEncoding.DecodeString(content)
		if err != nil {
			return SimulateResponse{}, fmt.Errorf("invalid base64 content: %w", err)
		}
		contents = decoded
	}

	runlog, bundleContents, err := s.sim.Simulate(ctx, contents, fileName)
	if err != nil && runlog == nil {
		return SimulateResponse{}, fmt.Errorf("simulation failed: %w", err)
	}

	resp := SimulateResponse{
		RunLog:  runlog,
		Bundled: bundleContents != nil,
	}
	if err != nil {
		// Partial run log from an aborted protocol is still rendered.
		slog.Error("MCP Simulate: Execution failed", "error", err)
		resp.Error = err.Error()
	}
	if text, ferr := labsim.FormatRunLog(runlog); ferr == nil {
		resp.Text = text
	}
	return resp, nil
}

func (s *Server) registerResources() {
	// EXPOSE: labsim://labware
	s.mcpServer.AddResource(mcp.NewResource("labsim://labware", "Builtin Labware Catalog",
		mcp.WithMIMEType("application/json"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		jsonBytes, err := json.Marshal(simulation.BuiltinLabwareSet())
		if err != nil {
			return nil, fmt.Errorf("failed to marshal labware catalog: %w", err)
		}

		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      "labsim://labware",
				MIMEType: "application/json",
				Text:     string(jsonBytes),
			},
		}, nil
	})
}
