// Package server implements the MCP tool server: local tool callables
// registered with a stdio Model Context Protocol dispatcher. Tool
// bodies are plain local operations; browser automation, web search,
// and sandboxed code execution are deliberately not served here.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/caravel-hq/caravel/llm"
)

const (
	// maxOutputBytes is the maximum tool response size before truncation (1 MB).
	maxOutputBytes = 1 << 20
)

// Server is the caravel MCP tool server.
type Server struct {
	version      string
	allowedPaths []string
	registry     *llm.Registry

	mu         sync.RWMutex
	terminated string
}

// New creates a new tool server. If allowedPaths is empty, any path is
// allowed for the file tools. registry may be nil when cost
// introspection is not wanted.
func New(version string, allowedPaths []string, registry *llm.Registry) *Server {
	// Resolve allowed paths to absolute for consistent comparison.
	resolved := make([]string, 0, len(allowedPaths))
	for _, p := range allowedPaths {
		abs, err := filepath.Abs(p)
		if err == nil {
			resolved = append(resolved, abs)
		}
	}
	return &Server{
		version:      version,
		allowedPaths: resolved,
		registry:     registry,
	}
}

// Serve starts the MCP server on stdio and blocks until the client
// disconnects.
func (s *Server) Serve() error {
	return mcpserver.ServeStdio(s.build())
}

func (s *Server) build() *mcpserver.MCPServer {
	srv := mcpserver.NewMCPServer(
		"caravel",
		s.version,
		mcpserver.WithRecovery(),
		mcpserver.WithToolCapabilities(false),
		mcpserver.WithResourceCapabilities(false, false),
	)
	s.registerTools(srv)
	s.registerResources(srv)
	return srv
}

func (s *Server) registerTools(srv *mcpserver.MCPServer) {
	srv.AddTool(
		mcp.NewTool("save_file",
			mcp.WithDescription("Save content to a local file"),
			mcp.WithString("content",
				mcp.Description("Content to save"),
				mcp.Required(),
			),
			mcp.WithString("file_path",
				mcp.Description("Destination file path"),
				mcp.Required(),
			),
			mcp.WithString("mode",
				mcp.Description("Write mode: w (overwrite) or a (append)"),
				mcp.Enum("w", "a"),
				mcp.DefaultString("w"),
			),
		),
		s.handleSaveFile,
	)

	srv.AddTool(
		mcp.NewTool("read_file",
			mcp.WithDescription("Read the content of a local file"),
			mcp.WithString("file_path",
				mcp.Description("File path to read"),
				mcp.Required(),
			),
			mcp.WithReadOnlyHintAnnotation(true),
		),
		s.handleReadFile,
	)

	srv.AddTool(
		mcp.NewTool("usage_report",
			mcp.WithDescription("Get accumulated LLM cost for a client profile"),
			mcp.WithString("profile",
				mcp.Description("Profile name"),
				mcp.DefaultString("default"),
			),
			mcp.WithReadOnlyHintAnnotation(true),
		),
		s.handleUsageReport,
	)

	srv.AddTool(
		mcp.NewTool("terminate",
			mcp.WithDescription("Terminate the current task"),
			mcp.WithString("status",
				mcp.Description("Termination status"),
				mcp.Enum("success", "failure"),
				mcp.Required(),
			),
		),
		s.handleTerminate,
	)
}

// isPathAllowed checks that the path is under one of the allowed roots.
func (s *Server) isPathAllowed(path string) error {
	if len(s.allowedPaths) == 0 {
		return nil
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("cannot resolve path: %w", err)
	}
	for _, allowed := range s.allowedPaths {
		rel, err := filepath.Rel(allowed, abs)
		if err != nil {
			continue
		}
		if !strings.HasPrefix(rel, "..") {
			return nil
		}
	}
	return fmt.Errorf("path %q is outside allowed workspaces", path)
}

func (s *Server) handleSaveFile(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	content, err := request.RequireString("content")
	if err != nil {
		return mcp.NewToolResultError("missing required argument: content"), nil
	}
	path, err := request.RequireString("file_path")
	if err != nil {
		return mcp.NewToolResultError("missing required argument: file_path"), nil
	}
	if err := s.isPathAllowed(path); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("creating directory: %v", err)), nil
		}
	}

	mode := request.GetString("mode", "w")
	flags := os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	if mode == "a" {
		flags = os.O_WRONLY | os.O_CREATE | os.O_APPEND
	}

	f, err := os.OpenFile(path, flags, 0o644)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("opening %s: %v", path, err)), nil
	}
	defer f.Close()
	if _, err := f.WriteString(content); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("writing %s: %v", path, err)), nil
	}

	slog.Info("saved file", "path", path, "bytes", len(content))
	return mcp.NewToolResultText(fmt.Sprintf("Content successfully saved to %s", path)), nil
}

func (s *Server) handleReadFile(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := request.RequireString("file_path")
	if err != nil {
		return mcp.NewToolResultError("missing required argument: file_path"), nil
	}
	if err := s.isPathAllowed(path); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("reading %s: %v", path, err)), nil
	}
	return mcp.NewToolResultText(truncate(string(data))), nil
}

func (s *Server) handleUsageReport(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if s.registry == nil {
		return mcp.NewToolResultError("no LLM registry configured"), nil
	}

	profile := request.GetString("profile", "default")
	ledger := s.registry.Get(profile).Ledger()

	report := map[string]any{
		"profile":          profile,
		"accumulated_cost": ledger.Accumulated(),
		"costs":            ledger.Costs(),
	}
	data, err := json.Marshal(report)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("encoding report: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func (s *Server) handleTerminate(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	status, err := request.RequireString("status")
	if err != nil {
		return mcp.NewToolResultError("missing required argument: status"), nil
	}
	if status != "success" && status != "failure" {
		return mcp.NewToolResultError(fmt.Sprintf("invalid status %q", status)), nil
	}

	s.mu.Lock()
	s.terminated = status
	s.mu.Unlock()

	slog.Info("terminating task", "status", status)
	return mcp.NewToolResultText(fmt.Sprintf("Task terminated with status: %s", status)), nil
}

// Terminated returns the status recorded by the terminate tool, or ""
// while the task is still running.
func (s *Server) Terminated() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.terminated
}

// truncate caps tool output at maxOutputBytes.
func truncate(s string) string {
	if len(s) <= maxOutputBytes {
		return s
	}
	return s[:maxOutputBytes] + "\n... (truncated)"
}
