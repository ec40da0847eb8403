package server

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/caravel-hq/caravel/config"
	"github.com/caravel-hq/caravel/llm"
)

func TestIsPathAllowed_NoRestrictions(t *testing.T) {
	s := New("0.1.0", nil, nil)

	if err := s.isPathAllowed("/any/path"); err != nil {
		t.Fatalf("expected no error for unrestricted server, got: %v", err)
	}
}

func TestIsPathAllowed_AllowedPath(t *testing.T) {
	dir := t.TempDir()
	s := New("0.1.0", []string{dir}, nil)

	sub := filepath.Join(dir, "subdir")
	if err := s.isPathAllowed(sub); err != nil {
		t.Fatalf("expected path under allowed root to be allowed, got: %v", err)
	}
}

func TestIsPathAllowed_DisallowedPath(t *testing.T) {
	s := New("0.1.0", []string{"/allowed/workspace"}, nil)

	if err := s.isPathAllowed("/other/path"); err == nil {
		t.Fatal("expected error for path outside allowed workspace")
	}
}

func TestIsPathAllowed_TraversalBlocked(t *testing.T) {
	dir := t.TempDir()
	s := New("0.1.0", []string{dir}, nil)

	traversal := filepath.Join(dir, "..", "escape")
	if err := s.isPathAllowed(traversal); err == nil {
		t.Fatal("expected path traversal to be blocked")
	}
}

func TestHandleSaveFile_Overwrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out", "note.txt")

	s := New("0.1.0", nil, nil)
	req := makeToolRequest(t, "save_file", map[string]any{
		"content":   "hello",
		"file_path": path,
	})

	result, err := s.handleSaveFile(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.IsError {
		t.Fatalf("expected success, got error: %s", toolResultText(result))
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading saved file: %v", err)
	}
	if string(data) != "hello" {
		t.Fatalf("saved content: got %q, want %q", data, "hello")
	}
}

func TestHandleSaveFile_Append(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "log.txt")
	writeFile(t, dir, "log.txt", "first\n")

	s := New("0.1.0", nil, nil)
	req := makeToolRequest(t, "save_file", map[string]any{
		"content":   "second\n",
		"file_path": path,
		"mode":      "a",
	})

	result, err := s.handleSaveFile(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.IsError {
		t.Fatalf("expected success, got error: %s", toolResultText(result))
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading saved file: %v", err)
	}
	if string(data) != "first\nsecond\n" {
		t.Fatalf("appended content: got %q", data)
	}
}

func TestHandleSaveFile_MissingContent(t *testing.T) {
	s := New("0.1.0", nil, nil)
	req := makeToolRequest(t, "save_file", map[string]any{
		"file_path": "/tmp/whatever.txt",
	})

	result, err := s.handleSaveFile(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.IsError {
		t.Fatal("expected error result for missing content")
	}
}

func TestHandleSaveFile_DisallowedPath(t *testing.T) {
	dir := t.TempDir()
	s := New("0.1.0", []string{"/allowed/only"}, nil)

	req := makeToolRequest(t, "save_file", map[string]any{
		"content":   "nope",
		"file_path": filepath.Join(dir, "escape.txt"),
	})

	result, err := s.handleSaveFile(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.IsError {
		t.Fatal("expected error result for disallowed path")
	}
	if !strings.Contains(toolResultText(result), "outside allowed workspaces") {
		t.Fatalf("expected workspace error, got: %s", toolResultText(result))
	}
}

func TestHandleReadFile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "data.txt", "some data")

	s := New("0.1.0", nil, nil)
	req := makeToolRequest(t, "read_file", map[string]any{
		"file_path": filepath.Join(dir, "data.txt"),
	})

	result, err := s.handleReadFile(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.IsError {
		t.Fatalf("expected success, got error: %s", toolResultText(result))
	}
	if got := toolResultText(result); got != "some data" {
		t.Fatalf("read content: got %q", got)
	}
}

func TestHandleReadFile_NotFound(t *testing.T) {
	dir := t.TempDir()
	s := New("0.1.0", nil, nil)
	req := makeToolRequest(t, "read_file", map[string]any{
		"file_path": filepath.Join(dir, "missing.txt"),
	})

	result, err := s.handleReadFile(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.IsError {
		t.Fatal("expected error result for missing file")
	}
}

func TestHandleUsageReport(t *testing.T) {
	cfg, err := config.Parse(nil)
	if err != nil {
		t.Fatalf("parsing empty config: %v", err)
	}
	reg := llm.NewRegistry(cfg)
	if err := reg.Get("default").Ledger().Add(0.25); err != nil {
		t.Fatalf("seeding ledger: %v", err)
	}

	s := New("0.1.0", nil, reg)
	req := makeToolRequest(t, "usage_report", map[string]any{})

	result, err := s.handleUsageReport(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.IsError {
		t.Fatalf("expected success, got error: %s", toolResultText(result))
	}

	var report struct {
		Profile         string    `json:"profile"`
		AccumulatedCost float64   `json:"accumulated_cost"`
		Costs           []float64 `json:"costs"`
	}
	if err := json.Unmarshal([]byte(toolResultText(result)), &report); err != nil {
		t.Fatalf("decoding report: %v", err)
	}
	if report.Profile != "default" {
		t.Errorf("profile: got %q", report.Profile)
	}
	if report.AccumulatedCost != 0.25 {
		t.Errorf("accumulated_cost: got %v, want 0.25", report.AccumulatedCost)
	}
	if len(report.Costs) != 1 {
		t.Errorf("costs: got %d entries, want 1", len(report.Costs))
	}
}

func TestHandleUsageReport_NoRegistry(t *testing.T) {
	s := New("0.1.0", nil, nil)
	req := makeToolRequest(t, "usage_report", map[string]any{})

	result, err := s.handleUsageReport(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.IsError {
		t.Fatal("expected error result without a registry")
	}
}

func TestHandleTerminate(t *testing.T) {
	s := New("0.1.0", nil, nil)
	if got := s.Terminated(); got != "" {
		t.Fatalf("expected empty status before terminate, got %q", got)
	}

	req := makeToolRequest(t, "terminate", map[string]any{"status": "success"})
	result, err := s.handleTerminate(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.IsError {
		t.Fatalf("expected success, got error: %s", toolResultText(result))
	}
	if got := s.Terminated(); got != "success" {
		t.Fatalf("terminated status: got %q, want %q", got, "success")
	}
}

func TestHandleTerminate_InvalidStatus(t *testing.T) {
	s := New("0.1.0", nil, nil)
	req := makeToolRequest(t, "terminate", map[string]any{"status": "maybe"})

	result, err := s.handleTerminate(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.IsError {
		t.Fatal("expected error result for invalid status")
	}
	if got := s.Terminated(); got != "" {
		t.Fatalf("expected status unchanged, got %q", got)
	}
}

func TestTruncate(t *testing.T) {
	short := "short output"
	if got := truncate(short); got != short {
		t.Fatalf("short string should be unchanged, got %q", got)
	}

	long := strings.Repeat("x", maxOutputBytes+1024)
	got := truncate(long)
	if !strings.HasSuffix(got, "... (truncated)") {
		t.Fatal("expected truncation marker")
	}
	if len(got) >= len(long) {
		t.Fatalf("expected truncated output to be shorter: %d >= %d", len(got), len(long))
	}
}

func TestBuildRegistersTools(t *testing.T) {
	s := New("0.1.0", nil, nil)
	if srv := s.build(); srv == nil {
		t.Fatal("expected a non-nil MCP server")
	}
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatalf("writing file %s: %v", name, err)
	}
}

func makeToolRequest(t *testing.T, name string, args map[string]any) mcp.CallToolRequest {
	t.Helper()
	argsJSON, err := json.Marshal(args)
	if err != nil {
		t.Fatalf("marshaling args: %v", err)
	}
	var raw any
	if err := json.Unmarshal(argsJSON, &raw); err != nil {
		t.Fatalf("unmarshaling args: %v", err)
	}
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name:      name,
			Arguments: raw,
		},
	}
}

func toolResultText(result *mcp.CallToolResult) string {
	for _, c := range result.Content {
		if tc, ok := c.(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}
