package mcp_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	mcplib "github.com/mark3labs/mcp-go/mcp"

	lhmcp "github.com/langtools/langhost/internal/adapter/mcp"
	extDomain "github.com/langtools/langhost/internal/domain/extension"
	lspDomain "github.com/langtools/langhost/internal/domain/lsp"
)

// --- Mocks ---

type mockResolver struct {
	ids []extDomain.LanguageServerID
	cmd extDomain.Command
	err error
}

func (m *mockResolver) Extensions() []extDomain.LanguageServerID {
	return m.ids
}

func (m *mockResolver) ResolveCommand(_ context.Context, _ extDomain.LanguageServerID, _ *extDomain.Worktree) (extDomain.Command, error) {
	return m.cmd, m.err
}

type mockReader struct {
	infos []lspDomain.ServerInfo
	diags []lspDomain.Diagnostic
}

func (m *mockReader) Status(_ string) []lspDomain.ServerInfo {
	return m.infos
}

func (m *mockReader) Diagnostics(_, _ string) []lspDomain.Diagnostic {
	return m.diags
}

func tsResolver() *mockResolver {
	return &mockResolver{
		ids: []extDomain.LanguageServerID{"typescript-language-server"},
		cmd: extDomain.Command{
			Command: "node",
			Args:    []string{"node_modules/.bin/typescript-language-server", "--stdio"},
			Env:     map[string]string{},
		},
	}
}

// --- Tests ---

func TestNewServer(t *testing.T) {
	cfg := lhmcp.ServerConfig{
		Addr:    ":7778",
		Name:    "test-server",
		Version: "0.1.0",
	}
	s := lhmcp.NewServer(cfg, lhmcp.ServerDeps{})
	if s == nil {
		t.Fatal("NewServer returned nil")
	}
	if s.MCPServer() == nil {
		t.Fatal("MCPServer() returned nil")
	}
}

func TestServerStartStop(t *testing.T) {
	cfg := lhmcp.ServerConfig{
		Addr:    ":0",
		Name:    "test-server",
		Version: "0.1.0",
	}
	s := lhmcp.NewServer(cfg, lhmcp.ServerDeps{})

	if err := s.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	if err := s.Stop(context.Background()); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
}

func TestToolRegistration(t *testing.T) {
	deps := lhmcp.ServerDeps{
		Resolver: tsResolver(),
		Reader:   &mockReader{},
	}
	s := lhmcp.NewServer(lhmcp.ServerConfig{Name: "test", Version: "0.1.0"}, deps)

	tools := s.MCPServer().ListTools()
	if len(tools) != 4 {
		t.Fatalf("expected 4 tools, got %d", len(tools))
	}

	expectedTools := map[string]bool{
		"list_extensions": false,
		"resolve_command": false,
		"server_status":   false,
		"get_diagnostics": false,
	}
	for name := range tools {
		if _, ok := expectedTools[name]; ok {
			expectedTools[name] = true
		} else {
			t.Errorf("unexpected tool: %s", name)
		}
	}
	for name, found := range expectedTools {
		if !found {
			t.Errorf("expected tool %q not registered", name)
		}
	}
}

func TestHandleListExtensions(t *testing.T) {
	s := lhmcp.NewServer(lhmcp.ServerConfig{Name: "test", Version: "0.1.0"}, lhmcp.ServerDeps{
		Resolver: tsResolver(),
	})

	tools := s.MCPServer().ListTools()
	listTool, ok := tools["list_extensions"]
	if !ok {
		t.Fatal("list_extensions tool not found")
	}

	result, err := listTool.Handler(context.Background(), mcplib.CallToolRequest{
		Params: mcplib.CallToolParams{Name: "list_extensions"},
	})
	if err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if result.IsError {
		t.Fatalf("tool returned error: %v", result.Content)
	}

	text, ok := result.Content[0].(mcplib.TextContent)
	if !ok {
		t.Fatal("expected TextContent")
	}
	var ids []string
	if err := json.Unmarshal([]byte(text.Text), &ids); err != nil {
		t.Fatalf("unmarshal error: %v", err)
	}
	if len(ids) != 1 || ids[0] != "typescript-language-server" {
		t.Fatalf("unexpected extensions: %v", ids)
	}
}

func TestHandleResolveCommand(t *testing.T) {
	s := lhmcp.NewServer(lhmcp.ServerConfig{Name: "test", Version: "0.1.0"}, lhmcp.ServerDeps{
		Resolver: tsResolver(),
	})

	tools := s.MCPServer().ListTools()
	resolveTool, ok := tools["resolve_command"]
	if !ok {
		t.Fatal("resolve_command tool not found")
	}

	result, err := resolveTool.Handler(context.Background(), mcplib.CallToolRequest{
		Params: mcplib.CallToolParams{
			Name: "resolve_command",
			Arguments: map[string]any{
				"server_id":     "typescript-language-server",
				"worktree_id":   "wt1",
				"worktree_root": "/src/app",
			},
		},
	})
	if err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if result.IsError {
		t.Fatalf("tool returned error: %v", result.Content)
	}

	text, ok := result.Content[0].(mcplib.TextContent)
	if !ok {
		t.Fatal("expected TextContent")
	}
	var cmd extDomain.Command
	if err := json.Unmarshal([]byte(text.Text), &cmd); err != nil {
		t.Fatalf("unmarshal error: %v", err)
	}
	if cmd.Command != "node" {
		t.Fatalf("expected node, got %q", cmd.Command)
	}
	if len(cmd.Args) != 2 || cmd.Args[1] != "--stdio" {
		t.Fatalf("unexpected args: %v", cmd.Args)
	}
}

func TestHandleResolveCommandMissingArg(t *testing.T) {
	s := lhmcp.NewServer(lhmcp.ServerConfig{Name: "test", Version: "0.1.0"}, lhmcp.ServerDeps{
		Resolver: tsResolver(),
	})

	tools := s.MCPServer().ListTools()
	resolveTool, ok := tools["resolve_command"]
	if !ok {
		t.Fatal("resolve_command tool not found")
	}

	result, err := resolveTool.Handler(context.Background(), mcplib.CallToolRequest{
		Params: mcplib.CallToolParams{Name: "resolve_command"},
	})
	if err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if !result.IsError {
		t.Fatal("expected error result for missing server_id")
	}
}

func TestHandleResolveCommandUnknownServer(t *testing.T) {
	s := lhmcp.NewServer(lhmcp.ServerConfig{Name: "test", Version: "0.1.0"}, lhmcp.ServerDeps{
		Resolver: &mockResolver{err: errors.New("no extension registered")},
	})

	tools := s.MCPServer().ListTools()
	resolveTool, ok := tools["resolve_command"]
	if !ok {
		t.Fatal("resolve_command tool not found")
	}

	result, err := resolveTool.Handler(context.Background(), mcplib.CallToolRequest{
		Params: mcplib.CallToolParams{
			Name:      "resolve_command",
			Arguments: map[string]any{"server_id": "rust-analyzer"},
		},
	})
	if err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if !result.IsError {
		t.Fatal("expected error result for unknown server")
	}
}

func TestHandleServerStatus(t *testing.T) {
	deps := lhmcp.ServerDeps{
		Reader: &mockReader{
			infos: []lspDomain.ServerInfo{
				{SessionID: "s1", ServerID: "typescript-language-server", Status: lspDomain.ServerStatusReady},
			},
		},
	}
	s := lhmcp.NewServer(lhmcp.ServerConfig{Name: "test", Version: "0.1.0"}, deps)

	tools := s.MCPServer().ListTools()
	statusTool, ok := tools["server_status"]
	if !ok {
		t.Fatal("server_status tool not found")
	}

	result, err := statusTool.Handler(context.Background(), mcplib.CallToolRequest{
		Params: mcplib.CallToolParams{
			Name:      "server_status",
			Arguments: map[string]any{"worktree_id": "wt1"},
		},
	})
	if err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if result.IsError {
		t.Fatalf("tool returned error: %v", result.Content)
	}

	text, ok := result.Content[0].(mcplib.TextContent)
	if !ok {
		t.Fatal("expected TextContent")
	}
	var infos []lspDomain.ServerInfo
	if err := json.Unmarshal([]byte(text.Text), &infos); err != nil {
		t.Fatalf("unmarshal error: %v", err)
	}
	if len(infos) != 1 || infos[0].Status != lspDomain.ServerStatusReady {
		t.Fatalf("unexpected infos: %v", infos)
	}
}

func TestHandleGetDiagnostics(t *testing.T) {
	deps := lhmcp.ServerDeps{
		Reader: &mockReader{
			diags: []lspDomain.Diagnostic{
				{Message: "unused variable", Severity: lspDomain.SeverityWarning, Source: "typescript"},
			},
		},
	}
	s := lhmcp.NewServer(lhmcp.ServerConfig{Name: "test", Version: "0.1.0"}, deps)

	tools := s.MCPServer().ListTools()
	diagTool, ok := tools["get_diagnostics"]
	if !ok {
		t.Fatal("get_diagnostics tool not found")
	}

	result, err := diagTool.Handler(context.Background(), mcplib.CallToolRequest{
		Params: mcplib.CallToolParams{
			Name:      "get_diagnostics",
			Arguments: map[string]any{"worktree_id": "wt1", "uri": "file:///a.ts"},
		},
	})
	if err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if result.IsError {
		t.Fatalf("tool returned error: %v", result.Content)
	}

	text, ok := result.Content[0].(mcplib.TextContent)
	if !ok {
		t.Fatal("expected TextContent")
	}
	var diags []lspDomain.Diagnostic
	if err := json.Unmarshal([]byte(text.Text), &diags); err != nil {
		t.Fatalf("unmarshal error: %v", err)
	}
	if len(diags) != 1 || diags[0].Message != "unused variable" {
		t.Fatalf("unexpected diagnostics: %v", diags)
	}
}

func TestHandleNilDeps(t *testing.T) {
	s := lhmcp.NewServer(lhmcp.ServerConfig{Name: "test", Version: "0.1.0"}, lhmcp.ServerDeps{})

	tools := s.MCPServer().ListTools()
	listTool, ok := tools["list_extensions"]
	if !ok {
		t.Fatal("list_extensions tool not found")
	}

	result, err := listTool.Handler(context.Background(), mcplib.CallToolRequest{
		Params: mcplib.CallToolParams{Name: "list_extensions"},
	})
	if err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if !result.IsError {
		t.Fatal("expected error result when deps are nil")
	}
}

func TestAuthMiddleware(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	tests := []struct {
		name   string
		apiKey string
		header string
		want   int
	}{
		{"auth disabled", "", "", http.StatusOK},
		{"missing header", "secret", "", http.StatusUnauthorized},
		{"bearer token", "secret", "Bearer secret", http.StatusOK},
		{"plain key", "secret", "secret", http.StatusOK},
		{"wrong key", "secret", "Bearer wrong", http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := lhmcp.AuthMiddleware(tt.apiKey, next)
			req := httptest.NewRequest(http.MethodGet, "/mcp", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			if rec.Code != tt.want {
				t.Errorf("expected %d, got %d", tt.want, rec.Code)
			}
		})
	}
}
