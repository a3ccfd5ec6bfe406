package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	mcplib "github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	extDomain "github.com/langtools/langhost/internal/domain/extension"
)

// registerTools registers all MCP tools on the server.
func (s *Server) registerTools() {
	s.mcpServer.AddTools(
		s.listExtensionsTool(),
		s.resolveCommandTool(),
		s.serverStatusTool(),
		s.getDiagnosticsTool(),
	)
}

func (s *Server) listExtensionsTool() mcpserver.ServerTool {
	tool := mcplib.NewTool("list_extensions",
		mcplib.WithDescription("List the language server IDs langhost can resolve"),
	)
	return mcpserver.ServerTool{
		Tool:    tool,
		Handler: s.handleListExtensions,
	}
}

func (s *Server) resolveCommandTool() mcpserver.ServerTool {
	tool := mcplib.NewTool("resolve_command",
		mcplib.WithDescription("Resolve the launch command for a language server"),
		mcplib.WithString("server_id",
			mcplib.Required(),
			mcplib.Description("The language server ID to resolve"),
		),
		mcplib.WithString("worktree_id",
			mcplib.Description("Optional worktree ID forwarded to the extension"),
		),
		mcplib.WithString("worktree_root",
			mcplib.Description("Optional worktree root path forwarded to the extension"),
		),
	)
	return mcpserver.ServerTool{
		Tool:    tool,
		Handler: s.handleResolveCommand,
	}
}

func (s *Server) serverStatusTool() mcpserver.ServerTool {
	tool := mcplib.NewTool("server_status",
		mcplib.WithDescription("Get the status of all language servers for a worktree"),
		mcplib.WithString("worktree_id",
			mcplib.Required(),
			mcplib.Description("The worktree ID to inspect"),
		),
	)
	return mcpserver.ServerTool{
		Tool:    tool,
		Handler: s.handleServerStatus,
	}
}

func (s *Server) getDiagnosticsTool() mcpserver.ServerTool {
	tool := mcplib.NewTool("get_diagnostics",
		mcplib.WithDescription("Get cached diagnostics for a worktree, optionally filtered by file URI"),
		mcplib.WithString("worktree_id",
			mcplib.Required(),
			mcplib.Description("The worktree ID to inspect"),
		),
		mcplib.WithString("uri",
			mcplib.Description("Optional file URI filter"),
		),
	)
	return mcpserver.ServerTool{
		Tool:    tool,
		Handler: s.handleGetDiagnostics,
	}
}

func (s *Server) handleListExtensions(_ context.Context, _ mcplib.CallToolRequest) (*mcplib.CallToolResult, error) { //nolint:gocritic // hugeParam: mcp-go handler signature
	if s.deps.Resolver == nil {
		return mcplib.NewToolResultError("extension resolver not configured"), nil
	}
	ids := s.deps.Resolver.Extensions()
	data, err := json.Marshal(ids)
	if err != nil {
		return mcplib.NewToolResultErrorFromErr("failed to marshal extensions", err), nil
	}
	return toolResultJSON(string(data)), nil
}

func (s *Server) handleResolveCommand(ctx context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) { //nolint:gocritic // hugeParam: mcp-go handler signature
	if s.deps.Resolver == nil {
		return mcplib.NewToolResultError("extension resolver not configured"), nil
	}
	args := req.GetArguments()
	serverID, ok := args["server_id"].(string)
	if !ok || serverID == "" {
		return mcplib.NewToolResultError("server_id is required"), nil
	}

	var wt *extDomain.Worktree
	wtID, _ := args["worktree_id"].(string)
	wtRoot, _ := args["worktree_root"].(string)
	if wtID != "" || wtRoot != "" {
		wt = &extDomain.Worktree{ID: wtID, Root: wtRoot}
	}

	cmd, err := s.deps.Resolver.ResolveCommand(ctx, extDomain.LanguageServerID(serverID), wt)
	if err != nil {
		return mcplib.NewToolResultErrorFromErr(
			fmt.Sprintf("failed to resolve %s", serverID), err,
		), nil
	}
	data, err := json.Marshal(cmd)
	if err != nil {
		return mcplib.NewToolResultErrorFromErr("failed to marshal command", err), nil
	}
	return toolResultJSON(string(data)), nil
}

func (s *Server) handleServerStatus(_ context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) { //nolint:gocritic // hugeParam: mcp-go handler signature
	if s.deps.Reader == nil {
		return mcplib.NewToolResultError("server reader not configured"), nil
	}
	args := req.GetArguments()
	worktreeID, ok := args["worktree_id"].(string)
	if !ok || worktreeID == "" {
		return mcplib.NewToolResultError("worktree_id is required"), nil
	}
	infos := s.deps.Reader.Status(worktreeID)
	data, err := json.Marshal(infos)
	if err != nil {
		return mcplib.NewToolResultErrorFromErr("failed to marshal server status", err), nil
	}
	return toolResultJSON(string(data)), nil
}

func (s *Server) handleGetDiagnostics(_ context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) { //nolint:gocritic // hugeParam: mcp-go handler signature
	if s.deps.Reader == nil {
		return mcplib.NewToolResultError("server reader not configured"), nil
	}
	args := req.GetArguments()
	worktreeID, ok := args["worktree_id"].(string)
	if !ok || worktreeID == "" {
		return mcplib.NewToolResultError("worktree_id is required"), nil
	}
	uri, _ := args["uri"].(string)
	diags := s.deps.Reader.Diagnostics(worktreeID, uri)
	data, err := json.Marshal(diags)
	if err != nil {
		return mcplib.NewToolResultErrorFromErr("failed to marshal diagnostics", err), nil
	}
	return toolResultJSON(string(data)), nil
}

func toolResultJSON(text string) *mcplib.CallToolResult {
	return mcplib.NewToolResultText(text)
}
