package mcp

import (
	"context"
	"encoding/json"

	mcplib "github.com/mark3labs/mcp-go/mcp"
)

// registerResources registers all MCP resources on the server.
func (s *Server) registerResources() {
	s.mcpServer.AddResource(
		mcplib.NewResource(
			"langhost://extensions",
			"Registered Extensions",
			mcplib.WithResourceDescription("Language server IDs langhost can resolve"),
			mcplib.WithMIMEType("application/json"),
		),
		s.handleExtensionsResource,
	)
}

func (s *Server) handleExtensionsResource(_ context.Context, req mcplib.ReadResourceRequest) ([]mcplib.ResourceContents, error) {
	if s.deps.Resolver == nil {
		return []mcplib.ResourceContents{
			mcplib.TextResourceContents{
				URI:      req.Params.URI,
				MIMEType: "application/json",
				Text:     `{"error":"extension resolver not configured"}`,
			},
		}, nil
	}
	data, err := json.Marshal(s.deps.Resolver.Extensions())
	if err != nil {
		return nil, err
	}
	return []mcplib.ResourceContents{
		mcplib.TextResourceContents{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}
