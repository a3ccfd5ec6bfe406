// Package mcp exposes the langhost daemon over the Model Context Protocol so
// AI agents can resolve launch commands and inspect running language servers.
package mcp

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	mcpserver "github.com/mark3labs/mcp-go/server"

	extDomain "github.com/langtools/langhost/internal/domain/extension"
	lspDomain "github.com/langtools/langhost/internal/domain/lsp"
)

// ExtensionResolver is the slice of the host service tools use to list
// extensions and resolve launch commands.
type ExtensionResolver interface {
	Extensions() []extDomain.LanguageServerID
	ResolveCommand(ctx context.Context, id extDomain.LanguageServerID, wt *extDomain.Worktree) (extDomain.Command, error)
}

// ServerReader reads the state of running language servers.
type ServerReader interface {
	Status(worktreeID string) []lspDomain.ServerInfo
	Diagnostics(worktreeID, uri string) []lspDomain.Diagnostic
}

// ServerConfig holds the MCP server settings.
type ServerConfig struct {
	Addr    string
	Name    string
	Version string
	APIKey  string
}

// ServerDeps are the host-side dependencies tools delegate to. Nil fields
// make the corresponding tools return error results instead of panicking.
type ServerDeps struct {
	Resolver ExtensionResolver
	Reader   ServerReader
}

// Server wraps an mcp-go server with langhost tools and serves it over
// streamable HTTP.
type Server struct {
	cfg       ServerConfig
	deps      ServerDeps
	mcpServer *mcpserver.MCPServer
	httpSrv   *http.Server
}

// NewServer creates the MCP server and registers all tools and resources.
func NewServer(cfg ServerConfig, deps ServerDeps) *Server {
	s := &Server{
		cfg:  cfg,
		deps: deps,
		mcpServer: mcpserver.NewMCPServer(cfg.Name, cfg.Version,
			mcpserver.WithToolCapabilities(false),
			mcpserver.WithResourceCapabilities(false, false),
		),
	}
	s.registerTools()
	s.registerResources()
	return s
}

// MCPServer returns the underlying mcp-go server, mainly for tests.
func (s *Server) MCPServer() *mcpserver.MCPServer {
	return s.mcpServer
}

// Start serves MCP over streamable HTTP in a background goroutine.
func (s *Server) Start() error {
	handler := AuthMiddleware(s.cfg.APIKey, mcpserver.NewStreamableHTTPServer(s.mcpServer))
	s.httpSrv = &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		slog.Info("mcp server listening", "addr", s.cfg.Addr)
		if err := s.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("mcp server failed", "error", err)
		}
	}()
	return nil
}

// Stop gracefully shuts down the MCP HTTP server.
func (s *Server) Stop(ctx context.Context) error {
	if s.httpSrv == nil {
		return nil
	}
	return s.httpSrv.Shutdown(ctx)
}
