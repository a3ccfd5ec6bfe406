// Package lsp manages language-server processes for the host. A Client spawns
// the process described by an extension's launch specification and speaks
// JSON-RPC 2.0 over its stdio, keeping the extension layer itself free of any
// process handling.
package lsp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/langtools/langhost/internal/config"
	"github.com/langtools/langhost/internal/domain/extension"
	lspDomain "github.com/langtools/langhost/internal/domain/lsp"
)

// Client runs one language server for one worktree.
type Client struct {
	sessionID string
	serverID  extension.LanguageServerID
	launch    extension.Command
	lspCfg    *config.LSP
	worktree  extension.Worktree

	cmd    *exec.Cmd
	conn   *Conn
	status lspDomain.ServerStatus
	mu     sync.Mutex

	nextID  atomic.Int64
	pending map[int]chan *Message
	pendMu  sync.Mutex

	diagnostics map[string][]lspDomain.Diagnostic // URI -> diagnostics
	diagMu      sync.RWMutex

	onDiagnostic func(uri string, diags []lspDomain.Diagnostic)
	done         chan struct{} // closed when readLoop exits
}

// NewClient creates a client that will launch the given command for a worktree.
// Nothing is spawned until Start.
func NewClient(serverID extension.LanguageServerID, launch extension.Command, lspCfg *config.LSP, wt extension.Worktree) *Client {
	return &Client{
		sessionID:   uuid.NewString(),
		serverID:    serverID,
		launch:      launch,
		lspCfg:      lspCfg,
		worktree:    wt,
		status:      lspDomain.ServerStatusStopped,
		pending:     make(map[int]chan *Message),
		diagnostics: make(map[string][]lspDomain.Diagnostic),
		done:        make(chan struct{}),
	}
}

// SetDiagnosticCallback sets a callback invoked when diagnostics are received.
func (c *Client) SetDiagnosticCallback(fn func(uri string, diags []lspDomain.Diagnostic)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onDiagnostic = fn
}

// SessionID returns the unique ID assigned to this client instance.
func (c *Client) SessionID() string {
	return c.sessionID
}

// ServerID returns the language server identity this client runs.
func (c *Client) ServerID() extension.LanguageServerID {
	return c.serverID
}

// Status returns the current server status.
func (c *Client) Status() lspDomain.ServerStatus {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// PID returns the process ID of the language server, or 0 if not running.
func (c *Client) PID() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cmd != nil && c.cmd.Process != nil {
		return c.cmd.Process.Pid
	}
	return 0
}

// Info returns a status snapshot for reporting.
func (c *Client) Info() lspDomain.ServerInfo {
	return lspDomain.ServerInfo{
		SessionID:   c.sessionID,
		ServerID:    string(c.serverID),
		Worktree:    c.worktree.ID,
		Status:      c.Status(),
		Command:     strings.Join(append([]string{c.launch.Command}, c.launch.Args...), " "),
		PID:         c.PID(),
		Diagnostics: c.DiagnosticCount(),
	}
}

// DiagnosticCount returns the total number of cached diagnostics.
func (c *Client) DiagnosticCount() int {
	c.diagMu.RLock()
	defer c.diagMu.RUnlock()
	count := 0
	for _, diags := range c.diagnostics {
		count += len(diags)
	}
	return count
}

// Start spawns the language-server process and performs the LSP initialize
// handshake. The launch specification's env overrides are applied on top of
// the host environment; relative arguments resolve against the worktree root.
func (c *Client) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.status == lspDomain.ServerStatusReady || c.status == lspDomain.ServerStatusStarting {
		return nil
	}

	c.status = lspDomain.ServerStatusStarting

	if c.launch.Command == "" {
		c.status = lspDomain.ServerStatusFailed
		return fmt.Errorf("empty launch command for %s", c.serverID)
	}

	cmd := exec.CommandContext(ctx, c.launch.Command, c.launch.Args...) //nolint:gosec // command comes from a registered extension
	cmd.Dir = c.worktree.Root
	cmd.Env = mergeEnv(os.Environ(), c.launch.Env)
	cmd.Stderr = os.Stderr // let server stderr pass through for debugging

	stdin, err := cmd.StdinPipe()
	if err != nil {
		c.status = lspDomain.ServerStatusFailed
		return fmt.Errorf("stdin pipe: %w", err)
	}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		c.status = lspDomain.ServerStatusFailed
		return fmt.Errorf("stdout pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		c.status = lspDomain.ServerStatusFailed
		return fmt.Errorf("start process: %w", err)
	}

	c.cmd = cmd
	c.conn = NewConn(stdioPipe{stdin: stdin, stdout: stdout})
	c.done = make(chan struct{})

	// Start the read loop before sending initialize. The conn is passed in so
	// the loop never touches c.conn, which Stop clears concurrently.
	go c.readLoop(c.conn)

	if err := c.initialize(ctx); err != nil {
		c.status = lspDomain.ServerStatusFailed
		_ = cmd.Process.Kill()
		return fmt.Errorf("initialize: %w", err)
	}

	c.status = lspDomain.ServerStatusReady
	slog.Info("language server started",
		"server_id", string(c.serverID),
		"session_id", c.sessionID,
		"pid", cmd.Process.Pid,
		"worktree", c.worktree.Root,
	)
	return nil
}

// Stop performs a graceful LSP shutdown (shutdown + exit) with timeout.
func (c *Client) Stop(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.status == lspDomain.ServerStatusStopped {
		return nil
	}

	slog.Info("language server stopping", "server_id", string(c.serverID), "session_id", c.sessionID)

	shutdownCtx, cancel := context.WithTimeout(ctx, c.lspCfg.ShutdownTimeout)
	defer cancel()

	if c.conn != nil {
		if _, err := c.call(shutdownCtx, "shutdown", nil); err != nil {
			slog.Warn("lsp shutdown request failed", "server_id", string(c.serverID), "error", err)
		}
		_ = c.conn.Notify("exit", nil)
		_ = c.conn.Close()
	}

	// The read loop only runs when a process was actually spawned.
	spawned := c.cmd != nil

	// Wait for process to exit or kill it.
	if c.cmd != nil && c.cmd.Process != nil {
		done := make(chan error, 1)
		go func() { done <- c.cmd.Wait() }()
		select {
		case <-done:
		case <-shutdownCtx.Done():
			slog.Warn("language server did not exit gracefully, killing", "server_id", string(c.serverID))
			_ = c.cmd.Process.Kill()
		}
	}

	c.status = lspDomain.ServerStatusStopped
	c.conn = nil
	c.cmd = nil

	// Wait for readLoop to finish.
	if spawned {
		<-c.done
	}

	slog.Info("language server stopped", "server_id", string(c.serverID), "session_id", c.sessionID)
	return nil
}

// Definition returns go-to-definition locations for a position.
func (c *Client) Definition(ctx context.Context, uri string, pos lspDomain.Position) ([]lspDomain.Location, error) {
	result, err := c.call(ctx, "textDocument/definition", positionParams(uri, pos))
	if err != nil {
		return nil, err
	}
	return parseLocations(result)
}

// References returns all reference locations for a position.
func (c *Client) References(ctx context.Context, uri string, pos lspDomain.Position) ([]lspDomain.Location, error) {
	params := map[string]any{
		"textDocument": map[string]string{"uri": uri},
		"position":     map[string]int{"line": pos.Line, "character": pos.Character},
		"context":      map[string]bool{"includeDeclaration": true},
	}
	result, err := c.call(ctx, "textDocument/references", params)
	if err != nil {
		return nil, err
	}
	return parseLocations(result)
}

// DocumentSymbols returns document symbols for a file.
func (c *Client) DocumentSymbols(ctx context.Context, uri string) ([]lspDomain.DocumentSymbol, error) {
	params := map[string]any{
		"textDocument": map[string]string{"uri": uri},
	}
	result, err := c.call(ctx, "textDocument/documentSymbol", params)
	if err != nil {
		return nil, err
	}
	var symbols []lspDomain.DocumentSymbol
	if err := json.Unmarshal(result, &symbols); err != nil {
		return nil, fmt.Errorf("unmarshal symbols: %w", err)
	}
	return symbols, nil
}

// Hover returns hover information for a position.
func (c *Client) Hover(ctx context.Context, uri string, pos lspDomain.Position) (*lspDomain.HoverResult, error) {
	result, err := c.call(ctx, "textDocument/hover", positionParams(uri, pos))
	if err != nil {
		return nil, err
	}
	if result == nil || string(result) == "null" {
		return nil, nil
	}

	// LSP hover "contents" is string | MarkupContent | MarkedString[].
	var raw struct {
		Contents json.RawMessage  `json:"contents"`
		Range    *lspDomain.Range `json:"range,omitempty"`
	}
	if err := json.Unmarshal(result, &raw); err != nil {
		return nil, fmt.Errorf("unmarshal hover: %w", err)
	}

	return &lspDomain.HoverResult{
		Contents: hoverContents(raw.Contents),
		Range:    raw.Range,
	}, nil
}

// Diagnostics returns cached diagnostics for a URI. If uri is empty, all diagnostics are returned.
func (c *Client) Diagnostics(uri string) []lspDomain.Diagnostic {
	c.diagMu.RLock()
	defer c.diagMu.RUnlock()

	if uri != "" {
		return c.diagnostics[uri]
	}

	var all []lspDomain.Diagnostic
	for _, diags := range c.diagnostics {
		all = append(all, diags...)
	}
	return all
}

// OpenFile sends a textDocument/didOpen notification to the language server.
func (c *Client) OpenFile(_ context.Context, uri, languageID, content string) error {
	params := map[string]any{
		"textDocument": map[string]any{
			"uri":        uri,
			"languageId": languageID,
			"version":    1,
			"text":       content,
		},
	}
	return c.conn.Notify("textDocument/didOpen", params)
}

// --- Internal methods ---

// initialize performs the LSP initialize/initialized handshake.
func (c *Client) initialize(ctx context.Context) error {
	params := map[string]any{
		"processId": os.Getpid(),
		"rootUri":   "file://" + c.worktree.Root,
		"capabilities": map[string]any{
			"textDocument": map[string]any{
				"publishDiagnostics": map[string]any{},
				"definition":         map[string]any{},
				"references":         map[string]any{},
				"documentSymbol":     map[string]any{},
				"hover":              map[string]any{},
			},
		},
	}

	if _, err := c.call(ctx, "initialize", params); err != nil {
		return fmt.Errorf("initialize request: %w", err)
	}

	if err := c.conn.Notify("initialized", map[string]any{}); err != nil {
		return fmt.Errorf("initialized notification: %w", err)
	}

	return nil
}

// call sends a JSON-RPC request and waits for the response.
func (c *Client) call(ctx context.Context, method string, params any) (json.RawMessage, error) {
	id := int(c.nextID.Add(1))
	ch := make(chan *Message, 1)

	c.pendMu.Lock()
	c.pending[id] = ch
	c.pendMu.Unlock()

	defer func() {
		c.pendMu.Lock()
		delete(c.pending, id)
		c.pendMu.Unlock()
	}()

	if err := c.conn.Call(id, method, params); err != nil {
		return nil, fmt.Errorf("send %s: %w", method, err)
	}

	select {
	case msg := <-ch:
		if msg.Error != nil {
			return nil, msg.Error
		}
		return msg.Result, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-c.done:
		return nil, fmt.Errorf("connection closed")
	}
}

// readLoop continuously reads messages from the language server.
// Responses are dispatched to pending callers; notifications are handled inline.
func (c *Client) readLoop(conn *Conn) {
	defer close(c.done)

	for {
		msg, err := conn.Read()
		if err != nil {
			// Connection closed, normal during shutdown.
			return
		}

		if msg.ID != nil {
			c.pendMu.Lock()
			ch, ok := c.pending[*msg.ID]
			c.pendMu.Unlock()
			if ok {
				ch <- msg
			}
			continue
		}

		switch msg.Method {
		case "textDocument/publishDiagnostics":
			c.handlePublishDiagnostics(msg.Params)
		default:
			slog.Debug("lsp notification ignored", "method", msg.Method, "server_id", string(c.serverID))
		}
	}
}

// handlePublishDiagnostics processes diagnostic notifications from the server.
func (c *Client) handlePublishDiagnostics(raw json.RawMessage) {
	var params struct {
		URI         string                 `json:"uri"`
		Diagnostics []lspDomain.Diagnostic `json:"diagnostics"`
	}
	if err := json.Unmarshal(raw, &params); err != nil {
		slog.Warn("lsp: failed to unmarshal diagnostics", "error", err)
		return
	}

	diags := params.Diagnostics
	if c.lspCfg.MaxDiagnostics > 0 && len(diags) > c.lspCfg.MaxDiagnostics {
		diags = diags[:c.lspCfg.MaxDiagnostics]
	}

	c.diagMu.Lock()
	if len(diags) == 0 {
		delete(c.diagnostics, params.URI)
	} else {
		c.diagnostics[params.URI] = diags
	}
	c.diagMu.Unlock()

	c.mu.Lock()
	fn := c.onDiagnostic
	c.mu.Unlock()
	if fn != nil {
		fn(params.URI, diags)
	}
}

// --- Helpers ---

// mergeEnv applies launch-spec env overrides on top of the base environment.
func mergeEnv(base []string, overrides map[string]string) []string {
	if len(overrides) == 0 {
		return base
	}
	env := make([]string, 0, len(base)+len(overrides))
	for _, kv := range base {
		key, _, _ := strings.Cut(kv, "=")
		if _, overridden := overrides[key]; !overridden {
			env = append(env, kv)
		}
	}
	for k, v := range overrides {
		env = append(env, k+"="+v)
	}
	return env
}

func positionParams(uri string, pos lspDomain.Position) map[string]any {
	return map[string]any{
		"textDocument": map[string]string{"uri": uri},
		"position":     map[string]int{"line": pos.Line, "character": pos.Character},
	}
}

func parseLocations(raw json.RawMessage) ([]lspDomain.Location, error) {
	if raw == nil || string(raw) == "null" {
		return nil, nil
	}

	// LSP definition can return Location | Location[] | LocationLink[].
	var locs []lspDomain.Location
	if err := json.Unmarshal(raw, &locs); err == nil {
		return locs, nil
	}

	var loc lspDomain.Location
	if err := json.Unmarshal(raw, &loc); err == nil {
		return []lspDomain.Location{loc}, nil
	}

	return nil, fmt.Errorf("unexpected definition result format")
}

// hoverContents normalizes the hover contents field to a markdown string.
func hoverContents(raw json.RawMessage) string {
	if raw == nil {
		return ""
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}

	var mc struct {
		Kind  string `json:"kind"`
		Value string `json:"value"`
	}
	if err := json.Unmarshal(raw, &mc); err == nil && mc.Value != "" {
		return mc.Value
	}

	var arr []json.RawMessage
	if err := json.Unmarshal(raw, &arr); err == nil {
		var parts []string
		for _, item := range arr {
			var str string
			if err := json.Unmarshal(item, &str); err == nil {
				parts = append(parts, str)
				continue
			}
			var ms struct {
				Language string `json:"language"`
				Value    string `json:"value"`
			}
			if err := json.Unmarshal(item, &ms); err == nil {
				if ms.Language != "" {
					parts = append(parts, fmt.Sprintf("```%s\n%s\n```", ms.Language, ms.Value))
				} else {
					parts = append(parts, ms.Value)
				}
			}
		}
		return strings.Join(parts, "\n\n")
	}

	return string(raw)
}

// stdioPipe combines a stdin (writer) and stdout (reader) into an io.ReadWriteCloser.
type stdioPipe struct {
	stdin  io.WriteCloser
	stdout io.ReadCloser
}

func (p stdioPipe) Read(b []byte) (int, error)  { return p.stdout.Read(b) }
func (p stdioPipe) Write(b []byte) (int, error) { return p.stdin.Write(b) }
func (p stdioPipe) Close() error {
	_ = p.stdin.Close()
	return p.stdout.Close()
}
