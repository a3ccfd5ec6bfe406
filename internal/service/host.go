// Package service implements the host side of the extension contract:
// resolving launch commands through the registry and supervising the
// language-server processes spawned from them.
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	lspAdapter "github.com/langtools/langhost/internal/adapter/lsp"
	otelAdapter "github.com/langtools/langhost/internal/adapter/otel"
	"github.com/langtools/langhost/internal/adapter/ws"
	"github.com/langtools/langhost/internal/config"
	"github.com/langtools/langhost/internal/domain"
	extDomain "github.com/langtools/langhost/internal/domain/extension"
	lspDomain "github.com/langtools/langhost/internal/domain/lsp"
	"github.com/langtools/langhost/internal/extension"
	"github.com/langtools/langhost/internal/resilience"
)

// DefaultServerIDs are the servers started for a worktree when the caller does
// not name any. Aliases are deliberately absent so a server is started once.
var DefaultServerIDs = []extDomain.LanguageServerID{"typescript-language-server"}

// Launch breaker settings: after launchMaxFailures consecutive crashes during
// startup, further launches of that server are rejected for launchOpenTimeout.
const (
	launchMaxFailures = 3
	launchOpenTimeout = 30 * time.Second
)

// ByteCache is the slice of the cache adapter the host needs. A nil cache
// disables caching.
type ByteCache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration)
}

// Host resolves launch commands and manages language-server clients per worktree.
type Host struct {
	registry *extension.Registry
	lspCfg   *config.LSP
	cacheCfg config.Cache
	hub      *ws.Hub
	cache    ByteCache
	metrics  *otelAdapter.Metrics

	clients  map[string]map[extDomain.LanguageServerID]*lspAdapter.Client // worktree ID -> server ID -> client
	breakers *resilience.Group
	mu       sync.RWMutex

	// Debounce diagnostic broadcasts per worktree+URI.
	diagTimers map[string]*time.Timer
	diagMu     sync.Mutex
}

// NewHost creates the host service. hub, cache, and metrics may be nil,
// disabling broadcasting, caching, and instrumentation respectively.
func NewHost(registry *extension.Registry, lspCfg *config.LSP, cacheCfg config.Cache, hub *ws.Hub, cache ByteCache, metrics *otelAdapter.Metrics) *Host {
	return &Host{
		registry:   registry,
		lspCfg:     lspCfg,
		cacheCfg:   cacheCfg,
		hub:        hub,
		cache:      cache,
		metrics:    metrics,
		clients:    make(map[string]map[extDomain.LanguageServerID]*lspAdapter.Client),
		breakers:   resilience.NewGroup(launchMaxFailures, launchOpenTimeout),
		diagTimers: make(map[string]*time.Timer),
	}
}

// Extensions returns the registered language server IDs.
func (h *Host) Extensions() []extDomain.LanguageServerID {
	return h.registry.IDs()
}

// ResolveCommand resolves the launch command for a language server through the
// registered extension. The result is never cached: extensions produce a fresh
// value per request and the host passes it through untouched.
func (h *Host) ResolveCommand(ctx context.Context, id extDomain.LanguageServerID, wt *extDomain.Worktree) (extDomain.Command, error) {
	wtID := ""
	if wt != nil {
		wtID = wt.ID
	}
	_, span := otelAdapter.StartResolveSpan(ctx, string(id), wtID)
	defer span.End()

	start := time.Now()
	cmd, err := h.registry.Resolve(id, wt)
	if err != nil {
		if h.metrics != nil {
			h.metrics.ResolveFailures.Add(ctx, 1)
		}
		return extDomain.Command{}, err
	}

	if h.metrics != nil {
		h.metrics.CommandsResolved.Add(ctx, 1)
		h.metrics.ResolveDuration.Record(ctx, time.Since(start).Seconds())
	}

	slog.Debug("command resolved",
		"server_id", string(id),
		"worktree", wtID,
		"command", cmd.Command,
	)
	return cmd, nil
}

// StartServers starts language servers for a worktree. If ids is empty the
// default set is used. Servers start concurrently; the first hard failure is
// returned but does not cancel siblings that already started.
func (h *Host) StartServers(ctx context.Context, wt extDomain.Worktree, ids []extDomain.LanguageServerID) error {
	if wt.Root == "" {
		return fmt.Errorf("worktree root is empty")
	}
	if len(ids) == 0 {
		ids = DefaultServerIDs
	}

	h.mu.Lock()
	if h.clients[wt.ID] == nil {
		h.clients[wt.ID] = make(map[extDomain.LanguageServerID]*lspAdapter.Client)
	}
	h.mu.Unlock()

	g, gctx := errgroup.WithContext(ctx)
	for _, id := range ids {
		h.mu.RLock()
		existing := h.clients[wt.ID][id]
		h.mu.RUnlock()
		if existing != nil && existing.Status() == lspDomain.ServerStatusReady {
			continue // Already running.
		}

		g.Go(func() error {
			return h.startServer(gctx, wt, id)
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}

	slog.Info("language servers started", "worktree", wt.ID, "count", len(ids))
	return nil
}

// startServer resolves, spawns, and registers a single server.
func (h *Host) startServer(ctx context.Context, wt extDomain.Worktree, id extDomain.LanguageServerID) error {
	cmd, err := h.ResolveCommand(ctx, id, &wt)
	if err != nil {
		h.broadcastStatus(ctx, wt.ID, id, "", lspDomain.ServerStatusFailed, err.Error())
		return err
	}

	client := lspAdapter.NewClient(id, cmd, h.lspCfg, wt)
	ctx, span := otelAdapter.StartServerSpan(ctx, "server.start", string(id), client.SessionID())
	defer span.End()
	client.SetDiagnosticCallback(func(uri string, diags []lspDomain.Diagnostic) {
		h.onDiagnostic(wt.ID, uri, diags)
	})

	h.broadcastStatus(ctx, wt.ID, id, client.SessionID(), lspDomain.ServerStatusStarting, "")

	startCtx, cancel := context.WithTimeout(ctx, h.lspCfg.StartTimeout)
	defer cancel()

	launchKey := wt.ID + "|" + string(id)
	if err := h.breakers.Execute(launchKey, func() error { return client.Start(startCtx) }); err != nil {
		if h.metrics != nil {
			h.metrics.ServersFailed.Add(ctx, 1)
		}
		slog.Warn("failed to start language server", "server_id", string(id), "error", err)
		h.broadcastStatus(ctx, wt.ID, id, client.SessionID(), lspDomain.ServerStatusFailed, err.Error())
		return fmt.Errorf("start %s: %w", id, err)
	}

	h.mu.Lock()
	h.clients[wt.ID][id] = client
	h.mu.Unlock()

	if h.metrics != nil {
		h.metrics.ServersStarted.Add(ctx, 1)
	}
	h.broadcastStatus(ctx, wt.ID, id, client.SessionID(), lspDomain.ServerStatusReady, "")
	return nil
}

// StopServers stops all language servers for a worktree.
func (h *Host) StopServers(ctx context.Context, worktreeID string) error {
	h.mu.Lock()
	clients := h.clients[worktreeID]
	delete(h.clients, worktreeID)
	h.mu.Unlock()

	if clients == nil {
		return nil
	}

	for id, client := range clients {
		if err := client.Stop(ctx); err != nil {
			slog.Warn("failed to stop language server", "server_id", string(id), "error", err)
		}
		h.breakers.Reset(worktreeID + "|" + string(id))
		h.broadcastStatus(ctx, worktreeID, id, client.SessionID(), lspDomain.ServerStatusStopped, "")
	}

	slog.Info("language servers stopped", "worktree", worktreeID)
	return nil
}

// StopAll stops every language server across all worktrees. Used on shutdown.
func (h *Host) StopAll(ctx context.Context) {
	h.mu.RLock()
	ids := make([]string, 0, len(h.clients))
	for id := range h.clients {
		ids = append(ids, id)
	}
	h.mu.RUnlock()

	for _, id := range ids {
		_ = h.StopServers(ctx, id)
	}
}

// Status returns the status of all language servers for a worktree.
func (h *Host) Status(worktreeID string) []lspDomain.ServerInfo {
	h.mu.RLock()
	clients := h.clients[worktreeID]
	h.mu.RUnlock()

	if clients == nil {
		return nil
	}

	infos := make([]lspDomain.ServerInfo, 0, len(clients))
	for _, client := range clients {
		infos = append(infos, client.Info())
	}
	return infos
}

// Definition returns go-to-definition locations.
func (h *Host) Definition(ctx context.Context, worktreeID, uri string, pos lspDomain.Position) ([]lspDomain.Location, error) {
	client, err := h.clientForURI(worktreeID, uri)
	if err != nil {
		return nil, err
	}
	return client.Definition(ctx, uri, pos)
}

// References returns find-references locations.
func (h *Host) References(ctx context.Context, worktreeID, uri string, pos lspDomain.Position) ([]lspDomain.Location, error) {
	client, err := h.clientForURI(worktreeID, uri)
	if err != nil {
		return nil, err
	}
	return client.References(ctx, uri, pos)
}

// DocumentSymbols returns document symbols for a file.
func (h *Host) DocumentSymbols(ctx context.Context, worktreeID, uri string) ([]lspDomain.DocumentSymbol, error) {
	client, err := h.clientForURI(worktreeID, uri)
	if err != nil {
		return nil, err
	}
	return client.DocumentSymbols(ctx, uri)
}

// Hover returns hover information for a position. Results are cached with a
// short TTL since editors re-request the same position aggressively.
func (h *Host) Hover(ctx context.Context, worktreeID, uri string, pos lspDomain.Position) (*lspDomain.HoverResult, error) {
	key := fmt.Sprintf("hover|%s|%s|%d:%d", worktreeID, uri, pos.Line, pos.Character)
	if h.cache != nil {
		if data, ok := h.cache.Get(key); ok {
			var cached lspDomain.HoverResult
			if err := json.Unmarshal(data, &cached); err == nil {
				return &cached, nil
			}
		}
	}

	client, err := h.clientForURI(worktreeID, uri)
	if err != nil {
		return nil, err
	}
	result, err := client.Hover(ctx, uri, pos)
	if err != nil {
		return nil, err
	}

	if h.cache != nil && result != nil {
		if data, err := json.Marshal(result); err == nil {
			h.cache.Set(key, data, h.cacheCfg.HoverTTL)
		}
	}
	return result, nil
}

// OpenFile reads a file from disk and announces it to the responsible
// language server via didOpen, which triggers diagnostics for it.
func (h *Host) OpenFile(ctx context.Context, worktreeID, uri string) error {
	client, err := h.clientForURI(worktreeID, uri)
	if err != nil {
		return err
	}

	path := strings.TrimPrefix(uri, "file://")
	content, err := os.ReadFile(path) //nolint:gosec // G304: path names a file inside the caller's worktree
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}

	return client.OpenFile(ctx, uri, lspDomain.LanguageIDForURI(uri), string(content))
}

// Diagnostics returns cached diagnostics for a worktree. If uri is non-empty, filters to that file.
func (h *Host) Diagnostics(worktreeID, uri string) []lspDomain.Diagnostic {
	h.mu.RLock()
	clients := h.clients[worktreeID]
	h.mu.RUnlock()

	if clients == nil {
		return nil
	}

	var all []lspDomain.Diagnostic
	for _, client := range clients {
		all = append(all, client.Diagnostics(uri)...)
	}
	return all
}

// --- Internal ---

// clientForURI finds the language server client responsible for a file URI.
func (h *Host) clientForURI(worktreeID, uri string) (*lspAdapter.Client, error) {
	h.mu.RLock()
	clients := h.clients[worktreeID]
	h.mu.RUnlock()

	if len(clients) == 0 {
		return nil, fmt.Errorf("%w: no language servers running for worktree %s", domain.ErrNotFound, worktreeID)
	}

	id := lspDomain.ServerIDForURI(uri)
	if id == "" {
		// Try first available client.
		for _, c := range clients {
			return c, nil
		}
	}

	client, ok := clients[id]
	if !ok {
		return nil, fmt.Errorf("%w: no language server running for %s (URI: %s)", domain.ErrNotFound, id, uri)
	}
	return client, nil
}

// onDiagnostic is the callback from individual clients when diagnostics are
// received. It debounces WS broadcasts.
func (h *Host) onDiagnostic(worktreeID, uri string, diags []lspDomain.Diagnostic) {
	if h.hub == nil {
		return
	}
	key := worktreeID + "|" + uri

	h.diagMu.Lock()
	defer h.diagMu.Unlock()

	if t, ok := h.diagTimers[key]; ok {
		t.Stop()
	}

	h.diagTimers[key] = time.AfterFunc(h.lspCfg.DiagnosticDelay, func() {
		h.hub.BroadcastEvent(context.Background(), ws.EventDiagnostics, ws.DiagnosticsEvent{
			WorktreeID:  worktreeID,
			URI:         uri,
			Diagnostics: diags,
		})

		h.diagMu.Lock()
		delete(h.diagTimers, key)
		h.diagMu.Unlock()
	})
}

// broadcastStatus sends a server status event via WebSocket.
func (h *Host) broadcastStatus(ctx context.Context, worktreeID string, id extDomain.LanguageServerID, sessionID string, status lspDomain.ServerStatus, errMsg string) {
	if h.hub == nil {
		return
	}
	h.hub.BroadcastEvent(ctx, ws.EventServerStatus, ws.ServerStatusEvent{
		WorktreeID: worktreeID,
		ServerID:   string(id),
		SessionID:  sessionID,
		Status:     string(status),
		Error:      errMsg,
	})
}
