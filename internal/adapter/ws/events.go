package ws

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/langtools/langhost/internal/domain/lsp"
)

// Event type constants for WebSocket messages.
const (
	EventServerStatus = "server.status"
	EventDiagnostics  = "server.diagnostics"
)

// ServerStatusEvent is broadcast when a language server's lifecycle state changes.
type ServerStatusEvent struct {
	WorktreeID string `json:"worktree_id"`
	ServerID   string `json:"server_id"`
	SessionID  string `json:"session_id,omitempty"`
	Status     string `json:"status"`
	Error      string `json:"error,omitempty"`
}

// DiagnosticsEvent is broadcast when a language server publishes diagnostics.
type DiagnosticsEvent struct {
	WorktreeID  string           `json:"worktree_id"`
	URI         string           `json:"uri"`
	Diagnostics []lsp.Diagnostic `json:"diagnostics"`
}

// BroadcastEvent is a convenience method that marshals a typed event and broadcasts it.
func (h *Hub) BroadcastEvent(ctx context.Context, eventType string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		slog.Error("marshal ws event payload", "type", eventType, "error", err)
		return
	}

	h.Broadcast(ctx, Message{
		Type:    eventType,
		Payload: json.RawMessage(data),
	})
}
