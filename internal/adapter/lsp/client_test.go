package lsp

import (
	"encoding/json"
	"net"
	"slices"
	"testing"
	"time"

	"github.com/langtools/langhost/internal/config"
	"github.com/langtools/langhost/internal/domain/extension"
)

func TestMergeEnv(t *testing.T) {
	base := []string{"PATH=/usr/bin", "HOME=/home/dev", "NODE_ENV=production"}

	t.Run("no overrides", func(t *testing.T) {
		got := mergeEnv(base, nil)
		if !slices.Equal(got, base) {
			t.Errorf("expected base env unchanged, got %v", got)
		}
	})

	t.Run("override and add", func(t *testing.T) {
		got := mergeEnv(base, map[string]string{
			"NODE_ENV":     "test",
			"TSSERVER_LOG": "verbose",
		})

		if slices.Contains(got, "NODE_ENV=production") {
			t.Error("override did not replace base value")
		}
		if !slices.Contains(got, "NODE_ENV=test") {
			t.Errorf("missing overridden value in %v", got)
		}
		if !slices.Contains(got, "TSSERVER_LOG=verbose") {
			t.Errorf("missing added value in %v", got)
		}
		if !slices.Contains(got, "PATH=/usr/bin") {
			t.Errorf("base value lost in %v", got)
		}
	})
}

func TestParseLocations(t *testing.T) {
	t.Run("null", func(t *testing.T) {
		locs, err := parseLocations(json.RawMessage("null"))
		if err != nil || locs != nil {
			t.Errorf("expected nil, nil; got %v, %v", locs, err)
		}
	})

	t.Run("array", func(t *testing.T) {
		raw := json.RawMessage(`[{"uri":"file:///a.ts","range":{"start":{"line":1,"character":2},"end":{"line":1,"character":5}}}]`)
		locs, err := parseLocations(raw)
		if err != nil {
			t.Fatal(err)
		}
		if len(locs) != 1 || locs[0].URI != "file:///a.ts" || locs[0].Range.Start.Line != 1 {
			t.Errorf("unexpected locations %+v", locs)
		}
	})

	t.Run("single object", func(t *testing.T) {
		raw := json.RawMessage(`{"uri":"file:///b.ts","range":{"start":{"line":0,"character":0},"end":{"line":0,"character":3}}}`)
		locs, err := parseLocations(raw)
		if err != nil {
			t.Fatal(err)
		}
		if len(locs) != 1 || locs[0].URI != "file:///b.ts" {
			t.Errorf("unexpected locations %+v", locs)
		}
	})
}

func TestHoverContents(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"plain string", `"hello"`, "hello"},
		{"markup content", `{"kind":"markdown","value":"**bold**"}`, "**bold**"},
		{"marked string with language", `[{"language":"typescript","value":"const x = 1"}]`, "```typescript\nconst x = 1\n```"},
		{"string array", `["a","b"]`, "a\n\nb"},
		{"empty", ``, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var raw json.RawMessage
			if tt.raw != "" {
				raw = json.RawMessage(tt.raw)
			}
			if got := hoverContents(raw); got != tt.want {
				t.Errorf("hoverContents(%s) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}

func TestClientStartEmptyCommand(t *testing.T) {
	cfg := config.Defaults()
	c := NewClient("broken", extension.Command{}, &cfg.LSP, extension.Worktree{ID: "wt", Root: t.TempDir()})

	if err := c.Start(t.Context()); err == nil {
		t.Fatal("expected error for empty launch command")
	}
	if c.Status() != "failed" {
		t.Errorf("expected failed status, got %s", c.Status())
	}
}

func TestReadLoopSurvivesConnCleared(t *testing.T) {
	cfg := config.Defaults()
	c := NewClient("typescript-language-server", extension.Command{Command: "node"}, &cfg.LSP, extension.Worktree{ID: "wt", Root: "/src"})

	a, b := net.Pipe()
	conn := NewConn(a)
	c.conn = conn
	go c.readLoop(conn)

	// Shutdown clears the client's conn reference while the loop may still be
	// mid-iteration; the loop must keep working off its own reference.
	c.conn = nil
	_ = b.Close()
	_ = conn.Close()

	select {
	case <-c.done:
	case <-time.After(2 * time.Second):
		t.Fatal("read loop did not exit after connection close")
	}
}

func TestClientInfoBeforeStart(t *testing.T) {
	cfg := config.Defaults()
	launch := extension.Command{
		Command: "node",
		Args:    []string{"node_modules/.bin/typescript-language-server", "--stdio"},
		Env:     map[string]string{},
	}
	c := NewClient("typescript-language-server", launch, &cfg.LSP, extension.Worktree{ID: "wt-1", Root: "/src"})

	info := c.Info()
	if info.SessionID == "" {
		t.Error("expected a session id")
	}
	if info.ServerID != "typescript-language-server" {
		t.Errorf("unexpected server id %q", info.ServerID)
	}
	if info.Command != "node node_modules/.bin/typescript-language-server --stdio" {
		t.Errorf("unexpected command %q", info.Command)
	}
	if info.Status != "stopped" {
		t.Errorf("expected stopped, got %s", info.Status)
	}
	if info.PID != 0 {
		t.Errorf("expected pid 0, got %d", info.PID)
	}
}
