package service

import (
	"context"
	"errors"
	"testing"

	"github.com/langtools/langhost/internal/config"
	"github.com/langtools/langhost/internal/domain"
	extDomain "github.com/langtools/langhost/internal/domain/extension"
	"github.com/langtools/langhost/internal/extension"
)

func newTestHost() *Host {
	cfg := config.Defaults()
	return NewHost(extension.Default(), &cfg.LSP, cfg.Cache, nil, nil, nil)
}

func TestResolveCommand(t *testing.T) {
	h := newTestHost()

	cmd, err := h.ResolveCommand(context.Background(), "typescript-language-server", &extDomain.Worktree{ID: "wt", Root: "/src"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cmd.Command != "node" {
		t.Errorf("expected node, got %q", cmd.Command)
	}
	if len(cmd.Args) != 2 || cmd.Args[1] != "--stdio" {
		t.Errorf("unexpected args %v", cmd.Args)
	}
	if len(cmd.Env) != 0 {
		t.Errorf("expected empty env, got %v", cmd.Env)
	}
}

func TestResolveCommandNilWorktree(t *testing.T) {
	h := newTestHost()

	// Degenerate context still resolves: the extension ignores its inputs.
	cmd, err := h.ResolveCommand(context.Background(), "typescript", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cmd.Command != "node" {
		t.Errorf("expected node, got %q", cmd.Command)
	}
}

func TestResolveCommandUnknown(t *testing.T) {
	h := newTestHost()

	_, err := h.ResolveCommand(context.Background(), "rust-analyzer", nil)
	if !errors.Is(err, domain.ErrNoExtension) {
		t.Fatalf("expected ErrNoExtension, got %v", err)
	}
}

func TestStartServersEmptyRoot(t *testing.T) {
	h := newTestHost()

	err := h.StartServers(context.Background(), extDomain.Worktree{ID: "wt"}, nil)
	if err == nil {
		t.Fatal("expected error for empty worktree root")
	}
}

func TestStartServersUnknownID(t *testing.T) {
	h := newTestHost()

	err := h.StartServers(context.Background(), extDomain.Worktree{ID: "wt", Root: t.TempDir()},
		[]extDomain.LanguageServerID{"gopls"})
	if !errors.Is(err, domain.ErrNoExtension) {
		t.Fatalf("expected ErrNoExtension, got %v", err)
	}
}

func TestStopServersUnknownWorktree(t *testing.T) {
	h := newTestHost()

	if err := h.StopServers(context.Background(), "nope"); err != nil {
		t.Fatalf("stop of unknown worktree should be a no-op, got %v", err)
	}
}

func TestStatusUnknownWorktree(t *testing.T) {
	h := newTestHost()

	if infos := h.Status("nope"); infos != nil {
		t.Errorf("expected nil status, got %v", infos)
	}
}

func TestDiagnosticsUnknownWorktree(t *testing.T) {
	h := newTestHost()

	if diags := h.Diagnostics("nope", ""); diags != nil {
		t.Errorf("expected nil diagnostics, got %v", diags)
	}
}

func TestOpenFileNoServers(t *testing.T) {
	h := newTestHost()

	err := h.OpenFile(context.Background(), "nope", "file:///src/main.ts")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestStopAllNoServers(t *testing.T) {
	h := newTestHost()

	// No-op when nothing is running.
	h.StopAll(context.Background())
}

func TestExtensions(t *testing.T) {
	h := newTestHost()

	ids := h.Extensions()
	if len(ids) != 3 {
		t.Fatalf("expected 3 registered ids, got %d", len(ids))
	}
}
