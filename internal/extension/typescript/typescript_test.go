package typescript

import (
	"reflect"
	"testing"

	"github.com/langtools/langhost/internal/domain/extension"
)

func wantCommand() extension.Command {
	return extension.Command{
		Command: "node",
		Args:    []string{"node_modules/.bin/typescript-language-server", "--stdio"},
		Env:     map[string]string{},
	}
}

func TestLanguageServerCommand(t *testing.T) {
	ext := New()

	cmd, err := ext.LanguageServerCommand("typescript-language-server", &extension.Worktree{ID: "wt-1", Root: "/tmp/project"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cmd.Command != "node" {
		t.Errorf("expected command node, got %q", cmd.Command)
	}
	if len(cmd.Args) != 2 {
		t.Fatalf("expected 2 args, got %d", len(cmd.Args))
	}
	if cmd.Args[0] != "node_modules/.bin/typescript-language-server" {
		t.Errorf("unexpected first arg %q", cmd.Args[0])
	}
	if cmd.Args[1] != "--stdio" {
		t.Errorf("unexpected second arg %q", cmd.Args[1])
	}
	if len(cmd.Env) != 0 {
		t.Errorf("expected empty env, got %v", cmd.Env)
	}
}

func TestCommandIgnoresInputs(t *testing.T) {
	ext := New()

	inputs := []struct {
		name string
		id   extension.LanguageServerID
		wt   *extension.Worktree
	}{
		{"zero values", "", nil},
		{"unknown server", "some-other-server", nil},
		{"typescript", "typescript", &extension.Worktree{ID: "a", Root: "/"}},
		{"javascript", "javascript", &extension.Worktree{ID: "b", Root: "/home/dev/app"}},
	}

	for _, in := range inputs {
		t.Run(in.name, func(t *testing.T) {
			cmd, err := ext.LanguageServerCommand(in.id, in.wt)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !reflect.DeepEqual(cmd, wantCommand()) {
				t.Errorf("expected %+v, got %+v", wantCommand(), cmd)
			}
		})
	}
}

func TestCommandIdempotent(t *testing.T) {
	ext := New()

	first, err := ext.LanguageServerCommand("typescript-language-server", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for range 10 {
		next, err := ext.LanguageServerCommand("typescript-language-server", nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !reflect.DeepEqual(first, next) {
			t.Fatalf("expected identical commands, got %+v then %+v", first, next)
		}
	}
}

func TestCommandFreshValue(t *testing.T) {
	ext := New()

	a, _ := ext.LanguageServerCommand("typescript", nil)
	b, _ := ext.LanguageServerCommand("typescript", nil)

	// Each resolution owns its own slices/maps; mutating one must not leak
	// into the next.
	a.Args[0] = "mutated"
	a.Env["NODE_ENV"] = "test"

	if b.Args[0] != "node_modules/.bin/typescript-language-server" {
		t.Errorf("args shared between resolutions: %v", b.Args)
	}
	if len(b.Env) != 0 {
		t.Errorf("env shared between resolutions: %v", b.Env)
	}
}
