// Package typescript registers the bundled TypeScript/JavaScript language
// server. The extension does not ship or manage the server itself: it points
// the host at the typescript-language-server binary vendored in the consuming
// project's node_modules tree.
package typescript

import (
	"github.com/langtools/langhost/internal/domain/extension"
)

// Extension resolves the launch command for typescript-language-server.
// Stateless; the host constructs it once at load time.
type Extension struct{}

// New creates the extension. Zero-argument per the host instantiation contract.
func New() *Extension {
	return &Extension{}
}

// LanguageServerCommand returns the fixed command line for launching
// typescript-language-server in stdio mode. Both parameters are ignored: only
// one server is served, and the binary path is resolved by the host relative
// to the worktree at spawn time. Never fails; whether the binary actually
// exists is the spawner's problem, not ours.
func (e *Extension) LanguageServerCommand(_ extension.LanguageServerID, _ *extension.Worktree) (extension.Command, error) {
	return extension.Command{
		Command: "node",
		Args: []string{
			"node_modules/.bin/typescript-language-server",
			"--stdio",
		},
		Env: map[string]string{},
	}, nil
}
