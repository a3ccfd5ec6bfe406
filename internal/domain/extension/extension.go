// Package extension defines the host-side plugin contract for language-server
// extensions. An extension declares how to launch an external language server;
// the host resolves commands through it and owns all process lifecycle.
package extension

// LanguageServerID identifies the language server being requested. Opaque to
// the host; extensions decide what IDs they serve.
type LanguageServerID string

// Worktree describes the open project directory an extension operation runs
// against. Supplied by the host as context.
type Worktree struct {
	ID   string `json:"id"`
	Root string `json:"root"`
}

// Command is the launch specification for a language-server process:
// executable name, ordered argument list, and environment overrides applied on
// top of the host environment. Values are produced fresh on every resolution
// and have no identity beyond structural equality.
type Command struct {
	Command string            `json:"command"`
	Args    []string          `json:"args"`
	Env     map[string]string `json:"env"`
}

// Extension is the capability interface implemented by plugins. Implementations
// must be constructible with a zero-argument constructor and must not spawn
// processes, touch the filesystem, or keep mutable state: returning the launch
// specification is the entire contract.
type Extension interface {
	// LanguageServerCommand returns the command line needed to launch the
	// requested language server for the given worktree.
	LanguageServerCommand(id LanguageServerID, wt *Worktree) (Command, error)
}
