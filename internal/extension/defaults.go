package extension

import (
	"github.com/langtools/langhost/internal/domain/extension"
	"github.com/langtools/langhost/internal/extension/typescript"
)

// Default returns a registry with the built-in extensions registered.
// The typescript extension also answers the bare language aliases so callers
// can resolve by language name instead of server binary name.
func Default() *Registry {
	r := NewRegistry()
	r.Register(func() extension.Extension { return typescript.New() },
		"typescript-language-server",
		"typescript",
		"javascript",
	)
	return r
}
