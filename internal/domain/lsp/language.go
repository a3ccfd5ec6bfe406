package lsp

import (
	"strings"

	"github.com/langtools/langhost/internal/domain/extension"
)

// languageIDs maps file extensions to the LSP languageId sent in didOpen.
var languageIDs = map[string]string{
	".ts":  "typescript",
	".tsx": "typescriptreact",
	".js":  "javascript",
	".jsx": "javascriptreact",
}

// serverIDs maps file extensions to the language server that handles them.
var serverIDs = map[string]extension.LanguageServerID{
	".ts":  "typescript-language-server",
	".tsx": "typescript-language-server",
	".js":  "typescript-language-server",
	".jsx": "typescript-language-server",
}

// ServerIDForURI returns the language server responsible for a file URI,
// inferred from its extension. Returns "" when no server claims the file.
func ServerIDForURI(uri string) extension.LanguageServerID {
	return serverIDs[extOf(uri)]
}

// LanguageIDForURI returns the LSP languageId for a file URI, or "" when unknown.
func LanguageIDForURI(uri string) string {
	return languageIDs[extOf(uri)]
}

func extOf(uri string) string {
	lower := strings.ToLower(uri)
	if i := strings.LastIndex(lower, "."); i >= 0 {
		return lower[i:]
	}
	return ""
}
