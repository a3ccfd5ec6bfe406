// Package http provides the REST surface of the langhost daemon.
package http

import (
	"net/http"

	extDomain "github.com/langtools/langhost/internal/domain/extension"
	lspDomain "github.com/langtools/langhost/internal/domain/lsp"
	"github.com/langtools/langhost/internal/service"
)

// Handlers bundles the services the HTTP layer exposes.
type Handlers struct {
	Host *service.Host
}

// ListExtensions returns the registered language server IDs.
func (h *Handlers) ListExtensions(w http.ResponseWriter, _ *http.Request) {
	ids := h.Host.Extensions()
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = string(id)
	}
	writeJSON(w, http.StatusOK, map[string]any{"extensions": out})
}

type resolveRequest struct {
	ServerID string              `json:"server_id"`
	Worktree *extDomain.Worktree `json:"worktree,omitempty"`
}

// ResolveCommand resolves a launch specification through the registry.
func (h *Handlers) ResolveCommand(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[resolveRequest](w, r)
	if !ok {
		return
	}
	if !requireField(w, req.ServerID, "server_id") {
		return
	}

	cmd, err := h.Host.ResolveCommand(r.Context(), extDomain.LanguageServerID(req.ServerID), req.Worktree)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cmd)
}

type startRequest struct {
	Root    string   `json:"root"`
	Servers []string `json:"servers,omitempty"`
}

// StartServers starts language servers for a worktree.
func (h *Handlers) StartServers(w http.ResponseWriter, r *http.Request) {
	worktreeID := urlParam(r, "id")
	req, ok := readJSON[startRequest](w, r)
	if !ok {
		return
	}
	if !requireField(w, req.Root, "root") {
		return
	}

	ids := make([]extDomain.LanguageServerID, len(req.Servers))
	for i, s := range req.Servers {
		ids[i] = extDomain.LanguageServerID(s)
	}

	wt := extDomain.Worktree{ID: worktreeID, Root: req.Root}
	if err := h.Host.StartServers(r.Context(), wt, ids); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"servers": h.Host.Status(worktreeID)})
}

// StopServers stops all language servers for a worktree.
func (h *Handlers) StopServers(w http.ResponseWriter, r *http.Request) {
	worktreeID := urlParam(r, "id")
	if err := h.Host.StopServers(r.Context(), worktreeID); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ServerStatus returns the status of all servers for a worktree.
func (h *Handlers) ServerStatus(w http.ResponseWriter, r *http.Request) {
	infos := h.Host.Status(urlParam(r, "id"))
	if infos == nil {
		infos = []lspDomain.ServerInfo{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"servers": infos})
}

// Diagnostics returns cached diagnostics for a worktree, optionally filtered by uri.
func (h *Handlers) Diagnostics(w http.ResponseWriter, r *http.Request) {
	diags := h.Host.Diagnostics(urlParam(r, "id"), r.URL.Query().Get("uri"))
	if diags == nil {
		diags = []lspDomain.Diagnostic{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"diagnostics": diags})
}

type openRequest struct {
	URI string `json:"uri"`
}

// OpenFile announces a file to its language server so diagnostics start flowing.
func (h *Handlers) OpenFile(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[openRequest](w, r)
	if !ok || !requireField(w, req.URI, "uri") {
		return
	}
	if err := h.Host.OpenFile(r.Context(), urlParam(r, "id"), req.URI); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// posRequest carries a file URI plus a cursor position.
type posRequest struct {
	URI       string `json:"uri"`
	Line      int    `json:"line"`
	Character int    `json:"character"`
}

// Definition handles go-to-definition requests.
func (h *Handlers) Definition(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[posRequest](w, r)
	if !ok || !requireField(w, req.URI, "uri") {
		return
	}
	locs, err := h.Host.Definition(r.Context(), urlParam(r, "id"), req.URI, lspDomain.Position{Line: req.Line, Character: req.Character})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"locations": locs})
}

// References handles find-references requests.
func (h *Handlers) References(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[posRequest](w, r)
	if !ok || !requireField(w, req.URI, "uri") {
		return
	}
	locs, err := h.Host.References(r.Context(), urlParam(r, "id"), req.URI, lspDomain.Position{Line: req.Line, Character: req.Character})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"locations": locs})
}

// Hover handles hover requests.
func (h *Handlers) Hover(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[posRequest](w, r)
	if !ok || !requireField(w, req.URI, "uri") {
		return
	}
	result, err := h.Host.Hover(r.Context(), urlParam(r, "id"), req.URI, lspDomain.Position{Line: req.Line, Character: req.Character})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"hover": result})
}

// DocumentSymbols handles document symbol requests.
func (h *Handlers) DocumentSymbols(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[posRequest](w, r)
	if !ok || !requireField(w, req.URI, "uri") {
		return
	}
	symbols, err := h.Host.DocumentSymbols(r.Context(), urlParam(r, "id"), req.URI)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"symbols": symbols})
}
