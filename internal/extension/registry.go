// Package extension implements the host's extension registry. Extensions are
// registered once at load time via a declarative call and instantiated lazily
// through zero-argument factories; the registry routes command resolution to
// the extension serving a given language server.
package extension

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/langtools/langhost/internal/domain"
	"github.com/langtools/langhost/internal/domain/extension"
)

// Factory constructs an extension instance. Factories take no arguments,
// mirroring the host instantiation protocol.
type Factory func() extension.Extension

// Registry maps language server IDs to extension instances. Each factory is
// invoked at most once; the resulting instance lives for the registry's lifetime.
type Registry struct {
	mu        sync.RWMutex
	factories map[extension.LanguageServerID]Factory
	instances map[extension.LanguageServerID]extension.Extension
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[extension.LanguageServerID]Factory),
		instances: make(map[extension.LanguageServerID]extension.Extension),
	}
}

// Register binds a factory to the language server IDs it serves.
// Later registrations for the same ID replace earlier ones.
func (r *Registry) Register(factory Factory, ids ...extension.LanguageServerID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, id := range ids {
		r.factories[id] = factory
		delete(r.instances, id)
		slog.Debug("extension registered", "server_id", string(id))
	}
}

// Resolve asks the extension serving id for its launch command.
// Returns domain.ErrNoExtension when no extension is registered for id.
func (r *Registry) Resolve(id extension.LanguageServerID, wt *extension.Worktree) (extension.Command, error) {
	ext, err := r.instance(id)
	if err != nil {
		return extension.Command{}, err
	}

	cmd, err := ext.LanguageServerCommand(id, wt)
	if err != nil {
		return extension.Command{}, fmt.Errorf("resolve %s: %w", id, err)
	}
	return cmd, nil
}

// IDs returns the registered language server IDs in unspecified order.
func (r *Registry) IDs() []extension.LanguageServerID {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]extension.LanguageServerID, 0, len(r.factories))
	for id := range r.factories {
		ids = append(ids, id)
	}
	return ids
}

// instance returns the extension for id, constructing it on first use.
func (r *Registry) instance(id extension.LanguageServerID) (extension.Extension, error) {
	r.mu.RLock()
	ext, ok := r.instances[id]
	r.mu.RUnlock()
	if ok {
		return ext, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if ext, ok := r.instances[id]; ok {
		return ext, nil
	}
	factory, ok := r.factories[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrNoExtension, id)
	}
	ext = factory()
	r.instances[id] = ext
	return ext, nil
}
