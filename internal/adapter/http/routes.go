package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// MountRoutes registers all API routes on the given chi router.
func MountRoutes(r chi.Router, h *Handlers) {
	r.Route("/api/v1", func(r chi.Router) {
		// Version
		r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"version":"0.1.0"}`))
		})

		// Extensions
		r.Get("/extensions", h.ListExtensions)
		r.Post("/resolve", h.ResolveCommand)

		// Language servers (nested under worktrees)
		r.Route("/worktrees/{id}", func(r chi.Router) {
			r.Post("/servers", h.StartServers)
			r.Delete("/servers", h.StopServers)
			r.Get("/servers", h.ServerStatus)
			r.Get("/diagnostics", h.Diagnostics)
			r.Post("/open", h.OpenFile)
			r.Post("/definition", h.Definition)
			r.Post("/references", h.References)
			r.Post("/hover", h.Hover)
			r.Post("/symbols", h.DocumentSymbols)
		})
	})
}
