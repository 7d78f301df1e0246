package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/licaudit/internal/workspace"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events; it also accepts the
// token as a query parameter.
func NewRouter(ws *workspace.Workspace, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(ws)

	root := chi.NewRouter()
	if sseHandler != nil {
		root.With(Authenticate(authEnabled, token, true)).Get("/events", sseHandler.ServeHTTP)
	}

	r := root.With(Authenticate(authEnabled, token, false))

	r.Get("/status", h.Status)

	// Attributions.
	r.Get("/attributions", h.ListAttributions)
	r.Get("/attributions/expanded", h.ExpandedAttributions)
	r.Post("/attributions", h.CreateAttribution)
	r.Post("/attributions/confirm", h.ConfirmAttributions)
	r.Put("/attributions/{id}", h.UpdateAttribution)
	r.Delete("/attributions/{id}", h.DeleteAttribution)
	r.Post("/attributions/{id}/replace", h.ReplaceAttribution)
	r.Post("/attributions/{id}/link", h.LinkAttribution)
	r.Post("/attributions/{id}/unlink", h.UnlinkAttribution)

	// Resolved external attributions.
	r.Post("/resolved", h.Resolve)
	r.Delete("/resolved", h.Unresolve)

	// Resources and derived views.
	r.Get("/resources", h.Resource)
	r.Get("/resources/criticality", h.Criticality)
	r.Get("/resources/manual", h.ContainsManual)
	r.Get("/signals", h.Signals)
	r.Get("/statistics", h.Statistics)

	// Search.
	r.Get("/search", h.Search)

	// Export and input files.
	r.Get("/export", h.Export)
	r.Get("/exports", h.ListExports)
	r.Get("/exports/{name}", h.GetExport)
	r.Delete("/exports/{name}", h.DeleteExport)
	r.Post("/input", h.ImportInput)

	return root
}
