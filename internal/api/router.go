package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/quicknote/internal/noteservice"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
// Health checks are never authenticated. Export is refused unless auth is
// enabled.
func NewRouter(svc *noteservice.Service, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc)
	h.allowExport = authEnabled

	r := chi.NewRouter()
	r.Get("/healthz", Health)

	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(authEnabled, token))

		// Notes.
		r.Get("/notes", h.ListNotes)
		r.Post("/notes", h.CreateNote)
		r.Get("/notes/{name}", h.GetNote)
		r.Put("/notes/{name}", h.SaveNote)
		r.Delete("/notes/{name}", h.DeleteNote)
		r.Post("/notes/{name}/export", h.ExportNote)

		// Recycle bin and audit trail.
		r.Get("/recycle", h.ListRecycle)
		r.Post("/recycle/sweep", h.Sweep)
		r.Get("/log", h.ReadLog)

		if sseHandler != nil {
			r.Get("/events", sseHandler.ServeHTTP)
		}
	})

	return r
}

// Health handles GET /healthz.
func Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
