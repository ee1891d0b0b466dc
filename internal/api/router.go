package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/mastermind/internal/journal"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(svc *journal.Service, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Projects.
	r.Route("/projects", func(r chi.Router) {
		r.Get("/", h.ListProjects)
		r.Post("/", h.CreateProject)
		r.Get("/{name}", h.GetProject)
		r.Put("/{name}", h.PutProject)
		r.Delete("/{name}", h.DeleteProject)
		r.Post("/{name}/archive", h.ArchiveProject)
		r.Get("/{name}/html", h.ProjectHTML)
	})

	// Archive.
	r.Get("/archive", h.ListArchives)
	r.Get("/archive/{key}", h.GetArchive)

	// Delimiters.
	r.Get("/config", h.GetConfig)
	r.Put("/config", h.PutConfig)
	r.Post("/reindex", h.Reindex)

	// Composite view and save pass.
	r.Post("/analyze", h.Analyze)
	r.Get("/inventory", h.Inventory)
	r.Get("/compose", h.Compose)
	r.Post("/compose/preview", h.Preview)
	r.Post("/compose/save", h.Save)
	r.Post("/export", h.Export)
	r.Get("/snippets", h.Snippets)

	// Search.
	r.Get("/search", h.Search)

	// SSE endpoint (protected by same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
