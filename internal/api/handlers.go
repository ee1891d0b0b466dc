package api

import (
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/starford/mastermind/internal/checksum"
	"github.com/starford/mastermind/internal/journal"
	"github.com/starford/mastermind/internal/selection"
)

// Handler holds API route handlers.
type Handler struct {
	svc *journal.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *journal.Service) *Handler {
	return &Handler{svc: svc}
}

// projectName extracts the project name from the URL, decoding escapes such
// as %20 that clients send for names with spaces.
func projectName(r *http.Request) string {
	raw := chi.URLParam(r, "name")
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return raw
	}
	return decoded
}

// ListProjects handles GET /api/projects.
//
//	@Summary		List indexed projects
//	@Tags			projects
//	@Produce		json
//	@Success		200	{object}	ProjectListResponse
//	@Security		BearerAuth
//	@Router			/projects [get]
func (h *Handler) ListProjects(w http.ResponseWriter, r *http.Request) {
	rows, err := h.svc.ListProjects(r.Context())
	if err != nil {
		writeError(w, "list projects", err)
		return
	}
	writeJSON(w, http.StatusOK, ProjectListResponse{Projects: rows})
}

// GetProject handles GET /api/projects/{name}.
//
//	@Summary		Get a project document
//	@Tags			projects
//	@Produce		json
//	@Param			name	path		string	true	"Project name"
//	@Success		200		{object}	ProjectDetail
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/projects/{name} [get]
func (h *Handler) GetProject(w http.ResponseWriter, r *http.Request) {
	name := projectName(r)
	p, err := h.svc.GetProject(r.Context(), name)
	if err != nil {
		writeError(w, "get project", err, slog.String("project", name))
		return
	}
	w.Header().Set("ETag", checksum.ETag(p.Checksum))
	writeJSON(w, http.StatusOK, p)
}

// CreateProject handles POST /api/projects.
//
//	@Summary		Create a project
//	@Tags			projects
//	@Accept			json
//	@Produce		json
//	@Param			body	body		CreateProjectRequest	true	"Project to create"
//	@Success		201		{object}	ProjectDetail
//	@Failure		400		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/projects [post]
func (h *Handler) CreateProject(w http.ResponseWriter, r *http.Request) {
	var req CreateProjectRequest
	if !decode(w, r, &req) {
		return
	}
	if req.Name == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("name is required"))
		return
	}
	p, err := h.svc.CreateProject(r.Context(), req.Name, req.Content)
	if err != nil {
		writeError(w, "create project", err, slog.String("project", req.Name))
		return
	}
	w.Header().Set("ETag", checksum.ETag(p.Checksum))
	writeJSON(w, http.StatusCreated, p)
}

// PutProject handles PUT /api/projects/{name}.
//
//	@Summary		Replace a project document with optimistic concurrency
//	@Tags			projects
//	@Accept			json
//	@Produce		json
//	@Param			name		path		string					true	"Project name"
//	@Param			If-Match	header		string					false	"ETag of the document being replaced"
//	@Param			body		body		UpdateProjectRequest	true	"New content"
//	@Success		200			{object}	ProjectDetail
//	@Success		201			{object}	ProjectDetail
//	@Failure		409			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/projects/{name} [put]
func (h *Handler) PutProject(w http.ResponseWriter, r *http.Request) {
	name := projectName(r)
	var req UpdateProjectRequest
	if !decode(w, r, &req) {
		return
	}
	p, created, err := h.svc.PutProject(r.Context(), name, req.Content, r.Header.Get("If-Match"))
	if err != nil {
		writeError(w, "put project", err, slog.String("project", name))
		return
	}
	w.Header().Set("ETag", checksum.ETag(p.Checksum))
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	writeJSON(w, status, p)
}

// DeleteProject handles DELETE /api/projects/{name}.
//
//	@Summary		Delete a project
//	@Tags			projects
//	@Param			name	path	string	true	"Project name"
//	@Success		204		"Project deleted"
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/projects/{name} [delete]
func (h *Handler) DeleteProject(w http.ResponseWriter, r *http.Request) {
	name := projectName(r)
	if err := h.svc.DeleteProject(r.Context(), name); err != nil {
		writeError(w, "delete project", err, slog.String("project", name))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ArchiveProject handles POST /api/projects/{name}/archive.
//
//	@Summary		Move a project to the archive
//	@Tags			projects
//	@Produce		json
//	@Param			name	path		string	true	"Project name"
//	@Success		200		{object}	ArchiveResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/projects/{name}/archive [post]
func (h *Handler) ArchiveProject(w http.ResponseWriter, r *http.Request) {
	name := projectName(r)
	key, err := h.svc.ArchiveProject(r.Context(), name)
	if err != nil {
		writeError(w, "archive project", err, slog.String("project", name))
		return
	}
	writeJSON(w, http.StatusOK, ArchiveResponse{Archived: key})
}

// ProjectHTML handles GET /api/projects/{name}/html.
func (h *Handler) ProjectHTML(w http.ResponseWriter, r *http.Request) {
	name := projectName(r)
	var sel *selection.Selection
	if q := r.URL.Query(); q.Has("tags") || q.Has("dates") {
		resolved, err := h.svc.ResolveSelection(r.Context(), []string{name},
			selection.SplitList(q.Get("tags")), selection.SplitList(q.Get("dates")))
		if err != nil {
			writeError(w, "render project", err, slog.String("project", name))
			return
		}
		sel = &resolved
	}
	out, err := h.svc.RenderProject(r.Context(), name, sel)
	if err != nil {
		writeError(w, "render project", err, slog.String("project", name))
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(out))
}

// ListArchives handles GET /api/archive.
func (h *Handler) ListArchives(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, ArchiveListResponse{Archives: h.svc.Archives(r.Context())})
}

// GetArchive handles GET /api/archive/{key}.
func (h *Handler) GetArchive(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	data, err := h.svc.ReadArchive(r.Context(), key)
	if err != nil {
		writeError(w, "read archive", err, slog.String("key", key))
		return
	}
	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// Search handles GET /api/search.
//
//	@Summary		Full-text search across sections
//	@Tags			search
//	@Produce		json
//	@Param			q		query		string	true	"Search query"
//	@Param			limit	query		int		false	"Max results"
//	@Success		200		{object}	SearchResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/search [get]
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'q' is required"))
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	results, err := h.svc.Search(r.Context(), q, limit)
	if err != nil {
		writeError(w, "search", err, slog.String("query", q))
		return
	}
	writeJSON(w, http.StatusOK, SearchResponse{Results: results})
}
