package api

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/starford/mastermind/internal/markup"
)

// GetConfig handles GET /api/config.
//
//	@Summary		Get the delimiter configuration
//	@Tags			config
//	@Produce		json
//	@Success		200	{object}	ConfigResponse
//	@Security		BearerAuth
//	@Router			/config [get]
func (h *Handler) GetConfig(w http.ResponseWriter, r *http.Request) {
	d, err := h.svc.Delimiters(r.Context())
	if err != nil {
		writeError(w, "get config", err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// PutConfig handles PUT /api/config?migrate=true.
//
//	@Summary		Replace the delimiter configuration
//	@Tags			config
//	@Accept			json
//	@Produce		json
//	@Param			migrate	query		bool				false	"Rewrite project documents to the new delimiters"
//	@Param			body	body		ConfigResponse		true	"New delimiters"
//	@Success		200		{object}	ConfigUpdateResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/config [put]
func (h *Handler) PutConfig(w http.ResponseWriter, r *http.Request) {
	var d markup.Delimiters
	if !decode(w, r, &d) {
		return
	}
	migrate, _ := strconv.ParseBool(r.URL.Query().Get("migrate"))
	migrated, err := h.svc.UpdateDelimiters(r.Context(), d, migrate)
	if err != nil {
		writeError(w, "put config", err, slog.Bool("migrate", migrate))
		return
	}
	writeJSON(w, http.StatusOK, ConfigUpdateResponse{Migrated: migrated})
}

// Reindex handles POST /api/reindex.
func (h *Handler) Reindex(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Reindex(r.Context()); err != nil {
		writeError(w, "reindex", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
