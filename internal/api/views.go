package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/starford/mastermind/internal/compose"
	"github.com/starford/mastermind/internal/selection"
)

func (h *Handler) resolve(ctx context.Context, req SelectionRequest) (selection.Selection, error) {
	return h.svc.ResolveSelection(ctx, req.Projects, req.Tags, req.Dates)
}

func selectionResponse(sel selection.Selection) SelectionRequest {
	return SelectionRequest{
		Projects: append([]string{}, sel.Projects...),
		Tags:     sel.Tags.Sorted(),
		Dates:    sel.Dates.Sorted(),
	}
}

// Analyze handles POST /api/analyze.
//
//	@Summary		Parse journal text and report sections, errors and warnings
//	@Tags			compose
//	@Accept			json
//	@Produce		json
//	@Param			body	body		TextRequest	true	"Text to analyse"
//	@Success		200		{object}	AnalysisResponse
//	@Security		BearerAuth
//	@Router			/analyze [post]
func (h *Handler) Analyze(w http.ResponseWriter, r *http.Request) {
	var req TextRequest
	if !decode(w, r, &req) {
		return
	}
	res, err := h.svc.Analyze(r.Context(), req.Text)
	if err != nil {
		writeError(w, "analyze", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// Inventory handles GET /api/inventory?projects=a,b.
func (h *Handler) Inventory(w http.ResponseWriter, r *http.Request) {
	inv, err := h.svc.Inventory(r.Context(), selection.SplitList(r.URL.Query().Get("projects")))
	if err != nil {
		writeError(w, "inventory", err)
		return
	}
	writeJSON(w, http.StatusOK, inv)
}

// Compose handles GET /api/compose?projects=&tags=&dates=.
//
//	@Summary		Build the filtered composite of the selected projects
//	@Tags			compose
//	@Produce		json
//	@Param			projects	query		string	false	"Comma separated projects, default all"
//	@Param			tags		query		string	false	"Comma separated tags, default all"
//	@Param			dates		query		string	false	"Comma separated DD/MM/YYYY dates, default no focus"
//	@Success		200			{object}	ComposeResponse
//	@Security		BearerAuth
//	@Router			/compose [get]
func (h *Handler) Compose(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	sel, err := h.resolve(r.Context(), SelectionRequest{
		Projects: selection.SplitList(q.Get("projects")),
		Tags:     selection.SplitList(q.Get("tags")),
		Dates:    selection.SplitList(q.Get("dates")),
	})
	if err != nil {
		writeError(w, "compose", err)
		return
	}
	text, err := h.svc.Compose(r.Context(), sel)
	if err != nil {
		writeError(w, "compose", err)
		return
	}
	writeJSON(w, http.StatusOK, ComposeResponse{Text: text, Selection: selectionResponse(sel)})
}

// Preview handles POST /api/compose/preview.
func (h *Handler) Preview(w http.ResponseWriter, r *http.Request) {
	var req PreviewRequest
	if !decode(w, r, &req) {
		return
	}
	sel, err := h.resolve(r.Context(), req.SelectionRequest)
	if err != nil {
		writeError(w, "preview", err)
		return
	}
	props, err := h.svc.Preview(r.Context(), req.Text, sel)
	if err != nil {
		writeError(w, "preview", err)
		return
	}
	writeJSON(w, http.StatusOK, PreviewResponse{Proposals: props})
}

// Save handles POST /api/compose/save.
//
//	@Summary		Fold an edited composite back into the project documents
//	@Tags			compose
//	@Accept			json
//	@Produce		json
//	@Param			body	body		SaveRequest	true	"Edited composite and decisions"
//	@Success		200		{object}	SaveResponse
//	@Security		BearerAuth
//	@Router			/compose/save [post]
func (h *Handler) Save(w http.ResponseWriter, r *http.Request) {
	var req SaveRequest
	if !decode(w, r, &req) {
		return
	}
	sel, err := h.resolve(r.Context(), req.SelectionRequest)
	if err != nil {
		writeError(w, "save", err)
		return
	}
	confirm := compose.Decisions{Ignore: selection.NewSet(req.Ignore...), Override: req.Overrides}
	report, err := h.svc.Save(r.Context(), req.Text, sel, confirm)
	if err != nil && report == nil {
		writeError(w, "save", err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// Export handles POST /api/export.
func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	var req TextRequest
	if !decode(w, r, &req) {
		return
	}
	changed, err := h.svc.Export(r.Context(), req.Text)
	if errors.Is(err, compose.ErrNothingToExport) {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	if err != nil {
		writeError(w, "export", err)
		return
	}
	if changed == nil {
		changed = []string{}
	}
	writeJSON(w, http.StatusOK, ExportResponse{Changed: changed})
}

// Snippets handles GET /api/snippets?project=&tag=.
func (h *Handler) Snippets(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	sn, err := h.svc.Snippets(r.Context(), q.Get("project"), q.Get("tag"), time.Now())
	if err != nil {
		writeError(w, "snippets", err)
		return
	}
	writeJSON(w, http.StatusOK, sn)
}
