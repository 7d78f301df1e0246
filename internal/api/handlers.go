package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/starford/licaudit/internal/models"
	"github.com/starford/licaudit/internal/workspace"
)

// Handler holds API route handlers.
type Handler struct {
	ws *workspace.Workspace
}

// NewHandler creates a new Handler.
func NewHandler(ws *workspace.Workspace) *Handler {
	return &Handler{ws: ws}
}

// kindParam reads ?kind=, defaulting to manual.
func kindParam(r *http.Request) models.Kind {
	if k := r.URL.Query().Get("kind"); k != "" {
		return models.Kind(k)
	}
	return models.KindManual
}

// pathParam reads a required query parameter holding a resource path.
func pathParam(w http.ResponseWriter, r *http.Request, name string) (string, bool) {
	p := r.URL.Query().Get(name)
	if p == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter '"+name+"' is required"))
		return "", false
	}
	return p, true
}

// Status handles GET /api/status.
//
//	@Summary		Loaded input summary
//	@Tags			status
//	@Produce		json
//	@Success		200	{object}	StatusResponse
//	@Security		BearerAuth
//	@Router			/status [get]
func (h *Handler) Status(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.ws.Status())
}

// ListAttributions handles GET /api/attributions.
//
//	@Summary		Attributions of one kind with their direct resources
//	@Tags			attributions
//	@Produce		json
//	@Param			kind	query		string	false	"Attribution kind"	Enums(manual, external)
//	@Success		200		{object}	AttributionsResponse
//	@Failure		400		{object}	errResponse
//	@Failure		503		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/attributions [get]
func (h *Handler) ListAttributions(w http.ResponseWriter, r *http.Request) {
	kind := kindParam(r)
	attrs, err := h.ws.Attributions(kind)
	if err != nil {
		writeError(w, "list attributions", err)
		return
	}
	writeJSON(w, http.StatusOK, AttributionsResponse{Kind: kind, Attributions: attrs})
}

// ExpandedAttributions handles GET /api/attributions/expanded.
//
//	@Summary		Attributions of one kind with every file they cover
//	@Tags			attributions
//	@Produce		json
//	@Param			kind	query		string	false	"Attribution kind"	Enums(manual, external)
//	@Success		200		{object}	AttributionsResponse
//	@Security		BearerAuth
//	@Router			/attributions/expanded [get]
func (h *Handler) ExpandedAttributions(w http.ResponseWriter, r *http.Request) {
	kind := kindParam(r)
	attrs, err := h.ws.Expanded(kind)
	if err != nil {
		writeError(w, "expand attributions", err)
		return
	}
	writeJSON(w, http.StatusOK, AttributionsResponse{Kind: kind, Attributions: attrs})
}

// CreateAttribution handles POST /api/attributions.
//
//	@Summary		Create a manual attribution on resources
//	@Tags			attributions
//	@Accept			json
//	@Produce		json
//	@Param			body	body		CreateAttributionRequest	true	"Attribution and resources"
//	@Success		201		{object}	CreateAttributionResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/attributions [post]
func (h *Handler) CreateAttribution(w http.ResponseWriter, r *http.Request) {
	var req CreateAttributionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	id, err := h.ws.Create(req.Attribution, req.Resources)
	if err != nil {
		writeError(w, "create attribution", err)
		return
	}
	writeJSON(w, http.StatusCreated, CreateAttributionResponse{ID: id})
}

// UpdateAttribution handles PUT /api/attributions/{id}.
func (h *Handler) UpdateAttribution(w http.ResponseWriter, r *http.Request) {
	var req UpdateAttributionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.ws.Update(chi.URLParam(r, "id"), req.Attribution); err != nil {
		writeError(w, "update attribution", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DeleteAttribution handles DELETE /api/attributions/{id}.
func (h *Handler) DeleteAttribution(w http.ResponseWriter, r *http.Request) {
	if err := h.ws.Delete(chi.URLParam(r, "id")); err != nil {
		writeError(w, "delete attribution", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ReplaceAttribution handles POST /api/attributions/{id}/replace.
//
//	@Summary		Merge an attribution into another one
//	@Tags			attributions
//	@Accept			json
//	@Param			id		path	string			true	"Attribution to remove"
//	@Param			body	body	ReplaceRequest	true	"Attribution that takes over the resources"
//	@Success		204		"Replaced"
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/attributions/{id}/replace [post]
func (h *Handler) ReplaceAttribution(w http.ResponseWriter, r *http.Request) {
	var req ReplaceRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.ws.Replace(chi.URLParam(r, "id"), req.Target); err != nil {
		writeError(w, "replace attribution", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// LinkAttribution handles POST /api/attributions/{id}/link.
func (h *Handler) LinkAttribution(w http.ResponseWriter, r *http.Request) {
	var req ResourcesRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.ws.Link(chi.URLParam(r, "id"), req.Resources); err != nil {
		writeError(w, "link attribution", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// UnlinkAttribution handles POST /api/attributions/{id}/unlink.
func (h *Handler) UnlinkAttribution(w http.ResponseWriter, r *http.Request) {
	var req ResourcesRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.ws.Unlink(chi.URLParam(r, "id"), req.Resources); err != nil {
		writeError(w, "unlink attribution", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ConfirmAttributions handles POST /api/attributions/confirm.
func (h *Handler) ConfirmAttributions(w http.ResponseWriter, r *http.Request) {
	var req IDsRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.ws.Confirm(req.IDs); err != nil {
		writeError(w, "confirm attributions", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Resolve handles POST /api/resolved.
//
//	@Summary		Mark external attributions as resolved
//	@Tags			resolved
//	@Accept			json
//	@Param			body	body	IDsRequest	true	"External attribution ids"
//	@Success		204		"Resolved"
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/resolved [post]
func (h *Handler) Resolve(w http.ResponseWriter, r *http.Request) {
	var req IDsRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.ws.Resolve(req.IDs); err != nil {
		writeError(w, "resolve", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Unresolve handles DELETE /api/resolved.
func (h *Handler) Unresolve(w http.ResponseWriter, r *http.Request) {
	var req IDsRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.ws.Unresolve(req.IDs); err != nil {
		writeError(w, "unresolve", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Resource handles GET /api/resources.
func (h *Handler) Resource(w http.ResponseWriter, r *http.Request) {
	path, ok := pathParam(w, r, "path")
	if !ok {
		return
	}
	info, err := h.ws.Resource(path)
	if err != nil {
		writeError(w, "resource", err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

// Criticality handles GET /api/resources/criticality.
//
//	@Summary		Most severe criticality of the signals on a resource
//	@Tags			resources
//	@Produce		json
//	@Param			path	query		string	true	"Resource path"
//	@Success		200		{object}	CriticalityResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/resources/criticality [get]
func (h *Handler) Criticality(w http.ResponseWriter, r *http.Request) {
	path, ok := pathParam(w, r, "path")
	if !ok {
		return
	}
	crit, err := h.ws.Criticality(path)
	if err != nil {
		writeError(w, "criticality", err)
		return
	}
	writeJSON(w, http.StatusOK, CriticalityResponse{Path: path, Criticality: crit})
}

// ContainsManual handles GET /api/resources/manual.
func (h *Handler) ContainsManual(w http.ResponseWriter, r *http.Request) {
	path, ok := pathParam(w, r, "path")
	if !ok {
		return
	}
	has, err := h.ws.ContainsManual(path)
	if err != nil {
		writeError(w, "contains manual", err)
		return
	}
	writeJSON(w, http.StatusOK, ContainsManualResponse{Path: path, ContainsManualAttribution: has})
}

// Signals handles GET /api/signals.
//
//	@Summary		Deduplicated autocomplete signals for a resource
//	@Tags			signals
//	@Produce		json
//	@Param			resource	query		string	true	"Resource path"
//	@Success		200			{object}	SignalsResponse
//	@Failure		409			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/signals [get]
func (h *Handler) Signals(w http.ResponseWriter, r *http.Request) {
	resource, ok := pathParam(w, r, "resource")
	if !ok {
		return
	}
	sigs, err := h.ws.Signals(r.Context(), resource)
	if err != nil {
		writeError(w, "signals", err)
		return
	}
	writeJSON(w, http.StatusOK, SignalsResponse{Resource: resource, Signals: sigs})
}

// Statistics handles GET /api/statistics.
func (h *Handler) Statistics(w http.ResponseWriter, r *http.Request) {
	summary, err := h.ws.Statistics(kindParam(r))
	if err != nil {
		writeError(w, "statistics", err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// Search handles GET /api/search.
//
//	@Summary		Full-text search across attributions
//	@Tags			search
//	@Produce		json
//	@Param			q		query		string	true	"Search query"
//	@Param			kind	query		string	false	"Restrict to one kind"	Enums(manual, external)
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
	results, err := h.ws.Search(q, models.Kind(r.URL.Query().Get("kind")), limit)
	if err != nil {
		writeError(w, "search", err)
		return
	}
	writeJSON(w, http.StatusOK, SearchResponse{Results: results})
}
