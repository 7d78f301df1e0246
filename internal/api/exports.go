package api

import (
	"io"
	"mime"
	"net/http"
	"path"

	"github.com/go-chi/chi/v5"

	"github.com/starford/licaudit/internal/workspace"
)

const maxUploadBytes = 200 << 20 // 200 MB

func contentType(name string) string {
	switch path.Ext(name) {
	case ".yaml", ".yml":
		return "application/yaml"
	default:
		return "application/json"
	}
}

func writeFile(w http.ResponseWriter, name string, content []byte) {
	w.Header().Set("Content-Type", contentType(name))
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": path.Base(name)}))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(content)
}

// Export handles GET /api/export?format=. The file is written to the export
// directory and returned as a download.
//
//	@Summary		Render the current review state
//	@Tags			export
//	@Produce		json
//	@Param			format	query	string	false	"Export format"	Enums(spdx-json, spdx-yaml, review)
//	@Success		200		"Export file"
//	@Failure		400		{object}	errResponse
//	@Failure		503		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/export [get]
func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	format := r.URL.Query().Get("format")
	if format == "" {
		format = workspace.ExportSPDXJSON
	}
	res, err := h.ws.Export(format)
	if err != nil {
		writeError(w, "export", err)
		return
	}
	writeFile(w, res.Path, res.Content)
}

// ListExports handles GET /api/exports.
func (h *Handler) ListExports(w http.ResponseWriter, _ *http.Request) {
	items, err := h.ws.Exports()
	if err != nil {
		writeError(w, "list exports", err)
		return
	}
	writeJSON(w, http.StatusOK, ExportListResponse{Exports: items})
}

// GetExport handles GET /api/exports/{name}.
func (h *Handler) GetExport(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	data, err := h.ws.ReadExport(name)
	if err != nil {
		writeError(w, "read export", err)
		return
	}
	writeFile(w, name, data)
}

// DeleteExport handles DELETE /api/exports/{name}.
func (h *Handler) DeleteExport(w http.ResponseWriter, r *http.Request) {
	if err := h.ws.DeleteExport(chi.URLParam(r, "name")); err != nil {
		writeError(w, "delete export", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ImportInput handles POST /api/input (multipart/form-data, field "file").
// The current input is backed up and the upload becomes the new input.
func (h *Handler) ImportInput(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("file too large or invalid multipart"))
		return
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("missing 'file' field in multipart form"))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("failed to read upload"))
		return
	}
	if err := h.ws.ImportInput(r.Context(), data); err != nil {
		writeError(w, "import input", err)
		return
	}
	writeJSON(w, http.StatusCreated, h.ws.Status())
}
