package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/starford/fuma/internal/apperr"
	"github.com/starford/fuma/internal/docservice"
	"github.com/starford/fuma/internal/editor"
	"github.com/starford/fuma/internal/rules"
)

// Handler holds API route handlers.
type Handler struct {
	svc *docservice.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *docservice.Service) *Handler {
	return &Handler{svc: svc}
}

// CompileRequest is the body of POST /api/compile.
type CompileRequest struct {
	Source string `json:"source"`
}

// CompileResponse is a compiled source.
type CompileResponse struct {
	HTML        string                 `json:"html"`
	Frontmatter map[string]any         `json:"frontmatter,omitempty"`
	Components  []*rules.ComponentNode `json:"components"`
}

// docPath extracts the document path from the URL (everything after /api/docs/).
// Supports encoded slashes (e.g. guides%2Fintro.mdx).
func docPath(r *http.Request) string {
	raw := strings.TrimPrefix(chi.URLParam(r, "*"), "/")
	if raw == "" {
		return ""
	}
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return raw
	}
	return decoded
}

// contentError maps errors raised while reading or writing MDX to a status.
func contentError(w http.ResponseWriter, op, path string, err error) {
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
	case errors.Is(err, apperr.ErrConflict):
		writeJSON(w, http.StatusConflict, errorBody("checksum mismatch"))
	case errors.Is(err, apperr.ErrFrontmatterParse),
		errors.Is(err, apperr.ErrUnsupportedChildContent),
		errors.Is(err, apperr.ErrUnsupportedExpression),
		errors.Is(err, apperr.ErrUnserializableValue),
		errors.Is(err, apperr.ErrDuplicateComponent),
		errors.Is(err, apperr.ErrMalformedTag):
		writeJSON(w, http.StatusUnprocessableEntity, errorBody(err.Error()))
	default:
		slog.Error(op+" failed", slog.String("path", path), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
	}
}

// ListDocs handles GET /api/docs.
func (h *Handler) ListDocs(w http.ResponseWriter, r *http.Request) {
	items, err := h.svc.ListDocs(r.Context())
	if err != nil {
		slog.Error("list docs failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"docs":  items,
		"total": len(items),
	})
}

// GetDoc handles GET /api/docs/*. With ?format=editor the document is
// returned in editor form instead of compiled.
func (h *Handler) GetDoc(w http.ResponseWriter, r *http.Request) {
	path := docPath(r)
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	if r.URL.Query().Get("format") == "editor" {
		ed, err := h.svc.GetEditorDoc(r.Context(), path)
		if err != nil {
			contentError(w, "get editor doc", path, err)
			return
		}
		w.Header().Set("ETag", `"`+ed.Checksum+`"`)
		writeJSON(w, http.StatusOK, ed)
		return
	}
	doc, err := h.svc.GetDoc(r.Context(), path)
	if err != nil {
		contentError(w, "get doc", path, err)
		return
	}
	w.Header().Set("ETag", `"`+doc.Checksum+`"`)
	writeJSON(w, http.StatusOK, doc)
}

// SaveDoc handles PUT /api/docs/*. The body is an editor document; If-Match
// carries the checksum the client last saw.
func (h *Handler) SaveDoc(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 10<<20)
	path := docPath(r)
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	var doc editor.Document
	if err := json.NewDecoder(r.Body).Decode(&doc); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}

	ifMatch := strings.Trim(r.Header.Get("If-Match"), `"`)

	ed, err := h.svc.SaveEditorDoc(r.Context(), path, &doc, ifMatch)
	if err != nil {
		contentError(w, "save doc", path, err)
		return
	}
	w.Header().Set("ETag", `"`+ed.Checksum+`"`)
	writeJSON(w, http.StatusOK, ed)
}

// DeleteDoc handles DELETE /api/docs/*.
func (h *Handler) DeleteDoc(w http.ResponseWriter, r *http.Request) {
	path := docPath(r)
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	if err := h.svc.DeleteDoc(r.Context(), path); err != nil {
		contentError(w, "delete doc", path, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Compile handles POST /api/compile.
func (h *Handler) Compile(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 10<<20)
	var req CompileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	res, err := h.svc.Compile(req.Source)
	if err != nil {
		contentError(w, "compile", "", err)
		return
	}
	components := res.Components
	if components == nil {
		components = []*rules.ComponentNode{}
	}
	writeJSON(w, http.StatusOK, CompileResponse{
		HTML:        res.Content,
		Frontmatter: res.Frontmatter,
		Components:  components,
	})
}

// Collection handles GET /api/collection. The bundle checksum is sent as the
// ETag and a matching If-None-Match yields 304.
func (h *Handler) Collection(w http.ResponseWriter, r *http.Request) {
	col, err := h.svc.Collection(r.Context())
	if err != nil {
		slog.Error("bundle collection failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	etag := `"` + col.Checksum + `"`
	w.Header().Set("ETag", etag)
	if r.Header.Get("If-None-Match") == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	writeJSON(w, http.StatusOK, col)
}
