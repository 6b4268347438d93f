package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/starford/raido/internal/apperr"
	"github.com/starford/raido/internal/applier"
	"github.com/starford/raido/internal/fileservice"
)

const maxOutcomes = 200

// Handler holds API route handlers.
type Handler struct {
	svc *fileservice.Service
	ctx context.Context
}

// NewHandler creates a new Handler. ctx bounds passes started in the background.
func NewHandler(ctx context.Context, svc *fileservice.Service) *Handler {
	return &Handler{svc: svc, ctx: ctx}
}

// filePath extracts the absolute file path from the URL (everything after /files/).
// Supports encoded slashes from OpenAPI clients (e.g. %2Fhome%2Fme%2Fa.txt).
func filePath(r *http.Request) string {
	raw := strings.TrimPrefix(chi.URLParam(r, "*"), "/")
	if raw == "" {
		return ""
	}
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		decoded = raw
	}
	return "/" + strings.TrimPrefix(decoded, "/")
}

// ListFiles handles GET /api/files.
//
//	@Summary		List catalogued files
//	@Tags			files
//	@Produce		json
//	@Param			limit	query		int	false	"Page size"
//	@Param			offset	query		int	false	"Page offset"
//	@Success		200		{object}	FileListResponse
//	@Security		BearerAuth
//	@Router			/files [get]
func (h *Handler) ListFiles(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 0)
	offset := queryInt(r, "offset", 0)

	items, total, err := h.svc.ListFiles(r.Context(), limit, offset)
	if err != nil {
		slog.Error("list files failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	if items == nil {
		items = []FileItem{}
	}
	writeJSON(w, http.StatusOK, FileListResponse{Files: items, Total: total})
}

// GetFile handles GET /api/files/*.
//
//	@Summary		Get a catalogued file by absolute path
//	@Tags			files
//	@Produce		json
//	@Param			path	path		string	true	"Absolute file path"
//	@Success		200		{object}	FileDetail
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/files/{path} [get]
func (h *Handler) GetFile(w http.ResponseWriter, r *http.Request) {
	path := filePath(r)
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	file, err := h.svc.GetFile(r.Context(), path)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorBody("not found"))
		} else {
			slog.Error("get file failed", slog.String("path", path), slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}
	writeJSON(w, http.StatusOK, file)
}

// Search handles GET /api/search.
//
//	@Summary		Search file names and previews
//	@Tags			search
//	@Produce		json
//	@Param			q		query		string	true	"Search query"
//	@Param			limit	query		int		false	"Max results"
//	@Success		200		{object}	SearchResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/search [get]
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("q is required"))
		return
	}
	limit := queryInt(r, "limit", 0)
	results, err := h.svc.Search(r.Context(), q, limit)
	if err != nil {
		slog.Error("search failed", slog.String("query", q), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	out := make([]SearchResult, len(results))
	for i, res := range results {
		out[i] = SearchResult{Path: res.Path, Name: res.Name, Snippet: res.Snippet}
	}
	writeJSON(w, http.StatusOK, SearchResponse{Results: out})
}

// Outcomes handles GET /api/outcomes.
//
//	@Summary		Latest outcomes, newest first
//	@Tags			organizer
//	@Produce		json
//	@Param			limit	query		int	false	"Max outcomes"
//	@Success		200		{object}	OutcomeListResponse
//	@Security		BearerAuth
//	@Router			/outcomes [get]
func (h *Handler) Outcomes(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 50)
	if limit == 0 || limit > maxOutcomes {
		limit = 50
	}
	outs := h.svc.Recent(limit)
	if outs == nil {
		outs = []applier.Outcome{}
	}
	writeJSON(w, http.StatusOK, OutcomeListResponse{Outcomes: outs})
}

// Scan handles POST /api/scan.
//
//	@Summary		Start an organizer pass
//	@Description	Runs in the background unless wait=true.
//	@Tags			organizer
//	@Produce		json
//	@Param			wait	query		bool	false	"Block until the pass finishes"
//	@Success		200		{object}	ScanResponse
//	@Success		202		{object}	ScanResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/scan [post]
func (h *Handler) Scan(w http.ResponseWriter, r *http.Request) {
	if h.svc.Running() {
		writeJSON(w, http.StatusConflict, errorBody(apperr.ErrBusy.Error()))
		return
	}

	if wait, _ := strconv.ParseBool(r.URL.Query().Get("wait")); wait {
		sum, err := h.svc.Scan(r.Context())
		switch {
		case errors.Is(err, apperr.ErrBusy):
			writeJSON(w, http.StatusConflict, errorBody(err.Error()))
		case err != nil:
			slog.Error("scan failed", slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		default:
			writeJSON(w, http.StatusOK, ScanResponse{Status: "finished", Summary: &sum})
		}
		return
	}

	go func() {
		if _, err := h.svc.Scan(h.ctx); err != nil && !errors.Is(err, context.Canceled) {
			slog.Warn("background scan failed", slog.String("error", err.Error()))
		}
	}()
	writeJSON(w, http.StatusAccepted, ScanResponse{Status: "started"})
}
