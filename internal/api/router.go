package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/raido/internal/fileservice"
	"github.com/starford/raido/internal/metrics"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
// Background passes started by POST /scan run under ctx.
func NewRouter(ctx context.Context, svc *fileservice.Service, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(ctx, svc)

	r := chi.NewRouter()
	r.Use(metrics.Middleware)
	r.Use(AuthMiddleware(authEnabled, token))

	// Catalog.
	r.Get("/files", h.ListFiles)
	r.Get("/files/*", h.GetFile)
	r.Get("/search", h.Search)

	// Organizer.
	r.Post("/scan", h.Scan)
	r.Get("/outcomes", h.Outcomes)

	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
