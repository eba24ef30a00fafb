package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/fuma/internal/docservice"
)

// NewRouter creates a chi router with all API routes mounted.
// An empty token disables authentication.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(svc *docservice.Service, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(token != "", token))

	r.Get("/docs", h.ListDocs)
	r.Get("/docs/*", h.GetDoc)
	r.Put("/docs/*", h.SaveDoc)
	r.Delete("/docs/*", h.DeleteDoc)

	r.Post("/compile", h.Compile)
	r.Get("/collection", h.Collection)

	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
