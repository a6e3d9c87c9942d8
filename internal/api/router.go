package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/bujo/internal/planservice"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(svc *planservice.Service, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Views.
	r.Get("/projects", h.Projects)
	r.Get("/items", h.Items)
	r.Get("/items/agenda", h.Agenda)
	r.Get("/calendar", h.Calendar)
	r.Get("/gantt", h.Gantt)
	r.Get("/groups", h.Groups)

	// Plan cache.
	r.Get("/status", h.Status)
	r.Post("/refresh", h.Refresh)

	// Block write-back.
	r.Post("/blocks/{id}/status", h.SetStatus)
	r.Post("/blocks/{id}/schedule", h.Reschedule)

	// SSE endpoint (protected by same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
