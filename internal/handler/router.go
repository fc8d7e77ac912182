package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
)

// NewRouter mounts every endpoint behind the shared middleware stack.
func NewRouter(events *EventHandler, requests *RequestHandler, health Pinger, log *slog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(Logger(log))
	r.Use(CORS)

	r.Get("/health", HealthCheck(health))

	// Public
	r.Route("/events", func(r chi.Router) {
		r.Get("/", events.SearchEvents)
		r.Get("/{id}", events.GetEvent)
	})

	// Admin
	r.Route("/admin/events", func(r chi.Router) {
		r.Get("/", events.AdminSearchEvents)
		r.Patch("/{eventId}", events.AdminUpdateEvent)
	})

	// Private, scoped to the acting user
	r.Route("/users/{userId}", func(r chi.Router) {
		r.Route("/events", func(r chi.Router) {
			r.Post("/", events.CreateEvent)
			r.Get("/", events.ListUserEvents)
			r.Get("/{eventId}", events.GetUserEvent)
			r.Patch("/{eventId}", events.UpdateUserEvent)
			r.Get("/{eventId}/requests", requests.ListEventRequests)
			r.Patch("/{eventId}/requests", requests.UpdateEventRequests)
		})
		r.Route("/requests", func(r chi.Router) {
			r.Get("/", requests.ListUserRequests)
			r.Post("/", requests.SubmitRequest)
			r.Patch("/{requestId}/cancel", requests.CancelRequest)
		})
	})

	return r
}
