/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route
  definitions. This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:  Unique ID per request for tracing
  2. Logger:     Request logging
  3. Recoverer:  Panic recovery (500 instead of crash)
  4. CORS:       Cross-origin requests for the frontend

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Actor-ID"},
		AllowCredentials: true,
	}))

	r.Route("/api", func(r chi.Router) {
		r.Route("/ledgers", func(r chi.Router) {
			r.Get("/", h.ListLedgers)
			r.Post("/", h.CreateLedger)
			r.Get("/{id}", h.GetLedger)
			r.Get("/{id}/document", h.GetDocument)
			r.Get("/{id}/reminder", h.GetReminder)

			r.Post("/{id}/items", h.AddItem)
			r.Delete("/{id}/items/{itemID}", h.RemoveItem)
			r.Post("/{id}/finalize", h.Finalize)
			r.Post("/{id}/cancel", h.Cancel)
			r.Post("/{id}/payments", h.RecordPayment)
			r.Post("/{id}/payments/{paymentID}/reverse", h.ReversePayment)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Post("/sweep-overdue", h.SweepOverdue)
		})
	})

	return r
}
