/*
server.go - HTTP router and middleware configuration

MIDDLEWARE STACK:
  1. RequestID:  Unique ID per request for tracing
  2. Logger:     Request logging
  3. Recoverer:  Panic recovery (500 instead of crash)
  4. CORS:       The business-management UI is a separate origin
  5. Actor:      JWT (or dev header) -> actor id/role on context
*/
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates the router with all routes configured. jwtSecret may
// be empty, which disables token verification (dev/test).
func NewRouter(h *Handler, jwtSecret string) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Actor-ID", "X-Actor-Role"},
		AllowCredentials: true,
	}))
	r.Use(ActorMiddleware(jwtSecret))

	r.Route("/api", func(r chi.Router) {
		r.Route("/wallets", func(r chi.Router) {
			r.Post("/", h.CreateWallet)
			r.Get("/{id}", h.GetWallet)
			r.Put("/{id}/salary", h.UpdateSalary)
			r.Delete("/{id}", h.DeleteWallet)
			r.Post("/{id}/transactions", h.RecordTransaction)
			r.Get("/{id}/transactions", h.GetTransactions)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Post("/accrual/run", h.RunAccrual)
			r.Get("/accrual/runs", h.ListAccrualRuns)
		})

		r.Route("/users", func(r chi.Router) {
			r.Get("/", h.ListUsers)
			r.Post("/", h.UpsertUser)
		})
	})

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	return r
}
