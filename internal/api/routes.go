package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// SetupRoutes configures all API routes.
func SetupRoutes(h *Handlers) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(middleware.RequestID)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))

	// Health check (no auth required)
	r.Get("/health", h.HealthCheck)

	r.Route("/api", func(r chi.Router) {
		r.Route("/customers", func(r chi.Router) {
			r.Get("/", h.ListCustomers)
			r.Get("/at-risk", h.AtRiskCustomers)
			r.Get("/by-email/{email}", h.GetCustomerByEmail)
			r.Get("/{id}", h.GetCustomer)
			r.Post("/{id}/rescore", h.RescoreCustomer)
			r.Get("/{id}/history", h.CustomerHistory)
			r.Get("/{id}/alerts", h.CustomerAlerts)
			r.Post("/{id}/alerts/{kind}/reset", h.ResetAlert)
		})

		r.Route("/dashboard", func(r chi.Router) {
			r.Get("/summary", h.DashboardSummary)
			r.Post("/summary/notify", h.NotifySummary)
			r.Get("/mrr", h.DashboardMRR)
		})

		r.Get("/campaigns", h.ListCampaigns)

		r.Route("/sync", func(r chi.Router) {
			r.Post("/all", h.TriggerSyncAll)
			r.Get("/status", h.SyncStatus)
			r.Post("/{source}", h.TriggerSync)
		})
	})

	return r
}
