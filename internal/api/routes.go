package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// SetupRoutes configures the tools API router.
func SetupRoutes(h *Handlers) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", h.HealthCheck)

	r.Route("/tools", func(r chi.Router) {
		r.Get("/", h.ListTools)
		r.Get("/get_stats", h.GetStats)
		r.Post("/generate_leads", h.GenerateLeads)
		r.Post("/enrich_leads", h.EnrichLeads)
		r.Post("/generate_messages", h.GenerateMessages)
		r.Post("/review_messages", h.ReviewMessages)
		r.Post("/send_messages", h.SendMessages)
		r.Post("/retry_failed", h.RetryFailed)
		r.Post("/agent_decide", h.AgentDecide)
	})

	r.Route("/leads", func(r chi.Router) {
		r.Get("/", h.ListLeads)
		r.Get("/{id}", h.GetLead)
	})

	return r
}
