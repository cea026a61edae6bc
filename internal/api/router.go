package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/MikeSquared-Agency/Edgeworth/internal/broker"
	"github.com/MikeSquared-Agency/Edgeworth/internal/config"
	"github.com/MikeSquared-Agency/Edgeworth/internal/metrics"
	"github.com/MikeSquared-Agency/Edgeworth/internal/store"
)

// NewRouter builds the API. s may be nil when no database is configured.
func NewRouter(s store.Store, b *broker.Broker, m *metrics.Metrics, cfg *config.Config, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()

	limit := cfg.Server.RateLimit
	if limit <= 0 {
		limit = 120
	}

	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.RequestID)
	r.Use(RequestLogger(logger))
	r.Use(RateLimitMiddleware(limit))

	econ := NewEconomyHandler(b, m, cfg)
	scenarios := NewScenariosHandler(s, b, econ)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(ClientIDMiddleware)

		r.Post("/utility", econ.Utility)
		r.Post("/indifference", econ.Indifference)
		r.Post("/demand", econ.Demand)
		r.Post("/equilibrium", econ.Equilibrium)
		r.Post("/improvement-set", econ.ImprovementSet)
		r.Post("/contract-curve", econ.ContractCurve)
		r.Post("/dictator/{agent}", econ.Dictator)
		r.Post("/edgeworth", econ.Edgeworth)

		r.Post("/scenarios", scenarios.Create)
		r.Get("/scenarios", scenarios.List)
		r.Get("/scenarios/{id}", scenarios.Get)
		r.Put("/scenarios/{id}", scenarios.Update)
		r.Post("/scenarios/{id}/dictator/{agent}", scenarios.Dictator)
		r.Get("/scenarios/{id}/edgeworth", scenarios.Edgeworth)

		r.Group(func(r chi.Router) {
			r.Use(AdminAuthMiddleware(cfg.Server.AdminToken))
			r.Delete("/scenarios/{id}", scenarios.Delete)
		})
	})

	return r
}

// NewMetricsRouter serves /health and /metrics for gatherer g.
func NewMetricsRouter(g prometheus.Gatherer) http.Handler {
	r := chi.NewRouter()
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.HandlerFor(g, promhttp.HandlerOpts{}))
	return r
}
