package api

import (
	"net/http"
	"time"

	"option-scout/config"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter creates and configures a Chi router with all routes
func NewRouter(h *Handler, cfg *config.Config) http.Handler {
	r := chi.NewRouter()

	// Middleware stack
	r.Use(middleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(time.Duration(cfg.Tradier.TimeoutSeconds) * time.Second))
	r.Use(CORSMiddleware(cfg.HTTP.CORSAllowedOrigins))
	r.Use(MetricsMiddleware)

	// Metrics endpoint for Prometheus
	r.Handle("/metrics", promhttp.Handler())

	// API routes
	r.Route("/api", func(r chi.Router) {
		// Health check
		r.Get("/health", h.HandleHealth)

		// Screening
		r.Route("/screen", func(r chi.Router) {
			r.Post("/csv", h.HandleScreenCSV)
			r.Post("/chain", h.HandleScreenChain)
		})

		// Ad-hoc evaluation
		r.Post("/evaluate", h.HandleEvaluate)
		r.Post("/ladder", h.HandleLadder)

		// Contract data
		r.Route("/contracts/{symbol}", func(r chi.Router) {
			r.Get("/expirations", h.HandleGetExpirations)
			r.Get("/chain", h.HandleGetChain)
		})

		// Run history
		r.Route("/runs", func(r chi.Router) {
			r.Get("/", h.HandleGetRuns)
			r.Get("/latest", h.HandleGetLatestRun)
			r.Get("/{id}", h.HandleGetRun)
		})

		// Settings
		r.Route("/settings", func(r chi.Router) {
			r.Get("/", h.HandleGetSettings)
			r.Post("/", h.HandleUpdateAPIKey)
			r.Post("/{service}/test", h.HandleTestAPIKey)
			r.Delete("/{service}", h.HandleDeleteAPIKey)
			r.Post("/reset", h.HandleResetSettings)
		})
	})

	return r
}

// CORSMiddleware returns CORS middleware with the specified allowed origins
func CORSMiddleware(allowedOrigins string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", allowedOrigins)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusOK)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
