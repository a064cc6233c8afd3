package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"

	"github.com/calmora/calmora-api/internal/middleware"
)

// SetupRouter configures all routes and returns the HTTP handler.
func SetupRouter(deps *Dependencies) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestLogging(deps.Logger))

	var counter middleware.Counter
	if deps.RedisStore != nil {
		counter = deps.RedisStore
	}
	r.Use(middleware.RateLimit(counter,
		deps.Config.Server.RateLimitPerWindow,
		deps.Config.Server.RateLimitWindow,
		deps.Logger))

	r.Use(middleware.OptionalAuth([]byte(deps.Config.Auth.JWTSecret)))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/v1/content", func(r chi.Router) {
		r.Get("/{contentID}/access", deps.AccessHandler.CheckAccess)
		r.Get("/{contentID}/revalidate", deps.AccessHandler.Revalidate)
		r.Post("/access/batch", deps.AccessHandler.CheckBatchAccess)
	})

	c := cors.New(cors.Options{
		AllowedOrigins:   []string{deps.Config.Server.CORSAllowedOrigin},
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
	})

	return c.Handler(r)
}
