// Folio - Personalized Article Feed Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/folio

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tomtom215/folio/internal/config"
)

// NewRouter builds the full HTTP surface.
func NewRouter(h *Handler, cfg config.ServerConfig) http.Handler {
	r := chi.NewRouter()

	origins := cfg.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r.Use(RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(AccessLog)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		MaxAge:         300,
	}))

	// Health and metrics stay outside the API rate limit so monitoring
	// keeps working while the API sheds load.
	r.Route("/api/v1/health", func(r chi.Router) {
		r.Get("/", h.Health)
		r.Get("/live", h.HealthLive)
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(Metrics)
		if cfg.RateLimit > 0 {
			r.Use(httprate.Limit(cfg.RateLimit, time.Minute,
				httprate.WithKeyFuncs(httprate.KeyByIP),
				httprate.WithLimitHandler(rateLimitExceeded)))
		}

		r.Get("/users/{userID}/feed", h.GetFeed)
		r.Get("/users/{userID}/preferences", h.GetPreferences)
		r.Post("/interactions", h.PostInteractions)

		r.Get("/config", h.GetConfig)
		r.Put("/config/feed", h.PutFeedConfig)
	})

	return r
}
