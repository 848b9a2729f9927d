// Binnight - Municipal Waste Collection Aggregation Proxy
// Copyright 2026 L. Roy (lroytech)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/lroytech/binnight

// Package api provides the HTTP surface of the proxy: the chi router,
// middleware stack, and JSON handlers for the collection endpoints.
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/lroytech/binnight/internal/aggregate"
	"github.com/lroytech/binnight/internal/config"
)

// Router holds handler dependencies.
type Router struct {
	svc       *aggregate.Service
	cfg       *config.Config
	version   string
	startTime time.Time
}

// NewRouter creates the API router.
func NewRouter(svc *aggregate.Service, cfg *config.Config, version string) *Router {
	return &Router{
		svc:       svc,
		cfg:       cfg,
		version:   version,
		startTime: time.Now(),
	}
}

// Handler builds the full middleware and route tree.
func (router *Router) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(requestIDMiddleware)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(requestLogger)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   router.cfg.Server.CORSOrigins,
		AllowedMethods:   []string{"GET", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type"},
		AllowCredentials: false,
		MaxAge:           86400,
	}))

	if router.cfg.RateLimit.Enabled {
		r.Use(router.globalRateLimits()...)
	}

	r.Route("/api", func(r chi.Router) {
		// Endpoints that reach upstreams carry a tighter budget.
		r.Group(func(r chi.Router) {
			if router.cfg.RateLimit.Enabled {
				r.Use(router.upstreamRateLimit())
			}

			r.Get("/search-address", router.handleMaitlandSearch)
			r.Get("/bin-collection", router.handleMaitlandCollection)
			r.Get("/hrr-search-address", router.handleHRRSearch)
			r.Get("/hrr-collection", router.handleHRRCollection)
			r.Get("/solo-search-collection", router.handleSoloSearch)
			r.Get("/all-bins", router.handleAllBins)
		})

		r.Get("/solo-status", router.handleSoloStatus)
		r.Get("/health", router.handleHealth)
		r.Get("/cache-stats", router.handleCacheStats)
	})

	r.Handle("/metrics", promhttp.Handler())

	return r
}

// globalRateLimits applies the per-IP budget covering all endpoints.
func (router *Router) globalRateLimits() []func(http.Handler) http.Handler {
	return []func(http.Handler) http.Handler{
		httprate.Limit(
			router.cfg.RateLimit.GlobalPerHour,
			time.Hour,
			httprate.WithKeyFuncs(httprate.KeyByIP),
			httprate.WithLimitHandler(rateLimitExceeded),
		),
		httprate.Limit(
			router.cfg.RateLimit.GlobalPerMinute,
			time.Minute,
			httprate.WithKeyFuncs(httprate.KeyByIP),
			httprate.WithLimitHandler(rateLimitExceeded),
		),
	}
}

// upstreamRateLimit applies the per-IP budget for endpoints that can
// reach the upstream providers.
func (router *Router) upstreamRateLimit() func(http.Handler) http.Handler {
	return httprate.Limit(
		router.cfg.RateLimit.UpstreamPerMinute,
		time.Minute,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(rateLimitExceeded),
	)
}
