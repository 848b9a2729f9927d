// Binnight - Municipal Waste Collection Aggregation Proxy
// Copyright 2026 L. Roy (lroytech)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/lroytech/binnight

package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/lroytech/binnight/internal/logging"
	"github.com/lroytech/binnight/internal/models"
)

// handleMaitlandSearch proxies the council address search.
// GET /api/search-address?addressText=
func (router *Router) handleMaitlandSearch(w http.ResponseWriter, r *http.Request) {
	addressText := strings.TrimSpace(r.URL.Query().Get("addressText"))
	start := time.Now()

	candidates, cached, err := router.svc.SearchGeneral(r.Context(), addressText)
	if err != nil {
		logging.Warn().Err(err).Str("endpoint", "search-address").Msg("Lookup failed")
		respondUpstreamError(w, err, "Address must be between 3 and 200 characters.")
		return
	}

	respondJSON(w, http.StatusOK, candidates, models.Metadata{
		QueryTimeMS: time.Since(start).Milliseconds(),
		Cached:      cached,
	})
}

// handleMaitlandCollection fetches the general waste schedule.
// GET /api/bin-collection?propertyId=
func (router *Router) handleMaitlandCollection(w http.ResponseWriter, r *http.Request) {
	propertyID := strings.TrimSpace(r.URL.Query().Get("propertyId"))
	start := time.Now()

	record, cached, err := router.svc.GeneralSchedule(r.Context(), propertyID)
	if err != nil {
		logging.Warn().Err(err).Str("endpoint", "bin-collection").Msg("Lookup failed")
		respondUpstreamError(w, err, "Property ID must be numeric.")
		return
	}

	respondJSON(w, http.StatusOK, record, models.Metadata{
		QueryTimeMS: time.Since(start).Milliseconds(),
		Cached:      cached,
	})
}

// handleHRRSearch searches the recycling address index.
// GET /api/hrr-search-address?addressText=
func (router *Router) handleHRRSearch(w http.ResponseWriter, r *http.Request) {
	addressText := strings.TrimSpace(r.URL.Query().Get("addressText"))
	start := time.Now()

	candidates, cached, err := router.svc.SearchRecycling(r.Context(), addressText)
	if err != nil {
		logging.Warn().Err(err).Str("endpoint", "hrr-search-address").Msg("Lookup failed")
		respondUpstreamError(w, err, "Address must be at least 3 characters.")
		return
	}

	respondJSON(w, http.StatusOK, candidates, models.Metadata{
		QueryTimeMS: time.Since(start).Milliseconds(),
		Cached:      cached,
	})
}

// handleHRRCollection fetches the recycling schedule.
// GET /api/hrr-collection?custNumber=
func (router *Router) handleHRRCollection(w http.ResponseWriter, r *http.Request) {
	custNumber := strings.TrimSpace(r.URL.Query().Get("custNumber"))
	start := time.Now()

	record, cached, err := router.svc.RecyclingSchedule(r.Context(), custNumber)
	if err != nil {
		logging.Warn().Err(err).Str("endpoint", "hrr-collection").Msg("Lookup failed")
		respondUpstreamError(w, err, "Customer number is required.")
		return
	}

	respondJSON(w, http.StatusOK, record, models.Metadata{
		QueryTimeMS: time.Since(start).Milliseconds(),
		Cached:      cached,
	})
}

// handleSoloSearch looks up organics collection data. Always 200: the
// organics client degrades to fallback content instead of failing.
// GET /api/solo-search-collection?addressText=
func (router *Router) handleSoloSearch(w http.ResponseWriter, r *http.Request) {
	addressText := strings.TrimSpace(r.URL.Query().Get("addressText"))
	if addressText == "" {
		respondError(w, http.StatusBadRequest, "invalid_input", "Address text is required.")
		return
	}
	start := time.Now()

	outcome, cached := router.svc.Organics(r.Context(), addressText)
	respondJSON(w, http.StatusOK, outcome.Record, models.Metadata{
		QueryTimeMS: time.Since(start).Milliseconds(),
		Cached:      cached,
	})
}

// handleSoloStatus reports organics upstream reachability.
// GET /api/solo-status
func (router *Router) handleSoloStatus(w http.ResponseWriter, r *http.Request) {
	status := router.svc.OrganicsStatus(r.Context())
	respondJSON(w, http.StatusOK, status, models.Metadata{})
}

// handleAllBins runs the unified lookup across all three providers.
// Always 200, even on total upstream failure; per-source failures are
// reported inside the payload.
// GET /api/all-bins?addressText=
func (router *Router) handleAllBins(w http.ResponseWriter, r *http.Request) {
	addressText := strings.TrimSpace(r.URL.Query().Get("addressText"))
	if addressText == "" {
		respondError(w, http.StatusBadRequest, "invalid_input", "Address text is required.")
		return
	}
	start := time.Now()

	result := router.svc.Aggregate(r.Context(), addressText)
	respondJSON(w, http.StatusOK, result, models.Metadata{
		QueryTimeMS: time.Since(start).Milliseconds(),
	})
}

// handleHealth reports service health for monitoring.
// GET /api/health
func (router *Router) handleHealth(w http.ResponseWriter, r *http.Request) {
	health := models.HealthStatus{
		Status:       "healthy",
		Version:      router.version,
		CacheBackend: router.svc.CacheBackend(),
		Services: map[string]string{
			"maitland": "active",
			"hrr":      "active",
			"solo":     "fallback mode (upstream requires reCAPTCHA)",
		},
		Uptime: time.Since(router.startTime).Seconds(),
	}
	respondJSON(w, http.StatusOK, health, models.Metadata{})
}

// handleCacheStats reports cache backend statistics.
// GET /api/cache-stats
func (router *Router) handleCacheStats(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, router.svc.CacheStats(), models.Metadata{})
}
