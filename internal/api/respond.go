// Binnight - Municipal Waste Collection Aggregation Proxy
// Copyright 2026 L. Roy (lroytech)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/lroytech/binnight

package api

import (
	"errors"
	"net/http"
	"time"

	json "github.com/goccy/go-json"

	"github.com/lroytech/binnight/internal/logging"
	"github.com/lroytech/binnight/internal/metrics"
	"github.com/lroytech/binnight/internal/models"
	"github.com/lroytech/binnight/internal/upstream"
)

// respondJSON writes a success envelope.
func respondJSON(w http.ResponseWriter, status int, data interface{}, meta models.Metadata) {
	meta.Timestamp = time.Now().UTC()
	writeJSON(w, status, models.APIResponse{
		Status:   "ok",
		Data:     data,
		Metadata: meta,
	})
}

// respondError writes an error envelope. Messages are generic and
// client-safe; upstream detail stays in the logs.
func respondError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, models.APIResponse{
		Status:   "error",
		Metadata: models.Metadata{Timestamp: time.Now().UTC()},
		Error: &models.APIError{
			Code:    code,
			Message: message,
		},
	})
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logging.Err(err).Msg("Failed to encode response")
	}
}

// rateLimitExceeded is the httprate limit handler: JSON 429 with a
// retry hint.
func rateLimitExceeded(w http.ResponseWriter, r *http.Request) {
	metrics.RateLimitRejections.Inc()
	w.Header().Set("Retry-After", "60")
	respondError(w, http.StatusTooManyRequests, "rate_limited",
		"Too many requests. Please slow down and try again.")
}

// respondUpstreamError maps a client error onto an HTTP status:
// invalid input 400, no record 404, timeout 504, anything else 500.
// invalidMessage personalizes the 400 text per endpoint.
func respondUpstreamError(w http.ResponseWriter, err error, invalidMessage string) {
	switch {
	case errors.Is(err, upstream.ErrInvalidInput):
		respondError(w, http.StatusBadRequest, "invalid_input", invalidMessage)
	case errors.Is(err, upstream.ErrNotFound):
		respondError(w, http.StatusNotFound, "not_found",
			"No collection record found for this address.")
	case errors.Is(err, upstream.ErrTimeout):
		respondError(w, http.StatusGatewayTimeout, "upstream_timeout",
			"Request timed out. Please try again.")
	default:
		respondError(w, http.StatusInternalServerError, "upstream_error",
			"Service error. Please try again.")
	}
}
