// Binnight - Municipal Waste Collection Aggregation Proxy
// Copyright 2026 L. Roy (lroytech)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/lroytech/binnight

package models

import "time"

// APIResponse is the envelope for every JSON response the proxy emits.
type APIResponse struct {
	Status   string      `json:"status"`
	Data     interface{} `json:"data"`
	Metadata Metadata    `json:"metadata"`
	Error    *APIError   `json:"error,omitempty"`
}

// Metadata contains response metadata for observability.
type Metadata struct {
	Timestamp   time.Time `json:"timestamp"`
	QueryTimeMS int64     `json:"query_time_ms,omitempty"`
	Cached      bool      `json:"cached,omitempty"`
}

// APIError carries a machine-readable error code alongside a human-readable
// message. Upstream error detail never passes through; messages here are
// generic and client-safe.
type APIError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// HealthStatus reports overall service health for monitoring.
type HealthStatus struct {
	Status       string            `json:"status"`
	Version      string            `json:"version"`
	CacheBackend string            `json:"cache_backend"`
	Services     map[string]string `json:"services"`
	Uptime       float64           `json:"uptime_seconds"`
}

// CacheStats reports cache performance for the cache-stats endpoint.
type CacheStats struct {
	Backend   string  `json:"backend"`
	Connected bool    `json:"connected"`
	Keys      int64   `json:"keys"`
	Hits      int64   `json:"hits"`
	Misses    int64   `json:"misses"`
	Evictions int64   `json:"evictions"`
	HitRate   float64 `json:"hit_rate_percent"`
}
