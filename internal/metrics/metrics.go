// Binnight - Municipal Waste Collection Aggregation Proxy
// Copyright 2026 L. Roy (lroytech)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/lroytech/binnight

// Package metrics defines Prometheus metrics for the proxy. All metrics
// are registered on the default registry via promauto and exposed on
// /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP layer metrics.
var (
	// HTTPRequestsTotal counts API requests by route and status class.
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "binnight_http_requests_total",
			Help: "Total HTTP requests processed, by route and status code",
		},
		[]string{"route", "status"},
	)

	// HTTPRequestDuration tracks API latency by route.
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "binnight_http_request_duration_seconds",
			Help:    "HTTP request latency by route",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route"},
	)

	// RateLimitRejections counts requests rejected by the rate limiter.
	RateLimitRejections = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "binnight_rate_limit_rejections_total",
			Help: "Total requests rejected with 429 by the rate limiter",
		},
	)
)

// Upstream client metrics.
var (
	// UpstreamRequestsTotal counts upstream calls by source and outcome
	// (success, error, timeout, not_found).
	UpstreamRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "binnight_upstream_requests_total",
			Help: "Total upstream API requests by source and outcome",
		},
		[]string{"source", "outcome"},
	)

	// UpstreamRequestDuration tracks upstream latency by source.
	UpstreamRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "binnight_upstream_request_duration_seconds",
			Help:    "Upstream API request latency by source",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"source"},
	)

	// OrganicsFallbacksTotal counts organics lookups answered from the
	// static fallback instead of the live upstream.
	OrganicsFallbacksTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "binnight_organics_fallbacks_total",
			Help: "Total organics lookups served from static fallback content",
		},
	)
)

// Circuit breaker metrics.
var (
	// CircuitBreakerState reports breaker state per upstream
	// (0=closed, 1=half-open, 2=open).
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "binnight_circuit_breaker_state",
			Help: "Circuit breaker state per upstream (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	// CircuitBreakerTransitions counts breaker state transitions.
	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "binnight_circuit_breaker_transitions_total",
			Help: "Circuit breaker state transitions",
		},
		[]string{"name", "from", "to"},
	)

	// CircuitBreakerRequests counts requests through each breaker by
	// outcome (success, failure, rejected).
	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "binnight_circuit_breaker_requests_total",
			Help: "Requests through each circuit breaker by outcome",
		},
		[]string{"name", "outcome"},
	)
)

// Cache metrics.
var (
	// CacheLookupsTotal counts cache lookups by namespace and result
	// (hit, miss).
	CacheLookupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "binnight_cache_lookups_total",
			Help: "Cache lookups by namespace and result",
		},
		[]string{"namespace", "result"},
	)
)

// Aggregation metrics.
var (
	// AggregateRequestsTotal counts unified lookups.
	AggregateRequestsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "binnight_aggregate_requests_total",
			Help: "Total unified all-bins lookups",
		},
	)

	// AggregateSourceFailures counts per-source failures inside unified
	// lookups. Partial failures still produce a 200 response.
	AggregateSourceFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "binnight_aggregate_source_failures_total",
			Help: "Per-source failures during unified lookups",
		},
		[]string{"source"},
	)
)
