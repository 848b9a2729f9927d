// Binnight - Municipal Waste Collection Aggregation Proxy
// Copyright 2026 L. Roy (lroytech)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/lroytech/binnight

// Package cache provides the TTL key/value store behind every upstream call.
//
// Two interchangeable backends implement Store: a durable Badger store and a
// process-local in-memory store. The backend is chosen once at startup by
// Open(), which probes Badger and falls back to memory.
//
// Caching is an optimization, never a correctness dependency: Set swallows
// backend errors (logged, not raised), and Get treats any backend error as a
// miss. An entry is never returned past its TTL.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
)

// Store is the uniform contract both backends satisfy. Implementations must
// be safe for concurrent use from multiple in-flight requests.
type Store interface {
	// Get returns the exact bytes previously Set under key, or false if the
	// key is absent, expired, or the backend failed.
	Get(ctx context.Context, key string) ([]byte, bool)

	// Set stores value under key for ttl. Backend failures are swallowed:
	// they are logged and the caller proceeds as if uncached.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration)

	// Stats returns a snapshot of backend performance counters.
	Stats() Stats

	// Backend names the backend for introspection ("badger" or "memory").
	Backend() string

	// Close releases backend resources.
	Close() error
}

// Stats is a point-in-time snapshot of cache counters.
type Stats struct {
	Hits      int64
	Misses    int64
	Evictions int64
	Keys      int64
}

// HitRate returns the hit percentage over all lookups.
func (s Stats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0.0
	}
	return float64(s.Hits) / float64(total) * 100.0
}

// Key derives a deterministic cache key from a namespace and an input
// string. The input is normalized (trimmed, lowercased) before hashing so
// identical queries collide to one entry regardless of call path or input
// casing.
func Key(namespace, input string) string {
	normalized := strings.ToLower(strings.TrimSpace(input))
	sum := sha256.Sum256([]byte(namespace + ":" + normalized))
	return namespace + ":" + hex.EncodeToString(sum[:16])
}
