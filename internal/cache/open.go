// Binnight - Municipal Waste Collection Aggregation Proxy
// Copyright 2026 L. Roy (lroytech)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/lroytech/binnight

package cache

import (
	"time"

	"github.com/lroytech/binnight/internal/logging"
)

// Open selects the cache backend at startup. It tries Badger at dir and
// falls back to the in-memory store if Badger cannot be opened or fails
// its probe. The choice is made once; the process never switches backends
// at runtime.
func Open(dir string, sweepInterval time.Duration) Store {
	store, err := NewBadgerStore(dir)
	if err != nil {
		logging.Warn().Err(err).Str("dir", dir).
			Msg("Durable cache unavailable, falling back to in-memory cache")
		return NewMemoryStore(sweepInterval)
	}

	logging.Info().Str("backend", store.Backend()).Str("dir", dir).
		Msg("Durable cache opened")
	return store
}
