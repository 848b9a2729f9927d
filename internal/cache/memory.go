// Binnight - Municipal Waste Collection Aggregation Proxy
// Copyright 2026 L. Roy (lroytech)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/lroytech/binnight

package cache

import (
	"context"
	"sync"
	"time"
)

// entry is one cached value with its expiry.
type entry struct {
	data      []byte
	expiresAt time.Time
}

// MemoryStore is the process-local Store backend. Expired entries are
// lazily evicted on read; a periodic sweep bounds memory growth between
// reads.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]entry

	statsMu   sync.Mutex
	hits      int64
	misses    int64
	evictions int64

	stop chan struct{}
	once sync.Once
}

// compile-time interface check
var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an in-memory store. sweepInterval > 0 starts a
// background sweep removing expired entries; 0 disables it (lazy eviction
// on read still applies).
func NewMemoryStore(sweepInterval time.Duration) *MemoryStore {
	s := &MemoryStore{
		entries: make(map[string]entry),
		stop:    make(chan struct{}),
	}
	if sweepInterval > 0 {
		go s.sweepLoop(sweepInterval)
	}
	return s
}

// Get returns the bytes stored under key if present and unexpired.
// Expired entries are removed on the spot.
func (s *MemoryStore) Get(ctx context.Context, key string) ([]byte, bool) {
	s.mu.RLock()
	e, ok := s.entries[key]
	s.mu.RUnlock()

	if !ok {
		s.recordMiss()
		return nil, false
	}

	if time.Now().After(e.expiresAt) {
		s.mu.Lock()
		delete(s.entries, key)
		s.mu.Unlock()
		s.recordMiss()
		s.recordEviction()
		return nil, false
	}

	s.recordHit()
	return e.data, true
}

// Set stores value under key for ttl. The memory backend cannot fail.
func (s *MemoryStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) {
	s.mu.Lock()
	s.entries[key] = entry{
		data:      value,
		expiresAt: time.Now().Add(ttl),
	}
	s.mu.Unlock()
}

// Stats returns a snapshot of counters and the current key count.
func (s *MemoryStore) Stats() Stats {
	s.mu.RLock()
	keys := int64(len(s.entries))
	s.mu.RUnlock()

	s.statsMu.Lock()
	defer s.statsMu.Unlock()
	return Stats{
		Hits:      s.hits,
		Misses:    s.misses,
		Evictions: s.evictions,
		Keys:      keys,
	}
}

// Backend identifies this store for introspection.
func (s *MemoryStore) Backend() string { return "memory" }

// Close stops the background sweep.
func (s *MemoryStore) Close() error {
	s.once.Do(func() { close(s.stop) })
	return nil
}

// sweepLoop periodically removes expired entries.
func (s *MemoryStore) sweepLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.sweep()
		}
	}
}

// sweep removes all expired entries.
func (s *MemoryStore) sweep() {
	now := time.Now()
	evicted := int64(0)

	s.mu.Lock()
	for key, e := range s.entries {
		if now.After(e.expiresAt) {
			delete(s.entries, key)
			evicted++
		}
	}
	s.mu.Unlock()

	if evicted > 0 {
		s.statsMu.Lock()
		s.evictions += evicted
		s.statsMu.Unlock()
	}
}

func (s *MemoryStore) recordHit() {
	s.statsMu.Lock()
	s.hits++
	s.statsMu.Unlock()
}

func (s *MemoryStore) recordMiss() {
	s.statsMu.Lock()
	s.misses++
	s.statsMu.Unlock()
}

func (s *MemoryStore) recordEviction() {
	s.statsMu.Lock()
	s.evictions++
	s.statsMu.Unlock()
}
