// Binnight - Municipal Waste Collection Aggregation Proxy
// Copyright 2026 L. Roy (lroytech)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/lroytech/binnight

package cache

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/lroytech/binnight/internal/logging"
)

// BadgerStore is the durable Store backend. Entries carry Badger-native
// TTLs, so expiry survives restarts and needs no sweep of our own beyond
// Badger's value-log GC.
type BadgerStore struct {
	db *badger.DB

	hits      atomic.Int64
	misses    atomic.Int64
	evictions atomic.Int64

	stopGC chan struct{}
}

var _ Store = (*BadgerStore)(nil)

// NewBadgerStore opens (or creates) a Badger database at dir and verifies
// it with a write/read/delete probe before returning. A store that cannot
// complete the probe is closed and an error returned, so callers can fall
// back to memory.
func NewBadgerStore(dir string) (*BadgerStore, error) {
	opts := badger.DefaultOptions(dir).
		WithLogger(nil).
		WithCompactL0OnClose(true)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger cache at %s: %w", dir, err)
	}

	s := &BadgerStore{
		db:     db,
		stopGC: make(chan struct{}),
	}

	if err := s.probe(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("badger cache probe failed: %w", err)
	}

	go s.gcLoop()
	return s, nil
}

// probe round-trips a sentinel key to prove the store is usable.
func (s *BadgerStore) probe() error {
	const probeKey = "__probe__"

	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.SetEntry(badger.NewEntry([]byte(probeKey), []byte("ok")).WithTTL(time.Minute))
	})
	if err != nil {
		return err
	}

	err = s.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get([]byte(probeKey))
		return err
	})
	if err != nil {
		return err
	}

	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(probeKey))
	})
}

// Get returns the bytes stored under key. Badger enforces TTL expiry
// itself; an expired or missing key is a plain miss. Any other backend
// error is logged and also treated as a miss.
func (s *BadgerStore) Get(ctx context.Context, key string) ([]byte, bool) {
	var value []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	})

	if err != nil {
		if !errors.Is(err, badger.ErrKeyNotFound) {
			logging.Warn().Err(err).Str("key", key).Msg("Cache read failed, treating as miss")
		}
		s.misses.Add(1)
		return nil, false
	}

	s.hits.Add(1)
	return value, true
}

// Set stores value under key with a Badger-native TTL. Write failures are
// logged and swallowed so a sick cache never fails a request.
func (s *BadgerStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) {
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.SetEntry(badger.NewEntry([]byte(key), value).WithTTL(ttl))
	})
	if err != nil {
		logging.Warn().Err(err).Str("key", key).Msg("Cache write failed, continuing uncached")
	}
}

// Stats returns counters plus an approximate live key count.
func (s *BadgerStore) Stats() Stats {
	var keys int64
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			keys++
		}
		return nil
	})
	if err != nil {
		logging.Warn().Err(err).Msg("Cache key count failed")
	}

	return Stats{
		Hits:      s.hits.Load(),
		Misses:    s.misses.Load(),
		Evictions: s.evictions.Load(),
		Keys:      keys,
	}
}

// Backend identifies this store for introspection.
func (s *BadgerStore) Backend() string { return "badger" }

// Close stops value-log GC and closes the database.
func (s *BadgerStore) Close() error {
	close(s.stopGC)
	return s.db.Close()
}

// gcLoop runs Badger's value-log garbage collection periodically.
// ErrNoRewrite just means there was nothing to reclaim.
func (s *BadgerStore) gcLoop() {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopGC:
			return
		case <-ticker.C:
			if err := s.db.RunValueLogGC(0.5); err == nil {
				s.evictions.Add(1)
			}
		}
	}
}
