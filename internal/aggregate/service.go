// Binnight - Municipal Waste Collection Aggregation Proxy
// Copyright 2026 L. Roy (lroytech)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/lroytech/binnight

// Package aggregate owns all caching and the unified multi-source
// lookup. Both the single-source API endpoints and the all-bins
// endpoint go through this service, so identical queries share cache
// entries regardless of which path they arrive on.
package aggregate

import (
	"context"
	"time"

	json "github.com/goccy/go-json"

	"github.com/lroytech/binnight/internal/cache"
	"github.com/lroytech/binnight/internal/config"
	"github.com/lroytech/binnight/internal/logging"
	"github.com/lroytech/binnight/internal/metrics"
	"github.com/lroytech/binnight/internal/models"
)

// Cache namespaces, one per upstream call shape.
const (
	nsMaitlandSearch = "maitland_search"
	nsMaitlandBin    = "maitland_bin"
	nsHRRSearch      = "hrr_search"
	nsHRRCollection  = "hrr_collection"
	nsSoloSearch     = "solo_search"
)

// GeneralClient is the Maitland Council client surface the service
// depends on.
type GeneralClient interface {
	SearchAddresses(ctx context.Context, addressText string) ([]models.AddressCandidate, error)
	GetSchedule(ctx context.Context, propertyID string) (*models.CollectionRecord, error)
}

// RecyclingClient is the HRR client surface the service depends on.
type RecyclingClient interface {
	SearchAddresses(ctx context.Context, addressText string) ([]models.AddressCandidate, error)
	GetSchedule(ctx context.Context, custNumber string) (*models.CollectionRecord, error)
}

// OrganicsClient is the Solo client surface the service depends on.
// SearchCollection never fails; it degrades to fallback content.
type OrganicsClient interface {
	SearchCollection(ctx context.Context, addressText string) models.OrganicsOutcome
	ProbeStatus(ctx context.Context) models.SoloStatus
}

// Service fronts the three upstream clients with cache-aside reads and
// runs the unified lookup.
type Service struct {
	store     cache.Store
	general   GeneralClient
	recycling RecyclingClient
	organics  OrganicsClient

	scheduleTTL time.Duration
	searchTTL   time.Duration
	fallbackTTL time.Duration

	candidateIndex int
	sourceTimeout  time.Duration
}

// New creates the aggregation service.
func New(store cache.Store, general GeneralClient, recycling RecyclingClient,
	organics OrganicsClient, cacheCfg config.CacheConfig, aggCfg config.AggregateConfig) *Service {
	return &Service{
		store:          store,
		general:        general,
		recycling:      recycling,
		organics:       organics,
		scheduleTTL:    cacheCfg.ScheduleTTL,
		searchTTL:      cacheCfg.SearchTTL,
		fallbackTTL:    cacheCfg.FallbackTTL,
		candidateIndex: aggCfg.CandidateIndex,
		sourceTimeout:  aggCfg.SourceTimeout,
	}
}

// SearchGeneral returns Maitland address candidates, cache-aside. The
// bool reports whether the answer came from cache.
func (s *Service) SearchGeneral(ctx context.Context, addressText string) ([]models.AddressCandidate, bool, error) {
	key := cache.Key(nsMaitlandSearch, addressText)
	if candidates, ok := getCached[[]models.AddressCandidate](ctx, s.store, nsMaitlandSearch, key); ok {
		return *candidates, true, nil
	}

	candidates, err := s.general.SearchAddresses(ctx, addressText)
	if err != nil {
		return nil, false, err
	}
	s.setCached(ctx, key, candidates, s.searchTTL)
	return candidates, false, nil
}

// GeneralSchedule returns the Maitland schedule for a property ID,
// cache-aside. Cache hits are re-tagged CachedLive.
func (s *Service) GeneralSchedule(ctx context.Context, propertyID string) (*models.CollectionRecord, bool, error) {
	key := cache.Key(nsMaitlandBin, propertyID)
	if record, ok := getCached[models.CollectionRecord](ctx, s.store, nsMaitlandBin, key); ok {
		record.SourceStatus = models.StatusCachedLive
		return record, true, nil
	}

	record, err := s.general.GetSchedule(ctx, propertyID)
	if err != nil {
		return nil, false, err
	}
	s.setCached(ctx, key, record, s.scheduleTTL)
	return record, false, nil
}

// SearchRecycling returns HRR address candidates, cache-aside.
func (s *Service) SearchRecycling(ctx context.Context, addressText string) ([]models.AddressCandidate, bool, error) {
	key := cache.Key(nsHRRSearch, addressText)
	if candidates, ok := getCached[[]models.AddressCandidate](ctx, s.store, nsHRRSearch, key); ok {
		return *candidates, true, nil
	}

	candidates, err := s.recycling.SearchAddresses(ctx, addressText)
	if err != nil {
		return nil, false, err
	}
	s.setCached(ctx, key, candidates, s.searchTTL)
	return candidates, false, nil
}

// RecyclingSchedule returns the HRR schedule for a customer number,
// cache-aside. Cache hits are re-tagged CachedLive.
func (s *Service) RecyclingSchedule(ctx context.Context, custNumber string) (*models.CollectionRecord, bool, error) {
	key := cache.Key(nsHRRCollection, custNumber)
	if record, ok := getCached[models.CollectionRecord](ctx, s.store, nsHRRCollection, key); ok {
		record.SourceStatus = models.StatusCachedLive
		return record, true, nil
	}

	record, err := s.recycling.GetSchedule(ctx, custNumber)
	if err != nil {
		return nil, false, err
	}
	s.setCached(ctx, key, record, s.scheduleTTL)
	return record, false, nil
}

// Organics returns the organics outcome for an address, cache-aside.
// Fallback outcomes cache for the shorter fallback TTL so live-upstream
// recovery is noticed promptly. Cached live records are re-tagged
// CachedLive; cached fallbacks keep their fallback status.
func (s *Service) Organics(ctx context.Context, addressText string) (models.OrganicsOutcome, bool) {
	key := cache.Key(nsSoloSearch, addressText)
	if outcome, ok := getCached[models.OrganicsOutcome](ctx, s.store, nsSoloSearch, key); ok {
		if outcome.Live() && outcome.Record != nil {
			outcome.Record.SourceStatus = models.StatusCachedLive
		}
		return *outcome, true
	}

	outcome := s.organics.SearchCollection(ctx, addressText)
	ttl := s.scheduleTTL
	if !outcome.Live() {
		ttl = s.fallbackTTL
	}
	s.setCached(ctx, key, outcome, ttl)
	return outcome, false
}

// OrganicsStatus probes the organics upstream. Never cached; the probe
// is a diagnostic.
func (s *Service) OrganicsStatus(ctx context.Context) models.SoloStatus {
	return s.organics.ProbeStatus(ctx)
}

// CacheStats reports cache backend statistics.
func (s *Service) CacheStats() models.CacheStats {
	stats := s.store.Stats()
	return models.CacheStats{
		Backend:   s.store.Backend(),
		Connected: true,
		Keys:      stats.Keys,
		Hits:      stats.Hits,
		Misses:    stats.Misses,
		Evictions: stats.Evictions,
		HitRate:   stats.HitRate(),
	}
}

// CacheBackend names the active cache backend.
func (s *Service) CacheBackend() string {
	return s.store.Backend()
}

// getCached reads and decodes one cache entry. Undecodable entries are
// treated as misses.
func getCached[T any](ctx context.Context, store cache.Store, namespace, key string) (*T, bool) {
	raw, ok := store.Get(ctx, key)
	if !ok {
		metrics.CacheLookupsTotal.WithLabelValues(namespace, "miss").Inc()
		return nil, false
	}

	value := new(T)
	if err := json.Unmarshal(raw, value); err != nil {
		logging.Warn().Err(err).Str("namespace", namespace).
			Msg("Cached entry undecodable, treating as miss")
		metrics.CacheLookupsTotal.WithLabelValues(namespace, "miss").Inc()
		return nil, false
	}

	metrics.CacheLookupsTotal.WithLabelValues(namespace, "hit").Inc()
	return value, true
}

// setCached encodes and writes one cache entry. Failures are swallowed;
// caching never fails a request.
func (s *Service) setCached(ctx context.Context, key string, value any, ttl time.Duration) {
	raw, err := json.Marshal(value)
	if err != nil {
		logging.Warn().Err(err).Str("key", key).Msg("Cache encode failed, skipping write")
		return
	}
	s.store.Set(ctx, key, raw, ttl)
}
