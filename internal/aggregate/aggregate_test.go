// Binnight - Municipal Waste Collection Aggregation Proxy
// Copyright 2026 L. Roy (lroytech)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/lroytech/binnight

package aggregate

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/lroytech/binnight/internal/cache"
	"github.com/lroytech/binnight/internal/config"
	"github.com/lroytech/binnight/internal/models"
	"github.com/lroytech/binnight/internal/upstream"
)

// fakeScheduleClient doubles for both the Maitland and HRR clients.
type fakeScheduleClient struct {
	candidates  []models.AddressCandidate
	searchErr   error
	record      *models.CollectionRecord
	scheduleErr error

	searchCalls   atomic.Int64
	scheduleCalls atomic.Int64
	lastKey       atomic.Value
}

func (f *fakeScheduleClient) SearchAddresses(ctx context.Context, addressText string) ([]models.AddressCandidate, error) {
	f.searchCalls.Add(1)
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	return f.candidates, nil
}

func (f *fakeScheduleClient) GetSchedule(ctx context.Context, key string) (*models.CollectionRecord, error) {
	f.scheduleCalls.Add(1)
	f.lastKey.Store(key)
	if f.scheduleErr != nil {
		return nil, f.scheduleErr
	}
	// Copy so cache round-trips don't alias the fixture.
	record := *f.record
	return &record, nil
}

type fakeOrganicsClient struct {
	outcome models.OrganicsOutcome
	status  models.SoloStatus
	calls   atomic.Int64
}

func (f *fakeOrganicsClient) SearchCollection(ctx context.Context, addressText string) models.OrganicsOutcome {
	f.calls.Add(1)
	return f.outcome
}

func (f *fakeOrganicsClient) ProbeStatus(ctx context.Context) models.SoloStatus {
	return f.status
}

func liveRecord(service models.ServiceType, provider string) *models.CollectionRecord {
	return &models.CollectionRecord{
		ServiceType:    service,
		Provider:       provider,
		NextCollection: "Wednesday August 20, 2025",
		SourceStatus:   models.StatusLive,
	}
}

func liveOrganics() models.OrganicsOutcome {
	return models.OrganicsOutcome{
		Record: liveRecord(models.ServiceOrganics, "Solo Resource Recovery"),
	}
}

func fallbackOrganics() models.OrganicsOutcome {
	info := &models.FallbackCollectionInfo{
		ServiceType:  "Green Organics Bin (FOGO)",
		Provider:     "Solo Resource Recovery",
		WhatGoesIn:   []string{"All food scraps (cooked and raw)"},
		WhatStaysOut: []string{"Plastic bags (except compostable liners)"},
	}
	return models.OrganicsOutcome{
		Record: &models.CollectionRecord{
			ServiceType:  models.ServiceOrganics,
			Provider:     "Solo Resource Recovery",
			SourceStatus: models.StatusFallback,
			Guidance:     info,
		},
		Fallback: info,
	}
}

func candidates(key string) []models.AddressCandidate {
	return []models.AddressCandidate{{DisplayAddress: "10 High Street", SourceKey: key}}
}

func newTestService(t *testing.T, general GeneralClient, recycling RecyclingClient, organics OrganicsClient) *Service {
	t.Helper()
	store := cache.NewMemoryStore(0)
	t.Cleanup(func() { store.Close() })

	cacheCfg := config.CacheConfig{
		ScheduleTTL: time.Hour,
		SearchTTL:   30 * time.Minute,
		FallbackTTL: 30 * time.Minute,
	}
	aggCfg := config.AggregateConfig{
		CandidateIndex: 0,
		SourceTimeout:  2 * time.Second,
	}
	return New(store, general, recycling, organics, cacheCfg, aggCfg)
}

func TestAggregatePartialFailure(t *testing.T) {
	general := &fakeScheduleClient{
		candidates: candidates("12345"),
		record:     liveRecord(models.ServiceGeneral, "Maitland City Council"),
	}
	recycling := &fakeScheduleClient{searchErr: upstream.ErrUpstream}
	organics := &fakeOrganicsClient{outcome: liveOrganics()}

	svc := newTestService(t, general, recycling, organics)
	result := svc.Aggregate(context.Background(), "10 High Street")

	if len(result.Errors) != 1 {
		t.Fatalf("errors = %d, want 1", len(result.Errors))
	}
	if result.Errors[0].Source != models.SourceHRR {
		t.Errorf("error source = %q, want hrr", result.Errors[0].Source)
	}
	if result.PerBin[models.BinRed] == nil {
		t.Error("red bin must be populated despite the recycling failure")
	}
	if result.PerBin[models.BinGreen] == nil {
		t.Error("green bin must be populated despite the recycling failure")
	}
	if result.PerBin[models.BinYellow] != nil {
		t.Error("yellow bin must stay empty when its source fails")
	}
}

func TestAggregateTotalFailureStillAnswers(t *testing.T) {
	general := &fakeScheduleClient{searchErr: upstream.ErrTimeout}
	recycling := &fakeScheduleClient{searchErr: upstream.ErrUpstream}
	organics := &fakeOrganicsClient{outcome: fallbackOrganics()}

	svc := newTestService(t, general, recycling, organics)
	result := svc.Aggregate(context.Background(), "10 High Street")

	if len(result.Errors) != 2 {
		t.Fatalf("errors = %d, want 2", len(result.Errors))
	}
	green := result.PerBin[models.BinGreen]
	if green == nil || green.SourceStatus != models.StatusFallback {
		t.Error("green bin must carry fallback content even under total failure")
	}
}

func TestAggregateNoCandidatesIsNotAnError(t *testing.T) {
	general := &fakeScheduleClient{candidates: []models.AddressCandidate{}}
	recycling := &fakeScheduleClient{candidates: []models.AddressCandidate{}}
	organics := &fakeOrganicsClient{outcome: liveOrganics()}

	svc := newTestService(t, general, recycling, organics)
	result := svc.Aggregate(context.Background(), "unknown address")

	if len(result.Errors) != 0 {
		t.Errorf("errors = %d, want 0 (no match is not a failure)", len(result.Errors))
	}
	if result.PerBin[models.BinRed] != nil || result.PerBin[models.BinYellow] != nil {
		t.Error("bins without a candidate must stay empty")
	}
	if general.scheduleCalls.Load() != 0 {
		t.Error("schedule must not be fetched without a candidate")
	}
}

func TestAggregateNotFoundScheduleReportsError(t *testing.T) {
	general := &fakeScheduleClient{
		candidates: candidates("12345"),
		record:     liveRecord(models.ServiceGeneral, "Maitland City Council"),
	}
	recycling := &fakeScheduleClient{
		candidates:  candidates("C1001"),
		scheduleErr: upstream.ErrNotFound,
	}
	organics := &fakeOrganicsClient{outcome: liveOrganics()}

	svc := newTestService(t, general, recycling, organics)
	result := svc.Aggregate(context.Background(), "10 High Street")

	if len(result.Errors) != 1 {
		t.Fatalf("errors = %d, want 1", len(result.Errors))
	}
	if result.Errors[0].Message != "no collection record found for this address" {
		t.Errorf("message = %q", result.Errors[0].Message)
	}
	if len(result.Candidates[models.SourceHRR]) != 1 {
		t.Error("candidates must still be reported when the schedule lookup fails")
	}
}

func TestCandidateIndexSelection(t *testing.T) {
	general := &fakeScheduleClient{
		candidates: []models.AddressCandidate{
			{DisplayAddress: "10 High Street", SourceKey: "111"},
			{DisplayAddress: "10A High Street", SourceKey: "222"},
		},
		record: liveRecord(models.ServiceGeneral, "Maitland City Council"),
	}
	recycling := &fakeScheduleClient{candidates: []models.AddressCandidate{}}
	organics := &fakeOrganicsClient{outcome: liveOrganics()}

	store := cache.NewMemoryStore(0)
	defer store.Close()
	svc := New(store, general, recycling, organics,
		config.CacheConfig{ScheduleTTL: time.Hour, SearchTTL: time.Hour, FallbackTTL: time.Hour},
		config.AggregateConfig{CandidateIndex: 1, SourceTimeout: 2 * time.Second})

	svc.Aggregate(context.Background(), "10 High Street")

	if got := general.lastKey.Load(); got != "222" {
		t.Errorf("schedule key = %v, want 222 (second candidate)", got)
	}
}

func TestScheduleCacheHitIsRetagged(t *testing.T) {
	general := &fakeScheduleClient{
		candidates: candidates("12345"),
		record:     liveRecord(models.ServiceGeneral, "Maitland City Council"),
	}
	svc := newTestService(t, general, &fakeScheduleClient{}, &fakeOrganicsClient{outcome: liveOrganics()})
	ctx := context.Background()

	first, cached, err := svc.GeneralSchedule(ctx, "12345")
	if err != nil {
		t.Fatalf("first lookup: %v", err)
	}
	if cached || first.SourceStatus != models.StatusLive {
		t.Errorf("first lookup cached=%v status=%q, want live miss", cached, first.SourceStatus)
	}

	second, cached, err := svc.GeneralSchedule(ctx, "12345")
	if err != nil {
		t.Fatalf("second lookup: %v", err)
	}
	if !cached {
		t.Error("second lookup must come from cache")
	}
	if second.SourceStatus != models.StatusCachedLive {
		t.Errorf("cached status = %q, want cached_live", second.SourceStatus)
	}
	if general.scheduleCalls.Load() != 1 {
		t.Errorf("upstream calls = %d, want 1", general.scheduleCalls.Load())
	}
}

func TestSearchCacheSharedAcrossCasing(t *testing.T) {
	general := &fakeScheduleClient{candidates: candidates("12345")}
	svc := newTestService(t, general, &fakeScheduleClient{}, &fakeOrganicsClient{outcome: liveOrganics()})
	ctx := context.Background()

	if _, _, err := svc.SearchGeneral(ctx, "10 High Street"); err != nil {
		t.Fatalf("first search: %v", err)
	}
	_, cached, err := svc.SearchGeneral(ctx, "10 HIGH STREET")
	if err != nil {
		t.Fatalf("second search: %v", err)
	}
	if !cached {
		t.Error("case-variant query must hit the same cache entry")
	}
	if general.searchCalls.Load() != 1 {
		t.Errorf("upstream calls = %d, want 1", general.searchCalls.Load())
	}
}

func TestOrganicsFallbackCachedAsFallback(t *testing.T) {
	organics := &fakeOrganicsClient{outcome: fallbackOrganics()}
	svc := newTestService(t, &fakeScheduleClient{}, &fakeScheduleClient{}, organics)
	ctx := context.Background()

	first, cached := svc.Organics(ctx, "10 High Street")
	if cached || first.Live() {
		t.Fatalf("first lookup cached=%v live=%v, want fallback miss", cached, first.Live())
	}

	second, cached := svc.Organics(ctx, "10 High Street")
	if !cached {
		t.Error("second lookup must come from cache")
	}
	if second.Record.SourceStatus != models.StatusFallback {
		t.Errorf("cached fallback status = %q, must stay fallback", second.Record.SourceStatus)
	}
	if organics.calls.Load() != 1 {
		t.Errorf("upstream calls = %d, want 1", organics.calls.Load())
	}
}

func TestOrganicsLiveCacheHitIsRetagged(t *testing.T) {
	organics := &fakeOrganicsClient{outcome: liveOrganics()}
	svc := newTestService(t, &fakeScheduleClient{}, &fakeScheduleClient{}, organics)
	ctx := context.Background()

	svc.Organics(ctx, "10 High Street")
	second, cached := svc.Organics(ctx, "10 High Street")
	if !cached {
		t.Fatal("second lookup must come from cache")
	}
	if second.Record.SourceStatus != models.StatusCachedLive {
		t.Errorf("cached live status = %q, want cached_live", second.Record.SourceStatus)
	}
}
