// Binnight - Municipal Waste Collection Aggregation Proxy
// Copyright 2026 L. Roy (lroytech)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/lroytech/binnight

package upstream

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/lroytech/binnight/internal/cache"
	"github.com/lroytech/binnight/internal/config"
)

func soloTestConfig(baseURL string) config.SoloConfig {
	return config.SoloConfig{
		BaseURL:      baseURL,
		APIKey:       "test-key",
		Timeout:      2 * time.Second,
		ProbeTimeout: time.Second,
		TokenTTL:     24 * time.Hour,
	}
}

func newSoloTestClient(t *testing.T, baseURL string) *SoloClient {
	t.Helper()
	store := cache.NewMemoryStore(0)
	t.Cleanup(func() { store.Close() })
	return NewSoloClient(soloTestConfig(baseURL), store)
}

func TestSoloFallbackOnPersistentServerError(t *testing.T) {
	var tokenRequests atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenRequests.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := newSoloTestClient(t, srv.URL)
	outcome := client.SearchCollection(context.Background(), "10 High Street")

	if outcome.Live() {
		t.Fatal("outcome must be fallback under persistent upstream 500")
	}
	if outcome.Record == nil {
		t.Fatal("fallback outcome must still carry a record")
	}
	checkStringEqual(t, string(outcome.Record.SourceStatus), "fallback", "source status")
	checkStringEqual(t, string(outcome.Record.ServiceType), "organics", "service type")
	if len(outcome.Fallback.WhatGoesIn) == 0 {
		t.Error("fallback what_goes_in must not be empty")
	}
	if len(outcome.Fallback.WhatStaysOut) == 0 {
		t.Error("fallback what_stays_out must not be empty")
	}
	if len(outcome.Fallback.Instructions) == 0 {
		t.Error("fallback instructions must not be empty")
	}

	// Refusal is sticky: the next lookup serves fallback without
	// touching the upstream again.
	client.SearchCollection(context.Background(), "10 High Street")
	if got := tokenRequests.Load(); got != 1 {
		t.Errorf("token requests = %d, want 1 (unavailability is sticky)", got)
	}
}

func TestSoloLiveLookup(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/request_token", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Referer") == "" || r.Header.Get("User-Agent") == "" {
			t.Error("token request missing browser headers")
		}
		w.Write([]byte(`{"status": "ok", "token": "tok-123"}`))
	})
	mux.HandleFunc("/main", func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("token"); got != "tok-123" {
			t.Errorf("token = %q, want tok-123", got)
		}
		w.Write([]byte(`{"status": "ok"}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	client := newSoloTestClient(t, srv.URL)
	outcome := client.SearchCollection(context.Background(), "10 High Street")

	if !outcome.Live() {
		t.Fatal("outcome must be live when the upstream cooperates")
	}
	checkStringEqual(t, string(outcome.Record.SourceStatus), "live", "source status")
	checkStringEqual(t, outcome.Record.Provider, soloProvider, "provider")
}

func TestSoloSingleTokenRequestUnderConcurrency(t *testing.T) {
	var tokenRequests atomic.Int64
	mux := http.NewServeMux()
	mux.HandleFunc("/request_token", func(w http.ResponseWriter, r *http.Request) {
		tokenRequests.Add(1)
		time.Sleep(50 * time.Millisecond) // hold the request so callers overlap
		w.Write([]byte(`{"status": "ok", "token": "tok-123"}`))
	})
	mux.HandleFunc("/main", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status": "ok"}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	client := newSoloTestClient(t, srv.URL)

	const callers = 10
	var wg sync.WaitGroup
	wg.Add(callers)
	for i := 0; i < callers; i++ {
		go func() {
			defer wg.Done()
			outcome := client.SearchCollection(context.Background(), "10 High Street")
			if !outcome.Live() {
				t.Error("expected live outcome")
			}
		}()
	}
	wg.Wait()

	if got := tokenRequests.Load(); got != 1 {
		t.Errorf("token requests = %d, want 1 (acquisitions must collapse)", got)
	}
}

func TestSoloTokenReusedFromCache(t *testing.T) {
	var tokenRequests atomic.Int64
	mux := http.NewServeMux()
	mux.HandleFunc("/request_token", func(w http.ResponseWriter, r *http.Request) {
		tokenRequests.Add(1)
		w.Write([]byte(`{"status": "ok", "token": "tok-123"}`))
	})
	mux.HandleFunc("/main", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status": "ok"}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	store := cache.NewMemoryStore(0)
	defer store.Close()

	first := NewSoloClient(soloTestConfig(srv.URL), store)
	first.SearchCollection(context.Background(), "10 High Street")

	// A fresh client sharing the cache adopts the stored token instead
	// of requesting a new one.
	second := NewSoloClient(soloTestConfig(srv.URL), store)
	outcome := second.SearchCollection(context.Background(), "10 High Street")
	if !outcome.Live() {
		t.Fatal("expected live outcome from cached token")
	}
	if got := tokenRequests.Load(); got != 1 {
		t.Errorf("token requests = %d, want 1 (token shared via cache)", got)
	}
}

func TestSoloProbeStatus(t *testing.T) {
	tests := []struct {
		name          string
		status        int
		wantAvailable bool
		wantRecaptcha bool
		wantFallback  bool
	}{
		{"accessible", http.StatusOK, true, false, false},
		{"recaptcha gate", http.StatusInternalServerError, false, true, true},
		{"forbidden", http.StatusForbidden, false, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))
			defer srv.Close()

			client := newSoloTestClient(t, srv.URL)
			status := client.ProbeStatus(context.Background())

			if status.Available != tt.wantAvailable {
				t.Errorf("Available = %v, want %v", status.Available, tt.wantAvailable)
			}
			if status.RequiresRecaptcha != tt.wantRecaptcha {
				t.Errorf("RequiresRecaptcha = %v, want %v", status.RequiresRecaptcha, tt.wantRecaptcha)
			}
			if status.FallbackActive != tt.wantFallback {
				t.Errorf("FallbackActive = %v, want %v", status.FallbackActive, tt.wantFallback)
			}
			if status.StatusCode != tt.status {
				t.Errorf("StatusCode = %d, want %d", status.StatusCode, tt.status)
			}
		})
	}
}

func TestSoloProbeDoesNotMutateAvailability(t *testing.T) {
	failing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer failing.Close()

	client := newSoloTestClient(t, failing.URL)
	client.ProbeStatus(context.Background())

	client.mu.Lock()
	got := client.available
	client.mu.Unlock()
	if got != availabilityUnknown {
		t.Errorf("availability after probe = %v, want unknown (probe is diagnostic only)", got)
	}
}

func TestFallbackInfoComplete(t *testing.T) {
	info := FallbackInfo()
	if info.Provider != soloProvider {
		t.Errorf("Provider = %q", info.Provider)
	}
	if len(info.CoverageAreas) == 0 || len(info.WhatGoesIn) == 0 || len(info.WhatStaysOut) == 0 {
		t.Error("fallback payload must be fully populated")
	}
	if info.Contact.Website == "" || info.Contact.CouncilContact == "" {
		t.Error("fallback contact info must be populated")
	}
}
