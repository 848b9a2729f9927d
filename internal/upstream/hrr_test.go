// Binnight - Municipal Waste Collection Aggregation Proxy
// Copyright 2026 L. Roy (lroytech)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/lroytech/binnight

package upstream

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	json "github.com/goccy/go-json"

	"github.com/lroytech/binnight/internal/config"
)

func hrrTestConfig(searchURL, collectionURL string) config.HRRConfig {
	return config.HRRConfig{
		SearchURL:     searchURL,
		CollectionURL: collectionURL,
		PartnerID:     "partner-id",
		Username:      "addresssearch",
		Password:      "addresssearch",
		Timeout:       2 * time.Second,
	}
}

func TestHRRSearchAddresses(t *testing.T) {
	var gotBody []byte
	var gotAuthUser, gotAuthPass string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuthUser, gotAuthPass, _ = r.BasicAuth()
		gotBody, _ = io.ReadAll(r.Body)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"hits": {"hits": [
			{"_source": {"address": "10 HIGH STREET CESSNOCK", "cust_number": "C1001"}},
			{"_source": {"address": "12 HIGH STREET CESSNOCK", "cust_number": "C1002"}},
			{"_source": {"address": "no customer number"}},
			{"_source": {"cust_number": "C1003"}}
		]}}`))
	}))
	defer srv.Close()

	client := NewHRRClient(hrrTestConfig(srv.URL, srv.URL))
	candidates, err := client.SearchAddresses(context.Background(), "10 High Street")
	checkNoError(t, err)

	checkStringEqual(t, gotAuthUser, "addresssearch", "basic auth user")
	checkStringEqual(t, gotAuthPass, "addresssearch", "basic auth password")

	var query esSearchQuery
	checkNoError(t, json.Unmarshal(gotBody, &query))
	checkStringEqual(t, query.Query.Bool.Should["match_phrase_prefix"]["address"],
		"10 high street", "query address lowercased")
	checkStringEqual(t, query.Query.Bool.MustNot["match_phrase"]["st"],
		"T", "excluded status predicate")

	if len(candidates) != 2 {
		t.Fatalf("candidates = %d, want 2 (incomplete hits dropped)", len(candidates))
	}
	checkStringEqual(t, candidates[0].DisplayAddress, "10 HIGH STREET CESSNOCK", "first address")
	checkStringEqual(t, candidates[0].SourceKey, "C1001", "first customer number")
}

func TestHRRSearchRejectsShortInput(t *testing.T) {
	client := NewHRRClient(hrrTestConfig("http://localhost:0", "http://localhost:0"))
	_, err := client.SearchAddresses(context.Background(), "ab")
	checkErrorIs(t, err, ErrInvalidInput)
}

func TestHRRGetSchedule(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("ID"); got != "partner-id" {
			t.Errorf("ID = %q, want partner-id", got)
		}
		if got := r.URL.Query().Get("custNo"); got != "C1001" {
			t.Errorf("custNo = %q, want C1001", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"records": [
			{"ServiceDate": "2025-08-20"},
			{"ServiceDate": "2025-09-03T00:00:00"},
			{"ServiceDate": ""}
		]}`))
	}))
	defer srv.Close()

	client := NewHRRClient(hrrTestConfig(srv.URL, srv.URL))
	record, err := client.GetSchedule(context.Background(), "C1001")
	checkNoError(t, err)

	checkStringEqual(t, string(record.ServiceType), "recycling", "service type")
	checkStringEqual(t, record.Provider, hrrProvider, "provider")
	if len(record.Dates) != 2 {
		t.Fatalf("dates = %d, want 2 (empty date dropped)", len(record.Dates))
	}
	checkStringEqual(t, record.NextCollection, "Wednesday August 20, 2025", "next collection")
	checkStringEqual(t, record.Dates[1].Formatted, "Wednesday September 3, 2025", "second date")
}

func TestHRRGetScheduleMessages(t *testing.T) {
	tests := []struct {
		name    string
		message string
		target  error
	}{
		{"warning means no record", "WARNING", ErrNotFound},
		{"error means upstream fault", "ERROR", ErrUpstream},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.Write([]byte(`{"message": "` + tt.message + `"}`))
			}))
			defer srv.Close()

			client := NewHRRClient(hrrTestConfig(srv.URL, srv.URL))
			_, err := client.GetSchedule(context.Background(), "C1001")
			checkErrorIs(t, err, tt.target)
		})
	}
}

func TestHRRGetScheduleRequiresCustomerNumber(t *testing.T) {
	client := NewHRRClient(hrrTestConfig("http://localhost:0", "http://localhost:0"))
	_, err := client.GetSchedule(context.Background(), "  ")
	checkErrorIs(t, err, ErrInvalidInput)
}

func TestFormatServiceDate(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain date", "2025-08-20", "Wednesday August 20, 2025"},
		{"bare datetime", "2025-08-20T06:30:00", "Wednesday August 20, 2025"},
		{"rfc3339", "2025-08-20T06:30:00Z", "Wednesday August 20, 2025"},
		{"single digit day", "2025-09-03", "Wednesday September 3, 2025"},
		{"malformed passes through", "next Tuesday", "next Tuesday"},
		{"empty passes through", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := formatServiceDate(tt.input); got != tt.want {
				t.Errorf("formatServiceDate(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestHRRSearchLowercasesBeforeQuery(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		if !strings.Contains(string(body), `"10 high street cessnock"`) {
			t.Errorf("query body %s does not contain lowercased address", body)
		}
		w.Write([]byte(`{"hits": {"hits": []}}`))
	}))
	defer srv.Close()

	client := NewHRRClient(hrrTestConfig(srv.URL, srv.URL))
	candidates, err := client.SearchAddresses(context.Background(), "10 HIGH STREET CESSNOCK")
	checkNoError(t, err)
	if len(candidates) != 0 {
		t.Errorf("candidates = %d, want 0", len(candidates))
	}
}
