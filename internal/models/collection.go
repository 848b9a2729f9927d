// Binnight - Municipal Waste Collection Aggregation Proxy
// Copyright 2026 L. Roy (lroytech)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/lroytech/binnight

// Package models defines the domain entities shared across the proxy:
// normalized collection records, address candidates, aggregate results, and
// the JSON envelope used by every API response.
//
// Upstream payload shapes never leak out of the upstream package; everything
// handlers and the aggregator touch is one of these explicit types.
package models

// ServiceType identifies the kind of collection service a record describes.
type ServiceType string

// Service types for the three bin streams.
const (
	ServiceGeneral   ServiceType = "general"
	ServiceRecycling ServiceType = "recycling"
	ServiceOrganics  ServiceType = "organics"
)

// SourceStatus tags where a record's data came from.
type SourceStatus string

// Source statuses.
const (
	// StatusLive marks data fetched from the upstream during this request.
	StatusLive SourceStatus = "live"

	// StatusCachedLive marks live data served from cache within its TTL.
	StatusCachedLive SourceStatus = "cached_live"

	// StatusFallback marks static guidance substituted for an unreachable
	// upstream.
	StatusFallback SourceStatus = "fallback"
)

// Source names the three upstreams as the aggregator sees them.
type Source string

// Upstream sources.
const (
	SourceMaitland Source = "maitland"
	SourceHRR      Source = "hrr"
	SourceSolo     Source = "solo"
)

// BinColor keys the per-bin slots of an aggregate result.
type BinColor string

// Bin colors, one per source.
const (
	BinRed    BinColor = "red_bin"    // Maitland - general waste
	BinYellow BinColor = "yellow_bin" // HRR - recycling
	BinGreen  BinColor = "green_bin"  // Solo - organics
)

// CollectionDate pairs an upstream date string with its human-readable form.
type CollectionDate struct {
	Date      string `json:"date"`
	Formatted string `json:"formatted_date"`
}

// CollectionRecord is the normalized shape of one upstream's schedule answer.
// Records are produced only by the upstream package's normalizers and are
// never mutated after construction, with one exception: the aggregator
// re-tags SourceStatus to StatusCachedLive on a copy it deserialized from
// cache.
type CollectionRecord struct {
	ServiceType    ServiceType      `json:"service_type"`
	Provider       string           `json:"provider"`
	NextCollection string           `json:"next_collection,omitempty"`
	Dates          []CollectionDate `json:"collection_dates,omitempty"`
	SourceStatus   SourceStatus     `json:"source_status"`

	// Guidance carries the static organics fallback content. Only set on
	// fallback-sourced organics records.
	Guidance *FallbackCollectionInfo `json:"guidance,omitempty"`
}

// AddressCandidate is one address-search hit. SourceKey is opaque and
// upstream-specific (a property id for Maitland, a customer number for HRR);
// it is only usable against the upstream that produced it.
type AddressCandidate struct {
	DisplayAddress string `json:"address"`
	SourceKey      string `json:"source_key"`
}

// SourceError records one upstream's failure inside an aggregate response.
type SourceError struct {
	Source  Source `json:"source"`
	Message string `json:"message"`
}

// AggregateResult is the unified answer for one address query. Built fresh
// per request, never persisted. At most one outcome per source: the sum of
// errors and populated per-bin entries never exceeds three.
type AggregateResult struct {
	QueryAddress string                         `json:"query_address"`
	PerBin       map[BinColor]*CollectionRecord `json:"bins"`
	Candidates   map[Source][]AddressCandidate  `json:"search_results"`
	Errors       []SourceError                  `json:"errors"`
}

// NewAggregateResult returns an AggregateResult with all three bin slots
// present (nil until populated) and empty candidate lists.
func NewAggregateResult(queryAddress string) *AggregateResult {
	return &AggregateResult{
		QueryAddress: queryAddress,
		PerBin: map[BinColor]*CollectionRecord{
			BinRed:    nil,
			BinYellow: nil,
			BinGreen:  nil,
		},
		Candidates: map[Source][]AddressCandidate{
			SourceMaitland: {},
			SourceHRR:      {},
			SourceSolo:     {},
		},
		Errors: []SourceError{},
	}
}

// FallbackContact points users at the provider when live data is unavailable.
type FallbackContact struct {
	Website        string `json:"website"`
	Note           string `json:"note"`
	CouncilContact string `json:"council_contact"`
}

// FallbackCollectionInfo is the static organics-collection guidance served
// whenever the Solo upstream cannot be reached. Every field is always
// populated; the payload is a complete, valid answer in its own right.
type FallbackCollectionInfo struct {
	ServiceType        string          `json:"service_type"`
	Provider           string          `json:"provider"`
	CollectionSchedule string          `json:"collection_schedule"`
	NextCollection     string          `json:"next_collection"`
	Message            string          `json:"message"`
	CoverageAreas      []string        `json:"coverage_areas"`
	Instructions       []string        `json:"instructions"`
	WhatGoesIn         []string        `json:"what_goes_in"`
	WhatStaysOut       []string        `json:"what_stays_out"`
	Contact            FallbackContact `json:"contact_info"`
	Reason             string          `json:"reason"`
}

// OrganicsOutcome is the result of an organics lookup. The Solo client never
// surfaces a hard failure: either Record holds live data, or Record holds
// fallback content and Fallback points at the guidance embedded in it.
type OrganicsOutcome struct {
	Record   *CollectionRecord       `json:"record"`
	Fallback *FallbackCollectionInfo `json:"fallback,omitempty"`
}

// Live reports whether the outcome came from the live upstream.
func (o OrganicsOutcome) Live() bool {
	return o.Fallback == nil
}

// SoloStatus is the diagnostic availability probe result for the Solo
// upstream. Probing never mutates the client's persistent availability.
type SoloStatus struct {
	Available         bool   `json:"available"`
	StatusCode        int    `json:"status_code,omitempty"`
	Message           string `json:"message"`
	RequiresRecaptcha bool   `json:"requires_recaptcha"`
	FallbackActive    bool   `json:"fallback_active"`
	Timestamp         string `json:"timestamp"`
	Error             string `json:"error,omitempty"`
}
