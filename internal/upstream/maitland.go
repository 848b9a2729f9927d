// Binnight - Municipal Waste Collection Aggregation Proxy
// Copyright 2026 L. Roy (lroytech)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/lroytech/binnight

package upstream

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/lroytech/binnight/internal/config"
	"github.com/lroytech/binnight/internal/logging"
	"github.com/lroytech/binnight/internal/metrics"
	"github.com/lroytech/binnight/internal/models"
)

// Address query bounds enforced before any upstream call.
const (
	minAddressQueryLen = 3
	maxAddressQueryLen = 200
)

// maitlandProvider is the display name on normalized records.
const maitlandProvider = "Maitland City Council"

// MaitlandClient talks to the Maitland Council WasteTrack API for
// general waste (red bin) data.
type MaitlandClient struct {
	cfg    config.MaitlandConfig
	client *http.Client
	cb     *gobreaker.CircuitBreaker[any]
}

// NewMaitlandClient creates a Maitland Council API client with circuit
// breaker protection.
func NewMaitlandClient(cfg config.MaitlandConfig) *MaitlandClient {
	return &MaitlandClient{
		cfg:    cfg,
		client: newHTTPClient(cfg.Timeout),
		cb:     newBreaker("maitland"),
	}
}

// SanitizeAddressQuery validates an address query and returns it ready
// for the upstream: trimmed, length within [3,200], and single quotes
// doubled (the council's own search code expects SQL-style quoting).
func SanitizeAddressQuery(text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", fmt.Errorf("address text is required: %w", ErrInvalidInput)
	}
	if len(text) < minAddressQueryLen {
		return "", fmt.Errorf("address must be at least %d characters: %w", minAddressQueryLen, ErrInvalidInput)
	}
	if len(text) > maxAddressQueryLen {
		return "", fmt.Errorf("address too long: %w", ErrInvalidInput)
	}
	return strings.ReplaceAll(text, "'", "''"), nil
}

// ValidatePropertyID checks that a property ID is non-empty and purely
// numeric.
func ValidatePropertyID(id string) (string, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", fmt.Errorf("property ID is required: %w", ErrInvalidInput)
	}
	for _, r := range id {
		if r < '0' || r > '9' {
			return "", fmt.Errorf("property ID must be numeric: %w", ErrInvalidInput)
		}
	}
	return id, nil
}

// propertyID decodes from either a JSON number or string; the council
// API is not consistent about which it sends.
type propertyID string

func (p *propertyID) UnmarshalJSON(data []byte) error {
	s := strings.Trim(strings.TrimSpace(string(data)), `"`)
	if s == "null" {
		s = ""
	}
	*p = propertyID(s)
	return nil
}

// maitlandSearchHit is one address row from the search-bin endpoint.
type maitlandSearchHit struct {
	PropertyID  propertyID `json:"property_id"`
	Address     string     `json:"address"`
	FullAddress string     `json:"full_address"`
}

// maitlandSchedule is the bin-collection endpoint payload.
type maitlandSchedule struct {
	NextCollection  string   `json:"next_collection"`
	CollectionDates []string `json:"collection_dates"`
}

// SearchAddresses queries the council address search and returns
// candidates keyed by property ID.
func (c *MaitlandClient) SearchAddresses(ctx context.Context, addressText string) ([]models.AddressCandidate, error) {
	sanitized, err := SanitizeAddressQuery(addressText)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	hits, err := execute(c.cb, func() ([]maitlandSearchHit, error) {
		return c.fetchSearch(ctx, sanitized)
	})
	metrics.UpstreamRequestDuration.WithLabelValues("maitland").Observe(time.Since(start).Seconds())
	metrics.UpstreamRequestsTotal.WithLabelValues("maitland", Outcome(err)).Inc()
	if err != nil {
		return nil, err
	}

	candidates := make([]models.AddressCandidate, 0, len(hits))
	for _, hit := range hits {
		display := hit.Address
		if display == "" {
			display = hit.FullAddress
		}
		key := string(hit.PropertyID)
		if display == "" || key == "" {
			continue
		}
		candidates = append(candidates, models.AddressCandidate{
			DisplayAddress: display,
			SourceKey:      key,
		})
	}

	logging.Debug().Str("source", "maitland").Int("candidates", len(candidates)).
		Msg("Address search completed")
	return candidates, nil
}

// GetSchedule fetches the general waste schedule for a property ID and
// normalizes it into a CollectionRecord.
func (c *MaitlandClient) GetSchedule(ctx context.Context, propertyID string) (*models.CollectionRecord, error) {
	id, err := ValidatePropertyID(propertyID)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	schedule, err := execute(c.cb, func() (*maitlandSchedule, error) {
		return c.fetchSchedule(ctx, id)
	})
	metrics.UpstreamRequestDuration.WithLabelValues("maitland").Observe(time.Since(start).Seconds())
	metrics.UpstreamRequestsTotal.WithLabelValues("maitland", Outcome(err)).Inc()
	if err != nil {
		return nil, err
	}

	dates := make([]models.CollectionDate, 0, len(schedule.CollectionDates))
	for _, d := range schedule.CollectionDates {
		dates = append(dates, models.CollectionDate{
			Date:      d,
			Formatted: formatServiceDate(d),
		})
	}

	next := schedule.NextCollection
	if next == "" && len(dates) > 0 {
		next = dates[0].Formatted
	} else if next != "" {
		next = formatServiceDate(next)
	}

	return &models.CollectionRecord{
		ServiceType:    models.ServiceGeneral,
		Provider:       maitlandProvider,
		NextCollection: next,
		Dates:          dates,
		SourceStatus:   models.StatusLive,
	}, nil
}

// fetchSearch performs the raw search-bin request.
func (c *MaitlandClient) fetchSearch(ctx context.Context, sanitized string) ([]maitlandSearchHit, error) {
	endpoint := fmt.Sprintf("%s/search-bin?addressText=%s", c.cfg.BaseURL, url.QueryEscape(sanitized))

	body, err := c.get(ctx, endpoint)
	if err != nil {
		return nil, err
	}

	var hits []maitlandSearchHit
	if err := json.Unmarshal(body, &hits); err != nil {
		return nil, fmt.Errorf("maitland search response undecodable: %w", ErrUpstream)
	}
	return hits, nil
}

// fetchSchedule performs the raw bin-collection request.
func (c *MaitlandClient) fetchSchedule(ctx context.Context, propertyID string) (*maitlandSchedule, error) {
	endpoint := fmt.Sprintf("%s/bin-collection?propertyId=%s", c.cfg.BaseURL, url.QueryEscape(propertyID))

	body, err := c.get(ctx, endpoint)
	if err != nil {
		return nil, err
	}

	schedule := &maitlandSchedule{}
	if err := json.Unmarshal(body, schedule); err != nil {
		return nil, fmt.Errorf("maitland schedule response undecodable: %w", ErrUpstream)
	}
	return schedule, nil
}

// get issues a GET and returns the body for a 2xx answer.
func (c *MaitlandClient) get(ctx context.Context, endpoint string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("maitland request build failed: %w", ErrUpstream)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, classifyTransportErr("maitland", err)
	}

	body, err := readBody(resp)
	if err != nil {
		return nil, fmt.Errorf("maitland response read failed: %w", ErrUpstream)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{Source: "maitland", Code: resp.StatusCode}
	}
	return body, nil
}
