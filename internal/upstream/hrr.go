// Binnight - Municipal Waste Collection Aggregation Proxy
// Copyright 2026 L. Roy (lroytech)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/lroytech/binnight

package upstream

import (
	"bytes"
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

// hrrProvider is the display name on normalized records.
const hrrProvider = "Hunter Resource Recovery"

// hrrExcludedStatus is excluded from search results, matching the
// provider's own portal query.
const hrrExcludedStatus = "T"

// serviceDateFormat is the provider's website display format, e.g.
// "Wednesday August 20, 2025".
const serviceDateFormat = "Monday January 2, 2006"

// HRRClient talks to the Hunter Resource Recovery services for
// recycling (yellow bin) data: an Elasticsearch address index behind
// basic auth, and a collection-date endpoint keyed by partner ID and
// customer number.
type HRRClient struct {
	cfg    config.HRRConfig
	client *http.Client
	cb     *gobreaker.CircuitBreaker[any]
}

// NewHRRClient creates an HRR client with circuit breaker protection.
func NewHRRClient(cfg config.HRRConfig) *HRRClient {
	return &HRRClient{
		cfg:    cfg,
		client: newHTTPClient(cfg.Timeout),
		cb:     newBreaker("hrr"),
	}
}

// Elasticsearch query shapes, mirroring the provider portal's search.
type esSearchQuery struct {
	Query esBoolQuery `json:"query"`
}

type esBoolQuery struct {
	Bool esBoolClauses `json:"bool"`
}

type esBoolClauses struct {
	Should  map[string]map[string]string `json:"should"`
	MustNot map[string]map[string]string `json:"must_not"`
}

// Elasticsearch response shapes, reduced to the fields we read.
type esSearchResponse struct {
	Hits struct {
		Hits []struct {
			Source esAddressDoc `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

type esAddressDoc struct {
	Address    string `json:"address"`
	CustNumber string `json:"cust_number"`
}

// hrrCollectionResponse is the collection endpoint payload. Message is
// the provider's tri-state signal: empty for success, "WARNING" for no
// record, "ERROR" for a service fault.
type hrrCollectionResponse struct {
	Message string `json:"message"`
	Records []struct {
		ServiceDate string `json:"ServiceDate"`
	} `json:"records"`
}

// SearchAddresses runs a prefix search against the HRR address index
// and returns candidates keyed by customer number. Hits missing either
// the address or the customer number are dropped.
func (c *HRRClient) SearchAddresses(ctx context.Context, addressText string) ([]models.AddressCandidate, error) {
	addressText = strings.TrimSpace(addressText)
	if len(addressText) < minAddressQueryLen {
		return nil, fmt.Errorf("address must be at least %d characters: %w", minAddressQueryLen, ErrInvalidInput)
	}

	query := esSearchQuery{
		Query: esBoolQuery{
			Bool: esBoolClauses{
				Should: map[string]map[string]string{
					"match_phrase_prefix": {"address": strings.ToLower(addressText)},
				},
				MustNot: map[string]map[string]string{
					"match_phrase": {"st": hrrExcludedStatus},
				},
			},
		},
	}

	start := time.Now()
	result, err := execute(c.cb, func() (*esSearchResponse, error) {
		return c.fetchSearch(ctx, query)
	})
	metrics.UpstreamRequestDuration.WithLabelValues("hrr").Observe(time.Since(start).Seconds())
	metrics.UpstreamRequestsTotal.WithLabelValues("hrr", Outcome(err)).Inc()
	if err != nil {
		return nil, err
	}

	candidates := make([]models.AddressCandidate, 0, len(result.Hits.Hits))
	for _, hit := range result.Hits.Hits {
		doc := hit.Source
		if doc.Address == "" || doc.CustNumber == "" {
			continue
		}
		candidates = append(candidates, models.AddressCandidate{
			DisplayAddress: doc.Address,
			SourceKey:      doc.CustNumber,
		})
	}

	logging.Debug().Str("source", "hrr").Int("candidates", len(candidates)).
		Msg("Address search completed")
	return candidates, nil
}

// GetSchedule fetches recycling collection dates for a customer number
// and normalizes them into a CollectionRecord. The provider signals "no
// record" with message=WARNING and a service fault with message=ERROR.
func (c *HRRClient) GetSchedule(ctx context.Context, custNumber string) (*models.CollectionRecord, error) {
	custNumber = strings.TrimSpace(custNumber)
	if custNumber == "" {
		return nil, fmt.Errorf("customer number is required: %w", ErrInvalidInput)
	}

	start := time.Now()
	data, err := execute(c.cb, func() (*hrrCollectionResponse, error) {
		return c.fetchCollection(ctx, custNumber)
	})
	metrics.UpstreamRequestDuration.WithLabelValues("hrr").Observe(time.Since(start).Seconds())
	metrics.UpstreamRequestsTotal.WithLabelValues("hrr", Outcome(err)).Inc()
	if err != nil {
		return nil, err
	}

	switch data.Message {
	case "WARNING":
		return nil, fmt.Errorf("no collection record for this address: %w", ErrNotFound)
	case "ERROR":
		return nil, fmt.Errorf("hrr collection lookup failed: %w", ErrUpstream)
	}

	dates := make([]models.CollectionDate, 0, len(data.Records))
	for _, record := range data.Records {
		if record.ServiceDate == "" {
			continue
		}
		dates = append(dates, models.CollectionDate{
			Date:      record.ServiceDate,
			Formatted: formatServiceDate(record.ServiceDate),
		})
	}

	next := ""
	if len(dates) > 0 {
		next = dates[0].Formatted
	}

	return &models.CollectionRecord{
		ServiceType:    models.ServiceRecycling,
		Provider:       hrrProvider,
		NextCollection: next,
		Dates:          dates,
		SourceStatus:   models.StatusLive,
	}, nil
}

// fetchSearch posts the Elasticsearch query with basic auth.
func (c *HRRClient) fetchSearch(ctx context.Context, query esSearchQuery) (*esSearchResponse, error) {
	payload, err := json.Marshal(query)
	if err != nil {
		return nil, fmt.Errorf("hrr query encode failed: %w", ErrUpstream)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.SearchURL, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("hrr request build failed: %w", ErrUpstream)
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(c.cfg.Username, c.cfg.Password)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, classifyTransportErr("hrr", err)
	}

	body, err := readBody(resp)
	if err != nil {
		return nil, fmt.Errorf("hrr response read failed: %w", ErrUpstream)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{Source: "hrr", Code: resp.StatusCode}
	}

	result := &esSearchResponse{}
	if err := json.Unmarshal(body, result); err != nil {
		return nil, fmt.Errorf("hrr search response undecodable: %w", ErrUpstream)
	}
	return result, nil
}

// fetchCollection gets the collection dates for one customer number.
func (c *HRRClient) fetchCollection(ctx context.Context, custNumber string) (*hrrCollectionResponse, error) {
	endpoint := fmt.Sprintf("%s?ID=%s&custNo=%s",
		c.cfg.CollectionURL, url.QueryEscape(c.cfg.PartnerID), url.QueryEscape(custNumber))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("hrr request build failed: %w", ErrUpstream)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, classifyTransportErr("hrr", err)
	}

	body, err := readBody(resp)
	if err != nil {
		return nil, fmt.Errorf("hrr response read failed: %w", ErrUpstream)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{Source: "hrr", Code: resp.StatusCode}
	}

	result := &hrrCollectionResponse{}
	if err := json.Unmarshal(body, result); err != nil {
		return nil, fmt.Errorf("hrr collection response undecodable: %w", ErrUpstream)
	}
	return result, nil
}

// formatServiceDate renders an upstream date in the provider's website
// display format. Accepts RFC3339 datetimes, bare datetimes, and plain
// dates; anything unparsable passes through unchanged.
func formatServiceDate(value string) string {
	layouts := []string{
		time.RFC3339,
		"2006-01-02T15:04:05",
		"2006-01-02",
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t.Format(serviceDateFormat)
		}
	}
	return value
}
