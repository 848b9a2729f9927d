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
	"sync"
	"time"

	json "github.com/goccy/go-json"
	"golang.org/x/sync/singleflight"

	"github.com/lroytech/binnight/internal/cache"
	"github.com/lroytech/binnight/internal/config"
	"github.com/lroytech/binnight/internal/logging"
	"github.com/lroytech/binnight/internal/metrics"
	"github.com/lroytech/binnight/internal/models"
)

// soloTokenCacheKey stores the shared token so restarts reuse it.
const soloTokenCacheKey = "solo_token"

// availability is the client's sticky view of the Solo upstream.
type availability int

const (
	availabilityUnknown availability = iota
	availabilityAvailable
	availabilityUnavailable
)

// SoloClient talks to the Solo Resource Recovery self-service API for
// organics (green bin) data. The upstream gates every call behind a
// token request that routinely fails with a reCAPTCHA challenge, so
// every public method degrades to static fallback content instead of
// failing.
type SoloClient struct {
	cfg    config.SoloConfig
	client *http.Client
	store  cache.Store

	mu           sync.Mutex
	token        string
	tokenExpires time.Time
	available    availability

	// group collapses concurrent token acquisitions into one upstream
	// request; waiters share its result.
	group singleflight.Group
}

// NewSoloClient creates a Solo client. The cache store shares the token
// across restarts.
func NewSoloClient(cfg config.SoloConfig, store cache.Store) *SoloClient {
	return &SoloClient{
		cfg:    cfg,
		client: newHTTPClient(cfg.Timeout),
		store:  store,
	}
}

// browserHeaders mimic a browser session; the upstream rejects requests
// without them.
func browserHeaders(req *http.Request) {
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36")
	req.Header.Set("Accept", "application/json, text/plain, */*")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	req.Header.Set("Connection", "keep-alive")
	req.Header.Set("Referer", "https://www.yourorganicsbin.com.au/")
}

// cachedToken is the token's cache representation.
type cachedToken struct {
	Token   string `json:"token"`
	Expires int64  `json:"expires"`
}

// soloTokenResponse is the request_token payload.
type soloTokenResponse struct {
	Status string `json:"status"`
	Token  string `json:"token"`
}

// SearchCollection looks up organics collection data for an address.
// It never returns a hard failure: any error at any stage yields the
// fully populated fallback outcome instead.
func (c *SoloClient) SearchCollection(ctx context.Context, addressText string) models.OrganicsOutcome {
	addressText = strings.TrimSpace(addressText)

	token, err := c.ensureToken(ctx)
	if err != nil {
		logging.Warn().Err(err).Str("source", "solo").
			Msg("Organics upstream unavailable, serving fallback")
		metrics.OrganicsFallbacksTotal.Inc()
		metrics.UpstreamRequestsTotal.WithLabelValues("solo", Outcome(err)).Inc()
		return fallbackOutcome()
	}

	start := time.Now()
	err = c.fetchMain(ctx, token)
	metrics.UpstreamRequestDuration.WithLabelValues("solo").Observe(time.Since(start).Seconds())
	metrics.UpstreamRequestsTotal.WithLabelValues("solo", Outcome(err)).Inc()
	if err != nil {
		logging.Warn().Err(err).Str("source", "solo").
			Msg("Organics lookup failed, serving fallback")
		metrics.OrganicsFallbacksTotal.Inc()
		return fallbackOutcome()
	}

	logging.Debug().Str("source", "solo").Str("address", addressText).
		Msg("Organics lookup served live")
	return models.OrganicsOutcome{
		Record: &models.CollectionRecord{
			ServiceType:    models.ServiceOrganics,
			Provider:       soloProvider,
			NextCollection: "Weekly FOGO collection",
			SourceStatus:   models.StatusLive,
		},
	}
}

// ProbeStatus performs a lightweight reachability check against the
// token endpoint. Probing is diagnostic only and never mutates the
// client's persistent availability state.
func (c *SoloClient) ProbeStatus(ctx context.Context) models.SoloStatus {
	probeCtx, cancel := context.WithTimeout(ctx, c.cfg.ProbeTimeout)
	defer cancel()

	endpoint := fmt.Sprintf("%s/request_token?key=%s", c.cfg.BaseURL, url.QueryEscape(c.cfg.APIKey))
	req, err := http.NewRequestWithContext(probeCtx, http.MethodGet, endpoint, nil)
	if err != nil {
		return probeFailure(err)
	}
	browserHeaders(req)

	resp, err := c.client.Do(req)
	if err != nil {
		return probeFailure(err)
	}
	defer resp.Body.Close()

	available := resp.StatusCode == http.StatusOK
	message := "Organics upstream is accessible"
	if !available {
		message = fmt.Sprintf("Organics upstream returned %d", resp.StatusCode)
	}

	return models.SoloStatus{
		Available:         available,
		StatusCode:        resp.StatusCode,
		Message:           message,
		RequiresRecaptcha: resp.StatusCode == http.StatusInternalServerError,
		FallbackActive:    !available,
		Timestamp:         time.Now().UTC().Format(time.RFC3339),
	}
}

func probeFailure(err error) models.SoloStatus {
	return models.SoloStatus{
		Available:      false,
		Message:        "Organics upstream is not accessible - using fallback information",
		FallbackActive: true,
		Timestamp:      time.Now().UTC().Format(time.RFC3339),
		Error:          err.Error(),
	}
}

// ensureToken returns a valid API token. Order of preference: the
// in-memory token, the cached token, then one deduplicated upstream
// request. Once the upstream has refused a token the client stays
// unavailable for the process lifetime.
func (c *SoloClient) ensureToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	if c.available == availabilityUnavailable {
		c.mu.Unlock()
		return "", fmt.Errorf("organics upstream previously refused a token: %w", ErrAuthFailed)
	}
	if c.token != "" && time.Now().Before(c.tokenExpires) {
		token := c.token
		c.mu.Unlock()
		return token, nil
	}
	c.mu.Unlock()

	if raw, ok := c.store.Get(ctx, soloTokenCacheKey); ok {
		var cached cachedToken
		if err := json.Unmarshal(raw, &cached); err == nil && cached.Token != "" {
			expires := time.Unix(cached.Expires, 0)
			if time.Now().Before(expires) {
				c.adoptToken(cached.Token, expires)
				return cached.Token, nil
			}
		}
	}

	token, err, _ := c.group.Do("token", func() (interface{}, error) {
		return c.requestToken(ctx)
	})
	if err != nil {
		return "", err
	}
	return token.(string), nil
}

// requestToken performs the actual token exchange. Success stores the
// token in memory and cache; any failure marks the upstream
// unavailable.
func (c *SoloClient) requestToken(ctx context.Context) (string, error) {
	endpoint := fmt.Sprintf("%s/request_token?key=%s", c.cfg.BaseURL, url.QueryEscape(c.cfg.APIKey))
	logging.Info().Str("source", "solo").Msg("Requesting organics API token")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		c.markUnavailable()
		return "", fmt.Errorf("solo token request build failed: %w", ErrAuthFailed)
	}
	browserHeaders(req)

	resp, err := c.client.Do(req)
	if err != nil {
		c.markUnavailable()
		return "", fmt.Errorf("solo token request failed: %w", ErrAuthFailed)
	}

	body, err := readBody(resp)
	if err != nil {
		c.markUnavailable()
		return "", fmt.Errorf("solo token response read failed: %w", ErrAuthFailed)
	}

	if resp.StatusCode != http.StatusOK {
		c.markUnavailable()
		return "", fmt.Errorf("solo token request returned %d (likely reCAPTCHA gate): %w",
			resp.StatusCode, ErrAuthFailed)
	}

	var tokenResp soloTokenResponse
	if err := json.Unmarshal(body, &tokenResp); err != nil || tokenResp.Status != "ok" || tokenResp.Token == "" {
		c.markUnavailable()
		return "", fmt.Errorf("solo token request refused: %w", ErrAuthFailed)
	}

	expires := time.Now().Add(c.cfg.TokenTTL)
	c.adoptToken(tokenResp.Token, expires)

	if payload, err := json.Marshal(cachedToken{Token: tokenResp.Token, Expires: expires.Unix()}); err == nil {
		c.store.Set(ctx, soloTokenCacheKey, payload, c.cfg.TokenTTL)
	}

	logging.Info().Str("source", "solo").Msg("Organics API token retrieved")
	return tokenResp.Token, nil
}

// adoptToken records a valid token and marks the upstream available.
func (c *SoloClient) adoptToken(token string, expires time.Time) {
	c.mu.Lock()
	c.token = token
	c.tokenExpires = expires
	c.available = availabilityAvailable
	c.mu.Unlock()
}

// markUnavailable makes the unavailability sticky: later calls skip the
// upstream and serve fallback directly.
func (c *SoloClient) markUnavailable() {
	c.mu.Lock()
	c.available = availabilityUnavailable
	c.token = ""
	c.mu.Unlock()
}

// fetchMain verifies data access with the acquired token.
func (c *SoloClient) fetchMain(ctx context.Context, token string) error {
	endpoint := fmt.Sprintf("%s/main?key=%s&token=%s",
		c.cfg.BaseURL, url.QueryEscape(c.cfg.APIKey), url.QueryEscape(token))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("solo request build failed: %w", ErrUpstream)
	}
	browserHeaders(req)

	resp, err := c.client.Do(req)
	if err != nil {
		return classifyTransportErr("solo", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{Source: "solo", Code: resp.StatusCode}
	}
	return nil
}
