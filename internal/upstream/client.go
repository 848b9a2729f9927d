// Binnight - Municipal Waste Collection Aggregation Proxy
// Copyright 2026 L. Roy (lroytech)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/lroytech/binnight

package upstream

import (
	"io"
	"net/http"
	"time"
)

// maxResponseBytes caps how much of an upstream body we read. The
// providers' payloads are small; anything larger is malformed.
const maxResponseBytes = 1 << 20

// newHTTPClient builds the http.Client used by all upstream calls.
// Per-request deadlines come from context; the client timeout is the
// hard backstop.
func newHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			MaxIdleConns:        10,
			MaxIdleConnsPerHost: 5,
			IdleConnTimeout:     90 * time.Second,
		},
	}
}

// readBody drains and returns at most maxResponseBytes of the response
// body.
func readBody(resp *http.Response) ([]byte, error) {
	defer resp.Body.Close()
	return io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
}
