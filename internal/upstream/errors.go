// Binnight - Municipal Waste Collection Aggregation Proxy
// Copyright 2026 L. Roy (lroytech)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/lroytech/binnight

// Package upstream implements the three provider clients behind the
// proxy: Maitland Council (general waste), Hunter Resource Recovery
// (recycling), and Solo Resource Recovery (organics).
//
// All clients share one error taxonomy so handlers and the aggregator
// can map failures without knowing which upstream produced them.
package upstream

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// Sentinel errors shared by all upstream clients. Wrap with %w so
// callers can match with errors.Is.
var (
	// ErrInvalidInput marks a request rejected before reaching the
	// upstream (empty, too short, too long, or malformed input).
	ErrInvalidInput = errors.New("invalid input")

	// ErrNotFound marks an upstream answer of "no record for this key".
	ErrNotFound = errors.New("no record found")

	// ErrTimeout marks an upstream call that exceeded its deadline.
	ErrTimeout = errors.New("upstream request timed out")

	// ErrAuthFailed marks a failed token or credential exchange.
	ErrAuthFailed = errors.New("upstream authentication failed")

	// ErrUpstream marks a generic upstream-side failure (explicit error
	// payloads, breaker-open rejections, undecodable responses).
	ErrUpstream = errors.New("upstream service error")
)

// StatusError is returned when an upstream answers with a non-2xx
// status. It unwraps to ErrUpstream.
type StatusError struct {
	Source string
	Code   int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s upstream returned status %d", e.Source, e.Code)
}

func (e *StatusError) Unwrap() error { return ErrUpstream }

// classifyTransportErr folds transport-level failures into the shared
// taxonomy. Deadline and net timeouts become ErrTimeout; everything
// else becomes ErrUpstream.
func classifyTransportErr(source string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w", source, ErrTimeout)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%s: %w", source, ErrTimeout)
	}
	return fmt.Errorf("%s request failed: %w", source, ErrUpstream)
}

// Outcome maps an error to a metrics label value.
func Outcome(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, ErrInvalidInput):
		return "invalid_input"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrTimeout):
		return "timeout"
	case errors.Is(err, ErrAuthFailed):
		return "auth_failed"
	default:
		return "error"
	}
}
