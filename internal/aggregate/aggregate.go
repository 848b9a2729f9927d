// Binnight - Municipal Waste Collection Aggregation Proxy
// Copyright 2026 L. Roy (lroytech)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/lroytech/binnight

package aggregate

import (
	"context"
	"errors"
	"sync"

	"github.com/lroytech/binnight/internal/logging"
	"github.com/lroytech/binnight/internal/metrics"
	"github.com/lroytech/binnight/internal/models"
	"github.com/lroytech/binnight/internal/upstream"
)

// Aggregate runs the unified lookup: all three sources concurrently,
// each under its own timeout. A failing source contributes an error
// entry; it never aborts the others. The call itself cannot fail, only
// individual sources can.
func (s *Service) Aggregate(ctx context.Context, addressText string) *models.AggregateResult {
	metrics.AggregateRequestsTotal.Inc()

	result := models.NewAggregateResult(addressText)
	var mu sync.Mutex
	var wg sync.WaitGroup

	addError := func(source models.Source, message string) {
		mu.Lock()
		result.Errors = append(result.Errors, models.SourceError{Source: source, Message: message})
		mu.Unlock()
		metrics.AggregateSourceFailures.WithLabelValues(string(source)).Inc()
	}

	wg.Add(3)

	go func() {
		defer wg.Done()
		srcCtx, cancel := context.WithTimeout(ctx, s.sourceTimeout)
		defer cancel()

		candidates, _, err := s.SearchGeneral(srcCtx, addressText)
		if err != nil {
			addError(models.SourceMaitland, sourceMessage(err))
			return
		}
		mu.Lock()
		result.Candidates[models.SourceMaitland] = candidates
		mu.Unlock()

		if len(candidates) <= s.candidateIndex {
			return
		}
		record, _, err := s.GeneralSchedule(srcCtx, candidates[s.candidateIndex].SourceKey)
		if err != nil {
			addError(models.SourceMaitland, sourceMessage(err))
			return
		}
		mu.Lock()
		result.PerBin[models.BinRed] = record
		mu.Unlock()
	}()

	go func() {
		defer wg.Done()
		srcCtx, cancel := context.WithTimeout(ctx, s.sourceTimeout)
		defer cancel()

		candidates, _, err := s.SearchRecycling(srcCtx, addressText)
		if err != nil {
			addError(models.SourceHRR, sourceMessage(err))
			return
		}
		mu.Lock()
		result.Candidates[models.SourceHRR] = candidates
		mu.Unlock()

		if len(candidates) <= s.candidateIndex {
			return
		}
		record, _, err := s.RecyclingSchedule(srcCtx, candidates[s.candidateIndex].SourceKey)
		if err != nil {
			addError(models.SourceHRR, sourceMessage(err))
			return
		}
		mu.Lock()
		result.PerBin[models.BinYellow] = record
		mu.Unlock()
	}()

	go func() {
		defer wg.Done()
		srcCtx, cancel := context.WithTimeout(ctx, s.sourceTimeout)
		defer cancel()

		// Organics cannot fail; worst case is fallback content.
		outcome, _ := s.Organics(srcCtx, addressText)
		mu.Lock()
		result.PerBin[models.BinGreen] = outcome.Record
		mu.Unlock()
	}()

	wg.Wait()

	logging.Debug().Str("address", addressText).
		Int("errors", len(result.Errors)).
		Msg("Unified lookup completed")
	return result
}

// sourceMessage maps a client error to a client-safe message for the
// aggregate errors list.
func sourceMessage(err error) string {
	switch {
	case errors.Is(err, upstream.ErrInvalidInput):
		return "invalid address query"
	case errors.Is(err, upstream.ErrNotFound):
		return "no collection record found for this address"
	case errors.Is(err, upstream.ErrTimeout):
		return "service timed out"
	case errors.Is(err, upstream.ErrAuthFailed):
		return "service temporarily unavailable"
	default:
		return "service error"
	}
}
