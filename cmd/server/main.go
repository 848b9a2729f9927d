// Binnight - Municipal Waste Collection Aggregation Proxy
// Copyright 2026 L. Roy (lroytech)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/lroytech/binnight

// Binnight aggregates municipal waste collection data from three
// regional providers behind one JSON API: Maitland Council (general
// waste), Hunter Resource Recovery (recycling), and Solo Resource
// Recovery (organics).
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lroytech/binnight/internal/aggregate"
	"github.com/lroytech/binnight/internal/api"
	"github.com/lroytech/binnight/internal/cache"
	"github.com/lroytech/binnight/internal/config"
	"github.com/lroytech/binnight/internal/logging"
	"github.com/lroytech/binnight/internal/upstream"
)

// version is set at build time via -ldflags.
var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})

	logging.Info().
		Str("version", version).
		Str("maitland_url", cfg.Maitland.BaseURL).
		Str("hrr_search_url", cfg.HRR.SearchURL).
		Str("solo_url", cfg.Solo.BaseURL).
		Msg("Starting Binnight")

	store := cache.Open(cfg.Cache.Dir, cfg.Cache.SweepInterval)
	defer store.Close()

	maitland := upstream.NewMaitlandClient(cfg.Maitland)
	hrr := upstream.NewHRRClient(cfg.HRR)
	solo := upstream.NewSoloClient(cfg.Solo, store)

	svc := aggregate.New(store, maitland, hrr, solo, cfg.Cache, cfg.Aggregate)
	router := api.NewRouter(svc, cfg, version)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router.Handler(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logging.Info().Str("addr", server.Addr).Msg("HTTP server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
	case err := <-errCh:
		logging.Error().Err(err).Msg("HTTP server failed")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logging.Error().Err(err).Msg("Graceful shutdown failed")
	}
	logging.Info().Msg("Binnight stopped")
}
