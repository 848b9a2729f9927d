// Binnight - Municipal Waste Collection Aggregation Proxy
// Copyright 2026 L. Roy (lroytech)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/lroytech/binnight

// Package config loads and validates Binnight configuration from layered
// sources: built-in defaults, an optional YAML file, then environment
// variables (highest priority).
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

// Config is the root configuration for the proxy.
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Logging   LoggingConfig   `koanf:"logging"`
	Cache     CacheConfig     `koanf:"cache"`
	RateLimit RateLimitConfig `koanf:"rate_limit"`
	Maitland  MaitlandConfig  `koanf:"maitland"`
	HRR       HRRConfig       `koanf:"hrr"`
	Solo      SoloConfig      `koanf:"solo"`
	Aggregate AggregateConfig `koanf:"aggregate"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string        `koanf:"host" validate:"required"`
	Port            int           `koanf:"port" validate:"required,min=1,max=65535"`
	ReadTimeout     time.Duration `koanf:"read_timeout" validate:"required"`
	WriteTimeout    time.Duration `koanf:"write_timeout" validate:"required"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout" validate:"required"`
	CORSOrigins     []string      `koanf:"cors_origins" validate:"min=1"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `koanf:"level" validate:"oneof=trace debug info warn error disabled"`
	Format string `koanf:"format" validate:"oneof=json console"`
}

// CacheConfig holds cache backend and TTL policy settings.
type CacheConfig struct {
	// Dir is the Badger database directory. Badger failing to open here
	// drops the process to the in-memory backend.
	Dir           string        `koanf:"dir" validate:"required"`
	SweepInterval time.Duration `koanf:"sweep_interval" validate:"min=0"`

	// ScheduleTTL covers collection-schedule payloads; schedules change
	// rarely, so they cache longest.
	ScheduleTTL time.Duration `koanf:"schedule_ttl" validate:"required"`

	// SearchTTL covers address-search results.
	SearchTTL time.Duration `koanf:"search_ttl" validate:"required"`

	// FallbackTTL covers organics fallback payloads, kept short so
	// recovery of the live upstream is noticed promptly.
	FallbackTTL time.Duration `koanf:"fallback_ttl" validate:"required"`
}

// RateLimitConfig holds client rate limiting settings. Limits are keyed
// by client IP.
type RateLimitConfig struct {
	Enabled           bool `koanf:"enabled"`
	GlobalPerHour     int  `koanf:"global_per_hour" validate:"min=1"`
	GlobalPerMinute   int  `koanf:"global_per_minute" validate:"min=1"`
	UpstreamPerMinute int  `koanf:"upstream_per_minute" validate:"min=1"`
}

// MaitlandConfig holds Maitland Council API settings (general waste).
type MaitlandConfig struct {
	BaseURL string        `koanf:"base_url" validate:"required,url"`
	Timeout time.Duration `koanf:"timeout" validate:"required"`
}

// HRRConfig holds Hunter Resource Recovery settings (recycling). The
// search endpoint is an Elasticsearch index behind basic auth; the
// collection endpoint is a plain GET keyed by partner ID and customer
// number.
type HRRConfig struct {
	SearchURL     string        `koanf:"search_url" validate:"required,url"`
	CollectionURL string        `koanf:"collection_url" validate:"required,url"`
	PartnerID     string        `koanf:"partner_id" validate:"required"`
	Username      string        `koanf:"username" validate:"required"`
	Password      string        `koanf:"password" validate:"required"`
	Timeout       time.Duration `koanf:"timeout" validate:"required"`
}

// SoloConfig holds Solo Resource Recovery settings (organics). The
// upstream gates data access behind a token request that commonly fails
// with a reCAPTCHA challenge; fallback behavior compensates.
type SoloConfig struct {
	BaseURL      string        `koanf:"base_url" validate:"required,url"`
	APIKey       string        `koanf:"api_key" validate:"required"`
	Timeout      time.Duration `koanf:"timeout" validate:"required"`
	ProbeTimeout time.Duration `koanf:"probe_timeout" validate:"required"`
	TokenTTL     time.Duration `koanf:"token_ttl" validate:"required"`
}

// AggregateConfig holds unified-lookup settings.
type AggregateConfig struct {
	// CandidateIndex selects which address-search candidate each source
	// resolves a schedule for. Index 0 is the upstream's best match.
	CandidateIndex int `koanf:"candidate_index" validate:"min=0"`

	// SourceTimeout caps each source's total work (search plus schedule
	// fetch) inside one aggregate request.
	SourceTimeout time.Duration `koanf:"source_timeout" validate:"required"`
}

// Validate checks the configuration using struct tags. Returns a
// descriptive error for the first invalid field.
func (c *Config) Validate() error {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := v.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("config field %s failed %q validation", fe.Namespace(), fe.Tag())
		}
		return fmt.Errorf("config validation failed: %w", err)
	}
	return nil
}
