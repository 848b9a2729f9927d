// Binnight - Municipal Waste Collection Aggregation Proxy
// Copyright 2026 L. Roy (lroytech)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/lroytech/binnight

package config

import (
	"testing"
	"time"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config must validate: %v", err)
	}
}

func TestDefaultTTLPolicy(t *testing.T) {
	cfg := Default()
	if cfg.Cache.ScheduleTTL != time.Hour {
		t.Errorf("ScheduleTTL = %v, want 1h", cfg.Cache.ScheduleTTL)
	}
	if cfg.Cache.SearchTTL != 30*time.Minute {
		t.Errorf("SearchTTL = %v, want 30m", cfg.Cache.SearchTTL)
	}
	if cfg.Cache.FallbackTTL != 30*time.Minute {
		t.Errorf("FallbackTTL = %v, want 30m", cfg.Cache.FallbackTTL)
	}
}

func TestValidateRejectsBadConfig(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"port out of range", func(c *Config) { c.Server.Port = 70000 }},
		{"bad log level", func(c *Config) { c.Logging.Level = "verbose" }},
		{"bad log format", func(c *Config) { c.Logging.Format = "xml" }},
		{"missing maitland url", func(c *Config) { c.Maitland.BaseURL = "" }},
		{"malformed hrr url", func(c *Config) { c.HRR.SearchURL = "not a url" }},
		{"missing solo key", func(c *Config) { c.Solo.APIKey = "" }},
		{"negative candidate index", func(c *Config) { c.Aggregate.CandidateIndex = -1 }},
		{"zero source timeout", func(c *Config) { c.Aggregate.SourceTimeout = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error, got nil")
			}
		})
	}
}

func TestEnvTransform(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"BINNIGHT_SERVER_PORT", "server.port"},
		{"BINNIGHT_SERVER_CORS_ORIGINS", "server.cors_origins"},
		{"BINNIGHT_RATE_LIMIT_GLOBAL_PER_MINUTE", "rate_limit.global_per_minute"},
		{"BINNIGHT_HRR_SEARCH_URL", "hrr.search_url"},
		{"BINNIGHT_SOLO_API_KEY", "solo.api_key"},
		{"BINNIGHT_MAITLAND_BASE_URL", "maitland.base_url"},
		{"BINNIGHT_UNKNOWN_THING", ""},
	}

	for _, tt := range tests {
		if got := envTransformFunc(tt.in); got != tt.want {
			t.Errorf("envTransformFunc(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestLoadAppliesEnvOverrides(t *testing.T) {
	t.Setenv("BINNIGHT_SERVER_PORT", "8080")
	t.Setenv("BINNIGHT_LOGGING_LEVEL", "debug")
	t.Setenv("BINNIGHT_SERVER_CORS_ORIGINS", "https://a.example, https://b.example")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("Port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Level = %q, want debug", cfg.Logging.Level)
	}
	if len(cfg.Server.CORSOrigins) != 2 || cfg.Server.CORSOrigins[0] != "https://a.example" {
		t.Errorf("CORSOrigins = %v, want two trimmed origins", cfg.Server.CORSOrigins)
	}
}
