// Binnight - Municipal Waste Collection Aggregation Proxy
// Copyright 2026 L. Roy (lroytech)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/lroytech/binnight

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths where config files are searched in
// order of priority. The first file found wins.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/binnight/config.yaml",
	"/etc/binnight/config.yml",
}

// ConfigPathEnvVar overrides the config file path.
const ConfigPathEnvVar = "BINNIGHT_CONFIG_PATH"

// envPrefix namespaces Binnight environment variables.
const envPrefix = "BINNIGHT_"

// Default returns a Config with every field set to its production
// default. The upstream endpoints and credentials default to the real
// public services; config file and environment variables override them
// for testing against stubs.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            5000,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			CORSOrigins:     []string{"*"},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Cache: CacheConfig{
			Dir:           "/data/binnight/cache",
			SweepInterval: 5 * time.Minute,
			ScheduleTTL:   time.Hour,
			SearchTTL:     30 * time.Minute,
			FallbackTTL:   30 * time.Minute,
		},
		RateLimit: RateLimitConfig{
			Enabled:           true,
			GlobalPerHour:     100,
			GlobalPerMinute:   20,
			UpstreamPerMinute: 30,
		},
		Maitland: MaitlandConfig{
			BaseURL: "https://integration.maitland.nsw.gov.au/api/wastetrack",
			Timeout: 10 * time.Second,
		},
		HRR: HRRConfig{
			SearchURL:     "https://www5.wastedge.com/publicaddresssearch_549/_search",
			CollectionURL: "https://www5.wastedge.com/web/wsrms/we_resportal/HRRCollectionval.p",
			PartnerID:     "e347cd965f6a92ef2ccd61ded7c597b9",
			Username:      "addresssearch",
			Password:      "addresssearch",
			Timeout:       10 * time.Second,
		},
		Solo: SoloConfig{
			BaseURL:      "https://v2.wastetrack.net/self_service",
			APIKey:       "2a668449-8e3d-4cd3-87d2-95bf0fdc6b1f",
			Timeout:      10 * time.Second,
			ProbeTimeout: 5 * time.Second,
			TokenTTL:     24 * time.Hour,
		},
		Aggregate: AggregateConfig{
			CandidateIndex: 0,
			SourceTimeout:  10 * time.Second,
		},
	}
}

// Load builds configuration from layered sources:
//  1. Defaults: built-in production values
//  2. Config file: optional YAML (first of DefaultConfigPaths, or
//     BINNIGHT_CONFIG_PATH)
//  3. Environment variables: BINNIGHT_* (highest priority)
//
// Precedence is ENV > file > defaults. The result is validated before
// being returned.
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if configPath := findConfigFile(); configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	// BINNIGHT_SERVER_PORT -> server.port, BINNIGHT_HRR_SEARCH_URL ->
	// hrr.search_url, and so on.
	envProvider := env.Provider(envPrefix, ".", envTransformFunc)
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// findConfigFile returns the first existing config file path, or "".
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}

	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// sectionNames are the top-level config sections used to split an env
// var name into section and field.
var sectionNames = []string{
	"server", "logging", "cache", "rate_limit",
	"maitland", "hrr", "solo", "aggregate",
}

// envTransformFunc maps a BINNIGHT_* environment variable name to its
// koanf path. The section prefix becomes the first path element and the
// remainder is the field name:
//
//	BINNIGHT_SERVER_PORT        -> server.port
//	BINNIGHT_RATE_LIMIT_ENABLED -> rate_limit.enabled
//	BINNIGHT_HRR_SEARCH_URL     -> hrr.search_url
func envTransformFunc(key string) string {
	key = strings.ToLower(strings.TrimPrefix(key, envPrefix))

	for _, section := range sectionNames {
		prefix := section + "_"
		if strings.HasPrefix(key, prefix) {
			return section + "." + strings.TrimPrefix(key, prefix)
		}
	}

	// Unknown section: ignore the variable by mapping it out of range.
	return ""
}

// sliceConfigPaths lists config paths parsed as comma-separated slices
// when supplied via environment variables.
var sliceConfigPaths = []string{
	"server.cors_origins",
}

// processSliceFields converts comma-separated string values to slices
// for known slice fields. Env vars arrive as strings but the config
// expects slices.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		val := k.Get(path)
		if val == nil {
			continue
		}

		if _, ok := val.([]interface{}); ok {
			continue
		}
		if _, ok := val.([]string); ok {
			continue
		}

		strVal, ok := val.(string)
		if !ok || strVal == "" {
			continue
		}

		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if len(trimmed) > 0 {
			if err := k.Set(path, trimmed); err != nil {
				return fmt.Errorf("failed to set %s: %w", path, err)
			}
		}
	}
	return nil
}
