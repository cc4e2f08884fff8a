// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package config loads the traveller server configuration.
//
// Configuration comes from three layers, later layers winning:
//
//  1. DefaultConfig
//  2. an optional YAML file
//  3. TRAVELLER_* environment variables, bound with `env` struct tags
//
// The result is checked with go-playground/validator before use.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
	"golang.org/x/mod/semver"
	"gopkg.in/yaml.v3"

	"github.com/AleutianAI/traveller/services/traveller/telemetry"
)

var validate = validator.New()

// Environment variables read by Load. Each matches an `env` tag below.
const (
	EnvAddr      = "TRAVELLER_ADDR"
	EnvDataDir   = "TRAVELLER_DATA_DIR"
	EnvInMemory  = "TRAVELLER_IN_MEMORY"
	EnvLogLevel  = "TRAVELLER_LOG_LEVEL"
	EnvLogFormat = "TRAVELLER_LOG_FORMAT"
	EnvRateLimit = "TRAVELLER_RATE_LIMIT"
)

// Config is the complete server configuration.
type Config struct {
	Server    ServerConfig     `yaml:"server"`
	Storage   StorageConfig    `yaml:"storage"`
	Log       LogConfig        `yaml:"log"`
	Session   SessionConfig    `yaml:"session"`
	Telemetry telemetry.Config `yaml:"telemetry"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	// Addr is the listen address, e.g. ":8090".
	Addr string `yaml:"addr" env:"TRAVELLER_ADDR" validate:"required"`

	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" validate:"gte=0"`
}

// StorageConfig configures the session journal.
type StorageConfig struct {
	// DataDir holds the BadgerDB files. Required unless InMemory.
	DataDir string `yaml:"data_dir" env:"TRAVELLER_DATA_DIR" validate:"required_if=InMemory false"`

	// InMemory keeps sessions in memory only.
	InMemory bool `yaml:"in_memory" env:"TRAVELLER_IN_MEMORY"`

	// SyncWrites fsyncs every journal write.
	SyncWrites bool `yaml:"sync_writes"`

	// GCInterval is the value log GC period. Zero disables GC.
	GCInterval time.Duration `yaml:"gc_interval" validate:"gte=0"`
}

// LogConfig configures slog output.
type LogConfig struct {
	Level string `yaml:"level" env:"TRAVELLER_LOG_LEVEL" validate:"oneof=debug info warn error"`

	// Format is "text", "json", or "auto" (text on a terminal, JSON otherwise).
	Format string `yaml:"format" env:"TRAVELLER_LOG_FORMAT" validate:"oneof=auto text json"`
}

// SessionConfig bounds what a single session may do.
type SessionConfig struct {
	// RateLimit is commands per second per session. Zero means unlimited.
	RateLimit float64 `yaml:"rate_limit" env:"TRAVELLER_RATE_LIMIT" validate:"gte=0"`

	// Burst is the rate limiter bucket size.
	Burst int `yaml:"burst" validate:"gte=1"`

	// MaxSessions caps live sessions. Zero means unlimited.
	MaxSessions int `yaml:"max_sessions" validate:"gte=0"`
}

// DefaultConfig returns a configuration suitable for local use.
func DefaultConfig() Config {
	return Config{
		Server: ServerConfig{
			Addr:            ":8090",
			ShutdownTimeout: 10 * time.Second,
		},
		Storage: StorageConfig{
			DataDir:    "./data/traveller",
			SyncWrites: true,
			GCInterval: 5 * time.Minute,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "auto",
		},
		Session: SessionConfig{
			RateLimit: 50,
			Burst:     100,
		},
		Telemetry: telemetry.DefaultConfig(),
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}
	if v := c.Telemetry.ServiceVersion; v != "" && !semver.IsValid("v"+strings.TrimPrefix(v, "v")) {
		return fmt.Errorf("telemetry.service_version %q is not a semantic version", v)
	}
	return nil
}

// Load builds the configuration from defaults, the YAML file at path and
// the environment.
//
// Description:
//
//	An empty path skips the file layer. Keys missing from the file keep
//	their default values.
//
// Outputs:
//
//	Config - The validated configuration.
//	error - Non-nil if the file cannot be read or parsed, or validation fails.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return Config{}, fmt.Errorf("invalid config: %s failed %q", verrs[0].Namespace(), verrs[0].Tag())
		}
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Write marshals cfg as YAML to path.
func Write(path string, cfg Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
