// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package config loads uiserver configuration from environment variables.
package config

import (
	"fmt"

	"github.com/caarlos0/env/v9"

	"github.com/AleutianAI/wheelhouse/pkg/logging"
)

// Config holds all configuration for the uiserver.
type Config struct {
	Server  ServerConfig
	Session SessionConfig
	Log     LogConfig
	Trace   TraceConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host            string `env:"SERVER_HOST" envDefault:"0.0.0.0"`
	Port            int    `env:"SERVER_PORT" envDefault:"8080"`
	ShutdownTimeout int    `env:"SERVER_SHUTDOWN_SECONDS" envDefault:"10"`
}

// SessionConfig holds session lifecycle and rate limit configuration.
type SessionConfig struct {
	IdleTimeoutSec  int     `env:"SESSION_IDLE_SECONDS" envDefault:"300"`
	ReapIntervalSec int     `env:"SESSION_REAP_SECONDS" envDefault:"30"`
	MessagesPerSec  float64 `env:"SESSION_MESSAGES_PER_SEC" envDefault:"20"`
	MessageBurst    int     `env:"SESSION_MESSAGE_BURST" envDefault:"40"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level string `env:"LOG_LEVEL" envDefault:"info"`
	Dir   string `env:"LOG_DIR"`
	JSON  bool   `env:"LOG_JSON" envDefault:"true"`
}

// TraceConfig holds tracing configuration.
type TraceConfig struct {
	Enabled bool `env:"TRACE_ENABLED" envDefault:"false"`
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}

	if err := env.Parse(&cfg.Server); err != nil {
		return nil, fmt.Errorf("parsing server config: %w", err)
	}
	if err := env.Parse(&cfg.Session); err != nil {
		return nil, fmt.Errorf("parsing session config: %w", err)
	}
	if err := env.Parse(&cfg.Log); err != nil {
		return nil, fmt.Errorf("parsing log config: %w", err)
	}
	if err := env.Parse(&cfg.Trace); err != nil {
		return nil, fmt.Errorf("parsing trace config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Addr returns the server address in host:port format.
func (c *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// LogLevel returns the parsed log level. Call Validate first; after a
// successful Validate this cannot fail.
func (c *LogConfig) LogLevel() logging.Level {
	level, _ := logging.ParseLevel(c.Level)
	return level
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("SERVER_PORT must be in 1..65535, got %d", c.Server.Port)
	}
	if c.Server.ShutdownTimeout < 1 {
		return fmt.Errorf("SERVER_SHUTDOWN_SECONDS must be positive, got %d", c.Server.ShutdownTimeout)
	}
	if c.Session.IdleTimeoutSec < 1 {
		return fmt.Errorf("SESSION_IDLE_SECONDS must be positive, got %d", c.Session.IdleTimeoutSec)
	}
	if c.Session.ReapIntervalSec < 1 {
		return fmt.Errorf("SESSION_REAP_SECONDS must be positive, got %d", c.Session.ReapIntervalSec)
	}
	if c.Session.MessagesPerSec <= 0 {
		return fmt.Errorf("SESSION_MESSAGES_PER_SEC must be positive, got %v", c.Session.MessagesPerSec)
	}
	if c.Session.MessageBurst < 1 {
		return fmt.Errorf("SESSION_MESSAGE_BURST must be positive, got %d", c.Session.MessageBurst)
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("LOG_LEVEL: %w", err)
	}
	return nil
}
