// Medibook - Real-time Presence and Notification Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/medibook

package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths where config files are searched in order of priority.
// The first file found will be used.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/medibook/config.yaml",
	"/etc/medibook/config.yml",
}

// ConfigPathEnvVar is the environment variable that can override the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

// defaultConfig returns a Config with all default values.
// These are applied first, then overridden by config file and env vars.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            4000,
			Host:            "0.0.0.0",
			Timeout:         30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			Environment:     "development",
		},
		Security: SecurityConfig{
			JWTSecret:         "",
			AuthTimeout:       5 * time.Second,
			CORSOrigins:       []string{"*"},
			RateLimitReqs:     100,
			RateLimitWindow:   time.Minute,
			RateLimitDisabled: false,
		},
		Realtime: RealtimeConfig{
			SendQueueSize:       256,
			WriteWait:           10 * time.Second,
			PongWait:            60 * time.Second,
			MaxMessageSize:      64 * 1024,
			InboundRate:         20,
			InboundBurst:        40,
			ForceCloseOnReplace: true,
		},
		Events: EventsConfig{
			Enabled:          false,
			URL:              "nats://127.0.0.1:4222",
			Subject:          "appointments.events",
			QueueGroup:       "medibook-realtime",
			SubscribersCount: 2,
			ReconnectWait:    2 * time.Second,
			MaxReconnects:    -1,
		},
		Authz: AuthzConfig{
			CacheTTL: time.Minute,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
	}
}

// LoadWithKoanf loads configuration with layered sources:
//  1. Defaults
//  2. Optional YAML config file
//  3. Environment variables
//
// Precedence is ENV > File > Defaults. The result is validated before return.
func LoadWithKoanf() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if configPath := findConfigFile(); configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	// JWT_SECRET -> security.jwt_secret, REALTIME_SEND_QUEUE_SIZE -> realtime.send_queue_size
	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
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
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// findConfigFile returns the first existing config file, or "" if none.
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

// sliceConfigPaths defines which config paths should be parsed as comma-separated slices
var sliceConfigPaths = []string{
	"security.cors_origins",
}

// processSliceFields converts comma-separated env values to slices.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		strVal, ok := k.Get(path).(string)
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
		if len(trimmed) == 0 {
			continue
		}
		if err := k.Set(path, trimmed); err != nil {
			return fmt.Errorf("failed to set %s: %w", path, err)
		}
	}
	return nil
}

// envMappings maps environment variable names (lowercased) to koanf paths.
// Unmapped variables are ignored so the process environment cannot leak into config.
var envMappings = map[string]string{
	// Server
	"http_port":        "server.port",
	"http_host":        "server.host",
	"http_timeout":     "server.timeout",
	"shutdown_timeout": "server.shutdown_timeout",
	"environment":      "server.environment",

	// Security
	"jwt_secret":          "security.jwt_secret",
	"auth_timeout":        "security.auth_timeout",
	"cors_origins":        "security.cors_origins",
	"rate_limit_requests": "security.rate_limit_reqs",
	"rate_limit_window":   "security.rate_limit_window",
	"disable_rate_limit":  "security.rate_limit_disabled",

	// Realtime transport
	"realtime_send_queue_size":        "realtime.send_queue_size",
	"realtime_write_wait":             "realtime.write_wait",
	"realtime_pong_wait":              "realtime.pong_wait",
	"realtime_max_message_size":       "realtime.max_message_size",
	"realtime_inbound_rate":           "realtime.inbound_rate",
	"realtime_inbound_burst":          "realtime.inbound_burst",
	"realtime_force_close_on_replace": "realtime.force_close_on_replace",

	// Appointment event ingest
	"nats_enabled":        "events.enabled",
	"nats_url":            "events.url",
	"nats_subject":        "events.subject",
	"nats_queue_group":    "events.queue_group",
	"nats_subscribers":    "events.subscribers_count",
	"nats_reconnect_wait": "events.reconnect_wait",
	"nats_max_reconnects": "events.max_reconnects",

	// Authorization
	"casbin_model_path":  "authz.model_path",
	"casbin_policy_path": "authz.policy_path",
	"casbin_reload":      "authz.reload_interval",
	"casbin_cache_ttl":   "authz.cache_ttl",

	// Logging
	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",
}

// envTransformFunc transforms environment variable names to koanf config paths.
//
// Examples:
//   - JWT_SECRET -> security.jwt_secret
//   - NATS_URL -> events.url
//   - HTTP_PORT -> server.port
func envTransformFunc(key string) string {
	if mapped, ok := envMappings[strings.ToLower(key)]; ok {
		return mapped
	}
	return ""
}

func joinHostPort(host string, port int) string {
	return net.JoinHostPort(host, strconv.Itoa(port))
}
