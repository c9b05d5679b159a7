// Medibook - Real-time Presence and Notification Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/medibook

package config

import "time"

// Config is the complete runtime configuration.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Security SecurityConfig `koanf:"security"`
	Realtime RealtimeConfig `koanf:"realtime"`
	Events   EventsConfig   `koanf:"events"`
	Authz    AuthzConfig    `koanf:"authz"`
	Logging  LoggingConfig  `koanf:"logging"`
}

// ServerConfig holds HTTP listener settings
type ServerConfig struct {
	Port            int           `koanf:"port"`
	Host            string        `koanf:"host"`
	Timeout         time.Duration `koanf:"timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	Environment     string        `koanf:"environment"` // development, staging, production
}

// SecurityConfig holds authentication and HTTP hardening settings
type SecurityConfig struct {
	// JWTSecret is the shared HS256 secret used to verify connection tokens.
	JWTSecret string `koanf:"jwt_secret"`

	// AuthTimeout bounds how long a connect-time token check may take.
	AuthTimeout time.Duration `koanf:"auth_timeout"`

	// CORSOrigins lists allowed origins for HTTP and WebSocket upgrades.
	CORSOrigins []string `koanf:"cors_origins"`

	RateLimitReqs     int           `koanf:"rate_limit_reqs"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`
}

// RealtimeConfig tunes the per-connection transport.
type RealtimeConfig struct {
	// SendQueueSize is the capacity of each connection's outbound queue.
	// A full queue drops the message for that recipient only.
	SendQueueSize int `koanf:"send_queue_size"`

	WriteWait      time.Duration `koanf:"write_wait"`
	PongWait       time.Duration `koanf:"pong_wait"`
	MaxMessageSize int64         `koanf:"max_message_size"`

	// InboundRate is the sustained number of client frames per second
	// accepted on a single connection; InboundBurst is the bucket size.
	InboundRate  float64 `koanf:"inbound_rate"`
	InboundBurst int     `koanf:"inbound_burst"`

	// ForceCloseOnReplace closes a user's previous connection when the
	// same user connects again.
	ForceCloseOnReplace bool `koanf:"force_close_on_replace"`
}

// PingPeriod returns the interval between server pings. It must stay below PongWait.
func (r RealtimeConfig) PingPeriod() time.Duration {
	return (r.PongWait * 9) / 10
}

// EventsConfig configures appointment lifecycle ingest from NATS.
type EventsConfig struct {
	Enabled    bool   `koanf:"enabled"`
	URL        string `koanf:"url"`
	Subject    string `koanf:"subject"`
	QueueGroup string `koanf:"queue_group"`

	// SubscribersCount is the number of concurrent consumer goroutines.
	SubscribersCount int           `koanf:"subscribers_count"`
	ReconnectWait    time.Duration `koanf:"reconnect_wait"`
	MaxReconnects    int           `koanf:"max_reconnects"`
}

// AuthzConfig points at optional Casbin model/policy overrides.
// Empty paths use the embedded defaults.
type AuthzConfig struct {
	ModelPath  string `koanf:"model_path"`
	PolicyPath string `koanf:"policy_path"`

	// ReloadInterval re-reads PolicyPath periodically. Zero disables reload.
	ReloadInterval time.Duration `koanf:"reload_interval"`

	// CacheTTL is how long enforcement decisions are cached. Zero disables caching.
	CacheTTL time.Duration `koanf:"cache_ttl"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	// Level is the minimum log level: trace, debug, info, warn, error.
	// Default: info
	Level string `koanf:"level"`

	// Format is the output format: json or console.
	// Default: json
	Format string `koanf:"format"`

	// Caller includes caller file and line number in logs.
	Caller bool `koanf:"caller"`
}

// IsProduction reports whether the server runs in production mode.
func (c *Config) IsProduction() bool {
	return c.Server.Environment == "production"
}

// ListenAddr returns host:port for the HTTP server.
func (c *Config) ListenAddr() string {
	return joinHostPort(c.Server.Host, c.Server.Port)
}
