// Medibook - Real-time Presence and Notification Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/medibook

package config

import (
	"fmt"
	"strings"
	"time"
)

// minJWTSecretLength is the minimum HS256 secret length accepted.
const minJWTSecretLength = 32

var validLogLevels = map[string]bool{
	"trace": true,
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

var validLogFormats = map[string]bool{
	"json":    true,
	"console": true,
}

var validEnvironments = map[string]bool{
	"development": true,
	"staging":     true,
	"production":  true,
}

// placeholderPatterns indicate the operator forgot to set a real secret.
var placeholderPatterns = []string{
	"REPLACE",
	"CHANGEME",
	"CHANGE_ME",
	"YOUR_SECRET",
	"PLACEHOLDER",
	"EXAMPLE",
}

// Validate checks that required configuration is present and valid
func (c *Config) Validate() error {
	if err := c.validateServer(); err != nil {
		return err
	}
	if err := c.validateSecurity(); err != nil {
		return err
	}
	if err := c.validateRealtime(); err != nil {
		return err
	}
	if err := c.validateEvents(); err != nil {
		return err
	}
	if err := c.validateAuthz(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("HTTP_PORT must be between 1 and 65535")
	}
	if !validEnvironments[c.Server.Environment] {
		return fmt.Errorf("ENVIRONMENT must be one of: development, staging, production")
	}
	return nil
}

func (c *Config) validateSecurity() error {
	if err := c.validateJWTSecret(); err != nil {
		return err
	}
	if c.Security.AuthTimeout <= 0 {
		return fmt.Errorf("AUTH_TIMEOUT must be positive")
	}
	if c.IsProduction() && c.hasWildcardCORS() {
		return fmt.Errorf("CORS_ORIGINS=* (wildcard) is not allowed in production; " +
			"set specific origins, e.g. CORS_ORIGINS=https://app.example.org")
	}
	return c.validateRateLimits()
}

func (c *Config) validateJWTSecret() error {
	secret := c.Security.JWTSecret
	if len(secret) < minJWTSecretLength {
		return fmt.Errorf("JWT_SECRET must be at least %d characters", minJWTSecretLength)
	}
	upper := strings.ToUpper(secret)
	for _, p := range placeholderPatterns {
		if strings.Contains(upper, p) {
			return fmt.Errorf("JWT_SECRET appears to be a placeholder value (contains %q)", p)
		}
	}
	return nil
}

func (c *Config) hasWildcardCORS() bool {
	for _, origin := range c.Security.CORSOrigins {
		if origin == "*" {
			return true
		}
	}
	return false
}

func (c *Config) validateRateLimits() error {
	if c.Security.RateLimitDisabled {
		return nil
	}
	if c.Security.RateLimitReqs < 1 || c.Security.RateLimitReqs > 100000 {
		return fmt.Errorf("RATE_LIMIT_REQUESTS must be between 1 and 100000")
	}
	if c.Security.RateLimitWindow < time.Second || c.Security.RateLimitWindow > time.Hour {
		return fmt.Errorf("RATE_LIMIT_WINDOW must be between 1s and 1h")
	}
	return nil
}

func (c *Config) validateRealtime() error {
	r := c.Realtime
	if r.SendQueueSize < 1 {
		return fmt.Errorf("REALTIME_SEND_QUEUE_SIZE must be at least 1")
	}
	if r.WriteWait <= 0 || r.PongWait <= 0 {
		return fmt.Errorf("REALTIME_WRITE_WAIT and REALTIME_PONG_WAIT must be positive")
	}
	if r.PingPeriod() <= 0 {
		return fmt.Errorf("REALTIME_PONG_WAIT is too small to derive a ping period")
	}
	if r.MaxMessageSize < 512 {
		return fmt.Errorf("REALTIME_MAX_MESSAGE_SIZE must be at least 512 bytes")
	}
	if r.InboundRate <= 0 || r.InboundBurst < 1 {
		return fmt.Errorf("REALTIME_INBOUND_RATE must be positive and REALTIME_INBOUND_BURST at least 1")
	}
	return nil
}

func (c *Config) validateEvents() error {
	if !c.Events.Enabled {
		return nil
	}
	if c.Events.URL == "" {
		return fmt.Errorf("NATS_URL is required when NATS_ENABLED=true")
	}
	if c.Events.Subject == "" {
		return fmt.Errorf("NATS_SUBJECT is required when NATS_ENABLED=true")
	}
	if c.Events.SubscribersCount < 1 {
		return fmt.Errorf("NATS_SUBSCRIBERS must be at least 1")
	}
	return nil
}

func (c *Config) validateAuthz() error {
	if c.Authz.ReloadInterval < 0 || c.Authz.CacheTTL < 0 {
		return fmt.Errorf("CASBIN_RELOAD and CASBIN_CACHE_TTL must not be negative")
	}
	if c.Authz.ReloadInterval > 0 && c.Authz.PolicyPath == "" {
		return fmt.Errorf("CASBIN_RELOAD requires CASBIN_POLICY_PATH")
	}
	return nil
}

func (c *Config) validateLogging() error {
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("LOG_LEVEL must be one of: trace, debug, info, warn, error")
	}
	if c.Logging.Format != "" && !validLogFormats[c.Logging.Format] {
		return fmt.Errorf("LOG_FORMAT must be one of: json, console")
	}
	return nil
}
