// Medibook - Real-time Presence and Notification Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/medibook

/*
Package config loads and validates Medibook runtime configuration.

Configuration is layered with Koanf v2: struct defaults, then an optional
YAML file (CONFIG_PATH, ./config.yaml, /etc/medibook/config.yaml), then
environment variables. Only the variables listed in envMappings are read.

# Environment Variables

Server:
  - HTTP_HOST, HTTP_PORT (default 0.0.0.0:4000), HTTP_TIMEOUT, SHUTDOWN_TIMEOUT
  - ENVIRONMENT: development, staging or production

Security:
  - JWT_SECRET: HS256 secret shared with the token issuer (required, 32+ chars)
  - AUTH_TIMEOUT: connect-time authentication deadline (default 5s)
  - CORS_ORIGINS: comma-separated list, wildcard rejected in production
  - RATE_LIMIT_REQUESTS, RATE_LIMIT_WINDOW, DISABLE_RATE_LIMIT

Realtime:
  - REALTIME_SEND_QUEUE_SIZE (default 256)
  - REALTIME_WRITE_WAIT, REALTIME_PONG_WAIT, REALTIME_MAX_MESSAGE_SIZE
  - REALTIME_INBOUND_RATE, REALTIME_INBOUND_BURST
  - REALTIME_FORCE_CLOSE_ON_REPLACE (default true)

Appointment events:
  - NATS_ENABLED, NATS_URL, NATS_SUBJECT, NATS_QUEUE_GROUP, NATS_SUBSCRIBERS

Authorization:
  - CASBIN_MODEL_PATH, CASBIN_POLICY_PATH (embedded defaults when unset)
  - CASBIN_RELOAD: policy file reload interval (0 disables)
  - CASBIN_CACHE_TTL: decision cache lifetime (default 1m, 0 disables)

Logging:
  - LOG_LEVEL, LOG_FORMAT, LOG_CALLER

# Usage

	cfg, err := config.LoadWithKoanf()
	if err != nil {
	    logging.Fatal().Err(err).Msg("Failed to load configuration")
	}
*/
package config
