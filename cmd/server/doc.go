// Medibook - Real-time Presence and Notification Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/medibook

/*
Command server runs the Medibook realtime service: authenticated WebSocket
connections for patients, doctors and admins, appointment notification
fan-out, chat relay with typing indicators, and the admin presence API.

Startup order:

 1. Configuration (koanf: defaults, optional config.yaml, environment)
 2. Logging (zerolog)
 3. Token verification (HS256 JWT shared with the booking API)
 4. Realtime hub and the appointment, chat and typing dispatchers
 5. Casbin policy for the admin and ingest routes
 6. NATS event bridge (NATS_ENABLED=true)
 7. chi router and HTTP server
 8. suture supervisor tree

Common environment variables:

	HTTP_PORT            listen port (default 4000)
	JWT_SECRET           required, at least 32 characters
	CORS_ORIGINS         comma-separated browser origins
	NATS_ENABLED         consume appointment events from NATS
	NATS_URL             nats://127.0.0.1:4222
	NATS_SUBJECT         appointments.events
	CASBIN_POLICY_PATH   policy override; the embedded policy is used otherwise
	LOG_LEVEL, LOG_FORMAT

SIGINT or SIGTERM cancels the tree: new connections are refused, every live
session is closed, and in-flight HTTP requests drain for SHUTDOWN_TIMEOUT.
*/
package main
