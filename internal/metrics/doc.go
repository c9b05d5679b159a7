// Medibook - Real-time Presence and Notification Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/medibook

/*
Package metrics provides Prometheus instrumentation for Medibook.

Metrics are registered with the default registry through promauto and
exposed at /metrics:

	curl http://localhost:4000/metrics

# Available Metrics

Realtime:
  - websocket_connections{role}: registered connections per role
  - websocket_messages_sent_total{type}: envelopes enqueued per recipient
  - websocket_messages_received_total{type}: inbound client frames
  - websocket_delivery_failures_total{reason}: dropped deliveries (queue_full, closed)
  - websocket_auth_failures_total{reason}: refused connection attempts
  - websocket_replaced_connections_total
  - websocket_topics: live non-empty topics

HTTP:
  - api_requests_total{method,endpoint,status_code}
  - api_request_duration_seconds{method,endpoint}
  - api_active_requests
  - api_rate_limit_hits_total{endpoint}

Events:
  - appointment_events_total{source,result}
*/
package metrics
