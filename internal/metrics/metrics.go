// Medibook - Real-time Presence and Notification Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/medibook

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// API Endpoint Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "api_active_requests",
			Help: "Current number of active API requests",
		},
	)

	APIRateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_rate_limit_hits_total",
			Help: "Total number of rate limit rejections",
		},
		[]string{"endpoint"},
	)

	// WebSocket Metrics
	WSConnections = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "websocket_connections",
			Help: "Current number of registered WebSocket connections",
		},
		[]string{"role"},
	)

	WSMessagesSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "websocket_messages_sent_total",
			Help: "Total number of WebSocket envelopes enqueued for delivery",
		},
		[]string{"type"},
	)

	WSMessagesReceived = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "websocket_messages_received_total",
			Help: "Total number of client frames received",
		},
		[]string{"type"},
	)

	WSDeliveryFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "websocket_delivery_failures_total",
			Help: "Total number of per-recipient deliveries dropped",
		},
		[]string{"reason"}, // "queue_full", "closed"
	)

	WSAuthFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "websocket_auth_failures_total",
			Help: "Total number of refused connection attempts",
		},
		[]string{"reason"},
	)

	WSReplacedConnections = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "websocket_replaced_connections_total",
			Help: "Total number of connections superseded by a newer one from the same user",
		},
	)

	WSTopics = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "websocket_topics",
			Help: "Current number of non-empty topics",
		},
	)

	// Appointment event ingest
	EventsConsumed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "appointment_events_total",
			Help: "Total number of appointment lifecycle events consumed",
		},
		[]string{"source", "result"}, // source: nats, http; result: delivered, rejected, failed
	)
)

// RecordAPIRequest records an API request metric
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// TrackActiveRequest tracks active API requests
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}

// RecordRateLimitHit counts a request rejected by the HTTP rate limiter.
func RecordRateLimitHit(endpoint string) {
	APIRateLimitHits.WithLabelValues(endpoint).Inc()
}

// RecordConnectionOpened increments the connection gauge for role.
func RecordConnectionOpened(role string) {
	WSConnections.WithLabelValues(role).Inc()
}

// RecordConnectionClosed decrements the connection gauge for role.
func RecordConnectionClosed(role string) {
	WSConnections.WithLabelValues(role).Dec()
}

// RecordMessageSent counts an envelope enqueued to one recipient.
func RecordMessageSent(msgType string) {
	WSMessagesSent.WithLabelValues(msgType).Inc()
}

// RecordMessageReceived counts an inbound client frame.
func RecordMessageReceived(msgType string) {
	WSMessagesReceived.WithLabelValues(msgType).Inc()
}

// RecordDeliveryFailure counts a dropped per-recipient delivery.
func RecordDeliveryFailure(reason string) {
	WSDeliveryFailures.WithLabelValues(reason).Inc()
}

// RecordAuthFailure counts a refused connection attempt.
func RecordAuthFailure(reason string) {
	WSAuthFailures.WithLabelValues(reason).Inc()
}

// SetTopicCount updates the live topic gauge.
func SetTopicCount(n int) {
	WSTopics.Set(float64(n))
}

// RecordEvent counts an appointment event by source and outcome.
func RecordEvent(source, result string) {
	EventsConsumed.WithLabelValues(source, result).Inc()
}
