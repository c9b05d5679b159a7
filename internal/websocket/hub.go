// Medibook - Real-time Presence and Notification Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/medibook

package websocket

import (
	"context"
	"time"

	"github.com/tomtom215/medibook/internal/config"
	"github.com/tomtom215/medibook/internal/logging"
	"github.com/tomtom215/medibook/internal/metrics"
)

// statsInterval is how often the hub logs and exports connection counts.
const statsInterval = 30 * time.Second

// ShutdownReason identifies why the hub is shutting down.
type ShutdownReason string

const (
	// ShutdownReasonContextCanceled is the normal graceful path (e.g. SIGTERM).
	ShutdownReasonContextCanceled ShutdownReason = "context_canceled"

	// ShutdownReasonContextDeadline indicates the context deadline was exceeded.
	ShutdownReasonContextDeadline ShutdownReason = "context_deadline"
)

// Hub owns one instance of each realtime component. There is no package
// level state; every collaborator receives the Hub's components explicitly.
type Hub struct {
	Registry      *Registry
	Router        *TopicRouter
	Sessions      *SessionController
	Introspection *Introspection

	statsInterval time.Duration
}

// NewHub wires a registry, router, session controller and introspection view.
func NewHub(authn Authenticator, cfg config.RealtimeConfig) *Hub {
	registry := NewRegistry()
	router := NewTopicRouter()
	return &Hub{
		Registry:      registry,
		Router:        router,
		Sessions:      NewSessionController(authn, registry, router, cfg),
		Introspection: NewIntrospection(registry),
		statsInterval: statsInterval,
	}
}

// Publish is a convenience for Router.Publish.
func (h *Hub) Publish(topic string, msg Message) int {
	return h.Router.Publish(topic, msg)
}

// GetClientCount returns the number of registered connections.
func (h *Hub) GetClientCount() int {
	return h.Registry.CountAll()
}

// Ready returns ErrShuttingDown once the hub has started refusing
// connections. It is used as a readiness probe.
func (h *Hub) Ready(_ context.Context) error {
	if !h.Sessions.Accepting() {
		return ErrShuttingDown
	}
	return nil
}

// RunWithContext blocks until ctx is done, periodically exporting connection
// counts. On cancellation every live session is torn down and ctx.Err() is
// returned. New connections are refused from that point on.
func (h *Hub) RunWithContext(ctx context.Context) error {
	ticker := time.NewTicker(h.statsInterval)
	defer ticker.Stop()

	for {
		// Shutdown takes priority over a pending tick.
		select {
		case <-ctx.Done():
			h.logGracefulShutdown(ctx)
			return ctx.Err()
		default:
		}

		select {
		case <-ctx.Done():
			h.logGracefulShutdown(ctx)
			return ctx.Err()
		case <-ticker.C:
			h.exportStats()
		}
	}
}

func (h *Hub) exportStats() {
	topics := h.Router.TopicCount()
	metrics.SetTopicCount(topics)
	logging.Debug().
		Str("component", "realtime-hub").
		Int("total_clients", h.Registry.CountAll()).
		Int("topics", topics).
		Msg("realtime hub stats")
}

// logGracefulShutdown closes all sessions and logs the shutdown. ctx.Err()
// is not logged as an error since cancellation is the expected path.
func (h *Hub) logGracefulShutdown(ctx context.Context) {
	closed := h.Sessions.shutdown()

	logging.Info().
		Str("component", "realtime-hub").
		Str("reason", string(getShutdownReason(ctx))).
		Int("clients_closed", closed).
		Msg("realtime hub stopped")
}

func getShutdownReason(ctx context.Context) ShutdownReason {
	switch ctx.Err() {
	case context.DeadlineExceeded:
		return ShutdownReasonContextDeadline
	default:
		return ShutdownReasonContextCanceled
	}
}
