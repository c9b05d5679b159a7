// Medibook - Real-time Presence and Notification Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/medibook

package websocket

import (
	"time"

	"github.com/tomtom215/medibook/internal/logging"
	"github.com/tomtom215/medibook/internal/metrics"
)

// ForceDisconnectReasonAdmin is sent when an operator closes a connection.
const ForceDisconnectReasonAdmin = "disconnected by administrator"

// Stats is a point-in-time connection summary.
type Stats struct {
	Total  int            `json:"total"`
	ByRole map[string]int `json:"byRole"`
}

// Introspection exposes read-only views of the registry plus administrative
// disconnect.
type Introspection struct {
	registry *Registry
	now      func() time.Time
}

// NewIntrospection creates an introspection view over registry.
func NewIntrospection(registry *Registry) *Introspection {
	return &Introspection{registry: registry, now: time.Now}
}

// Stats returns the total connection count and the count per role.
func (i *Introspection) Stats() Stats {
	return Stats{
		Total:  i.registry.CountAll(),
		ByRole: i.registry.CountByRole(),
	}
}

// IsConnected reports whether userID currently has a registered connection.
func (i *Introspection) IsConnected(userID string) bool {
	_, ok := i.registry.Lookup(userID)
	return ok
}

// ListConnections returns every registered connection.
func (i *Introspection) ListConnections() []ConnectionRecord {
	return i.registry.ListAll()
}

// ForceDisconnect closes userID's connection and reports whether one existed.
// A force_disconnect envelope is queued first on a best-effort basis; the
// registry and topics are cleaned up by the session's own teardown.
func (i *Introspection) ForceDisconnect(userID string) bool {
	rec, ok := i.registry.Lookup(userID)
	if !ok {
		return false
	}

	notice := Message{
		Type: MessageTypeForceDisconnect,
		Data: ForceDisconnectData{
			Reason:    ForceDisconnectReasonAdmin,
			Timestamp: Timestamp(i.now()),
		},
	}
	if err := rec.Handle.Enqueue(notice); err == nil {
		metrics.RecordMessageSent(MessageTypeForceDisconnect)
	}
	rec.Handle.Close()

	logging.Info().
		Str("user_id", userID).
		Str("connection_id", rec.ConnectionID).
		Msg("realtime client force-disconnected")
	return true
}
