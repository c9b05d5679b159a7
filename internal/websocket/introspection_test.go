// Medibook - Real-time Presence and Notification Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/medibook

package websocket

import (
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/tomtom215/medibook/internal/auth"
)

func TestIntrospection_Stats(t *testing.T) {
	hub := NewHub(nil, testRealtimeConfig())
	for _, id := range []auth.Identity{
		{UserID: "a1", Role: "admin"},
		{UserID: "d1", Role: "doctor"},
		{UserID: "p1", Role: "patient"},
		{UserID: "p2", Role: "patient"},
	} {
		if _, err := hub.Sessions.Attach(id, nil); err != nil {
			t.Fatalf("Attach(%s): %v", id.UserID, err)
		}
	}

	stats := hub.Introspection.Stats()
	if stats.Total != 4 {
		t.Errorf("Total = %d, want 4", stats.Total)
	}
	if stats.ByRole["patient"] != 2 || stats.ByRole["doctor"] != 1 || stats.ByRole["admin"] != 1 {
		t.Errorf("ByRole = %v", stats.ByRole)
	}
	if !hub.Introspection.IsConnected("p2") || hub.Introspection.IsConnected("p3") {
		t.Error("IsConnected mismatch")
	}
	if n := len(hub.Introspection.ListConnections()); n != 4 {
		t.Errorf("ListConnections() returned %d records, want 4", n)
	}
}

func TestIntrospection_ForceDisconnectUnknownUser(t *testing.T) {
	hub := NewHub(nil, testRealtimeConfig())
	if hub.Introspection.ForceDisconnect("nobody") {
		t.Error("ForceDisconnect() of unknown user should return false")
	}
}

func TestIntrospection_ForceDisconnect(t *testing.T) {
	env := newTestEnv(t, testRealtimeConfig())
	conn := env.dial(t, "p1", "patient")

	if !env.hub.Introspection.ForceDisconnect("p1") {
		t.Fatal("ForceDisconnect() should report an existing connection")
	}

	msg := readEnvelope(t, conn)
	if msg.Type != MessageTypeForceDisconnect {
		t.Fatalf("got %q, want force_disconnect", msg.Type)
	}
	var data ForceDisconnectData
	decodeData(t, msg, &data)
	if data.Reason != ForceDisconnectReasonAdmin {
		t.Errorf("reason = %q", data.Reason)
	}

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := conn.ReadMessage(); !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
		t.Errorf("expected normal close after notice, got %v", err)
	}

	eventually(t, 2*time.Second, func() bool {
		return !env.hub.Introspection.IsConnected("p1")
	}, "registry cleanup after force disconnect")
}
