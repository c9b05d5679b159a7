// Medibook - Real-time Presence and Notification Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/medibook

package websocket

import (
	"fmt"
	"sync"
	"testing"
	"time"
)

func TestRegistry_RegisterAndLookup(t *testing.T) {
	r := NewRegistry()
	c := newTestClient("u1", "patient", 4)

	rec, replaced := r.Register("u1", c, "patient", "u1@example.org")
	if replaced != nil {
		t.Errorf("first Register should not replace, got %v", replaced)
	}
	if rec.Handle != c || rec.UserID != "u1" || rec.Role != "patient" || rec.Email != "u1@example.org" {
		t.Errorf("unexpected record %+v", rec)
	}
	if rec.ConnectedAt.IsZero() {
		t.Error("ConnectedAt should be set")
	}

	got, ok := r.Lookup("u1")
	if !ok || got.Handle != c {
		t.Errorf("Lookup(u1) = %+v, %v", got, ok)
	}
	if _, ok := r.Lookup("nobody"); ok {
		t.Error("Lookup(nobody) should be false")
	}
}

func TestRegistry_AtMostOneRecordPerUser(t *testing.T) {
	r := NewRegistry()
	first := newTestClient("u1", "patient", 4)
	second := newTestClient("u1", "patient", 4)

	r.Register("u1", first, "patient", "")
	_, replaced := r.Register("u1", second, "patient", "")

	if replaced != first {
		t.Errorf("Register should return the superseded handle")
	}
	if r.CountAll() != 1 {
		t.Errorf("CountAll() = %d, want 1", r.CountAll())
	}
	rec, _ := r.Lookup("u1")
	if rec.Handle != second {
		t.Error("Lookup should return the newest handle")
	}
}

func TestRegistry_DeregisterStaleHandleIsNoOp(t *testing.T) {
	r := NewRegistry()
	first := newTestClient("u1", "doctor", 4)
	second := newTestClient("u1", "doctor", 4)

	r.Register("u1", first, "doctor", "")
	r.Register("u1", second, "doctor", "")

	if r.Deregister("u1", first) {
		t.Error("Deregister with superseded handle should not remove the record")
	}
	if rec, ok := r.Lookup("u1"); !ok || rec.Handle != second {
		t.Error("newer connection must survive a stale teardown")
	}
}

func TestRegistry_DeregisterIdempotent(t *testing.T) {
	r := NewRegistry()
	c := newTestClient("u1", "patient", 4)
	r.Register("u1", c, "patient", "")

	if !r.Deregister("u1", c) {
		t.Error("first Deregister should remove the record")
	}
	if r.Deregister("u1", c) {
		t.Error("second Deregister should be a no-op")
	}
	if r.Deregister("never-registered", c) {
		t.Error("Deregister of unknown user should be a no-op")
	}
	if r.CountAll() != 0 {
		t.Errorf("CountAll() = %d, want 0", r.CountAll())
	}
}

func TestRegistry_CountByRole(t *testing.T) {
	r := NewRegistry()
	users := []struct{ id, role string }{
		{"a1", "admin"}, {"d1", "doctor"}, {"d2", "doctor"}, {"p1", "patient"}, {"p2", "patient"}, {"p3", "patient"},
	}
	for _, u := range users {
		r.Register(u.id, newTestClient(u.id, u.role, 1), u.role, "")
	}

	counts := r.CountByRole()
	want := map[string]int{"admin": 1, "doctor": 2, "patient": 3}
	for role, n := range want {
		if counts[role] != n {
			t.Errorf("CountByRole()[%s] = %d, want %d", role, counts[role], n)
		}
	}
	if r.CountAll() != 6 {
		t.Errorf("CountAll() = %d, want 6", r.CountAll())
	}
}

func TestRegistry_ListAllOrdered(t *testing.T) {
	r := NewRegistry()
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	tick := 0
	r.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Second)
	}

	r.Register("zed", newTestClient("zed", "patient", 1), "patient", "")
	r.Register("amy", newTestClient("amy", "doctor", 1), "doctor", "")

	list := r.ListAll()
	if len(list) != 2 || list[0].UserID != "zed" || list[1].UserID != "amy" {
		t.Errorf("ListAll() order = %+v, want by connection time", list)
	}
}

func TestRegistry_ConcurrentRegisterDeregister(t *testing.T) {
	r := NewRegistry()
	var wg sync.WaitGroup

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			userID := fmt.Sprintf("user-%d", i%10)
			c := newTestClient(userID, "patient", 1)
			r.Register(userID, c, "patient", "")
			r.Lookup(userID)
			r.CountByRole()
			r.Deregister(userID, c)
		}(i)
	}
	wg.Wait()

	if n := r.CountAll(); n > 10 {
		t.Errorf("CountAll() = %d, must never exceed distinct users", n)
	}
}
