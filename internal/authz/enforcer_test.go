// Medibook - Real-time Presence and Notification Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/medibook

package authz

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/tomtom215/medibook/internal/config"
	"github.com/tomtom215/medibook/internal/logging"
)

//nolint:gochecknoinits // init ensures consistent logging for tests
func init() {
	logging.Init(logging.Config{
		Level:  "info",
		Format: "console",
		Output: io.Discard,
	})
}

func newTestEnforcer(t *testing.T, cfg config.AuthzConfig) *Enforcer {
	t.Helper()
	e, err := NewEnforcer(cfg)
	if err != nil {
		t.Fatalf("NewEnforcer() error = %v", err)
	}
	t.Cleanup(e.Close)
	return e
}

func TestEnforcer_EmbeddedPolicy(t *testing.T) {
	e := newTestEnforcer(t, config.AuthzConfig{CacheTTL: time.Minute})

	tests := []struct {
		subject string
		object  string
		action  string
		want    bool
	}{
		{"admin", "/api/v1/realtime/stats", ActionRead, true},
		{"admin", "/api/v1/realtime/users/u1/disconnect", ActionWrite, true},
		{"admin", "/api/v1/events/appointments", ActionWrite, true},
		{"admin", "/api/v1/realtime/stats", ActionDelete, false},
		{"superadmin", "/api/v1/realtime/connections", ActionRead, true},
		{"service", "/api/v1/events/appointments", ActionWrite, true},
		{"service", "/api/v1/realtime/stats", ActionRead, true},
		{"service", "/api/v1/realtime/users/u1/connected", ActionRead, true},
		{"service", "/api/v1/realtime/users/u1/disconnect", ActionWrite, false},
		{"service", "/api/v1/realtime/connections", ActionRead, false},
		{"doctor", "/api/v1/realtime/stats", ActionRead, false},
		{"patient", "/api/v1/events/appointments", ActionWrite, false},
		{"", "/api/v1/realtime/stats", ActionRead, false},
	}

	for _, tt := range tests {
		t.Run(tt.subject+" "+tt.action+" "+tt.object, func(t *testing.T) {
			got, err := e.Enforce(tt.subject, tt.object, tt.action)
			if err != nil {
				t.Fatalf("Enforce() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Enforce(%q, %q, %q) = %v, want %v", tt.subject, tt.object, tt.action, got, tt.want)
			}
		})
	}
}

func TestEnforcer_EnforceWithRole(t *testing.T) {
	e := newTestEnforcer(t, config.AuthzConfig{})

	if ok, _ := e.EnforceWithRole("d1", "doctor", "/api/v1/realtime/stats", ActionRead); ok {
		t.Fatal("doctor should not read stats by default")
	}
	if _, err := e.AddPolicy("d1", "/api/v1/realtime/stats", ActionRead); err != nil {
		t.Fatalf("AddPolicy() error = %v", err)
	}
	if ok, _ := e.EnforceWithRole("d1", "doctor", "/api/v1/realtime/stats", ActionRead); !ok {
		t.Error("direct user grant should allow")
	}
	if ok, _ := e.EnforceWithRole("d2", "doctor", "/api/v1/realtime/stats", ActionRead); ok {
		t.Error("grant to d1 must not extend to other doctors")
	}
	if ok, _ := e.EnforceWithRole("", "", "/api/v1/realtime/stats", ActionRead); ok {
		t.Error("anonymous caller must be denied")
	}
}

func TestEnforcer_PolicyChangesInvalidateCache(t *testing.T) {
	e := newTestEnforcer(t, config.AuthzConfig{CacheTTL: time.Hour})

	if ok, _ := e.Enforce("doctor", "/api/v1/realtime/stats", ActionRead); ok {
		t.Fatal("doctor should be denied before the grant")
	}
	if _, err := e.AddRoleForUser("doctor", "admin"); err != nil {
		t.Fatalf("AddRoleForUser() error = %v", err)
	}
	if ok, _ := e.Enforce("doctor", "/api/v1/realtime/stats", ActionRead); !ok {
		t.Error("cached deny should be dropped after a role change")
	}

	if _, err := e.RemovePolicy("admin", "/api/v1/realtime/*", ActionRead); err != nil {
		t.Fatalf("RemovePolicy() error = %v", err)
	}
	if ok, _ := e.Enforce("admin", "/api/v1/realtime/stats", ActionRead); ok {
		t.Error("cached allow should be dropped after a policy removal")
	}
}

func TestEnforcer_PolicyFile(t *testing.T) {
	dir := t.TempDir()
	policyPath := filepath.Join(dir, "policy.csv")
	writePolicy := func(body string) {
		t.Helper()
		if err := os.WriteFile(policyPath, []byte(body), 0o600); err != nil {
			t.Fatalf("write policy: %v", err)
		}
	}
	writePolicy("p, ops, /api/v1/realtime/*, read\n")

	e := newTestEnforcer(t, config.AuthzConfig{PolicyPath: policyPath, CacheTTL: time.Hour})

	if ok, _ := e.Enforce("ops", "/api/v1/realtime/stats", ActionRead); !ok {
		t.Error("ops should be allowed by the file policy")
	}
	if ok, _ := e.Enforce("admin", "/api/v1/realtime/stats", ActionRead); ok {
		t.Error("the file policy replaces the embedded one")
	}

	writePolicy("p, admin, /api/v1/realtime/*, read\n")
	if err := e.Reload(); err != nil {
		t.Fatalf("Reload() error = %v", err)
	}
	if ok, _ := e.Enforce("ops", "/api/v1/realtime/stats", ActionRead); ok {
		t.Error("reload should revoke ops")
	}
	if ok, _ := e.Enforce("admin", "/api/v1/realtime/stats", ActionRead); !ok {
		t.Error("reload should grant admin")
	}
}

func TestEnforcer_PeriodicReloadDropsCachedDecisions(t *testing.T) {
	policyPath := filepath.Join(t.TempDir(), "policy.csv")
	if err := os.WriteFile(policyPath, []byte("p, ops, /api/v1/realtime/*, read\n"), 0o600); err != nil {
		t.Fatalf("write policy: %v", err)
	}
	e := newTestEnforcer(t, config.AuthzConfig{
		PolicyPath:     policyPath,
		ReloadInterval: 10 * time.Millisecond,
		CacheTTL:       time.Hour,
	})

	if ok, _ := e.Enforce("ops", "/api/v1/realtime/stats", ActionRead); !ok {
		t.Fatal("ops should be allowed before the policy changes")
	}
	if err := os.WriteFile(policyPath, []byte("p, admin, /api/v1/realtime/*, read\n"), 0o600); err != nil {
		t.Fatalf("rewrite policy: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		ok, _ := e.Enforce("ops", "/api/v1/realtime/stats", ActionRead)
		if !ok {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("cached allow survived the periodic reload")
		}
		time.Sleep(10 * time.Millisecond)
	}
	e.Close()
	e.Close()
}

func TestEnforcer_ReloadWithoutFile(t *testing.T) {
	e := newTestEnforcer(t, config.AuthzConfig{PolicyPath: "/nonexistent/policy.csv"})
	if err := e.Reload(); !errors.Is(err, ErrNoAdapter) {
		t.Errorf("Reload() error = %v, want ErrNoAdapter", err)
	}
	if len(e.Policy()) == 0 {
		t.Error("missing policy file should fall back to the embedded policy")
	}
}

func TestLoadPolicyText_Malformed(t *testing.T) {
	e := newTestEnforcer(t, config.AuthzConfig{})
	if err := loadPolicyText(e.enforcer, "p, admin, /only-two-fields\n"); err == nil {
		t.Error("loadPolicyText() should reject a short rule")
	}
}

func TestMethodToAction(t *testing.T) {
	tests := map[string]string{
		"GET":     ActionRead,
		"HEAD":    ActionRead,
		"OPTIONS": ActionRead,
		"POST":    ActionWrite,
		"PUT":     ActionWrite,
		"PATCH":   ActionWrite,
		"DELETE":  ActionDelete,
	}
	for method, want := range tests {
		if got := methodToAction(method); got != want {
			t.Errorf("methodToAction(%s) = %s, want %s", method, got, want)
		}
	}
}
