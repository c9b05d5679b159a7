// Medibook - Real-time Presence and Notification Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/medibook

package api

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/medibook/internal/auth"
	"github.com/tomtom215/medibook/internal/authz"
	"github.com/tomtom215/medibook/internal/config"
	"github.com/tomtom215/medibook/internal/dispatch"
	"github.com/tomtom215/medibook/internal/logging"
	"github.com/tomtom215/medibook/internal/websocket"
)

//nolint:gochecknoinits // init ensures consistent logging for tests
func init() {
	logging.Init(logging.Config{
		Level:  "info",
		Format: "console",
		Output: io.Discard,
	})
}

const testJWTSecret = "api-test-secret-with-at-least-32-characters"

type apiEnv struct {
	hub     *websocket.Hub
	handler *Handler
	tokens  *auth.JWTManager
	router  http.Handler
}

func testSecurityConfig() *config.SecurityConfig {
	return &config.SecurityConfig{
		JWTSecret:         testJWTSecret,
		AuthTimeout:       time.Second,
		CORSOrigins:       []string{"https://app.medibook.example"},
		RateLimitDisabled: true,
	}
}

func testRealtimeConfig() config.RealtimeConfig {
	return config.RealtimeConfig{
		SendQueueSize:       16,
		WriteWait:           time.Second,
		PongWait:            10 * time.Second,
		MaxMessageSize:      8 * 1024,
		InboundRate:         100,
		InboundBurst:        100,
		ForceCloseOnReplace: true,
	}
}

// newAPIEnv wires the router the same way the server binary does, with the
// embedded authorization policy.
func newAPIEnv(t *testing.T, sec *config.SecurityConfig) *apiEnv {
	t.Helper()

	tokens, err := auth.NewJWTManager(sec)
	if err != nil {
		t.Fatalf("NewJWTManager() error = %v", err)
	}
	authn := auth.NewTokenAuthenticator(tokens, sec.AuthTimeout)
	hub := websocket.NewHub(authn, testRealtimeConfig())
	notifiers := dispatch.New(hub.Router)
	hub.Sessions.SetInboundHandler(notifiers.InboundHandler())

	enforcer, err := authz.NewEnforcer(config.AuthzConfig{})
	if err != nil {
		t.Fatalf("NewEnforcer() error = %v", err)
	}
	t.Cleanup(enforcer.Close)

	handler := NewHandler(hub, notifiers.Appointments, sec)
	mw := NewChiMiddleware(ChiMiddlewareConfigFromSecurity(sec))
	return &apiEnv{
		hub:     hub,
		handler: handler,
		tokens:  tokens,
		router:  NewRouter(handler, mw, authn, enforcer).Setup(),
	}
}

func (e *apiEnv) token(t *testing.T, userID, role string) string {
	t.Helper()
	token, err := e.tokens.GenerateToken(userID, role, userID+"@example.org")
	if err != nil {
		t.Fatalf("GenerateToken() error = %v", err)
	}
	return token
}

// do sends a request through the router. An empty token sends no
// Authorization header.
func (e *apiEnv) do(t *testing.T, method, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

type testEnvelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code      string                 `json:"code"`
		Message   string                 `json:"message"`
		Details   map[string]interface{} `json:"details"`
		RequestID string                 `json:"request_id"`
	} `json:"error"`
	Meta *APIMeta `json:"meta"`
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) testEnvelope {
	t.Helper()
	var env testEnvelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("Failed to decode response %q: %v", rec.Body.String(), err)
	}
	return env
}

func decodeData(t *testing.T, env testEnvelope, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(env.Data, v); err != nil {
		t.Fatalf("Failed to decode data %s: %v", env.Data, err)
	}
}

func assertError(t *testing.T, rec *httptest.ResponseRecorder, status int, code string) testEnvelope {
	t.Helper()
	if rec.Code != status {
		t.Fatalf("status = %d, want %d (body %s)", rec.Code, status, rec.Body.String())
	}
	env := decodeEnvelope(t, rec)
	if env.Success {
		t.Errorf("success = true for an error response")
	}
	if env.Error == nil {
		t.Fatalf("error object missing in %s", rec.Body.String())
	}
	if env.Error.Code != code {
		t.Errorf("error code = %q, want %q", env.Error.Code, code)
	}
	return env
}
