// Medibook - Real-time Presence and Notification Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/medibook

package websocket

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"

	"github.com/tomtom215/medibook/internal/auth"
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

const testJWTSecret = "realtime-test-secret-with-at-least-32-chars"

// testRealtimeConfig mirrors production defaults with short timeouts.
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

type testEnv struct {
	hub     *Hub
	tokens  *auth.JWTManager
	server  *httptest.Server
	wsURL   string
	refused chan error
}

// newTestEnv starts an HTTP server whose /ws endpoint authenticates before
// upgrading, the same way the API handler does.
func newTestEnv(t *testing.T, cfg config.RealtimeConfig) *testEnv {
	t.Helper()

	tokens, err := auth.NewJWTManager(&config.SecurityConfig{JWTSecret: testJWTSecret})
	if err != nil {
		t.Fatalf("NewJWTManager: %v", err)
	}
	hub := NewHub(auth.NewTokenAuthenticator(tokens, time.Second), cfg)
	env := &testEnv{hub: hub, tokens: tokens, refused: make(chan error, 8)}

	upgrader := websocket.Upgrader{}
	env.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := hub.Sessions.Authenticate(r.Context(), auth.TokenFromRequest(r))
		if err != nil {
			env.refused <- err
			http.Error(w, auth.RefusalReason(err), http.StatusUnauthorized)
			return
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		if _, err := hub.Sessions.Attach(id, conn); err != nil {
			env.refused <- err
		}
	}))
	env.wsURL = "ws" + strings.TrimPrefix(env.server.URL, "http")
	t.Cleanup(env.server.Close)
	return env
}

func (e *testEnv) token(t *testing.T, userID, role string) string {
	t.Helper()
	token, err := e.tokens.GenerateToken(userID, role, userID+"@example.org")
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	return token
}

// dial connects as userID and consumes the welcome envelope.
func (e *testEnv) dial(t *testing.T, userID, role string) *websocket.Conn {
	t.Helper()
	conn, resp, err := websocket.DefaultDialer.Dial(e.wsURL+"?token="+e.token(t, userID, role), nil)
	if resp != nil && resp.Body != nil {
		defer resp.Body.Close()
	}
	if err != nil {
		t.Fatalf("Failed to dial websocket: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })

	welcome := readEnvelope(t, conn)
	if welcome.Type != MessageTypeWelcome {
		t.Fatalf("first envelope type = %q, want welcome", welcome.Type)
	}
	return conn
}

type envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

func readEnvelope(t *testing.T, conn *websocket.Conn) envelope {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("Failed to read message: %v", err)
	}
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		t.Fatalf("Failed to decode envelope %s: %v", data, err)
	}
	return env
}

func decodeData(t *testing.T, env envelope, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(env.Data, v); err != nil {
		t.Fatalf("Failed to decode %s data: %v", env.Type, err)
	}
}

func sendFrame(t *testing.T, conn *websocket.Conn, msgType string, data interface{}) {
	t.Helper()
	if err := conn.WriteJSON(Message{Type: msgType, Data: data}); err != nil {
		t.Fatalf("Failed to write frame: %v", err)
	}
}

// sync round-trips a ping so every earlier frame has been processed.
func syncFrames(t *testing.T, conn *websocket.Conn) {
	t.Helper()
	sendFrame(t, conn, MessageTypePing, nil)
	if env := readEnvelope(t, conn); env.Type != MessageTypePong {
		t.Fatalf("expected pong, got %q", env.Type)
	}
}

// eventually polls cond until it holds or the timeout expires.
func eventually(t *testing.T, timeout time.Duration, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Errorf("%s: timeout after %v", msg, timeout)
}

// newTestClient creates an unstarted handle.
func newTestClient(userID, role string, queue int) *Client {
	cfg := testRealtimeConfig()
	cfg.SendQueueSize = queue
	return NewClient(nil, auth.Identity{UserID: userID, Role: role}, cfg)
}

// drain returns the types of everything queued on c.
func drain(c *Client) []string {
	var types []string
	for {
		select {
		case msg := <-c.send:
			types = append(types, msg.Type)
		default:
			return types
		}
	}
}
