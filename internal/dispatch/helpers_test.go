// Medibook - Real-time Presence and Notification Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/medibook

package dispatch

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"
	gorillaws "github.com/gorilla/websocket"

	"github.com/tomtom215/medibook/internal/auth"
	"github.com/tomtom215/medibook/internal/config"
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

var fixedNow = func() time.Time {
	return time.Date(2026, 4, 2, 14, 30, 0, 0, time.UTC)
}

type publishCall struct {
	topic   string
	msg     websocket.Message
	exclude string
}

// recordingPublisher records every publish and reports members[topic] as
// the delivered count.
type recordingPublisher struct {
	mu      sync.Mutex
	calls   []publishCall
	members map[string]int
}

func newRecordingPublisher() *recordingPublisher {
	return &recordingPublisher{members: make(map[string]int)}
}

func (p *recordingPublisher) Publish(topic string, msg websocket.Message) int {
	return p.PublishExcluding(topic, msg, "")
}

func (p *recordingPublisher) PublishExcluding(topic string, msg websocket.Message, excludeUserID string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, publishCall{topic: topic, msg: msg, exclude: excludeUserID})
	return p.members[topic]
}

func (p *recordingPublisher) topics() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	topics := make([]string, len(p.calls))
	for i, c := range p.calls {
		topics[i] = c.topic
	}
	return topics
}

// liveEnv is a hub behind a real websocket endpoint with the dispatchers
// installed as the inbound handler.
type liveEnv struct {
	hub      *websocket.Hub
	dispatch *Dispatchers
	tokens   *auth.JWTManager
	wsURL    string
}

func newLiveEnv(t *testing.T) *liveEnv {
	t.Helper()

	tokens, err := auth.NewJWTManager(&config.SecurityConfig{JWTSecret: "dispatch-test-secret-with-at-least-32-chars"})
	if err != nil {
		t.Fatalf("NewJWTManager: %v", err)
	}
	hub := websocket.NewHub(auth.NewTokenAuthenticator(tokens, time.Second), config.RealtimeConfig{
		SendQueueSize:       16,
		WriteWait:           time.Second,
		PongWait:            10 * time.Second,
		InboundRate:         100,
		InboundBurst:        100,
		ForceCloseOnReplace: true,
	})
	d := New(hub.Router)
	hub.Sessions.SetInboundHandler(d.InboundHandler())

	upgrader := gorillaws.Upgrader{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := hub.Sessions.Authenticate(r.Context(), auth.TokenFromRequest(r))
		if err != nil {
			http.Error(w, auth.RefusalReason(err), http.StatusUnauthorized)
			return
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		_, _ = hub.Sessions.Attach(id, conn)
	}))
	t.Cleanup(server.Close)

	return &liveEnv{
		hub:      hub,
		dispatch: d,
		tokens:   tokens,
		wsURL:    "ws" + strings.TrimPrefix(server.URL, "http"),
	}
}

func (e *liveEnv) dial(t *testing.T, userID, role string) *gorillaws.Conn {
	t.Helper()
	token, err := e.tokens.GenerateToken(userID, role, userID+"@example.org")
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	conn, resp, err := gorillaws.DefaultDialer.Dial(e.wsURL+"?token="+token, nil)
	if resp != nil && resp.Body != nil {
		defer resp.Body.Close()
	}
	if err != nil {
		t.Fatalf("Failed to dial websocket: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })

	if env := readEnvelope(t, conn); env.Type != websocket.MessageTypeWelcome {
		t.Fatalf("first envelope = %q, want welcome", env.Type)
	}
	return conn
}

type envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

func readEnvelope(t *testing.T, conn *gorillaws.Conn) envelope {
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

func sendFrame(t *testing.T, conn *gorillaws.Conn, msgType string, data interface{}) {
	t.Helper()
	if err := conn.WriteJSON(websocket.Message{Type: msgType, Data: data}); err != nil {
		t.Fatalf("Failed to write frame: %v", err)
	}
}

// expectNothingQueued round-trips a ping; anything published to conn before
// the call would arrive ahead of the pong.
func expectNothingQueued(t *testing.T, conn *gorillaws.Conn) {
	t.Helper()
	sendFrame(t, conn, websocket.MessageTypePing, nil)
	if env := readEnvelope(t, conn); env.Type != websocket.MessageTypePong {
		t.Errorf("unexpected %s envelope %s", env.Type, env.Data)
		// Skip whatever else was queued ahead of the pong.
		for env.Type != websocket.MessageTypePong {
			env = readEnvelope(t, conn)
		}
	}
}
