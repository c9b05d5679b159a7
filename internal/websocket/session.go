// Medibook - Real-time Presence and Notification Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/medibook

package websocket

import (
	"context"
	"errors"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/tomtom215/medibook/internal/auth"
	"github.com/tomtom215/medibook/internal/config"
	"github.com/tomtom215/medibook/internal/logging"
	"github.com/tomtom215/medibook/internal/metrics"
)

// ErrShuttingDown is returned by Attach once the hub has begun shutdown.
var ErrShuttingDown = errors.New("realtime hub is shutting down")

// SessionState is the lifecycle state of one connection.
type SessionState int32

const (
	StateConnecting SessionState = iota
	StateConnected
	StateDisconnected
)

func (s SessionState) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	default:
		return "disconnected"
	}
}

// Authenticator verifies a connection token.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (auth.Identity, error)
}

// InboundHandler receives the chat frames of connected sessions. The
// returned error is reported to the sender as an error envelope.
type InboundHandler interface {
	HandleChat(ctx context.Context, from auth.Identity, p ChatPayload) error
	HandleTyping(ctx context.Context, from auth.Identity, p TypingPayload) error
}

// Session is one authenticated connection from Connecting to Disconnected.
type Session struct {
	identity auth.Identity
	client   *Client
	ctrl     *SessionController
	limiter  *rate.Limiter

	ctx      context.Context
	cancel   context.CancelFunc
	state    atomic.Int32
	teardown sync.Once
	log      zerolog.Logger
}

// Identity returns the authenticated owner.
func (s *Session) Identity() auth.Identity { return s.identity }

// Client returns the session's connection handle.
func (s *Session) Client() *Client { return s.client }

// State returns the current lifecycle state.
func (s *Session) State() SessionState { return SessionState(s.state.Load()) }

// Done is closed once teardown has completed.
func (s *Session) Done() <-chan struct{} { return s.ctx.Done() }

// SessionController authenticates connections, registers them, joins their
// default topics and guarantees a single teardown per connection.
type SessionController struct {
	authn    Authenticator
	registry *Registry
	router   *TopicRouter
	cfg      config.RealtimeConfig

	inboundMu sync.RWMutex
	inbound   InboundHandler

	lifecycleMu sync.Mutex
	closing     bool
	sessions    map[*Client]*Session

	now func() time.Time
}

// NewSessionController wires the controller to its collaborators.
func NewSessionController(authn Authenticator, registry *Registry, router *TopicRouter, cfg config.RealtimeConfig) *SessionController {
	return &SessionController{
		authn:    authn,
		registry: registry,
		router:   router,
		cfg:      withTransportDefaults(cfg),
		sessions: make(map[*Client]*Session),
		now:      time.Now,
	}
}

// SetInboundHandler installs the chat handler. Chat frames received without
// one are answered with an unavailable error.
func (sc *SessionController) SetInboundHandler(h InboundHandler) {
	sc.inboundMu.Lock()
	defer sc.inboundMu.Unlock()
	sc.inbound = h
}

// Accepting reports whether new sessions may attach.
func (sc *SessionController) Accepting() bool {
	sc.lifecycleMu.Lock()
	defer sc.lifecycleMu.Unlock()
	return !sc.closing
}

func (sc *SessionController) inboundHandler() InboundHandler {
	sc.inboundMu.RLock()
	defer sc.inboundMu.RUnlock()
	return sc.inbound
}

// Authenticate checks token without touching any connection state. Refusals
// are counted by reason.
func (sc *SessionController) Authenticate(ctx context.Context, token string) (auth.Identity, error) {
	id, err := sc.authn.Authenticate(ctx, token)
	if err != nil {
		reason := auth.RefusalReason(err)
		if reason == "" {
			reason = auth.ReasonInvalidToken
		}
		metrics.RecordAuthFailure(reason)
		logging.Ctx(ctx).Info().Str("reason", reason).Msg("realtime connection refused")
		return auth.Identity{}, err
	}
	return id, nil
}

// Connect authenticates token and attaches conn. On refusal conn is closed
// with a policy-violation frame and nothing is registered.
func (sc *SessionController) Connect(ctx context.Context, token string, conn *websocket.Conn) (*Session, error) {
	id, err := sc.Authenticate(ctx, token)
	if err != nil {
		refuseConn(conn, auth.RefusalReason(err))
		return nil, err
	}
	return sc.Attach(id, conn)
}

func refuseConn(conn *websocket.Conn, reason string) {
	if conn == nil {
		return
	}
	_ = conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.ClosePolicyViolation, reason),
		time.Now().Add(closeGracePeriod),
	)
	_ = conn.Close()
}

// Attach registers an already-authenticated connection: the registry record
// is written, default topics are joined, and a welcome envelope is queued
// before the pumps start.
func (sc *SessionController) Attach(id auth.Identity, conn *websocket.Conn) (*Session, error) {
	s := sc.newSession(id, NewClient(conn, id, sc.cfg))

	sc.lifecycleMu.Lock()
	if sc.closing {
		sc.lifecycleMu.Unlock()
		s.cancel()
		refuseConn(conn, ErrShuttingDown.Error())
		return nil, ErrShuttingDown
	}
	replaced := sc.register(s)
	sc.lifecycleMu.Unlock()

	if replaced != nil {
		s.log.Info().
			Str("replaced_connection_id", replaced.ConnectionID()).
			Bool("force_close", sc.cfg.ForceCloseOnReplace).
			Msg("user reconnected, superseding previous connection")
	}
	s.log.Info().Str("role", id.Role).Int("total_clients", sc.registry.CountAll()).Msg("realtime client connected")

	if conn != nil {
		s.client.Start(s.handleFrame, func() { sc.Disconnect(s) })
	}
	return s, nil
}

// register performs the Connecting to Connected transition. Called with
// lifecycleMu held so shutdown never observes a half-registered session.
func (sc *SessionController) register(s *Session) *Client {
	id := s.identity
	sc.sessions[s.client] = s

	rec, replaced := sc.registry.Register(id.UserID, s.client, id.Role, id.Email)
	if replaced != nil && sc.cfg.ForceCloseOnReplace {
		replaced.Close()
	}
	sc.router.JoinDefaultTopics(rec)

	_ = s.client.Enqueue(Message{
		Type: MessageTypeWelcome,
		Data: WelcomeData{
			Message:   "Connected to Medibook realtime",
			UserID:    id.UserID,
			Role:      id.Role,
			Timestamp: Timestamp(sc.now()),
		},
	})
	metrics.RecordMessageSent(MessageTypeWelcome)
	s.state.Store(int32(StateConnected))
	return replaced
}

func (sc *SessionController) newSession(id auth.Identity, client *Client) *Session {
	ctx := logging.ContextWithConnectionID(context.Background(), client.ConnectionID())
	ctx, cancel := context.WithCancel(ctx)

	limit := rate.Limit(sc.cfg.InboundRate)
	if sc.cfg.InboundRate <= 0 {
		limit = rate.Inf
	}

	s := &Session{
		identity: id,
		client:   client,
		ctrl:     sc,
		limiter:  rate.NewLimiter(limit, sc.cfg.InboundBurst),
		ctx:      ctx,
		cancel:   cancel,
		log:      logging.CtxWith(ctx).Str("component", "realtime-session").Str("user_id", id.UserID).Logger(),
	}
	s.state.Store(int32(StateConnecting))
	return s
}

// Disconnect tears the session down exactly once: the handle leaves every
// topic, the registry record is removed if it still belongs to this handle,
// and the socket is closed.
func (sc *SessionController) Disconnect(s *Session) {
	s.teardown.Do(func() {
		s.state.Store(int32(StateDisconnected))
		sc.router.LeaveAllTopics(s.client)
		removed := sc.registry.Deregister(s.identity.UserID, s.client)
		s.client.Close()

		sc.lifecycleMu.Lock()
		delete(sc.sessions, s.client)
		sc.lifecycleMu.Unlock()
		s.cancel()

		s.log.Info().
			Bool("deregistered", removed).
			Int("total_clients", sc.registry.CountAll()).
			Msg("realtime client disconnected")
	})
}

// ActiveSessions returns the number of sessions not yet torn down.
func (sc *SessionController) ActiveSessions() int {
	sc.lifecycleMu.Lock()
	defer sc.lifecycleMu.Unlock()
	return len(sc.sessions)
}

// shutdown refuses new attachments and tears down every live session in
// connection order. It returns the number of sessions closed.
func (sc *SessionController) shutdown() int {
	sc.lifecycleMu.Lock()
	sc.closing = true
	sessions := make([]*Session, 0, len(sc.sessions))
	for _, s := range sc.sessions {
		sessions = append(sessions, s)
	}
	sc.lifecycleMu.Unlock()

	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].client.id < sessions[j].client.id
	})
	for _, s := range sessions {
		sc.Disconnect(s)
	}
	return len(sessions)
}

// handleFrame processes one inbound frame on the reader goroutine.
func (s *Session) handleFrame(data []byte) {
	if s.State() != StateConnected {
		return
	}
	if !s.limiter.Allow() {
		metrics.RecordMessageReceived("rate_limited")
		s.reply(newErrorMessage(ErrorCodeRateLimited, "too many messages, slow down"))
		return
	}

	var in InboundMessage
	if err := json.Unmarshal(data, &in); err != nil || in.Type == "" {
		metrics.RecordMessageReceived("invalid")
		s.reply(newErrorMessage(ErrorCodeInvalidMessage, "invalid message format"))
		return
	}

	switch in.Type {
	case MessageTypePing:
		metrics.RecordMessageReceived(in.Type)
		s.reply(Message{Type: MessageTypePong, Data: PongData{Timestamp: Timestamp(s.ctrl.now())}})

	case MessageTypeRoomJoin, MessageTypeRoomLeave:
		metrics.RecordMessageReceived(in.Type)
		s.handleRoom(in)

	case MessageTypeChatMessage:
		metrics.RecordMessageReceived(in.Type)
		var p ChatPayload
		if !s.decode(in.Data, &p) {
			return
		}
		s.dispatch(func(h InboundHandler) error { return h.HandleChat(s.ctx, s.identity, p) })

	case MessageTypeChatTyping:
		metrics.RecordMessageReceived(in.Type)
		var p TypingPayload
		if !s.decode(in.Data, &p) {
			return
		}
		s.dispatch(func(h InboundHandler) error { return h.HandleTyping(s.ctx, s.identity, p) })

	default:
		metrics.RecordMessageReceived("unknown")
		s.reply(newErrorMessage(ErrorCodeUnknownType, "unknown message type: "+in.Type))
	}
}

func (s *Session) handleRoom(in InboundMessage) {
	var p RoomPayload
	if !s.decode(in.Data, &p) {
		return
	}
	if err := ValidateRoomName(p.Room); err != nil {
		s.reply(newErrorMessage(ErrorCodeInvalidRoom, err.Error()))
		return
	}

	if in.Type == MessageTypeRoomJoin {
		s.ctrl.router.Join(p.Room, s.client)
		s.log.Debug().Str("room", p.Room).Msg("joined room")
		return
	}
	s.ctrl.router.Leave(p.Room, s.client)
	s.log.Debug().Str("room", p.Room).Msg("left room")
}

func (s *Session) decode(raw json.RawMessage, v interface{}) bool {
	if len(raw) == 0 {
		s.reply(newErrorMessage(ErrorCodeInvalidMessage, "missing message data"))
		return false
	}
	if err := json.Unmarshal(raw, v); err != nil {
		s.reply(newErrorMessage(ErrorCodeInvalidMessage, "invalid message data"))
		return false
	}
	return true
}

func (s *Session) dispatch(fn func(h InboundHandler) error) {
	h := s.ctrl.inboundHandler()
	if h == nil {
		s.reply(newErrorMessage(ErrorCodeUnavailable, "chat is not available"))
		return
	}
	if err := fn(h); err != nil {
		s.log.Debug().Err(err).Msg("inbound frame rejected")
		s.reply(newErrorMessage(ErrorCodeRejected, err.Error()))
	}
}

// reply queues msg for this session only.
func (s *Session) reply(msg Message) {
	if err := s.client.Enqueue(msg); err != nil {
		metrics.RecordDeliveryFailure(deliveryFailureReason(err))
		s.log.Debug().Err(err).Str("message_type", msg.Type).Msg("dropping reply")
		return
	}
	metrics.RecordMessageSent(msg.Type)
}
