// Medibook - Real-time Presence and Notification Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/medibook

package websocket

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/tomtom215/medibook/internal/auth"
	"github.com/tomtom215/medibook/internal/config"
	"github.com/tomtom215/medibook/internal/logging"
)

// Transport defaults used when a RealtimeConfig field is zero.
const (
	writeWait         = 10 * time.Second
	pongWait          = 60 * time.Second
	maxMessageSize    = 64 * 1024
	sendQueueSize     = 256
	closeGracePeriod  = time.Second
	defaultBurstLimit = 40
)

var (
	// ErrQueueFull is returned by Enqueue when the recipient's send queue is at capacity.
	ErrQueueFull = errors.New("send queue full")

	// ErrClientClosed is returned by Enqueue after the client has been closed.
	ErrClientClosed = errors.New("client closed")
)

// clientIDCounter orders clients deterministically for fan-out and shutdown.
var clientIDCounter atomic.Uint64

// Client is the per-connection handle: one socket, one bounded send queue,
// one reader and one writer goroutine.
type Client struct {
	id     uint64
	connID string
	userID string
	role   string

	conn *websocket.Conn
	cfg  config.RealtimeConfig
	send chan Message

	done      chan struct{}
	closeOnce sync.Once
	log       zerolog.Logger
}

// NewClient creates a handle for an authenticated connection. conn may be nil
// for handles that are never started.
func NewClient(conn *websocket.Conn, id auth.Identity, cfg config.RealtimeConfig) *Client {
	cfg = withTransportDefaults(cfg)
	connID := uuid.New().String()
	return &Client{
		id:     clientIDCounter.Add(1),
		connID: connID,
		userID: id.UserID,
		role:   id.Role,
		conn:   conn,
		cfg:    cfg,
		send:   make(chan Message, cfg.SendQueueSize),
		done:   make(chan struct{}),
		log: logging.WithComponent("realtime-client").With().
			Str("connection_id", connID).
			Str("user_id", id.UserID).
			Logger(),
	}
}

func withTransportDefaults(cfg config.RealtimeConfig) config.RealtimeConfig {
	if cfg.SendQueueSize <= 0 {
		cfg.SendQueueSize = sendQueueSize
	}
	if cfg.WriteWait <= 0 {
		cfg.WriteWait = writeWait
	}
	if cfg.PongWait <= 0 {
		cfg.PongWait = pongWait
	}
	if cfg.MaxMessageSize <= 0 {
		cfg.MaxMessageSize = maxMessageSize
	}
	if cfg.InboundBurst <= 0 {
		cfg.InboundBurst = defaultBurstLimit
	}
	return cfg
}

// ID returns the client's ordering key.
func (c *Client) ID() uint64 {
	return c.id
}

// ConnectionID returns the opaque connection identifier.
func (c *Client) ConnectionID() string {
	return c.connID
}

// UserID returns the authenticated user that owns this connection.
func (c *Client) UserID() string {
	return c.userID
}

// Role returns the authenticated role of the owner.
func (c *Client) Role() string {
	return c.role
}

// Enqueue offers msg to the send queue without blocking.
func (c *Client) Enqueue(msg Message) error {
	select {
	case <-c.done:
		return ErrClientClosed
	default:
	}

	select {
	case c.send <- msg:
		return nil
	default:
		return ErrQueueFull
	}
}

// Close stops the client. The writer flushes what is already queued, sends a
// close frame and closes the socket; the reader then exits and runs teardown.
// Safe to call more than once.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
	})
}

// Closed reports whether Close has been called.
func (c *Client) Closed() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

// Done is closed when the client is closed.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

// Start launches the pumps. onFrame runs on the reader goroutine for each
// inbound frame, in arrival order; onClose runs once the reader exits.
func (c *Client) Start(onFrame func([]byte), onClose func()) {
	go c.writePump()
	go c.readPump(onFrame, onClose)
}

// readPump pumps frames from the websocket connection to onFrame
func (c *Client) readPump(onFrame func([]byte), onClose func()) {
	defer func() {
		onClose()
		_ = c.conn.Close() // best-effort cleanup
	}()

	c.conn.SetReadLimit(c.cfg.MaxMessageSize)
	if err := c.conn.SetReadDeadline(time.Now().Add(c.cfg.PongWait)); err != nil {
		c.log.Error().Err(err).Msg("failed to set read deadline")
		return
	}
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(c.cfg.PongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				c.log.Warn().Err(err).Msg("unexpected websocket close error")
			}
			return
		}
		onFrame(data)
	}
}

// writePump pumps messages from the send queue to the websocket connection
func (c *Client) writePump() {
	ticker := time.NewTicker(c.cfg.PingPeriod())
	defer func() {
		ticker.Stop()
		_ = c.conn.Close() // best-effort cleanup
	}()

	for {
		select {
		case message := <-c.send:
			if err := c.write(message); err != nil {
				c.log.Debug().Err(err).Str("message_type", message.Type).Msg("failed to write message")
				return
			}

		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteWait)); err != nil {
				return
			}
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.done:
			c.flush()
			_ = c.conn.WriteControl(
				websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(closeGracePeriod),
			)
			return
		}
	}
}

// flush writes whatever is still queued, such as a force_disconnect notice.
func (c *Client) flush() {
	for {
		select {
		case message := <-c.send:
			if err := c.write(message); err != nil {
				return
			}
		default:
			return
		}
	}
}

func (c *Client) write(message Message) error {
	payload, err := json.Marshal(message)
	if err != nil {
		return err
	}
	if err := c.conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteWait)); err != nil {
		return err
	}
	return c.conn.WriteMessage(websocket.TextMessage, payload)
}
