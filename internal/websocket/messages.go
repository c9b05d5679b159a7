// Medibook - Real-time Presence and Notification Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/medibook

package websocket

import (
	"time"

	"github.com/goccy/go-json"
)

// Outbound message types
const (
	MessageTypeWelcome            = "welcome"
	MessageTypeNotification       = "notification"
	MessageTypeAppointmentUpdated = "appointment:updated"
	MessageTypeChatMessage        = "chat:message"
	MessageTypeChatTyping         = "chat:typing"
	MessageTypePong               = "pong"
	MessageTypeError              = "error"
	MessageTypeForceDisconnect    = "force_disconnect"
)

// Inbound message types
const (
	MessageTypePing      = "ping"
	MessageTypeRoomJoin  = "room:join"
	MessageTypeRoomLeave = "room:leave"
)

// Error codes carried in error envelopes
const (
	ErrorCodeInvalidMessage = "invalid_message"
	ErrorCodeUnknownType    = "unknown_type"
	ErrorCodeInvalidRoom    = "invalid_room"
	ErrorCodeRateLimited    = "rate_limited"
	ErrorCodeUnavailable    = "unavailable"
	ErrorCodeRejected       = "rejected"
)

// Message is the wire frame for every envelope: {"type": ..., "data": ...}.
type Message struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// InboundMessage is a client frame whose payload is decoded per type.
type InboundMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// WelcomeData is sent once to a newly registered connection.
type WelcomeData struct {
	Message   string `json:"message"`
	UserID    string `json:"userId"`
	Role      string `json:"role"`
	Timestamp string `json:"timestamp"`
}

// ErrorData describes a rejected client frame.
type ErrorData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// PongData answers a client ping.
type PongData struct {
	Timestamp string `json:"timestamp"`
}

// ForceDisconnectData is sent best-effort before an administrative close.
type ForceDisconnectData struct {
	Reason    string `json:"reason"`
	Timestamp string `json:"timestamp"`
}

// RoomPayload is the body of room:join and room:leave.
type RoomPayload struct {
	Room string `json:"room"`
}

// ChatPayload is the body of an inbound chat:message frame.
// Exactly one of RoomID and RecipientID is expected.
type ChatPayload struct {
	RoomID      string `json:"roomId,omitempty"`
	RecipientID string `json:"recipientId,omitempty"`
	Message     string `json:"message"`
}

// TypingPayload is the body of an inbound chat:typing frame.
type TypingPayload struct {
	RoomID      string `json:"roomId,omitempty"`
	RecipientID string `json:"recipientId,omitempty"`
	IsTyping    bool   `json:"isTyping"`
}

// Timestamp formats t the way every envelope carries time.
func Timestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func newErrorMessage(code, message string) Message {
	return Message{
		Type: MessageTypeError,
		Data: ErrorData{Code: code, Message: message},
	}
}
