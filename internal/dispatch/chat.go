// Medibook - Real-time Presence and Notification Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/medibook

package dispatch

import (
	"context"

	"github.com/google/uuid"

	"github.com/tomtom215/medibook/internal/logging"
	"github.com/tomtom215/medibook/internal/websocket"
)

// ChatMessage is a chat send request. Exactly one of RoomID and
// RecipientUserID is expected; RoomID wins when both are set.
type ChatMessage struct {
	RoomID          string
	RecipientUserID string
	SenderID        string
	SenderEmail     string
	SenderRole      string
	Body            string
}

// ChatEnvelope is the data of a chat:message envelope.
type ChatEnvelope struct {
	ID          string `json:"id"`
	SenderID    string `json:"senderId"`
	SenderEmail string `json:"senderEmail"`
	SenderRole  string `json:"senderRole"`
	Message     string `json:"message"`
	Timestamp   string `json:"timestamp"`
	RoomID      string `json:"roomId,omitempty"`
	RecipientID string `json:"recipientId,omitempty"`
}

// ChatDispatcher sends chat messages to rooms or directly to users.
type ChatDispatcher struct {
	clock
	pub Publisher
}

// NewChatDispatcher creates a chat dispatcher publishing through pub.
func NewChatDispatcher(pub Publisher) *ChatDispatcher {
	return &ChatDispatcher{pub: pub}
}

// SendMessage assigns an id and timestamp to m and publishes it. A direct
// message is also echoed once to the sender's own user topic. sent is false
// when m names no target.
func (d *ChatDispatcher) SendMessage(ctx context.Context, m ChatMessage) (env ChatEnvelope, sent bool) {
	if m.RoomID == "" && m.RecipientUserID == "" {
		logging.Ctx(ctx).Debug().Str("sender_id", m.SenderID).Msg("chat message has no target, skipping")
		return ChatEnvelope{}, false
	}

	env = ChatEnvelope{
		ID:          uuid.NewString(),
		SenderID:    m.SenderID,
		SenderEmail: m.SenderEmail,
		SenderRole:  m.SenderRole,
		Message:     m.Body,
		Timestamp:   d.timestamp(),
	}
	msg := websocket.Message{Type: websocket.MessageTypeChatMessage}

	var delivered int
	if m.RoomID != "" {
		env.RoomID = m.RoomID
		msg.Data = env
		delivered = d.pub.Publish(websocket.ChatTopic(m.RoomID), msg)
	} else {
		env.RecipientID = m.RecipientUserID
		msg.Data = env
		delivered = d.pub.Publish(websocket.UserTopic(m.RecipientUserID), msg)
		// A note to self is delivered once, not echoed.
		if m.SenderID != "" && m.SenderID != m.RecipientUserID {
			delivered += d.pub.Publish(websocket.UserTopic(m.SenderID), msg)
		}
	}

	logging.Ctx(ctx).Debug().
		Str("message_id", env.ID).
		Str("sender_id", m.SenderID).
		Str("room_id", env.RoomID).
		Str("recipient_id", env.RecipientID).
		Int("delivered", delivered).
		Msg("chat message dispatched")
	return env, true
}
