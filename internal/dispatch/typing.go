// Medibook - Real-time Presence and Notification Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/medibook

package dispatch

import (
	"context"

	"github.com/tomtom215/medibook/internal/websocket"
)

// Typing is a typing-indicator update.
type Typing struct {
	RoomID          string
	RecipientUserID string
	UserID          string
	UserEmail       string
	IsTyping        bool
}

// TypingEnvelope is the data of a chat:typing envelope.
type TypingEnvelope struct {
	UserID    string `json:"userId"`
	UserEmail string `json:"userEmail"`
	IsTyping  bool   `json:"isTyping"`
	Timestamp string `json:"timestamp"`
	RoomID    string `json:"roomId,omitempty"`
}

// TypingDispatcher relays typing indicators. Nothing is stored and the
// sender never receives its own indicator.
type TypingDispatcher struct {
	clock
	pub Publisher
}

// NewTypingDispatcher creates a typing dispatcher publishing through pub.
func NewTypingDispatcher(pub Publisher) *TypingDispatcher {
	return &TypingDispatcher{pub: pub}
}

// SendTyping publishes t and reports whether a target was resolved.
func (d *TypingDispatcher) SendTyping(_ context.Context, t Typing) bool {
	env := TypingEnvelope{
		UserID:    t.UserID,
		UserEmail: t.UserEmail,
		IsTyping:  t.IsTyping,
		Timestamp: d.timestamp(),
	}

	switch {
	case t.RoomID != "":
		env.RoomID = t.RoomID
		d.pub.PublishExcluding(websocket.ChatTopic(t.RoomID), typingMessage(env), t.UserID)
		return true
	case t.RecipientUserID != "" && t.RecipientUserID != t.UserID:
		d.pub.Publish(websocket.UserTopic(t.RecipientUserID), typingMessage(env))
		return true
	default:
		return false
	}
}

func typingMessage(env TypingEnvelope) websocket.Message {
	return websocket.Message{Type: websocket.MessageTypeChatTyping, Data: env}
}
