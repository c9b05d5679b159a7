// Medibook - Real-time Presence and Notification Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/medibook

package dispatch

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/tomtom215/medibook/internal/auth"
	"github.com/tomtom215/medibook/internal/websocket"
)

// MaxChatMessageLength bounds a chat body in characters.
const MaxChatMessageLength = 4000

var (
	// ErrEmptyMessage is returned for a chat frame with a blank body.
	ErrEmptyMessage = errors.New("message body is required")

	// ErrMessageTooLong is returned for a chat body over MaxChatMessageLength.
	ErrMessageTooLong = errors.New("message body too long")
)

// InboundHandler routes chat frames from connected clients into the
// dispatchers. The sender is always the authenticated identity of the
// connection, never a field of the frame.
type InboundHandler struct {
	chat   *ChatDispatcher
	typing *TypingDispatcher
}

var _ websocket.InboundHandler = (*InboundHandler)(nil)

// NewInboundHandler creates the adapter.
func NewInboundHandler(chat *ChatDispatcher, typing *TypingDispatcher) *InboundHandler {
	return &InboundHandler{chat: chat, typing: typing}
}

// HandleChat validates and sends a chat:message frame.
func (h *InboundHandler) HandleChat(ctx context.Context, from auth.Identity, p websocket.ChatPayload) error {
	body := strings.TrimSpace(p.Message)
	if body == "" {
		return ErrEmptyMessage
	}
	if utf8.RuneCountInString(body) > MaxChatMessageLength {
		return ErrMessageTooLong
	}
	if err := validateRoomID(p.RoomID); err != nil {
		return err
	}

	h.chat.SendMessage(ctx, ChatMessage{
		RoomID:          p.RoomID,
		RecipientUserID: p.RecipientID,
		SenderID:        from.UserID,
		SenderEmail:     from.Email,
		SenderRole:      from.Role,
		Body:            body,
	})
	return nil
}

// HandleTyping sends a chat:typing frame.
func (h *InboundHandler) HandleTyping(ctx context.Context, from auth.Identity, p websocket.TypingPayload) error {
	if err := validateRoomID(p.RoomID); err != nil {
		return err
	}
	h.typing.SendTyping(ctx, Typing{
		RoomID:          p.RoomID,
		RecipientUserID: p.RecipientID,
		UserID:          from.UserID,
		UserEmail:       from.Email,
		IsTyping:        p.IsTyping,
	})
	return nil
}

func validateRoomID(roomID string) error {
	if roomID == "" {
		return nil
	}
	if strings.TrimSpace(roomID) == "" {
		return websocket.ErrEmptyRoom
	}
	return websocket.ValidateRoomName(websocket.ChatTopic(roomID))
}
