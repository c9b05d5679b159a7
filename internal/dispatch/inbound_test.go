// Medibook - Real-time Presence and Notification Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/medibook

package dispatch

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/tomtom215/medibook/internal/auth"
	"github.com/tomtom215/medibook/internal/websocket"
)

func TestInboundHandler_HandleChat(t *testing.T) {
	from := auth.Identity{UserID: "p1", Role: "patient", Email: "p1@example.org"}

	tests := []struct {
		name       string
		payload    websocket.ChatPayload
		wantErr    error
		wantTopics []string
	}{
		{
			name:       "direct",
			payload:    websocket.ChatPayload{RecipientID: "d1", Message: "hello"},
			wantTopics: []string{"user:d1", "user:p1"},
		},
		{
			name:       "room",
			payload:    websocket.ChatPayload{RoomID: "r1", Message: "hello"},
			wantTopics: []string{"chat:r1"},
		},
		{
			name:    "blank body",
			payload: websocket.ChatPayload{RoomID: "r1", Message: "   "},
			wantErr: ErrEmptyMessage,
		},
		{
			name:    "body too long",
			payload: websocket.ChatPayload{RoomID: "r1", Message: strings.Repeat("é", MaxChatMessageLength+1)},
			wantErr: ErrMessageTooLong,
		},
		{
			name:    "blank room",
			payload: websocket.ChatPayload{RoomID: "  ", Message: "hello"},
			wantErr: websocket.ErrEmptyRoom,
		},
		{
			name:    "room name too long",
			payload: websocket.ChatPayload{RoomID: strings.Repeat("r", websocket.MaxRoomNameLength), Message: "hello"},
			wantErr: websocket.ErrRoomTooLong,
		},
		{
			name:    "no target is silent",
			payload: websocket.ChatPayload{Message: "hello"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pub := newRecordingPublisher()
			h := New(pub).InboundHandler()

			err := h.HandleChat(context.Background(), from, tt.payload)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("HandleChat() error = %v, want %v", err, tt.wantErr)
			}
			got := pub.topics()
			if len(got) != len(tt.wantTopics) {
				t.Fatalf("topics = %v, want %v", got, tt.wantTopics)
			}
			for i := range got {
				if got[i] != tt.wantTopics[i] {
					t.Errorf("topics = %v, want %v", got, tt.wantTopics)
				}
			}
		})
	}
}

func TestInboundHandler_TrimsBodyAndUsesIdentity(t *testing.T) {
	pub := newRecordingPublisher()
	h := New(pub).InboundHandler()
	from := auth.Identity{UserID: "d1", Role: "doctor", Email: "d1@example.org"}

	if err := h.HandleChat(context.Background(), from, websocket.ChatPayload{RoomID: "r1", Message: "  see you soon \n"}); err != nil {
		t.Fatalf("HandleChat() error = %v", err)
	}
	env := pub.calls[0].msg.Data.(ChatEnvelope)
	if env.Message != "see you soon" {
		t.Errorf("Message = %q, want trimmed body", env.Message)
	}
	if env.SenderID != "d1" || env.SenderRole != "doctor" || env.SenderEmail != "d1@example.org" {
		t.Errorf("sender = %+v", env)
	}
}

func TestInboundHandler_HandleTyping(t *testing.T) {
	pub := newRecordingPublisher()
	h := New(pub).InboundHandler()
	from := auth.Identity{UserID: "p1", Role: "patient", Email: "p1@example.org"}

	if err := h.HandleTyping(context.Background(), from, websocket.TypingPayload{RoomID: "r1", IsTyping: true}); err != nil {
		t.Fatalf("HandleTyping() error = %v", err)
	}
	if len(pub.calls) != 1 || pub.calls[0].exclude != "p1" {
		t.Errorf("calls = %+v, want one room publish excluding the sender", pub.calls)
	}

	err := h.HandleTyping(context.Background(), from, websocket.TypingPayload{RoomID: " ", IsTyping: true})
	if !errors.Is(err, websocket.ErrEmptyRoom) {
		t.Errorf("HandleTyping() error = %v, want ErrEmptyRoom", err)
	}
}
