// Medibook - Real-time Presence and Notification Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/medibook

package dispatch

import (
	"time"

	"github.com/tomtom215/medibook/internal/websocket"
)

// Publisher delivers an envelope to every member of a topic and returns the
// number of recipients it was queued for. *websocket.TopicRouter implements it.
type Publisher interface {
	Publish(topic string, msg websocket.Message) int
	PublishExcluding(topic string, msg websocket.Message, excludeUserID string) int
}

// Dispatchers groups the three message-class dispatchers over one publisher.
type Dispatchers struct {
	Appointments *AppointmentNotifier
	Chat         *ChatDispatcher
	Typing       *TypingDispatcher
}

// New creates all dispatchers publishing through pub.
func New(pub Publisher) *Dispatchers {
	return &Dispatchers{
		Appointments: NewAppointmentNotifier(pub),
		Chat:         NewChatDispatcher(pub),
		Typing:       NewTypingDispatcher(pub),
	}
}

// InboundHandler returns the adapter that routes client chat frames into
// the chat and typing dispatchers.
func (d *Dispatchers) InboundHandler() *InboundHandler {
	return NewInboundHandler(d.Chat, d.Typing)
}

// clock is embedded by every dispatcher so tests can pin timestamps.
type clock struct {
	now func() time.Time
}

func (c clock) timestamp() string {
	if c.now == nil {
		return websocket.Timestamp(time.Now())
	}
	return websocket.Timestamp(c.now())
}
