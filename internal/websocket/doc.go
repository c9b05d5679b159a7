// Medibook - Real-time Presence and Notification Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/medibook

/*
Package websocket implements Medibook's realtime presence and fan-out core.

Key Components:

  - Registry: at most one ConnectionRecord per user, replaced atomically on reconnect
  - TopicRouter: named sets of connection handles with lazy creation and removal when empty
  - Client: one socket with a bounded send queue, a reader and a writer goroutine
  - SessionController: authenticate, register, join default topics, welcome, teardown once
  - Introspection: stats, presence lookups and administrative disconnect
  - Hub: owns one of each and closes every session on shutdown

Topics:

Every connection joins role:<role> and user:<userId> when it registers and
leaves them at teardown. Clients may join other rooms (chat:<roomId>,
appointment:<appointmentId>, or any name) with room:join; role: and user:
names are reserved for the server.

Delivery:

	Publish(topic) ──► snapshot members (read lock) ──► Enqueue per handle
	                                                   │
	                                      full/closed ─┴─► logged + counted, skipped

Enqueue never blocks. Each handle has a single writer, so envelopes published
by one goroutine to one topic arrive in order.

Wire format:

All frames are JSON text messages of the form {"type": "...", "data": {...}}.
Inbound types: ping, room:join, room:leave, chat:message, chat:typing.
Outbound types: welcome, notification, appointment:updated, chat:message,
chat:typing, pong, error, force_disconnect.
*/
package websocket
