// Medibook - Real-time Presence and Notification Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/medibook

/*
Package dispatch translates domain events into topic-scoped realtime sends.

There are three independent dispatchers, each depending only on a Publisher
(normally the hub's TopicRouter):

  - AppointmentNotifier: appointment lifecycle events to the owner, every
    admin and explicit appointment:<id> subscribers
  - ChatDispatcher: chat messages to a room, or to a recipient with an echo
    to the sender
  - TypingDispatcher: ephemeral typing indicators, never echoed

Target resolution for chat and typing:

	roomId set          ──► chat:<roomId>
	recipientUserId set ──► user:<recipientUserId>  (+ user:<senderId> echo for chat)
	neither             ──► no-op

A publish that reaches nobody is a silent success. Delivery failures for
individual recipients are handled (logged and counted) by the router.

InboundHandler adapts ChatDispatcher and TypingDispatcher to the frames a
connected client sends, attributing them to the authenticated identity.
*/
package dispatch
