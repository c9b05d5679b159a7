// Medibook - Real-time Presence and Notification Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/medibook

/*
Package eventbridge feeds appointment lifecycle events from the booking API
into the realtime fan-out.

The booking API publishes one JSON document per change to a NATS subject
(NATS_SUBJECT, default appointments.events):

	{
	  "action": "cancelled",
	  "appointment": {"id": "a1", "ownerUserId": "u1", "status": "cancelled"},
	  "updatedBy": "u2"
	}

A Bridge consumes the subject through a watermill subscriber, validates each
event and calls the appointment notifier. The NATS_SUBSCRIBERS consumer
goroutines share a queue group so each event is handled once:

	NATS subject -> watermill subscriber -> Bridge.Handle -> AppointmentNotifier

Acknowledgement:
  - invalid JSON or a failed validation: acked and counted as rejected
  - notifier error: nacked for redelivery and counted as failed
  - success: acked and counted as delivered

Decode is shared with the HTTP ingest endpoint so both paths accept exactly
the same documents.

Bridge implements suture.Service and runs under the messaging layer of the
supervisor tree. Tests use watermill's in-memory gochannel pub/sub.
*/
package eventbridge
