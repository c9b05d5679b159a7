// Medibook - Real-time Presence and Notification Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/medibook

package dispatch

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/tomtom215/medibook/internal/logging"
	"github.com/tomtom215/medibook/internal/websocket"
)

// ErrUnknownAction is returned by Notify for an action outside the lifecycle set.
var ErrUnknownAction = errors.New("unknown appointment action")

// Action is an appointment lifecycle transition.
type Action string

const (
	ActionCreated   Action = "created"
	ActionUpdated   Action = "updated"
	ActionCancelled Action = "cancelled"
	ActionDeleted   Action = "deleted"
)

// Valid reports whether a is one of the known lifecycle actions.
func (a Action) Valid() bool {
	switch a {
	case ActionCreated, ActionUpdated, ActionCancelled, ActionDeleted:
		return true
	}
	return false
}

// NotificationTypeAppointment tags appointment payloads inside notification envelopes.
const NotificationTypeAppointment = "appointment"

// Appointment is the appointment document as the booking API stores it. Only
// the identifying fields are interpreted; everything else is forwarded as-is.
type Appointment map[string]interface{}

// ID returns the appointment id from "id" or "_id".
func (a Appointment) ID() string {
	if id := a.stringField("id"); id != "" {
		return id
	}
	return a.stringField("_id")
}

// OwnerUserID returns the owning user from "ownerUserId", falling back to the
// nested patient.userId. Empty when neither resolves.
func (a Appointment) OwnerUserID() string {
	if owner := a.stringField("ownerUserId"); owner != "" {
		return owner
	}
	if patient, ok := a["patient"].(map[string]interface{}); ok {
		return Appointment(patient).stringField("userId")
	}
	return ""
}

func (a Appointment) stringField(key string) string {
	switch v := a[key].(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	default:
		return ""
	}
}

// Event is one appointment lifecycle event as ingested from the booking API.
type Event struct {
	Appointment Appointment `json:"appointment" validate:"required,min=1"`
	Action      Action      `json:"action" validate:"required,oneof=created updated cancelled deleted"`
	UpdatedBy   string      `json:"updatedBy,omitempty" validate:"omitempty,max=128"`
}

// Notification is the data of a notification envelope.
type Notification struct {
	Type      string           `json:"type"`
	Data      AppointmentEvent `json:"data"`
	Timestamp string           `json:"timestamp"`
}

// AppointmentEvent is the appointment payload carried by a notification.
type AppointmentEvent struct {
	Type        string      `json:"type"`
	Action      Action      `json:"action"`
	Appointment Appointment `json:"appointment"`
	Timestamp   string      `json:"timestamp"`
}

// AppointmentUpdate is the data of an appointment:updated envelope.
type AppointmentUpdate struct {
	AppointmentID string      `json:"appointmentId"`
	Action        Action      `json:"action"`
	Appointment   Appointment `json:"appointment"`
	UpdatedBy     string      `json:"updatedBy,omitempty"`
	Timestamp     string      `json:"timestamp"`
}

// Delivery counts the recipients each target of a Notify call was queued for.
type Delivery struct {
	Owner       int `json:"owner"`
	Admins      int `json:"admins"`
	Subscribers int `json:"subscribers"`
}

// AppointmentNotifier fans appointment lifecycle events out to the owner,
// every admin, and subscribers of the appointment's own topic.
type AppointmentNotifier struct {
	clock
	pub Publisher
}

// NewAppointmentNotifier creates a notifier publishing through pub.
func NewAppointmentNotifier(pub Publisher) *AppointmentNotifier {
	return &AppointmentNotifier{pub: pub}
}

// Notify publishes action for appt. The updatedBy field of the document, if
// any, is carried into the appointment:updated envelope.
func (n *AppointmentNotifier) Notify(ctx context.Context, appt Appointment, action Action) (Delivery, error) {
	return n.NotifyEvent(ctx, Event{
		Appointment: appt,
		Action:      action,
		UpdatedBy:   appt.stringField("updatedBy"),
	})
}

// NotifyEvent publishes ev. The role:admin topic always receives the
// notification; the owner's user topic only when the owner resolves.
func (n *AppointmentNotifier) NotifyEvent(ctx context.Context, ev Event) (Delivery, error) {
	var d Delivery
	if !ev.Action.Valid() {
		return d, fmt.Errorf("%w: %q", ErrUnknownAction, ev.Action)
	}
	if err := ctx.Err(); err != nil {
		return d, err
	}

	ts := n.timestamp()
	notification := websocket.Message{
		Type: websocket.MessageTypeNotification,
		Data: Notification{
			Type: NotificationTypeAppointment,
			Data: AppointmentEvent{
				Type:        NotificationTypeAppointment,
				Action:      ev.Action,
				Appointment: ev.Appointment,
				Timestamp:   ts,
			},
			Timestamp: ts,
		},
	}

	owner := ev.Appointment.OwnerUserID()
	if owner != "" {
		d.Owner = n.pub.Publish(websocket.UserTopic(owner), notification)
	}
	d.Admins = n.pub.Publish(websocket.RoleTopic(websocket.RoleAdmin), notification)

	id := ev.Appointment.ID()
	if id != "" {
		d.Subscribers = n.pub.Publish(websocket.AppointmentTopic(id), websocket.Message{
			Type: websocket.MessageTypeAppointmentUpdated,
			Data: AppointmentUpdate{
				AppointmentID: id,
				Action:        ev.Action,
				Appointment:   ev.Appointment,
				UpdatedBy:     ev.UpdatedBy,
				Timestamp:     ts,
			},
		})
	}

	logging.Ctx(ctx).Debug().
		Str("appointment_id", id).
		Str("action", string(ev.Action)).
		Str("owner_user_id", owner).
		Int("owner_delivered", d.Owner).
		Int("admins_delivered", d.Admins).
		Int("subscribers_delivered", d.Subscribers).
		Msg("appointment notification dispatched")
	return d, nil
}
