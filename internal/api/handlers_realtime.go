// Medibook - Real-time Presence and Notification Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/medibook

package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/medibook/internal/auth"
	"github.com/tomtom215/medibook/internal/dispatch"
	"github.com/tomtom215/medibook/internal/eventbridge"
	"github.com/tomtom215/medibook/internal/logging"
	"github.com/tomtom215/medibook/internal/metrics"
	"github.com/tomtom215/medibook/internal/validation"
)

// maxEventBodyBytes bounds an ingested appointment document.
const maxEventBodyBytes = 256 * 1024

// UserConnection is the body of the presence check.
type UserConnection struct {
	UserID    string `json:"userId"`
	Connected bool   `json:"connected"`
}

// DisconnectResult is the body of a successful forced disconnect.
type DisconnectResult struct {
	UserID       string `json:"userId"`
	Disconnected bool   `json:"disconnected"`
}

// EventAccepted is the body of a successful event ingest.
type EventAccepted struct {
	AppointmentID string            `json:"appointmentId,omitempty"`
	Action        dispatch.Action   `json:"action"`
	Delivered     dispatch.Delivery `json:"delivered"`
}

// RealtimeStats returns the connection total and per-role counts.
func (h *Handler) RealtimeStats(w http.ResponseWriter, r *http.Request) {
	WriteSuccess(w, r, h.hub.Introspection.Stats())
}

// UserConnected reports whether a user currently holds a connection.
func (h *Handler) UserConnected(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDParam(w, r)
	if !ok {
		return
	}
	WriteSuccess(w, r, UserConnection{
		UserID:    userID,
		Connected: h.hub.Introspection.IsConnected(userID),
	})
}

// Connections lists every registered connection.
func (h *Handler) Connections(w http.ResponseWriter, r *http.Request) {
	conns := h.hub.Introspection.ListConnections()
	NewResponseWriter(w, r).SuccessList(conns, len(conns))
}

// ForceDisconnect closes a user's connection.
func (h *Handler) ForceDisconnect(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDParam(w, r)
	if !ok {
		return
	}
	if !h.hub.Introspection.ForceDisconnect(userID) {
		NewResponseWriter(w, r).NotFound("user is not connected")
		return
	}

	logging.Ctx(r.Context()).Info().
		Str("user_id", userID).
		Str("operator", operatorID(r)).
		Msg("realtime connection force-disconnected")
	WriteSuccess(w, r, DisconnectResult{UserID: userID, Disconnected: true})
}

// IngestAppointmentEvent accepts the same document as the NATS bridge and
// fans it out synchronously.
func (h *Handler) IngestAppointmentEvent(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxEventBodyBytes))
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			rw.Error(http.StatusRequestEntityTooLarge, ErrCodeBadRequest,
				fmt.Sprintf("request body exceeds %d bytes", maxEventBodyBytes))
			return
		}
		rw.BadRequest("failed to read request body")
		return
	}

	ev, err := eventbridge.Decode(body)
	if err != nil {
		metrics.RecordEvent(eventbridge.SourceHTTP, eventbridge.ResultRejected)
		if verr, ok := asValidationError(err); ok {
			writeValidationError(w, r, verr)
			return
		}
		rw.BadRequest("request body is not a valid appointment event")
		return
	}

	delivery, err := h.notifier.NotifyEvent(r.Context(), ev)
	if err != nil {
		metrics.RecordEvent(eventbridge.SourceHTTP, eventbridge.ResultFailed)
		logging.Ctx(r.Context()).Error().Err(err).Msg("appointment event dispatch failed")
		rw.InternalError("failed to dispatch appointment event")
		return
	}
	metrics.RecordEvent(eventbridge.SourceHTTP, eventbridge.ResultDelivered)

	rw.SuccessWithStatus(http.StatusAccepted, EventAccepted{
		AppointmentID: ev.Appointment.ID(),
		Action:        ev.Action,
		Delivered:     delivery,
	}, nil)
}

// userIDParam validates the {userID} path parameter.
func userIDParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID := chi.URLParam(r, "userID")
	if verr := validation.ValidateIdentifier(userID, "userID"); verr != nil {
		writeValidationError(w, r, verr)
		return "", false
	}
	return userID, true
}

func operatorID(r *http.Request) string {
	if id, ok := auth.IdentityFromContext(r.Context()); ok {
		return id.UserID
	}
	return ""
}

// sanitizeLogValue escapes control characters so client-supplied values
// cannot forge log lines.
func sanitizeLogValue(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r < 0x20 || r == 0x7F {
			fmt.Fprintf(&b, "\\x%02x", r)
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
