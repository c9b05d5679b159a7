// Medibook - Real-time Presence and Notification Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/medibook

package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	gorillaws "github.com/gorilla/websocket"

	"github.com/tomtom215/medibook/internal/auth"
	"github.com/tomtom215/medibook/internal/config"
	"github.com/tomtom215/medibook/internal/dispatch"
	"github.com/tomtom215/medibook/internal/logging"
	"github.com/tomtom215/medibook/internal/validation"
	"github.com/tomtom215/medibook/internal/websocket"
)

const (
	wsHandshakeTimeout = 10 * time.Second
	readinessTimeout   = 2 * time.Second
)

// Notifier publishes an ingested appointment event.
type Notifier interface {
	NotifyEvent(ctx context.Context, ev dispatch.Event) (dispatch.Delivery, error)
}

// ReadinessCheck reports whether a dependency can serve traffic.
type ReadinessCheck func(ctx context.Context) error

// Handler serves the WebSocket endpoint and the realtime admin API.
type Handler struct {
	hub      *websocket.Hub
	notifier Notifier

	corsOrigins []string
	upgrader    gorillaws.Upgrader

	checkNames []string
	checks     map[string]ReadinessCheck

	startTime time.Time
}

// NewHandler creates the handler. The hub's own readiness is always checked.
func NewHandler(hub *websocket.Hub, notifier Notifier, sec *config.SecurityConfig) *Handler {
	h := &Handler{
		hub:         hub,
		notifier:    notifier,
		corsOrigins: sec.CORSOrigins,
		checks:      make(map[string]ReadinessCheck),
		startTime:   time.Now(),
	}
	h.upgrader = gorillaws.Upgrader{
		ReadBufferSize:   1024,
		WriteBufferSize:  1024,
		HandshakeTimeout: wsHandshakeTimeout,
		CheckOrigin:      h.checkWebSocketOrigin,
	}
	h.AddReadinessCheck("realtime_hub", hub.Ready)
	return h
}

// AddReadinessCheck registers a dependency for /health/ready.
func (h *Handler) AddReadinessCheck(name string, check ReadinessCheck) {
	if _, exists := h.checks[name]; !exists {
		h.checkNames = append(h.checkNames, name)
	}
	h.checks[name] = check
}

// checkWebSocketOrigin allows requests without an Origin header (native
// mobile clients) and browser origins listed in the CORS configuration.
func (h *Handler) checkWebSocketOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, allowed := range h.corsOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	logging.Ctx(r.Context()).Warn().Str("origin", sanitizeLogValue(origin)).Msg("WebSocket connection rejected from unauthorized origin")
	return false
}

// WebSocket authenticates the token and upgrades. Refusals are answered
// with 401 before the upgrade so no registry state is ever created for them.
func (h *Handler) WebSocket(w http.ResponseWriter, r *http.Request) {
	id, err := h.hub.Sessions.Authenticate(r.Context(), auth.TokenFromRequest(r))
	if err != nil {
		NewResponseWriter(w, r).ErrorWithDetails(
			http.StatusUnauthorized, ErrCodeUnauthorized, "authentication failed",
			map[string]string{"reason": auth.RefusalReason(err)},
		)
		return
	}
	if !h.hub.Sessions.Accepting() {
		NewResponseWriter(w, r).ServiceUnavailable(websocket.ErrShuttingDown.Error(), nil)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// The upgrader has already written an HTTP error.
		logging.Ctx(r.Context()).Warn().Err(err).Msg("WebSocket upgrade failed")
		return
	}

	if _, err := h.hub.Sessions.Attach(id, conn); err != nil {
		logging.Ctx(r.Context()).Info().Err(err).Str("user_id", id.UserID).Msg("WebSocket connection not attached")
	}
}

// HealthLive reports that the process is up.
func (h *Handler) HealthLive(w http.ResponseWriter, r *http.Request) {
	WriteSuccess(w, r, map[string]interface{}{
		"alive":  true,
		"uptime": time.Since(h.startTime).Seconds(),
	})
}

// HealthReady runs every readiness check and answers 503 if any fails.
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
	defer cancel()

	results := make(map[string]string, len(h.checkNames))
	ready := true
	for _, name := range h.checkNames {
		if err := h.checks[name](ctx); err != nil {
			results[name] = err.Error()
			ready = false
			continue
		}
		results[name] = "ok"
	}

	if !ready {
		NewResponseWriter(w, r).ServiceUnavailable("service not ready", map[string]interface{}{"checks": results})
		return
	}
	WriteSuccess(w, r, map[string]interface{}{
		"ready":       true,
		"checks":      results,
		"connections": h.hub.GetClientCount(),
	})
}

// writeValidationError renders a VALIDATION_ERROR envelope.
func writeValidationError(w http.ResponseWriter, r *http.Request, verr *validation.RequestValidationError) {
	apiErr := verr.ToAPIError()
	NewResponseWriter(w, r).ErrorWithDetails(http.StatusBadRequest, apiErr.Code, apiErr.Message, apiErr.Details)
}

// asValidationError extracts field details from err.
func asValidationError(err error) (*validation.RequestValidationError, bool) {
	var verr *validation.RequestValidationError
	if errors.As(err, &verr) {
		return verr, true
	}
	return nil, false
}
