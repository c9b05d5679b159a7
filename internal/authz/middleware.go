// Medibook - Real-time Presence and Notification Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/medibook

package authz

import (
	"net/http"

	"github.com/tomtom215/medibook/internal/auth"
	"github.com/tomtom215/medibook/internal/logging"
)

// Error codes passed to a DenyFunc.
const (
	CodeForbidden     = "FORBIDDEN"
	CodeUnauthorized  = "UNAUTHORIZED"
	CodeInternalError = "INTERNAL_ERROR"
)

// DenyFunc writes a refusal. The API layer supplies one that renders its
// standard error envelope.
type DenyFunc func(w http.ResponseWriter, r *http.Request, status int, code, message string)

// Middleware enforces the policy for authenticated requests. It must run
// after the authentication middleware has stored an auth.Identity.
type Middleware struct {
	enforcer *Enforcer
	deny     DenyFunc
}

// NewMiddleware creates the middleware. A nil deny falls back to http.Error.
func NewMiddleware(enforcer *Enforcer, deny DenyFunc) *Middleware {
	if deny == nil {
		deny = func(w http.ResponseWriter, _ *http.Request, status int, _, message string) {
			http.Error(w, message, status)
		}
	}
	return &Middleware{enforcer: enforcer, deny: deny}
}

// Authorize checks the request path against the policy with the action
// derived from the HTTP method.
func (m *Middleware) Authorize(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := auth.IdentityFromContext(r.Context())
		if !ok {
			m.deny(w, r, http.StatusUnauthorized, CodeUnauthorized, "authentication required")
			return
		}

		action := methodToAction(r.Method)
		allowed, err := m.enforcer.EnforceWithRole(id.UserID, id.Role, r.URL.Path, action)
		if err != nil {
			logging.Ctx(r.Context()).Error().Err(err).Str("path", r.URL.Path).Msg("authorization error")
			m.deny(w, r, http.StatusInternalServerError, CodeInternalError, "authorization check failed")
			return
		}
		recordDecision(id.Role, action, allowed)

		if !allowed {
			logging.Ctx(r.Context()).Info().
				Str("user_id", id.UserID).
				Str("role", id.Role).
				Str("path", r.URL.Path).
				Str("action", action).
				Msg("request denied by policy")
			m.deny(w, r, http.StatusForbidden, CodeForbidden, "insufficient permissions")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func methodToAction(method string) string {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch:
		return ActionWrite
	case http.MethodDelete:
		return ActionDelete
	default:
		return ActionRead
	}
}
