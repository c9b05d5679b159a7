// Medibook - Real-time Presence and Notification Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/medibook

package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenParam is the query parameter and cookie name carrying the token for
// browser WebSocket clients, which cannot set request headers.
const TokenParam = "token"

// Identity is the verified caller of a connection or request.
type Identity struct {
	UserID string `json:"userId"`
	Role   string `json:"role"`
	Email  string `json:"email,omitempty"`
}

// TokenAuthenticator verifies connection credentials. It is pure: it never
// touches connection state.
type TokenAuthenticator struct {
	manager *JWTManager
	timeout time.Duration
}

// NewTokenAuthenticator creates an authenticator bounded by timeout.
// A non-positive timeout only honours the caller's context deadline.
func NewTokenAuthenticator(manager *JWTManager, timeout time.Duration) *TokenAuthenticator {
	return &TokenAuthenticator{manager: manager, timeout: timeout}
}

type validateResult struct {
	claims *Claims
	err    error
}

// Authenticate validates token and returns the caller's identity.
// All failures are *AuthenticationError.
func (a *TokenAuthenticator) Authenticate(ctx context.Context, token string) (Identity, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Identity{}, refuse(ErrNoCredentials)
	}

	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}
	if ctx.Err() != nil {
		return Identity{}, refuse(ErrAuthTimeout)
	}

	done := make(chan validateResult, 1)
	go func() {
		claims, err := a.manager.ValidateToken(token)
		done <- validateResult{claims: claims, err: err}
	}()

	select {
	case <-ctx.Done():
		return Identity{}, refuse(ErrAuthTimeout)
	case res := <-done:
		if res.err != nil {
			if errors.Is(res.err, jwt.ErrTokenExpired) {
				return Identity{}, refuse(ErrExpiredCredentials)
			}
			return Identity{}, refuse(ErrInvalidCredentials)
		}
		if res.claims.ID == "" || res.claims.Role == "" {
			return Identity{}, refuse(ErrInvalidCredentials)
		}
		return Identity{
			UserID: res.claims.ID,
			Role:   res.claims.Role,
			Email:  res.claims.Email,
		}, nil
	}
}

// TokenFromRequest extracts the credential from the Authorization header,
// the token query parameter, or the token cookie, in that order.
func TokenFromRequest(r *http.Request) string {
	if authHeader := r.Header.Get("Authorization"); authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			if token := strings.TrimSpace(parts[1]); token != "" {
				return token
			}
		}
	}

	if token := r.URL.Query().Get(TokenParam); token != "" {
		return token
	}

	if cookie, err := r.Cookie(TokenParam); err == nil && cookie.Value != "" {
		return cookie.Value
	}

	return ""
}

type contextKey string

const identityContextKey contextKey = "identity"

// ContextWithIdentity stores the authenticated identity in ctx.
func ContextWithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityContextKey, id)
}

// IdentityFromContext returns the identity stored by ContextWithIdentity.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityContextKey).(Identity)
	return id, ok
}
