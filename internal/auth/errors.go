// Medibook - Real-time Presence and Notification Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/medibook

package auth

import "errors"

// Standard authentication errors
var (
	// ErrNoCredentials indicates no credentials were provided.
	ErrNoCredentials = errors.New("no credentials provided")

	// ErrInvalidCredentials indicates credentials were malformed, wrongly
	// signed, or missing a required claim.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrExpiredCredentials indicates credentials have expired.
	ErrExpiredCredentials = errors.New("credentials expired")

	// ErrAuthTimeout indicates the credential check exceeded its deadline.
	ErrAuthTimeout = errors.New("authentication timed out")
)

// Refusal reasons reported to clients and used as metric labels.
const (
	ReasonNoCredentials = "no_credentials"
	ReasonInvalidToken  = "invalid_token"
	ReasonExpiredToken  = "expired_token"
	ReasonTimeout       = "timeout"
)

// AuthenticationError is returned when a connection attempt is refused.
// Err is one of the sentinel errors above.
type AuthenticationError struct {
	Reason string
	Err    error
}

func (e *AuthenticationError) Error() string {
	return "authentication failed: " + e.Err.Error()
}

func (e *AuthenticationError) Unwrap() error {
	return e.Err
}

func refuse(err error) *AuthenticationError {
	reason := ReasonInvalidToken
	switch {
	case errors.Is(err, ErrNoCredentials):
		reason = ReasonNoCredentials
	case errors.Is(err, ErrExpiredCredentials):
		reason = ReasonExpiredToken
	case errors.Is(err, ErrAuthTimeout):
		reason = ReasonTimeout
	}
	return &AuthenticationError{Reason: reason, Err: err}
}

// RefusalReason returns the machine reason for err, or "" when err is not an
// AuthenticationError.
func RefusalReason(err error) string {
	var authErr *AuthenticationError
	if errors.As(err, &authErr) {
		return authErr.Reason
	}
	return ""
}
