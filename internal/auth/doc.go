// Medibook - Real-time Presence and Notification Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/medibook

// Package auth verifies the HS256 bearer tokens issued by the booking API.
//
// TokenAuthenticator turns a raw token into an Identity (user id, role,
// email) or refuses it with an *AuthenticationError whose Reason is one of
// no_credentials, invalid_token, expired_token or timeout. It holds no
// connection state; the realtime session controller and the HTTP middleware
// both call it.
package auth
