// Medibook - Real-time Presence and Notification Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/medibook

package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/tomtom215/medibook/internal/logging"
)

// RequestIDHeader carries the request id in both directions.
const RequestIDHeader = "X-Request-ID"

// maxUpstreamRequestID bounds ids accepted from proxies so a client cannot
// inject arbitrarily long values into every log line.
const maxUpstreamRequestID = 128

// RequestID assigns each request an id, reusing one set by an upstream proxy,
// echoes it in the response and stores it in the logging context together
// with a fresh correlation id.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(RequestIDHeader)
		if requestID == "" || len(requestID) > maxUpstreamRequestID {
			requestID = uuid.New().String()
		}

		w.Header().Set(RequestIDHeader, requestID)

		ctx := logging.ContextWithRequestID(r.Context(), requestID)
		ctx = logging.ContextWithNewCorrelationID(ctx)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
