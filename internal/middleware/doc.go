// Medibook - Real-time Presence and Notification Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/medibook

/*
Package middleware provides infrastructure middleware shared by every route.

  - RequestID: X-Request-ID propagation plus request and correlation ids in
    the logging context
  - PrometheusMetrics: request count and latency labelled by chi route pattern
  - SecurityHeaders: nosniff, DENY framing and a locked-down CSP for JSON

All three have the chi signature func(http.Handler) http.Handler:

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.PrometheusMetrics)
	r.Route("/api/v1", func(r chi.Router) {
	    r.Use(middleware.SecurityHeaders)
	    ...
	})

PrometheusMetrics wraps the ResponseWriter but forwards Hijack, so it can
sit in front of the WebSocket upgrade.
*/
package middleware
