// Medibook - Real-time Presence and Notification Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/medibook

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tomtom215/medibook/internal/authz"
	"github.com/tomtom215/medibook/internal/middleware"
)

// Router assembles the handler and its middleware into a chi mux.
type Router struct {
	handler       *Handler
	chiMiddleware *ChiMiddleware
	authn         TokenAuthenticator
	authorizer    *authz.Middleware
}

// NewRouter creates a router. Every /api/v1/realtime and /api/v1/events
// route requires a token accepted by authn and a policy grant from enforcer.
func NewRouter(handler *Handler, mw *ChiMiddleware, authn TokenAuthenticator, enforcer *authz.Enforcer) *Router {
	return &Router{
		handler:       handler,
		chiMiddleware: mw,
		authn:         authn,
		authorizer:    authz.NewMiddleware(enforcer, WriteError),
	}
}

// Setup returns the HTTP handler for all routes.
func (router *Router) Setup() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.PrometheusMetrics)
	r.Use(router.chiMiddleware.CORS())

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		NewResponseWriter(w, r).NotFound("route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		WriteError(w, r, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "method not allowed")
	})

	// The token is checked inside the handler so refusals carry their reason.
	r.With(router.chiMiddleware.RateLimit()).Get("/ws", router.handler.WebSocket)

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1/health", func(r chi.Router) {
		r.Use(router.chiMiddleware.RateLimitHealth())
		r.Use(middleware.SecurityHeaders)
		r.Get("/live", router.handler.HealthLive)
		r.Get("/ready", router.handler.HealthReady)
	})

	r.Route("/api/v1/realtime", func(r chi.Router) {
		r.Use(router.chiMiddleware.RateLimit())
		r.Use(middleware.SecurityHeaders)
		r.Use(Authenticate(router.authn))
		r.Use(router.authorizer.Authorize)

		r.Get("/stats", router.handler.RealtimeStats)
		r.Get("/connections", router.handler.Connections)
		r.Get("/users/{userID}/connected", router.handler.UserConnected)
		r.Post("/users/{userID}/disconnect", router.handler.ForceDisconnect)
	})

	r.Route("/api/v1/events", func(r chi.Router) {
		r.Use(router.chiMiddleware.RateLimit())
		r.Use(middleware.SecurityHeaders)
		r.Use(Authenticate(router.authn))
		r.Use(router.authorizer.Authorize)

		r.Post("/appointments", router.handler.IngestAppointmentEvent)
	})

	return r
}
