// Medibook - Real-time Presence and Notification Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/medibook

/*
Package api is the HTTP surface of the realtime service.

Routes:

	GET  /ws                                            WebSocket upgrade (token in header, query or cookie)
	GET  /metrics                                       Prometheus exposition
	GET  /api/v1/health/live                            liveness
	GET  /api/v1/health/ready                           readiness (hub, event bridge)
	GET  /api/v1/realtime/stats                         {total, byRole}
	GET  /api/v1/realtime/connections                   connection list
	GET  /api/v1/realtime/users/{userID}/connected      {userId, connected}
	POST /api/v1/realtime/users/{userID}/disconnect     force-disconnect
	POST /api/v1/events/appointments                    ingest one appointment event

Middleware order for the /api/v1/realtime and /api/v1/events groups:

	RequestID -> RealIP -> Recoverer -> PrometheusMetrics -> CORS
	    -> httprate -> SecurityHeaders -> Authenticate -> authz.Authorize -> handler

/ws authenticates inside the handler before upgrading: a refused token gets
HTTP 401 with the refusal reason in error.details.reason and no connection
state is created.

Every JSON response uses the APIResponse envelope:

	{"success": false,
	 "error": {"code": "VALIDATION_ERROR", "message": "...", "details": {...}, "request_id": "..."},
	 "meta": {"request_id": "...", "timestamp": "...", "duration_ms": 0}}

Error codes: BAD_REQUEST, UNAUTHORIZED, FORBIDDEN, NOT_FOUND,
TOO_MANY_REQUESTS, VALIDATION_ERROR, INTERNAL_ERROR, SERVICE_UNAVAILABLE.
*/
package api
