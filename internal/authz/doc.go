// Medibook - Real-time Presence and Notification Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/medibook

// Package authz authorizes the HTTP admin and event-ingest routes with Casbin.
//
//	Request -> auth middleware (bearer token) -> authz middleware -> handler
//
// Subjects are the caller's user id and role, objects are request paths
// matched with keyMatch2, and actions are read, write or delete derived from
// the HTTP method. The default policy grants admin the realtime and events
// routes and lets a service role push events and check presence:
//
//	p, admin, /api/v1/realtime/*, read
//	p, service, /api/v1/events/*, write
//	g, superadmin, admin
//
// CASBIN_MODEL_PATH and CASBIN_POLICY_PATH replace the embedded model.conf
// and policy.csv. With a policy file, CASBIN_RELOAD re-reads it periodically.
// Decisions are cached for CASBIN_CACHE_TTL and the cache is cleared on every
// policy change.
//
// The websocket endpoint is not covered: realtime connections authenticate
// with their own token and only ever receive their own topics.
package authz
