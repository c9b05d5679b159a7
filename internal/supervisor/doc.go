// Medibook - Real-time Presence and Notification Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/medibook

/*
Package supervisor runs the long-lived services of the realtime server under
a suture v4 tree.

	medibook
	├── realtime-layer
	│   ├── realtime-hub   (services.HubService)
	│   └── event-bridge   (eventbridge.Bridge, when NATS_ENABLED)
	└── api-layer
	    └── http-server    (services.HTTPServerService)

Crashed services are restarted with suture's backoff. Failures are counted
per layer, so a bridge that cannot reach NATS does not restart the HTTP
server. Supervisor events are logged through sutureslog into the zerolog
backend via logging.NewSlogLogger.

Shutdown is driven by context cancellation. The hub stops accepting
connections and closes every session; the HTTP server drains in-flight
requests within ShutdownTimeout. UnstoppedServiceReport lists anything
that did not stop in time.
*/
package supervisor
