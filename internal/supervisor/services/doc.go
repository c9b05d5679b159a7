// Medibook - Real-time Presence and Notification Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/medibook

// Package services adapts blocking components to suture.Service.
//
// HTTPServerService turns ListenAndServe/Shutdown into Serve(ctx).
// HubService runs websocket.Hub.RunWithContext.
package services
