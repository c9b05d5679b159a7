// Medibook - Real-time Presence and Notification Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/medibook

package services

import (
	"context"
)

// ContextHub is satisfied by *websocket.Hub.
type ContextHub interface {
	RunWithContext(ctx context.Context) error
}

// HubService runs the realtime hub. When the context is canceled the hub
// stops accepting connections and tears down every live session before
// Serve returns.
type HubService struct {
	hub ContextHub
}

// NewHubService wraps hub.
func NewHubService(hub ContextHub) *HubService {
	return &HubService{hub: hub}
}

// Serve implements suture.Service.
func (s *HubService) Serve(ctx context.Context) error {
	return s.hub.RunWithContext(ctx)
}

// String names the service in supervisor events.
func (s *HubService) String() string {
	return "realtime-hub"
}
