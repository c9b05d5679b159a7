// Medibook - Real-time Presence and Notification Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/medibook

package websocket

import (
	"sort"
	"sync"
	"time"

	"github.com/tomtom215/medibook/internal/metrics"
)

// ConnectionRecord is the registry entry for one authenticated connection.
type ConnectionRecord struct {
	Handle       *Client   `json:"-"`
	ConnectionID string    `json:"connectionId"`
	UserID       string    `json:"userId"`
	Role         string    `json:"role"`
	Email        string    `json:"email,omitempty"`
	ConnectedAt  time.Time `json:"connectedAt"`
}

// Registry maps each user to at most one live connection.
// All methods are safe for concurrent use; reads return point-in-time snapshots.
type Registry struct {
	mu     sync.RWMutex
	byUser map[string]ConnectionRecord
	now    func() time.Time
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		byUser: make(map[string]ConnectionRecord),
		now:    time.Now,
	}
}

// Register records handle as userID's connection. When userID already had a
// connection the old record is overwritten and its handle is returned as
// replaced; otherwise replaced is nil.
func (r *Registry) Register(userID string, handle *Client, role, email string) (rec ConnectionRecord, replaced *Client) {
	rec = ConnectionRecord{
		Handle:       handle,
		ConnectionID: handle.ConnectionID(),
		UserID:       userID,
		Role:         role,
		Email:        email,
		ConnectedAt:  r.now().UTC(),
	}

	r.mu.Lock()
	prev, existed := r.byUser[userID]
	r.byUser[userID] = rec
	r.mu.Unlock()

	if existed {
		metrics.RecordConnectionClosed(prev.Role)
		if prev.Handle != handle {
			replaced = prev.Handle
			metrics.WSReplacedConnections.Inc()
		}
	}
	metrics.RecordConnectionOpened(role)

	return rec, replaced
}

// Deregister removes userID's record only if it still points at handle, so a
// superseded connection tearing down late cannot remove its replacement.
// It reports whether a record was removed and is idempotent.
func (r *Registry) Deregister(userID string, handle *Client) bool {
	r.mu.Lock()
	rec, ok := r.byUser[userID]
	if !ok || rec.Handle != handle {
		r.mu.Unlock()
		return false
	}
	delete(r.byUser, userID)
	r.mu.Unlock()

	metrics.RecordConnectionClosed(rec.Role)
	return true
}

// Lookup returns userID's current record.
func (r *Registry) Lookup(userID string) (ConnectionRecord, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.byUser[userID]
	return rec, ok
}

// CountAll returns the number of registered connections.
func (r *Registry) CountAll() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byUser)
}

// CountByRole returns the number of registered connections per role.
func (r *Registry) CountByRole() map[string]int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	counts := make(map[string]int)
	for _, rec := range r.byUser {
		counts[rec.Role]++
	}
	return counts
}

// ListAll returns every record ordered by connection time, then user ID.
func (r *Registry) ListAll() []ConnectionRecord {
	r.mu.RLock()
	records := make([]ConnectionRecord, 0, len(r.byUser))
	for _, rec := range r.byUser {
		records = append(records, rec)
	}
	r.mu.RUnlock()

	sort.Slice(records, func(i, j int) bool {
		if !records[i].ConnectedAt.Equal(records[j].ConnectedAt) {
			return records[i].ConnectedAt.Before(records[j].ConnectedAt)
		}
		return records[i].UserID < records[j].UserID
	})
	return records
}
