// Medibook - Real-time Presence and Notification Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/medibook

package authz

import (
	"sync"
	"time"
)

// decisionCache remembers enforcement results for ttl. A janitor goroutine
// drops expired entries so per-user paths do not accumulate.
type decisionCache struct {
	ttl time.Duration
	now func() time.Time

	mu    sync.RWMutex
	items map[decisionKey]decision

	stopCh   chan struct{}
	stopOnce sync.Once
}

type decisionKey struct {
	subject, object, action string
}

type decision struct {
	allowed   bool
	expiresAt time.Time
}

func newDecisionCache(ttl time.Duration) *decisionCache {
	c := &decisionCache{
		ttl:    ttl,
		now:    time.Now,
		items:  make(map[decisionKey]decision),
		stopCh: make(chan struct{}),
	}
	go c.janitor()
	return c
}

func (c *decisionCache) get(subject, object, action string) (allowed, ok bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	d, found := c.items[decisionKey{subject, object, action}]
	if !found || c.now().After(d.expiresAt) {
		return false, false
	}
	return d.allowed, true
}

func (c *decisionCache) set(subject, object, action string, allowed bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[decisionKey{subject, object, action}] = decision{
		allowed:   allowed,
		expiresAt: c.now().Add(c.ttl),
	}
}

func (c *decisionCache) clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = make(map[decisionKey]decision)
}

func (c *decisionCache) len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

func (c *decisionCache) sweep() {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	for k, d := range c.items {
		if now.After(d.expiresAt) {
			delete(c.items, k)
		}
	}
}

func (c *decisionCache) janitor() {
	ticker := time.NewTicker(c.ttl)
	defer ticker.Stop()
	for {
		select {
		case <-c.stopCh:
			return
		case <-ticker.C:
			c.sweep()
		}
	}
}

// stop is idempotent.
func (c *decisionCache) stop() {
	c.stopOnce.Do(func() { close(c.stopCh) })
}
