// Medibook - Real-time Presence and Notification Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/medibook

package authz

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// DecisionsTotal counts authorization decisions by role and outcome.
	DecisionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "authz_decisions_total",
			Help: "Total number of authorization decisions",
		},
		[]string{"role", "action", "decision"},
	)

	// CacheLookupsTotal counts decision cache lookups by result.
	CacheLookupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "authz_cache_lookups_total",
			Help: "Total number of authorization cache lookups",
		},
		[]string{"result"},
	)
)

func recordDecision(role, action string, allowed bool) {
	outcome := "deny"
	if allowed {
		outcome = "allow"
	}
	DecisionsTotal.WithLabelValues(role, action, outcome).Inc()
}

func recordCacheLookup(hit bool) {
	if hit {
		CacheLookupsTotal.WithLabelValues("hit").Inc()
		return
	}
	CacheLookupsTotal.WithLabelValues("miss").Inc()
}
