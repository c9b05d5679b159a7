// Medibook - Real-time Presence and Notification Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/medibook

package authz

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	fileadapter "github.com/casbin/casbin/v2/persist/file-adapter"

	"github.com/tomtom215/medibook/internal/config"
	"github.com/tomtom215/medibook/internal/logging"
)

//go:embed model.conf
var embeddedModel string

//go:embed policy.csv
var embeddedPolicy string

// Actions derived from HTTP methods.
const (
	ActionRead   = "read"
	ActionWrite  = "write"
	ActionDelete = "delete"
)

// ErrNoAdapter is returned by Reload when the embedded policy is in use.
var ErrNoAdapter = errors.New("no policy file configured; using embedded policy")

// Enforcer wraps a Casbin SyncedEnforcer with a decision cache.
type Enforcer struct {
	cfg      config.AuthzConfig
	enforcer *casbin.SyncedEnforcer
	cache    *decisionCache

	stopReload chan struct{}
	closeOnce  sync.Once
}

// NewEnforcer loads the model and policy from cfg, falling back to the
// embedded defaults for paths that are empty or missing.
func NewEnforcer(cfg config.AuthzConfig) (*Enforcer, error) {
	var (
		m   model.Model
		err error
	)
	if cfg.ModelPath != "" && fileExists(cfg.ModelPath) {
		m, err = model.NewModelFromFile(cfg.ModelPath)
	} else {
		m, err = model.NewModelFromString(embeddedModel)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load casbin model: %w", err)
	}

	var enforcer *casbin.SyncedEnforcer
	if cfg.PolicyPath != "" && fileExists(cfg.PolicyPath) {
		enforcer, err = casbin.NewSyncedEnforcer(m, fileadapter.NewAdapter(cfg.PolicyPath))
	} else {
		cfg.PolicyPath = ""
		enforcer, err = casbin.NewSyncedEnforcer(m)
		if err == nil {
			err = loadPolicyText(enforcer, embeddedPolicy)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create casbin enforcer: %w", err)
	}

	e := &Enforcer{cfg: cfg, enforcer: enforcer, stopReload: make(chan struct{})}
	if cfg.CacheTTL > 0 {
		e.cache = newDecisionCache(cfg.CacheTTL)
	}
	// Reload goes through Reload so cached decisions are dropped with the
	// old policy.
	if cfg.ReloadInterval > 0 && cfg.PolicyPath != "" {
		go e.reloadLoop(cfg.ReloadInterval)
	}

	logging.Info().
		Str("component", "authz").
		Bool("embedded_policy", cfg.PolicyPath == "").
		Int("rules", len(e.Policy())).
		Msg("authorization policy loaded")
	return e, nil
}

// loadPolicyText adds the p and g lines of a policy CSV.
func loadPolicyText(enforcer *casbin.SyncedEnforcer, text string) error {
	var rules, groupings [][]string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Split(line, ",")
		for i := range fields {
			fields[i] = strings.TrimSpace(fields[i])
		}
		switch {
		case fields[0] == "p" && len(fields) == 4:
			rules = append(rules, fields[1:])
		case fields[0] == "g" && len(fields) == 3:
			groupings = append(groupings, fields[1:])
		default:
			return fmt.Errorf("malformed policy line %q", line)
		}
	}

	if len(rules) > 0 {
		if _, err := enforcer.AddPolicies(rules); err != nil {
			return fmt.Errorf("failed to add policies: %w", err)
		}
	}
	if len(groupings) > 0 {
		if _, err := enforcer.AddGroupingPolicies(groupings); err != nil {
			return fmt.Errorf("failed to add grouping policies: %w", err)
		}
	}
	return nil
}

// Enforce reports whether subject may perform action on object.
func (e *Enforcer) Enforce(subject, object, action string) (bool, error) {
	if e.cache != nil {
		if allowed, ok := e.cache.get(subject, object, action); ok {
			recordCacheLookup(true)
			return allowed, nil
		}
		recordCacheLookup(false)
	}

	allowed, err := e.enforcer.Enforce(subject, object, action)
	if err != nil {
		return false, fmt.Errorf("enforcement failed: %w", err)
	}
	if e.cache != nil {
		e.cache.set(subject, object, action, allowed)
	}
	return allowed, nil
}

// EnforceWithRole allows the request if either the user id or its role is
// granted. Direct user grants let operators open access to a single account
// without changing its role.
func (e *Enforcer) EnforceWithRole(userID, role, object, action string) (bool, error) {
	if userID != "" {
		allowed, err := e.Enforce(userID, object, action)
		if err != nil || allowed {
			return allowed, err
		}
	}
	if role == "" {
		return false, nil
	}
	return e.Enforce(role, object, action)
}

// AddRoleForUser grants role to user.
func (e *Enforcer) AddRoleForUser(user, role string) (bool, error) {
	added, err := e.enforcer.AddGroupingPolicy(user, role)
	if err != nil {
		return false, fmt.Errorf("failed to add role: %w", err)
	}
	e.invalidate()
	return added, nil
}

// AddPolicy grants subject action on object.
func (e *Enforcer) AddPolicy(subject, object, action string) (bool, error) {
	added, err := e.enforcer.AddPolicy(subject, object, action)
	if err != nil {
		return false, fmt.Errorf("failed to add policy: %w", err)
	}
	e.invalidate()
	return added, nil
}

// RemovePolicy revokes a rule added with AddPolicy or loaded from the policy.
func (e *Enforcer) RemovePolicy(subject, object, action string) (bool, error) {
	removed, err := e.enforcer.RemovePolicy(subject, object, action)
	if err != nil {
		return false, fmt.Errorf("failed to remove policy: %w", err)
	}
	e.invalidate()
	return removed, nil
}

// Reload re-reads the policy file.
func (e *Enforcer) Reload() error {
	if e.cfg.PolicyPath == "" {
		return ErrNoAdapter
	}
	if err := e.enforcer.LoadPolicy(); err != nil {
		return fmt.Errorf("failed to reload policy: %w", err)
	}
	e.invalidate()
	return nil
}

// Policy returns every p rule.
func (e *Enforcer) Policy() [][]string {
	//nolint:errcheck // only fails on a nil model
	rules, _ := e.enforcer.GetPolicy()
	return rules
}

// Close stops policy reload and the cache janitor.
func (e *Enforcer) Close() {
	e.closeOnce.Do(func() {
		close(e.stopReload)
		if e.cache != nil {
			e.cache.stop()
		}
	})
}

func (e *Enforcer) reloadLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-e.stopReload:
			return
		case <-ticker.C:
			if err := e.Reload(); err != nil {
				logging.Warn().Err(err).Str("component", "authz").Msg("policy reload failed, keeping previous policy")
			}
		}
	}
}

func (e *Enforcer) invalidate() {
	if e.cache != nil {
		e.cache.clear()
	}
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
