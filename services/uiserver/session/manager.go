// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package session

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Manager defaults. Sessions idle past the timeout are removed by the
// reaper; the message rate bounds inbound websocket traffic per
// session.
const (
	DefaultIdleTimeout    = 5 * time.Minute
	DefaultReapInterval   = 30 * time.Second
	DefaultMessagesPerSec = 20
	DefaultMessageBurst   = 40
)

// Manager creates, tracks, and reaps sessions.
//
// # Thread Safety
//
// All methods are safe for concurrent use.
type Manager struct {
	log     *slog.Logger
	factory UIFactory

	idleTimeout  time.Duration
	reapInterval time.Duration
	msgRate      rate.Limit
	msgBurst     int

	// onEvict runs after a session leaves the table, for both Remove
	// and the reaper. Used by the server for metrics.
	onEvict func(*Session)

	mu       sync.RWMutex
	sessions map[string]*Session
}

// ManagerOption customizes a Manager.
type ManagerOption func(*Manager)

// WithLogger sets the logger for the manager and its sessions.
func WithLogger(log *slog.Logger) ManagerOption {
	return func(m *Manager) {
		if log != nil {
			m.log = log
		}
	}
}

// WithIdleTimeout overrides how long a session may go without a
// heartbeat before the reaper removes it.
func WithIdleTimeout(d time.Duration) ManagerOption {
	return func(m *Manager) {
		if d > 0 {
			m.idleTimeout = d
		}
	}
}

// WithReapInterval overrides how often the reaper scans.
func WithReapInterval(d time.Duration) ManagerOption {
	return func(m *Manager) {
		if d > 0 {
			m.reapInterval = d
		}
	}
}

// WithMessageRate overrides the per-session inbound message limiter.
func WithMessageRate(perSecond float64, burst int) ManagerOption {
	return func(m *Manager) {
		if perSecond > 0 && burst > 0 {
			m.msgRate = rate.Limit(perSecond)
			m.msgBurst = burst
		}
	}
}

// WithEvictHook sets a callback invoked whenever a session is removed,
// by explicit Remove or by the reaper.
func WithEvictHook(fn func(*Session)) ManagerOption {
	return func(m *Manager) {
		m.onEvict = fn
	}
}

// NewManager creates a Manager that builds session UIs with factory.
func NewManager(factory UIFactory, opts ...ManagerOption) *Manager {
	m := &Manager{
		log:          slog.New(slog.NewTextHandler(io.Discard, nil)),
		factory:      factory,
		idleTimeout:  DefaultIdleTimeout,
		reapInterval: DefaultReapInterval,
		msgRate:      rate.Limit(DefaultMessagesPerSec),
		msgBurst:     DefaultMessageBurst,
		sessions:     make(map[string]*Session),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Create builds a fresh UI through the factory and registers a new
// session around it.
func (m *Manager) Create() (*Session, error) {
	ui, err := m.factory(m.log)
	if err != nil {
		return nil, fmt.Errorf("build session ui: %w", err)
	}

	s := newSession(ui, m.log, m.msgRate, m.msgBurst)

	m.mu.Lock()
	m.sessions[s.id] = s
	m.mu.Unlock()

	m.log.Info("session created", "session_id", s.id)
	return s, nil
}

// Get returns the session with the given id, if it is still live.
func (m *Manager) Get(id string) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	return s, ok
}

// Remove drops the session from the table. Returns false when the id
// was not present (already removed or never existed).
func (m *Manager) Remove(id string) bool {
	m.mu.Lock()
	s, ok := m.sessions[id]
	if ok {
		delete(m.sessions, id)
	}
	m.mu.Unlock()

	if !ok {
		return false
	}
	m.log.Info("session removed", "session_id", id)
	if m.onEvict != nil {
		m.onEvict(s)
	}
	return true
}

// Count returns the number of live sessions.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Snapshot returns metadata for every live session, ordered by id.
func (m *Manager) Snapshot() []Info {
	m.mu.RLock()
	live := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		live = append(live, s)
	}
	m.mu.RUnlock()

	infos := make([]Info, 0, len(live))
	for _, s := range live {
		infos = append(infos, s.Snapshot())
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].ID < infos[j].ID })
	return infos
}

// RunReaper removes idle sessions on a fixed interval until ctx is
// canceled. Run it in its own goroutine (the server uses errgroup).
func (m *Manager) RunReaper(ctx context.Context) error {
	ticker := time.NewTicker(m.reapInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-ticker.C:
			reaped := m.reapIdle(now)
			if len(reaped) > 0 {
				m.log.Info("reaped idle sessions", "count", len(reaped))
			}
		}
	}
}

// reapIdle removes every session whose last heartbeat is older than the
// idle timeout at time now, and returns the removed sessions.
func (m *Manager) reapIdle(now time.Time) []*Session {
	cutoff := now.Add(-m.idleTimeout)

	m.mu.Lock()
	var stale []*Session
	for id, s := range m.sessions {
		if s.LastHeartbeat().Before(cutoff) {
			stale = append(stale, s)
			delete(m.sessions, id)
		}
	}
	m.mu.Unlock()

	for _, s := range stale {
		m.log.Info("session expired", "session_id", s.id,
			"last_heartbeat", s.LastHeartbeat())
		if m.onEvict != nil {
			m.onEvict(s)
		}
	}
	return stale
}
