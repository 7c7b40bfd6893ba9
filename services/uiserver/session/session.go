// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package session owns the per-client UI state and its locking.
//
// # Description
//
// The state tree core is single-owner and does no internal locking.
// This package provides the owner: every session holds one UI (tree +
// navigator) behind a mutex, and all reads and mutations go through
// Session.Access so exactly one goroutine touches the tree at a time.
//
// Sessions also track client liveness. Each inbound heartbeat bumps a
// timestamp and fires heartbeat listeners; the Manager's reaper removes
// sessions whose timestamp has gone stale.
//
// # Thread Safety
//
// Session and Manager are safe for concurrent use. Callbacks passed to
// Access run under the session mutex and must not call Access again
// (the mutex is not reentrant).
package session

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/AleutianAI/wheelhouse/pkg/router"
	"github.com/AleutianAI/wheelhouse/pkg/statetree"
)

// UI bundles the server-side state owned by one client: the state tree
// holding the component hierarchy and the navigator that reconciles
// route targets into it.
type UI struct {
	Tree *statetree.Tree
	Nav  *router.Navigator
}

// UIFactory builds a fresh UI for a new session. The demo application
// supplies one that registers its routes and shows the default view.
type UIFactory func(log *slog.Logger) (*UI, error)

// Session is one client's server-side state plus the lock that
// serializes access to it.
type Session struct {
	id        string
	createdAt time.Time
	log       *slog.Logger

	// mu serializes all access to ui. Listener callbacks inside the
	// tree run synchronously on the goroutine holding mu.
	mu sync.Mutex
	ui *UI

	// hbMu guards liveness state separately from ui so heartbeats
	// never queue behind long mutations.
	hbMu          sync.Mutex
	lastHeartbeat time.Time
	hbListeners   []*heartbeatListener

	// limiter bounds inbound client messages for this session.
	limiter *rate.Limiter
}

// heartbeatListener is one registered heartbeat callback.
type heartbeatListener struct {
	fn func(time.Time)
}

// ID returns the session's uuid.
func (s *Session) ID() string {
	return s.id
}

// CreatedAt returns when the session was created.
func (s *Session) CreatedAt() time.Time {
	return s.createdAt
}

// Access runs fn with exclusive ownership of the session's UI.
//
// # Description
//
// All tree and navigator use must happen inside fn. The error from fn
// is returned unchanged, so callers can surface navigation failures
// without extra plumbing.
//
// # Thread Safety
//
// fn must not call Access on the same session; the mutex is not
// reentrant.
func (s *Session) Access(fn func(ui *UI) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.ui)
}

// Heartbeat records client liveness at time now and notifies heartbeat
// listeners with that timestamp.
//
// Listener delivery matches the state tree contract: the listener list
// is snapshotted before the first callback, removal mid-fire only
// affects later heartbeats, and panics are logged and swallowed.
func (s *Session) Heartbeat(now time.Time) {
	s.hbMu.Lock()
	s.lastHeartbeat = now
	snapshot := make([]*heartbeatListener, len(s.hbListeners))
	copy(snapshot, s.hbListeners)
	s.hbMu.Unlock()

	for _, e := range snapshot {
		s.invokeHeartbeat(e.fn, now)
	}
}

// invokeHeartbeat runs one callback, converting a panic into a log
// entry.
func (s *Session) invokeHeartbeat(fn func(time.Time), now time.Time) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("session heartbeat listener panicked",
				"session_id", s.id,
				"panic", r)
		}
	}()
	fn(now)
}

// LastHeartbeat returns the time of the most recent heartbeat (the
// creation time if none arrived yet).
func (s *Session) LastHeartbeat() time.Time {
	s.hbMu.Lock()
	defer s.hbMu.Unlock()
	return s.lastHeartbeat
}

// AddHeartbeatListener registers fn to run on every heartbeat with the
// heartbeat timestamp. The returned registration removes it.
func (s *Session) AddHeartbeatListener(fn func(time.Time)) *statetree.Registration {
	e := &heartbeatListener{fn: fn}
	s.hbMu.Lock()
	s.hbListeners = append(s.hbListeners, e)
	s.hbMu.Unlock()

	return statetree.NewRegistration(func() {
		s.hbMu.Lock()
		defer s.hbMu.Unlock()
		for i, cur := range s.hbListeners {
			if cur == e {
				s.hbListeners = append(s.hbListeners[:i], s.hbListeners[i+1:]...)
				return
			}
		}
	})
}

// Allow reports whether the session's rate limiter admits one more
// inbound message right now.
func (s *Session) Allow() bool {
	return s.limiter.Allow()
}

// Info is a point-in-time snapshot of session metadata for the admin
// surface.
type Info struct {
	ID            string    `json:"sessionId"`
	CreatedAt     time.Time `json:"createdAt"`
	LastHeartbeat time.Time `json:"lastHeartbeat"`
	Nodes         int       `json:"nodes"`
	Location      string    `json:"location"`
}

// Snapshot captures the session's metadata. It takes the session lock
// briefly to read node count and location.
func (s *Session) Snapshot() Info {
	info := Info{
		ID:            s.id,
		CreatedAt:     s.createdAt,
		LastHeartbeat: s.LastHeartbeat(),
	}
	_ = s.Access(func(ui *UI) error {
		info.Nodes = ui.Tree.NodeCount()
		info.Location = ui.Nav.ActiveLocation()
		return nil
	})
	return info
}

// newSession builds a Session around an already-constructed UI.
func newSession(ui *UI, log *slog.Logger, limit rate.Limit, burst int) *Session {
	now := time.Now()
	id := uuid.NewString()
	return &Session{
		id:            id,
		createdAt:     now,
		log:           log.With("session_id", id),
		ui:            ui,
		lastHeartbeat: now,
		limiter:       rate.NewLimiter(limit, burst),
	}
}
