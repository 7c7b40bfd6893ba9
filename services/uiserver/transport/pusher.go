// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package transport

import (
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/AleutianAI/wheelhouse/pkg/statetree"
	"github.com/AleutianAI/wheelhouse/services/uiserver/datatypes"
)

// DefaultWriteTimeout bounds a single frame write. A client that cannot
// drain a frame within it is treated as gone.
const DefaultWriteTimeout = 10 * time.Second

// Pusher owns the write half of one websocket connection.
//
// # Description
//
// Pusher serializes all writes behind a mutex (gorilla connections
// allow at most one concurrent writer) and stamps every sync frame with
// a monotonically increasing sync id starting at 1. The read half stays
// with the handler loop.
//
// # Thread Safety
//
// All methods are safe for concurrent use.
type Pusher struct {
	log          *slog.Logger
	conn         *websocket.Conn
	writeTimeout time.Duration

	mu     sync.Mutex
	syncID uint64
}

// PusherOption customizes a Pusher.
type PusherOption func(*Pusher)

// WithLogger sets the logger. Defaults to a discard logger.
func WithLogger(log *slog.Logger) PusherOption {
	return func(p *Pusher) {
		if log != nil {
			p.log = log
		}
	}
}

// WithWriteTimeout overrides DefaultWriteTimeout.
func WithWriteTimeout(d time.Duration) PusherOption {
	return func(p *Pusher) {
		if d > 0 {
			p.writeTimeout = d
		}
	}
}

// NewPusher wraps an upgraded connection.
func NewPusher(conn *websocket.Conn, opts ...PusherOption) *Pusher {
	p := &Pusher{
		log:          slog.New(slog.NewTextHandler(io.Discard, nil)),
		conn:         conn,
		writeTimeout: DefaultWriteTimeout,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// SyncID returns the id of the last pushed sync frame (0 before the
// first).
func (p *Pusher) SyncID() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.syncID
}

// PushSessionCreated sends the connection's opening envelope.
func (p *Pusher) PushSessionCreated(sessionID, location string) error {
	return p.write(&datatypes.ServerMessage{
		Action:    datatypes.ActionSessionCreated,
		SessionID: sessionID,
		Location:  location,
	})
}

// PushFrame encodes and sends one sync frame.
//
// # Description
//
// Empty incremental batches are dropped without consuming a sync id, so
// no-op mutations stay invisible to the client. Full frames are always
// sent, even when empty, because the client resets its state on them.
//
// # Inputs
//
//   - location: The active route location to stamp on the frame.
//   - sets: The collected batch. May be nil.
//   - full: True for snapshot frames (resync, reconnect).
//
// # Outputs
//
//   - uint64: The sync id used, 0 when the frame was skipped.
//   - error: Write failure; the caller should drop the connection.
func (p *Pusher) PushFrame(location string, sets []statetree.ChangeSet, full bool) (uint64, error) {
	changes := Encode(sets)
	if len(changes) == 0 && !full {
		return 0, nil
	}

	p.mu.Lock()
	p.syncID++
	id := p.syncID
	msg := &datatypes.ServerMessage{
		Action:   datatypes.ActionSync,
		SyncID:   id,
		Location: location,
		Full:     full,
		Changes:  changes,
	}
	err := p.writeLocked(msg)
	p.mu.Unlock()

	if err != nil {
		return 0, err
	}
	p.log.Debug("frame pushed",
		"sync_id", id,
		"full", full,
		"nodes", len(changes),
		"changes", CountChanges(sets))
	return id, nil
}

// PushError reports a request-level failure without closing the
// connection.
func (p *Pusher) PushError(message string) error {
	return p.write(&datatypes.ServerMessage{
		Action: datatypes.ActionError,
		Error:  message,
	})
}

// write sends one envelope under the write lock.
func (p *Pusher) write(msg *datatypes.ServerMessage) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.writeLocked(msg)
}

// writeLocked sends one envelope. Caller holds mu.
func (p *Pusher) writeLocked(msg *datatypes.ServerMessage) error {
	_ = p.conn.SetWriteDeadline(time.Now().Add(p.writeTimeout))
	if err := p.conn.WriteJSON(msg); err != nil {
		p.log.Warn("websocket write failed", "action", msg.Action, "error", err)
		return err
	}
	return nil
}
