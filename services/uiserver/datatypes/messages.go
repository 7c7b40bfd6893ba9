// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package datatypes provides wire types for the uiserver websocket protocol.
//
// This file contains the client and server envelopes. The encoded form of
// individual state changes lives in changes.go.
package datatypes

import (
	"github.com/go-playground/validator/v10"
)

// =============================================================================
// Protocol Limits
// =============================================================================

const (
	// MaxLocationBytes is the maximum size of a navigation location.
	// Checked in bytes (not runes) so oversized payloads are rejected
	// before they reach the router.
	MaxLocationBytes = 2 * 1024 // 2KB

	// MaxInboundMessageBytes bounds a single client websocket message.
	// Enforced via the connection read limit; a well-formed client
	// message is a short action envelope.
	MaxInboundMessageBytes = 8 * 1024 // 8KB
)

// =============================================================================
// Actions
// =============================================================================

// Client → server actions.
const (
	// ActionHeartbeat keeps the session alive without mutating state.
	ActionHeartbeat = "heartbeat"

	// ActionNavigate asks the server to show a different route.
	ActionNavigate = "navigate"

	// ActionResync asks for a full state snapshot. Sent by clients
	// that lost frames (reconnect, decode failure).
	ActionResync = "resync"
)

// Server → client actions.
const (
	// ActionSessionCreated is the first message on a new connection.
	ActionSessionCreated = "session_created"

	// ActionSync carries a change frame (incremental or full).
	ActionSync = "sync"

	// ActionError reports a request-level failure. The connection
	// stays open.
	ActionError = "error"
)

// =============================================================================
// Shared Validator Instance
// =============================================================================

// wireValidate is the validator instance for wire envelopes.
// Initialized in init() with custom validators and never modified
// afterwards.
var wireValidate *validator.Validate

func init() {
	wireValidate = validator.New()
	_ = wireValidate.RegisterValidation("maxbytes", validateMaxBytes)
}

// validateMaxBytes checks that a string field does not exceed
// MaxLocationBytes. Byte length, not rune count, so multi-byte input
// cannot dodge the limit.
func validateMaxBytes(fl validator.FieldLevel) bool {
	return len(fl.Field().String()) <= MaxLocationBytes
}

// =============================================================================
// Client Envelope
// =============================================================================

// ClientMessage is the envelope for everything a client sends after the
// websocket is established.
//
// # Fields
//
//   - Action: Required. One of "heartbeat", "navigate", "resync".
//   - Location: Required for "navigate"; the route path to show.
//     Limited to MaxLocationBytes.
//
// # Validation
//
// Uses go-playground/validator:
//   - Action: required, oneof=heartbeat navigate resync
//   - Location: required when Action is navigate, max 2KB
type ClientMessage struct {
	Action   string `json:"action" validate:"required,oneof=heartbeat navigate resync"`
	Location string `json:"location,omitempty" validate:"required_if=Action navigate,omitempty,maxbytes"`
}

// Validate validates the ClientMessage fields.
//
// Returns a validator.ValidationErrors describing every failed rule, or
// nil when the envelope is well-formed.
func (m *ClientMessage) Validate() error {
	return wireValidate.Struct(m)
}

// =============================================================================
// Server Envelope
// =============================================================================

// ServerMessage is the envelope for everything the server pushes.
//
// One struct covers all three actions; unused fields are omitted from
// the encoded JSON.
//
// # Fields
//
//   - Action: "session_created", "sync", or "error".
//   - SessionID: Set on session_created.
//   - SyncID: Monotonic frame counter, starting at 1. Set on sync.
//   - Location: Active route location. Set on session_created and on
//     sync frames produced by a navigation.
//   - Full: True when the sync frame is a complete snapshot rather
//     than an incremental batch. The client must drop local state and
//     rebuild from the frame.
//   - Changes: Per-node change batches, ascending node id.
//   - Error: Human-readable failure description. Set on error.
type ServerMessage struct {
	Action    string        `json:"action" validate:"required,oneof=session_created sync error"`
	SessionID string        `json:"sessionId,omitempty"`
	SyncID    uint64        `json:"syncId,omitempty"`
	Location  string        `json:"location,omitempty"`
	Full      bool          `json:"full,omitempty"`
	Changes   []NodeChanges `json:"changes,omitempty"`
	Error     string        `json:"error,omitempty"`
}

// Validate validates the ServerMessage fields.
func (m *ServerMessage) Validate() error {
	return wireValidate.Struct(m)
}
