// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package datatypes

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// ClientMessage.Validate() Tests
// =============================================================================

// TestClientMessage_Validate_Action verifies that only the three known
// client actions pass validation and that the action is required.
func TestClientMessage_Validate_Action(t *testing.T) {
	tests := []struct {
		name        string
		action      string
		location    string
		expectError bool
	}{
		{
			name:        "heartbeat is valid",
			action:      ActionHeartbeat,
			expectError: false,
		},
		{
			name:        "resync is valid",
			action:      ActionResync,
			expectError: false,
		},
		{
			name:        "navigate with location is valid",
			action:      ActionNavigate,
			location:    "/about",
			expectError: false,
		},
		{
			name:        "empty action is rejected",
			action:      "",
			expectError: true,
		},
		{
			name:        "unknown action is rejected",
			action:      "populate_scan",
			expectError: true,
		},
		{
			name:        "case-sensitive action is rejected",
			action:      "Heartbeat",
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := &ClientMessage{Action: tt.action, Location: tt.location}
			err := msg.Validate()

			if tt.expectError {
				require.Error(t, err, "expected validation error")
			} else {
				assert.NoError(t, err, "expected no validation error")
			}
		})
	}
}

// TestClientMessage_Validate_NavigateLocation verifies the location
// rules: required for navigate, optional elsewhere, bounded in bytes.
func TestClientMessage_Validate_NavigateLocation(t *testing.T) {
	tests := []struct {
		name        string
		msg         ClientMessage
		expectError bool
	}{
		{
			name:        "navigate without location is rejected",
			msg:         ClientMessage{Action: ActionNavigate},
			expectError: true,
		},
		{
			name:        "navigate with root location is valid",
			msg:         ClientMessage{Action: ActionNavigate, Location: "/"},
			expectError: false,
		},
		{
			name:        "heartbeat without location is valid",
			msg:         ClientMessage{Action: ActionHeartbeat},
			expectError: false,
		},
		{
			name:        "location at the byte limit is valid",
			msg:         ClientMessage{Action: ActionNavigate, Location: "/" + strings.Repeat("a", MaxLocationBytes-1)},
			expectError: false,
		},
		{
			name:        "location over the byte limit is rejected",
			msg:         ClientMessage{Action: ActionNavigate, Location: "/" + strings.Repeat("a", MaxLocationBytes)},
			expectError: true,
		},
		{
			name: "multi-byte location is measured in bytes",
			// Each rune is 3 bytes; rune count alone would pass.
			msg:         ClientMessage{Action: ActionNavigate, Location: strings.Repeat("界", MaxLocationBytes/3+1)},
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.msg.Validate()
			if tt.expectError {
				require.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

// =============================================================================
// ServerMessage Tests
// =============================================================================

// TestServerMessage_Validate_Action verifies the server-side action set.
func TestServerMessage_Validate_Action(t *testing.T) {
	valid := []string{ActionSessionCreated, ActionSync, ActionError}
	for _, action := range valid {
		t.Run(action, func(t *testing.T) {
			msg := &ServerMessage{Action: action}
			assert.NoError(t, msg.Validate())
		})
	}

	invalid := []string{"", "snapshot", "SYNC"}
	for _, action := range invalid {
		t.Run("invalid_"+action, func(t *testing.T) {
			msg := &ServerMessage{Action: action}
			require.Error(t, msg.Validate())
		})
	}
}

// TestServerMessage_JSONShape verifies that unused envelope fields are
// omitted and that a sync frame round-trips through encoding/json.
func TestServerMessage_JSONShape(t *testing.T) {
	msg := ServerMessage{
		Action: ActionSync,
		SyncID: 3,
		Changes: []NodeChanges{
			{
				Node: 2,
				Changes: []WireChange{
					{Type: "attach"},
					{Type: "put", Feat: "elementData", Key: "tag", Value: "div"},
					{Type: "insert", Feat: "elementChildren", Index: IndexOf(0), Value: NodeRef{Node: 5}},
				},
			},
		},
	}

	data, err := json.Marshal(msg)
	require.NoError(t, err)

	encoded := string(data)
	assert.NotContains(t, encoded, "sessionId", "unused fields must be omitted")
	assert.NotContains(t, encoded, "error", "unused fields must be omitted")
	assert.Contains(t, encoded, `"syncId":3`)
	assert.Contains(t, encoded, `"index":0`, "index 0 must survive encoding")
	assert.Contains(t, encoded, `{"node":5}`, "child nodes are encoded as refs")

	var decoded ServerMessage
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, msg.Action, decoded.Action)
	assert.Equal(t, msg.SyncID, decoded.SyncID)
	require.Len(t, decoded.Changes, 1)
	assert.Equal(t, 2, decoded.Changes[0].Node)
	require.Len(t, decoded.Changes[0].Changes, 3)
	require.NotNil(t, decoded.Changes[0].Changes[2].Index)
	assert.Equal(t, 0, *decoded.Changes[0].Changes[2].Index)
}

// TestClientMessage_JSONDecoding verifies decoding of the documented
// client payloads, including unknown-field tolerance.
func TestClientMessage_JSONDecoding(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want ClientMessage
	}{
		{
			name: "navigate",
			raw:  `{"action":"navigate","location":"/settings"}`,
			want: ClientMessage{Action: ActionNavigate, Location: "/settings"},
		},
		{
			name: "heartbeat",
			raw:  `{"action":"heartbeat"}`,
			want: ClientMessage{Action: ActionHeartbeat},
		},
		{
			name: "unknown fields are ignored",
			raw:  `{"action":"resync","extra":true}`,
			want: ClientMessage{Action: ActionResync},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got ClientMessage
			require.NoError(t, json.Unmarshal([]byte(tt.raw), &got))
			assert.Equal(t, tt.want, got)
			assert.NoError(t, got.Validate())
		})
	}
}
