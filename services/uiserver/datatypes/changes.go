// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Wire encoding of state changes.
//
// A sync frame carries one NodeChanges per dirty node, ascending node
// id. Inside a batch the changes are in recording order, so replaying
// them in sequence reproduces the server-side state.

package datatypes

// NodeChanges groups the changes recorded against a single node.
type NodeChanges struct {
	// Node is the tree-assigned node id.
	Node int `json:"node"`

	// Changes is the ordered batch for this node.
	Changes []WireChange `json:"changes"`
}

// WireChange is the encoded form of a single state change.
//
// # Fields
//
//   - Type: "attach", "detach", "put", "remove", "insert",
//     "listRemove", or "listSet".
//   - Feat: Feature name ("elementProperties", "elementChildren", ...).
//     Empty for attach/detach, which concern the node itself.
//   - Key: Map key. Set for put/remove.
//   - Index: List position. Set for insert/listRemove/listSet; pointer
//     so index 0 survives omitempty.
//   - Value: New value for put/insert/listSet. Child nodes are encoded
//     as NodeRef; scalars pass through as JSON values. A put of nil
//     omits the field, which decodes back to nil.
type WireChange struct {
	Type  string `json:"type"`
	Feat  string `json:"feat,omitempty"`
	Key   string `json:"key,omitempty"`
	Index *int   `json:"index,omitempty"`
	Value any    `json:"value,omitempty"`
}

// NodeRef is the encoded form of a node-valued entry: a child in a
// children list, or a node stored under a map key. Clients resolve the
// id against nodes attached earlier in the same frame or in previous
// frames.
type NodeRef struct {
	Node int `json:"node"`
}

// IndexOf returns a pointer to i for WireChange.Index literals.
func IndexOf(i int) *int {
	return &i
}
