// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package transport turns collected state changes into wire frames and
// pushes them over a websocket.
//
// # Description
//
// The state tree core records changes as in-memory structs. This
// package is the only place that knows their JSON encoding: Encode maps
// a collected batch to the wire shape in datatypes, and Pusher
// serializes writes onto a single gorilla connection with a monotonic
// sync-id.
//
// The codec is one-way. Clients never send state changes; their inbound
// envelope is decoded directly in the handlers.
package transport

import (
	"github.com/AleutianAI/wheelhouse/pkg/statetree"
	"github.com/AleutianAI/wheelhouse/services/uiserver/datatypes"
)

// Encode converts a collected change batch into its wire form.
//
// # Description
//
// Set order is preserved (CollectChanges already returns ascending node
// ids) and so is the change order inside each batch. Node-valued
// entries are replaced with NodeRef so the encoded frame never embeds a
// subtree; the child's own batch carries its state.
//
// # Inputs
//
//   - sets: The batches drained from a tree. May be nil.
//
// # Outputs
//
//   - []datatypes.NodeChanges: The encoded frame, nil when sets is
//     empty.
func Encode(sets []statetree.ChangeSet) []datatypes.NodeChanges {
	if len(sets) == 0 {
		return nil
	}

	out := make([]datatypes.NodeChanges, 0, len(sets))
	for _, set := range sets {
		nc := datatypes.NodeChanges{
			Node:    set.NodeID,
			Changes: make([]datatypes.WireChange, 0, len(set.Changes)),
		}
		for _, c := range set.Changes {
			nc.Changes = append(nc.Changes, encodeChange(c))
		}
		out = append(out, nc)
	}
	return out
}

// CountChanges returns the number of individual changes across a
// collected batch, for logging and metrics.
func CountChanges(sets []statetree.ChangeSet) int {
	total := 0
	for _, set := range sets {
		total += len(set.Changes)
	}
	return total
}

// encodeChange maps one recorded change to its wire shape. Old values
// never go on the wire; they exist for server-side listeners only.
func encodeChange(c statetree.Change) datatypes.WireChange {
	w := datatypes.WireChange{Type: string(c.Op)}

	switch c.Op {
	case statetree.OpAttach, statetree.OpDetach:
		// Node-level ops carry no feature payload.
	case statetree.OpMapPut:
		w.Feat = c.Feature.String()
		w.Key = c.Key
		w.Value = encodeValue(c.Value)
	case statetree.OpMapRemove:
		w.Feat = c.Feature.String()
		w.Key = c.Key
	case statetree.OpListInsert, statetree.OpListSet:
		w.Feat = c.Feature.String()
		w.Index = datatypes.IndexOf(c.Index)
		w.Value = encodeValue(c.Value)
	case statetree.OpListRemove:
		w.Feat = c.Feature.String()
		w.Index = datatypes.IndexOf(c.Index)
	}
	return w
}

// encodeValue rewrites node values as id refs and passes scalars
// through untouched.
func encodeValue(v any) any {
	if n, ok := v.(*statetree.StateNode); ok && n != nil {
		return datatypes.NodeRef{Node: n.ID()}
	}
	return v
}
