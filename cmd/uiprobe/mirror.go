// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/AleutianAI/wheelhouse/pkg/statetree"
	"github.com/AleutianAI/wheelhouse/services/uiserver/datatypes"
)

// featOrder fixes the rendering order of feature stores. Unknown feature
// names sort after these, alphabetically, so a newer server never breaks
// an older probe.
var featOrder = []string{
	"elementData",
	"elementProperties",
	"elementAttributes",
	"elementStyle",
	"elementChildren",
	"virtualChildren",
}

const (
	featData = "elementData"
	keyTag   = "tag"
	keyText  = "text"
)

// mirrorNode holds the replicated feature stores of one server node.
type mirrorNode struct {
	maps  map[string]map[string]any
	lists map[string][]any
}

func newMirrorNode() *mirrorNode {
	return &mirrorNode{
		maps:  make(map[string]map[string]any),
		lists: make(map[string][]any),
	}
}

// Mirror replays sync frames into a client-side replica of the server's
// state tree.
//
// # Description
//
// The server owns all UI state; a frame is an ordered list of per-node
// change batches. Applying the batches in order reproduces the server
// tree exactly, which is what the real browser client does and what the
// probe does here to show it.
//
// # Thread Safety
//
// Not safe for concurrent use. The watch TUI applies frames from the
// bubbletea event loop only; the one-shot commands are single-threaded.
type Mirror struct {
	nodes    map[int]*mirrorNode
	syncID   uint64
	location string
}

// NewMirror creates an empty replica.
func NewMirror() *Mirror {
	return &Mirror{nodes: make(map[int]*mirrorNode)}
}

// SyncID returns the id of the last applied frame, 0 before the first.
func (m *Mirror) SyncID() uint64 { return m.syncID }

// Location returns the active route location reported by the server.
func (m *Mirror) Location() string { return m.location }

// NodeCount returns the number of live nodes in the replica.
func (m *Mirror) NodeCount() int { return len(m.nodes) }

// Apply replays one sync envelope into the replica.
//
// # Description
//
// A full frame drops all local state first; the frame then rebuilds the
// tree from nothing. Incremental frames mutate in place. On any protocol
// violation the replica is no longer trustworthy and the caller should
// request a resync.
//
// # Inputs
//
//   - msg: A server envelope with Action "sync".
//
// # Outputs
//
//   - error: Non-nil when the envelope is not a sync frame or a change
//     cannot be applied.
func (m *Mirror) Apply(msg datatypes.ServerMessage) error {
	if msg.Action != datatypes.ActionSync {
		return fmt.Errorf("cannot apply %q envelope to mirror", msg.Action)
	}
	if msg.Full {
		m.nodes = make(map[int]*mirrorNode)
	}
	for _, nc := range msg.Changes {
		for _, ch := range nc.Changes {
			if err := m.applyChange(nc.Node, ch); err != nil {
				return fmt.Errorf("node %d: %w", nc.Node, err)
			}
		}
	}
	m.syncID = msg.SyncID
	if msg.Location != "" {
		m.location = msg.Location
	}
	return nil
}

// applyChange replays a single wire change against node id.
func (m *Mirror) applyChange(id int, ch datatypes.WireChange) error {
	switch ch.Type {
	case string(statetree.OpAttach):
		if _, ok := m.nodes[id]; ok {
			return fmt.Errorf("attach for node already in mirror")
		}
		m.nodes[id] = newMirrorNode()
		return nil
	case string(statetree.OpDetach):
		// A node attached and detached between two collections surfaces
		// as a bare detach for an id the mirror never saw. Dropping the
		// id is correct in both cases.
		delete(m.nodes, id)
		return nil
	}

	n, ok := m.nodes[id]
	if !ok {
		return fmt.Errorf("%s for unknown node", ch.Type)
	}

	switch ch.Type {
	case string(statetree.OpMapPut):
		feat := n.maps[ch.Feat]
		if feat == nil {
			feat = make(map[string]any)
			n.maps[ch.Feat] = feat
		}
		feat[ch.Key] = ch.Value
	case string(statetree.OpMapRemove):
		delete(n.maps[ch.Feat], ch.Key)
	case string(statetree.OpListInsert):
		if ch.Index == nil {
			return fmt.Errorf("insert on %s without index", ch.Feat)
		}
		list := n.lists[ch.Feat]
		i := *ch.Index
		if i < 0 || i > len(list) {
			return fmt.Errorf("insert index %d out of bounds on %s (len %d)", i, ch.Feat, len(list))
		}
		list = append(list, nil)
		copy(list[i+1:], list[i:])
		list[i] = ch.Value
		n.lists[ch.Feat] = list
	case string(statetree.OpListSet):
		if ch.Index == nil {
			return fmt.Errorf("listSet on %s without index", ch.Feat)
		}
		list := n.lists[ch.Feat]
		i := *ch.Index
		if i < 0 || i >= len(list) {
			return fmt.Errorf("listSet index %d out of bounds on %s (len %d)", i, ch.Feat, len(list))
		}
		list[i] = ch.Value
	case string(statetree.OpListRemove):
		if ch.Index == nil {
			return fmt.Errorf("listRemove on %s without index", ch.Feat)
		}
		list := n.lists[ch.Feat]
		i := *ch.Index
		if i < 0 || i >= len(list) {
			return fmt.Errorf("listRemove index %d out of bounds on %s (len %d)", i, ch.Feat, len(list))
		}
		n.lists[ch.Feat] = append(list[:i], list[i+1:]...)
	default:
		return fmt.Errorf("unknown change type %q", ch.Type)
	}
	return nil
}

// refID extracts a node id from a node-valued entry. Values arrive
// either as datatypes.NodeRef (built in-process) or as the generic
// map/float64 shape a websocket JSON read produces.
func refID(v any) (int, bool) {
	switch ref := v.(type) {
	case datatypes.NodeRef:
		return ref.Node, true
	case map[string]any:
		if len(ref) != 1 {
			return 0, false
		}
		n, ok := ref["node"].(float64)
		if !ok {
			return 0, false
		}
		return int(n), true
	}
	return 0, false
}

// Roots returns the live node ids no other node references, ascending.
// A healthy replica has exactly one.
func (m *Mirror) Roots() []int {
	referenced := make(map[int]bool)
	for _, n := range m.nodes {
		for _, list := range n.lists {
			for _, item := range list {
				if id, ok := refID(item); ok {
					referenced[id] = true
				}
			}
		}
		for _, feat := range n.maps {
			for _, v := range feat {
				if id, ok := refID(v); ok {
					referenced[id] = true
				}
			}
		}
	}
	var roots []int
	for id := range m.nodes {
		if !referenced[id] {
			roots = append(roots, id)
		}
	}
	sort.Ints(roots)
	return roots
}

// Render returns the replica as an indented tree, one node per header
// line with its feature stores underneath. The output is deterministic:
// roots ascend, feature stores follow featOrder, and map keys are
// sorted.
func (m *Mirror) Render() string {
	if len(m.nodes) == 0 {
		return "(empty tree)\n"
	}

	var b strings.Builder
	visited := make(map[int]bool)
	for _, id := range m.Roots() {
		m.renderNode(&b, id, 0, visited)
	}

	// Nodes referenced only through map values (or orphaned by a bad
	// frame) are not reachable from a root walk. Show them anyway.
	var rest []int
	for id := range m.nodes {
		if !visited[id] {
			rest = append(rest, id)
		}
	}
	sort.Ints(rest)
	for _, id := range rest {
		m.renderNode(&b, id, 0, visited)
	}
	return b.String()
}

func (m *Mirror) renderNode(b *strings.Builder, id, depth int, visited map[int]bool) {
	pad := strings.Repeat("  ", depth)
	n, ok := m.nodes[id]
	if !ok {
		fmt.Fprintf(b, "%snode %d (missing)\n", pad, id)
		return
	}
	if visited[id] {
		fmt.Fprintf(b, "%snode %d (see above)\n", pad, id)
		return
	}
	visited[id] = true

	b.WriteString(pad)
	fmt.Fprintf(b, "node %d", id)
	data := n.maps[featData]
	if tag, ok := data[keyTag].(string); ok && tag != "" {
		fmt.Fprintf(b, " <%s>", tag)
	}
	if text, ok := data[keyText].(string); ok && text != "" {
		fmt.Fprintf(b, " %q", text)
	}
	b.WriteString("\n")

	featPad := pad + "  "
	for _, feat := range m.nodeFeats(n) {
		if entries, ok := n.maps[feat]; ok {
			line := renderMapFeat(feat, entries)
			if line != "" {
				fmt.Fprintf(b, "%s%s\n", featPad, line)
			}
			continue
		}
		list := n.lists[feat]
		if len(list) == 0 {
			continue
		}
		fmt.Fprintf(b, "%s%s:\n", featPad, feat)
		for _, item := range list {
			if cid, ok := refID(item); ok {
				m.renderNode(b, cid, depth+2, visited)
				continue
			}
			fmt.Fprintf(b, "%s  %s\n", featPad, formatValue(item))
		}
	}
}

// nodeFeats lists the feature names present on a node in render order.
func (m *Mirror) nodeFeats(n *mirrorNode) []string {
	present := make(map[string]bool, len(n.maps)+len(n.lists))
	for feat := range n.maps {
		present[feat] = true
	}
	for feat := range n.lists {
		present[feat] = true
	}

	ordered := make([]string, 0, len(present))
	for _, feat := range featOrder {
		if present[feat] {
			ordered = append(ordered, feat)
			delete(present, feat)
		}
	}
	extra := make([]string, 0, len(present))
	for feat := range present {
		extra = append(extra, feat)
	}
	sort.Strings(extra)
	return append(ordered, extra...)
}

// renderMapFeat formats one map store as "name: k=v k2=v2" with sorted
// keys. The elementData tag and text keys are already on the header
// line, so a data store holding only those renders as nothing.
func renderMapFeat(feat string, entries map[string]any) string {
	keys := make([]string, 0, len(entries))
	for k := range entries {
		if feat == featData && (k == keyTag || k == keyText) {
			continue
		}
		keys = append(keys, k)
	}
	if len(keys) == 0 {
		return ""
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(feat)
	b.WriteString(":")
	for _, k := range keys {
		fmt.Fprintf(&b, " %s=%s", k, formatValue(entries[k]))
	}
	return b.String()
}

// formatValue renders one stored value for display.
func formatValue(v any) string {
	if id, ok := refID(v); ok {
		return fmt.Sprintf("node %d", id)
	}
	switch val := v.(type) {
	case nil:
		return "null"
	case string:
		return strconv.Quote(val)
	default:
		return fmt.Sprintf("%v", val)
	}
}
