// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package statetree

import "reflect"

// NodeMap is the map variant feature store: string keys mapped to values.
//
// # Description
//
// A NodeMap belongs to exactly one StateNode and is created lazily by
// StateNode.Map. Writes that do not change the stored value are dropped
// without producing a change record. Key insertion order is preserved so
// that from-empty change generation is deterministic regardless of Go map
// iteration order; a key removed and written again moves to the end.
//
// # Thread Safety
//
// Not safe for concurrent use. All access is serialized by the session that
// owns the tree.
type NodeMap struct {
	node   *StateNode
	kind   Kind
	values map[string]any
	order  []string
}

// Kind returns the feature slot this map occupies.
func (m *NodeMap) Kind() Kind {
	return m.kind
}

// Len returns the number of stored keys.
func (m *NodeMap) Len() int {
	return len(m.values)
}

// Keys returns the stored keys in insertion order.
func (m *NodeMap) Keys() []string {
	out := make([]string, len(m.order))
	copy(out, m.order)
	return out
}

// Get returns the stored value for key and whether it was present.
func (m *NodeMap) Get(key string) (any, bool) {
	v, ok := m.values[key]
	return v, ok
}

// GetOrDefault returns the stored value for key, or def when absent.
func (m *NodeMap) GetOrDefault(key string, def any) any {
	if v, ok := m.values[key]; ok {
		return v
	}
	return def
}

// Put stores value under key.
//
// Storing a value equal to the current one is a no-op that records nothing.
// Otherwise the previous value is overwritten and a put record with the old
// and new values is appended to the owning node.
func (m *NodeMap) Put(key string, value any) {
	old, exists := m.values[key]
	if exists && valuesEqual(old, value) {
		return
	}
	m.values[key] = value
	if !exists {
		m.order = append(m.order, key)
	}
	m.node.record(Change{Op: OpMapPut, Feature: m.kind, Key: key, Value: value, Old: old})
}

// Remove deletes key. Removing an absent key is a no-op that records nothing.
func (m *NodeMap) Remove(key string) {
	old, exists := m.values[key]
	if !exists {
		return
	}
	delete(m.values, key)
	for i, k := range m.order {
		if k == key {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	m.node.record(Change{Op: OpMapRemove, Feature: m.kind, Key: key, Old: old})
}

// forEachChild visits nothing: map stores never hold child nodes.
func (m *NodeMap) forEachChild(func(*StateNode)) {}

// generateFromEmpty appends one put record per key, in insertion order.
func (m *NodeMap) generateFromEmpty(out *[]Change) {
	for _, key := range m.order {
		*out = append(*out, Change{Op: OpMapPut, Feature: m.kind, Key: key, Value: m.values[key]})
	}
}

// valuesEqual compares two stored values without panicking on types that do
// not support ==. Comparable values use interface equality (identity for
// node pointers); everything else falls back to deep equality.
func valuesEqual(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if reflect.TypeOf(a).Comparable() && reflect.TypeOf(b).Comparable() {
		return a == b
	}
	return reflect.DeepEqual(a, b)
}
