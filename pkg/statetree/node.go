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

import "fmt"

// StateNode is a single addressable node in the server-side UI state tree.
//
// # Description
//
// A node is created detached: no id, no owning tree, no parent. It becomes
// attached when placed into a list store of an already-attached node, which
// recursively attaches the node's whole subtree, assigns ids and fires
// attach notifications top-down once the subtree is fully linked. Detaching
// removes the subtree from the live tree but deliberately preserves feature
// contents, id and tree binding, so the same node object can be re-attached
// later with its state intact. The tree binding is permanent; attaching a
// bound node to a different tree is rejected with ErrTreeMismatch.
//
// Feature state lives in per-kind stores created lazily by Map and List.
// The store for a given kind is a singleton for the node's lifetime.
//
// # Thread Safety
//
// Not safe for concurrent use. A tree and all of its nodes are owned by one
// session at a time; callers serialize through the session layer.
type StateNode struct {
	id       int
	tree     *Tree
	parent   *StateNode
	attached bool

	features [kindCount]feature
	pending  []Change

	attachListeners []*nodeListener
	detachListeners []*nodeListener
}

// NewNode creates a detached node with no feature stores.
func NewNode() *StateNode {
	return &StateNode{}
}

// ID returns the tree-assigned id, or 0 while the node has never been
// attached. Ids are stable for the node's lifetime and never reused by the
// issuing tree.
func (n *StateNode) ID() int {
	return n.id
}

// Attached reports whether the node is currently reachable from its tree
// root.
func (n *StateNode) Attached() bool {
	return n.attached
}

// Parent returns the structural parent, or nil for the tree root and for
// detached subtree roots.
func (n *StateNode) Parent() *StateNode {
	return n.parent
}

// Owner returns the tree the node is bound to, or nil before first attach.
func (n *StateNode) Owner() *Tree {
	return n.tree
}

// HasFeature reports whether the store for kind has been created.
func (n *StateNode) HasFeature(kind Kind) bool {
	return kind < kindCount && n.features[kind] != nil
}

// Map returns the map store for kind, creating it on first access.
//
// Map panics if kind is a list kind or out of range; mixing up store
// variants is a programming error, not a runtime condition.
func (n *StateNode) Map(kind Kind) *NodeMap {
	if kind >= kindCount || kind.IsList() {
		panic(fmt.Sprintf("statetree: %s is not a map kind", kind))
	}
	if f := n.features[kind]; f != nil {
		return f.(*NodeMap)
	}
	m := &NodeMap{node: n, kind: kind, values: make(map[string]any)}
	n.features[kind] = m
	return m
}

// List returns the list store for kind, creating it on first access.
//
// List panics if kind is a map kind or out of range.
func (n *StateNode) List(kind Kind) *NodeList {
	if kind >= kindCount || !kind.IsList() {
		panic(fmt.Sprintf("statetree: %s is not a list kind", kind))
	}
	if f := n.features[kind]; f != nil {
		return f.(*NodeList)
	}
	l := &NodeList{node: n, kind: kind}
	n.features[kind] = l
	return l
}

// ForEachChild visits every child node referenced by any feature store, in
// slot order and then store order.
func (n *StateNode) ForEachChild(fn func(*StateNode)) {
	for _, f := range n.features {
		if f != nil {
			f.forEachChild(fn)
		}
	}
}

// Walk visits the node and its whole subtree pre-order, parents before
// children.
func (n *StateNode) Walk(fn func(*StateNode)) {
	fn(n)
	n.ForEachChild(func(c *StateNode) {
		c.Walk(fn)
	})
}

// record appends a change and marks the node dirty. Mutations on a node
// that is not attached record nothing: the full state is regenerated from
// the stores when the node attaches.
func (n *StateNode) record(c Change) {
	if !n.attached {
		return
	}
	n.pending = append(n.pending, c)
	n.tree.MarkDirty(n)
}

// canAdopt validates that child may be placed into one of n's list stores.
// Nothing is mutated here; list mutations stay all-or-nothing.
func (n *StateNode) canAdopt(child *StateNode) error {
	if child.parent != nil || child.attached {
		return &AttachError{NodeID: child.id, Err: ErrAlreadyAttached}
	}
	for anc := n; anc != nil; anc = anc.parent {
		if anc == child {
			return &AttachError{NodeID: child.id, Err: ErrCycle}
		}
	}
	if n.tree != nil {
		return child.validateBindable(n.tree)
	}
	return nil
}

// validateBindable checks that the node and its whole subtree can bind to t.
func (n *StateNode) validateBindable(t *Tree) error {
	if n.tree != nil && n.tree != t {
		return &AttachError{NodeID: n.id, Err: ErrTreeMismatch}
	}
	var err error
	n.ForEachChild(func(c *StateNode) {
		if err == nil {
			err = c.validateBindable(t)
		}
	})
	return err
}

// adopt links child under n and, when n is attached, attaches the child's
// subtree. The caller must have validated with canAdopt first.
func (n *StateNode) adopt(child *StateNode) {
	child.parent = n
	if n.attached {
		n.tree.attachSubtree(child)
	}
}

// orphan detaches child's subtree when live, then clears its parent link.
// Detach listeners observe the still-linked parent.
func (n *StateNode) orphan(child *StateNode) {
	if child.attached {
		child.tree.detachSubtree(child)
	}
	child.parent = nil
}

// link registers the node and its subtree with t: binds the tree, assigns
// missing ids, flags attachment and queues from-empty state. Every linked
// node is appended to out so the caller can fire notifications only after
// the whole subtree is in place.
//
// A still-undelivered detach record is kept in front of the from-empty
// state: the mirror may hold the node from an earlier delivery and must
// drop it before the rebuild, and a detach it never saw is a no-op there.
func (n *StateNode) link(t *Tree, out *[]*StateNode) {
	pendingDetach := len(n.pending) == 1 && n.pending[0].Op == OpDetach
	n.tree = t
	if n.id == 0 {
		n.id = t.allocID()
	}
	t.nodes[n.id] = n
	n.attached = true
	n.resetPendingFromEmpty()
	if pendingDetach {
		n.pending = append([]Change{{Op: OpDetach}}, n.pending...)
	}
	t.MarkDirty(n)
	*out = append(*out, n)
	n.ForEachChild(func(c *StateNode) {
		c.link(t, out)
	})
}

// resetPendingFromEmpty replaces the pending list with an attach record
// plus the full current feature state, exactly what a mirror that has never
// seen the node needs to rebuild it.
func (n *StateNode) resetPendingFromEmpty() {
	changes := []Change{{Op: OpAttach}}
	for _, f := range n.features {
		if f != nil {
			f.generateFromEmpty(&changes)
		}
	}
	n.pending = changes
}
