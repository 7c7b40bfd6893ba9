// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package statetree maintains a server-owned tree of UI state nodes and the
// change records needed to keep a remote mirror synchronized.
//
// # Description
//
// A Tree owns a root StateNode and assigns every attached node a unique,
// never-reused id. Application code mutates per-node feature stores (maps
// and ordered lists); every effective mutation appends a change record to
// the owning node and marks it dirty. On each synchronization round trip
// the caller drains the dirty set with CollectChanges and hands the ordered
// batches to its transport. The tree performs no I/O, no locking and no
// retries: one session owner mutates a tree at a time, and a lost delivery
// is recovered with PrepareResync plus a fresh collection, never by
// replaying old diffs.
//
// # Basic Usage
//
//	tree := statetree.NewTree()
//	node := statetree.NewNode()
//	node.Map(statetree.KindElementData).Put("tag", "div")
//	if err := tree.Root().List(statetree.KindElementChildren).Append(node); err != nil {
//		return err
//	}
//	batches := tree.CollectChanges()
//
// # Thread Safety
//
// Nothing in this package is safe for concurrent use. Callers serialize
// all access through their session layer.
package statetree

import (
	"io"
	"log/slog"
	"sort"
)

// Tree is the root-owning structure of one UI session's state.
//
// # Description
//
// The tree tracks three things: the id registry of currently attached
// nodes, the monotonically increasing id allocator, and the dirty set of
// nodes with unflushed change records. The root node is created attached
// with id 1 and can never detach.
type Tree struct {
	log    *slog.Logger
	root   *StateNode
	nodes  map[int]*StateNode
	dirty  map[int]*StateNode
	nextID int
}

// Option configures a Tree.
type Option func(*Tree)

// WithLogger sets the logger used to report listener panics. The default
// discards all records.
func WithLogger(log *slog.Logger) Option {
	return func(t *Tree) {
		if log != nil {
			t.log = log
		}
	}
}

// NewTree creates a tree with an attached root node carrying id 1.
//
// The root's attach record is already pending, so the first CollectChanges
// call announces the root to the mirror.
func NewTree(opts ...Option) *Tree {
	t := &Tree{
		log:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		nodes:  make(map[int]*StateNode),
		dirty:  make(map[int]*StateNode),
		nextID: 1,
	}
	for _, opt := range opts {
		opt(t)
	}
	t.root = NewNode()
	t.attachSubtree(t.root)
	return t
}

// Root returns the always-attached root node.
func (t *Tree) Root() *StateNode {
	return t.root
}

// NodeByID returns the attached node carrying id.
//
// The second return is false when the id was never issued or its node has
// since been detached. Detached ids are never reissued, so a stale id can
// never alias a different node.
func (t *Tree) NodeByID(id int) (*StateNode, bool) {
	n, ok := t.nodes[id]
	return n, ok
}

// NodeCount returns the number of currently attached nodes.
func (t *Tree) NodeCount() int {
	return len(t.nodes)
}

// MarkDirty queues the node for the next change collection. Idempotent;
// nodes that are not bound to this tree are ignored.
func (t *Tree) MarkDirty(n *StateNode) {
	if n == nil || n.tree != t || n.id == 0 {
		return
	}
	t.dirty[n.id] = n
}

// DirtyCount returns the number of nodes awaiting collection.
func (t *Tree) DirtyCount() int {
	return len(t.dirty)
}

// CollectChanges drains every dirty node's pending changes.
//
// # Description
//
// Batches are ordered by ascending node id, and each batch preserves the
// order in which that node's changes occurred. The read consumes: the dirty
// set is swapped out before draining and each node's pending list is
// cleared independently, so a node re-dirtied while the result is being
// processed lands in the next collection, never in this one. Dirty nodes
// with no pending records are skipped.
//
// # Outputs
//
//	[]ChangeSet - One batch per dirty node; nil when nothing is pending.
func (t *Tree) CollectChanges() []ChangeSet {
	if len(t.dirty) == 0 {
		return nil
	}
	dirty := t.dirty
	t.dirty = make(map[int]*StateNode)

	ids := make([]int, 0, len(dirty))
	for id := range dirty {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	out := make([]ChangeSet, 0, len(ids))
	for _, id := range ids {
		n := dirty[id]
		batch := n.pending
		n.pending = nil
		if len(batch) == 0 {
			continue
		}
		out = append(out, ChangeSet{NodeID: id, Changes: batch})
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// PrepareResync queues the full current state of every attached node.
//
// # Description
//
// Once a delivery is lost or the mirror reports desynchronization,
// incremental diffs can no longer converge. PrepareResync discards every
// pending diff and replaces it with from-empty state for the entire live
// tree; the next CollectChanges then carries everything a fresh mirror
// needs to rebuild.
func (t *Tree) PrepareResync() {
	t.dirty = make(map[int]*StateNode)
	t.root.Walk(func(n *StateNode) {
		n.resetPendingFromEmpty()
		t.MarkDirty(n)
	})
}

// allocID issues the next node identity. Ids are never reused within the
// life of the tree.
func (t *Tree) allocID() int {
	id := t.nextID
	t.nextID++
	return id
}

// attachSubtree links root's whole subtree into the live tree, then fires
// attach notifications top-down. Notification is a second pass over the
// linked nodes so no listener ever observes a half-linked subtree; a node
// detached again by an earlier listener is skipped.
func (t *Tree) attachSubtree(root *StateNode) {
	var linked []*StateNode
	root.link(t, &linked)
	for _, n := range linked {
		if n.attached {
			n.fireAttach()
		}
	}
}

// detachSubtree notifies root's subtree top-down, then unregisters it.
//
// Notification happens while every node is still registered so detach
// listeners can read tree and feature state; unregistration follows in the
// same top-down order. Each unregistered node's pending records collapse to
// a single detach record: the mirror drops the whole node, so earlier diffs
// for it would be dead weight. Ids stay with their nodes.
func (t *Tree) detachSubtree(root *StateNode) {
	var nodes []*StateNode
	root.Walk(func(n *StateNode) {
		nodes = append(nodes, n)
	})
	for _, n := range nodes {
		if n.attached {
			n.fireDetach()
		}
	}
	for _, n := range nodes {
		if !n.attached {
			continue
		}
		delete(t.nodes, n.id)
		n.attached = false
		n.pending = []Change{{Op: OpDetach}}
		t.MarkDirty(n)
	}
}
