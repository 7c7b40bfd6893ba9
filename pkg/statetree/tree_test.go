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

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestNewTree_RootAttached verifies the root contract: attached from the
// start, id 1, announced by the first collection.
func TestNewTree_RootAttached(t *testing.T) {
	tree := NewTree()

	root := tree.Root()
	assert.True(t, root.Attached())
	assert.Equal(t, 1, root.ID())
	assert.Nil(t, root.Parent())
	assert.Same(t, tree, root.Owner())

	got, ok := tree.NodeByID(1)
	require.True(t, ok)
	assert.Same(t, root, got)

	batches := tree.CollectChanges()
	require.Len(t, batches, 1)
	assert.Equal(t, 1, batches[0].NodeID)
	require.Len(t, batches[0].Changes, 1)
	assert.Equal(t, OpAttach, batches[0].Changes[0].Op)
}

// TestTree_AttachNotificationOrder verifies that attaching a subtree with n
// nodes fires exactly n attach notifications, each node after its parent
// and before its children.
func TestTree_AttachNotificationOrder(t *testing.T) {
	tree := NewTree()
	tree.CollectChanges()

	// a -> (b -> d, c)
	a := NewNode()
	b := NewNode()
	c := NewNode()
	d := NewNode()
	require.NoError(t, b.List(KindElementChildren).Append(d))
	require.NoError(t, a.List(KindElementChildren).Append(b))
	require.NoError(t, a.List(KindElementChildren).Append(c))

	var order []string
	listen := func(name string, n *StateNode) {
		n.AddAttachListener(func(*StateNode) { order = append(order, name) })
	}
	listen("a", a)
	listen("b", b)
	listen("c", c)
	listen("d", d)

	require.NoError(t, tree.Root().List(KindElementChildren).Append(a))

	require.Len(t, order, 4, "one notification per node")
	assert.Equal(t, "a", order[0], "parent first")
	pos := func(name string) int {
		for i, v := range order {
			if v == name {
				return i
			}
		}
		return -1
	}
	assert.Less(t, pos("a"), pos("b"))
	assert.Less(t, pos("a"), pos("c"))
	assert.Less(t, pos("b"), pos("d"))

	// All four nodes are registered and carry distinct ids.
	ids := map[int]bool{}
	for _, n := range []*StateNode{a, b, c, d} {
		assert.True(t, n.Attached())
		assert.NotZero(t, n.ID())
		ids[n.ID()] = true
	}
	assert.Len(t, ids, 4)
}

// TestTree_DetachNotificationOrder verifies that detach notifications fire
// in the same top-down order as attach, and that listeners still see the
// node registered while the callbacks run.
func TestTree_DetachNotificationOrder(t *testing.T) {
	tree := NewTree()

	a := NewNode()
	b := NewNode()
	c := NewNode()
	require.NoError(t, a.List(KindElementChildren).Append(b))
	require.NoError(t, b.List(KindElementChildren).Append(c))
	require.NoError(t, tree.Root().List(KindElementChildren).Append(a))

	var order []string
	stillRegistered := true
	listen := func(name string, n *StateNode) {
		n.AddDetachListener(func(node *StateNode) {
			order = append(order, name)
			if _, ok := tree.NodeByID(node.ID()); !ok {
				stillRegistered = false
			}
			if node.Parent() == nil && node != a {
				stillRegistered = false
			}
		})
	}
	listen("a", a)
	listen("b", b)
	listen("c", c)

	_, err := tree.Root().List(KindElementChildren).RemoveAt(0)
	require.NoError(t, err)

	assert.Equal(t, []string{"a", "b", "c"}, order)
	assert.True(t, stillRegistered, "detach listeners must observe a still-registered node")

	for _, n := range []*StateNode{a, b, c} {
		assert.False(t, n.Attached())
		_, ok := tree.NodeByID(n.ID())
		assert.False(t, ok, "detached ids drop out of the registry")
	}

	// Interior structure survives: only the subtree root lost its parent.
	assert.Nil(t, a.Parent())
	assert.Same(t, a, b.Parent())
	assert.Same(t, b, c.Parent())
}

// TestTree_DetachReattachRoundTrip verifies that a detached node keeps all
// feature contents and its id, and that re-attaching restores it with
// full from-empty state queued for the mirror.
func TestTree_DetachReattachRoundTrip(t *testing.T) {
	tree := NewTree()
	n := attachedNode(t, tree)

	n.Map(KindElementData).Put("tag", "div")
	n.Map(KindElementProperties).Put("value", 42)
	n.Map(KindElementStyle).Put("color", "red")
	require.NoError(t, n.List(KindVirtualChildren).Append("scalar"))
	id := n.ID()
	tree.CollectChanges()

	_, err := tree.Root().List(KindElementChildren).RemoveAt(0)
	require.NoError(t, err)
	tree.CollectChanges()

	// Offline state is fully intact.
	assert.Equal(t, id, n.ID())
	assert.Equal(t, "div", n.Map(KindElementData).GetOrDefault("tag", ""))
	assert.Equal(t, 42, n.Map(KindElementProperties).GetOrDefault("value", 0))
	assert.Equal(t, "red", n.Map(KindElementStyle).GetOrDefault("color", ""))
	assert.Equal(t, 1, n.List(KindVirtualChildren).Len())

	require.NoError(t, tree.Root().List(KindElementChildren).Append(n))
	assert.Equal(t, id, n.ID(), "id survives the round trip")

	batch := batchFor(tree.CollectChanges(), id)
	require.NotEmpty(t, batch)
	assert.Equal(t, OpAttach, batch[0].Op)
	assert.Len(t, batch, 5, "attach plus one record per stored entry")
}

// TestTree_DetachReattachSameWindow verifies that a node detached and
// re-attached between two collections still announces the detach first.
// A mirror that received the node earlier must drop it before the
// rebuild; one that never saw it ignores the detach.
func TestTree_DetachReattachSameWindow(t *testing.T) {
	tree := NewTree()
	n := attachedNode(t, tree)
	n.Map(KindElementData).Put("tag", "div")
	id := n.ID()
	tree.CollectChanges()

	_, err := tree.Root().List(KindElementChildren).RemoveAt(0)
	require.NoError(t, err)
	require.NoError(t, tree.Root().List(KindElementChildren).Append(n))

	batch := batchFor(tree.CollectChanges(), id)
	require.Len(t, batch, 3)
	assert.Equal(t, OpDetach, batch[0].Op)
	assert.Equal(t, OpAttach, batch[1].Op)
	assert.Equal(t, OpMapPut, batch[2].Op)
	assert.Equal(t, "div", batch[2].Value)
}

// TestTree_IdsNeverReused verifies that detaching nodes burns their ids for
// the life of the tree.
func TestTree_IdsNeverReused(t *testing.T) {
	tree := NewTree()
	first := attachedNode(t, tree)
	firstID := first.ID()

	_, err := tree.Root().List(KindElementChildren).RemoveAt(0)
	require.NoError(t, err)

	second := attachedNode(t, tree)
	assert.Greater(t, second.ID(), firstID, "burned ids must not come back")

	_, ok := tree.NodeByID(firstID)
	assert.False(t, ok)
}

// TestTree_CollectChanges_Consuming verifies the collect-then-clear cycle:
// an immediate second collection is empty.
func TestTree_CollectChanges_Consuming(t *testing.T) {
	tree := NewTree()
	n := attachedNode(t, tree)

	n.Map(KindElementProperties).Put("a", 1)
	first := tree.CollectChanges()
	require.NotEmpty(t, first)

	assert.Nil(t, tree.CollectChanges(), "no intervening mutation, nothing to collect")
	assert.Equal(t, 0, tree.DirtyCount())
}

// TestTree_CollectChanges_AscendingNodeOrder verifies deterministic batch
// ordering by node id regardless of mutation order.
func TestTree_CollectChanges_AscendingNodeOrder(t *testing.T) {
	tree := NewTree()
	n1 := attachedNode(t, tree)
	n2 := attachedNode(t, tree)
	n3 := attachedNode(t, tree)

	// Touch in reverse id order.
	n3.Map(KindElementProperties).Put("x", 1)
	n1.Map(KindElementProperties).Put("x", 1)
	n2.Map(KindElementProperties).Put("x", 1)

	batches := tree.CollectChanges()
	require.Len(t, batches, 3)

	gotIDs := []int{batches[0].NodeID, batches[1].NodeID, batches[2].NodeID}
	assert.True(t, sort.IntsAreSorted(gotIDs), "batches must come in ascending node id order, got %v", gotIDs)
	assert.Equal(t, []int{n1.ID(), n2.ID(), n3.ID()}, gotIDs)
}

// TestTree_MarkDirtyIdempotent verifies that repeated marking yields a
// single batch.
func TestTree_MarkDirtyIdempotent(t *testing.T) {
	tree := NewTree()
	n := attachedNode(t, tree)

	n.Map(KindElementProperties).Put("a", 1)
	tree.MarkDirty(n)
	tree.MarkDirty(n)
	assert.Equal(t, 1, tree.DirtyCount())

	batches := tree.CollectChanges()
	assert.Len(t, batches, 1)
}

// TestTree_RedirtyDuringCollectionLandsInNextCycle verifies the per-node
// independent clearing: a mutation made while the collected result is being
// processed belongs to the next collection.
func TestTree_RedirtyDuringCollectionLandsInNextCycle(t *testing.T) {
	tree := NewTree()
	n := attachedNode(t, tree)

	n.Map(KindElementProperties).Put("a", 1)
	batches := tree.CollectChanges()
	require.Len(t, batches, 1)

	// Simulates a consumer reacting to its own batch mid-delivery.
	n.Map(KindElementProperties).Put("a", 2)

	assert.Len(t, batches[0].Changes, 1, "delivered batch is immutable")
	next := tree.CollectChanges()
	require.Len(t, next, 1)
	require.Len(t, next[0].Changes, 1)
	assert.Equal(t, 2, next[0].Changes[0].Value)
}

// TestTree_PrepareResync verifies that a resync queues from-empty state for
// every attached node and drops stale diffs, including pending detach
// records of nodes no longer in the live tree.
func TestTree_PrepareResync(t *testing.T) {
	tree := NewTree()
	keep := attachedNode(t, tree)
	keep.Map(KindElementData).Put("tag", "div")

	gone := attachedNode(t, tree)
	_, err := tree.Root().List(KindElementChildren).RemoveAt(1)
	require.NoError(t, err)
	tree.CollectChanges()

	keep.Map(KindElementProperties).Put("transient", true)
	tree.PrepareResync()

	batches := tree.CollectChanges()
	require.Len(t, batches, 2, "root and the surviving child")

	rootBatch := batchFor(batches, tree.Root().ID())
	require.NotEmpty(t, rootBatch)
	assert.Equal(t, OpAttach, rootBatch[0].Op)

	keepBatch := batchFor(batches, keep.ID())
	require.NotEmpty(t, keepBatch)
	assert.Equal(t, OpAttach, keepBatch[0].Op, "every node resends as if new")

	assert.Nil(t, batchFor(batches, gone.ID()), "detached nodes are not part of a resync")
}

// TestTree_NodeCount tracks registry size through attach and detach.
func TestTree_NodeCount(t *testing.T) {
	tree := NewTree()
	assert.Equal(t, 1, tree.NodeCount())

	a := attachedNode(t, tree)
	b := NewNode()
	require.NoError(t, a.List(KindElementChildren).Append(b))
	assert.Equal(t, 3, tree.NodeCount())

	_, err := tree.Root().List(KindElementChildren).RemoveAt(0)
	require.NoError(t, err)
	assert.Equal(t, 1, tree.NodeCount())
}
