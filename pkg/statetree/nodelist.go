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

// NodeList is the list variant feature store: an ordered sequence of child
// nodes or scalar items.
//
// # Description
//
// A NodeList belongs to exactly one StateNode and is created lazily by
// StateNode.List. Node items are structurally owned: inserting a node makes
// the list's owner its parent and, when the owner is attached, attaches the
// inserted subtree before the call returns; removal reverses both, firing
// detach notifications before the parent link is cleared. Every mutation is
// all-or-nothing: a rejected call leaves the list untouched.
//
// # Thread Safety
//
// Not safe for concurrent use.
type NodeList struct {
	node  *StateNode
	kind  Kind
	items []any
}

// Kind returns the feature slot this list occupies.
func (l *NodeList) Kind() Kind {
	return l.kind
}

// Len returns the number of items.
func (l *NodeList) Len() int {
	return len(l.items)
}

// Get returns the item at index and whether the index was in range.
func (l *NodeList) Get(index int) (any, bool) {
	if index < 0 || index >= len(l.items) {
		return nil, false
	}
	return l.items[index], true
}

// IndexOf returns the position of item, or -1 when absent. Node items match
// by identity, scalar items by value equality.
func (l *NodeList) IndexOf(item any) int {
	for i, it := range l.items {
		if valuesEqual(it, item) {
			return i
		}
	}
	return -1
}

// Insert places item at index, shifting subsequent items right.
//
// # Description
//
// index must lie in [0, Len]. A *StateNode item is adopted: it must not
// already have a parent, must not be bound to a different tree and must not
// be an ancestor of the owning node. When the owning node is attached, the
// inserted subtree is attached (ids assigned, attach listeners fired)
// before Insert returns.
//
// # Outputs
//
//	error - nil on success, otherwise an IndexError or AttachError with the
//	        list left unmodified.
func (l *NodeList) Insert(index int, item any) error {
	if index < 0 || index > len(l.items) {
		return &IndexError{Feature: l.kind, Index: index, Size: len(l.items), Err: ErrIndexOutOfRange}
	}
	child, isNode := nodeItem(item)
	if isNode {
		if err := l.node.canAdopt(child); err != nil {
			return err
		}
	}
	l.items = append(l.items, nil)
	copy(l.items[index+1:], l.items[index:])
	l.items[index] = item
	l.node.record(Change{Op: OpListInsert, Feature: l.kind, Index: index, Value: item})
	if isNode {
		l.node.adopt(child)
	}
	return nil
}

// Append places item after the current last item.
func (l *NodeList) Append(item any) error {
	return l.Insert(len(l.items), item)
}

// RemoveAt removes the item at index, shifting subsequent items left.
//
// A removed node's subtree is detached (detach listeners fired top-down,
// then the subtree unregistered) and its parent link cleared before
// RemoveAt returns.
//
// # Outputs
//
//	any   - The removed item.
//	error - nil on success, otherwise an IndexError with the list unmodified.
func (l *NodeList) RemoveAt(index int) (any, error) {
	if index < 0 || index >= len(l.items) {
		return nil, &IndexError{Feature: l.kind, Index: index, Size: len(l.items), Err: ErrIndexOutOfRange}
	}
	item := l.items[index]
	l.items = append(l.items[:index], l.items[index+1:]...)
	l.node.record(Change{Op: OpListRemove, Feature: l.kind, Index: index, Old: item})
	if child, isNode := nodeItem(item); isNode {
		l.node.orphan(child)
	}
	return item, nil
}

// Set replaces the item at index in place.
//
// The new item is validated before any mutation happens; the replaced node
// (if any) is detached before the new one attaches.
//
// # Outputs
//
//	any   - The replaced item.
//	error - nil on success, otherwise an IndexError or AttachError with the
//	        list left unmodified.
func (l *NodeList) Set(index int, item any) (any, error) {
	if index < 0 || index >= len(l.items) {
		return nil, &IndexError{Feature: l.kind, Index: index, Size: len(l.items), Err: ErrIndexOutOfRange}
	}
	child, isNode := nodeItem(item)
	if isNode {
		if err := l.node.canAdopt(child); err != nil {
			return nil, err
		}
	}
	old := l.items[index]
	l.items[index] = item
	l.node.record(Change{Op: OpListSet, Feature: l.kind, Index: index, Value: item, Old: old})
	if oldChild, wasNode := nodeItem(old); wasNode {
		l.node.orphan(oldChild)
	}
	if isNode {
		l.node.adopt(child)
	}
	return old, nil
}

// forEachChild visits node items in index order.
func (l *NodeList) forEachChild(fn func(*StateNode)) {
	for _, it := range l.items {
		if c, ok := nodeItem(it); ok {
			fn(c)
		}
	}
}

// generateFromEmpty appends one insert record per item, in index order.
func (l *NodeList) generateFromEmpty(out *[]Change) {
	for i, it := range l.items {
		*out = append(*out, Change{Op: OpListInsert, Feature: l.kind, Index: i, Value: it})
	}
}

// nodeItem unwraps a list item as a node. A typed nil node counts as a
// scalar so the structural paths never see nil.
func nodeItem(item any) (*StateNode, bool) {
	c, ok := item.(*StateNode)
	if !ok || c == nil {
		return nil, false
	}
	return c, true
}
