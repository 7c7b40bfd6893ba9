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

// Op classifies a recorded mutation.
type Op string

const (
	// OpAttach records a node entering the live tree.
	OpAttach Op = "attach"

	// OpDetach records a node leaving the live tree.
	OpDetach Op = "detach"

	// OpMapPut records a key write on a map store.
	OpMapPut Op = "put"

	// OpMapRemove records a key removal on a map store.
	OpMapRemove Op = "remove"

	// OpListInsert records an item insertion on a list store.
	OpListInsert Op = "insert"

	// OpListRemove records an item removal on a list store.
	OpListRemove Op = "listRemove"

	// OpListSet records an in-place item replacement on a list store.
	OpListSet Op = "listSet"
)

// Change is one recorded mutation on a single node.
//
// # Description
//
// Changes accumulate on the owning node in occurrence order and are drained
// by Tree.CollectChanges. Attach and detach records carry only the Op; map
// records populate Feature, Key, Value and Old; list records populate
// Feature, Index, Value and Old. Value holds the inserted *StateNode for
// structural list records; flattening node references into ids is the
// transport's concern.
type Change struct {
	Op      Op
	Feature Kind
	Key     string
	Index   int
	Value   any
	Old     any
}

// ChangeSet is the drained pending-change batch of one node.
type ChangeSet struct {
	NodeID  int
	Changes []Change
}
