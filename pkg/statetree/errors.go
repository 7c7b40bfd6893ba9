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
	"errors"
	"fmt"
)

// Sentinel errors for tree structure violations.
var (
	// ErrTreeMismatch indicates an attempt to attach a node that is bound to
	// a different tree. A node binds to its tree on first attach and never
	// migrates; the caller must build a fresh node instead.
	ErrTreeMismatch = errors.New("node is bound to a different tree")

	// ErrAlreadyAttached indicates a node that already occupies a structural
	// slot. A node has at most one parent; it is never silently reparented.
	ErrAlreadyAttached = errors.New("node already has a structural parent")

	// ErrIndexOutOfRange indicates a list mutation outside the valid index
	// range. The list is left unmodified.
	ErrIndexOutOfRange = errors.New("list index out of range")

	// ErrCycle indicates an insertion that would make a node an ancestor of
	// itself.
	ErrCycle = errors.New("node cannot contain itself or one of its ancestors")
)

// IndexError reports a rejected list mutation.
//
// # Description
//
// Wraps ErrIndexOutOfRange with the store kind and the bounds that were in
// effect. List mutations are all-or-nothing: when an IndexError is returned
// no partial mutation has occurred.
type IndexError struct {
	Feature Kind
	Index   int
	Size    int
	Err     error
}

// Error returns a human-readable error message.
func (e *IndexError) Error() string {
	return fmt.Sprintf("%s[%d] with size %d: %v", e.Feature, e.Index, e.Size, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *IndexError) Unwrap() error {
	return e.Err
}

// AttachError reports a rejected structural adoption.
//
// # Description
//
// Wraps ErrAlreadyAttached, ErrTreeMismatch or ErrCycle with the id of the
// rejected node. The id is 0 when the node was never attached to any tree.
type AttachError struct {
	NodeID int
	Err    error
}

// Error returns a human-readable error message.
func (e *AttachError) Error() string {
	if e.NodeID != 0 {
		return fmt.Sprintf("node %d: %v", e.NodeID, e.Err)
	}
	return fmt.Sprintf("unattached node: %v", e.Err)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *AttachError) Unwrap() error {
	return e.Err
}
