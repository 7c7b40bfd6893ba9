// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package router

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/AleutianAI/wheelhouse/pkg/element"
)

// Reconciler transitions a tree's active target chain with minimal
// structural churn.
//
// # Description
//
// The reconciler owns the host element under which the outermost chain
// target lives (typically the body of the session's tree) and the current
// leaf-first active chain. ShowTarget computes the longest common suffix of
// layout instances between the old and new chains, detaches only the old
// chain's unique prefix and attaches only the new one's. All attach and
// detach side effects (subtree cascades, listener delivery, change records)
// happen synchronously inside ShowTarget.
//
// # Thread Safety
//
// Not safe for concurrent use; the owning session serializes access
// together with the rest of the tree.
type Reconciler struct {
	log      *slog.Logger
	host     *element.Element
	chain    []Target
	location string
}

// ReconcilerOption configures a Reconciler.
type ReconcilerOption func(*Reconciler)

// WithLogger sets the logger for navigation transitions. The default
// discards all records.
func WithLogger(log *slog.Logger) ReconcilerOption {
	return func(r *Reconciler) {
		if log != nil {
			r.log = log
		}
	}
}

// NewReconciler creates a reconciler hosting chains under host.
func NewReconciler(host *element.Element, opts ...ReconcilerOption) *Reconciler {
	r := &Reconciler{
		log:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		host: host,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ActiveChain returns the current chain, leaf-first. The slice is a copy.
func (r *Reconciler) ActiveChain() []Target {
	out := make([]Target, len(r.chain))
	copy(out, r.chain)
	return out
}

// ActiveLocation returns the location string of the last ShowTarget call.
func (r *Reconciler) ActiveLocation() string {
	return r.location
}

// ShowTarget makes [target, layouts...] the active chain.
//
// # Description
//
// layouts are ordered innermost to outermost, so the new chain is
// leaf-first just like ActiveChain reports it. Layout instances shared with
// the current chain (identity comparison, walking inward from the
// outermost end) are left in place. The old chain's unique prefix is
// unlinked leaf-first: each target's element leaves its hosting layout (or
// the root host), cascading subtree detach before the next unlink. The new
// chain's unique prefix then links outermost-first, so a parent layout is
// always in place before its content arrives. With no shared layouts at
// all, every detach therefore completes before the first attach.
//
// An identical chain (same instances, same order) only updates the
// location; no structural operation runs and no listener fires.
//
// # Inputs
//
//	location - Opaque location string reported by ActiveLocation.
//	target   - The leaf view to show. Must be non-nil.
//	layouts  - Nesting layout instances, innermost first.
//
// # Outputs
//
//	error - nil on success. A structural failure mid-transition is returned
//	        as soon as it is hit; the chains' already-processed targets keep
//	        their new state.
func (r *Reconciler) ShowTarget(location string, target Target, layouts ...Target) error {
	if target == nil {
		return ErrNilTarget
	}
	next := make([]Target, 0, 1+len(layouts))
	next = append(next, target)
	next = append(next, layouts...)
	for _, l := range layouts {
		if l == nil {
			return fmt.Errorf("layout chain for %q: %w", location, ErrNilTarget)
		}
	}

	if sameChain(r.chain, next) {
		r.location = location
		return nil
	}

	k := commonSuffixLen(r.chain, next)
	old := r.chain

	for i := 0; i < len(old)-k; i++ {
		var host Target
		if i+1 < len(old) {
			host = old[i+1]
		}
		if err := removeContent(host, old[i].Element()); err != nil {
			return fmt.Errorf("detach old chain for %q: %w", location, err)
		}
	}

	for i := len(next) - k - 1; i >= 0; i-- {
		var err error
		if i+1 < len(next) {
			err = showContent(next[i+1], next[i].Element())
		} else {
			err = r.host.AppendChild(next[i].Element())
		}
		if err != nil {
			return fmt.Errorf("attach new chain for %q: %w", location, err)
		}
	}

	r.chain = next
	r.location = location
	r.log.Debug("route target shown",
		"location", location,
		"chain_len", len(next),
		"shared_layouts", k,
		"detached", len(old)-k,
		"attached", len(next)-k)
	return nil
}

// sameChain reports whether both chains hold the same instances in the
// same order.
func sameChain(a, b []Target) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// commonSuffixLen counts identical instances from the outermost end inward.
func commonSuffixLen(old, next []Target) int {
	k := 0
	for k < len(old) && k < len(next) {
		if old[len(old)-1-k] != next[len(next)-1-k] {
			break
		}
		k++
	}
	return k
}

// showContent links content under host, honoring a ContentHost override.
func showContent(host Target, content *element.Element) error {
	if h, ok := host.(ContentHost); ok {
		return h.ShowContent(content)
	}
	return host.Element().AppendChild(content)
}

// removeContent unlinks content from wherever it currently sits, honoring a
// ContentHost override on the hosting layout. A nil host means the content
// was hosted directly under the reconciler's root host.
func removeContent(host Target, content *element.Element) error {
	if h, ok := host.(ContentHost); ok {
		return h.RemoveContent(content)
	}
	return content.RemoveFromParent()
}
