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

import "log/slog"

// Registration is a handle that removes a previously added listener.
//
// # Description
//
// Remove is idempotent. Each firing iterates a snapshot of the listener
// list taken before the first callback runs, so removing a listener from
// inside a callback never disturbs the delivery in progress: co-registered
// listeners in the current firing still run, and the removed listener stops
// firing from the next event on.
type Registration struct {
	unregister func()
}

// Remove cancels the registration.
func (r *Registration) Remove() {
	if r.unregister != nil {
		r.unregister()
		r.unregister = nil
	}
}

// NewRegistration wraps an unregister function in a Registration handle.
// Listener-style APIs outside this package (session heartbeat listeners)
// use it to hand out the same removal contract.
func NewRegistration(unregister func()) *Registration {
	return &Registration{unregister: unregister}
}

// nodeListener is one registered attach or detach callback.
type nodeListener struct {
	fn func(*StateNode)
}

// AddAttachListener registers fn to run whenever the node becomes attached.
//
// The callback runs synchronously on the mutating goroutine, after the
// node's whole subtree is linked, and in top-down order relative to the
// listeners of other nodes in the same attach cascade.
func (n *StateNode) AddAttachListener(fn func(*StateNode)) *Registration {
	e := &nodeListener{fn: fn}
	n.attachListeners = append(n.attachListeners, e)
	return &Registration{unregister: func() {
		n.attachListeners = dropListener(n.attachListeners, e)
	}}
}

// AddDetachListener registers fn to run whenever the node becomes detached.
//
// The callback runs synchronously, top-down through the detaching subtree,
// while the node is still registered with its tree: the id lookup and all
// feature state remain readable from inside the callback.
func (n *StateNode) AddDetachListener(fn func(*StateNode)) *Registration {
	e := &nodeListener{fn: fn}
	n.detachListeners = append(n.detachListeners, e)
	return &Registration{unregister: func() {
		n.detachListeners = dropListener(n.detachListeners, e)
	}}
}

// dropListener removes entry by identity, preserving order.
func dropListener(listeners []*nodeListener, entry *nodeListener) []*nodeListener {
	for i, e := range listeners {
		if e == entry {
			return append(listeners[:i], listeners[i+1:]...)
		}
	}
	return listeners
}

// fireAttach delivers the attach event to this node's listeners.
func (n *StateNode) fireAttach() {
	fireListeners(n.tree.log, "attach", n, n.attachListeners)
}

// fireDetach delivers the detach event to this node's listeners.
func (n *StateNode) fireDetach() {
	fireListeners(n.tree.log, "detach", n, n.detachListeners)
}

// fireListeners invokes a snapshot of listeners, isolating panics so one
// failing callback cannot block delivery to the rest or corrupt the
// attach/detach state machine.
func fireListeners(log *slog.Logger, event string, n *StateNode, listeners []*nodeListener) {
	if len(listeners) == 0 {
		return
	}
	snapshot := make([]*nodeListener, len(listeners))
	copy(snapshot, listeners)
	for _, e := range snapshot {
		safeInvoke(log, event, n, e.fn)
	}
}

// safeInvoke runs one callback, converting a panic into an error log entry.
func safeInvoke(log *slog.Logger, event string, n *StateNode, fn func(*StateNode)) {
	defer func() {
		if r := recover(); r != nil {
			log.Error("state node listener panicked",
				"event", event,
				"node_id", n.id,
				"panic", r)
		}
	}()
	fn(n)
}
