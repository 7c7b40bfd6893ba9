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
	"sort"
	"strings"

	"github.com/AleutianAI/wheelhouse/pkg/element"
	"github.com/AleutianAI/wheelhouse/pkg/validation"
)

// Factory builds one navigation target instance.
type Factory func() Target

// routeEntry pairs a view factory with its layout chain, innermost first.
type routeEntry struct {
	view    Factory
	layouts []string
}

// Table maps URL-style paths to view factories and named layout chains.
//
// # Description
//
// A Table is built once at startup and then shared read-only by every
// session. Views are constructed fresh per navigation; layouts are
// constructed at most once per session (see Navigator), which is what lets
// chain reconciliation recognize them as shared instances across
// navigations.
//
// # Thread Safety
//
// Registration is not safe for concurrent use. A fully built table is
// immutable and safe to share between sessions.
type Table struct {
	layouts map[string]Factory
	routes  map[string]routeEntry
}

// NewTable creates an empty route table.
func NewTable() *Table {
	return &Table{
		layouts: make(map[string]Factory),
		routes:  make(map[string]routeEntry),
	}
}

// AddLayout registers a named layout factory.
func (t *Table) AddLayout(name string, f Factory) error {
	if f == nil {
		return fmt.Errorf("layout %q: %w", name, ErrNilTarget)
	}
	if _, exists := t.layouts[name]; exists {
		return fmt.Errorf("layout %q: %w", name, ErrDuplicateLayout)
	}
	t.layouts[name] = f
	return nil
}

// AddRoute registers a view factory under path, nested in the given layout
// chain (innermost first). Every referenced layout must be registered
// beforehand.
func (t *Table) AddRoute(path string, view Factory, layoutNames ...string) error {
	path = NormalizePath(path)
	if err := validation.ValidateLocation(path); err != nil {
		return err
	}
	if view == nil {
		return fmt.Errorf("route %q: %w", path, ErrNilTarget)
	}
	if _, exists := t.routes[path]; exists {
		return fmt.Errorf("route %q: %w", path, ErrDuplicateRoute)
	}
	for _, name := range layoutNames {
		if _, ok := t.layouts[name]; !ok {
			return fmt.Errorf("route %q references layout %q: %w", path, name, ErrUnknownLayout)
		}
	}
	t.routes[path] = routeEntry{view: view, layouts: layoutNames}
	return nil
}

// Paths returns every registered path in sorted order.
func (t *Table) Paths() []string {
	out := make([]string, 0, len(t.routes))
	for p := range t.routes {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// HasRoute reports whether path resolves to a registered route.
func (t *Table) HasRoute(path string) bool {
	_, ok := t.routes[NormalizePath(path)]
	return ok
}

// NormalizePath canonicalizes a navigation path: a leading slash is
// enforced and a trailing slash dropped, so "about/" and "/about" resolve
// to the same route. The root path stays "/".
func NormalizePath(path string) string {
	path = strings.TrimSuffix(path, "/")
	if path == "" {
		return "/"
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return path
}

// Navigator drives one session's navigation against a shared Table.
//
// # Description
//
// Each session owns a Navigator bound to its tree's host element. Views
// are created fresh on every navigation; layout instances are cached per
// session by name, so navigating between two routes nested in the same
// layout reuses the existing instance and the reconciler keeps it
// attached, element state intact.
type Navigator struct {
	table       *Table
	rec         *Reconciler
	layoutCache map[string]Target
}

// NewNavigator creates a navigator for one session, hosting chains under
// host.
func NewNavigator(table *Table, host *element.Element, opts ...ReconcilerOption) *Navigator {
	return &Navigator{
		table:       table,
		rec:         NewReconciler(host, opts...),
		layoutCache: make(map[string]Target),
	}
}

// NavigateTo resolves path and shows its target chain. The path is
// validated before lookup; locations arrive straight off the wire.
func (n *Navigator) NavigateTo(path string) error {
	path = NormalizePath(path)
	if err := validation.ValidateLocation(path); err != nil {
		return err
	}
	entry, ok := n.table.routes[path]
	if !ok {
		return fmt.Errorf("%q: %w", path, ErrRouteNotFound)
	}
	view := entry.view()
	if view == nil {
		return fmt.Errorf("route %q produced no view: %w", path, ErrNilTarget)
	}
	layouts := make([]Target, 0, len(entry.layouts))
	for _, name := range entry.layouts {
		inst, cached := n.layoutCache[name]
		if !cached {
			inst = n.table.layouts[name]()
			if inst == nil {
				return fmt.Errorf("layout %q produced no target: %w", name, ErrNilTarget)
			}
			n.layoutCache[name] = inst
		}
		layouts = append(layouts, inst)
	}
	return n.rec.ShowTarget(path, view, layouts...)
}

// ActiveChain returns the session's current chain, leaf-first.
func (n *Navigator) ActiveChain() []Target {
	return n.rec.ActiveChain()
}

// ActiveLocation returns the currently shown path.
func (n *Navigator) ActiveLocation() string {
	return n.rec.ActiveLocation()
}
