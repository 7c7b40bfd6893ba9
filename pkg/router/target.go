// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package router swaps active view chains in and out of a UI state tree.
//
// # Description
//
// A navigation target chain is the leaf-first sequence of the currently
// displayed view and its nesting layouts, for example
// [settingsView, adminLayout, mainLayout]. The Reconciler transitions the
// tree from one chain to another with the minimal set of structural
// operations: layout instances shared between the chains (compared by
// identity, from the outermost end) stay attached and keep their element
// state, while the chains' unique prefixes are detached leaf-first and
// attached outermost-first. Table and Navigator add the path-registration
// glue that produces chains from URL-style paths.
package router

import "github.com/AleutianAI/wheelhouse/pkg/element"

// Target is a navigation target: a view or layout anchored at one element.
//
// Chain reconciliation compares targets by identity, so implementations
// must be pointer types and a layout meant to survive navigation must be
// the same instance in both chains.
type Target interface {
	// Element returns the target's anchor element. The same element must be
	// returned for the target's whole lifetime.
	Element() *element.Element
}

// ContentHost is an optional Target capability that customizes how a layout
// places and removes nested route content.
//
// Layouts without it get the default behavior: content is appended to and
// removed from the layout's element child list.
type ContentHost interface {
	Target

	// ShowContent links content into the layout.
	ShowContent(content *element.Element) error

	// RemoveContent unlinks previously shown content.
	RemoveContent(content *element.Element) error
}
