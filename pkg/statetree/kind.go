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

// Kind identifies one feature store slot on a StateNode.
//
// # Description
//
// The set of kinds is a closed enumeration. Every node carries a fixed-size
// slot array indexed by Kind, and the store for a slot is created lazily on
// first access. Map kinds hold string-keyed values; list kinds hold ordered
// child nodes or scalar items.
type Kind uint8

const (
	// KindElementData holds intrinsic element payload such as the tag name
	// and text content.
	KindElementData Kind = iota

	// KindElementProperties holds element property values.
	KindElementProperties

	// KindElementAttributes holds element attribute values.
	KindElementAttributes

	// KindElementStyle holds inline style declarations.
	KindElementStyle

	// KindElementChildren holds the ordered child nodes of an element.
	KindElementChildren

	// KindVirtualChildren holds nodes logically owned by an element but not
	// part of its visible child list (overlays, detached portals).
	KindVirtualChildren

	// kindCount bounds the per-node feature slot array.
	kindCount
)

// kindNames maps each Kind to its stable wire and log name.
var kindNames = [kindCount]string{
	KindElementData:       "elementData",
	KindElementProperties: "elementProperties",
	KindElementAttributes: "elementAttributes",
	KindElementStyle:      "elementStyle",
	KindElementChildren:   "elementChildren",
	KindVirtualChildren:   "virtualChildren",
}

// String returns the stable name for the kind.
func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// IsList reports whether the kind stores an ordered list rather than a map.
func (k Kind) IsList() bool {
	return k == KindElementChildren || k == KindVirtualChildren
}

// AllKinds returns every feature kind in slot order.
func AllKinds() []Kind {
	out := make([]Kind, 0, kindCount)
	for k := Kind(0); k < kindCount; k++ {
		out = append(out, k)
	}
	return out
}

// feature is the store-side contract shared by NodeMap and NodeList.
type feature interface {
	// forEachChild visits every child node referenced by the store, in
	// deterministic order.
	forEachChild(fn func(*StateNode))

	// generateFromEmpty appends the change records that rebuild the store's
	// current contents on a mirror that has never seen the node.
	generateFromEmpty(out *[]Change)
}
