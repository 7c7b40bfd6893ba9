// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package element provides the DOM-facing veneer over state nodes.
//
// An Element is a flyweight handle: all state lives in the underlying
// statetree.StateNode feature stores, so any number of Element values may
// wrap the same node interchangeably. Mutations record change records on
// the node exactly like direct store access would.
package element

import (
	"errors"

	"github.com/AleutianAI/wheelhouse/pkg/statetree"
)

// Data keys used inside the KindElementData store.
const (
	dataTag  = "tag"
	dataText = "text"
)

// ErrNotAChild indicates a removal of an element that is not a child of the
// receiver.
var ErrNotAChild = errors.New("element is not a child of this element")

// Element is a flyweight handle to one state node.
type Element struct {
	node *statetree.StateNode
}

// New creates a detached element with the given tag.
func New(tag string) *Element {
	e := &Element{node: statetree.NewNode()}
	e.node.Map(statetree.KindElementData).Put(dataTag, tag)
	return e
}

// NewText creates a detached text element carrying the given payload.
func NewText(text string) *Element {
	e := &Element{node: statetree.NewNode()}
	e.node.Map(statetree.KindElementData).Put(dataText, text)
	return e
}

// Wrap returns an element handle for an existing node. Returns nil for a
// nil node.
func Wrap(node *statetree.StateNode) *Element {
	if node == nil {
		return nil
	}
	return &Element{node: node}
}

// Body returns the element handle for the tree root, tagging it "body" on
// first use. Repeated calls are no-ops on the state.
func Body(tree *statetree.Tree) *Element {
	e := Wrap(tree.Root())
	e.node.Map(statetree.KindElementData).Put(dataTag, "body")
	return e
}

// Node returns the underlying state node.
func (e *Element) Node() *statetree.StateNode {
	return e.node
}

// Tag returns the element tag, or "" for text elements.
func (e *Element) Tag() string {
	v, _ := e.node.Map(statetree.KindElementData).GetOrDefault(dataTag, "").(string)
	return v
}

// IsText reports whether the element is a text element.
func (e *Element) IsText() bool {
	_, ok := e.node.Map(statetree.KindElementData).Get(dataText)
	return ok
}

// Text returns the text payload of a text element, or the concatenated
// payloads of all text descendants otherwise.
func (e *Element) Text() string {
	if v, ok := e.node.Map(statetree.KindElementData).Get(dataText); ok {
		s, _ := v.(string)
		return s
	}
	out := ""
	for _, c := range e.Children() {
		out += c.Text()
	}
	return out
}

// SetText replaces the element's children with a single text child. On a
// text element it rewrites the payload in place.
func (e *Element) SetText(text string) *Element {
	if e.IsText() {
		e.node.Map(statetree.KindElementData).Put(dataText, text)
		return e
	}
	e.RemoveAllChildren()
	// Appending a freshly created node cannot fail.
	_ = e.node.List(statetree.KindElementChildren).Append(NewText(text).node)
	return e
}

// ===== Properties, attributes, styles =====

// SetProperty stores a property value.
func (e *Element) SetProperty(name string, value any) *Element {
	e.node.Map(statetree.KindElementProperties).Put(name, value)
	return e
}

// Property returns the stored property value.
func (e *Element) Property(name string) (any, bool) {
	return e.node.Map(statetree.KindElementProperties).Get(name)
}

// RemoveProperty deletes a property.
func (e *Element) RemoveProperty(name string) *Element {
	e.node.Map(statetree.KindElementProperties).Remove(name)
	return e
}

// SetAttribute stores an attribute value.
func (e *Element) SetAttribute(name, value string) *Element {
	e.node.Map(statetree.KindElementAttributes).Put(name, value)
	return e
}

// Attribute returns the stored attribute value.
func (e *Element) Attribute(name string) (string, bool) {
	v, ok := e.node.Map(statetree.KindElementAttributes).Get(name)
	if !ok {
		return "", false
	}
	s, _ := v.(string)
	return s, true
}

// RemoveAttribute deletes an attribute.
func (e *Element) RemoveAttribute(name string) *Element {
	e.node.Map(statetree.KindElementAttributes).Remove(name)
	return e
}

// SetStyle stores an inline style declaration.
func (e *Element) SetStyle(name, value string) *Element {
	e.node.Map(statetree.KindElementStyle).Put(name, value)
	return e
}

// Style returns the stored style declaration.
func (e *Element) Style(name string) (string, bool) {
	v, ok := e.node.Map(statetree.KindElementStyle).Get(name)
	if !ok {
		return "", false
	}
	s, _ := v.(string)
	return s, true
}

// RemoveStyle deletes an inline style declaration.
func (e *Element) RemoveStyle(name string) *Element {
	e.node.Map(statetree.KindElementStyle).Remove(name)
	return e
}

// ===== Structure =====

// ChildCount returns the number of child elements.
func (e *Element) ChildCount() int {
	return e.node.List(statetree.KindElementChildren).Len()
}

// Child returns the child element at index.
func (e *Element) Child(index int) (*Element, bool) {
	item, ok := e.node.List(statetree.KindElementChildren).Get(index)
	if !ok {
		return nil, false
	}
	n, ok := item.(*statetree.StateNode)
	if !ok {
		return nil, false
	}
	return Wrap(n), true
}

// Children returns all child elements in order.
func (e *Element) Children() []*Element {
	list := e.node.List(statetree.KindElementChildren)
	out := make([]*Element, 0, list.Len())
	for i := 0; i < list.Len(); i++ {
		if c, ok := e.Child(i); ok {
			out = append(out, c)
		}
	}
	return out
}

// Parent returns the parent element, or nil for the root and for detached
// subtree roots.
func (e *Element) Parent() *Element {
	return Wrap(e.node.Parent())
}

// AppendChild appends the given elements, attaching their subtrees when the
// receiver is live. Fails on the first rejected child with the remaining
// ones unprocessed.
func (e *Element) AppendChild(children ...*Element) error {
	list := e.node.List(statetree.KindElementChildren)
	for _, c := range children {
		if err := list.Append(c.node); err != nil {
			return err
		}
	}
	return nil
}

// InsertChild places child at index among the existing children.
func (e *Element) InsertChild(index int, child *Element) error {
	return e.node.List(statetree.KindElementChildren).Insert(index, child.node)
}

// RemoveChild detaches child from the receiver.
func (e *Element) RemoveChild(child *Element) error {
	list := e.node.List(statetree.KindElementChildren)
	idx := list.IndexOf(child.node)
	if idx < 0 {
		return ErrNotAChild
	}
	_, err := list.RemoveAt(idx)
	return err
}

// RemoveFromParent unlinks the element from whichever list of its current
// parent holds it. A parentless element is left untouched.
func (e *Element) RemoveFromParent() error {
	p := e.node.Parent()
	if p == nil {
		return nil
	}
	for _, kind := range []statetree.Kind{statetree.KindElementChildren, statetree.KindVirtualChildren} {
		if !p.HasFeature(kind) {
			continue
		}
		list := p.List(kind)
		if idx := list.IndexOf(e.node); idx >= 0 {
			_, err := list.RemoveAt(idx)
			return err
		}
	}
	return nil
}

// RemoveAllChildren detaches every child element.
func (e *Element) RemoveAllChildren() *Element {
	list := e.node.List(statetree.KindElementChildren)
	for list.Len() > 0 {
		// Removing the last index keeps the remaining indices stable.
		if _, err := list.RemoveAt(list.Len() - 1); err != nil {
			break
		}
	}
	return e
}

// AppendVirtualChild links child into the virtual child list: owned by this
// element and part of the live tree, but not in the visible child order.
func (e *Element) AppendVirtualChild(child *Element) error {
	return e.node.List(statetree.KindVirtualChildren).Append(child.node)
}

// RemoveVirtualChild unlinks a virtual child.
func (e *Element) RemoveVirtualChild(child *Element) error {
	list := e.node.List(statetree.KindVirtualChildren)
	idx := list.IndexOf(child.node)
	if idx < 0 {
		return ErrNotAChild
	}
	_, err := list.RemoveAt(idx)
	return err
}

// VirtualChildCount returns the number of virtual children.
func (e *Element) VirtualChildCount() int {
	return e.node.List(statetree.KindVirtualChildren).Len()
}

// ===== Lifecycle =====

// OnAttach registers fn to run when the element's node becomes attached.
func (e *Element) OnAttach(fn func(*Element)) *statetree.Registration {
	return e.node.AddAttachListener(func(n *statetree.StateNode) {
		fn(Wrap(n))
	})
}

// OnDetach registers fn to run when the element's node becomes detached.
func (e *Element) OnDetach(fn func(*Element)) *statetree.Registration {
	return e.node.AddDetachListener(func(n *statetree.StateNode) {
		fn(Wrap(n))
	})
}
