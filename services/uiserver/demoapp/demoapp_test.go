// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package demoapp

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/wheelhouse/pkg/element"
	"github.com/AleutianAI/wheelhouse/services/uiserver/session"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newDemoUI(t *testing.T) *session.UI {
	t.Helper()
	table, err := BuildTable()
	require.NoError(t, err)
	ui, err := Factory(table)(discardLogger())
	require.NoError(t, err)
	return ui
}

func TestBuildTable_Routes(t *testing.T) {
	table, err := BuildTable()
	require.NoError(t, err)

	assert.Equal(t, []string{"/", "/about", "/settings"}, table.Paths())
	assert.True(t, table.HasRoute("/about"))
	assert.True(t, table.HasRoute("about/"), "paths are normalized on lookup")
	assert.False(t, table.HasRoute("/missing"))
}

// TestFactory_ShowsDefaultRoute verifies a fresh session UI is already
// on "/" with the dashboard placed inside the main layout's slot.
func TestFactory_ShowsDefaultRoute(t *testing.T) {
	ui := newDemoUI(t)

	assert.Equal(t, DefaultLocation, ui.Nav.ActiveLocation())

	chain := ui.Nav.ActiveChain()
	require.Len(t, chain, 2)
	view, ok := chain[0].(*DashboardView)
	require.True(t, ok, "leaf target must be the dashboard view")
	layout, ok := chain[1].(*MainLayout)
	require.True(t, ok, "outer target must be the main layout")

	// The layout hangs off the body; the view sits in the content
	// slot, not directly under the layout root.
	body := element.Body(ui.Tree)
	require.Equal(t, 1, body.ChildCount())
	child, _ := body.Child(0)
	assert.Same(t, layout.Element().Node(), child.Node())

	require.NotNil(t, view.Element().Parent())
	assert.Same(t, layout.slot.Node(), view.Element().Parent().Node())

	// Attach listener ran.
	ready, _ := view.Element().Property("ready")
	assert.Equal(t, true, ready)
}

// TestNavigate_SwapKeepsChrome navigates "/" -> "/about" and checks the
// cached main layout survives with its state while the view swaps.
func TestNavigate_SwapKeepsChrome(t *testing.T) {
	ui := newDemoUI(t)

	chainBefore := ui.Nav.ActiveChain()
	layout := chainBefore[1].(*MainLayout)
	oldView := chainBefore[0].(*DashboardView)

	require.NoError(t, ui.Nav.NavigateTo("/about"))

	chainAfter := ui.Nav.ActiveChain()
	require.Len(t, chainAfter, 2)
	assert.Same(t, layout, chainAfter[1], "main layout instance is reused")
	_, ok := chainAfter[0].(*AboutView)
	require.True(t, ok)

	// Old view left the tree entirely; the slot holds only the new
	// view.
	assert.False(t, oldView.Element().Node().Attached())
	assert.Equal(t, 1, layout.slot.ChildCount())

	// Layout state accumulated across both navigations.
	swaps, _ := layout.Element().Property("contentSwaps")
	assert.Equal(t, 2, swaps)
}

// TestNavigate_SettingsNestsBothLayouts verifies the three-deep chain
// and the two content placement styles.
func TestNavigate_SettingsNestsBothLayouts(t *testing.T) {
	ui := newDemoUI(t)
	require.NoError(t, ui.Nav.NavigateTo("/settings"))

	chain := ui.Nav.ActiveChain()
	require.Len(t, chain, 3)
	view := chain[0].(*SettingsView)
	inner := chain[1].(*SettingsLayout)
	outer := chain[2].(*MainLayout)

	// Default placement: the view is a direct child of the settings
	// layout element.
	require.NotNil(t, view.Element().Parent())
	assert.Same(t, inner.Element().Node(), view.Element().Parent().Node())

	// ContentHost placement: the settings layout sits in the main
	// layout's slot.
	require.NotNil(t, inner.Element().Parent())
	assert.Same(t, outer.slot.Node(), inner.Element().Parent().Node())
}

// TestNavigate_RoundTripReusesMainLayoutOnly navigates
// "/settings" -> "/" and checks the settings layout detaches while the
// main layout stays.
func TestNavigate_RoundTripReusesMainLayoutOnly(t *testing.T) {
	ui := newDemoUI(t)
	require.NoError(t, ui.Nav.NavigateTo("/settings"))

	inner := ui.Nav.ActiveChain()[1].(*SettingsLayout)
	outer := ui.Nav.ActiveChain()[2].(*MainLayout)

	require.NoError(t, ui.Nav.NavigateTo("/"))

	assert.False(t, inner.Element().Node().Attached(), "settings layout left the tree")
	assert.True(t, outer.Element().Node().Attached(), "main layout survives")
	assert.Same(t, outer, ui.Nav.ActiveChain()[1])
}

// TestDashboard_TooltipIsVirtualChild verifies the overlay is reachable
// through state but invisible to the visual child list.
func TestDashboard_TooltipIsVirtualChild(t *testing.T) {
	view := NewDashboardView()

	assert.Equal(t, 1, view.Element().VirtualChildCount())
	// Visual children: h2 + p only.
	assert.Equal(t, 2, view.Element().ChildCount())
}

// TestFactory_SessionsAreIsolated builds two UIs from one shared table
// and checks that navigation state does not leak between them.
func TestFactory_SessionsAreIsolated(t *testing.T) {
	table, err := BuildTable()
	require.NoError(t, err)
	factory := Factory(table)

	a, err := factory(discardLogger())
	require.NoError(t, err)
	b, err := factory(discardLogger())
	require.NoError(t, err)

	require.NoError(t, a.Nav.NavigateTo("/about"))

	assert.Equal(t, "/about", a.Nav.ActiveLocation())
	assert.Equal(t, "/", b.Nav.ActiveLocation())

	layoutA := a.Nav.ActiveChain()[1].(*MainLayout)
	layoutB := b.Nav.ActiveChain()[1].(*MainLayout)
	assert.NotSame(t, layoutA, layoutB, "layout instances are per session")
}
