// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package demoapp is the sample application served by uiserver.
//
// # Description
//
// Three routes over two layouts:
//
//	/          DashboardView  in MainLayout
//	/about     AboutView      in MainLayout
//	/settings  SettingsView   in SettingsLayout in MainLayout
//
// MainLayout implements router.ContentHost and places route content
// into a dedicated slot under its chrome, so navigating between routes
// swaps the slot content while the header and its state survive.
// SettingsLayout uses the default content placement (direct child).
//
// The views are plain element trees; DashboardView additionally hangs a
// tooltip overlay off the view as a virtual child, keeping it in
// session state without a position in the visual child list.
package demoapp

import (
	"fmt"
	"log/slog"

	"github.com/AleutianAI/wheelhouse/pkg/element"
	"github.com/AleutianAI/wheelhouse/pkg/router"
	"github.com/AleutianAI/wheelhouse/pkg/statetree"
	"github.com/AleutianAI/wheelhouse/services/uiserver/session"
)

// DefaultLocation is the route shown to a freshly created session.
const DefaultLocation = "/"

// =============================================================================
// Layouts
// =============================================================================

// MainLayout is the application chrome: a header with navigation links
// and a content slot. It implements router.ContentHost so route content
// lands in the slot, not after the header. The layout instance is
// cached per session, so its swap counter survives navigation.
type MainLayout struct {
	el    *element.Element
	slot  *element.Element
	swaps int
}

// NewMainLayout builds the chrome.
func NewMainLayout() *MainLayout {
	header := element.New("header").SetAttribute("class", "app-header")
	_ = header.AppendChild(element.New("h1").SetText("Wheelhouse Demo"))

	nav := element.New("nav")
	for _, link := range []struct{ href, label string }{
		{"/", "Dashboard"},
		{"/about", "About"},
		{"/settings", "Settings"},
	} {
		a := element.New("a").SetAttribute("href", link.href).SetText(link.label)
		_ = nav.AppendChild(a)
	}
	_ = header.AppendChild(nav)

	slot := element.New("div").SetAttribute("class", "content-slot")

	el := element.New("div").SetAttribute("class", "main-layout")
	_ = el.AppendChild(header, slot)

	return &MainLayout{el: el, slot: slot}
}

// Element returns the layout root.
func (l *MainLayout) Element() *element.Element { return l.el }

// ShowContent places route content into the slot and bumps the swap
// counter held in layout state.
func (l *MainLayout) ShowContent(content *element.Element) error {
	if err := l.slot.AppendChild(content); err != nil {
		return err
	}
	l.swaps++
	l.el.SetProperty("contentSwaps", l.swaps)
	return nil
}

// RemoveContent removes route content from the slot.
func (l *MainLayout) RemoveContent(content *element.Element) error {
	return l.slot.RemoveChild(content)
}

var _ router.ContentHost = (*MainLayout)(nil)

// SettingsLayout wraps the settings pages with a sidebar. Content is
// appended directly to the layout element (default placement).
type SettingsLayout struct {
	el *element.Element
}

// NewSettingsLayout builds the sidebar wrapper.
func NewSettingsLayout() *SettingsLayout {
	sidebar := element.New("aside").SetAttribute("class", "settings-nav")
	_ = sidebar.AppendChild(element.New("a").SetAttribute("href", "/settings").SetText("General"))

	el := element.New("section").SetAttribute("class", "settings-layout")
	_ = el.AppendChild(sidebar)
	return &SettingsLayout{el: el}
}

// Element returns the layout root.
func (l *SettingsLayout) Element() *element.Element { return l.el }

var _ router.Target = (*SettingsLayout)(nil)

// =============================================================================
// Views
// =============================================================================

// DashboardView is the landing page. It hangs a tooltip overlay off the
// view as a virtual child and marks itself ready on attach.
type DashboardView struct {
	el *element.Element
}

// NewDashboardView builds the view.
func NewDashboardView() *DashboardView {
	el := element.New("main").SetAttribute("class", "dashboard")
	_ = el.AppendChild(
		element.New("h2").SetText("Dashboard"),
		element.New("p").SetText("Server-rendered state, synced over websocket."),
	)

	tooltip := element.New("div").
		SetAttribute("class", "tooltip").
		SetStyle("display", "none").
		SetText("Session-local overlay")
	_ = el.AppendVirtualChild(tooltip)

	el.OnAttach(func(*element.Element) {
		el.SetProperty("ready", true)
	})
	return &DashboardView{el: el}
}

// Element returns the view root.
func (v *DashboardView) Element() *element.Element { return v.el }

// AboutView is a static page.
type AboutView struct {
	el *element.Element
}

// NewAboutView builds the view.
func NewAboutView() *AboutView {
	el := element.New("main").SetAttribute("class", "about")
	_ = el.AppendChild(
		element.New("h2").SetText("About"),
		element.New("p").SetText("A demo of server-owned UI state with change tracking."),
	)
	return &AboutView{el: el}
}

// Element returns the view root.
func (v *AboutView) Element() *element.Element { return v.el }

// SettingsView shows a small form under the settings chrome.
type SettingsView struct {
	el *element.Element
}

// NewSettingsView builds the view.
func NewSettingsView() *SettingsView {
	form := element.New("form")
	_ = form.AppendChild(
		element.New("label").SetText("Theme"),
		element.New("input").SetAttribute("name", "theme").SetProperty("value", "dark"),
	)

	el := element.New("main").SetAttribute("class", "settings")
	_ = el.AppendChild(element.New("h2").SetText("Settings"), form)
	return &SettingsView{el: el}
}

// Element returns the view root.
func (v *SettingsView) Element() *element.Element { return v.el }

// =============================================================================
// Wiring
// =============================================================================

// layout and route names used by the table.
const (
	layoutMain     = "main"
	layoutSettings = "settings"
)

// BuildTable registers the demo routes. The table is immutable once
// built and shared by every session.
func BuildTable() (*router.Table, error) {
	table := router.NewTable()

	if err := table.AddLayout(layoutMain, func() router.Target { return NewMainLayout() }); err != nil {
		return nil, fmt.Errorf("register main layout: %w", err)
	}
	if err := table.AddLayout(layoutSettings, func() router.Target { return NewSettingsLayout() }); err != nil {
		return nil, fmt.Errorf("register settings layout: %w", err)
	}

	if err := table.AddRoute("/", func() router.Target { return NewDashboardView() }, layoutMain); err != nil {
		return nil, fmt.Errorf("register dashboard route: %w", err)
	}
	if err := table.AddRoute("/about", func() router.Target { return NewAboutView() }, layoutMain); err != nil {
		return nil, fmt.Errorf("register about route: %w", err)
	}
	if err := table.AddRoute("/settings", func() router.Target { return NewSettingsView() }, layoutSettings, layoutMain); err != nil {
		return nil, fmt.Errorf("register settings route: %w", err)
	}

	return table, nil
}

// Factory returns the session.UIFactory for the demo application: a
// fresh tree and navigator already showing the default route. The
// table is shared; all per-session state lives in the tree, navigator,
// and layout instances.
func Factory(table *router.Table) session.UIFactory {
	return func(log *slog.Logger) (*session.UI, error) {
		tree := statetree.NewTree(statetree.WithLogger(log))
		nav := router.NewNavigator(table, element.Body(tree), router.WithLogger(log))

		if err := nav.NavigateTo(DefaultLocation); err != nil {
			return nil, fmt.Errorf("show default route: %w", err)
		}
		return &session.UI{Tree: tree, Nav: nav}, nil
	}
}
