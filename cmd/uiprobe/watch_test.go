// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/AleutianAI/wheelhouse/services/uiserver/datatypes"
)

// testWatchModel builds a model around a connection-less client. The
// frame and key paths under test never touch the socket.
func testWatchModel() watchModel {
	return newWatchModel(&SyncClient{SessionID: "0123456789abcdef"}, 30*time.Second)
}

func TestNewWatchModel(t *testing.T) {
	m := testWatchModel()

	if m.mirror == nil {
		t.Fatal("mirror not initialized")
	}
	if m.frames == nil {
		t.Fatal("frames channel not initialized")
	}
	if m.quitting {
		t.Error("model starts in quitting state")
	}
	if m.ready {
		t.Error("model is ready before the first WindowSizeMsg")
	}
}

func TestWatchModel_WindowSizeMsg(t *testing.T) {
	m := testWatchModel()

	newModel, _ := m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	got := newModel.(watchModel)

	if got.width != 120 || got.height != 40 {
		t.Errorf("dimensions = %dx%d, want 120x40", got.width, got.height)
	}
	if !got.ready {
		t.Error("model should be ready after WindowSizeMsg")
	}
}

func TestWatchModel_QuitKey(t *testing.T) {
	m := testWatchModel()

	newModel, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	got := newModel.(watchModel)

	if !got.quitting {
		t.Error("q should set quitting")
	}
	if cmd == nil {
		t.Fatal("q should return a quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("q command should produce tea.QuitMsg")
	}
}

func TestWatchModel_SyncFrameUpdatesMirror(t *testing.T) {
	m := testWatchModel()

	frame := syncFrame(1, true, "/",
		datatypes.NodeChanges{Node: 1, Changes: []datatypes.WireChange{
			{Type: "attach"},
			put("elementData", "tag", "div"),
		}},
	)
	newModel, cmd := m.Update(frameMsg(frame))
	got := newModel.(watchModel)

	if got.mirror.NodeCount() != 1 {
		t.Errorf("NodeCount = %d, want 1", got.mirror.NodeCount())
	}
	if !strings.Contains(got.status, "frame 1 (full)") {
		t.Errorf("status = %q", got.status)
	}
	if cmd == nil {
		t.Error("frame handling should re-arm the frame wait")
	}
}

func TestWatchModel_ServerErrorEnvelope(t *testing.T) {
	m := testWatchModel()

	newModel, _ := m.Update(frameMsg(datatypes.ServerMessage{
		Action: datatypes.ActionError,
		Error:  "rate limit exceeded",
	}))
	got := newModel.(watchModel)

	if !strings.Contains(got.status, "rate limit exceeded") {
		t.Errorf("status = %q", got.status)
	}
	if got.quitting {
		t.Error("a server error envelope should not end the watch")
	}
}

func TestWatchModel_ReadErrorQuits(t *testing.T) {
	m := testWatchModel()

	readErr := errors.New("connection reset")
	newModel, cmd := m.Update(readErrMsg{err: readErr})
	got := newModel.(watchModel)

	if !got.quitting {
		t.Error("read error should end the watch")
	}
	if !errors.Is(got.readErr, readErr) {
		t.Errorf("readErr = %v, want %v", got.readErr, readErr)
	}
	if cmd == nil {
		t.Fatal("read error should return a quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("read error command should produce tea.QuitMsg")
	}
}

func TestWatchModel_View(t *testing.T) {
	m := testWatchModel()

	if got := m.View(); got != "Connecting...\n" {
		t.Errorf("View before ready = %q", got)
	}

	newModel, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	newModel, _ = newModel.Update(frameMsg(syncFrame(1, true, "/",
		datatypes.NodeChanges{Node: 1, Changes: []datatypes.WireChange{
			{Type: "attach"},
			put("elementData", "tag", "div"),
		}},
	)))
	view := newModel.(watchModel).View()

	if !strings.Contains(view, "uiprobe watch") {
		t.Error("view is missing the title")
	}
	if !strings.Contains(view, "01234567") {
		t.Error("view is missing the session id")
	}
	if !strings.Contains(view, "node 1 <div>") {
		t.Error("view is missing the rendered tree")
	}

	quit := testWatchModel()
	quit.quitting = true
	if got := quit.View(); got != "" {
		t.Errorf("View when quitting = %q", got)
	}
}

func TestShortID(t *testing.T) {
	if got := shortID("abc"); got != "abc" {
		t.Errorf("shortID(abc) = %q", got)
	}
	if got := shortID("0123456789"); got != "01234567" {
		t.Errorf("shortID = %q", got)
	}
}
