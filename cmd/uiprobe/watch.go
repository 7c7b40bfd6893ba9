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
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/AleutianAI/wheelhouse/pkg/ux"
	"github.com/AleutianAI/wheelhouse/services/uiserver/datatypes"
)

// =============================================================================
// Messages
// =============================================================================

// frameMsg carries one server envelope from the reader goroutine.
type frameMsg datatypes.ServerMessage

// readErrMsg ends the watch; the socket is gone.
type readErrMsg struct {
	err error
}

// heartbeatMsg fires on the keep-alive interval.
type heartbeatMsg time.Time

// =============================================================================
// Model
// =============================================================================

// watchModel follows one live session, replaying every pushed frame
// into a mirror and rendering the tree in a scrollable viewport.
//
// # Thread Safety
//
// The model itself lives on the bubbletea event loop. The reader
// goroutine only touches the websocket read side and the frames
// channel; writes (resync, heartbeat) happen from the event loop, which
// matches the one-reader-one-writer contract of the connection.
type watchModel struct {
	client *SyncClient
	mirror *Mirror
	frames chan tea.Msg

	// Viewport for scrolling
	viewport viewport.Model

	// Terminal dimensions
	width  int
	height int

	// State flags
	ready    bool
	quitting bool

	status  string
	readErr error

	heartbeatEvery time.Duration
}

func newWatchModel(client *SyncClient, heartbeatEvery time.Duration) watchModel {
	return watchModel{
		client:         client,
		mirror:         NewMirror(),
		frames:         make(chan tea.Msg, 8),
		status:         "connected, waiting for the first frame",
		heartbeatEvery: heartbeatEvery,
	}
}

// Init implements tea.Model. It starts the socket reader and the
// heartbeat timer.
func (m watchModel) Init() tea.Cmd {
	go readFrames(m.client, m.frames)
	return tea.Batch(waitForFrame(m.frames), heartbeatTick(m.heartbeatEvery))
}

// readFrames pumps server envelopes into the frames channel until the
// socket dies.
func readFrames(client *SyncClient, frames chan<- tea.Msg) {
	for {
		msg, err := client.ReadFrame(0)
		if err != nil {
			frames <- readErrMsg{err: err}
			return
		}
		frames <- frameMsg(msg)
	}
}

func waitForFrame(frames <-chan tea.Msg) tea.Cmd {
	return func() tea.Msg { return <-frames }
}

func heartbeatTick(every time.Duration) tea.Cmd {
	return tea.Tick(every, func(t time.Time) tea.Msg { return heartbeatMsg(t) })
}

// Update implements tea.Model.
func (m watchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

		headerHeight := 3
		footerHeight := 2
		viewportHeight := m.height - headerHeight - footerHeight

		if !m.ready {
			m.viewport = viewport.New(m.width, viewportHeight)
			m.viewport.YPosition = headerHeight
			m.ready = true
		} else {
			m.viewport.Width = m.width
			m.viewport.Height = viewportHeight
		}
		m.updateViewportContent()

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "Q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit

		case "r", "R":
			if err := m.client.Resync(); err != nil {
				m.status = "resync request failed: " + err.Error()
			} else {
				m.status = "resync requested"
			}
			return m, nil

		case "g", "home":
			m.viewport.GotoTop()
			return m, nil

		case "G", "end":
			m.viewport.GotoBottom()
			return m, nil
		}

	case frameMsg:
		return m.applyFrame(datatypes.ServerMessage(msg))

	case readErrMsg:
		m.readErr = msg.err
		m.quitting = true
		return m, tea.Quit

	case heartbeatMsg:
		// Errors surface on the read side; nothing to report here.
		_ = m.client.Heartbeat()
		return m, heartbeatTick(m.heartbeatEvery)
	}

	// The viewport owns scrolling keys (j/k, arrows, page movement).
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

// applyFrame folds one server envelope into the mirror and re-renders.
func (m watchModel) applyFrame(env datatypes.ServerMessage) (tea.Model, tea.Cmd) {
	switch env.Action {
	case datatypes.ActionSync:
		if err := m.mirror.Apply(env); err != nil {
			// The mirror can no longer trust its state; ask for a
			// rebuild instead of dying.
			m.status = "desync (" + err.Error() + "), requested full resync"
			_ = m.client.Resync()
			break
		}
		kind := "diff"
		if env.Full {
			kind = "full"
		}
		m.status = fmt.Sprintf("frame %d (%s) at %s", env.SyncID, kind, time.Now().Format("15:04:05"))
		m.updateViewportContent()

	case datatypes.ActionError:
		m.status = "server error: " + env.Error

	default:
		m.status = fmt.Sprintf("unexpected %q envelope", env.Action)
	}
	return m, waitForFrame(m.frames)
}

func (m *watchModel) updateViewportContent() {
	if !m.ready {
		return
	}
	m.viewport.SetContent(m.mirror.Render())
}

// View implements tea.Model.
func (m watchModel) View() string {
	if m.quitting {
		return ""
	}
	if !m.ready {
		return "Connecting...\n"
	}

	var b strings.Builder
	b.WriteString(m.headerView())
	b.WriteString("\n")
	b.WriteString(m.viewport.View())
	b.WriteString("\n")
	b.WriteString(m.footerView())
	return b.String()
}

func (m watchModel) headerView() string {
	title := ux.Styles.Title.Render(string(ux.IconAnchor) + " uiprobe watch")
	info := ux.Styles.Muted.Render(fmt.Sprintf("session %s  %s  sync %d  %d nodes",
		shortID(m.client.SessionID), m.mirror.Location(), m.mirror.SyncID(), m.mirror.NodeCount()))
	return title + "\n" + info + "\n"
}

func (m watchModel) footerView() string {
	status := m.status
	if strings.HasPrefix(status, "server error") || strings.HasPrefix(status, "desync") {
		status = ux.Styles.Warning.Render(status)
	} else {
		status = ux.Styles.Subtitle.Render(status)
	}
	help := ux.Styles.Muted.Render("q quit  r resync  j/k scroll  g/G top/bottom")
	return status + "\n" + help
}

// shortID truncates a session uuid for the header line.
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// =============================================================================
// Command
// =============================================================================

func runWatch(cmd *cobra.Command, args []string) {
	client, err := DialSync(getServerBaseURL(), sessionFlag)
	if err != nil {
		log.Fatalf("Failed to connect: %v", err)
	}
	defer client.Close()

	program := tea.NewProgram(newWatchModel(client, heartbeatEvery), tea.WithAltScreen())
	finalModel, err := program.Run()
	if err != nil {
		log.Fatalf("Watch failed: %v", err)
	}
	if m, ok := finalModel.(watchModel); ok && m.readErr != nil {
		log.Fatalf("Connection lost: %v", m.readErr)
	}
	out.Info("watch ended")
}
