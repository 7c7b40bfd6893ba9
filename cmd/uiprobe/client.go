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
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/AleutianAI/wheelhouse/services/uiserver/datatypes"
	"github.com/AleutianAI/wheelhouse/services/uiserver/session"
)

const (
	// defaultReadTimeout bounds a single frame read for the one-shot
	// commands. The watch command reads without a deadline.
	defaultReadTimeout = 10 * time.Second

	// restTimeout bounds one admin REST round trip.
	restTimeout = 10 * time.Second
)

// restClient is shared by the admin commands.
var restClient = &http.Client{Timeout: restTimeout}

// =============================================================================
// Sync Socket Client
// =============================================================================

// SyncClient drives one uiserver sync socket connection.
//
// # Description
//
// DialSync performs the connection handshake: it upgrades to a
// websocket and consumes the session_created envelope, after which the
// server's first sync frame (always full) is waiting to be read. The
// client then sends action envelopes and reads frames; it never sends
// state, because the server owns all of it.
//
// # Thread Safety
//
// Reads and writes may run on different goroutines (the watch TUI reads
// from a background goroutine while the event loop writes), but only
// one goroutine may read and only one may write at a time. That is the
// same constraint the underlying gorilla connection imposes.
type SyncClient struct {
	conn *websocket.Conn

	// SessionID is the server-assigned session, from session_created.
	SessionID string

	// Location is the active route reported at connect time.
	Location string
}

// DialSync connects to a uiserver and consumes the session_created
// envelope.
//
// # Inputs
//
//   - serverURL: Base URL of the server, http(s) or ws(s) scheme.
//   - sessionID: Session to resume, or "" for a fresh session. An
//     unknown id silently gets a fresh session; compare SessionID to
//     detect that.
//
// # Outputs
//
//   - *SyncClient: Connected client with the session identity filled in.
//   - error: Non-nil on dial, handshake, or protocol failures.
func DialSync(serverURL, sessionID string) (*SyncClient, error) {
	wsURL, err := syncSocketURL(serverURL, sessionID)
	if err != nil {
		return nil, err
	}

	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("dialing %s: %w", wsURL, err)
	}
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}

	c := &SyncClient{conn: conn}
	hello, err := c.ReadFrame(defaultReadTimeout)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("reading handshake: %w", err)
	}
	if hello.Action != datatypes.ActionSessionCreated {
		conn.Close()
		return nil, fmt.Errorf("expected %s envelope, got %q", datatypes.ActionSessionCreated, hello.Action)
	}
	c.SessionID = hello.SessionID
	c.Location = hello.Location
	return c, nil
}

// syncSocketURL builds the websocket endpoint URL from a base server
// URL, mapping http schemes to their websocket counterparts.
func syncSocketURL(serverURL, sessionID string) (string, error) {
	u, err := url.Parse(serverURL)
	if err != nil {
		return "", fmt.Errorf("parsing server URL %q: %w", serverURL, err)
	}
	switch u.Scheme {
	case "http", "ws":
		u.Scheme = "ws"
	case "https", "wss":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("unsupported server URL scheme %q", u.Scheme)
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/v1/ui/ws"
	if sessionID != "" {
		q := u.Query()
		q.Set("session", sessionID)
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}

// ReadFrame reads the next server envelope. A zero timeout reads
// without a deadline. Error envelopes are returned as values, not
// errors; the connection stays usable after them.
func (c *SyncClient) ReadFrame(timeout time.Duration) (datatypes.ServerMessage, error) {
	var deadline time.Time
	if timeout > 0 {
		deadline = time.Now().Add(timeout)
	}
	if err := c.conn.SetReadDeadline(deadline); err != nil {
		return datatypes.ServerMessage{}, err
	}

	var msg datatypes.ServerMessage
	if err := c.conn.ReadJSON(&msg); err != nil {
		return datatypes.ServerMessage{}, err
	}
	return msg, nil
}

// ReadSync reads the next envelope and requires it to be a sync frame.
// A server error envelope is turned into a Go error, which is what the
// one-shot commands want.
func (c *SyncClient) ReadSync(timeout time.Duration) (datatypes.ServerMessage, error) {
	msg, err := c.ReadFrame(timeout)
	if err != nil {
		return datatypes.ServerMessage{}, err
	}
	switch msg.Action {
	case datatypes.ActionSync:
		return msg, nil
	case datatypes.ActionError:
		return datatypes.ServerMessage{}, fmt.Errorf("server: %s", msg.Error)
	default:
		return datatypes.ServerMessage{}, fmt.Errorf("unexpected %q envelope", msg.Action)
	}
}

// Navigate asks the server to show a different route.
func (c *SyncClient) Navigate(location string) error {
	return c.conn.WriteJSON(datatypes.ClientMessage{
		Action:   datatypes.ActionNavigate,
		Location: location,
	})
}

// Resync asks for a full state snapshot.
func (c *SyncClient) Resync() error {
	return c.conn.WriteJSON(datatypes.ClientMessage{Action: datatypes.ActionResync})
}

// Heartbeat keeps the session alive. The server sends nothing back.
func (c *SyncClient) Heartbeat() error {
	return c.conn.WriteJSON(datatypes.ClientMessage{Action: datatypes.ActionHeartbeat})
}

// Close tears down the websocket. The server keeps the session for
// resumption until the idle reaper expires it.
func (c *SyncClient) Close() error {
	return c.conn.Close()
}

// =============================================================================
// Admin REST Client
// =============================================================================

// fetchRoutes lists the route paths the server can navigate to.
func fetchRoutes(serverURL string) ([]string, error) {
	var body struct {
		Routes []string `json:"routes"`
	}
	if err := getJSON(serverURL+"/v1/routes", &body); err != nil {
		return nil, err
	}
	return body.Routes, nil
}

// fetchSessions lists the server's live sessions.
func fetchSessions(serverURL string) ([]session.Info, error) {
	var body struct {
		Sessions []session.Info `json:"sessions"`
		Count    int            `json:"count"`
	}
	if err := getJSON(serverURL+"/v1/sessions", &body); err != nil {
		return nil, err
	}
	return body.Sessions, nil
}

// removeSession force-expires one session on the server.
func removeSession(serverURL, sessionID string) error {
	req, err := http.NewRequest(http.MethodDelete, fmt.Sprintf("%s/v1/sessions/%s", serverURL, sessionID), nil)
	if err != nil {
		return fmt.Errorf("creating delete request: %w", err)
	}
	resp, err := restClient.Do(req)
	if err != nil {
		return fmt.Errorf("sending delete request: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		return nil
	case http.StatusNotFound:
		return fmt.Errorf("session %s not found", sessionID)
	default:
		return fmt.Errorf("server returned %s", resp.Status)
	}
}

// getJSON performs one GET and decodes the 200 response body into out.
func getJSON(requestURL string, out any) error {
	resp, err := restClient.Get(requestURL)
	if err != nil {
		return fmt.Errorf("connecting to server: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("server returned %s", resp.Status)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("parsing server response: %w", err)
	}
	return nil
}
