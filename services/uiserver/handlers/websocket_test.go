// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// Tests for the websocket sync handler

package handlers

import (
	"io"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/wheelhouse/services/uiserver/datatypes"
	"github.com/AleutianAI/wheelhouse/services/uiserver/demoapp"
	"github.com/AleutianAI/wheelhouse/services/uiserver/observability"
	"github.com/AleutianAI/wheelhouse/services/uiserver/session"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// syncServer is one test uiserver: http server, manager, and metrics.
type syncServer struct {
	srv     *httptest.Server
	mgr     *session.Manager
	metrics *observability.Metrics
}

func newSyncServer(t *testing.T, opts ...session.ManagerOption) *syncServer {
	t.Helper()
	log := discardLogger()
	table, err := demoapp.BuildTable()
	require.NoError(t, err)
	mgr := session.NewManager(demoapp.Factory(table),
		append([]session.ManagerOption{session.WithLogger(log)}, opts...)...)
	metrics := observability.NewMetrics(prometheus.NewRegistry())

	engine := gin.New()
	engine.GET("/v1/ui/ws", HandleUISync(log, mgr, metrics))
	srv := httptest.NewServer(engine)
	t.Cleanup(srv.Close)
	return &syncServer{srv: srv, mgr: mgr, metrics: metrics}
}

// dial connects to the sync endpoint, optionally with a query string
// like "?session=<id>".
func (s *syncServer) dial(t *testing.T, query string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(s.srv.URL, "http") + "/v1/ui/ws" + query
	ws, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	require.NoError(t, ws.SetReadDeadline(time.Now().Add(3*time.Second)))
	t.Cleanup(func() { ws.Close() })
	return ws
}

func readMessage(t *testing.T, ws *websocket.Conn) datatypes.ServerMessage {
	t.Helper()
	var msg datatypes.ServerMessage
	require.NoError(t, ws.ReadJSON(&msg))
	return msg
}

// countOps tallies wire change types across a frame.
func countOps(msg datatypes.ServerMessage) map[string]int {
	ops := make(map[string]int)
	for _, nc := range msg.Changes {
		for _, c := range nc.Changes {
			ops[c.Type]++
		}
	}
	return ops
}

// =============================================================================
// Connect
// =============================================================================

// TestHandleUISync_ConnectSendsSessionAndFullFrame checks the opening
// handshake: a session_created envelope followed by a full frame that
// rebuilds the default view from nothing.
func TestHandleUISync_ConnectSendsSessionAndFullFrame(t *testing.T) {
	s := newSyncServer(t)
	ws := s.dial(t, "")

	created := readMessage(t, ws)
	assert.Equal(t, datatypes.ActionSessionCreated, created.Action)
	assert.NotEmpty(t, created.SessionID)
	assert.Equal(t, "/", created.Location)

	frame := readMessage(t, ws)
	assert.Equal(t, datatypes.ActionSync, frame.Action)
	assert.True(t, frame.Full)
	assert.Equal(t, uint64(1), frame.SyncID)
	assert.Equal(t, "/", frame.Location)
	require.NotEmpty(t, frame.Changes)

	// Every node in a from-scratch frame announces itself before its
	// state.
	for _, nc := range frame.Changes {
		require.NotEmpty(t, nc.Changes)
		assert.Equal(t, "attach", nc.Changes[0].Type, "node %d", nc.Node)
	}

	assert.Equal(t, 1, s.mgr.Count())
	assert.Equal(t, float64(1), testutil.ToFloat64(s.metrics.SessionsTotal))
	assert.Equal(t, float64(1), testutil.ToFloat64(s.metrics.FramesTotal.WithLabelValues(observability.FrameFull)))
}

// TestHandleUISync_UnknownSessionIDStartsFresh checks that a stale or
// bogus session id falls back to creating a new session.
func TestHandleUISync_UnknownSessionIDStartsFresh(t *testing.T) {
	s := newSyncServer(t)
	ws := s.dial(t, "?session=gone")

	created := readMessage(t, ws)
	assert.Equal(t, datatypes.ActionSessionCreated, created.Action)
	assert.NotEqual(t, "gone", created.SessionID)
	assert.Equal(t, 1, s.mgr.Count())
}

// =============================================================================
// Navigate
// =============================================================================

// TestHandleUISync_NavigatePushesIncrementalFrame drives a route change
// and checks the delta frame: old view detaches, new view attaches,
// chrome stays quiet.
func TestHandleUISync_NavigatePushesIncrementalFrame(t *testing.T) {
	s := newSyncServer(t)
	ws := s.dial(t, "")
	readMessage(t, ws) // session_created
	readMessage(t, ws) // initial full frame

	require.NoError(t, ws.WriteJSON(datatypes.ClientMessage{
		Action:   datatypes.ActionNavigate,
		Location: "/about",
	}))

	frame := readMessage(t, ws)
	assert.Equal(t, datatypes.ActionSync, frame.Action)
	assert.False(t, frame.Full)
	assert.Equal(t, uint64(2), frame.SyncID)
	assert.Equal(t, "/about", frame.Location)

	ops := countOps(frame)
	assert.Greater(t, ops["detach"], 0, "old view subtree detaches")
	assert.Greater(t, ops["attach"], 0, "new view subtree attaches")

	assert.Equal(t, float64(1), testutil.ToFloat64(s.metrics.NavigationsTotal.WithLabelValues(observability.NavOK)))
	assert.Equal(t, float64(1), testutil.ToFloat64(s.metrics.FramesTotal.WithLabelValues(observability.FrameIncremental)))
}

// TestHandleUISync_UnknownRouteSendsError checks that a navigation to
// an unregistered path produces an error envelope and leaves the
// connection usable.
func TestHandleUISync_UnknownRouteSendsError(t *testing.T) {
	s := newSyncServer(t)
	ws := s.dial(t, "")
	readMessage(t, ws)
	readMessage(t, ws)

	require.NoError(t, ws.WriteJSON(datatypes.ClientMessage{
		Action:   datatypes.ActionNavigate,
		Location: "/nope",
	}))

	errMsg := readMessage(t, ws)
	assert.Equal(t, datatypes.ActionError, errMsg.Action)
	assert.Contains(t, errMsg.Error, "/nope")

	// The session still navigates afterwards.
	require.NoError(t, ws.WriteJSON(datatypes.ClientMessage{
		Action:   datatypes.ActionNavigate,
		Location: "/about",
	}))
	frame := readMessage(t, ws)
	assert.Equal(t, datatypes.ActionSync, frame.Action)

	assert.Equal(t, float64(1), testutil.ToFloat64(s.metrics.NavigationsTotal.WithLabelValues(observability.NavNotFound)))
}

// =============================================================================
// Heartbeat
// =============================================================================

// TestHandleUISync_HeartbeatBumpsLiveness checks that heartbeats move
// the session's liveness timestamp without producing a frame.
func TestHandleUISync_HeartbeatBumpsLiveness(t *testing.T) {
	s := newSyncServer(t)
	ws := s.dial(t, "")
	created := readMessage(t, ws)
	readMessage(t, ws)

	sess, ok := s.mgr.Get(created.SessionID)
	require.True(t, ok)
	before := sess.LastHeartbeat()

	time.Sleep(20 * time.Millisecond)
	require.NoError(t, ws.WriteJSON(datatypes.ClientMessage{Action: datatypes.ActionHeartbeat}))

	// Heartbeats are silent; navigate as an ordering barrier so the
	// heartbeat is known to be processed.
	require.NoError(t, ws.WriteJSON(datatypes.ClientMessage{
		Action:   datatypes.ActionNavigate,
		Location: "/about",
	}))
	frame := readMessage(t, ws)
	assert.Equal(t, datatypes.ActionSync, frame.Action)
	assert.Equal(t, uint64(2), frame.SyncID, "heartbeat consumed no sync id")

	assert.True(t, sess.LastHeartbeat().After(before))
}

// =============================================================================
// Resync
// =============================================================================

// TestHandleUISync_ResyncSendsFullFrame checks that a resync request
// rebuilds the complete state regardless of what was already synced.
func TestHandleUISync_ResyncSendsFullFrame(t *testing.T) {
	s := newSyncServer(t)
	ws := s.dial(t, "")
	readMessage(t, ws)
	readMessage(t, ws)

	require.NoError(t, ws.WriteJSON(datatypes.ClientMessage{
		Action:   datatypes.ActionNavigate,
		Location: "/about",
	}))
	readMessage(t, ws)

	require.NoError(t, ws.WriteJSON(datatypes.ClientMessage{Action: datatypes.ActionResync}))

	frame := readMessage(t, ws)
	assert.Equal(t, datatypes.ActionSync, frame.Action)
	assert.True(t, frame.Full)
	assert.Equal(t, uint64(3), frame.SyncID)
	assert.Equal(t, "/about", frame.Location)
	require.NotEmpty(t, frame.Changes)
	for _, nc := range frame.Changes {
		assert.Equal(t, "attach", nc.Changes[0].Type, "node %d", nc.Node)
	}

	assert.Equal(t, float64(1), testutil.ToFloat64(s.metrics.ResyncsTotal))
}

// =============================================================================
// Rejection paths
// =============================================================================

// TestHandleUISync_InvalidMessageRejected checks the validation error
// envelope and that the connection survives it.
func TestHandleUISync_InvalidMessageRejected(t *testing.T) {
	s := newSyncServer(t)
	ws := s.dial(t, "")
	readMessage(t, ws)
	readMessage(t, ws)

	require.NoError(t, ws.WriteJSON(map[string]string{"action": "explode"}))

	errMsg := readMessage(t, ws)
	assert.Equal(t, datatypes.ActionError, errMsg.Action)
	assert.Contains(t, errMsg.Error, "invalid message")

	require.NoError(t, ws.WriteJSON(datatypes.ClientMessage{
		Action:   datatypes.ActionNavigate,
		Location: "/about",
	}))
	frame := readMessage(t, ws)
	assert.Equal(t, datatypes.ActionSync, frame.Action)

	assert.Equal(t, float64(1), testutil.ToFloat64(s.metrics.InboundRejectedTotal.WithLabelValues(observability.RejectInvalid)))
}

// TestHandleUISync_RateLimitedMessagesRejected floods the session past
// its burst and expects rejection envelopes.
func TestHandleUISync_RateLimitedMessagesRejected(t *testing.T) {
	s := newSyncServer(t, session.WithMessageRate(1, 1))
	ws := s.dial(t, "")
	readMessage(t, ws)
	readMessage(t, ws)

	// The single burst token admits the first message; the next two
	// are dropped.
	for i := 0; i < 3; i++ {
		require.NoError(t, ws.WriteJSON(datatypes.ClientMessage{Action: datatypes.ActionHeartbeat}))
	}

	for i := 0; i < 2; i++ {
		errMsg := readMessage(t, ws)
		assert.Equal(t, datatypes.ActionError, errMsg.Action)
		assert.Contains(t, errMsg.Error, "rate limit")
	}

	assert.Equal(t, float64(2), testutil.ToFloat64(s.metrics.InboundRejectedTotal.WithLabelValues(observability.RejectRateLimited)))
}

// =============================================================================
// Reconnect
// =============================================================================

// TestHandleUISync_ReconnectResumesSession drops a connection and
// redials with the session id: same session, state replayed in full.
func TestHandleUISync_ReconnectResumesSession(t *testing.T) {
	s := newSyncServer(t)
	ws := s.dial(t, "")
	created := readMessage(t, ws)
	readMessage(t, ws)

	require.NoError(t, ws.WriteJSON(datatypes.ClientMessage{
		Action:   datatypes.ActionNavigate,
		Location: "/about",
	}))
	readMessage(t, ws)
	ws.Close()

	ws2 := s.dial(t, "?session="+created.SessionID)

	created2 := readMessage(t, ws2)
	assert.Equal(t, created.SessionID, created2.SessionID, "resumed, not recreated")
	assert.Equal(t, "/about", created2.Location, "navigation state survived the drop")

	frame := readMessage(t, ws2)
	assert.True(t, frame.Full)
	assert.Equal(t, uint64(1), frame.SyncID, "sync ids are per connection")
	assert.Equal(t, "/about", frame.Location)
	require.NotEmpty(t, frame.Changes)
	for _, nc := range frame.Changes {
		assert.Equal(t, "attach", nc.Changes[0].Type, "node %d", nc.Node)
	}

	assert.Equal(t, 1, s.mgr.Count())
	assert.Equal(t, float64(1), testutil.ToFloat64(s.metrics.SessionsTotal))
}
