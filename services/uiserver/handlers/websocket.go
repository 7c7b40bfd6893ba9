// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/AleutianAI/wheelhouse/pkg/router"
	"github.com/AleutianAI/wheelhouse/pkg/statetree"
	"github.com/AleutianAI/wheelhouse/services/uiserver/datatypes"
	"github.com/AleutianAI/wheelhouse/services/uiserver/observability"
	"github.com/AleutianAI/wheelhouse/services/uiserver/session"
	"github.com/AleutianAI/wheelhouse/services/uiserver/transport"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
	ReadBufferSize:  4 * 1024,
	WriteBufferSize: 32 * 1024,
}

// HandleUISync is the websocket endpoint that drives one UI session.
//
// # Description
//
// On connect the handler resolves a session: a "session" query parameter
// naming a live session resumes it (the reconnect path), anything else
// creates a fresh one. The client then receives a session_created
// envelope followed by a full sync frame, after which the handler loops
// on inbound messages:
//
//   - heartbeat: bumps session liveness, no frame.
//   - navigate: runs the navigator under the session lock, then pushes
//     the resulting incremental frame.
//   - resync: rewinds change tracking and pushes a full frame.
//
// Change collection happens inside Session.Access; the write to the
// socket happens outside it, so a slow client never holds the tree lock.
//
// A read error ends the loop but keeps the session: the client may
// reconnect with its session id until the reaper collects it.
func HandleUISync(log *slog.Logger, mgr *session.Manager,
	metrics *observability.Metrics) gin.HandlerFunc {

	return func(c *gin.Context) {
		ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			log.Error("failed to upgrade the websocket", "error", err)
			return
		}
		defer ws.Close()

		pusher := transport.NewPusher(ws, transport.WithLogger(log))

		// Resume when the client presents a live session id, otherwise
		// start fresh.
		var sess *session.Session
		resumed := false
		if id := c.Query("session"); id != "" {
			if existing, ok := mgr.Get(id); ok {
				sess = existing
				resumed = true
			}
		}
		if sess == nil {
			sess, err = mgr.Create()
			if err != nil {
				log.Error("failed to create ui session", "error", err)
				_ = pusher.PushError("session setup failed")
				return
			}
			metrics.SessionsTotal.Inc()
			metrics.SessionsActive.Inc()
		}
		log.Info("ui client connected", "session_id", sess.ID(), "resumed", resumed)

		ws.SetReadLimit(datatypes.MaxInboundMessageBytes)

		// The opening frame is always a full snapshot. A fresh tree's
		// pending changes already rebuild it from nothing; a resumed
		// session needs an explicit rewind first because its previous
		// connection already drained them.
		var sets []statetree.ChangeSet
		var location string
		_ = sess.Access(func(ui *session.UI) error {
			if resumed {
				ui.Tree.PrepareResync()
			}
			sets = ui.Tree.CollectChanges()
			location = ui.Nav.ActiveLocation()
			return nil
		})
		if err := pusher.PushSessionCreated(sess.ID(), location); err != nil {
			return
		}
		if err := pushFrame(pusher, metrics, location, sets, true); err != nil {
			return
		}

		for {
			var req datatypes.ClientMessage
			if err := ws.ReadJSON(&req); err != nil {
				log.Info("ui client disconnected", "session_id", sess.ID(), "error", err.Error())
				metrics.ClientDisconnectsTotal.Inc()
				break
			}

			if !sess.Allow() {
				metrics.InboundRejectedTotal.WithLabelValues(observability.RejectRateLimited).Inc()
				if err := pusher.PushError("rate limit exceeded"); err != nil {
					return
				}
				continue
			}
			if err := req.Validate(); err != nil {
				metrics.InboundRejectedTotal.WithLabelValues(observability.RejectInvalid).Inc()
				if err := pusher.PushError("invalid message: " + err.Error()); err != nil {
					return
				}
				continue
			}

			switch req.Action {
			case datatypes.ActionHeartbeat:
				sess.Heartbeat(time.Now())

			case datatypes.ActionNavigate:
				err := sess.Access(func(ui *session.UI) error {
					if err := ui.Nav.NavigateTo(req.Location); err != nil {
						return err
					}
					sets = ui.Tree.CollectChanges()
					location = ui.Nav.ActiveLocation()
					return nil
				})
				switch {
				case errors.Is(err, router.ErrRouteNotFound):
					metrics.NavigationsTotal.WithLabelValues(observability.NavNotFound).Inc()
					if err := pusher.PushError("no route for " + req.Location); err != nil {
						return
					}
					continue
				case err != nil:
					log.Error("navigation failed",
						"session_id", sess.ID(), "location", req.Location, "error", err)
					metrics.NavigationsTotal.WithLabelValues(observability.NavError).Inc()
					if err := pusher.PushError("navigation failed"); err != nil {
						return
					}
					continue
				}
				metrics.NavigationsTotal.WithLabelValues(observability.NavOK).Inc()
				if err := pushFrame(pusher, metrics, location, sets, false); err != nil {
					return
				}

			case datatypes.ActionResync:
				metrics.ResyncsTotal.Inc()
				_ = sess.Access(func(ui *session.UI) error {
					ui.Tree.PrepareResync()
					sets = ui.Tree.CollectChanges()
					location = ui.Nav.ActiveLocation()
					return nil
				})
				if err := pushFrame(pusher, metrics, location, sets, true); err != nil {
					return
				}
			}
		}
	}
}

// pushFrame writes one sync frame and records its metrics. Empty
// incremental frames are dropped by the pusher and not counted.
func pushFrame(p *transport.Pusher, metrics *observability.Metrics,
	location string, sets []statetree.ChangeSet, full bool) error {

	start := time.Now()
	id, err := p.PushFrame(location, sets, full)
	if err != nil {
		return err
	}
	if id == 0 {
		return nil
	}
	kind := observability.FrameIncremental
	if full {
		kind = observability.FrameFull
	}
	metrics.FramesTotal.WithLabelValues(kind).Inc()
	metrics.ChangesPerFrame.Observe(float64(transport.CountChanges(sets)))
	metrics.PushDurationSeconds.Observe(time.Since(start).Seconds())
	return nil
}
