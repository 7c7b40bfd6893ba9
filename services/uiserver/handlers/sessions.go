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
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/AleutianAI/wheelhouse/services/uiserver/session"
)

// ListSessions returns metadata for every live session.
func ListSessions(log *slog.Logger, mgr *session.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		infos := mgr.Snapshot()
		c.JSON(http.StatusOK, gin.H{
			"sessions": infos,
			"count":    len(infos),
		})
	}
}

// GetSession returns metadata for one session.
func GetSession(log *slog.Logger, mgr *session.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("sessionId")
		sess, ok := mgr.Get(id)
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
			return
		}
		c.JSON(http.StatusOK, sess.Snapshot())
	}
}

// DeleteSession force-expires one session. A client currently connected
// keeps its live socket, but cannot resume the session after it drops.
func DeleteSession(log *slog.Logger, mgr *session.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("sessionId")
		log.Info("received a request to delete a session", "sessionId", id)
		if !mgr.Remove(id) {
			c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "success", "deleted_session_id": id})
	}
}
