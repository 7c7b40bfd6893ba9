// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package routes

import (
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/AleutianAI/wheelhouse/pkg/router"
	"github.com/AleutianAI/wheelhouse/services/uiserver/handlers"
	"github.com/AleutianAI/wheelhouse/services/uiserver/observability"
	"github.com/AleutianAI/wheelhouse/services/uiserver/session"
)

// SetupRoutes wires the uiserver endpoints onto the gin engine.
func SetupRoutes(engine *gin.Engine, log *slog.Logger, mgr *session.Manager,
	table *router.Table, metrics *observability.Metrics, reg *prometheus.Registry) {

	engine.GET("/health", handlers.HealthCheck)
	engine.GET("/metrics", gin.WrapH(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))

	// API version 1 group
	v1 := engine.Group("/v1")
	{
		v1.GET("/ui/ws", handlers.HandleUISync(log, mgr, metrics))
		v1.GET("/routes", handlers.ListRoutes(table))
		// Session administration routes
		sessions := v1.Group("/sessions")
		{
			sessions.GET("", handlers.ListSessions(log, mgr))
			sessions.GET("/:sessionId", handlers.GetSession(log, mgr))
			sessions.DELETE("/:sessionId", handlers.DeleteSession(log, mgr))
		}
	}
}
