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
	"time"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/wheelhouse/pkg/ux"
)

func runRoutes(cmd *cobra.Command, args []string) {
	routes, err := fetchRoutes(getServerBaseURL())
	if err != nil {
		log.Fatalf("Failed to list routes: %v", err)
	}
	if len(routes) == 0 {
		out.Info("no routes registered")
		return
	}

	out.Title("Routes")
	for _, route := range routes {
		out.Item(route)
	}
}

func runListSessions(cmd *cobra.Command, args []string) {
	sessions, err := fetchSessions(getServerBaseURL())
	if err != nil {
		log.Fatalf("Failed to list sessions: %v", err)
	}
	if len(sessions) == 0 {
		out.Info("no live sessions")
		return
	}

	out.Title("Live Sessions")
	for _, s := range sessions {
		idle := time.Since(s.LastHeartbeat).Round(time.Second)
		note := fmt.Sprintf("%s, %d nodes, idle %s", s.Location, s.Nodes, idle)
		out.Status(ux.IconSuccess, s.ID, note)
	}
}

func runDeleteSession(cmd *cobra.Command, args []string) {
	sessionID := args[0]
	if err := removeSession(getServerBaseURL(), sessionID); err != nil {
		log.Fatalf("Failed to delete session: %v", err)
	}
	out.Success("deleted session " + sessionID)
}
