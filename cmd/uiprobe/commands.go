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
	"time"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/wheelhouse/pkg/ux"
)

// --- Global Command Variables ---
var (
	serverFlag     string
	sessionFlag    string
	outputFlag     string // rich, plain, or machine; empty autodetects
	heartbeatEvery time.Duration

	// out is the process-wide CLI writer, built in PersistentPreRun.
	out *ux.Output

	rootCmd = &cobra.Command{
		Use:   "uiprobe",
		Short: "Inspect and drive a wheelhouse uiserver",
		Long: `uiprobe connects to a uiserver the way a browser client does:
				it opens the sync socket, replays change frames into a local
				mirror of the server-owned UI tree, and prints or watches the
				result.`,
	}

	snapshotCmd = &cobra.Command{
		Use:   "snapshot",
		Short: "Connect, print the full UI tree, and exit",
		Run:   runSnapshot, // Defined in cmd_sync.go
	}
	navigateCmd = &cobra.Command{
		Use:   "navigate [path]",
		Short: "Navigate the session to a route and print the resulting tree",
		Args:  cobra.ExactArgs(1),
		Run:   runNavigate, // Defined in cmd_sync.go
	}
	watchCmd = &cobra.Command{
		Use:   "watch",
		Short: "Follow the UI tree live as the server pushes frames",
		Run:   runWatch, // Defined in watch.go
	}

	routesCmd = &cobra.Command{
		Use:   "routes",
		Short: "List the routes the server can navigate to",
		Run:   runRoutes, // Defined in cmd_admin.go
	}

	// --- Sessions ---
	sessionsCmd = &cobra.Command{
		Use:   "sessions",
		Short: "Manage live uiserver sessions",
	}
	listSessionsCmd = &cobra.Command{
		Use:   "list",
		Short: "List all live sessions",
		Run:   runListSessions, // Defined in cmd_admin.go
	}
	deleteSessionCmd = &cobra.Command{
		Use:   "delete [session_id]",
		Short: "Force-expire a specific session",
		Args:  cobra.ExactArgs(1),
		Run:   runDeleteSession, // Defined in cmd_admin.go
	}
)

// init runs when the Go program starts
func init() {
	rootCmd.PersistentFlags().StringVar(&serverFlag, "server", "",
		"uiserver base URL (default "+DefaultServerURL+")")
	rootCmd.PersistentFlags().StringVar(&sessionFlag, "session", "",
		"Resume an existing session id instead of starting fresh")
	rootCmd.PersistentFlags().StringVar(&outputFlag, "output", "",
		"Output style: rich, plain, or machine (default: autodetect)")

	rootCmd.AddCommand(snapshotCmd)
	rootCmd.AddCommand(navigateCmd)

	rootCmd.AddCommand(watchCmd)
	watchCmd.Flags().DurationVar(&heartbeatEvery, "heartbeat", 30*time.Second,
		"Interval between keep-alive heartbeats")

	rootCmd.AddCommand(routesCmd)

	// session commands
	rootCmd.AddCommand(sessionsCmd)
	sessionsCmd.AddCommand(listSessionsCmd)
	sessionsCmd.AddCommand(deleteSessionCmd)
}
