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
	"log"
	"strconv"

	"github.com/spf13/cobra"
)

// connectMirror dials the server, applies the initial full frame, and
// returns the client with a populated mirror.
func connectMirror() (*SyncClient, *Mirror) {
	client, err := DialSync(getServerBaseURL(), sessionFlag)
	if err != nil {
		log.Fatalf("Failed to connect: %v", err)
	}

	frame, err := client.ReadSync(defaultReadTimeout)
	if err != nil {
		client.Close()
		log.Fatalf("Failed to read the initial frame: %v", err)
	}

	mirror := NewMirror()
	if err := mirror.Apply(frame); err != nil {
		client.Close()
		log.Fatalf("Failed to apply the initial frame: %v", err)
	}
	return client, mirror
}

func runSnapshot(cmd *cobra.Command, args []string) {
	client, mirror := connectMirror()
	defer client.Close()

	out.KV("session", client.SessionID)
	out.KV("location", mirror.Location())
	out.KV("nodes", strconv.Itoa(mirror.NodeCount()))
	out.Printf("%s", mirror.Render())
}

func runNavigate(cmd *cobra.Command, args []string) {
	location := args[0]
	client, mirror := connectMirror()
	defer client.Close()

	if err := client.Navigate(location); err != nil {
		log.Fatalf("Failed to send navigation: %v", err)
	}
	frame, err := client.ReadSync(defaultReadTimeout)
	if err != nil {
		log.Fatalf("Navigation failed: %v", err)
	}
	if err := mirror.Apply(frame); err != nil {
		log.Fatalf("Failed to apply the navigation frame: %v", err)
	}

	out.Success("navigated to " + mirror.Location())
	out.KV("session", client.SessionID)
	out.KV("sync", strconv.FormatUint(mirror.SyncID(), 10))
	out.Printf("%s", mirror.Render())
}
