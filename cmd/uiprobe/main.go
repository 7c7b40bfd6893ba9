// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Command uiprobe inspects and drives a wheelhouse uiserver over its
// sync socket.
//
// uiprobe speaks the protocol the way a browser client does: it
// connects, replays change frames into a local mirror of the
// server-owned UI tree, and prints or watches the result.
//
// Usage:
//
//	uiprobe snapshot
//	uiprobe navigate /settings
//	uiprobe watch
//	uiprobe routes
//	uiprobe sessions list
//	uiprobe sessions delete <session_id>
//
// The server URL resolves from --server, then the UIPROBE_SERVER
// environment variable, then the optional uiprobe.yaml, then
// http://localhost:8080.
package main

import (
	"log"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/AleutianAI/wheelhouse/pkg/ux"
)

// DefaultServerURL is where a locally started uiserver listens.
const DefaultServerURL = "http://localhost:8080"

// Config mirrors the optional uiprobe.yaml. Flags and environment win
// over it.
type Config struct {
	Server string `yaml:"server"`
	Output string `yaml:"output"`
}

var config Config

func main() {
	// Execute the root command. Cobra handles parsing the arguments.
	if err := rootCmd.Execute(); err != nil {
		log.Fatalf("Error executing command: %v", err)
	}
}

func init() {
	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		loadConfigFile()
		out = buildOutput()
	}
}

// loadConfigFile reads uiprobe.yaml when present. A missing file is
// fine; the probe works with flags and defaults alone.
func loadConfigFile() {
	yamlFile, err := os.ReadFile("uiprobe.yaml")
	if err != nil {
		if !os.IsNotExist(err) {
			log.Fatalf("Error reading uiprobe.yaml: %v", err)
		}
		return
	}
	if err := yaml.Unmarshal(yamlFile, &config); err != nil {
		log.Fatalf("Error parsing uiprobe.yaml: %v", err)
	}
}

// getServerBaseURL resolves the uiserver base URL.
func getServerBaseURL() string {
	// 1. Priority: command line flag
	if serverFlag != "" {
		return serverFlag
	}
	// 2. Environment variable (used by tests and scripts)
	if env := os.Getenv("UIPROBE_SERVER"); env != "" {
		return env
	}
	// 3. Config file
	if config.Server != "" {
		return config.Server
	}
	// 4. Default: standard local port
	return DefaultServerURL
}

// buildOutput resolves the output mode from the flag, then the config
// file, then terminal detection.
func buildOutput() *ux.Output {
	choice := outputFlag
	if choice == "" {
		choice = config.Output
	}
	if choice == "" {
		return ux.NewOutput(ux.DetectMode())
	}
	mode, err := ux.ParseMode(choice)
	if err != nil {
		log.Fatalf("Invalid output mode: %v", err)
	}
	return ux.NewOutput(mode)
}
