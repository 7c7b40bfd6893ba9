// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package validation provides input validation utilities for security-critical operations.
//
// This package contains validators for user-provided inputs that end up in
// route lookups, log attributes, or client-bound frames. Using these
// validators prevents injection attacks (log injection via control bytes,
// path traversal) before a value reaches the router or the wire.
package validation

import (
	"fmt"
	"regexp"
	"strings"
)

// segmentPattern matches one path segment of a navigation location.
// Allows: letters, digits, and the URL path characters ._~!$&'()*+,;=:@-
// Percent-encoding, query strings, and fragments are deliberately excluded;
// locations are matched literally against the route table.
var segmentPattern = regexp.MustCompile(`^[A-Za-z0-9._~!$&'()*+,;=:@-]+$`)

// maxLocationLength caps a location independent of any wire-level message
// limit, so in-process callers get the same bound as websocket clients.
const maxLocationLength = 2048

// ValidateLocation validates a navigation location to prevent path traversal
// and log injection.
//
// Callers are expected to normalize first (leading slash enforced, trailing
// slash dropped), so a valid location:
//
//   - starts with "/" and is at most 2048 bytes
//   - has no empty segment ("//"), and no "." or ".." segment
//   - uses only unencoded URL path characters in each segment
//
// Returns an error describing the first violation.
//
// Example:
//
//	if err := validation.ValidateLocation(location); err != nil {
//	    return err
//	}
//	// Safe to look up and to log
func ValidateLocation(location string) error {
	if location == "" {
		return fmt.Errorf("location cannot be empty")
	}
	if len(location) > maxLocationLength {
		return fmt.Errorf("location exceeds %d bytes", maxLocationLength)
	}
	if !strings.HasPrefix(location, "/") {
		return fmt.Errorf("location must start with a slash: %q", location)
	}
	if location == "/" {
		return nil
	}

	for _, seg := range strings.Split(location[1:], "/") {
		if seg == "" {
			return fmt.Errorf("location contains an empty segment: %q", location)
		}
		if seg == "." || seg == ".." {
			return fmt.Errorf("location contains a relative segment: %q", location)
		}
		if !segmentPattern.MatchString(seg) {
			return fmt.Errorf("invalid location segment %q (letters, digits, and ._~!$&'()*+,;=:@- only)", seg)
		}
	}
	return nil
}
