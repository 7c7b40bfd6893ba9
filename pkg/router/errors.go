// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package router

import "errors"

// Sentinel errors for routing operations.
var (
	// ErrNilTarget indicates a navigation with no target instance.
	ErrNilTarget = errors.New("nil navigation target")

	// ErrRouteNotFound indicates a path with no registered route.
	ErrRouteNotFound = errors.New("no route registered for path")

	// ErrDuplicateRoute indicates a second registration for the same path.
	ErrDuplicateRoute = errors.New("route already registered")

	// ErrDuplicateLayout indicates a second layout registration under the
	// same name.
	ErrDuplicateLayout = errors.New("layout already registered")

	// ErrUnknownLayout indicates a route referencing an unregistered layout
	// name.
	ErrUnknownLayout = errors.New("layout not registered")
)
