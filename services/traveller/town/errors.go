// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package town provides the town network model and its collision-aware
// reachability query.
//
// A Network is a fixed set of named towns joined by undirected roads. Each
// town holds at most one character. The central query asks whether a
// character can travel from its current town to a destination without
// passing through a town that another character occupies.
//
// # Ownership Model
//
// The network copies the town and road slices it is built from, so the
// topology cannot change after New returns. The *Town values themselves are
// shared with the caller; only their occupant changes over the lifetime of
// the network.
//
// # Duplicate Names
//
// Town names are assumed unique but this is not enforced. Every lookup by
// name returns the first matching town in the order the towns were given.
//
// # Thread Safety
//
// Network is NOT safe for concurrent use. Hosts that share a network between
// goroutines must serialise every call, queries included.
package town

import "errors"

// Sentinel errors for town network operations.
var (
	// ErrInvalidArgument is returned when a required input is absent, or
	// when a road names a town that is not part of the network.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrNotFound is returned when a name-based lookup matches nothing:
	// an unknown town, or a character that occupies no town.
	ErrNotFound = errors.New("not found")
)
