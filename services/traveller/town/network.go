// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package town

import "fmt"

// Road is an undirected connection between two towns, named by their names.
//
// A road authored as {From: "A", To: "B"} permits travel in both directions.
type Road struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// String returns the road as "from-to".
func (r Road) String() string {
	return r.From + "-" + r.To
}

// Network is a fixed set of towns and roads with mutable occupancy.
//
// Thread Safety:
//
//	NOT safe for concurrent use. See the package documentation.
type Network struct {
	// towns holds the towns in insertion order.
	towns []*Town

	// roads holds the roads in insertion order.
	roads []Road

	// townsByName maps a name to the FIRST town with that name.
	townsByName map[string]*Town

	// neighbours maps a town name to the other endpoint of every road that
	// touches it, in road order. Roads are symmetric.
	neighbours map[string][]string
}

// New creates a town network from the given towns and roads.
//
// Description:
//
//	Validates that every road connects two towns of the network, then
//	builds the name and adjacency indexes. Empty towns or roads are
//	allowed; nil slices are not. Duplicate town names are accepted and
//	resolved to the first town with that name.
//
// Inputs:
//
//	towns - Towns of the network. Must not be nil or contain nil entries.
//	roads - Roads between towns. Must not be nil.
//
// Outputs:
//
//	*Network - The network. Its topology never changes.
//	error - Wraps ErrInvalidArgument on any validation failure.
//
// Example:
//
//	n, err := town.New(
//	    []*town.Town{town.NewTown("A"), town.NewTown("B")},
//	    []town.Road{{From: "A", To: "B"}},
//	)
func New(towns []*Town, roads []Road) (*Network, error) {
	if towns == nil {
		return nil, fmt.Errorf("nil towns: %w", ErrInvalidArgument)
	}
	if roads == nil {
		return nil, fmt.Errorf("nil roads: %w", ErrInvalidArgument)
	}

	byName := make(map[string]*Town, len(towns))
	for i, t := range towns {
		if t == nil {
			return nil, fmt.Errorf("town[%d] is nil: %w", i, ErrInvalidArgument)
		}
		if _, exists := byName[t.Name()]; !exists {
			byName[t.Name()] = t
		}
	}

	neighbours := make(map[string][]string, len(byName))
	for i, r := range roads {
		if _, ok := byName[r.From]; !ok {
			return nil, fmt.Errorf("road[%d] %s: unknown town %q: %w", i, r, r.From, ErrInvalidArgument)
		}
		if _, ok := byName[r.To]; !ok {
			return nil, fmt.Errorf("road[%d] %s: unknown town %q: %w", i, r, r.To, ErrInvalidArgument)
		}
		neighbours[r.From] = append(neighbours[r.From], r.To)
		if r.From != r.To {
			neighbours[r.To] = append(neighbours[r.To], r.From)
		}
	}

	return &Network{
		towns:       append([]*Town(nil), towns...),
		roads:       append([]Road(nil), roads...),
		townsByName: byName,
		neighbours:  neighbours,
	}, nil
}

// TownCount returns the number of towns, duplicates included.
func (n *Network) TownCount() int {
	return len(n.towns)
}

// RoadCount returns the number of roads.
func (n *Network) RoadCount() int {
	return len(n.roads)
}

// Towns returns the towns in insertion order.
//
// The slice is a copy; the towns are shared.
func (n *Network) Towns() []*Town {
	return append([]*Town(nil), n.towns...)
}

// Roads returns a copy of the roads in insertion order.
func (n *Network) Roads() []Road {
	return append([]Road(nil), n.roads...)
}

// Town returns the first town with the given name.
func (n *Network) Town(name string) (*Town, error) {
	t, ok := n.townsByName[name]
	if !ok {
		return nil, fmt.Errorf("town %q: %w", name, ErrNotFound)
	}
	return t, nil
}

// Neighbours returns the names of the towns one road away from name.
//
// A town joined by several roads appears once per road. Returns nil for an
// unknown or isolated town.
func (n *Network) Neighbours(name string) []string {
	return append([]string(nil), n.neighbours[name]...)
}

// AddCharacter places a character in the named town.
//
// Description:
//
//	Looks up the first town with townName and sets its occupant. An
//	existing occupant is overwritten. The character is not removed from
//	any town it already occupies.
//
// Inputs:
//
//	c - The character to place. Must not be nil.
//	townName - Name of the destination town.
//
// Outputs:
//
//	error - Wraps ErrNotFound for an unknown town, ErrInvalidArgument for
//	        a nil character.
func (n *Network) AddCharacter(c *Character, townName string) error {
	t, err := n.Town(townName)
	if err != nil {
		return err
	}
	return t.SetOccupant(c)
}

// CharacterTown returns the first town occupied by a character with the
// given name.
func (n *Network) CharacterTown(characterName string) (*Town, error) {
	for _, t := range n.towns {
		if t.HasOccupantNamed(characterName) {
			return t, nil
		}
	}
	return nil, fmt.Errorf("character %q is in no town: %w", characterName, ErrNotFound)
}
