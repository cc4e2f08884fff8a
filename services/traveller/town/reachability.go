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

// Passage is the outcome of a collision-aware search.
type Passage struct {
	// Character is the name of the travelling character.
	Character string `json:"character"`

	// From is the town the character currently occupies.
	From string `json:"from"`

	// To is the destination town.
	To string `json:"to"`

	// Safe is true if To can be reached without passing through an
	// occupied town.
	Safe bool `json:"safe"`

	// Towns is the route found, From and To included. It is the first
	// route the search discovered, not necessarily the shortest.
	// Empty when Safe is false.
	Towns []string `json:"towns,omitempty"`
}

// ReachableWithoutCollision reports whether a character can reach a town
// without passing through a town occupied by someone else.
//
// Description:
//
//	The destination's own occupancy never blocks: an occupied town can be
//	the end of a journey, it just cannot be passed through. A character
//	already at the destination can always reach it.
//
// Inputs:
//
//	characterName - Name of the travelling character.
//	townName - Name of the destination town.
//
// Outputs:
//
//	bool - True if the destination is reachable.
//	error - Wraps ErrNotFound if the character occupies no town or the
//	        destination is not in the network.
//
// Example:
//
//	ok, err := n.ReachableWithoutCollision("Hero", "C")
func (n *Network) ReachableWithoutCollision(characterName, townName string) (bool, error) {
	p, err := n.PathWithoutCollision(characterName, townName)
	if err != nil {
		return false, err
	}
	return p.Safe, nil
}

// searchFrame is a stack frame for the iterative depth-first search.
type searchFrame struct {
	// town is the name of the town to expand.
	town string

	// next is the index of the next neighbour to examine.
	next int
}

// PathWithoutCollision searches for a collision-free route and returns it.
//
// Description:
//
//	Iterative depth-first search from the character's town over the
//	symmetric road adjacency. A visited set shared across the whole
//	search guarantees termination on cyclic networks. For every unvisited
//	neighbour of the town being expanded:
//	  - if it is the destination the search succeeds;
//	  - otherwise it is marked visited, and expanded only if unoccupied.
//	The starting town is not pre-marked; if it is met again as a
//	neighbour it is blocked by the character itself.
//
// Inputs:
//
//	characterName - Name of the travelling character.
//	townName - Name of the destination town.
//
// Outputs:
//
//	*Passage - The search outcome. Never nil when error is nil.
//	error - Wraps ErrNotFound if the character occupies no town or the
//	        destination is not in the network.
//
// Limitations:
//
//	Each town is expanded at most once, so the stack never grows beyond
//	the number of towns.
func (n *Network) PathWithoutCollision(characterName, townName string) (*Passage, error) {
	start, err := n.CharacterTown(characterName)
	if err != nil {
		return nil, err
	}
	if _, err := n.Town(townName); err != nil {
		return nil, err
	}

	passage := &Passage{
		Character: characterName,
		From:      start.Name(),
		To:        townName,
	}

	if start.Name() == townName {
		passage.Safe = true
		passage.Towns = []string{townName}
		return passage, nil
	}

	visited := make(map[string]bool)
	stack := []searchFrame{{town: start.Name()}}

	for len(stack) > 0 {
		frame := &stack[len(stack)-1]
		adjacent := n.neighbours[frame.town]

		if frame.next >= len(adjacent) {
			stack = stack[:len(stack)-1]
			continue
		}

		next := adjacent[frame.next]
		frame.next++

		if visited[next] {
			continue
		}

		if next == townName {
			passage.Safe = true
			passage.Towns = routeOf(stack, townName)
			return passage, nil
		}

		visited[next] = true

		// Lookups cannot fail: every road endpoint was validated in New.
		if t := n.townsByName[next]; t != nil && t.HasOccupant() {
			continue
		}

		stack = append(stack, searchFrame{town: next})
	}

	return passage, nil
}

// routeOf returns the towns on the stack followed by the destination.
func routeOf(stack []searchFrame, destination string) []string {
	route := make([]string, 0, len(stack)+1)
	for _, f := range stack {
		route = append(route, f.town)
	}
	return append(route, destination)
}
