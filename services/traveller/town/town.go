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

// Town is a named location holding zero or one occupant.
type Town struct {
	name     string
	occupant *Character
}

// NewTown creates an unoccupied town with the given name.
func NewTown(name string) *Town {
	return &Town{name: name}
}

// Name returns the town's name.
func (t *Town) Name() string {
	return t.name
}

// HasOccupant reports whether a character is in this town.
func (t *Town) HasOccupant() bool {
	return t.occupant != nil
}

// HasOccupantNamed reports whether this town's occupant has the given name.
func (t *Town) HasOccupantNamed(name string) bool {
	return t.occupant != nil && t.occupant.IsNamed(name)
}

// Occupant returns the character in this town, or nil if it is empty.
func (t *Town) Occupant() *Character {
	return t.occupant
}

// SetOccupant places a character in this town.
//
// Description:
//
//	Any previous occupant is replaced without error. Placing a character
//	where another already stands is not a conflict.
//
// Inputs:
//
//	c - The character to place. Must not be nil.
//
// Outputs:
//
//	error - Wraps ErrInvalidArgument if c is nil.
func (t *Town) SetOccupant(c *Character) error {
	if c == nil {
		return fmt.Errorf("town %q: nil character: %w", t.name, ErrInvalidArgument)
	}
	t.occupant = c
	return nil
}
