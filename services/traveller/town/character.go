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

// Character is a traveller that can occupy a town.
//
// Characters are identified by name alone. Two characters with the same
// name are indistinguishable to the network.
type Character struct {
	name string
}

// NewCharacter creates a character with the given name.
func NewCharacter(name string) *Character {
	return &Character{name: name}
}

// Name returns the character's name.
func (c *Character) Name() string {
	return c.name
}

// IsNamed reports whether the character has the given name.
func (c *Character) IsNamed(name string) bool {
	return c.name == name
}
