// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package command implements the traveller JSON command protocol.
//
// A client sends a stream of objects of the form
//
//	{"command": "roads", "params": [{"from": "A", "to": "B"}]}
//	{"command": "place", "params": {"character": "Hero", "town": "A"}}
//	{"command": "passage-safe?", "params": {"character": "Hero", "town": "B"}}
//
// The first command must be "roads" and it may only be sent once. Each
// command is answered with a Response.
package command

import (
	"encoding/json"
	"fmt"

	"github.com/go-playground/validator/v10"
)

// Command names.
const (
	NameRoads       = "roads"
	NamePlace       = "place"
	NamePassageSafe = "passage-safe?"
)

// validate is the validator instance for command params.
var validate = validator.New()

// Command is one protocol message.
type Command struct {
	// Command is the command name.
	Command string `json:"command" validate:"required"`

	// Params holds the command-specific parameters, decoded lazily.
	Params json.RawMessage `json:"params" validate:"required"`
}

// RoadParams is one element of the "roads" params array.
type RoadParams struct {
	From string `json:"from" validate:"required"`
	To   string `json:"to" validate:"required"`
}

// roadsParams wraps the "roads" array for validation.
type roadsParams struct {
	Roads []RoadParams `validate:"required,dive"`
}

// CharacterParams are the params of "place" and "passage-safe?".
type CharacterParams struct {
	Character string `json:"character" validate:"required"`
	Town      string `json:"town" validate:"required"`
}

// Roads builds a "roads" command. No roads gives an empty network.
func Roads(roads ...RoadParams) Command {
	if roads == nil {
		roads = []RoadParams{}
	}
	return mustCommand(NameRoads, roads)
}

// Place builds a "place" command.
func Place(character, town string) Command {
	return mustCommand(NamePlace, CharacterParams{Character: character, Town: town})
}

// PassageSafe builds a "passage-safe?" command.
func PassageSafe(character, town string) Command {
	return mustCommand(NamePassageSafe, CharacterParams{Character: character, Town: town})
}

// mustCommand marshals params that are known to be encodable.
func mustCommand(name string, params any) Command {
	raw, err := json.Marshal(params)
	if err != nil {
		panic(fmt.Sprintf("command %s: marshal params: %v", name, err))
	}
	return Command{Command: name, Params: raw}
}

// Parse decodes and validates a single command.
func Parse(data []byte) (Command, error) {
	var cmd Command
	if err := json.Unmarshal(data, &cmd); err != nil {
		return Command{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if err := cmd.Validate(); err != nil {
		return Command{}, err
	}
	return cmd, nil
}

// Validate checks that the command has a name and params.
func (c Command) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidCommand, err)
	}
	return nil
}

// DecodeRoads decodes and validates the params of a "roads" command.
func (c Command) DecodeRoads() ([]RoadParams, error) {
	var p roadsParams
	if err := json.Unmarshal(c.Params, &p.Roads); err != nil {
		return nil, fmt.Errorf("%w: %q params must be an array of roads: %v", ErrInvalidCommand, c.Command, err)
	}
	if err := validate.Struct(p); err != nil {
		return nil, fmt.Errorf("%w: %q params: %v", ErrInvalidCommand, c.Command, err)
	}
	return p.Roads, nil
}

// DecodeCharacter decodes and validates the params of "place" and
// "passage-safe?".
func (c Command) DecodeCharacter() (CharacterParams, error) {
	var p CharacterParams
	if err := json.Unmarshal(c.Params, &p); err != nil {
		return CharacterParams{}, fmt.Errorf("%w: %q params must be an object: %v", ErrInvalidCommand, c.Command, err)
	}
	if err := validate.Struct(p); err != nil {
		return CharacterParams{}, fmt.Errorf("%w: %q must have character and town params: %v", ErrInvalidCommand, c.Command, err)
	}
	return p, nil
}

// Response answers one command.
type Response struct {
	// Command is the name of the command answered.
	Command string `json:"command"`

	// OK is false when the command failed.
	OK bool `json:"ok"`

	// Character and Town echo the params of "place" and "passage-safe?".
	Character string `json:"character,omitempty"`
	Town      string `json:"town,omitempty"`

	// Safe answers "passage-safe?". Nil for other commands.
	Safe *bool `json:"safe,omitempty"`

	// Route is the collision-free route found by "passage-safe?".
	Route []string `json:"route,omitempty"`

	// Towns lists the towns created by "roads", in first-appearance order.
	Towns []string `json:"towns,omitempty"`

	// Roads is the number of distinct roads created by "roads".
	Roads int `json:"roads,omitempty"`

	// Error and Code describe a failure.
	Error string `json:"error,omitempty"`
	Code  string `json:"code,omitempty"`
}

// ErrorResponse builds the response for a failed command.
func ErrorResponse(name string, err error) *Response {
	return &Response{
		Command: name,
		OK:      false,
		Error:   err.Error(),
		Code:    Code(err),
	}
}
