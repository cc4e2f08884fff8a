// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package command

import (
	"fmt"

	"github.com/AleutianAI/traveller/services/traveller/town"
)

// Executor runs the commands of one stream against its town network.
//
// Thread Safety:
//
//	NOT safe for concurrent use. The network it owns is not either.
type Executor struct {
	network *town.Network
}

// NewExecutor creates an executor with no network yet.
func NewExecutor() *Executor {
	return &Executor{}
}

// Network returns the network built by "roads", or nil before it.
func (e *Executor) Network() *town.Network {
	return e.network
}

// Execute runs a single command.
//
// Description:
//
//	Protocol errors (unknown command, bad params, ordering of "roads")
//	are returned as errors and leave the executor unchanged. Domain
//	failures such as an unknown town are answered with a response whose
//	OK is false, and the stream can continue.
//
// Inputs:
//
//	cmd - The command to run.
//
// Outputs:
//
//	*Response - The answer. Nil when error is non-nil.
//	error - A protocol error; see IsProtocolError.
func (e *Executor) Execute(cmd Command) (*Response, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	switch cmd.Command {
	case NameRoads:
		return e.executeRoads(cmd)
	case NamePlace:
		return e.executePlace(cmd)
	case NamePassageSafe:
		return e.executePassageSafe(cmd)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownCommand, cmd.Command)
	}
}

// executeRoads builds the network from the road list.
//
// Towns are the road endpoints in first-appearance order. Duplicate roads,
// in the same direction, are dropped.
func (e *Executor) executeRoads(cmd Command) (*Response, error) {
	if e.network != nil {
		return nil, ErrNetworkExists
	}

	params, err := cmd.DecodeRoads()
	if err != nil {
		return nil, err
	}

	towns := make([]*town.Town, 0, len(params)*2)
	names := make([]string, 0, len(params)*2)
	seenTown := make(map[string]bool, len(params)*2)
	addTown := func(name string) {
		if seenTown[name] {
			return
		}
		seenTown[name] = true
		towns = append(towns, town.NewTown(name))
		names = append(names, name)
	}

	roads := make([]town.Road, 0, len(params))
	seenRoad := make(map[town.Road]bool, len(params))
	for _, p := range params {
		addTown(p.From)
		addTown(p.To)

		r := town.Road{From: p.From, To: p.To}
		if seenRoad[r] {
			continue
		}
		seenRoad[r] = true
		roads = append(roads, r)
	}

	network, err := town.New(towns, roads)
	if err != nil {
		return ErrorResponse(cmd.Command, err), nil
	}
	e.network = network

	return &Response{
		Command: cmd.Command,
		OK:      true,
		Towns:   names,
		Roads:   len(roads),
	}, nil
}

// executePlace puts a new character in a town.
func (e *Executor) executePlace(cmd Command) (*Response, error) {
	if e.network == nil {
		return nil, ErrNoNetwork
	}

	params, err := cmd.DecodeCharacter()
	if err != nil {
		return nil, err
	}

	resp := &Response{
		Command:   cmd.Command,
		Character: params.Character,
		Town:      params.Town,
	}
	if err := e.network.AddCharacter(town.NewCharacter(params.Character), params.Town); err != nil {
		resp.Error = err.Error()
		resp.Code = Code(err)
		return resp, nil
	}
	resp.OK = true
	return resp, nil
}

// executePassageSafe answers whether a character can reach a town safely.
func (e *Executor) executePassageSafe(cmd Command) (*Response, error) {
	if e.network == nil {
		return nil, ErrNoNetwork
	}

	params, err := cmd.DecodeCharacter()
	if err != nil {
		return nil, err
	}

	resp := &Response{
		Command:   cmd.Command,
		Character: params.Character,
		Town:      params.Town,
	}
	passage, err := e.network.PathWithoutCollision(params.Character, params.Town)
	if err != nil {
		resp.Error = err.Error()
		resp.Code = Code(err)
		return resp, nil
	}

	safe := passage.Safe
	resp.OK = true
	resp.Safe = &safe
	resp.Route = passage.Towns
	return resp, nil
}
