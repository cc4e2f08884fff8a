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
	"errors"

	"github.com/AleutianAI/traveller/services/traveller/town"
)

// Sentinel errors for the command protocol.
var (
	// ErrMalformed is returned when the input is not a JSON command object.
	ErrMalformed = errors.New("malformed command")

	// ErrInvalidCommand is returned when a command's params fail validation.
	ErrInvalidCommand = errors.New("invalid command")

	// ErrUnknownCommand is returned for a command name outside the protocol.
	ErrUnknownCommand = errors.New("unknown command")

	// ErrNoNetwork is returned when a command arrives before "roads".
	ErrNoNetwork = errors.New("town network has not been created")

	// ErrNetworkExists is returned when "roads" is sent a second time.
	ErrNetworkExists = errors.New("town network already created")
)

// Error codes reported in responses.
const (
	CodeMalformed       = "MALFORMED"
	CodeInvalidCommand  = "INVALID_COMMAND"
	CodeUnknownCommand  = "UNKNOWN_COMMAND"
	CodeNoNetwork       = "NO_NETWORK"
	CodeNetworkExists   = "NETWORK_EXISTS"
	CodeInvalidArgument = "INVALID_ARGUMENT"
	CodeNotFound        = "NOT_FOUND"
	CodeInternal        = "INTERNAL"
)

// Code maps an error to its stable response code.
func Code(err error) string {
	switch {
	case errors.Is(err, ErrMalformed):
		return CodeMalformed
	case errors.Is(err, ErrInvalidCommand):
		return CodeInvalidCommand
	case errors.Is(err, ErrUnknownCommand):
		return CodeUnknownCommand
	case errors.Is(err, ErrNoNetwork):
		return CodeNoNetwork
	case errors.Is(err, ErrNetworkExists):
		return CodeNetworkExists
	case errors.Is(err, town.ErrInvalidArgument):
		return CodeInvalidArgument
	case errors.Is(err, town.ErrNotFound):
		return CodeNotFound
	default:
		return CodeInternal
	}
}

// IsProtocolError reports whether err breaks the command stream, as opposed
// to a domain failure that is answered and the stream continues.
func IsProtocolError(err error) bool {
	return errors.Is(err, ErrMalformed) ||
		errors.Is(err, ErrInvalidCommand) ||
		errors.Is(err, ErrUnknownCommand) ||
		errors.Is(err, ErrNoNetwork) ||
		errors.Is(err, ErrNetworkExists)
}
