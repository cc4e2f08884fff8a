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
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// Decoder reads a stream of commands.
//
// Commands may be separated by any whitespace, or not at all.
type Decoder struct {
	dec *json.Decoder
}

// NewDecoder creates a decoder reading from r.
func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{dec: json.NewDecoder(r)}
}

// Next returns the next command.
//
// Outputs:
//
//	Command - The decoded command. Params are not yet validated.
//	error - io.EOF at the end of the stream. Wraps ErrMalformed for
//	        invalid JSON, ErrInvalidCommand for a missing name or params.
//	        A malformed stream cannot be resumed.
func (d *Decoder) Next() (Command, error) {
	var raw json.RawMessage
	if err := d.dec.Decode(&raw); err != nil {
		if errors.Is(err, io.EOF) {
			return Command{}, io.EOF
		}
		return Command{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return Parse(raw)
}

// RunStream executes every command read from r with a fresh executor.
//
// Description:
//
//	Each response is passed to emit in order. A protocol error is also
//	emitted, as an error response, and then ends the stream.
//
// Outputs:
//
//	error - The first protocol error or emit error; nil at end of input.
func RunStream(r io.Reader, emit func(*Response) error) error {
	dec := NewDecoder(r)
	exec := NewExecutor()

	for {
		cmd, err := dec.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err == nil {
			var resp *Response
			resp, err = exec.Execute(cmd)
			if err == nil {
				if err := emit(resp); err != nil {
					return err
				}
				continue
			}
		}

		if emitErr := emit(ErrorResponse(cmd.Command, err)); emitErr != nil {
			return emitErr
		}
		return err
	}
}
