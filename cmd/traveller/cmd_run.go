// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/traveller/services/traveller/command"
)

func runRun(cmd *cobra.Command, args []string) error {
	in := cmd.InOrStdin()
	if len(args) == 1 && args[0] != "-" {
		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("open command file: %w", err)
		}
		defer f.Close()
		in = f
	}
	return runStream(in, cmd.OutOrStdout())
}

// runStream executes the commands read from in and writes one JSON
// response per line to out.
func runStream(in io.Reader, out io.Writer) error {
	enc := json.NewEncoder(out)
	return command.RunStream(in, func(resp *command.Response) error {
		return enc.Encode(resp)
	})
}
