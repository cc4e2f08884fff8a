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
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/AleutianAI/traveller/services/traveller/command"
	"github.com/AleutianAI/traveller/services/traveller/server"
)

// Aleutian palette.
var (
	colorTealBright = lipgloss.Color("#2CD7C7")
	colorSlate      = lipgloss.Color("#2C4A54")
	colorWarning    = lipgloss.Color("#F4D03F")
	colorError      = lipgloss.Color("#E74C3C")
)

var (
	styleTitle   = lipgloss.NewStyle().Bold(true).Foreground(colorTealBright)
	styleMuted   = lipgloss.NewStyle().Foreground(colorSlate)
	styleSuccess = lipgloss.NewStyle().Foreground(colorTealBright)
	styleWarning = lipgloss.NewStyle().Foreground(colorWarning)
	styleError   = lipgloss.NewStyle().Foreground(colorError)
)

const promptText = "Enter JSON input:"

// printer writes client output, styled on a terminal and as plain JSON
// lines otherwise.
type printer struct {
	w      io.Writer
	styled bool
}

func (p *printer) event(ev server.StreamEvent) {
	if !p.styled {
		p.json(ev)
		return
	}
	verb := "Created"
	if ev.Action == server.ActionSessionAttached {
		verb = "Attached to"
	}
	fmt.Fprintf(p.w, "%s %s %s\n",
		styleTitle.Render(verb+" session"),
		ev.SessionID,
		styleMuted.Render("("+ev.Username+")"))
}

func (p *printer) response(resp *command.Response) {
	if !p.styled {
		p.json(resp)
		return
	}
	fmt.Fprintln(p.w, describe(resp))
}

func (p *printer) prompt() {
	if p.styled {
		fmt.Fprint(p.w, styleTitle.Render(promptText)+" ")
		return
	}
	fmt.Fprintln(p.w, promptText)
}

func (p *printer) errorf(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	if p.styled {
		msg = styleError.Render("✗ " + msg)
	}
	fmt.Fprintln(p.w, msg)
}

func (p *printer) json(v any) {
	data, err := json.Marshal(v)
	if err != nil {
		fmt.Fprintf(p.w, "{\"error\":%q}\n", err.Error())
		return
	}
	fmt.Fprintln(p.w, string(data))
}

// describe renders a response as one human-readable line.
func describe(resp *command.Response) string {
	if !resp.OK {
		return styleError.Render(fmt.Sprintf("✗ %s: %s", displayName(resp.Command), resp.Error)) +
			" " + styleMuted.Render(resp.Code)
	}

	switch resp.Command {
	case command.NameRoads:
		return styleSuccess.Render(fmt.Sprintf("✓ %d towns, %d roads", len(resp.Towns), resp.Roads)) +
			" " + styleMuted.Render(strings.Join(resp.Towns, ", "))
	case command.NamePlace:
		return styleSuccess.Render(fmt.Sprintf("✓ %s is in %s", resp.Character, resp.Town))
	case command.NamePassageSafe:
		if resp.Safe != nil && *resp.Safe {
			return styleSuccess.Render(fmt.Sprintf("✓ %s can reach %s safely", resp.Character, resp.Town)) +
				" " + styleMuted.Render(strings.Join(resp.Route, " → "))
		}
		return styleWarning.Render(fmt.Sprintf("⚠ %s cannot reach %s safely", resp.Character, resp.Town))
	default:
		return styleSuccess.Render("✓ " + resp.Command)
	}
}

func displayName(name string) string {
	if name == "" {
		return "input"
	}
	return name
}
