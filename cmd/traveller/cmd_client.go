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
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"

	"github.com/AleutianAI/traveller/services/traveller/command"
	"github.com/AleutianAI/traveller/services/traveller/server"
)

func runClient(cmd *cobra.Command, args []string) error {
	streamURL, err := buildStreamURL(clientAddr, clientUsername, clientSession)
	if err != nil {
		return err
	}
	out := &printer{w: cmd.OutOrStdout(), styled: isTerminal(os.Stdout.Fd())}
	return runClientSession(cmd.Context(), streamURL, cmd.InOrStdin(), out, isTerminal(os.Stdin.Fd()))
}

// buildStreamURL returns the WebSocket URL of the command stream on addr.
func buildStreamURL(addr, username, sessionID string) (string, error) {
	if !strings.Contains(addr, "://") {
		addr = "ws://" + addr
	}
	u, err := url.Parse(addr)
	if err != nil {
		return "", fmt.Errorf("invalid server address %q: %w", addr, err)
	}
	switch u.Scheme {
	case "ws", "wss":
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("unsupported scheme %q in server address", u.Scheme)
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + "/v1/traveller/stream"

	q := url.Values{}
	switch {
	case sessionID != "":
		q.Set("session_id", sessionID)
	case strings.TrimSpace(username) != "":
		q.Set("username", username)
	default:
		return "", errors.New("a username or session ID is required")
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// runClientSession forwards JSON commands read from in to the stream at
// streamURL, printing the session event and one response per command.
// It returns nil when in is exhausted.
func runClientSession(ctx context.Context, streamURL string, in io.Reader, out *printer, interactive bool) error {
	ws, resp, err := websocket.DefaultDialer.DialContext(ctx, streamURL, nil)
	if err != nil {
		if resp != nil {
			defer resp.Body.Close()
			var body server.ErrorResponse
			if json.NewDecoder(resp.Body).Decode(&body) == nil && body.Error != "" {
				return fmt.Errorf("server refused stream: %s (%s)", body.Error, body.Code)
			}
		}
		return fmt.Errorf("connect %s: %w", streamURL, err)
	}
	defer ws.Close()

	var event server.StreamEvent
	if err := ws.ReadJSON(&event); err != nil {
		return fmt.Errorf("read session event: %w", err)
	}
	out.event(event)

	dec := json.NewDecoder(in)
	for {
		if interactive {
			out.prompt()
		}

		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			if errors.Is(err, io.EOF) {
				closeMsg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
				_ = ws.WriteControl(websocket.CloseMessage, closeMsg, time.Now().Add(time.Second))
				return nil
			}
			out.errorf("invalid JSON input: %v", err)
			return fmt.Errorf("%w: %v", command.ErrMalformed, err)
		}

		if err := ws.WriteMessage(websocket.TextMessage, raw); err != nil {
			return fmt.Errorf("send command: %w", err)
		}
		var reply command.Response
		if err := ws.ReadJSON(&reply); err != nil {
			return fmt.Errorf("read response: %w", err)
		}
		out.response(&reply)
	}
}
