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
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/traveller/services/traveller/command"
	"github.com/AleutianAI/traveller/services/traveller/server"
	"github.com/AleutianAI/traveller/services/traveller/session"
)

func startServer(t *testing.T) (*httptest.Server, *session.Manager) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	manager := session.NewManager(nil)
	srv := httptest.NewServer(server.NewRouter(manager, "traveller-test"))
	t.Cleanup(srv.Close)
	return srv, manager
}

func TestBuildStreamURL(t *testing.T) {
	tests := []struct {
		name      string
		addr      string
		username  string
		sessionID string
		want      string
		wantErr   bool
	}{
		{"host port", "localhost:8090", "alice", "", "ws://localhost:8090/v1/traveller/stream?username=alice", false},
		{"http url", "http://example.com/", "alice", "", "ws://example.com/v1/traveller/stream?username=alice", false},
		{"https url", "https://example.com/base", "alice", "", "wss://example.com/base/v1/traveller/stream?username=alice", false},
		{"session wins", "ws://h:1", "alice", "abc", "ws://h:1/v1/traveller/stream?session_id=abc", false},
		{"no identity", "h:1", " ", "", "", true},
		{"bad scheme", "ftp://h:1", "alice", "", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := buildStreamURL(tt.addr, tt.username, tt.sessionID)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRunClientSession(t *testing.T) {
	srv, manager := startServer(t)
	streamURL, err := buildStreamURL(srv.URL, "alice", "")
	require.NoError(t, err)

	var out bytes.Buffer
	p := &printer{w: &out}
	require.NoError(t, runClientSession(context.Background(), streamURL, strings.NewReader(heroVillainStream), p, true))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 1+5+6, "event, five responses and a prompt before each read")

	var event server.StreamEvent
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &event))
	assert.Equal(t, server.ActionSessionCreated, event.Action)
	assert.Equal(t, promptText, lines[1])

	var last command.Response
	require.NoError(t, json.Unmarshal([]byte(lines[len(lines)-2]), &last))
	require.NotNil(t, last.Safe)
	assert.True(t, *last.Safe)

	s, err := manager.Get(event.SessionID)
	require.NoError(t, err)
	assert.Equal(t, uint64(5), s.Summary().Commands)
}

func TestRunClientSession_BadInput(t *testing.T) {
	srv, _ := startServer(t)
	streamURL, err := buildStreamURL(srv.URL, "alice", "")
	require.NoError(t, err)

	var out bytes.Buffer
	err = runClientSession(context.Background(), streamURL, strings.NewReader(`{"command":`), &printer{w: &out}, false)
	assert.ErrorIs(t, err, command.ErrMalformed)
	assert.Contains(t, out.String(), "invalid JSON input")
}

func TestRunClientSession_Refused(t *testing.T) {
	srv, _ := startServer(t)
	streamURL, err := buildStreamURL(srv.URL, "", "missing")
	require.NoError(t, err)

	err = runClientSession(context.Background(), streamURL, strings.NewReader(""), &printer{w: &bytes.Buffer{}}, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), server.CodeSessionNotFound)
}

func TestDescribe(t *testing.T) {
	safe, unsafe := true, false
	tests := []struct {
		name string
		resp command.Response
		want string
	}{
		{"roads", command.Response{Command: command.NameRoads, OK: true, Towns: []string{"A", "B"}, Roads: 1}, "2 towns, 1 roads"},
		{"place", command.Response{Command: command.NamePlace, OK: true, Character: "Hero", Town: "A"}, "Hero is in A"},
		{"safe", command.Response{Command: command.NamePassageSafe, OK: true, Character: "Hero", Town: "B", Safe: &safe, Route: []string{"A", "B"}}, "Hero can reach B safely"},
		{"unsafe", command.Response{Command: command.NamePassageSafe, OK: true, Character: "Hero", Town: "C", Safe: &unsafe}, "cannot reach C"},
		{"failure", command.Response{OK: false, Error: "bad", Code: command.CodeMalformed}, "input: bad"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Contains(t, describe(&tt.resp), tt.want)
		})
	}
}
