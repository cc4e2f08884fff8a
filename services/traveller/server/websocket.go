// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package server

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/AleutianAI/traveller/services/traveller/command"
	"github.com/AleutianAI/traveller/services/traveller/session"
)

// maxFrameBytes bounds a single command frame.
const maxFrameBytes = 1 << 20

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
}

func sendJSON(ws *websocket.Conn, v interface{}) error {
	err := ws.WriteJSON(v)
	if err != nil {
		slog.Warn("Failed to write WebSocket JSON", "error", err)
	}
	return err
}

// errorFrame answers a failed command on the stream.
func errorFrame(name string, err error) *command.Response {
	_, code := classify(err)
	return &command.Response{Command: name, OK: false, Error: err.Error(), Code: code}
}

// HandleStream handles GET /v1/traveller/stream.
//
// Description:
//
//	Upgrades to a WebSocket carrying the command protocol. Without
//	session_id a session is created for username; with it the connection
//	attaches to that session. The first frame is a StreamEvent. Each text
//	frame may hold one or more commands; each is answered with a
//	command.Response frame. Failed commands are answered with ok=false
//	and the connection stays open.
//
// Query Parameters:
//
//	username - Required when session_id is absent.
//	session_id - Existing session to attach to.
//
// Response:
//
//	101 Switching Protocols
//	400 Bad Request: Neither username nor session_id
//	404 Not Found: Unknown session_id
func (h *Handlers) HandleStream(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandleStream")
	ctx := c.Request.Context()

	var (
		s      *session.Session
		action string
		err    error
	)
	if id := c.Query("session_id"); id != "" {
		s, err = h.sessions.Get(id)
		action = ActionSessionAttached
	} else {
		s, err = h.sessions.Create(ctx, c.Query("username"))
		action = ActionSessionCreated
	}
	if err != nil {
		abortWithError(c, logger, err)
		return
	}
	logger = logger.With("session_id", s.ID())

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Error("Failed to upgrade the websocket", "error", err)
		return
	}
	defer ws.Close()
	ws.SetReadLimit(maxFrameBytes)
	logger.Info("Websocket client connected", "action", action)

	if err := sendJSON(ws, StreamEvent{Action: action, SessionID: s.ID(), Username: s.Username()}); err != nil {
		return
	}

	for {
		msgType, data, err := ws.ReadMessage()
		if err != nil {
			logger.Info("Websocket client disconnected", "error", err.Error())
			return
		}
		if msgType != websocket.TextMessage {
			continue
		}
		if !h.streamFrame(ctx, ws, logger, s.ID(), data) {
			return
		}
	}
}

// streamFrame runs every command in one frame. It returns false when the
// connection should close.
func (h *Handlers) streamFrame(ctx context.Context, ws *websocket.Conn, logger *slog.Logger, id string, data []byte) bool {
	dec := command.NewDecoder(bytes.NewReader(data))
	for {
		cmd, err := dec.Next()
		if errors.Is(err, io.EOF) {
			return true
		}
		if err != nil {
			if sendJSON(ws, errorFrame(cmd.Command, err)) != nil {
				return false
			}
			// Invalid JSON cannot be resynchronised; drop the rest of the frame.
			if errors.Is(err, command.ErrMalformed) {
				return true
			}
			continue
		}

		resp, err := h.sessions.Exec(ctx, id, cmd)
		if err != nil {
			if sendJSON(ws, errorFrame(cmd.Command, err)) != nil {
				return false
			}
			if errors.Is(err, session.ErrSessionNotFound) {
				logger.Info("Session ended while streaming")
				return false
			}
			continue
		}
		if sendJSON(ws, resp) != nil {
			return false
		}
	}
}
