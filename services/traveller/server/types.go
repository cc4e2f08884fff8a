// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package server exposes traveller sessions over HTTP and WebSocket.
package server

import (
	"time"

	"github.com/AleutianAI/traveller/services/traveller/session"
)

// ErrorResponse is the standard error response format.
type ErrorResponse struct {
	// Error is the error message.
	Error string `json:"error"`

	// Code is the error code.
	Code string `json:"code,omitempty"`
}

// CreateSessionRequest is the body of POST /v1/traveller/sessions.
type CreateSessionRequest struct {
	Username string `json:"username" binding:"required"`
}

// CreateSessionResponse answers POST /v1/traveller/sessions.
type CreateSessionResponse struct {
	SessionID string    `json:"session_id"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"created_at"`
}

// ListSessionsResponse answers GET /v1/traveller/sessions.
type ListSessionsResponse struct {
	Sessions []session.Summary `json:"sessions"`
	Count    int               `json:"count"`
}

// HealthResponse answers GET /v1/traveller/health.
type HealthResponse struct {
	Status   string `json:"status"`
	Sessions int    `json:"sessions"`
}

// StreamEvent is a control frame on the command stream.
type StreamEvent struct {
	// Action is "session_created" or "session_attached".
	Action    string `json:"action"`
	SessionID string `json:"session_id"`
	Username  string `json:"username"`
}

// Stream actions.
const (
	ActionSessionCreated  = "session_created"
	ActionSessionAttached = "session_attached"
)
