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
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/AleutianAI/traveller/services/traveller/command"
	"github.com/AleutianAI/traveller/services/traveller/session"
)

// Error codes for failures outside the command protocol.
const (
	CodeInvalidRequest  = "INVALID_REQUEST"
	CodeSessionNotFound = "SESSION_NOT_FOUND"
	CodeInvalidUsername = "INVALID_USERNAME"
	CodeTooManySessions = "TOO_MANY_SESSIONS"
	CodeRateLimited     = "RATE_LIMITED"
	CodeJournalFailure  = "JOURNAL_FAILURE"
	CodeInternal        = "INTERNAL"
)

// Handlers serves the traveller HTTP API.
type Handlers struct {
	sessions *session.Manager
}

// NewHandlers creates handlers backed by the given session manager.
func NewHandlers(sessions *session.Manager) *Handlers {
	return &Handlers{sessions: sessions}
}

// getOrCreateRequestID returns X-Request-ID, or a new one, and echoes it.
func getOrCreateRequestID(c *gin.Context) string {
	requestID := c.GetHeader("X-Request-ID")
	if requestID == "" {
		requestID = uuid.NewString()
	}
	c.Header("X-Request-ID", requestID)
	return requestID
}

// classify maps an error to an HTTP status and a response code.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, session.ErrSessionNotFound):
		return http.StatusNotFound, CodeSessionNotFound
	case errors.Is(err, session.ErrInvalidUsername):
		return http.StatusBadRequest, CodeInvalidUsername
	case errors.Is(err, session.ErrTooManySessions):
		return http.StatusServiceUnavailable, CodeTooManySessions
	case errors.Is(err, session.ErrRateLimited):
		return http.StatusTooManyRequests, CodeRateLimited
	case errors.Is(err, session.ErrJournal):
		return http.StatusInternalServerError, CodeJournalFailure
	case errors.Is(err, command.ErrNoNetwork), errors.Is(err, command.ErrNetworkExists):
		return http.StatusConflict, command.Code(err)
	case command.IsProtocolError(err):
		return http.StatusBadRequest, command.Code(err)
	default:
		return http.StatusInternalServerError, CodeInternal
	}
}

func abortWithError(c *gin.Context, logger *slog.Logger, err error) {
	status, code := classify(err)
	if status >= http.StatusInternalServerError {
		logger.Error("Request failed", "error", err, "code", code)
	} else {
		logger.Warn("Request rejected", "error", err, "code", code)
	}
	c.JSON(status, ErrorResponse{Error: err.Error(), Code: code})
}

// HandleCreateSession handles POST /v1/traveller/sessions.
//
// Response:
//
//	201 Created: CreateSessionResponse
//	400 Bad Request: Missing username
//	503 Service Unavailable: Session limit reached
func (h *Handlers) HandleCreateSession(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandleCreateSession")

	var req CreateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Invalid request body", "error", err)
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "Invalid request body",
			Code:  CodeInvalidRequest,
		})
		return
	}

	s, err := h.sessions.Create(c.Request.Context(), req.Username)
	if err != nil {
		abortWithError(c, logger, err)
		return
	}

	c.JSON(http.StatusCreated, CreateSessionResponse{
		SessionID: s.ID(),
		Username:  s.Username(),
		CreatedAt: s.CreatedAt(),
	})
}

// HandleListSessions handles GET /v1/traveller/sessions.
func (h *Handlers) HandleListSessions(c *gin.Context) {
	getOrCreateRequestID(c)
	sessions := h.sessions.List()
	c.JSON(http.StatusOK, ListSessionsResponse{Sessions: sessions, Count: len(sessions)})
}

// HandleGetSession handles GET /v1/traveller/sessions/:id.
func (h *Handlers) HandleGetSession(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandleGetSession")

	s, err := h.sessions.Get(c.Param("id"))
	if err != nil {
		abortWithError(c, logger, err)
		return
	}
	c.JSON(http.StatusOK, s.Summary())
}

// HandleDeleteSession handles DELETE /v1/traveller/sessions/:id.
//
// Response:
//
//	204 No Content: Session ended
//	404 Not Found: Unknown session
func (h *Handlers) HandleDeleteSession(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandleDeleteSession")

	if err := h.sessions.Delete(c.Request.Context(), c.Param("id")); err != nil {
		abortWithError(c, logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// HandleCommand handles POST /v1/traveller/sessions/:id/commands.
//
// Description:
//
//	Runs one protocol command in the session. Domain failures such as an
//	unknown town are answered 200 with ok=false in the body; protocol
//	errors are answered with an error status.
//
// Request Body:
//
//	{"command": "roads" | "place" | "passage-safe?", "params": ...}
//
// Response:
//
//	200 OK: command.Response
//	400 Bad Request: Malformed, invalid or unknown command
//	404 Not Found: Unknown session
//	409 Conflict: Command out of order ("roads" missing or repeated)
//	429 Too Many Requests: Session rate limit exceeded
func (h *Handlers) HandleCommand(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	id := c.Param("id")
	logger := slog.With("request_id", requestID, "handler", "HandleCommand", "session_id", id)

	data, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request body", Code: CodeInvalidRequest})
		return
	}

	cmd, err := command.Parse(data)
	if err != nil {
		abortWithError(c, logger, err)
		return
	}

	resp, err := h.sessions.Exec(c.Request.Context(), id, cmd)
	if err != nil {
		abortWithError(c, logger, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// HandleHealth handles GET /v1/traveller/health.
func (h *Handlers) HandleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{Status: "healthy", Sessions: h.sessions.Len()})
}
