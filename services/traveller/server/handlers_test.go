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
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/traveller/services/traveller/command"
	"github.com/AleutianAI/traveller/services/traveller/session"
)

func setupTestRouter(opts ...session.Option) (*gin.Engine, *session.Manager) {
	gin.SetMode(gin.TestMode)
	manager := session.NewManager(nil, opts...)
	return NewRouter(manager, "traveller-test"), manager
}

func doJSON(t *testing.T, router http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		data, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func createSession(t *testing.T, router http.Handler, username string) string {
	t.Helper()
	w := doJSON(t, router, http.MethodPost, "/v1/traveller/sessions", CreateSessionRequest{Username: username})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var resp CreateSessionResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.SessionID)
	return resp.SessionID
}

func TestHandleCreateSession(t *testing.T) {
	router, _ := setupTestRouter()

	t.Run("creates", func(t *testing.T) {
		w := doJSON(t, router, http.MethodPost, "/v1/traveller/sessions", CreateSessionRequest{Username: "alice"})
		assert.Equal(t, http.StatusCreated, w.Code)
		assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

		var resp CreateSessionResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "alice", resp.Username)
	})

	t.Run("missing username", func(t *testing.T) {
		w := doJSON(t, router, http.MethodPost, "/v1/traveller/sessions", `{}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)

		var resp ErrorResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, CodeInvalidRequest, resp.Code)
	})

	t.Run("blank username", func(t *testing.T) {
		w := doJSON(t, router, http.MethodPost, "/v1/traveller/sessions", CreateSessionRequest{Username: "  "})
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), CodeInvalidUsername)
	})

	t.Run("request id is echoed", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/v1/traveller/sessions", strings.NewReader(`{"username":"bob"}`))
		req.Header.Set("X-Request-ID", "req-123")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(t, "req-123", w.Header().Get("X-Request-ID"))
	})
}

func TestHandleCreateSession_Limit(t *testing.T) {
	router, _ := setupTestRouter(session.WithMaxSessions(1))
	createSession(t, router, "alice")

	w := doJSON(t, router, http.MethodPost, "/v1/traveller/sessions", CreateSessionRequest{Username: "bob"})
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), CodeTooManySessions)
}

func TestHandleSessions_GetListDelete(t *testing.T) {
	router, manager := setupTestRouter()
	id := createSession(t, router, "alice")

	w := doJSON(t, router, http.MethodGet, "/v1/traveller/sessions/"+id, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var sum session.Summary
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &sum))
	assert.Equal(t, id, sum.ID)
	assert.Equal(t, "alice", sum.Username)

	w = doJSON(t, router, http.MethodGet, "/v1/traveller/sessions", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list ListSessionsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	assert.Equal(t, 1, list.Count)

	w = doJSON(t, router, http.MethodDelete, "/v1/traveller/sessions/"+id, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Zero(t, manager.Len())

	w = doJSON(t, router, http.MethodGet, "/v1/traveller/sessions/"+id, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), CodeSessionNotFound)

	w = doJSON(t, router, http.MethodDelete, "/v1/traveller/sessions/"+id, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandleCommand(t *testing.T) {
	router, _ := setupTestRouter()
	id := createSession(t, router, "alice")
	path := "/v1/traveller/sessions/" + id + "/commands"

	send := func(t *testing.T, body any) (*httptest.ResponseRecorder, command.Response) {
		t.Helper()
		w := doJSON(t, router, http.MethodPost, path, body)
		var resp command.Response
		if w.Code == http.StatusOK {
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		}
		return w, resp
	}

	w, _ := send(t, command.Place("Hero", "A"))
	assert.Equal(t, http.StatusConflict, w.Code, "place before roads")
	assert.Contains(t, w.Body.String(), command.CodeNoNetwork)

	w, resp := send(t, command.Roads(
		command.RoadParams{From: "A", To: "B"},
		command.RoadParams{From: "B", To: "C"},
	))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"A", "B", "C"}, resp.Towns)

	for _, cmd := range []command.Command{command.Place("Hero", "A"), command.Place("Villain", "B")} {
		w, resp = send(t, cmd)
		require.Equal(t, http.StatusOK, w.Code)
		assert.True(t, resp.OK)
	}

	w, resp = send(t, command.PassageSafe("Hero", "C"))
	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, resp.Safe)
	assert.False(t, *resp.Safe)

	w, resp = send(t, command.PassageSafe("Hero", "B"))
	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, resp.Safe)
	assert.True(t, *resp.Safe)

	w, resp = send(t, command.PassageSafe("Nobody", "B"))
	require.Equal(t, http.StatusOK, w.Code, "domain failures are answered in the body")
	assert.False(t, resp.OK)
	assert.Equal(t, command.CodeNotFound, resp.Code)

	tests := []struct {
		name       string
		body       any
		wantStatus int
		wantCode   string
	}{
		{"malformed", `{"command":`, http.StatusBadRequest, command.CodeMalformed},
		{"unknown command", `{"command":"fly","params":{}}`, http.StatusBadRequest, command.CodeUnknownCommand},
		{"missing params", `{"command":"place"}`, http.StatusBadRequest, command.CodeInvalidCommand},
		{"second roads", command.Roads(command.RoadParams{From: "X", To: "Y"}), http.StatusConflict, command.CodeNetworkExists},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doJSON(t, router, http.MethodPost, path, tt.body)
			assert.Equal(t, tt.wantStatus, w.Code)

			var resp ErrorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, tt.wantCode, resp.Code)
		})
	}
}

func TestHandleCommand_UnknownSession(t *testing.T) {
	router, _ := setupTestRouter()
	w := doJSON(t, router, http.MethodPost, "/v1/traveller/sessions/missing/commands", command.Place("Hero", "A"))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandleCommand_RateLimited(t *testing.T) {
	router, _ := setupTestRouter(session.WithRateLimit(0.001, 1))
	id := createSession(t, router, "alice")
	path := "/v1/traveller/sessions/" + id + "/commands"

	w := doJSON(t, router, http.MethodPost, path, command.Roads(command.RoadParams{From: "A", To: "B"}))
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, router, http.MethodPost, path, command.Place("Hero", "A"))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Contains(t, w.Body.String(), CodeRateLimited)
}

func TestHandleHealth(t *testing.T) {
	router, manager := setupTestRouter()
	_, err := manager.Create(context.Background(), "alice")
	require.NoError(t, err)

	w := doJSON(t, router, http.MethodGet, "/v1/traveller/health", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp HealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "healthy", resp.Status)
	assert.Equal(t, 1, resp.Sessions)
}
