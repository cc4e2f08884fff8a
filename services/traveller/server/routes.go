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
	"github.com/gin-gonic/gin"
)

// RegisterRoutes registers all traveller routes with the router.
//
// Description:
//
//	Registers all /v1/traveller/* endpoints with the given Gin router group.
//	The router group should already have any required middleware applied.
//
// Inputs:
//
//	rg - Gin router group (typically /v1)
//	handlers - The handlers instance
//
// Endpoints:
//
//	POST   /v1/traveller/sessions - Create a session
//	GET    /v1/traveller/sessions - List sessions
//	GET    /v1/traveller/sessions/:id - Describe a session
//	DELETE /v1/traveller/sessions/:id - End a session
//	POST   /v1/traveller/sessions/:id/commands - Run one command
//	GET    /v1/traveller/stream - Command stream over WebSocket
//	GET    /v1/traveller/health - Health check
func RegisterRoutes(rg *gin.RouterGroup, handlers *Handlers) {
	tr := rg.Group("/traveller")
	{
		tr.POST("/sessions", handlers.HandleCreateSession)
		tr.GET("/sessions", handlers.HandleListSessions)
		tr.GET("/sessions/:id", handlers.HandleGetSession)
		tr.DELETE("/sessions/:id", handlers.HandleDeleteSession)
		tr.POST("/sessions/:id/commands", handlers.HandleCommand)

		tr.GET("/stream", handlers.HandleStream)
		tr.GET("/health", handlers.HandleHealth)
	}
}
