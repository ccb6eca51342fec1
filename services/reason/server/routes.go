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

// RegisterRoutes registers the /v1/reason endpoints on rg.
//
// Endpoints:
//
//	POST /v1/reason/explore     - Run a thought-tree search
//	POST /v1/reason/chain       - Run one chain of thought
//	POST /v1/reason/consistency - Vote over sampled chains
//	GET  /v1/reason/runs        - List stored runs, newest first
//	GET  /v1/reason/runs/:id    - Fetch a stored run
//	GET  /v1/reason/health      - Backend and storage status
func RegisterRoutes(rg *gin.RouterGroup, handlers *Handlers) {
	reason := rg.Group("/reason")
	{
		reason.POST("/explore", handlers.HandleExplore)
		reason.POST("/chain", handlers.HandleChain)
		reason.POST("/consistency", handlers.HandleConsistency)
		reason.GET("/runs", handlers.HandleListRuns)
		reason.GET("/runs/:id", handlers.HandleGetRun)
		reason.GET("/health", handlers.HandleHealth)
	}
}
