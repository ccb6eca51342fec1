// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package server exposes thought-tree search and chain-of-thought reasoning
// over HTTP.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/AleutianAI/AleutianReason/services/reason/config"
	"github.com/AleutianAI/AleutianReason/services/reason/cot"
	"github.com/AleutianAI/AleutianReason/services/reason/llm"
	"github.com/AleutianAI/AleutianReason/services/reason/storage"
	"github.com/AleutianAI/AleutianReason/services/reason/tot"
)

const (
	defaultListLimit = 20
	maxListLimit     = 200
)

// Deps are the collaborators of Handlers. Store may be nil when run
// history is disabled.
type Deps struct {
	Backend  llm.Backend
	Searcher *tot.Searcher
	Reasoner *cot.Reasoner
	Store    *storage.RunStore
	Search   config.SearchConfig
	Samples  int
	Limits   config.ServerConfig
	Logger   *slog.Logger
}

// Handlers serves the reason API.
//
// Thread Safety: Safe for concurrent use.
type Handlers struct {
	deps   Deps
	logger *slog.Logger
}

// NewHandlers creates the handlers.
func NewHandlers(deps Deps) *Handlers {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if deps.Samples <= 0 {
		deps.Samples = 5
	}
	return &Handlers{deps: deps, logger: logger}
}

// HandleExplore handles POST /v1/reason/explore.
func (h *Handlers) HandleExplore(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := h.logger.With("request_id", requestID, "handler", "HandleExplore")

	var req ExploreRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Invalid request body", "error", err)
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request body: " + err.Error(), Code: "INVALID_REQUEST"})
		return
	}

	opts, err := h.searchOptions(req)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error(), Code: "INVALID_STRATEGY"})
		return
	}

	ctx, cancel := h.requestContext(c)
	defer cancel()

	logger.Info("Explore started", "strategy", opts.Strategy, "max_depth", opts.MaxDepth, "branching_factor", opts.BranchingFactor)
	res, err := h.deps.Searcher.Explore(ctx, req.Question, opts)
	if err != nil {
		h.abortContext(c, logger, err)
		return
	}

	h.save(c.Request.Context(), logger, storage.SearchRun(res))
	logger.Info("Explore completed",
		"run_id", res.RunID,
		"nodes", res.NodeCount,
		"best_score", res.BestPath.Score,
		"solved", res.BestPath.IsSolution)

	resp := ExploreResponse{SearchResult: res}
	if req.IncludeTree {
		resp.Tree = res.Format()
	}
	c.JSON(http.StatusOK, resp)
}

// HandleChain handles POST /v1/reason/chain.
func (h *Handlers) HandleChain(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := h.logger.With("request_id", requestID, "handler", "HandleChain")

	var req ChainRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Invalid request body", "error", err)
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request body: " + err.Error(), Code: "INVALID_REQUEST"})
		return
	}

	ctx, cancel := h.requestContext(c)
	defer cancel()

	res, err := h.deps.Reasoner.Chain(ctx, req.Question)
	if err != nil {
		if ctx.Err() != nil {
			h.abortContext(c, logger, ctx.Err())
			return
		}
		status, code := http.StatusBadGateway, "GENERATION_FAILED"
		if errors.Is(err, cot.ErrEmptyQuestion) {
			status, code = http.StatusBadRequest, "INVALID_REQUEST"
		} else if errors.Is(err, llm.ErrCircuitOpen) {
			status, code = http.StatusServiceUnavailable, "BACKEND_UNAVAILABLE"
		}
		logger.Error("Chain failed", "error", err)
		c.JSON(status, ErrorResponse{Error: err.Error(), Code: code})
		return
	}

	run := storage.ChainRun(res)
	h.save(c.Request.Context(), logger, run)
	c.JSON(http.StatusOK, gin.H{"run_id": run.ID, "chain": res})
}

// HandleConsistency handles POST /v1/reason/consistency.
func (h *Handlers) HandleConsistency(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := h.logger.With("request_id", requestID, "handler", "HandleConsistency")

	var req ConsistencyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Invalid request body", "error", err)
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request body: " + err.Error(), Code: "INVALID_REQUEST"})
		return
	}

	samples := req.Samples
	if samples == 0 {
		samples = h.deps.Samples
	}
	if limit := h.deps.Limits.MaxSamples; limit > 0 && samples > limit {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "samples exceeds the server limit of " + strconv.Itoa(limit),
			Code:  "TOO_MANY_SAMPLES",
		})
		return
	}

	ctx, cancel := h.requestContext(c)
	defer cancel()

	res, err := h.deps.Reasoner.SelfConsistency(ctx, req.Question, samples)
	if err != nil {
		if ctx.Err() != nil {
			h.abortContext(c, logger, ctx.Err())
			return
		}
		logger.Warn("Self-consistency rejected", "error", err)
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error(), Code: "INVALID_REQUEST"})
		return
	}

	run := storage.ConsistencyRun(res)
	h.save(c.Request.Context(), logger, run)
	c.JSON(http.StatusOK, gin.H{"run_id": run.ID, "result": res})
}

// HandleListRuns handles GET /v1/reason/runs?limit=N.
func (h *Handlers) HandleListRuns(c *gin.Context) {
	if !h.requireStore(c) {
		return
	}
	limit := defaultListLimit
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "limit must be a positive integer", Code: "INVALID_LIMIT"})
			return
		}
		limit = min(n, maxListLimit)
	}

	runs, err := h.deps.Store.List(c.Request.Context(), limit)
	if err != nil {
		h.logger.Error("List runs failed", "error", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "failed to list runs", Code: "STORAGE_ERROR"})
		return
	}
	c.JSON(http.StatusOK, ListRunsResponse{Runs: runs})
}

// HandleGetRun handles GET /v1/reason/runs/:id.
func (h *Handlers) HandleGetRun(c *gin.Context) {
	if !h.requireStore(c) {
		return
	}
	id := c.Param("id")
	run, err := h.deps.Store.Get(c.Request.Context(), id)
	if errors.Is(err, storage.ErrNotFound) {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "run not found: " + id, Code: "NOT_FOUND"})
		return
	}
	if err != nil {
		h.logger.Error("Get run failed", "run_id", id, "error", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "failed to load run", Code: "STORAGE_ERROR"})
		return
	}
	c.JSON(http.StatusOK, run)
}

// HandleHealth handles GET /v1/reason/health. An open breaker reports
// "degraded" with status 503.
func (h *Handlers) HandleHealth(c *gin.Context) {
	resp := HealthResponse{Status: "healthy", Storage: h.deps.Store != nil}
	if h.deps.Backend != nil {
		resp.Backend = h.deps.Backend.Name()
	}
	if rb, ok := h.deps.Backend.(*llm.ResilientBackend); ok {
		stats := rb.Breaker().Stats()
		resp.Breaker = &stats
		if stats.State == llm.BreakerOpen.String() {
			resp.Status = "degraded"
			c.JSON(http.StatusServiceUnavailable, resp)
			return
		}
	}
	c.JSON(http.StatusOK, resp)
}

// searchOptions merges request overrides into the configured defaults.
func (h *Handlers) searchOptions(req ExploreRequest) (tot.SearchOptions, error) {
	search := h.deps.Search
	if req.Strategy != "" {
		search.Strategy = req.Strategy
	}
	if req.MaxDepth != nil {
		search.MaxDepth = *req.MaxDepth
	}
	if req.BranchingFactor != nil {
		search.BranchingFactor = *req.BranchingFactor
	}
	if req.PruningThreshold != nil {
		search.PruningThreshold = *req.PruningThreshold
	}
	if req.BeamWidth != nil {
		search.BeamWidth = *req.BeamWidth
	}
	if req.Budget != nil {
		search.Budget = *req.Budget
	}

	opts, err := search.Options()
	if err != nil {
		return opts, err
	}

	if limit := h.deps.Limits.MaxNodes; limit > 0 && (opts.Budget.MaxNodes <= 0 || opts.Budget.MaxNodes > limit) {
		opts.Budget.MaxNodes = limit
	}
	switch {
	case req.ExpectAnswer != "":
		opts.GoalChecker = cot.ExpectAnswer(req.ExpectAnswer)
	case req.StopOnAnswer:
		opts.GoalChecker = cot.AnswerGoal()
	}
	return opts, nil
}

func (h *Handlers) requestContext(c *gin.Context) (context.Context, context.CancelFunc) {
	if d := h.deps.Limits.RequestTimeout; d > 0 {
		return context.WithTimeout(c.Request.Context(), d)
	}
	return context.WithCancel(c.Request.Context())
}

// abortContext answers a request whose context ended.
func (h *Handlers) abortContext(c *gin.Context, logger *slog.Logger, err error) {
	if errors.Is(err, context.DeadlineExceeded) {
		logger.Warn("Request timed out", "error", err)
		c.JSON(http.StatusGatewayTimeout, ErrorResponse{Error: "request timed out", Code: "TIMEOUT"})
		return
	}
	logger.Info("Request cancelled", "error", err)
	c.JSON(http.StatusRequestTimeout, ErrorResponse{Error: "request cancelled", Code: "CANCELLED"})
}

func (h *Handlers) requireStore(c *gin.Context) bool {
	if h.deps.Store == nil {
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "run history is disabled", Code: "STORAGE_DISABLED"})
		return false
	}
	return true
}

// save records a run. Storage failures are logged, not returned.
func (h *Handlers) save(ctx context.Context, logger *slog.Logger, run *storage.Run) {
	if h.deps.Store == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if _, err := h.deps.Store.Save(ctx, run); err != nil {
		logger.Warn("Failed to save run", "run_id", run.ID, "error", err)
	}
}

// getOrCreateRequestID reads X-Request-ID or creates one, echoing it back.
func getOrCreateRequestID(c *gin.Context) string {
	requestID := c.GetHeader("X-Request-ID")
	if requestID == "" {
		requestID = uuid.NewString()
	}
	c.Header("X-Request-ID", requestID)
	return requestID
}
