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
	"github.com/AleutianAI/AleutianReason/services/reason/llm"
	"github.com/AleutianAI/AleutianReason/services/reason/storage"
	"github.com/AleutianAI/AleutianReason/services/reason/tot"
)

// ExploreRequest is the body of POST /v1/reason/explore. Omitted fields
// take the configured defaults.
type ExploreRequest struct {
	Question         string            `json:"question" binding:"required,max=8192"`
	Strategy         string            `json:"strategy,omitempty"`
	MaxDepth         *int              `json:"max_depth,omitempty" binding:"omitempty,gte=0,lte=32"`
	BranchingFactor  *int              `json:"branching_factor,omitempty" binding:"omitempty,gte=0,lte=16"`
	PruningThreshold *float64          `json:"pruning_threshold,omitempty" binding:"omitempty,gte=0,lte=1"`
	BeamWidth        *int              `json:"beam_width,omitempty" binding:"omitempty,gte=0,lte=64"`
	Budget           *tot.BudgetConfig `json:"budget,omitempty"`

	// ExpectAnswer stops the search at a thought stating this answer.
	ExpectAnswer string `json:"expect_answer,omitempty"`

	// StopOnAnswer stops the search at any thought stating a final answer.
	StopOnAnswer bool `json:"stop_on_answer,omitempty"`

	// IncludeTree adds the rendered ASCII tree to the response.
	IncludeTree bool `json:"include_tree,omitempty"`
}

// ExploreResponse is the answer to an explore request.
type ExploreResponse struct {
	*tot.SearchResult
	Tree string `json:"tree,omitempty"`
}

// ChainRequest is the body of POST /v1/reason/chain.
type ChainRequest struct {
	Question string `json:"question" binding:"required,max=8192"`
}

// ConsistencyRequest is the body of POST /v1/reason/consistency.
type ConsistencyRequest struct {
	Question string `json:"question" binding:"required,max=8192"`
	Samples  int    `json:"samples,omitempty" binding:"omitempty,gte=1"`
}

// ListRunsResponse is the body of GET /v1/reason/runs.
type ListRunsResponse struct {
	Runs []storage.Summary `json:"runs"`
}

// HealthResponse is the body of GET /v1/reason/health.
type HealthResponse struct {
	Status  string            `json:"status"`
	Backend string            `json:"backend"`
	Breaker *llm.BreakerStats `json:"breaker,omitempty"`
	Storage bool              `json:"storage"`
}

// ErrorResponse is the standard error body.
type ErrorResponse struct {
	// Error is the error message.
	Error string `json:"error"`

	// Code is a stable machine-readable code.
	Code string `json:"code,omitempty"`
}
