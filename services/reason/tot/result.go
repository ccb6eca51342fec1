// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package tot

import (
	"fmt"
	"strings"
	"time"
)

// SearchResult is the immutable outcome of one Explore call.
type SearchResult struct {
	RunID         string                  `json:"run_id"`
	Question      string                  `json:"question"`
	Strategy      Strategy                `json:"strategy"`
	Options       SearchOptions           `json:"options"`
	RootID        string                  `json:"root_id"`
	Nodes         map[string]*ThoughtNode `json:"nodes"`
	BestPath      TreePath                `json:"best_path"`
	ExploredPaths []TreePath              `json:"explored_paths"`
	NodeCount     int                     `json:"node_count"`
	PrunedCount   int                     `json:"pruned_count"`
	SolutionCount int                     `json:"solution_count"`
	TokenCount    int                     `json:"token_count"`
	LLMCalls      int                     `json:"llm_calls"`
	ExhaustedBy   string                  `json:"exhausted_by,omitempty"`
	StartedAt     time.Time               `json:"started_at"`
	Duration      time.Duration           `json:"duration"`
}

// Root returns the root node.
func (r *SearchResult) Root() *ThoughtNode {
	return r.Nodes[r.RootID]
}

// Format renders the explored tree with the best path starred.
func (r *SearchResult) Format() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Question: %s\n", r.Question)
	fmt.Fprintf(&sb, "Strategy: %s, Nodes: %d, Pruned: %d, Tokens: %d\n", r.Strategy, r.NodeCount, r.PrunedCount, r.TokenCount)
	fmt.Fprintf(&sb, "Best Score: %.3f", r.BestPath.Score)
	if r.BestPath.IsSolution {
		sb.WriteString(" (solution)")
	}
	sb.WriteString("\n\n")
	sb.WriteString(FormatNodes(r.Nodes, r.RootID, r.BestPath.IDs()))
	return sb.String()
}

// result freezes the run into a SearchResult.
func (r *searchRun) result() *SearchResult {
	leaves := r.tree.LeafIDs()
	explored := make([]TreePath, 0, len(leaves))
	for _, id := range leaves {
		p, err := r.tree.PathTo(id)
		if err != nil {
			r.logger.Error("Path reconstruction failed", "leaf", id, "error", err)
			continue
		}
		explored = append(explored, *p)
	}

	best := selectBestPath(explored)
	if best == nil {
		rootPath, _ := r.tree.PathTo(RootID)
		best = rootPath
	}

	counts := r.tree.CountByState()
	return &SearchResult{
		RunID:         r.id,
		Question:      r.question,
		Strategy:      r.opts.Strategy,
		Options:       r.opts,
		RootID:        RootID,
		Nodes:         r.tree.Snapshot(),
		BestPath:      *best,
		ExploredPaths: explored,
		NodeCount:     r.tree.Len(),
		PrunedCount:   counts[StatePruned],
		SolutionCount: counts[StateSolution],
		TokenCount:    int(r.budget.Tokens()),
		LLMCalls:      int(r.budget.LLMCalls()),
		ExhaustedBy:   r.budget.ExhaustedBy(),
		StartedAt:     r.started,
		Duration:      time.Since(r.started),
	}
}

// selectBestPath prefers the highest-scoring solution path, then the
// highest-scoring path. Ties keep the earlier path. Returns nil for no paths.
func selectBestPath(paths []TreePath) *TreePath {
	var bestSolution, bestAny *TreePath
	for i := range paths {
		p := &paths[i]
		if p.IsSolution && (bestSolution == nil || p.Score > bestSolution.Score) {
			bestSolution = p
		}
		if bestAny == nil || p.Score > bestAny.Score {
			bestAny = p
		}
	}
	if bestSolution != nil {
		return bestSolution
	}
	return bestAny
}
