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
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/AleutianAI/AleutianReason/services/reason/llm"
)

// ThoughtRequest describes one candidate step to generate.
type ThoughtRequest struct {
	Question string
	Steps    []string
	Index    int
	Total    int
}

// Thought is the outcome of a generation.
type Thought struct {
	Content string
	Tokens  int
}

// Generator proposes candidate thoughts.
type Generator interface {
	Generate(ctx context.Context, req ThoughtRequest) (*Thought, error)
}

// LLMGenerator produces thoughts with a generation backend.
type LLMGenerator struct {
	backend     llm.Backend
	temperature float64
	maxTokens   int
}

// NewLLMGenerator creates a generator. Sibling diversity comes from
// temperature and the per-index prompt.
func NewLLMGenerator(backend llm.Backend, temperature float64, maxTokens int) *LLMGenerator {
	return &LLMGenerator{backend: backend, temperature: temperature, maxTokens: maxTokens}
}

// Generate implements Generator.
func (g *LLMGenerator) Generate(ctx context.Context, req ThoughtRequest) (*Thought, error) {
	prompt := thoughtPrompt(req.Question, req.Steps, req.Index, req.Total)
	gen, err := g.backend.Generate(ctx, prompt, g.temperature, g.maxTokens)
	if err != nil {
		return nil, err
	}
	content := strings.TrimSpace(gen.Text)
	if content == "" {
		return &Thought{Tokens: gen.TokenCount}, fmt.Errorf("generate thought: %w", llm.ErrEmptyResponse)
	}
	return &Thought{Content: content, Tokens: gen.TokenCount}, nil
}

// fallbackThought is the content of a node whose generation failed.
func fallbackThought(err error) string {
	return "[generation failed: " + llm.Preview(err.Error(), 120) + "]"
}

// logGenerationFailure records a degraded node.
func logGenerationFailure(logger *slog.Logger, nodeID string, err error) {
	logger.Warn("Thought generation failed, using fallback",
		slog.String("node_id", nodeID),
		slog.String("error", err.Error()))
}
