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
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"github.com/AleutianAI/AleutianReason/services/reason/llm"
)

const (
	// DefaultUnparsedScore is used when the scoring reply holds no usable number.
	DefaultUnparsedScore = 0.5

	// FailedEvaluationScore is used when the scoring call itself fails.
	FailedEvaluationScore = 0.0
)

// EvaluationRequest describes the thought to score.
type EvaluationRequest struct {
	NodeID   string
	Question string
	Steps    []string
	Thought  string
}

// Evaluation is the scoring outcome. Evaluate never fails; Err and Parsed
// describe how the score was obtained.
type Evaluation struct {
	Score  float64
	Tokens int
	Raw    string
	Parsed bool
	Err    error
}

// Evaluator scores candidate thoughts in [0,1].
type Evaluator interface {
	Evaluate(ctx context.Context, req EvaluationRequest) Evaluation
}

// LLMEvaluator asks the generation backend to rate each thought.
type LLMEvaluator struct {
	backend     llm.Backend
	temperature float64
	maxTokens   int
	logger      *slog.Logger
}

// NewLLMEvaluator creates an evaluator over backend. A nil logger uses
// slog.Default().
func NewLLMEvaluator(backend llm.Backend, logger *slog.Logger) *LLMEvaluator {
	if logger == nil {
		logger = slog.Default()
	}
	return &LLMEvaluator{backend: backend, temperature: 0, maxTokens: 16, logger: logger}
}

// Evaluate implements Evaluator.
//
// A backend error scores FailedEvaluationScore. A reply without a number in
// [0,1] scores DefaultUnparsedScore. Both are logged at Warn.
func (e *LLMEvaluator) Evaluate(ctx context.Context, req EvaluationRequest) Evaluation {
	prompt := scorePrompt(req.Question, req.Steps, req.Thought)
	gen, err := e.backend.Generate(ctx, prompt, e.temperature, e.maxTokens)
	if err != nil {
		e.logger.Warn("Thought evaluation failed, scoring low",
			slog.String("node_id", req.NodeID),
			slog.String("error", err.Error()))
		return Evaluation{Score: FailedEvaluationScore, Err: err}
	}

	score, ok := ParseScore(gen.Text)
	if !ok {
		e.logger.Warn("Unparseable evaluation score, using default",
			slog.String("node_id", req.NodeID),
			slog.String("raw", llm.Preview(gen.Text, 80)),
			slog.Float64("default", DefaultUnparsedScore))
		return Evaluation{Score: DefaultUnparsedScore, Tokens: gen.TokenCount, Raw: gen.Text}
	}
	return Evaluation{Score: score, Tokens: gen.TokenCount, Raw: gen.Text, Parsed: true}
}

var scorePattern = regexp.MustCompile(`(-?\d+(?:\.\d+)?|-?\.\d+)\s*(%|/\s*(\d+(?:\.\d+)?))?`)

// ParseScore extracts a score in [0,1] from a scoring reply.
//
// Accepted forms: "0.8", ".8", "8/10", "80%", "Score: 0.75". Decimals,
// fractions and percentages take precedence over bare integers, so a
// leading "Step 1:" does not win over a later "0.6". Any value outside
// [0,1] after conversion is rejected, so bare integers above 1 such as
// "Score: 8" or "8 out of 10" are unparseable and fall back.
func ParseScore(text string) (float64, bool) {
	matches := scorePattern.FindAllStringSubmatch(strings.TrimSpace(text), -1)
	if len(matches) == 0 {
		return 0, false
	}

	pick := matches[0]
	for _, m := range matches {
		if m[2] != "" || strings.Contains(m[1], ".") {
			pick = m
			break
		}
	}

	v, err := strconv.ParseFloat(pick[1], 64)
	if err != nil {
		return 0, false
	}
	switch {
	case pick[2] == "%":
		v /= 100
	case pick[3] != "":
		den, err := strconv.ParseFloat(pick[3], 64)
		if err != nil || den == 0 {
			return 0, false
		}
		v /= den
	}

	if v < 0 || v > 1 {
		return 0, false
	}
	return v, true
}
