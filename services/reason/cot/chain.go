// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package cot implements chain-of-thought prompting and self-consistency
// voting over a generation backend.
//
// A Reasoner asks the backend for a step-by-step solution, splits the reply
// into steps and extracts the final answer. SelfConsistency samples several
// independent chains at a higher temperature and returns the plurality
// answer.
package cot

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/AleutianAI/AleutianReason/services/reason/llm"
)

var tracer = otel.Tracer("aleutian.reason.cot")

// ChainResult is one completed reasoning chain.
type ChainResult struct {
	Question string        `json:"question"`
	Steps    []string      `json:"steps"`
	Answer   string        `json:"answer"`
	Raw      string        `json:"raw,omitempty"`
	Tokens   int           `json:"tokens"`
	Duration time.Duration `json:"duration"`
	Err      string        `json:"error,omitempty"`
}

// Failed reports whether the chain produced no reply.
func (c *ChainResult) Failed() bool {
	return c.Err != ""
}

// Format renders the chain as numbered steps followed by the answer.
func (c *ChainResult) Format() string {
	var sb strings.Builder
	for i, s := range c.Steps {
		fmt.Fprintf(&sb, "Step %d: %s\n", i+1, s)
	}
	fmt.Fprintf(&sb, "Answer: %s\n", c.Answer)
	return sb.String()
}

// Reasoner runs chain-of-thought prompts against one backend.
//
// Thread Safety: Safe for concurrent use.
type Reasoner struct {
	backend           llm.Backend
	logger            *slog.Logger
	examples          []Example
	temperature       float64
	sampleTemperature float64
	maxTokens         int
	concurrency       int
}

// Option configures a Reasoner.
type Option func(*Reasoner)

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(r *Reasoner) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithExamples switches to few-shot prompting with the given demonstrations.
func WithExamples(examples ...Example) Option {
	return func(r *Reasoner) { r.examples = append(r.examples, examples...) }
}

// WithTemperature sets the temperature of single chains. Default: 0.
func WithTemperature(t float64) Option {
	return func(r *Reasoner) { r.temperature = t }
}

// WithSampleTemperature sets the temperature of self-consistency samples.
// Default: 0.7.
func WithSampleTemperature(t float64) Option {
	return func(r *Reasoner) { r.sampleTemperature = t }
}

// WithMaxTokens caps each reply. Default: 512.
func WithMaxTokens(n int) Option {
	return func(r *Reasoner) {
		if n > 0 {
			r.maxTokens = n
		}
	}
}

// WithConcurrency limits concurrent samples. Default: 4.
func WithConcurrency(n int) Option {
	return func(r *Reasoner) {
		if n > 0 {
			r.concurrency = n
		}
	}
}

// NewReasoner creates a Reasoner over backend.
func NewReasoner(backend llm.Backend, opts ...Option) (*Reasoner, error) {
	if backend == nil {
		return nil, ErrNilBackend
	}
	r := &Reasoner{
		backend:           backend,
		logger:            slog.Default(),
		sampleTemperature: 0.7,
		maxTokens:         512,
		concurrency:       4,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Chain produces one reasoning chain for question.
//
// Outputs:
//   - *ChainResult: Steps and final answer.
//   - error: ErrEmptyQuestion, or the backend error wrapped with context.
func (r *Reasoner) Chain(ctx context.Context, question string) (*ChainResult, error) {
	return r.chain(ctx, question, fewShotPrompt(r.examples, question), r.temperature)
}

func (r *Reasoner) chain(ctx context.Context, question, prompt string, temperature float64) (*ChainResult, error) {
	if strings.TrimSpace(question) == "" {
		return nil, ErrEmptyQuestion
	}

	ctx, span := tracer.Start(ctx, "cot.Chain")
	defer span.End()
	span.SetAttributes(
		attribute.Int("cot.question_len", len(question)),
		attribute.Int("cot.examples", len(r.examples)),
		attribute.Float64("cot.temperature", temperature),
	)

	start := time.Now()
	gen, err := r.backend.Generate(ctx, prompt, temperature, r.maxTokens)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "generation failed")
		return nil, fmt.Errorf("generate chain: %w", err)
	}

	result := &ChainResult{
		Question: question,
		Steps:    ParseSteps(gen.Text),
		Answer:   ExtractAnswer(gen.Text),
		Raw:      gen.Text,
		Tokens:   gen.TokenCount,
		Duration: time.Since(start),
	}
	span.SetAttributes(
		attribute.Int("cot.steps", len(result.Steps)),
		attribute.Int("cot.tokens", result.Tokens),
	)
	r.logger.Debug("Chain completed",
		slog.Int("steps", len(result.Steps)),
		slog.String("answer", llm.Preview(result.Answer, 80)),
		slog.Duration("duration", result.Duration))
	return result, nil
}
