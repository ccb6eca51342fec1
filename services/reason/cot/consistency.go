// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package cot

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"
)

// ConsistencyResult is the outcome of self-consistency sampling.
type ConsistencyResult struct {
	Question string         `json:"question"`
	Answer   string         `json:"answer"`
	Ratio    float64        `json:"ratio"`
	Votes    map[string]int `json:"votes"`
	Samples  int            `json:"samples"`
	Valid    int            `json:"valid"`
	Chains   []ChainResult  `json:"chains"`
	Tokens   int            `json:"tokens"`
	Duration time.Duration  `json:"duration"`
}

// SelfConsistency samples independent chains and votes on their answers.
//
// Samples run concurrently with no shared state. A failed sample is kept in
// Chains with Err set and does not vote. When every sample fails the answer
// is empty and Ratio is 0. Samples always use the zero-shot prompt, even
// when the Reasoner carries examples.
//
// Outputs:
//   - *ConsistencyResult: The plurality answer and its share of valid votes.
//   - error: ErrInvalidSamples, ErrEmptyQuestion or ctx.Err().
func (r *Reasoner) SelfConsistency(ctx context.Context, question string, samples int) (*ConsistencyResult, error) {
	if samples < 1 {
		return nil, ErrInvalidSamples
	}
	if strings.TrimSpace(question) == "" {
		return nil, ErrEmptyQuestion
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ctx, span := tracer.Start(ctx, "cot.SelfConsistency")
	defer span.End()
	span.SetAttributes(attribute.Int("cot.samples", samples))

	start := time.Now()
	chains := make([]ChainResult, samples)

	var g errgroup.Group
	g.SetLimit(r.concurrency)
	for i := range chains {
		g.Go(func() error {
			res, err := r.chain(ctx, question, zeroShotPrompt(question), r.sampleTemperature)
			if err != nil {
				chains[i] = ChainResult{Question: question, Err: err.Error()}
				return nil
			}
			chains[i] = *res
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	answers := make([]string, 0, samples)
	tokens := 0
	for i := range chains {
		c := &chains[i]
		tokens += c.Tokens
		if c.Failed() {
			r.logger.Warn("Self-consistency sample failed", slog.Int("sample", i), slog.String("error", c.Err))
			continue
		}
		answers = append(answers, c.Answer)
	}

	answer, ratio := Vote(answers)
	result := &ConsistencyResult{
		Question: question,
		Answer:   answer,
		Ratio:    ratio,
		Votes:    Tally(answers),
		Samples:  samples,
		Chains:   chains,
		Tokens:   tokens,
		Duration: time.Since(start),
	}
	for _, n := range result.Votes {
		result.Valid += n
	}

	span.SetAttributes(
		attribute.Int("cot.valid", result.Valid),
		attribute.Float64("cot.ratio", ratio),
	)
	r.logger.Info("Self-consistency completed",
		slog.Int("samples", samples),
		slog.Int("valid", result.Valid),
		slog.Float64("ratio", ratio),
		slog.Duration("duration", result.Duration))
	return result, nil
}

// Vote returns the plurality answer and its share of the non-empty votes.
//
// Answers are compared after NormalizeAnswer. Ties go to the answer seen
// first, and the winner is returned in the form of its first occurrence.
// With no usable answers Vote returns "" and 0.
func Vote(answers []string) (string, float64) {
	counts := make(map[string]int)
	first := make(map[string]string)
	var order []string
	valid := 0
	for _, a := range answers {
		key := NormalizeAnswer(a)
		if key == "" {
			continue
		}
		valid++
		if _, seen := first[key]; !seen {
			first[key] = a
			order = append(order, key)
		}
		counts[key]++
	}
	if valid == 0 {
		return "", 0
	}

	best := order[0]
	for _, key := range order[1:] {
		if counts[key] > counts[best] {
			best = key
		}
	}
	return first[best], float64(counts[best]) / float64(valid)
}

// Tally counts normalized answers, skipping empty ones.
func Tally(answers []string) map[string]int {
	counts := make(map[string]int)
	for _, a := range answers {
		if key := NormalizeAnswer(a); key != "" {
			counts[key]++
		}
	}
	return counts
}
