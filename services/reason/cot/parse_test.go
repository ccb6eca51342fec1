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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/AleutianReason/services/reason/tot"
)

func TestExtractAnswer(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"therefore marker", "Step 1: 2+2=4\nTherefore, the answer is 4.", "4"},
		{"no comma", "therefore the answer is Paris", "Paris"},
		{"final answer", "Some reasoning.\nFinal answer: 12 apples", "12 apples"},
		{"answer with emphasis", "Reasoning here\nAnswer: **42**", "42"},
		{"last marker wins", "Therefore, the answer is 3.\nWait, recheck.\nTherefore, the answer is 5.", "5"},
		{"priority over answer:", "Answer: 1\nTherefore, the answer is 2", "2"},
		{"fallback last line", "The capital is Paris.\nIt is in France.\n\n", "It is in France"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExtractAnswer(tt.in); got != tt.want {
				t.Errorf("ExtractAnswer() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParseSteps(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{
			name: "step headers with continuation",
			in:   "Let's see.\nStep 1: Add 2 and 2.\nThis gives 4.\n\nStep 2: Check.\nTherefore, the answer is 4.",
			want: []string{"Add 2 and 2. This gives 4.", "Check."},
		},
		{
			name: "numbered lines",
			in:   "1. First\n2) Second\nAnswer: x",
			want: []string{"First", "Second"},
		},
		{
			name: "paragraphs",
			in:   "First idea.\n\nSecond idea\ncontinued.\n\nFinal answer: 3",
			want: []string{"First idea.", "Second idea continued."},
		},
		{
			name: "answer only",
			in:   "Therefore, the answer is 7.",
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseSteps(tt.in))
		})
	}
}

func TestNormalizeAnswer(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"  Paris. ", "paris"},
		{"New   York", "new york"},
		{`"Lyon"!`, "lyon"},
		{"**42**", "42"},
		{"3.5", "3.5"},
		{"...", ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := NormalizeAnswer(tt.in); got != tt.want {
				t.Errorf("NormalizeAnswer(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestVote(t *testing.T) {
	tests := []struct {
		name      string
		answers   []string
		want      string
		wantRatio float64
	}{
		{"majority keeps first form", []string{"paris", "Paris", "lyon"}, "paris", 2.0 / 3.0},
		{"tie goes to earliest", []string{"a", "b"}, "a", 0.5},
		{"tie with repeats", []string{"b", "a", "a", "b"}, "b", 0.5},
		{"empty answers do not vote", []string{"", "  ", "x"}, "x", 1},
		{"punctuation folded", []string{"42.", "42", "41"}, "42.", 2.0 / 3.0},
		{"no answers", nil, "", 0},
		{"all empty", []string{"", "."}, "", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ratio := Vote(tt.answers)
			assert.Equal(t, tt.want, got)
			assert.InDelta(t, tt.wantRatio, ratio, 1e-12)
		})
	}
}

func TestTally(t *testing.T) {
	assert.Equal(t, map[string]int{"paris": 2, "lyon": 1}, Tally([]string{"Paris", "paris.", "Lyon", ""}))
}

func TestGoalCheckers(t *testing.T) {
	ctx := context.Background()
	node := func(content string) tot.ThoughtNode { return tot.ThoughtNode{ID: "n1", Content: content} }

	answer := AnswerGoal()
	assert.True(t, answer(ctx, node("So the final answer: 12")))
	assert.True(t, answer(ctx, node("Therefore, the answer is 12.")))
	assert.False(t, answer(ctx, node("Multiply 3 by 4.")))

	expect := ExpectAnswer("12")
	assert.True(t, expect(ctx, node("Therefore, the answer is 12.")))
	assert.False(t, expect(ctx, node("Therefore, the answer is 13.")))
	assert.False(t, expect(ctx, node("12")), "a bare number states no answer")
	assert.False(t, ExpectAnswer("  ")(ctx, node("Answer: x")))
}

func TestGoalCheckers_DriveSearch(t *testing.T) {
	s, err := tot.NewSearcher(nil,
		tot.WithGenerator(fixedGenerator{"Compute 6*7.", "Therefore, the answer is 42."}),
		tot.WithEvaluator(fixedEvaluator(0.8)),
		tot.WithTracing(false),
	)
	require.NoError(t, err)

	res, err := s.Explore(context.Background(), "What is 6*7?", tot.SearchOptions{
		Strategy:        tot.StrategyBFS,
		MaxDepth:        3,
		BranchingFactor: 2,
		GoalChecker:     ExpectAnswer("42"),
	})
	require.NoError(t, err)

	assert.True(t, res.BestPath.IsSolution)
	assert.Equal(t, "42", ExtractAnswer(res.BestPath.Leaf().Content))
	assert.Equal(t, 3, res.NodeCount, "the first expansion already solves it")
}

// fixedGenerator returns the i-th entry for sibling i.
type fixedGenerator []string

func (g fixedGenerator) Generate(_ context.Context, req tot.ThoughtRequest) (*tot.Thought, error) {
	return &tot.Thought{Content: g[req.Index%len(g)], Tokens: 1}, nil
}

type fixedEvaluator float64

func (e fixedEvaluator) Evaluate(context.Context, tot.EvaluationRequest) tot.Evaluation {
	return tot.Evaluation{Score: float64(e), Parsed: true}
}
