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
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/AleutianReason/services/reason/llm"
)

func TestParseScore(t *testing.T) {
	tests := []struct {
		in     string
		want   float64
		wantOK bool
	}{
		{"0.8", 0.8, true},
		{".75", 0.75, true},
		{"8/10", 0.8, true},
		{"Rating: 3 / 4", 0.75, true},
		{"80%", 0.8, true},
		{"Score: 0.75", 0.75, true},
		{"Step 1: this looks like 0.6", 0.6, true},
		{"1", 1, true},
		{"0", 0, true},
		{"7", 0, false},
		{"Score: 8", 0, false},
		{"8 out of 10", 0, false},
		{"1.5", 0, false},
		{"-0.2", 0, false},
		{"150%", 0, false},
		{"5/0", 0, false},
		{"maybe", 0, false},
		{"", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseScore(tt.in)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.InDelta(t, tt.want, got, 1e-9)
			}
		})
	}
}

func TestLLMEvaluator_Evaluate(t *testing.T) {
	tests := []struct {
		name       string
		backend    *llm.MockBackend
		wantScore  float64
		wantParsed bool
		wantErr    bool
	}{
		{
			name:       "parsed",
			backend:    llm.NewMockBackend().QueueResponse("0.9"),
			wantScore:  0.9,
			wantParsed: true,
		},
		{
			name:      "unparseable",
			backend:   llm.NewMockBackend().QueueResponse("I cannot say"),
			wantScore: DefaultUnparsedScore,
		},
		{
			name:      "backend error",
			backend:   llm.NewMockBackend().WithError(errors.New("boom")),
			wantScore: FailedEvaluationScore,
			wantErr:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev := NewLLMEvaluator(tt.backend, nil).Evaluate(context.Background(), EvaluationRequest{
				NodeID:   "n1",
				Question: "What is 6*7?",
				Steps:    []string{"Multiply."},
				Thought:  "6*7 = 42",
			})
			assert.Equal(t, tt.wantScore, ev.Score)
			assert.Equal(t, tt.wantParsed, ev.Parsed)
			assert.Equal(t, tt.wantErr, ev.Err != nil)

			calls := tt.backend.Calls()
			require.Len(t, calls, 1)
			assert.Equal(t, 0.0, calls[0].Temperature)
			assert.Contains(t, calls[0].Prompt, "Proposed step: 6*7 = 42")
			assert.Contains(t, calls[0].Prompt, "Step 1: Multiply.")
		})
	}
}

func TestLLMGenerator_Generate(t *testing.T) {
	backend := llm.NewMockBackend().QueueResponse("  Split into halves.  ", "   ")
	g := NewLLMGenerator(backend, 0.7, 64)

	th, err := g.Generate(context.Background(), ThoughtRequest{Question: "q", Index: 1, Total: 3})
	require.NoError(t, err)
	assert.Equal(t, "Split into halves.", th.Content)
	assert.Equal(t, 10, th.Tokens)

	call := backend.Calls()[0]
	assert.Equal(t, 0.7, call.Temperature)
	assert.Equal(t, 64, call.MaxTokens)
	assert.True(t, strings.Contains(call.Prompt, "candidate next step 2 of 3"))

	_, err = g.Generate(context.Background(), ThoughtRequest{Question: "q"})
	assert.ErrorIs(t, err, llm.ErrEmptyResponse)
}

func TestFallbackThought(t *testing.T) {
	got := fallbackThought(errors.New(strings.Repeat("x", 500)))
	assert.True(t, strings.HasPrefix(got, "[generation failed: "))
	assert.Less(t, len(got), 200)
}
