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
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/AleutianReason/services/reason/llm"
)

func TestNewReasoner_NilBackend(t *testing.T) {
	_, err := NewReasoner(nil)
	assert.ErrorIs(t, err, ErrNilBackend)
}

func TestReasoner_ChainZeroShot(t *testing.T) {
	backend := llm.NewMockBackend().QueueResponse(
		"Step 1: There are 3 boxes of 4.\nStep 2: 3*4 = 12.\nTherefore, the answer is 12.")
	r, err := NewReasoner(backend)
	require.NoError(t, err)

	res, err := r.Chain(context.Background(), "How many apples?")
	require.NoError(t, err)

	assert.Equal(t, []string{"There are 3 boxes of 4.", "3*4 = 12."}, res.Steps)
	assert.Equal(t, "12", res.Answer)
	assert.Equal(t, 10, res.Tokens)
	assert.False(t, res.Failed())
	assert.Contains(t, res.Format(), "Step 2: 3*4 = 12.\nAnswer: 12")

	call := backend.Calls()[0]
	assert.Contains(t, call.Prompt, "Q: How many apples?")
	assert.Contains(t, call.Prompt, "Let's think step by step.")
	assert.Equal(t, 0.0, call.Temperature)
	assert.Equal(t, 512, call.MaxTokens)
}

func TestReasoner_ChainFewShot(t *testing.T) {
	backend := llm.NewMockBackend().QueueResponse("Step 1: 5+5 = 10.\nTherefore, the answer is 10.")
	r, err := NewReasoner(backend,
		WithExamples(Example{Question: "What is 2+2?", Steps: []string{"Add 2 and 2."}, Answer: "4"}),
		WithTemperature(0.2),
		WithMaxTokens(128),
	)
	require.NoError(t, err)

	res, err := r.Chain(context.Background(), "What is 5+5?")
	require.NoError(t, err)
	assert.Equal(t, "10", res.Answer)

	call := backend.Calls()[0]
	assert.Contains(t, call.Prompt, "Q: What is 2+2?\nA: Let's think step by step.\nStep 1: Add 2 and 2.\nTherefore, the answer is 4.")
	assert.True(t, strings.HasSuffix(call.Prompt, "Q: What is 5+5?\nA: Let's think step by step.\n"))
	assert.Equal(t, 0.2, call.Temperature)
	assert.Equal(t, 128, call.MaxTokens)
}

func TestReasoner_ChainErrors(t *testing.T) {
	r, err := NewReasoner(llm.NewMockBackend().WithError(llm.ErrMockFailure))
	require.NoError(t, err)

	_, err = r.Chain(context.Background(), "q")
	assert.ErrorIs(t, err, llm.ErrMockFailure)

	_, err = r.Chain(context.Background(), "   ")
	assert.ErrorIs(t, err, ErrEmptyQuestion)
}

func TestReasoner_SelfConsistency(t *testing.T) {
	backend := llm.NewMockBackend().QueueResponse(
		"Step 1: Capital of France.\nTherefore, the answer is Paris.",
		"Step 1: Think.\nTherefore, the answer is paris",
		"Step 1: Guess.\nTherefore, the answer is Lyon.",
	)
	r, err := NewReasoner(backend, WithConcurrency(2))
	require.NoError(t, err)

	res, err := r.SelfConsistency(context.Background(), "Capital of France?", 3)
	require.NoError(t, err)

	assert.Equal(t, "paris", NormalizeAnswer(res.Answer))
	assert.InDelta(t, 2.0/3.0, res.Ratio, 1e-12)
	assert.Equal(t, map[string]int{"paris": 2, "lyon": 1}, res.Votes)
	assert.Equal(t, 3, res.Samples)
	assert.Equal(t, 3, res.Valid)
	assert.Len(t, res.Chains, 3)
	assert.Equal(t, 30, res.Tokens)

	for _, c := range backend.Calls() {
		assert.Equal(t, 0.7, c.Temperature, "samples use the sampling temperature")
	}
}

func TestReasoner_SelfConsistencyIgnoresExamples(t *testing.T) {
	backend := llm.NewMockBackend()
	r, err := NewReasoner(backend, WithExamples(Example{
		Question: "1+1?",
		Steps:    []string{"Add 1 and 1."},
		Answer:   "2",
	}))
	require.NoError(t, err)

	_, err = r.SelfConsistency(context.Background(), "2+2?", 3)
	require.NoError(t, err)

	calls := backend.Calls()
	require.Len(t, calls, 3)
	for _, c := range calls {
		assert.Equal(t, zeroShotPrompt("2+2?"), c.Prompt)
		assert.NotContains(t, c.Prompt, "1+1?")
	}

	_, err = r.Chain(context.Background(), "2+2?")
	require.NoError(t, err)
	calls = backend.Calls()
	require.Len(t, calls, 4)
	assert.Contains(t, calls[3].Prompt, "Q: 1+1?", "single chains keep the examples")
}

func TestReasoner_SelfConsistencyPartialFailure(t *testing.T) {
	calls := 0
	backend := llm.NewMockBackend().WithResponseFunc(func(string, float64) (string, error) {
		calls++
		if calls%2 == 0 {
			return "", llm.ErrMockFailure
		}
		return "Therefore, the answer is 7.", nil
	})
	r, err := NewReasoner(backend)
	require.NoError(t, err)

	res, err := r.SelfConsistency(context.Background(), "q", 4)
	require.NoError(t, err)

	assert.Equal(t, "7", res.Answer)
	assert.Equal(t, 1.0, res.Ratio)
	assert.Equal(t, 2, res.Valid)

	failed := 0
	for i := range res.Chains {
		if res.Chains[i].Failed() {
			failed++
		}
	}
	assert.Equal(t, 2, failed)
}

func TestReasoner_SelfConsistencyAllFail(t *testing.T) {
	r, err := NewReasoner(llm.NewMockBackend().WithError(llm.ErrMockFailure))
	require.NoError(t, err)

	res, err := r.SelfConsistency(context.Background(), "q", 3)
	require.NoError(t, err)

	assert.Empty(t, res.Answer)
	assert.Equal(t, 0.0, res.Ratio)
	assert.Equal(t, 0, res.Valid)
	assert.Len(t, res.Chains, 3)
}

func TestReasoner_SelfConsistencyInvalid(t *testing.T) {
	r, err := NewReasoner(llm.NewMockBackend())
	require.NoError(t, err)

	_, err = r.SelfConsistency(context.Background(), "q", 0)
	assert.ErrorIs(t, err, ErrInvalidSamples)

	_, err = r.SelfConsistency(context.Background(), "", 2)
	assert.ErrorIs(t, err, ErrEmptyQuestion)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res, err := r.SelfConsistency(ctx, "q", 2)
	assert.Nil(t, res)
	assert.ErrorIs(t, err, context.Canceled)
}
