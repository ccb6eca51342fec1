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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func drain(f frontier) []string {
	var out []string
	for f.len() > 0 {
		id, ok := f.pop()
		if !ok {
			break
		}
		out = append(out, id)
	}
	return out
}

func TestFrontier_Order(t *testing.T) {
	pushes := []struct {
		id    string
		score float64
	}{
		{"a", 0.4}, {"b", 0.9}, {"c", 0.4}, {"d", 0.7}, {"e", 0.9},
	}

	tests := []struct {
		strategy Strategy
		want     []string
	}{
		{StrategyBFS, []string{"a", "b", "c", "d", "e"}},
		{StrategyDFS, []string{"e", "d", "c", "b", "a"}},
		{StrategyBestFirst, []string{"b", "e", "d", "a", "c"}},
	}

	for _, tt := range tests {
		t.Run(string(tt.strategy), func(t *testing.T) {
			f := newFrontier(tt.strategy)
			for _, p := range pushes {
				f.push(p.id, p.score)
			}
			assert.Equal(t, len(pushes), f.len())
			assert.Equal(t, tt.want, drain(f))

			_, ok := f.pop()
			assert.False(t, ok, "pop on empty frontier")
		})
	}
}

func TestPriorityFrontier_Interleaved(t *testing.T) {
	f := newPriorityFrontier()
	f.push("root", 0.5)
	id, _ := f.pop()
	require.Equal(t, "root", id)

	f.push("n1", 0.6)
	f.push("n2", 0.6)
	id, _ = f.pop()
	assert.Equal(t, "n1", id)

	// A later push with the same score still queues behind n2.
	f.push("n3", 0.6)
	assert.Equal(t, []string{"n2", "n3"}, drain(f))
}

func TestRunBudget_Limits(t *testing.T) {
	tests := []struct {
		name    string
		config  BudgetConfig
		record  func(b *RunBudget)
		wantBy  string
		wantErr error
	}{
		{
			name:   "unlimited",
			config: BudgetConfig{},
			record: func(b *RunBudget) {
				for range 100 {
					b.RecordNode()
					b.RecordLLMCall(50)
				}
			},
		},
		{
			name:    "nodes",
			config:  BudgetConfig{MaxNodes: 2},
			record:  func(b *RunBudget) { b.RecordNode(); b.RecordNode() },
			wantBy:  "nodes",
			wantErr: ErrNodeLimitExceeded,
		},
		{
			name:    "llm calls",
			config:  BudgetConfig{MaxLLMCalls: 1},
			record:  func(b *RunBudget) { b.RecordLLMCall(0) },
			wantBy:  "llm_calls",
			wantErr: ErrLLMCallLimitExceeded,
		},
		{
			name:    "tokens",
			config:  BudgetConfig{MaxTokens: 30},
			record:  func(b *RunBudget) { b.RecordLLMCall(20); b.RecordLLMCall(15) },
			wantBy:  "tokens",
			wantErr: ErrTokenLimitExceeded,
		},
		{
			name:    "time",
			config:  BudgetConfig{TimeLimit: time.Nanosecond},
			record:  func(*RunBudget) { time.Sleep(time.Millisecond) },
			wantBy:  "time",
			wantErr: ErrTimeLimitExceeded,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := NewRunBudget(tt.config)
			tt.record(b)

			err := b.Check()
			if tt.wantErr == nil {
				assert.NoError(t, err)
				assert.False(t, b.Exhausted())
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
			assert.True(t, b.Exhausted())
			assert.Equal(t, tt.wantBy, b.ExhaustedBy())
			assert.Contains(t, b.String(), "EXHAUSTED by "+tt.wantBy)
		})
	}
}

func TestRunBudget_Sticky(t *testing.T) {
	b := NewRunBudget(BudgetConfig{MaxNodes: 1, MaxTokens: 10})
	b.RecordNode()
	require.ErrorIs(t, b.Check(), ErrNodeLimitExceeded)

	b.RecordLLMCall(100)
	assert.ErrorIs(t, b.Check(), ErrNodeLimitExceeded, "first exhausted limit is kept")
	assert.Equal(t, "nodes", b.Report().ExhaustedBy)
}

func TestRunBudget_NodesRemaining(t *testing.T) {
	assert.Equal(t, -1, NewRunBudget(BudgetConfig{}).NodesRemaining())

	b := NewRunBudget(BudgetConfig{MaxNodes: 3})
	b.RecordNode()
	assert.Equal(t, 2, b.NodesRemaining())
	for range 5 {
		b.RecordNode()
	}
	assert.Equal(t, 0, b.NodesRemaining())
}

func TestRunBudget_Report(t *testing.T) {
	b := NewRunBudget(BudgetConfig{})
	b.RecordNode()
	b.RecordLLMCall(7)
	b.RecordLLMCall(-3)

	r := b.Report()
	assert.Equal(t, int64(1), r.Nodes)
	assert.Equal(t, int64(2), r.LLMCalls)
	assert.Equal(t, int64(7), r.Tokens)
	assert.False(t, r.Exhausted)
}

func TestParseStrategy(t *testing.T) {
	tests := []struct {
		in      string
		want    Strategy
		wantErr bool
	}{
		{"bfs", StrategyBFS, false},
		{"Breadth-First", StrategyBFS, false},
		{"depth_first", StrategyDFS, false},
		{"DFS", StrategyDFS, false},
		{"best", StrategyBestFirst, false},
		{"best-first", StrategyBestFirst, false},
		{" beam search ", StrategyBeam, false},
		{"mcts", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseStrategy(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUnknownStrategy)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.True(t, got.Valid())
		})
	}
}
