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
	"sync"
	"sync/atomic"
	"time"
)

// BudgetConfig caps the resources one search may consume. Zero disables a
// limit.
type BudgetConfig struct {
	MaxNodes    int           `yaml:"max_nodes" json:"max_nodes,omitempty" validate:"gte=0"`
	MaxLLMCalls int           `yaml:"max_llm_calls" json:"max_llm_calls,omitempty" validate:"gte=0"`
	MaxTokens   int           `yaml:"max_tokens" json:"max_tokens,omitempty" validate:"gte=0"`
	TimeLimit   time.Duration `yaml:"time_limit" json:"time_limit,omitempty" validate:"gte=0"`
}

// RunBudget tracks resource use of one search run.
//
// Counters are written by concurrent generation workers; the driver polls
// Exhausted between expansions. Exhaustion is sticky.
//
// Thread Safety: Safe for concurrent use.
type RunBudget struct {
	config    BudgetConfig
	startTime time.Time

	nodes    int64
	llmCalls int64
	tokens   int64

	mu          sync.Mutex
	exhaustedBy string
}

// NewRunBudget starts the clock for a run.
func NewRunBudget(config BudgetConfig) *RunBudget {
	return &RunBudget{config: config, startTime: time.Now()}
}

// Config returns the budget configuration.
func (b *RunBudget) Config() BudgetConfig {
	return b.config
}

// RecordNode counts one generated node.
func (b *RunBudget) RecordNode() int64 {
	return atomic.AddInt64(&b.nodes, 1)
}

// RecordLLMCall counts one backend call and its tokens.
func (b *RunBudget) RecordLLMCall(tokens int) {
	atomic.AddInt64(&b.llmCalls, 1)
	if tokens > 0 {
		atomic.AddInt64(&b.tokens, int64(tokens))
	}
}

// Nodes returns the number of generated nodes.
func (b *RunBudget) Nodes() int64 { return atomic.LoadInt64(&b.nodes) }

// LLMCalls returns the number of backend calls.
func (b *RunBudget) LLMCalls() int64 { return atomic.LoadInt64(&b.llmCalls) }

// Tokens returns the total tokens consumed.
func (b *RunBudget) Tokens() int64 { return atomic.LoadInt64(&b.tokens) }

// Elapsed returns wall time since the run started.
func (b *RunBudget) Elapsed() time.Duration { return time.Since(b.startTime) }

// NodesRemaining returns how many nodes may still be generated, or -1 when
// unlimited.
func (b *RunBudget) NodesRemaining() int {
	if b.config.MaxNodes <= 0 {
		return -1
	}
	left := b.config.MaxNodes - int(b.Nodes())
	if left < 0 {
		return 0
	}
	return left
}

// Exhausted returns true once any limit is reached.
func (b *RunBudget) Exhausted() bool {
	return b.Check() != nil
}

// ExhaustedBy names the limit that stopped the run: "time", "nodes",
// "llm_calls" or "tokens". Empty if none.
func (b *RunBudget) ExhaustedBy() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.exhaustedBy
}

// Check returns the sentinel for the first exceeded limit, or nil.
func (b *RunBudget) Check() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.exhaustedBy != "" {
		return limitErr(b.exhaustedBy)
	}

	switch {
	case b.config.TimeLimit > 0 && time.Since(b.startTime) >= b.config.TimeLimit:
		b.exhaustedBy = "time"
	case b.config.MaxNodes > 0 && b.Nodes() >= int64(b.config.MaxNodes):
		b.exhaustedBy = "nodes"
	case b.config.MaxLLMCalls > 0 && b.LLMCalls() >= int64(b.config.MaxLLMCalls):
		b.exhaustedBy = "llm_calls"
	case b.config.MaxTokens > 0 && b.Tokens() >= int64(b.config.MaxTokens):
		b.exhaustedBy = "tokens"
	default:
		return nil
	}
	return limitErr(b.exhaustedBy)
}

func limitErr(by string) error {
	switch by {
	case "time":
		return ErrTimeLimitExceeded
	case "nodes":
		return ErrNodeLimitExceeded
	case "llm_calls":
		return ErrLLMCallLimitExceeded
	case "tokens":
		return ErrTokenLimitExceeded
	default:
		return ErrBudgetExhausted
	}
}

// UsageReport summarizes a run's resource use.
type UsageReport struct {
	Elapsed     time.Duration `json:"elapsed"`
	Nodes       int64         `json:"nodes"`
	LLMCalls    int64         `json:"llm_calls"`
	Tokens      int64         `json:"tokens"`
	Exhausted   bool          `json:"exhausted"`
	ExhaustedBy string        `json:"exhausted_by,omitempty"`
}

// Report returns the current usage.
func (b *RunBudget) Report() UsageReport {
	by := b.ExhaustedBy()
	return UsageReport{
		Elapsed:     b.Elapsed(),
		Nodes:       b.Nodes(),
		LLMCalls:    b.LLMCalls(),
		Tokens:      b.Tokens(),
		Exhausted:   by != "",
		ExhaustedBy: by,
	}
}

// String returns a human-readable budget status.
func (b *RunBudget) String() string {
	status := ""
	if by := b.ExhaustedBy(); by != "" {
		status = fmt.Sprintf(" [EXHAUSTED by %s]", by)
	}
	return fmt.Sprintf("Budget{nodes=%d/%d, llm=%d/%d, tokens=%d/%d, time=%v/%v}%s",
		b.Nodes(), b.config.MaxNodes,
		b.LLMCalls(), b.config.MaxLLMCalls,
		b.Tokens(), b.config.MaxTokens,
		b.Elapsed().Round(time.Millisecond), b.config.TimeLimit,
		status)
}
