// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package llm provides the text generation backends used by the reasoning
// engine.
//
// Every backend implements Backend. Hosted and local providers are wrapped
// by ResilientBackend, which adds rate limiting, retries and a circuit
// breaker. Retrying is safe because a generation has no side effects.
//
// Thread Safety: All backends in this package are safe for concurrent use.
package llm

import (
	"context"
	"unicode/utf8"
)

// Generation is the result of a single completion call.
type Generation struct {
	// Text is the generated completion.
	Text string `json:"text"`

	// TokenCount is the total number of tokens the call consumed
	// (prompt and completion). Backends that cannot report usage estimate it.
	TokenCount int `json:"token_count"`
}

// Backend generates text from a prompt.
//
// Implementations must honor ctx cancellation and must not retain the
// prompt after returning.
type Backend interface {
	// Generate produces a completion for prompt.
	//
	// Inputs:
	//   - ctx: Cancellation and tracing context.
	//   - prompt: The full prompt text. Must not be empty.
	//   - temperature: Sampling temperature, 0 for deterministic output.
	//   - maxTokens: Completion length cap. Zero or negative uses the backend default.
	//
	// Outputs:
	//   - *Generation: The completion and its token usage.
	//   - error: Non-nil on transport, provider or cancellation failure.
	Generate(ctx context.Context, prompt string, temperature float64, maxTokens int) (*Generation, error)

	// Name identifies the backend in logs and metrics, e.g. "openai:gpt-4o-mini".
	Name() string
}

// EstimateTokens approximates the token count of text at four bytes per
// token, the usual rule of thumb for English BPE vocabularies.
func EstimateTokens(text string) int {
	if text == "" {
		return 0
	}
	n := len(text) / 4
	if n == 0 {
		n = 1
	}
	return n
}

// Preview truncates s to at most n runes for logging.
func Preview(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n]) + "..."
}
