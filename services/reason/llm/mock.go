// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package llm

import (
	"context"
	"sync"
	"time"
)

// MockBackend is a deterministic Backend for tests and offline runs.
//
// Resolution order per call: configured error, response function, queued
// responses, default response.
//
// Thread Safety: Safe for concurrent use.
type MockBackend struct {
	mu sync.Mutex

	name            string
	responses       []string
	defaultResponse string
	tokensPerCall   int
	responseFunc    func(prompt string, temperature float64) (string, error)
	errorToReturn   error
	delay           time.Duration

	calls []GenerateCall
}

// GenerateCall records one call to MockBackend.Generate.
type GenerateCall struct {
	Prompt      string
	Temperature float64
	MaxTokens   int
	Timestamp   time.Time
}

// NewMockBackend creates a mock that answers "Mock thought" with 10 tokens.
func NewMockBackend() *MockBackend {
	return &MockBackend{
		name:            "mock",
		defaultResponse: "Mock thought",
		tokensPerCall:   10,
	}
}

// WithName sets the name reported by Name.
func (m *MockBackend) WithName(name string) *MockBackend {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.name = name
	return m
}

// WithError makes every call fail with err.
func (m *MockBackend) WithError(err error) *MockBackend {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errorToReturn = err
	return m
}

// WithResponseFunc sets a dynamic response function.
func (m *MockBackend) WithResponseFunc(f func(prompt string, temperature float64) (string, error)) *MockBackend {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responseFunc = f
	return m
}

// WithTokensPerCall sets the TokenCount reported for each successful call.
func (m *MockBackend) WithTokensPerCall(n int) *MockBackend {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokensPerCall = n
	return m
}

// WithDelay adds artificial latency. The delay honors ctx cancellation.
func (m *MockBackend) WithDelay(d time.Duration) *MockBackend {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.delay = d
	return m
}

// QueueResponse appends responses returned in FIFO order before the default.
func (m *MockBackend) QueueResponse(texts ...string) *MockBackend {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses = append(m.responses, texts...)
	return m
}

// SetDefaultResponse sets the text returned once the queue is empty.
func (m *MockBackend) SetDefaultResponse(text string) *MockBackend {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.defaultResponse = text
	return m
}

// Name implements Backend.
func (m *MockBackend) Name() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.name
}

// Generate implements Backend.
func (m *MockBackend) Generate(ctx context.Context, prompt string, temperature float64, maxTokens int) (*Generation, error) {
	m.mu.Lock()
	m.calls = append(m.calls, GenerateCall{
		Prompt:      prompt,
		Temperature: temperature,
		MaxTokens:   maxTokens,
		Timestamp:   time.Now(),
	})
	delay := m.delay
	m.mu.Unlock()

	if delay > 0 {
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.errorToReturn != nil {
		return nil, m.errorToReturn
	}

	var text string
	switch {
	case m.responseFunc != nil:
		var err error
		text, err = m.responseFunc(prompt, temperature)
		if err != nil {
			return nil, err
		}
	case len(m.responses) > 0:
		text = m.responses[0]
		m.responses = m.responses[1:]
	default:
		text = m.defaultResponse
	}

	return &Generation{Text: text, TokenCount: m.tokensPerCall}, nil
}

// Calls returns a copy of all recorded calls.
func (m *MockBackend) Calls() []GenerateCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]GenerateCall, len(m.calls))
	copy(out, m.calls)
	return out
}

// CallCount returns the number of Generate calls made.
func (m *MockBackend) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

// Reset clears recorded calls and queued responses.
func (m *MockBackend) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = nil
	m.responses = nil
}
