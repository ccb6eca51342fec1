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
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noSleep(ctx context.Context, _ time.Duration) error {
	return ctx.Err()
}

func TestResilientBackend_RetriesThenSucceeds(t *testing.T) {
	var calls int32
	mock := NewMockBackend().WithResponseFunc(func(string, float64) (string, error) {
		if atomic.AddInt32(&calls, 1) < 3 {
			return "", errors.New("transient")
		}
		return "ok", nil
	})

	rb := NewResilientBackend(mock, ResilienceConfig{Retry: RetryConfig{MaxAttempts: 3}}, nil)
	rb.sleep = noSleep

	gen, err := rb.Generate(context.Background(), "prompt", 0.7, 64)
	require.NoError(t, err)
	assert.Equal(t, "ok", gen.Text)
	assert.Equal(t, 3, mock.CallCount())
	assert.Equal(t, "mock", rb.Name())
}

func TestResilientBackend_ExhaustsRetries(t *testing.T) {
	mock := NewMockBackend().WithError(ErrMockFailure)
	rb := NewResilientBackend(mock, ResilienceConfig{
		Retry:   RetryConfig{MaxAttempts: 2},
		Breaker: BreakerConfig{FailureThreshold: 100},
	}, nil)
	rb.sleep = noSleep

	_, err := rb.Generate(context.Background(), "prompt", 0, 0)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRetriesExhausted)
	assert.ErrorIs(t, err, ErrMockFailure)
	assert.Equal(t, 2, mock.CallCount())
}

func TestResilientBackend_BreakerFailsFast(t *testing.T) {
	mock := NewMockBackend().WithError(ErrMockFailure)
	rb := NewResilientBackend(mock, ResilienceConfig{
		Retry:   RetryConfig{MaxAttempts: 1},
		Breaker: BreakerConfig{FailureThreshold: 2, Cooldown: time.Hour},
	}, nil)
	rb.sleep = noSleep

	for i := 0; i < 2; i++ {
		_, _ = rb.Generate(context.Background(), "prompt", 0, 0)
	}
	_, err := rb.Generate(context.Background(), "prompt", 0, 0)

	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.Equal(t, 2, mock.CallCount(), "open breaker must not reach the backend")
	assert.Equal(t, BreakerOpen, rb.Breaker().State())
}

func TestResilientBackend_DoesNotRetryCancellation(t *testing.T) {
	mock := NewMockBackend()
	rb := NewResilientBackend(mock, DefaultResilienceConfig(), nil)
	rb.sleep = noSleep

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := rb.Generate(ctx, "prompt", 0, 0)
	assert.ErrorIs(t, err, context.Canceled)
	assert.LessOrEqual(t, mock.CallCount(), 1)
}

func TestResilientBackend_Backoff(t *testing.T) {
	rb := NewResilientBackend(NewMockBackend(), ResilienceConfig{
		Retry: RetryConfig{MaxAttempts: 5, BaseDelay: 100 * time.Millisecond, MaxDelay: 300 * time.Millisecond},
	}, nil)

	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{2, 100 * time.Millisecond},
		{3, 200 * time.Millisecond},
		{4, 300 * time.Millisecond},
		{5, 300 * time.Millisecond},
	}
	for _, tt := range tests {
		if got := rb.backoff(tt.attempt); got != tt.want {
			t.Errorf("backoff(%d) = %v, want %v", tt.attempt, got, tt.want)
		}
	}
}
