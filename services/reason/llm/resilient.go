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
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/time/rate"
)

// RetryConfig controls retries in ResilientBackend.
type RetryConfig struct {
	// MaxAttempts including the first call. Default: 3.
	MaxAttempts int `yaml:"max_attempts" json:"max_attempts"`

	// BaseDelay is the first backoff delay, doubled per attempt. Default: 500ms.
	BaseDelay time.Duration `yaml:"base_delay" json:"base_delay"`

	// MaxDelay caps the backoff delay. Default: 10s.
	MaxDelay time.Duration `yaml:"max_delay" json:"max_delay"`
}

// ResilienceConfig configures ResilientBackend.
type ResilienceConfig struct {
	// RequestsPerSecond limits call rate. Zero disables limiting.
	RequestsPerSecond float64 `yaml:"requests_per_second" json:"requests_per_second"`

	// Burst is the limiter bucket size. Default: 1.
	Burst int `yaml:"burst" json:"burst"`

	Retry   RetryConfig   `yaml:"retry" json:"retry"`
	Breaker BreakerConfig `yaml:"breaker" json:"breaker"`
}

// DefaultResilienceConfig returns the defaults.
func DefaultResilienceConfig() ResilienceConfig {
	return ResilienceConfig{
		RequestsPerSecond: 0,
		Burst:             1,
		Retry: RetryConfig{
			MaxAttempts: 3,
			BaseDelay:   500 * time.Millisecond,
			MaxDelay:    10 * time.Second,
		},
		Breaker: DefaultBreakerConfig(),
	}
}

// ResilientBackend wraps a Backend with rate limiting, retries with
// exponential backoff, and a circuit breaker.
//
// Thread Safety: Safe for concurrent use.
type ResilientBackend struct {
	inner   Backend
	limiter *rate.Limiter
	breaker *CircuitBreaker
	retry   RetryConfig
	logger  *slog.Logger
	sleep   func(ctx context.Context, d time.Duration) error
}

// NewResilientBackend wraps inner.
func NewResilientBackend(inner Backend, cfg ResilienceConfig, logger *slog.Logger) *ResilientBackend {
	if logger == nil {
		logger = slog.Default()
	}
	def := DefaultResilienceConfig()
	if cfg.Retry.MaxAttempts <= 0 {
		cfg.Retry.MaxAttempts = def.Retry.MaxAttempts
	}
	if cfg.Retry.BaseDelay <= 0 {
		cfg.Retry.BaseDelay = def.Retry.BaseDelay
	}
	if cfg.Retry.MaxDelay <= 0 {
		cfg.Retry.MaxDelay = def.Retry.MaxDelay
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 1
	}

	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}

	return &ResilientBackend{
		inner:   inner,
		limiter: rate.NewLimiter(limit, cfg.Burst),
		breaker: NewCircuitBreaker(cfg.Breaker),
		retry:   cfg.Retry,
		logger:  logger.With(slog.String("backend", inner.Name())),
		sleep:   sleepCtx,
	}
}

// Name implements Backend.
func (r *ResilientBackend) Name() string {
	return r.inner.Name()
}

// Breaker exposes the circuit breaker for health reporting.
func (r *ResilientBackend) Breaker() *CircuitBreaker {
	return r.breaker
}

// Generate implements Backend.
func (r *ResilientBackend) Generate(ctx context.Context, prompt string, temperature float64, maxTokens int) (*Generation, error) {
	start := time.Now()
	gen, err := r.generate(ctx, prompt, temperature, maxTokens)

	outcome := "success"
	tokens := 0
	switch {
	case errors.Is(err, ErrCircuitOpen):
		outcome = "rejected"
	case err != nil:
		outcome = "failure"
	default:
		tokens = gen.TokenCount
	}
	recordCall(ctx, r.inner.Name(), time.Since(start), tokens, outcome)
	return gen, err
}

func (r *ResilientBackend) generate(ctx context.Context, prompt string, temperature float64, maxTokens int) (*Generation, error) {
	var lastErr error
	for attempt := 1; attempt <= r.retry.MaxAttempts; attempt++ {
		if attempt > 1 {
			recordRetry(ctx, r.inner.Name())
			if err := r.sleep(ctx, r.backoff(attempt)); err != nil {
				return nil, err
			}
		}

		if err := r.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter: %w", err)
		}

		done, err := r.breaker.Acquire()
		if err != nil {
			return nil, err
		}

		gen, err := r.inner.Generate(ctx, prompt, temperature, maxTokens)
		done(err == nil)
		if err == nil {
			return gen, nil
		}
		lastErr = err

		if !retryable(ctx, err) {
			return nil, err
		}
		r.logger.Warn("Generation failed, retrying",
			slog.Int("attempt", attempt),
			slog.Int("max_attempts", r.retry.MaxAttempts),
			slog.String("error", err.Error()))
	}
	return nil, fmt.Errorf("%w after %d attempts: %w", ErrRetriesExhausted, r.retry.MaxAttempts, lastErr)
}

// backoff returns the delay before attempt (2-based).
func (r *ResilientBackend) backoff(attempt int) time.Duration {
	d := r.retry.BaseDelay << (attempt - 2)
	if d <= 0 || d > r.retry.MaxDelay {
		return r.retry.MaxDelay
	}
	return d
}

func retryable(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return false
	}
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return false
	case errors.Is(err, ErrEmptyPrompt), errors.Is(err, ErrCircuitOpen), errors.Is(err, ErrMissingAPIKey):
		return false
	}
	return true
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
