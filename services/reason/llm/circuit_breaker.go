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
	"sync"
	"time"
)

// BreakerState is the state of a CircuitBreaker.
type BreakerState int

const (
	// BreakerClosed passes every call through.
	BreakerClosed BreakerState = iota
	// BreakerOpen rejects calls until the cool-down elapses.
	BreakerOpen
	// BreakerHalfOpen admits a limited number of probe calls.
	BreakerHalfOpen
)

// String returns "closed", "open", "half-open" or "unknown".
func (s BreakerState) String() string {
	switch s {
	case BreakerClosed:
		return "closed"
	case BreakerOpen:
		return "open"
	case BreakerHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// BreakerConfig configures a CircuitBreaker.
type BreakerConfig struct {
	// FailureThreshold is consecutive failures before opening. Default: 5.
	FailureThreshold int `yaml:"failure_threshold" json:"failure_threshold"`

	// SuccessThreshold is probe successes needed to close again. Default: 1.
	SuccessThreshold int `yaml:"success_threshold" json:"success_threshold"`

	// Cooldown is how long the breaker stays open. Default: 30s.
	Cooldown time.Duration `yaml:"cooldown" json:"cooldown"`

	// HalfOpenProbes is the number of concurrent probes allowed. Default: 1.
	HalfOpenProbes int `yaml:"half_open_probes" json:"half_open_probes"`
}

// DefaultBreakerConfig returns the defaults used by ResilientBackend.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		FailureThreshold: 5,
		SuccessThreshold: 1,
		Cooldown:         30 * time.Second,
		HalfOpenProbes:   1,
	}
}

// BreakerStats is a snapshot of breaker counters.
type BreakerStats struct {
	State      string    `json:"state"`
	Calls      int64     `json:"calls"`
	Failures   int64     `json:"failures"`
	Rejections int64     `json:"rejections"`
	Streak     int       `json:"consecutive_failures"`
	ChangedAt  time.Time `json:"changed_at"`
}

// CircuitBreaker stops calling a backend that keeps failing.
//
// Once open, calls fail fast with ErrCircuitOpen until Cooldown elapses.
// Then HalfOpenProbes calls are admitted; SuccessThreshold successes close
// the breaker and any probe failure reopens it.
//
// Thread Safety: Safe for concurrent use.
type CircuitBreaker struct {
	cfg BreakerConfig
	now func() time.Time

	mu         sync.Mutex
	state      BreakerState
	streak     int
	probeOK    int
	probes     int
	changedAt  time.Time
	calls      int64
	failures   int64
	rejections int64
}

// NewCircuitBreaker creates a closed breaker. Zero config fields take defaults.
func NewCircuitBreaker(cfg BreakerConfig) *CircuitBreaker {
	def := DefaultBreakerConfig()
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = def.FailureThreshold
	}
	if cfg.SuccessThreshold <= 0 {
		cfg.SuccessThreshold = def.SuccessThreshold
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = def.Cooldown
	}
	if cfg.HalfOpenProbes <= 0 {
		cfg.HalfOpenProbes = def.HalfOpenProbes
	}
	cb := &CircuitBreaker{cfg: cfg, now: time.Now}
	cb.changedAt = cb.now()
	return cb
}

// State returns the current state, advancing open to half-open when the
// cool-down has elapsed.
func (cb *CircuitBreaker) State() BreakerState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.maybeHalfOpen()
	return cb.state
}

// Acquire asks permission for one call.
//
// Outputs:
//   - func(success bool): Non-nil when the call may proceed. It must be
//     called exactly once with the call outcome.
//   - error: ErrCircuitOpen when the call is rejected.
func (cb *CircuitBreaker) Acquire() (func(success bool), error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.calls++
	cb.maybeHalfOpen()

	switch cb.state {
	case BreakerOpen:
		cb.rejections++
		return nil, ErrCircuitOpen
	case BreakerHalfOpen:
		if cb.probes >= cb.cfg.HalfOpenProbes {
			cb.rejections++
			return nil, ErrCircuitOpen
		}
		cb.probes++
		return cb.done(true), nil
	default:
		return cb.done(false), nil
	}
}

func (cb *CircuitBreaker) done(probe bool) func(bool) {
	var once sync.Once
	return func(success bool) {
		once.Do(func() {
			cb.mu.Lock()
			defer cb.mu.Unlock()
			if probe && cb.probes > 0 {
				cb.probes--
			}
			if success {
				cb.onSuccess()
			} else {
				cb.onFailure()
			}
		})
	}
}

// onSuccess must be called with mu held.
func (cb *CircuitBreaker) onSuccess() {
	cb.streak = 0
	if cb.state == BreakerHalfOpen {
		cb.probeOK++
		if cb.probeOK >= cb.cfg.SuccessThreshold {
			cb.setState(BreakerClosed)
		}
	}
}

// onFailure must be called with mu held.
func (cb *CircuitBreaker) onFailure() {
	cb.failures++
	cb.streak++
	switch cb.state {
	case BreakerClosed:
		if cb.streak >= cb.cfg.FailureThreshold {
			cb.setState(BreakerOpen)
		}
	case BreakerHalfOpen:
		cb.setState(BreakerOpen)
	}
}

// maybeHalfOpen must be called with mu held.
func (cb *CircuitBreaker) maybeHalfOpen() {
	if cb.state == BreakerOpen && cb.now().Sub(cb.changedAt) >= cb.cfg.Cooldown {
		cb.setState(BreakerHalfOpen)
	}
}

// setState must be called with mu held.
func (cb *CircuitBreaker) setState(s BreakerState) {
	cb.state = s
	cb.changedAt = cb.now()
	cb.probeOK = 0
	cb.probes = 0
	if s != BreakerClosed {
		return
	}
	cb.streak = 0
}

// Stats returns a snapshot of the breaker counters.
func (cb *CircuitBreaker) Stats() BreakerStats {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return BreakerStats{
		State:      cb.state.String(),
		Calls:      cb.calls,
		Failures:   cb.failures,
		Rejections: cb.rejections,
		Streak:     cb.streak,
		ChangedAt:  cb.changedAt,
	}
}

// Reset closes the breaker and clears the failure streak. Totals are kept.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.setState(BreakerClosed)
}
