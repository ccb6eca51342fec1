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

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var meter = otel.Meter("aleutian.reason.llm")

var (
	callLatency  metric.Float64Histogram
	callTotal    metric.Int64Counter
	tokensTotal  metric.Int64Counter
	retriesTotal metric.Int64Counter

	metricsOnce sync.Once
	metricsErr  error
)

// initMetrics initializes the metrics. Safe to call multiple times.
func initMetrics() error {
	metricsOnce.Do(func() {
		var err error

		callLatency, err = meter.Float64Histogram(
			"reason_llm_call_duration_seconds",
			metric.WithDescription("Duration of generation backend calls"),
			metric.WithUnit("s"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		callTotal, err = meter.Int64Counter(
			"reason_llm_calls_total",
			metric.WithDescription("Total generation backend calls by outcome"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		tokensTotal, err = meter.Int64Counter(
			"reason_llm_tokens_total",
			metric.WithDescription("Total tokens consumed by generation calls"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		retriesTotal, err = meter.Int64Counter(
			"reason_llm_retries_total",
			metric.WithDescription("Total retried generation calls"),
		)
		if err != nil {
			metricsErr = err
			return
		}
	})
	return metricsErr
}

// recordCall records one logical call (after retries) for backend.
func recordCall(ctx context.Context, backend string, duration time.Duration, tokens int, outcome string) {
	if err := initMetrics(); err != nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("backend", backend),
		attribute.String("outcome", outcome),
	)
	callLatency.Record(ctx, duration.Seconds(), attrs)
	callTotal.Add(ctx, 1, attrs)
	if tokens > 0 {
		tokensTotal.Add(ctx, int64(tokens), metric.WithAttributes(attribute.String("backend", backend)))
	}
}

func recordRetry(ctx context.Context, backend string) {
	if err := initMetrics(); err != nil {
		return
	}
	retriesTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("backend", backend)))
}
