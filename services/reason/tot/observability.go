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
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/AleutianAI/AleutianReason/services/reason/llm"
)

const totTracerName = "aleutian.reason.tot"

// searchTracer emits spans and structured logs for search runs.
//
// Thread Safety: Safe for concurrent use.
type searchTracer struct {
	tracer  trace.Tracer
	logger  *slog.Logger
	enabled bool
}

func newSearchTracer(logger *slog.Logger, enabled bool) *searchTracer {
	return &searchTracer{
		tracer:  otel.Tracer(totTracerName),
		logger:  logger,
		enabled: enabled,
	}
}

// startRun opens the span covering one Explore call.
func (t *searchTracer) startRun(ctx context.Context, runID, question string, opts SearchOptions) (context.Context, trace.Span) {
	t.logger.InfoContext(ctx, "Search started",
		slog.String("run_id", runID),
		slog.String("strategy", opts.Strategy.String()),
		slog.Int("max_depth", opts.MaxDepth),
		slog.Int("branching_factor", opts.BranchingFactor),
		slog.Float64("pruning_threshold", opts.PruningThreshold),
		slog.String("question", llm.Preview(question, 100)),
	)
	if !t.enabled {
		return ctx, noop.Span{}
	}
	return t.tracer.Start(ctx, "tot.explore",
		trace.WithAttributes(
			attribute.String("tot.run_id", runID),
			attribute.String("tot.strategy", opts.Strategy.String()),
			attribute.Int("tot.max_depth", opts.MaxDepth),
			attribute.Int("tot.branching_factor", opts.BranchingFactor),
			attribute.Int("tot.beam_width", opts.BeamWidth),
			attribute.Float64("tot.pruning_threshold", opts.PruningThreshold),
		),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}

// endRun closes the run span.
func (t *searchTracer) endRun(ctx context.Context, span trace.Span, result *SearchResult, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		span.End()
		t.logger.WarnContext(ctx, "Search aborted", slog.String("error", err.Error()))
		return
	}

	span.SetAttributes(
		attribute.Int("tot.result.nodes", result.NodeCount),
		attribute.Int("tot.result.pruned", result.PrunedCount),
		attribute.Int("tot.result.tokens", result.TokenCount),
		attribute.Float64("tot.result.best_score", result.BestPath.Score),
		attribute.Bool("tot.result.solved", result.BestPath.IsSolution),
	)
	span.SetStatus(codes.Ok, "")
	span.End()

	t.logger.InfoContext(ctx, "Search completed",
		slog.String("run_id", result.RunID),
		slog.Int("nodes", result.NodeCount),
		slog.Int("pruned", result.PrunedCount),
		slog.Int("tokens", result.TokenCount),
		slog.Float64("best_score", result.BestPath.Score),
		slog.Bool("solved", result.BestPath.IsSolution),
		slog.String("exhausted_by", result.ExhaustedBy),
		slog.Duration("elapsed", result.Duration),
	)
}

// startExpand opens a span for one node expansion.
func (t *searchTracer) startExpand(ctx context.Context, parent *ThoughtNode, children int) (context.Context, trace.Span) {
	t.logger.DebugContext(ctx, "Expanding node",
		slog.String("node_id", parent.ID),
		slog.Int("depth", parent.Depth),
		slog.Int("children", children),
	)
	if !t.enabled {
		return ctx, noop.Span{}
	}
	return t.tracer.Start(ctx, "tot.expand",
		trace.WithAttributes(
			attribute.String("tot.node_id", parent.ID),
			attribute.Int("tot.depth", parent.Depth),
			attribute.Int("tot.children", children),
		),
	)
}

// endExpand closes an expansion span.
func (t *searchTracer) endExpand(span trace.Span, survivors, pruned int) {
	span.SetAttributes(
		attribute.Int("tot.survivors", survivors),
		attribute.Int("tot.pruned", pruned),
	)
	span.End()
}

// LoggerWithTrace returns a logger carrying the trace and span ids of ctx.
func LoggerWithTrace(ctx context.Context, logger *slog.Logger) *slog.Logger {
	sc := trace.SpanContextFromContext(ctx)
	if !sc.IsValid() {
		return logger
	}
	return logger.With(
		slog.String("trace_id", sc.TraceID().String()),
		slog.String("span_id", sc.SpanID().String()),
	)
}
