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
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// strategyLabel keeps label cardinality bounded.
func strategyLabel(s Strategy) string {
	if s.Valid() {
		return string(s)
	}
	return "unknown"
}

var (
	// searchRunsTotal counts completed runs.
	//
	// Labels:
	//   - strategy: bfs, dfs, best_first, beam or unknown
	//   - outcome: "solved", "completed", "budget_exhausted", "trivial" or "cancelled"
	searchRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "reason",
			Subsystem: "tot",
			Name:      "runs_total",
			Help:      "Total thought-tree searches by strategy and outcome",
		},
		[]string{"strategy", "outcome"},
	)

	// searchDuration records run wall time.
	searchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "reason",
			Subsystem: "tot",
			Name:      "run_duration_seconds",
			Help:      "Thought-tree search duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		},
		[]string{"strategy"},
	)

	// nodesGeneratedTotal counts generated thought nodes.
	nodesGeneratedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "reason",
			Subsystem: "tot",
			Name:      "nodes_generated_total",
			Help:      "Total thought nodes generated",
		},
		[]string{"strategy"},
	)

	// nodesPrunedTotal counts pruned nodes.
	//
	// Labels:
	//   - reason: "threshold", "beam" or "generation_failed"
	nodesPrunedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "reason",
			Subsystem: "tot",
			Name:      "nodes_pruned_total",
			Help:      "Total thought nodes pruned",
		},
		[]string{"strategy", "reason"},
	)

	// evaluationsTotal counts scoring calls by result.
	//
	// Labels:
	//   - result: "parsed", "unparsed" or "failed"
	evaluationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "reason",
			Subsystem: "tot",
			Name:      "evaluations_total",
			Help:      "Total thought evaluations by result",
		},
		[]string{"result"},
	)

	// bestPathScore records the best path aggregate score per run.
	bestPathScore = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "reason",
			Subsystem: "tot",
			Name:      "best_path_score",
			Help:      "Aggregate score of the returned best path",
			Buckets:   prometheus.LinearBuckets(0, 0.1, 11),
		},
		[]string{"strategy"},
	)
)

func recordRun(s Strategy, outcome string, d time.Duration, score float64) {
	label := strategyLabel(s)
	searchRunsTotal.WithLabelValues(label, outcome).Inc()
	searchDuration.WithLabelValues(label).Observe(d.Seconds())
	bestPathScore.WithLabelValues(label).Observe(score)
}

func recordGenerated(s Strategy, n int) {
	nodesGeneratedTotal.WithLabelValues(strategyLabel(s)).Add(float64(n))
}

func recordPruned(s Strategy, reason string) {
	nodesPrunedTotal.WithLabelValues(strategyLabel(s), reason).Inc()
}

func recordEvaluation(ev Evaluation) {
	switch {
	case ev.Err != nil:
		evaluationsTotal.WithLabelValues("failed").Inc()
	case ev.Parsed:
		evaluationsTotal.WithLabelValues("parsed").Inc()
	default:
		evaluationsTotal.WithLabelValues("unparsed").Inc()
	}
}
