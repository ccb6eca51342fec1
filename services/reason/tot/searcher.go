// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package tot implements a bounded tree-of-thoughts search over generated
// text.
//
// A Searcher grows a ThoughtTree from a question. Each expansion asks the
// generation backend for BranchingFactor candidate next steps, scores them
// with an Evaluator, prunes those below the threshold and runs the optional
// goal check. Four orders are supported: breadth-first, depth-first,
// best-first and beam.
//
// Failures degrade instead of aborting: a failed generation becomes a
// pruned fallback leaf scored 0, a failed scoring call scores 0 and an
// unparseable score reply scores 0.5. The only error Explore returns is
// context cancellation, in which case no result is produced.
//
// Thread Safety: A Searcher is safe for concurrent use. Each Explore call
// owns its tree and budget.
package tot

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/AleutianAI/AleutianReason/services/reason/llm"
)

// DefaultRootScore is the score given to the root (the question itself).
const DefaultRootScore = 0.5

// GoalChecker reports whether node solves the problem. It is called at most
// once per surviving child, on the driver goroutine.
type GoalChecker func(ctx context.Context, node ThoughtNode) bool

// SearchOptions configures one Explore call.
type SearchOptions struct {
	Strategy         Strategy     `json:"strategy"`
	MaxDepth         int          `json:"max_depth"`
	BranchingFactor  int          `json:"branching_factor"`
	PruningThreshold float64      `json:"pruning_threshold"`
	BeamWidth        int          `json:"beam_width,omitempty"`
	Budget           BudgetConfig `json:"budget"`
	GoalChecker      GoalChecker  `json:"-"`
}

// DefaultSearchOptions returns breadth-first, depth 3, three children per
// node, threshold 0.3 and beam width 3.
func DefaultSearchOptions() SearchOptions {
	return SearchOptions{
		Strategy:         StrategyBFS,
		MaxDepth:         3,
		BranchingFactor:  3,
		PruningThreshold: 0.3,
		BeamWidth:        3,
	}
}

// Searcher runs thought-tree searches against one backend.
type Searcher struct {
	generator   Generator
	evaluator   Evaluator
	logger      *slog.Logger
	tracer      *searchTracer
	concurrency int
	rootScore   float64
	tracing     bool
	temperature float64
	maxTokens   int
}

// SearcherOption configures a Searcher.
type SearcherOption func(*Searcher)

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(logger *slog.Logger) SearcherOption {
	return func(s *Searcher) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithGenerator replaces the backend-driven thought generator.
func WithGenerator(g Generator) SearcherOption {
	return func(s *Searcher) { s.generator = g }
}

// WithEvaluator replaces the backend-driven evaluator.
func WithEvaluator(e Evaluator) SearcherOption {
	return func(s *Searcher) { s.evaluator = e }
}

// WithConcurrency limits concurrent sibling generations. Default: 8.
func WithConcurrency(n int) SearcherOption {
	return func(s *Searcher) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// WithRootScore sets the root node score. Default: DefaultRootScore.
func WithRootScore(score float64) SearcherOption {
	return func(s *Searcher) { s.rootScore = score }
}

// WithTracing enables OpenTelemetry spans. Default: true.
func WithTracing(enabled bool) SearcherOption {
	return func(s *Searcher) { s.tracing = enabled }
}

// WithGenerationParams sets thought sampling temperature and token cap.
// Default: 0.7 and 256.
func WithGenerationParams(temperature float64, maxTokens int) SearcherOption {
	return func(s *Searcher) {
		s.temperature = temperature
		s.maxTokens = maxTokens
	}
}

// NewSearcher creates a Searcher over backend.
//
// Outputs:
//   - *Searcher: Ready to use.
//   - error: ErrNilBackend if backend is nil and no generator and evaluator
//     were supplied.
func NewSearcher(backend llm.Backend, opts ...SearcherOption) (*Searcher, error) {
	s := &Searcher{
		logger:      slog.Default(),
		concurrency: 8,
		rootScore:   DefaultRootScore,
		tracing:     true,
		temperature: 0.7,
		maxTokens:   256,
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.generator == nil || s.evaluator == nil {
		if backend == nil {
			return nil, ErrNilBackend
		}
		if s.generator == nil {
			s.generator = NewLLMGenerator(backend, s.temperature, s.maxTokens)
		}
		if s.evaluator == nil {
			s.evaluator = NewLLMEvaluator(backend, s.logger)
		}
	}
	s.tracer = newSearchTracer(s.logger, s.tracing)
	return s, nil
}

// Explore searches for a reasoning path answering question.
//
// Inputs:
//   - ctx: Cancellation context. Cancellation discards the run.
//   - question: The problem statement, stored as the root content.
//   - opts: Strategy and limits. MaxDepth <= 0, BranchingFactor <= 0 or an
//     unknown strategy yield a root-only result.
//
// Outputs:
//   - *SearchResult: The immutable outcome. Nil only on error.
//   - error: ctx.Err() if the context ended before the search finished.
func (s *Searcher) Explore(ctx context.Context, question string, opts SearchOptions) (*SearchResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	run := &searchRun{
		s:        s,
		id:       uuid.NewString(),
		question: question,
		opts:     opts,
		tree:     NewThoughtTree(question, s.rootScore),
		budget:   NewRunBudget(opts.Budget),
		started:  time.Now(),
	}
	run.logger = s.logger.With(slog.String("run_id", run.id))

	ctx, span := s.tracer.startRun(ctx, run.id, question, opts)
	run.logger = LoggerWithTrace(ctx, run.logger)

	var err error
	switch {
	case opts.MaxDepth <= 0 || opts.BranchingFactor <= 0:
		run.trivial = true
		run.logger.Debug("Search has nothing to expand",
			slog.Int("max_depth", opts.MaxDepth),
			slog.Int("branching_factor", opts.BranchingFactor))
	case !opts.Strategy.Valid():
		run.trivial = true
		run.logger.Warn("Unknown strategy, returning root only", slog.String("strategy", string(opts.Strategy)))
	case opts.Strategy == StrategyBeam:
		err = run.beam(ctx)
	default:
		err = run.frontierSearch(ctx)
	}

	if err != nil {
		s.tracer.endRun(ctx, span, nil, err)
		recordRun(opts.Strategy, "cancelled", time.Since(run.started), 0)
		return nil, err
	}

	result := run.result()
	s.tracer.endRun(ctx, span, result, nil)
	recordRun(opts.Strategy, run.outcome(), result.Duration, result.BestPath.Score)
	return result, nil
}

// searchRun is the per-call state of Explore. Only the driver goroutine
// mutates the tree.
type searchRun struct {
	s        *Searcher
	id       string
	question string
	opts     SearchOptions
	tree     *ThoughtTree
	budget   *RunBudget
	logger   *slog.Logger
	started  time.Time

	trivial   bool
	solutions int
}

// frontierSearch runs breadth-first, depth-first or best-first search.
func (r *searchRun) frontierSearch(ctx context.Context) error {
	f := newFrontier(r.opts.Strategy)
	f.push(RootID, r.s.rootScore)

	for f.len() > 0 {
		if err := ctx.Err(); err != nil {
			return err
		}
		if r.stopForBudget() {
			return nil
		}

		id, _ := f.pop()
		node, ok := r.tree.Node(id)
		if !ok || node.Depth >= r.opts.MaxDepth {
			continue
		}

		survivors, solved, err := r.expand(ctx, node, true)
		if err != nil {
			return err
		}
		if solved {
			r.logger.Debug("Goal reached, stopping early")
			return nil
		}
		for _, c := range survivors {
			f.push(c.ID, c.Score)
		}
	}
	return nil
}

// beam keeps the BeamWidth best nodes per depth level.
func (r *searchRun) beam(ctx context.Context) error {
	width := r.opts.BeamWidth
	if width <= 0 {
		width = r.opts.BranchingFactor
	}

	root, _ := r.tree.Node(RootID)
	level := []*ThoughtNode{root}

	for depth := 0; depth < r.opts.MaxDepth && len(level) > 0; depth++ {
		var candidates []*ThoughtNode
		for _, node := range level {
			if err := ctx.Err(); err != nil {
				return err
			}
			if r.stopForBudget() {
				break
			}
			survivors, _, err := r.expand(ctx, node, false)
			if err != nil {
				return err
			}
			candidates = append(candidates, survivors...)
		}

		sort.SliceStable(candidates, func(i, j int) bool {
			return candidates[i].Score > candidates[j].Score
		})
		if len(candidates) > width {
			for _, c := range candidates[width:] {
				r.prune(c.ID, "beam")
			}
			candidates = candidates[:width]
		}

		next := make([]*ThoughtNode, 0, len(candidates))
		for _, c := range candidates {
			if r.checkGoal(ctx, c) {
				continue
			}
			next = append(next, c)
		}
		level = next

		if r.budget.ExhaustedBy() != "" {
			break
		}
	}
	return nil
}

// childOutcome is what a worker produces for one child.
type childOutcome struct {
	content string
	tokens  int
	score   float64
	failed  bool
	err     error
}

// expand generates and scores BranchingFactor children of parent.
//
// Children are inserted in order before the fan-out, so ids and sibling
// order do not depend on completion order. Survivors are returned in
// insertion order. solved is true when a goal check succeeded.
func (r *searchRun) expand(ctx context.Context, parent *ThoughtNode, goalCheck bool) (survivors []*ThoughtNode, solved bool, err error) {
	n := r.opts.BranchingFactor
	if left := r.budget.NodesRemaining(); left >= 0 && left < n {
		n = left
	}
	if n <= 0 {
		return nil, false, nil
	}

	ctx, span := r.s.tracer.startExpand(ctx, parent, n)
	pruned := 0
	defer func() { r.s.tracer.endExpand(span, len(survivors), pruned) }()

	ids := make([]string, n)
	for i := range ids {
		id, err := r.tree.AddChild(parent.ID)
		if err != nil {
			return nil, false, err
		}
		if err := r.tree.Transition(id, StateExploring); err != nil {
			return nil, false, err
		}
		r.budget.RecordNode()
		ids[i] = id
	}
	recordGenerated(r.opts.Strategy, n)

	steps := r.tree.Steps(parent.ID)
	outcomes := make([]childOutcome, n)

	var g errgroup.Group
	g.SetLimit(r.s.concurrency)
	for i, id := range ids {
		g.Go(func() error {
			outcomes[i] = r.develop(ctx, id, steps, i, n)
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	for i, id := range ids {
		o := outcomes[i]
		if err := r.tree.SetContent(id, o.content, o.tokens, o.failed); err != nil {
			return nil, false, err
		}
		if err := r.tree.SetScore(id, o.score); err != nil {
			return nil, false, err
		}
		child, _ := r.tree.Node(id)

		switch {
		case o.failed:
			logGenerationFailure(r.logger, id, o.err)
			r.prune(id, "generation_failed")
			pruned++
		case child.Score < r.opts.PruningThreshold:
			r.prune(id, "threshold")
			pruned++
		case goalCheck && r.checkGoal(ctx, child):
			solved = true
		default:
			survivors = append(survivors, child)
		}
	}
	return survivors, solved, nil
}

// develop generates and scores one child. Runs on a worker goroutine and
// touches only the budget counters.
func (r *searchRun) develop(ctx context.Context, id string, steps []string, index, total int) childOutcome {
	thought, err := r.s.generator.Generate(ctx, ThoughtRequest{
		Question: r.question,
		Steps:    steps,
		Index:    index,
		Total:    total,
	})
	tokens := 0
	if thought != nil {
		tokens = thought.Tokens
	}
	r.budget.RecordLLMCall(tokens)
	if err != nil {
		return childOutcome{content: fallbackThought(err), tokens: tokens, score: 0, failed: true, err: err}
	}

	ev := r.s.evaluator.Evaluate(ctx, EvaluationRequest{
		NodeID:   id,
		Question: r.question,
		Steps:    steps,
		Thought:  thought.Content,
	})
	r.budget.RecordLLMCall(ev.Tokens)
	recordEvaluation(ev)

	return childOutcome{content: thought.Content, tokens: tokens + ev.Tokens, score: ev.Score}
}

// checkGoal runs the goal predicate once and marks a match as a solution.
func (r *searchRun) checkGoal(ctx context.Context, node *ThoughtNode) bool {
	if r.opts.GoalChecker == nil || !r.opts.GoalChecker(ctx, *node) {
		return false
	}
	if err := r.tree.Transition(node.ID, StateSolution); err != nil {
		r.logger.Error("Failed to mark solution", slog.String("node_id", node.ID), slog.String("error", err.Error()))
		return false
	}
	r.solutions++
	r.logger.Info("Solution found", slog.String("node_id", node.ID), slog.Int("depth", node.Depth))
	return true
}

func (r *searchRun) prune(id, reason string) {
	if err := r.tree.Transition(id, StatePruned); err != nil {
		r.logger.Error("Failed to prune node", slog.String("node_id", id), slog.String("error", err.Error()))
		return
	}
	recordPruned(r.opts.Strategy, reason)
}

// stopForBudget reports exhaustion, logging it once.
func (r *searchRun) stopForBudget() bool {
	already := r.budget.ExhaustedBy() != ""
	if err := r.budget.Check(); err != nil {
		if !already {
			r.logger.Warn("Search budget exhausted", slog.String("limit", r.budget.ExhaustedBy()), slog.String("budget", r.budget.String()))
		}
		return true
	}
	return false
}

func (r *searchRun) outcome() string {
	switch {
	case r.trivial:
		return "trivial"
	case r.solutions > 0:
		return "solved"
	case r.budget.ExhaustedBy() != "":
		return "budget_exhausted"
	default:
		return "completed"
	}
}
