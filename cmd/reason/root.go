// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/AleutianReason/services/reason/cot"
	"github.com/AleutianAI/AleutianReason/services/reason/storage"
	"github.com/AleutianAI/AleutianReason/services/reason/tot"
)

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}

	root := &cobra.Command{
		Use:   "reason",
		Short: "Explore questions with thought-tree search and chain-of-thought prompting",
		Long: `reason asks a language model to propose, score and prune intermediate
reasoning steps, searching the resulting tree for the most promising line of
thought. It also runs single chains of thought and self-consistency votes.`,
		SilenceUsage: true,
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&opts.configPath, "config", "c", "", "config file (YAML or JSON)")
	pf.BoolVar(&opts.jsonOut, "json", false, "print results as JSON")
	pf.BoolVar(&opts.plain, "plain", false, "disable colors")
	pf.StringVar(&opts.provider, "provider", "", "backend provider: openai, ollama, langchain-ollama or mock")
	pf.StringVar(&opts.model, "model", "", "model name")
	pf.StringVar(&opts.logLevel, "log-level", "info", "log level: debug, info, warn or error")
	pf.StringVar(&opts.logFormat, "log-format", "auto", "log format: auto, text or json")
	pf.BoolVar(&opts.noSave, "no-save", false, "do not record the run in history")

	root.AddCommand(
		newExploreCmd(opts),
		newChainCmd(opts),
		newConsistencyCmd(opts),
		newServeCmd(opts),
		newRunsCmd(opts),
	)
	return root
}

// exploreFlags are the search overrides of the explore command.
type exploreFlags struct {
	strategy     string
	depth        int
	branching    int
	threshold    float64
	beamWidth    int
	maxNodes     int
	maxCalls     int
	maxTokens    int
	timeLimit    time.Duration
	expect       string
	stopOnAnswer bool
	tree         bool
}

func newExploreCmd(opts *globalOptions) *cobra.Command {
	f := &exploreFlags{}
	cmd := &cobra.Command{
		Use:   "explore [question]",
		Short: "Search a tree of generated thoughts for the best reasoning path",
		Example: `  reason explore "How many weighings find the odd coin among 12?"
  reason explore --strategy beam --beam-width 2 --depth 4 "Plan a three-day trip to Kyoto"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExplore(cmd, opts, f, strings.Join(args, " "))
		},
	}

	fl := cmd.Flags()
	fl.StringVarP(&f.strategy, "strategy", "s", "", "search strategy: "+strings.Join(strategyNames, ", "))
	fl.IntVarP(&f.depth, "depth", "d", 0, "maximum tree depth")
	fl.IntVarP(&f.branching, "branching", "b", 0, "children generated per expansion")
	fl.Float64Var(&f.threshold, "threshold", 0, "prune children scoring below this")
	fl.IntVar(&f.beamWidth, "beam-width", 0, "nodes kept per level by beam search")
	fl.IntVar(&f.maxNodes, "max-nodes", 0, "stop after generating this many nodes")
	fl.IntVar(&f.maxCalls, "max-calls", 0, "stop after this many model calls")
	fl.IntVar(&f.maxTokens, "max-tokens", 0, "stop after this many tokens")
	fl.DurationVar(&f.timeLimit, "time-limit", 0, "stop expanding after this long")
	fl.StringVar(&f.expect, "expect", "", "stop at a thought stating this answer")
	fl.BoolVar(&f.stopOnAnswer, "stop-on-answer", false, "stop at any thought stating a final answer")
	fl.BoolVar(&f.tree, "tree", false, "print the explored tree")
	return cmd
}

func runExplore(cmd *cobra.Command, opts *globalOptions, f *exploreFlags, question string) error {
	a, err := newApp(cmd, opts, "reason-cli", appNeeds{backend: true, store: true})
	if err != nil {
		return err
	}
	defer a.Close()

	search := a.cfg.Search
	fl := cmd.Flags()
	if fl.Changed("strategy") {
		search.Strategy = f.strategy
	}
	if fl.Changed("depth") {
		search.MaxDepth = f.depth
	}
	if fl.Changed("branching") {
		search.BranchingFactor = f.branching
	}
	if fl.Changed("threshold") {
		search.PruningThreshold = f.threshold
	}
	if fl.Changed("beam-width") {
		search.BeamWidth = f.beamWidth
	}
	if fl.Changed("max-nodes") {
		search.Budget.MaxNodes = f.maxNodes
	}
	if fl.Changed("max-calls") {
		search.Budget.MaxLLMCalls = f.maxCalls
	}
	if fl.Changed("max-tokens") {
		search.Budget.MaxTokens = f.maxTokens
	}
	if fl.Changed("time-limit") {
		search.Budget.TimeLimit = f.timeLimit
	}

	searchOpts, err := search.Options()
	if err != nil {
		return err
	}
	overridden := a.cfg
	overridden.Search = search
	if err := overridden.Validate(); err != nil {
		return err
	}
	switch {
	case f.expect != "":
		searchOpts.GoalChecker = cot.ExpectAnswer(f.expect)
	case f.stopOnAnswer:
		searchOpts.GoalChecker = cot.AnswerGoal()
	}

	searcher, err := a.searcher()
	if err != nil {
		return err
	}
	res, err := searcher.Explore(cmd.Context(), question, searchOpts)
	if err != nil {
		return fmt.Errorf("explore: %w", err)
	}
	a.save(cmd.Context(), storage.SearchRun(res))

	if a.jsonOut {
		return writeJSON(a.writer(), res)
	}
	renderSearch(a.out, res, f.tree)
	return nil
}

func newChainCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "chain [question]",
		Short: "Answer with a single chain of thought",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd, opts, "reason-cli", appNeeds{backend: true, store: true})
			if err != nil {
				return err
			}
			defer a.Close()

			reasoner, err := a.reasoner()
			if err != nil {
				return err
			}
			res, err := reasoner.Chain(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return err
			}
			a.save(cmd.Context(), storage.ChainRun(res))

			if a.jsonOut {
				return writeJSON(a.writer(), res)
			}
			renderChain(a.out, res)
			return nil
		},
	}
}

func newConsistencyCmd(opts *globalOptions) *cobra.Command {
	var samples int
	cmd := &cobra.Command{
		Use:   "consistency [question]",
		Short: "Sample several chains of thought and vote on the answer",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd, opts, "reason-cli", appNeeds{backend: true, store: true})
			if err != nil {
				return err
			}
			defer a.Close()

			n := a.cfg.Reasoning.Samples
			if cmd.Flags().Changed("samples") {
				n = samples
			}
			reasoner, err := a.reasoner()
			if err != nil {
				return err
			}
			res, err := reasoner.SelfConsistency(cmd.Context(), strings.Join(args, " "), n)
			if err != nil {
				return err
			}
			a.save(cmd.Context(), storage.ConsistencyRun(res))

			if a.jsonOut {
				return writeJSON(a.writer(), res)
			}
			renderConsistency(a.out, res)
			return nil
		},
	}
	cmd.Flags().IntVarP(&samples, "samples", "n", 0, "number of independent chains")
	return cmd
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// strategyNames lists the accepted --strategy values.
var strategyNames = []string{
	string(tot.StrategyBFS),
	string(tot.StrategyDFS),
	string(tot.StrategyBestFirst),
	string(tot.StrategyBeam),
}
