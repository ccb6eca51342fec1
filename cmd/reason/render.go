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
	"cmp"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/AleutianAI/AleutianReason/pkg/ux"
	"github.com/AleutianAI/AleutianReason/services/reason/cot"
	"github.com/AleutianAI/AleutianReason/services/reason/storage"
	"github.com/AleutianAI/AleutianReason/services/reason/tot"
)

const previewLen = 100

func renderSearch(p *ux.Printer, res *tot.SearchResult, showTree bool) {
	p.Title("Thought-tree search")
	p.KeyValue("Question", res.Question)
	p.KeyValue("Strategy", res.Strategy)
	p.KeyValue("Nodes", fmt.Sprintf("%d (pruned %d, solutions %d)", res.NodeCount, res.PrunedCount, res.SolutionCount))
	p.KeyValue("Model calls", res.LLMCalls)
	p.KeyValue("Tokens", res.TokenCount)
	p.KeyValue("Duration", res.Duration.Round(time.Millisecond))
	if res.ExhaustedBy != "" {
		p.Warning("Stopped early: " + res.ExhaustedBy + " budget exhausted")
	}
	p.Raw("\n")

	if res.BestPath.IsSolution {
		p.Success("Solution found")
	} else {
		p.Muted("No solution; showing the highest-scoring path")
	}
	p.KeyValue("Path score", p.ScoreBar(res.BestPath.Score, 20))
	thoughts := res.BestPath.Thoughts()
	if len(thoughts) == 0 {
		p.Muted("  (root only)")
	}
	for i, n := range res.BestPath.Nodes[min(1, len(res.BestPath.Nodes)):] {
		p.Bullet(ux.IconArrow, fmt.Sprintf("%d. [%.2f] %s", i+1, n.Score, oneLine(n.Content, previewLen)))
	}

	if showTree {
		p.Raw("\n")
		p.Raw(tot.FormatNodes(res.Nodes, res.RootID, res.BestPath.IDs()))
	}
}

func renderChain(p *ux.Printer, res *cot.ChainResult) {
	p.Title("Chain of thought")
	p.KeyValue("Question", res.Question)
	for i, step := range res.Steps {
		p.Bullet(ux.IconBullet, fmt.Sprintf("Step %d: %s", i+1, oneLine(step, previewLen)))
	}
	answer := res.Answer
	if answer == "" {
		answer = "(no answer found)"
	}
	p.Box("Answer", answer)
	p.Muted(fmt.Sprintf("%d tokens in %s", res.Tokens, res.Duration.Round(time.Millisecond)))
}

func renderConsistency(p *ux.Printer, res *cot.ConsistencyResult) {
	p.Title("Self-consistency vote")
	p.KeyValue("Question", res.Question)
	p.KeyValue("Samples", fmt.Sprintf("%d (%d answered)", res.Samples, res.Valid))

	if res.Answer == "" {
		p.Error("No sample produced an answer")
	} else {
		p.Box("Answer", res.Answer)
		p.KeyValue("Agreement", p.ScoreBar(res.Ratio, 20))
	}

	for _, v := range sortedVotes(res.Votes) {
		p.Bullet(ux.IconBullet, fmt.Sprintf("%-3d %s", v.count, v.answer))
	}
	for i, c := range res.Chains {
		if c.Err != "" {
			p.Warning(fmt.Sprintf("sample %d failed: %s", i+1, c.Err))
		}
	}
	p.Muted(fmt.Sprintf("%d tokens in %s", res.Tokens, res.Duration.Round(time.Millisecond)))
}

func renderRunList(p *ux.Printer, runs []storage.Summary) {
	if len(runs) == 0 {
		p.Muted("No runs recorded")
		return
	}
	for _, r := range runs {
		detail := r.Answer
		if r.Kind == storage.KindSearch {
			detail = fmt.Sprintf("%s %.2f", r.Strategy, r.Score)
			if r.Solved {
				detail += " solved"
			}
		}
		p.Info(fmt.Sprintf("%s  %-5s  %s  %s  %s",
			r.ID,
			runKindLabel(r.Kind),
			r.CreatedAt.Local().Format("2006-01-02 15:04"),
			oneLine(r.Question, 48),
			detail))
	}
}

func renderRun(p *ux.Printer, run *storage.Run) {
	p.KeyValue("Run", run.ID)
	p.KeyValue("Recorded", run.CreatedAt.Local().Format(time.RFC3339))
	p.Raw("\n")
	switch {
	case run.Search != nil:
		renderSearch(p, run.Search, true)
	case run.Chain != nil:
		renderChain(p, run.Chain)
	case run.Consistency != nil:
		renderConsistency(p, run.Consistency)
	default:
		p.Warning("Run has no result")
	}
}

type vote struct {
	answer string
	count  int
}

// sortedVotes orders votes by count, then answer.
func sortedVotes(votes map[string]int) []vote {
	out := make([]vote, 0, len(votes))
	for a, n := range votes {
		out = append(out, vote{answer: a, count: n})
	}
	slices.SortFunc(out, func(x, y vote) int {
		if c := cmp.Compare(y.count, x.count); c != 0 {
			return c
		}
		return strings.Compare(x.answer, y.answer)
	})
	return out
}

// oneLine collapses whitespace and truncates to n runes.
func oneLine(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
