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
	"fmt"
	"strings"
)

// Strategy selects the search order.
type Strategy string

const (
	StrategyBFS       Strategy = "bfs"
	StrategyDFS       Strategy = "dfs"
	StrategyBestFirst Strategy = "best_first"
	StrategyBeam      Strategy = "beam"
)

// Strategies lists every supported strategy.
func Strategies() []Strategy {
	return []Strategy{StrategyBFS, StrategyDFS, StrategyBestFirst, StrategyBeam}
}

// Valid reports whether s is a supported strategy.
func (s Strategy) Valid() bool {
	switch s {
	case StrategyBFS, StrategyDFS, StrategyBestFirst, StrategyBeam:
		return true
	}
	return false
}

// String returns the canonical strategy name.
func (s Strategy) String() string {
	return string(s)
}

// ParseStrategy accepts canonical names and common aliases such as
// "breadth-first", "depth_first", "best" or "beam-search".
func ParseStrategy(name string) (Strategy, error) {
	key := strings.NewReplacer("-", "_", " ", "_").Replace(strings.ToLower(strings.TrimSpace(name)))
	switch key {
	case "bfs", "breadth_first", "breadth":
		return StrategyBFS, nil
	case "dfs", "depth_first", "depth":
		return StrategyDFS, nil
	case "best_first", "best", "bestfirst", "greedy":
		return StrategyBestFirst, nil
	case "beam", "beam_search":
		return StrategyBeam, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownStrategy, name)
}
