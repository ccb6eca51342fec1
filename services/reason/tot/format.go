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
	"unicode/utf8"
)

// FormatNodes renders the subtree under rootID as an ASCII tree.
//
// Icons: ✓ solution, ✗ pruned, → exploring, · pending. Nodes listed in
// highlight get a trailing ★.
func FormatNodes(nodes map[string]*ThoughtNode, rootID string, highlight []string) string {
	root, ok := nodes[rootID]
	if !ok {
		return "Empty tree"
	}
	marked := make(map[string]bool, len(highlight))
	for _, id := range highlight {
		marked[id] = true
	}

	var sb strings.Builder
	formatNode(&sb, nodes, root, marked, "", true)
	return sb.String()
}

func formatNode(sb *strings.Builder, nodes map[string]*ThoughtNode, node *ThoughtNode, marked map[string]bool, prefix string, isLast bool) {
	branch := "├── "
	if isLast {
		branch = "└── "
	}

	stateIcon := " "
	switch node.State {
	case StateSolution:
		stateIcon = "✓"
	case StatePruned:
		stateIcon = "✗"
	case StateExploring:
		stateIcon = "→"
	case StatePending:
		stateIcon = "·"
	}

	star := ""
	if marked[node.ID] {
		star = " ★"
	}

	fmt.Fprintf(sb, "%s%s[%s] %s (score: %.2f) %s%s\n",
		prefix, branch, node.ID, truncate(oneLine(node.Content), 60), node.Score, stateIcon, star)

	childPrefix := prefix
	if isLast {
		childPrefix += "    "
	} else {
		childPrefix += "│   "
	}

	for i, cid := range node.ChildIDs {
		child, ok := nodes[cid]
		if !ok {
			continue
		}
		formatNode(sb, nodes, child, marked, childPrefix, i == len(node.ChildIDs)-1)
	}
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// truncate shortens s to maxLen runes with an ellipsis.
func truncate(s string, maxLen int) string {
	if utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string([]rune(s)[:maxLen])
	}
	return string([]rune(s)[:maxLen-3]) + "..."
}
