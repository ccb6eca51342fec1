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

import "fmt"

// TreePath is a root-to-leaf sequence of nodes.
//
// Score is the arithmetic mean of the node scores, root included, summed in
// root-to-leaf order. IsSolution is true when the last node is a solution.
type TreePath struct {
	Nodes      []ThoughtNode `json:"nodes"`
	Score      float64       `json:"score"`
	IsSolution bool          `json:"is_solution"`
}

// Leaf returns the last node of the path.
func (p *TreePath) Leaf() *ThoughtNode {
	if len(p.Nodes) == 0 {
		return nil
	}
	return &p.Nodes[len(p.Nodes)-1]
}

// Len returns the number of nodes on the path.
func (p *TreePath) Len() int {
	return len(p.Nodes)
}

// IDs returns the node ids from root to leaf.
func (p *TreePath) IDs() []string {
	ids := make([]string, len(p.Nodes))
	for i := range p.Nodes {
		ids[i] = p.Nodes[i].ID
	}
	return ids
}

// Thoughts returns the node contents below the root, in order.
func (p *TreePath) Thoughts() []string {
	if len(p.Nodes) <= 1 {
		return nil
	}
	out := make([]string, 0, len(p.Nodes)-1)
	for _, n := range p.Nodes[1:] {
		out = append(out, n.Content)
	}
	return out
}

// ReconstructPath walks parent ids from leafID up to the root.
//
// Inputs:
//   - nodes: The id-indexed node map. Not modified.
//   - leafID: The last node of the path.
//
// Outputs:
//   - *TreePath: Nodes ordered root first, with the mean score.
//   - error: ErrNodeNotFound, ErrParentNotFound, or ErrCorruptTree when the
//     parent chain is longer than the map (a cycle).
//
// Runs in O(depth).
func ReconstructPath(nodes map[string]*ThoughtNode, leafID string) (*TreePath, error) {
	leaf, ok := nodes[leafID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNodeNotFound, leafID)
	}

	chain := make([]ThoughtNode, 0, leaf.Depth+1)
	for cur := leaf; ; {
		chain = append(chain, *cur)
		if cur.IsRoot() {
			break
		}
		if len(chain) > len(nodes) {
			return nil, fmt.Errorf("%w: from %s", ErrCorruptTree, leafID)
		}
		parent, ok := nodes[cur.ParentID]
		if !ok {
			return nil, fmt.Errorf("%w: %s (child %s)", ErrParentNotFound, cur.ParentID, cur.ID)
		}
		cur = parent
	}

	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}

	return &TreePath{
		Nodes:      chain,
		Score:      MeanScore(chain),
		IsSolution: chain[len(chain)-1].State == StateSolution,
	}, nil
}

// MeanScore is the arithmetic mean of the node scores in slice order.
// An empty slice scores 0.
func MeanScore(nodes []ThoughtNode) float64 {
	if len(nodes) == 0 {
		return 0
	}
	var sum float64
	for i := range nodes {
		sum += nodes[i].Score
	}
	return sum / float64(len(nodes))
}
