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
	"math"
	"sync"
	"time"
)

// RootID is the id of every tree's root node.
const RootID = "root"

// ThoughtTree is an id-indexed arena of thought nodes.
//
// Invariants enforced on insert: the parent exists, and the child depth is
// the parent depth plus one. A node's score can be set once.
//
// Thread Safety: Safe for concurrent use. The search driver is the only
// writer during a run.
type ThoughtTree struct {
	mu     sync.RWMutex
	nodes  map[string]*ThoughtNode
	order  []string
	nextID int
}

// NewThoughtTree creates a tree whose root holds question and is already
// evaluated with rootScore.
func NewThoughtTree(question string, rootScore float64) *ThoughtTree {
	root := &ThoughtNode{
		ID:        RootID,
		Content:   question,
		Score:     clampScore(rootScore),
		State:     StateEvaluated,
		CreatedAt: time.Now(),
		scored:    true,
	}
	return &ThoughtTree{
		nodes: map[string]*ThoughtNode{RootID: root},
		order: []string{RootID},
	}
}

// AddChild inserts a pending child under parentID and returns its id.
//
// Outputs:
//   - string: The new node id ("n1", "n2", ... in insertion order).
//   - error: ErrParentNotFound if parentID is not in the tree.
func (t *ThoughtTree) AddChild(parentID string) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	parent, ok := t.nodes[parentID]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrParentNotFound, parentID)
	}

	t.nextID++
	id := fmt.Sprintf("n%d", t.nextID)
	t.nodes[id] = &ThoughtNode{
		ID:        id,
		ParentID:  parentID,
		Depth:     parent.Depth + 1,
		State:     StatePending,
		CreatedAt: time.Now(),
	}
	parent.ChildIDs = append(parent.ChildIDs, id)
	t.order = append(t.order, id)
	return id, nil
}

// Node returns a copy of the node with id.
func (t *ThoughtTree) Node(id string) (*ThoughtNode, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	n, ok := t.nodes[id]
	if !ok {
		return nil, false
	}
	return n.clone(), true
}

// SetContent records the generated text and its token usage.
func (t *ThoughtTree) SetContent(id, content string, tokens int, failed bool) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	n, ok := t.nodes[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNodeNotFound, id)
	}
	n.Content = content
	n.TokenCount = tokens
	n.Failed = failed
	return nil
}

// Transition moves a node to state to.
//
// Outputs:
//   - error: ErrInvalidTransition if the lifecycle forbids the move.
func (t *ThoughtTree) Transition(id string, to NodeState) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	n, ok := t.nodes[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNodeNotFound, id)
	}
	if !canTransition(n.State, to) {
		return fmt.Errorf("%w: %s %s -> %s", ErrInvalidTransition, id, n.State, to)
	}
	n.State = to
	return nil
}

// SetScore assigns the score and moves the node from exploring to evaluated.
//
// Outputs:
//   - error: ErrScoreAlreadySet on a second call, ErrInvalidTransition if
//     the node is not exploring.
func (t *ThoughtTree) SetScore(id string, score float64) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	n, ok := t.nodes[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNodeNotFound, id)
	}
	if n.scored {
		return fmt.Errorf("%w: %s", ErrScoreAlreadySet, id)
	}
	if !canTransition(n.State, StateEvaluated) {
		return fmt.Errorf("%w: %s %s -> %s", ErrInvalidTransition, id, n.State, StateEvaluated)
	}
	n.Score = clampScore(score)
	n.scored = true
	n.State = StateEvaluated
	return nil
}

// Len returns the number of nodes, root included.
func (t *ThoughtTree) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.nodes)
}

// CountByState returns node counts per state.
func (t *ThoughtTree) CountByState() map[NodeState]int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	counts := make(map[NodeState]int)
	for _, n := range t.nodes {
		counts[n.State]++
	}
	return counts
}

// Snapshot returns deep copies of all nodes keyed by id.
func (t *ThoughtTree) Snapshot() map[string]*ThoughtNode {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make(map[string]*ThoughtNode, len(t.nodes))
	for id, n := range t.nodes {
		out[id] = n.clone()
	}
	return out
}

// LeafIDs returns, in insertion order, every non-pruned node that has no
// non-pruned child. These are the ends of the explored paths.
func (t *ThoughtTree) LeafIDs() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	var leaves []string
	for _, id := range t.order {
		n := t.nodes[id]
		if n.State == StatePruned {
			continue
		}
		live := false
		for _, cid := range n.ChildIDs {
			if t.nodes[cid].State != StatePruned {
				live = true
				break
			}
		}
		if !live {
			leaves = append(leaves, id)
		}
	}
	return leaves
}

// PathTo reconstructs the root path ending at id.
func (t *ThoughtTree) PathTo(id string) (*TreePath, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return ReconstructPath(t.nodes, id)
}

// Steps returns the contents of the ancestors of id, root excluded, ordered
// from the root side.
func (t *ThoughtTree) Steps(id string) []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	var steps []string
	for cur, ok := t.nodes[id]; ok && !cur.IsRoot(); cur, ok = t.nodes[cur.ParentID] {
		steps = append(steps, cur.Content)
	}
	for i, j := 0, len(steps)-1; i < j; i, j = i+1, j-1 {
		steps[i], steps[j] = steps[j], steps[i]
	}
	return steps
}

// Format renders the tree; ids in highlight are starred.
func (t *ThoughtTree) Format(highlight []string) string {
	return FormatNodes(t.Snapshot(), RootID, highlight)
}

func clampScore(s float64) float64 {
	switch {
	case math.IsNaN(s), s < 0:
		return 0
	case s > 1:
		return 1
	default:
		return s
	}
}
