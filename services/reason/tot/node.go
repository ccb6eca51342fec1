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
	"time"
)

// NodeState represents the lifecycle state of a thought node.
//
//	pending -> exploring -> evaluated -> {pruned | solution}
//
// Pruned and solution are terminal. An evaluated node may still be expanded;
// expansion does not change its state.
type NodeState string

const (
	StatePending   NodeState = "pending"
	StateExploring NodeState = "exploring"
	StateEvaluated NodeState = "evaluated"
	StatePruned    NodeState = "pruned"
	StateSolution  NodeState = "solution"
)

// String returns the string representation of the node state.
func (s NodeState) String() string {
	return string(s)
}

// IsTerminal returns true for pruned and solution.
func (s NodeState) IsTerminal() bool {
	return s == StatePruned || s == StateSolution
}

// canTransition reports whether from -> to is a legal lifecycle step.
func canTransition(from, to NodeState) bool {
	switch from {
	case StatePending:
		return to == StateExploring
	case StateExploring:
		return to == StateEvaluated
	case StateEvaluated:
		return to == StatePruned || to == StateSolution
	default:
		return false
	}
}

// ThoughtNode is one generated reasoning step.
//
// Nodes reference their parent and children by id; the ThoughtTree arena
// owns them. Values handed out by the tree are copies.
type ThoughtNode struct {
	ID         string    `json:"id"`
	ParentID   string    `json:"parent_id,omitempty"`
	Depth      int       `json:"depth"`
	Content    string    `json:"content"`
	ChildIDs   []string  `json:"child_ids,omitempty"`
	Score      float64   `json:"score"`
	State      NodeState `json:"state"`
	TokenCount int       `json:"token_count,omitempty"`
	Failed     bool      `json:"failed,omitempty"`
	CreatedAt  time.Time `json:"created_at"`

	scored bool
}

// IsRoot returns true for the node without a parent.
func (n *ThoughtNode) IsRoot() bool {
	return n.ParentID == ""
}

// clone returns a deep copy safe to hand outside the tree.
func (n *ThoughtNode) clone() *ThoughtNode {
	c := *n
	if n.ChildIDs != nil {
		c.ChildIDs = append([]string(nil), n.ChildIDs...)
	}
	return &c
}

// String returns a compact description for logs.
func (n *ThoughtNode) String() string {
	return fmt.Sprintf("ThoughtNode{id=%s, depth=%d, state=%s, score=%.2f}", n.ID, n.Depth, n.State, n.Score)
}
