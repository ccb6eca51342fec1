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

import "github.com/tidwall/btree"

// frontier holds node ids waiting for expansion.
type frontier interface {
	push(id string, score float64)
	pop() (string, bool)
	len() int
}

// newFrontier returns the container for strategy. Beam search does not use
// a frontier.
func newFrontier(s Strategy) frontier {
	switch s {
	case StrategyDFS:
		return &stackFrontier{}
	case StrategyBestFirst:
		return newPriorityFrontier()
	default:
		return &queueFrontier{}
	}
}

// queueFrontier is FIFO.
type queueFrontier struct {
	ids []string
}

func (q *queueFrontier) push(id string, _ float64) { q.ids = append(q.ids, id) }

func (q *queueFrontier) pop() (string, bool) {
	if len(q.ids) == 0 {
		return "", false
	}
	id := q.ids[0]
	q.ids[0] = ""
	q.ids = q.ids[1:]
	return id, true
}

func (q *queueFrontier) len() int { return len(q.ids) }

// stackFrontier is LIFO.
type stackFrontier struct {
	ids []string
}

func (s *stackFrontier) push(id string, _ float64) { s.ids = append(s.ids, id) }

func (s *stackFrontier) pop() (string, bool) {
	if len(s.ids) == 0 {
		return "", false
	}
	last := len(s.ids) - 1
	id := s.ids[last]
	s.ids = s.ids[:last]
	return id, true
}

func (s *stackFrontier) len() int { return len(s.ids) }

// frontierItem orders best-first entries.
type frontierItem struct {
	score float64
	seq   uint64
	id    string
}

// priorityFrontier pops the highest score first. Equal scores pop in
// insertion order via a monotonic sequence number.
type priorityFrontier struct {
	tree *btree.BTreeG[frontierItem]
	seq  uint64
}

func newPriorityFrontier() *priorityFrontier {
	return &priorityFrontier{tree: btree.NewBTreeG[frontierItem](frontierLess)}
}

// frontierLess sorts by score descending, then sequence ascending, so the
// minimum item is the next to expand.
func frontierLess(a, b frontierItem) bool {
	if a.score != b.score {
		return a.score > b.score
	}
	return a.seq < b.seq
}

func (p *priorityFrontier) push(id string, score float64) {
	p.seq++
	p.tree.Set(frontierItem{score: score, seq: p.seq, id: id})
}

func (p *priorityFrontier) pop() (string, bool) {
	item, ok := p.tree.PopMin()
	if !ok {
		return "", false
	}
	return item.id, true
}

func (p *priorityFrontier) len() int { return p.tree.Len() }
