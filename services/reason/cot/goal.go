// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package cot

import (
	"context"

	"github.com/AleutianAI/AleutianReason/services/reason/tot"
)

// AnswerGoal returns a goal check that accepts any thought stating a final
// answer ("Therefore, the answer is ...", "Final answer: ...").
func AnswerGoal() tot.GoalChecker {
	return func(_ context.Context, node tot.ThoughtNode) bool {
		return HasAnswer(node.Content)
	}
}

// ExpectAnswer returns a goal check that accepts a thought whose stated
// answer equals expected after normalization.
func ExpectAnswer(expected string) tot.GoalChecker {
	want := NormalizeAnswer(expected)
	return func(_ context.Context, node tot.ThoughtNode) bool {
		if want == "" || !HasAnswer(node.Content) {
			return false
		}
		return NormalizeAnswer(ExtractAnswer(node.Content)) == want
	}
}

// HasAnswer reports whether text contains a final-answer marker.
func HasAnswer(text string) bool {
	for _, p := range answerPatterns {
		if p.MatchString(text) {
			return true
		}
	}
	return false
}
