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

// thoughtPrompt asks for the next reasoning step. index and total let the
// backend diversify sibling thoughts.
func thoughtPrompt(question string, steps []string, index, total int) string {
	var sb strings.Builder
	sb.WriteString("You are solving a problem one reasoning step at a time.\n\n")
	fmt.Fprintf(&sb, "Problem: %s\n\n", question)
	if len(steps) > 0 {
		sb.WriteString("Reasoning so far:\n")
		for i, s := range steps {
			fmt.Fprintf(&sb, "Step %d: %s\n", i+1, s)
		}
		sb.WriteString("\n")
	}
	fmt.Fprintf(&sb, "Propose candidate next step %d of %d. ", index+1, total)
	sb.WriteString("Make it different from the other candidates. ")
	sb.WriteString("Reply with the single next step only, in one or two sentences.")
	return sb.String()
}

// scorePrompt asks the backend to rate a candidate step.
func scorePrompt(question string, steps []string, thought string) string {
	var sb strings.Builder
	sb.WriteString("Rate how promising the proposed reasoning step is for solving the problem.\n\n")
	fmt.Fprintf(&sb, "Problem: %s\n\n", question)
	if len(steps) > 0 {
		sb.WriteString("Previous steps:\n")
		for i, s := range steps {
			fmt.Fprintf(&sb, "Step %d: %s\n", i+1, s)
		}
		sb.WriteString("\n")
	}
	fmt.Fprintf(&sb, "Proposed step: %s\n\n", thought)
	sb.WriteString("Answer with a single number between 0 and 1, where 1 means certainly correct and useful.")
	return sb.String()
}
