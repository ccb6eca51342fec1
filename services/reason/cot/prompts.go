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
	"fmt"
	"strings"
)

// Example is one worked demonstration for few-shot prompting.
type Example struct {
	Question string   `yaml:"question" json:"question"`
	Steps    []string `yaml:"steps" json:"steps"`
	Answer   string   `yaml:"answer" json:"answer"`
}

const answerInstruction = `End with a line of the form "Therefore, the answer is <answer>."`

// zeroShotPrompt elicits step-by-step reasoning without demonstrations.
func zeroShotPrompt(question string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Q: %s\n\n", question)
	sb.WriteString("Work through the problem as numbered steps (Step 1:, Step 2:, ...). ")
	sb.WriteString(answerInstruction)
	sb.WriteString("\n\nA: Let's think step by step.\n")
	return sb.String()
}

// fewShotPrompt prefixes the question with worked examples in the same
// Step/answer layout the parser expects.
func fewShotPrompt(examples []Example, question string) string {
	if len(examples) == 0 {
		return zeroShotPrompt(question)
	}
	var sb strings.Builder
	for _, ex := range examples {
		fmt.Fprintf(&sb, "Q: %s\nA: Let's think step by step.\n", ex.Question)
		for i, step := range ex.Steps {
			fmt.Fprintf(&sb, "Step %d: %s\n", i+1, step)
		}
		fmt.Fprintf(&sb, "Therefore, the answer is %s.\n\n", ex.Answer)
	}
	fmt.Fprintf(&sb, "Q: %s\nA: Let's think step by step.\n", question)
	return sb.String()
}
