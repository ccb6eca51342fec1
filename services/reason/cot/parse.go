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
	"regexp"
	"strings"
)

// answerPatterns are tried in order; the last occurrence of the first
// pattern that matches wins.
var answerPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)therefore,?\s+the\s+(?:final\s+)?answer\s+is:?[ \t]*([^\n]+)`),
	regexp.MustCompile(`(?i)final\s+answer\s*:[ \t]*([^\n]+)`),
	regexp.MustCompile(`(?i)(?:^|\n)[ \t*]*answer\s*:[ \t]*([^\n]+)`),
}

var (
	answerLine   = regexp.MustCompile(`(?i)^[\s*]*(?:therefore,?\s+the\s+(?:final\s+)?answer\s+is|final\s+answer\s*:|answer\s*:)`)
	stepHeader   = regexp.MustCompile(`(?i)^\s*\**step\s*(\d+)\**\s*[:.)\-]\s*(.*)$`)
	numberedLine = regexp.MustCompile(`^\s*(\d+)[.)]\s+(.*)$`)
)

// ExtractAnswer returns the final answer stated in a reasoning chain.
//
// Recognized markers, by priority: "Therefore, the answer is",
// "Final answer:", "Answer:". Without a marker the last non-empty line is
// used. Surrounding whitespace, emphasis and one trailing period are
// removed.
func ExtractAnswer(text string) string {
	for _, p := range answerPatterns {
		matches := p.FindAllStringSubmatch(text, -1)
		if len(matches) > 0 {
			return cleanAnswer(matches[len(matches)-1][1])
		}
	}
	lines := strings.Split(strings.TrimSpace(text), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if line := strings.TrimSpace(lines[i]); line != "" {
			return cleanAnswer(line)
		}
	}
	return ""
}

func cleanAnswer(s string) string {
	s = strings.Trim(strings.TrimSpace(s), "*")
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, ".")
	return strings.TrimSpace(s)
}

// ParseSteps splits a reasoning chain into steps.
//
// "Step N:" headers are used when present, then "N." / "N)" numbered
// lines, then blank-line separated paragraphs. Lines stating the final
// answer are not steps. Continuation lines join the preceding step.
func ParseSteps(text string) []string {
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")

	if steps := stepsByHeader(lines, stepHeader); len(steps) > 0 {
		return steps
	}
	if steps := stepsByHeader(lines, numberedLine); len(steps) > 0 {
		return steps
	}
	return stepsByParagraph(lines)
}

func stepsByHeader(lines []string, header *regexp.Regexp) []string {
	var steps []string
	open := false
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		switch {
		case answerLine.MatchString(trimmed):
			open = false
		case header.MatchString(line):
			m := header.FindStringSubmatch(line)
			steps = append(steps, strings.TrimSpace(m[2]))
			open = true
		case trimmed == "":
			// Blank lines inside a step are allowed.
		case open:
			last := len(steps) - 1
			steps[last] = strings.TrimSpace(steps[last] + " " + trimmed)
		}
	}
	return dropEmpty(steps)
}

func stepsByParagraph(lines []string) []string {
	var steps []string
	var cur []string
	flush := func() {
		if len(cur) > 0 {
			steps = append(steps, strings.Join(cur, " "))
			cur = nil
		}
	}
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		switch {
		case trimmed == "":
			flush()
		case answerLine.MatchString(trimmed):
			flush()
		default:
			cur = append(cur, trimmed)
		}
	}
	flush()
	return steps
}

func dropEmpty(in []string) []string {
	out := in[:0]
	for _, s := range in {
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

const trailingPunct = ".!?,;: "

// NormalizeAnswer folds an answer for voting: lower case, single spaces,
// no surrounding quotes or emphasis, no trailing punctuation.
func NormalizeAnswer(s string) string {
	s = strings.ToLower(strings.Join(strings.Fields(s), " "))
	s = strings.TrimRight(s, trailingPunct)
	s = strings.Trim(s, "*\"'`")
	s = strings.TrimRight(s, trailingPunct)
	return strings.TrimSpace(s)
}
