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

import "errors"

// Sentinel errors for the tot package.
var (
	// Budget errors
	ErrBudgetExhausted      = errors.New("search budget exhausted")
	ErrTimeLimitExceeded    = errors.New("search time limit exceeded")
	ErrNodeLimitExceeded    = errors.New("search node limit exceeded")
	ErrLLMCallLimitExceeded = errors.New("search LLM call limit exceeded")
	ErrTokenLimitExceeded   = errors.New("search token limit exceeded")

	// Tree errors
	ErrNodeNotFound      = errors.New("thought node not found")
	ErrParentNotFound    = errors.New("parent node not found")
	ErrScoreAlreadySet   = errors.New("node score already set")
	ErrInvalidTransition = errors.New("invalid node state transition")
	ErrCorruptTree       = errors.New("parent chain does not reach the root")

	// Configuration errors
	ErrNilBackend      = errors.New("generation backend is nil")
	ErrUnknownStrategy = errors.New("unknown search strategy")
)
