// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package llm

import "errors"

var (
	// ErrCircuitOpen indicates the circuit breaker rejected the call.
	ErrCircuitOpen = errors.New("llm circuit breaker is open")

	// ErrEmptyResponse indicates the backend returned no text.
	ErrEmptyResponse = errors.New("llm returned empty response")

	// ErrEmptyPrompt indicates Generate was called without a prompt.
	ErrEmptyPrompt = errors.New("prompt must not be empty")

	// ErrUnknownProvider indicates an unsupported backend provider name.
	ErrUnknownProvider = errors.New("unknown llm provider")

	// ErrMissingAPIKey indicates a hosted provider was selected without credentials.
	ErrMissingAPIKey = errors.New("api key not configured")

	// ErrRetriesExhausted wraps the last error after all retry attempts fail.
	ErrRetriesExhausted = errors.New("llm retries exhausted")

	// ErrMockFailure is the default error returned by a failing MockBackend.
	ErrMockFailure = errors.New("mock backend failure")
)
