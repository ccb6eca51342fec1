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

import "errors"

var (
	// ErrNilBackend is returned when a Reasoner is created without a backend.
	ErrNilBackend = errors.New("cot: backend is nil")

	// ErrEmptyQuestion is returned for a blank question.
	ErrEmptyQuestion = errors.New("cot: question is empty")

	// ErrInvalidSamples is returned when fewer than one sample is requested.
	ErrInvalidSamples = errors.New("cot: samples must be at least 1")
)
