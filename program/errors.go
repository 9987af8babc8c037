// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package program

import (
	"errors"
	"fmt"
	"time"
)

// -----------------------------------------------------------------------------
// Errors
// -----------------------------------------------------------------------------

var (
	// ErrExecution is returned when Program.Forward fails.
	ErrExecution = errors.New("program execution failed")

	// ErrTimeout is returned when a per-call or per-item budget is exceeded.
	ErrTimeout = errors.New("call budget exceeded")

	// ErrEmptyDataset is returned when an operation requires a non-empty
	// dataset and none was provided.
	ErrEmptyDataset = errors.New("dataset is empty")

	// ErrNoUsableDemonstrations is returned when optimization produces no
	// demonstrations that survive the acceptance metric.
	ErrNoUsableDemonstrations = errors.New("no usable demonstrations")
)

// ExecutionError wraps a Forward failure with the operation that failed.
// It unwraps to ErrExecution.
type ExecutionError struct {
	// Op identifies the failing operation (e.g. "forward", "attempt 3").
	Op string

	// Err is the underlying cause. May be nil.
	Err error
}

// Error implements the error interface.
func (e *ExecutionError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %v", e.Op, ErrExecution)
	}
	return fmt.Sprintf("%s: %v: %v", e.Op, ErrExecution, e.Err)
}

// Unwrap returns the underlying cause chain.
func (e *ExecutionError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrExecution}
	}
	return []error{ErrExecution, e.Err}
}

// TimeoutError reports an exceeded call budget. It unwraps to ErrTimeout.
type TimeoutError struct {
	// Op identifies the timed-out operation.
	Op string

	// Budget is the deadline that was exceeded.
	Budget time.Duration
}

// Error implements the error interface.
func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s: %v after %s", e.Op, ErrTimeout, e.Budget)
}

// Unwrap returns the sentinel this error is categorized under.
func (e *TimeoutError) Unwrap() error {
	return ErrTimeout
}
