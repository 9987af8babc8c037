// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package backtrack

import (
	"errors"
	"fmt"
	"time"

	"github.com/AleutianAI/tern/constraint"
	"github.com/AleutianAI/tern/program"
)

// -----------------------------------------------------------------------------
// Errors
// -----------------------------------------------------------------------------

var (
	// ErrExhausted is returned when backtracking runs out of attempts,
	// generations, or relaxation levels.
	ErrExhausted = errors.New("backtracking attempts exhausted")

	// ErrInvalidConfig is returned when an engine configuration is invalid.
	ErrInvalidConfig = errors.New("invalid backtracking configuration")

	// ErrNilProgram is returned when an engine is constructed without a program.
	ErrNilProgram = errors.New("program must not be nil")
)

// ExhaustedError is the terminal error for a failed backtracking run. It
// carries the complete attempt history for diagnosis and unwraps to
// ErrExhausted.
type ExhaustedError struct {
	// Strategy is the name of the strategy that ran.
	Strategy string

	// MaxAttempts is the configured attempt budget.
	MaxAttempts int

	// Attempts is the full history, one record per attempt (or per losing
	// branch attempt, for parallel exploration).
	Attempts []AttemptRecord
}

// Error implements the error interface.
func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("%v: strategy %s made %d attempts (budget %d)",
		ErrExhausted, e.Strategy, len(e.Attempts), e.MaxAttempts)
}

// Unwrap returns the sentinel this error is categorized under.
func (e *ExhaustedError) Unwrap() error { return ErrExhausted }

// -----------------------------------------------------------------------------
// States
// -----------------------------------------------------------------------------

// State is the engine's execution state. Transitions:
// Idle → Attempting → Validating → {Success | Retrying → Attempting | Exhausted}.
// Success and Exhausted are terminal.
type State int32

const (
	// StateIdle means no run has started.
	StateIdle State = iota
	// StateAttempting means a Forward call is in flight.
	StateAttempting
	// StateValidating means an outcome is being validated.
	StateValidating
	// StateRetrying means a failed attempt is being retried.
	StateRetrying
	// StateSuccess is terminal: an outcome satisfied the constraints.
	StateSuccess
	// StateExhausted is terminal: the attempt budget ran out.
	StateExhausted
)

// String returns the string representation of a State.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAttempting:
		return "attempting"
	case StateValidating:
		return "validating"
	case StateRetrying:
		return "retrying"
	case StateSuccess:
		return "success"
	case StateExhausted:
		return "exhausted"
	default:
		return fmt.Sprintf("state(%d)", s)
	}
}

// -----------------------------------------------------------------------------
// Attempt history
// -----------------------------------------------------------------------------

// AttemptRecord describes one execute-and-validate cycle. Records are
// read-only once appended to a run's history.
type AttemptRecord struct {
	// ID uniquely identifies the attempt.
	ID string

	// Attempt is the 1-based attempt number within its branch.
	Attempt int

	// Strategy is the name of the strategy (or sub-strategy branch) that
	// made the attempt.
	Strategy string

	// Inputs are the possibly feedback-enhanced inputs used.
	Inputs program.Inputs

	// Outcome is the program's result. Nil when Forward failed.
	Outcome *program.Outcome

	// Validation is the constraint result for the outcome. Nil when
	// Forward failed before validation.
	Validation *constraint.Result

	// Err is the Forward error, if any.
	Err error

	// Timestamp is when the attempt started.
	Timestamp time.Time

	// Duration is how long the attempt took, including validation.
	Duration time.Duration
}

// Succeeded returns true when the attempt produced an outcome with no hard
// violations. Soft violations never fail an attempt.
func (r *AttemptRecord) Succeeded() bool {
	return r.Err == nil && r.Validation != nil && !r.Validation.Fatal()
}

// Run is the result of one backtracking execution.
type Run struct {
	// Outcome is the adopted result. Nil only if the run was exhausted.
	Outcome *program.Outcome

	// Attempts is the complete history in append order.
	Attempts []AttemptRecord

	// Strategy is the name of the strategy that ran.
	Strategy string

	// FinalState is StateSuccess or StateExhausted.
	FinalState State

	// Duration is the total run time including backoff waits.
	Duration time.Duration
}
