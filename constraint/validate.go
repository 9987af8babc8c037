// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package constraint

import "fmt"

// -----------------------------------------------------------------------------
// Results
// -----------------------------------------------------------------------------

// Status classifies a validation result.
type Status int

const (
	// StatusOK means every constraint passed.
	StatusOK Status = iota
	// StatusWarning means only soft-severity violations occurred.
	StatusWarning
	// StatusError means only hard-severity violations occurred.
	StatusError
	// StatusMixed means both hard and soft violations occurred.
	StatusMixed
)

// String returns the string representation of a Status.
func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusWarning:
		return "warning"
	case StatusError:
		return "error"
	case StatusMixed:
		return "mixed"
	default:
		return fmt.Sprintf("status(%d)", s)
	}
}

// Result is the outcome of validating a value against a constraint set.
// Violations are partitioned by resolved severity; the partition, not the
// evaluation order, determines the status.
type Result struct {
	// Status summarizes the partition.
	Status Status

	// Errors holds hard-severity violations.
	Errors []Violation

	// Warnings holds soft-severity violations.
	Warnings []Violation
}

// OK returns true when no constraint was violated.
func (r *Result) OK() bool { return r.Status == StatusOK }

// Fatal returns true when at least one hard violation occurred. Only fatal
// results can fail a backtracking attempt; warnings never abort execution.
func (r *Result) Fatal() bool {
	return r.Status == StatusError || r.Status == StatusMixed
}

// Violations returns errors and warnings as one list, errors first.
func (r *Result) Violations() []Violation {
	all := make([]Violation, 0, len(r.Errors)+len(r.Warnings))
	all = append(all, r.Errors...)
	all = append(all, r.Warnings...)
	return all
}

func (r *Result) add(v *Violation) {
	if v == nil {
		return
	}
	if v.Severity == SeverityHard {
		r.Errors = append(r.Errors, *v)
	} else {
		r.Warnings = append(r.Warnings, *v)
	}
}

func (r *Result) finalize() *Result {
	switch {
	case len(r.Errors) > 0 && len(r.Warnings) > 0:
		r.Status = StatusMixed
	case len(r.Errors) > 0:
		r.Status = StatusError
	case len(r.Warnings) > 0:
		r.Status = StatusWarning
	default:
		r.Status = StatusOK
	}
	return r
}

// -----------------------------------------------------------------------------
// Validation
// -----------------------------------------------------------------------------

// ValidateAll evaluates every constraint independently and partitions the
// violations into errors and warnings. Evaluation order does not affect the
// result set.
//
// Inputs:
//   - value: The value under validation.
//   - constraints: The constraint set. May be empty.
//   - ctx: Validation context. May be nil.
//
// Outputs:
//   - *Result: The partitioned result. Never nil.
func ValidateAll(value any, constraints []Constraint, ctx *Context) *Result {
	result := &Result{}
	for _, c := range constraints {
		result.add(c.Check(value, ctx))
	}
	return result.finalize()
}

// ValidateWithShortCircuit evaluates constraints in the given order and
// stops at the first hard violation. Used where early termination matters
// for performance; callers that need the complete partition use ValidateAll.
func ValidateWithShortCircuit(value any, constraints []Constraint, ctx *Context) *Result {
	result := &Result{}
	for _, c := range constraints {
		v := c.Check(value, ctx)
		result.add(v)
		if v != nil && v.Severity == SeverityHard {
			break
		}
	}
	return result.finalize()
}

// GenerateFeedback produces a human-readable string per violated constraint
// describing what was expected versus observed, in constraint order.
//
// A constraint with an attached FeedbackFunc contributes its value-specific
// hint; otherwise the violation's generic rendering is used.
func GenerateFeedback(constraints []Constraint, value any, ctx *Context) []string {
	var feedback []string
	for _, c := range constraints {
		v := c.Check(value, ctx)
		if v == nil {
			continue
		}
		if c.feedback != nil {
			feedback = append(feedback, fmt.Sprintf("constraint %q violated: %s", c.name, c.feedback(value)))
			continue
		}
		feedback = append(feedback, v.String())
	}
	return feedback
}

// SatisfactionScore returns the severity-weighted fraction of constraints
// the value passes, in [0, 1]. Hard constraints (and adaptive constraints
// escalated to hard) weigh 1.0; soft ones weigh 0.5. An empty constraint
// set scores 1.0.
//
// The genetic backtracking strategy uses this as its fitness function.
func SatisfactionScore(value any, constraints []Constraint, ctx *Context) float64 {
	if len(constraints) == 0 {
		return 1.0
	}
	var earned, total float64
	for _, c := range constraints {
		weight := 0.5
		if c.Severity(ctx) == SeverityHard {
			weight = 1.0
		}
		total += weight
		if c.Check(value, ctx) == nil {
			earned += weight
		}
	}
	return earned / total
}
