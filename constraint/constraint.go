// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package constraint implements the constraint and validator engine: a
// closed set of constraint variants (assert, suggest, adaptive), bulk
// validation with ok/warning/error/mixed results, human-readable feedback
// generation, and composition combinators.
//
// Constraints are stateless and reusable: all per-validation state (attempt
// count, execution mode, success rate, violation history) travels in the
// Context supplied by the caller. Validation failures are result values,
// never control-flow errors.
package constraint

import (
	"fmt"
)

// -----------------------------------------------------------------------------
// Variants and Severity
// -----------------------------------------------------------------------------

// Kind identifies the constraint variant. The set is closed: engines switch
// on Kind rather than dispatching through open-ended polymorphism.
type Kind int

const (
	// KindAssert is a hard constraint; violations are errors.
	KindAssert Kind = iota
	// KindSuggest is a soft constraint; violations are warnings.
	KindSuggest
	// KindAdaptive computes its severity per call from the Context.
	KindAdaptive
)

// String returns the string representation of a Kind.
func (k Kind) String() string {
	switch k {
	case KindAssert:
		return "assert"
	case KindSuggest:
		return "suggest"
	case KindAdaptive:
		return "adaptive"
	default:
		return fmt.Sprintf("kind(%d)", k)
	}
}

// Severity classifies how a violated constraint surfaces.
type Severity int

const (
	// SeverityHard violations surface as errors and can fail an attempt.
	SeverityHard Severity = iota
	// SeveritySoft violations surface as warnings and never abort execution.
	SeveritySoft
)

// String returns the string representation of a Severity.
func (s Severity) String() string {
	switch s {
	case SeverityHard:
		return "hard"
	case SeveritySoft:
		return "soft"
	default:
		return fmt.Sprintf("severity(%d)", s)
	}
}

// Policy selects how an adaptive constraint escalates from soft to hard.
type Policy int

const (
	// AttemptBased escalates to hard once Context.AttemptCount >= 3.
	AttemptBased Policy = iota
	// PerformanceBased escalates to hard when Context.SuccessRate < 0.5.
	PerformanceBased
	// ContextBased is hard in testing and production modes, soft otherwise.
	ContextBased
	// LearningBased escalates to hard when the constraint's historical
	// failure rate in Context.History exceeds 0.3.
	LearningBased
)

// String returns the string representation of a Policy.
func (p Policy) String() string {
	switch p {
	case AttemptBased:
		return "attempt_based"
	case PerformanceBased:
		return "performance_based"
	case ContextBased:
		return "context_based"
	case LearningBased:
		return "learning_based"
	default:
		return fmt.Sprintf("policy(%d)", p)
	}
}

// Escalation thresholds for the adaptive policies.
const (
	attemptEscalationFloor  = 3
	successRateFloor        = 0.5
	historyFailureRateLimit = 0.3
)

// -----------------------------------------------------------------------------
// Constraint
// -----------------------------------------------------------------------------

// ValidatorFunc checks a value. Returning false marks the value as violating
// the constraint. A panic inside the function is recovered and treated as a
// violation.
type ValidatorFunc func(value any) bool

// ContextValidatorFunc checks a value with access to the validation context.
// Used by adaptive constraints and combinators.
type ContextValidatorFunc func(value any, ctx *Context) bool

// FeedbackFunc produces a value-specific hint for a violated constraint.
// Optional; when nil a generic expected/observed message is generated.
type FeedbackFunc func(value any) string

// Constraint is a named validation rule. Construct with Assert, Suggest,
// Adaptive, or one of the combinators; the zero value is not usable.
//
// Thread Safety: Stateless after construction; safe for concurrent use.
type Constraint struct {
	name     string
	kind     Kind
	message  string
	policy   Policy
	validate ContextValidatorFunc
	feedback FeedbackFunc
}

// Assert creates a hard constraint. A value for which fn returns false (or
// panics) produces an error-severity violation.
//
// Inputs:
//   - name: Identifier used in violations and history. Must not be empty.
//   - fn: The validator. Must not be nil.
//   - message: Human-readable description of what the constraint expects.
//
// Outputs:
//   - Constraint: The new constraint.
func Assert(name string, fn ValidatorFunc, message string) Constraint {
	return Constraint{
		name:     name,
		kind:     KindAssert,
		message:  message,
		validate: liftValidator(fn),
	}
}

// Suggest creates a soft constraint. Violations surface as warnings and
// never abort execution.
func Suggest(name string, fn ValidatorFunc, hint string) Constraint {
	return Constraint{
		name:     name,
		kind:     KindSuggest,
		message:  hint,
		validate: liftValidator(fn),
	}
}

// Adaptive creates a constraint whose severity is computed per call from the
// validation context using the given policy.
func Adaptive(name string, fn ContextValidatorFunc, message string, policy Policy) Constraint {
	return Constraint{
		name:     name,
		kind:     KindAdaptive,
		message:  message,
		policy:   policy,
		validate: guardValidator(fn),
	}
}

// WithFeedback returns a copy of the constraint with a value-specific
// feedback generator attached.
func (c Constraint) WithFeedback(fn FeedbackFunc) Constraint {
	c.feedback = fn
	return c
}

// Name returns the constraint's identifier.
func (c Constraint) Name() string { return c.name }

// Kind returns the constraint variant.
func (c Constraint) Kind() Kind { return c.kind }

// Message returns the constraint's expectation message.
func (c Constraint) Message() string { return c.message }

// Severity resolves the constraint's severity for the given context.
// Assert is always hard and Suggest always soft; Adaptive consults its
// escalation policy.
func (c Constraint) Severity(ctx *Context) Severity {
	switch c.kind {
	case KindAssert:
		return SeverityHard
	case KindSuggest:
		return SeveritySoft
	case KindAdaptive:
		return c.adaptiveSeverity(ctx)
	default:
		return SeverityHard
	}
}

func (c Constraint) adaptiveSeverity(ctx *Context) Severity {
	if ctx == nil {
		return SeveritySoft
	}
	switch c.policy {
	case AttemptBased:
		if ctx.AttemptCount >= attemptEscalationFloor {
			return SeverityHard
		}
	case PerformanceBased:
		if ctx.SuccessRate < successRateFloor {
			return SeverityHard
		}
	case ContextBased:
		if ctx.Mode == ModeTesting || ctx.Mode == ModeProduction {
			return SeverityHard
		}
	case LearningBased:
		if ctx.FailureRate(c.name) > historyFailureRateLimit {
			return SeverityHard
		}
	}
	return SeveritySoft
}

// Check evaluates the constraint against a value. A violated constraint
// yields a non-nil Violation with the severity resolved for the context.
//
// Inputs:
//   - value: The value under validation.
//   - ctx: Validation context. May be nil; adaptive constraints then stay soft.
//
// Outputs:
//   - *Violation: Nil when the constraint passes.
func (c Constraint) Check(value any, ctx *Context) *Violation {
	if c.validate(value, ctx) {
		return nil
	}
	return &Violation{
		Constraint: c.name,
		Kind:       c.kind,
		Severity:   c.Severity(ctx),
		Message:    c.message,
		Value:      value,
	}
}

// liftValidator adapts a plain validator into a contextual one, recovering
// panics as failures.
func liftValidator(fn ValidatorFunc) ContextValidatorFunc {
	return guardValidator(func(value any, _ *Context) bool {
		return fn(value)
	})
}

// guardValidator recovers validator panics: a raising validator counts as a
// violated constraint, never as a crashed validation pass.
func guardValidator(fn ContextValidatorFunc) ContextValidatorFunc {
	return func(value any, ctx *Context) (ok bool) {
		defer func() {
			if r := recover(); r != nil {
				ok = false
			}
		}()
		return fn(value, ctx)
	}
}

// -----------------------------------------------------------------------------
// Violation
// -----------------------------------------------------------------------------

// Violation describes a single failed constraint check.
type Violation struct {
	// Constraint is the name of the violated constraint.
	Constraint string

	// Kind is the constraint variant.
	Kind Kind

	// Severity is the severity resolved at check time.
	Severity Severity

	// Message is the constraint's expectation message.
	Message string

	// Value is the value that failed validation.
	Value any
}

// String renders the violation as an expected/observed description.
func (v *Violation) String() string {
	return fmt.Sprintf("constraint %q violated: expected %s, observed %v",
		v.Constraint, v.Message, v.Value)
}
