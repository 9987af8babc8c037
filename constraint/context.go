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

// Mode identifies the execution mode a validation runs under. Adaptive
// constraints with the ContextBased policy escalate in testing and
// production modes.
type Mode int

const (
	// ModeDevelopment is the default, most permissive mode.
	ModeDevelopment Mode = iota
	// ModeTesting is used in CI and evaluation harnesses.
	ModeTesting
	// ModeProduction is the strictest mode.
	ModeProduction
)

// String returns the string representation of a Mode.
func (m Mode) String() string {
	switch m {
	case ModeDevelopment:
		return "development"
	case ModeTesting:
		return "testing"
	case ModeProduction:
		return "production"
	default:
		return fmt.Sprintf("mode(%d)", m)
	}
}

// HistoryEntry records the outcome of one prior constraint check. Adaptive
// constraints with the LearningBased policy consult these entries.
type HistoryEntry struct {
	// Constraint is the name of the checked constraint.
	Constraint string

	// Violated is true if the check failed.
	Violated bool
}

// Context carries the per-validation state a caller supplies on each
// validation call. Constraints never persist any of it.
//
// The zero value is usable: attempt count 0, development mode, success rate
// 0, empty history.
type Context struct {
	// AttemptCount is the 1-based number of the current attempt.
	AttemptCount int

	// Mode is the execution mode.
	Mode Mode

	// SuccessRate is the caller's rolling success rate in [0, 1].
	SuccessRate float64

	// History is the prior constraint-violation history, oldest first.
	History []HistoryEntry
}

// FailureRate returns the fraction of history entries for the named
// constraint that were violations. Returns 0 when the constraint has no
// history.
func (c *Context) FailureRate(name string) float64 {
	var total, violated int
	for _, h := range c.History {
		if h.Constraint != name {
			continue
		}
		total++
		if h.Violated {
			violated++
		}
	}
	if total == 0 {
		return 0
	}
	return float64(violated) / float64(total)
}

// Record returns a copy of the context with an additional history entry
// appended. The receiver is unchanged.
func (c *Context) Record(name string, violated bool) *Context {
	next := *c
	next.History = make([]HistoryEntry, len(c.History), len(c.History)+1)
	copy(next.History, c.History)
	next.History = append(next.History, HistoryEntry{Constraint: name, Violated: violated})
	return &next
}
