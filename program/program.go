// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package program defines the boundary contracts shared by every engine in
// this module: the Program abstraction, the Example/Outcome data model, and
// the core error taxonomy.
//
// A Program is an immutable configuration that maps inputs to outputs,
// typically by calling a language model. Engines in backtrack, evaluate, and
// teleprompt consume Programs through this interface and never reach past it
// to the model invoker.
package program

import (
	"context"
	"maps"
)

// Inputs is a named key/value mapping handed to Program.Forward.
type Inputs map[string]any

// Outputs is a named key/value mapping produced by Program.Forward.
type Outputs map[string]any

// Delta is a configuration change applied via Program.Configure.
type Delta map[string]any

// DemonstrationsKey is the Delta key under which the optimizer installs
// accepted demonstrations ([]Demonstration).
const DemonstrationsKey = "demonstrations"

// Program is an immutable, configurable unit that produces an Outcome from
// Inputs.
//
// Implementations must satisfy two contracts:
//   - Forward must be safe to invoke concurrently from independent
//     goroutines; any state it exposes is immutable configuration.
//   - Configure is a pure transform. It returns a new Program and never
//     mutates the receiver.
//
// Forward is assumed to block on external I/O. Callers bound it with a
// per-call timeout; implementations must respect ctx cancellation.
type Program interface {
	// Forward executes the program against the given inputs.
	//
	// Inputs:
	//   - ctx: Context for cancellation and deadlines. Must not be nil.
	//   - inputs: Named input values. The program must not mutate the map.
	//
	// Outputs:
	//   - *Outcome: The result on success. Never nil when error is nil.
	//   - error: Non-nil on failure.
	Forward(ctx context.Context, inputs Inputs) (*Outcome, error)

	// Configure returns a new Program with the delta applied.
	// The receiver is left unchanged.
	Configure(delta Delta) Program
}

// Clone returns a shallow copy of the inputs.
func (in Inputs) Clone() Inputs {
	if in == nil {
		return Inputs{}
	}
	return maps.Clone(in)
}

// Merge returns a new Inputs containing the receiver's entries overlaid
// with the other map's entries. Neither argument is mutated.
func (in Inputs) Merge(other Inputs) Inputs {
	merged := in.Clone()
	maps.Copy(merged, other)
	return merged
}

// Clone returns a shallow copy of the outputs.
func (out Outputs) Clone() Outputs {
	if out == nil {
		return Outputs{}
	}
	return maps.Clone(out)
}

// Outcome is the result of one successful Forward call. It echoes the inputs
// it was produced from, carries the produced outputs, and optionally a raw
// provider payload for debugging.
//
// Outcomes are never mutated after creation. The struct is exported for
// construction by Program implementations; consumers treat it as read-only.
type Outcome struct {
	// Inputs are the inputs the program was called with.
	Inputs Inputs

	// Outputs are the values the program produced.
	Outputs Outputs

	// Raw is an optional provider-specific payload (response object,
	// token usage, etc.). May be nil.
	Raw any
}

// NewOutcome creates an Outcome echoing the given inputs.
//
// Inputs:
//   - inputs: The inputs the program ran with. Copied defensively.
//   - outputs: The produced outputs. Copied defensively.
//
// Outputs:
//   - *Outcome: The new outcome. Never nil.
func NewOutcome(inputs Inputs, outputs Outputs) *Outcome {
	return &Outcome{
		Inputs:  inputs.Clone(),
		Outputs: outputs.Clone(),
	}
}

// Get returns the named output value.
func (o *Outcome) Get(key string) (any, bool) {
	v, ok := o.Outputs[key]
	return v, ok
}

// MetricFunc scores an Outcome against the Example it was produced from.
// Implementations must return a value in [0.0, 1.0] and must be safe to
// invoke concurrently.
type MetricFunc func(example *Example, outcome *Outcome) float64
