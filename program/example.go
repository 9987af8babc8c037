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

import "maps"

// Example is an immutable input/label pair. A designated subset of its
// fields is marked as inputs; the remainder are treated as labels.
//
// Examples serve both as dataset elements for evaluation and, once accepted
// by an optimizer, as demonstrations installed into a Program.
//
// Thread Safety: Immutable after creation; safe for concurrent use.
type Example struct {
	fields    map[string]any
	inputKeys map[string]struct{}
}

// NewExample creates an Example from the given fields. No field is marked
// as an input until WithInputs is called.
//
// Inputs:
//   - fields: Field name to value. Copied defensively.
//
// Outputs:
//   - *Example: The new example. Never nil.
func NewExample(fields map[string]any) *Example {
	return &Example{
		fields:    maps.Clone(fields),
		inputKeys: map[string]struct{}{},
	}
}

// WithInputs returns a copy of the example with the given field names
// marked as inputs. The receiver is unchanged. Keys that do not exist in
// the example's fields are ignored.
func (e *Example) WithInputs(keys ...string) *Example {
	marked := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		if _, ok := e.fields[k]; ok {
			marked[k] = struct{}{}
		}
	}
	return &Example{
		fields:    maps.Clone(e.fields),
		inputKeys: marked,
	}
}

// Inputs returns the fields marked as inputs.
func (e *Example) Inputs() Inputs {
	in := make(Inputs, len(e.inputKeys))
	for k := range e.inputKeys {
		in[k] = e.fields[k]
	}
	return in
}

// Labels returns the fields not marked as inputs.
func (e *Example) Labels() Outputs {
	labels := make(Outputs, len(e.fields)-len(e.inputKeys))
	for k, v := range e.fields {
		if _, isInput := e.inputKeys[k]; !isInput {
			labels[k] = v
		}
	}
	return labels
}

// Get returns the named field value.
func (e *Example) Get(key string) (any, bool) {
	v, ok := e.fields[key]
	return v, ok
}

// Fields returns a copy of all fields.
func (e *Example) Fields() map[string]any {
	return maps.Clone(e.fields)
}

// Demonstration is an Example promoted into a Program's configuration after
// passing an optimizer's acceptance metric, together with the score that
// admitted it.
type Demonstration struct {
	Example *Example
	Score   float64
}
