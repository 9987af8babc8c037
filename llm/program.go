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

import (
	"context"
	"fmt"
	"strings"

	"github.com/AleutianAI/tern/program"
)

// explorationKey matches backtrack.ExplorationKey. The adaptive-search knob
// maps onto sampling temperature here.
const explorationKey = "exploration"

// Configure delta keys recognized by Program.
const (
	TemperatureKey = "temperature"
	TopPKey        = "top_p"
	MaxTokensKey   = "max_tokens"
)

// Field is one named slot in a Signature.
type Field struct {
	// Name is the prompt label, e.g. "question".
	Name string

	// Description hints the model at the field's meaning. Optional.
	Description string
}

// Signature declares a Program's input/output contract: which fields it
// consumes, which it must produce, and the instruction framing both.
type Signature struct {
	// Instruction is the task statement placed at the top of every prompt.
	Instruction string

	// InputFields are rendered from the caller's Inputs, in order.
	InputFields []Field

	// OutputFields are the fields the model must produce, in order.
	OutputFields []Field
}

// Program maps Inputs to Outputs by prompting a Client. It renders its
// demonstrations and the current inputs into a field-labeled prompt, then
// parses the completion back into the signature's output fields.
//
// Thread Safety: Immutable after creation; Forward is safe to call
// concurrently. Configure returns a copy, per the program.Program contract.
type Program struct {
	client    Client
	signature Signature
	demos     []program.Demonstration
	params    GenerationParams
}

// NewProgram creates a Program with no demonstrations.
//
// Inputs:
//   - client: The text-generation backend. Must not be nil.
//   - signature: The field contract. Must declare at least one output field.
//
// Outputs:
//   - *Program: The program on success.
//   - error: Non-nil if the client is nil or the signature has no outputs.
func NewProgram(client Client, signature Signature) (*Program, error) {
	if client == nil {
		return nil, fmt.Errorf("client must not be nil")
	}
	if len(signature.OutputFields) == 0 {
		return nil, fmt.Errorf("signature must declare at least one output field")
	}
	return &Program{client: client, signature: signature}, nil
}

// Demonstrations returns a copy of the installed demonstrations.
func (p *Program) Demonstrations() []program.Demonstration {
	out := make([]program.Demonstration, len(p.demos))
	copy(out, p.demos)
	return out
}

// Forward implements program.Program.
func (p *Program) Forward(ctx context.Context, inputs program.Inputs) (*program.Outcome, error) {
	prompt := p.render(inputs)

	completion, err := p.client.Generate(ctx, prompt, p.params)
	if err != nil {
		return nil, fmt.Errorf("generate: %w", err)
	}

	outputs, err := p.parse(completion)
	if err != nil {
		return nil, err
	}

	outcome := program.NewOutcome(inputs, outputs)
	outcome.Raw = completion
	return outcome, nil
}

// Configure implements program.Program. Recognized keys: the demonstrations
// key ([]program.Demonstration), temperature/exploration (float64 or
// float32), top_p, and max_tokens. Unknown keys are ignored.
func (p *Program) Configure(delta program.Delta) program.Program {
	next := &Program{
		client:    p.client,
		signature: p.signature,
		demos:     p.demos,
		params:    p.params,
	}

	if raw, ok := delta[program.DemonstrationsKey]; ok {
		if demos, ok := raw.([]program.Demonstration); ok {
			next.demos = make([]program.Demonstration, len(demos))
			copy(next.demos, demos)
		}
	}
	for _, key := range []string{TemperatureKey, explorationKey} {
		if v, ok := floatValue(delta[key]); ok {
			next.params.Temperature = Float32Ptr(v)
		}
	}
	if v, ok := floatValue(delta[TopPKey]); ok {
		next.params.TopP = Float32Ptr(v)
	}
	if v, ok := delta[MaxTokensKey].(int); ok {
		next.params.MaxTokens = IntPtr(v)
	}
	return next
}

func floatValue(v any) (float32, bool) {
	switch f := v.(type) {
	case float64:
		return float32(f), true
	case float32:
		return f, true
	}
	return 0, false
}

// ----------------------------------------------------------------------------
// Prompt rendering
// ----------------------------------------------------------------------------

// render builds the field-labeled prompt: instruction, field glossary,
// demonstrations, then the current inputs with the first output label left
// open for the model to complete.
func (p *Program) render(inputs program.Inputs) string {
	var b strings.Builder

	if p.signature.Instruction != "" {
		b.WriteString(p.signature.Instruction)
		b.WriteString("\n\n")
	}

	for _, f := range append(append([]Field{}, p.signature.InputFields...), p.signature.OutputFields...) {
		if f.Description != "" {
			fmt.Fprintf(&b, "%s: %s\n", f.Name, f.Description)
		}
	}
	b.WriteString("\n")

	for _, demo := range p.demos {
		p.renderPairs(&b, demo.Example.Fields())
		b.WriteString("\n")
	}

	p.renderPairs(&b, inputs)
	fmt.Fprintf(&b, "%s:", p.signature.OutputFields[0].Name)
	return b.String()
}

// renderPairs writes "name: value" lines for every signature field present
// in the given values, inputs first then outputs.
func (p *Program) renderPairs(b *strings.Builder, values map[string]any) {
	for _, f := range p.signature.InputFields {
		if v, ok := values[f.Name]; ok {
			fmt.Fprintf(b, "%s: %v\n", f.Name, v)
		}
	}
	for _, f := range p.signature.OutputFields {
		if v, ok := values[f.Name]; ok {
			fmt.Fprintf(b, "%s: %v\n", f.Name, v)
		}
	}
}

// ----------------------------------------------------------------------------
// Completion parsing
// ----------------------------------------------------------------------------

// parse extracts the signature's output fields from a completion. The first
// output field's label is implicit (the prompt ends with it), so unlabeled
// leading text attaches to that field. Later fields are recognized by their
// "name:" label at the start of a line; continuation lines append to the
// current field.
func (p *Program) parse(completion string) (program.Outputs, error) {
	values := make(map[string]*strings.Builder, len(p.signature.OutputFields))
	current := p.signature.OutputFields[0].Name
	values[current] = &strings.Builder{}

	for _, line := range strings.Split(completion, "\n") {
		if name, rest, ok := p.matchLabel(line); ok {
			current = name
			if _, seen := values[current]; !seen {
				values[current] = &strings.Builder{}
			}
			line = rest
		}
		sb := values[current]
		if sb.Len() > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(line)
	}

	outputs := make(program.Outputs, len(values))
	for name, sb := range values {
		outputs[name] = strings.TrimSpace(sb.String())
	}

	for _, f := range p.signature.OutputFields {
		if v, ok := outputs[f.Name]; !ok || v == "" {
			return nil, fmt.Errorf("%w: missing output field %q", ErrNoCompletion, f.Name)
		}
	}
	return outputs, nil
}

// matchLabel reports whether the line starts with an output field label,
// returning the field name and the remainder after the colon.
func (p *Program) matchLabel(line string) (string, string, bool) {
	trimmed := strings.TrimSpace(line)
	for _, f := range p.signature.OutputFields {
		prefix := f.Name + ":"
		if len(trimmed) >= len(prefix) && strings.EqualFold(trimmed[:len(prefix)], prefix) {
			return f.Name, strings.TrimSpace(trimmed[len(prefix):]), true
		}
	}
	return "", "", false
}
