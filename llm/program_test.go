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
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/tern/program"
)

// scriptedClient returns a fixed completion and captures the last prompt and
// params it was called with.
type scriptedClient struct {
	completion string
	err        error
	lastPrompt string
	lastParams GenerationParams
}

func (c *scriptedClient) Generate(ctx context.Context, prompt string, params GenerationParams) (string, error) {
	c.lastPrompt = prompt
	c.lastParams = params
	return c.completion, c.err
}

func qaSignature() Signature {
	return Signature{
		Instruction: "Answer the question concisely.",
		InputFields: []Field{{Name: "question", Description: "the question to answer"}},
		OutputFields: []Field{
			{Name: "reasoning"},
			{Name: "answer", Description: "the final answer"},
		},
	}
}

func TestNewProgram_Validation(t *testing.T) {
	_, err := NewProgram(nil, qaSignature())
	require.Error(t, err)

	_, err = NewProgram(&scriptedClient{}, Signature{InputFields: []Field{{Name: "q"}}})
	require.Error(t, err)
}

func TestForward_RendersPromptAndParsesOutputs(t *testing.T) {
	client := &scriptedClient{completion: "The capital is well known.\nanswer: Paris"}
	p, err := NewProgram(client, qaSignature())
	require.NoError(t, err)

	outcome, err := p.Forward(context.Background(), program.Inputs{"question": "capital of France?"})
	require.NoError(t, err)

	// Prompt carries instruction, field description, inputs, and ends with
	// the first output label for the model to complete.
	assert.Contains(t, client.lastPrompt, "Answer the question concisely.")
	assert.Contains(t, client.lastPrompt, "question: capital of France?")
	assert.True(t, strings.HasSuffix(client.lastPrompt, "reasoning:"))

	reasoning, _ := outcome.Get("reasoning")
	assert.Equal(t, "The capital is well known.", reasoning)
	answer, _ := outcome.Get("answer")
	assert.Equal(t, "Paris", answer)
	assert.Equal(t, client.completion, outcome.Raw)
}

func TestForward_MissingOutputField(t *testing.T) {
	client := &scriptedClient{completion: "just some reasoning with no answer label"}
	p, err := NewProgram(client, qaSignature())
	require.NoError(t, err)

	_, err = p.Forward(context.Background(), program.Inputs{"question": "q"})
	require.ErrorIs(t, err, ErrNoCompletion)
	assert.Contains(t, err.Error(), `"answer"`)
}

func TestForward_RendersDemonstrations(t *testing.T) {
	demo := program.Demonstration{
		Example: program.NewExample(map[string]any{
			"question":  "capital of Spain?",
			"reasoning": "Spain's capital is Madrid.",
			"answer":    "Madrid",
		}).WithInputs("question"),
		Score: 1.0,
	}

	client := &scriptedClient{completion: "thinking\nanswer: Paris"}
	base, err := NewProgram(client, qaSignature())
	require.NoError(t, err)
	p := base.Configure(program.Delta{program.DemonstrationsKey: []program.Demonstration{demo}})

	_, err = p.Forward(context.Background(), program.Inputs{"question": "capital of France?"})
	require.NoError(t, err)

	assert.Contains(t, client.lastPrompt, "question: capital of Spain?")
	assert.Contains(t, client.lastPrompt, "answer: Madrid")
	// Demonstration precedes the live question.
	assert.Less(t,
		strings.Index(client.lastPrompt, "capital of Spain?"),
		strings.Index(client.lastPrompt, "capital of France?"))
}

func TestConfigure_DoesNotMutateReceiver(t *testing.T) {
	client := &scriptedClient{completion: "r\nanswer: a"}
	base, err := NewProgram(client, qaSignature())
	require.NoError(t, err)

	demos := []program.Demonstration{{
		Example: program.NewExample(map[string]any{"question": "q", "answer": "a"}).WithInputs("question"),
		Score:   1.0,
	}}
	configured := base.Configure(program.Delta{
		program.DemonstrationsKey: demos,
		TemperatureKey:            0.7,
	})

	assert.Empty(t, base.Demonstrations())
	assert.Nil(t, base.params.Temperature)

	p := configured.(*Program)
	assert.Len(t, p.Demonstrations(), 1)
	require.NotNil(t, p.params.Temperature)
	assert.InDelta(t, 0.7, float64(*p.params.Temperature), 1e-6)
}

func TestConfigure_ExplorationMapsToTemperature(t *testing.T) {
	client := &scriptedClient{completion: "r\nanswer: a"}
	base, err := NewProgram(client, qaSignature())
	require.NoError(t, err)

	p := base.Configure(program.Delta{explorationKey: 0.4}).(*Program)
	_, err = p.Forward(context.Background(), program.Inputs{"question": "q"})
	require.NoError(t, err)

	require.NotNil(t, client.lastParams.Temperature)
	assert.InDelta(t, 0.4, float64(*client.lastParams.Temperature), 1e-6)
}

func TestParse_LabelCaseInsensitive(t *testing.T) {
	client := &scriptedClient{completion: "step one\nstep two\nAnswer: 42"}
	p, err := NewProgram(client, qaSignature())
	require.NoError(t, err)

	outcome, err := p.Forward(context.Background(), program.Inputs{"question": "q"})
	require.NoError(t, err)

	reasoning, _ := outcome.Get("reasoning")
	assert.Equal(t, "step one\nstep two", reasoning)
	answer, _ := outcome.Get("answer")
	assert.Equal(t, "42", answer)
}

func TestNewOpenAIClient_RequiresAPIKey(t *testing.T) {
	_, err := NewOpenAIClient(OpenAIConfig{}, nil)
	assert.ErrorIs(t, err, ErrMissingAPIKey)
}
