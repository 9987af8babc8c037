// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package evaluate

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/AleutianAI/tern/program"
)

// fakeProgram delegates Forward to fn. Configure is identity; evaluator
// tests never reconfigure.
type fakeProgram struct {
	fn func(ctx context.Context, inputs program.Inputs) (*program.Outcome, error)
}

func (p *fakeProgram) Forward(ctx context.Context, inputs program.Inputs) (*program.Outcome, error) {
	return p.fn(ctx, inputs)
}

func (p *fakeProgram) Configure(delta program.Delta) program.Program { return p }

// echoProgram returns the "answer" input as the "answer" output.
func echoProgram() *fakeProgram {
	return &fakeProgram{fn: func(ctx context.Context, inputs program.Inputs) (*program.Outcome, error) {
		return program.NewOutcome(inputs, program.Outputs{"answer": inputs["question"]}), nil
	}}
}

func dataset(n int) []*program.Example {
	examples := make([]*program.Example, n)
	for i := range examples {
		examples[i] = program.NewExample(map[string]any{
			"question": fmt.Sprintf("q%d", i),
			"answer":   fmt.Sprintf("q%d", i),
		}).WithInputs("question")
	}
	return examples
}

func exactMatch(example *program.Example, outcome *program.Outcome) float64 {
	want, _ := example.Get("answer")
	got, _ := outcome.Get("answer")
	if want == got {
		return 1.0
	}
	return 0.0
}

func newTestEvaluator(t *testing.T, config Config) *Evaluator {
	t.Helper()
	e, err := New(config, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return e
}

func TestRun_ArgumentValidation(t *testing.T) {
	e := newTestEvaluator(t, Config{})
	ctx := context.Background()

	if _, err := e.Run(ctx, nil, dataset(1), exactMatch); !errors.Is(err, ErrNilProgram) {
		t.Errorf("expected ErrNilProgram, got %v", err)
	}
	if _, err := e.Run(ctx, echoProgram(), dataset(1), nil); !errors.Is(err, ErrNilScoreFunc) {
		t.Errorf("expected ErrNilScoreFunc, got %v", err)
	}
	if _, err := e.Run(ctx, echoProgram(), nil, exactMatch); !errors.Is(err, program.ErrEmptyDataset) {
		t.Errorf("expected ErrEmptyDataset, got %v", err)
	}
}

func TestRun_AggregateScore(t *testing.T) {
	// Scores [1.0, 0.5, 0.0, 1.0] must aggregate to 0.625.
	scores := map[string]float64{"q0": 1.0, "q1": 0.5, "q2": 0.0, "q3": 1.0}
	scoreFn := func(example *program.Example, outcome *program.Outcome) float64 {
		q, _ := example.Get("question")
		return scores[q.(string)]
	}

	e := newTestEvaluator(t, Config{})
	summary, err := e.Run(context.Background(), echoProgram(), dataset(4), scoreFn)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(summary.Failures) != 0 {
		t.Fatalf("expected no failures, got %d", len(summary.Failures))
	}
	if summary.Score != 0.625 {
		t.Errorf("expected aggregate 0.625, got %v", summary.Score)
	}
}

func TestRun_FaultIsolation(t *testing.T) {
	// Exactly one invocation fails deterministically; the other N-1 items
	// succeed with unaffected scores.
	const n = 8
	prog := &fakeProgram{fn: func(ctx context.Context, inputs program.Inputs) (*program.Outcome, error) {
		if inputs["question"] == "q3" {
			return nil, errors.New("model refused")
		}
		return program.NewOutcome(inputs, program.Outputs{"answer": inputs["question"]}), nil
	}}

	examples := dataset(n)
	e := newTestEvaluator(t, Config{MaxConcurrency: 3})
	summary, err := e.Run(context.Background(), prog, examples, exactMatch)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(summary.Successes) != n-1 {
		t.Errorf("expected %d successes, got %d", n-1, len(summary.Successes))
	}
	if len(summary.Failures) != 1 {
		t.Fatalf("expected 1 failure, got %d", len(summary.Failures))
	}
	if !errors.Is(summary.Failures[0].Err, program.ErrExecution) {
		t.Errorf("expected execution error, got %v", summary.Failures[0].Err)
	}
	for _, res := range summary.Successes {
		if res.Score != 1.0 {
			t.Errorf("success score affected by failing item: %v", res.Score)
		}
	}
	if summary.Score != 1.0 {
		t.Errorf("expected aggregate 1.0 over successes, got %v", summary.Score)
	}

	// Every result remains traceable to its originating example.
	failed := examples[3]
	res := summary.ResultFor(failed)
	if res == nil || !res.Failed() {
		t.Error("failing item not traceable to its example")
	}
}

func TestRun_PanicIsolation(t *testing.T) {
	prog := &fakeProgram{fn: func(ctx context.Context, inputs program.Inputs) (*program.Outcome, error) {
		if inputs["question"] == "q1" {
			panic("boom")
		}
		return program.NewOutcome(inputs, program.Outputs{"answer": inputs["question"]}), nil
	}}

	e := newTestEvaluator(t, Config{})
	summary, err := e.Run(context.Background(), prog, dataset(3), exactMatch)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(summary.Failures) != 1 {
		t.Fatalf("expected panicking item recorded as failure, got %d failures", len(summary.Failures))
	}
	if !errors.Is(summary.Failures[0].Err, program.ErrExecution) {
		t.Errorf("expected execution error, got %v", summary.Failures[0].Err)
	}
	if len(summary.Successes) != 2 {
		t.Errorf("expected 2 successes, got %d", len(summary.Successes))
	}
}

func TestRun_PerItemTimeout(t *testing.T) {
	prog := &fakeProgram{fn: func(ctx context.Context, inputs program.Inputs) (*program.Outcome, error) {
		if inputs["question"] == "q0" {
			<-ctx.Done()
			return nil, ctx.Err()
		}
		return program.NewOutcome(inputs, program.Outputs{"answer": inputs["question"]}), nil
	}}

	e := newTestEvaluator(t, Config{PerItemTimeout: 20 * time.Millisecond})
	summary, err := e.Run(context.Background(), prog, dataset(3), exactMatch)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(summary.Failures) != 1 {
		t.Fatalf("expected 1 timeout failure, got %d", len(summary.Failures))
	}
	if !errors.Is(summary.Failures[0].Err, program.ErrTimeout) {
		t.Errorf("expected timeout reason, got %v", summary.Failures[0].Err)
	}
}

func TestRun_BoundedConcurrency(t *testing.T) {
	const limit = 2
	var inFlight, peak atomic.Int32

	prog := &fakeProgram{fn: func(ctx context.Context, inputs program.Inputs) (*program.Outcome, error) {
		now := inFlight.Add(1)
		defer inFlight.Add(-1)
		for {
			old := peak.Load()
			if now <= old || peak.CompareAndSwap(old, now) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		return program.NewOutcome(inputs, program.Outputs{"answer": inputs["question"]}), nil
	}}

	e := newTestEvaluator(t, Config{MaxConcurrency: limit})
	if _, err := e.Run(context.Background(), prog, dataset(10), exactMatch); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if peak.Load() > limit {
		t.Errorf("concurrency bound violated: peak %d > limit %d", peak.Load(), limit)
	}
}

func TestRun_NoSuccessesScoresZero(t *testing.T) {
	prog := &fakeProgram{fn: func(ctx context.Context, inputs program.Inputs) (*program.Outcome, error) {
		return nil, errors.New("always fails")
	}}

	e := newTestEvaluator(t, Config{})
	summary, err := e.Run(context.Background(), prog, dataset(3), exactMatch)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if summary.Score != 0.0 {
		t.Errorf("expected 0.0 with no successes, got %v", summary.Score)
	}
	if summary.Total() != 3 {
		t.Errorf("expected all items recorded, got %d", summary.Total())
	}
}

func TestRun_CancellationKeepsPartialResultsConsistent(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var calls atomic.Int32

	prog := &fakeProgram{fn: func(callCtx context.Context, inputs program.Inputs) (*program.Outcome, error) {
		if calls.Add(1) == 2 {
			cancel()
		}
		return program.NewOutcome(inputs, program.Outputs{"answer": inputs["question"]}), nil
	}}

	e := newTestEvaluator(t, Config{MaxConcurrency: 1})
	summary, err := e.Run(ctx, prog, dataset(50), exactMatch)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !summary.Cancelled {
		t.Error("expected summary marked cancelled")
	}
	if len(summary.Successes) == 0 {
		t.Error("expected at least one result collected before cancellation")
	}
	// Collected successes stay valid: every recorded success scored 1.0,
	// and every abandoned item carries the cancellation as its reason.
	for _, res := range summary.Successes {
		if res.Score != 1.0 {
			t.Errorf("inconsistent partial result score: %v", res.Score)
		}
	}
	for _, res := range summary.Failures {
		if !errors.Is(res.Err, context.Canceled) {
			t.Errorf("expected cancellation reason, got %v", res.Err)
		}
	}
}
