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
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/AleutianAI/tern/constraint"
	"github.com/AleutianAI/tern/program"
)

// stubProgram is a deterministic Program for engine tests. Forward delegates
// to the fn with the global 1-based call number; Configure returns a copy
// with the delta folded into its options.
type stubProgram struct {
	fn      func(ctx context.Context, inputs program.Inputs, call int, options program.Delta) (*program.Outcome, error)
	options program.Delta

	mu    *sync.Mutex
	calls *int
}

func newStubProgram(fn func(ctx context.Context, inputs program.Inputs, call int, options program.Delta) (*program.Outcome, error)) *stubProgram {
	var calls int
	return &stubProgram{fn: fn, options: program.Delta{}, mu: &sync.Mutex{}, calls: &calls}
}

func (p *stubProgram) Forward(ctx context.Context, inputs program.Inputs) (*program.Outcome, error) {
	p.mu.Lock()
	*p.calls++
	call := *p.calls
	p.mu.Unlock()
	return p.fn(ctx, inputs, call, p.options)
}

func (p *stubProgram) Configure(delta program.Delta) program.Program {
	options := make(program.Delta, len(p.options)+len(delta))
	for k, v := range p.options {
		options[k] = v
	}
	for k, v := range delta {
		options[k] = v
	}
	return &stubProgram{fn: p.fn, options: options, mu: p.mu, calls: p.calls}
}

// echoCall returns an outcome whose "call" output is the call number.
func echoCall(ctx context.Context, inputs program.Inputs, call int, options program.Delta) (*program.Outcome, error) {
	return program.NewOutcome(inputs, program.Outputs{"call": call}), nil
}

// callAtLeast passes once the program's call number reaches n.
func callAtLeast(n int) constraint.Constraint {
	return constraint.Assert("call_at_least", func(value any) bool {
		outcome, ok := value.(*program.Outcome)
		if !ok {
			return false
		}
		call, _ := outcome.Get("call")
		return call.(int) >= n
	}, "enough attempts made")
}

func fastConfig(kind StrategyKind, maxAttempts int) Config {
	cfg := DefaultConfig()
	cfg.Strategy = kind
	cfg.MaxAttempts = maxAttempts
	cfg.BaseBackoff = time.Millisecond
	return cfg
}

func TestNew_Validation(t *testing.T) {
	if _, err := New(nil, nil, DefaultConfig(), nil); !errors.Is(err, ErrNilProgram) {
		t.Errorf("expected ErrNilProgram, got %v", err)
	}

	cfg := DefaultConfig()
	cfg.MaxAttempts = -1
	if _, err := New(newStubProgram(echoCall), nil, cfg, nil); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig, got %v", err)
	}
}

func TestSimpleRetry_SucceedsOnThirdAttempt(t *testing.T) {
	prog := newStubProgram(echoCall)
	engine, err := New(prog, []constraint.Constraint{callAtLeast(3)}, fastConfig(StrategySimple, 5), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	run, err := engine.Execute(context.Background(), program.Inputs{"question": "q"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if run.Outcome == nil {
		t.Fatal("expected outcome")
	}
	if len(run.Attempts) != 3 {
		t.Errorf("expected exactly 3 attempt records, got %d", len(run.Attempts))
	}
	if run.FinalState != StateSuccess {
		t.Errorf("expected success state, got %v", run.FinalState)
	}
	if engine.State() != StateSuccess {
		t.Errorf("expected engine state success, got %v", engine.State())
	}
}

func TestSimpleRetry_Exhaustion(t *testing.T) {
	prog := newStubProgram(echoCall)
	never := constraint.Assert("never", func(any) bool { return false }, "unsatisfiable")

	engine, err := New(prog, []constraint.Constraint{never}, fastConfig(StrategySimple, 3), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	run, err := engine.Execute(context.Background(), program.Inputs{})
	if run != nil {
		t.Error("expected nil run on exhaustion")
	}
	if !errors.Is(err, ErrExhausted) {
		t.Fatalf("expected ErrExhausted, got %v", err)
	}

	var exhausted *ExhaustedError
	if !errors.As(err, &exhausted) {
		t.Fatal("expected *ExhaustedError")
	}
	if len(exhausted.Attempts) != 3 {
		t.Errorf("expected exactly 3 attempt records, got %d", len(exhausted.Attempts))
	}
	for i, rec := range exhausted.Attempts {
		if rec.Attempt != i+1 {
			t.Errorf("record %d: expected attempt number %d, got %d", i, i+1, rec.Attempt)
		}
		if rec.Succeeded() {
			t.Errorf("record %d: expected failed attempt", i)
		}
	}
	if engine.State() != StateExhausted {
		t.Errorf("expected engine state exhausted, got %v", engine.State())
	}
}

func TestExecute_PerCallTimeout(t *testing.T) {
	prog := newStubProgram(func(ctx context.Context, inputs program.Inputs, call int, options program.Delta) (*program.Outcome, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})

	cfg := fastConfig(StrategySimple, 1)
	cfg.PerCallTimeout = 10 * time.Millisecond
	engine, err := New(prog, nil, cfg, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err = engine.Execute(context.Background(), program.Inputs{})
	var exhausted *ExhaustedError
	if !errors.As(err, &exhausted) {
		t.Fatalf("expected exhaustion, got %v", err)
	}
	if !errors.Is(exhausted.Attempts[0].Err, program.ErrTimeout) {
		t.Errorf("expected timeout attempt error, got %v", exhausted.Attempts[0].Err)
	}
}

func TestExecute_Cancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	prog := newStubProgram(func(_ context.Context, inputs program.Inputs, call int, options program.Delta) (*program.Outcome, error) {
		cancel() // caller cancels mid-run
		return program.NewOutcome(inputs, program.Outputs{"call": call}), nil
	})
	never := constraint.Assert("never", func(any) bool { return false }, "unsatisfiable")

	engine, err := New(prog, []constraint.Constraint{never}, fastConfig(StrategySimple, 5), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err = engine.Execute(ctx, program.Inputs{})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestExecute_SoftViolationsNeverAbort(t *testing.T) {
	prog := newStubProgram(echoCall)
	soft := constraint.Suggest("nice_to_have", func(any) bool { return false }, "optional polish")

	engine, err := New(prog, []constraint.Constraint{soft}, fastConfig(StrategySimple, 3), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	run, err := engine.Execute(context.Background(), program.Inputs{})
	if err != nil {
		t.Fatalf("soft violations must not fail the run: %v", err)
	}
	if len(run.Attempts) != 1 {
		t.Errorf("expected success on first attempt, got %d attempts", len(run.Attempts))
	}
	if run.Attempts[0].Validation.Status != constraint.StatusWarning {
		t.Errorf("expected warning status, got %v", run.Attempts[0].Validation.Status)
	}
}
