// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package backtrack implements the backtracking engine: repeated
// Program.Forward + validation cycles driven by a pluggable retry strategy
// until an outcome satisfies the constraint set or the attempt budget runs
// out.
//
// Six strategies are available (see StrategyKind). All of them record an
// AttemptRecord per attempt so the full history is inspectable regardless of
// strategy; exhaustion surfaces as *ExhaustedError carrying that history.
package backtrack

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/AleutianAI/tern/constraint"
	"github.com/AleutianAI/tern/program"
)

// Strategy drives one backtracking run. Implementations receive a session
// carrying the engine's program, constraints, and shared attempt history,
// and return the adopted outcome or nil when exhausted.
//
// Strategy choice is resolved once at engine construction; the engine never
// branches on strategy kind mid-run.
type Strategy interface {
	// Name returns the strategy's stable identifier, used in attempt
	// records and spans.
	Name() string

	// Run executes attempts until success or exhaustion. A nil outcome
	// with nil error means exhaustion; the engine wraps the session
	// history into an *ExhaustedError.
	Run(ctx context.Context, s *session, inputs program.Inputs) (*program.Outcome, error)
}

// Engine drives repeated execute-and-validate cycles over a single Program.
//
// An Engine holds no process-wide state: program, constraints, and options
// are all supplied at construction. Execute may be called repeatedly but not
// concurrently; build one engine per concurrent caller.
type Engine struct {
	program     program.Program
	constraints []constraint.Constraint
	config      Config
	strategy    Strategy
	logger      *slog.Logger
	tracer      *Tracer

	state atomic.Int32
}

// New creates a backtracking engine.
//
// Inputs:
//   - prog: The program to execute. Must not be nil.
//   - constraints: Constraints the outcome must satisfy. May be empty.
//   - config: Engine configuration. Zero values use defaults.
//   - logger: Logger for attempt events. If nil, uses slog.Default().
//
// Outputs:
//   - *Engine: The engine. Never nil on success.
//   - error: Non-nil if prog is nil or the configuration is invalid.
func New(prog program.Program, constraints []constraint.Constraint, config Config, logger *slog.Logger) (*Engine, error) {
	if prog == nil {
		return nil, ErrNilProgram
	}
	config.ApplyDefaults()
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}

	e := &Engine{
		program:     prog,
		constraints: constraints,
		config:      config,
		logger:      logger.With(slog.String("component", "backtrack_engine")),
		tracer:      NewTracer(config.TracingEnabled),
	}
	e.strategy = newStrategy(config)
	e.state.Store(int32(StateIdle))
	return e, nil
}

// State returns the engine's current execution state.
func (e *Engine) State() State {
	return State(e.state.Load())
}

// Execute runs the program under the configured strategy until its outcome
// satisfies the constraints or the attempt budget is exhausted.
//
// Inputs:
//   - ctx: Context for cancellation. Must not be nil.
//   - inputs: The program inputs. Not mutated; strategies that enhance
//     inputs work on copies.
//
// Outputs:
//   - *Run: The adopted outcome plus the complete attempt history.
//   - error: *ExhaustedError on budget exhaustion (with full history
//     attached), or the context's error on cancellation.
func (e *Engine) Execute(ctx context.Context, inputs program.Inputs) (*Run, error) {
	start := time.Now()
	s := &session{engine: e}

	ctx, span := e.tracer.StartRun(ctx, e.strategy.Name(), e.config.MaxAttempts)

	outcome, err := e.strategy.Run(ctx, s, inputs)
	attempts := s.snapshot()

	if err != nil {
		e.state.Store(int32(StateExhausted))
		e.tracer.EndRun(span, len(attempts), false)
		return nil, err
	}
	if outcome == nil {
		e.state.Store(int32(StateExhausted))
		e.tracer.EndRun(span, len(attempts), false)
		e.logger.Warn("backtracking exhausted",
			slog.String("strategy", e.strategy.Name()),
			slog.Int("attempts", len(attempts)))
		return nil, &ExhaustedError{
			Strategy:    e.strategy.Name(),
			MaxAttempts: e.config.MaxAttempts,
			Attempts:    attempts,
		}
	}

	e.state.Store(int32(StateSuccess))
	e.tracer.EndRun(span, len(attempts), true)
	e.logger.Debug("backtracking succeeded",
		slog.String("strategy", e.strategy.Name()),
		slog.Int("attempts", len(attempts)))
	return &Run{
		Outcome:    outcome,
		Attempts:   attempts,
		Strategy:   e.strategy.Name(),
		FinalState: StateSuccess,
		Duration:   time.Since(start),
	}, nil
}

// newStrategy resolves the configured strategy kind once.
func newStrategy(config Config) Strategy {
	switch config.Strategy {
	case StrategyFeedback:
		return &feedbackStrategy{}
	case StrategyAdaptive:
		return &adaptiveStrategy{}
	case StrategyParallel:
		return &parallelStrategy{}
	case StrategyRelaxation:
		return &relaxationStrategy{}
	case StrategyGenetic:
		return &geneticStrategy{}
	default:
		return &simpleStrategy{}
	}
}

// -----------------------------------------------------------------------------
// Session
// -----------------------------------------------------------------------------

// session carries per-run state shared between the engine and its strategy:
// the append-only attempt history and the rolling statistics that feed
// adaptive constraints. The parallel strategy appends from several
// goroutines, so all access is mutex-guarded.
type session struct {
	engine *Engine

	mu       sync.Mutex
	attempts []AttemptRecord
	passed   int
	history  []constraint.HistoryEntry
}

// vctx builds the validation context for the given attempt number from the
// session's rolling statistics.
func (s *session) vctx(attempt int) *constraint.Context {
	s.mu.Lock()
	defer s.mu.Unlock()
	rate := 0.0
	if total := len(s.attempts); total > 0 {
		rate = float64(s.passed) / float64(total)
	}
	history := make([]constraint.HistoryEntry, len(s.history))
	copy(history, s.history)
	return &constraint.Context{
		AttemptCount: attempt,
		Mode:         s.engine.config.Mode,
		SuccessRate:  rate,
		History:      history,
	}
}

// attempt performs one execute-and-validate cycle against the given program
// and constraint set, appends the record, and returns it.
//
// Forward is bounded by the engine's per-call timeout. A fatal validation
// result or a Forward error marks the attempt failed; warnings never do.
func (s *session) attempt(
	ctx context.Context,
	prog program.Program,
	inputs program.Inputs,
	number int,
	strategyName string,
	constraints []constraint.Constraint,
) *AttemptRecord {
	e := s.engine
	e.state.Store(int32(StateAttempting))

	ctx, span := e.tracer.StartAttempt(ctx, strategyName, number)
	start := time.Now()

	record := AttemptRecord{
		ID:        uuid.NewString(),
		Attempt:   number,
		Strategy:  strategyName,
		Inputs:    inputs.Clone(),
		Timestamp: start,
	}

	callCtx, cancel := context.WithTimeout(ctx, e.config.PerCallTimeout)
	outcome, err := prog.Forward(callCtx, inputs)
	cancel()

	if err != nil {
		if callCtx.Err() == context.DeadlineExceeded && ctx.Err() == nil {
			err = &program.TimeoutError{Op: "forward", Budget: e.config.PerCallTimeout}
		} else {
			err = &program.ExecutionError{Op: "forward", Err: err}
		}
		record.Err = err
		record.Duration = time.Since(start)
		s.append(record, nil)
		e.tracer.EndAttempt(span, false, err)
		e.logger.Debug("attempt failed",
			slog.String("strategy", strategyName),
			slog.Int("attempt", number),
			slog.String("error", err.Error()))
		return &record
	}

	e.state.Store(int32(StateValidating))
	result := constraint.ValidateAll(outcome, constraints, s.vctx(number))
	record.Outcome = outcome
	record.Validation = result
	record.Duration = time.Since(start)
	s.append(record, result)

	e.tracer.EndAttempt(span, !result.Fatal(), nil)
	e.logger.Debug("attempt validated",
		slog.String("strategy", strategyName),
		slog.Int("attempt", number),
		slog.String("status", result.Status.String()))
	return &record
}

// append records the attempt and folds its constraint outcomes into the
// rolling history. Safe for concurrent use.
func (s *session) append(record AttemptRecord, result *constraint.Result) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attempts = append(s.attempts, record)
	if result == nil {
		return
	}
	if !result.Fatal() {
		s.passed++
	}
	violated := make(map[string]bool, len(result.Errors)+len(result.Warnings))
	for _, v := range result.Violations() {
		violated[v.Constraint] = true
		s.history = append(s.history, constraint.HistoryEntry{Constraint: v.Constraint, Violated: true})
	}
	for _, c := range s.engine.constraints {
		if !violated[c.Name()] {
			s.history = append(s.history, constraint.HistoryEntry{Constraint: c.Name(), Violated: false})
		}
	}
}

// snapshot returns a copy of the attempt history.
func (s *session) snapshot() []AttemptRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]AttemptRecord, len(s.attempts))
	copy(out, s.attempts)
	return out
}

// wait sleeps for the backoff duration or until the context is cancelled.
// Returns the context error on cancellation.
func (s *session) wait(ctx context.Context, d time.Duration) error {
	s.engine.state.Store(int32(StateRetrying))
	if d <= 0 {
		return ctx.Err()
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}
