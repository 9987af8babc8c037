// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package evaluate implements the concurrent evaluator: it fans a Program
// out over a dataset with bounded concurrency and per-item fault isolation,
// producing per-item results and an aggregate score.
//
// Fault isolation is the component's core contract: a failing, hung, or
// panicking item becomes a recorded failure and never aborts the remaining
// items.
package evaluate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/AleutianAI/tern/program"
)

// Evaluator runs Programs over datasets. Stateless between runs; safe for
// concurrent use.
type Evaluator struct {
	config Config
	logger *slog.Logger
}

// New creates an evaluator.
//
// Inputs:
//   - config: Evaluator configuration. Zero values use defaults.
//   - logger: Logger for run events. If nil, uses slog.Default().
//
// Outputs:
//   - *Evaluator: The evaluator. Never nil on success.
//   - error: Non-nil if the configuration is invalid.
func New(config Config, logger *slog.Logger) (*Evaluator, error) {
	config.ApplyDefaults()
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Evaluator{
		config: config,
		logger: logger.With(slog.String("component", "evaluator")),
	}, nil
}

// Run executes the program against every example in the dataset.
//
// At most MaxConcurrency items are in flight at any time. Each Forward call
// is bounded by PerItemTimeout; a hung call becomes a failure with a timeout
// reason. The score function and Forward are invoked concurrently from
// independent workers and must be safe for that.
//
// Inputs:
//   - ctx: Context for cancellation. Cancelling stops scheduling new items;
//     collected results are returned in a consistent Summary with the
//     Cancelled flag set.
//   - prog: The program under evaluation. Must not be nil.
//   - dataset: The examples to evaluate. Must not be empty.
//   - scoreFn: Metric applied to each successful outcome. Must not be nil.
//
// Outputs:
//   - *Summary: Aggregate score plus per-item results partitioned into
//     successes and failures, each traceable to its Example.
//   - error: Non-nil only for invalid arguments; per-item failures are
//     captured in the Summary, never raised.
func (e *Evaluator) Run(ctx context.Context, prog program.Program, dataset []*program.Example, scoreFn program.MetricFunc) (*Summary, error) {
	if prog == nil {
		return nil, ErrNilProgram
	}
	if scoreFn == nil {
		return nil, ErrNilScoreFunc
	}
	if len(dataset) == 0 {
		return nil, program.ErrEmptyDataset
	}

	start := time.Now()

	if e.config.TotalTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.config.TotalTimeout)
		defer cancel()
	}

	sem := newSemaphore(e.config.MaxConcurrency)
	results := make(chan ItemResult, len(dataset))
	var wg sync.WaitGroup

	scheduled := 0
	for _, example := range dataset {
		// Stop scheduling once the caller cancels; in-flight items drain.
		if ctx.Err() != nil {
			break
		}
		scheduled++
		wg.Add(1)
		example := example
		go func() {
			defer wg.Done()
			if err := sem.acquire(ctx); err != nil {
				results <- ItemResult{Example: example, Err: err}
				return
			}
			defer sem.release()
			results <- e.runItem(ctx, prog, example, scoreFn)
		}()
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	summary := &Summary{}
	var scoreSum float64
	for res := range results {
		if res.Failed() {
			summary.Failures = append(summary.Failures, res)
			continue
		}
		summary.Successes = append(summary.Successes, res)
		scoreSum += res.Score
	}
	if n := len(summary.Successes); n > 0 {
		summary.Score = scoreSum / float64(n)
	}
	summary.Duration = time.Since(start)
	summary.Cancelled = ctx.Err() != nil || scheduled < len(dataset)

	runScore.Observe(summary.Score)
	e.logger.Info("evaluation run complete",
		slog.Int("dataset", len(dataset)),
		slog.Int("successes", len(summary.Successes)),
		slog.Int("failures", len(summary.Failures)),
		slog.Float64("score", summary.Score),
		slog.Bool("cancelled", summary.Cancelled))

	return summary, nil
}

// runItem executes and scores a single example, converting every failure
// mode — Forward error, timeout, panic — into a recorded failure.
func (e *Evaluator) runItem(ctx context.Context, prog program.Program, example *program.Example, scoreFn program.MetricFunc) (res ItemResult) {
	start := time.Now()
	res = ItemResult{Example: example}

	defer func() {
		res.Duration = time.Since(start)
		itemDuration.Observe(res.Duration.Seconds())
		if r := recover(); r != nil {
			res.Outcome = nil
			res.Err = &program.ExecutionError{Op: "evaluate item", Err: fmt.Errorf("panic: %v", r)}
			itemsTotal.WithLabelValues(statusPanic).Inc()
		}
	}()

	itemCtx, cancel := context.WithTimeout(ctx, e.config.PerItemTimeout)
	defer cancel()

	outcome, err := prog.Forward(itemCtx, example.Inputs())
	if err != nil {
		if errors.Is(itemCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			res.Err = &program.TimeoutError{Op: "forward", Budget: e.config.PerItemTimeout}
			itemsTotal.WithLabelValues(statusTimeout).Inc()
		} else {
			res.Err = &program.ExecutionError{Op: "forward", Err: err}
			itemsTotal.WithLabelValues(statusExecutionError).Inc()
		}
		return res
	}

	res.Outcome = outcome
	res.Score = scoreFn(example, outcome)
	itemsTotal.WithLabelValues(statusSuccess).Inc()
	return res
}
