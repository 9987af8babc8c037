// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package teleprompt

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/AleutianAI/tern/evaluate"
	"github.com/AleutianAI/tern/program"
)

// Bootstrap compiles a student Program by harvesting demonstrations from a
// teacher Program.
//
// Compilation runs three stages:
//  1. evaluation: the teacher runs over every training example concurrently.
//  2. filtering: outcomes the metric scores at or above the acceptance
//     threshold become demonstration candidates, in training-set order.
//  3. selection: the configured Selector picks at most MaxDemos candidates,
//     which are installed on the student via Configure.
//
// Thread Safety: Safe for concurrent use after construction.
type Bootstrap struct {
	config    Config
	evaluator *evaluate.Evaluator
	logger    *slog.Logger
}

// NewBootstrap creates a Bootstrap optimizer.
//
// Inputs:
//   - config: Optimizer configuration. Zero-valued fields get defaults.
//   - logger: Logger for compile events. If nil, uses slog.Default().
//
// Outputs:
//   - *Bootstrap: The optimizer on success.
//   - error: ErrInvalidConfig if the configuration is invalid.
func NewBootstrap(config Config, logger *slog.Logger) (*Bootstrap, error) {
	config.ApplyDefaults()
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With(slog.String("component", "bootstrap"))

	evaluator, err := evaluate.New(evaluate.Config{
		MaxConcurrency: config.MaxConcurrency,
		PerItemTimeout: config.PerItemTimeout,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	return &Bootstrap{
		config:    config,
		evaluator: evaluator,
		logger:    logger,
	}, nil
}

// Compile returns a new student configured with demonstrations harvested
// from the teacher. The input student is never mutated.
//
// An empty trainset is not an error: the student is returned unchanged. A
// trainset that yields no accepted demonstrations is an error wrapping
// program.ErrNoUsableDemonstrations, since a silent no-op would hide a
// broken teacher or metric.
//
// Inputs:
//   - ctx: Context for cancellation. Must not be nil.
//   - student: The program to optimize. Must not be nil.
//   - teacher: The program that generates candidate demonstrations. Must
//     not be nil. May be the student itself.
//   - trainset: Labeled examples to bootstrap from.
//   - metric: Acceptance metric. Must not be nil.
//
// Outputs:
//   - program.Program: The configured student on success.
//   - error: *CompileError qualified with the failing stage.
func (b *Bootstrap) Compile(ctx context.Context, student, teacher program.Program, trainset []*program.Example, metric program.MetricFunc) (program.Program, error) {
	if student == nil || teacher == nil {
		return nil, fmt.Errorf("%w: student and teacher are required", ErrNilProgram)
	}
	if metric == nil {
		return nil, ErrNilMetric
	}
	if len(trainset) == 0 {
		b.logger.Warn("compile called with empty trainset; returning student unchanged")
		return student, nil
	}

	summary, err := b.evaluator.Run(ctx, teacher, trainset, metric)
	if err != nil {
		return nil, &CompileError{Stage: StageEvaluation, Err: err}
	}
	if summary.Cancelled {
		cause := ctx.Err()
		if cause == nil {
			cause = context.Canceled
		}
		return nil, &CompileError{Stage: StageEvaluation, Err: cause}
	}

	candidates := b.filter(trainset, summary)
	if len(candidates) == 0 {
		return nil, &CompileError{
			Stage: StageFiltering,
			Err: fmt.Errorf("%w: %d teacher successes, none at threshold %v",
				program.ErrNoUsableDemonstrations, len(summary.Successes), b.config.AcceptanceThreshold),
		}
	}

	demos := b.config.Selector.Select(candidates, b.config.MaxDemos)
	if len(demos) == 0 {
		return nil, &CompileError{
			Stage: StageSelection,
			Err:   fmt.Errorf("selector %q returned no demonstrations from %d candidates", b.config.Selector.Name(), len(candidates)),
		}
	}

	b.logger.Info("compile complete",
		slog.Int("trainset", len(trainset)),
		slog.Int("candidates", len(candidates)),
		slog.Int("demonstrations", len(demos)),
		slog.String("selector", b.config.Selector.Name()),
	)

	return student.Configure(program.Delta{program.DemonstrationsKey: demos}), nil
}

// filter collects accepted demonstrations in trainset order. A candidate
// pairs the example's inputs with the teacher's generated outputs, so the
// student learns from what the teacher actually produced rather than from
// gold labels alone.
func (b *Bootstrap) filter(trainset []*program.Example, summary *evaluate.Summary) []program.Demonstration {
	candidates := make([]program.Demonstration, 0, len(summary.Successes))
	for _, example := range trainset {
		res := summary.ResultFor(example)
		if res == nil || res.Failed() || res.Score < b.config.AcceptanceThreshold {
			continue
		}
		candidates = append(candidates, program.Demonstration{
			Example: demonstrationExample(example, res.Outcome),
			Score:   res.Score,
		})
	}
	return candidates
}

// demonstrationExample merges the example's inputs with the teacher's
// outputs into a fresh Example whose input designation matches the original.
func demonstrationExample(example *program.Example, outcome *program.Outcome) *program.Example {
	inputs := example.Inputs()

	fields := make(map[string]any, len(inputs)+len(outcome.Outputs))
	for k, v := range inputs {
		fields[k] = v
	}
	for k, v := range outcome.Outputs {
		fields[k] = v
	}

	inputKeys := make([]string, 0, len(inputs))
	for k := range inputs {
		inputKeys = append(inputKeys, k)
	}
	return program.NewExample(fields).WithInputs(inputKeys...)
}
