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
	"errors"
	"fmt"
	"time"

	"github.com/AleutianAI/tern/program"
)

var (
	// ErrInvalidConfig is returned when an evaluator configuration is invalid.
	ErrInvalidConfig = errors.New("invalid evaluator configuration")

	// ErrNilProgram is returned when Run is called without a program.
	ErrNilProgram = errors.New("program must not be nil")

	// ErrNilScoreFunc is returned when Run is called without a score function.
	ErrNilScoreFunc = errors.New("score function must not be nil")
)

// Config configures an Evaluator. Zero values use defaults.
type Config struct {
	// MaxConcurrency is the maximum number of items in flight at any time.
	// Default: 4.
	MaxConcurrency int

	// PerItemTimeout bounds each Forward call. A hung call becomes a
	// failure with a timeout reason without blocking other items.
	// Default: 30s.
	PerItemTimeout time.Duration

	// TotalTimeout bounds the whole run. Zero means no total deadline;
	// callers usually bound runs through ctx instead.
	TotalTimeout time.Duration
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		MaxConcurrency: 4,
		PerItemTimeout: 30 * time.Second,
	}
}

// ApplyDefaults fills zero-valued fields with defaults.
func (c *Config) ApplyDefaults() {
	def := DefaultConfig()
	if c.MaxConcurrency == 0 {
		c.MaxConcurrency = def.MaxConcurrency
	}
	if c.PerItemTimeout == 0 {
		c.PerItemTimeout = def.PerItemTimeout
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.MaxConcurrency < 1 {
		return fmt.Errorf("%w: MaxConcurrency must be >= 1", ErrInvalidConfig)
	}
	if c.PerItemTimeout <= 0 {
		return fmt.Errorf("%w: PerItemTimeout must be positive", ErrInvalidConfig)
	}
	if c.TotalTimeout < 0 {
		return fmt.Errorf("%w: TotalTimeout must not be negative", ErrInvalidConfig)
	}
	return nil
}

// ItemResult associates one Example with either its outcome and score or a
// failure reason. Results complete out of submission order but always carry
// their originating Example.
type ItemResult struct {
	// Example is the dataset element this result belongs to.
	Example *program.Example

	// Outcome is the program's result. Nil on failure.
	Outcome *program.Outcome

	// Score is the metric score for a successful item.
	Score float64

	// Err is the failure reason. Nil on success.
	Err error

	// Duration is how long the item took.
	Duration time.Duration
}

// Failed returns true when the item did not produce a scored outcome.
func (r *ItemResult) Failed() bool { return r.Err != nil }

// Summary aggregates one evaluation run: the mean score over successful
// items (0.0 when there are none) and every per-item result partitioned
// into successes and failures.
type Summary struct {
	// Score is the arithmetic mean of successful item scores, 0.0 if none.
	Score float64

	// Successes holds items that produced a scored outcome.
	Successes []ItemResult

	// Failures holds items that failed, timed out, or panicked.
	Failures []ItemResult

	// Duration is the total run time.
	Duration time.Duration

	// Cancelled is true when the run stopped early because the caller's
	// context was cancelled. Collected results are still valid.
	Cancelled bool
}

// Total returns the number of items with a recorded result.
func (s *Summary) Total() int {
	return len(s.Successes) + len(s.Failures)
}

// ResultFor returns the result recorded for the given example, or nil when
// the example has no result (e.g. it was never scheduled before
// cancellation). Completion order does not matter; association is by the
// originating Example.
func (s *Summary) ResultFor(example *program.Example) *ItemResult {
	for i := range s.Successes {
		if s.Successes[i].Example == example {
			return &s.Successes[i]
		}
	}
	for i := range s.Failures {
		if s.Failures[i].Example == example {
			return &s.Failures[i]
		}
	}
	return nil
}
