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
	"fmt"
	"time"

	"github.com/AleutianAI/tern/constraint"
)

// StrategyKind selects a retry strategy. The set is closed and resolved once
// at engine construction.
type StrategyKind int

const (
	// StrategySimple retries with exponential backoff.
	StrategySimple StrategyKind = iota
	// StrategyFeedback merges violation feedback into the next attempt's inputs.
	StrategyFeedback
	// StrategyAdaptive maintains a learned exploration adjustment applied
	// to the program before each call.
	StrategyAdaptive
	// StrategyParallel races concurrent attempts under different
	// sub-strategies and adopts the first success.
	StrategyParallel
	// StrategyRelaxation tries progressively smaller constraint subsets.
	StrategyRelaxation
	// StrategyGenetic evolves a population of parameter variants.
	StrategyGenetic
)

// String returns the string representation of a StrategyKind.
func (k StrategyKind) String() string {
	switch k {
	case StrategySimple:
		return "simple_retry"
	case StrategyFeedback:
		return "feedback_guided"
	case StrategyAdaptive:
		return "adaptive_parameter"
	case StrategyParallel:
		return "parallel_exploration"
	case StrategyRelaxation:
		return "constraint_relaxation"
	case StrategyGenetic:
		return "genetic_search"
	default:
		return fmt.Sprintf("strategy(%d)", k)
	}
}

// Config configures a backtracking engine. Zero values use defaults.
type Config struct {
	// MaxAttempts is the attempt budget. For the genetic strategy this is
	// the generation budget. Default: 3.
	MaxAttempts int

	// Strategy selects the retry strategy. Default: StrategySimple.
	Strategy StrategyKind

	// BaseBackoff is the base wait for the exponential backoff schedule
	// backoff(n) = 2^(n-1) * base. Default: 100ms.
	BaseBackoff time.Duration

	// PerCallTimeout bounds every Forward call, independent of any
	// caller-level deadline. Default: 30s.
	PerCallTimeout time.Duration

	// Mode is the execution mode passed to adaptive constraints.
	// Default: ModeDevelopment.
	Mode constraint.Mode

	// FeedbackKey is the auxiliary input field the feedback-guided strategy
	// writes violation feedback into. Default: "feedback".
	FeedbackKey string

	// ParallelWidth is the number of concurrent branches for parallel
	// exploration. Default: 3.
	ParallelWidth int

	// Exploration is the adaptive-parameter strategy's initial exploration
	// value, applied to the program as the "exploration" option. Default: 0.1.
	Exploration float64

	// ExplorationStep is how much the exploration value grows after a
	// failed attempt, clamped to 1.0. Default: 0.15.
	ExplorationStep float64

	// PopulationSize is the genetic strategy's population size. Default: 8.
	PopulationSize int

	// MutationRate is the per-gene mutation probability. Default: 0.3.
	MutationRate float64

	// ParameterRanges defines the genetic strategy's gene space: option
	// name to [min, max]. Default: {"temperature": [0, 1]}.
	ParameterRanges map[string][2]float64

	// Seed seeds the strategy-local random source. Zero means seed from
	// the current time.
	Seed int64

	// TracingEnabled turns on OpenTelemetry spans for runs and attempts.
	// Default: false.
	TracingEnabled bool
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		MaxAttempts:     3,
		Strategy:        StrategySimple,
		BaseBackoff:     100 * time.Millisecond,
		PerCallTimeout:  30 * time.Second,
		FeedbackKey:     "feedback",
		ParallelWidth:   3,
		Exploration:     0.1,
		ExplorationStep: 0.15,
		PopulationSize:  8,
		MutationRate:    0.3,
		ParameterRanges: map[string][2]float64{"temperature": {0, 1}},
	}
}

// ApplyDefaults fills zero-valued fields with defaults.
func (c *Config) ApplyDefaults() {
	def := DefaultConfig()
	if c.MaxAttempts == 0 {
		c.MaxAttempts = def.MaxAttempts
	}
	if c.BaseBackoff == 0 {
		c.BaseBackoff = def.BaseBackoff
	}
	if c.PerCallTimeout == 0 {
		c.PerCallTimeout = def.PerCallTimeout
	}
	if c.FeedbackKey == "" {
		c.FeedbackKey = def.FeedbackKey
	}
	if c.ParallelWidth == 0 {
		c.ParallelWidth = def.ParallelWidth
	}
	if c.Exploration == 0 {
		c.Exploration = def.Exploration
	}
	if c.ExplorationStep == 0 {
		c.ExplorationStep = def.ExplorationStep
	}
	if c.PopulationSize == 0 {
		c.PopulationSize = def.PopulationSize
	}
	if c.MutationRate == 0 {
		c.MutationRate = def.MutationRate
	}
	if c.ParameterRanges == nil {
		c.ParameterRanges = def.ParameterRanges
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.MaxAttempts < 1 {
		return fmt.Errorf("%w: MaxAttempts must be >= 1", ErrInvalidConfig)
	}
	if c.BaseBackoff < 0 {
		return fmt.Errorf("%w: BaseBackoff must not be negative", ErrInvalidConfig)
	}
	if c.PerCallTimeout <= 0 {
		return fmt.Errorf("%w: PerCallTimeout must be positive", ErrInvalidConfig)
	}
	if c.ParallelWidth < 1 {
		return fmt.Errorf("%w: ParallelWidth must be >= 1", ErrInvalidConfig)
	}
	if c.PopulationSize < 2 {
		return fmt.Errorf("%w: PopulationSize must be >= 2", ErrInvalidConfig)
	}
	if c.MutationRate < 0 || c.MutationRate > 1 {
		return fmt.Errorf("%w: MutationRate must be in [0, 1]", ErrInvalidConfig)
	}
	for name, r := range c.ParameterRanges {
		if r[0] > r[1] {
			return fmt.Errorf("%w: parameter %q has min > max", ErrInvalidConfig, name)
		}
	}
	return nil
}

// backoffFor returns the wait before retrying after the given 1-based
// attempt: 2^(attempt-1) * base.
func (c *Config) backoffFor(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	return c.BaseBackoff << (attempt - 1)
}
