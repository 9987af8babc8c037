// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package teleprompt optimizes Programs from labeled data. The Bootstrap
// optimizer runs a teacher Program over a training set, keeps the outcomes
// an acceptance metric admits, and installs a bounded selection of them as
// demonstrations on a student Program.
package teleprompt

import (
	"errors"
	"fmt"
	"time"
)

// ----------------------------------------------------------------------------
// Errors
// ----------------------------------------------------------------------------

var (
	// ErrInvalidConfig indicates the optimizer configuration failed validation.
	ErrInvalidConfig = errors.New("invalid teleprompt config")

	// ErrNilProgram indicates a nil student or teacher was supplied.
	ErrNilProgram = errors.New("program must not be nil")

	// ErrNilMetric indicates a nil acceptance metric was supplied.
	ErrNilMetric = errors.New("metric must not be nil")
)

// Compile stages, used to qualify CompileError.
const (
	StageEvaluation = "evaluation"
	StageFiltering  = "filtering"
	StageSelection  = "selection"
)

// CompileError reports a compilation failure together with the stage that
// produced it.
type CompileError struct {
	// Stage is one of StageEvaluation, StageFiltering, StageSelection.
	Stage string

	// Err is the underlying cause.
	Err error
}

// Error implements the error interface.
func (e *CompileError) Error() string {
	return fmt.Sprintf("compile failed during %s: %v", e.Stage, e.Err)
}

// Unwrap exposes the underlying cause for errors.Is/As.
func (e *CompileError) Unwrap() error { return e.Err }

// ----------------------------------------------------------------------------
// Configuration
// ----------------------------------------------------------------------------

// Config controls the Bootstrap optimizer.
type Config struct {
	// MaxDemos caps the number of demonstrations installed on the student.
	// Default: 4.
	MaxDemos int

	// AcceptanceThreshold is the minimum metric score a teacher outcome must
	// reach to become a demonstration candidate. Default: 1.0 (exact
	// acceptance).
	AcceptanceThreshold float64

	// MaxConcurrency bounds the teacher evaluation fan-out. Default: 4.
	MaxConcurrency int

	// PerItemTimeout bounds each teacher invocation. Default: 30s.
	PerItemTimeout time.Duration

	// Selector chooses which candidates become demonstrations when more
	// candidates exist than MaxDemos allows. Default: RandomSelector.
	Selector Selector

	// Seed makes the default selector deterministic when non-zero.
	Seed int64
}

// DefaultConfig returns a Config with production defaults.
func DefaultConfig() Config {
	return Config{
		MaxDemos:            4,
		AcceptanceThreshold: 1.0,
		MaxConcurrency:      4,
		PerItemTimeout:      30 * time.Second,
	}
}

// ApplyDefaults fills zero-valued fields with defaults.
func (c *Config) ApplyDefaults() {
	def := DefaultConfig()
	if c.MaxDemos == 0 {
		c.MaxDemos = def.MaxDemos
	}
	if c.AcceptanceThreshold == 0 {
		c.AcceptanceThreshold = def.AcceptanceThreshold
	}
	if c.MaxConcurrency == 0 {
		c.MaxConcurrency = def.MaxConcurrency
	}
	if c.PerItemTimeout == 0 {
		c.PerItemTimeout = def.PerItemTimeout
	}
	if c.Selector == nil {
		c.Selector = NewRandomSelector(c.Seed)
	}
}

// Validate checks configuration invariants.
func (c *Config) Validate() error {
	if c.MaxDemos < 0 {
		return fmt.Errorf("%w: MaxDemos must be non-negative, got %d", ErrInvalidConfig, c.MaxDemos)
	}
	if c.AcceptanceThreshold < 0 || c.AcceptanceThreshold > 1 {
		return fmt.Errorf("%w: AcceptanceThreshold must be in [0,1], got %v", ErrInvalidConfig, c.AcceptanceThreshold)
	}
	if c.MaxConcurrency < 0 {
		return fmt.Errorf("%w: MaxConcurrency must be non-negative, got %d", ErrInvalidConfig, c.MaxConcurrency)
	}
	return nil
}
