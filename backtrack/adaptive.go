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

	"github.com/AleutianAI/tern/program"
)

// ExplorationKey is the Configure delta key the adaptive-parameter strategy
// writes its current exploration value into before each call.
const ExplorationKey = "exploration"

// adaptiveStrategy maintains a learned exploration scalar. Each failed
// attempt grows the scalar (clamped to 1.0) to push the program toward more
// varied outputs; the current value is applied to the program's options
// before every call.
type adaptiveStrategy struct{}

func (adaptiveStrategy) Name() string { return StrategyAdaptive.String() }

func (st *adaptiveStrategy) Run(ctx context.Context, s *session, inputs program.Inputs) (*program.Outcome, error) {
	cfg := s.engine.config
	exploration := cfg.Exploration

	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		tuned := s.engine.program.Configure(program.Delta{ExplorationKey: exploration})
		record := s.attempt(ctx, tuned, inputs, attempt, st.Name(), s.engine.constraints)
		if record.Succeeded() {
			return record.Outcome, nil
		}

		exploration += cfg.ExplorationStep
		if exploration > 1.0 {
			exploration = 1.0
		}

		if attempt == cfg.MaxAttempts {
			break
		}
		if err := s.wait(ctx, cfg.backoffFor(attempt)); err != nil {
			return nil, err
		}
	}
	return nil, nil
}
