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

	"github.com/AleutianAI/tern/constraint"
	"github.com/AleutianAI/tern/program"
)

// relaxationStrategy tries progressively smaller constraint subsets: all
// constraints, then hard+adaptive, then hard only, then none. The first
// level whose validation passes supplies the outcome; a level whose subset
// equals the previous one is skipped.
type relaxationStrategy struct{}

func (relaxationStrategy) Name() string { return StrategyRelaxation.String() }

// relaxationLevel is one entry in the ordered relaxation ladder.
type relaxationLevel struct {
	name        string
	constraints []constraint.Constraint
}

// relaxationLadder builds the ordered subsets for a constraint set.
func relaxationLadder(constraints []constraint.Constraint) []relaxationLevel {
	var hardAdaptive, hardOnly []constraint.Constraint
	for _, c := range constraints {
		switch c.Kind() {
		case constraint.KindAssert:
			hardOnly = append(hardOnly, c)
			hardAdaptive = append(hardAdaptive, c)
		case constraint.KindAdaptive:
			hardAdaptive = append(hardAdaptive, c)
		}
	}

	levels := []relaxationLevel{{name: "all", constraints: constraints}}
	if len(hardAdaptive) < len(constraints) {
		levels = append(levels, relaxationLevel{name: "hard_adaptive", constraints: hardAdaptive})
	}
	if len(hardOnly) < len(hardAdaptive) {
		levels = append(levels, relaxationLevel{name: "hard_only", constraints: hardOnly})
	}
	if len(hardOnly) > 0 || len(constraints) > 0 {
		levels = append(levels, relaxationLevel{name: "none"})
	}
	return levels
}

func (st *relaxationStrategy) Run(ctx context.Context, s *session, inputs program.Inputs) (*program.Outcome, error) {
	levels := relaxationLadder(s.engine.constraints)

	for i, level := range levels {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		record := s.attempt(ctx, s.engine.program, inputs, i+1, st.Name(), level.constraints)
		if record.Succeeded() {
			s.engine.logger.Debug("relaxation level accepted",
				"level", level.name,
				"constraints", len(level.constraints))
			return record.Outcome, nil
		}
	}
	return nil, nil
}
