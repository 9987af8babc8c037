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
	"strings"

	"github.com/AleutianAI/tern/constraint"
	"github.com/AleutianAI/tern/program"
)

// feedbackStrategy retries like simpleStrategy but merges the violated
// constraints' feedback into the next attempt's inputs under the configured
// feedback key, so the program can self-correct.
type feedbackStrategy struct{}

func (feedbackStrategy) Name() string { return StrategyFeedback.String() }

func (st *feedbackStrategy) Run(ctx context.Context, s *session, inputs program.Inputs) (*program.Outcome, error) {
	cfg := s.engine.config
	current := inputs
	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		record := s.attempt(ctx, s.engine.program, current, attempt, st.Name(), s.engine.constraints)
		if record.Succeeded() {
			return record.Outcome, nil
		}
		if attempt == cfg.MaxAttempts {
			break
		}
		current = st.enhance(inputs, record, s.engine.constraints, s.vctx(attempt), cfg.FeedbackKey)
		if err := s.wait(ctx, cfg.backoffFor(attempt)); err != nil {
			return nil, err
		}
	}
	return nil, nil
}

// enhance merges feedback for the failed attempt into a copy of the original
// inputs. Forward errors produce no constraint feedback; the original inputs
// are retried unchanged.
func (feedbackStrategy) enhance(
	inputs program.Inputs,
	record *AttemptRecord,
	constraints []constraint.Constraint,
	vctx *constraint.Context,
	key string,
) program.Inputs {
	if record.Outcome == nil {
		return inputs
	}
	feedback := constraint.GenerateFeedback(constraints, record.Outcome, vctx)
	if len(feedback) == 0 {
		return inputs
	}
	return inputs.Merge(program.Inputs{key: strings.Join(feedback, "\n")})
}
