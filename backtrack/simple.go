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

// simpleStrategy retries the same inputs with exponential backoff:
// backoff(n) = 2^(n-1) * base.
type simpleStrategy struct{}

func (simpleStrategy) Name() string { return StrategySimple.String() }

func (st *simpleStrategy) Run(ctx context.Context, s *session, inputs program.Inputs) (*program.Outcome, error) {
	cfg := s.engine.config
	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		record := s.attempt(ctx, s.engine.program, inputs, attempt, st.Name(), s.engine.constraints)
		if record.Succeeded() {
			return record.Outcome, nil
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
