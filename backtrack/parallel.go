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
	"sync"

	"github.com/AleutianAI/tern/program"
)

// parallelStrategy races a bounded set of concurrent branches, each running
// a different sub-strategy against the same inputs. The first branch to
// produce a satisfying outcome wins; the remaining branches are abandoned
// best-effort by cancelling their context.
//
// Losers are "abandoned", not guaranteed stopped: their in-flight attempts
// may still complete and append records, but the adopted outcome is exactly
// one winner and the shared history is never retroactively mutated. Run
// drains every branch before returning, so the returned history is complete
// and consistent.
type parallelStrategy struct{}

func (parallelStrategy) Name() string { return StrategyParallel.String() }

// branch sub-strategies, assigned round-robin across the configured width.
func parallelBranches() []Strategy {
	return []Strategy{
		&simpleStrategy{},
		&feedbackStrategy{},
		&adaptiveStrategy{},
	}
}

func (st *parallelStrategy) Run(ctx context.Context, s *session, inputs program.Inputs) (*program.Outcome, error) {
	cfg := s.engine.config

	raceCtx, cancelLosers := context.WithCancel(ctx)
	defer cancelLosers()

	type branchResult struct {
		outcome *program.Outcome
	}
	results := make(chan branchResult, cfg.ParallelWidth)

	subs := parallelBranches()
	var wg sync.WaitGroup
	for i := 0; i < cfg.ParallelWidth; i++ {
		sub := subs[i%len(subs)]
		wg.Add(1)
		go func() {
			defer wg.Done()
			// Branch cancellation errors are not surfaced; an abandoned
			// branch simply contributes no winner.
			outcome, _ := sub.Run(raceCtx, s, inputs)
			results <- branchResult{outcome: outcome}
		}()
	}
	go func() {
		wg.Wait()
		close(results)
	}()

	// Adopt the first success and abandon the rest, but keep draining so
	// every branch has finished appending history before we return.
	var winner *program.Outcome
	for res := range results {
		if res.outcome != nil && winner == nil {
			winner = res.outcome
			cancelLosers()
		}
	}

	if winner != nil {
		return winner, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return nil, nil
}
