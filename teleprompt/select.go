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
	"math/rand"
	"sync"
	"time"

	"github.com/AleutianAI/tern/program"
)

// Selector chooses up to k demonstrations from a candidate pool. Candidates
// all passed the acceptance threshold; the selector only decides which subset
// the student receives.
//
// Implementations must not mutate the candidates slice.
type Selector interface {
	// Name returns a short identifier for logging.
	Name() string

	// Select returns at most k candidates. When len(candidates) <= k it
	// must return all of them.
	Select(candidates []program.Demonstration, k int) []program.Demonstration
}

// ----------------------------------------------------------------------------
// RandomSelector
// ----------------------------------------------------------------------------

// RandomSelector picks k candidates uniformly without replacement.
//
// Thread Safety: Safe for concurrent use; the internal RNG is mutex-guarded.
type RandomSelector struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewRandomSelector creates a RandomSelector. A non-zero seed makes the
// selection deterministic.
func NewRandomSelector(seed int64) *RandomSelector {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &RandomSelector{rng: rand.New(rand.NewSource(seed))}
}

// Name implements Selector.
func (s *RandomSelector) Name() string { return "random" }

// Select implements Selector via a partial Fisher-Yates shuffle.
func (s *RandomSelector) Select(candidates []program.Demonstration, k int) []program.Demonstration {
	if k <= 0 {
		return nil
	}
	if len(candidates) <= k {
		out := make([]program.Demonstration, len(candidates))
		copy(out, candidates)
		return out
	}

	pool := make([]program.Demonstration, len(candidates))
	copy(pool, candidates)

	s.mu.Lock()
	defer s.mu.Unlock()
	for i := 0; i < k; i++ {
		j := i + s.rng.Intn(len(pool)-i)
		pool[i], pool[j] = pool[j], pool[i]
	}
	return pool[:k]
}

// ----------------------------------------------------------------------------
// FirstNSelector
// ----------------------------------------------------------------------------

// FirstNSelector keeps the first k candidates in training-set order. Useful
// for reproducible compilation without seeding.
type FirstNSelector struct{}

// Name implements Selector.
func (FirstNSelector) Name() string { return "first_n" }

// Select implements Selector.
func (FirstNSelector) Select(candidates []program.Demonstration, k int) []program.Demonstration {
	if k <= 0 {
		return nil
	}
	if len(candidates) < k {
		k = len(candidates)
	}
	out := make([]program.Demonstration, k)
	copy(out, candidates[:k])
	return out
}
