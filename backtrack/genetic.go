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
	"math/rand"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/AleutianAI/tern/constraint"
	"github.com/AleutianAI/tern/program"
)

// geneticStrategy evolves a population of parameter variants. Each
// generation evaluates every variant's fitness — the severity-weighted
// constraint-satisfaction score of its outcome — keeps the fitter half,
// and refills the population with blended, mutated children. The strategy
// terminates early as soon as any variant's outcome satisfies the hard
// constraints, or after MaxAttempts generations.
//
// Variant evaluations within a generation run concurrently, bounded by
// ParallelWidth.
type geneticStrategy struct{}

func (geneticStrategy) Name() string { return StrategyGenetic.String() }

// variant is one set of gene values, keyed by parameter name.
type variant map[string]float64

// delta converts the variant's genes into a Configure delta.
func (v variant) delta() program.Delta {
	d := make(program.Delta, len(v))
	for name, value := range v {
		d[name] = value
	}
	return d
}

// evaluated pairs a variant with its fitness and outcome for selection.
type evaluated struct {
	variant   variant
	fitness   float64
	outcome   *program.Outcome
	satisfied bool
}

func (st *geneticStrategy) Run(ctx context.Context, s *session, inputs program.Inputs) (*program.Outcome, error) {
	cfg := s.engine.config

	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))

	population := make([]variant, cfg.PopulationSize)
	for i := range population {
		population[i] = st.spawn(cfg.ParameterRanges, rng)
	}

	for generation := 1; generation <= cfg.MaxAttempts; generation++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		scored, err := st.evaluate(ctx, s, inputs, population, generation)
		if err != nil {
			return nil, err
		}

		sort.SliceStable(scored, func(i, j int) bool {
			return scored[i].fitness > scored[j].fitness
		})
		if best := scored[0]; best.satisfied {
			s.engine.logger.Debug("genetic search converged",
				"generation", generation,
				"fitness", best.fitness)
			return best.outcome, nil
		}
		if generation == cfg.MaxAttempts {
			break
		}

		population = st.breed(scored, cfg, rng)
	}
	return nil, nil
}

// evaluate runs every variant's program once and scores its outcome.
// Evaluations are concurrent; attempt records carry the generation as the
// attempt number.
func (st *geneticStrategy) evaluate(
	ctx context.Context,
	s *session,
	inputs program.Inputs,
	population []variant,
	generation int,
) ([]evaluated, error) {
	cfg := s.engine.config
	scored := make([]evaluated, len(population))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.ParallelWidth)
	for i, v := range population {
		i, v := i, v
		g.Go(func() error {
			tuned := s.engine.program.Configure(v.delta())
			record := s.attempt(gctx, tuned, inputs, generation, st.Name(), s.engine.constraints)

			ev := evaluated{variant: v}
			if record.Outcome != nil {
				ev.outcome = record.Outcome
				ev.satisfied = record.Succeeded()
				ev.fitness = constraint.SatisfactionScore(record.Outcome, s.engine.constraints, s.vctx(generation))
			}
			scored[i] = ev
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return scored, nil
}

// breed keeps the fitter half as survivors and refills the population with
// children blended from two tournament-selected parents, mutated per gene.
func (st *geneticStrategy) breed(scored []evaluated, cfg Config, rng *rand.Rand) []variant {
	survivors := len(scored) / 2
	if survivors < 1 {
		survivors = 1
	}

	next := make([]variant, 0, cfg.PopulationSize)
	for i := 0; i < survivors; i++ {
		next = append(next, scored[i].variant)
	}
	for len(next) < cfg.PopulationSize {
		a := st.tournament(scored, rng)
		b := st.tournament(scored, rng)
		child := st.crossover(a, b, rng)
		st.mutate(child, cfg, rng)
		next = append(next, child)
	}
	return next
}

// tournament picks the fitter of two random candidates.
func (geneticStrategy) tournament(scored []evaluated, rng *rand.Rand) variant {
	a := scored[rng.Intn(len(scored))]
	b := scored[rng.Intn(len(scored))]
	if a.fitness >= b.fitness {
		return a.variant
	}
	return b.variant
}

// crossover blends each gene between the two parents.
func (geneticStrategy) crossover(a, b variant, rng *rand.Rand) variant {
	child := make(variant, len(a))
	for name, av := range a {
		alpha := rng.Float64()
		child[name] = alpha*av + (1-alpha)*b[name]
	}
	return child
}

// mutate perturbs genes in place with probability MutationRate, staying
// inside the configured range.
func (geneticStrategy) mutate(v variant, cfg Config, rng *rand.Rand) {
	for name, r := range cfg.ParameterRanges {
		if rng.Float64() >= cfg.MutationRate {
			continue
		}
		span := r[1] - r[0]
		v[name] += (rng.Float64()*2 - 1) * 0.2 * span
		if v[name] < r[0] {
			v[name] = r[0]
		}
		if v[name] > r[1] {
			v[name] = r[1]
		}
	}
}

// spawn creates a random variant within the configured ranges.
func (geneticStrategy) spawn(ranges map[string][2]float64, rng *rand.Rand) variant {
	v := make(variant, len(ranges))
	for name, r := range ranges {
		v[name] = r[0] + rng.Float64()*(r[1]-r[0])
	}
	return v
}
