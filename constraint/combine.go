// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package constraint

import "fmt"

// Conjunction composes constraints into a new hard constraint that passes
// only if every given constraint passes. Sub-constraint severities are not
// consulted; any failing child fails the conjunction.
//
// Inputs:
//   - name: Name of the composite constraint.
//   - constraints: Children. An empty conjunction always passes.
//
// Outputs:
//   - Constraint: The composite.
func Conjunction(name string, constraints ...Constraint) Constraint {
	return Constraint{
		name:    name,
		kind:    KindAssert,
		message: fmt.Sprintf("all of %s", childNames(constraints)),
		validate: guardValidator(func(value any, ctx *Context) bool {
			for _, c := range constraints {
				if c.Check(value, ctx) != nil {
					return false
				}
			}
			return true
		}),
	}
}

// Disjunction composes constraints into a new hard constraint that passes
// if any of the given constraints passes. An empty disjunction never passes.
func Disjunction(name string, constraints ...Constraint) Constraint {
	return Constraint{
		name:    name,
		kind:    KindAssert,
		message: fmt.Sprintf("any of %s", childNames(constraints)),
		validate: guardValidator(func(value any, ctx *Context) bool {
			for _, c := range constraints {
				if c.Check(value, ctx) == nil {
					return true
				}
			}
			return false
		}),
	}
}

// WeightedChild pairs a constraint with its weight for Weighted composition.
type WeightedChild struct {
	Constraint Constraint
	Weight     float64
}

// Weighted composes constraints into a new hard constraint that passes when
// the weighted fraction of passing children meets the threshold.
//
// Inputs:
//   - name: Name of the composite constraint.
//   - threshold: Required passing fraction in [0, 1].
//   - children: Weighted children. Non-positive weights count as zero.
//
// An empty child set passes vacuously.
func Weighted(name string, threshold float64, children ...WeightedChild) Constraint {
	return Constraint{
		name:    name,
		kind:    KindAssert,
		message: fmt.Sprintf("weighted fraction >= %.2f of %d constraints", threshold, len(children)),
		validate: guardValidator(func(value any, ctx *Context) bool {
			if len(children) == 0 {
				return true
			}
			var earned, total float64
			for _, child := range children {
				if child.Weight <= 0 {
					continue
				}
				total += child.Weight
				if child.Constraint.Check(value, ctx) == nil {
					earned += child.Weight
				}
			}
			if total == 0 {
				return true
			}
			return earned/total >= threshold
		}),
	}
}

func childNames(constraints []Constraint) string {
	names := make([]byte, 0, 32)
	names = append(names, '[')
	for i, c := range constraints {
		if i > 0 {
			names = append(names, ' ')
		}
		names = append(names, c.name...)
	}
	names = append(names, ']')
	return string(names)
}
