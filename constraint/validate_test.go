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

import (
	"strings"
	"testing"
)

func alwaysPass(any) bool { return true }
func alwaysFail(any) bool { return false }

func TestValidateAll_AllPass(t *testing.T) {
	constraints := []Constraint{
		Assert("a", alwaysPass, "a"),
		Suggest("b", alwaysPass, "b"),
		Adaptive("c", func(any, *Context) bool { return true }, "c", AttemptBased),
	}

	result := ValidateAll("value", constraints, &Context{AttemptCount: 5})
	if result.Status != StatusOK {
		t.Errorf("expected ok, got %v", result.Status)
	}
	if !result.OK() || result.Fatal() {
		t.Error("expected OK result with no fatal violations")
	}
}

func TestValidateAll_ViolatedAssertIsError(t *testing.T) {
	constraints := []Constraint{
		Assert("must", alwaysFail, "must hold"),
	}

	result := ValidateAll("value", constraints, nil)
	if result.Status != StatusError {
		t.Errorf("expected error status, got %v", result.Status)
	}
	if len(result.Errors) != 1 || len(result.Warnings) != 0 {
		t.Errorf("expected 1 error / 0 warnings, got %d / %d",
			len(result.Errors), len(result.Warnings))
	}
}

func TestValidateAll_OnlySuggestIsWarning(t *testing.T) {
	constraints := []Constraint{
		Assert("ok", alwaysPass, "holds"),
		Suggest("nice", alwaysFail, "would be nice"),
	}

	result := ValidateAll("value", constraints, nil)
	if result.Status != StatusWarning {
		t.Errorf("expected warning status, got %v", result.Status)
	}
	if result.Fatal() {
		t.Error("warnings must never be fatal")
	}
}

func TestValidateAll_Mixed(t *testing.T) {
	constraints := []Constraint{
		Assert("hard", alwaysFail, "hard"),
		Suggest("soft", alwaysFail, "soft"),
	}

	result := ValidateAll("value", constraints, nil)
	if result.Status != StatusMixed {
		t.Errorf("expected mixed status, got %v", result.Status)
	}
	if !result.Fatal() {
		t.Error("mixed results contain hard violations and must be fatal")
	}
	if got := len(result.Violations()); got != 2 {
		t.Errorf("expected 2 total violations, got %d", got)
	}
}

func TestValidateAll_OrderIndependent(t *testing.T) {
	a := Assert("a", alwaysFail, "a")
	b := Suggest("b", alwaysFail, "b")
	c := Assert("c", alwaysPass, "c")

	forward := ValidateAll("v", []Constraint{a, b, c}, nil)
	reverse := ValidateAll("v", []Constraint{c, b, a}, nil)

	if forward.Status != reverse.Status {
		t.Errorf("status differs by order: %v vs %v", forward.Status, reverse.Status)
	}
	if len(forward.Errors) != len(reverse.Errors) ||
		len(forward.Warnings) != len(reverse.Warnings) {
		t.Error("partition sizes differ by evaluation order")
	}
}

func TestValidateWithShortCircuit_StopsAtFirstError(t *testing.T) {
	evaluated := 0
	counting := func(any) bool {
		evaluated++
		return false
	}
	constraints := []Constraint{
		Suggest("soft", counting, "soft"),
		Assert("hard", counting, "hard"),
		Assert("never", counting, "never reached"),
	}

	result := ValidateWithShortCircuit("v", constraints, nil)
	if result.Status != StatusMixed {
		t.Errorf("expected mixed, got %v", result.Status)
	}
	if evaluated != 2 {
		t.Errorf("expected short circuit after 2 evaluations, got %d", evaluated)
	}
}

func TestGenerateFeedback(t *testing.T) {
	constraints := []Constraint{
		Assert("length", func(v any) bool {
			s, _ := v.(string)
			return len(s) >= 10
		}, "at least 10 characters"),
		Suggest("polite", alwaysPass, "a polite tone"),
		Assert("custom", alwaysFail, "unused").WithFeedback(func(v any) string {
			return "try rephrasing the question"
		}),
	}

	feedback := GenerateFeedback(constraints, "short", nil)
	if len(feedback) != 2 {
		t.Fatalf("expected 2 feedback strings, got %d: %v", len(feedback), feedback)
	}
	if !strings.Contains(feedback[0], "at least 10 characters") {
		t.Errorf("expected expectation in feedback, got %q", feedback[0])
	}
	if !strings.Contains(feedback[0], "short") {
		t.Errorf("expected observed value in feedback, got %q", feedback[0])
	}
	if !strings.Contains(feedback[1], "try rephrasing the question") {
		t.Errorf("expected custom feedback, got %q", feedback[1])
	}
}

func TestSatisfactionScore(t *testing.T) {
	tests := []struct {
		name        string
		constraints []Constraint
		want        float64
	}{
		{"empty set", nil, 1.0},
		{"all pass", []Constraint{Assert("a", alwaysPass, "a")}, 1.0},
		{"all fail", []Constraint{Assert("a", alwaysFail, "a")}, 0.0},
		{
			// hard pass (1.0) + soft fail (0.5) => 1.0 / 1.5
			"hard pass soft fail",
			[]Constraint{
				Assert("a", alwaysPass, "a"),
				Suggest("b", alwaysFail, "b"),
			},
			1.0 / 1.5,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SatisfactionScore("v", tt.constraints, nil)
			if diff := got - tt.want; diff > 1e-9 || diff < -1e-9 {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestCombinators(t *testing.T) {
	pass := Assert("pass", alwaysPass, "pass")
	fail := Assert("fail", alwaysFail, "fail")

	tests := []struct {
		name       string
		constraint Constraint
		wantPass   bool
	}{
		{"conjunction all pass", Conjunction("conj", pass, pass), true},
		{"conjunction one fails", Conjunction("conj", pass, fail), false},
		{"conjunction empty", Conjunction("conj"), true},
		{"disjunction one passes", Disjunction("disj", fail, pass), true},
		{"disjunction all fail", Disjunction("disj", fail, fail), false},
		{"disjunction empty", Disjunction("disj"), false},
		{
			"weighted meets threshold",
			Weighted("w", 0.6,
				WeightedChild{Constraint: pass, Weight: 2},
				WeightedChild{Constraint: fail, Weight: 1},
			),
			true,
		},
		{
			"weighted below threshold",
			Weighted("w", 0.8,
				WeightedChild{Constraint: pass, Weight: 1},
				WeightedChild{Constraint: fail, Weight: 1},
			),
			false,
		},
		{"weighted empty passes vacuously", Weighted("w", 0.5), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := tt.constraint.Check("value", nil)
			if (v == nil) != tt.wantPass {
				t.Errorf("expected pass=%v, got violation=%v", tt.wantPass, v)
			}
		})
	}
}

func TestCombinators_AreHard(t *testing.T) {
	fail := Assert("fail", alwaysFail, "fail")
	conj := Conjunction("conj", fail)

	v := conj.Check("value", nil)
	if v == nil {
		t.Fatal("expected violation")
	}
	if v.Severity != SeverityHard {
		t.Errorf("combinators produce hard constraints, got %v", v.Severity)
	}
}
