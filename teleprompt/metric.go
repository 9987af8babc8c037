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
	"fmt"
	"strings"

	"github.com/AleutianAI/tern/program"
)

// ExactMatch returns a metric that scores 1.0 when the outcome's value for
// the given field equals the example's label for that field, and 0.0
// otherwise. Comparison is on the trimmed string rendering of both values,
// so "42" matches 42.
func ExactMatch(field string) program.MetricFunc {
	return func(example *program.Example, outcome *program.Outcome) float64 {
		want, ok := example.Get(field)
		if !ok {
			return 0.0
		}
		got, ok := outcome.Get(field)
		if !ok {
			return 0.0
		}
		if normalize(want) == normalize(got) {
			return 1.0
		}
		return 0.0
	}
}

func normalize(v any) string {
	return strings.TrimSpace(fmt.Sprintf("%v", v))
}
