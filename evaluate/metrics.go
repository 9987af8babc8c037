// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package evaluate

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// =============================================================================
// Prometheus Metrics for Evaluation Runs
// =============================================================================

var (
	// itemsTotal counts evaluated items by terminal status.
	// Labels: status (success, execution_error, timeout, panic)
	itemsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tern",
		Subsystem: "evaluate",
		Name:      "items_total",
		Help:      "Total evaluated items by terminal status",
	}, []string{"status"})

	// itemDuration measures per-item wall time including scoring.
	itemDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "tern",
		Subsystem: "evaluate",
		Name:      "item_duration_seconds",
		Help:      "Per-item evaluation latency in seconds",
		Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
	})

	// runScore tracks the distribution of aggregate run scores.
	runScore = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "tern",
		Subsystem: "evaluate",
		Name:      "run_score",
		Help:      "Distribution of aggregate evaluation scores",
		Buckets:   []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1.0},
	})
)

const (
	statusSuccess        = "success"
	statusExecutionError = "execution_error"
	statusTimeout        = "timeout"
	statusPanic          = "panic"
)
