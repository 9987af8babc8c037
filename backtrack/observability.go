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

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

const tracerName = "tern.backtrack"

// Tracer provides OpenTelemetry tracing for backtracking runs. When tracing
// is disabled every span is a noop; the engine's hot path stays allocation
// free in that case.
//
// Thread Safety: Safe for concurrent use.
type Tracer struct {
	tracer  trace.Tracer
	enabled bool
}

// NewTracer creates a tracer against the global tracer provider.
//
// Inputs:
//   - enabled: When false, all spans are noops.
//
// Outputs:
//   - *Tracer: Tracer instance. Never nil.
func NewTracer(enabled bool) *Tracer {
	if !enabled {
		return &Tracer{tracer: noop.NewTracerProvider().Tracer(tracerName)}
	}
	return &Tracer{tracer: otel.Tracer(tracerName), enabled: true}
}

// StartRun starts a span covering an entire backtracking run.
func (t *Tracer) StartRun(ctx context.Context, strategy string, maxAttempts int) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, "backtrack.run",
		trace.WithAttributes(
			attribute.String("backtrack.strategy", strategy),
			attribute.Int("backtrack.max_attempts", maxAttempts),
		))
}

// EndRun finishes a run span with its result.
func (t *Tracer) EndRun(span trace.Span, attempts int, success bool) {
	span.SetAttributes(
		attribute.Int("backtrack.attempts", attempts),
		attribute.Bool("backtrack.success", success),
	)
	if !success {
		span.SetStatus(codes.Error, "attempts exhausted")
	}
	span.End()
}

// StartAttempt starts a span for a single attempt.
func (t *Tracer) StartAttempt(ctx context.Context, strategy string, attempt int) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, "backtrack.attempt",
		trace.WithAttributes(
			attribute.String("backtrack.strategy", strategy),
			attribute.Int("backtrack.attempt", attempt),
		))
}

// EndAttempt finishes an attempt span with its result.
func (t *Tracer) EndAttempt(span trace.Span, passed bool, err error) {
	span.SetAttributes(attribute.Bool("backtrack.passed", passed))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
