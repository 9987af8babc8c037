// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package llm provides the model-backed Program implementation and the
// client abstraction it generates text through.
package llm

import (
	"context"
	"errors"
)

var (
	// ErrNoCompletion indicates the provider returned an empty response.
	ErrNoCompletion = errors.New("llm returned no completion")

	// ErrMissingAPIKey indicates the client was constructed without
	// credentials.
	ErrMissingAPIKey = errors.New("api key is required")
)

// GenerationParams are per-call sampling controls. Nil pointer fields leave
// the provider default in place.
type GenerationParams struct {
	Temperature *float32 `json:"temperature,omitempty"`
	TopP        *float32 `json:"top_p,omitempty"`
	MaxTokens   *int     `json:"max_tokens,omitempty"`
	Stop        []string `json:"stop,omitempty"`
}

// Client is the minimal text-generation interface a Program depends on.
// Implementations must be safe for concurrent use.
type Client interface {
	Generate(ctx context.Context, prompt string, params GenerationParams) (string, error)
}

// Float32Ptr returns a pointer to v, for optional GenerationParams fields.
func Float32Ptr(v float32) *float32 { return &v }

// IntPtr returns a pointer to v, for optional GenerationParams fields.
func IntPtr(v int) *int { return &v }
