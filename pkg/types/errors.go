// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "errors"

// Sentinel errors classifying pipeline failures. Callers match them with
// errors.Is; messages carry the human-readable detail.
var (
	// ErrValidation marks missing or malformed request fields. Client-facing.
	ErrValidation = errors.New("validation failed")

	// ErrNotFound marks a lookup on an unknown record key or artifact name.
	ErrNotFound = errors.New("not found")

	// ErrInsufficientData marks a fine-tune attempt below the example floor.
	ErrInsufficientData = errors.New("insufficient training data")

	// ErrStorage marks a durable-medium read or write failure.
	ErrStorage = errors.New("storage failure")

	// ErrGeneration marks a failure of the text-generation or fine-tuning
	// capability. Wraps the underlying cause.
	ErrGeneration = errors.New("generation failure")

	// ErrRender marks an artifact rendering failure. The pipeline treats it
	// as non-fatal: textual content is still returned without an artifact.
	ErrRender = errors.New("artifact render failure")
)
