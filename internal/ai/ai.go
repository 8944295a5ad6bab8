// Package ai provides the resilient protocol used for every judgment call to
// the reasoning service: bounded retries over a narrow Generator interface and
// a repair pipeline for structured output.
package ai

import (
	"context"
	"errors"
)

// Generator produces a raw text completion for a rendered prompt.
type Generator interface {
	GenerateContent(ctx context.Context, prompt string) (string, error)
}

var (
	// ErrUnavailable marks transport failures that survived the retry budget.
	ErrUnavailable = errors.New("reasoning service unavailable")
	// ErrMalformed marks output that could not be parsed after repair.
	ErrMalformed = errors.New("reasoning service returned malformed output")
)
