// Package assist suggests attribute slots for option names the resolver
// cannot place, using a ring of LLM providers behind a uniform retry policy.
package assist

import (
	"context"
	"errors"
)

// FormatJSON asks a provider for a JSON object response.
const FormatJSON = "json"

// ErrQuotaExceeded marks a provider error that will not clear by retrying.
// Providers wrap it so the ring can take them out of rotation.
var ErrQuotaExceeded = errors.New("provider quota exceeded")

// ErrAllProvidersExhausted is returned when every provider in the ring has
// hit its quota.
var ErrAllProvidersExhausted = errors.New("all providers exhausted")

// GenerateRequest defines the input for an LLM generation call.
type GenerateRequest struct {
	Prompt      string
	SystemMsg   string
	Format      string // FormatJSON for JSON mode
	Temperature float64
	MaxTokens   int
}

// Provider is a single LLM backend.
type Provider interface {
	Generate(ctx context.Context, req GenerateRequest) (string, error)
	Name() string
}

// Generator produces text for a request. *Ring implements it.
type Generator interface {
	Generate(ctx context.Context, req GenerateRequest) (string, error)
}
