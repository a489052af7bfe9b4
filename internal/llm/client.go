// Package llm wraps the remote language-model classification service. All
// access goes through the circuit breaker; failures fall back to the lower
// classification tiers.
package llm

import (
	"context"
)

// Client defines the interface for LLM providers.
type Client interface {
	Classify(ctx context.Context, prompt string) (ClassificationResponse, error)
	Embed(ctx context.Context, input string) ([]float32, error)
}

// ClassificationResponse contains the provider's classification result.
type ClassificationResponse struct {
	ClassName  string
	Confidence float64
	Reason     string
}
