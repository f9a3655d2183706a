// Package llm routes model requests to the provider that serves them.
package llm

import (
	"fmt"

	"momentum/internal/domain/services"
)

// ProviderRegistry holds the configured providers and routes model names to
// the one that supports them. Providers are constructed once at startup, so
// lookup is a plain scan with no locking.
type ProviderRegistry struct {
	providers []services.LLMProvider
}

// NewProviderRegistry creates a registry over the given providers.
// Order matters: the first provider claiming a model wins.
func NewProviderRegistry(providers ...services.LLMProvider) *ProviderRegistry {
	return &ProviderRegistry{providers: providers}
}

// ForModel returns the provider that supports the given model.
func (r *ProviderRegistry) ForModel(model string) (services.LLMProvider, error) {
	if model == "" {
		return nil, fmt.Errorf("model cannot be empty")
	}
	for _, p := range r.providers {
		if p.SupportsModel(model) {
			return p, nil
		}
	}
	return nil, fmt.Errorf("no provider supports model '%s'", model)
}

// Validate checks that at least one provider is configured and that the
// given default model resolves. Called at startup to fail fast.
func (r *ProviderRegistry) Validate(defaultModel string) error {
	if len(r.providers) == 0 {
		return fmt.Errorf("no LLM providers configured")
	}
	if _, err := r.ForModel(defaultModel); err != nil {
		return fmt.Errorf("default model: %w", err)
	}
	return nil
}
