package auth

import (
	"sort"
	"sync"

	"auth-gateway/internal/domain"
	"auth-gateway/internal/service"
	"auth-gateway/pkg/errors"
)

// Registry maps social providers to their assertion verifiers
type Registry struct {
	mu        sync.RWMutex
	verifiers map[domain.Provider]service.AssertionVerifier
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{verifiers: make(map[domain.Provider]service.AssertionVerifier)}
}

// Register adds or replaces the verifier for provider
func (r *Registry) Register(provider domain.Provider, verifier service.AssertionVerifier) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.verifiers[provider] = verifier
}

// Get returns the verifier for provider
func (r *Registry) Get(provider domain.Provider) (service.AssertionVerifier, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	verifier, ok := r.verifiers[provider]
	if !ok || !provider.IsSocial() {
		return nil, errors.NewValidationError("unsupported provider", map[string]interface{}{
			"provider":  string(provider),
			"supported": r.providers(),
		})
	}
	return verifier, nil
}

// Providers lists registered providers in name order
func (r *Registry) Providers() []domain.Provider {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.providers()
}

// providers expects r.mu to be held
func (r *Registry) providers() []domain.Provider {
	out := make([]domain.Provider, 0, len(r.verifiers))
	for p := range r.verifiers {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
