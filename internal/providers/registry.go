package providers

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Registry maps providers to their generators.
type Registry struct {
	mu         sync.RWMutex
	generators map[Provider]Generator
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{generators: make(map[Provider]Generator)}
}

// Register adds a generator for a provider, replacing any previous one.
func (r *Registry) Register(p Provider, g Generator) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.generators[p] = g
}

// Get returns the generator for a provider.
func (r *Registry) Get(p Provider) (Generator, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	g, ok := r.generators[p]
	return g, ok
}

// Generate routes req to the provider's generator.
func (r *Registry) Generate(ctx context.Context, p Provider, req Request) (Result, error) {
	g, ok := r.Get(p)
	if !ok {
		return Result{}, &CallError{
			Kind:     KindUnknownProvider,
			Provider: p,
			Model:    req.Model,
			Err:      fmt.Errorf("unsupported provider %q", p),
		}
	}
	res, err := g.Generate(ctx, req)
	if err != nil {
		return res, classify(p, req.Model, err)
	}
	if res.Provider == "" {
		res.Provider = p
	}
	return res, nil
}

// ListModels lists models for p when its generator supports it.
func (r *Registry) ListModels(ctx context.Context, p Provider) ([]string, error) {
	g, ok := r.Get(p)
	if !ok {
		return nil, fmt.Errorf("unsupported provider %q", p)
	}
	lister, ok := g.(ModelLister)
	if !ok {
		return nil, fmt.Errorf("provider %q cannot list models", p)
	}
	return lister.ListModels(ctx)
}

// Providers returns all registered providers, sorted.
func (r *Registry) Providers() []Provider {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Provider, 0, len(r.generators))
	for p := range r.generators {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
