// Package textgen abstracts the upstream text-generation service.
//
// Generation is single-shot request/response: one prompt in, one block of
// text out. There is no streaming and no batching anywhere in the debate
// subsystem.
package textgen

import (
	"context"
	"fmt"
	"sync"
)

// Generator defines the interface for text-generation backends.
type Generator interface {
	// Name returns the generator's identifier.
	Name() string

	// Generate sends a prompt and returns the response text.
	Generate(ctx context.Context, prompt string) (string, error)

	// Available reports whether the backend is configured and reachable
	// in principle (credentials present, endpoint set).
	Available() bool
}

// Registry manages available generators.
type Registry struct {
	mu         sync.RWMutex
	generators map[string]Generator
}

// NewRegistry creates a new generator registry.
func NewRegistry() *Registry {
	return &Registry{
		generators: make(map[string]Generator),
	}
}

// Register adds a generator to the registry.
func (r *Registry) Register(g Generator) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.generators[g.Name()] = g
}

// Get retrieves a generator by name.
func (r *Registry) Get(name string) (Generator, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	g, ok := r.generators[name]
	if !ok {
		return nil, fmt.Errorf("generator not found: %s", name)
	}
	return g, nil
}

// List returns all registered generators.
func (r *Registry) List() []Generator {
	r.mu.RLock()
	defer r.mu.RUnlock()

	generators := make([]Generator, 0, len(r.generators))
	for _, g := range r.generators {
		generators = append(generators, g)
	}
	return generators
}
