package strategy

import (
	"fmt"
	"sort"

	traderrors "github.com/quantlab/algotrader-kr/internal/errors"
)

// Factory builds a configured strategy instance.
type Factory func() (Strategy, error)

// Registry maps strategy names to factories. Strategies are registered
// explicitly at startup; asking for an unknown name is a configuration
// error, caught before any data is loaded.
type Registry struct {
	factories map[string]Factory
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register adds a factory under the given name, replacing any previous one.
func (r *Registry) Register(name string, factory Factory) {
	r.factories[name] = factory
}

// Create builds the named strategy.
func (r *Registry) Create(name string) (Strategy, error) {
	factory, ok := r.factories[name]
	if !ok {
		return nil, traderrors.NewConfigurationError("strategy", "create",
			fmt.Sprintf("unknown strategy %q (available: %v)", name, r.Names()))
	}
	return factory()
}

// Names lists the registered strategy names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
