package rules

import (
	"fmt"
	"strings"

	"github.com/canonical/rocks-toolbox/src/logger"
)

// DefaultConfig is the rule set used when none is named.
const DefaultConfig = "YAMLCheckConfigBase"

// Factory builds a rule set whose handlers log to log.
type Factory func(log logger.Logger) *RuleSet

// Registry maps configuration names to rule set factories.
type Registry struct {
	factories map[string]Factory
	order     []string
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// DefaultRegistry returns a registry holding every built-in configuration.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	for _, entry := range []struct {
		name    string
		factory Factory
	}{
		{DefaultConfig, baseConfig},
		{"Chisel", chiselConfig},
		{"OCIFactory", ociFactoryConfig},
	} {
		if err := r.Register(entry.name, entry.factory); err != nil {
			panic(err)
		}
	}
	return r
}

// Register adds a configuration. Names must be unique.
func (r *Registry) Register(name string, factory Factory) error {
	if name == "" {
		return fmt.Errorf("configuration name is required")
	}
	if _, exists := r.factories[name]; exists {
		return fmt.Errorf("configuration %q already registered", name)
	}
	r.factories[name] = factory
	r.order = append(r.order, name)
	return nil
}

// New builds the named rule set.
func (r *Registry) New(name string, log logger.Logger) (*RuleSet, error) {
	factory, ok := r.factories[name]
	if !ok {
		return nil, fmt.Errorf("%w %q (available: %s)", ErrUnknownConfig, name, strings.Join(r.order, ", "))
	}
	set := factory(log)
	set.Name = name
	return set, nil
}

// Names lists the registered configurations in registration order.
func (r *Registry) Names() []string {
	return append([]string(nil), r.order...)
}

func baseConfig(log logger.Logger) *RuleSet {
	return &RuleSet{
		Description: "No rules; accepts any mapping",
		Handlers:    map[string]Handler{},
		Model:       Permissive(),
	}
}

func ociFactoryConfig(log logger.Logger) *RuleSet {
	return &RuleSet{
		Description: "Single-quote every double-quoted string",
		Rules: []Rule{
			{Pattern: "/**", Handler: ConvertToSingleQuotes},
		},
		Handlers: map[string]Handler{
			ConvertToSingleQuotes: convertToSingleQuotes(log),
		},
		Model: Permissive(),
	}
}
