// Package rules normalizes YAML documents with named rule sets. A rule set
// maps path globs to handlers that rewrite the matching nodes, and carries a
// model the rewritten document must satisfy.
package rules

import (
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"
)

var (
	ErrUnknownConfig  = errors.New("unknown configuration")
	ErrUnknownHandler = errors.New("unknown rule handler")
)

// Handler rewrites the node found at path and returns its replacement.
type Handler func(path string, node *yaml.Node) (*yaml.Node, error)

// Rule applies the named handler to every node whose path matches Pattern.
// Patterns use shell glob syntax where * also matches "/".
type Rule struct {
	Pattern string `json:"pattern"`
	Handler string `json:"handler"`
}

// RuleSet is a named configuration: ordered rules, the handlers they refer
// to and the model a normalized document must satisfy.
type RuleSet struct {
	Name        string
	Description string
	Rules       []Rule
	Handlers    map[string]Handler
	Model       Model
}

// Handler looks up a handler by name.
func (s *RuleSet) Handler(name string) (Handler, error) {
	h, ok := s.Handlers[name]
	if !ok {
		return nil, fmt.Errorf("%w %q in %s", ErrUnknownHandler, name, s.Name)
	}
	return h, nil
}
