package rules

import (
	"encoding/json"
	"fmt"

	"github.com/canonical/rocks-toolbox/src/logger"
	"github.com/canonical/rocks-toolbox/src/yamldoc"
)

// Normalize loads data, applies the rules of set, validates the result
// against the set's model and dumps it. Nothing is returned for documents
// that fail validation.
func Normalize(set *RuleSet, data []byte, log logger.Logger) ([]byte, error) {
	doc, err := yamldoc.Load(data)
	if err != nil {
		return nil, err
	}
	spacing := yamldoc.BlankLines(data, doc)

	engine, err := NewEngine(set, log)
	if err != nil {
		return nil, err
	}
	doc, err = engine.Apply(doc)
	if err != nil {
		return nil, err
	}

	if set.Model != nil {
		if err := set.Model.Validate(doc); err != nil {
			return nil, err
		}
	}
	return spacing.Dump(doc)
}

// Schema returns the JSON Schema of a rule set's model.
func Schema(set *RuleSet) ([]byte, error) {
	model := set.Model
	if model == nil {
		model = Permissive()
	}
	data, err := json.MarshalIndent(model.Schema(), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode schema for %s: %w", set.Name, err)
	}
	return data, nil
}
