package rules

import (
	"errors"
	"fmt"
	"strings"

	"github.com/invopop/jsonschema"
	"gopkg.in/yaml.v3"

	"github.com/canonical/rocks-toolbox/src/yamldoc"
)

// Model validates a normalized document.
type Model interface {
	// Validate checks the document and returns a *ValidationError listing
	// every problem found.
	Validate(doc *yaml.Node) error

	// Schema describes the accepted documents as JSON Schema.
	Schema() *jsonschema.Schema
}

// FieldError is one validation problem.
type FieldError struct {
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

func (e FieldError) String() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

// ValidationError lists the problems a document has against a model.
type ValidationError struct {
	Model  string
	Errors []FieldError
}

func (e *ValidationError) Error() string {
	lines := make([]string, 0, len(e.Errors))
	for _, fe := range e.Errors {
		lines = append(lines, "  "+fe.String())
	}
	return fmt.Sprintf("%d validation error(s) for %s\n%s", len(e.Errors), e.Model, strings.Join(lines, "\n"))
}

// Permissive accepts any document whose top level is a mapping.
func Permissive() Model { return permissiveModel{} }

type permissiveModel struct{}

func (permissiveModel) Validate(doc *yaml.Node) error {
	if root := yamldoc.Root(doc); root == nil || root.Kind != yaml.MappingNode {
		return &ValidationError{Model: "document", Errors: []FieldError{{Message: "expected a mapping at the top level"}}}
	}
	return nil
}

func (permissiveModel) Schema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Version: jsonschema.Version,
		Type:    "object",
	}
}

// StrictModel decodes the document into T, rejecting unknown fields. Every
// key in Required must be present, and Check runs on documents that decode.
type StrictModel[T any] struct {
	Name     string
	Required []string
	Check    func(v *T) []FieldError
}

// Validate implements Model.
func (m *StrictModel[T]) Validate(doc *yaml.Node) error {
	root := yamldoc.Root(doc)
	if root == nil || root.Kind != yaml.MappingNode {
		return &ValidationError{Model: m.Name, Errors: []FieldError{{Message: "expected a mapping at the top level"}}}
	}

	var problems []FieldError
	present := make(map[string]bool, len(root.Content)/2)
	for i := 0; i+1 < len(root.Content); i += 2 {
		present[root.Content[i].Value] = true
	}
	for _, field := range m.Required {
		if !present[field] {
			problems = append(problems, FieldError{Field: field, Message: "field required"})
		}
	}

	var v T
	if err := yamldoc.Decode(root, &v, true); err != nil {
		var typeErr *yaml.TypeError
		if errors.As(err, &typeErr) {
			for _, msg := range typeErr.Errors {
				problems = append(problems, FieldError{Message: msg})
			}
		} else {
			problems = append(problems, FieldError{Message: err.Error()})
		}
	} else if m.Check != nil {
		problems = append(problems, m.Check(&v)...)
	}

	if len(problems) > 0 {
		return &ValidationError{Model: m.Name, Errors: problems}
	}
	return nil
}

// Schema implements Model.
func (m *StrictModel[T]) Schema() *jsonschema.Schema {
	r := &jsonschema.Reflector{
		DoNotReference: true,
	}
	return r.Reflect(new(T))
}
