package rules

import (
	"fmt"
	"sort"
	"strings"

	"github.com/canonical/rocks-toolbox/src/logger"
)

// SDF is a chisel slice definition file.
type SDF struct {
	Package   string                 `yaml:"package" json:"package"`
	Essential []string               `yaml:"essential" json:"essential"`
	Slices    map[string]interface{} `yaml:"slices" json:"slices"`
}

func chiselConfig(log logger.Logger) *RuleSet {
	return &RuleSet{
		Description: "Chisel slice definition files",
		Rules: []Rule{
			{Pattern: "/slices/*/essential", Handler: SortContent},
			{Pattern: "/slices/*/essential/*", Handler: NoQuotes},
			{Pattern: "/slices/*/contents", Handler: SortContent},
		},
		Handlers: map[string]Handler{
			SortContent: sortContent,
			NoQuotes:    noQuotes,
		},
		Model: &StrictModel[SDF]{
			Name:     "SDF",
			Required: []string{"package", "essential", "slices"},
			Check:    checkSDF,
		},
	}
}

// checkSDF verifies that every essential entry names a slice as
// <package>_<slice>.
func checkSDF(sdf *SDF) []FieldError {
	var problems []FieldError
	for _, name := range sdf.Essential {
		if err := checkSliceName(name); err != nil {
			problems = append(problems, FieldError{Field: "essential", Message: err.Error()})
		}
	}

	names := make([]string, 0, len(sdf.Slices))
	for name := range sdf.Slices {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		slice, ok := sdf.Slices[name].(map[string]interface{})
		if !ok {
			continue
		}
		essential, ok := slice["essential"].([]interface{})
		if !ok {
			continue
		}
		field := "slices." + name + ".essential"
		for _, entry := range essential {
			s, ok := entry.(string)
			if !ok {
				problems = append(problems, FieldError{Field: field, Message: fmt.Sprintf("expected a slice name, got %v", entry)})
				continue
			}
			if err := checkSliceName(s); err != nil {
				problems = append(problems, FieldError{Field: field, Message: err.Error()})
			}
		}
	}
	return problems
}

func checkSliceName(name string) error {
	i := strings.Index(name, "_")
	if i <= 0 || i == len(name)-1 || strings.Contains(name[i+1:], "_") {
		return fmt.Errorf("invalid slice name: %s", name)
	}
	return nil
}
