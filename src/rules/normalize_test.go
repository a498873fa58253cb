package rules

import (
	"encoding/json"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/canonical/rocks-toolbox/src/logger"
	"github.com/canonical/rocks-toolbox/src/yamldoc"
)

const chiselSDF = `package: hello

essential:
  - hello_copyright

slices:
  bins:
    essential:
      - "libc6_libs" # runtime
      - hello_config
    contents:
      /usr/bin/hello: {}
      /usr/bin/greet: {}
  config:
    contents:
      /etc/hello.conf: {}
  copyright:
    contents:
      /usr/share/doc/hello/copyright: {}
`

func newSet(t *testing.T, name string) *RuleSet {
	t.Helper()
	set, err := DefaultRegistry().New(name, &logger.SilentLogger{})
	if err != nil {
		t.Fatalf("New(%q) failed: %v", name, err)
	}
	return set
}

func TestNormalize_Chisel(t *testing.T) {
	out, err := Normalize(newSet(t, "Chisel"), []byte(chiselSDF), &logger.SilentLogger{})
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}
	got := string(out)

	if strings.Contains(got, `"libc6_libs"`) {
		t.Errorf("essential entry still quoted:\n%s", got)
	}
	if !strings.Contains(got, "libc6_libs # runtime") {
		t.Errorf("comment lost:\n%s", got)
	}
	if strings.Index(got, "hello_config") > strings.Index(got, "libc6_libs") {
		t.Errorf("essential not sorted:\n%s", got)
	}
	if strings.Index(got, "/usr/bin/greet") > strings.Index(got, "/usr/bin/hello") {
		t.Errorf("contents not sorted:\n%s", got)
	}
	// Only the configured paths are touched.
	if strings.Index(got, "bins:") > strings.Index(got, "config:") {
		t.Errorf("slices reordered:\n%s", got)
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	for _, name := range DefaultRegistry().Names() {
		t.Run(name, func(t *testing.T) {
			set := newSet(t, name)
			input := chiselSDF + "image: \"ubuntu:22.04\"\n"
			if name == "Chisel" {
				input = chiselSDF
			}

			once, err := Normalize(set, []byte(input), &logger.SilentLogger{})
			if err != nil {
				t.Fatalf("first pass failed: %v", err)
			}
			twice, err := Normalize(set, once, &logger.SilentLogger{})
			if err != nil {
				t.Fatalf("second pass failed: %v", err)
			}
			if string(once) != string(twice) {
				t.Errorf("second pass changed the document:\n%s\n---\n%s", once, twice)
			}
		})
	}
}

func TestNormalize_OCIFactory(t *testing.T) {
	input := "version: 1\nupload:\n  - source: \"canonical/hello\"\n    note: \"it's\"\n"
	out, err := Normalize(newSet(t, "OCIFactory"), []byte(input), &logger.SilentLogger{})
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}
	got := string(out)
	if !strings.Contains(got, "source: 'canonical/hello'") {
		t.Errorf("double quotes not converted:\n%s", got)
	}
	if !strings.Contains(got, `note: "it's"`) {
		t.Errorf("value with a single quote was changed:\n%s", got)
	}
}

func TestNormalize_ValidationFailure(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		expect []string
	}{
		{
			name:   "missing fields",
			input:  "package: hello\n",
			expect: []string{"essential: field required", "slices: field required"},
		},
		{
			name:   "unknown field",
			input:  "package: hello\nessential: []\nslices: {}\nextra: 1\n",
			expect: []string{"field extra not found"},
		},
		{
			name:   "mistyped field",
			input:  "package: hello\nessential: {a: b}\nslices: {}\n",
			expect: []string{"cannot unmarshal"},
		},
		{
			name:   "bad slice name",
			input:  "package: hello\nessential: [libc6]\nslices:\n  bins:\n    essential: [a_b_c]\n",
			expect: []string{"essential: invalid slice name: libc6", "slices.bins.essential: invalid slice name: a_b_c"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := Normalize(newSet(t, "Chisel"), []byte(tt.input), &logger.SilentLogger{})
			if out != nil {
				t.Error("output returned for an invalid document")
			}
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected *ValidationError, got %v", err)
			}
			for _, want := range tt.expect {
				if !strings.Contains(err.Error(), want) {
					t.Errorf("error %q does not mention %q", err, want)
				}
			}
		})
	}
}

func TestNormalize_MultipleDocuments(t *testing.T) {
	out, err := Normalize(newSet(t, DefaultConfig), []byte("a: 1\n---\nb: 2\n"), &logger.SilentLogger{})
	if !errors.Is(err, yamldoc.ErrMultipleDocuments) {
		t.Errorf("Normalize = %v, want ErrMultipleDocuments", err)
	}
	if out != nil {
		t.Errorf("output returned for a multi-document stream: %q", out)
	}
}

func TestNormalize_KeepsBlankLines(t *testing.T) {
	out, err := Normalize(newSet(t, "Chisel"), []byte(chiselSDF), &logger.SilentLogger{})
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}
	got := string(out)
	for _, want := range []string{"package: hello\n\nessential:", "hello_copyright\n\nslices:"} {
		if !strings.Contains(got, want) {
			t.Errorf("output lacks %q:\n%s", want, got)
		}
	}
}

func TestNormalize_PermissiveRejectsScalars(t *testing.T) {
	_, err := Normalize(newSet(t, DefaultConfig), []byte("just a string\n"), &logger.SilentLogger{})
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected *ValidationError, got %v", err)
	}
}

func TestRegistry(t *testing.T) {
	r := DefaultRegistry()

	if got := r.Names(); !reflect.DeepEqual(got, []string{DefaultConfig, "Chisel", "OCIFactory"}) {
		t.Errorf("Names() = %v", got)
	}

	if _, err := r.New("Nope", &logger.SilentLogger{}); !errors.Is(err, ErrUnknownConfig) {
		t.Errorf("New(Nope) = %v, want ErrUnknownConfig", err)
	}

	if err := r.Register("Chisel", chiselConfig); err == nil {
		t.Error("duplicate registration accepted")
	}

	if err := r.Register("Custom", baseConfig); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	set, err := r.New("Custom", &logger.SilentLogger{})
	if err != nil || set.Name != "Custom" {
		t.Errorf("New(Custom) = %+v, %v", set, err)
	}
}

func TestSchema(t *testing.T) {
	data, err := Schema(newSet(t, "Chisel"))
	if err != nil {
		t.Fatalf("Schema failed: %v", err)
	}

	var schema struct {
		Type       string                     `json:"type"`
		Required   []string                   `json:"required"`
		Properties map[string]json.RawMessage `json:"properties"`
	}
	if err := json.Unmarshal(data, &schema); err != nil {
		t.Fatalf("invalid schema JSON: %v", err)
	}
	if schema.Type != "object" {
		t.Errorf("type = %q", schema.Type)
	}
	for _, field := range []string{"package", "essential", "slices"} {
		if _, ok := schema.Properties[field]; !ok {
			t.Errorf("schema lacks property %q", field)
		}
	}
	if len(schema.Required) != 3 {
		t.Errorf("required = %v", schema.Required)
	}

	base, err := Schema(newSet(t, DefaultConfig))
	if err != nil || !strings.Contains(string(base), `"type": "object"`) {
		t.Errorf("base schema = %s, %v", base, err)
	}
}
