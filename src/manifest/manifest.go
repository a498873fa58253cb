// Package manifest reads the parts of rockcraft.yaml needed to build a rock
// remotely: its name, platforms and build base.
package manifest

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/canonical/rocks-toolbox/src/distroinfo"
)

// DefaultPath is the manifest file name rockcraft looks for.
const DefaultPath = "rockcraft.yaml"

var (
	ErrManifestNotFound = errors.New("rockcraft.yaml not found")
	ErrMissingField     = errors.New("missing required field in rockcraft.yaml")
	ErrUnsupportedBase  = errors.New("unsupported build base")
)

// Manifest is a parsed rockcraft.yaml.
type Manifest struct {
	Name      string              `yaml:"name"`
	Base      string              `yaml:"base"`
	BuildBase string              `yaml:"build-base"`
	Platforms map[string]Platform `yaml:"platforms"`

	// BuildBaseUnderscore accepts the build_base spelling as well.
	BuildBaseUnderscore string `yaml:"build_base"`
}

// Platform is one entry of the platforms map. An empty entry builds for the
// architecture named by its key.
type Platform struct {
	BuildFor []string
	BuildOn  []string
}

// UnmarshalYAML accepts null, a scalar, or a mapping with build-for and
// build-on given either as a string or as a list.
func (p *Platform) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		*p = Platform{}
		return nil
	}

	var raw struct {
		BuildFor stringOrList `yaml:"build-for"`
		BuildOn  stringOrList `yaml:"build-on"`
	}
	if err := node.Decode(&raw); err != nil {
		return err
	}
	p.BuildFor = raw.BuildFor
	p.BuildOn = raw.BuildOn
	return nil
}

type stringOrList []string

func (s *stringOrList) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		if node.Value == "" {
			*s = nil
			return nil
		}
		*s = []string{node.Value}
		return nil
	case yaml.SequenceNode:
		var list []string
		if err := node.Decode(&list); err != nil {
			return err
		}
		*s = list
		return nil
	}
	return fmt.Errorf("line %d: expected a string or a list of strings", node.Line)
}

// Read loads and parses a manifest file.
func Read(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrManifestNotFound, path)
		}
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse parses manifest content.
func Parse(data []byte) (*Manifest, error) {
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse rockcraft.yaml: %w", err)
	}
	if m.Name == "" {
		return nil, fmt.Errorf("%w: name", ErrMissingField)
	}
	return &m, nil
}

// Architectures returns the deduplicated, sorted set of architectures the
// rock is built for. A platform's build-for wins over its key.
func (m *Manifest) Architectures() ([]string, error) {
	if len(m.Platforms) == 0 {
		return nil, fmt.Errorf("%w: platforms", ErrMissingField)
	}

	seen := make(map[string]bool)
	for name, platform := range m.Platforms {
		archs := platform.BuildFor
		if len(archs) == 0 {
			archs = []string{name}
		}
		for _, arch := range archs {
			seen[arch] = true
		}
	}

	archs := make([]string, 0, len(seen))
	for arch := range seen {
		archs = append(archs, arch)
	}
	sort.Strings(archs)
	return archs, nil
}

// EffectiveBase returns build-base if set, otherwise base.
func (m *Manifest) EffectiveBase() (string, error) {
	for _, base := range []string{m.BuildBase, m.BuildBaseUnderscore, m.Base} {
		if base != "" {
			return base, nil
		}
	}
	return "", fmt.Errorf("%w: base", ErrMissingField)
}

// Series resolves the Ubuntu series codename to build on. "devel" maps to
// the series in development at now; "ubuntu@22.04" or "ubuntu:22.04" map to
// the series of that version.
func (m *Manifest) Series(table *distroinfo.Table, now time.Time) (string, error) {
	base, err := m.EffectiveBase()
	if err != nil {
		return "", err
	}

	if base == "devel" {
		return table.Devel(now)
	}

	normalized := strings.ReplaceAll(base, ":", "@")
	parts := strings.Split(normalized, "@")
	version := parts[len(parts)-1]
	if version == "" {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedBase, base)
	}

	series, err := table.SeriesForVersion(version)
	if err != nil {
		return "", fmt.Errorf("%w %q: %v", ErrUnsupportedBase, base, err)
	}
	return series, nil
}
