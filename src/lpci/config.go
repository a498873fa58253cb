// Package lpci renders the Launchpad CI configuration that builds a rock.
package lpci

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const (
	// FileName is where Launchpad CI looks for its configuration.
	FileName = ".launchpad.yaml"
	// JobName is the single job of the pipeline.
	JobName = "build-rock"
	// ArtifactGlob is the output path pattern the job publishes.
	ArtifactGlob = "*.rock"
)

// lpci reference: https://lpci.readthedocs.io/en/latest/configuration.html
const template = `pipeline:
  - build-rock

jobs:
  build-rock:
    # The "series" field is included by the code
    # The "architectures" field is included by the code
    snaps:
      - name: chisel
        channel: latest/candidate
      - name: rockcraft
        classic: true
    run: |
      HTTPS_PROXY=${https_proxy} HTTP_PROXY=${http_proxy} rockcraft pack \
              --verbosity=trace --destructive-mode
    output:
      paths:
        - "*.rock"
`

// Render returns the CI configuration for building on series for archs.
func Render(archs []string, series string) ([]byte, error) {
	if len(archs) == 0 {
		return nil, fmt.Errorf("no architectures to build for")
	}
	if series == "" {
		return nil, fmt.Errorf("no series to build on")
	}

	var doc yaml.Node
	if err := yaml.Unmarshal([]byte(template), &doc); err != nil {
		return nil, fmt.Errorf("failed to parse lpci template: %w", err)
	}

	job := lookup(doc.Content[0], "jobs", JobName)
	if job == nil || job.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("lpci template has no %s job", JobName)
	}

	archNode := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
	for _, arch := range archs {
		archNode.Content = append(archNode.Content, &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: arch})
	}
	setKey(job, "architectures", archNode)
	setKey(job, "series", &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: series})

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(&doc); err != nil {
		return nil, fmt.Errorf("failed to render lpci configuration: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("failed to render lpci configuration: %w", err)
	}
	return buf.Bytes(), nil
}

// Write renders the configuration into dir and returns the file path.
func Write(dir string, archs []string, series string) (string, error) {
	data, err := Render(archs, series)
	if err != nil {
		return "", err
	}

	path := filepath.Join(dir, FileName)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}
	return path, nil
}

func lookup(node *yaml.Node, keys ...string) *yaml.Node {
	for _, key := range keys {
		if node == nil || node.Kind != yaml.MappingNode {
			return nil
		}
		var next *yaml.Node
		for i := 0; i+1 < len(node.Content); i += 2 {
			if node.Content[i].Value == key {
				next = node.Content[i+1]
				break
			}
		}
		node = next
	}
	return node
}

func setKey(mapping *yaml.Node, key string, value *yaml.Node) {
	for i := 0; i+1 < len(mapping.Content); i += 2 {
		if mapping.Content[i].Value == key {
			mapping.Content[i+1] = value
			return
		}
	}
	mapping.Content = append(mapping.Content,
		&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: key},
		value,
	)
}
