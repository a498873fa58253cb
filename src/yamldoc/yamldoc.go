// Package yamldoc loads and dumps YAML documents as node trees so comments,
// key order and quoting styles survive a round trip.
package yamldoc

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// Indent is the indentation used when dumping documents.
const Indent = 2

var (
	ErrEmptyDocument     = errors.New("empty YAML document")
	ErrMultipleDocuments = errors.New("expected a single YAML document but found more")
)

// Load parses data into a document node. Streams holding more than one
// document are rejected.
func Load(data []byte) (*yaml.Node, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))

	var doc yaml.Node
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrEmptyDocument
		}
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return nil, ErrEmptyDocument
	}

	var next yaml.Node
	if err := dec.Decode(&next); !errors.Is(err, io.EOF) {
		if err != nil {
			return nil, fmt.Errorf("failed to parse YAML: %w", err)
		}
		return nil, ErrMultipleDocuments
	}
	return &doc, nil
}

// Root returns the top-level value of a document node. Other nodes are
// returned unchanged.
func Root(node *yaml.Node) *yaml.Node {
	if node != nil && node.Kind == yaml.DocumentNode && len(node.Content) > 0 {
		return node.Content[0]
	}
	return node
}

// Dump serializes a node back to YAML.
func Dump(node *yaml.Node) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(Indent)
	if err := enc.Encode(node); err != nil {
		return nil, fmt.Errorf("failed to dump YAML: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("failed to dump YAML: %w", err)
	}
	return buf.Bytes(), nil
}

// Decode converts a node into v, rejecting fields v does not declare when
// strict is set. The node is re-encoded first because yaml.Node.Decode has
// no strict mode.
func Decode(node *yaml.Node, v interface{}, strict bool) error {
	data, err := yaml.Marshal(node)
	if err != nil {
		return fmt.Errorf("failed to encode node: %w", err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(strict)
	return dec.Decode(v)
}
