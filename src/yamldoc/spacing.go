package yamldoc

import (
	"bytes"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Spacing records the mapping keys and sequence items that followed a blank
// line in the source. yaml.v3 drops blank lines when encoding, so they are
// put back after the tree is dumped.
type Spacing map[*yaml.Node]bool

// BlankLines returns the entries of doc that are preceded by a blank line
// in source, the data doc was loaded from.
func BlankLines(source []byte, doc *yaml.Node) Spacing {
	lines := strings.Split(string(source), "\n")
	// blankAbove reports a blank line above line, skipping comment lines.
	blankAbove := func(line int) bool {
		for l := line - 1; l >= 1 && l <= len(lines); l-- {
			text := strings.TrimSpace(lines[l-1])
			if text == "" {
				return true
			}
			if !strings.HasPrefix(text, "#") {
				return false
			}
		}
		return false
	}

	s := make(Spacing)
	var visit func(node *yaml.Node)
	visit = func(node *yaml.Node) {
		prev := 0
		for i, entry := range entries(node) {
			// Entries sharing a line belong to a flow collection.
			if i > 0 && entry.Line > prev && blankAbove(entry.Line) {
				s[entry] = true
			}
			prev = entry.Line
		}
		for _, child := range node.Content {
			visit(child)
		}
	}
	if doc != nil {
		visit(doc)
	}
	return s
}

// Dump serializes node with the package-level Dump and restores the
// recorded blank lines.
// Entries that moved to the front of their collection get none.
func (s Spacing) Dump(node *yaml.Node) ([]byte, error) {
	out, err := Dump(node)
	if err != nil || len(s) == 0 {
		return out, err
	}

	var dumped yaml.Node
	if err := yaml.Unmarshal(out, &dumped); err != nil {
		return nil, fmt.Errorf("failed to re-read dumped YAML: %w", err)
	}

	before := make(map[int]bool)
	var match func(in, got *yaml.Node)
	match = func(in, got *yaml.Node) {
		if in.Kind != got.Kind || len(in.Content) != len(got.Content) {
			return
		}
		gotEntries := entries(got)
		for i, entry := range entries(in) {
			if i > 0 && s[entry] {
				before[entryStart(gotEntries[i])] = true
			}
		}
		for i := range in.Content {
			match(in.Content[i], got.Content[i])
		}
	}
	if node.Kind == yaml.DocumentNode {
		match(node, &dumped)
	} else {
		match(node, Root(&dumped))
	}

	lines := bytes.Split(out, []byte("\n"))
	var buf bytes.Buffer
	for i, line := range lines {
		if before[i+1] && i > 0 && len(bytes.TrimSpace(lines[i-1])) > 0 {
			buf.WriteByte('\n')
		}
		buf.Write(line)
		if i < len(lines)-1 {
			buf.WriteByte('\n')
		}
	}
	return buf.Bytes(), nil
}

// entries returns the nodes that start each entry of a collection: keys of
// a mapping, items of a sequence.
func entries(node *yaml.Node) []*yaml.Node {
	switch node.Kind {
	case yaml.MappingNode:
		keys := make([]*yaml.Node, 0, len(node.Content)/2)
		for i := 0; i+1 < len(node.Content); i += 2 {
			keys = append(keys, node.Content[i])
		}
		return keys
	case yaml.SequenceNode:
		return node.Content
	}
	return nil
}

// entryStart is the first line of an entry, including its head comment.
func entryStart(node *yaml.Node) int {
	if node.HeadComment == "" {
		return node.Line
	}
	return node.Line - strings.Count(node.HeadComment, "\n") - 1
}
