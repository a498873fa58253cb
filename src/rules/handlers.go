package rules

import (
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/canonical/rocks-toolbox/src/logger"
)

// Handler names usable in rules.
const (
	SortContent           = "sort_content"
	NoQuotes              = "no_quotes"
	ConvertToSingleQuotes = "convert_to_single_quotes"
)

// sortContent orders mapping entries by key and sequences of scalars by
// value. Comments stay attached to the nodes they belong to.
func sortContent(path string, node *yaml.Node) (*yaml.Node, error) {
	switch node.Kind {
	case yaml.MappingNode:
		type pair struct{ key, value *yaml.Node }
		pairs := make([]pair, 0, len(node.Content)/2)
		for i := 0; i+1 < len(node.Content); i += 2 {
			pairs = append(pairs, pair{node.Content[i], node.Content[i+1]})
		}
		if len(pairs) == 0 {
			return node, nil
		}
		// The comment trailing the mapping is held by its last key.
		last := pairs[len(pairs)-1].key
		foot := last.FootComment
		sort.SliceStable(pairs, func(i, j int) bool {
			return pairs[i].key.Value < pairs[j].key.Value
		})
		for i, p := range pairs {
			node.Content[2*i] = p.key
			node.Content[2*i+1] = p.value
		}
		if newLast := pairs[len(pairs)-1].key; foot != "" && newLast != last {
			last.FootComment = ""
			newLast.FootComment = joinComments(newLast.FootComment, foot)
		}

	case yaml.SequenceNode:
		for _, item := range node.Content {
			if item.Kind != yaml.ScalarNode {
				return node, nil
			}
		}
		sort.SliceStable(node.Content, func(i, j int) bool {
			return lessScalar(node.Content[i], node.Content[j])
		})
	}
	return node, nil
}

func joinComments(a, b string) string {
	if a == "" {
		return b
	}
	return a + "\n" + b
}

// lessScalar orders numbers numerically before strings, strings lexically.
func lessScalar(a, b *yaml.Node) bool {
	an, aNum := numericValue(a)
	bn, bNum := numericValue(b)
	switch {
	case aNum && bNum:
		return an < bn
	case aNum != bNum:
		return aNum
	default:
		return a.Value < b.Value
	}
}

func numericValue(node *yaml.Node) (float64, bool) {
	switch node.ShortTag() {
	case "!!int", "!!float":
		f, err := strconv.ParseFloat(strings.ReplaceAll(node.Value, "_", ""), 64)
		return f, err == nil
	}
	return 0, false
}

// noQuotes turns a quoted string into a plain scalar when the plain form
// still reads as the same string.
func noQuotes(path string, node *yaml.Node) (*yaml.Node, error) {
	if node.Kind != yaml.ScalarNode || node.ShortTag() != "!!str" {
		return node, nil
	}
	if node.Style&(yaml.SingleQuotedStyle|yaml.DoubleQuotedStyle) == 0 {
		return node, nil
	}

	plain := &yaml.Node{Kind: yaml.ScalarNode, Value: node.Value}
	if plain.ShortTag() != "!!str" {
		return node, nil
	}
	node.Style &^= yaml.SingleQuotedStyle | yaml.DoubleQuotedStyle
	return node, nil
}

// convertToSingleQuotes rewrites double-quoted scalars as single-quoted ones.
// Values containing a single quote are left alone.
func convertToSingleQuotes(log logger.Logger) Handler {
	return func(path string, node *yaml.Node) (*yaml.Node, error) {
		if node.Kind != yaml.ScalarNode || node.Style&yaml.DoubleQuotedStyle == 0 {
			return node, nil
		}
		if strings.Contains(node.Value, "'") {
			log.Warn("Cannot convert %s, contains \"'\" character", path)
			return node, nil
		}
		node.Style = node.Style&^yaml.DoubleQuotedStyle | yaml.SingleQuotedStyle
		return node, nil
	}
}
