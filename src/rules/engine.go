package rules

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/canonical/rocks-toolbox/src/logger"
)

// RootPath is the path of the top-level node.
const RootPath = "/"

type compiledRule struct {
	Rule
	re      *regexp.Regexp
	handler Handler
}

// Engine applies the rules of one rule set to documents.
type Engine struct {
	set   *RuleSet
	rules []compiledRule
	log   logger.Logger
}

// NewEngine compiles the patterns of set and resolves its handlers.
func NewEngine(set *RuleSet, log logger.Logger) (*Engine, error) {
	e := &Engine{set: set, log: log}
	for _, rule := range set.Rules {
		re, err := compileGlob(rule.Pattern)
		if err != nil {
			return nil, err
		}
		handler, err := set.Handler(rule.Handler)
		if err != nil {
			return nil, err
		}
		e.rules = append(e.rules, compiledRule{Rule: rule, re: re, handler: handler})
	}
	return e, nil
}

// Apply walks the document depth first and applies every matching rule to
// each node after its children were processed. Document nodes are unwrapped
// so the top-level value has path "/".
func (e *Engine) Apply(doc *yaml.Node) (*yaml.Node, error) {
	if doc.Kind == yaml.DocumentNode {
		for i, child := range doc.Content {
			out, err := e.walk(RootPath, child)
			if err != nil {
				return nil, err
			}
			doc.Content[i] = out
		}
		return doc, nil
	}
	return e.walk(RootPath, doc)
}

func (e *Engine) walk(path string, node *yaml.Node) (*yaml.Node, error) {
	e.log.Debug("Walking path %s", path)

	switch node.Kind {
	case yaml.MappingNode:
		for i := 0; i+1 < len(node.Content); i += 2 {
			out, err := e.walk(joinPath(path, node.Content[i].Value), node.Content[i+1])
			if err != nil {
				return nil, err
			}
			node.Content[i+1] = out
		}
	case yaml.SequenceNode:
		// Scalar items are addressed by their value, others by position.
		for i, item := range node.Content {
			segment := strconv.Itoa(i)
			if item.Kind == yaml.ScalarNode {
				segment = item.Value
			}
			out, err := e.walk(joinPath(path, segment), item)
			if err != nil {
				return nil, err
			}
			node.Content[i] = out
		}
	}

	for _, rule := range e.rules {
		if !rule.re.MatchString(path) {
			continue
		}
		e.log.Debug("Applying rule %q at %s", rule.Handler, path)
		out, err := rule.handler(path, node)
		if err != nil {
			return nil, fmt.Errorf("rule %s at %s: %w", rule.Handler, path, err)
		}
		if out != nil {
			node = out
		}
	}
	return node, nil
}

// joinPath appends segment to parent. An absolute segment, such as a
// Chisel content path, replaces parent. Empty and "." parts are dropped.
func joinPath(parent, segment string) string {
	joined := segment
	if !strings.HasPrefix(segment, "/") {
		joined = parent + "/" + segment
	}

	parts := strings.Split(joined, "/")
	kept := parts[:0]
	for _, part := range parts {
		if part != "" && part != "." {
			kept = append(kept, part)
		}
	}
	return RootPath + strings.Join(kept, "/")
}
