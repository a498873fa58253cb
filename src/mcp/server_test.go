package mcp

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/canonical/rocks-toolbox/src/logger"
	"github.com/canonical/rocks-toolbox/src/rules"
)

func newTestServer() *Server {
	return NewServer(rules.DefaultRegistry(), "test", &logger.SilentLogger{})
}

func callTool(name string, args map[string]any) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	if len(result.Content) == 0 {
		t.Fatal("empty tool result")
	}
	text, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("unexpected content type %T", result.Content[0])
	}
	return text.Text
}

func TestHandleListConfigs(t *testing.T) {
	s := newTestServer()

	result, err := s.handleListConfigs(context.Background(), callTool("list_configs", nil))
	if err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if result.IsError {
		t.Fatalf("tool error: %s", resultText(t, result))
	}

	var configs []ConfigInfo
	if err := json.Unmarshal([]byte(resultText(t, result)), &configs); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if len(configs) != 3 {
		t.Fatalf("expected 3 configs, got %d", len(configs))
	}
	if configs[1].Name != "Chisel" || len(configs[1].Rules) != 3 {
		t.Errorf("Chisel config = %+v", configs[1])
	}
}

func TestHandleNormalize(t *testing.T) {
	s := newTestServer()

	tests := []struct {
		name      string
		args      map[string]any
		wantError bool
		contains  string
	}{
		{
			name:     "oci factory",
			args:     map[string]any{"content": "image: \"ubuntu:22.04\"\n", "config": "OCIFactory"},
			contains: "image: 'ubuntu:22.04'",
		},
		{
			name:     "default config",
			args:     map[string]any{"content": "b: 1\na: 2\n"},
			contains: "b: 1\na: 2",
		},
		{
			name:      "missing content",
			args:      map[string]any{},
			wantError: true,
			contains:  "content parameter is required",
		},
		{
			name:      "unknown config",
			args:      map[string]any{"content": "a: 1\n", "config": "Nope"},
			wantError: true,
			contains:  "unknown configuration",
		},
		{
			name:      "validation failure",
			args:      map[string]any{"content": "package: hello\n", "config": "Chisel"},
			wantError: true,
			contains:  "field required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := s.handleNormalize(context.Background(), callTool("normalize_yaml", tt.args))
			if err != nil {
				t.Fatalf("handler error: %v", err)
			}
			if result.IsError != tt.wantError {
				t.Errorf("IsError = %v, want %v", result.IsError, tt.wantError)
			}
			if text := resultText(t, result); !strings.Contains(text, tt.contains) {
				t.Errorf("result %q does not contain %q", text, tt.contains)
			}
		})
	}
}

func TestHandleGetSchema(t *testing.T) {
	s := newTestServer()

	result, err := s.handleGetSchema(context.Background(), callTool("get_schema", map[string]any{"config": "Chisel"}))
	if err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if result.IsError {
		t.Fatalf("tool error: %s", resultText(t, result))
	}
	if text := resultText(t, result); !strings.Contains(text, `"essential"`) {
		t.Errorf("schema lacks essential: %s", text)
	}
}
