// Package mcp exposes the YAML normalizer as Model Context Protocol tools.
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/canonical/rocks-toolbox/src/logger"
	"github.com/canonical/rocks-toolbox/src/rules"
)

// Server is the MCP server for yamlcheck.
type Server struct {
	mcpServer *server.MCPServer
	registry  *rules.Registry
	log       logger.Logger
}

// ConfigInfo describes a registered configuration.
type ConfigInfo struct {
	Name        string       `json:"name"`
	Description string       `json:"description,omitempty"`
	Rules       []rules.Rule `json:"rules"`
}

// NewServer creates a new MCP server serving the configurations of registry.
func NewServer(registry *rules.Registry, version string, log logger.Logger) *Server {
	s := server.NewMCPServer(
		"yamlcheck",
		version,
		server.WithToolCapabilities(true),
	)

	srv := &Server{
		mcpServer: s,
		registry:  registry,
		log:       log,
	}
	srv.registerTools()

	return srv
}

// registerTools registers all available tools.
func (s *Server) registerTools() {
	listTool := mcp.NewTool("list_configs",
		mcp.WithDescription("List the yamlcheck configurations with their path rules."),
	)

	normalizeTool := mcp.NewTool("normalize_yaml",
		mcp.WithDescription("Apply the rules of a configuration to a YAML document, validate it and return the normalized document. Comments and key order outside the rule paths are preserved."),
		mcp.WithString("content",
			mcp.Required(),
			mcp.Description("YAML document to normalize"),
		),
		mcp.WithString("config",
			mcp.Description("Configuration name (default: "+rules.DefaultConfig+")"),
		),
	)

	schemaTool := mcp.NewTool("get_schema",
		mcp.WithDescription("Return the JSON Schema a configuration validates documents against."),
		mcp.WithString("config",
			mcp.Description("Configuration name (default: "+rules.DefaultConfig+")"),
		),
	)

	s.mcpServer.AddTool(listTool, s.handleListConfigs)
	s.mcpServer.AddTool(normalizeTool, s.handleNormalize)
	s.mcpServer.AddTool(schemaTool, s.handleGetSchema)
}

// Run starts the MCP server on stdio.
func (s *Server) Run() error {
	return server.ServeStdio(s.mcpServer)
}

// handleListConfigs handles the list_configs tool call.
func (s *Server) handleListConfigs(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var configs []ConfigInfo
	for _, name := range s.registry.Names() {
		set, err := s.registry.New(name, s.log)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		configs = append(configs, ConfigInfo{Name: name, Description: set.Description, Rules: set.Rules})
	}

	jsonBytes, err := json.Marshal(configs)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal configs: %v", err)), nil
	}
	return mcp.NewToolResultText(string(jsonBytes)), nil
}

// handleNormalize handles the normalize_yaml tool call.
func (s *Server) handleNormalize(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	content := request.GetString("content", "")
	if content == "" {
		return mcp.NewToolResultError("content parameter is required"), nil
	}

	set, err := s.registry.New(request.GetString("config", rules.DefaultConfig), s.log)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	out, err := rules.Normalize(set, []byte(content), s.log)
	if err != nil {
		var verr *rules.ValidationError
		if errors.As(err, &verr) {
			return mcp.NewToolResultError(verr.Error()), nil
		}
		return mcp.NewToolResultError(fmt.Sprintf("normalization failed: %v", err)), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

// handleGetSchema handles the get_schema tool call.
func (s *Server) handleGetSchema(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	set, err := s.registry.New(request.GetString("config", rules.DefaultConfig), s.log)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	schema, err := rules.Schema(set)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(schema)), nil
}
