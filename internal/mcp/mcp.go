// Package mcp implements the Model Context Protocol server for Oráculo.
//
// The MCP server exposes the same read-only sales tools as the
// tool-calling loop, so MCP-compatible agents can query the dataset
// directly without going through the language model.
package mcp

import (
	"context"
	"encoding/json"
	"log/slog"

	mcplib "github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/oraculo-ai/oraculo/internal/model"
	"github.com/oraculo-ai/oraculo/internal/storage"
	"github.com/oraculo-ai/oraculo/internal/tools"
)

// Server wraps the MCP server around the sales tool registry.
type Server struct {
	mcpServer *mcpserver.MCPServer
	registry  *tools.Registry
	db        *storage.DB
	logger    *slog.Logger
}

// New creates and configures a new MCP server with all resources and tools.
func New(registry *tools.Registry, db *storage.DB, logger *slog.Logger) *Server {
	s := &Server{
		registry: registry,
		db:       db,
		logger:   logger,
	}

	s.mcpServer = mcpserver.NewMCPServer(
		"oraculo",
		"0.1.0",
		mcpserver.WithResourceCapabilities(true, true),
		mcpserver.WithToolCapabilities(true),
	)

	s.registerResources()
	s.registerTools()

	return s
}

// MCPServer returns the underlying mcp-go server for transport setup.
func (s *Server) MCPServer() *mcpserver.MCPServer {
	return s.mcpServer
}

func (s *Server) registerResources() {
	// oraculo://schema — table and column layout of the sales database.
	s.mcpServer.AddResource(
		mcplib.NewResource(
			"oraculo://schema",
			"Sales Database Schema",
			mcplib.WithResourceDescription("Tables, columns and timestamp conventions of the sales database"),
			mcplib.WithMIMEType("application/json"),
		),
		s.handleSchemaResource,
	)

	// oraculo://stats — dataset-wide aggregate statistics.
	s.mcpServer.AddResource(
		mcplib.NewResource(
			"oraculo://stats",
			"Sales Statistics",
			mcplib.WithResourceDescription("Aggregate order, revenue, product and customer counts"),
			mcplib.WithMIMEType("application/json"),
		),
		s.handleStatsResource,
	)
}

// registerTools projects every registry descriptor onto an MCP tool. The
// registry already owns argument validation, so the MCP handler is a
// thin dispatch.
func (s *Server) registerTools() {
	for _, desc := range s.registry.Catalog() {
		opts := []mcplib.ToolOption{
			mcplib.WithDescription(desc.Description),
			mcplib.WithReadOnlyHintAnnotation(true),
			mcplib.WithIdempotentHintAnnotation(true),
			mcplib.WithOpenWorldHintAnnotation(false),
		}
		for _, p := range desc.Params {
			opts = append(opts, paramOption(p))
		}
		s.mcpServer.AddTool(mcplib.NewTool(desc.Name, opts...), s.toolHandler(desc.Name))
	}
}

func paramOption(p model.Param) mcplib.ToolOption {
	switch p.Type {
	case model.ParamNumber:
		propOpts := []mcplib.PropertyOption{mcplib.Description(p.Description)}
		if p.Required {
			propOpts = append(propOpts, mcplib.Required())
		}
		return mcplib.WithNumber(p.Name, propOpts...)
	default:
		propOpts := []mcplib.PropertyOption{mcplib.Description(p.Description)}
		if p.Required {
			propOpts = append(propOpts, mcplib.Required())
		}
		if len(p.Enum) > 0 {
			propOpts = append(propOpts, mcplib.Enum(p.Enum...))
		}
		return mcplib.WithString(p.Name, propOpts...)
	}
}

func (s *Server) toolHandler(name string) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
		args := map[string]any{}
		for key, value := range request.GetArguments() {
			args[key] = value
		}

		result := s.registry.Invoke(ctx, model.ToolCallRequest{Tool: name, Args: args})
		if !result.OK {
			return errorResult(result.Error), nil
		}
		return textResult(result.Payload), nil
	}
}

func (s *Server) handleSchemaResource(ctx context.Context, request mcplib.ReadResourceRequest) ([]mcplib.ResourceContents, error) {
	schema, err := s.db.Schema(ctx)
	if err != nil {
		return nil, err
	}
	return jsonResource(request.Params.URI, schema)
}

func (s *Server) handleStatsResource(ctx context.Context, request mcplib.ReadResourceRequest) ([]mcplib.ResourceContents, error) {
	stats, err := s.db.Stats(ctx)
	if err != nil {
		return nil, err
	}
	return jsonResource(request.Params.URI, stats)
}

func jsonResource(uri string, v any) ([]mcplib.ResourceContents, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return []mcplib.ResourceContents{
		mcplib.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

func textResult(text string) *mcplib.CallToolResult {
	return &mcplib.CallToolResult{
		Content: []mcplib.Content{
			mcplib.TextContent{Type: "text", Text: text},
		},
	}
}

func errorResult(message string) *mcplib.CallToolResult {
	return &mcplib.CallToolResult{
		IsError: true,
		Content: []mcplib.Content{
			mcplib.TextContent{Type: "text", Text: message},
		},
	}
}
