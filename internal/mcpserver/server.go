// Package mcpserver provides an MCP (Model Context Protocol) server that
// exposes the document store to LLM agents via stdio transport.
package mcpserver

import (
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/docomatic/docomatic/internal/apperr"
	"github.com/docomatic/docomatic/internal/docservice"
	"github.com/docomatic/docomatic/internal/export"
)

// Server wraps the MCP server with the document tools.
type Server struct {
	mcp      *server.MCPServer
	docs     *docservice.Service
	exporter *export.Service
}

// New creates an MCP server with all document tools registered.
func New(docs *docservice.Service, exporter *export.Service) *Server {
	s := &Server{docs: docs, exporter: exporter}

	s.mcp = server.NewMCPServer(
		"Docomatic",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.registerDocumentTools()
	s.registerSectionTools()
	s.registerLinkTools()
	s.registerExportTools()

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

// toolError encodes a service error as a structured tool result so agents
// can branch on the kind tag instead of parsing prose.
type toolError struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

func errResult(err error) *mcp.CallToolResult {
	out, _ := json.Marshal(toolError{Kind: apperr.KindTag(err), Message: err.Error()})
	return mcp.NewToolResultError(string(out))
}

func jsonResult(v any) *mcp.CallToolResult {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errResult(apperr.Persistence("encode_result", err))
	}
	return mcp.NewToolResultText(string(out))
}

// Argument helpers over the raw argument map. RequireString covers
// mandatory strings; these cover the optional and non-string shapes.

func argString(req mcp.CallToolRequest, key string) string {
	if v, ok := req.GetArguments()[key].(string); ok {
		return v
	}
	return ""
}

func argBool(req mcp.CallToolRequest, key string, def bool) bool {
	if v, ok := req.GetArguments()[key].(bool); ok {
		return v
	}
	return def
}

// argInt reads an integer argument. JSON numbers arrive as float64.
func argInt(req mcp.CallToolRequest, key string) (int, bool) {
	switch v := req.GetArguments()[key].(type) {
	case float64:
		return int(v), true
	case int:
		return v, true
	}
	return 0, false
}

func argMap(req mcp.CallToolRequest, key string) map[string]any {
	if v, ok := req.GetArguments()[key].(map[string]any); ok {
		return v
	}
	return nil
}

func argStringSlice(req mcp.CallToolRequest, key string) []string {
	raw, ok := req.GetArguments()[key].([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func argMapSlice(req mcp.CallToolRequest, key string) []map[string]any {
	raw, ok := req.GetArguments()[key].([]any)
	if !ok {
		return nil
	}
	out := make([]map[string]any, 0, len(raw))
	for _, item := range raw {
		if m, ok := item.(map[string]any); ok {
			out = append(out, m)
		}
	}
	return out
}
