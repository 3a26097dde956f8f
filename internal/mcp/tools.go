package mcp

import (
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/trackforge/youtrackd/internal/ids"
	"github.com/trackforge/youtrackd/internal/timefmt"
)

// registerTools registers all MCP tools with the server.
func (s *Server) registerTools() error {
	// Basic issue operations
	s.registerIssueTools()

	// Dedicated single-field updates
	s.registerUpdateTools()

	// Custom field operations
	s.registerFieldTools()

	// Issue linking
	s.registerLinkTools()

	// Attachments
	s.registerAttachmentTools()

	// Time tracking
	s.registerTimeTools()

	// Workflow diagnostics, help, and tool discovery
	s.registerDiagnosticTools()

	// Project exploration
	s.registerProjectTools()

	// User lookup
	s.registerUserTools()

	return nil
}

// addTool registers a handler with the protocol server and records its
// metadata for the catalog tools. Each tool declares its name, description,
// category, and keywords exactly once, on the metadata.
func addTool[In, Out any](s *Server, meta *ToolMetadata, h mcp.ToolHandlerFor[In, Out]) {
	mcp.AddTool(s.mcp, &mcp.Tool{Name: meta.Name, Description: meta.Description}, h)
	s.registry.Register(meta)
}

// normalizeID expands bare issue numbers with the default project key,
// so "123" reaches the API as "AGI-123".
func (s *Server) normalizeID(issueID string) string {
	return ids.Normalize(issueID, s.defaultProjectKey)
}

// jsonResult wraps a payload as two-space indented JSON text content,
// with ISO 8601 siblings added next to epoch-millisecond timestamps.
// Agent clients parse this text; it is the primary result channel.
func jsonResult(v any) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: formatJSON(v)}},
	}
}

// formatJSON renders the enriched payload form of v.
func formatJSON(v any) string {
	data, err := json.MarshalIndent(timefmt.Enrich(asPayload(v)), "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(data)
}

// errorResult renders a tool failure as an error payload with the isError
// flag set, not a protocol error, so clients always get parseable JSON
// back. The instrumentation middleware reads the same flag.
func errorResult(err error, fields map[string]any) *mcp.CallToolResult {
	payload := map[string]any{
		"error":  err.Error(),
		"status": "error",
	}
	for k, v := range fields {
		payload[k] = v
	}
	result := jsonResult(payload)
	result.IsError = true
	return result
}

// asPayload converts typed API values into the generic decoded-JSON
// shape the timestamp enrichment walks.
func asPayload(v any) any {
	data, err := json.Marshal(v)
	if err != nil {
		return v
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return v
	}
	return out
}
