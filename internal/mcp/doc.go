// Package mcp exposes YouTrack operations as MCP tools over stdio.
//
// This implementation uses the MCP SDK (github.com/modelcontextprotocol/go-sdk/mcp)
// and registers tools for issues, dedicated field updates, custom fields,
// linking, attachments, time tracking, workflow diagnostics, projects, and
// users. Stdout belongs to the protocol; anything the server logs goes
// through the injected logger, which must write to stderr.
//
// Tool handlers never fail at the protocol level. API errors come back as
// structured payloads with the isError flag set and troubleshooting guidance,
// so LLM clients can recover on their own. A receiving middleware wraps every
// tools/call dispatch to record metrics and tag the context with the request,
// issue, and project identifiers the log layer picks up.
package mcp
