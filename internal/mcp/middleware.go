package mcp

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/trackforge/youtrackd/internal/logging"
)

// instrument returns the middleware that meters and logs every tool call.
// Handlers stay free of bookkeeping: the tool name and correlation tags
// come off the wire request, and failures are read from the same result
// payload the client gets.
func (s *Server) instrument() mcp.Middleware {
	return func(next mcp.MethodHandler) mcp.MethodHandler {
		return func(ctx context.Context, method string, req mcp.Request) (mcp.Result, error) {
			call, ok := req.(*mcp.CallToolRequest)
			if !ok || method != "tools/call" {
				return next(ctx, method, req)
			}

			tool := "unknown"
			if call.Params != nil && call.Params.Name != "" {
				tool = call.Params.Name
			}
			ctx = s.tagCall(ctx, call)

			start := time.Now()
			s.metrics.begin(ctx, tool)

			res, err := next(ctx, method, req)

			elapsed := time.Since(start)
			failure := failureText(res, err)
			s.metrics.end(ctx, tool, elapsed, failure)

			fields := []zap.Field{
				zap.String("tool", tool),
				zap.Duration("duration", elapsed),
			}
			if failure != "" {
				fields = append(fields, zap.String("error", failure))
			}
			s.logger.Debug(ctx, "tool call", fields...)

			return res, err
		}
	}
}

// tagCall stamps the context with a fresh request ID plus the issue and
// project the arguments reference. Arguments are client input; the tag
// setters drop malformed values.
func (s *Server) tagCall(ctx context.Context, call *mcp.CallToolRequest) context.Context {
	ctx = logging.WithRequestID(ctx, uuid.NewString())
	if call.Params == nil || call.Params.Arguments == nil {
		return ctx
	}

	var tags struct {
		IssueID   string `json:"issue_id"`
		Project   string `json:"project"`
		ProjectID string `json:"project_id"`
	}
	raw, err := json.Marshal(call.Params.Arguments)
	if err != nil {
		return ctx
	}
	_ = json.Unmarshal(raw, &tags)

	if tags.IssueID != "" {
		ctx = logging.WithIssue(ctx, s.normalizeID(tags.IssueID))
	}
	switch {
	case tags.Project != "":
		ctx = logging.WithProject(ctx, tags.Project)
	case tags.ProjectID != "":
		ctx = logging.WithProject(ctx, tags.ProjectID)
	}
	return ctx
}

// failureText extracts the client-visible failure from a tool call
// outcome. Tool failures travel as isError payloads rather than protocol
// errors, so the middleware reads the JSON the client sees.
func failureText(res mcp.Result, err error) string {
	if err != nil {
		return err.Error()
	}
	ctr, ok := res.(*mcp.CallToolResult)
	if !ok || ctr == nil || !ctr.IsError || len(ctr.Content) == 0 {
		return ""
	}
	text, ok := ctr.Content[0].(*mcp.TextContent)
	if !ok {
		return ""
	}

	var payload struct {
		Error string `json:"error"`
	}
	if json.Unmarshal([]byte(text.Text), &payload) == nil && payload.Error != "" {
		return payload.Error
	}
	return text.Text
}
