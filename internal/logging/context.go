package logging

import (
	"context"
	"regexp"
	"strconv"
	"unicode/utf8"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type ctxKey int

const (
	ctxIssue ctxKey = iota
	ctxProject
	ctxRequest
	ctxLogger
)

// Tag length caps. Issue IDs and project keys arrive from client input;
// request IDs are minted by the server.
const (
	maxTagLen       = 64
	maxRequestIDLen = 128
)

// tagPattern covers the character set shared by readable issue IDs
// (AGI-123), internal IDs (3-37), project keys, and request IDs.
var tagPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

func validTag(s string, max int) bool {
	return s != "" && len(s) <= max && utf8.ValidString(s) && tagPattern.MatchString(s)
}

// WithIssue tags the context with the issue under operation. Issue IDs come
// from client input, so a malformed or oversized value leaves the context
// untouched rather than panicking.
func WithIssue(ctx context.Context, issueID string) context.Context {
	if !validTag(issueID, maxTagLen) {
		return ctx
	}
	return context.WithValue(ctx, ctxIssue, issueID)
}

// IssueFromContext returns the tagged issue ID, or "".
func IssueFromContext(ctx context.Context) string {
	s, _ := ctx.Value(ctxIssue).(string)
	return s
}

// WithProject tags the context with the project under operation. Malformed
// keys leave the context untouched.
func WithProject(ctx context.Context, projectKey string) context.Context {
	if !validTag(projectKey, maxTagLen) {
		return ctx
	}
	return context.WithValue(ctx, ctxProject, projectKey)
}

// ProjectFromContext returns the tagged project key, or "".
func ProjectFromContext(ctx context.Context) string {
	s, _ := ctx.Value(ctxProject).(string)
	return s
}

// WithRequestID tags the context with a request ID. The server mints these
// itself, so a malformed one is a bug and panics.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	if !validTag(requestID, maxRequestIDLen) {
		panic("logging: malformed request id " + strconv.Quote(requestID))
	}
	return context.WithValue(ctx, ctxRequest, requestID)
}

// RequestIDFromContext returns the tagged request ID, or "".
func RequestIDFromContext(ctx context.Context) string {
	s, _ := ctx.Value(ctxRequest).(string)
	return s
}

// ContextFields collects the correlation fields carried by ctx: the active
// span, then whatever tags the request path attached.
func ContextFields(ctx context.Context) []zap.Field {
	fields := make([]zap.Field, 0, 6)
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		fields = append(fields,
			zap.String("trace_id", sc.TraceID().String()),
			zap.String("span_id", sc.SpanID().String()),
		)
		if sc.IsSampled() {
			fields = append(fields, zap.Bool("trace_sampled", true))
		}
	}
	if id := IssueFromContext(ctx); id != "" {
		fields = append(fields, zap.String("issue.id", id))
	}
	if key := ProjectFromContext(ctx); key != "" {
		fields = append(fields, zap.String("project.key", key))
	}
	if id := RequestIDFromContext(ctx); id != "" {
		fields = append(fields, zap.String("request.id", id))
	}
	return fields
}

// WithLogger stores a logger in ctx for call sites that only receive a
// context.
func WithLogger(ctx context.Context, l *Logger) context.Context {
	return context.WithValue(ctx, ctxLogger, l)
}

// FromContext returns the logger stored in ctx, or a nop logger so callers
// never have to nil-check.
func FromContext(ctx context.Context) *Logger {
	if l, ok := ctx.Value(ctxLogger).(*Logger); ok {
		return l
	}
	return Nop()
}
