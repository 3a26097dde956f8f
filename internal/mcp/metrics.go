package mcp

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// toolMetrics meters tool calls. Every instrument carries the tool name;
// the failure counter adds a bounded reason label so dashboards can split
// error rates without minting a series per error string.
//
// A nil *toolMetrics records nothing, which is how the server runs when
// instrument registration fails.
type toolMetrics struct {
	calls    metric.Int64Counter
	latency  metric.Float64Histogram
	failures metric.Int64Counter
	inflight metric.Int64UpDownCounter
}

func newToolMetrics(meter metric.Meter) (*toolMetrics, error) {
	m := &toolMetrics{}
	var errs []error
	var err error

	m.calls, err = meter.Int64Counter("youtrackd.mcp.tool.invocations_total",
		metric.WithDescription("Completed tool calls by tool name."),
		metric.WithUnit("{invocation}"),
	)
	errs = append(errs, err)

	m.latency, err = meter.Float64Histogram("youtrackd.mcp.tool.duration_seconds",
		metric.WithDescription("Tool call wall time, YouTrack round trips included."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.005, 0.025, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30),
	)
	errs = append(errs, err)

	m.failures, err = meter.Int64Counter("youtrackd.mcp.tool.errors_total",
		metric.WithDescription("Tool calls that returned an error payload, by reason."),
		metric.WithUnit("{error}"),
	)
	errs = append(errs, err)

	m.inflight, err = meter.Int64UpDownCounter("youtrackd.mcp.tool.active_requests",
		metric.WithDescription("Tool calls currently executing."),
		metric.WithUnit("{request}"),
	)
	errs = append(errs, err)

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return m, nil
}

// begin marks a tool call as in flight.
func (m *toolMetrics) begin(ctx context.Context, tool string) {
	if m == nil {
		return
	}
	m.inflight.Add(ctx, 1, metric.WithAttributes(attribute.String("tool", tool)))
}

// end settles the in-flight gauge and records the call outcome. failure
// is the client-visible error text, empty on success.
func (m *toolMetrics) end(ctx context.Context, tool string, elapsed time.Duration, failure string) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("tool", tool))
	m.inflight.Add(ctx, -1, attrs)
	m.calls.Add(ctx, 1, attrs)
	m.latency.Record(ctx, elapsed.Seconds(), attrs)

	if failure != "" {
		m.failures.Add(ctx, 1, metric.WithAttributes(
			attribute.String("tool", tool),
			attribute.String("reason", classifyFailure(failure)),
		))
	}
}

// failureReasons maps failure text fragments to the bounded reason label.
// Order matters: the first matching fragment wins.
var failureReasons = []struct {
	fragment string
	reason   string
}{
	{"not found", "not_found"},
	{"unauthorized", "auth"},
	{"forbidden", "auth"},
	{"permission", "auth"},
	{"required", "validation"},
	{"invalid", "validation"},
	{"validation", "validation"},
	{"rate limit", "rate_limited"},
	{"too many requests", "rate_limited"},
	{"timeout", "timeout"},
	{"deadline", "timeout"},
}

// classifyFailure buckets a failure message for the errors_total reason
// label.
func classifyFailure(text string) string {
	lower := strings.ToLower(text)
	for _, fr := range failureReasons {
		if strings.Contains(lower, fr.fragment) {
			return fr.reason
		}
	}
	return "internal_error"
}
