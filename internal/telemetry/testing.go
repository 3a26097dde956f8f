package telemetry

import (
	"context"
	"sync"
	"testing"

	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

// TestTelemetry drives the real provider constructors with in-process
// exporters so tests can assert on recorded spans and exported metrics.
type TestTelemetry struct {
	*Telemetry

	spans   *tracetest.InMemoryExporter
	capture *capturingExporter
}

// NewTestTelemetry builds an enabled instance whose telemetry never leaves
// the process.
func NewTestTelemetry() *TestTelemetry {
	cfg := NewDefaultConfig()
	cfg.Enabled = true

	ctx := context.Background()
	res, _ := newResource(cfg)

	spans := tracetest.NewInMemoryExporter()
	tp, _ := newTracerProvider(ctx, cfg, res, WithTraceExporter(spans))

	capture := newCapturingExporter()
	mp, _ := newMeterProvider(ctx, cfg, res, WithMetricExporter(capture))

	t := &Telemetry{config: cfg, traces: tp, metrics: mp}
	t.up.Store(true)

	return &TestTelemetry{Telemetry: t, spans: spans, capture: capture}
}

// Spans flushes the trace pipeline and returns every ended span.
func (t *TestTelemetry) Spans() []tracetest.SpanStub {
	_ = t.traces.ForceFlush(context.Background())
	return t.spans.GetSpans()
}

// SpanByName returns the first recorded span with the given name.
func (t *TestTelemetry) SpanByName(name string) (tracetest.SpanStub, bool) {
	for _, s := range t.Spans() {
		if s.Name == name {
			return s, true
		}
	}
	return tracetest.SpanStub{}, false
}

// AssertSpan verifies a span by name and, when attrs are given, that each
// expected attribute was recorded on it.
func (t *TestTelemetry) AssertSpan(tb testing.TB, name string, attrs ...attribute.KeyValue) {
	tb.Helper()
	span, ok := t.SpanByName(name)
	if !ok {
		tb.Errorf("span %q not recorded, have %v", name, t.spanNames())
		return
	}
	for _, want := range attrs {
		if !hasAttribute(span.Attributes, want) {
			tb.Errorf("span %q missing attribute %s=%s", name, want.Key, want.Value.Emit())
		}
	}
}

// Collect flushes the metric pipeline and returns everything exported.
func (t *TestTelemetry) Collect(tb testing.TB) []metricdata.ResourceMetrics {
	tb.Helper()
	if err := t.metrics.ForceFlush(context.Background()); err != nil {
		tb.Fatalf("flushing metrics: %v", err)
	}
	return t.capture.snapshot()
}

// Reset drops all recorded spans and metrics between test phases.
func (t *TestTelemetry) Reset() {
	_ = t.traces.ForceFlush(context.Background())
	t.spans.Reset()
	t.capture.reset()
}

func (t *TestTelemetry) spanNames() []string {
	spans := t.Spans()
	names := make([]string, len(spans))
	for i, s := range spans {
		names[i] = s.Name
	}
	return names
}

// hasAttribute compares by emitted value, which is safe for slice-valued
// attributes where Value is not comparable with ==.
func hasAttribute(got []attribute.KeyValue, want attribute.KeyValue) bool {
	for _, kv := range got {
		if kv.Key == want.Key && kv.Value.Emit() == want.Value.Emit() {
			return true
		}
	}
	return false
}

// capturingExporter collects exported metrics in memory. It plugs into the
// real PeriodicReader pipeline via WithMetricExporter.
type capturingExporter struct {
	mu       sync.Mutex
	exported []metricdata.ResourceMetrics
}

func newCapturingExporter() *capturingExporter {
	return &capturingExporter{}
}

func (e *capturingExporter) Temporality(k sdkmetric.InstrumentKind) metricdata.Temporality {
	return sdkmetric.DefaultTemporalitySelector(k)
}

func (e *capturingExporter) Aggregation(k sdkmetric.InstrumentKind) sdkmetric.Aggregation {
	return sdkmetric.DefaultAggregationSelector(k)
}

func (e *capturingExporter) Export(_ context.Context, rm *metricdata.ResourceMetrics) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.exported = append(e.exported, *rm)
	return nil
}

func (e *capturingExporter) ForceFlush(context.Context) error { return nil }

func (e *capturingExporter) Shutdown(context.Context) error { return nil }

func (e *capturingExporter) snapshot() []metricdata.ResourceMetrics {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]metricdata.ResourceMetrics, len(e.exported))
	copy(out, e.exported)
	return out
}

func (e *capturingExporter) reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.exported = nil
}
