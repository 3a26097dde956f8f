// Package telemetry wires OpenTelemetry for youtrackd: traces, metrics, and
// an OTLP log pipeline for the otelzap bridge, all exported to a collector
// over grpc or http/protobuf.
//
// The package is built around one rule: instrumentation must never take the
// server down or block a tool call. New returns a working instance even when
// the collector is unreachable; whatever part of the pipeline failed is
// recorded as a degradation reason and the rest keeps running. A nil
// *Telemetry is safe to call.
//
// Construction goes through the application's OTEL settings:
//
//	tel, err := telemetry.New(ctx, telemetry.FromOtelConfig(cfg.Otel, version))
//	if err != nil {
//	    return err // config was invalid, not a collector failure
//	}
//	defer tel.Shutdown(ctx)
//
// Subsystems pull tracers and meters by scope:
//
//	tracer := tel.Tracer(telemetry.ScopeMCP)
//	ctx, span := tracer.Start(ctx, "get_issue")
//	defer span.End()
//
// The log side feeds structured logs to the collector through the otelzap
// bridge; LoggerProvider returns nil until the log exporter is up, and the
// logging package treats nil as "stderr only".
//
// Tests use NewTestTelemetry, which runs the same provider constructors
// against in-process exporters:
//
//	tt := telemetry.NewTestTelemetry()
//	tracer := tt.Tracer("test")
//	_, span := tracer.Start(ctx, "lookup")
//	span.End()
//	tt.AssertSpan(t, "lookup")
package telemetry
