// Package logging builds the process logger: zap with a trace level below
// Debug, context-injected correlation fields, secret redaction at the
// encoder, and per-level sampling.
//
// Two rules shape everything here. First, stdout is off limits: on the
// stdio transport it carries the MCP protocol stream, so logs go to stderr
// and, when a collector is configured, over OTLP through the otelzap
// bridge. Second, tokens never reach a sink in the clear. YouTrack
// permanent tokens ("perm-...", "perm:...") and bearer headers are masked
// by field name, scrubbed by pattern inside string values, and kept out of
// reach entirely when call sites use config.Secret or the helpers here:
//
//	logger.Info(ctx, "authenticated",
//	    logging.RedactedString("authorization", header))
//
// Loggers carry correlation out of the context. Tag the context on the way
// into an operation and every entry underneath it picks the fields up:
//
//	ctx = logging.WithIssue(ctx, "AGI-123")
//	ctx = logging.WithRequestID(ctx, id)
//	logger.Info(ctx, "issue updated", zap.Duration("took", d))
//
// produces
//
//	{"level":"info","msg":"issue updated","trace_id":"4bf9...","issue.id":"AGI-123","request.id":"q1w2e3","took":"45ms"}
//
// with trace_id and span_id filled in whenever an OpenTelemetry span is
// active on the context.
//
// Sampling gives each level below Error its own budget per tick (see
// NewDefaultConfig for the production numbers); Error and above are never
// dropped. Debug runs disable it wholesale via Config.Sampling.Enabled.
//
// Tests use TestLogger, which records entries in memory:
//
//	tl := logging.NewTestLogger()
//	tl.Info(ctx, "stored", zap.String("key", "value"))
//	tl.AssertLogged(t, zapcore.InfoLevel, "stored")
//	tl.AssertNoSecrets(t)
package logging
