package logging

import (
	"fmt"
	"os"

	"go.opentelemetry.io/contrib/bridges/otelzap"
	"go.opentelemetry.io/otel/log"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// bridgeScope names the otelzap instrumentation scope on exported records.
const bridgeScope = "youtrackd"

// newCore assembles the sink stack: a redacting stderr core, an optional
// OTLP bridge core, and the per-level sampler on top of whichever of the
// two are active. Sampling applies to both sinks so a flood is cut before
// it reaches the collector.
func newCore(cfg *Config, provider log.LoggerProvider) (zapcore.Core, error) {
	cores := make([]zapcore.Core, 0, 2)

	if cfg.Output.Stderr {
		enc, err := NewRedactingEncoder(newEncoder(cfg.Format), cfg.Redaction)
		if err != nil {
			return nil, fmt.Errorf("building redacting encoder: %w", err)
		}
		cores = append(cores, zapcore.NewCore(enc, zapcore.Lock(os.Stderr), cfg.Level))
	}

	if cfg.Output.OTEL && provider != nil {
		cores = append(cores, otelzap.NewCore(bridgeScope, otelzap.WithLoggerProvider(provider)))
	}

	switch len(cores) {
	case 0:
		return nil, fmt.Errorf("no log output available")
	case 1:
		return newSamplingCore(cores[0], cfg.Sampling), nil
	default:
		return newSamplingCore(zapcore.NewTee(cores...), cfg.Sampling), nil
	}
}

// newEncoder builds the stderr encoder. JSON for machines, console for a
// human watching a debug run. Both render TraceLevel as "trace".
func newEncoder(format string) zapcore.Encoder {
	ec := zap.NewProductionEncoderConfig()
	ec.TimeKey = "ts"
	ec.EncodeTime = zapcore.ISO8601TimeEncoder
	ec.EncodeLevel = encodeLevel
	if format == "console" {
		return zapcore.NewConsoleEncoder(ec)
	}
	return zapcore.NewJSONEncoder(ec)
}
