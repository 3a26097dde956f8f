package logging

import (
	"strings"

	"go.uber.org/zap/zapcore"
)

// TraceLevel sits one step below Debug. It is meant for wire-level detail
// such as raw REST payloads and per-field coercion during custom field
// mapping, and is filtered out in any normal run.
const TraceLevel = zapcore.Level(-2)

// ParseLevel converts a config string into a zap level. "trace" maps to
// TraceLevel; everything else follows zap's own spellings ("debug", "info",
// "warn", "error").
func ParseLevel(s string) (zapcore.Level, error) {
	if strings.EqualFold(s, "trace") {
		return TraceLevel, nil
	}
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(s)); err != nil {
		return zapcore.InfoLevel, err
	}
	return lvl, nil
}

// encodeLevel renders TraceLevel as "trace" instead of zap's "Level(-2)".
func encodeLevel(l zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
	if l == TraceLevel {
		enc.AppendString("trace")
		return
	}
	zapcore.LowercaseLevelEncoder(l, enc)
}
