package logging

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"syscall"

	"go.opentelemetry.io/otel/log"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is a zap logger that injects correlation fields from the context
// on every call. Construction goes through NewLogger; the zero value is not
// usable.
type Logger struct {
	base *zap.Logger
	cfg  *Config
}

// NewLogger builds a logger from cfg. provider may be nil, which disables
// the OTLP bridge even when cfg.Output.OTEL is set.
func NewLogger(cfg *Config, provider log.LoggerProvider) (*Logger, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	core, err := newCore(cfg, provider)
	if err != nil {
		return nil, err
	}

	var opts []zap.Option
	if cfg.Caller.Enabled {
		opts = append(opts, zap.AddCaller(), zap.AddCallerSkip(cfg.Caller.Skip))
	}
	if cfg.Stacktrace.Level != 0 {
		opts = append(opts, zap.AddStacktrace(cfg.Stacktrace.Level))
	}
	base := zap.New(core, opts...)

	if len(cfg.Fields) > 0 {
		// Sorted so the constant fields render in a stable order.
		constant := make([]zap.Field, 0, len(cfg.Fields))
		for _, k := range slices.Sorted(maps.Keys(cfg.Fields)) {
			constant = append(constant, zap.String(k, cfg.Fields[k]))
		}
		base = base.With(constant...)
	}

	return &Logger{base: base, cfg: cfg}, nil
}

// Nop returns a logger that discards every entry. It stands in wherever a
// component accepts an optional logger.
func Nop() *Logger {
	return &Logger{base: zap.NewNop(), cfg: NewDefaultConfig()}
}

func (l *Logger) log(lvl zapcore.Level, ctx context.Context, msg string, fields []zap.Field) {
	// DPanic and Fatal carry side effects that must fire even when no core
	// wants the entry, so only lower levels get the early return.
	if lvl < zapcore.DPanicLevel && !l.base.Core().Enabled(lvl) {
		return
	}
	l.base.Log(lvl, msg, append(ContextFields(ctx), fields...)...)
}

// Trace logs at TraceLevel.
func (l *Logger) Trace(ctx context.Context, msg string, fields ...zap.Field) {
	l.log(TraceLevel, ctx, msg, fields)
}

// Debug logs at DebugLevel.
func (l *Logger) Debug(ctx context.Context, msg string, fields ...zap.Field) {
	l.log(zapcore.DebugLevel, ctx, msg, fields)
}

// Info logs at InfoLevel.
func (l *Logger) Info(ctx context.Context, msg string, fields ...zap.Field) {
	l.log(zapcore.InfoLevel, ctx, msg, fields)
}

// Warn logs at WarnLevel.
func (l *Logger) Warn(ctx context.Context, msg string, fields ...zap.Field) {
	l.log(zapcore.WarnLevel, ctx, msg, fields)
}

// Error logs at ErrorLevel.
func (l *Logger) Error(ctx context.Context, msg string, fields ...zap.Field) {
	l.log(zapcore.ErrorLevel, ctx, msg, fields)
}

// DPanic logs at DPanicLevel, panicking in development mode.
func (l *Logger) DPanic(ctx context.Context, msg string, fields ...zap.Field) {
	l.log(zapcore.DPanicLevel, ctx, msg, fields)
}

// Fatal logs at FatalLevel, then exits.
func (l *Logger) Fatal(ctx context.Context, msg string, fields ...zap.Field) {
	l.log(zapcore.FatalLevel, ctx, msg, fields)
}

// With returns a child logger carrying the given constant fields.
func (l *Logger) With(fields ...zap.Field) *Logger {
	return &Logger{base: l.base.With(fields...), cfg: l.cfg}
}

// Named returns a child logger with name appended to the logger name.
func (l *Logger) Named(name string) *Logger {
	return &Logger{base: l.base.Named(name), cfg: l.cfg}
}

// Enabled reports whether entries at lvl would be written.
func (l *Logger) Enabled(lvl zapcore.Level) bool {
	return l.base.Core().Enabled(lvl)
}

// Sync flushes buffered entries. The EINVAL and ENOTTY that Linux returns
// for fsync on stderr are swallowed; anything else comes back.
func (l *Logger) Sync() error {
	if err := l.base.Sync(); err != nil && !stderrSyncError(err) {
		return err
	}
	return nil
}

// Underlying returns the wrapped zap logger for libraries that want a
// *zap.Logger. The caller skip added for this package's methods is rebased
// so direct calls report their own call site.
func (l *Logger) Underlying() *zap.Logger {
	if l.cfg.Caller.Enabled && l.cfg.Caller.Skip != 0 {
		return l.base.WithOptions(zap.AddCallerSkip(-l.cfg.Caller.Skip))
	}
	return l.base
}

func stderrSyncError(err error) bool {
	var errno syscall.Errno
	return errors.As(err, &errno) && (errno == syscall.EINVAL || errno == syscall.ENOTTY)
}
