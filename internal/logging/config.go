package logging

import (
	"fmt"
	"regexp"
	"time"

	"github.com/trackforge/youtrackd/internal/config"
	"go.uber.org/zap/zapcore"
)

// maxPatternLen bounds redaction regexp size. Shared with the encoder so
// Validate and NewRedactingEncoder cannot disagree about what is accepted.
const maxPatternLen = 256

// Config describes a fully assembled logger. It is built in code starting
// from NewDefaultConfig rather than decoded from a file; the serve command
// flips Level, Format, and Sampling for debug runs and turns on OTEL export
// when a collector is configured.
type Config struct {
	// Level is the minimum level written to stderr.
	Level zapcore.Level
	// Format selects the stderr encoding, "json" or "console".
	Format     string
	Output     OutputConfig
	Sampling   SamplingConfig
	Caller     CallerConfig
	Stacktrace StacktraceConfig
	// Fields are constant key/value pairs attached to every entry.
	Fields    map[string]string
	Redaction RedactionConfig
}

// OutputConfig selects log sinks. Stdout is never one of them: on the stdio
// transport it carries JSON-RPC frames and a single stray line corrupts the
// session.
type OutputConfig struct {
	Stderr bool
	OTEL   bool
}

// SamplingConfig bounds per-level log volume. Levels holds one budget per
// level; levels without an entry, and Error and above, are never dropped.
type SamplingConfig struct {
	Enabled bool
	Tick    config.Duration
	Levels  map[zapcore.Level]SampleBudget
}

// SampleBudget caps one level inside a tick window: the first First entries
// per message pass, then every Thereafter-th. Thereafter 0 drops the rest
// of the window.
type SampleBudget struct {
	First      int
	Thereafter int
}

// CallerConfig controls caller annotation. Skip counts the wrapper frames
// between the call site and zap; NewDefaultConfig sets it for this
// package's Logger methods.
type CallerConfig struct {
	Enabled bool
	Skip    int
}

// StacktraceConfig sets the level at which stacktraces are captured. The
// zero value disables them.
type StacktraceConfig struct {
	Level zapcore.Level
}

// RedactionConfig lists field names masked outright and value patterns
// scrubbed out of string fields.
type RedactionConfig struct {
	Enabled  bool
	Fields   []string
	Patterns []string
}

// NewDefaultConfig returns the production shape: sampled JSON on stderr,
// caller and error stacktraces on, YouTrack token redaction compiled in.
func NewDefaultConfig() *Config {
	return &Config{
		Level:  zapcore.InfoLevel,
		Format: "json",
		Output: OutputConfig{Stderr: true},
		Sampling: SamplingConfig{
			Enabled: true,
			Tick:    config.Duration(time.Second),
			Levels: map[zapcore.Level]SampleBudget{
				TraceLevel:         {First: 1},
				zapcore.DebugLevel: {First: 10},
				zapcore.InfoLevel:  {First: 100, Thereafter: 10},
				zapcore.WarnLevel:  {First: 100, Thereafter: 100},
			},
		},
		Caller:     CallerConfig{Enabled: true, Skip: 2},
		Stacktrace: StacktraceConfig{Level: zapcore.ErrorLevel},
		Fields:     map[string]string{"service": "youtrackd"},
		Redaction: RedactionConfig{
			Enabled: true,
			Fields: []string{
				"password", "secret", "token", "api_key",
				"authorization", "bearer", "credential", "private_key",
			},
			Patterns: []string{
				`(?i)bearer\s+\S+`,
				`(?i)api[_-]?key[=:]\s*\S+`,
				// YouTrack permanent tokens
				`(?i)\bperm[-:]\S+`,
			},
		},
	}
}

// Validate reports the first setting that would produce a broken or silent
// logger.
func (c *Config) Validate() error {
	if c.Format != "json" && c.Format != "console" {
		return fmt.Errorf("unknown log format %q (want json or console)", c.Format)
	}
	if !c.Output.Stderr && !c.Output.OTEL {
		return fmt.Errorf("no log output enabled")
	}
	if c.Sampling.Enabled {
		if c.Sampling.Tick.Duration() <= 0 {
			return fmt.Errorf("sampling tick must be positive, got %v", c.Sampling.Tick.Duration())
		}
		for lvl, b := range c.Sampling.Levels {
			if b.First < 0 || b.Thereafter < 0 {
				return fmt.Errorf("sample budget for %v must not be negative", lvl)
			}
		}
	}
	if c.Caller.Enabled && c.Caller.Skip < 0 {
		return fmt.Errorf("caller skip must not be negative, got %d", c.Caller.Skip)
	}
	if c.Redaction.Enabled {
		for _, p := range c.Redaction.Patterns {
			if len(p) > maxPatternLen {
				return fmt.Errorf("redaction pattern exceeds %d bytes: %q", maxPatternLen, p)
			}
			if _, err := regexp.Compile(p); err != nil {
				return fmt.Errorf("redaction pattern %q: %w", p, err)
			}
		}
	}
	for k, v := range c.Fields {
		if k == "" {
			return fmt.Errorf("constant field with empty key")
		}
		if v == "" {
			return fmt.Errorf("constant field %q with empty value", k)
		}
	}
	return nil
}
