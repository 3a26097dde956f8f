package logging

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/trackforge/youtrackd/internal/config"
	"go.uber.org/zap"
	"go.uber.org/zap/buffer"
	"go.uber.org/zap/zapcore"
)

const redactedValue = "[REDACTED]"

// redactedLen renders a placeholder that keeps the secret's length visible.
// Length is often enough to tell an empty token from a truncated one.
func redactedLen(n int) string {
	return fmt.Sprintf("[REDACTED:%d]", n)
}

// Secret renders a config.Secret as a length-only placeholder.
func Secret(key string, val config.Secret) zap.Field {
	return zap.String(key, redactedLen(len(val.Value())))
}

// RedactedString masks an arbitrary string while keeping its length
// visible.
func RedactedString(key, val string) zap.Field {
	return zap.String(key, redactedLen(len(val)))
}

// RedactingEncoder is the last line of defense before stderr: a deny-list
// of field names masked outright, plus a scrub of known token shapes inside
// string values. The earlier lines are config.Secret and the helpers above;
// this one catches the field somebody logged raw.
type RedactingEncoder struct {
	zapcore.Encoder
	deny  map[string]struct{}
	scrub []*regexp.Regexp
}

// NewRedactingEncoder compiles cfg into an encoder wrapper. A disabled
// config returns the base encoder untouched.
func NewRedactingEncoder(base zapcore.Encoder, cfg RedactionConfig) (zapcore.Encoder, error) {
	if !cfg.Enabled {
		return base, nil
	}
	deny := make(map[string]struct{}, len(cfg.Fields))
	for _, f := range cfg.Fields {
		deny[strings.ToLower(f)] = struct{}{}
	}
	scrub := make([]*regexp.Regexp, 0, len(cfg.Patterns))
	for _, p := range cfg.Patterns {
		if len(p) > maxPatternLen {
			return nil, fmt.Errorf("redaction pattern exceeds %d bytes: %q", maxPatternLen, p)
		}
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("redaction pattern %q: %w", p, err)
		}
		scrub = append(scrub, re)
	}
	return &RedactingEncoder{Encoder: base, deny: deny, scrub: scrub}, nil
}

func (e *RedactingEncoder) denied(key string) bool {
	_, ok := e.deny[strings.ToLower(key)]
	return ok
}

// clean replaces token-shaped spans in val, leaving the rest of the value
// readable.
func (e *RedactingEncoder) clean(val string) string {
	for _, re := range e.scrub {
		val = re.ReplaceAllString(val, redactedValue)
	}
	return val
}

// AddString masks denied keys and scrubs token shapes out of the value.
func (e *RedactingEncoder) AddString(key, val string) {
	if e.denied(key) {
		e.Encoder.AddString(key, redactedValue)
		return
	}
	e.Encoder.AddString(key, e.clean(val))
}

// AddByteString masks denied keys.
func (e *RedactingEncoder) AddByteString(key string, val []byte) {
	if e.denied(key) {
		e.Encoder.AddByteString(key, []byte(redactedValue))
		return
	}
	e.Encoder.AddByteString(key, val)
}

// AddBinary masks denied keys.
func (e *RedactingEncoder) AddBinary(key string, val []byte) {
	if e.denied(key) {
		e.Encoder.AddBinary(key, []byte(redactedValue))
		return
	}
	e.Encoder.AddBinary(key, val)
}

// AddReflected masks the whole value under a denied key. Values under other
// keys pass through unscanned; deep redaction inside arbitrary structures
// is the caller's job via zap.Object marshalers.
func (e *RedactingEncoder) AddReflected(key string, val any) error {
	if e.denied(key) {
		e.Encoder.AddString(key, redactedValue)
		return nil
	}
	return e.Encoder.AddReflected(key, val)
}

// AddArray masks the whole array under a denied key.
func (e *RedactingEncoder) AddArray(key string, arr zapcore.ArrayMarshaler) error {
	if e.denied(key) {
		e.Encoder.AddString(key, redactedValue)
		return nil
	}
	return e.Encoder.AddArray(key, arr)
}

// AddObject masks the whole object under a denied key.
func (e *RedactingEncoder) AddObject(key string, obj zapcore.ObjectMarshaler) error {
	if e.denied(key) {
		e.Encoder.AddString(key, redactedValue)
		return nil
	}
	return e.Encoder.AddObject(key, obj)
}

// Clone keeps the redaction rules attached when zap clones the encoder per
// entry.
func (e *RedactingEncoder) Clone() zapcore.Encoder {
	return &RedactingEncoder{Encoder: e.Encoder.Clone(), deny: e.deny, scrub: e.scrub}
}

// EncodeEntry routes the per-entry fields through this encoder's Add
// methods before delegating. Without the override zap hands fields straight
// to the embedded encoder and the deny-list never sees them. The message is
// scrubbed as well since token shapes show up in interpolated errors.
func (e *RedactingEncoder) EncodeEntry(ent zapcore.Entry, fields []zapcore.Field) (*buffer.Buffer, error) {
	clone := e.Clone().(*RedactingEncoder)
	for _, f := range fields {
		f.AddTo(clone)
	}
	ent.Message = e.clean(ent.Message)
	return clone.Encoder.EncodeEntry(ent, nil)
}
