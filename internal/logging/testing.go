package logging

import (
	"reflect"
	"regexp"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// TestLogger records entries in memory for assertions. It observes at
// TraceLevel with no sampling or redaction so tests see exactly what was
// logged; encoder redaction is covered by RedactingEncoder's own tests.
type TestLogger struct {
	*Logger
	logs *observer.ObservedLogs
}

// NewTestLogger returns a logger whose output is captured, not written.
func NewTestLogger() *TestLogger {
	core, logs := observer.New(TraceLevel)
	return &TestLogger{
		Logger: &Logger{base: zap.New(core), cfg: NewDefaultConfig()},
		logs:   logs,
	}
}

// All returns every recorded entry.
func (t *TestLogger) All() []observer.LoggedEntry {
	return t.logs.All()
}

// FilterMessage returns the recorded entries whose message is exactly msg.
func (t *TestLogger) FilterMessage(msg string) *observer.ObservedLogs {
	return t.logs.FilterMessage(msg)
}

// Reset drops everything recorded so far.
func (t *TestLogger) Reset() {
	t.logs.TakeAll()
}

// AssertLogged fails tb unless an entry at lvl contains fragment.
func (t *TestLogger) AssertLogged(tb testing.TB, lvl zapcore.Level, fragment string) {
	tb.Helper()
	for _, e := range t.logs.All() {
		if e.Level == lvl && strings.Contains(e.Message, fragment) {
			return
		}
	}
	tb.Errorf("no %v entry containing %q; recorded: %+v", lvl, fragment, t.logs.All())
}

// AssertNotLogged fails tb if an entry at lvl contains fragment.
func (t *TestLogger) AssertNotLogged(tb testing.TB, lvl zapcore.Level, fragment string) {
	tb.Helper()
	for _, e := range t.logs.All() {
		if e.Level == lvl && strings.Contains(e.Message, fragment) {
			tb.Errorf("unexpected %v entry containing %q", lvl, fragment)
		}
	}
}

// AssertField fails tb unless an entry with message msg carries key=want.
// Fields are compared through zap's map normalization, so numeric values
// arrive as int64 or float64.
func (t *TestLogger) AssertField(tb testing.TB, msg, key string, want any) {
	tb.Helper()
	for _, e := range t.logs.FilterMessage(msg).All() {
		if got, ok := e.ContextMap()[key]; ok && reflect.DeepEqual(got, want) {
			return
		}
	}
	tb.Errorf("no field %s=%v on message %q", key, want, msg)
}

// AssertNoSecrets fails tb if any recorded entry leaks a value the default
// redaction rules would have caught. TestLogger bypasses the encoder, so
// this is how tests prove call sites used the redaction helpers.
func (t *TestLogger) AssertNoSecrets(tb testing.TB) {
	tb.Helper()
	rules := NewDefaultConfig().Redaction
	scrub := make([]*regexp.Regexp, 0, len(rules.Patterns))
	for _, p := range rules.Patterns {
		scrub = append(scrub, regexp.MustCompile(p))
	}
	for _, e := range t.logs.All() {
		for _, re := range scrub {
			if re.MatchString(e.Message) {
				tb.Errorf("token shape in message %q", e.Message)
			}
		}
		for _, f := range e.Context {
			if f.Type != zapcore.StringType {
				continue
			}
			for _, name := range rules.Fields {
				if strings.Contains(strings.ToLower(f.Key), name) &&
					f.String != "" && !strings.Contains(f.String, "[REDACTED") {
					tb.Errorf("field %q carries an unredacted secret: %q", f.Key, f.String)
				}
			}
			for _, re := range scrub {
				if re.MatchString(f.String) {
					tb.Errorf("token shape in field %q: %q", f.Key, f.String)
				}
			}
		}
	}
}

// AssertTraceCorrelation fails tb unless the entry with message msg carries
// a trace_id field.
func (t *TestLogger) AssertTraceCorrelation(tb testing.TB, msg string) {
	tb.Helper()
	for _, e := range t.logs.FilterMessage(msg).All() {
		if _, ok := e.ContextMap()["trace_id"]; ok {
			return
		}
	}
	tb.Errorf("message %q has no trace_id", msg)
}
