package logging

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trackforge/youtrackd/internal/config"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// redactingPipeline builds a real zap logger whose JSON output lands in the
// returned buffer, with redaction rules applied at the encoder.
func redactingPipeline(t *testing.T, cfg RedactionConfig) (*zap.Logger, *bytes.Buffer) {
	t.Helper()
	enc, err := NewRedactingEncoder(newEncoder("json"), cfg)
	require.NoError(t, err)
	var buf bytes.Buffer
	return zap.New(zapcore.NewCore(enc, zapcore.AddSync(&buf), TraceLevel)), &buf
}

func TestSecret(t *testing.T) {
	m := fieldMap([]zap.Field{Secret("token", config.Secret("perm-abcdef"))})
	assert.Equal(t, "[REDACTED:11]", m["token"])

	m = fieldMap([]zap.Field{Secret("token", config.Secret(""))})
	assert.Equal(t, "[REDACTED:0]", m["token"])
}

func TestRedactedString(t *testing.T) {
	m := fieldMap([]zap.Field{RedactedString("authorization", "Bearer tok")})
	assert.Equal(t, "[REDACTED:10]", m["authorization"])
}

func TestNewRedactingEncoder_DisabledPassThrough(t *testing.T) {
	enc, err := NewRedactingEncoder(newEncoder("json"), RedactionConfig{})
	require.NoError(t, err)
	_, wrapped := enc.(*RedactingEncoder)
	assert.False(t, wrapped, "disabled redaction should not wrap the encoder")
}

func TestNewRedactingEncoder_BadPattern(t *testing.T) {
	_, err := NewRedactingEncoder(newEncoder("json"), RedactionConfig{
		Enabled:  true,
		Patterns: []string{`(unclosed`},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redaction pattern")
}

func TestNewRedactingEncoder_OversizedPattern(t *testing.T) {
	_, err := NewRedactingEncoder(newEncoder("json"), RedactionConfig{
		Enabled:  true,
		Patterns: []string{strings.Repeat("a", maxPatternLen+1)},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exceeds")
}

func TestRedactingEncoder_DeniedKey(t *testing.T) {
	logger, buf := redactingPipeline(t, NewDefaultConfig().Redaction)

	logger.Info("login attempt", zap.String("password", "hunter2"))

	out := buf.String()
	assert.Contains(t, out, `"password":"[REDACTED]"`)
	assert.NotContains(t, out, "hunter2")
}

func TestRedactingEncoder_DeniedKeyCaseInsensitive(t *testing.T) {
	logger, buf := redactingPipeline(t, NewDefaultConfig().Redaction)

	logger.Info("headers", zap.String("Authorization", "Basic Zm9vOmJhcg=="))

	out := buf.String()
	assert.Contains(t, out, `"Authorization":"[REDACTED]"`)
	assert.NotContains(t, out, "Zm9v")
}

func TestRedactingEncoder_ScrubKeepsSurroundings(t *testing.T) {
	logger, buf := redactingPipeline(t, NewDefaultConfig().Redaction)

	logger.Info("request rejected",
		zap.String("detail", "request with Bearer abc123 rejected by proxy"))

	out := buf.String()
	assert.Contains(t, out, "request with [REDACTED] rejected by proxy")
	assert.NotContains(t, out, "abc123")
}

func TestRedactingEncoder_ScrubPermToken(t *testing.T) {
	logger, buf := redactingPipeline(t, NewDefaultConfig().Redaction)

	logger.Info("auth probe",
		zap.String("url", "https://yt.example.com/api?auth=perm-AbC.12"))

	out := buf.String()
	assert.Contains(t, out, "https://yt.example.com/api?auth=[REDACTED]")
	assert.NotContains(t, out, "perm-AbC")
}

func TestRedactingEncoder_ScrubMessage(t *testing.T) {
	logger, buf := redactingPipeline(t, NewDefaultConfig().Redaction)

	logger.Warn("retry after 401 with Bearer tok123")

	assert.Contains(t, buf.String(), "retry after 401 with [REDACTED]")
	assert.NotContains(t, buf.String(), "tok123")
}

func TestRedactingEncoder_WithFields(t *testing.T) {
	logger, buf := redactingPipeline(t, NewDefaultConfig().Redaction)

	// Fields attached via With travel through Clone; the rules must
	// survive the copy.
	logger.With(zap.String("api_key", "k-123")).Info("boot")

	out := buf.String()
	assert.Contains(t, out, `"api_key":"[REDACTED]"`)
	assert.NotContains(t, out, "k-123")
}

func TestRedactingEncoder_DeniedCompositeKinds(t *testing.T) {
	logger, buf := redactingPipeline(t, NewDefaultConfig().Redaction)

	logger.Info("composite",
		zap.ByteString("token", []byte("raw-bytes")),
		zap.Strings("credential", []string{"a", "b"}),
		zap.Any("private_key", map[string]string{"pem": "MII..."}),
		zap.Object("secret", zapcore.ObjectMarshalerFunc(func(e zapcore.ObjectEncoder) error {
			e.AddString("inner", "v")
			return nil
		})),
	)

	out := buf.String()
	assert.NotContains(t, out, "raw-bytes")
	assert.NotContains(t, out, "MII")
	assert.NotContains(t, out, `"inner"`)
	assert.Equal(t, 4, strings.Count(out, "[REDACTED]"))
}

func TestRedactingEncoder_CleanValuesUntouched(t *testing.T) {
	logger, buf := redactingPipeline(t, NewDefaultConfig().Redaction)

	logger.Info("issue updated",
		zap.String("issue", "AGI-123"),
		zap.String("summary", "permissions dialog truncates long names"),
		zap.Int("attempt", 2),
	)

	out := buf.String()
	assert.Contains(t, out, `"issue":"AGI-123"`)
	assert.Contains(t, out, "permissions dialog truncates long names")
	assert.Contains(t, out, `"attempt":2`)
	assert.NotContains(t, out, "[REDACTED]")
}
