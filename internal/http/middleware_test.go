package http

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestRequestID(t *testing.T) {
	t.Run("mints a uuid per request", func(t *testing.T) {
		s, tl := newTestServer(t, okProbe)

		rec := get(s, "/health")

		id := rec.Header().Get(echo.HeaderXRequestID)
		require.NoError(t, uuid.Validate(id))
		tl.AssertField(t, "http request", "request.id", id)
	})

	t.Run("indexes canonical inbound ids", func(t *testing.T) {
		s, tl := newTestServer(t, okProbe)
		inbound := uuid.NewString()

		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		req.Header.Set(echo.HeaderXRequestID, inbound)
		rec := httptest.NewRecorder()
		s.echo.ServeHTTP(rec, req)

		assert.Equal(t, inbound, rec.Header().Get(echo.HeaderXRequestID))
		tl.AssertField(t, "http request", "request.id", inbound)
	})

	t.Run("echoes but does not index arbitrary ids", func(t *testing.T) {
		s, tl := newTestServer(t, okProbe)

		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		req.Header.Set(echo.HeaderXRequestID, "curl did this")
		rec := httptest.NewRecorder()

		assert.NotPanics(t, func() { s.echo.ServeHTTP(rec, req) })

		assert.Equal(t, "curl did this", rec.Header().Get(echo.HeaderXRequestID))
		entries := tl.FilterMessage("http request").All()
		require.Len(t, entries, 1)
		assert.NotContains(t, entries[0].ContextMap(), "request.id")
	})

	t.Run("braced uuids are echoed, not indexed", func(t *testing.T) {
		// uuid.Validate accepts this form, the log tag rules do not.
		s, tl := newTestServer(t, okProbe)
		inbound := "{" + uuid.NewString() + "}"

		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		req.Header.Set(echo.HeaderXRequestID, inbound)
		rec := httptest.NewRecorder()

		assert.NotPanics(t, func() { s.echo.ServeHTTP(rec, req) })

		assert.Equal(t, inbound, rec.Header().Get(echo.HeaderXRequestID))
		entries := tl.FilterMessage("http request").All()
		require.Len(t, entries, 1)
		assert.NotContains(t, entries[0].ContextMap(), "request.id")
	})
}

func TestAccessLog(t *testing.T) {
	s, tl := newTestServer(t, okProbe)

	get(s, "/health")

	tl.AssertLogged(t, zapcore.InfoLevel, "http request")
	tl.AssertField(t, "http request", "method", http.MethodGet)
	tl.AssertField(t, "http request", "uri", "/health")
	tl.AssertField(t, "http request", "status", int64(http.StatusOK))
}

func TestAccessLog_OneLinePerRequest(t *testing.T) {
	s, tl := newTestServer(t, okProbe)

	get(s, "/health")
	get(s, "/readyz")

	assert.Equal(t, 2, tl.FilterMessage("http request").Len())
}
