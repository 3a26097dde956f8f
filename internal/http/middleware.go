package http

import (
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/trackforge/youtrackd/internal/logging"
)

// requestID assigns every request a UUID and tags the request context so
// later log lines carry request.id. Inbound X-Request-ID values are echoed
// back on the response, but the header is client-controlled, so only the
// canonical 36-byte UUID form is indexed. uuid.Validate alone also admits
// braced and urn forms, whose punctuation the log tag rules reject.
func requestID() echo.MiddlewareFunc {
	return middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: uuid.NewString,
		RequestIDHandler: func(c echo.Context, id string) {
			if len(id) != 36 || uuid.Validate(id) != nil {
				return
			}
			ctx := logging.WithRequestID(c.Request().Context(), id)
			c.SetRequest(c.Request().WithContext(ctx))
		},
	})
}

// accessLog writes one line per completed request.
func accessLog(log *logging.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)

			req := c.Request()
			log.Info(req.Context(), "http request",
				zap.String("method", req.Method),
				zap.String("uri", req.RequestURI),
				zap.Int("status", c.Response().Status),
				zap.Duration("duration", time.Since(start)),
			)
			return err
		}
	}
}
