package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// serverMetrics instruments the sidecar routes. Prometheus picks the
// observations up through the bridge behind /metrics.
type serverMetrics struct {
	requests metric.Int64Counter
	latency  metric.Float64Histogram
	size     metric.Int64Histogram
	inflight metric.Int64UpDownCounter
}

// newServerMetrics registers the instruments on meter. Registration only
// fails on malformed instrument definitions, so callers treat an error as
// a reason to skip the middleware, not to abort startup.
func newServerMetrics(meter metric.Meter) (*serverMetrics, error) {
	m := &serverMetrics{}
	var errs []error
	var err error

	m.requests, err = meter.Int64Counter("youtrackd.http.requests_total",
		metric.WithDescription("Completed sidecar requests by method, endpoint, and status code."),
		metric.WithUnit("{request}"),
	)
	errs = append(errs, err)

	m.latency, err = meter.Float64Histogram("youtrackd.http.request_duration_seconds",
		metric.WithDescription("Wall time per request. /readyz includes the YouTrack round trip on cache misses."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.001, 0.005, 0.025, 0.1, 0.5, 1, 2.5, 5, 10),
	)
	errs = append(errs, err)

	m.size, err = meter.Int64Histogram("youtrackd.http.response_size_bytes",
		metric.WithDescription("Response body size. The /metrics exposition dominates the upper buckets."),
		metric.WithUnit("By"),
		metric.WithExplicitBucketBoundaries(256, 1024, 4096, 16384, 65536, 262144),
	)
	errs = append(errs, err)

	m.inflight, err = meter.Int64UpDownCounter("youtrackd.http.active_requests",
		metric.WithDescription("Requests currently being served."),
		metric.WithUnit("{request}"),
	)
	errs = append(errs, err)

	return m, errors.Join(errs...)
}

// middleware records one observation set per request. The in-flight pair
// sits in a defer so a panicking handler cannot leak the gauge.
func (m *serverMetrics) middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := c.Request().Context()
			start := time.Now()

			m.inflight.Add(ctx, 1)
			defer m.inflight.Add(ctx, -1)

			err := next(c)

			attrs := metric.WithAttributes(
				attribute.String("method", c.Request().Method),
				attribute.String("endpoint", endpointLabel(c)),
				attribute.Int("status", c.Response().Status),
			)
			m.requests.Add(ctx, 1, attrs)
			m.latency.Record(ctx, time.Since(start).Seconds(), attrs)
			m.size.Record(ctx, c.Response().Size, attrs)
			return err
		}
	}
}

// endpointLabel keeps the endpoint label bounded. Unmatched paths share one
// value so a port scan cannot mint new series. None of the real routes
// return 404 themselves.
func endpointLabel(c echo.Context) string {
	if c.Response().Status == http.StatusNotFound {
		return "unmatched"
	}
	if p := c.Path(); p != "" {
		return p
	}
	return "unmatched"
}
