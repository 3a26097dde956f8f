package telemetry

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/log"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	oteltrace "go.opentelemetry.io/otel/trace"
)

// Instrumentation scope names for youtrackd subsystems. Tracers and meters
// across the codebase use these so dashboards can group by origin.
const (
	ScopeMCP      = "youtrackd.mcp"
	ScopeYouTrack = "youtrackd.youtrack"
	ScopeHTTP     = "youtrackd.http"
)

// Telemetry owns the OpenTelemetry providers for the server process.
//
// Telemetry never takes the server down. A nil, disabled, or degraded
// instance hands out no-op tracers and meters, so call sites stay
// unconditional. Exporter failures during startup record a degradation
// reason instead of propagating.
type Telemetry struct {
	config *Config

	traces  *sdktrace.TracerProvider
	metrics *sdkmetric.MeterProvider
	logs    *sdklog.LoggerProvider

	up     atomic.Bool
	reason atomic.Value // string set when the instance degrades
}

// New validates cfg, builds the OTLP providers, and installs them as the
// process-global OTel providers. With telemetry disabled it returns a
// working no-op instance.
func New(ctx context.Context, cfg *Config) (*Telemetry, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid telemetry config: %w", err)
	}

	t := &Telemetry{config: cfg}
	t.up.Store(true)

	if cfg.Enabled {
		t.connect(ctx)
	}
	return t, nil
}

// connect builds and installs the providers. Any failure leaves the
// instance degraded with a recorded reason.
func (t *Telemetry) connect(ctx context.Context) {
	res, err := newResource(t.config)
	if err != nil {
		t.degrade("building resource: %v", err)
		return
	}

	if tp, err := newTracerProvider(ctx, t.config, res); err != nil {
		t.degrade("trace provider: %v", err)
	} else {
		t.traces = tp
		otel.SetTracerProvider(tp)
	}

	if mp, err := newMeterProvider(ctx, t.config, res); err != nil {
		t.degrade("meter provider: %v", err)
	} else if mp != nil {
		t.metrics = mp
		otel.SetMeterProvider(mp)
	}

	if lp, err := newLoggerProvider(ctx, t.config, res); err != nil {
		t.degrade("logger provider: %v", err)
	} else {
		t.logs = lp
	}

	// W3C trace context and baggage over the wire.
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
}

// Tracer returns a tracer in the given instrumentation scope. Falls back to
// the global provider, which is a no-op unless something else installed one.
func (t *Telemetry) Tracer(name string, opts ...oteltrace.TracerOption) oteltrace.Tracer {
	if t == nil || t.traces == nil {
		return otel.GetTracerProvider().Tracer(name, opts...)
	}
	return t.traces.Tracer(name, opts...)
}

// Meter returns a meter in the given instrumentation scope, with the same
// fallback behavior as Tracer.
func (t *Telemetry) Meter(name string, opts ...metric.MeterOption) metric.Meter {
	if t == nil || t.metrics == nil {
		return otel.GetMeterProvider().Meter(name, opts...)
	}
	return t.metrics.Meter(name, opts...)
}

// LoggerProvider exposes the OTLP log provider for the otelzap bridge.
// Nil when telemetry is disabled or the log exporter failed to start.
func (t *Telemetry) LoggerProvider() log.LoggerProvider {
	if t == nil || t.logs == nil {
		return nil
	}
	return t.logs
}

// Shutdown flushes and stops every provider. When ctx carries no deadline
// the configured shutdown timeout applies.
func (t *Telemetry) Shutdown(ctx context.Context) error {
	if t == nil {
		return nil
	}
	if _, ok := ctx.Deadline(); !ok && t.config != nil {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.config.Shutdown.Timeout.Duration())
		defer cancel()
	}

	defer t.up.Store(false)

	var errs []error
	if t.traces != nil {
		if err := t.traces.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("traces: %w", err))
		}
	}
	if t.metrics != nil {
		if err := t.metrics.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("metrics: %w", err))
		}
	}
	if t.logs != nil {
		if err := t.logs.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("logs: %w", err))
		}
	}
	return errors.Join(errs...)
}

// ForceFlush pushes all buffered telemetry to the collector immediately.
func (t *Telemetry) ForceFlush(ctx context.Context) error {
	if t == nil {
		return nil
	}

	var errs []error
	if t.traces != nil {
		if err := t.traces.ForceFlush(ctx); err != nil {
			errs = append(errs, fmt.Errorf("traces: %w", err))
		}
	}
	if t.metrics != nil {
		if err := t.metrics.ForceFlush(ctx); err != nil {
			errs = append(errs, fmt.Errorf("metrics: %w", err))
		}
	}
	if t.logs != nil {
		if err := t.logs.ForceFlush(ctx); err != nil {
			errs = append(errs, fmt.Errorf("logs: %w", err))
		}
	}
	return errors.Join(errs...)
}

// HealthStatus reports whether telemetry is running and why it degraded.
type HealthStatus struct {
	Healthy  bool
	Degraded bool
	Reason   string
}

// Health reports the instance state. A nil instance is degraded.
func (t *Telemetry) Health() HealthStatus {
	if t == nil {
		return HealthStatus{Degraded: true, Reason: "telemetry not initialized"}
	}
	reason, _ := t.reason.Load().(string)
	return HealthStatus{
		Healthy:  t.up.Load(),
		Degraded: reason != "",
		Reason:   reason,
	}
}

// IsEnabled reports whether telemetry was configured on and is still up.
func (t *Telemetry) IsEnabled() bool {
	return t != nil && t.config != nil && t.config.Enabled && t.up.Load()
}

// degrade records why part of the pipeline is missing. Reasons accumulate
// so a trace failure does not hide a later metric failure.
func (t *Telemetry) degrade(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	if prev, _ := t.reason.Load().(string); prev != "" {
		msg = prev + "; " + msg
	}
	t.reason.Store(msg)
}
