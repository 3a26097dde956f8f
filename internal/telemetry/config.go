// Package telemetry wires OpenTelemetry tracing, metrics, and log export
// for youtrackd.
package telemetry

import (
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/trackforge/youtrackd/internal/config"
)

// OTLP transport protocols.
const (
	protoGRPC = "grpc"
	protoHTTP = "http/protobuf"
)

// Config describes how telemetry reaches an OTLP collector. It is assembled
// from the application's OTEL settings via FromOtelConfig rather than decoded
// from a file, so version and defaults live here instead of in the loader.
type Config struct {
	Enabled bool

	// Endpoint is the collector address as host:port. A scheme prefix is
	// tolerated and stripped for the HTTP exporters.
	Endpoint string
	// Protocol selects the OTLP transport, "grpc" or "http/protobuf".
	// Empty means grpc.
	Protocol string

	ServiceName    string
	ServiceVersion string

	// Insecure disables TLS. Only permitted for loopback collectors.
	Insecure bool
	// TLSSkipVerify accepts any collector certificate. Meant for internal CAs.
	TLSSkipVerify bool

	// SampleRate is the trace sampling ratio in [0, 1]. 1 keeps every trace.
	// Parent decisions always win so propagated contexts stay intact.
	SampleRate float64

	Metrics  MetricsConfig
	Shutdown ShutdownConfig
}

// MetricsConfig controls the metric export pipeline.
type MetricsConfig struct {
	Enabled        bool
	ExportInterval config.Duration
}

// ShutdownConfig bounds how long a graceful shutdown may flush telemetry.
type ShutdownConfig struct {
	Timeout config.Duration
}

// NewDefaultConfig returns defaults suitable for a local collector.
// Telemetry starts disabled; most installs have no collector running, and a
// stdio MCP server must never block on one.
func NewDefaultConfig() *Config {
	return &Config{
		Enabled:        false,
		Endpoint:       "localhost:4317",
		Protocol:       protoGRPC,
		ServiceName:    "youtrackd",
		ServiceVersion: "0.1.0",
		Insecure:       true,
		SampleRate:     1.0,
		Metrics: MetricsConfig{
			Enabled:        true,
			ExportInterval: config.Duration(15 * time.Second),
		},
		Shutdown: ShutdownConfig{
			Timeout: config.Duration(5 * time.Second),
		},
	}
}

// FromOtelConfig builds a telemetry Config from the application's OTEL
// settings. Version comes from the build, not the environment. Fields the
// application leaves empty keep their defaults.
func FromOtelConfig(otel config.OtelConfig, version string) *Config {
	cfg := NewDefaultConfig()
	cfg.Enabled = otel.Enable.Bool()
	cfg.Insecure = otel.Insecure.Bool()
	cfg.TLSSkipVerify = otel.TLSSkipVerify.Bool()
	if otel.ServiceName != "" {
		cfg.ServiceName = otel.ServiceName
	}
	if otel.Endpoint != "" {
		cfg.Endpoint = otel.Endpoint
	}
	if otel.Protocol != "" {
		cfg.Protocol = otel.Protocol
	}
	if version != "" {
		cfg.ServiceVersion = version
	}
	return cfg
}

// Validate reports configuration errors. A disabled config is always valid.
func (c *Config) Validate() error {
	if !c.Enabled {
		return nil
	}

	if c.Endpoint == "" {
		return fmt.Errorf("collector endpoint is required")
	}
	if c.ServiceName == "" {
		return fmt.Errorf("service name is required")
	}
	if c.ServiceVersion == "" {
		return fmt.Errorf("service version is required")
	}
	switch c.Protocol {
	case "", protoGRPC, protoHTTP:
	default:
		return fmt.Errorf("unsupported OTLP protocol %q", c.Protocol)
	}
	if c.Insecure && !c.isLoopbackEndpoint() {
		return fmt.Errorf("insecure export to remote endpoint %q; enable TLS or use a loopback collector", c.Endpoint)
	}
	if c.SampleRate < 0 || c.SampleRate > 1 {
		return fmt.Errorf("sample rate %v outside [0, 1]", c.SampleRate)
	}
	if c.Metrics.Enabled && c.Metrics.ExportInterval.Duration() <= 0 {
		return fmt.Errorf("metrics export interval must be positive")
	}
	if c.Shutdown.Timeout.Duration() <= 0 {
		return fmt.Errorf("shutdown timeout must be positive")
	}
	return nil
}

// proto returns the effective OTLP transport.
func (c *Config) proto() string {
	if c.Protocol == "" {
		return protoGRPC
	}
	return c.Protocol
}

// isLoopbackEndpoint reports whether the collector endpoint points at this
// host. Plaintext export is only allowed for such endpoints, so a token
// accidentally logged into a span can never leave the machine unencrypted.
func (c *Config) isLoopbackEndpoint() bool {
	host, _, err := net.SplitHostPort(c.Endpoint)
	if err != nil {
		// No port, or an unbracketed IPv6 literal. Treat the whole
		// endpoint as the host.
		host = c.Endpoint
	}
	if host == "localhost" {
		return true
	}
	// Unbracketed "::1:4317" survives ParseIP as the address 0:...:1:4317,
	// so read a "::1:" prefix as ::1 with a port before parsing.
	if host == "::1" || strings.HasPrefix(host, "::1:") {
		return true
	}
	if ip := net.ParseIP(host); ip != nil {
		return ip.IsLoopback()
	}
	return false
}
