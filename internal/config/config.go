// Package config provides configuration loading for youtrackd.
//
// Configuration is loaded from environment variables with sensible defaults,
// optionally layered over a YAML file. The env surface keeps the YOUTRACK_*
// names existing deployments already export.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// Config holds the complete youtrackd configuration.
type Config struct {
	YouTrack YouTrackConfig `koanf:"youtrack"`
	MCP      MCPConfig      `koanf:"mcp"`
	Server   ServerConfig   `koanf:"server"`
	Journal  JournalConfig  `koanf:"journal"`
	Otel     OtelConfig     `koanf:"otel"`
}

// YouTrackConfig holds connection settings for the YouTrack REST API.
type YouTrackConfig struct {
	URL               string   `koanf:"url" validate:"omitempty,http_url"`
	APIToken          Secret   `koanf:"api_token"`
	VerifySSL         Truthy   `koanf:"verify_ssl"`
	Cloud             Truthy   `koanf:"cloud"`
	Workspace         string   `koanf:"workspace"`
	MaxRetries        int      `koanf:"max_retries" validate:"min=0"`
	RetryDelay        Duration `koanf:"retry_delay"`
	RateLimit         int      `koanf:"rate_limit" validate:"min=0"`
	DefaultProjectKey string   `koanf:"default_project_key"`
}

// MCPConfig holds MCP server identity and logging settings.
type MCPConfig struct {
	ServerName        string `koanf:"server_name" validate:"required"`
	ServerDescription string `koanf:"server_description"`
	Debug             Truthy `koanf:"debug"`
}

// ServerConfig holds the optional HTTP sidecar configuration.
type ServerConfig struct {
	Host            string   `koanf:"host"`
	Port            int      `koanf:"port" validate:"min=1,max=65535"`
	ShutdownTimeout Duration `koanf:"shutdown_timeout"`
}

// JournalConfig holds the local work-item journal configuration.
type JournalConfig struct {
	Enabled Truthy `koanf:"enabled"`
	Path    string `koanf:"path"`
}

// OtelConfig holds OpenTelemetry exporter configuration.
type OtelConfig struct {
	Enable        Truthy `koanf:"enable"`
	ServiceName   string `koanf:"service_name"`
	Endpoint      string `koanf:"endpoint"`
	Protocol      string `koanf:"protocol" validate:"omitempty,oneof=grpc http/protobuf"`
	Insecure      Truthy `koanf:"insecure"`
	TLSSkipVerify Truthy `koanf:"tls_skip_verify"`
}

// Load loads configuration from environment variables with defaults.
//
// Environment variables:
//   - YOUTRACK_URL: Base URL of a self-hosted instance (default: empty)
//   - YOUTRACK_API_TOKEN: Permanent API token (required)
//   - YOUTRACK_VERIFY_SSL: Verify TLS certificates (default: true)
//   - YOUTRACK_CLOUD: Cloud-instance mode (default: false)
//   - YOUTRACK_WORKSPACE: Cloud workspace name (default: empty)
//   - YOUTRACK_MAX_RETRIES: API retry attempts (default: 3)
//   - YOUTRACK_RETRY_DELAY: Base backoff delay (default: 1s)
//   - YOUTRACK_RATE_LIMIT: Client-side requests per second, 0 disables (default: 10)
//   - YOUTRACK_DEFAULT_PROJECT_KEY: Project key for bare issue numbers (default: AGI)
//   - MCP_SERVER_NAME: Name reported to MCP clients (default: youtrack-mcp)
//   - MCP_SERVER_DESCRIPTION: Human-readable server description
//   - MCP_DEBUG: Debug logging (default: false)
//   - SERVER_HOST: HTTP sidecar bind host (default: localhost)
//   - SERVER_PORT: HTTP sidecar port (default: 9090)
//   - SERVER_SHUTDOWN_TIMEOUT: Graceful shutdown budget (default: 10s)
//   - JOURNAL_ENABLED: Record created work items locally (default: false)
//   - JOURNAL_PATH: Journal database path (default: ~/.youtrackd/journal.db)
//   - OTEL_ENABLE: Enable OpenTelemetry (default: false)
//   - OTEL_SERVICE_NAME: Service name for traces (default: youtrackd)
//   - OTEL_ENDPOINT: OTLP endpoint (default: localhost:4317)
//   - OTEL_PROTOCOL: OTLP protocol, grpc or http/protobuf (default: grpc)
//   - OTEL_INSECURE: Disable TLS for the OTLP exporter (default: false)
//   - OTEL_TLS_SKIP_VERIFY: Accept any OTLP collector certificate (default: false)
//
// Example:
//
//	cfg := config.Load()
//	fmt.Println("Default project:", cfg.YouTrack.DefaultProjectKey)
func Load() *Config {
	cfg := &Config{
		YouTrack: YouTrackConfig{
			URL:               getEnvString("YOUTRACK_URL", ""),
			APIToken:          Secret(getEnvString("YOUTRACK_API_TOKEN", "")),
			VerifySSL:         Truthy(getEnvBool("YOUTRACK_VERIFY_SSL", true)),
			Cloud:             Truthy(getEnvBool("YOUTRACK_CLOUD", false)),
			Workspace:         getEnvString("YOUTRACK_WORKSPACE", ""),
			MaxRetries:        getEnvInt("YOUTRACK_MAX_RETRIES", 3),
			RetryDelay:        Duration(getEnvDuration("YOUTRACK_RETRY_DELAY", time.Second)),
			RateLimit:         getEnvInt("YOUTRACK_RATE_LIMIT", 10),
			DefaultProjectKey: getEnvString("YOUTRACK_DEFAULT_PROJECT_KEY", "AGI"),
		},
		MCP: MCPConfig{
			ServerName:        getEnvString("MCP_SERVER_NAME", "youtrack-mcp"),
			ServerDescription: getEnvString("MCP_SERVER_DESCRIPTION", "YouTrack MCP Server"),
			Debug:             Truthy(getEnvBool("MCP_DEBUG", false)),
		},
		Server: ServerConfig{
			Host:            getEnvString("SERVER_HOST", "localhost"),
			Port:            getEnvInt("SERVER_PORT", 9090),
			ShutdownTimeout: Duration(getEnvDuration("SERVER_SHUTDOWN_TIMEOUT", 10*time.Second)),
		},
		Journal: JournalConfig{
			Enabled: Truthy(getEnvBool("JOURNAL_ENABLED", false)),
			Path:    getEnvString("JOURNAL_PATH", "~/.youtrackd/journal.db"),
		},
		Otel: OtelConfig{
			Enable:        Truthy(getEnvBool("OTEL_ENABLE", false)),
			ServiceName:   getEnvString("OTEL_SERVICE_NAME", "youtrackd"),
			Endpoint:      getEnvString("OTEL_ENDPOINT", "localhost:4317"),
			Protocol:      getEnvString("OTEL_PROTOCOL", "grpc"),
			Insecure:      Truthy(getEnvBool("OTEL_INSECURE", false)),
			TLSSkipVerify: Truthy(getEnvBool("OTEL_TLS_SKIP_VERIFY", false)),
		},
	}

	cfg.normalize()
	return cfg
}

// normalize cleans values that tolerate sloppy input.
func (c *Config) normalize() {
	c.YouTrack.URL = strings.TrimRight(strings.TrimSpace(c.YouTrack.URL), "/")
	c.YouTrack.Workspace = strings.TrimSpace(c.YouTrack.Workspace)
}

// Validate validates the configuration.
//
// Returns an error if:
//   - The API token is missing
//   - No URL is configured for a self-hosted instance
//   - Field-level constraints fail (URL scheme, port range, retry counts)
func (c *Config) Validate() error {
	if !c.YouTrack.APIToken.IsSet() {
		return errors.New("YouTrack API token is required")
	}
	if !c.YouTrack.Cloud.Bool() && c.YouTrack.URL == "" {
		return errors.New("YouTrack URL is required for self-hosted instances")
	}

	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// BaseURL returns the REST API base URL for the configured instance.
//
// An explicit URL always wins and gets "/api" appended. Cloud instances
// without a URL derive the workspace from the token: "perm:user.workspace.id"
// tokens carry it in the second segment, "perm-" tokens need the workspace
// configured separately.
func (c *Config) BaseURL() (string, error) {
	if url := strings.TrimRight(c.YouTrack.URL, "/"); url != "" {
		return url + "/api", nil
	}

	token := c.YouTrack.APIToken.Value()
	if strings.HasPrefix(token, "perm:") {
		// perm:username.workspace.12345
		if parts := strings.Split(token, "."); len(parts) >= 2 && parts[1] != "" {
			return fmt.Sprintf("https://%s.youtrack.cloud/api", parts[1]), nil
		}
	}
	if strings.HasPrefix(token, "perm-") && c.YouTrack.Workspace != "" {
		return fmt.Sprintf("https://%s.youtrack.cloud/api", c.YouTrack.Workspace), nil
	}

	return "", errors.New("could not determine YouTrack Cloud URL: set YOUTRACK_URL or YOUTRACK_WORKSPACE")
}

// IsCloud reports whether the configuration targets a YouTrack Cloud
// instance. An explicit cloud flag or a missing URL both count.
func (c *Config) IsCloud() bool {
	return c.YouTrack.Cloud.Bool() || c.YouTrack.URL == ""
}

// Helper functions for environment variable parsing

func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return isTruthy(value)
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		parsed, err := time.ParseDuration(value)
		if err == nil && parsed >= 0 {
			return parsed
		}
	}
	return defaultValue
}
