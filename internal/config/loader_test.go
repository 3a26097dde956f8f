package config

import (
	"bytes"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"
)

// setupTestHome points HOME at a temp directory and clears the environment so
// ambient YOUTRACK_* variables cannot leak into assertions. Returns the fake
// home directory; the original environment is restored on cleanup.
func setupTestHome(t *testing.T) string {
	t.Helper()

	originalEnv := saveEnv()
	tmpHome := t.TempDir()

	os.Clearenv()
	os.Setenv("HOME", tmpHome)

	t.Cleanup(func() { restoreEnv(originalEnv) })

	return tmpHome
}

// writeTestConfig writes a config file into the allowed directory under home.
func writeTestConfig(t *testing.T, home, content string) string {
	t.Helper()

	configDir := filepath.Join(home, ".config", "youtrackd")
	if err := os.MkdirAll(configDir, 0700); err != nil {
		t.Fatalf("Failed to create config dir: %v", err)
	}

	configPath := filepath.Join(configDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}

	return configPath
}

// TestLoadWithFile_ValidYAML tests loading configuration from a valid YAML file.
func TestLoadWithFile_ValidYAML(t *testing.T) {
	home := setupTestHome(t)

	configPath := writeTestConfig(t, home, `youtrack:
  url: https://yaml.youtrack.example.com
  api_token: perm-yaml-token
  max_retries: 5

mcp:
  server_name: yaml-mcp

journal:
  enabled: true
`)

	cfg, err := LoadWithFile(configPath)
	if err != nil {
		t.Fatalf("LoadWithFile() error = %v, want nil", err)
	}

	// Values from YAML
	if cfg.YouTrack.URL != "https://yaml.youtrack.example.com" {
		t.Errorf("YouTrack.URL = %q, want https://yaml.youtrack.example.com", cfg.YouTrack.URL)
	}
	if cfg.YouTrack.APIToken.Value() != "perm-yaml-token" {
		t.Errorf("YouTrack.APIToken = %q, want perm-yaml-token", cfg.YouTrack.APIToken.Value())
	}
	if cfg.YouTrack.MaxRetries != 5 {
		t.Errorf("YouTrack.MaxRetries = %d, want 5", cfg.YouTrack.MaxRetries)
	}
	if cfg.MCP.ServerName != "yaml-mcp" {
		t.Errorf("MCP.ServerName = %q, want yaml-mcp", cfg.MCP.ServerName)
	}
	if !cfg.Journal.Enabled.Bool() {
		t.Error("Journal.Enabled = false, want true")
	}

	// Defaults fill the gaps
	if !cfg.YouTrack.VerifySSL.Bool() {
		t.Error("YouTrack.VerifySSL = false, want true from defaults")
	}
	if cfg.YouTrack.RateLimit != 10 {
		t.Errorf("YouTrack.RateLimit = %d, want 10 from defaults", cfg.YouTrack.RateLimit)
	}
	if cfg.Server.ShutdownTimeout.Duration() != 10*time.Second {
		t.Errorf("Server.ShutdownTimeout = %v, want 10s from defaults", cfg.Server.ShutdownTimeout.Duration())
	}
	if cfg.Otel.Protocol != "grpc" {
		t.Errorf("Otel.Protocol = %q, want grpc from defaults", cfg.Otel.Protocol)
	}
}

// TestLoadWithFile_EnvironmentOverride tests that environment variables override YAML.
func TestLoadWithFile_EnvironmentOverride(t *testing.T) {
	home := setupTestHome(t)

	configPath := writeTestConfig(t, home, `youtrack:
  url: https://yaml.youtrack.example.com
  api_token: perm-yaml-token
  max_retries: 5

mcp:
  server_name: yaml-mcp
`)

	os.Setenv("YOUTRACK_MAX_RETRIES", "9")
	os.Setenv("MCP_SERVER_NAME", "env-mcp")

	cfg, err := LoadWithFile(configPath)
	if err != nil {
		t.Fatalf("LoadWithFile() error = %v, want nil", err)
	}

	if cfg.YouTrack.MaxRetries != 9 {
		t.Errorf("YouTrack.MaxRetries = %d, want 9 (from env override)", cfg.YouTrack.MaxRetries)
	}
	if cfg.MCP.ServerName != "env-mcp" {
		t.Errorf("MCP.ServerName = %q, want env-mcp (from env override)", cfg.MCP.ServerName)
	}
	// YAML values untouched by env still win over defaults
	if cfg.YouTrack.URL != "https://yaml.youtrack.example.com" {
		t.Errorf("YouTrack.URL = %q, want YAML value", cfg.YouTrack.URL)
	}
}

// TestLoadWithFile_VerifySSLFalse tests that an explicit false overrides the
// true default from both the file and the environment layers.
func TestLoadWithFile_VerifySSLFalse(t *testing.T) {
	t.Run("from file", func(t *testing.T) {
		home := setupTestHome(t)

		configPath := writeTestConfig(t, home, `youtrack:
  url: https://yaml.youtrack.example.com
  api_token: perm-yaml-token
  verify_ssl: false
`)

		cfg, err := LoadWithFile(configPath)
		if err != nil {
			t.Fatalf("LoadWithFile() error = %v, want nil", err)
		}
		if cfg.YouTrack.VerifySSL.Bool() {
			t.Error("YouTrack.VerifySSL = true, want false from file")
		}
	})

	t.Run("from environment", func(t *testing.T) {
		home := setupTestHome(t)

		configPath := writeTestConfig(t, home, `youtrack:
  url: https://yaml.youtrack.example.com
  api_token: perm-yaml-token
`)

		os.Setenv("YOUTRACK_VERIFY_SSL", "no")

		cfg, err := LoadWithFile(configPath)
		if err != nil {
			t.Fatalf("LoadWithFile() error = %v, want nil", err)
		}
		if cfg.YouTrack.VerifySSL.Bool() {
			t.Error("YouTrack.VerifySSL = true, want false from env")
		}
	})
}

// TestLoadWithFile_MissingFile tests handling of a missing config file.
func TestLoadWithFile_MissingFile(t *testing.T) {
	home := setupTestHome(t)

	// Connection settings come from the environment instead
	os.Setenv("YOUTRACK_URL", "https://env.youtrack.example.com")
	os.Setenv("YOUTRACK_API_TOKEN", "perm-env-token")

	configPath := filepath.Join(home, ".config", "youtrackd", "config.yaml")

	cfg, err := LoadWithFile(configPath)
	if err != nil {
		t.Fatalf("LoadWithFile() should not error on missing file, got: %v", err)
	}

	if cfg.YouTrack.URL != "https://env.youtrack.example.com" {
		t.Errorf("YouTrack.URL = %q, want env value", cfg.YouTrack.URL)
	}
	if cfg.YouTrack.MaxRetries != 3 {
		t.Errorf("YouTrack.MaxRetries = %d, want 3 from defaults", cfg.YouTrack.MaxRetries)
	}
	if cfg.MCP.ServerName != "youtrack-mcp" {
		t.Errorf("MCP.ServerName = %q, want youtrack-mcp from defaults", cfg.MCP.ServerName)
	}
}

// TestLoadWithFile_MissingToken tests that validation rejects a config
// without an API token.
func TestLoadWithFile_MissingToken(t *testing.T) {
	home := setupTestHome(t)

	configPath := writeTestConfig(t, home, `youtrack:
  url: https://yaml.youtrack.example.com
`)

	_, err := LoadWithFile(configPath)
	if err == nil {
		t.Fatal("LoadWithFile() = nil error, want token validation error")
	}
	if !strings.Contains(err.Error(), "YouTrack API token is required") {
		t.Errorf("Expected token error, got: %v", err)
	}
}

// TestLoadWithFile_InvalidYAML tests handling of malformed YAML.
func TestLoadWithFile_InvalidYAML(t *testing.T) {
	home := setupTestHome(t)

	configPath := writeTestConfig(t, home, "youtrack: [unclosed\n")

	_, err := LoadWithFile(configPath)
	if err == nil {
		t.Error("LoadWithFile() should error on invalid YAML, got nil")
	}
}

// TestLoadWithFile_PathTraversal tests path traversal attack prevention.
func TestLoadWithFile_PathTraversal(t *testing.T) {
	setupTestHome(t)

	_, err := LoadWithFile("../../../../etc/passwd")
	if err == nil {
		t.Error("Expected error for path traversal, got nil")
	}
	if !strings.Contains(err.Error(), "must be in ~/.config/youtrackd/ or /etc/youtrackd/") {
		t.Errorf("Expected path validation error, got: %v", err)
	}
}

// TestLoadWithFile_InsecurePermissions tests file permission enforcement.
func TestLoadWithFile_InsecurePermissions(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("Skipping permission test on Windows")
	}

	home := setupTestHome(t)

	configDir := filepath.Join(home, ".config", "youtrackd")
	if err := os.MkdirAll(configDir, 0700); err != nil {
		t.Fatalf("Failed to create config dir: %v", err)
	}

	configPath := filepath.Join(configDir, "config.yaml")

	// Write with insecure permissions (0644 - world readable)
	yamlContent := "youtrack:\n  url: https://yaml.youtrack.example.com\n"
	if err := os.WriteFile(configPath, []byte(yamlContent), 0644); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}

	_, err := LoadWithFile(configPath)
	if err == nil {
		t.Error("Expected error for insecure permissions, got nil")
	}
	if !strings.Contains(err.Error(), "insecure") && !strings.Contains(err.Error(), "permissions") {
		t.Errorf("Expected 'insecure permissions' error, got: %v", err)
	}
}

// TestLoadWithFile_SecurePermissions tests that 0600 permissions are accepted.
func TestLoadWithFile_SecurePermissions(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("Skipping permission test on Windows")
	}

	home := setupTestHome(t)

	configPath := writeTestConfig(t, home, `youtrack:
  url: https://yaml.youtrack.example.com
  api_token: perm-yaml-token
`)

	cfg, err := LoadWithFile(configPath)
	if err != nil {
		t.Fatalf("LoadWithFile() should succeed with 0600 permissions, got error: %v", err)
	}

	if cfg.YouTrack.URL != "https://yaml.youtrack.example.com" {
		t.Errorf("YouTrack.URL = %q, want YAML value", cfg.YouTrack.URL)
	}
}

// TestLoadWithFile_FileTooLarge tests file size limit enforcement.
func TestLoadWithFile_FileTooLarge(t *testing.T) {
	home := setupTestHome(t)

	// 2MB file exceeds the 1MB limit
	largeContent := bytes.Repeat([]byte("# comment line\n"), 150000)
	configPath := writeTestConfig(t, home, string(largeContent))

	_, err := LoadWithFile(configPath)
	if err == nil {
		t.Error("Expected error for large file, got nil")
	}
	if !strings.Contains(err.Error(), "too large") {
		t.Errorf("Expected 'too large' error, got: %v", err)
	}
}
