// Youtrackd is a YouTrack MCP server for LLM agents.
//
// The binary speaks the MCP protocol over stdio, so stdout belongs to the
// protocol stream and all logging goes to stderr. Configuration is loaded
// from environment variables; see internal/config for the full surface.
//
// Usage:
//
//	# Serve MCP over stdio
//	YOUTRACK_API_TOKEN=perm:... youtrackd
//
//	# Also expose /health, /readyz and /metrics on localhost:9090
//	youtrackd --http
package main

import (
	"context"
	"errors"
	"fmt"
	nethttp "net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/trackforge/youtrackd/internal/config"
	"github.com/trackforge/youtrackd/internal/http"
	"github.com/trackforge/youtrackd/internal/journal"
	"github.com/trackforge/youtrackd/internal/logging"
	"github.com/trackforge/youtrackd/internal/mcp"
	"github.com/trackforge/youtrackd/internal/telemetry"
	"github.com/trackforge/youtrackd/internal/youtrack"
)

// Version information (set via ldflags during build)
var (
	version   = "dev"
	gitCommit = "unknown"
	buildDate = "unknown"
)

var (
	// configFile opts into the YAML config layer; empty means env-only.
	configFile string
	// withHTTP starts the health/metrics sidecar next to the stdio server.
	withHTTP bool
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "youtrackd",
	Short: "YouTrack MCP server over stdio",
	Long: `youtrackd exposes YouTrack issue tracking as MCP tools over stdio
so LLM agents can read, create and update issues, manage custom fields,
log spent time and navigate issue links.

Configuration comes from environment variables:
  YOUTRACK_API_TOKEN            Permanent API token (required)
  YOUTRACK_URL                  Base URL of a self-hosted instance
  YOUTRACK_CLOUD                Cloud-instance mode (with YOUTRACK_WORKSPACE)
  YOUTRACK_DEFAULT_PROJECT_KEY  Project key for bare issue numbers (default: AGI)

Examples:
  # Serve MCP over stdio
  YOUTRACK_API_TOKEN=perm:... youtrackd

  # Also expose /health, /readyz and /metrics on localhost:9090
  youtrackd --http

  # Load settings from ~/.config/youtrackd/config.yaml first
  youtrackd --config ~/.config/youtrackd/config.yaml`,
	SilenceUsage: true,
	RunE:         runServe,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "YAML config file (default: environment only)")
	rootCmd.Flags().BoolVar(&withHTTP, "http", false, "start the HTTP sidecar with /health, /readyz and /metrics")
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(reportCmd)
}

// versionCmd prints build information
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("youtrackd\n")
		fmt.Printf("Version:    %s\n", version)
		fmt.Printf("Commit:     %s\n", gitCommit)
		fmt.Printf("Build Date: %s\n", buildDate)
	},
}

// loadConfig loads and validates configuration. Without --config only the
// environment is consulted; with it the YAML file seeds the tree and the
// environment still wins.
func loadConfig() (*config.Config, error) {
	if configFile != "" {
		return config.LoadWithFile(configFile)
	}
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// runServe starts the MCP server on stdio and blocks until the client
// disconnects or a signal arrives.
//
// Initialization order:
//  1. Load and validate configuration
//  2. Initialize telemetry (no-op unless OTEL_ENABLE is set)
//  3. Initialize the redacting stderr logger
//  4. Create the YouTrack client and MCP server
//  5. Open the work item journal (if enabled)
//  6. Start the HTTP sidecar (if --http)
//
// Shutdown runs in reverse: MCP server (including the journal), sidecar,
// telemetry, log sync.
func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	tel, err := telemetry.New(cmd.Context(), telemetry.FromOtelConfig(cfg.Otel, version))
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}

	logger, err := buildLogger(cfg, tel)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer func() {
		_ = logger.Sync() // Best-effort sync on shutdown
	}()
	zlog := logger.Underlying()

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case sig := <-sigCh:
			zlog.Info("received signal, shutting down", zap.String("signal", sig.String()))
			cancel()
		case <-ctx.Done():
		}
	}()

	zlog.Info("starting youtrackd",
		zap.String("version", version),
		zap.String("default_project_key", cfg.YouTrack.DefaultProjectKey),
		zap.Bool("cloud", cfg.IsCloud()),
		zap.Bool("journal", cfg.Journal.Enabled.Bool()),
		zap.Bool("http_sidecar", withHTTP))

	client, err := youtrack.New(cfg)
	if err != nil {
		return fmt.Errorf("failed to create youtrack client: %w", err)
	}

	server, err := mcp.NewServer(&mcp.Config{
		Name:              cfg.MCP.ServerName,
		Version:           version,
		Description:       cfg.MCP.ServerDescription,
		DefaultProjectKey: cfg.YouTrack.DefaultProjectKey,
		Logger:            logger,
	}, client)
	if err != nil {
		return fmt.Errorf("failed to create MCP server: %w", err)
	}

	if cfg.Journal.Enabled.Bool() {
		j, err := journal.Open(cfg.Journal.Path)
		if err != nil {
			return fmt.Errorf("failed to open journal: %w", err)
		}
		server.SetJournal(j)
		zlog.Info("work item journal enabled", zap.String("path", cfg.Journal.Path))
	}

	var sidecar *http.Server
	if withHTTP {
		users := youtrack.NewUsersClient(client)
		probe := func(ctx context.Context) (string, error) {
			me, err := users.Me(ctx)
			if err != nil {
				return "", err
			}
			return me.Login, nil
		}
		sidecar, err = http.NewServer(probe, logger, &http.Config{
			Host: cfg.Server.Host,
			Port: cfg.Server.Port,
		})
		if err != nil {
			return fmt.Errorf("failed to create HTTP sidecar: %w", err)
		}
		go func() {
			if err := sidecar.Start(); err != nil && !errors.Is(err, nethttp.ErrServerClosed) {
				zlog.Error("HTTP sidecar failed", zap.Error(err))
			}
		}()
	}

	runErr := server.Run(ctx)
	if runErr != nil && ctx.Err() != nil {
		// Signal-driven cancellation surfaces as a run error; not a failure
		runErr = nil
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout.Duration())
	defer shutdownCancel()

	if err := server.Close(); err != nil {
		zlog.Warn("MCP server close failed", zap.Error(err))
	}
	if sidecar != nil {
		if err := sidecar.Shutdown(shutdownCtx); err != nil {
			zlog.Warn("HTTP sidecar shutdown failed", zap.Error(err))
		}
	}
	if err := tel.Shutdown(shutdownCtx); err != nil {
		zlog.Warn("telemetry shutdown failed", zap.Error(err))
	}

	zlog.Info("youtrackd shutdown complete")
	return runErr
}

// buildLogger assembles the stderr logger. Debug mode switches to console
// encoding without sampling so every line survives interactive debugging.
func buildLogger(cfg *config.Config, tel *telemetry.Telemetry) (*logging.Logger, error) {
	logCfg := logging.NewDefaultConfig()
	if cfg.MCP.Debug.Bool() {
		logCfg.Level = zapcore.DebugLevel
		logCfg.Format = "console"
		logCfg.Sampling.Enabled = false
	}
	if tel.IsEnabled() && tel.LoggerProvider() != nil {
		logCfg.Output.OTEL = true
	}
	return logging.NewLogger(logCfg, tel.LoggerProvider())
}
