package mcp

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"github.com/trackforge/youtrackd/internal/journal"
	"github.com/trackforge/youtrackd/internal/logging"
	"github.com/trackforge/youtrackd/internal/telemetry"
	"github.com/trackforge/youtrackd/internal/youtrack"
)

// Server is the MCP server. It owns the per-area API clients and the
// tool metadata registry behind get_help and search_tools.
type Server struct {
	mcp      *mcp.Server
	issues   *youtrack.IssuesClient
	projects *youtrack.ProjectsClient
	users    *youtrack.UsersClient
	work     *youtrack.WorkItemsClient
	journal  *journal.Journal
	registry *ToolRegistry
	metrics  *toolMetrics
	logger   *logging.Logger

	defaultProjectKey string
}

// Config configures the MCP server.
type Config struct {
	// Name is the server implementation name (default: "youtrack-mcp")
	Name string

	// Version is the server version (default: "1.0.0")
	Version string

	// Description is sent to clients as the server instructions during
	// the initialize handshake.
	Description string

	// DefaultProjectKey expands bare issue numbers into readable IDs,
	// so "123" becomes "AGI-123" when the key is "AGI".
	DefaultProjectKey string

	// Logger receives the server lifecycle and per-call entries. Tool
	// handlers log through it with call-scoped contexts, so issue and
	// request tags ride along automatically.
	Logger *logging.Logger
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Name:              "youtrack-mcp",
		Version:           "1.0.0",
		Description:       "YouTrack MCP Server",
		DefaultProjectKey: "AGI",
		Logger:            logging.Nop(),
	}
}

// NewServer creates a new MCP server on top of the given REST client.
func NewServer(cfg *Config, client *youtrack.Client) (*Server, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if client == nil {
		return nil, fmt.Errorf("youtrack client is required")
	}
	log := cfg.Logger
	if log == nil {
		log = logging.Nop()
	}

	metrics, err := newToolMetrics(otel.Meter(telemetry.ScopeMCP))
	if err != nil {
		// The serving loop stays up without instruments.
		log.Warn(context.Background(), "tool metrics unavailable", zap.Error(err))
	}

	s := &Server{
		mcp: mcp.NewServer(
			&mcp.Implementation{
				Name:    cfg.Name,
				Version: cfg.Version,
			},
			&mcp.ServerOptions{Instructions: cfg.Description},
		),
		issues:            youtrack.NewIssuesClient(client),
		projects:          youtrack.NewProjectsClient(client),
		users:             youtrack.NewUsersClient(client),
		work:              youtrack.NewWorkItemsClient(client),
		registry:          NewToolRegistry(),
		metrics:           metrics,
		logger:            log,
		defaultProjectKey: cfg.DefaultProjectKey,
	}

	s.mcp.AddReceivingMiddleware(s.instrument())

	if err := s.registerTools(); err != nil {
		return nil, fmt.Errorf("failed to register tools: %w", err)
	}

	return s, nil
}

// SetJournal attaches the optional work-item journal. Must be called
// before Run() so time-tracking tools record the entries they submit.
func (s *Server) SetJournal(j *journal.Journal) {
	s.journal = j
}

// Run starts the MCP server on the stdio transport.
func (s *Server) Run(ctx context.Context) error {
	s.logger.Info(ctx, "serving MCP over stdio",
		zap.String("default_project_key", s.defaultProjectKey),
		zap.Int("tools", s.registry.Count()))
	if err := s.mcp.Run(ctx, &mcp.StdioTransport{}); err != nil {
		return fmt.Errorf("server run failed: %w", err)
	}
	return nil
}

// Close closes the server and the services it was given.
func (s *Server) Close() error {
	s.logger.Info(context.Background(), "closing MCP server")

	if s.journal != nil {
		if err := s.journal.Close(); err != nil {
			return fmt.Errorf("journal close: %w", err)
		}
	}
	return nil
}
