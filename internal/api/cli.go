package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/chambrid/jira-timelog/internal/collect"
	"github.com/chambrid/jira-timelog/pkg/client"
	"github.com/chambrid/jira-timelog/pkg/config"
	"github.com/chambrid/jira-timelog/pkg/demo"
	"github.com/chambrid/jira-timelog/pkg/logging"
	"github.com/chambrid/jira-timelog/pkg/metrics"
	"github.com/chambrid/jira-timelog/pkg/session"
	"github.com/go-logr/logr"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 30 * time.Second

// Execute starts the API server CLI
func Execute(info BuildInfo) error {
	return NewRootCommand(info).Execute()
}

// NewRootCommand builds the timelog-api command tree
func NewRootCommand(info BuildInfo) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "timelog-api",
		Short: "Jira time-log API server",
		Long: `Jira time-log API server - JSON endpoints over the time-log core for dashboard clients.

Configuration:
  Set configuration via environment variables, a .env file or command-line flags:
    API_PORT=8080 (server port)
    API_HOST=0.0.0.0 (server host)
    JIRA_ACCESS_TOKEN (fallback when requests carry no bearer token)
    DEMO_MODE=true (serve built-in demo data)

API Endpoints:
  GET  /api/v1/health - Health check
  GET  /api/v1/issues - Assigned issues
  GET  /api/v1/issues/{key}/worklogs - Issue worklogs
  POST /api/v1/issues/{key}/worklogs - Log work
  GET  /api/v1/timelogs?period=week - Aggregated time logs
  GET  /api/v1/reports/{period}?format=pdf - Report download
  GET  /metrics - Prometheus metrics`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", info.Version, info.Commit, info.Date),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		Example: `  # Start server on default port 8080
  timelog-api serve

  # Serve demo data on a custom port
  timelog-api serve --demo --port=9090`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, info)
		},
	}

	serveCmd.Flags().Int("port", 0, "Port to listen on (default API_PORT)")
	serveCmd.Flags().String("host", "", "Host to bind (default API_HOST)")
	serveCmd.Flags().Bool("demo", false, "Serve built-in demo data instead of Jira")
	serveCmd.Flags().String("env-file", "", "Load configuration from this .env file (default .env)")
	serveCmd.Flags().StringP("log-level", "l", "", "Log level (debug, info, warn, error)")
	serveCmd.Flags().String("log-format", "", "Log format (text, json)")

	rootCmd.AddCommand(serveCmd)
	return rootCmd
}

func runServe(cmd *cobra.Command, info BuildInfo) error {
	cfg, err := loadServerConfig(cmd)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	log, err := logging.New(logging.Options{Level: cfg.LogLevel, Format: cfg.LogFormat, Output: cmd.ErrOrStderr()})
	if err != nil {
		return err
	}

	m := metrics.New()
	backend, err := NewBackend(cfg, log, m)
	if err != nil {
		return err
	}

	server := NewServer(cfg, info, backend, log, m)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	serverErr := make(chan error, 1)
	go func() {
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case err := <-serverErr:
		return fmt.Errorf("server failed to start: %w", err)
	case <-ctx.Done():
		log.Info("received shutdown signal")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Stop(shutdownCtx); err != nil {
		log.Error(err, "error during shutdown")
		return err
	}

	log.Info("✅ Server shut down gracefully")
	return nil
}

// loadServerConfig loads configuration from the environment and applies flag overrides
func loadServerConfig(cmd *cobra.Command) (*config.Config, error) {
	var loader config.Provider
	if envFile, _ := cmd.Flags().GetString("env-file"); envFile != "" {
		loader = config.NewServerDotEnvLoader(envFile)
	} else {
		loader = config.NewServerDotEnvLoader()
	}

	cfg, err := loader.Load()
	if err != nil {
		return nil, err
	}

	if cmd.Flags().Changed("port") {
		cfg.APIPort, _ = cmd.Flags().GetInt("port")
	}
	if cmd.Flags().Changed("host") {
		cfg.APIHost, _ = cmd.Flags().GetString("host")
	}
	if cmd.Flags().Changed("demo") {
		cfg.DemoMode, _ = cmd.Flags().GetBool("demo")
	}
	if cmd.Flags().Changed("log-level") {
		cfg.LogLevel, _ = cmd.Flags().GetString("log-level")
	}
	if cmd.Flags().Changed("log-format") {
		cfg.LogFormat, _ = cmd.Flags().GetString("log-format")
	}

	return cfg, loader.Validate(cfg)
}

// NewBackend wires the demo provider or a Jira client that takes its session
// from each request
func NewBackend(cfg *config.Config, log logr.Logger, m *metrics.Metrics) (Backend, error) {
	if cfg.DemoMode {
		opts := demo.Options{Now: time.Now}
		if cfg.DemoLatency {
			opts = demo.DefaultOptions()
		}
		provider := demo.New(opts, log)
		return Backend{Client: provider, Source: collect.DemoSource{Provider: provider}, Demo: true}, nil
	}

	jiraClient, err := client.NewClient(cfg, session.ContextProvider{}, log, m)
	if err != nil {
		return Backend{}, fmt.Errorf("failed to create Jira client: %w", err)
	}

	return Backend{
		Client: jiraClient,
		Source: collect.NewCollector(jiraClient, cfg.WorklogConcurrency, cfg.AccountID, log),
	}, nil
}
