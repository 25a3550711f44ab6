package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/chambrid/jira-timelog/internal/collect"
	"github.com/chambrid/jira-timelog/pkg/client"
	"github.com/chambrid/jira-timelog/pkg/config"
	"github.com/chambrid/jira-timelog/pkg/demo"
	"github.com/chambrid/jira-timelog/pkg/logging"
	"github.com/chambrid/jira-timelog/pkg/metrics"
	"github.com/chambrid/jira-timelog/pkg/session"
	"github.com/chambrid/jira-timelog/pkg/timelog"
	"github.com/go-logr/logr"
	"github.com/spf13/cobra"
)

// app holds what every command needs, wired from configuration and flags
type app struct {
	cfg     *config.Config
	log     logr.Logger
	metrics *metrics.Metrics

	client    client.Client
	jira      *client.JIRAClient // nil in demo mode
	demo      *demo.Provider     // nil in live mode
	collector *collect.Collector // nil in demo mode
	source    collect.Source

	progress io.Writer
}

func newApp(cmd *cobra.Command) (*app, error) {
	envFile, _ := cmd.Flags().GetString("env-file")
	demoFlag, _ := cmd.Flags().GetBool("demo")

	// The token check happens below so that --demo can waive it
	var loader config.Provider
	if envFile != "" {
		loader = config.NewServerDotEnvLoader(envFile)
	} else {
		loader = config.NewServerDotEnvLoader()
	}
	cfg, err := loader.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if demoFlag {
		cfg.DemoMode = true
	}
	if cmd.Flags().Changed("log-level") {
		cfg.LogLevel, _ = cmd.Flags().GetString("log-level")
	}
	if cmd.Flags().Changed("log-format") {
		cfg.LogFormat, _ = cmd.Flags().GetString("log-format")
	}

	log, err := logging.New(logging.Options{Level: cfg.LogLevel, Format: cfg.LogFormat, Output: cmd.ErrOrStderr()})
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, log: log, metrics: metrics.New(), progress: cmd.ErrOrStderr()}

	if cfg.DemoMode {
		opts := demo.Options{Now: time.Now}
		if cfg.DemoLatency {
			opts = demo.DefaultOptions()
		}
		a.demo = demo.New(opts, log)
		a.client = a.demo
		a.source = collect.DemoSource{Provider: a.demo}
		return a, nil
	}

	if cfg.AccessToken == "" {
		return nil, fmt.Errorf("JIRA_ACCESS_TOKEN is required unless DEMO_MODE is enabled or --demo is passed")
	}

	sessions := session.NewStaticProvider(cfg.AccessToken, cfg.UserName, cfg.AccountID)
	jiraClient, err := client.NewClient(cfg, sessions, log, a.metrics)
	if err != nil {
		return nil, fmt.Errorf("failed to create Jira client: %w", err)
	}

	a.jira = jiraClient
	a.client = jiraClient
	a.collector = collect.NewCollector(jiraClient, cfg.WorklogConcurrency, cfg.AccountID, log)
	a.source = a.collector
	return a, nil
}

// summarize loads entries and aggregates them for period at now
func (a *app) summarize(ctx context.Context, period timelog.Period, now time.Time) (timelog.Summary, error) {
	if a.collector != nil {
		done := make(chan struct{})
		defer close(done)
		go a.reportProgress(done)
	}

	entries, err := a.source.TimeLogs(ctx)
	if err != nil {
		return timelog.Summary{}, fmt.Errorf("failed to load time logs: %w", err)
	}
	return timelog.Aggregate(entries, period, now), nil
}

// reportProgress prints collector progress until done is closed
func (a *app) reportProgress(done <-chan struct{}) {
	updates := a.collector.GetProgressChannel()
	for {
		select {
		case update := <-updates:
			fmt.Fprintf(a.progress, "⏳ %d/%d issues (%s)\n", update.ProcessedCount, update.TotalCount, update.CurrentIssue)
		case <-done:
			return
		}
	}
}
