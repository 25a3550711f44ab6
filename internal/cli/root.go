package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// BuildInfo contains build-time information
type BuildInfo struct {
	Version string
	Commit  string
	Date    string
}

// NewRootCommand builds the timelog command tree
func NewRootCommand(info BuildInfo) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "timelog",
		Short: "Track and report time logged against Jira Cloud issues",
		Long: `Jira Time Log - list your assigned Jira Cloud issues, log work against them and
export weekly or monthly time reports as PDF or YAML.

The tool talks to Jira Cloud through the Atlassian API gateway with an OAuth 2.0
access token (JIRA_ACCESS_TOKEN). Use --demo to explore it with built-in sample data.`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", info.Version, info.Commit, info.Date),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringP("log-level", "l", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "text", "Log format (text, json)")
	rootCmd.PersistentFlags().Bool("demo", false, "Use built-in demo data instead of Jira")
	rootCmd.PersistentFlags().String("env-file", "", "Load configuration from this .env file (default .env)")
	rootCmd.PersistentFlags().VarP(newEnumValue(outputTable, outputTable, outputJSON, outputYAML), "output", "o", "Output format for listings (table, json, yaml)")

	rootCmd.AddCommand(
		newIssuesCommand(),
		newWorklogsCommand(),
		newLogWorkCommand(),
		newResourcesCommand(),
		newTimeLogsCommand(),
		newReportCommand(),
	)

	return rootCmd
}

// Execute builds the command tree and runs it.
// This is called by main.main().
func Execute(info BuildInfo) error {
	return NewRootCommand(info).Execute()
}
