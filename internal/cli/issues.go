package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/chambrid/jira-timelog/pkg/client"
	"github.com/chambrid/jira-timelog/pkg/timelog"
	"github.com/spf13/cobra"
)

func newIssuesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "issues",
		Short: "List issues assigned to you, most recently updated first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}

			issues, err := a.client.GetAssignedIssues(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to fetch assigned issues: %w", err)
			}

			return printResult(cmd, issues, func() table {
				t := table{header: []string{"KEY", "STATUS", "PRIORITY", "TYPE", "UPDATED", "SUMMARY"}}
				for _, issue := range issues {
					priority := ""
					if issue.Priority != nil {
						priority = issue.Priority.Name
					}
					t.rows = append(t.rows, []string{
						issue.Key, issue.Status, priority, issue.IssueType.Name, displayDate(issue.Updated), issue.Summary,
					})
				}
				return t
			})
		},
	}
}

func newWorklogsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "worklogs <ISSUE-KEY>",
		Short: "List worklogs recorded against an issue",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}

			worklogs, err := a.client.GetIssueWorklogs(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("failed to fetch worklogs for %s: %w", args[0], err)
			}

			return printResult(cmd, worklogs, func() table {
				t := table{header: []string{"ID", "AUTHOR", "STARTED", "TIME SPENT", "COMMENT"}}
				for _, w := range worklogs {
					t.rows = append(t.rows, []string{
						w.ID, w.Author.DisplayName, displayDate(w.Started), w.TimeSpent, w.Comment,
					})
				}
				return t
			})
		},
	}
}

func newLogWorkCommand() *cobra.Command {
	var (
		spent   string
		comment string
	)

	cmd := &cobra.Command{
		Use:   "log-work <ISSUE-KEY>",
		Short: "Log time against an issue",
		Example: `  timelog log-work PROJ-42 --time 1h30m --comment "Code review"
  timelog log-work PROJ-42 --time 45m`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			seconds, err := parseTimeSpent(spent)
			if err != nil {
				return err
			}

			a, err := newApp(cmd)
			if err != nil {
				return err
			}

			facade := client.NewFailSoft(a.client, a.log, a.metrics)
			if !facade.AddWorklog(cmd.Context(), args[0], seconds, comment) {
				return fmt.Errorf("worklog for %s was not accepted by Jira", args[0])
			}

			fmt.Fprintf(cmd.OutOrStdout(), "✅ Logged %s on %s\n", timelog.FormatMinutes(seconds/60), args[0])
			return nil
		},
	}

	cmd.Flags().StringVarP(&spent, "time", "t", "", "Time spent, e.g. 1h30m, 45m or \"2h 15m\"")
	cmd.Flags().StringVarP(&comment, "comment", "c", "", "Worklog comment")
	_ = cmd.MarkFlagRequired("time")

	return cmd
}

func newResourcesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "resources",
		Short: "List the Jira Cloud sites the access token can reach",
		Long: `List the Jira Cloud sites the access token can reach. The first site is the
one every other command talks to.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			if a.jira == nil {
				return fmt.Errorf("resources needs a Jira access token and is not available in demo mode")
			}

			resources, err := a.jira.AccessibleResources(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to list accessible resources: %w", err)
			}

			return printResult(cmd, resources, func() table {
				t := table{header: []string{"CLOUD ID", "NAME", "URL", "SCOPES"}}
				for _, r := range resources {
					t.rows = append(t.rows, []string{r.ID, r.Name, r.URL, strings.Join(r.Scopes, ",")})
				}
				return t
			})
		},
	}
}

// parseTimeSpent accepts Go durations and Jira's "2h 15m" form, in whole seconds
func parseTimeSpent(value string) (int, error) {
	compact := strings.ReplaceAll(strings.TrimSpace(value), " ", "")
	d, err := time.ParseDuration(compact)
	if err != nil {
		return 0, fmt.Errorf("invalid --time %q: %w", value, err)
	}
	if d < time.Second {
		return 0, fmt.Errorf("invalid --time %q: must be at least one second", value)
	}
	return int(d / time.Second), nil
}

// displayDate shortens a Jira timestamp for tables and leaves anything else alone
func displayDate(value string) string {
	t, err := client.ParseTime(value)
	if err != nil {
		return value
	}
	return t.Format("2006-01-02 15:04")
}
