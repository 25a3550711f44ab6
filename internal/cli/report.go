package cli

import (
	"fmt"
	"time"

	"github.com/chambrid/jira-timelog/pkg/report"
	"github.com/chambrid/jira-timelog/pkg/timelog"
	"github.com/spf13/cobra"
)

func newTimeLogsCommand() *cobra.Command {
	period := newPeriodValue(timelog.PeriodWeek)
	var byIssue bool

	cmd := &cobra.Command{
		Use:   "timelogs",
		Short: "Show time logged in the current week, month or overall",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}

			summary, err := a.summarize(cmd.Context(), period.period, time.Now())
			if err != nil {
				return err
			}

			if byIssue {
				totals := timelog.GroupByIssue(summary.Entries)
				return printResult(cmd, totals, func() table {
					t := table{header: []string{"ISSUE", "ENTRIES", "TIME SPENT", "SUMMARY"}}
					for _, total := range totals {
						t.rows = append(t.rows, []string{
							total.IssueKey, fmt.Sprint(total.Entries), timelog.FormatMinutes(total.TotalMinutes), total.IssueSummary,
						})
					}
					t.rows = append(t.rows, []string{"TOTAL", fmt.Sprint(len(summary.Entries)), summary.TotalTime, ""})
					return t
				})
			}

			return printResult(cmd, summary, func() table {
				t := table{header: []string{"ISSUE", "DATE", "TIME SPENT", "DESCRIPTION"}}
				for _, entry := range summary.Entries {
					t.rows = append(t.rows, []string{
						entry.IssueKey, displayDate(entry.Date), timelog.FormatMinutes(entry.TimeSpent), entry.Description,
					})
				}
				t.rows = append(t.rows, []string{"TOTAL", "", summary.TotalTime, ""})
				return t
			})
		},
	}

	cmd.Flags().VarP(period, "period", "p", "Period to show (week, month, all)")
	cmd.Flags().BoolVar(&byIssue, "by-issue", false, "Total the period per issue")

	return cmd
}

func newReportCommand() *cobra.Command {
	period := newPeriodValue(timelog.PeriodWeek)
	var (
		format   string
		outDir   string
		userName string
	)

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Export a time-log report as PDF or YAML",
		Example: `  timelog report --period week
  timelog report --period month --format yaml --out ./reports`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			renderer, err := report.RendererFor(format)
			if err != nil {
				return err
			}

			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			if outDir == "" {
				outDir = a.cfg.ReportDir
			}
			if userName == "" {
				userName = a.cfg.UserName
			}

			now := time.Now()
			fmt.Fprintf(cmd.ErrOrStderr(), "📥 Loading %s time logs...\n", period.period.Label())
			summary, err := a.summarize(cmd.Context(), period.period, now)
			if err != nil {
				return err
			}

			generator := report.NewGenerator(a.log, a.metrics)
			generator.SetClock(func() time.Time { return now })

			doc, err := generator.Generate(summary.Entries, period.period, userName)
			if err != nil {
				return fmt.Errorf("failed to generate report: %w", err)
			}

			path, err := report.Export(doc, renderer, report.FileSaver{Dir: outDir})
			if err != nil {
				return fmt.Errorf("failed to export report: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "📄 %s: %d entries, %s total\n", doc.Title, len(doc.Rows), doc.TotalTime)
			fmt.Fprintf(cmd.OutOrStdout(), "✅ Saved %s\n", path)
			return nil
		},
	}

	cmd.Flags().VarP(period, "period", "p", "Report period (week, month, all)")
	cmd.Flags().StringVarP(&format, "format", "f", "pdf", "Report format (pdf, yaml)")
	cmd.Flags().StringVar(&outDir, "out", "", "Directory to write the report to (default REPORT_DIR)")
	cmd.Flags().StringVar(&userName, "user", "", "Name printed on the report (default JIRA_USER_NAME)")

	return cmd
}
