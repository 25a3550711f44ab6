// Package report turns time-log entries into a tabular report document and
// renders it as PDF or YAML.
package report

import (
	"fmt"
	"time"

	"github.com/chambrid/jira-timelog/pkg/metrics"
	"github.com/chambrid/jira-timelog/pkg/timelog"
	"github.com/go-logr/logr"
	"github.com/google/uuid"
)

// DefaultUserName is printed when the caller has no user name
const DefaultUserName = "User"

const (
	generatedOnLayout = "January 2, 2006"
	rowDateLayout     = "Jan 2, 2006"
)

// Columns of the report table
var Columns = []string{"Issue", "Summary", "Date", "Time Spent", "Description"}

// Document is the renderer-independent report
type Document struct {
	ReportID     string         `json:"reportId" yaml:"reportId"`
	Period       timelog.Period `json:"period" yaml:"period"`
	Title        string         `json:"title" yaml:"title"`
	GeneratedOn  string         `json:"generatedOn" yaml:"generatedOn"`
	GeneratedAt  time.Time      `json:"generatedAt" yaml:"generatedAt"`
	UserName     string         `json:"userName" yaml:"userName"`
	TotalMinutes int            `json:"totalMinutes" yaml:"totalMinutes"`
	TotalTime    string         `json:"totalTime" yaml:"totalTime"`
	Columns      []string       `json:"columns" yaml:"columns"`
	Rows         []Row          `json:"rows" yaml:"rows"`
}

// Row is one table line, already formatted for display
type Row struct {
	IssueKey    string `json:"issue" yaml:"issue"`
	Summary     string `json:"summary" yaml:"summary"`
	Date        string `json:"date" yaml:"date"`
	TimeSpent   string `json:"timeSpent" yaml:"timeSpent"`
	Description string `json:"description" yaml:"description"`
}

// Cells returns the row in column order
func (r Row) Cells() []string {
	return []string{r.IssueKey, r.Summary, r.Date, r.TimeSpent, r.Description}
}

// Generator builds documents. It never touches storage.
type Generator struct {
	now     func() time.Time
	log     logr.Logger
	metrics *metrics.Metrics
}

// NewGenerator creates a generator using the wall clock
func NewGenerator(log logr.Logger, m *metrics.Metrics) *Generator {
	return &Generator{now: time.Now, log: log.WithName("report"), metrics: m}
}

// SetClock replaces the clock used for the generation timestamp and for
// choosing the display time zone
func (g *Generator) SetClock(now func() time.Time) {
	g.now = now
}

// Generate renders entries, which the caller has already filtered and ordered,
// into a Document. Any malformed entry fails the whole run.
func (g *Generator) Generate(entries []timelog.Entry, period timelog.Period, userName string) (*Document, error) {
	switch period {
	case timelog.PeriodWeek, timelog.PeriodMonth, timelog.PeriodAll:
	default:
		return nil, &FormatError{
			Type:    ErrTypeUnknownPeriod,
			Message: fmt.Sprintf("unknown period %q", period),
		}
	}

	if userName == "" {
		userName = DefaultUserName
	}

	generatedAt := g.now()
	rows := make([]Row, 0, len(entries))

	for _, entry := range entries {
		if entry.TimeSpent < 0 {
			return nil, &FormatError{
				Type:    ErrTypeNegativeDuration,
				Message: fmt.Sprintf("time spent is negative (%d minutes)", entry.TimeSpent),
				Context: entry.ID,
			}
		}

		date, err := timelog.ParseDateIn(entry.Date, generatedAt.Location())
		if err != nil {
			return nil, &FormatError{
				Type:    ErrTypeMalformedDate,
				Message: "entry date cannot be formatted",
				Err:     err,
				Context: entry.ID,
			}
		}

		rows = append(rows, Row{
			IssueKey:    entry.IssueKey,
			Summary:     entry.IssueSummary,
			Date:        date.In(generatedAt.Location()).Format(rowDateLayout),
			TimeSpent:   timelog.FormatMinutes(entry.TimeSpent),
			Description: entry.Description,
		})
	}

	total := timelog.TotalMinutes(entries)
	doc := &Document{
		ReportID:     uuid.NewString(),
		Period:       period,
		Title:        "Time Tracking Report - " + period.Label(),
		GeneratedOn:  generatedAt.Format(generatedOnLayout),
		GeneratedAt:  generatedAt,
		UserName:     userName,
		TotalMinutes: total,
		TotalTime:    timelog.FormatMinutes(total),
		Columns:      append([]string(nil), Columns...),
		Rows:         rows,
	}

	g.metrics.ObserveReport(string(period))
	g.log.V(1).Info("report generated", "reportId", doc.ReportID, "period", period, "rows", len(rows), "totalMinutes", total)
	return doc, nil
}

// FileName is the download name, e.g. time-logs-week-2026-10-17.pdf
func FileName(period timelog.Period, now time.Time, ext string) string {
	return fmt.Sprintf("time-logs-%s-%s.%s", period, now.Format("2006-01-02"), ext)
}
