// Package timelog holds time-log entries and the calendar-period arithmetic
// over them: week and month filters, totals, per-issue grouping and the
// conversion from Jira worklogs.
package timelog

import (
	"fmt"
	"strings"
	"time"

	"github.com/chambrid/jira-timelog/pkg/client"
)

// Entry is one unit of logged work. TimeSpent is in whole minutes.
type Entry struct {
	ID           string `json:"id" yaml:"id"`
	IssueKey     string `json:"issueKey" yaml:"issueKey"`
	IssueSummary string `json:"issueSummary" yaml:"issueSummary"`
	Date         string `json:"date" yaml:"date"`
	TimeSpent    int    `json:"timeSpent" yaml:"timeSpent"`
	Description  string `json:"description" yaml:"description"`
}

// Period selects the entries a report covers
type Period string

const (
	PeriodWeek  Period = "week"
	PeriodMonth Period = "month"
	PeriodAll   Period = "all"
)

// ParsePeriod accepts week, month and all (also weekly, monthly)
func ParsePeriod(value string) (Period, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "week", "weekly":
		return PeriodWeek, nil
	case "month", "monthly":
		return PeriodMonth, nil
	case "all", "":
		return PeriodAll, nil
	}
	return "", fmt.Errorf("unknown period %q: must be week, month or all", value)
}

// Label is the human name used in report titles
func (p Period) Label() string {
	switch p {
	case PeriodWeek:
		return "Weekly"
	case PeriodMonth:
		return "Monthly"
	default:
		return "All Time"
	}
}

// ParseDate parses an entry date
func ParseDate(value string) (time.Time, error) {
	return client.ParseTime(value)
}

// ParseDateIn parses an entry date, reading a bare calendar date as midnight in loc
func ParseDateIn(value string, loc *time.Location) (time.Time, error) {
	return client.ParseTimeIn(value, loc)
}

// StartOfWeek is the most recent Sunday at 00:00 in now's location
func StartOfWeek(now time.Time) time.Time {
	y, m, d := now.Date()
	return time.Date(y, m, d-int(now.Weekday()), 0, 0, 0, 0, now.Location())
}

// StartOfMonth is the first of now's month at 00:00 in now's location
func StartOfMonth(now time.Time) time.Time {
	y, m, _ := now.Date()
	return time.Date(y, m, 1, 0, 0, 0, 0, now.Location())
}

// PeriodStart returns the inclusive lower bound of p, zero for PeriodAll
func PeriodStart(p Period, now time.Time) time.Time {
	switch p {
	case PeriodWeek:
		return StartOfWeek(now)
	case PeriodMonth:
		return StartOfMonth(now)
	}
	return time.Time{}
}

// FilterSince keeps entries dated at or after start, in order. Bare calendar
// dates are read in start's location. Entries whose date cannot be parsed are
// dropped.
func FilterSince(entries []Entry, start time.Time) []Entry {
	filtered := make([]Entry, 0, len(entries))
	for _, entry := range entries {
		date, err := ParseDateIn(entry.Date, start.Location())
		if err != nil {
			continue
		}
		if !date.Before(start) {
			filtered = append(filtered, entry)
		}
	}
	return filtered
}

// FilterForCurrentWeek keeps entries since the start of now's week
func FilterForCurrentWeek(entries []Entry, now time.Time) []Entry {
	return FilterSince(entries, StartOfWeek(now))
}

// FilterForCurrentMonth keeps entries since the start of now's month
func FilterForCurrentMonth(entries []Entry, now time.Time) []Entry {
	return FilterSince(entries, StartOfMonth(now))
}

// FilterForPeriod applies the filter for p. PeriodAll keeps every entry.
func FilterForPeriod(entries []Entry, p Period, now time.Time) []Entry {
	switch p {
	case PeriodWeek:
		return FilterForCurrentWeek(entries, now)
	case PeriodMonth:
		return FilterForCurrentMonth(entries, now)
	}
	all := make([]Entry, len(entries))
	copy(all, entries)
	return all
}

// TotalMinutes sums TimeSpent
func TotalMinutes(entries []Entry) int {
	total := 0
	for _, entry := range entries {
		total += entry.TimeSpent
	}
	return total
}

// Summary is the result of one aggregation run
type Summary struct {
	Period       Period    `json:"period" yaml:"period"`
	Start        time.Time `json:"start,omitempty" yaml:"start,omitempty"`
	Entries      []Entry   `json:"entries" yaml:"entries"`
	TotalMinutes int       `json:"totalMinutes" yaml:"totalMinutes"`
	TotalTime    string    `json:"totalTime" yaml:"totalTime"`
}

// Aggregate filters entries once for p and totals the result
func Aggregate(entries []Entry, p Period, now time.Time) Summary {
	filtered := FilterForPeriod(entries, p, now)
	total := TotalMinutes(filtered)
	return Summary{
		Period:       p,
		Start:        PeriodStart(p, now),
		Entries:      filtered,
		TotalMinutes: total,
		TotalTime:    FormatMinutes(total),
	}
}

// IssueTotal is the time logged against one issue
type IssueTotal struct {
	IssueKey     string `json:"issueKey" yaml:"issueKey"`
	IssueSummary string `json:"issueSummary" yaml:"issueSummary"`
	Entries      int    `json:"entries" yaml:"entries"`
	TotalMinutes int    `json:"totalMinutes" yaml:"totalMinutes"`
}

// GroupByIssue totals entries per issue, in order of first appearance
func GroupByIssue(entries []Entry) []IssueTotal {
	index := make(map[string]int)
	var totals []IssueTotal

	for _, entry := range entries {
		i, exists := index[entry.IssueKey]
		if !exists {
			i = len(totals)
			index[entry.IssueKey] = i
			totals = append(totals, IssueTotal{IssueKey: entry.IssueKey, IssueSummary: entry.IssueSummary})
		}
		totals[i].Entries++
		totals[i].TotalMinutes += entry.TimeSpent
	}

	return totals
}

// FormatMinutes renders minutes as "45m", "2h" or "1h 30m"
func FormatMinutes(minutes int) string {
	hours := minutes / 60
	mins := minutes % 60

	switch {
	case hours == 0:
		return fmt.Sprintf("%dm", mins)
	case mins == 0:
		return fmt.Sprintf("%dh", hours)
	default:
		return fmt.Sprintf("%dh %dm", hours, mins)
	}
}

// FromWorklogs converts an issue's worklogs into entries. Seconds are
// truncated to whole minutes.
func FromWorklogs(issue *client.Issue, worklogs []*client.Worklog) []Entry {
	entries := make([]Entry, 0, len(worklogs))
	for _, w := range worklogs {
		entries = append(entries, Entry{
			ID:           "worklog-" + w.ID,
			IssueKey:     issue.Key,
			IssueSummary: issue.Summary,
			Date:         w.Started,
			TimeSpent:    w.TimeSpentSeconds / 60,
			Description:  w.Comment,
		})
	}
	return entries
}
