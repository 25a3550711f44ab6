package report

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/chambrid/jira-timelog/pkg/metrics"
	"github.com/chambrid/jira-timelog/pkg/timelog"
	"github.com/go-logr/logr"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

var clock = time.Date(2026, 10, 17, 15, 4, 0, 0, time.UTC)

func newTestGenerator(m *metrics.Metrics) *Generator {
	g := NewGenerator(logr.Discard(), m)
	g.SetClock(func() time.Time { return clock })
	return g
}

func sampleEntries() []timelog.Entry {
	return []timelog.Entry{
		{ID: "log-1", IssueKey: "DEMO-1", IssueSummary: "Implement user authentication flow", Date: "2026-10-15T15:04:00Z", TimeSpent: 180, Description: "Working on OAuth integration with Jira"},
		{ID: "log-2", IssueKey: "DEMO-3", IssueSummary: "Fix time tracking component", Date: "2026-10-16T09:30:00.000+0000", TimeSpent: 120, Description: "Debugging timezone issues"},
		{ID: "log-4", IssueKey: "DEMO-6", IssueSummary: "Improve mobile responsiveness", Date: "2026-10-13", TimeSpent: 90, Description: "Testing and fixing UI on mobile devices"},
	}
}

func TestGenerator_Generate(t *testing.T) {
	m := metrics.New()
	doc, err := newTestGenerator(m).Generate(sampleEntries(), timelog.PeriodWeek, "Ada Lovelace")
	require.NoError(t, err)

	assert.Equal(t, "Time Tracking Report - Weekly", doc.Title)
	assert.Equal(t, "October 17, 2026", doc.GeneratedOn)
	assert.Equal(t, "Ada Lovelace", doc.UserName)
	assert.Equal(t, 390, doc.TotalMinutes)
	assert.Equal(t, "6h 30m", doc.TotalTime)
	assert.Equal(t, []string{"Issue", "Summary", "Date", "Time Spent", "Description"}, doc.Columns)

	_, err = uuid.Parse(doc.ReportID)
	assert.NoError(t, err)

	require.Len(t, doc.Rows, 3)
	assert.Equal(t, Row{
		IssueKey:    "DEMO-1",
		Summary:     "Implement user authentication flow",
		Date:        "Oct 15, 2026",
		TimeSpent:   "3h",
		Description: "Working on OAuth integration with Jira",
	}, doc.Rows[0])
	assert.Equal(t, "DEMO-3", doc.Rows[1].IssueKey, "rows keep input order")
	assert.Equal(t, "1h 30m", doc.Rows[2].TimeSpent)

	count, err := testutil.GatherAndCount(m.Registry(), "timelog_reports_generated_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestGenerator_Generate_DateOnlyWestOfUTC(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)
	g := NewGenerator(logr.Discard(), metrics.New())
	g.SetClock(func() time.Time { return time.Date(2026, 10, 14, 12, 0, 0, 0, loc) })

	doc, err := g.Generate([]timelog.Entry{
		{ID: "log-1", IssueKey: "DEMO-1", IssueSummary: "Sunday work", Date: "2026-10-11", TimeSpent: 60},
	}, timelog.PeriodWeek, "Ada Lovelace")
	require.NoError(t, err)

	require.Len(t, doc.Rows, 1)
	assert.Equal(t, "Oct 11, 2026", doc.Rows[0].Date)
}

func TestGenerator_Titles(t *testing.T) {
	tests := []struct {
		period   timelog.Period
		expected string
	}{
		{timelog.PeriodWeek, "Time Tracking Report - Weekly"},
		{timelog.PeriodMonth, "Time Tracking Report - Monthly"},
		{timelog.PeriodAll, "Time Tracking Report - All Time"},
	}

	for _, tt := range tests {
		t.Run(string(tt.period), func(t *testing.T) {
			doc, err := newTestGenerator(nil).Generate(nil, tt.period, "")
			require.NoError(t, err)
			assert.Equal(t, tt.expected, doc.Title)
			assert.Equal(t, DefaultUserName, doc.UserName)
			assert.Equal(t, "0m", doc.TotalTime)
			assert.Empty(t, doc.Rows)
		})
	}
}

func TestGenerator_TotalMatchesFilteredEntries(t *testing.T) {
	entries := append(sampleEntries(), timelog.Entry{ID: "old", IssueKey: "DEMO-9", Date: "2026-08-01T00:00:00Z", TimeSpent: 500})

	for _, period := range []timelog.Period{timelog.PeriodWeek, timelog.PeriodMonth, timelog.PeriodAll} {
		t.Run(string(period), func(t *testing.T) {
			filtered := timelog.FilterForPeriod(entries, period, clock)
			doc, err := newTestGenerator(nil).Generate(filtered, period, "User")
			require.NoError(t, err)
			assert.Equal(t, timelog.TotalMinutes(filtered), doc.TotalMinutes)
			assert.Equal(t, timelog.FormatMinutes(timelog.TotalMinutes(filtered)), doc.TotalTime)
		})
	}
}

func TestGenerator_Scenarios(t *testing.T) {
	doc, err := newTestGenerator(nil).Generate([]timelog.Entry{
		{ID: "a", Date: "2026-10-16", TimeSpent: 90},
		{ID: "b", Date: "2026-10-16", TimeSpent: 30},
	}, timelog.PeriodWeek, "User")
	require.NoError(t, err)
	assert.Equal(t, "2h", doc.TotalTime)

	doc, err = newTestGenerator(nil).Generate([]timelog.Entry{{ID: "c", Date: "2026-10-16", TimeSpent: 45}}, timelog.PeriodWeek, "User")
	require.NoError(t, err)
	assert.Equal(t, "45m", doc.TotalTime)
}

func TestGenerator_Errors(t *testing.T) {
	tests := []struct {
		name    string
		entries []timelog.Entry
		period  timelog.Period
		errType string
	}{
		{
			name:    "malformed date",
			entries: append(sampleEntries(), timelog.Entry{ID: "bad", Date: "yesterday", TimeSpent: 10}),
			period:  timelog.PeriodWeek,
			errType: ErrTypeMalformedDate,
		},
		{
			name:    "negative duration",
			entries: []timelog.Entry{{ID: "neg", Date: "2026-10-16", TimeSpent: -5}},
			period:  timelog.PeriodMonth,
			errType: ErrTypeNegativeDuration,
		},
		{
			name:    "unknown period",
			entries: sampleEntries(),
			period:  timelog.Period("fortnight"),
			errType: ErrTypeUnknownPeriod,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := newTestGenerator(nil).Generate(tt.entries, tt.period, "User")

			assert.Nil(t, doc, "no partial document")
			require.Error(t, err)
			assert.True(t, IsFormatError(err))

			var formatErr *FormatError
			require.True(t, errors.As(err, &formatErr))
			assert.Equal(t, tt.errType, formatErr.Type)
		})
	}
}

func TestFileName(t *testing.T) {
	assert.Equal(t, "time-logs-week-2026-10-17.pdf", FileName(timelog.PeriodWeek, clock, "pdf"))
	assert.Equal(t, "time-logs-month-2026-10-17.yaml", FileName(timelog.PeriodMonth, clock, "yaml"))
}

func TestPDFRenderer_Render(t *testing.T) {
	entries := sampleEntries()
	// enough rows to spill onto a second page, with long and non-ASCII text
	for i := 0; i < 40; i++ {
		entries = append(entries, timelog.Entry{
			ID:           "extra",
			IssueKey:     "DEMO-7",
			IssueSummary: "Calendar integration with Google Calendar",
			Date:         "2026-10-16T09:00:00Z",
			TimeSpent:    15,
			Description:  "Café sync, imported meetings with a very long description that wraps across several lines of the last column",
		})
	}

	doc, err := newTestGenerator(nil).Generate(entries, timelog.PeriodMonth, "Zoë")
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, NewPDFRenderer().Render(&buf, doc))

	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF")), "output is a PDF")
	assert.Greater(t, buf.Len(), 1000)
}

func TestYAMLRenderer_Render(t *testing.T) {
	doc, err := newTestGenerator(nil).Generate(sampleEntries(), timelog.PeriodWeek, "Ada")
	require.NoError(t, err)

	content, err := Render(YAMLRenderer{}, doc)
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, yaml.Unmarshal(content, &decoded))
	assert.Equal(t, "Time Tracking Report - Weekly", decoded["title"])
	assert.Equal(t, "6h 30m", decoded["totalTime"])
	assert.Len(t, decoded["rows"], 3)
}

func TestRendererFor(t *testing.T) {
	pdf, err := RendererFor("pdf")
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", pdf.ContentType())

	yml, err := RendererFor("yaml")
	require.NoError(t, err)
	assert.Equal(t, "yaml", yml.Extension())

	_, err = RendererFor("docx")
	assert.Error(t, err)
}

type failingRenderer struct{}

func (failingRenderer) Render(w io.Writer, doc *Document) error {
	_, _ = w.Write([]byte("partial"))
	return errors.New("disk on fire")
}
func (failingRenderer) Extension() string   { return "bin" }
func (failingRenderer) ContentType() string { return "application/octet-stream" }

func TestExport(t *testing.T) {
	dir := t.TempDir()
	doc, err := newTestGenerator(nil).Generate(sampleEntries(), timelog.PeriodWeek, "Ada")
	require.NoError(t, err)

	path, err := Export(doc, NewPDFRenderer(), FileSaver{Dir: dir})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "time-logs-week-2026-10-17.pdf"), path)

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(content), "%PDF"))

	_, err = Export(doc, failingRenderer{}, FileSaver{Dir: dir})
	require.Error(t, err)
	assert.True(t, IsFormatError(err))

	files, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, files, 1, "a failed render leaves no file behind")
}
