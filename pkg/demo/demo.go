// Package demo serves a fixed, realistic dataset in place of Jira so the whole
// product can be exercised without an Atlassian account.
package demo

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/chambrid/jira-timelog/pkg/client"
	"github.com/chambrid/jira-timelog/pkg/timelog"
	"github.com/go-logr/logr"
)

const (
	// DefaultIssueLatency and DefaultTimeLogLatency mimic a round trip to Jira
	DefaultIssueLatency   = 800 * time.Millisecond
	DefaultTimeLogLatency = 600 * time.Millisecond

	demoUser   = "Demo User"
	demoAvatar = "https://secure.gravatar.com/avatar/1234567890abcdef?d=https%3A%2F%2Favatar-management.service.mailchimp.com%2F1.0%2Fimages%2Fdefault-avatar.png"
)

// Options tune the provider. The zero value has no latency and uses time.Now.
type Options struct {
	Now            func() time.Time
	IssueLatency   time.Duration
	TimeLogLatency time.Duration
}

// DefaultOptions returns the latencies used outside tests
func DefaultOptions() Options {
	return Options{
		Now:            time.Now,
		IssueLatency:   DefaultIssueLatency,
		TimeLogLatency: DefaultTimeLogLatency,
	}
}

// Provider implements client.Client over the demo dataset. Dates are relative
// to the provider clock so the data always looks current.
type Provider struct {
	opts Options
	log  logr.Logger

	mu    sync.Mutex
	added []timelog.Entry
}

var _ client.Client = (*Provider)(nil)

// New creates a demo provider
func New(opts Options, log logr.Logger) *Provider {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Provider{opts: opts, log: log.WithName("demo")}
}

// GetAssignedIssues returns DEMO-1 through DEMO-7, most recently updated first
func (p *Provider) GetAssignedIssues(ctx context.Context) ([]*client.Issue, error) {
	if err := p.wait(ctx, p.opts.IssueLatency); err != nil {
		return nil, err
	}
	issues := Issues(p.opts.Now())
	client.SortByUpdated(issues)
	return issues, nil
}

// GetTimeLogData returns the fixed time-log entries followed by any added in
// this process
func (p *Provider) GetTimeLogData(ctx context.Context) ([]timelog.Entry, error) {
	if err := p.wait(ctx, p.opts.TimeLogLatency); err != nil {
		return nil, err
	}
	return p.entries(), nil
}

// GetIssueWorklogs presents the time-log entries of issueKey as worklogs
func (p *Provider) GetIssueWorklogs(ctx context.Context, issueKey string) ([]*client.Worklog, error) {
	if err := p.wait(ctx, p.opts.TimeLogLatency); err != nil {
		return nil, err
	}

	worklogs := []*client.Worklog{}
	for _, entry := range p.entries() {
		if entry.IssueKey != issueKey {
			continue
		}
		worklogs = append(worklogs, &client.Worklog{
			ID:               entry.ID,
			Author:           author(),
			Comment:          entry.Description,
			Started:          entry.Date,
			TimeSpent:        timelog.FormatMinutes(entry.TimeSpent),
			TimeSpentSeconds: entry.TimeSpent * 60,
		})
	}
	return worklogs, nil
}

// AddWorklog records the worklog in memory; it never reaches Jira
func (p *Provider) AddWorklog(ctx context.Context, issueKey string, timeSpentSeconds int, comment string) error {
	summary := ""
	for _, issue := range Issues(p.opts.Now()) {
		if issue.Key == issueKey {
			summary = issue.Summary
			break
		}
	}

	p.mu.Lock()
	entry := timelog.Entry{
		ID:           fmt.Sprintf("log-%d", len(timeLogSeeds)+len(p.added)+1),
		IssueKey:     issueKey,
		IssueSummary: summary,
		Date:         formatISO(p.opts.Now()),
		TimeSpent:    timeSpentSeconds / 60,
		Description:  comment,
	}
	p.added = append(p.added, entry)
	p.mu.Unlock()

	p.log.Info("demo worklog recorded", "issue", issueKey, "seconds", timeSpentSeconds, "id", entry.ID)
	return nil
}

func (p *Provider) entries() []timelog.Entry {
	entries := TimeLogData(p.opts.Now())

	p.mu.Lock()
	defer p.mu.Unlock()
	return append(entries, p.added...)
}

// wait simulates latency, returning early if ctx is done
func (p *Provider) wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func author() client.User {
	return client.User{DisplayName: demoUser, AvatarURLs: map[string]string{"48x48": demoAvatar}}
}

func formatISO(t time.Time) string {
	return t.Format(time.RFC3339)
}
