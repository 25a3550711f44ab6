package client

import (
	"context"

	"github.com/chambrid/jira-timelog/pkg/metrics"
	"github.com/go-logr/logr"
)

// FailSoft is the boundary for callers that never want an error: reads degrade
// to empty results and writes to false. The cause is logged and counted.
type FailSoft struct {
	client  Client
	log     logr.Logger
	metrics *metrics.Metrics
}

// NewFailSoft wraps c
func NewFailSoft(c Client, log logr.Logger, m *metrics.Metrics) *FailSoft {
	return &FailSoft{client: c, log: log.WithName("failsoft"), metrics: m}
}

// AssignedIssues returns the assigned issues, or an empty slice on any failure
func (f *FailSoft) AssignedIssues(ctx context.Context) []*Issue {
	issues, err := f.client.GetAssignedIssues(ctx)
	if err != nil {
		f.degrade("get_assigned_issues", err)
		return []*Issue{}
	}
	return issues
}

// IssueWorklogs returns the worklogs of issueKey, or an empty slice on any failure
func (f *FailSoft) IssueWorklogs(ctx context.Context, issueKey string) []*Worklog {
	worklogs, err := f.client.GetIssueWorklogs(ctx, issueKey)
	if err != nil {
		f.degrade("get_worklogs", err, "issue", issueKey)
		return []*Worklog{}
	}
	return worklogs
}

// AddWorklog reports whether Jira accepted the worklog
func (f *FailSoft) AddWorklog(ctx context.Context, issueKey string, timeSpentSeconds int, comment string) bool {
	if err := f.client.AddWorklog(ctx, issueKey, timeSpentSeconds, comment); err != nil {
		f.degrade("add_worklog", err, "issue", issueKey)
		return false
	}
	return true
}

func (f *FailSoft) degrade(operation string, err error, keysAndValues ...interface{}) {
	f.metrics.ObserveFailSoft(operation)
	f.log.Error(err, "Jira call failed, continuing with empty result", append([]interface{}{"operation", operation}, keysAndValues...)...)
}
