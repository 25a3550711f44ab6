// Package collect builds time-log entries from live Jira data: the assigned
// issues are listed once and their worklogs fetched by a bounded worker pool.
package collect

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/chambrid/jira-timelog/pkg/client"
	"github.com/chambrid/jira-timelog/pkg/demo"
	"github.com/chambrid/jira-timelog/pkg/timelog"
	"github.com/go-logr/logr"
)

// Source supplies the time-log entries reports are built from
type Source interface {
	TimeLogs(ctx context.Context) ([]timelog.Entry, error)
}

// Collector turns assigned issues and their worklogs into entries
type Collector struct {
	client       client.Client
	concurrency  int
	accountID    string
	log          logr.Logger
	progressChan chan ProgressUpdate
}

// Result contains the outcome of one collection run
type Result struct {
	Entries         []timelog.Entry `json:"entries"`
	TotalIssues     int             `json:"total_issues"`
	ProcessedIssues int             `json:"processed_issues"`
	FailedIssues    int             `json:"failed_issues"`
	Errors          []IssueError    `json:"errors"`
	Duration        time.Duration   `json:"duration"`
	WorkerCount     int             `json:"worker_count"`
}

// IssueError records an issue whose worklogs could not be read
type IssueError struct {
	IssueKey string `json:"issue_key"`
	Message  string `json:"message"`
	Error    error  `json:"-"`
}

// ProgressUpdate represents progress information for a collection run
type ProgressUpdate struct {
	CurrentIssue   string    `json:"current_issue"`
	ProcessedCount int       `json:"processed_count"`
	TotalCount     int       `json:"total_count"`
	Percentage     float64   `json:"percentage"`
	Timestamp      time.Time `json:"timestamp"`
}

type task struct {
	issue *client.Issue
	index int
}

type taskResult struct {
	issueKey string
	index    int
	entries  []timelog.Entry
	err      error
}

// NewCollector creates a collector. concurrency is clamped to 1..10.
// A non-empty accountID keeps only worklogs that account authored.
func NewCollector(c client.Client, concurrency int, accountID string, log logr.Logger) *Collector {
	if concurrency < 1 {
		concurrency = 1
	}
	if concurrency > 10 {
		concurrency = 10
	}

	return &Collector{
		client:       c,
		concurrency:  concurrency,
		accountID:    accountID,
		log:          log.WithName("collect"),
		progressChan: make(chan ProgressUpdate, concurrency*2),
	}
}

// TimeLogs implements Source
func (c *Collector) TimeLogs(ctx context.Context) ([]timelog.Entry, error) {
	result, err := c.Collect(ctx)
	if err != nil {
		return nil, err
	}
	return result.Entries, nil
}

// Collect fetches the assigned issues and then every issue's worklogs. Entries
// come back grouped by issue in the order the issues were listed. An issue
// whose worklogs fail is recorded in Errors and skipped.
func (c *Collector) Collect(ctx context.Context) (*Result, error) {
	startTime := time.Now()

	issues, err := c.client.GetAssignedIssues(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list assigned issues: %w", err)
	}

	result := &Result{
		Entries:     []timelog.Entry{},
		TotalIssues: len(issues),
		Errors:      make([]IssueError, 0),
		WorkerCount: c.concurrency,
	}
	if len(issues) == 0 {
		result.Duration = time.Since(startTime)
		return result, nil
	}

	taskChan := make(chan task, len(issues))
	resultChan := make(chan taskResult, len(issues))

	var wg sync.WaitGroup
	for i := 0; i < c.concurrency; i++ {
		wg.Add(1)
		go c.worker(ctx, taskChan, resultChan, &wg)
	}

	go func() {
		defer close(taskChan)
		for i, issue := range issues {
			select {
			case taskChan <- task{issue: issue, index: i}:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(resultChan)
	}()

	perIssue := make([][]timelog.Entry, len(issues))
	for r := range resultChan {
		result.ProcessedIssues++

		if r.err != nil {
			result.FailedIssues++
			result.Errors = append(result.Errors, IssueError{
				IssueKey: r.issueKey,
				Message:  r.err.Error(),
				Error:    r.err,
			})
			c.log.Error(r.err, "skipping issue worklogs", "issue", r.issueKey)
		} else {
			perIssue[r.index] = r.entries
		}

		select {
		case c.progressChan <- ProgressUpdate{
			CurrentIssue:   r.issueKey,
			ProcessedCount: result.ProcessedIssues,
			TotalCount:     result.TotalIssues,
			Percentage:     float64(result.ProcessedIssues) / float64(result.TotalIssues) * 100,
			Timestamp:      time.Now(),
		}:
		default:
			// Non-blocking send - skip if channel is full
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	for _, entries := range perIssue {
		result.Entries = append(result.Entries, entries...)
	}
	result.Duration = time.Since(startTime)

	c.log.V(1).Info("collected time logs", "issues", result.TotalIssues, "entries", len(result.Entries), "failed", result.FailedIssues, "duration", result.Duration)
	return result, nil
}

// GetProgressChannel returns a channel for receiving progress updates
func (c *Collector) GetProgressChannel() <-chan ProgressUpdate {
	return c.progressChan
}

func (c *Collector) worker(ctx context.Context, tasks <-chan task, results chan<- taskResult, wg *sync.WaitGroup) {
	defer wg.Done()

	for {
		select {
		case t, ok := <-tasks:
			if !ok {
				return
			}

			worklogs, err := c.client.GetIssueWorklogs(ctx, t.issue.Key)
			r := taskResult{issueKey: t.issue.Key, index: t.index, err: err}
			if err == nil {
				r.entries = timelog.FromWorklogs(t.issue, c.ownWorklogs(worklogs))
			}

			select {
			case results <- r:
			case <-ctx.Done():
				return
			}

		case <-ctx.Done():
			return
		}
	}
}

func (c *Collector) ownWorklogs(worklogs []*client.Worklog) []*client.Worklog {
	if c.accountID == "" {
		return worklogs
	}
	own := make([]*client.Worklog, 0, len(worklogs))
	for _, w := range worklogs {
		if w.Author.AccountID == c.accountID {
			own = append(own, w)
		}
	}
	return own
}

// DemoSource serves the demo provider's fixed time-log data
type DemoSource struct {
	Provider *demo.Provider
}

// TimeLogs implements Source
func (d DemoSource) TimeLogs(ctx context.Context) ([]timelog.Entry, error) {
	return d.Provider.GetTimeLogData(ctx)
}
