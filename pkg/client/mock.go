package client

import (
	"context"
	"fmt"
	"sync"
)

// MockClient implements the Client interface for testing
// This enables comprehensive unit testing without external dependencies
type MockClient struct {
	// mu protects all fields for thread-safe concurrent access
	mu sync.RWMutex

	// Issues is returned by GetAssignedIssues in order
	Issues []*Issue

	// Worklogs maps issue keys to their worklogs
	Worklogs map[string][]*Worklog

	// APIError simulates failures of every call when set
	APIError error

	// WorklogErrors simulates failures for individual issues
	WorklogErrors map[string]error

	// AddWorklogError simulates a rejected write when set
	AddWorklogError error

	GetAssignedIssuesCallCount int
	GetIssueWorklogsCallCount  int
	AddWorklogCallCount        int

	// AddedWorklogs records successful writes
	AddedWorklogs []AddedWorklog
}

// AddedWorklog is one recorded AddWorklog call
type AddedWorklog struct {
	IssueKey         string
	TimeSpentSeconds int
	Comment          string
}

// NewMockClient creates a new mock Jira client for testing
func NewMockClient() *MockClient {
	return &MockClient{
		Worklogs:      make(map[string][]*Worklog),
		WorklogErrors: make(map[string]error),
	}
}

// AddIssue adds an issue to the assigned list
func (m *MockClient) AddIssue(issue *Issue) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Issues = append(m.Issues, issue)
}

// SetWorklogs replaces the worklogs of issueKey
func (m *MockClient) SetWorklogs(issueKey string, worklogs ...*Worklog) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Worklogs[issueKey] = worklogs
}

// GetAssignedIssues returns a copy of Issues
func (m *MockClient) GetAssignedIssues(ctx context.Context) ([]*Issue, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.GetAssignedIssuesCallCount++

	if m.APIError != nil {
		return nil, m.APIError
	}

	issues := make([]*Issue, len(m.Issues))
	copy(issues, m.Issues)
	return issues, nil
}

// GetIssueWorklogs returns the configured worklogs of issueKey
func (m *MockClient) GetIssueWorklogs(ctx context.Context, issueKey string) ([]*Worklog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.GetIssueWorklogsCallCount++

	if m.APIError != nil {
		return nil, m.APIError
	}
	if err, exists := m.WorklogErrors[issueKey]; exists {
		return nil, err
	}

	worklogs := make([]*Worklog, len(m.Worklogs[issueKey]))
	copy(worklogs, m.Worklogs[issueKey])
	return worklogs, nil
}

// AddWorklog records the call and appends a worklog to issueKey
func (m *MockClient) AddWorklog(ctx context.Context, issueKey string, timeSpentSeconds int, comment string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.AddWorklogCallCount++

	if m.APIError != nil {
		return m.APIError
	}
	if m.AddWorklogError != nil {
		return m.AddWorklogError
	}

	m.AddedWorklogs = append(m.AddedWorklogs, AddedWorklog{
		IssueKey:         issueKey,
		TimeSpentSeconds: timeSpentSeconds,
		Comment:          comment,
	})
	m.Worklogs[issueKey] = append(m.Worklogs[issueKey], &Worklog{
		ID:               fmt.Sprintf("mock-%d", len(m.AddedWorklogs)),
		Comment:          comment,
		TimeSpentSeconds: timeSpentSeconds,
	})
	return nil
}

// Reset clears recorded calls and configured errors
func (m *MockClient) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.APIError = nil
	m.AddWorklogError = nil
	m.WorklogErrors = make(map[string]error)
	m.GetAssignedIssuesCallCount = 0
	m.GetIssueWorklogsCallCount = 0
	m.AddWorklogCallCount = 0
	m.AddedWorklogs = nil
}

// SetAPIError configures every call to fail
func (m *MockClient) SetAPIError(errorType, message string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.APIError = &ClientError{Type: errorType, Message: message}
}
