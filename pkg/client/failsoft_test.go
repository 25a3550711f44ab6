package client

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/chambrid/jira-timelog/pkg/metrics"
	"github.com/go-logr/logr"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFailSoft_AssignedIssues(t *testing.T) {
	mock := NewMockClient()
	mock.AddIssue(&Issue{Key: "PROJ-1"})
	failSoft := NewFailSoft(mock, logr.Discard(), nil)

	issues := failSoft.AssignedIssues(context.Background())
	require.Len(t, issues, 1)
	assert.Equal(t, "PROJ-1", issues[0].Key)

	mock.SetAPIError(ErrTypeTransport, "connection refused")
	issues = failSoft.AssignedIssues(context.Background())
	assert.NotNil(t, issues)
	assert.Empty(t, issues)
}

func TestFailSoft_IssueWorklogs(t *testing.T) {
	mock := NewMockClient()
	mock.SetWorklogs("PROJ-1", &Worklog{ID: "1", TimeSpentSeconds: 60})
	mock.WorklogErrors["PROJ-2"] = errors.New("boom")
	failSoft := NewFailSoft(mock, logr.Discard(), nil)

	assert.Len(t, failSoft.IssueWorklogs(context.Background(), "PROJ-1"), 1)
	assert.Empty(t, failSoft.IssueWorklogs(context.Background(), "PROJ-2"))
}

func TestFailSoft_AddWorklog_Statuses(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		expected bool
	}{
		{"created", http.StatusCreated, true},
		{"ok", http.StatusOK, true},
		{"forbidden", http.StatusForbidden, false},
		{"bad request", http.StatusBadRequest, false},
		{"server error", http.StatusInternalServerError, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := &fakeJira{postStatus: tt.status}
			m := metrics.New()
			failSoft := NewFailSoft(newTestClient(t, fake, nil), logr.Discard(), m)

			var ok bool
			assert.NotPanics(t, func() {
				ok = failSoft.AddWorklog(context.Background(), "DEMO-1", 3600, "test")
			})
			assert.Equal(t, tt.expected, ok)

			degraded := 0
			if !tt.expected {
				degraded = 1
			}
			count, err := testutil.GatherAndCount(m.Registry(), "timelog_failsoft_degradations_total")
			require.NoError(t, err)
			assert.Equal(t, degraded, count)
		})
	}
}

func TestFailSoft_AddWorklog_Mock(t *testing.T) {
	mock := NewMockClient()
	failSoft := NewFailSoft(mock, logr.Discard(), nil)

	assert.True(t, failSoft.AddWorklog(context.Background(), "DEMO-1", 3600, "test"))
	require.Len(t, mock.AddedWorklogs, 1)
	assert.Equal(t, AddedWorklog{IssueKey: "DEMO-1", TimeSpentSeconds: 3600, Comment: "test"}, mock.AddedWorklogs[0])

	mock.AddWorklogError = &ClientError{Type: ErrTypeAuthorization, Message: "denied"}
	assert.False(t, failSoft.AddWorklog(context.Background(), "DEMO-1", 3600, "test"))
	assert.Equal(t, 2, mock.AddWorklogCallCount)
}
