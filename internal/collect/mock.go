package collect

import (
	"context"

	"github.com/chambrid/jira-timelog/pkg/timelog"
)

// MockSource provides a mock implementation for testing
type MockSource struct {
	Entries []timelog.Entry
	Err     error

	Calls int
}

// TimeLogs implements Source
func (m *MockSource) TimeLogs(ctx context.Context) ([]timelog.Entry, error) {
	m.Calls++
	if m.Err != nil {
		return nil, m.Err
	}
	entries := make([]timelog.Entry, len(m.Entries))
	copy(entries, m.Entries)
	return entries, nil
}
