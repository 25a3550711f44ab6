package demo

import (
	"time"

	"github.com/chambrid/jira-timelog/pkg/client"
	"github.com/chambrid/jira-timelog/pkg/timelog"
)

var (
	issueTypeBug   = client.IssueType{Name: "Bug", IconURL: "https://cdn-icons-png.flaticon.com/512/2621/2621218.png"}
	issueTypeTask  = client.IssueType{Name: "Task", IconURL: "https://cdn-icons-png.flaticon.com/512/2098/2098402.png"}
	issueTypeStory = client.IssueType{Name: "Story", IconURL: "https://cdn-icons-png.flaticon.com/512/5956/5956592.png"}
	issueTypeEpic  = client.IssueType{Name: "Epic", IconURL: "https://cdn-icons-png.flaticon.com/512/7605/7605198.png"}
)

// Statuses is the closed set of statuses the demo issues use
var Statuses = []string{"To Do", "In Progress", "In Review", "Done"}

type commentSeed struct {
	id      string
	body    string
	daysAgo int
}

// issueSeed offsets are in days relative to the clock; dueIn 0 means no due date
type issueSeed struct {
	key         string
	summary     string
	description string
	status      string
	priority    string
	issueType   client.IssueType
	createdAgo  int
	updatedAgo  int
	dueIn       int
	comments    []commentSeed
}

var issueSeeds = []issueSeed{
	{
		key:         "DEMO-1",
		summary:     "Implement user authentication flow",
		description: "Add OAuth2 authentication with Jira and email/password login options",
		status:      "In Progress",
		priority:    "High",
		issueType:   issueTypeStory,
		createdAgo:  15,
		updatedAgo:  2,
		dueIn:       5,
		comments: []commentSeed{
			{"1", "I'm working on integrating the Jira OAuth", 5},
			{"2", "Added email/password authentication yesterday, will now focus on the OAuth part", 3},
		},
	},
	{
		key:         "DEMO-2",
		summary:     "Design dashboard layout",
		description: "Create a responsive dashboard layout with sidebar navigation and main content area",
		status:      "Done",
		priority:    "Medium",
		issueType:   issueTypeStory,
		createdAgo:  10,
		updatedAgo:  1,
		dueIn:       2,
		comments: []commentSeed{
			{"3", "Dashboard layout is complete, added responsive design for mobile", 1},
		},
	},
	{
		key:         "DEMO-3",
		summary:     "Fix time tracking component",
		description: "The time tracking component doesn't show the correct hours spent on each task",
		status:      "In Progress",
		priority:    "Highest",
		issueType:   issueTypeBug,
		createdAgo:  5,
		updatedAgo:  1,
		dueIn:       1,
		comments: []commentSeed{
			{"4", "Found the issue, it's related to timezone conversion", 2},
		},
	},
	{
		key:         "DEMO-4",
		summary:     "Implement report generation feature",
		description: "Add functionality to generate PDF reports of time spent on tasks",
		status:      "To Do",
		priority:    "Medium",
		issueType:   issueTypeEpic,
		createdAgo:  20,
		updatedAgo:  18,
		dueIn:       10,
	},
	{
		key:         "DEMO-5",
		summary:     "Add Git repository integration",
		description: "Connect to GitHub/BitBucket to pull commit information",
		status:      "To Do",
		priority:    "Medium",
		issueType:   issueTypeStory,
		createdAgo:  12,
		updatedAgo:  8,
		dueIn:       7,
		comments: []commentSeed{
			{"5", "Need to research available APIs for GitHub and BitBucket", 8},
		},
	},
	{
		key:         "DEMO-6",
		summary:     "Improve mobile responsiveness",
		description: "Optimize UI for mobile devices and tablets",
		status:      "In Review",
		priority:    "Low",
		issueType:   issueTypeTask,
		createdAgo:  8,
		updatedAgo:  4,
		comments: []commentSeed{
			{"6", "Mobile layout improvements added, please review on different screen sizes", 4},
		},
	},
	{
		key:         "DEMO-7",
		summary:     "Calendar integration with Google Calendar",
		description: "Import meetings from Google Calendar to automatically log discussion time",
		status:      "To Do",
		priority:    "High",
		issueType:   issueTypeStory,
		createdAgo:  25,
		updatedAgo:  15,
		dueIn:       15,
	},
}

type timeLogSeed struct {
	id          string
	issueKey    string
	summary     string
	daysAgo     int
	minutes     int
	description string
}

var timeLogSeeds = []timeLogSeed{
	{"log-1", "DEMO-1", "Implement user authentication flow", 2, 180, "Working on OAuth integration with Jira"},
	{"log-2", "DEMO-3", "Fix time tracking component", 1, 120, "Debugging timezone issues in the time tracking component"},
	{"log-3", "DEMO-2", "Design dashboard layout", 3, 240, "Creating responsive design for the dashboard"},
	{"log-4", "DEMO-6", "Improve mobile responsiveness", 4, 90, "Testing and fixing UI on mobile devices"},
}

// Issues builds the demo issues relative to now, in their fixed order
func Issues(now time.Time) []*client.Issue {
	issues := make([]*client.Issue, 0, len(issueSeeds))
	for _, seed := range issueSeeds {
		issue := &client.Issue{
			ID:          seed.key,
			Key:         seed.key,
			Summary:     seed.summary,
			Description: seed.description,
			Status:      seed.status,
			Priority:    &client.Priority{Name: seed.priority},
			IssueType:   seed.issueType,
			Created:     formatISO(daysAgo(now, seed.createdAgo)),
			Updated:     formatISO(daysAgo(now, seed.updatedAgo)),
			Comments:    []*client.Comment{},
		}
		if seed.dueIn > 0 {
			issue.DueDate = formatISO(daysAgo(now, -seed.dueIn))
		}
		for _, c := range seed.comments {
			at := formatISO(daysAgo(now, c.daysAgo))
			issue.Comments = append(issue.Comments, &client.Comment{
				ID:      c.id,
				Author:  author(),
				Body:    c.body,
				Created: at,
				Updated: at,
			})
		}
		issues = append(issues, issue)
	}
	return issues
}

// TimeLogData builds the demo time-log entries relative to now
func TimeLogData(now time.Time) []timelog.Entry {
	entries := make([]timelog.Entry, 0, len(timeLogSeeds))
	for _, seed := range timeLogSeeds {
		entries = append(entries, timelog.Entry{
			ID:           seed.id,
			IssueKey:     seed.issueKey,
			IssueSummary: seed.summary,
			Date:         formatISO(daysAgo(now, seed.daysAgo)),
			TimeSpent:    seed.minutes,
			Description:  seed.description,
		})
	}
	return entries
}

// daysAgo keeps the wall-clock time, as calendar day arithmetic does
func daysAgo(now time.Time, days int) time.Time {
	return now.AddDate(0, 0, -days)
}
