package client

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/chambrid/jira-timelog/pkg/adf"
)

// Issue is the normalized view of a Jira issue assigned to the current user
type Issue struct {
	ID          string     `json:"id" yaml:"id"`
	Key         string     `json:"key" yaml:"key"`
	Summary     string     `json:"summary" yaml:"summary"`
	Description string     `json:"description,omitempty" yaml:"description,omitempty"`
	Status      string     `json:"status" yaml:"status"`
	Priority    *Priority  `json:"priority,omitempty" yaml:"priority,omitempty"`
	IssueType   IssueType  `json:"issuetype" yaml:"issuetype"`
	Created     string     `json:"created" yaml:"created"`
	Updated     string     `json:"updated" yaml:"updated"`
	DueDate     string     `json:"duedate,omitempty" yaml:"duedate,omitempty"`
	Comments    []*Comment `json:"comments,omitempty" yaml:"comments,omitempty"`
}

// Priority of an issue
type Priority struct {
	Name    string `json:"name" yaml:"name"`
	IconURL string `json:"iconUrl,omitempty" yaml:"iconUrl,omitempty"`
}

// IssueType of an issue
type IssueType struct {
	Name    string `json:"name" yaml:"name"`
	IconURL string `json:"iconUrl,omitempty" yaml:"iconUrl,omitempty"`
}

// User represents Jira user information. AvatarURLs is keyed by size token ("48x48").
type User struct {
	AccountID   string            `json:"accountId,omitempty" yaml:"accountId,omitempty"`
	DisplayName string            `json:"displayName" yaml:"displayName"`
	AvatarURLs  map[string]string `json:"avatarUrls,omitempty" yaml:"avatarUrls,omitempty"`
}

// Comment on an issue, body flattened to plain text
type Comment struct {
	ID      string `json:"id" yaml:"id"`
	Author  User   `json:"author" yaml:"author"`
	Body    string `json:"body" yaml:"body"`
	Created string `json:"created" yaml:"created"`
	Updated string `json:"updated" yaml:"updated"`
}

// Worklog is one unit of logged work. TimeSpentSeconds is authoritative;
// TimeSpent is Jira's display string ("3h 20m").
type Worklog struct {
	ID               string `json:"id" yaml:"id"`
	Author           User   `json:"author" yaml:"author"`
	Comment          string `json:"comment,omitempty" yaml:"comment,omitempty"`
	Started          string `json:"started" yaml:"started"`
	TimeSpent        string `json:"timeSpent" yaml:"timeSpent"`
	TimeSpentSeconds int    `json:"timeSpentSeconds" yaml:"timeSpentSeconds"`
}

// CloudResource is a Jira Cloud site the access token can reach
type CloudResource struct {
	ID        string   `json:"id" yaml:"id"`
	URL       string   `json:"url" yaml:"url"`
	Name      string   `json:"name,omitempty" yaml:"name,omitempty"`
	Scopes    []string `json:"scopes,omitempty" yaml:"scopes,omitempty"`
	AvatarURL string   `json:"avatarUrl,omitempty" yaml:"avatarUrl,omitempty"`
}

// Wire shapes of the v3 REST API. go-jira's own Issue type models v2, where
// description and comment bodies are strings rather than ADF documents.

type searchResponse struct {
	StartAt    int         `json:"startAt"`
	MaxResults int         `json:"maxResults"`
	Total      int         `json:"total"`
	Issues     []wireIssue `json:"issues"`
}

type wireIssue struct {
	ID     string          `json:"id"`
	Key    string          `json:"key"`
	Fields wireIssueFields `json:"fields"`
}

type wireIssueFields struct {
	Summary     string          `json:"summary"`
	Description json.RawMessage `json:"description"`
	Status      *struct {
		Name string `json:"name"`
	} `json:"status"`
	Priority  *wireNamedIcon `json:"priority"`
	IssueType *wireNamedIcon `json:"issuetype"`
	Created   string         `json:"created"`
	Updated   string         `json:"updated"`
	DueDate   string         `json:"duedate"`
	Comment   *struct {
		Comments []wireComment `json:"comments"`
	} `json:"comment"`
}

type wireNamedIcon struct {
	Name    string `json:"name"`
	IconURL string `json:"iconUrl"`
}

type wireUser struct {
	AccountID   string            `json:"accountId"`
	DisplayName string            `json:"displayName"`
	AvatarURLs  map[string]string `json:"avatarUrls"`
}

type wireComment struct {
	ID      string          `json:"id"`
	Author  *wireUser       `json:"author"`
	Body    json.RawMessage `json:"body"`
	Created string          `json:"created"`
	Updated string          `json:"updated"`
}

type worklogResponse struct {
	StartAt    int           `json:"startAt"`
	MaxResults int           `json:"maxResults"`
	Total      int           `json:"total"`
	Worklogs   []wireWorklog `json:"worklogs"`
}

type wireWorklog struct {
	ID               string          `json:"id"`
	Author           *wireUser       `json:"author"`
	Comment          json.RawMessage `json:"comment"`
	Started          string          `json:"started"`
	TimeSpent        string          `json:"timeSpent"`
	TimeSpentSeconds int             `json:"timeSpentSeconds"`
}

type worklogRequest struct {
	TimeSpentSeconds int           `json:"timeSpentSeconds"`
	Comment          *adf.Document `json:"comment,omitempty"`
}

type wireResource struct {
	ID        string   `json:"id"`
	URL       string   `json:"url"`
	Name      string   `json:"name"`
	Scopes    []string `json:"scopes"`
	AvatarURL string   `json:"avatarUrl"`
}

// convertIssue maps the v3 wire issue onto Issue, dropping unknown fields
func convertIssue(w wireIssue) *Issue {
	issue := &Issue{
		ID:          w.ID,
		Key:         w.Key,
		Summary:     w.Fields.Summary,
		Description: adf.PlainText(w.Fields.Description),
		Created:     w.Fields.Created,
		Updated:     w.Fields.Updated,
		DueDate:     w.Fields.DueDate,
	}

	if w.Fields.Status != nil {
		issue.Status = w.Fields.Status.Name
	}
	if w.Fields.Priority != nil {
		issue.Priority = &Priority{Name: w.Fields.Priority.Name, IconURL: w.Fields.Priority.IconURL}
	}
	if w.Fields.IssueType != nil {
		issue.IssueType = IssueType{Name: w.Fields.IssueType.Name, IconURL: w.Fields.IssueType.IconURL}
	}

	if w.Fields.Comment != nil {
		for _, c := range w.Fields.Comment.Comments {
			issue.Comments = append(issue.Comments, &Comment{
				ID:      c.ID,
				Author:  convertUser(c.Author),
				Body:    adf.PlainText(c.Body),
				Created: c.Created,
				Updated: c.Updated,
			})
		}
	}

	return issue
}

func convertUser(w *wireUser) User {
	if w == nil {
		return User{}
	}
	return User{AccountID: w.AccountID, DisplayName: w.DisplayName, AvatarURLs: w.AvatarURLs}
}

func convertWorklog(w wireWorklog) *Worklog {
	return &Worklog{
		ID:               w.ID,
		Author:           convertUser(w.Author),
		Comment:          adf.PlainText(w.Comment),
		Started:          w.Started,
		TimeSpent:        w.TimeSpent,
		TimeSpentSeconds: w.TimeSpentSeconds,
	}
}

// SortByUpdated orders issues most recently updated first. Ties keep their
// order; issues whose Updated cannot be parsed go last.
func SortByUpdated(issues []*Issue) {
	sort.SliceStable(issues, func(i, j int) bool {
		return updatedAt(issues[i]).After(updatedAt(issues[j]))
	})
}

func updatedAt(issue *Issue) time.Time {
	t, err := ParseTime(issue.Updated)
	if err != nil {
		return time.Time{}
	}
	return t
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.000-0700",
	"2006-01-02T15:04:05-0700",
	"2006-01-02",
}

// ParseTime parses the timestamp forms Jira and the demo data use. Date-only
// values are taken as UTC midnight.
func ParseTime(value string) (time.Time, error) {
	return ParseTimeIn(value, time.UTC)
}

// ParseTimeIn is ParseTime with date-only values taken as midnight in loc
func ParseTimeIn(value string, loc *time.Location) (time.Time, error) {
	for _, layout := range timeLayouts {
		if t, err := time.ParseInLocation(layout, value, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", value)
}
