package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/andygrunwald/go-jira"
	"github.com/chambrid/jira-timelog/pkg/adf"
	"github.com/chambrid/jira-timelog/pkg/config"
	"github.com/chambrid/jira-timelog/pkg/metrics"
	"github.com/chambrid/jira-timelog/pkg/ratelimit"
	"github.com/chambrid/jira-timelog/pkg/session"
	"github.com/go-logr/logr"
)

// AssignedJQL selects the current user's issues, most recently updated first
const AssignedJQL = "assignee = currentUser() ORDER BY updated DESC"

// searchFields restricts search results to what Issue carries
var searchFields = []string{
	"summary", "description", "status", "priority", "issuetype",
	"created", "updated", "duedate", "comment",
}

const pageSize = 100

// Client defines the interface for Jira operations
// This enables dependency injection and testing with mock implementations
type Client interface {
	GetAssignedIssues(ctx context.Context) ([]*Issue, error)
	GetIssueWorklogs(ctx context.Context, issueKey string) ([]*Worklog, error)
	AddWorklog(ctx context.Context, issueKey string, timeSpentSeconds int, comment string) error
}

// JIRAClient implements Client against Jira Cloud through the Atlassian API gateway
type JIRAClient struct {
	jira        *jira.Client
	resolver    *CloudResolver
	sessions    session.Provider
	searchLimit int
	log         logr.Logger
	metrics     *metrics.Metrics
	now         func() time.Time
}

// NewClient creates a Jira client. Requests go through the rate-limited
// transport and carry the bearer token of whatever session is current.
func NewClient(cfg *config.Config, sessions session.Provider, log logr.Logger, m *metrics.Metrics) (*JIRAClient, error) {
	rateLimiter := ratelimit.NewRateLimiter(cfg)

	transport := ratelimit.NewRateLimitedTransport(nil, rateLimiter)
	transport.Log = log.WithName("ratelimit")

	httpClient := &http.Client{
		Transport: transport,
		Timeout:   cfg.HTTPTimeout,
	}

	jiraClient, err := jira.NewClient(httpClient, cfg.APIURL)
	if err != nil {
		return nil, &ClientError{
			Type:    ErrTypeTransport,
			Message: "failed to create Jira client",
			Err:     err,
		}
	}

	log = log.WithName("jira")
	return &JIRAClient{
		jira:        jiraClient,
		resolver:    NewCloudResolver(jiraClient, log, m),
		sessions:    sessions,
		searchLimit: cfg.SearchLimit,
		log:         log,
		metrics:     m,
		now:         time.Now,
	}, nil
}

// Resolver exposes the cloud resolver shared by every call of this client
func (c *JIRAClient) Resolver() *CloudResolver {
	return c.resolver
}

// AccessibleResources lists the sites the current session can reach
func (c *JIRAClient) AccessibleResources(ctx context.Context) ([]*CloudResource, error) {
	s, err := c.session(ctx)
	if err != nil {
		return nil, err
	}
	return c.resolver.Resources(ctx, s.AccessToken)
}

// GetAssignedIssues returns the current user's issues, most recently updated
// first, up to the configured search limit
func (c *JIRAClient) GetAssignedIssues(ctx context.Context) ([]*Issue, error) {
	s, resource, err := c.prepare(ctx)
	if err != nil {
		return nil, err
	}

	var allIssues []*Issue
	startAt := 0

	for len(allIssues) < c.searchLimit {
		maxResults := pageSize
		if remaining := c.searchLimit - len(allIssues); remaining < maxResults {
			maxResults = remaining
		}

		query := url.Values{}
		query.Set("jql", AssignedJQL)
		query.Set("fields", strings.Join(searchFields, ","))
		query.Set("startAt", strconv.Itoa(startAt))
		query.Set("maxResults", strconv.Itoa(maxResults))

		var page searchResponse
		path := c.cloudPath(resource, "rest/api/3/search") + "?" + query.Encode()
		resp, err := send(ctx, c.jira, c.metrics, "search", http.MethodGet, path, s.AccessToken, nil, &page)
		if err != nil {
			return nil, c.handleAPIError(err, resp, s, "assigned issues")
		}

		for _, w := range page.Issues {
			allIssues = append(allIssues, convertIssue(w))
		}

		// An absent issues field reads as an empty page
		if len(page.Issues) == 0 || startAt+len(page.Issues) >= page.Total {
			break
		}
		startAt += len(page.Issues)
	}

	SortByUpdated(allIssues)

	c.log.V(1).Info("fetched assigned issues", "count", len(allIssues), "cloudId", resource.ID)
	return allIssues, nil
}

// GetIssueWorklogs returns every worklog recorded on issueKey
func (c *JIRAClient) GetIssueWorklogs(ctx context.Context, issueKey string) ([]*Worklog, error) {
	if issueKey == "" {
		return nil, &ClientError{Type: ErrTypeInvalidInput, Message: "issue key cannot be empty"}
	}

	s, resource, err := c.prepare(ctx)
	if err != nil {
		return nil, err
	}

	var worklogs []*Worklog
	startAt := 0

	for {
		query := url.Values{}
		query.Set("startAt", strconv.Itoa(startAt))
		query.Set("maxResults", strconv.Itoa(pageSize))

		var page worklogResponse
		path := c.worklogPath(resource, issueKey) + "?" + query.Encode()
		resp, err := send(ctx, c.jira, c.metrics, "get_worklogs", http.MethodGet, path, s.AccessToken, nil, &page)
		if err != nil {
			return nil, c.handleAPIError(err, resp, s, issueKey)
		}

		for _, w := range page.Worklogs {
			worklogs = append(worklogs, convertWorklog(w))
		}

		if len(page.Worklogs) == 0 || startAt+len(page.Worklogs) >= page.Total {
			break
		}
		startAt += len(page.Worklogs)
	}

	return worklogs, nil
}

// AddWorklog appends a worklog to issueKey. timeSpentSeconds is passed through
// unchecked; Jira decides what it accepts. An empty comment sends no comment.
func (c *JIRAClient) AddWorklog(ctx context.Context, issueKey string, timeSpentSeconds int, comment string) error {
	if issueKey == "" {
		return &ClientError{Type: ErrTypeInvalidInput, Message: "issue key cannot be empty"}
	}

	s, resource, err := c.prepare(ctx)
	if err != nil {
		return err
	}

	body := worklogRequest{TimeSpentSeconds: timeSpentSeconds}
	if comment != "" {
		body.Comment = adf.FromText(comment)
	}

	resp, err := send(ctx, c.jira, c.metrics, "add_worklog", http.MethodPost, c.worklogPath(resource, issueKey), s.AccessToken, body, nil)
	if err != nil {
		return c.handleAPIError(err, resp, s, issueKey)
	}

	c.log.Info("worklog added", "issue", issueKey, "seconds", timeSpentSeconds)
	return nil
}

// prepare fetches the current session and resolves its cloud resource
func (c *JIRAClient) prepare(ctx context.Context) (*session.Session, *CloudResource, error) {
	s, err := c.session(ctx)
	if err != nil {
		return nil, nil, err
	}

	resource, err := c.resolver.Resolve(ctx, s.AccessToken)
	if err != nil {
		return nil, nil, err
	}
	return s, resource, nil
}

func (c *JIRAClient) session(ctx context.Context) (*session.Session, error) {
	s, err := c.sessions.Session(ctx)
	if err != nil || s == nil || s.AccessToken == "" {
		return nil, &ClientError{
			Type:    ErrTypeNoToken,
			Message: "no access token available",
			Err:     err,
		}
	}
	if !s.Valid(c.now()) {
		return nil, &ClientError{
			Type:    ErrTypeSessionExpired,
			Message: fmt.Sprintf("access token expired at %s", s.ExpiresAt.Format(time.RFC3339)),
		}
	}
	return s, nil
}

func (c *JIRAClient) cloudPath(resource *CloudResource, path string) string {
	return "ex/jira/" + url.PathEscape(resource.ID) + "/" + path
}

func (c *JIRAClient) worklogPath(resource *CloudResource, issueKey string) string {
	return c.cloudPath(resource, "rest/api/3/issue/"+url.PathEscape(issueKey)+"/worklog")
}

// handleAPIError creates appropriate error based on HTTP response. A 401 also
// drops the cached cloud resource so the next call rediscovers it.
func (c *JIRAClient) handleAPIError(err error, resp *jira.Response, s *session.Session, context string) error {
	if resp == nil || resp.Response == nil {
		return &ClientError{
			Type:    ErrTypeTransport,
			Message: fmt.Sprintf("network/connection error: %v", err),
			Err:     err,
			Context: context,
		}
	}

	if isSuccess(resp) {
		return &ClientError{
			Type:    ErrTypeDecode,
			Message: "failed to decode Jira response",
			Err:     err,
			Context: context,
		}
	}

	clientErr := &ClientError{
		Type:       ErrTypeHTTP,
		Err:        err,
		Context:    context,
		StatusCode: resp.StatusCode,
		StatusText: statusText(resp),
	}

	switch resp.StatusCode {
	case http.StatusUnauthorized:
		c.resolver.Invalidate(s.AccessToken)
		clientErr.Type = ErrTypeAuthentication
		clientErr.Message = "authentication failed - access token rejected"
	case http.StatusForbidden:
		clientErr.Type = ErrTypeAuthorization
		clientErr.Message = "access denied - insufficient permissions"
	case http.StatusNotFound:
		clientErr.Type = ErrTypeNotFound
		clientErr.Message = "resource not found"
	case http.StatusTooManyRequests:
		clientErr.Message = "rate limit exceeded - consider increasing RATE_LIMIT_DELAY"
	case http.StatusInternalServerError, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		clientErr.Message = "server error - Jira may be overloaded"
	default:
		clientErr.Message = "Jira API request failed"
	}

	return clientErr
}
