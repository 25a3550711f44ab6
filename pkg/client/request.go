package client

import (
	"context"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/andygrunwald/go-jira"
	"github.com/chambrid/jira-timelog/pkg/metrics"
)

// send issues one bearer-authenticated call through go-jira and decodes a 2xx
// body into v. The returned response is nil only when Jira was never reached.
func send(ctx context.Context, jc *jira.Client, m *metrics.Metrics, operation, method, path, token string, body, v interface{}) (*jira.Response, error) {
	req, err := jc.NewRequestWithContext(ctx, method, path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := jc.Do(req, v)

	code := 0
	if resp != nil && resp.Response != nil {
		code = resp.StatusCode
		drain(resp.Body)
	}
	m.ObserveRequest(operation, code, time.Since(start))

	return resp, err
}

// drain lets the connection be reused; go-jira leaves the body open on error
// responses and when there is nothing to decode into
func drain(body io.ReadCloser) {
	if body == nil {
		return
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(body, 64<<10))
	_ = body.Close()
}

func isSuccess(resp *jira.Response) bool {
	return resp != nil && resp.Response != nil && resp.StatusCode >= 200 && resp.StatusCode < 300
}

// statusText prefers the reason phrase Jira sent over the canonical one
func statusText(resp *jira.Response) string {
	text := strings.TrimSpace(strings.TrimPrefix(resp.Status, strconv.Itoa(resp.StatusCode)))
	if text == "" {
		return http.StatusText(resp.StatusCode)
	}
	return text
}
