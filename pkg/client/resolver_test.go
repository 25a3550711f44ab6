package client

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/andygrunwald/go-jira"
	"github.com/chambrid/jira-timelog/pkg/metrics"
	"github.com/go-logr/logr"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestResolver(t *testing.T, handler http.HandlerFunc) (*CloudResolver, *metrics.Metrics) {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	jc, err := jira.NewClient(server.Client(), server.URL)
	require.NoError(t, err)

	m := metrics.New()
	return NewCloudResolver(jc, logr.Discard(), m), m
}

func TestCloudResolver_Resolve_NoToken(t *testing.T) {
	var requests int32
	resolver, m := newTestResolver(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&requests, 1)
	})

	resource, err := resolver.Resolve(context.Background(), "")

	require.Error(t, err)
	assert.Nil(t, resource)
	assert.True(t, IsAuthError(err))
	assert.Equal(t, ErrTypeNoToken, errorType(err))
	assert.Equal(t, int32(0), atomic.LoadInt32(&requests), "no request may be made without a token")
	count, err := testutil.GatherAndCount(m.Registry(), "timelog_cloud_resolutions_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestCloudResolver_Resolve_FirstResource(t *testing.T) {
	resolver, _ := newTestResolver(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/oauth/token/accessible-resources", r.URL.Path)
		assert.Equal(t, "Bearer token-abc", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[
			{"id":"abc","url":"https://first.atlassian.net","name":"first","scopes":["read:jira-work"]},
			{"id":"def","url":"https://second.atlassian.net","name":"second"}
		]`))
	})

	resource, err := resolver.Resolve(context.Background(), "token-abc")

	require.NoError(t, err)
	assert.Equal(t, "abc", resource.ID)
	assert.Equal(t, "https://first.atlassian.net", resource.URL)
	assert.Equal(t, []string{"read:jira-work"}, resource.Scopes)
}

func TestCloudResolver_Resolve_Errors(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		errType    string
		statusCode int
	}{
		{"unauthorized", http.StatusUnauthorized, `{"code":401,"message":"Unauthorized"}`, ErrTypeHTTP, http.StatusUnauthorized},
		{"server error", http.StatusInternalServerError, ``, ErrTypeHTTP, http.StatusInternalServerError},
		{"empty list", http.StatusOK, `[]`, ErrTypeEmptyResourceList, 0},
		{"malformed body", http.StatusOK, `{"not":"a list"`, ErrTypeDecode, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resolver, _ := newTestResolver(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			_, err := resolver.Resolve(context.Background(), "token-abc")
			require.Error(t, err)

			clientErr, ok := err.(*ClientError)
			require.True(t, ok, "expected *ClientError, got %T", err)
			assert.Equal(t, tt.errType, clientErr.Type)
			assert.Equal(t, tt.statusCode, clientErr.StatusCode)
			if tt.statusCode != 0 {
				assert.Equal(t, http.StatusText(tt.statusCode), clientErr.StatusText)
				assert.True(t, IsTransportError(err))
			}
		})
	}
}

func TestCloudResolver_Resolve_TransportError(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	jc, err := jira.NewClient(server.Client(), server.URL)
	require.NoError(t, err)
	server.Close()

	resolver := NewCloudResolver(jc, logr.Discard(), nil)
	_, err = resolver.Resolve(context.Background(), "token-abc")

	require.Error(t, err)
	assert.Equal(t, ErrTypeTransport, errorType(err))
	assert.True(t, IsTransportError(err))
}

func TestCloudResolver_CachesPerToken(t *testing.T) {
	var requests int32
	resolver, m := newTestResolver(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&requests, 1)
		_, _ = w.Write([]byte(`[{"id":"abc","url":"https://first.atlassian.net"}]`))
	})
	ctx := context.Background()

	_, err := resolver.Resolve(ctx, "token-abc")
	require.NoError(t, err)
	_, err = resolver.Resolve(ctx, "token-abc")
	require.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&requests))

	expected := `
# HELP timelog_cloud_resolutions_total Cloud resource resolutions by outcome
# TYPE timelog_cloud_resolutions_total counter
timelog_cloud_resolutions_total{result="cached"} 1
timelog_cloud_resolutions_total{result="resolved"} 1
`
	assert.NoError(t, testutil.GatherAndCompare(m.Registry(), strings.NewReader(expected), "timelog_cloud_resolutions_total"))

	_, err = resolver.Resolve(ctx, "token-other")
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&requests), "a different token resolves again")

	resolver.Invalidate("token-abc")
	_, err = resolver.Resolve(ctx, "token-abc")
	require.NoError(t, err)
	assert.Equal(t, int32(3), atomic.LoadInt32(&requests), "invalidation forces rediscovery")
}

func TestCloudResolver_ConcurrentResolveSharesOneRequest(t *testing.T) {
	var requests int32
	release := make(chan struct{})
	resolver, _ := newTestResolver(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&requests, 1)
		<-release
		_, _ = w.Write([]byte(`[{"id":"abc","url":"https://first.atlassian.net"}]`))
	})

	const callers = 10
	var wg sync.WaitGroup
	results := make([]*CloudResource, callers)
	errs := make([]error, callers)

	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = resolver.Resolve(context.Background(), "token-abc")
		}(i)
	}

	close(release)
	wg.Wait()

	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, "abc", results[i].ID)
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(&requests))
}

func TestCloudResolver_CancelledCallerDoesNotFailOthers(t *testing.T) {
	var requests int32
	started := make(chan struct{})
	release := make(chan struct{})
	resolver, _ := newTestResolver(t, func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&requests, 1) == 1 {
			close(started)
		}
		<-release
		_, _ = w.Write([]byte(`[{"id":"abc","url":"https://first.atlassian.net"}]`))
	})

	ctxA, cancelA := context.WithCancel(context.Background())
	errA := make(chan error, 1)
	go func() {
		_, err := resolver.Resolve(ctxA, "token-abc")
		errA <- err
	}()
	<-started

	type result struct {
		resource *CloudResource
		err      error
	}
	resultB := make(chan result, 1)
	go func() {
		resource, err := resolver.Resolve(context.Background(), "token-abc")
		resultB <- result{resource, err}
	}()

	cancelA()
	err := <-errA
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))

	close(release)
	b := <-resultB
	require.NoError(t, b.err)
	assert.Equal(t, "abc", b.resource.ID)
	assert.Equal(t, int32(1), atomic.LoadInt32(&requests))

	cached, err := resolver.Resolve(context.Background(), "token-abc")
	require.NoError(t, err)
	assert.Equal(t, "abc", cached.ID, "the shared lookup still fills the cache")
}
