package client

import (
	"context"
	"net/http"
	"sync"

	"github.com/andygrunwald/go-jira"
	"github.com/chambrid/jira-timelog/pkg/metrics"
	"github.com/chambrid/jira-timelog/pkg/session"
	"github.com/go-logr/logr"
	"golang.org/x/sync/singleflight"
)

const accessibleResourcesPath = "oauth/token/accessible-resources"

// CloudResolver maps an access token to the Jira Cloud site it works against.
// The first accessible resource wins. Results are cached per token until
// Invalidate is called, and concurrent lookups for one token share a single
// discovery request.
type CloudResolver struct {
	jira    *jira.Client
	log     logr.Logger
	metrics *metrics.Metrics

	group singleflight.Group

	mu    sync.RWMutex
	cache map[string]*CloudResource
}

// NewCloudResolver creates a resolver that calls the gateway behind jc
func NewCloudResolver(jc *jira.Client, log logr.Logger, m *metrics.Metrics) *CloudResolver {
	return &CloudResolver{
		jira:    jc,
		log:     log.WithName("resolver"),
		metrics: m,
		cache:   make(map[string]*CloudResource),
	}
}

// Resolve returns the cloud resource for accessToken, discovering it on first use
func (r *CloudResolver) Resolve(ctx context.Context, accessToken string) (*CloudResource, error) {
	if accessToken == "" {
		r.metrics.ObserveResolution(ErrTypeNoToken)
		return nil, &ClientError{
			Type:    ErrTypeNoToken,
			Message: "no access token available",
		}
	}

	key := session.TokenKey(accessToken)
	if resource := r.cached(key); resource != nil {
		r.metrics.ObserveResolution("cached")
		return resource, nil
	}

	// The shared lookup outlives any single caller; the HTTP client timeout bounds it
	sharedCtx := context.WithoutCancel(ctx)
	ch := r.group.DoChan(key, func() (interface{}, error) {
		if resource := r.cached(key); resource != nil {
			return resource, nil
		}

		resources, err := r.Resources(sharedCtx, accessToken)
		if err != nil {
			r.metrics.ObserveResolution(errorType(err))
			return nil, err
		}
		if len(resources) == 0 {
			r.metrics.ObserveResolution(ErrTypeEmptyResourceList)
			return nil, &ClientError{
				Type:    ErrTypeEmptyResourceList,
				Message: "access token has no accessible Jira Cloud resources",
			}
		}

		resource := resources[0]
		r.mu.Lock()
		r.cache[key] = resource
		r.mu.Unlock()

		r.metrics.ObserveResolution("resolved")
		r.log.V(1).Info("resolved cloud resource", "cloudId", resource.ID, "url", resource.URL, "session", key)
		return resource, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*CloudResource), nil
	case <-ctx.Done():
		return nil, &ClientError{
			Type:    ErrTypeTransport,
			Message: "cloud resource lookup abandoned",
			Err:     ctx.Err(),
		}
	}
}

// Resources lists every site the token can reach, bypassing the cache
func (r *CloudResolver) Resources(ctx context.Context, accessToken string) ([]*CloudResource, error) {
	if accessToken == "" {
		return nil, &ClientError{Type: ErrTypeNoToken, Message: "no access token available"}
	}

	var wire []wireResource
	resp, err := send(ctx, r.jira, r.metrics, "accessible_resources", http.MethodGet, accessibleResourcesPath, accessToken, nil, &wire)
	if err != nil {
		return nil, r.handleError(err, resp)
	}

	resources := make([]*CloudResource, 0, len(wire))
	for _, w := range wire {
		resources = append(resources, &CloudResource{
			ID:        w.ID,
			URL:       w.URL,
			Name:      w.Name,
			Scopes:    w.Scopes,
			AvatarURL: w.AvatarURL,
		})
	}
	return resources, nil
}

// Invalidate drops the cached resource for accessToken
func (r *CloudResolver) Invalidate(accessToken string) {
	key := session.TokenKey(accessToken)

	r.mu.Lock()
	delete(r.cache, key)
	r.mu.Unlock()

	r.log.V(1).Info("cloud resource cache invalidated", "session", key)
}

func (r *CloudResolver) cached(key string) *CloudResource {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.cache[key]
}

// handleError keeps the gateway's status for any non-2xx answer, 401 included
func (r *CloudResolver) handleError(err error, resp *jira.Response) error {
	if resp != nil && resp.Response != nil {
		if isSuccess(resp) {
			return &ClientError{
				Type:    ErrTypeDecode,
				Message: "failed to decode accessible resources",
				Err:     err,
			}
		}
		return &ClientError{
			Type:       ErrTypeHTTP,
			Message:    "accessible resources request failed",
			Err:        err,
			StatusCode: resp.StatusCode,
			StatusText: statusText(resp),
		}
	}

	return &ClientError{
		Type:    ErrTypeTransport,
		Message: "accessible resources request could not be sent",
		Err:     err,
	}
}
