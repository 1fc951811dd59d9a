package wishlist

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/utafrali/storefront/pkg/httpclient"
	"github.com/utafrali/storefront/pkg/middleware"
)

const remoteService = "wishlist-api"

// RemoteStore is a MembershipStore backed by a remote wishlist API:
//
//	GET    {base}/api/v1/wishlist/{productId}
//	PUT    {base}/api/v1/wishlist/{productId}
//	DELETE {base}/api/v1/wishlist/{productId}
//
// The subject travels in the X-User-ID header. Every call is made once;
// Sync decides what a failure means.
type RemoteStore struct {
	client  *httpclient.CircuitBreakerClient
	baseURL string
}

// NewRemoteStore creates a store talking to baseURL.
func NewRemoteStore(baseURL string, timeout time.Duration, logger *slog.Logger) *RemoteStore {
	cfg := httpclient.DefaultConfig()
	cfg.Timeout = timeout
	cfg.MaxRetries = 0
	client := httpclient.NewCircuitBreakerClient(
		httpclient.New(cfg),
		httpclient.DefaultCircuitBreakerConfig(remoteService),
		logger,
	)
	return &RemoteStore{client: client, baseURL: strings.TrimRight(baseURL, "/")}
}

type membershipEnvelope struct {
	Data struct {
		Wishlisted bool `json:"wishlisted"`
	} `json:"data"`
}

// Get reports whether subject has wishlisted productID.
func (r *RemoteStore) Get(ctx context.Context, subject, productID string) (bool, error) {
	return r.do(ctx, http.MethodGet, subject, productID)
}

// Set makes membership equal value and returns the value the API reports.
func (r *RemoteStore) Set(ctx context.Context, subject, productID string, value bool) (bool, error) {
	method := http.MethodDelete
	if value {
		method = http.MethodPut
	}
	return r.do(ctx, method, subject, productID)
}

func (r *RemoteStore) do(ctx context.Context, method, subject, productID string) (bool, error) {
	endpoint := r.baseURL + "/api/v1/wishlist/" + url.PathEscape(productID)
	req, err := http.NewRequestWithContext(ctx, method, endpoint, http.NoBody)
	if err != nil {
		return false, fmt.Errorf("build %s request: %w", method, err)
	}
	req.Header.Set(middleware.SubjectHeader, subject)
	req.Header.Set("Accept", "application/json")

	resp, err := r.client.Do(ctx, req)
	if err != nil {
		return false, fmt.Errorf("%s %s: %w", method, remoteService, err)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		return false, httpclient.ParseResponseError(resp, remoteService)
	}
	defer func() { _ = resp.Body.Close() }()

	var body membershipEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return false, fmt.Errorf("decode %s response: %w", remoteService, err)
	}
	return body.Data.Wishlisted, nil
}
