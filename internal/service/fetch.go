package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/researchartifacts/aestats/internal/utils"
)

// ErrNotFound marks a 404/410 answer. Callers decide whether that is a
// failure (a listing that must exist) or an ordinary absence (a
// conference without a results page, a deleted repository).
var ErrNotFound = errors.New("not found")

// ErrRateLimited marks an exhausted API quota. Never cached, never
// retried within a run.
var ErrRateLimited = errors.New("rate limited")

// StatusError classifies a non-success HTTP status. GitHub reports
// quota exhaustion as 403 with "rate limit" in the body, so the body is
// inspected too.
func StatusError(status int, body []byte, url string) error {
	switch {
	case status == http.StatusNotFound || status == http.StatusGone:
		return fmt.Errorf("%w: %s returned %d", ErrNotFound, url, status)
	case status == http.StatusTooManyRequests:
		return fmt.Errorf("%w: %s returned 429", ErrRateLimited, url)
	case status == http.StatusForbidden && strings.Contains(strings.ToLower(string(body)), "rate limit"):
		return fmt.Errorf("%w: API quota exhausted for %s", ErrRateLimited, url)
	default:
		return fmt.Errorf("unexpected status %d for %s", status, url)
	}
}

// GitHubHeader builds the request headers for the GitHub REST API,
// with auth when a token is available.
func GitHubHeader(token string) http.Header {
	hdr := http.Header{"Accept": []string{"application/vnd.github.v3+json"}}
	if token != "" {
		hdr.Set("Authorization", "token "+token)
	}
	return hdr
}

// FetchResult is the outcome of a conditional GET. On a 304 the Body is
// empty and the caller keeps whatever it had.
type FetchResult struct {
	Status int
	ETag   string
	Body   []byte
}

// AdvancedFetcher is implemented by clients that support ETag-based
// conditional requests.
type AdvancedFetcher interface {
	FetchWithETag(ctx context.Context, url, prevETag string, maxBytes int64) (FetchResult, error)
}

// APIClient wraps an HTTPClient with a fixed header set (auth, accept)
// applied to every request. API payloads are small enough to buffer.
type APIClient struct {
	Client HTTPClient
	Header http.Header
}

func NewAPIClient(c HTTPClient, hdr http.Header) *APIClient {
	return &APIClient{Client: c, Header: hdr}
}

func (a *APIClient) FetchWithETag(ctx context.Context, url, prevETag string, maxBytes int64) (FetchResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return FetchResult{}, err
	}
	applyHeader(req, a.Header)
	if prevETag != "" {
		req.Header.Set("If-None-Match", prevETag)
	}

	resp, err := a.Client.Do(req)
	if err != nil {
		return FetchResult{}, err
	}
	defer utils.Try(resp.Body.Close)

	res := FetchResult{Status: resp.StatusCode, ETag: resp.Header.Get("ETag")}
	if resp.StatusCode == http.StatusNotModified {
		return res, nil
	}

	var src io.Reader = resp.Body
	if maxBytes > 0 {
		src = io.LimitReader(resp.Body, maxBytes)
	}
	res.Body, err = io.ReadAll(src)
	if err != nil {
		return FetchResult{}, err
	}
	return res, nil
}
