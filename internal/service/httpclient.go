package service

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/researchartifacts/aestats/internal/logger"
	"github.com/researchartifacts/aestats/internal/utils"
)

type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

type DefaultHTTPClient struct{ *http.Client }

func NewHTTPClient(timeout time.Duration) *DefaultHTTPClient {
	return &DefaultHTTPClient{Client: &http.Client{Timeout: timeout}}
}

// NewProxyHTTPClient builds a client routing through the given proxy
// URLs per scheme. Empty proxies mean direct connections; the
// environment is never consulted here, proxy resolution happened at
// settings load.
func NewProxyHTTPClient(timeout time.Duration, httpProxy, httpsProxy string) (*DefaultHTTPClient, error) {
	if httpProxy == "" && httpsProxy == "" {
		return NewHTTPClient(timeout), nil
	}

	var httpURL, httpsURL *url.URL
	var err error
	if httpProxy != "" {
		if httpURL, err = utils.ParseSecureURL(httpProxy); err != nil {
			return nil, fmt.Errorf("invalid http proxy: %w", err)
		}
	}
	if httpsProxy != "" {
		if httpsURL, err = utils.ParseSecureURL(httpsProxy); err != nil {
			return nil, fmt.Errorf("invalid https proxy: %w", err)
		}
	}

	transport := &http.Transport{
		Proxy: func(req *http.Request) (*url.URL, error) {
			if req.URL.Scheme == "https" && httpsURL != nil {
				return httpsURL, nil
			}
			if req.URL.Scheme == "http" && httpURL != nil {
				return httpURL, nil
			}
			return nil, nil
		},
	}
	return &DefaultHTTPClient{Client: &http.Client{Timeout: timeout, Transport: transport}}, nil
}

// Head issues a HEAD request and returns the status code and response
// headers. The body is always discarded.
func Head(ctx context.Context, c HTTPClient, url string) (int, http.Header, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, http.NoBody)
	if err != nil {
		return 0, nil, err
	}
	resp, err := c.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer utils.Try(resp.Body.Close)
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<10))
	return resp.StatusCode, resp.Header, nil
}

// GetBody issues a GET with optional extra headers and returns the
// status code and the body, bounded by maxBytes. Status handling is the
// caller's: a 404 is a perfectly good answer for some of them.
func GetBody(ctx context.Context, c HTTPClient, url string, hdr http.Header, maxBytes int64) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return 0, nil, err
	}
	applyHeader(req, hdr)

	resp, err := c.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer utils.Try(resp.Body.Close)

	var src io.Reader = resp.Body
	if maxBytes > 0 {
		src = io.LimitReader(resp.Body, maxBytes)
	}
	body, err := io.ReadAll(src)
	if err != nil {
		return resp.StatusCode, nil, err
	}
	return resp.StatusCode, body, nil
}

// retryableStatus reports whether a download is worth another attempt.
func retryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= 500
}

// downloadBackoff is the linear backoff unit between attempts.
// Overridden in tests.
var downloadBackoff = 2 * time.Second

// DownloadToFile streams url into dst through a temp file and an atomic
// rename, so a torn download never replaces a good local copy. Network
// errors, 429 and 5xx are retried up to maxAttempts with linear
// backoff; every other status fails immediately.
func DownloadToFile(ctx context.Context, c HTTPClient, url, dst string, maxSize int64, maxAttempts int) error {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if attempt > 1 {
			wait := time.Duration(attempt-1) * downloadBackoff
			logger.Warn("download attempt %d/%d for %s in %s (%v)", attempt, maxAttempts, url, wait, lastErr)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(wait):
			}
		}

		retryable, err := downloadOnce(ctx, c, url, dst, maxSize)
		if err == nil {
			return nil
		}
		lastErr = err
		if !retryable {
			return err
		}
	}
	return fmt.Errorf("download failed after %d attempts: %w", maxAttempts, lastErr)
}

func downloadOnce(ctx context.Context, c HTTPClient, url, dst string, maxSize int64) (retryable bool, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return false, err
	}

	resp, err := c.Do(req)
	if err != nil {
		return true, err
	}
	defer utils.Try(resp.Body.Close)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return retryableStatus(resp.StatusCode), fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var src io.Reader = resp.Body
	if maxSize > 0 {
		src = io.LimitReader(resp.Body, maxSize)
	}

	tmp := dst + ".tmp"
	if err := utils.WriteFileAtomic(tmp, dst, src); err != nil {
		return true, err
	}
	return false, nil
}

func applyHeader(req *http.Request, hdr http.Header) {
	for k, vs := range hdr {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
}
