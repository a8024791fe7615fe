package scrape

import (
	"context"
	"net/http"
	"time"

	"github.com/researchartifacts/aestats/internal/cache"
	"github.com/researchartifacts/aestats/internal/logger"
	"github.com/researchartifacts/aestats/internal/service"
)

const maxPageBytes = 8 << 20

// Scraper fetches conference listings and results pages through the
// content cache.
type Scraper struct {
	cache  *cache.Store
	client service.HTTPClient
	token  string
}

func New(c *cache.Store, client service.HTTPClient, token string) *Scraper {
	if client == nil {
		client = service.NewHTTPClient(30 * time.Second)
	}
	return &Scraper{cache: c, client: client, token: token}
}

func (s *Scraper) apiHeader() http.Header {
	return service.GitHubHeader(s.token)
}

// fetchCached serves url from the cache when fresh and otherwise does a
// conditional GET, reusing the ETag of an expired entry. A 304 only
// re-stamps the entry. Failures, including rate limits, are never
// written to the cache.
func (s *Scraper) fetchCached(ctx context.Context, ns, url string, ttl time.Duration, hdr http.Header) ([]byte, error) {
	if entry := s.cache.Entry(ns, url); entry != nil {
		if s.cache.Fresh(ns, url, ttl) {
			return entry.Body, nil
		}

		api := service.NewAPIClient(s.client, hdr)
		res, err := api.FetchWithETag(ctx, url, entry.ETag, maxPageBytes)
		if err != nil {
			return nil, err
		}
		switch {
		case res.Status == http.StatusNotModified:
			if err := s.cache.Touch(ns, url); err != nil {
				logger.Debug("failed to touch cache entry for %s: %v", url, err)
			}
			return entry.Body, nil
		case res.Status == http.StatusOK:
			if err := s.cache.Put(ns, url, res.Body, res.ETag); err != nil {
				return nil, err
			}
			return res.Body, nil
		default:
			return nil, service.StatusError(res.Status, res.Body, url)
		}
	}

	api := service.NewAPIClient(s.client, hdr)
	res, err := api.FetchWithETag(ctx, url, "", maxPageBytes)
	if err != nil {
		return nil, err
	}
	if res.Status != http.StatusOK {
		return nil, service.StatusError(res.Status, res.Body, url)
	}
	if err := s.cache.Put(ns, url, res.Body, res.ETag); err != nil {
		return nil, err
	}
	return res.Body, nil
}
