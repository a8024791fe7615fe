package linkcheck

import (
	"context"
	"time"

	"github.com/researchartifacts/aestats/internal/cache"
	"github.com/researchartifacts/aestats/internal/config"
	"github.com/researchartifacts/aestats/internal/logger"
	"github.com/researchartifacts/aestats/internal/models"
	"github.com/researchartifacts/aestats/internal/service"
	"github.com/researchartifacts/aestats/internal/utils"
)

// Checker verifies that artifact links still resolve. A URL that
// answered once is trusted for a long time; a missing one is re-checked
// sooner, links do come back after repository renames.
type Checker struct {
	cache  *cache.Store
	client service.HTTPClient
	posTTL time.Duration
	negTTL time.Duration
}

func New(c *cache.Store, client service.HTTPClient) *Checker {
	if client == nil {
		client = service.NewHTTPClient(10 * time.Second)
	}
	return &Checker{
		cache:  c,
		client: client,
		posTTL: config.TTLPositiveURL,
		negTTL: config.TTLNegativeURL,
	}
}

// Exists probes rawURL with a HEAD request. Definitive answers are
// cached under their respective TTLs; transport errors, throttling and
// server errors count as missing for this run only and are never
// cached, so one flaky probe cannot shadow a live link for a week.
func (c *Checker) Exists(ctx context.Context, rawURL string) bool {
	url := utils.NormalizeDOI(rawURL)

	if e := c.cache.Entry(config.NSURLs, url); e != nil {
		verdict := string(e.Body) == "true"
		ttl := c.negTTL
		if verdict {
			ttl = c.posTTL
		}
		if c.cache.Fresh(config.NSURLs, url, ttl) {
			return verdict
		}
	}

	status, _, err := service.Head(ctx, c.client, url)
	switch {
	case err != nil:
		logger.Debug("probe failed for %s: %v", url, err)
		return false
	case status >= 200 && status < 300:
		c.put(url, true)
		return true
	case status == 429 || status >= 500:
		logger.Debug("inconclusive probe for %s (status %d)", url, status)
		return false
	default:
		c.put(url, false)
		return false
	}
}

func (c *Checker) put(url string, exists bool) {
	body := []byte("false")
	if exists {
		body = []byte("true")
	}
	if err := c.cache.Put(config.NSURLs, url, body, ""); err != nil {
		logger.Debug("failed to cache url verdict for %s: %v", url, err)
	}
}

// Summary is the per-conference link check tally.
type Summary struct {
	Conference string
	Total      int
	Exists     int
}

// CheckConferences probes every artifact link of every conference and
// returns the url -> exists map plus per-conference tallies. Duplicate
// URLs across artifacts are probed once.
func (c *Checker) CheckConferences(ctx context.Context, confs []*models.Conference) (map[string]bool, []Summary) {
	verdicts := make(map[string]bool)
	summaries := make([]Summary, 0, len(confs))

	for _, conf := range confs {
		sum := Summary{Conference: conf.Key}
		for _, a := range conf.Artifacts {
			for _, raw := range a.URLs() {
				url := utils.NormalizeDOI(raw)
				sum.Total++
				exists, seen := verdicts[url]
				if !seen {
					exists = c.Exists(ctx, url)
					verdicts[url] = exists
				}
				if exists {
					sum.Exists++
				}
			}
		}
		if sum.Total > 0 {
			pct := float64(sum.Exists) / float64(sum.Total) * 100
			logger.Debug("%s: %d/%d links resolve (%.1f%%)", conf.Key, sum.Exists, sum.Total, pct)
		}
		summaries = append(summaries, sum)
	}
	return verdicts, summaries
}
