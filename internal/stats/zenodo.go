package stats

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/researchartifacts/aestats/internal/config"
	"github.com/researchartifacts/aestats/internal/models"
	"github.com/researchartifacts/aestats/internal/service"
)

var zenodoAPIBase = "https://zenodo.org"

// zenodoRecordID pulls the record number out of a records URL or a
// "10.5281/zenodo.NNN" style DOI.
func zenodoRecordID(url string) (string, error) {
	if i := strings.LastIndex(url, "/records/"); i >= 0 {
		return url[i+len("/records/"):], nil
	}
	if i := strings.LastIndex(url, "zenodo."); i >= 0 {
		return url[i+len("zenodo."):], nil
	}
	return "", fmt.Errorf("unrecognized zenodo url %s", url)
}

// zenodoStats reads unique view and download counts from the Zenodo
// records API, through the cache.
func (c *Collector) zenodoStats(ctx context.Context, url string) (models.RepoStats, error) {
	rec, err := zenodoRecordID(url)
	if err != nil {
		return models.RepoStats{}, err
	}

	body, err := c.cache.GetOrFetch(ctx, config.NSStats, url, c.ttl, func(ctx context.Context) ([]byte, error) {
		st, err := c.fetchZenodoRecord(ctx, rec, url)
		if err != nil {
			return nil, err
		}
		return json.Marshal(st)
	})
	if err != nil {
		return models.RepoStats{}, err
	}

	st, ok := decodeStats(body)
	if !ok {
		return models.RepoStats{}, fmt.Errorf("corrupt cached stats for %s", url)
	}
	return st, nil
}

func (c *Collector) fetchZenodoRecord(ctx context.Context, rec, url string) (models.RepoStats, error) {
	status, body, err := service.GetBody(ctx, c.client, zenodoAPIBase+"/api/records/"+rec, nil, maxStatsBytes)
	if err != nil {
		return models.RepoStats{}, err
	}

	switch {
	case status == http.StatusOK:
		// Zenodo reports counters as JSON numbers that may carry a
		// fractional part.
		var record struct {
			Created string `json:"created"`
			Updated string `json:"updated"`
			Stats   struct {
				UniqueViews     float64 `json:"unique_views"`
				UniqueDownloads float64 `json:"unique_downloads"`
			} `json:"stats"`
		}
		if err := json.Unmarshal(body, &record); err != nil {
			return models.RepoStats{}, fmt.Errorf("failed to decode zenodo record %s: %w", rec, err)
		}
		return models.RepoStats{
			Source:          SourceZenodo,
			ZenodoViews:     int(record.Stats.UniqueViews),
			ZenodoDownloads: int(record.Stats.UniqueDownloads),
			CreatedAt:       record.Created,
			UpdatedAt:       record.Updated,
		}, nil
	case status == http.StatusNotFound || status == http.StatusGone:
		return models.RepoStats{Source: SourceZenodo, NotFound: true}, nil
	default:
		return models.RepoStats{}, service.StatusError(status, body, url)
	}
}
