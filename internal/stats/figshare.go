package stats

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"strings"

	"github.com/researchartifacts/aestats/internal/config"
	"github.com/researchartifacts/aestats/internal/models"
	"github.com/researchartifacts/aestats/internal/service"
)

var (
	figshareStatsBase = "https://stats.figshare.com"
	figshareAPIBase   = "https://api.figshare.com"
)

var figshareVersionRe = regexp.MustCompile(`\.v\d+$`)

// figshareArticleID pulls the article number out of a
// "10.6084/m9.figshare.NNN.vK" style DOI, dropping the version suffix.
// Stats are tracked per article, not per version.
func figshareArticleID(url string) string {
	clean := figshareVersionRe.ReplaceAllString(url, "")
	if i := strings.LastIndex(clean, "figshare."); i >= 0 {
		return clean[i+len("figshare."):]
	}
	return clean
}

// figshareStats reads view and download totals plus article metadata
// from the Figshare APIs, through the cache. A count the stats API will
// not reveal stays -1; the site renders that as unknown.
func (c *Collector) figshareStats(ctx context.Context, url string) (models.RepoStats, error) {
	id := figshareArticleID(url)

	body, err := c.cache.GetOrFetch(ctx, config.NSStats, url, c.ttl, func(ctx context.Context) ([]byte, error) {
		st, err := c.fetchFigshareArticle(ctx, id, url)
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

func (c *Collector) fetchFigshareArticle(ctx context.Context, id, url string) (models.RepoStats, error) {
	st := models.RepoStats{Source: SourceFigshare, FigshareViews: -1, FigshareDownloads: -1}

	var err error
	if st.FigshareViews, err = c.figshareTotal(ctx, "views", id); err != nil {
		return models.RepoStats{}, err
	}
	if st.FigshareDownloads, err = c.figshareTotal(ctx, "downloads", id); err != nil {
		return models.RepoStats{}, err
	}

	metaURL := figshareAPIBase + "/v2/articles/" + id
	status, body, err := service.GetBody(ctx, c.client, metaURL, nil, maxStatsBytes)
	if err != nil {
		return models.RepoStats{}, err
	}
	switch {
	case status == http.StatusOK:
		var d struct {
			CreatedDate  string `json:"created_date"`
			ModifiedDate string `json:"modified_date"`
		}
		if err := json.Unmarshal(body, &d); err == nil {
			st.CreatedAt = d.CreatedDate
			st.UpdatedAt = d.ModifiedDate
		}
	case status == http.StatusNotFound || status == http.StatusGone:
		return models.RepoStats{Source: SourceFigshare, NotFound: true}, nil
	case status == http.StatusTooManyRequests || status >= 500:
		return models.RepoStats{}, service.StatusError(status, body, metaURL)
	}
	return st, nil
}

// figshareTotal reads one counter from the stats API. Articles with
// hidden stats answer 4xx there while remaining perfectly alive, so
// only throttling and server errors abort the collection.
func (c *Collector) figshareTotal(ctx context.Context, kind, id string) (int, error) {
	statsURL := figshareStatsBase + "/total/" + kind + "/article/" + id
	status, body, err := service.GetBody(ctx, c.client, statsURL, nil, maxStatsBytes)
	if err != nil {
		return -1, err
	}
	if status == http.StatusTooManyRequests || status >= 500 {
		return -1, service.StatusError(status, body, statsURL)
	}
	if status != http.StatusOK {
		return -1, nil
	}

	var payload struct {
		Totals int `json:"totals"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return -1, nil
	}
	return payload.Totals, nil
}
