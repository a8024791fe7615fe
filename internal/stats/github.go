package stats

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/researchartifacts/aestats/internal/config"
	"github.com/researchartifacts/aestats/internal/logger"
	"github.com/researchartifacts/aestats/internal/models"
	"github.com/researchartifacts/aestats/internal/service"
)

var githubAPIBase = "https://api.github.com"

// githubRepoID extracts "owner/name" from the GitHub URL shapes found
// on results pages, including /tree/, /blob/ and /pkgs/ deep links.
func githubRepoID(url string) (string, error) {
	_, repo, found := strings.Cut(url, "github.com/")
	if !found {
		return "", fmt.Errorf("no repository path in %s", url)
	}
	for _, marker := range []string{"/tree/", "/blob/", "/pkgs/"} {
		if before, _, ok := strings.Cut(repo, marker); ok {
			repo = before
		}
	}
	repo = strings.TrimSuffix(strings.TrimRight(repo, "/"), ".git")
	if repo == "" {
		return "", fmt.Errorf("no repository path in %s", url)
	}
	return repo, nil
}

type githubPayload struct {
	FullName        string   `json:"full_name"`
	Description     string   `json:"description"`
	Language        string   `json:"language"`
	StargazersCount int      `json:"stargazers_count"`
	ForksCount      int      `json:"forks_count"`
	Topics          []string `json:"topics"`
	License         *struct {
		SPDXID string `json:"spdx_id"`
	} `json:"license"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
	PushedAt  string `json:"pushed_at"`
}

func (d githubPayload) toStats() models.RepoStats {
	st := models.RepoStats{
		Source:      SourceGitHub,
		GithubStars: d.StargazersCount,
		GithubForks: d.ForksCount,
		Name:        d.FullName,
		Description: d.Description,
		Language:    d.Language,
		Topics:      d.Topics,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
		PushedAt:    d.PushedAt,
	}
	if d.License != nil {
		st.License = d.License.SPDXID
	}
	return st
}

// githubStats resolves repository metadata through the GitHub repos
// API. Conditional requests ride on the ETag of an expired cache entry,
// so a 304 re-stamps the entry without spending API quota. Rate limits
// and server errors are never cached; a deleted repository is.
func (c *Collector) githubStats(ctx context.Context, url string) (models.RepoStats, error) {
	repo, err := githubRepoID(url)
	if err != nil {
		return models.RepoStats{}, err
	}
	apiURL := githubAPIBase + "/repos/" + repo

	var (
		cached   models.RepoStats
		hasEntry bool
		prevETag string
	)
	if e := c.cache.Entry(config.NSStats, url); e != nil {
		if st, ok := decodeStats(e.Body); ok {
			if c.cache.Fresh(config.NSStats, url, c.ttl) {
				return st, nil
			}
			cached, hasEntry, prevETag = st, true, e.ETag
		}
	}

	api := service.NewAPIClient(c.client, service.GitHubHeader(c.token))
	res, err := api.FetchWithETag(ctx, apiURL, prevETag, maxStatsBytes)
	if err != nil {
		return models.RepoStats{}, err
	}

	switch {
	case res.Status == http.StatusNotModified && hasEntry:
		if err := c.cache.Touch(config.NSStats, url); err != nil {
			logger.Debug("failed to touch stats entry for %s: %v", url, err)
		}
		return cached, nil
	case res.Status == http.StatusOK:
		var d githubPayload
		if err := json.Unmarshal(res.Body, &d); err != nil {
			return models.RepoStats{}, fmt.Errorf("failed to decode repo metadata for %s: %w", repo, err)
		}
		st := d.toStats()
		return st, c.put(url, st, res.ETag)
	case res.Status == http.StatusNotFound || res.Status == http.StatusGone:
		st := models.RepoStats{Source: SourceGitHub, NotFound: true}
		return st, c.put(url, st, "")
	default:
		return models.RepoStats{}, service.StatusError(res.Status, res.Body, apiURL)
	}
}
