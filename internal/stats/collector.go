package stats

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/researchartifacts/aestats/internal/cache"
	"github.com/researchartifacts/aestats/internal/config"
	"github.com/researchartifacts/aestats/internal/logger"
	"github.com/researchartifacts/aestats/internal/models"
	"github.com/researchartifacts/aestats/internal/service"
	"github.com/researchartifacts/aestats/internal/utils"
)

// Source labels for the hosting platforms we can read stats from.
const (
	SourceGitHub   = "github"
	SourceZenodo   = "zenodo"
	SourceFigshare = "figshare"
)

const maxStatsBytes = 1 << 20

// Collector gathers per-repository statistics (stars, forks, views,
// downloads) from the hosting platforms behind artifact links.
type Collector struct {
	cache  *cache.Store
	client service.HTTPClient
	token  string
	ttl    time.Duration
}

func New(c *cache.Store, client service.HTTPClient, token string) *Collector {
	if client == nil {
		client = service.NewHTTPClient(30 * time.Second)
	}
	return &Collector{cache: c, client: client, token: token, ttl: config.TTLStats}
}

// Collect walks every artifact link of every conference and returns one
// stats entry per reachable repository. Only links that passed the
// existence check are consulted, duplicates are collected once, and a
// repository that answered 404 stays cached but yields no entry.
func (c *Collector) Collect(ctx context.Context, confs []*models.Conference, verdicts map[string]bool) []models.StatsEntry {
	entries := make([]models.StatsEntry, 0, 64)
	seen := make(map[string]bool)

	for _, conf := range confs {
		name, year, ok := models.SplitConfKey(conf.Key)
		if !ok {
			continue
		}
		confName := strings.ToUpper(name)

		for _, a := range conf.Artifacts {
			for _, raw := range a.URLs() {
				url := utils.NormalizeDOI(raw)
				if !verdicts[url] {
					continue
				}
				normalized := strings.TrimRight(url, "/")
				if seen[normalized] {
					continue
				}
				seen[normalized] = true

				st, err := c.statsFor(ctx, url)
				if err != nil {
					logger.Debug("could not collect stats for %s: %v", url, err)
					continue
				}
				if st.Source == "" || st.NotFound {
					continue
				}

				title := a.Title
				if title == "" {
					title = "Unknown"
				}
				entries = append(entries, models.StatsEntry{
					Conference: confName,
					Year:       year,
					Title:      title,
					URL:        url,
					RepoStats:  st,
				})
			}
		}
	}

	logger.Debug("collected stats for %d repositories", len(entries))
	return entries
}

// statsFor routes url to the collector for its hosting platform. An
// unrecognized host yields an empty result, not an error.
func (c *Collector) statsFor(ctx context.Context, url string) (models.RepoStats, error) {
	switch {
	case strings.Contains(url, "github"):
		return c.githubStats(ctx, url)
	case strings.Contains(url, "zenodo"):
		return c.zenodoStats(ctx, url)
	case strings.Contains(url, "figshare"):
		return c.figshareStats(ctx, url)
	default:
		return models.RepoStats{}, nil
	}
}

// put caches a stats answer, keyed by the artifact URL it was resolved
// from. Definitive answers only; errors never reach here.
func (c *Collector) put(url string, st models.RepoStats, etag string) error {
	body, err := json.Marshal(st)
	if err != nil {
		return err
	}
	return c.cache.Put(config.NSStats, url, body, etag)
}

// decodeStats reads a cached stats body. Corrupt entries are treated as
// misses so one bad write cannot wedge a URL until its TTL expires.
func decodeStats(body []byte) (models.RepoStats, bool) {
	var st models.RepoStats
	if err := json.Unmarshal(body, &st); err != nil {
		logger.Debug("discarding corrupt cached stats entry: %v", err)
		return models.RepoStats{}, false
	}
	return st, true
}
