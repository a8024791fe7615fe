package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/researchartifacts/aestats/internal/archive"
	"github.com/researchartifacts/aestats/internal/cache"
	"github.com/researchartifacts/aestats/internal/charts"
	"github.com/researchartifacts/aestats/internal/config"
	"github.com/researchartifacts/aestats/internal/dblp"
	"github.com/researchartifacts/aestats/internal/errs"
	"github.com/researchartifacts/aestats/internal/freshness"
	"github.com/researchartifacts/aestats/internal/linkcheck"
	"github.com/researchartifacts/aestats/internal/logger"
	"github.com/researchartifacts/aestats/internal/models"
	"github.com/researchartifacts/aestats/internal/prompter"
	"github.com/researchartifacts/aestats/internal/runner"
	"github.com/researchartifacts/aestats/internal/scrape"
	"github.com/researchartifacts/aestats/internal/service"
	"github.com/researchartifacts/aestats/internal/sitedata"
	"github.com/researchartifacts/aestats/internal/stats"
	"github.com/researchartifacts/aestats/internal/utils"
)

// probeURL is the reachability check target. The GitHub API is the one
// upstream nothing works without.
var probeURL = "https://api.github.com"

// Pipeline owns the collaborators of one collection run and the state
// the stages hand to each other.
type Pipeline struct {
	cfg     *config.Settings
	sources []config.Source

	cache     *cache.Store
	probe     service.HTTPClient
	scraper   *scrape.Scraper
	checker   *linkcheck.Checker
	collector *stats.Collector
	dblp      *dblp.Downloader
	now       func() time.Time

	listings    []scrape.Listing
	conferences []*models.Conference
	verdicts    map[string]bool
	summaries   []linkcheck.Summary
	entries     []models.StatsEntry
	site        *sitedata.SiteData
	dumpReady   bool
}

// New wires a pipeline from resolved settings. Scraping, link checks
// and stats share one API client; the freshness probe and the bulk
// download get their own timeouts.
func New(cfg *config.Settings, sources []config.Source) (*Pipeline, error) {
	store, err := cache.New(cfg.CacheDir)
	if err != nil {
		return nil, err
	}

	apiClient, err := service.NewProxyHTTPClient(cfg.APITimeout, cfg.HTTPProxy, cfg.HTTPSProxy)
	if err != nil {
		return nil, err
	}
	probeClient, err := service.NewProxyHTTPClient(cfg.ProbeTimeout, cfg.HTTPProxy, cfg.HTTPSProxy)
	if err != nil {
		return nil, err
	}
	downloadClient, err := service.NewProxyHTTPClient(cfg.DownloadTimeout, cfg.HTTPProxy, cfg.HTTPSProxy)
	if err != nil {
		return nil, err
	}

	oracle := freshness.New(probeClient, cfg.ProbeTimeout)
	prompt := prompter.New(os.Stdin, os.Stdout)

	return &Pipeline{
		cfg:       cfg,
		sources:   sources,
		cache:     store,
		probe:     probeClient,
		scraper:   scrape.New(store, apiClient, cfg.GitHubToken),
		checker:   linkcheck.New(store, apiClient),
		collector: stats.New(store, apiClient, cfg.GitHubToken),
		dblp:      dblp.NewDownloader(downloadClient, oracle, prompt, config.DBLPURL),
		now:       time.Now,
	}, nil
}

// Preconditions checks what the run cannot recover from: the output
// directory must already exist and the network must answer at all.
func (p *Pipeline) Preconditions(ctx context.Context) error {
	ok, err := utils.DirExists(p.cfg.OutputDir)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%s", errs.Msg(errs.OutputDirMissing, p.cfg.OutputDir))
	}

	probeCtx, cancel := context.WithTimeout(ctx, p.cfg.ProbeTimeout)
	defer cancel()
	if _, _, err := service.Head(probeCtx, p.probe, probeURL); err != nil {
		return fmt.Errorf("network check failed for %s: %w", probeURL, err)
	}
	return nil
}

func (p *Pipeline) stages() []Stage {
	return []Stage{
		{Name: "listings", Severity: Fatal, Run: p.stageListings},
		{Name: "results", Severity: Fatal, Run: p.stageResults},
		{Name: "verify-links", Severity: Soft, Run: p.stageVerifyLinks},
		{Name: "repo-stats", Severity: Soft, Run: p.stageRepoStats},
		{Name: "bibliography", Severity: Soft, Run: p.stageBibliography},
		{Name: "authors", Severity: Soft, Run: p.stageAuthors},
		{Name: "site-data", Severity: Fatal, Run: p.stageSiteData},
		{Name: "charts", Severity: Soft, Run: p.stageCharts},
	}
}

// Run executes preconditions and the stage sequence, then archives the
// results when requested. The archive stage is appended after the main
// report is complete so its run log carries every stage, and it never
// runs after a fatal abort: partial results are not worth committing.
func (p *Pipeline) Run(ctx context.Context) (*Report, error) {
	if err := p.Preconditions(ctx); err != nil {
		return nil, err
	}

	rep := Execute(ctx, p.stages())

	if p.cfg.SaveResults && !rep.Fatal() {
		arch := Execute(ctx, []Stage{{
			Name:     "archive",
			Severity: Soft,
			Run:      func(ctx context.Context) error { return p.archive(ctx, rep) },
		}})
		rep.Results = append(rep.Results, arch.Results...)
	}
	return rep, nil
}

// Totals reports how many conferences parsed and how many artifacts
// they carry, for the end-of-run banner.
func (p *Pipeline) Totals() (conferences, artifacts int) {
	for _, c := range p.conferences {
		if c.Parsed() {
			conferences++
			artifacts += len(c.Artifacts)
		}
	}
	return conferences, artifacts
}

// parsed filters the run's conferences down to those with artifacts.
func (p *Pipeline) parsed() []*models.Conference {
	out := make([]*models.Conference, 0, len(p.conferences))
	for _, c := range p.conferences {
		if c.Parsed() {
			out = append(out, c)
		}
	}
	return out
}

func (p *Pipeline) stageListings(ctx context.Context) error {
	for _, src := range p.sources {
		ls, err := p.scraper.Conferences(ctx, src, p.cfg.ConfPattern)
		if err != nil {
			return err
		}
		p.listings = append(p.listings, ls...)
	}
	if len(p.listings) == 0 {
		return fmt.Errorf("no conference directories match %q", p.cfg.ConfPattern)
	}
	logger.Info("Found %d conference directories", len(p.listings))
	return nil
}

// stageResults fetches and parses every conference's results page. A
// single page failing to fetch or parse only costs that conference;
// USENIX venues without a results page fall back to the program
// scraper. Only a run where nothing at all parses is fatal.
func (p *Pipeline) stageResults(ctx context.Context) error {
	seen := make(map[string]bool)
	for _, l := range p.listings {
		if seen[l.Name] {
			continue
		}
		seen[l.Name] = true

		name, year, ok := models.SplitConfKey(l.Name)
		if !ok {
			logger.Debug("skipping %s: not a conference-year directory", l.Name)
			continue
		}

		conf := &models.Conference{
			Key:      l.Name,
			Name:     name,
			Year:     year,
			Category: l.Source.Category,
			Source:   l.Source.Name,
		}

		arts, err := p.scraper.Results(ctx, l)
		if err != nil {
			logger.Debug("no results page for %s: %v", l.Name, err)
		} else {
			conf.Artifacts = arts
		}

		if !conf.Parsed() {
			if short, category, ok := scrape.USENIXFallback(name); ok {
				arts, err := p.scraper.USENIXConference(ctx, short, year)
				switch {
				case err != nil:
					logger.Debug("program fallback failed for %s: %v", l.Name, err)
				case len(arts) > 0:
					conf.Artifacts = arts
					conf.Category = category
				}
			}
		}

		p.conferences = append(p.conferences, conf)
	}

	parsed := len(p.parsed())
	if parsed == 0 {
		return fmt.Errorf("none of the %d conferences produced artifacts", len(p.conferences))
	}
	logger.Info("Parsed %d of %d conferences", parsed, len(p.conferences))
	return nil
}

func (p *Pipeline) stageVerifyLinks(ctx context.Context) error {
	p.verdicts, p.summaries = p.checker.CheckConferences(ctx, p.parsed())
	return ctx.Err()
}

func (p *Pipeline) stageRepoStats(ctx context.Context) error {
	p.entries = p.collector.Collect(ctx, p.parsed(), p.verdicts)
	if err := ctx.Err(); err != nil {
		return err
	}
	agg := stats.Aggregate(p.entries, p.now())
	return utils.CreateFile(
		filepath.Join(p.cfg.OutputDir, "_data", "repo_stats.yml"),
		agg, utils.FileTypeYAML, 0o644)
}

func (p *Pipeline) stageBibliography(ctx context.Context) error {
	ready, err := p.dblp.Ensure(ctx, p.cfg.DBLPFile, p.cfg.Interactive)
	p.dumpReady = ready
	return err
}

func (p *Pipeline) stageAuthors(ctx context.Context) error {
	if !p.dumpReady {
		return fmt.Errorf("%w: no bibliography dump available", ErrSkipped)
	}

	idx := dblp.BuildTitleIndex(p.parsed())
	if len(idx) == 0 {
		return fmt.Errorf("%w: no artifact titles to match", ErrSkipped)
	}

	papers, err := dblp.MatchTitles(ctx, p.cfg.DBLPFile, idx.Titles())
	if err != nil {
		return err
	}
	logger.Info("Matched %d papers across %d titles", len(papers), len(idx))

	authors, sum := dblp.AggregateAuthors(papers, idx, p.now())
	return dblp.WriteAuthorData(p.cfg.OutputDir, authors, sum)
}

func (p *Pipeline) stageSiteData(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.site = sitedata.Build(p.conferences, p.now())
	return sitedata.Write(p.cfg.OutputDir, p.site)
}

func (p *Pipeline) stageCharts(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return charts.Generate(p.cfg.OutputDir, p.site)
}

func (p *Pipeline) archive(ctx context.Context, rep *Report) error {
	arch := archive.New(runner.ExecRunner{Dir: p.cfg.ResultsDir})
	return arch.Save(ctx, archive.Snapshot{
		OutputDir:  p.cfg.OutputDir,
		ResultsDir: p.cfg.ResultsDir,
		CacheDir:   p.cfg.CacheDir,
		DumpPath:   p.cfg.DBLPFile,
		Args:       os.Args[1:],
		Report:     rep.Render(),
		Push:       p.cfg.Push,
	})
}
