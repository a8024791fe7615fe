package pipeline

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/researchartifacts/aestats/internal/cache"
	"github.com/researchartifacts/aestats/internal/config"
	"github.com/researchartifacts/aestats/internal/dblp"
	"github.com/researchartifacts/aestats/internal/freshness"
	"github.com/researchartifacts/aestats/internal/linkcheck"
	"github.com/researchartifacts/aestats/internal/logger"
	"github.com/researchartifacts/aestats/internal/scrape"
	"github.com/researchartifacts/aestats/internal/service"
	"github.com/researchartifacts/aestats/internal/sitedata"
	"github.com/researchartifacts/aestats/internal/stats"
	"github.com/researchartifacts/aestats/internal/utils"
)

func TestMain(m *testing.M) {
	logger.UseTestMode()
	os.Exit(m.Run())
}

func TestExecute_SoftFailureContinues(t *testing.T) {
	var ran []string
	stages := []Stage{
		{Name: "first", Severity: Soft, Run: func(ctx context.Context) error {
			ran = append(ran, "first")
			return errors.New("boom")
		}},
		{Name: "second", Severity: Fatal, Run: func(ctx context.Context) error {
			ran = append(ran, "second")
			return nil
		}},
	}

	rep := Execute(context.Background(), stages)

	assert.Equal(t, []string{"first", "second"}, ran)
	assert.False(t, rep.Fatal())
	assert.Equal(t, 1, rep.SoftFailures())
	require.Len(t, rep.Results, 2)
	assert.Equal(t, StatusSoft, rep.Results[0].Status)
	assert.Equal(t, StatusOK, rep.Results[1].Status)
}

func TestExecute_FatalAborts(t *testing.T) {
	ran := false
	stages := []Stage{
		{Name: "first", Severity: Fatal, Run: func(ctx context.Context) error {
			return errors.New("boom")
		}},
		{Name: "second", Severity: Soft, Run: func(ctx context.Context) error {
			ran = true
			return nil
		}},
	}

	rep := Execute(context.Background(), stages)

	assert.False(t, ran, "stages after a fatal failure must not run")
	assert.True(t, rep.Fatal())
	require.Len(t, rep.Results, 1)
	assert.Equal(t, StatusFatal, rep.Results[0].Status)
	assert.EqualError(t, rep.Results[0].Err, "boom")
}

func TestExecute_SkippedStage(t *testing.T) {
	stages := []Stage{
		{Name: "maybe", Severity: Soft, Run: func(ctx context.Context) error {
			return fmt.Errorf("%w: nothing to do", ErrSkipped)
		}},
		{Name: "after", Severity: Soft, Run: func(ctx context.Context) error { return nil }},
	}

	rep := Execute(context.Background(), stages)

	require.Len(t, rep.Results, 2)
	assert.Equal(t, StatusSkipped, rep.Results[0].Status)
	assert.NoError(t, rep.Results[0].Err, "a skip is not a failure")
	assert.False(t, rep.Fatal())
	assert.Zero(t, rep.SoftFailures())
}

func TestExecute_CanceledContextEscalates(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	stages := []Stage{
		{Name: "soft", Severity: Soft, Run: func(ctx context.Context) error {
			cancel()
			return ctx.Err()
		}},
		{Name: "after", Severity: Soft, Run: func(ctx context.Context) error { return nil }},
	}

	rep := Execute(ctx, stages)

	assert.True(t, rep.Fatal(), "cancellation overrides stage severity")
	require.Len(t, rep.Results, 1)
}

func TestReport_Render(t *testing.T) {
	rep := &Report{Results: []StageResult{
		{Name: "listings", Status: StatusOK, Duration: 120 * time.Millisecond},
		{Name: "repo-stats", Status: StatusSoft, Duration: 2 * time.Second, Err: errors.New("rate limited")},
	}}

	out := rep.Render()

	assert.Equal(t, 2, strings.Count(out, "\n"))
	assert.Contains(t, out, "listings")
	assert.Contains(t, out, "ok")
	assert.Contains(t, out, "repo-stats")
	assert.Contains(t, out, "soft-failed")
	assert.Contains(t, out, "rate limited")
}

func testSettings(t *testing.T) *config.Settings {
	t.Helper()
	return &config.Settings{
		OutputDir:       t.TempDir(),
		ConfPattern:     regexp.MustCompile(config.DefaultConfRegex),
		CacheDir:        t.TempDir(),
		DBLPFile:        filepath.Join(t.TempDir(), "dblp.xml.gz"),
		ProbeTimeout:    2 * time.Second,
		APITimeout:      5 * time.Second,
		DownloadTimeout: 5 * time.Second,
	}
}

func TestPreconditions_MissingOutputDir(t *testing.T) {
	cfg := testSettings(t)
	cfg.OutputDir = filepath.Join(t.TempDir(), "absent")
	p := &Pipeline{cfg: cfg}

	err := p.Preconditions(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), cfg.OutputDir)
}

func TestPreconditions_NetworkProbe(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	old := probeURL
	probeURL = srv.URL
	t.Cleanup(func() { probeURL = old })

	p := &Pipeline{cfg: testSettings(t), probe: service.NewHTTPClient(time.Second)}
	assert.NoError(t, p.Preconditions(context.Background()))

	srv.Close()
	assert.Error(t, p.Preconditions(context.Background()),
		"an unreachable probe target fails the run before any stage")
}

func TestRun_MissingOutputDirFailsBeforeStages(t *testing.T) {
	cfg := testSettings(t)
	cfg.OutputDir = filepath.Join(t.TempDir(), "absent")
	p := &Pipeline{cfg: cfg}

	rep, err := p.Run(context.Background())
	require.Error(t, err)
	assert.Nil(t, rep)
}

// newTestPipeline wires a pipeline against a local server standing in
// for the GitHub API, raw.githubusercontent and dblp.org at once.
func newTestPipeline(t *testing.T, cfg *config.Settings, srvURL string) *Pipeline {
	t.Helper()

	store, err := cache.New(cfg.CacheDir)
	require.NoError(t, err)
	client := service.NewHTTPClient(2 * time.Second)
	oracle := freshness.New(client, time.Second)

	return &Pipeline{
		cfg: cfg,
		sources: []config.Source{{
			Name:     "sysartifacts",
			Org:      "sysartifacts",
			Repo:     "sysartifacts.github.io",
			Branch:   "master",
			SiteURL:  srvURL,
			Category: "systems",
			APIBase:  srvURL,
			RawBase:  srvURL,
		}},
		cache:     store,
		probe:     client,
		scraper:   scrape.New(store, client, ""),
		checker:   linkcheck.New(store, client),
		collector: stats.New(store, client, ""),
		dblp:      dblp.NewDownloader(client, oracle, nil, srvURL+"/dblp.xml.gz"),
		now:       func() time.Time { return time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC) },
	}
}

func TestRun_FullPipeline(t *testing.T) {
	var srv *httptest.Server
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/sysartifacts/sysartifacts.github.io/contents/_conferences",
		func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `[{"name":"osdi2024","type":"dir"},{"name":"README.md","type":"file"}]`)
		})
	mux.HandleFunc("/sysartifacts/sysartifacts.github.io/master/_conferences/osdi2024/results.md",
		func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprintf(w, `---
artifacts:
  - title: Widget Accelerator
    authors: Ada Example, Grace Sample
    badges:
      - Artifacts Available
      - Artifacts Functional
    repository_url: %s/repo/widget
---
# OSDI 2024 results
`, srv.URL)
		})
	mux.HandleFunc("/repo/widget", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/dblp.xml.gz", http.NotFound)
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	srv = httptest.NewServer(mux)
	defer srv.Close()

	old := probeURL
	probeURL = srv.URL
	t.Cleanup(func() { probeURL = old })

	cfg := testSettings(t)
	p := newTestPipeline(t, cfg, srv.URL)

	rep, err := p.Run(context.Background())
	require.NoError(t, err)
	require.NotNil(t, rep)
	assert.False(t, rep.Fatal())

	statuses := make(map[string]Status, len(rep.Results))
	for _, res := range rep.Results {
		statuses[res.Name] = res.Status
	}
	assert.Equal(t, StatusOK, statuses["listings"])
	assert.Equal(t, StatusOK, statuses["results"])
	assert.Equal(t, StatusOK, statuses["verify-links"])
	assert.Equal(t, StatusOK, statuses["repo-stats"])
	assert.Equal(t, StatusSoft, statuses["bibliography"], "missing dump plus failed download degrades softly")
	assert.Equal(t, StatusSkipped, statuses["authors"], "no dump means nothing to match")
	assert.Equal(t, StatusOK, statuses["site-data"])
	assert.Equal(t, StatusOK, statuses["charts"])
	assert.NotContains(t, statuses, "archive", "no archive stage without --save-results")

	require.Len(t, p.conferences, 1)
	assert.Equal(t, "systems", p.conferences[0].Category)
	assert.True(t, p.verdicts[srv.URL+"/repo/widget"])

	confs, arts := p.Totals()
	assert.Equal(t, 1, confs)
	assert.Equal(t, 1, arts)

	for _, rel := range []string{
		filepath.Join("_data", "summary.yml"),
		filepath.Join("_data", "repo_stats.yml"),
		filepath.Join("assets", "data", "artifacts.json"),
		filepath.Join("assets", "charts", "total_artifacts.html"),
	} {
		_, err := os.Stat(filepath.Join(cfg.OutputDir, rel))
		assert.NoError(t, err, rel)
	}

	var sum sitedata.Summary
	require.NoError(t, utils.FileReader(
		filepath.Join(cfg.OutputDir, "_data", "summary.yml"), utils.FileTypeYAML, &sum))
	assert.Equal(t, 1, sum.TotalArtifacts)
	assert.Equal(t, 1, sum.SystemsArtifacts)
	assert.Equal(t, []string{"OSDI"}, sum.ConferencesList)
}

func TestRun_FatalListingsSkipsArchive(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/sysartifacts/sysartifacts.github.io/contents/_conferences",
		func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	old := probeURL
	probeURL = srv.URL
	t.Cleanup(func() { probeURL = old })

	cfg := testSettings(t)
	cfg.SaveResults = true
	cfg.ResultsDir = t.TempDir()
	p := newTestPipeline(t, cfg, srv.URL)

	rep, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.True(t, rep.Fatal())
	require.Len(t, rep.Results, 1, "an aborted run is never archived")
	assert.Equal(t, "listings", rep.Results[0].Name)
	assert.Equal(t, StatusFatal, rep.Results[0].Status)
}
