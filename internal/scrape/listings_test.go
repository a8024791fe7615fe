package scrape

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"regexp"
	"sync/atomic"
	"testing"
	"time"

	"github.com/researchartifacts/aestats/internal/cache"
	"github.com/researchartifacts/aestats/internal/config"
	"github.com/researchartifacts/aestats/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestScraper(t *testing.T) (*Scraper, *cache.Store) {
	t.Helper()
	store, err := cache.New(t.TempDir())
	require.NoError(t, err)
	return New(store, service.NewHTTPClient(5*time.Second), "testtoken"), store
}

const contentsJSON = `[
  {"name": "osdi2024", "type": "dir"},
  {"name": "osdi2019", "type": "dir"},
  {"name": "eurosys2024", "type": "dir"},
  {"name": "README.md", "type": "file"},
  {"name": "template", "type": "dir"}
]`

func testSource(apiBase, rawBase string) config.Source {
	return config.Source{
		Name:    "sysartifacts",
		Org:     "sysartifacts",
		Repo:    "sysartifacts.github.io",
		Branch:  "master",
		SiteURL: "https://sysartifacts.github.io",
		APIBase: apiBase,
		RawBase: rawBase,
	}
}

func TestConferences(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, "/repos/sysartifacts/sysartifacts.github.io/contents/_conferences", r.URL.Path)
		assert.Equal(t, "token testtoken", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(contentsJSON))
	}))
	defer srv.Close()

	s, _ := newTestScraper(t)
	src := testSource(srv.URL, "")

	got, err := s.Conferences(context.Background(), src, regexp.MustCompile(`.*20[12][0-9]`))
	require.NoError(t, err)
	require.Len(t, got, 3, "files and non-matching dirs are dropped")
	assert.Equal(t, "osdi2024", got[0].Name)

	// Second call is served from cache.
	_, err = s.Conferences(context.Background(), src, regexp.MustCompile(`.*`))
	require.NoError(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestConferences_RateLimited(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"message": "API rate limit exceeded"}`))
	}))
	defer srv.Close()

	s, store := newTestScraper(t)
	_, err := s.Conferences(context.Background(), testSource(srv.URL, ""), nil)
	require.ErrorIs(t, err, service.ErrRateLimited)

	assert.Nil(t, store.Entry(config.NSListings, testSource(srv.URL, "").ContentsURL()),
		"rate-limited answer must not be cached")
}

func TestResults_TriesAlternateFilename(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/sysartifacts/sysartifacts.github.io/master/_conferences/osdi2024/results.md":
			http.NotFound(w, r)
		case "/sysartifacts/sysartifacts.github.io/master/_conferences/osdi2024/result.md":
			_, _ = w.Write([]byte(frontMatterPage))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
	defer srv.Close()

	s, _ := newTestScraper(t)
	artifacts, err := s.Results(context.Background(), Listing{
		Name:   "osdi2024",
		Source: testSource("", srv.URL),
	})
	require.NoError(t, err)
	assert.Len(t, artifacts, 2)
}

func TestResults_NoPageIsNotAnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(http.NotFound))
	defer srv.Close()

	s, _ := newTestScraper(t)
	artifacts, err := s.Results(context.Background(), Listing{
		Name:   "hotos2023",
		Source: testSource("", srv.URL),
	})
	require.NoError(t, err)
	assert.Nil(t, artifacts)
}

func TestFetchCached_ConditionalRefresh(t *testing.T) {
	const etag = `"v1"`
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if r.Header.Get("If-None-Match") == etag {
			w.WriteHeader(http.StatusNotModified)
			return
		}
		w.Header().Set("ETag", etag)
		_, _ = w.Write([]byte("content-v1"))
	}))
	defer srv.Close()

	s, store := newTestScraper(t)

	// Cold: fetches and stores body + ETag.
	body, err := s.fetchCached(context.Background(), "pages", srv.URL, time.Hour, nil)
	require.NoError(t, err)
	assert.Equal(t, "content-v1", string(body))
	entry := store.Entry("pages", srv.URL)
	require.NotNil(t, entry)
	assert.Equal(t, etag, entry.ETag)

	// Fresh: no request at all.
	_, err = s.fetchCached(context.Background(), "pages", srv.URL, time.Hour, nil)
	require.NoError(t, err)
	assert.Equal(t, int32(1), calls.Load())

	// Expired: conditional GET answers 304, entry is re-stamped.
	before := store.Entry("pages", srv.URL).FetchedAt
	body, err = s.fetchCached(context.Background(), "pages", srv.URL, 0, nil)
	require.NoError(t, err)
	assert.Equal(t, "content-v1", string(body))
	assert.Equal(t, int32(2), calls.Load())
	after := store.Entry("pages", srv.URL).FetchedAt
	assert.True(t, after.After(before) || after.Equal(before))
}

func TestFetchCached_FailureKeepsOldEntry(t *testing.T) {
	var fail atomic.Bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if fail.Load() {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte("good"))
	}))
	defer srv.Close()

	s, store := newTestScraper(t)
	_, err := s.fetchCached(context.Background(), "pages", srv.URL, time.Hour, nil)
	require.NoError(t, err)

	fail.Store(true)
	_, err = s.fetchCached(context.Background(), "pages", srv.URL, 0, nil)
	require.Error(t, err)

	entry := store.Entry("pages", srv.URL)
	require.NotNil(t, entry, "old entry survives a failed refresh")
	assert.Equal(t, "good", string(entry.Body))
}

func TestUSENIXConference(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/conference/fast25/technical-sessions", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body>
<a href="/conference/fast25/presentation/alpha">Alpha</a>
<a href="/conference/fast25/presentation/alpha">Alpha again</a>
<a href="/conference/fast25/presentation/keynote-talk">Keynote</a>
<a href="/conference/fast24/presentation/old">Old year</a>
</body></html>`)
	})
	mux.HandleFunc("/conference/fast25/presentation/alpha", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body>
<h1 id="page-title">Alpha: A Fast File System</h1>
<div class="field field-name-field-paper-people-text">J. Smith, University</div>
<div class="field field-name-field-artifact-evaluated">
  <img src="/badges/usenix_available.svg">
  <img src="/badges/usenix_functional.svg">
</div>
<div class="field field-name-field-final-paper-pdf"><a href="/system/files/alpha.pdf">PDF</a></div>
</body></html>`)
	})
	mux.HandleFunc("/conference/fast25/presentation/keynote-talk", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body><h1 id="page-title">Keynote: The Future</h1></body></html>`)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	oldBase := usenixBase
	usenixBase = srv.URL
	defer func() { usenixBase = oldBase }()

	s, _ := newTestScraper(t)
	artifacts, err := s.USENIXConference(context.Background(), "fast", 2025)
	require.NoError(t, err)
	require.Len(t, artifacts, 1, "keynote and badge-less papers are dropped")

	a := artifacts[0]
	assert.Equal(t, "Alpha: A Fast File System", a.Title)
	assert.Equal(t, "J. Smith, University", a.Authors)
	assert.Equal(t, []string{"available", "functional"}, a.Badges)
	assert.Equal(t, srv.URL+"/system/files/alpha.pdf", a.PaperURL)
}

func TestUSENIXFallback(t *testing.T) {
	short, category, ok := USENIXFallback("usenixsec")
	assert.True(t, ok)
	assert.Equal(t, "usenixsecurity", short)
	assert.Equal(t, "security", category)

	_, _, ok = USENIXFallback("eurosys")
	assert.False(t, ok)
}
