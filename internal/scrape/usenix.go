package scrape

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/researchartifacts/aestats/internal/config"
	"github.com/researchartifacts/aestats/internal/logger"
	"github.com/researchartifacts/aestats/internal/models"
)

var usenixBase = "https://www.usenix.org"

// usenixConfMap maps conference directory prefixes to the short name
// usenix.org uses in program URLs, plus the venue category. Directories
// without a results page fall back to scraping these programs.
var usenixConfMap = map[string]struct {
	Short    string
	Category string
}{
	"fast":      {"fast", models.CategorySystems},
	"osdi":      {"osdi", models.CategorySystems},
	"atc":       {"atc", models.CategorySystems},
	"usenixsec": {"usenixsecurity", models.CategorySecurity},
}

// USENIXFallback reports whether usenix.org hosts the program for a
// conference prefix, and under which short name and category.
func USENIXFallback(confName string) (short, category string, ok bool) {
	m, ok := usenixConfMap[strings.ToLower(confName)]
	return m.Short, m.Category, ok
}

// Program pages list many non-paper sessions under the same markup.
var usenixSkipPrefixes = []string{
	"keynote", "panel", "workshop", "tutorial", "honoring",
	"break", "lunch", "closing", "opening", "reception",
	"poster session", "work-in-progress",
}

// USENIXConference scrapes one USENIX program for papers carrying
// artifact badges. Individual page failures are tolerated; the caller
// gets whatever parsed.
func (s *Scraper) USENIXConference(ctx context.Context, short string, year int) ([]models.Artifact, error) {
	paths, err := s.usenixPresentationLinks(ctx, short, year)
	if err != nil {
		return nil, err
	}

	var out []models.Artifact
	for _, path := range paths {
		a, err := s.usenixPaperPage(ctx, path)
		if err != nil {
			logger.Debug("skipping %s: %v", path, err)
			continue
		}
		if a != nil && a.HasBadges() {
			out = append(out, *a)
		}
	}
	logger.Debug("%s%d: %d papers with artifact badges", short, year, len(out))
	return out, nil
}

func (s *Scraper) usenixPresentationLinks(ctx context.Context, short string, year int) ([]string, error) {
	suffix := fmt.Sprintf("%02d", year%100)
	url := fmt.Sprintf("%s/conference/%s%s/technical-sessions", usenixBase, short, suffix)

	body, err := s.fetchCached(ctx, config.NSPages, url, config.TTLDefault, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch program for %s %d: %w", short, year, err)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(body)))
	if err != nil {
		return nil, fmt.Errorf("failed to parse program page: %w", err)
	}

	prefix := fmt.Sprintf("/conference/%s%s/presentation/", short, suffix)
	seen := map[string]bool{}
	doc.Find("a[href]").Each(func(_ int, link *goquery.Selection) {
		href, _ := link.Attr("href")
		if strings.HasPrefix(href, prefix) {
			seen[href] = true
		}
	})

	paths := make([]string, 0, len(seen))
	for p := range seen {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths, nil
}

// usenixPaperPage extracts title, authors, badges and the paper PDF
// from one presentation page. Returns nil for non-paper sessions.
func (s *Scraper) usenixPaperPage(ctx context.Context, path string) (*models.Artifact, error) {
	url := usenixBase + path
	body, err := s.fetchCached(ctx, config.NSPages, url, config.TTLDefault, nil)
	if err != nil {
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(body)))
	if err != nil {
		return nil, err
	}

	titleEl := doc.Find("h1#page-title").First()
	if titleEl.Length() == 0 {
		titleEl = doc.Find("h1.page__title").First()
	}
	if titleEl.Length() == 0 {
		return nil, nil
	}
	title := strings.TrimSpace(titleEl.Text())

	lower := strings.ToLower(title)
	for _, p := range usenixSkipPrefixes {
		if strings.HasPrefix(lower, p) {
			return nil, nil
		}
	}

	a := &models.Artifact{Title: title}
	a.Authors = strings.TrimSpace(doc.Find("div[class*='field-name-field-paper-people-text']").First().Text())

	doc.Find("div[class*='field-name-field-artifact-evaluated'] img").Each(func(_ int, img *goquery.Selection) {
		src, _ := img.Attr("src")
		src = strings.ToLower(src)
		switch {
		case strings.Contains(src, "available"):
			a.Badges = append(a.Badges, "available")
		case strings.Contains(src, "functional"):
			a.Badges = append(a.Badges, "functional")
		case strings.Contains(src, "reproduced") || strings.Contains(src, "replicated"):
			a.Badges = append(a.Badges, "reproduced")
		}
	})

	if pdf, ok := doc.Find("div[class*='field-name-field-final-paper-pdf'] a[href]").First().Attr("href"); ok {
		if strings.HasPrefix(pdf, "/") {
			pdf = usenixBase + pdf
		}
		a.PaperURL = pdf
	}
	return a, nil
}
